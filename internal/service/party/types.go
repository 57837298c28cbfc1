package party

import (
	"context"
	"time"
)

// Enums
const (
	// Party Status
	StatusActive    = "ACTIVE"
	StatusCompleted = "COMPLETED"
	StatusArchived  = "ARCHIVED"

	// Member Roles
	RoleOwner     = "OWNER"
	RoleModerator = "MODERATOR"
	RoleMember    = "MEMBER"

	// Member Status
	MemberActive   = "active"
	MemberInactive = "inactive"
)

// Domain Models
type Party struct {
	ID            string     `json:"id"`
	QuestID       string     `json:"quest_id"`
	Name          string     `json:"name,omitempty"`
	Description   string     `json:"description,omitempty"`
	Status        string     `json:"status"`
	IsPrivate     bool       `json:"is_private"`
	ChatChannelID string     `json:"chat_channel_id,omitempty"`
	FormedAt      time.Time  `json:"formed_at"`
	CompletedAt   *time.Time `json:"completed_at,omitempty"`
	ArchivedAt    *time.Time `json:"archived_at,omitempty"`
	CreatedAt     time.Time  `json:"created_at"`
}

type Member struct {
	ID       string     `json:"id"`
	PartyID  string     `json:"party_id"`
	UserID   string     `json:"user_id"`
	Role     string     `json:"role"`
	Status   string     `json:"status"`
	JoinedAt time.Time  `json:"joined_at"`
	LeftAt   *time.Time `json:"left_at,omitempty"`
}

// QuestMeta is the slice of quest state the party service needs for
// permission and capacity checks.
type QuestMeta struct {
	ID           string
	CreatorID    string
	Title        string
	PartySizeMax int
}

// QuestDirectory is implemented by the quest repository.
type QuestDirectory interface {
	QuestMeta(ctx context.Context, questID string) (*QuestMeta, error)
}

// DTOs
type CreatePartyRequest struct {
	QuestID     string `json:"quest_id" binding:"required,uuid"`
	Name        string `json:"name" binding:"omitempty,max=255"`
	Description string `json:"description" binding:"omitempty,max=1000"`
	IsPrivate   bool   `json:"is_private"`
}

type UpdatePartyRequest struct {
	Name          string `json:"name" binding:"omitempty,max=255"`
	Description   string `json:"description" binding:"omitempty,max=1000"`
	Status        string `json:"status" binding:"omitempty,oneof=ACTIVE COMPLETED ARCHIVED"`
	IsPrivate     *bool  `json:"is_private"`
	ChatChannelID string `json:"chat_channel_id" binding:"omitempty,max=255"`
}

type AddMemberRequest struct {
	UserID string `json:"user_id" binding:"required,uuid"`
	Role   string `json:"role" binding:"omitempty,oneof=OWNER MODERATOR MEMBER"`
}

type UpdateMemberRequest struct {
	Role   string `json:"role" binding:"omitempty,oneof=OWNER MODERATOR MEMBER"`
	Status string `json:"status" binding:"omitempty,oneof=active inactive"`
}

type PartyResponse struct {
	*Party
	Members     []*Member `json:"members,omitempty"`
	MemberCount int       `json:"member_count"`
}
