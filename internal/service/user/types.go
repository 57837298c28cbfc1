package user

import "time"

// Domain Models
type User struct {
	ID                   string     `json:"id"`
	Email                string     `json:"email"`
	FullName             string     `json:"full_name"`
	Bio                  string     `json:"bio,omitempty"`
	Location             string     `json:"location,omitempty"`
	Timezone             string     `json:"timezone,omitempty"`
	IsActive             bool       `json:"is_active"`
	IsSuperuser          bool       `json:"is_superuser"`
	ReputationScore      float64    `json:"reputation_score"`
	TotalCompletedQuests int        `json:"total_completed_quests"`
	CreatedAt            time.Time  `json:"created_at"`
	UpdatedAt            time.Time  `json:"updated_at"`
	LastActive           *time.Time `json:"last_active,omitempty"`
}

// DTOs
type UpdateUserRequest struct {
	FullName string `json:"full_name" binding:"omitempty,min=2,max=255"`
	Bio      string `json:"bio" binding:"omitempty,max=2000"`
	Location string `json:"location" binding:"omitempty,max=255"`
	Timezone string `json:"timezone" binding:"omitempty,max=50"`
}

// PublicProfile is the view exposed to other users.
type PublicProfile struct {
	ID                   string    `json:"id"`
	FullName             string    `json:"full_name"`
	Bio                  string    `json:"bio,omitempty"`
	Location             string    `json:"location,omitempty"`
	ReputationScore      float64   `json:"reputation_score"`
	TotalCompletedQuests int       `json:"total_completed_quests"`
	CreatedAt            time.Time `json:"created_at"`
}

func (u *User) Public() *PublicProfile {
	return &PublicProfile{
		ID:                   u.ID,
		FullName:             u.FullName,
		Bio:                  u.Bio,
		Location:             u.Location,
		ReputationScore:      u.ReputationScore,
		TotalCompletedQuests: u.TotalCompletedQuests,
		CreatedAt:            u.CreatedAt,
	}
}
