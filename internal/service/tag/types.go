package tag

import "time"

// Enums
const (
	// Tag Categories
	CategoryProgramming = "PROGRAMMING"
	CategoryFramework   = "FRAMEWORK"
	CategoryTool        = "TOOL"
	CategoryGame        = "GAME"
	CategoryGameGenre   = "GAME_GENRE"
	CategoryArt         = "ART"
	CategoryMusic       = "MUSIC"
	CategoryMedia       = "MEDIA"
	CategorySport       = "SPORT"
	CategoryFitness     = "FITNESS"
	CategoryLanguage    = "LANGUAGE"
	CategorySubject     = "SUBJECT"
	CategorySkill       = "SKILL"
	CategoryHobby       = "HOBBY"
	CategoryLocation    = "LOCATION"
	CategoryStyle       = "STYLE"

	// Tag Status
	StatusSystem   = "SYSTEM"
	StatusApproved = "APPROVED"
	StatusPending  = "PENDING"
	StatusRejected = "REJECTED"

	// Proficiency Levels
	ProficiencyBeginner     = "BEGINNER"
	ProficiencyIntermediate = "INTERMEDIATE"
	ProficiencyAdvanced     = "ADVANCED"
	ProficiencyExpert       = "EXPERT"
)

var validCategories = map[string]bool{
	CategoryProgramming: true, CategoryFramework: true, CategoryTool: true,
	CategoryGame: true, CategoryGameGenre: true, CategoryArt: true,
	CategoryMusic: true, CategoryMedia: true, CategorySport: true,
	CategoryFitness: true, CategoryLanguage: true, CategorySubject: true,
	CategorySkill: true, CategoryHobby: true, CategoryLocation: true,
	CategoryStyle: true,
}

// Domain Models
type Tag struct {
	ID          string    `json:"id"`
	Name        string    `json:"name"`
	Slug        string    `json:"slug"`
	Category    string    `json:"category"`
	Description string    `json:"description,omitempty"`
	Status      string    `json:"status"`
	SuggestedBy *string   `json:"suggested_by,omitempty"`
	UsageCount  int       `json:"usage_count"`
	CreatedAt   time.Time `json:"created_at"`
	UpdatedAt   time.Time `json:"updated_at"`
}

type UserTag struct {
	UserID           string    `json:"user_id"`
	TagID            string    `json:"tag_id"`
	Slug             string    `json:"slug"`
	Name             string    `json:"name"`
	ProficiencyLevel string    `json:"proficiency_level,omitempty"`
	IsPrimary        bool      `json:"is_primary"`
	CreatedAt        time.Time `json:"created_at"`
}

// DTOs
type CreateTagRequest struct {
	Name        string `json:"name" binding:"required,min=1,max=100"`
	Slug        string `json:"slug" binding:"required,min=1,max=100"`
	Category    string `json:"category" binding:"required"`
	Description string `json:"description" binding:"omitempty,max=255"`
}

type UpdateTagRequest struct {
	Name        string `json:"name" binding:"omitempty,min=1,max=100"`
	Description string `json:"description" binding:"omitempty,max=255"`
	Status      string `json:"status" binding:"omitempty,oneof=SYSTEM APPROVED PENDING REJECTED"`
}

type ListTagsRequest struct {
	Category string `form:"category"`
	Status   string `form:"status"`
	Search   string `form:"search"`
	Limit    int    `form:"limit" binding:"omitempty,min=1,max=200"`
}

type UserTagEntry struct {
	Slug             string `json:"slug" binding:"required"`
	ProficiencyLevel string `json:"proficiency_level" binding:"omitempty,oneof=BEGINNER INTERMEDIATE ADVANCED EXPERT"`
	IsPrimary        bool   `json:"is_primary"`
}

type ReplaceUserTagsRequest struct {
	Tags []UserTagEntry `json:"tags" binding:"required,max=20,dive"`
}
