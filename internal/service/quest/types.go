package quest

import "time"

// Enums
const (
	// Quest Type
	TypeIndividual     = "INDIVIDUAL"
	TypePartyInternal  = "PARTY_INTERNAL"
	TypePartyExpansion = "PARTY_EXPANSION"
	TypePartyHybrid    = "PARTY_HYBRID"

	// Quest Status
	StatusRecruiting = "RECRUITING"
	StatusInProgress = "IN_PROGRESS"
	StatusCompleted  = "COMPLETED"
	StatusCancelled  = "CANCELLED"
	StatusExpired    = "EXPIRED"

	// Visibility
	VisibilityPublic   = "PUBLIC"
	VisibilityUnlisted = "UNLISTED"
	VisibilityPrivate  = "PRIVATE"

	// Category
	CategoryGaming       = "GAMING"
	CategoryProfessional = "PROFESSIONAL"
	CategorySocial       = "SOCIAL"
	CategoryLearning     = "LEARNING"
	CategoryCreative     = "CREATIVE"
	CategoryFitness      = "FITNESS"
	CategoryTravel       = "TRAVEL"

	// Commitment Level
	CommitmentCasual       = "CASUAL"
	CommitmentModerate     = "MODERATE"
	CommitmentSerious      = "SERIOUS"
	CommitmentProfessional = "PROFESSIONAL"

	// Location Type
	LocationRemote   = "REMOTE"
	LocationInPerson = "IN_PERSON"
	LocationHybrid   = "HYBRID"

	// Application Status
	ApplicationPending   = "PENDING"
	ApplicationApproved  = "APPROVED"
	ApplicationRejected  = "REJECTED"
	ApplicationWithdrawn = "WITHDRAWN"
	ApplicationExpired   = "EXPIRED"
)

// Domain Models
type Quest struct {
	ID            string `json:"id"`
	CreatorID     string `json:"creator_id"`
	ParentPartyID string `json:"parent_party_id,omitempty"`
	QuestType     string `json:"quest_type"`

	Title              string `json:"title"`
	Description        string `json:"description"`
	Objective          string `json:"objective"`
	Category           string `json:"category"`
	Status             string `json:"status"`
	Visibility         string `json:"visibility"`
	PartySizeMin       int    `json:"party_size_min"`
	PartySizeMax       int    `json:"party_size_max"`
	RequiredCommitment string `json:"required_commitment"`
	LocationType       string `json:"location_type"`
	LocationDetail     string `json:"location_detail,omitempty"`

	StartsAt          *time.Time `json:"starts_at,omitempty"`
	Deadline          *time.Time `json:"deadline,omitempty"`
	EstimatedDuration string     `json:"estimated_duration,omitempty"`

	AutoApprove   bool       `json:"auto_approve"`
	IsPublicized  bool       `json:"is_publicized"`
	InternalSlots int        `json:"internal_slots,omitempty"`
	PublicSlots   int        `json:"public_slots,omitempty"`
	PublicizedAt  *time.Time `json:"publicized_at,omitempty"`

	ViewCount        int `json:"view_count"`
	ApplicationCount int `json:"application_count"`
	CurrentPartySize int `json:"current_party_size"`

	CreatedAt   time.Time  `json:"created_at"`
	UpdatedAt   time.Time  `json:"updated_at"`
	ActivatedAt *time.Time `json:"activated_at,omitempty"`
	CompletedAt *time.Time `json:"completed_at,omitempty"`
}

type Application struct {
	ID          string `json:"id"`
	QuestID     string `json:"quest_id"`
	ApplicantID string `json:"applicant_id"`
	Status      string `json:"status"`

	Message        string `json:"message"`
	ProposedRole   string `json:"proposed_role,omitempty"`
	RelevantSkills string `json:"relevant_skills,omitempty"`

	ReviewerFeedback string     `json:"reviewer_feedback,omitempty"`
	ReviewedAt       *time.Time `json:"reviewed_at,omitempty"`
	CreatedAt        time.Time  `json:"created_at"`
	UpdatedAt        time.Time  `json:"updated_at"`
}

// DTOs
type CreateQuestRequest struct {
	Title              string     `json:"title" binding:"required,min=5,max=200"`
	Description        string     `json:"description" binding:"required,min=20,max=2000"`
	Objective          string     `json:"objective" binding:"required,min=10,max=500"`
	Category           string     `json:"category" binding:"required,oneof=GAMING PROFESSIONAL SOCIAL LEARNING CREATIVE FITNESS TRAVEL"`
	PartySizeMin       int        `json:"party_size_min" binding:"required,min=1,max=50"`
	PartySizeMax       int        `json:"party_size_max" binding:"required,min=1,max=50"`
	RequiredCommitment string     `json:"required_commitment" binding:"required,oneof=CASUAL MODERATE SERIOUS PROFESSIONAL"`
	LocationType       string     `json:"location_type" binding:"required,oneof=REMOTE IN_PERSON HYBRID"`
	LocationDetail     string     `json:"location_detail" binding:"omitempty,max=255"`
	StartsAt           *time.Time `json:"starts_at"`
	Deadline           *time.Time `json:"deadline"`
	EstimatedDuration  string     `json:"estimated_duration" binding:"omitempty,max=100"`
	AutoApprove        bool       `json:"auto_approve"`
	Visibility         string     `json:"visibility" binding:"omitempty,oneof=PUBLIC UNLISTED PRIVATE"`
	Tags               []string   `json:"tags" binding:"omitempty,max=10,dive,max=50"`
}

type CreatePartyQuestRequest struct {
	CreateQuestRequest
	QuestType     string `json:"quest_type" binding:"required,oneof=PARTY_INTERNAL PARTY_EXPANSION PARTY_HYBRID"`
	InternalSlots int    `json:"internal_slots" binding:"omitempty,min=0,max=50"`
	PublicSlots   int    `json:"public_slots" binding:"omitempty,min=0,max=50"`
}

type UpdateQuestRequest struct {
	Title              string     `json:"title" binding:"omitempty,min=5,max=200"`
	Description        string     `json:"description" binding:"omitempty,min=20,max=2000"`
	Objective          string     `json:"objective" binding:"omitempty,min=10,max=500"`
	Category           string     `json:"category" binding:"omitempty,oneof=GAMING PROFESSIONAL SOCIAL LEARNING CREATIVE FITNESS TRAVEL"`
	PartySizeMin       *int       `json:"party_size_min" binding:"omitempty,min=1,max=50"`
	PartySizeMax       *int       `json:"party_size_max" binding:"omitempty,min=1,max=50"`
	RequiredCommitment string     `json:"required_commitment" binding:"omitempty,oneof=CASUAL MODERATE SERIOUS PROFESSIONAL"`
	LocationType       string     `json:"location_type" binding:"omitempty,oneof=REMOTE IN_PERSON HYBRID"`
	LocationDetail     string     `json:"location_detail" binding:"omitempty,max=255"`
	StartsAt           *time.Time `json:"starts_at"`
	Deadline           *time.Time `json:"deadline"`
	EstimatedDuration  string     `json:"estimated_duration" binding:"omitempty,max=100"`
	AutoApprove        *bool      `json:"auto_approve"`
	Visibility         string     `json:"visibility" binding:"omitempty,oneof=PUBLIC UNLISTED PRIVATE"`
}

type ListQuestsRequest struct {
	Status    string `form:"status" binding:"omitempty,oneof=RECRUITING IN_PROGRESS COMPLETED CANCELLED EXPIRED"`
	Category  string `form:"category" binding:"omitempty,oneof=GAMING PROFESSIONAL SOCIAL LEARNING CREATIVE FITNESS TRAVEL"`
	QuestType string `form:"quest_type" binding:"omitempty,oneof=INDIVIDUAL PARTY_INTERNAL PARTY_EXPANSION PARTY_HYBRID"`
	Limit     int    `form:"limit" binding:"omitempty,min=1,max=100"`
	Offset    int    `form:"offset" binding:"omitempty,min=0"`
}

type PublicizeRequest struct {
	PublicSlots int `json:"public_slots" binding:"required,min=1,max=50"`
}

type AssignMembersRequest struct {
	UserIDs []string `json:"user_ids" binding:"required,min=1,dive,uuid"`
}

type DiscoverRequest struct {
	Tags  []string `form:"tags" binding:"omitempty,max=10"`
	Limit int      `form:"limit" binding:"omitempty,min=1,max=50"`
}

type ApplyRequest struct {
	Message        string `json:"message" binding:"required,max=1000"`
	ProposedRole   string `json:"proposed_role" binding:"omitempty,max=100"`
	RelevantSkills string `json:"relevant_skills" binding:"omitempty,max=500"`
}

type UpdateApplicationRequest struct {
	Message        string `json:"message" binding:"omitempty,max=1000"`
	ProposedRole   string `json:"proposed_role" binding:"omitempty,max=100"`
	RelevantSkills string `json:"relevant_skills" binding:"omitempty,max=500"`
}

type ReviewApplicationRequest struct {
	Status           string `json:"status" binding:"required,oneof=APPROVED REJECTED"`
	ReviewerFeedback string `json:"reviewer_feedback" binding:"omitempty,max=500"`
}

type QuestResponse struct {
	*Quest
	Tags []string `json:"tags,omitempty"`
}

type DiscoveredQuest struct {
	*Quest
	Tags  []string `json:"tags,omitempty"`
	Score float64  `json:"score"`
}
