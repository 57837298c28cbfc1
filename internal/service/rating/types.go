package rating

import "time"

// Domain Models
type Rating struct {
	ID          string `json:"id"`
	PartyID     string `json:"party_id"`
	RaterID     string `json:"rater_id"`
	RatedUserID string `json:"rated_user_id"`

	OverallRating       int    `json:"overall_rating"`
	CollaborationRating int    `json:"collaboration_rating"`
	CommunicationRating int    `json:"communication_rating"`
	ReliabilityRating   int    `json:"reliability_rating"`
	SkillRating         int    `json:"skill_rating"`
	ReviewText          string `json:"review_text,omitempty"`
	WouldCollaborate    bool   `json:"would_collaborate_again"`

	CreatedAt time.Time `json:"created_at"`
	UpdatedAt time.Time `json:"updated_at"`
}

// Summary aggregates the ratings a user has received.
type Summary struct {
	UserID               string  `json:"user_id"`
	TotalRatings         int     `json:"total_ratings"`
	AverageOverall       float64 `json:"average_overall"`
	AverageCollaboration float64 `json:"average_collaboration"`
	AverageCommunication float64 `json:"average_communication"`
	AverageReliability   float64 `json:"average_reliability"`
	AverageSkill         float64 `json:"average_skill"`
	PositiveFeedbackPct  float64 `json:"positive_feedback_percentage"`
}

// DTOs
type CreateRatingRequest struct {
	PartyID     string `json:"party_id" binding:"required,uuid"`
	RatedUserID string `json:"rated_user_id" binding:"required,uuid"`

	OverallRating       int    `json:"overall_rating" binding:"required,min=1,max=5"`
	CollaborationRating int    `json:"collaboration_rating" binding:"required,min=1,max=5"`
	CommunicationRating int    `json:"communication_rating" binding:"required,min=1,max=5"`
	ReliabilityRating   int    `json:"reliability_rating" binding:"required,min=1,max=5"`
	SkillRating         int    `json:"skill_rating" binding:"required,min=1,max=5"`
	ReviewText          string `json:"review_text" binding:"omitempty,max=1000"`
	WouldCollaborate    *bool  `json:"would_collaborate_again"`
}

type UpdateRatingRequest struct {
	OverallRating       *int   `json:"overall_rating" binding:"omitempty,min=1,max=5"`
	CollaborationRating *int   `json:"collaboration_rating" binding:"omitempty,min=1,max=5"`
	CommunicationRating *int   `json:"communication_rating" binding:"omitempty,min=1,max=5"`
	ReliabilityRating   *int   `json:"reliability_rating" binding:"omitempty,min=1,max=5"`
	SkillRating         *int   `json:"skill_rating" binding:"omitempty,min=1,max=5"`
	ReviewText          string `json:"review_text" binding:"omitempty,max=1000"`
	WouldCollaborate    *bool  `json:"would_collaborate_again"`
}

// CanRateResponse reports whether the caller may still rate anyone in
// the party.
type CanRateResponse struct {
	CanRate bool `json:"can_rate"`
}
