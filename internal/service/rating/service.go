package rating

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"partymatch/internal/service/auth"
	"partymatch/internal/service/party"
	"partymatch/internal/service/user"
	"partymatch/pkg/logger"
)

type Service struct {
	repo    Repository
	parties party.Repository
	users   user.Repository
	logger  logger.Logger
}

func NewService(repo Repository, parties party.Repository, users user.Repository, logger logger.Logger) *Service {
	return &Service{
		repo:    repo,
		parties: parties,
		users:   users,
		logger:  logger,
	}
}

// CreateRating records a peer rating after a party wraps up. The rated
// user's reputation is recomputed in the same transaction, so the
// stored score always equals the mean of what is on disk.
func (s *Service) CreateRating(ctx context.Context, actor auth.Actor, req CreateRatingRequest) (*Rating, error) {
	if req.RatedUserID == actor.ID {
		return nil, ErrSelfRating
	}

	p, err := s.parties.GetPartyByID(ctx, req.PartyID)
	if err != nil {
		return nil, err
	}
	if p.Status != party.StatusCompleted && p.Status != party.StatusArchived {
		return nil, ErrPartyNotDone
	}

	if err := s.checkMembership(ctx, p.ID, actor.ID, req.RatedUserID); err != nil {
		return nil, err
	}

	wouldCollaborate := true
	if req.WouldCollaborate != nil {
		wouldCollaborate = *req.WouldCollaborate
	}

	rating := &Rating{
		ID:                  uuid.New().String(),
		PartyID:             req.PartyID,
		RaterID:             actor.ID,
		RatedUserID:         req.RatedUserID,
		OverallRating:       req.OverallRating,
		CollaborationRating: req.CollaborationRating,
		CommunicationRating: req.CommunicationRating,
		ReliabilityRating:   req.ReliabilityRating,
		SkillRating:         req.SkillRating,
		ReviewText:          req.ReviewText,
		WouldCollaborate:    wouldCollaborate,
	}

	err = s.repo.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.repo.CreateRating(ctx, tx, rating); err != nil {
			return err
		}
		return s.users.RecomputeReputation(ctx, tx, req.RatedUserID)
	})
	if err != nil {
		s.logger.Error(ctx, "failed to create rating",
			logger.Field{Key: "party_id", Value: req.PartyID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	s.logger.Info(ctx, "rating created",
		logger.Field{Key: "rating_id", Value: rating.ID},
		logger.Field{Key: "rated_user_id", Value: rating.RatedUserID},
	)
	return rating, nil
}

func (s *Service) checkMembership(ctx context.Context, partyID string, userIDs ...string) error {
	for _, userID := range userIDs {
		member, err := s.parties.IsActiveMember(ctx, partyID, userID)
		if err != nil {
			return fmt.Errorf("check party membership: %w", err)
		}
		if !member {
			return ErrNotPartyMember
		}
	}
	return nil
}

func (s *Service) GetRating(ctx context.Context, ratingID string) (*Rating, error) {
	return s.repo.GetRatingByID(ctx, ratingID)
}

// UpdateRating lets the author revise a rating. The rated user's
// reputation follows in the same transaction.
func (s *Service) UpdateRating(ctx context.Context, actor auth.Actor, ratingID string, req UpdateRatingRequest) (*Rating, error) {
	rating, err := s.repo.GetRatingByID(ctx, ratingID)
	if err != nil {
		return nil, err
	}
	if rating.RaterID != actor.ID {
		return nil, ErrNotRater
	}

	if req.OverallRating != nil {
		rating.OverallRating = *req.OverallRating
	}
	if req.CollaborationRating != nil {
		rating.CollaborationRating = *req.CollaborationRating
	}
	if req.CommunicationRating != nil {
		rating.CommunicationRating = *req.CommunicationRating
	}
	if req.ReliabilityRating != nil {
		rating.ReliabilityRating = *req.ReliabilityRating
	}
	if req.SkillRating != nil {
		rating.SkillRating = *req.SkillRating
	}
	if req.ReviewText != "" {
		rating.ReviewText = req.ReviewText
	}
	if req.WouldCollaborate != nil {
		rating.WouldCollaborate = *req.WouldCollaborate
	}

	err = s.repo.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.repo.UpdateRating(ctx, tx, rating); err != nil {
			return err
		}
		return s.users.RecomputeReputation(ctx, tx, rating.RatedUserID)
	})
	if err != nil {
		return nil, err
	}
	return rating, nil
}

// DeleteRating removes a rating and recomputes the rated user's
// reputation without it.
func (s *Service) DeleteRating(ctx context.Context, actor auth.Actor, ratingID string) error {
	rating, err := s.repo.GetRatingByID(ctx, ratingID)
	if err != nil {
		return err
	}
	if rating.RaterID != actor.ID && !actor.Superuser {
		return ErrNotRater
	}

	err = s.repo.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.repo.DeleteRating(ctx, tx, ratingID); err != nil {
			return err
		}
		return s.users.RecomputeReputation(ctx, tx, rating.RatedUserID)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "rating deleted", logger.Field{Key: "rating_id", Value: ratingID})
	return nil
}

func (s *Service) GetPartyRatings(ctx context.Context, partyID string) ([]*Rating, error) {
	if _, err := s.parties.GetPartyByID(ctx, partyID); err != nil {
		return nil, err
	}
	return s.repo.ListPartyRatings(ctx, partyID)
}

func (s *Service) GetReceivedRatings(ctx context.Context, userID string) ([]*Rating, error) {
	return s.repo.ListReceivedRatings(ctx, userID)
}

func (s *Service) GetGivenRatings(ctx context.Context, userID string) ([]*Rating, error) {
	return s.repo.ListGivenRatings(ctx, userID)
}

func (s *Service) GetUserSummary(ctx context.Context, userID string) (*Summary, error) {
	return s.repo.GetUserSummary(ctx, userID)
}

// GetMyRatingForUser returns the actor's rating of a user within a
// party, if any.
func (s *Service) GetMyRatingForUser(ctx context.Context, actor auth.Actor, partyID, userID string) (*Rating, error) {
	return s.repo.GetRatingForPair(ctx, partyID, actor.ID, userID)
}

// GetRatableUsers lists the party members the actor can still rate:
// everyone active except themselves and anyone already rated.
func (s *Service) GetRatableUsers(ctx context.Context, actor auth.Actor, partyID string) ([]string, error) {
	p, err := s.parties.GetPartyByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if p.Status != party.StatusCompleted && p.Status != party.StatusArchived {
		return nil, ErrPartyNotDone
	}

	if err := s.checkMembership(ctx, partyID, actor.ID); err != nil {
		return nil, err
	}

	members, err := s.parties.GetPartyMembers(ctx, partyID, true)
	if err != nil {
		return nil, err
	}

	ratable := make([]string, 0, len(members))
	for _, m := range members {
		if m.UserID == actor.ID {
			continue
		}
		_, err := s.repo.GetRatingForPair(ctx, partyID, actor.ID, m.UserID)
		if err == nil {
			continue
		}
		if !errors.Is(err, ErrRatingNotFound) {
			return nil, err
		}
		ratable = append(ratable, m.UserID)
	}
	return ratable, nil
}

// CanRate reports whether the actor has anyone left to rate in the
// party.
func (s *Service) CanRate(ctx context.Context, actor auth.Actor, partyID string) (bool, error) {
	ratable, err := s.GetRatableUsers(ctx, actor, partyID)
	if errors.Is(err, ErrPartyNotDone) || errors.Is(err, ErrNotPartyMember) {
		return false, nil
	}
	if err != nil {
		return false, err
	}
	return len(ratable) > 0, nil
}
