package quest

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"partymatch/internal/service/auth"
	"partymatch/pkg/logger"
)

// Apply submits an application to a recruiting quest. Auto-approve
// quests accept the application immediately; private quests only take
// applications from active members of the parent party.
func (s *Service) Apply(ctx context.Context, actor auth.Actor, questID string, req ApplyRequest) (*Application, error) {
	var application *Application

	err := s.repo.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		q, err := s.repo.GetQuestWithLock(ctx, tx, questID)
		if err != nil {
			return err
		}

		if q.Status != StatusRecruiting {
			return ErrQuestNotRecruiting
		}
		if q.CreatorID == actor.ID {
			return ErrSelfApplication
		}

		if q.Visibility == VisibilityPrivate {
			if q.ParentPartyID == "" {
				return ErrPrivateQuest
			}
			member, err := s.parties.IsActiveMember(ctx, q.ParentPartyID, actor.ID)
			if err != nil {
				return err
			}
			if !member {
				return ErrPrivateQuest
			}
		}

		a := &Application{
			ID:             uuid.New().String(),
			QuestID:        questID,
			ApplicantID:    actor.ID,
			Status:         ApplicationPending,
			Message:        req.Message,
			ProposedRole:   req.ProposedRole,
			RelevantSkills: req.RelevantSkills,
		}
		if q.AutoApprove {
			now := time.Now()
			a.Status = ApplicationApproved
			a.ReviewedAt = &now
		}

		if err := s.repo.CreateApplication(ctx, tx, a); err != nil {
			return err
		}
		application = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "application submitted",
		logger.Field{Key: "quest_id", Value: questID},
		logger.Field{Key: "application_id", Value: application.ID},
		logger.Field{Key: "status", Value: application.Status},
	)
	return application, nil
}

// ReviewApplication approves or rejects a pending application. Only
// the quest creator (or a superuser) reviews.
func (s *Service) ReviewApplication(ctx context.Context, actor auth.Actor, applicationID string, req ReviewApplicationRequest) (*Application, error) {
	var reviewed *Application

	err := s.repo.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		a, err := s.repo.GetApplicationByID(ctx, applicationID)
		if err != nil {
			return err
		}

		// Lock the quest so review and close serialize.
		q, err := s.repo.GetQuestWithLock(ctx, tx, a.QuestID)
		if err != nil {
			return err
		}
		if q.CreatorID != actor.ID && !actor.Superuser {
			return ErrNotQuestCreator
		}
		if a.Status != ApplicationPending {
			return ErrApplicationNotPending
		}

		now := time.Now()
		a.Status = req.Status
		a.ReviewerFeedback = req.ReviewerFeedback
		a.ReviewedAt = &now

		if err := s.repo.UpdateApplication(ctx, tx, a); err != nil {
			return err
		}
		reviewed = a
		return nil
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "application reviewed",
		logger.Field{Key: "application_id", Value: applicationID},
		logger.Field{Key: "status", Value: reviewed.Status},
	)
	return reviewed, nil
}

// UpdateApplication lets the applicant edit a still-pending
// application.
func (s *Service) UpdateApplication(ctx context.Context, actor auth.Actor, applicationID string, req UpdateApplicationRequest) (*Application, error) {
	a, err := s.repo.GetApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if a.ApplicantID != actor.ID {
		return nil, ErrNotApplicant
	}
	if a.Status != ApplicationPending {
		return nil, ErrApplicationNotPending
	}

	if req.Message != "" {
		a.Message = req.Message
	}
	if req.ProposedRole != "" {
		a.ProposedRole = req.ProposedRole
	}
	if req.RelevantSkills != "" {
		a.RelevantSkills = req.RelevantSkills
	}

	err = s.repo.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		return s.repo.UpdateApplication(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}
	return a, nil
}

// WithdrawApplication moves a pending application to WITHDRAWN.
func (s *Service) WithdrawApplication(ctx context.Context, actor auth.Actor, applicationID string) (*Application, error) {
	a, err := s.repo.GetApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if a.ApplicantID != actor.ID {
		return nil, ErrNotApplicant
	}
	if a.Status != ApplicationPending {
		return nil, ErrApplicationNotPending
	}

	a.Status = ApplicationWithdrawn
	err = s.repo.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		return s.repo.UpdateApplication(ctx, tx, a)
	})
	if err != nil {
		return nil, err
	}

	s.logger.Info(ctx, "application withdrawn", logger.Field{Key: "application_id", Value: applicationID})
	return a, nil
}

// GetApplication is visible to the applicant, the quest creator and
// superusers.
func (s *Service) GetApplication(ctx context.Context, actor auth.Actor, applicationID string) (*Application, error) {
	a, err := s.repo.GetApplicationByID(ctx, applicationID)
	if err != nil {
		return nil, err
	}
	if a.ApplicantID == actor.ID || actor.Superuser {
		return a, nil
	}

	q, err := s.repo.GetQuestByID(ctx, a.QuestID)
	if err != nil {
		return nil, err
	}
	if q.CreatorID != actor.ID {
		return nil, ErrNotAuthorized
	}
	return a, nil
}

func (s *Service) GetMyApplications(ctx context.Context, actor auth.Actor) ([]*Application, error) {
	return s.repo.ListUserApplications(ctx, actor.ID)
}

// GetQuestApplications lists a quest's applications for its creator.
func (s *Service) GetQuestApplications(ctx context.Context, actor auth.Actor, questID string) ([]*Application, error) {
	q, err := s.repo.GetQuestByID(ctx, questID)
	if err != nil {
		return nil, err
	}
	if q.CreatorID != actor.ID && !actor.Superuser {
		return nil, ErrNotQuestCreator
	}
	return s.repo.ListQuestApplications(ctx, questID)
}
