package user

import (
	"context"

	"github.com/google/uuid"

	"partymatch/pkg/logger"
)

type Service struct {
	repo   Repository
	logger logger.Logger
}

func NewService(repo Repository, logger logger.Logger) *Service {
	return &Service{
		repo:   repo,
		logger: logger,
	}
}

// GetUser retrieves a user by ID
func (s *Service) GetUser(ctx context.Context, userID string) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		s.logger.Error(ctx, "failed to get user",
			logger.Field{Key: "user_id", Value: userID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}
	return user, nil
}

// GetOrCreateByEmail loads the user behind a verified login, creating the
// account on first sign-in.
func (s *Service) GetOrCreateByEmail(ctx context.Context, email, fullName string) (*User, error) {
	existing, err := s.repo.GetUserByEmail(ctx, email)
	if err == nil {
		if err := s.repo.TouchLastActive(ctx, existing.ID); err != nil {
			s.logger.Warn(ctx, "failed to touch last_active", logger.Field{Key: "error", Value: err})
		}
		return existing, nil
	}
	if err != ErrUserNotFound {
		return nil, err
	}

	user := &User{
		ID:       uuid.New().String(),
		Email:    email,
		FullName: fullName,
		IsActive: true,
	}
	if err := s.repo.CreateUser(ctx, user); err != nil {
		s.logger.Error(ctx, "failed to create user",
			logger.Field{Key: "email", Value: email},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	s.logger.Info(ctx, "user created", logger.Field{Key: "user_id", Value: user.ID})
	return user, nil
}

// ResolveLogin maps a verified provider login to a local account,
// creating one on first sign-in.
func (s *Service) ResolveLogin(ctx context.Context, email, fullName string) (string, bool, error) {
	user, err := s.GetOrCreateByEmail(ctx, email, fullName)
	if err != nil {
		return "", false, err
	}
	return user.ID, user.IsSuperuser, nil
}

// UpdateUser updates a user's profile
func (s *Service) UpdateUser(ctx context.Context, userID string, req UpdateUserRequest) (*User, error) {
	user, err := s.repo.GetUserByID(ctx, userID)
	if err != nil {
		return nil, err
	}

	if req.FullName != "" {
		user.FullName = req.FullName
	}
	if req.Bio != "" {
		user.Bio = req.Bio
	}
	if req.Location != "" {
		user.Location = req.Location
	}
	if req.Timezone != "" {
		user.Timezone = req.Timezone
	}

	if err := s.repo.UpdateUser(ctx, user); err != nil {
		s.logger.Error(ctx, "failed to update user",
			logger.Field{Key: "user_id", Value: userID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	s.logger.Info(ctx, "user updated", logger.Field{Key: "user_id", Value: userID})
	return user, nil
}
