package tag

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

// CreateTag registers a new tag in the shared taxonomy.
func (s *Service) CreateTag(ctx context.Context, suggestedBy string, req CreateTagRequest) (*Tag, error) {
	if !validCategories[req.Category] {
		return nil, ErrInvalidCategory
	}

	t := &Tag{
		ID:          uuid.New().String(),
		Name:        req.Name,
		Slug:        req.Slug,
		Category:    req.Category,
		Description: req.Description,
		Status:      StatusSystem,
	}
	if suggestedBy != "" {
		t.SuggestedBy = &suggestedBy
	}

	if err := s.repo.CreateTag(ctx, t); err != nil {
		s.logger.Error(ctx, "failed to create tag",
			logger.Field{Key: "slug", Value: req.Slug},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	s.logger.Info(ctx, "tag created", logger.Field{Key: "tag_id", Value: t.ID})
	return t, nil
}

func (s *Service) GetTag(ctx context.Context, tagID string) (*Tag, error) {
	return s.repo.GetTagByID(ctx, tagID)
}

func (s *Service) ListTags(ctx context.Context, filters ListTagsRequest) ([]*Tag, error) {
	return s.repo.ListTags(ctx, filters)
}

func (s *Service) UpdateTag(ctx context.Context, tagID string, req UpdateTagRequest) (*Tag, error) {
	t, err := s.repo.GetTagByID(ctx, tagID)
	if err != nil {
		return nil, err
	}

	if req.Name != "" {
		t.Name = req.Name
	}
	if req.Description != "" {
		t.Description = req.Description
	}
	if req.Status != "" {
		t.Status = req.Status
	}

	if err := s.repo.UpdateTag(ctx, t); err != nil {
		return nil, err
	}
	return t, nil
}

func (s *Service) DeleteTag(ctx context.Context, tagID string) error {
	return s.repo.DeleteTag(ctx, tagID)
}

// ReplaceUserTags swaps out the caller's skill/interest tags in one shot.
func (s *Service) ReplaceUserTags(ctx context.Context, userID string, req ReplaceUserTagsRequest) ([]*UserTag, error) {
	if err := s.repo.ReplaceUserTags(ctx, userID, req.Tags); err != nil {
		s.logger.Error(ctx, "failed to replace user tags",
			logger.Field{Key: "user_id", Value: userID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}
	return s.repo.GetUserTags(ctx, userID)
}

func (s *Service) GetUserTags(ctx context.Context, userID string) ([]*UserTag, error) {
	return s.repo.GetUserTags(ctx, userID)
}
