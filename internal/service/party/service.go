package party

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"partymatch/internal/service/auth"
	"partymatch/pkg/cache"
	"partymatch/pkg/logger"
)

const (
	partyCacheTTL = 5 * time.Minute
)

func partyCacheKey(partyID string) string {
	return "party:" + partyID
}

type Service struct {
	repo   Repository
	quests QuestDirectory
	cache  cache.Cache
	logger logger.Logger
}

func NewService(repo Repository, quests QuestDirectory, cacheClient cache.Cache, logger logger.Logger) *Service {
	return &Service{
		repo:   repo,
		quests: quests,
		cache:  cacheClient,
		logger: logger,
	}
}

// CreateParty creates a party for a quest and seats the quest creator
// as OWNER. Each quest has at most one party.
func (s *Service) CreateParty(ctx context.Context, actor auth.Actor, req CreatePartyRequest) (*Party, error) {
	quest, err := s.quests.QuestMeta(ctx, req.QuestID)
	if err != nil {
		return nil, err
	}

	if quest.CreatorID != actor.ID && !actor.Superuser {
		return nil, ErrNotPartyLeader
	}

	name := req.Name
	if name == "" {
		name = "Party for " + quest.Title
	}

	p := &Party{
		ID:          uuid.New().String(),
		QuestID:     quest.ID,
		Name:        name,
		Description: req.Description,
		Status:      StatusActive,
		IsPrivate:   req.IsPrivate,
	}

	err = s.repo.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		if err := s.repo.CreateParty(ctx, tx, p); err != nil {
			return err
		}

		owner := &Member{
			ID:      uuid.New().String(),
			PartyID: p.ID,
			UserID:  quest.CreatorID,
			Role:    RoleOwner,
			Status:  MemberActive,
		}
		return s.repo.AddMember(ctx, tx, owner)
	})
	if err != nil {
		s.logger.Error(ctx, "failed to create party",
			logger.Field{Key: "quest_id", Value: req.QuestID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	s.logger.Info(ctx, "party created",
		logger.Field{Key: "party_id", Value: p.ID},
		logger.Field{Key: "quest_id", Value: p.QuestID},
	)
	return p, nil
}

func (s *Service) GetParty(ctx context.Context, partyID string) (*PartyResponse, error) {
	p, err := s.getCachedParty(ctx, partyID)
	if err != nil {
		return nil, err
	}

	members, err := s.repo.GetPartyMembers(ctx, partyID, false)
	if err != nil {
		return nil, err
	}

	active := 0
	for _, m := range members {
		if m.Status == MemberActive {
			active++
		}
	}

	return &PartyResponse{Party: p, Members: members, MemberCount: active}, nil
}

func (s *Service) getCachedParty(ctx context.Context, partyID string) (*Party, error) {
	if cached, err := s.cache.Get(ctx, partyCacheKey(partyID)); err == nil {
		var p Party
		if err := json.Unmarshal([]byte(cached), &p); err == nil {
			return &p, nil
		}
	} else if !errors.Is(err, cache.ErrCacheMiss) {
		s.logger.Warn(ctx, "party cache read failed", logger.Field{Key: "error", Value: err})
	}

	p, err := s.repo.GetPartyByID(ctx, partyID)
	if err != nil {
		return nil, err
	}

	if encoded, err := json.Marshal(p); err == nil {
		if err := s.cache.Set(ctx, partyCacheKey(partyID), string(encoded), partyCacheTTL); err != nil {
			s.logger.Warn(ctx, "party cache write failed", logger.Field{Key: "error", Value: err})
		}
	}
	return p, nil
}

func (s *Service) invalidateParty(ctx context.Context, partyID string) {
	if err := s.cache.Del(ctx, partyCacheKey(partyID)); err != nil {
		s.logger.Warn(ctx, "party cache invalidation failed",
			logger.Field{Key: "party_id", Value: partyID},
			logger.Field{Key: "error", Value: err},
		)
	}
}

func (s *Service) GetMyParties(ctx context.Context, userID string) ([]*Party, error) {
	return s.repo.GetUserParties(ctx, userID)
}

// UpdateParty edits party metadata or transitions its status. Only the
// quest creator, a party leader, or a superuser may do this.
func (s *Service) UpdateParty(ctx context.Context, actor auth.Actor, partyID string, req UpdatePartyRequest) (*Party, error) {
	p, err := s.repo.GetPartyByID(ctx, partyID)
	if err != nil {
		return nil, err
	}

	if err := s.authorize(ctx, actor, p); err != nil {
		return nil, err
	}

	if req.Name != "" {
		p.Name = req.Name
	}
	if req.Description != "" {
		p.Description = req.Description
	}
	if req.IsPrivate != nil {
		p.IsPrivate = *req.IsPrivate
	}
	if req.ChatChannelID != "" {
		p.ChatChannelID = req.ChatChannelID
	}
	if req.Status != "" && req.Status != p.Status {
		now := time.Now()
		switch req.Status {
		case StatusCompleted:
			p.CompletedAt = &now
		case StatusArchived:
			p.ArchivedAt = &now
		}
		p.Status = req.Status
	}

	err = s.repo.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		return s.repo.UpdateParty(ctx, tx, p)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateParty(ctx, partyID)
	return p, nil
}

func (s *Service) ListMembers(ctx context.Context, partyID string, activeOnly bool) ([]*Member, error) {
	if _, err := s.repo.GetPartyByID(ctx, partyID); err != nil {
		return nil, err
	}
	return s.repo.GetPartyMembers(ctx, partyID, activeOnly)
}

// AddMember seats a user in the party, subject to the quest's size cap.
func (s *Service) AddMember(ctx context.Context, actor auth.Actor, partyID string, req AddMemberRequest) (*Member, error) {
	p, err := s.repo.GetPartyByID(ctx, partyID)
	if err != nil {
		return nil, err
	}
	if p.Status != StatusActive {
		return nil, ErrPartyNotActive
	}

	if err := s.authorize(ctx, actor, p); err != nil {
		return nil, err
	}

	quest, err := s.quests.QuestMeta(ctx, p.QuestID)
	if err != nil {
		return nil, err
	}

	role := req.Role
	if role == "" {
		role = RoleMember
	}

	m := &Member{
		ID:      uuid.New().String(),
		PartyID: partyID,
		UserID:  req.UserID,
		Role:    role,
		Status:  MemberActive,
	}

	err = s.repo.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		if _, err := s.repo.GetPartyWithLock(ctx, tx, partyID); err != nil {
			return err
		}

		count, err := s.repo.ActiveMemberCount(ctx, partyID)
		if err != nil {
			return err
		}
		if quest.PartySizeMax > 0 && count >= quest.PartySizeMax {
			return ErrPartyFull
		}

		return s.repo.AddMember(ctx, tx, m)
	})
	if err != nil {
		s.logger.Error(ctx, "failed to add party member",
			logger.Field{Key: "party_id", Value: partyID},
			logger.Field{Key: "user_id", Value: req.UserID},
			logger.Field{Key: "error", Value: err},
		)
		return nil, err
	}

	s.invalidateParty(ctx, partyID)
	return m, nil
}

// UpdateMember changes a member's role or status. Granting or holding a
// leadership role requires leadership; members may edit themselves
// otherwise.
func (s *Service) UpdateMember(ctx context.Context, actor auth.Actor, partyID, memberID string, req UpdateMemberRequest) (*Member, error) {
	p, err := s.repo.GetPartyByID(ctx, partyID)
	if err != nil {
		return nil, err
	}

	m, err := s.repo.GetMemberByID(ctx, memberID)
	if err != nil {
		return nil, err
	}
	if m.PartyID != partyID {
		return nil, ErrMemberNotFound
	}

	escalating := req.Role == RoleOwner || req.Role == RoleModerator
	if escalating || m.UserID != actor.ID {
		if err := s.authorize(ctx, actor, p); err != nil {
			return nil, err
		}
	}

	if req.Role != "" {
		m.Role = req.Role
	}
	if req.Status != "" && req.Status != m.Status {
		m.Status = req.Status
		if req.Status == MemberInactive {
			now := time.Now()
			m.LeftAt = &now
		} else {
			m.LeftAt = nil
		}
	}

	err = s.repo.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		return s.repo.UpdateMember(ctx, tx, m)
	})
	if err != nil {
		return nil, err
	}

	s.invalidateParty(ctx, partyID)
	return m, nil
}

// RemoveMember soft-deletes a membership. Members may leave on their
// own; leaders may remove others; the quest creator can never be
// removed.
func (s *Service) RemoveMember(ctx context.Context, actor auth.Actor, partyID, memberID string) error {
	p, err := s.repo.GetPartyByID(ctx, partyID)
	if err != nil {
		return err
	}

	m, err := s.repo.GetMemberByID(ctx, memberID)
	if err != nil {
		return err
	}
	if m.PartyID != partyID {
		return ErrMemberNotFound
	}

	if m.UserID != actor.ID {
		if err := s.authorize(ctx, actor, p); err != nil {
			return err
		}
	}

	quest, err := s.quests.QuestMeta(ctx, p.QuestID)
	if err != nil {
		return err
	}
	if m.UserID == quest.CreatorID {
		return ErrCannotRemoveCreator
	}

	err = s.repo.WithTransaction(ctx, sql.LevelSerializable, func(ctx context.Context, tx *sql.Tx) error {
		return s.repo.DeactivateMember(ctx, tx, memberID)
	})
	if err != nil {
		return err
	}

	s.logger.Info(ctx, "party member removed",
		logger.Field{Key: "party_id", Value: partyID},
		logger.Field{Key: "member_id", Value: memberID},
	)
	s.invalidateParty(ctx, partyID)
	return nil
}

func (s *Service) authorize(ctx context.Context, actor auth.Actor, p *Party) error {
	if actor.Superuser {
		return nil
	}

	quest, err := s.quests.QuestMeta(ctx, p.QuestID)
	if err == nil && quest.CreatorID == actor.ID {
		return nil
	}

	leader, err := s.repo.IsLeader(ctx, p.ID, actor.ID)
	if err != nil {
		return fmt.Errorf("resolve party leadership: %w", err)
	}
	if !leader {
		return ErrNotPartyLeader
	}
	return nil
}
