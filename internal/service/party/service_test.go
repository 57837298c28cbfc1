package party

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partymatch/internal/service/auth"
	"partymatch/pkg/cache"
	"partymatch/pkg/db"
	"partymatch/pkg/logger"
)

type fakeRepository struct {
	parties map[string]*Party
	byQuest map[string]*Party
	members map[string]*Member
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		parties: make(map[string]*Party),
		byQuest: make(map[string]*Party),
		members: make(map[string]*Member),
	}
}

func (f *fakeRepository) CreateParty(ctx context.Context, tx *sql.Tx, p *Party) error {
	if _, exists := f.byQuest[p.QuestID]; exists {
		return ErrPartyExists
	}
	p.FormedAt = time.Now()
	p.CreatedAt = p.FormedAt
	f.parties[p.ID] = p
	f.byQuest[p.QuestID] = p
	return nil
}

func (f *fakeRepository) GetPartyByID(ctx context.Context, partyID string) (*Party, error) {
	p, ok := f.parties[partyID]
	if !ok {
		return nil, ErrPartyNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeRepository) GetPartyByQuest(ctx context.Context, questID string) (*Party, error) {
	p, ok := f.byQuest[questID]
	if !ok {
		return nil, ErrPartyNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakeRepository) GetPartyWithLock(ctx context.Context, tx *sql.Tx, partyID string) (*Party, error) {
	return f.GetPartyByID(ctx, partyID)
}

func (f *fakeRepository) UpdateParty(ctx context.Context, tx *sql.Tx, p *Party) error {
	if _, ok := f.parties[p.ID]; !ok {
		return ErrPartyNotFound
	}
	copied := *p
	f.parties[p.ID] = &copied
	f.byQuest[p.QuestID] = &copied
	return nil
}

func (f *fakeRepository) AddMember(ctx context.Context, tx *sql.Tx, m *Member) error {
	for _, existing := range f.members {
		if existing.PartyID == m.PartyID && existing.UserID == m.UserID {
			if existing.Status == MemberActive {
				return ErrAlreadyMember
			}
			existing.Role = m.Role
			existing.Status = MemberActive
			existing.JoinedAt = time.Now()
			existing.LeftAt = nil
			*m = *existing
			return nil
		}
	}
	m.JoinedAt = time.Now()
	copied := *m
	f.members[m.ID] = &copied
	return nil
}

func (f *fakeRepository) GetMemberByID(ctx context.Context, memberID string) (*Member, error) {
	m, ok := f.members[memberID]
	if !ok {
		return nil, ErrMemberNotFound
	}
	copied := *m
	return &copied, nil
}

func (f *fakeRepository) GetPartyMembers(ctx context.Context, partyID string, activeOnly bool) ([]*Member, error) {
	members := make([]*Member, 0)
	for _, m := range f.members {
		if m.PartyID != partyID {
			continue
		}
		if activeOnly && m.Status != MemberActive {
			continue
		}
		copied := *m
		members = append(members, &copied)
	}
	return members, nil
}

func (f *fakeRepository) UpdateMember(ctx context.Context, tx *sql.Tx, m *Member) error {
	if _, ok := f.members[m.ID]; !ok {
		return ErrMemberNotFound
	}
	copied := *m
	f.members[m.ID] = &copied
	return nil
}

func (f *fakeRepository) DeactivateMember(ctx context.Context, tx *sql.Tx, memberID string) error {
	m, ok := f.members[memberID]
	if !ok || m.Status != MemberActive {
		return ErrMemberNotFound
	}
	now := time.Now()
	m.Status = MemberInactive
	m.LeftAt = &now
	return nil
}

func (f *fakeRepository) IsActiveMember(ctx context.Context, partyID, userID string) (bool, error) {
	for _, m := range f.members {
		if m.PartyID == partyID && m.UserID == userID && m.Status == MemberActive {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) IsLeader(ctx context.Context, partyID, userID string) (bool, error) {
	for _, m := range f.members {
		if m.PartyID == partyID && m.UserID == userID && m.Status == MemberActive &&
			(m.Role == RoleOwner || m.Role == RoleModerator) {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakeRepository) ActiveMemberCount(ctx context.Context, partyID string) (int, error) {
	count := 0
	for _, m := range f.members {
		if m.PartyID == partyID && m.Status == MemberActive {
			count++
		}
	}
	return count, nil
}

func (f *fakeRepository) GetUserParties(ctx context.Context, userID string) ([]*Party, error) {
	parties := make([]*Party, 0)
	for _, m := range f.members {
		if m.UserID == userID && m.Status == MemberActive {
			if p, ok := f.parties[m.PartyID]; ok {
				copied := *p
				parties = append(parties, &copied)
			}
		}
	}
	return parties, nil
}

func (f *fakeRepository) WithTransaction(ctx context.Context, isolation sql.IsolationLevel, fn db.TxFunc) error {
	return fn(ctx, nil)
}

type fakeQuestDirectory struct {
	quests map[string]*QuestMeta
}

func (f *fakeQuestDirectory) QuestMeta(ctx context.Context, questID string) (*QuestMeta, error) {
	q, ok := f.quests[questID]
	if !ok {
		return nil, ErrQuestNotFound
	}
	return q, nil
}

type fakeCache struct {
	values map[string]string
}

func newFakeCache() *fakeCache {
	return &fakeCache{values: make(map[string]string)}
}

func (f *fakeCache) Get(ctx context.Context, key string) (string, error) {
	v, ok := f.values[key]
	if !ok {
		return "", cache.ErrCacheMiss
	}
	return v, nil
}

func (f *fakeCache) Set(ctx context.Context, key, value string, ttl time.Duration) error {
	f.values[key] = value
	return nil
}

func (f *fakeCache) Del(ctx context.Context, keys ...string) error {
	for _, key := range keys {
		delete(f.values, key)
	}
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeRepository, *fakeQuestDirectory) {
	t.Helper()
	repo := newFakeRepository()
	quests := &fakeQuestDirectory{quests: map[string]*QuestMeta{
		"quest-1": {ID: "quest-1", CreatorID: "creator-1", Title: "Climb the spire", PartySizeMax: 3},
	}}
	return NewService(repo, quests, newFakeCache(), logger.NewLogger("test")), repo, quests
}

func TestCreateParty(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	creator := auth.Actor{ID: "creator-1"}

	p, err := svc.CreateParty(ctx, creator, CreatePartyRequest{QuestID: "quest-1"})
	require.NoError(t, err)
	assert.Equal(t, StatusActive, p.Status)
	assert.Equal(t, "Party for Climb the spire", p.Name)

	members, err := svc.ListMembers(ctx, p.ID, true)
	require.NoError(t, err)
	require.Len(t, members, 1)
	assert.Equal(t, "creator-1", members[0].UserID)
	assert.Equal(t, RoleOwner, members[0].Role)
}

func TestCreateParty_OnlyQuestCreator(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)

	_, err := svc.CreateParty(ctx, auth.Actor{ID: "stranger"}, CreatePartyRequest{QuestID: "quest-1"})
	assert.ErrorIs(t, err, ErrNotPartyLeader)
}

func TestCreateParty_DuplicateQuest(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	creator := auth.Actor{ID: "creator-1"}

	_, err := svc.CreateParty(ctx, creator, CreatePartyRequest{QuestID: "quest-1"})
	require.NoError(t, err)

	_, err = svc.CreateParty(ctx, creator, CreatePartyRequest{QuestID: "quest-1"})
	assert.ErrorIs(t, err, ErrPartyExists)
}

func TestAddMember_CapacityAndDuplicates(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	creator := auth.Actor{ID: "creator-1"}

	p, err := svc.CreateParty(ctx, creator, CreatePartyRequest{QuestID: "quest-1"})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, creator, p.ID, AddMemberRequest{UserID: "user-2"})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, creator, p.ID, AddMemberRequest{UserID: "user-2"})
	assert.ErrorIs(t, err, ErrAlreadyMember)

	_, err = svc.AddMember(ctx, creator, p.ID, AddMemberRequest{UserID: "user-3"})
	require.NoError(t, err)

	// PartySizeMax is 3 and the party is full now.
	_, err = svc.AddMember(ctx, creator, p.ID, AddMemberRequest{UserID: "user-4"})
	assert.ErrorIs(t, err, ErrPartyFull)
}

func TestAddMember_RequiresLeadership(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	creator := auth.Actor{ID: "creator-1"}

	p, err := svc.CreateParty(ctx, creator, CreatePartyRequest{QuestID: "quest-1"})
	require.NoError(t, err)

	_, err = svc.AddMember(ctx, auth.Actor{ID: "stranger"}, p.ID, AddMemberRequest{UserID: "user-2"})
	assert.ErrorIs(t, err, ErrNotPartyLeader)

	// Superusers bypass leadership checks.
	_, err = svc.AddMember(ctx, auth.Actor{ID: "admin", Superuser: true}, p.ID, AddMemberRequest{UserID: "user-2"})
	require.NoError(t, err)
}

func TestRemoveMember_SoftDelete(t *testing.T) {
	ctx := context.Background()
	svc, repo, _ := newTestService(t)
	creator := auth.Actor{ID: "creator-1"}

	p, err := svc.CreateParty(ctx, creator, CreatePartyRequest{QuestID: "quest-1"})
	require.NoError(t, err)

	m, err := svc.AddMember(ctx, creator, p.ID, AddMemberRequest{UserID: "user-2"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMember(ctx, creator, p.ID, m.ID))

	// The membership row survives with an inactive status.
	removed, err := repo.GetMemberByID(ctx, m.ID)
	require.NoError(t, err)
	assert.Equal(t, MemberInactive, removed.Status)
	assert.NotNil(t, removed.LeftAt)

	active, err := svc.ListMembers(ctx, p.ID, true)
	require.NoError(t, err)
	assert.Len(t, active, 1)
}

func TestRemoveMember_CreatorProtected(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	creator := auth.Actor{ID: "creator-1"}

	p, err := svc.CreateParty(ctx, creator, CreatePartyRequest{QuestID: "quest-1"})
	require.NoError(t, err)

	members, err := svc.ListMembers(ctx, p.ID, true)
	require.NoError(t, err)
	require.Len(t, members, 1)

	err = svc.RemoveMember(ctx, auth.Actor{ID: "admin", Superuser: true}, p.ID, members[0].ID)
	assert.ErrorIs(t, err, ErrCannotRemoveCreator)
}

func TestRemoveMember_SelfLeave(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	creator := auth.Actor{ID: "creator-1"}

	p, err := svc.CreateParty(ctx, creator, CreatePartyRequest{QuestID: "quest-1"})
	require.NoError(t, err)

	m, err := svc.AddMember(ctx, creator, p.ID, AddMemberRequest{UserID: "user-2"})
	require.NoError(t, err)

	require.NoError(t, svc.RemoveMember(ctx, auth.Actor{ID: "user-2"}, p.ID, m.ID))
}

func TestAddMember_ReactivatesFormerMember(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	creator := auth.Actor{ID: "creator-1"}

	p, err := svc.CreateParty(ctx, creator, CreatePartyRequest{QuestID: "quest-1"})
	require.NoError(t, err)

	m, err := svc.AddMember(ctx, creator, p.ID, AddMemberRequest{UserID: "user-2"})
	require.NoError(t, err)
	require.NoError(t, svc.RemoveMember(ctx, creator, p.ID, m.ID))

	rejoined, err := svc.AddMember(ctx, creator, p.ID, AddMemberRequest{UserID: "user-2"})
	require.NoError(t, err)
	assert.Equal(t, MemberActive, rejoined.Status)
	assert.Nil(t, rejoined.LeftAt)
}

func TestUpdateMember_LeadershipEscalation(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	creator := auth.Actor{ID: "creator-1"}

	p, err := svc.CreateParty(ctx, creator, CreatePartyRequest{QuestID: "quest-1"})
	require.NoError(t, err)

	m, err := svc.AddMember(ctx, creator, p.ID, AddMemberRequest{UserID: "user-2"})
	require.NoError(t, err)

	// A regular member cannot promote themselves.
	_, err = svc.UpdateMember(ctx, auth.Actor{ID: "user-2"}, p.ID, m.ID, UpdateMemberRequest{Role: RoleModerator})
	assert.ErrorIs(t, err, ErrNotPartyLeader)

	promoted, err := svc.UpdateMember(ctx, creator, p.ID, m.ID, UpdateMemberRequest{Role: RoleModerator})
	require.NoError(t, err)
	assert.Equal(t, RoleModerator, promoted.Role)
}

func TestUpdateParty_StatusTimestamps(t *testing.T) {
	ctx := context.Background()
	svc, _, _ := newTestService(t)
	creator := auth.Actor{ID: "creator-1"}

	p, err := svc.CreateParty(ctx, creator, CreatePartyRequest{QuestID: "quest-1"})
	require.NoError(t, err)

	updated, err := svc.UpdateParty(ctx, creator, p.ID, UpdatePartyRequest{Status: StatusCompleted})
	require.NoError(t, err)
	assert.Equal(t, StatusCompleted, updated.Status)
	assert.NotNil(t, updated.CompletedAt)
}
