package rating

import (
	"context"
	"database/sql"
	"math"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partymatch/internal/service/auth"
	"partymatch/internal/service/party"
	"partymatch/internal/service/user"
	"partymatch/pkg/db"
	"partymatch/pkg/logger"
)

type fakeRepository struct {
	ratings map[string]*Rating
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{ratings: make(map[string]*Rating)}
}

func (f *fakeRepository) CreateRating(ctx context.Context, tx *sql.Tx, r *Rating) error {
	for _, existing := range f.ratings {
		if existing.PartyID == r.PartyID && existing.RaterID == r.RaterID && existing.RatedUserID == r.RatedUserID {
			return ErrAlreadyRated
		}
	}
	r.CreatedAt = time.Now()
	r.UpdatedAt = r.CreatedAt
	copied := *r
	f.ratings[r.ID] = &copied
	return nil
}

func (f *fakeRepository) GetRatingByID(ctx context.Context, ratingID string) (*Rating, error) {
	r, ok := f.ratings[ratingID]
	if !ok {
		return nil, ErrRatingNotFound
	}
	copied := *r
	return &copied, nil
}

func (f *fakeRepository) GetRatingForPair(ctx context.Context, partyID, raterID, ratedUserID string) (*Rating, error) {
	for _, r := range f.ratings {
		if r.PartyID == partyID && r.RaterID == raterID && r.RatedUserID == ratedUserID {
			copied := *r
			return &copied, nil
		}
	}
	return nil, ErrRatingNotFound
}

func (f *fakeRepository) UpdateRating(ctx context.Context, tx *sql.Tx, r *Rating) error {
	if _, ok := f.ratings[r.ID]; !ok {
		return ErrRatingNotFound
	}
	copied := *r
	f.ratings[r.ID] = &copied
	return nil
}

func (f *fakeRepository) DeleteRating(ctx context.Context, tx *sql.Tx, ratingID string) error {
	if _, ok := f.ratings[ratingID]; !ok {
		return ErrRatingNotFound
	}
	delete(f.ratings, ratingID)
	return nil
}

func (f *fakeRepository) ListPartyRatings(ctx context.Context, partyID string) ([]*Rating, error) {
	ratings := make([]*Rating, 0)
	for _, r := range f.ratings {
		if r.PartyID == partyID {
			copied := *r
			ratings = append(ratings, &copied)
		}
	}
	return ratings, nil
}

func (f *fakeRepository) ListReceivedRatings(ctx context.Context, userID string) ([]*Rating, error) {
	ratings := make([]*Rating, 0)
	for _, r := range f.ratings {
		if r.RatedUserID == userID {
			copied := *r
			ratings = append(ratings, &copied)
		}
	}
	return ratings, nil
}

func (f *fakeRepository) ListGivenRatings(ctx context.Context, userID string) ([]*Rating, error) {
	ratings := make([]*Rating, 0)
	for _, r := range f.ratings {
		if r.RaterID == userID {
			copied := *r
			ratings = append(ratings, &copied)
		}
	}
	return ratings, nil
}

func (f *fakeRepository) GetUserSummary(ctx context.Context, userID string) (*Summary, error) {
	s := &Summary{UserID: userID}
	positive := 0
	for _, r := range f.ratings {
		if r.RatedUserID != userID {
			continue
		}
		s.TotalRatings++
		s.AverageOverall += float64(r.OverallRating)
		if r.WouldCollaborate {
			positive++
		}
	}
	if s.TotalRatings > 0 {
		s.AverageOverall /= float64(s.TotalRatings)
		s.PositiveFeedbackPct = 100 * float64(positive) / float64(s.TotalRatings)
	}
	return s, nil
}

func (f *fakeRepository) WithTransaction(ctx context.Context, isolation sql.IsolationLevel, fn db.TxFunc) error {
	return fn(ctx, nil)
}

type fakePartyRepository struct {
	parties map[string]*party.Party
	members map[string][]string // party id -> active member user ids
}

func (f *fakePartyRepository) CreateParty(ctx context.Context, tx *sql.Tx, p *party.Party) error {
	return nil
}

func (f *fakePartyRepository) GetPartyByID(ctx context.Context, partyID string) (*party.Party, error) {
	p, ok := f.parties[partyID]
	if !ok {
		return nil, party.ErrPartyNotFound
	}
	copied := *p
	return &copied, nil
}

func (f *fakePartyRepository) GetPartyByQuest(ctx context.Context, questID string) (*party.Party, error) {
	return nil, party.ErrPartyNotFound
}

func (f *fakePartyRepository) GetPartyWithLock(ctx context.Context, tx *sql.Tx, partyID string) (*party.Party, error) {
	return f.GetPartyByID(ctx, partyID)
}

func (f *fakePartyRepository) UpdateParty(ctx context.Context, tx *sql.Tx, p *party.Party) error {
	return nil
}

func (f *fakePartyRepository) AddMember(ctx context.Context, tx *sql.Tx, m *party.Member) error {
	return nil
}

func (f *fakePartyRepository) GetMemberByID(ctx context.Context, memberID string) (*party.Member, error) {
	return nil, party.ErrMemberNotFound
}

func (f *fakePartyRepository) GetPartyMembers(ctx context.Context, partyID string, activeOnly bool) ([]*party.Member, error) {
	members := make([]*party.Member, 0)
	for _, userID := range f.members[partyID] {
		members = append(members, &party.Member{
			ID: "m-" + userID, PartyID: partyID, UserID: userID,
			Role: party.RoleMember, Status: party.MemberActive,
		})
	}
	return members, nil
}

func (f *fakePartyRepository) UpdateMember(ctx context.Context, tx *sql.Tx, m *party.Member) error {
	return nil
}

func (f *fakePartyRepository) DeactivateMember(ctx context.Context, tx *sql.Tx, memberID string) error {
	return nil
}

func (f *fakePartyRepository) IsActiveMember(ctx context.Context, partyID, userID string) (bool, error) {
	for _, id := range f.members[partyID] {
		if id == userID {
			return true, nil
		}
	}
	return false, nil
}

func (f *fakePartyRepository) IsLeader(ctx context.Context, partyID, userID string) (bool, error) {
	return false, nil
}

func (f *fakePartyRepository) ActiveMemberCount(ctx context.Context, partyID string) (int, error) {
	return len(f.members[partyID]), nil
}

func (f *fakePartyRepository) GetUserParties(ctx context.Context, userID string) ([]*party.Party, error) {
	return nil, nil
}

func (f *fakePartyRepository) WithTransaction(ctx context.Context, isolation sql.IsolationLevel, fn db.TxFunc) error {
	return fn(ctx, nil)
}

// fakeUserRepository recomputes reputation from the rating fake the way
// the SQL does: mean of received overall ratings, two decimals.
type fakeUserRepository struct {
	ratings     *fakeRepository
	reputations map[string]float64
}

func (f *fakeUserRepository) CreateUser(ctx context.Context, u *user.User) error { return nil }

func (f *fakeUserRepository) GetUserByID(ctx context.Context, userID string) (*user.User, error) {
	return nil, user.ErrUserNotFound
}

func (f *fakeUserRepository) GetUserByEmail(ctx context.Context, email string) (*user.User, error) {
	return nil, user.ErrUserNotFound
}

func (f *fakeUserRepository) UpdateUser(ctx context.Context, u *user.User) error { return nil }

func (f *fakeUserRepository) TouchLastActive(ctx context.Context, userID string) error { return nil }

func (f *fakeUserRepository) RecomputeReputation(ctx context.Context, tx *sql.Tx, userID string) error {
	sum, count := 0, 0
	for _, r := range f.ratings.ratings {
		if r.RatedUserID == userID {
			sum += r.OverallRating
			count++
		}
	}
	if count == 0 {
		f.reputations[userID] = 0
		return nil
	}
	f.reputations[userID] = math.Round(float64(sum)/float64(count)*100) / 100
	return nil
}

func (f *fakeUserRepository) IncrementCompletedQuests(ctx context.Context, tx *sql.Tx, userID string) error {
	return nil
}

type testEnv struct {
	svc     *Service
	repo    *fakeRepository
	parties *fakePartyRepository
	users   *fakeUserRepository
}

// newTestEnv seeds one COMPLETED party ("party-1") with three active
// members and one ACTIVE party ("party-open").
func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	repo := newFakeRepository()
	now := time.Now()
	parties := &fakePartyRepository{
		parties: map[string]*party.Party{
			"party-1":    {ID: "party-1", QuestID: "quest-1", Status: party.StatusCompleted, CompletedAt: &now},
			"party-open": {ID: "party-open", QuestID: "quest-2", Status: party.StatusActive},
		},
		members: map[string][]string{
			"party-1":    {"alice", "bob", "carol"},
			"party-open": {"alice", "bob"},
		},
	}
	users := &fakeUserRepository{ratings: repo, reputations: make(map[string]float64)}
	svc := NewService(repo, parties, users, logger.NewLogger("test"))
	return &testEnv{svc: svc, repo: repo, parties: parties, users: users}
}

func validRequest(partyID, ratedUserID string, overall int) CreateRatingRequest {
	return CreateRatingRequest{
		PartyID:             partyID,
		RatedUserID:         ratedUserID,
		OverallRating:       overall,
		CollaborationRating: 4,
		CommunicationRating: 4,
		ReliabilityRating:   5,
		SkillRating:         3,
	}
}

func TestCreateRating_Preconditions(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := auth.Actor{ID: "alice"}

	// Party must exist.
	_, err := env.svc.CreateRating(ctx, alice, validRequest("missing", "bob", 5))
	assert.ErrorIs(t, err, party.ErrPartyNotFound)

	// Party must be finished.
	_, err = env.svc.CreateRating(ctx, alice, validRequest("party-open", "bob", 5))
	assert.ErrorIs(t, err, ErrPartyNotDone)

	// No self rating.
	_, err = env.svc.CreateRating(ctx, alice, validRequest("party-1", "alice", 5))
	assert.ErrorIs(t, err, ErrSelfRating)

	// Both sides must be members.
	_, err = env.svc.CreateRating(ctx, alice, validRequest("party-1", "stranger", 5))
	assert.ErrorIs(t, err, ErrNotPartyMember)
	_, err = env.svc.CreateRating(ctx, auth.Actor{ID: "stranger"}, validRequest("party-1", "bob", 5))
	assert.ErrorIs(t, err, ErrNotPartyMember)

	// One rating per (party, rater, rated).
	_, err = env.svc.CreateRating(ctx, alice, validRequest("party-1", "bob", 5))
	require.NoError(t, err)
	_, err = env.svc.CreateRating(ctx, alice, validRequest("party-1", "bob", 4))
	assert.ErrorIs(t, err, ErrAlreadyRated)
}

func TestCreateRating_RecomputesReputation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	_, err := env.svc.CreateRating(ctx, auth.Actor{ID: "alice"}, validRequest("party-1", "carol", 5))
	require.NoError(t, err)
	assert.InDelta(t, 5.00, env.users.reputations["carol"], 1e-9)

	_, err = env.svc.CreateRating(ctx, auth.Actor{ID: "bob"}, validRequest("party-1", "carol", 4))
	require.NoError(t, err)
	assert.InDelta(t, 4.50, env.users.reputations["carol"], 1e-9)
}

func TestCreateRating_ReputationRoundsToTwoDecimals(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	// 5 and 4 from party-1 plus 4 from a second completed party:
	// mean 13/3 = 4.333... -> 4.33
	now := time.Now()
	env.parties.parties["party-2"] = &party.Party{ID: "party-2", QuestID: "quest-3", Status: party.StatusArchived, ArchivedAt: &now}
	env.parties.members["party-2"] = []string{"alice", "carol"}

	_, err := env.svc.CreateRating(ctx, auth.Actor{ID: "alice"}, validRequest("party-1", "carol", 5))
	require.NoError(t, err)
	_, err = env.svc.CreateRating(ctx, auth.Actor{ID: "bob"}, validRequest("party-1", "carol", 4))
	require.NoError(t, err)
	_, err = env.svc.CreateRating(ctx, auth.Actor{ID: "alice"}, validRequest("party-2", "carol", 4))
	require.NoError(t, err)

	assert.InDelta(t, 4.33, env.users.reputations["carol"], 1e-9)
}

func TestUpdateRating(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := auth.Actor{ID: "alice"}

	created, err := env.svc.CreateRating(ctx, alice, validRequest("party-1", "bob", 5))
	require.NoError(t, err)

	// Only the author edits.
	three := 3
	_, err = env.svc.UpdateRating(ctx, auth.Actor{ID: "carol"}, created.ID, UpdateRatingRequest{OverallRating: &three})
	assert.ErrorIs(t, err, ErrNotRater)

	updated, err := env.svc.UpdateRating(ctx, alice, created.ID, UpdateRatingRequest{OverallRating: &three})
	require.NoError(t, err)
	assert.Equal(t, 3, updated.OverallRating)
	assert.InDelta(t, 3.00, env.users.reputations["bob"], 1e-9)
}

func TestDeleteRating_RecomputesReputation(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)

	first, err := env.svc.CreateRating(ctx, auth.Actor{ID: "alice"}, validRequest("party-1", "carol", 5))
	require.NoError(t, err)
	_, err = env.svc.CreateRating(ctx, auth.Actor{ID: "bob"}, validRequest("party-1", "carol", 3))
	require.NoError(t, err)
	assert.InDelta(t, 4.00, env.users.reputations["carol"], 1e-9)

	// Only the author (or a superuser) deletes.
	err = env.svc.DeleteRating(ctx, auth.Actor{ID: "bob"}, first.ID)
	assert.ErrorIs(t, err, ErrNotRater)

	require.NoError(t, env.svc.DeleteRating(ctx, auth.Actor{ID: "alice"}, first.ID))
	assert.InDelta(t, 3.00, env.users.reputations["carol"], 1e-9)
}

func TestGetRatableUsers(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := auth.Actor{ID: "alice"}

	ratable, err := env.svc.GetRatableUsers(ctx, alice, "party-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"bob", "carol"}, ratable)

	_, err = env.svc.CreateRating(ctx, alice, validRequest("party-1", "bob", 5))
	require.NoError(t, err)

	ratable, err = env.svc.GetRatableUsers(ctx, alice, "party-1")
	require.NoError(t, err)
	assert.ElementsMatch(t, []string{"carol"}, ratable)
}

func TestCanRate(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	alice := auth.Actor{ID: "alice"}

	canRate, err := env.svc.CanRate(ctx, alice, "party-1")
	require.NoError(t, err)
	assert.True(t, canRate)

	// Active party: not yet.
	canRate, err = env.svc.CanRate(ctx, alice, "party-open")
	require.NoError(t, err)
	assert.False(t, canRate)

	// Non-members cannot rate.
	canRate, err = env.svc.CanRate(ctx, auth.Actor{ID: "stranger"}, "party-1")
	require.NoError(t, err)
	assert.False(t, canRate)

	_, err = env.svc.CreateRating(ctx, alice, validRequest("party-1", "bob", 5))
	require.NoError(t, err)
	_, err = env.svc.CreateRating(ctx, alice, validRequest("party-1", "carol", 4))
	require.NoError(t, err)

	canRate, err = env.svc.CanRate(ctx, alice, "party-1")
	require.NoError(t, err)
	assert.False(t, canRate)
}
