package user

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partymatch/pkg/logger"
)

type fakeRepository struct {
	users map[string]*User
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{users: make(map[string]*User)}
}

func (f *fakeRepository) CreateUser(_ context.Context, user *User) error {
	for _, u := range f.users {
		if u.Email == user.Email {
			return ErrUserExists
		}
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeRepository) GetUserByID(_ context.Context, userID string) (*User, error) {
	u, ok := f.users[userID]
	if !ok {
		return nil, ErrUserNotFound
	}
	clone := *u
	return &clone, nil
}

func (f *fakeRepository) GetUserByEmail(_ context.Context, email string) (*User, error) {
	for _, u := range f.users {
		if u.Email == email {
			clone := *u
			return &clone, nil
		}
	}
	return nil, ErrUserNotFound
}

func (f *fakeRepository) UpdateUser(_ context.Context, user *User) error {
	if _, ok := f.users[user.ID]; !ok {
		return ErrUserNotFound
	}
	clone := *user
	f.users[user.ID] = &clone
	return nil
}

func (f *fakeRepository) TouchLastActive(_ context.Context, userID string) error {
	u, ok := f.users[userID]
	if !ok {
		return ErrUserNotFound
	}
	now := time.Now()
	u.LastActive = &now
	return nil
}

func (f *fakeRepository) RecomputeReputation(context.Context, *sql.Tx, string) error {
	return nil
}

func (f *fakeRepository) IncrementCompletedQuests(context.Context, *sql.Tx, string) error {
	return nil
}

func newTestService(t *testing.T) (*Service, *fakeRepository) {
	t.Helper()
	repo := newFakeRepository()
	return NewService(repo, logger.NewLogger("test")), repo
}

func TestGetOrCreateByEmail_CreatesOnFirstLogin(t *testing.T) {
	svc, repo := newTestService(t)

	u, err := svc.GetOrCreateByEmail(context.Background(), "alice@example.com", "Alice")
	require.NoError(t, err)
	assert.NotEmpty(t, u.ID)
	assert.True(t, u.IsActive)
	assert.False(t, u.IsSuperuser)
	assert.Len(t, repo.users, 1)
}

func TestGetOrCreateByEmail_ReturnsExisting(t *testing.T) {
	svc, repo := newTestService(t)

	first, err := svc.GetOrCreateByEmail(context.Background(), "alice@example.com", "Alice")
	require.NoError(t, err)

	second, err := svc.GetOrCreateByEmail(context.Background(), "alice@example.com", "Alice A.")
	require.NoError(t, err)
	assert.Equal(t, first.ID, second.ID)
	assert.Len(t, repo.users, 1)

	// Returning users get their last_active stamp refreshed.
	stored, err := repo.GetUserByID(context.Background(), first.ID)
	require.NoError(t, err)
	assert.NotNil(t, stored.LastActive)
}

func TestResolveLogin(t *testing.T) {
	svc, repo := newTestService(t)

	userID, superuser, err := svc.ResolveLogin(context.Background(), "root@example.com", "Root")
	require.NoError(t, err)
	assert.False(t, superuser)

	repo.users[userID].IsSuperuser = true

	again, superuser, err := svc.ResolveLogin(context.Background(), "root@example.com", "Root")
	require.NoError(t, err)
	assert.Equal(t, userID, again)
	assert.True(t, superuser)
}

func TestUpdateUser_MergesFields(t *testing.T) {
	svc, _ := newTestService(t)

	u, err := svc.GetOrCreateByEmail(context.Background(), "bob@example.com", "Bob")
	require.NoError(t, err)

	updated, err := svc.UpdateUser(context.Background(), u.ID, UpdateUserRequest{
		Bio:      "climber",
		Location: "Lisbon",
	})
	require.NoError(t, err)
	assert.Equal(t, "Bob", updated.FullName)
	assert.Equal(t, "climber", updated.Bio)
	assert.Equal(t, "Lisbon", updated.Location)
}

func TestUpdateUser_NotFound(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.UpdateUser(context.Background(), "missing", UpdateUserRequest{Bio: "x"})
	assert.ErrorIs(t, err, ErrUserNotFound)
}
