package tag

import (
	"context"
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partymatch/pkg/db"
	"partymatch/pkg/logger"
)

type fakeRepository struct {
	tags     map[string]*Tag
	userTags map[string][]UserTagEntry
}

func newFakeRepository() *fakeRepository {
	return &fakeRepository{
		tags:     make(map[string]*Tag),
		userTags: make(map[string][]UserTagEntry),
	}
}

func (f *fakeRepository) CreateTag(_ context.Context, t *Tag) error {
	for _, existing := range f.tags {
		if existing.Slug == t.Slug {
			return ErrTagExists
		}
	}
	clone := *t
	f.tags[t.ID] = &clone
	return nil
}

func (f *fakeRepository) GetTagByID(_ context.Context, tagID string) (*Tag, error) {
	t, ok := f.tags[tagID]
	if !ok {
		return nil, ErrTagNotFound
	}
	clone := *t
	return &clone, nil
}

func (f *fakeRepository) ListTags(_ context.Context, filters ListTagsRequest) ([]*Tag, error) {
	out := make([]*Tag, 0)
	for _, t := range f.tags {
		if filters.Category != "" && t.Category != filters.Category {
			continue
		}
		out = append(out, t)
	}
	return out, nil
}

func (f *fakeRepository) UpdateTag(_ context.Context, t *Tag) error {
	if _, ok := f.tags[t.ID]; !ok {
		return ErrTagNotFound
	}
	clone := *t
	f.tags[t.ID] = &clone
	return nil
}

func (f *fakeRepository) DeleteTag(_ context.Context, tagID string) error {
	if _, ok := f.tags[tagID]; !ok {
		return ErrTagNotFound
	}
	delete(f.tags, tagID)
	return nil
}

func (f *fakeRepository) ResolveSlugs(_ context.Context, slugs []string) ([]*Tag, error) {
	out := make([]*Tag, 0, len(slugs))
	for _, slug := range slugs {
		var found *Tag
		for _, t := range f.tags {
			if t.Slug == slug {
				found = t
				break
			}
		}
		if found == nil {
			return nil, ErrUnknownSlug
		}
		out = append(out, found)
	}
	return out, nil
}

func (f *fakeRepository) ReplaceUserTags(_ context.Context, userID string, entries []UserTagEntry) error {
	for _, entry := range entries {
		found := false
		for _, t := range f.tags {
			if t.Slug == entry.Slug {
				found = true
				break
			}
		}
		if !found {
			return ErrUnknownSlug
		}
	}
	f.userTags[userID] = entries
	return nil
}

func (f *fakeRepository) GetUserTags(_ context.Context, userID string) ([]*UserTag, error) {
	out := make([]*UserTag, 0)
	for _, entry := range f.userTags[userID] {
		out = append(out, &UserTag{
			UserID:           userID,
			Slug:             entry.Slug,
			ProficiencyLevel: entry.ProficiencyLevel,
			IsPrimary:        entry.IsPrimary,
		})
	}
	return out, nil
}

func (f *fakeRepository) AttachQuestTags(context.Context, *sql.Tx, string, []string) error {
	return nil
}

func (f *fakeRepository) QuestTagSlugs(context.Context, string) ([]string, error) {
	return nil, nil
}

func (f *fakeRepository) WithTransaction(ctx context.Context, _ sql.IsolationLevel, fn db.TxFunc) error {
	return fn(ctx, nil)
}

func newTestService(t *testing.T) (*Service, *fakeRepository) {
	t.Helper()
	repo := newFakeRepository()
	return NewService(repo, logger.NewLogger("test")), repo
}

func TestCreateTag(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.CreateTag(context.Background(), "admin-1", CreateTagRequest{
		Name:     "Rocket League",
		Slug:     "rocket-league",
		Category: CategoryGame,
	})
	require.NoError(t, err)
	assert.NotEmpty(t, created.ID)
	assert.Equal(t, StatusSystem, created.Status)
	require.NotNil(t, created.SuggestedBy)
	assert.Equal(t, "admin-1", *created.SuggestedBy)
}

func TestCreateTag_InvalidCategory(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateTag(context.Background(), "admin-1", CreateTagRequest{
		Name:     "Something",
		Slug:     "something",
		Category: "NOT_A_CATEGORY",
	})
	assert.ErrorIs(t, err, ErrInvalidCategory)
}

func TestCreateTag_DuplicateSlug(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateTag(context.Background(), "", CreateTagRequest{
		Name: "Go", Slug: "go", Category: CategoryProgramming,
	})
	require.NoError(t, err)

	_, err = svc.CreateTag(context.Background(), "", CreateTagRequest{
		Name: "Golang", Slug: "go", Category: CategoryProgramming,
	})
	assert.ErrorIs(t, err, ErrTagExists)
}

func TestUpdateTag_MergesFields(t *testing.T) {
	svc, _ := newTestService(t)

	created, err := svc.CreateTag(context.Background(), "", CreateTagRequest{
		Name: "Chess", Slug: "chess", Category: CategoryHobby, Description: "board game",
	})
	require.NoError(t, err)

	updated, err := svc.UpdateTag(context.Background(), created.ID, UpdateTagRequest{
		Status: StatusApproved,
	})
	require.NoError(t, err)

	// Untouched fields survive a partial update.
	assert.Equal(t, "Chess", updated.Name)
	assert.Equal(t, "board game", updated.Description)
	assert.Equal(t, StatusApproved, updated.Status)
}

func TestReplaceUserTags(t *testing.T) {
	svc, _ := newTestService(t)

	_, err := svc.CreateTag(context.Background(), "", CreateTagRequest{
		Name: "Go", Slug: "go", Category: CategoryProgramming,
	})
	require.NoError(t, err)

	tags, err := svc.ReplaceUserTags(context.Background(), "user-1", ReplaceUserTagsRequest{
		Tags: []UserTagEntry{{Slug: "go", ProficiencyLevel: ProficiencyAdvanced, IsPrimary: true}},
	})
	require.NoError(t, err)
	require.Len(t, tags, 1)
	assert.True(t, tags[0].IsPrimary)

	_, err = svc.ReplaceUserTags(context.Background(), "user-1", ReplaceUserTagsRequest{
		Tags: []UserTagEntry{{Slug: "no-such-slug"}},
	})
	assert.ErrorIs(t, err, ErrUnknownSlug)
}
