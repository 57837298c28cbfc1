package quest

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"partymatch/internal/service/auth"
	"partymatch/internal/service/tag"
)

func TestJaccardScore(t *testing.T) {
	tests := []struct {
		name string
		a    []string
		b    []string
		want float64
	}{
		{"identical", []string{"go", "sql"}, []string{"go", "sql"}, 1.0},
		{"disjoint", []string{"go"}, []string{"rust"}, 0.0},
		{"partial overlap", []string{"go", "sql", "redis"}, []string{"go", "redis", "kafka"}, 0.5},
		{"both empty", nil, nil, 0.0},
		{"one empty", []string{"go"}, nil, 0.0},
		{"duplicates ignored", []string{"go", "go"}, []string{"go"}, 1.0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.InDelta(t, tt.want, JaccardScore(tt.a, tt.b), 1e-9)
		})
	}
}

func TestTagMatcher_RanksByOverlap(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := auth.Actor{ID: "creator-1"}

	for _, slug := range []string{"hiking", "climbing", "cooking"} {
		env.tags.tags[slug] = &tag.Tag{ID: slug, Slug: slug, Name: slug}
	}

	reqA := validCreateRequest()
	reqA.Title = "Mountain weekend expedition"
	reqA.Tags = []string{"hiking", "climbing"}
	questA, err := env.svc.CreateQuest(ctx, creator, reqA)
	require.NoError(t, err)

	reqB := validCreateRequest()
	reqB.Title = "Evening cooking club meetup"
	reqB.Tags = []string{"cooking"}
	questB, err := env.svc.CreateQuest(ctx, creator, reqB)
	require.NoError(t, err)

	matches, err := env.svc.Discover(ctx, "user-1", DiscoverRequest{Tags: []string{"hiking", "climbing"}})
	require.NoError(t, err)
	require.Len(t, matches, 2)

	assert.Equal(t, questA.ID, matches[0].ID)
	assert.InDelta(t, 1.0, matches[0].Score, 1e-9)
	assert.Equal(t, questB.ID, matches[1].ID)
	assert.InDelta(t, 0.0, matches[1].Score, 1e-9)
}

func TestTagMatcher_SkipsClosedQuests(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	creator := auth.Actor{ID: "creator-1"}

	env.tags.tags["hiking"] = &tag.Tag{ID: "hiking", Slug: "hiking", Name: "Hiking"}

	req := validCreateRequest()
	req.PartySizeMin = 1
	req.Tags = []string{"hiking"}
	q, err := env.svc.CreateQuest(ctx, creator, req)
	require.NoError(t, err)

	_, err = env.svc.Close(ctx, creator, q.ID)
	require.NoError(t, err)

	matches, err := env.svc.Discover(ctx, "user-1", DiscoverRequest{Tags: []string{"hiking"}})
	require.NoError(t, err)
	assert.Empty(t, matches)
}
