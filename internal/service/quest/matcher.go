package quest

import (
	"context"
	"sort"
)

// QuestMatcher ranks recruiting quests against a set of interest tags.
type QuestMatcher interface {
	FindMatches(ctx context.Context, interestTags []string, limit int) ([]*DiscoveredQuest, error)
}

// TagMatcher scores candidates by Jaccard similarity over tag slugs.
type TagMatcher struct {
	repo Repository
	tags QuestTagSource
}

// QuestTagSource resolves the tag slugs attached to a quest.
type QuestTagSource interface {
	QuestTagSlugs(ctx context.Context, questID string) ([]string, error)
}

func NewTagMatcher(repo Repository, tags QuestTagSource) *TagMatcher {
	return &TagMatcher{repo: repo, tags: tags}
}

func (m *TagMatcher) FindMatches(ctx context.Context, interestTags []string, limit int) ([]*DiscoveredQuest, error) {
	if limit <= 0 {
		limit = 20
	}

	// Pull a wider candidate window than the result cap so low scorers
	// can be cut after ranking.
	candidates, err := m.repo.ListOpenQuests(ctx, limit*5)
	if err != nil {
		return nil, err
	}

	matches := make([]*DiscoveredQuest, 0, len(candidates))
	for _, q := range candidates {
		slugs, err := m.tags.QuestTagSlugs(ctx, q.ID)
		if err != nil {
			return nil, err
		}
		matches = append(matches, &DiscoveredQuest{
			Quest: q,
			Tags:  slugs,
			Score: JaccardScore(interestTags, slugs),
		})
	}

	sort.SliceStable(matches, func(i, j int) bool {
		return matches[i].Score > matches[j].Score
	})

	if len(matches) > limit {
		matches = matches[:limit]
	}
	return matches, nil
}

// JaccardScore calculates the Jaccard similarity index
// J(A,B) = |A ∩ B| / |A ∪ B|
func JaccardScore(a, b []string) float64 {
	if len(a) == 0 && len(b) == 0 {
		return 0.0
	}

	seen := make(map[string]bool, len(a))
	for _, item := range a {
		seen[item] = true
	}

	intersection := 0
	union := len(seen)
	counted := make(map[string]bool, len(b))
	for _, item := range b {
		if counted[item] {
			continue
		}
		counted[item] = true
		if seen[item] {
			intersection++
		} else {
			union++
		}
	}

	if union == 0 {
		return 0.0
	}
	return float64(intersection) / float64(union)
}
