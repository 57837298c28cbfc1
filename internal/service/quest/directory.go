package quest

import (
	"context"
	"errors"

	"partymatch/internal/service/party"
)

// PartyDirectory adapts the quest repository to the narrow view the
// party service needs.
type PartyDirectory struct {
	repo Repository
}

func NewPartyDirectory(repo Repository) *PartyDirectory {
	return &PartyDirectory{repo: repo}
}

func (d *PartyDirectory) QuestMeta(ctx context.Context, questID string) (*party.QuestMeta, error) {
	q, err := d.repo.GetQuestByID(ctx, questID)
	if errors.Is(err, ErrQuestNotFound) {
		return nil, party.ErrQuestNotFound
	}
	if err != nil {
		return nil, err
	}
	return &party.QuestMeta{
		ID:           q.ID,
		CreatorID:    q.CreatorID,
		Title:        q.Title,
		PartySizeMax: q.PartySizeMax,
	}, nil
}
