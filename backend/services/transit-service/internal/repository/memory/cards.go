package memory

import (
	"context"
	"sort"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

type cards struct{ v view }

func (r cards) Create(_ context.Context, card *models.Card) error {
	defer r.v.acquire()()
	d := r.v.s.data
	for _, c := range d.cards {
		if c.ExternalID == card.ExternalID {
			return repository.ErrConflict
		}
	}
	card.ID = d.next("cards")
	card.Balance = money.Zero
	card.UsageCount = 0
	card.LastUsedAt = nil
	card.CreatedAt = r.v.s.now()
	d.cards[card.ID] = *card
	return nil
}

func (r cards) Get(_ context.Context, id int64) (*models.Card, error) {
	defer r.v.acquire()()
	c, ok := r.v.s.data.cards[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	return &c, nil
}

func (r cards) GetByExternalID(_ context.Context, externalID string) (*models.Card, error) {
	defer r.v.acquire()()
	for _, c := range r.v.s.data.cards {
		if c.ExternalID == externalID {
			return &c, nil
		}
	}
	return nil, repository.ErrNotFound
}

// GetForUpdate needs no extra locking: the store mutex is held for the whole transaction.
func (r cards) GetForUpdate(ctx context.Context, id int64) (*models.Card, error) {
	return r.Get(ctx, id)
}

func (r cards) List(_ context.Context, limit, offset int) ([]models.Card, error) {
	defer r.v.acquire()()
	out := make([]models.Card, 0, len(r.v.s.data.cards))
	for _, c := range r.v.s.data.cards {
		out = append(out, c)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return page(out, limit, offset), nil
}

func page[T any](items []T, limit, offset int) []T {
	if offset < 0 {
		offset = 0
	}
	if offset >= len(items) {
		return nil
	}
	items = items[offset:]
	if limit > 0 && limit < len(items) {
		items = items[:limit]
	}
	return items
}
