package memory

import (
	"context"

	"github.com/shopspring/decimal"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

type ledger struct{ v view }

func (r ledger) Append(_ context.Context, entry *models.Transaction, usage bool) error {
	defer r.v.acquire()()
	d := r.v.s.data
	card, ok := d.cards[entry.CardID]
	if !ok || !card.Balance.Equal(entry.PreviousBalance) {
		return repository.ErrConflict
	}
	if !entry.PreviousBalance.Add(entry.Amount).Equal(entry.NewBalance) || entry.NewBalance.IsNegative() {
		return repository.ErrConflict
	}
	if entry.StationID != nil {
		if _, ok := d.stations[*entry.StationID]; !ok {
			return repository.ErrConflict
		}
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = r.v.s.now()
	}

	card.Balance = entry.NewBalance
	if usage {
		used := entry.CreatedAt
		card.UsageCount++
		card.LastUsedAt = &used
	}
	entry.ID = d.next("transactions")
	d.cards[card.ID] = card
	d.transactions = append(d.transactions, *entry)
	return nil
}

func (r ledger) Get(_ context.Context, id int64) (*models.Transaction, error) {
	defer r.v.acquire()()
	for _, tx := range r.v.s.data.transactions {
		if tx.ID == id {
			return &tx, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r ledger) List(_ context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	defer r.v.acquire()()
	all := r.v.s.data.transactions
	var out []models.Transaction
	for i := len(all) - 1; i >= 0; i-- {
		if matchTransaction(all[i], filter) {
			out = append(out, all[i])
		}
	}
	return page(out, filter.Limit, 0), nil
}

func (r ledger) History(_ context.Context, cardID int64) ([]models.Transaction, error) {
	defer r.v.acquire()()
	var out []models.Transaction
	for _, tx := range r.v.s.data.transactions {
		if tx.CardID == cardID {
			out = append(out, tx)
		}
	}
	return out, nil
}

func (r ledger) Latest(_ context.Context, cardID int64) (*models.Transaction, error) {
	defer r.v.acquire()()
	all := r.v.s.data.transactions
	for i := len(all) - 1; i >= 0; i-- {
		if all[i].CardID == cardID {
			tx := all[i]
			return &tx, nil
		}
	}
	return nil, repository.ErrNotFound
}

func (r ledger) Sum(_ context.Context, filter models.TransactionFilter) (decimal.Decimal, int64, error) {
	defer r.v.acquire()()
	total := decimal.Zero
	var count int64
	for _, tx := range r.v.s.data.transactions {
		if matchTransaction(tx, filter) {
			total = total.Add(tx.Amount.Abs())
			count++
		}
	}
	return total, count, nil
}

func matchTransaction(tx models.Transaction, f models.TransactionFilter) bool {
	switch {
	case f.CardID != 0 && tx.CardID != f.CardID:
		return false
	case f.StationID != 0 && (tx.StationID == nil || *tx.StationID != f.StationID):
		return false
	case f.Kind == models.KindCredit && !tx.IsCredit():
		return false
	case f.Kind == models.KindDebit && !tx.IsDebit():
		return false
	case !f.From.IsZero() && tx.CreatedAt.Before(f.From):
		return false
	case !f.To.IsZero() && tx.CreatedAt.After(f.To):
		return false
	}
	return true
}

