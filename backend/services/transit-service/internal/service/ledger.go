package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

// Ledger appends balance changes and answers audit queries over the transaction log.
type Ledger struct {
	store  repository.Store
	logger *zap.Logger
	now    func() time.Time
}

// CardSummary aggregates a card's ledger.
type CardSummary struct {
	CardID           int64
	Balance          decimal.Decimal
	TotalSpent       decimal.Decimal
	TotalAdded       decimal.Decimal
	TransactionCount int64
	Latest           *models.Transaction
}

// StationRevenue is the fare income booked at a station.
type StationRevenue struct {
	StationID int64
	Total     decimal.Decimal
	Debits    int64
}

// Reconciliation is the outcome of replaying a card's ledger from zero.
type Reconciliation struct {
	CardID        int64
	Balance       decimal.Decimal
	LedgerBalance decimal.Decimal
	Entries       int
	Consistent    bool
	Problems      []string
}

// NewLedger builds Ledger.
func NewLedger(store repository.Store, logger *zap.Logger) *Ledger {
	return &Ledger{store: store, logger: logger, now: func() time.Time { return time.Now().UTC() }}
}

// Append records amount against the card inside tx and returns the entry together with the
// card as it stands afterwards. The card row is locked first; debits that would take the
// balance below zero fail with ErrInsufficientFunds and leave tx untouched.
func (l *Ledger) Append(ctx context.Context, tx repository.Repositories, cardID int64, amount decimal.Decimal, stationID *int64, usage bool) (*models.Transaction, *models.Card, error) {
	if amount.IsZero() {
		return nil, nil, invalid("ledger amount must not be zero")
	}
	if err := money.Validate(amount); err != nil {
		return nil, nil, invalid("ledger amount: %v", err)
	}

	card, err := tx.Cards().GetForUpdate(ctx, cardID)
	if err != nil {
		return nil, nil, notFound(err, "card %d", cardID)
	}

	newBalance := card.Balance.Add(amount)
	if amount.IsNegative() && newBalance.IsNegative() {
		return nil, nil, fmt.Errorf("card %d balance %s cannot cover %s: %w",
			cardID, money.Format(card.Balance), money.Format(amount.Neg()), ErrInsufficientFunds)
	}
	if newBalance.GreaterThan(money.Max) {
		return nil, nil, invalid("card %d balance would exceed %s", cardID, money.Format(money.Max))
	}

	entry := &models.Transaction{
		CardID:          cardID,
		Amount:          amount,
		PreviousBalance: card.Balance,
		NewBalance:      newBalance,
		StationID:       stationID,
		CreatedAt:       l.now(),
	}
	if err := tx.Ledger().Append(ctx, entry, usage); err != nil {
		if errors.Is(err, repository.ErrConflict) {
			return nil, nil, fmt.Errorf("ledger: card %d balance changed during append: %w", cardID, err)
		}
		return nil, nil, err
	}

	card.Balance = newBalance
	if usage {
		used := entry.CreatedAt
		card.UsageCount++
		card.LastUsedAt = &used
	}

	fields := []zap.Field{
		zap.Int64("card_id", cardID),
		zap.Int64("transaction_id", entry.ID),
		zap.String("amount", money.Format(amount)),
		zap.String("new_balance", money.Format(newBalance)),
	}
	if stationID != nil {
		fields = append(fields, zap.Int64("station_id", *stationID))
	}
	l.logger.Debug("ledger entry staged", fields...)
	return entry, card, nil
}

// Get returns one entry.
func (l *Ledger) Get(ctx context.Context, id int64) (*models.Transaction, error) {
	entry, err := l.store.Ledger().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "transaction %d", id)
	}
	return entry, nil
}

// List returns entries matching filter, newest first.
func (l *Ledger) List(ctx context.Context, filter models.TransactionFilter) ([]models.Transaction, error) {
	return l.store.Ledger().List(ctx, filter)
}

// TransactionsForCard returns every entry of the card, newest first.
func (l *Ledger) TransactionsForCard(ctx context.Context, cardID int64) ([]models.Transaction, error) {
	return l.forCard(ctx, cardID, models.KindAny)
}

// CreditsForCard returns the card's positive entries.
func (l *Ledger) CreditsForCard(ctx context.Context, cardID int64) ([]models.Transaction, error) {
	return l.forCard(ctx, cardID, models.KindCredit)
}

// DebitsForCard returns the card's negative entries.
func (l *Ledger) DebitsForCard(ctx context.Context, cardID int64) ([]models.Transaction, error) {
	return l.forCard(ctx, cardID, models.KindDebit)
}

func (l *Ledger) forCard(ctx context.Context, cardID int64, kind models.TransactionKind) ([]models.Transaction, error) {
	if err := l.requireCard(ctx, cardID); err != nil {
		return nil, err
	}
	return l.store.Ledger().List(ctx, models.TransactionFilter{CardID: cardID, Kind: kind})
}

// TotalDebits is the absolute sum of the card's debits.
func (l *Ledger) TotalDebits(ctx context.Context, cardID int64) (decimal.Decimal, error) {
	total, _, err := l.store.Ledger().Sum(ctx, models.TransactionFilter{CardID: cardID, Kind: models.KindDebit})
	return total, err
}

// TotalCredits is the sum of the card's credits.
func (l *Ledger) TotalCredits(ctx context.Context, cardID int64) (decimal.Decimal, error) {
	total, _, err := l.store.Ledger().Sum(ctx, models.TransactionFilter{CardID: cardID, Kind: models.KindCredit})
	return total, err
}

// LatestForCard returns the card's most recent entry.
func (l *Ledger) LatestForCard(ctx context.Context, cardID int64) (*models.Transaction, error) {
	entry, err := l.store.Ledger().Latest(ctx, cardID)
	if err != nil {
		return nil, notFound(err, "latest transaction of card %d", cardID)
	}
	return entry, nil
}

// TransactionsForStation returns entries booked at the station.
func (l *Ledger) TransactionsForStation(ctx context.Context, stationID int64) ([]models.Transaction, error) {
	if err := l.requireStation(ctx, stationID); err != nil {
		return nil, err
	}
	return l.store.Ledger().List(ctx, models.TransactionFilter{StationID: stationID})
}

// RevenueForStation sums the fares debited at the station.
func (l *Ledger) RevenueForStation(ctx context.Context, stationID int64) (*StationRevenue, error) {
	if err := l.requireStation(ctx, stationID); err != nil {
		return nil, err
	}
	total, count, err := l.store.Ledger().Sum(ctx, models.TransactionFilter{StationID: stationID, Kind: models.KindDebit})
	if err != nil {
		return nil, err
	}
	return &StationRevenue{StationID: stationID, Total: total, Debits: count}, nil
}

// Summary aggregates the card's balance and ledger totals.
func (l *Ledger) Summary(ctx context.Context, cardID int64) (*CardSummary, error) {
	card, err := l.store.Cards().Get(ctx, cardID)
	if err != nil {
		return nil, notFound(err, "card %d", cardID)
	}
	spent, debits, err := l.store.Ledger().Sum(ctx, models.TransactionFilter{CardID: cardID, Kind: models.KindDebit})
	if err != nil {
		return nil, err
	}
	added, credits, err := l.store.Ledger().Sum(ctx, models.TransactionFilter{CardID: cardID, Kind: models.KindCredit})
	if err != nil {
		return nil, err
	}
	summary := &CardSummary{
		CardID:           cardID,
		Balance:          card.Balance,
		TotalSpent:       spent,
		TotalAdded:       added,
		TransactionCount: debits + credits,
	}
	latest, err := l.store.Ledger().Latest(ctx, cardID)
	switch {
	case err == nil:
		summary.Latest = latest
	case !errors.Is(err, repository.ErrNotFound):
		return nil, err
	}
	return summary, nil
}

// Reconcile replays the card's ledger from a zero balance under the card lock and checks
// every link of the chain and the final balance.
func (l *Ledger) Reconcile(ctx context.Context, cardID int64) (*Reconciliation, error) {
	var result *Reconciliation
	err := l.store.WithinTx(ctx, func(tx repository.Repositories) error {
		card, err := tx.Cards().GetForUpdate(ctx, cardID)
		if err != nil {
			return notFound(err, "card %d", cardID)
		}
		history, err := tx.Ledger().History(ctx, cardID)
		if err != nil {
			return err
		}
		result = replay(card, history)
		return nil
	})
	if err != nil {
		return nil, err
	}
	if !result.Consistent {
		l.logger.Warn("ledger reconciliation failed",
			zap.Int64("card_id", cardID),
			zap.Strings("problems", result.Problems))
	}
	return result, nil
}

func replay(card *models.Card, history []models.Transaction) *Reconciliation {
	result := &Reconciliation{CardID: card.ID, Balance: card.Balance, Entries: len(history)}
	running := decimal.Zero
	for _, entry := range history {
		if !entry.PreviousBalance.Equal(running) {
			result.Problems = append(result.Problems, fmt.Sprintf(
				"transaction %d starts at %s, expected %s",
				entry.ID, money.Format(entry.PreviousBalance), money.Format(running)))
		}
		if !entry.PreviousBalance.Add(entry.Amount).Equal(entry.NewBalance) {
			result.Problems = append(result.Problems, fmt.Sprintf(
				"transaction %d: %s + %s != %s",
				entry.ID, money.Format(entry.PreviousBalance), money.Format(entry.Amount), money.Format(entry.NewBalance)))
		}
		running = entry.NewBalance
	}
	result.LedgerBalance = running
	if !running.Equal(card.Balance) {
		result.Problems = append(result.Problems, fmt.Sprintf(
			"card balance %s differs from ledger balance %s",
			money.Format(card.Balance), money.Format(running)))
	}
	result.Consistent = len(result.Problems) == 0
	return result
}

func (l *Ledger) requireCard(ctx context.Context, cardID int64) error {
	if _, err := l.store.Cards().Get(ctx, cardID); err != nil {
		return notFound(err, "card %d", cardID)
	}
	return nil
}

func (l *Ledger) requireStation(ctx context.Context, stationID int64) error {
	if _, err := l.store.Stations().Get(ctx, stationID); err != nil {
		return notFound(err, "station %d", stationID)
	}
	return nil
}
