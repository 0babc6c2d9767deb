package service

import (
	"context"
	"errors"
	"testing"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

func TestLedgerAppendRejectsOverdraftAndZero(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	card := env.card(t, "2.00")

	err := env.store.WithinTx(ctx, func(tx repository.Repositories) error {
		_, _, err := env.ledger.Append(ctx, tx, card.ID, dec("-2.01"), nil, true)
		return err
	})
	if !errors.Is(err, ErrInsufficientFunds) {
		t.Fatalf("expected ErrInsufficientFunds, got %v", err)
	}

	err = env.store.WithinTx(ctx, func(tx repository.Repositories) error {
		_, _, err := env.ledger.Append(ctx, tx, card.ID, dec("0"), nil, false)
		return err
	})
	if !errors.Is(err, ErrInvalidArgument) {
		t.Fatalf("expected ErrInvalidArgument, got %v", err)
	}

	var entry *models.Transaction
	err = env.store.WithinTx(ctx, func(tx repository.Repositories) error {
		var err error
		entry, _, err = env.ledger.Append(ctx, tx, card.ID, dec("-2.00"), nil, true)
		return err
	})
	if err != nil {
		t.Fatalf("exact debit: %v", err)
	}
	assertAmount(t, entry.NewBalance, "0")
	assertAmount(t, env.balance(t, card.ID), "0")
}

func TestLedgerRollbackDiscardsAppend(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	card := env.card(t, "5.00")

	boom := errors.New("boom")
	err := env.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if _, _, err := env.ledger.Append(ctx, tx, card.ID, dec("-1.00"), nil, true); err != nil {
			return err
		}
		return boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected boom, got %v", err)
	}
	assertAmount(t, env.balance(t, card.ID), "5.00")
	entries, _ := env.ledger.TransactionsForCard(ctx, card.ID)
	if len(entries) != 1 {
		t.Fatalf("expected only the seed entry, got %d", len(entries))
	}
}

func TestLedgerAuditViews(t *testing.T) {
	ctx := context.Background()
	env := newTestEnv(t)
	a := env.station(t, "Central Station")
	b := env.station(t, "Union Square")
	env.price(t, a.ID, b.ID, "3.25")
	card := env.card(t, "10.00")

	if _, _, err := env.cards.AddFunds(ctx, card.ID, dec("5.00")); err != nil {
		t.Fatalf("add funds: %v", err)
	}
	for i := 0; i < 2; i++ {
		trip, err := env.trips.TapIn(ctx, card.ExternalID, a.ID)
		if err != nil {
			t.Fatalf("tap in: %v", err)
		}
		if _, err := env.trips.TapOut(ctx, trip.ID, b.ID, nil); err != nil {
			t.Fatalf("tap out: %v", err)
		}
	}

	credits, _ := env.ledger.CreditsForCard(ctx, card.ID)
	debits, _ := env.ledger.DebitsForCard(ctx, card.ID)
	if len(credits) != 2 || len(debits) != 2 {
		t.Fatalf("expected 2 credits and 2 debits, got %d / %d", len(credits), len(debits))
	}

	spent, _ := env.ledger.TotalDebits(ctx, card.ID)
	added, _ := env.ledger.TotalCredits(ctx, card.ID)
	assertAmount(t, spent, "6.50")
	assertAmount(t, added, "15.00")

	summary, err := env.ledger.Summary(ctx, card.ID)
	if err != nil {
		t.Fatalf("summary: %v", err)
	}
	assertAmount(t, summary.Balance, "8.50")
	if summary.TransactionCount != 4 || summary.Latest == nil || summary.Latest.ID != debits[0].ID {
		t.Fatalf("unexpected summary %+v", summary)
	}

	revenue, err := env.ledger.RevenueForStation(ctx, b.ID)
	if err != nil {
		t.Fatalf("revenue: %v", err)
	}
	assertAmount(t, revenue.Total, "6.50")
	if revenue.Debits != 2 {
		t.Fatalf("expected 2 debits at destination, got %d", revenue.Debits)
	}
	none, _ := env.ledger.RevenueForStation(ctx, a.ID)
	assertAmount(t, none.Total, "0")

	if _, err := env.ledger.RevenueForStation(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if _, err := env.ledger.TransactionsForCard(ctx, 99); !errors.Is(err, ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	env.assertConsistent(t, card.ID)
}

func TestReplayDetectsBrokenChain(t *testing.T) {
	card := &models.Card{ID: 1, Balance: dec("7.00")}
	history := []models.Transaction{
		{ID: 1, CardID: 1, Amount: dec("10.00"), PreviousBalance: dec("0"), NewBalance: dec("10.00")},
		{ID: 2, CardID: 1, Amount: dec("-3.00"), PreviousBalance: dec("9.00"), NewBalance: dec("7.00")},
	}
	rec := replay(card, history)
	if rec.Consistent {
		t.Fatalf("expected inconsistency")
	}
	if len(rec.Problems) != 2 {
		t.Fatalf("expected a gap and a bad link, got %v", rec.Problems)
	}

	history[1].PreviousBalance = dec("10.00")
	rec = replay(card, history)
	if !rec.Consistent {
		t.Fatalf("expected consistent chain, got %v", rec.Problems)
	}
	assertAmount(t, rec.LedgerBalance, "7.00")
}
