package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/events"
	"transitkiosk/backend/services/transit-service/internal/metrics"
	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

// Reasons recorded when a tap-in supersedes an open trip.
const (
	reasonDuplicateTap = "duplicate_tap"
	reasonAbandoned    = "abandoned"
	reasonManual       = "manual"
)

// TripLedger drives the trip state machine. Every transition runs in one transaction that
// locks the card row before the trip row.
type TripLedger struct {
	store     repository.Store
	prices    *PriceTable
	cards     *CardService
	cache     ActiveTripCache
	publisher events.Publisher
	metrics   *metrics.Metrics
	logger    *zap.Logger
	now       func() time.Time
}

// NewTripLedger builds TripLedger. cache and publisher may be nil.
func NewTripLedger(
	store repository.Store,
	prices *PriceTable,
	cards *CardService,
	cache ActiveTripCache,
	publisher events.Publisher,
	m *metrics.Metrics,
	logger *zap.Logger,
) *TripLedger {
	if publisher == nil {
		publisher = events.Discard{}
	}
	return &TripLedger{
		store:     store,
		prices:    prices,
		cards:     cards,
		cache:     cache,
		publisher: publisher,
		metrics:   m,
		logger:    logger,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// TapIn opens a trip for the card at the source station. Any trip the card still has open
// is cancelled first: at the same station it is a repeated tap, elsewhere an abandoned trip.
func (t *TripLedger) TapIn(ctx context.Context, externalID string, sourceStationID int64) (*models.Trip, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, invalid("card id is required")
	}
	ref, err := t.store.Cards().GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, t.reject("tap_in", notFound(err, "card %q", externalID))
	}

	var (
		trip       *models.Trip
		superseded *models.Trip
		reason     string
		balance    decimal.Decimal
	)
	err = t.store.WithinTx(ctx, func(tx repository.Repositories) error {
		card, err := tx.Cards().GetForUpdate(ctx, ref.ID)
		if err != nil {
			return notFound(err, "card %d", ref.ID)
		}
		balance = card.Balance

		minimum, err := t.prices.minimumFare(ctx, tx)
		switch {
		case errors.Is(err, ErrNoPricingData):
		case err != nil:
			return err
		case card.Balance.LessThan(minimum):
			return fmt.Errorf("card %d balance %s is below minimum fare %s: %w",
				card.ID, money.Format(card.Balance), money.Format(minimum), ErrInsufficientFunds)
		}

		if _, err := tx.Stations().Get(ctx, sourceStationID); err != nil {
			return notFound(err, "station %d", sourceStationID)
		}

		now := t.now()
		open, err := tx.Trips().ActiveForCard(ctx, card.ID)
		switch {
		case err == nil:
			reason = reasonAbandoned
			if open.SourceStationID == sourceStationID {
				reason = reasonDuplicateTap
			}
			if superseded, err = tx.Trips().Cancel(ctx, open.ID, now); err != nil {
				return fmt.Errorf("cancel trip %d: %w", open.ID, err)
			}
		case !errors.Is(err, repository.ErrNotFound):
			return err
		}

		trip = &models.Trip{
			CardID:          card.ID,
			SourceStationID: sourceStationID,
			Cost:            money.Zero,
			Status:          models.TripActive,
			StartedAt:       now,
		}
		if err := tx.Trips().Create(ctx, trip); err != nil {
			return fmt.Errorf("open trip for card %d: %w", card.ID, err)
		}
		return nil
	})
	if err != nil {
		return nil, t.reject("tap_in", err)
	}

	if superseded != nil {
		t.metrics.TripCancelled(reason)
		t.logger.Info("superseded active trip",
			zap.Int64("trip_id", superseded.ID),
			zap.Int64("card_id", superseded.CardID),
			zap.String("reason", reason))
		if reason == reasonAbandoned {
			t.logger.Warn("card tapped in elsewhere without tapping out",
				zap.Int64("card_id", superseded.CardID),
				zap.Int64("previous_station_id", superseded.SourceStationID),
				zap.Int64("station_id", sourceStationID))
		}
		ev := events.NewTripEvent(events.TripCancelled, *superseded, balance, *superseded.CompletedAt)
		ev.Reason = reason
		t.publish(ctx, ev)
	}

	t.metrics.TripStarted()
	t.cacheSave(ctx, *trip)
	t.publish(ctx, events.NewTripEvent(events.TripStarted, *trip, balance, trip.StartedAt))
	t.logger.Info("trip started",
		zap.Int64("trip_id", trip.ID),
		zap.Int64("card_id", trip.CardID),
		zap.Int64("station_id", sourceStationID))
	return trip, nil
}

// TapOut completes an active trip at the destination and debits the fare. overrideFare,
// when set, replaces the price table lookup. Fare debit and trip completion commit
// together; on any failure the trip stays active and no ledger entry exists.
func (t *TripLedger) TapOut(ctx context.Context, tripID, destinationStationID int64, overrideFare *decimal.Decimal) (*models.Trip, error) {
	if overrideFare != nil {
		if err := positiveAmount("final cost", *overrideFare); err != nil {
			return nil, err
		}
	}
	ref, err := t.store.Trips().Get(ctx, tripID)
	if err != nil {
		return nil, t.reject("tap_out", notFound(err, "trip %d", tripID))
	}

	var (
		trip  *models.Trip
		card  *models.Card
		entry *models.Transaction
	)
	err = t.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if _, err := tx.Cards().GetForUpdate(ctx, ref.CardID); err != nil {
			return notFound(err, "card %d", ref.CardID)
		}
		current, err := t.lockActive(ctx, tx, tripID)
		if err != nil {
			return err
		}
		if _, err := tx.Stations().Get(ctx, destinationStationID); err != nil {
			return notFound(err, "station %d", destinationStationID)
		}

		var fare decimal.Decimal
		if overrideFare != nil {
			fare = *overrideFare
		} else {
			route, err := t.prices.between(ctx, tx, current.SourceStationID, destinationStationID)
			if err != nil {
				return err
			}
			fare = route.Amount
		}

		destination := destinationStationID
		entry, card, err = t.cards.recordUsage(ctx, tx, current.CardID, fare, &destination)
		if err != nil {
			return err
		}

		trip, err = tx.Trips().Complete(ctx, tripID, destinationStationID, fare, entry.CreatedAt)
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("trip %d: %w", tripID, ErrNotActive)
		}
		return err
	})
	if err != nil {
		return nil, t.reject("tap_out", err)
	}

	t.metrics.TripCompleted(trip.Cost)
	t.metrics.LedgerEntry(entry.Amount)
	t.cacheDelete(ctx, trip.CardID)
	t.publish(ctx, events.NewTripEvent(events.TripCompleted, *trip, card.Balance, *trip.CompletedAt))
	t.logger.Info("trip completed",
		zap.Int64("trip_id", trip.ID),
		zap.Int64("card_id", trip.CardID),
		zap.Int64("station_id", destinationStationID),
		zap.String("amount", money.Format(trip.Cost)),
		zap.Int64("transaction_id", entry.ID))
	return trip, nil
}

// Cancel closes an active trip without touching the balance.
func (t *TripLedger) Cancel(ctx context.Context, tripID int64) (*models.Trip, error) {
	ref, err := t.store.Trips().Get(ctx, tripID)
	if err != nil {
		return nil, t.reject("cancel", notFound(err, "trip %d", tripID))
	}

	var (
		trip    *models.Trip
		balance decimal.Decimal
	)
	err = t.store.WithinTx(ctx, func(tx repository.Repositories) error {
		card, err := tx.Cards().GetForUpdate(ctx, ref.CardID)
		if err != nil {
			return notFound(err, "card %d", ref.CardID)
		}
		balance = card.Balance
		if _, err := t.lockActive(ctx, tx, tripID); err != nil {
			return err
		}
		trip, err = tx.Trips().Cancel(ctx, tripID, t.now())
		if errors.Is(err, repository.ErrConflict) {
			return fmt.Errorf("trip %d: %w", tripID, ErrNotActive)
		}
		return err
	})
	if err != nil {
		return nil, t.reject("cancel", err)
	}

	t.metrics.TripCancelled(reasonManual)
	t.cacheDelete(ctx, trip.CardID)
	ev := events.NewTripEvent(events.TripCancelled, *trip, balance, *trip.CompletedAt)
	ev.Reason = reasonManual
	t.publish(ctx, ev)
	t.logger.Info("trip cancelled", zap.Int64("trip_id", trip.ID), zap.Int64("card_id", trip.CardID))
	return trip, nil
}

// Credit adds funds to a card outside any trip.
func (t *TripLedger) Credit(ctx context.Context, cardID int64, amount decimal.Decimal) (*models.Card, error) {
	card, _, err := t.cards.AddFunds(ctx, cardID, amount)
	return card, err
}

// Get returns a trip by id.
func (t *TripLedger) Get(ctx context.Context, id int64) (*models.Trip, error) {
	trip, err := t.store.Trips().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "trip %d", id)
	}
	return trip, nil
}

// List returns trips matching filter, newest first.
func (t *TripLedger) List(ctx context.Context, filter models.TripFilter) ([]models.Trip, error) {
	if filter.Status != "" && !filter.Status.Valid() {
		return nil, invalid("unknown trip status %q", filter.Status)
	}
	return t.store.Trips().List(ctx, filter)
}

func (t *TripLedger) lockActive(ctx context.Context, tx repository.Repositories, tripID int64) (*models.Trip, error) {
	trip, err := tx.Trips().GetForUpdate(ctx, tripID)
	if err != nil {
		return nil, notFound(err, "trip %d", tripID)
	}
	if !trip.IsActive() {
		return nil, fmt.Errorf("trip %d is %s: %w", tripID, trip.Status, ErrNotActive)
	}
	return trip, nil
}

// reject counts guard failures by kind and passes err through.
func (t *TripLedger) reject(operation string, err error) error {
	var reason string
	switch {
	case errors.Is(err, ErrNotFound):
		reason = "not_found"
	case errors.Is(err, ErrInsufficientFunds):
		reason = "insufficient_funds"
	case errors.Is(err, ErrNotActive):
		reason = "not_active"
	case errors.Is(err, ErrInvalidArgument):
		reason = "invalid_argument"
	default:
		t.logger.Error("trip operation failed", zap.String("operation", operation), zap.Error(err))
		return err
	}
	t.metrics.GuardRejected(operation, reason)
	t.logger.Info("trip operation rejected", zap.String("operation", operation), zap.String("reason", reason), zap.Error(err))
	return err
}

func (t *TripLedger) publish(ctx context.Context, ev events.TripEvent) {
	if err := t.publisher.Publish(ctx, ev); err != nil {
		t.logger.Warn("failed to publish trip event",
			zap.String("type", string(ev.Type)),
			zap.Int64("trip_id", ev.TripID),
			zap.Error(err))
	}
}

func (t *TripLedger) cacheSave(ctx context.Context, trip models.Trip) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Save(ctx, trip); err != nil {
		t.logger.Warn("failed to cache active trip", zap.Int64("trip_id", trip.ID), zap.Error(err))
	}
}

func (t *TripLedger) cacheDelete(ctx context.Context, cardID int64) {
	if t.cache == nil {
		return
	}
	if err := t.cache.Delete(ctx, cardID); err != nil {
		t.logger.Warn("failed to drop cached active trip", zap.Int64("card_id", cardID), zap.Error(err))
	}
}
