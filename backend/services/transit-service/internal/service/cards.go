package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"transitkiosk/backend/services/transit-service/internal/metrics"
	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
	redisstore "transitkiosk/backend/services/transit-service/internal/redis"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

// ActiveTripCache is the optional read-through cache of each card's active trip.
type ActiveTripCache interface {
	Save(ctx context.Context, trip models.Trip) error
	Get(ctx context.Context, cardID int64) (*redisstore.ActiveTrip, error)
	Delete(ctx context.Context, cardID int64) error
}

// CardService owns card lifecycle. Balances move only through Ledger.Append.
type CardService struct {
	store   repository.Store
	ledger  *Ledger
	cache   ActiveTripCache
	metrics *metrics.Metrics
	logger  *zap.Logger
}

// NewCardService builds CardService. cache may be nil.
func NewCardService(store repository.Store, ledger *Ledger, cache ActiveTripCache, m *metrics.Metrics, logger *zap.Logger) *CardService {
	return &CardService{store: store, ledger: ledger, cache: cache, metrics: m, logger: logger}
}

// Create issues a card. An empty externalID gets a random UUID. A positive initial balance
// is booked as a seed ledger entry in the same transaction.
func (s *CardService) Create(ctx context.Context, initialBalance decimal.Decimal, externalID string) (*models.Card, error) {
	if initialBalance.IsNegative() {
		return nil, invalid("initial balance must not be negative")
	}
	if err := money.Validate(initialBalance); err != nil {
		return nil, invalid("initial balance: %v", err)
	}
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		externalID = uuid.NewString()
	}

	var card *models.Card
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		card = &models.Card{ExternalID: externalID}
		if err := tx.Cards().Create(ctx, card); err != nil {
			if errors.Is(err, repository.ErrConflict) {
				return fmt.Errorf("card %q: %w", externalID, ErrAlreadyExists)
			}
			return err
		}
		if initialBalance.IsPositive() {
			_, seeded, err := s.ledger.Append(ctx, tx, card.ID, initialBalance, nil, false)
			if err != nil {
				return err
			}
			card = seeded
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	if initialBalance.IsPositive() {
		s.metrics.LedgerEntry(initialBalance)
	}
	s.logger.Info("card created",
		zap.Int64("card_id", card.ID),
		zap.String("external_id", card.ExternalID),
		zap.String("balance", money.Format(card.Balance)))
	return card, nil
}

// RecordUsage debits fare from the card and bumps its usage counter.
func (s *CardService) RecordUsage(ctx context.Context, cardID int64, fare decimal.Decimal, stationID *int64) (*models.Card, *models.Transaction, error) {
	if err := positiveAmount("fare", fare); err != nil {
		return nil, nil, err
	}
	var (
		card  *models.Card
		entry *models.Transaction
	)
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		if stationID != nil {
			if _, err := tx.Stations().Get(ctx, *stationID); err != nil {
				return notFound(err, "station %d", *stationID)
			}
		}
		var err error
		entry, card, err = s.recordUsage(ctx, tx, cardID, fare, stationID)
		return err
	})
	if err != nil {
		if errors.Is(err, ErrInsufficientFunds) {
			s.metrics.GuardRejected("record_usage", "insufficient_funds")
		}
		return nil, nil, err
	}
	s.metrics.LedgerEntry(entry.Amount)
	s.logger.Info("card used",
		zap.Int64("card_id", cardID),
		zap.String("amount", money.Format(fare)),
		zap.String("balance", money.Format(card.Balance)))
	return card, entry, nil
}

// recordUsage is the in-transaction debit shared with TripLedger.TapOut.
func (s *CardService) recordUsage(ctx context.Context, tx repository.Repositories, cardID int64, fare decimal.Decimal, stationID *int64) (*models.Transaction, *models.Card, error) {
	return s.ledger.Append(ctx, tx, cardID, fare.Neg(), stationID, true)
}

// AddFunds credits amount to the card.
func (s *CardService) AddFunds(ctx context.Context, cardID int64, amount decimal.Decimal) (*models.Card, *models.Transaction, error) {
	if err := positiveAmount("amount", amount); err != nil {
		return nil, nil, err
	}
	var (
		card  *models.Card
		entry *models.Transaction
	)
	err := s.store.WithinTx(ctx, func(tx repository.Repositories) error {
		var err error
		entry, card, err = s.ledger.Append(ctx, tx, cardID, amount, nil, false)
		return err
	})
	if err != nil {
		return nil, nil, err
	}
	s.metrics.LedgerEntry(amount)
	s.logger.Info("funds added",
		zap.Int64("card_id", cardID),
		zap.String("amount", money.Format(amount)),
		zap.String("balance", money.Format(card.Balance)))
	return card, entry, nil
}

// Get returns a card by id.
func (s *CardService) Get(ctx context.Context, id int64) (*models.Card, error) {
	card, err := s.store.Cards().Get(ctx, id)
	if err != nil {
		return nil, notFound(err, "card %d", id)
	}
	return card, nil
}

// GetByExternalID returns a card by its external token.
func (s *CardService) GetByExternalID(ctx context.Context, externalID string) (*models.Card, error) {
	externalID = strings.TrimSpace(externalID)
	if externalID == "" {
		return nil, invalid("card id is required")
	}
	card, err := s.store.Cards().GetByExternalID(ctx, externalID)
	if err != nil {
		return nil, notFound(err, "card %q", externalID)
	}
	return card, nil
}

// List pages through cards.
func (s *CardService) List(ctx context.Context, limit, offset int) ([]models.Card, error) {
	return s.store.Cards().List(ctx, limit, offset)
}

// Trips returns the card's trips newest first.
func (s *CardService) Trips(ctx context.Context, cardID int64) ([]models.Trip, error) {
	if _, err := s.Get(ctx, cardID); err != nil {
		return nil, err
	}
	return s.store.Trips().List(ctx, models.TripFilter{CardID: cardID})
}

// ActiveTrip returns the card's open trip, or nil when there is none.
func (s *CardService) ActiveTrip(ctx context.Context, cardID int64) (*models.Trip, error) {
	if _, err := s.Get(ctx, cardID); err != nil {
		return nil, err
	}

	if s.cache != nil {
		if trip := s.cachedActiveTrip(ctx, cardID); trip != nil {
			return trip, nil
		}
	}

	trip, err := s.store.Trips().ActiveForCard(ctx, cardID)
	if errors.Is(err, repository.ErrNotFound) {
		return nil, nil
	}
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.Save(ctx, *trip); err != nil {
			s.logger.Warn("failed to cache active trip", zap.Int64("card_id", cardID), zap.Error(err))
		}
	}
	return trip, nil
}

func (s *CardService) cachedActiveTrip(ctx context.Context, cardID int64) *models.Trip {
	cached, err := s.cache.Get(ctx, cardID)
	if err != nil {
		if !errors.Is(err, redisstore.ErrMiss) {
			s.logger.Warn("active trip cache read failed", zap.Int64("card_id", cardID), zap.Error(err))
		}
		return nil
	}
	trip, err := s.store.Trips().Get(ctx, cached.TripID)
	if err == nil && trip.IsActive() && trip.CardID == cardID {
		return trip
	}
	if err := s.cache.Delete(ctx, cardID); err != nil {
		s.logger.Warn("failed to drop stale active trip", zap.Int64("card_id", cardID), zap.Error(err))
	}
	return nil
}
