package redisstore

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"transitkiosk/backend/services/transit-service/internal/models"
)

// ErrMiss is returned when the card has no cached active trip.
var ErrMiss = errors.New("redisstore: cache miss")

// ActiveTrip is the cached pointer from a card to its open trip.
type ActiveTrip struct {
	TripID          int64     `json:"trip_id"`
	CardID          int64     `json:"card_id"`
	SourceStationID int64     `json:"source_station_id"`
	StartedAt       time.Time `json:"started_at"`
}

// ActiveTripStore caches each card's active trip for kiosk lookups.
type ActiveTripStore struct {
	client *redis.Client
	ttl    time.Duration
}

// NewActiveTripStore returns redis-backed store.
func NewActiveTripStore(client *redis.Client, ttl time.Duration) *ActiveTripStore {
	return &ActiveTripStore{client: client, ttl: ttl}
}

func (s *ActiveTripStore) key(cardID int64) string {
	return fmt.Sprintf("transit:cards:%d:active-trip", cardID)
}

// Save caches trip as the card's active trip.
func (s *ActiveTripStore) Save(ctx context.Context, trip models.Trip) error {
	data, err := json.Marshal(ActiveTrip{
		TripID:          trip.ID,
		CardID:          trip.CardID,
		SourceStationID: trip.SourceStationID,
		StartedAt:       trip.StartedAt,
	})
	if err != nil {
		return err
	}
	return s.client.Set(ctx, s.key(trip.CardID), data, s.ttl).Err()
}

// Get returns the cached active trip of the card.
func (s *ActiveTripStore) Get(ctx context.Context, cardID int64) (*ActiveTrip, error) {
	result, err := s.client.Get(ctx, s.key(cardID)).Result()
	if errors.Is(err, redis.Nil) {
		return nil, ErrMiss
	}
	if err != nil {
		return nil, err
	}
	var trip ActiveTrip
	if err := json.Unmarshal([]byte(result), &trip); err != nil {
		return nil, err
	}
	return &trip, nil
}

// Delete drops the card's cached trip.
func (s *ActiveTripStore) Delete(ctx context.Context, cardID int64) error {
	return s.client.Del(ctx, s.key(cardID)).Err()
}
