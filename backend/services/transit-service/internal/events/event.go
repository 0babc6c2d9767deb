// Package events carries trip lifecycle notifications to live feed subscribers.
package events

import (
	"context"
	"time"

	"github.com/shopspring/decimal"

	"transitkiosk/backend/services/transit-service/internal/models"
	"transitkiosk/backend/services/transit-service/internal/money"
)

// Type names a trip lifecycle transition.
type Type string

const (
	TripStarted   Type = "trip.started"
	TripCompleted Type = "trip.completed"
	TripCancelled Type = "trip.cancelled"
)

// TripEvent is the wire form sent to feed subscribers and over the Redis channel.
type TripEvent struct {
	Type                 Type      `json:"type"`
	TripID               int64     `json:"trip_id"`
	CardID               int64     `json:"card_id"`
	SourceStationID      int64     `json:"source_station_id"`
	DestinationStationID *int64    `json:"destination_station_id,omitempty"`
	Fare                 string    `json:"fare,omitempty"`
	Balance              string    `json:"balance,omitempty"`
	Reason               string    `json:"reason,omitempty"`
	OccurredAt           time.Time `json:"occurred_at"`
}

// NewTripEvent builds an event from the trip state after the transition.
func NewTripEvent(kind Type, trip models.Trip, balance decimal.Decimal, at time.Time) TripEvent {
	ev := TripEvent{
		Type:                 kind,
		TripID:               trip.ID,
		CardID:               trip.CardID,
		SourceStationID:      trip.SourceStationID,
		DestinationStationID: trip.DestinationStationID,
		Balance:              money.Format(balance),
		OccurredAt:           at.UTC(),
	}
	if kind == TripCompleted {
		ev.Fare = money.Format(trip.Cost)
	}
	return ev
}

// Touches reports whether the event involves the station as source or destination.
func (e TripEvent) Touches(stationID int64) bool {
	if e.SourceStationID == stationID {
		return true
	}
	return e.DestinationStationID != nil && *e.DestinationStationID == stationID
}

// Publisher delivers committed trip events.
type Publisher interface {
	Publish(ctx context.Context, event TripEvent) error
}

// Discard drops every event.
type Discard struct{}

// Publish implements Publisher.
func (Discard) Publish(context.Context, TripEvent) error { return nil }
