package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// TripStatus enumerates trip lifecycle states.
type TripStatus string

const (
	TripActive    TripStatus = "active"
	TripCompleted TripStatus = "completed"
	TripCancelled TripStatus = "cancelled"
)

// Valid reports whether s is one of the known statuses.
func (s TripStatus) Valid() bool {
	switch s {
	case TripActive, TripCompleted, TripCancelled:
		return true
	}
	return false
}

// Trip is a journey opened by a tap-in. Completed and cancelled trips are immutable.
type Trip struct {
	ID                   int64
	CardID               int64
	SourceStationID      int64
	DestinationStationID *int64
	Cost                 decimal.Decimal
	Status               TripStatus
	StartedAt            time.Time
	CompletedAt          *time.Time
}

// IsActive reports whether the trip still accepts tap-out or cancel.
func (t Trip) IsActive() bool {
	return t.Status == TripActive
}

// TripFilter narrows trip listings. Zero values mean no constraint.
type TripFilter struct {
	CardID               int64
	Status               TripStatus
	SourceStationID      int64
	DestinationStationID int64
	From                 time.Time
	To                   time.Time
	Limit                int
}
