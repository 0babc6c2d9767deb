package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Price is the fare between two stations. StationAID is always the lower identifier.
type Price struct {
	ID         int64
	StationAID int64
	StationBID int64
	Amount     decimal.Decimal
	CreatedAt  time.Time
	UpdatedAt  time.Time
}

// Involves reports whether the route touches the given station.
func (p Price) Involves(stationID int64) bool {
	return p.StationAID == stationID || p.StationBID == stationID
}

// CanonicalPair orders two station identifiers lower first.
func CanonicalPair(a, b int64) (int64, int64) {
	if a > b {
		return b, a
	}
	return a, b
}
