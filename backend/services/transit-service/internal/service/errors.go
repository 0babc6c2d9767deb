package service

import (
	"errors"
	"fmt"

	"github.com/shopspring/decimal"

	"transitkiosk/backend/services/transit-service/internal/money"
	"transitkiosk/backend/services/transit-service/internal/repository"
)

var (
	// ErrNotFound covers missing cards, stations, trips, prices and keys.
	ErrNotFound = errors.New("transit: not found")
	// ErrInsufficientFunds is returned when a debit or tap-in guard exceeds the balance.
	ErrInsufficientFunds = errors.New("transit: insufficient funds")
	// ErrAlreadyExists is returned on duplicate price pairs, station names or card ids.
	ErrAlreadyExists = errors.New("transit: already exists")
	// ErrInvalidArgument is returned for non-positive amounts, same-station pairs and
	// malformed input.
	ErrInvalidArgument = errors.New("transit: invalid argument")
	// ErrNotActive is returned when a trip operation requires an active trip.
	ErrNotActive = errors.New("transit: trip is not active")
	// ErrNoPricingData is returned when the price table is empty.
	ErrNoPricingData = errors.New("transit: no pricing data")
	// ErrStationInUse is returned when deleting a station that is still referenced.
	ErrStationInUse = errors.New("transit: station is referenced")
	// ErrInvalidCredentials represents a failed admin login or a bad token.
	ErrInvalidCredentials = errors.New("transit: invalid credentials")
	// ErrKeyInactive is returned for unknown or deactivated kiosk API keys.
	ErrKeyInactive = errors.New("transit: api key inactive")
)

func notFound(err error, format string, args ...any) error {
	if errors.Is(err, repository.ErrNotFound) {
		return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrNotFound)
	}
	return err
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%s: %w", fmt.Sprintf(format, args...), ErrInvalidArgument)
}

// positiveAmount checks amount > 0 with at most two fractional digits.
func positiveAmount(name string, amount decimal.Decimal) error {
	if !amount.IsPositive() {
		return invalid("%s must be greater than 0", name)
	}
	if err := money.Validate(amount); err != nil {
		return invalid("%s: %v", name, err)
	}
	return nil
}
