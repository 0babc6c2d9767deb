package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Card is a stored-value transit card. Balance only changes through a ledger append.
type Card struct {
	ID         int64
	ExternalID string
	Balance    decimal.Decimal
	UsageCount int64
	LastUsedAt *time.Time
	CreatedAt  time.Time
}
