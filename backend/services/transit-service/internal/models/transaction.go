package models

import (
	"time"

	"github.com/shopspring/decimal"
)

// Transaction is an immutable ledger entry. NewBalance == PreviousBalance + Amount.
type Transaction struct {
	ID              int64
	CardID          int64
	Amount          decimal.Decimal
	PreviousBalance decimal.Decimal
	NewBalance      decimal.Decimal
	StationID       *int64
	CreatedAt       time.Time
}

// IsCredit reports whether the entry added funds.
func (t Transaction) IsCredit() bool {
	return t.Amount.IsPositive()
}

// IsDebit reports whether the entry removed funds.
func (t Transaction) IsDebit() bool {
	return t.Amount.IsNegative()
}

// TransactionKind selects credits or debits in listings.
type TransactionKind string

const (
	KindAny    TransactionKind = ""
	KindCredit TransactionKind = "credit"
	KindDebit  TransactionKind = "debit"
)

// TransactionFilter narrows ledger listings. Zero values mean no constraint.
type TransactionFilter struct {
	CardID    int64
	StationID int64
	Kind      TransactionKind
	From      time.Time
	To        time.Time
	Limit     int
}
