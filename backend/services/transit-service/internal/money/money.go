// Package money handles the two-decimal fixed-point amounts used for fares and balances.
package money

import (
	"bytes"
	"errors"
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// Scale is the number of fractional digits carried by every stored amount.
const Scale = 2

const (
	// maxInputLen bounds the raw text handed to the decimal parser.
	maxInputLen = 32
	// Exponent window checked before any rescaling. Values outside it are either far too
	// precise or far above Max.
	minExponent = -18
	maxExponent = 12
)

var (
	// ErrTooPrecise is returned for amounts with more than two fractional digits.
	ErrTooPrecise = errors.New("money: more than two fractional digits")
	// ErrMalformed is returned when the input is not a decimal number.
	ErrMalformed = errors.New("money: malformed amount")
	// ErrOutOfRange is returned for amounts whose magnitude exceeds Max.
	ErrOutOfRange = errors.New("money: amount out of range")
)

var (
	// Zero is 0.00.
	Zero = decimal.New(0, -Scale)
	// Max is the largest magnitude a NUMERIC(12,2) column holds.
	Max = decimal.New(999999999999, -Scale)
)

// Parse reads a decimal string such as "3.25" without going through binary floating point.
func Parse(raw string) (decimal.Decimal, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return decimal.Decimal{}, ErrMalformed
	}
	if len(raw) > maxInputLen {
		return decimal.Decimal{}, fmt.Errorf("%w: longer than %d characters", ErrMalformed, maxInputLen)
	}
	d, err := decimal.NewFromString(raw)
	if err != nil {
		return decimal.Decimal{}, fmt.Errorf("%w: %q", ErrMalformed, raw)
	}
	if err := Validate(d); err != nil {
		return decimal.Decimal{}, err
	}
	return d, nil
}

// MustParse is Parse for constants and tests.
func MustParse(raw string) decimal.Decimal {
	d, err := Parse(raw)
	if err != nil {
		panic(err)
	}
	return d
}

// Validate rejects values that cannot be stored with two fractional digits or whose
// magnitude exceeds Max. Trailing zeros beyond the scale ("3.250") are accepted.
func Validate(d decimal.Decimal) error {
	switch exp := d.Exponent(); {
	case exp < minExponent:
		return ErrTooPrecise
	case exp > maxExponent:
		return ErrOutOfRange
	}
	if !d.Equal(d.Truncate(Scale)) {
		return ErrTooPrecise
	}
	if d.Abs().GreaterThan(Max) {
		return ErrOutOfRange
	}
	return nil
}

// Format renders d with exactly two fractional digits.
func Format(d decimal.Decimal) string {
	return d.StringFixed(Scale)
}

// Amount is the JSON form of a monetary value: always written as a two-decimal string,
// read from either a string or a bare number.
type Amount struct {
	decimal.Decimal
}

// NewAmount wraps d.
func NewAmount(d decimal.Decimal) Amount {
	return Amount{Decimal: d}
}

// MarshalJSON implements json.Marshaler.
func (a Amount) MarshalJSON() ([]byte, error) {
	return []byte(`"` + Format(a.Decimal) + `"`), nil
}

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if bytes.Equal(data, []byte("null")) {
		return ErrMalformed
	}
	d, err := Parse(string(bytes.Trim(data, `"`)))
	if err != nil {
		return err
	}
	a.Decimal = d
	return nil
}
