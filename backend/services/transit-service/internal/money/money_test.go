package money

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/shopspring/decimal"
)

func TestParse(t *testing.T) {
	start := time.Now()
	cases := []struct {
		in      string
		want    string
		wantErr error
	}{
		{in: "3.25", want: "3.25"},
		{in: " 10 ", want: "10.00"},
		{in: "3.250", want: "3.25"},
		{in: "-4.5", want: "-4.50"},
		{in: "0.001", wantErr: ErrTooPrecise},
		{in: "abc", wantErr: ErrMalformed},
		{in: "", wantErr: ErrMalformed},
		{in: "9999999999.99", want: "9999999999.99"},
		{in: "-9999999999.99", want: "-9999999999.99"},
		{in: "10000000000", wantErr: ErrOutOfRange},
		{in: "99999999999999", wantErr: ErrOutOfRange},
		{in: "1e400", wantErr: ErrOutOfRange},
		{in: "1e20000000", wantErr: ErrOutOfRange},
		{in: "1e-20000000", wantErr: ErrTooPrecise},
		{in: "0.0000000000000000000001", wantErr: ErrTooPrecise},
		{in: strings.Repeat("1", 40), wantErr: ErrMalformed},
	}

	for _, tc := range cases {
		got, err := Parse(tc.in)
		if tc.wantErr != nil {
			if !errors.Is(err, tc.wantErr) {
				t.Fatalf("Parse(%q): expected %v, got %v", tc.in, tc.wantErr, err)
			}
			continue
		}
		if err != nil {
			t.Fatalf("Parse(%q): %v", tc.in, err)
		}
		if Format(got) != tc.want {
			t.Fatalf("Parse(%q) = %s, want %s", tc.in, Format(got), tc.want)
		}
	}
	// Huge exponents must be rejected before any rescaling work.
	if elapsed := time.Since(start); elapsed > time.Second {
		t.Fatalf("parsing took %s", elapsed)
	}
}

func TestValidateRange(t *testing.T) {
	if err := Validate(Max); err != nil {
		t.Fatalf("max: %v", err)
	}
	if err := Validate(Max.Add(MustParse("0.01"))); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
	if err := Validate(decimal.New(1, 20000000)); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange for huge exponent, got %v", err)
	}
}

func TestAmountJSONRejectsHugeNumbers(t *testing.T) {
	var body struct {
		A Amount `json:"a"`
	}
	if err := json.Unmarshal([]byte(`{"a":1e20000000}`), &body); !errors.Is(err, ErrOutOfRange) {
		t.Fatalf("expected ErrOutOfRange, got %v", err)
	}
}

func TestAmountJSON(t *testing.T) {
	var body struct {
		A Amount `json:"a"`
		B Amount `json:"b"`
	}
	if err := json.Unmarshal([]byte(`{"a":"6.5","b":0.1}`), &body); err != nil {
		t.Fatalf("unmarshal: %v", err)
	}
	if Format(body.B.Decimal) != "0.10" {
		t.Fatalf("number input parsed as %s", body.B.String())
	}

	out, err := json.Marshal(body)
	if err != nil {
		t.Fatalf("marshal: %v", err)
	}
	if string(out) != `{"a":"6.50","b":"0.10"}` {
		t.Fatalf("unexpected encoding %s", out)
	}

	if err := json.Unmarshal([]byte(`{"a":1.234}`), &body); !errors.Is(err, ErrTooPrecise) {
		t.Fatalf("expected precision error, got %v", err)
	}
}

func TestSumStaysExact(t *testing.T) {
	total := Zero
	for i := 0; i < 10; i++ {
		total = total.Add(MustParse("0.10"))
	}
	if !total.Equal(MustParse("1.00")) {
		t.Fatalf("expected exact 1.00, got %s", total)
	}
}
