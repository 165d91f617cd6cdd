package types

import (
	"encoding/json"
	"testing"

	"github.com/shopspring/decimal"
)

func TestAmountConstructors(t *testing.T) {
	tests := []struct {
		name    string
		amount  Amount
		raw     uint64
		display string
		fixed   string
	}{
		{"whole", IDRX(100), 100_000000, "100", "100.000000"},
		{"half", Amount(500000), 500000, "0.5", "0.500000"},
		{"one micro", Amount(1), 1, "0.000001", "0.000001"},
		{"zero", Amount(0), 0, "0", "0.000000"},
		{"faucet", IDRX(10_000), 10_000_000000, "10000", "10000.000000"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if uint64(tt.amount) != tt.raw {
				t.Errorf("raw: got %d, want %d", uint64(tt.amount), tt.raw)
			}
			if tt.amount.String() != tt.display {
				t.Errorf("String: got %s, want %s", tt.amount.String(), tt.display)
			}
			if tt.amount.FormatFixed() != tt.fixed {
				t.Errorf("FormatFixed: got %s, want %s", tt.amount.FormatFixed(), tt.fixed)
			}
		})
	}
}

func TestParseAmount(t *testing.T) {
	tests := []struct {
		in      string
		want    Amount
		wantErr bool
	}{
		{"99.5", 99_500000, false},
		{"100", IDRX(100), false},
		{"0.000001", 1, false},
		{"0", 0, false},
		{"18446744073709.551615", MaxAmount, false},
		{"0.0000001", 0, true},
		{"-1", 0, true},
		{"abc", 0, true},
		{"18446744073709.551616", 0, true},
	}

	for _, tt := range tests {
		t.Run(tt.in, func(t *testing.T) {
			got, err := ParseAmount(tt.in)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("ParseAmount(%q) expected error, got %v", tt.in, got)
				}
				return
			}
			if err != nil {
				t.Fatalf("ParseAmount(%q) error: %v", tt.in, err)
			}
			if got != tt.want {
				t.Errorf("ParseAmount(%q) = %d, want %d", tt.in, got, tt.want)
			}
		})
	}
}

func TestAmountArithmetic(t *testing.T) {
	if sum, ok := IDRX(1).Add(IDRX(2)); !ok || sum != IDRX(3) {
		t.Errorf("Add: got %v ok=%v", sum, ok)
	}
	if _, ok := MaxAmount.Add(1); ok {
		t.Error("Add past MaxAmount should overflow")
	}
	if diff, ok := IDRX(5).Sub(IDRX(2)); !ok || diff != IDRX(3) {
		t.Errorf("Sub: got %v ok=%v", diff, ok)
	}
	if _, ok := Amount(1).Sub(2); ok {
		t.Error("Sub below zero should underflow")
	}
}

func TestAmountMulDiv(t *testing.T) {
	tests := []struct {
		name   string
		amount Amount
		num    uint64
		den    uint64
		want   Amount
	}{
		{"fee on 100 IDRX", IDRX(100), 50, 10000, 500000},
		{"floors", Amount(199), 50, 10000, 0},
		{"exact boundary", Amount(200), 50, 10000, 1},
		{"max amount full rate", MaxAmount, 10000, 10000, MaxAmount},
		{"max amount half", MaxAmount, 50, 10000, Amount(92233720368547758)},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.amount.MulDiv(tt.num, tt.den); got != tt.want {
				t.Errorf("MulDiv: got %d, want %d", got, tt.want)
			}
		})
	}
}

func TestAmountPredicates(t *testing.T) {
	if !Amount(0).IsZero() || Amount(1).IsZero() {
		t.Error("IsZero mismatch")
	}
	if !Amount(1).IsPositive() || Amount(0).IsPositive() {
		t.Error("IsPositive mismatch")
	}
	if !MaxAmount.IsUnlimited() || IDRX(1).IsUnlimited() {
		t.Error("IsUnlimited mismatch")
	}
}

func TestAmountDecimalRoundTrip(t *testing.T) {
	for _, a := range []Amount{0, 1, IDRX(42), MaxAmount} {
		got, err := AmountFromDecimal(a.Decimal())
		if err != nil {
			t.Fatalf("AmountFromDecimal(%d): %v", a, err)
		}
		if got != a {
			t.Errorf("round trip: got %d, want %d", got, a)
		}
	}

	if _, err := AmountFromDecimal(decimal.NewFromInt(-1)); err == nil {
		t.Error("negative stored value should fail")
	}
	if _, err := AmountFromDecimal(decimal.RequireFromString("1.5")); err == nil {
		t.Error("fractional stored value should fail")
	}
}

func TestAmountJSON(t *testing.T) {
	a := MustParseAmount("99.5")

	data, err := json.Marshal(a)
	if err != nil {
		t.Fatalf("Marshal: %v", err)
	}
	if string(data) != `{"value":99500000,"display":"99.5"}` {
		t.Errorf("Marshal: got %s", data)
	}

	var obj Amount
	if err := json.Unmarshal(data, &obj); err != nil {
		t.Fatalf("Unmarshal object: %v", err)
	}
	if obj != a {
		t.Errorf("Unmarshal object: got %d, want %d", obj, a)
	}

	var bare Amount
	if err := json.Unmarshal([]byte(`1500000`), &bare); err != nil {
		t.Fatalf("Unmarshal bare: %v", err)
	}
	if bare != Amount(1500000) {
		t.Errorf("Unmarshal bare: got %d", bare)
	}
}
