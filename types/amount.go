// Package types provides common types used across ChainPay.
package types

import (
	"encoding/json"
	"fmt"
	"math"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

// Decimals is the number of fractional digits of the IDRX unit.
const Decimals = 6

// Amount represents an IDRX value in its smallest unit (10⁻⁶ IDRX).
// All arithmetic is integer-only.
//
// Examples:
//   - IDRX(100) = 100_000000 = 100 IDRX
//   - Amount(500000) = 0.5 IDRX
type Amount uint64

// MaxAmount is the largest representable amount. As an allowance it means
// "unlimited" and is never decremented.
const MaxAmount = Amount(math.MaxUint64)

// unit is 10^Decimals.
const unit = 1_000000

// IDRX creates an Amount from whole IDRX units.
func IDRX(whole uint64) Amount { return Amount(whole * unit) }

// ParseAmount parses a display string such as "99.5" into an Amount.
// At most six fractional digits are accepted.
func ParseAmount(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("amount: parse %q: %w", s, err)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("amount: parse %q: negative value", s)
	}

	micro := d.Shift(Decimals)
	if !micro.IsInteger() {
		return 0, fmt.Errorf("amount: parse %q: more than %d decimal places", s, Decimals)
	}

	v := micro.BigInt()
	if !v.IsUint64() {
		return 0, fmt.Errorf("amount: parse %q: out of range", s)
	}
	return Amount(v.Uint64()), nil
}

// MustParseAmount is like ParseAmount but panics on error. Use for constants.
func MustParseAmount(s string) Amount {
	a, err := ParseAmount(s)
	if err != nil {
		panic(err)
	}
	return a
}

// AmountFromDecimal converts a decimal holding micro-units back to an Amount.
func AmountFromDecimal(d decimal.Decimal) (Amount, error) {
	if d.IsNegative() || !d.IsInteger() {
		return 0, fmt.Errorf("amount: invalid stored value %s", d.String())
	}
	v := d.BigInt()
	if !v.IsUint64() {
		return 0, fmt.Errorf("amount: stored value %s out of range", d.String())
	}
	return Amount(v.Uint64()), nil
}

// Decimal returns the amount in micro-units as a decimal (exponent 0).
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), 0)
}

// Arithmetic operations

// Add returns a+b and false if the sum overflows.
func (a Amount) Add(b Amount) (Amount, bool) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	return Amount(sum), carry == 0
}

// Sub returns a-b and false if b is larger than a.
func (a Amount) Sub(b Amount) (Amount, bool) {
	diff, borrow := bits.Sub64(uint64(a), uint64(b), 0)
	return Amount(diff), borrow == 0
}

// MulDiv returns floor(a*num/den) using a 128-bit intermediate product.
// It panics if den is zero or the quotient does not fit in 64 bits.
func (a Amount) MulDiv(num, den uint64) Amount {
	if den == 0 {
		panic("amount: division by zero")
	}
	hi, lo := bits.Mul64(uint64(a), num)
	if hi >= den {
		panic("amount: quotient overflow")
	}
	q, _ := bits.Div64(hi, lo, den)
	return Amount(q)
}

// Comparison methods

// IsZero returns true if the amount is zero.
func (a Amount) IsZero() bool { return a == 0 }

// IsPositive returns true if the amount is greater than zero.
func (a Amount) IsPositive() bool { return a > 0 }

// IsUnlimited reports whether a is the unlimited allowance sentinel.
func (a Amount) IsUnlimited() bool { return a == MaxAmount }

// Formatting methods

// String returns the display value without trailing zeros, e.g. "99.5".
func (a Amount) String() string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), -Decimals).String()
}

// FormatFixed returns the display value with all six decimals, e.g. "99.500000".
func (a Amount) FormatFixed() string {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), -Decimals).StringFixed(Decimals)
}

// MarshalJSON encodes the raw micro-unit value alongside a display string.
func (a Amount) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		Value   uint64 `json:"value"`
		Display string `json:"display"`
	}{
		Value:   uint64(a),
		Display: a.String(),
	})
}

// UnmarshalJSON accepts the object form written by MarshalJSON or a bare
// micro-unit number.
func (a *Amount) UnmarshalJSON(data []byte) error {
	var raw uint64
	if err := json.Unmarshal(data, &raw); err == nil {
		*a = Amount(raw)
		return nil
	}

	var obj struct {
		Value uint64 `json:"value"`
	}
	if err := json.Unmarshal(data, &obj); err != nil {
		return fmt.Errorf("amount: unmarshal: %w", err)
	}
	*a = Amount(obj.Value)
	return nil
}
