package fixedpoint

import (
	"fmt"
	"math"
	"math/big"
	"math/bits"

	"github.com/shopspring/decimal"
)

const (
	// Decimals is the number of fractional decimal digits of the stable token.
	Decimals = 6

	// Unit is one whole token expressed in base units.
	Unit Amount = 1_000_000

	// BpsBase is the denominator for basis-point rates.
	BpsBase = 10_000

	// MaxAmount is the largest representable amount.
	MaxAmount Amount = math.MaxUint64
)

// Amount is a stable-token quantity in base units (10^-6 of a token).
// All arithmetic is checked; nothing wraps silently.
type Amount uint64

// IsZero reports whether a is zero.
func (a Amount) IsZero() bool { return a == 0 }

// Add returns a+b or ErrOverflow.
func (a Amount) Add(b Amount) (Amount, error) {
	sum, carry := bits.Add64(uint64(a), uint64(b), 0)
	if carry != 0 {
		return 0, fmt.Errorf("%w: %d + %d", ErrOverflow, a, b)
	}
	return Amount(sum), nil
}

// Sub returns a-b or ErrUnderflow when b > a.
func (a Amount) Sub(b Amount) (Amount, error) {
	if b > a {
		return 0, fmt.Errorf("%w: %d - %d", ErrUnderflow, a, b)
	}
	return a - b, nil
}

// SubFloor returns a-b, or zero when b > a.
func (a Amount) SubFloor(b Amount) Amount {
	if b > a {
		return 0
	}
	return a - b
}

// MulDiv computes floor(a*b/c) with a 128-bit intermediate.
func MulDiv(a, b, c uint64) (Amount, error) {
	if c == 0 {
		return 0, ErrDivideByZero
	}
	hi, lo := bits.Mul64(a, b)
	if hi >= c {
		return 0, fmt.Errorf("%w: %d * %d / %d", ErrOverflow, a, b, c)
	}
	quo, _ := bits.Div64(hi, lo, c)
	return Amount(quo), nil
}

// Bps returns floor(a * bps / 10000).
func (a Amount) Bps(bps uint32) (Amount, error) {
	return MulDiv(uint64(a), uint64(bps), BpsBase)
}

// Sum adds all amounts, failing on overflow.
func Sum(amounts ...Amount) (Amount, error) {
	var total Amount
	for _, v := range amounts {
		next, err := total.Add(v)
		if err != nil {
			return 0, err
		}
		total = next
	}
	return total, nil
}

// FromTokens converts a whole-token count to base units.
func FromTokens(tokens uint64) (Amount, error) {
	hi, lo := bits.Mul64(tokens, uint64(Unit))
	if hi != 0 {
		return 0, fmt.Errorf("%w: %d tokens", ErrOverflow, tokens)
	}
	return Amount(lo), nil
}

// Decimal returns a as a token-denominated decimal (e.g. 1500000 -> 1.5).
func (a Amount) Decimal() decimal.Decimal {
	return decimal.NewFromBigInt(new(big.Int).SetUint64(uint64(a)), -Decimals)
}

// String formats a with exactly Decimals fractional digits.
func (a Amount) String() string {
	return a.Decimal().StringFixed(Decimals)
}

// Parse reads a token-denominated decimal string ("12.5", "0.000001")
// into base units. Negative values and excess precision are rejected.
func Parse(s string) (Amount, error) {
	d, err := decimal.NewFromString(s)
	if err != nil {
		return 0, fmt.Errorf("%w: %q", ErrInvalidAmount, s)
	}
	if d.IsNegative() {
		return 0, fmt.Errorf("%w: %q is negative", ErrInvalidAmount, s)
	}
	scaled := d.Shift(Decimals)
	if !scaled.Equal(scaled.Truncate(0)) {
		return 0, fmt.Errorf("%w: %q", ErrTooPrecise, s)
	}
	bi := scaled.BigInt()
	if !bi.IsUint64() {
		return 0, fmt.Errorf("%w: %q", ErrOverflow, s)
	}
	return Amount(bi.Uint64()), nil
}
