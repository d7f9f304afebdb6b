package fixedpoint

import (
	"fmt"
	"math/big"
)

// AccPrecision scales the revenue-per-share accumulator.
var AccPrecision = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)

// Accumulator is a non-decreasing revenue-per-share counter scaled by
// AccPrecision. Values are immutable: every operation returns a new value,
// so copies may share the underlying big.Int.
type Accumulator struct {
	v *big.Int
}

func (a Accumulator) int() *big.Int {
	if a.v == nil {
		return new(big.Int)
	}
	return a.v
}

// Int returns a copy of the scaled value.
func (a Accumulator) Int() *big.Int { return new(big.Int).Set(a.int()) }

// Cmp compares a and b.
func (a Accumulator) Cmp(b Accumulator) int { return a.int().Cmp(b.int()) }

// IsZero reports whether the accumulator has never advanced.
func (a Accumulator) IsZero() bool { return a.int().Sign() == 0 }

// String returns the scaled value in base 10.
func (a Accumulator) String() string { return a.int().String() }

// Advance distributes net over supply shares. remainder is the division
// remainder left by the previous advance; it is folded into this one so
// that sub-precision revenue is not lost across cycles. The new value and
// the new remainder are returned.
func (a Accumulator) Advance(net, supply Amount, remainder *big.Int) (Accumulator, *big.Int, error) {
	if supply == 0 {
		return a, remainder, ErrDivideByZero
	}
	num := new(big.Int).Mul(new(big.Int).SetUint64(uint64(net)), AccPrecision)
	if remainder != nil {
		num.Add(num, remainder)
	}
	delta, rem := new(big.Int).QuoRem(num, new(big.Int).SetUint64(uint64(supply)), new(big.Int))
	return Accumulator{v: delta.Add(delta, a.int())}, rem, nil
}

// Owed returns floor((a - snapshot) * shares / AccPrecision).
func (a Accumulator) Owed(snapshot Accumulator, shares Amount) (Amount, error) {
	diff := new(big.Int).Sub(a.int(), snapshot.int())
	if diff.Sign() < 0 {
		return 0, fmt.Errorf("%w: snapshot ahead of accumulator", ErrUnderflow)
	}
	diff.Mul(diff, new(big.Int).SetUint64(uint64(shares)))
	diff.Quo(diff, AccPrecision)
	if !diff.IsUint64() {
		return 0, fmt.Errorf("%w: owed %s", ErrOverflow, diff)
	}
	return Amount(diff.Uint64()), nil
}

// GobEncode implements gob.GobEncoder.
func (a Accumulator) GobEncode() ([]byte, error) { return a.int().GobEncode() }

// GobDecode implements gob.GobDecoder.
func (a *Accumulator) GobDecode(data []byte) error {
	v := new(big.Int)
	if err := v.GobDecode(data); err != nil {
		return err
	}
	a.v = v
	return nil
}

// MarshalText implements encoding.TextMarshaler.
func (a Accumulator) MarshalText() ([]byte, error) { return a.int().MarshalText() }

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Accumulator) UnmarshalText(text []byte) error {
	v := new(big.Int)
	if err := v.UnmarshalText(text); err != nil {
		return err
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: negative accumulator", ErrUnderflow)
	}
	a.v = v
	return nil
}
