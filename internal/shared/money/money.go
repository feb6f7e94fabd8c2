// Package money provides overflow-checked integer arithmetic for balances.
// Amounts are int64 in the smallest indivisible unit. Every helper fails
// instead of wrapping or saturating so a bad counter update aborts the whole
// operation.
package money

import (
	"errors"
	"math"
	"math/bits"
)

var (
	ErrAmountOverflow = errors.New("amount arithmetic overflow")
	ErrNegativeAmount = errors.New("amount must not be negative")
	ErrDivideByZero   = errors.New("division by zero")
)

// Add returns a+b, rejecting negative inputs and overflow.
func Add(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, ErrNegativeAmount
	}
	if a > math.MaxInt64-b {
		return 0, ErrAmountOverflow
	}
	return a + b, nil
}

// Sub returns a-b, rejecting negative inputs and negative results.
func Sub(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, ErrNegativeAmount
	}
	if b > a {
		return 0, ErrAmountOverflow
	}
	return a - b, nil
}

// Mul returns a*b, rejecting negative inputs and overflow.
func Mul(a, b int64) (int64, error) {
	if a < 0 || b < 0 {
		return 0, ErrNegativeAmount
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi != 0 || lo > math.MaxInt64 {
		return 0, ErrAmountOverflow
	}
	return int64(lo), nil
}

// MulDiv returns a*b/div computed through a 128-bit intermediate, so the
// multiply never loses precision before the divide. Used for reward and
// penalty formulas (multiply before divide).
func MulDiv(a, b, div int64) (int64, error) {
	if a < 0 || b < 0 || div < 0 {
		return 0, ErrNegativeAmount
	}
	if div == 0 {
		return 0, ErrDivideByZero
	}
	hi, lo := bits.Mul64(uint64(a), uint64(b))
	if hi >= uint64(div) {
		return 0, ErrAmountOverflow
	}
	quo, _ := bits.Div64(hi, lo, uint64(div))
	if quo > math.MaxInt64 {
		return 0, ErrAmountOverflow
	}
	return int64(quo), nil
}

// Percent returns total*pct/100.
func Percent(total, pct int64) (int64, error) {
	return MulDiv(total, pct, 100)
}
