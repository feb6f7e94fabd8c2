package money

import (
	"errors"
	"math"
	"testing"
)

func TestAddOverflow(t *testing.T) {
	if _, err := Add(math.MaxInt64, 1); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	sum, err := Add(40, 2)
	if err != nil || sum != 42 {
		t.Fatalf("expected 42, got %d err %v", sum, err)
	}
	if _, err := Add(-1, 1); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected negative rejection, got %v", err)
	}
}

func TestSubUnderflow(t *testing.T) {
	if _, err := Sub(5, 6); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected underflow, got %v", err)
	}
	diff, err := Sub(6, 5)
	if err != nil || diff != 1 {
		t.Fatalf("expected 1, got %d err %v", diff, err)
	}
}

func TestMulRejectsOverflow(t *testing.T) {
	product, err := Mul(50, 31_536_000)
	if err != nil || product != 1_576_800_000 {
		t.Fatalf("expected 1576800000, got %d err %v", product, err)
	}
	if _, err := Mul(math.MaxInt64, 2); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := Mul(3_037_000_500, 3_037_000_500); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow past the int64 boundary, got %v", err)
	}
	if _, err := Mul(-1, 2); !errors.Is(err, ErrNegativeAmount) {
		t.Fatalf("expected negative rejection, got %v", err)
	}
}

func TestMulDivKeepsPrecision(t *testing.T) {
	// 9e18 * 7 / 9 overflows a naive int64 multiply but not the 128-bit path.
	got, err := MulDiv(9_000_000_000_000_000_000, 7, 9)
	if err != nil {
		t.Fatalf("muldiv failed: %v", err)
	}
	if got != 7_000_000_000_000_000_000 {
		t.Fatalf("expected 7e18, got %d", got)
	}
}

func TestMulDivRejectsOverflowingQuotient(t *testing.T) {
	if _, err := MulDiv(math.MaxInt64, 3, 2); !errors.Is(err, ErrAmountOverflow) {
		t.Fatalf("expected overflow, got %v", err)
	}
	if _, err := MulDiv(1, 1, 0); !errors.Is(err, ErrDivideByZero) {
		t.Fatalf("expected divide-by-zero, got %v", err)
	}
}

func TestPercent(t *testing.T) {
	got, err := Percent(40, 20)
	if err != nil || got != 8 {
		t.Fatalf("expected 8, got %d err %v", got, err)
	}
}
