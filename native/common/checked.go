package common

import (
	"fmt"
	"math"
	"math/bits"

	coreerrors "bondfarm/core/errors"
)

// AddU64 returns a+b or ErrMathOverflow.
func AddU64(a, b uint64) (uint64, error) {
	if a > math.MaxUint64-b {
		return 0, fmt.Errorf("%d + %d: %w", a, b, coreerrors.ErrMathOverflow)
	}
	return a + b, nil
}

// SubU64 returns a-b or ErrMathUnderflow.
func SubU64(a, b uint64) (uint64, error) {
	if b > a {
		return 0, fmt.Errorf("%d - %d: %w", a, b, coreerrors.ErrMathUnderflow)
	}
	return a - b, nil
}

// MulU64 returns a*b or ErrMathOverflow.
func MulU64(a, b uint64) (uint64, error) {
	hi, lo := bits.Mul64(a, b)
	if hi != 0 {
		return 0, fmt.Errorf("%d * %d: %w", a, b, coreerrors.ErrMathOverflow)
	}
	return lo, nil
}

// DivU64 returns a/b, truncating. Division by zero is reported as
// ErrMathOverflow, matching how a checked division fails.
func DivU64(a, b uint64) (uint64, error) {
	if b == 0 {
		return 0, fmt.Errorf("%d / 0: %w", a, coreerrors.ErrMathOverflow)
	}
	return a / b, nil
}

// MulDivU64 computes a*b/c. Every step must fit in 64 bits.
func MulDivU64(a, b, c uint64) (uint64, error) {
	product, err := MulU64(a, b)
	if err != nil {
		return 0, err
	}
	return DivU64(product, c)
}

// Elapsed returns now-since in seconds. A clock behind the stored timestamp
// yields ErrNegativeElapsed.
func Elapsed(now, since int64) (uint64, error) {
	if now < since {
		return 0, fmt.Errorf("now %d before %d: %w", now, since, coreerrors.ErrNegativeElapsed)
	}
	return uint64(now - since), nil
}

// AddSeconds returns ts+d or ErrMathOverflow.
func AddSeconds(ts, d int64) (int64, error) {
	if d > 0 && ts > math.MaxInt64-d {
		return 0, fmt.Errorf("%d + %d: %w", ts, d, coreerrors.ErrMathOverflow)
	}
	if d < 0 && ts < math.MinInt64-d {
		return 0, fmt.Errorf("%d + %d: %w", ts, d, coreerrors.ErrMathUnderflow)
	}
	return ts + d, nil
}
