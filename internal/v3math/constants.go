package v3math

import (
	"errors"
	"fmt"
	"math"
	"math/big"
)

const (
	// MinTick is the lowest tick a pool can address.
	MinTick = -887272
	// MaxTick is the highest tick a pool can address.
	MaxTick = 887272
)

var (
	// ErrArithmetic marks malformed numeric input (NaN, infinity, negative where unsigned is expected).
	ErrArithmetic = errors.New("arithmetic error")
	// ErrDegenerateRange marks a zero-width or inverted range, or a price sitting on a bound
	// where an estimate would divide by zero.
	ErrDegenerateRange = errors.New("degenerate range")
	// ErrTickOutOfBounds is an ErrArithmetic for ticks outside [MinTick, MaxTick].
	ErrTickOutOfBounds = fmt.Errorf("%w: tick out of bounds", ErrArithmetic)
)

var (
	// Q96 is 2^96, the scale of sqrtPriceX96.
	Q96 = new(big.Int).Lsh(big.NewInt(1), 96)
	// Q192 is 2^192, the scale of sqrtPriceX96 squared.
	Q192 = new(big.Int).Lsh(big.NewInt(1), 192)

	q96Float = new(big.Float).SetInt(Q96)
	logBase  = math.Log(1.0001)
)
