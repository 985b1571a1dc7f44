package quote

import (
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"liquidityDesk/internal/v3math"
)

const bpsDenominator = 10000

var bpsScale = big.NewInt(bpsDenominator)

// SlippageBps converts a percent tolerance to basis points, floored. The
// conversion goes through a decimal so 0.29 yields 29 rather than 28.
func SlippageBps(tolerancePercent float64) (int64, error) {
	if math.IsNaN(tolerancePercent) || math.IsInf(tolerancePercent, 0) {
		return 0, fmt.Errorf("%w: slippage is not finite", v3math.ErrArithmetic)
	}
	if tolerancePercent < 0 || tolerancePercent > 100 {
		return 0, fmt.Errorf("%w: slippage %v%% outside [0, 100]", v3math.ErrArithmetic, tolerancePercent)
	}
	return decimal.NewFromFloat(tolerancePercent).Shift(2).Floor().IntPart(), nil
}

// MinimumOut returns floor(out * (10000 - bps) / 10000).
func MinimumOut(out *big.Int, bps int64) (*big.Int, error) {
	if err := checkBound(out, bps); err != nil {
		return nil, err
	}
	v := new(big.Int).Mul(out, big.NewInt(bpsDenominator-bps))
	return v.Quo(v, bpsScale), nil
}

// MaximumIn returns floor(in * (10000 + bps) / 10000).
func MaximumIn(in *big.Int, bps int64) (*big.Int, error) {
	if err := checkBound(in, bps); err != nil {
		return nil, err
	}
	v := new(big.Int).Mul(in, big.NewInt(bpsDenominator+bps))
	return v.Quo(v, bpsScale), nil
}

func checkBound(amount *big.Int, bps int64) error {
	if amount == nil || amount.Sign() < 0 {
		return fmt.Errorf("%w: amount must be a non-negative integer", v3math.ErrArithmetic)
	}
	if bps < 0 || bps > bpsDenominator {
		return fmt.Errorf("%w: slippage bps %d outside [0, %d]", v3math.ErrArithmetic, bps, bpsDenominator)
	}
	return nil
}
