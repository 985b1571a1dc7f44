package v3math

import (
	"fmt"
	"math/big"
)

// AmountsFromLiquidity splits liquidity over [sqrtLower, sqrtUpper] at the given price.
// Below the range everything is token0, above it everything is token1.
func AmountsFromLiquidity(liquidity, sqrtPrice, sqrtLower, sqrtUpper *big.Int) (*big.Int, *big.Int, error) {
	if err := checkUnsigned("liquidity", liquidity); err != nil {
		return nil, nil, err
	}
	if err := checkRange(sqrtPrice, sqrtLower, sqrtUpper); err != nil {
		return nil, nil, err
	}

	amount0 := new(big.Int)
	amount1 := new(big.Int)
	switch {
	case sqrtPrice.Cmp(sqrtLower) <= 0:
		amount0 = mulDiv(liquidity, new(big.Int).Sub(sqrtUpper, sqrtLower), Q96)
	case sqrtPrice.Cmp(sqrtUpper) >= 0:
		amount1 = mulDiv(liquidity, new(big.Int).Sub(sqrtUpper, sqrtLower), Q96)
	default:
		amount0 = mulDiv(liquidity, new(big.Int).Sub(sqrtUpper, sqrtPrice), Q96)
		amount1 = mulDiv(liquidity, new(big.Int).Sub(sqrtPrice, sqrtLower), Q96)
	}
	return amount0, amount1, nil
}

// LiquidityFromAmounts returns the largest liquidity both amounts can fund.
// Inside the range it is the minimum of the per-token liquidities.
func LiquidityFromAmounts(amount0, amount1, sqrtPrice, sqrtLower, sqrtUpper *big.Int) (*big.Int, error) {
	if err := checkUnsigned("amount0", amount0); err != nil {
		return nil, err
	}
	if err := checkUnsigned("amount1", amount1); err != nil {
		return nil, err
	}
	if err := checkRange(sqrtPrice, sqrtLower, sqrtUpper); err != nil {
		return nil, err
	}

	switch {
	case sqrtPrice.Cmp(sqrtLower) <= 0:
		return mulDiv(amount0, Q96, new(big.Int).Sub(sqrtUpper, sqrtLower)), nil
	case sqrtPrice.Cmp(sqrtUpper) >= 0:
		return mulDiv(amount1, Q96, new(big.Int).Sub(sqrtUpper, sqrtLower)), nil
	}

	liquidity0 := mulDiv(amount0, Q96, new(big.Int).Sub(sqrtUpper, sqrtPrice))
	liquidity1 := mulDiv(amount1, Q96, new(big.Int).Sub(sqrtPrice, sqrtLower))
	if liquidity0.Cmp(liquidity1) < 0 {
		return liquidity0, nil
	}
	return liquidity1, nil
}

// QuoteToken1FromToken0 returns the token1 amount that pairs with amount0 at the
// current price. A range entirely above the price needs no token1.
func QuoteToken1FromToken0(amount0, sqrtPrice, sqrtLower, sqrtUpper *big.Int) (*big.Int, error) {
	if err := checkUnsigned("amount0", amount0); err != nil {
		return nil, err
	}
	if err := checkEstimateRange(sqrtPrice, sqrtLower, sqrtUpper); err != nil {
		return nil, err
	}

	switch {
	case sqrtPrice.Cmp(sqrtLower) < 0:
		return new(big.Int), nil
	case sqrtPrice.Cmp(sqrtUpper) > 0:
		return nil, fmt.Errorf("%w: range below price, token0 cannot be deposited", ErrDegenerateRange)
	}

	liquidity := mulDiv(mulDiv(amount0, sqrtPrice, Q96), sqrtUpper, new(big.Int).Sub(sqrtUpper, sqrtPrice))
	return mulDiv(liquidity, new(big.Int).Sub(sqrtPrice, sqrtLower), Q96), nil
}

// QuoteToken0FromToken1 mirrors QuoteToken1FromToken0 for a token1 input.
// A range entirely below the price needs no token0.
func QuoteToken0FromToken1(amount1, sqrtPrice, sqrtLower, sqrtUpper *big.Int) (*big.Int, error) {
	if err := checkUnsigned("amount1", amount1); err != nil {
		return nil, err
	}
	if err := checkEstimateRange(sqrtPrice, sqrtLower, sqrtUpper); err != nil {
		return nil, err
	}

	switch {
	case sqrtPrice.Cmp(sqrtUpper) > 0:
		return new(big.Int), nil
	case sqrtPrice.Cmp(sqrtLower) < 0:
		return nil, fmt.Errorf("%w: range above price, token1 cannot be deposited", ErrDegenerateRange)
	}

	liquidity := mulDiv(amount1, Q96, new(big.Int).Sub(sqrtPrice, sqrtLower))
	amount0 := mulDiv(liquidity, new(big.Int).Sub(sqrtUpper, sqrtPrice), sqrtUpper)
	return mulDiv(amount0, Q96, sqrtPrice), nil
}

// EstimateSecondary derives the counterpart of a single user-entered amount and
// returns both amounts ordered as (amount0, amount1). Out of range the deposit is
// single sided and the counterpart is zero. In range the ratio follows
// AmountsFromLiquidity, so the pair funds the same liquidity on both sides.
func EstimateSecondary(primary, sqrtPrice, sqrtLower, sqrtUpper *big.Int, isPrimary0 bool) (*big.Int, *big.Int, error) {
	if err := checkUnsigned("primary amount", primary); err != nil {
		return nil, nil, err
	}
	if err := checkRange(sqrtPrice, sqrtLower, sqrtUpper); err != nil {
		return nil, nil, err
	}

	var secondary *big.Int
	switch {
	case sqrtPrice.Cmp(sqrtLower) <= 0, sqrtPrice.Cmp(sqrtUpper) >= 0:
		secondary = new(big.Int)
	case isPrimary0:
		secondary = mulDiv(primary, new(big.Int).Sub(sqrtPrice, sqrtLower), new(big.Int).Sub(sqrtUpper, sqrtPrice))
	default:
		secondary = mulDiv(primary, new(big.Int).Sub(sqrtUpper, sqrtPrice), new(big.Int).Sub(sqrtPrice, sqrtLower))
	}

	if isPrimary0 {
		return new(big.Int).Set(primary), secondary, nil
	}
	return secondary, new(big.Int).Set(primary), nil
}

func checkRange(sqrtPrice, sqrtLower, sqrtUpper *big.Int) error {
	for name, v := range map[string]*big.Int{"sqrt price": sqrtPrice, "sqrt lower": sqrtLower, "sqrt upper": sqrtUpper} {
		if err := checkUnsigned(name, v); err != nil {
			return err
		}
	}
	if sqrtLower.Cmp(sqrtUpper) >= 0 {
		return fmt.Errorf("%w: lower %s >= upper %s", ErrDegenerateRange, sqrtLower, sqrtUpper)
	}
	return nil
}

func checkEstimateRange(sqrtPrice, sqrtLower, sqrtUpper *big.Int) error {
	if err := checkRange(sqrtPrice, sqrtLower, sqrtUpper); err != nil {
		return err
	}
	if sqrtPrice.Cmp(sqrtLower) == 0 || sqrtPrice.Cmp(sqrtUpper) == 0 {
		return fmt.Errorf("%w: price sits on a range bound", ErrDegenerateRange)
	}
	return nil
}

func mulDiv(a, b, denominator *big.Int) *big.Int {
	out := new(big.Int).Mul(a, b)
	return out.Quo(out, denominator)
}
