package v3math

import (
	"fmt"
	"math"
	"math/big"
)

// SqrtPriceX96ToPrice converts a Q64.96 sqrt price into token1 per token0,
// scaled by 10^(decimals1-decimals0).
func SqrtPriceX96ToPrice(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) (float64, error) {
	if err := checkUnsigned("sqrt price", sqrtPriceX96); err != nil {
		return 0, err
	}

	ratio, _ := new(big.Float).Quo(new(big.Float).SetInt(sqrtPriceX96), q96Float).Float64()
	price := ratio * ratio * decimalAdjustment(decimals0, decimals1)
	if err := checkFinite("price", price); err != nil {
		return 0, err
	}
	return price, nil
}

// TickToPrice returns 1.0001^tick scaled by 10^(decimals1-decimals0).
func TickToPrice(tick int, decimals0, decimals1 uint8) (float64, error) {
	if err := checkTick(tick); err != nil {
		return 0, err
	}

	price := math.Pow(1.0001, float64(tick)) * decimalAdjustment(decimals0, decimals1)
	if err := checkFinite("price", price); err != nil {
		return 0, err
	}
	return price, nil
}

// PriceToTick is the inverse of TickToPrice. The result is floored so the tick
// never overstates the price; results within one tick of the bounds are clamped.
func PriceToTick(price float64, decimals0, decimals1 uint8) (int, error) {
	if err := checkFinite("price", price); err != nil {
		return 0, err
	}
	if price <= 0 {
		return 0, fmt.Errorf("%w: price must be positive, got %v", ErrArithmetic, price)
	}

	adjusted := price / decimalAdjustment(decimals0, decimals1)
	raw := math.Floor(math.Log(adjusted) / logBase)
	if err := checkFinite("tick", raw); err != nil {
		return 0, err
	}

	switch {
	case raw < MinTick-1 || raw > MaxTick+1:
		return 0, fmt.Errorf("%w: price %v maps to tick %v", ErrTickOutOfBounds, price, raw)
	case raw < MinTick:
		return MinTick, nil
	case raw > MaxTick:
		return MaxTick, nil
	}
	return int(raw), nil
}

// SqrtPriceX96ToTick returns the floored raw tick of a sqrt price.
func SqrtPriceX96ToTick(sqrtPriceX96 *big.Int) (int, error) {
	price, err := SqrtPriceX96ToPrice(sqrtPriceX96, 0, 0)
	if err != nil {
		return 0, err
	}
	return PriceToTick(price, 0, 0)
}

// TickToSqrtPriceX96 returns floor(sqrt(1.0001^tick) * 2^96).
func TickToSqrtPriceX96(tick int) (*big.Int, error) {
	if err := checkTick(tick); err != nil {
		return nil, err
	}

	sqrtPrice := math.Sqrt(math.Pow(1.0001, float64(tick)))
	if err := checkFinite("sqrt price", sqrtPrice); err != nil {
		return nil, err
	}

	scaled := new(big.Float).SetFloat64(sqrtPrice)
	scaled.Mul(scaled, q96Float)
	out, _ := scaled.Int(nil)
	return out, nil
}

// EncodeSqrtRatioX96 returns sqrt(amount1/amount0) in Q64.96, the initial price
// of a pool seeded with the given reserves.
func EncodeSqrtRatioX96(amount1, amount0 *big.Int) (*big.Int, error) {
	if err := checkUnsigned("amount1", amount1); err != nil {
		return nil, err
	}
	if err := checkUnsigned("amount0", amount0); err != nil {
		return nil, err
	}
	if amount0.Sign() == 0 {
		return nil, fmt.Errorf("%w: amount0 cannot be zero", ErrArithmetic)
	}

	ratioX192 := new(big.Int).Lsh(amount1, 192)
	ratioX192.Quo(ratioX192, amount0)
	return ratioX192.Sqrt(ratioX192), nil
}

func decimalAdjustment(decimals0, decimals1 uint8) float64 {
	return math.Pow10(int(decimals1) - int(decimals0))
}

func checkTick(tick int) error {
	if tick < MinTick || tick > MaxTick {
		return fmt.Errorf("%w: %d", ErrTickOutOfBounds, tick)
	}
	return nil
}

func checkFinite(name string, value float64) error {
	if math.IsNaN(value) || math.IsInf(value, 0) {
		return fmt.Errorf("%w: %s is not finite", ErrArithmetic, name)
	}
	return nil
}

func checkUnsigned(name string, value *big.Int) error {
	if value == nil {
		return fmt.Errorf("%w: %s is nil", ErrArithmetic, name)
	}
	if value.Sign() < 0 {
		return fmt.Errorf("%w: %s is negative", ErrArithmetic, name)
	}
	return nil
}
