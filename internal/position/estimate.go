package position

import (
	"fmt"
	"math/big"

	"liquidityDesk/internal/token"
	"liquidityDesk/internal/v3math"
)

// Estimate is the counterpart amount that balances a single typed amount at
// the current price.
type Estimate struct {
	Amount0    string   `json:"amount0"`
	Amount1    string   `json:"amount1"`
	Amount0Wei *big.Int `json:"amount0Wei"`
	Amount1Wei *big.Int `json:"amount1Wei"`
}

// EstimateCounterpart fills the other input while the user types. A price on
// a range bound or a range the typed token cannot fund returns
// ErrDegenerateRange; callers then ask for both amounts.
func EstimateCounterpart(r Range, amount string, isPrimary0 bool) (Estimate, error) {
	decimals := r.Token1.Decimals
	if isPrimary0 {
		decimals = r.Token0.Decimals
	}
	typed, err := token.ParseUnits(amount, decimals)
	if err != nil {
		return Estimate{}, fmt.Errorf("amount: %w", err)
	}
	sqrtLower, sqrtUpper, err := sqrtBounds(r)
	if err != nil {
		return Estimate{}, err
	}

	amount0, amount1 := typed, typed
	if isPrimary0 {
		amount1, err = v3math.QuoteToken1FromToken0(typed, r.SqrtPriceX96, sqrtLower, sqrtUpper)
	} else {
		amount0, err = v3math.QuoteToken0FromToken1(typed, r.SqrtPriceX96, sqrtLower, sqrtUpper)
	}
	if err != nil {
		return Estimate{}, err
	}
	return Estimate{
		Amount0:    token.FormatUnits(amount0, r.Token0.Decimals),
		Amount1:    token.FormatUnits(amount1, r.Token1.Decimals),
		Amount0Wei: amount0,
		Amount1Wei: amount1,
	}, nil
}
