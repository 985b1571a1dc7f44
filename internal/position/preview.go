package position

import (
	"errors"
	"fmt"
	"math"
	"math/big"

	"github.com/shopspring/decimal"

	"liquidityDesk/internal/token"
	"liquidityDesk/internal/v3math"
)

// ImbalanceWarnThreshold is the used-to-supplied ratio below which a preview
// carries a warning. The warning is advisory.
const ImbalanceWarnThreshold = 0.5

var ErrNothingSupplied = errors.New("no amount supplied")

// Range is a deposit target in pool order.
type Range struct {
	Token0       token.Token
	Token1       token.Token
	SqrtPriceX96 *big.Int
	TickLower    int
	TickUpper    int
}

// Preview reports how much of a deposit the range would actually take.
type Preview struct {
	TickLower      int      `json:"tickLower"`
	TickUpper      int      `json:"tickUpper"`
	Amount0Used    string   `json:"amount0Used"`
	Amount1Used    string   `json:"amount1Used"`
	Amount0Max     string   `json:"amount0Max"`
	Amount1Max     string   `json:"amount1Max"`
	Amount0UsedWei *big.Int `json:"amount0UsedWei"`
	Amount1UsedWei *big.Int `json:"amount1UsedWei"`
	Liquidity      *big.Int `json:"liquidity"`
	ImbalanceRatio float64  `json:"imbalanceRatio"`
	Warning        string   `json:"warning,omitempty"`
}

// PreviewAmounts parses decimal inputs and previews them.
func PreviewAmounts(r Range, amount0, amount1 string) (Preview, error) {
	wei0, err := parseOrZero(amount0, r.Token0.Decimals)
	if err != nil {
		return Preview{}, fmt.Errorf("amount0: %w", err)
	}
	wei1, err := parseOrZero(amount1, r.Token1.Decimals)
	if err != nil {
		return Preview{}, fmt.Errorf("amount1: %w", err)
	}
	return PreviewWei(r, wei0, wei1)
}

// PreviewWei runs the supplied amounts through liquidity and back. The ratio
// counts only tokens that were supplied; the lowest ratio is the binding one.
func PreviewWei(r Range, amount0, amount1 *big.Int) (Preview, error) {
	if amount0.Sign() == 0 && amount1.Sign() == 0 {
		return Preview{}, ErrNothingSupplied
	}
	sqrtLower, sqrtUpper, err := sqrtBounds(r)
	if err != nil {
		return Preview{}, err
	}

	liquidity, err := v3math.LiquidityFromAmounts(amount0, amount1, r.SqrtPriceX96, sqrtLower, sqrtUpper)
	if err != nil {
		return Preview{}, fmt.Errorf("liquidity from amounts: %w", err)
	}
	used0, used1, err := v3math.AmountsFromLiquidity(liquidity, r.SqrtPriceX96, sqrtLower, sqrtUpper)
	if err != nil {
		return Preview{}, fmt.Errorf("amounts from liquidity: %w", err)
	}

	ratio0, ok0 := usedRatio(used0, amount0)
	ratio1, ok1 := usedRatio(used1, amount1)
	ratio := 1.0
	switch {
	case ok0 && ok1:
		ratio = math.Min(ratio0, ratio1)
	case ok0:
		ratio = ratio0
	case ok1:
		ratio = ratio1
	}

	p := Preview{
		TickLower:      r.TickLower,
		TickUpper:      r.TickUpper,
		Amount0Used:    token.FormatUnits(used0, r.Token0.Decimals),
		Amount1Used:    token.FormatUnits(used1, r.Token1.Decimals),
		Amount0Max:     token.FormatUnits(amount0, r.Token0.Decimals),
		Amount1Max:     token.FormatUnits(amount1, r.Token1.Decimals),
		Amount0UsedWei: used0,
		Amount1UsedWei: used1,
		Liquidity:      liquidity,
		ImbalanceRatio: ratio,
	}
	if ratio < ImbalanceWarnThreshold {
		unused := r.Token1.Symbol
		if ok0 && (!ok1 || ratio0 < ratio1) {
			unused = r.Token0.Symbol
		}
		p.Warning = fmt.Sprintf("%d%% of %s won't be used at this price range", int(math.Round((1-ratio)*100)), unused)
	}
	return p, nil
}

// ByPrimaryAmount derives the counterpart of one typed amount and previews the
// resulting pair.
func ByPrimaryAmount(r Range, primary string, isPrimary0 bool) (Preview, error) {
	decimals := r.Token1.Decimals
	if isPrimary0 {
		decimals = r.Token0.Decimals
	}
	primaryWei, err := token.ParseUnits(primary, decimals)
	if err != nil {
		return Preview{}, fmt.Errorf("primary amount: %w", err)
	}
	sqrtLower, sqrtUpper, err := sqrtBounds(r)
	if err != nil {
		return Preview{}, err
	}
	amount0, amount1, err := v3math.EstimateSecondary(primaryWei, r.SqrtPriceX96, sqrtLower, sqrtUpper, isPrimary0)
	if err != nil {
		return Preview{}, fmt.Errorf("estimate secondary amount: %w", err)
	}
	return PreviewWei(r, amount0, amount1)
}

func sqrtBounds(r Range) (*big.Int, *big.Int, error) {
	p := Position{TickLower: r.TickLower, TickUpper: r.TickUpper, Liquidity: new(big.Int)}
	if err := p.Validate(); err != nil {
		return nil, nil, err
	}
	if r.SqrtPriceX96 == nil || r.SqrtPriceX96.Sign() == 0 {
		return nil, nil, fmt.Errorf("%w: pool is not initialized", v3math.ErrArithmetic)
	}
	return p.SqrtBounds()
}

func usedRatio(used, supplied *big.Int) (float64, bool) {
	if supplied.Sign() == 0 {
		return 0, false
	}
	return decimal.NewFromBigInt(used, 0).Div(decimal.NewFromBigInt(supplied, 0)).InexactFloat64(), true
}

func parseOrZero(amount string, decimals uint8) (*big.Int, error) {
	if amount == "" {
		return new(big.Int), nil
	}
	return token.ParseUnits(amount, decimals)
}
