package position

import (
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidityDesk/internal/token"
	"liquidityDesk/internal/v3math"
)

// Side classifies a position against the current tick.
type Side string

const (
	Below   Side = "BELOW"
	InRange Side = "IN_RANGE"
	Above   Side = "ABOVE"
)

// IsInRange uses the half-open interval [lower, upper).
func IsInRange(tick, lower, upper int) bool {
	return tick >= lower && tick < upper
}

func SideOf(tick, lower, upper int) Side {
	switch {
	case tick < lower:
		return Below
	case tick >= upper:
		return Above
	default:
		return InRange
	}
}

// Position is the stored state of one liquidity NFT.
type Position struct {
	TokenID     *big.Int
	Owner       common.Address
	Token0      token.Token
	Token1      token.Token
	Fee         uint32
	TickLower   int
	TickUpper   int
	Liquidity   *big.Int
	TokensOwed0 *big.Int
	TokensOwed1 *big.Int
}

// PoolState is a fresh pool read. It is never cached across refreshes.
type PoolState struct {
	SqrtPriceX96 *big.Int
	Tick         int
	Liquidity    *big.Int
}

// Key identifies the position for the processing gate.
func (p Position) Key() string {
	if p.TokenID == nil {
		return "position:new"
	}
	return "position:" + p.TokenID.String()
}

func (p Position) Validate() error {
	if p.TickLower >= p.TickUpper {
		return fmt.Errorf("%w: tick lower %d >= upper %d", v3math.ErrDegenerateRange, p.TickLower, p.TickUpper)
	}
	if p.TickLower < v3math.MinTick || p.TickUpper > v3math.MaxTick {
		return fmt.Errorf("%w: ticks [%d, %d]", v3math.ErrTickOutOfBounds, p.TickLower, p.TickUpper)
	}
	if p.Liquidity == nil || p.Liquidity.Sign() < 0 {
		return fmt.Errorf("%w: liquidity must be non-negative", v3math.ErrArithmetic)
	}
	return nil
}

// Burnable reports whether the NFT can be destroyed: no liquidity and nothing owed.
func (p Position) Burnable() bool {
	return isZero(p.Liquidity) && isZero(p.TokensOwed0) && isZero(p.TokensOwed1)
}

// SqrtBounds returns the Q64.96 sqrt prices at the position's ticks.
func (p Position) SqrtBounds() (*big.Int, *big.Int, error) {
	lower, err := v3math.TickToSqrtPriceX96(p.TickLower)
	if err != nil {
		return nil, nil, fmt.Errorf("sqrt price at lower tick: %w", err)
	}
	upper, err := v3math.TickToSqrtPriceX96(p.TickUpper)
	if err != nil {
		return nil, nil, fmt.Errorf("sqrt price at upper tick: %w", err)
	}
	return lower, upper, nil
}

// View is the display state of a position against live pool state.
type View struct {
	TokenID          string   `json:"tokenId"`
	Owner            string   `json:"owner"`
	Token0           string   `json:"token0"`
	Token1           string   `json:"token1"`
	Symbol0          string   `json:"symbol0"`
	Symbol1          string   `json:"symbol1"`
	Fee              uint32   `json:"fee"`
	TickLower        int      `json:"tickLower"`
	TickUpper        int      `json:"tickUpper"`
	Liquidity        string   `json:"liquidity"`
	CurrentTick      int      `json:"currentTick"`
	InRange          bool     `json:"inRange"`
	Side             Side     `json:"side"`
	CurrentPrice     float64  `json:"currentPrice"`
	PriceLower       float64  `json:"priceLower"`
	PriceUpper       float64  `json:"priceUpper"`
	Amount0          *big.Int `json:"amount0Wei"`
	Amount1          *big.Int `json:"amount1Wei"`
	EstimatedAmount0 string   `json:"estimatedAmount0"`
	EstimatedAmount1 string   `json:"estimatedAmount1"`
	UncollectedFees0 string   `json:"uncollectedFees0"`
	UncollectedFees1 string   `json:"uncollectedFees1"`
	Burnable         bool     `json:"burnable"`
}

// Derive combines stored position state with a fresh pool read. Amounts are
// recomputed from the live sqrt price on every call.
func Derive(p Position, pool PoolState) (View, error) {
	if err := p.Validate(); err != nil {
		return View{}, err
	}
	if pool.SqrtPriceX96 == nil || pool.SqrtPriceX96.Sign() == 0 {
		return View{}, fmt.Errorf("%w: pool is not initialized", v3math.ErrArithmetic)
	}

	d0, d1 := p.Token0.Decimals, p.Token1.Decimals
	price, err := v3math.SqrtPriceX96ToPrice(pool.SqrtPriceX96, d0, d1)
	if err != nil {
		return View{}, fmt.Errorf("current price: %w", err)
	}
	priceLower, err := v3math.TickToPrice(p.TickLower, d0, d1)
	if err != nil {
		return View{}, fmt.Errorf("lower price: %w", err)
	}
	priceUpper, err := v3math.TickToPrice(p.TickUpper, d0, d1)
	if err != nil {
		return View{}, fmt.Errorf("upper price: %w", err)
	}

	sqrtLower, sqrtUpper, err := p.SqrtBounds()
	if err != nil {
		return View{}, err
	}
	amount0, amount1, err := v3math.AmountsFromLiquidity(p.Liquidity, pool.SqrtPriceX96, sqrtLower, sqrtUpper)
	if err != nil {
		return View{}, fmt.Errorf("position amounts: %w", err)
	}

	v := View{
		Owner:            p.Owner.Hex(),
		Token0:           p.Token0.Address.Hex(),
		Token1:           p.Token1.Address.Hex(),
		Symbol0:          p.Token0.Symbol,
		Symbol1:          p.Token1.Symbol,
		Fee:              p.Fee,
		TickLower:        p.TickLower,
		TickUpper:        p.TickUpper,
		Liquidity:        p.Liquidity.String(),
		CurrentTick:      pool.Tick,
		InRange:          IsInRange(pool.Tick, p.TickLower, p.TickUpper),
		Side:             SideOf(pool.Tick, p.TickLower, p.TickUpper),
		CurrentPrice:     price,
		PriceLower:       priceLower,
		PriceUpper:       priceUpper,
		Amount0:          amount0,
		Amount1:          amount1,
		EstimatedAmount0: token.FormatUnits(amount0, d0),
		EstimatedAmount1: token.FormatUnits(amount1, d1),
		UncollectedFees0: token.FormatUnits(p.TokensOwed0, d0),
		UncollectedFees1: token.FormatUnits(p.TokensOwed1, d1),
		Burnable:         p.Burnable(),
	}
	if p.TokenID != nil {
		v.TokenID = p.TokenID.String()
	}
	return v, nil
}

// LiquidityForPercent returns liquidity * percent / 100 for percent in (0, 100].
func LiquidityForPercent(liquidity *big.Int, percent int) (*big.Int, error) {
	if percent <= 0 || percent > 100 {
		return nil, fmt.Errorf("percent must be in (0, 100], got %d", percent)
	}
	if liquidity == nil || liquidity.Sign() < 0 {
		return nil, fmt.Errorf("%w: liquidity must be non-negative", v3math.ErrArithmetic)
	}
	out := new(big.Int).Mul(liquidity, big.NewInt(int64(percent)))
	return out.Quo(out, big.NewInt(100)), nil
}

func isZero(v *big.Int) bool {
	return v == nil || v.Sign() == 0
}
