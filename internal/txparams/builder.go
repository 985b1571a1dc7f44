package txparams

import (
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/holiman/uint256"

	"liquidityDesk/internal/quote"
	"liquidityDesk/internal/token"
	"liquidityDesk/internal/v3math"
)

const (
	DefaultSwapDeadline      = 30 * time.Minute
	DefaultLiquidityDeadline = 30 * time.Minute
)

var (
	ErrInvalidParams = errors.New("invalid transaction parameters")

	// MaxUint128 collects everything owed to a position.
	MaxUint128 = new(uint256.Int).SubUint64(new(uint256.Int).Lsh(uint256.NewInt(1), 128), 1)
)

// Builder turns resolved quotes and amounts into parameter structs. Every call
// reads the clock, so deadlines are never shared between transactions.
type Builder struct {
	Now               func() time.Time
	SwapDeadline      time.Duration
	LiquidityDeadline time.Duration
	Normalizer        token.Normalizer
}

func NewBuilder(wrapped common.Address, swapDeadline, liquidityDeadline time.Duration) Builder {
	if swapDeadline <= 0 {
		swapDeadline = DefaultSwapDeadline
	}
	if liquidityDeadline <= 0 {
		liquidityDeadline = DefaultLiquidityDeadline
	}
	return Builder{
		Now:               time.Now,
		SwapDeadline:      swapDeadline,
		LiquidityDeadline: liquidityDeadline,
		Normalizer:        token.Normalizer{Wrapped: wrapped},
	}
}

func (b Builder) deadline(d time.Duration) uint64 {
	now := time.Now
	if b.Now != nil {
		now = b.Now
	}
	return uint64(now().Add(d).Unix())
}

// Swap builds exact-input or exact-output parameters from a resolved quote.
// Only the post-slippage bound is used, never the raw quoted amount.
func (b Builder) Swap(tokenIn, tokenOut token.Token, q quote.Quote, recipient common.Address) (Params, error) {
	if q.Bound == nil {
		return nil, fmt.Errorf("%w: quote has no slippage bound", ErrInvalidParams)
	}
	in := b.Normalizer.Address(tokenIn.Address)
	out := b.Normalizer.Address(tokenOut.Address)
	deadline := b.deadline(b.SwapDeadline)

	if q.Direction == quote.ExactOutput {
		p := ExactOutputSingle{
			TokenIn:           in,
			TokenOut:          out,
			Fee:               q.Fee,
			Recipient:         recipient,
			Deadline:          deadline,
			AmountOut:         new(big.Int).Set(q.AmountOut),
			AmountInMaximum:   new(big.Int).Set(q.Bound),
			SqrtPriceLimitX96: new(big.Int),
			Value:             nativeValue(tokenIn, q.Bound),
		}
		if err := checkUint(p.AmountOut, 256, "amountOut"); err != nil {
			return nil, err
		}
		if err := checkUint(p.AmountInMaximum, 256, "amountInMaximum"); err != nil {
			return nil, err
		}
		return p, nil
	}

	p := ExactInputSingle{
		TokenIn:           in,
		TokenOut:          out,
		Fee:               q.Fee,
		Recipient:         recipient,
		Deadline:          deadline,
		AmountIn:          new(big.Int).Set(q.AmountIn),
		AmountOutMinimum:  new(big.Int).Set(q.Bound),
		SqrtPriceLimitX96: new(big.Int),
		Value:             nativeValue(tokenIn, q.AmountIn),
	}
	if err := checkUint(p.AmountIn, 256, "amountIn"); err != nil {
		return nil, err
	}
	if err := checkUint(p.AmountOutMinimum, 256, "amountOutMinimum"); err != nil {
		return nil, err
	}
	return p, nil
}

// MintRequest is a new position in user order; Mint sorts it.
type MintRequest struct {
	TokenA      token.Token
	TokenB      token.Token
	Fee         uint32
	TickLower   int
	TickUpper   int
	TickSpacing int
	AmountA     *big.Int
	AmountB     *big.Int
	SlippageBps int64
	Recipient   common.Address
}

// Mint normalizes and sorts the pair, swaps the amounts to match, and applies
// slippage to both desired amounts.
func (b Builder) Mint(req MintRequest) (Mint, error) {
	if err := checkTicks(req.TickLower, req.TickUpper, req.TickSpacing); err != nil {
		return Mint{}, err
	}
	pair, err := b.order(req)
	if err != nil {
		return Mint{}, err
	}
	t0, t1 := pair.token0, pair.token1
	amount0, amount1 := pair.amount0, pair.amount1
	native0, native1 := pair.given0, pair.given1

	min0, err := quote.MinimumOut(amount0, req.SlippageBps)
	if err != nil {
		return Mint{}, err
	}
	min1, err := quote.MinimumOut(amount1, req.SlippageBps)
	if err != nil {
		return Mint{}, err
	}

	value := new(big.Int)
	switch {
	case native0.IsNative():
		value.Set(amount0)
	case native1.IsNative():
		value.Set(amount1)
	}

	return Mint{
		Token0:         t0.Address,
		Token1:         t1.Address,
		Fee:            req.Fee,
		TickLower:      req.TickLower,
		TickUpper:      req.TickUpper,
		Amount0Desired: new(big.Int).Set(amount0),
		Amount1Desired: new(big.Int).Set(amount1),
		Amount0Min:     min0,
		Amount1Min:     min1,
		Recipient:      req.Recipient,
		Deadline:       b.deadline(b.LiquidityDeadline),
		Value:          value,
	}, nil
}

// InitialSqrtPrice is the price a new pool would be seeded at so that the
// desired amounts match its reserves ratio.
func (b Builder) InitialSqrtPrice(req MintRequest) (*big.Int, error) {
	pair, err := b.order(req)
	if err != nil {
		return nil, err
	}
	if pair.amount0.Sign() == 0 || pair.amount1.Sign() == 0 {
		return nil, fmt.Errorf("%w: an initial price needs both amounts", ErrInvalidParams)
	}
	sqrt, err := v3math.EncodeSqrtRatioX96(pair.amount1, pair.amount0)
	if err != nil {
		return nil, err
	}
	if sqrt.Sign() == 0 {
		return nil, fmt.Errorf("%w: initial price rounds to zero", ErrInvalidParams)
	}
	if err := checkUint(sqrt, 160, "sqrtPriceX96"); err != nil {
		return nil, err
	}
	return sqrt, nil
}

// CreatePool builds the initialization call for a pool that does not exist
// yet, priced from the desired mint amounts.
func (b Builder) CreatePool(req MintRequest) (CreatePool, error) {
	pair, err := b.order(req)
	if err != nil {
		return CreatePool{}, err
	}
	sqrt, err := b.InitialSqrtPrice(req)
	if err != nil {
		return CreatePool{}, err
	}
	return CreatePool{
		Token0:       pair.token0.Address,
		Token1:       pair.token1.Address,
		Fee:          req.Fee,
		SqrtPriceX96: sqrt,
	}, nil
}

type orderedPair struct {
	token0, token1   token.Token
	amount0, amount1 *big.Int
	given0, given1   token.Token
}

// order normalizes the pair and sorts tokens and amounts into pool order. The
// given tokens keep their user form so native payments can be detected.
func (b Builder) order(req MintRequest) (orderedPair, error) {
	a := b.Normalizer.Token(req.TokenA)
	c := b.Normalizer.Token(req.TokenB)
	if a.Address == c.Address {
		return orderedPair{}, fmt.Errorf("%w: pair resolves to one token %s", ErrInvalidParams, a.Address.Hex())
	}

	p := orderedPair{amount0: req.AmountA, amount1: req.AmountB, given0: req.TokenA, given1: req.TokenB}
	var swapped bool
	p.token0, p.token1, swapped = token.Sort(a, c)
	if swapped {
		p.amount0, p.amount1 = p.amount1, p.amount0
		p.given0, p.given1 = p.given1, p.given0
	}
	if err := checkUint(p.amount0, 256, "amount0Desired"); err != nil {
		return orderedPair{}, err
	}
	if err := checkUint(p.amount1, 256, "amount1Desired"); err != nil {
		return orderedPair{}, err
	}
	return p, nil
}

// Increase adds to an existing position. amount0 and amount1 are already in
// pool order; native0/native1 mark which side is paid in the gas asset.
func (b Builder) Increase(tokenID, amount0, amount1 *big.Int, slippageBps int64, native0, native1 bool) (IncreaseLiquidity, error) {
	if err := checkUint(tokenID, 256, "tokenId"); err != nil {
		return IncreaseLiquidity{}, err
	}
	if err := checkUint(amount0, 256, "amount0Desired"); err != nil {
		return IncreaseLiquidity{}, err
	}
	if err := checkUint(amount1, 256, "amount1Desired"); err != nil {
		return IncreaseLiquidity{}, err
	}
	min0, err := quote.MinimumOut(amount0, slippageBps)
	if err != nil {
		return IncreaseLiquidity{}, err
	}
	min1, err := quote.MinimumOut(amount1, slippageBps)
	if err != nil {
		return IncreaseLiquidity{}, err
	}

	value := new(big.Int)
	switch {
	case native0:
		value.Set(amount0)
	case native1:
		value.Set(amount1)
	}
	return IncreaseLiquidity{
		TokenID:        new(big.Int).Set(tokenID),
		Amount0Desired: new(big.Int).Set(amount0),
		Amount1Desired: new(big.Int).Set(amount1),
		Amount0Min:     min0,
		Amount1Min:     min1,
		Deadline:       b.deadline(b.LiquidityDeadline),
		Value:          value,
	}, nil
}

// Decrease removes liquidity with caller-computed minimums.
func (b Builder) Decrease(tokenID, liquidity, amount0Min, amount1Min *big.Int) (DecreaseLiquidity, error) {
	if err := checkUint(tokenID, 256, "tokenId"); err != nil {
		return DecreaseLiquidity{}, err
	}
	if err := checkUint(liquidity, 128, "liquidity"); err != nil {
		return DecreaseLiquidity{}, err
	}
	if liquidity.Sign() == 0 {
		return DecreaseLiquidity{}, fmt.Errorf("%w: liquidity delta is zero", ErrInvalidParams)
	}
	if amount0Min == nil {
		amount0Min = new(big.Int)
	}
	if amount1Min == nil {
		amount1Min = new(big.Int)
	}
	if err := checkUint(amount0Min, 256, "amount0Min"); err != nil {
		return DecreaseLiquidity{}, err
	}
	if err := checkUint(amount1Min, 256, "amount1Min"); err != nil {
		return DecreaseLiquidity{}, err
	}
	return DecreaseLiquidity{
		TokenID:    new(big.Int).Set(tokenID),
		Liquidity:  new(big.Int).Set(liquidity),
		Amount0Min: new(big.Int).Set(amount0Min),
		Amount1Min: new(big.Int).Set(amount1Min),
		Deadline:   b.deadline(b.LiquidityDeadline),
	}, nil
}

// Collect claims every owed token.
func (b Builder) Collect(tokenID *big.Int, recipient common.Address) (Collect, error) {
	if err := checkUint(tokenID, 256, "tokenId"); err != nil {
		return Collect{}, err
	}
	return Collect{
		TokenID:    new(big.Int).Set(tokenID),
		Recipient:  recipient,
		Amount0Max: MaxUint128.ToBig(),
		Amount1Max: MaxUint128.ToBig(),
	}, nil
}

func (b Builder) Burn(tokenID *big.Int) (Burn, error) {
	if err := checkUint(tokenID, 256, "tokenId"); err != nil {
		return Burn{}, err
	}
	return Burn{TokenID: new(big.Int).Set(tokenID)}, nil
}

func nativeValue(t token.Token, amount *big.Int) *big.Int {
	if t.IsNative() && amount != nil {
		return new(big.Int).Set(amount)
	}
	return new(big.Int)
}

func checkUint(v *big.Int, bits int, name string) error {
	if v == nil {
		return fmt.Errorf("%w: %s is missing", ErrInvalidParams, name)
	}
	if v.Sign() < 0 {
		return fmt.Errorf("%w: %s is negative", ErrInvalidParams, name)
	}
	u, overflow := uint256.FromBig(v)
	if overflow || u.BitLen() > bits {
		return fmt.Errorf("%w: %s exceeds uint%d", ErrInvalidParams, name, bits)
	}
	return nil
}

func checkTicks(lower, upper, spacing int) error {
	if lower >= upper {
		return fmt.Errorf("%w: tick lower %d >= upper %d", v3math.ErrDegenerateRange, lower, upper)
	}
	if lower < v3math.MinTick || upper > v3math.MaxTick {
		return fmt.Errorf("%w: ticks [%d, %d]", v3math.ErrTickOutOfBounds, lower, upper)
	}
	if spacing > 0 && (lower%spacing != 0 || upper%spacing != 0) {
		return fmt.Errorf("%w: ticks [%d, %d] not multiples of spacing %d", ErrInvalidParams, lower, upper, spacing)
	}
	return nil
}
