package quote

import (
	"context"
	"errors"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidityDesk/internal/token"
)

var (
	// ErrQuoteUnavailable means the oracle failed or returned nothing usable,
	// typically because the path has no liquidity.
	ErrQuoteUnavailable = errors.New("quote unavailable")
	// ErrEmptyAmount means there is nothing to quote; callers clear their quote.
	ErrEmptyAmount = errors.New("empty amount")
)

// Direction picks which side of the swap the user is editing.
type Direction int

const (
	ExactInput Direction = iota
	ExactOutput
)

func (d Direction) String() string {
	if d == ExactOutput {
		return "exact_output"
	}
	return "exact_input"
}

// Oracle is the remote swap simulator. Amounts are smallest units.
type Oracle interface {
	QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee uint32, amountIn *big.Int) (*big.Int, error)
	QuoteExactOutputSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee uint32, amountOut *big.Int) (*big.Int, error)
}

// SpotSource reports the pool mid price as whole tokenOut per whole tokenIn.
type SpotSource interface {
	SpotPrice(ctx context.Context, tokenIn, tokenOut token.Token, fee uint32) (float64, error)
}

// Request is one quote query. Amount is the edited side in smallest units.
type Request struct {
	TokenIn         token.Token
	TokenOut        token.Token
	Fee             uint32
	Amount          *big.Int
	Direction       Direction
	SlippagePercent float64
}

// Quote is a resolved, ephemeral quote. Bound is the minimum output for exact
// input and the maximum input for exact output; only Bound goes into
// transaction parameters.
type Quote struct {
	Direction   Direction `json:"direction"`
	TokenIn     string    `json:"tokenIn"`
	TokenOut    string    `json:"tokenOut"`
	Fee         uint32    `json:"fee"`
	AmountIn    *big.Int  `json:"amountIn"`
	AmountOut   *big.Int  `json:"amountOut"`
	SlippageBps int64     `json:"slippageBps"`
	Bound       *big.Int  `json:"bound"`
	PriceImpact float64   `json:"priceImpact"`
	HighImpact  bool      `json:"highImpact"`
	Route       []string  `json:"route"`
	SameToken   bool      `json:"sameToken"`
	Cached      bool      `json:"cached"`
}

// Derived returns the amount the user is not typing.
func (q Quote) Derived() *big.Int {
	if q.Direction == ExactOutput {
		return q.AmountIn
	}
	return q.AmountOut
}

// MinimumOut is the post-slippage output floor for exact input quotes.
func (q Quote) MinimumOut() *big.Int {
	if q.Direction == ExactInput {
		return q.Bound
	}
	return q.AmountOut
}

// MaximumIn is the post-slippage input ceiling for exact output quotes.
func (q Quote) MaximumIn() *big.Int {
	if q.Direction == ExactOutput {
		return q.Bound
	}
	return q.AmountIn
}
