package dex

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"

	"liquidityDesk/internal/quote"
	"liquidityDesk/internal/token"
)

var ErrPoolNotFound = errors.New("pool not found")

type quoteExactInputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	AmountIn          *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

type quoteExactOutputSingleParams struct {
	TokenIn           common.Address
	TokenOut          common.Address
	Amount            *big.Int
	Fee               *big.Int
	SqrtPriceLimitX96 *big.Int
}

// Quoter simulates single-hop swaps through QuoterV2 via eth_call.
type Quoter struct {
	caller  Caller
	address common.Address
}

var _ quote.Oracle = (*Quoter)(nil)

func NewQuoter(caller Caller, address common.Address) *Quoter {
	return &Quoter{caller: caller, address: address}
}

func (q *Quoter) QuoteExactInputSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee uint32, amountIn *big.Int) (*big.Int, error) {
	return q.call(ctx, "quoteExactInputSingle", quoteExactInputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		AmountIn:          amountIn,
		Fee:               new(big.Int).SetUint64(uint64(fee)),
		SqrtPriceLimitX96: new(big.Int),
	})
}

func (q *Quoter) QuoteExactOutputSingle(ctx context.Context, tokenIn, tokenOut common.Address, fee uint32, amountOut *big.Int) (*big.Int, error) {
	return q.call(ctx, "quoteExactOutputSingle", quoteExactOutputSingleParams{
		TokenIn:           tokenIn,
		TokenOut:          tokenOut,
		Amount:            amountOut,
		Fee:               new(big.Int).SetUint64(uint64(fee)),
		SqrtPriceLimitX96: new(big.Int),
	})
}

func (q *Quoter) call(ctx context.Context, method string, params interface{}) (*big.Int, error) {
	quoterABI, err := QuoterV2ABI()
	if err != nil {
		return nil, fmt.Errorf("parse quoter abi: %w", err)
	}
	values, err := callMethod(ctx, q.caller, q.address, quoterABI, method, params)
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// Spot reports the pool mid price for a pair, used for price impact.
type Spot struct {
	factory *Factory
	pools   *PoolReader
}

var _ quote.SpotSource = (*Spot)(nil)

func NewSpot(factory *Factory, pools *PoolReader) *Spot {
	return &Spot{factory: factory, pools: pools}
}

// SpotPrice returns whole tokenOut per whole tokenIn.
func (s *Spot) SpotPrice(ctx context.Context, tokenIn, tokenOut token.Token, fee uint32) (float64, error) {
	pool, err := s.factory.PoolAddress(ctx, tokenIn.Address, tokenOut.Address, fee)
	if err != nil {
		return 0, err
	}
	if pool == (common.Address{}) {
		return 0, fmt.Errorf("%w: fee %d", ErrPoolNotFound, fee)
	}

	in := s.factory.norm.Token(tokenIn)
	out := s.factory.norm.Token(tokenOut)
	t0, t1, swapped := token.Sort(in, out)

	sqrt, _, err := s.pools.Slot0(ctx, pool)
	if err != nil {
		return 0, err
	}
	pair, err := PriceFromSqrt(sqrt, t0.Decimals, t1.Decimals)
	if err != nil {
		return 0, err
	}
	if pair == nil {
		return 0, fmt.Errorf("pool %s is not initialized", pool.Hex())
	}
	if swapped {
		return pair.Token0PerToken1, nil
	}
	return pair.Token1PerToken0, nil
}
