package dex

import (
	"context"
	"fmt"
	"math/big"
	"sync"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityDesk/internal/model"
	"liquidityDesk/internal/position"
	"liquidityDesk/internal/v3math"
)

// PoolMetaCache caches immutable pool parameters by address.
type PoolMetaCache struct {
	mu   sync.RWMutex
	data map[common.Address]model.PoolRef
}

func NewPoolMetaCache() *PoolMetaCache {
	return &PoolMetaCache{data: make(map[common.Address]model.PoolRef)}
}

func (c *PoolMetaCache) Get(address common.Address) (model.PoolRef, bool) {
	c.mu.RLock()
	meta, ok := c.data[address]
	c.mu.RUnlock()
	return meta, ok
}

func (c *PoolMetaCache) Set(address common.Address, meta model.PoolRef) {
	c.mu.Lock()
	c.data[address] = meta
	c.mu.Unlock()
}

// PricePair is the pool price in both orientations, decimal adjusted.
type PricePair struct {
	Token1PerToken0 float64 `json:"token1PerToken0"`
	Token0PerToken1 float64 `json:"token0PerToken1"`
}

// PoolReader reads V3 pool state. Only immutable parameters are cached;
// slot0 and liquidity are read fresh on every call.
type PoolReader struct {
	caller  Caller
	chainID uint64
	meta    *PoolMetaCache
	logger  *zap.Logger
}

func NewPoolReader(caller Caller, chainID uint64, logger *zap.Logger) *PoolReader {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &PoolReader{caller: caller, chainID: chainID, meta: NewPoolMetaCache(), logger: logger}
}

// Meta loads token0, token1, fee and tick spacing.
func (r *PoolReader) Meta(ctx context.Context, pool common.Address) (model.PoolRef, error) {
	if meta, ok := r.meta.Get(pool); ok {
		return meta, nil
	}
	poolABI, err := V3PoolABI()
	if err != nil {
		return model.PoolRef{}, fmt.Errorf("parse pool abi: %w", err)
	}

	values, err := callMethod(ctx, r.caller, pool, poolABI, "token0")
	if err != nil {
		return model.PoolRef{}, err
	}
	token0, err := asAddress(values[0])
	if err != nil {
		return model.PoolRef{}, fmt.Errorf("token0: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, poolABI, "token1")
	if err != nil {
		return model.PoolRef{}, err
	}
	token1, err := asAddress(values[0])
	if err != nil {
		return model.PoolRef{}, fmt.Errorf("token1: %w", err)
	}

	values, err = callMethod(ctx, r.caller, pool, poolABI, "fee")
	if err != nil {
		return model.PoolRef{}, err
	}
	fee, err := asUint24(values[0])
	if err != nil {
		return model.PoolRef{}, fmt.Errorf("fee: %w", err)
	}

	spacing, err := r.TickSpacing(ctx, pool)
	if err != nil {
		return model.PoolRef{}, err
	}

	meta := model.PoolRef{
		ChainID:     r.chainID,
		Address:     pool.Hex(),
		Token0:      token0.Hex(),
		Token1:      token1.Hex(),
		Fee:         fee,
		TickSpacing: int32(spacing),
	}
	r.meta.Set(pool, meta)
	return meta, nil
}

func (r *PoolReader) TickSpacing(ctx context.Context, pool common.Address) (int, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return 0, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, pool, poolABI, "tickSpacing")
	if err != nil {
		return 0, err
	}
	spacing, err := asInt24(values[0])
	if err != nil {
		return 0, fmt.Errorf("tick spacing: %w", err)
	}
	return spacing, nil
}

// Slot0 returns the current sqrt price and tick.
func (r *PoolReader) Slot0(ctx context.Context, pool common.Address) (*big.Int, int, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, 0, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, pool, poolABI, "slot0")
	if err != nil {
		return nil, 0, err
	}
	if len(values) < 2 {
		return nil, 0, fmt.Errorf("slot0: expected 7 values, got %d", len(values))
	}
	sqrt, err := asBigInt(values[0])
	if err != nil {
		return nil, 0, fmt.Errorf("slot0 sqrt price: %w", err)
	}
	tick, err := asInt24(values[1])
	if err != nil {
		return nil, 0, fmt.Errorf("slot0 tick: %w", err)
	}
	return sqrt, tick, nil
}

func (r *PoolReader) Liquidity(ctx context.Context, pool common.Address) (*big.Int, error) {
	poolABI, err := V3PoolABI()
	if err != nil {
		return nil, fmt.Errorf("parse pool abi: %w", err)
	}
	values, err := callMethod(ctx, r.caller, pool, poolABI, "liquidity")
	if err != nil {
		return nil, err
	}
	return asBigInt(values[0])
}

// State reads slot0 and in-range liquidity. A liquidity failure is logged and
// leaves Liquidity nil; slot0 is required.
func (r *PoolReader) State(ctx context.Context, pool common.Address) (position.PoolState, error) {
	sqrt, tick, err := r.Slot0(ctx, pool)
	if err != nil {
		return position.PoolState{}, err
	}
	state := position.PoolState{SqrtPriceX96: sqrt, Tick: tick}
	if liq, err := r.Liquidity(ctx, pool); err == nil {
		state.Liquidity = liq
	} else {
		r.logger.Debug("liquidity call failed", zap.String("pool", pool.Hex()), zap.Error(err))
	}
	return state, nil
}

// CurrentPrice returns nil without error for an uninitialized pool.
func (r *PoolReader) CurrentPrice(ctx context.Context, pool common.Address, decimals0, decimals1 uint8) (*PricePair, error) {
	sqrt, _, err := r.Slot0(ctx, pool)
	if err != nil {
		return nil, err
	}
	return PriceFromSqrt(sqrt, decimals0, decimals1)
}

// PriceFromSqrt converts a slot0 sqrt price into both price orientations.
func PriceFromSqrt(sqrtPriceX96 *big.Int, decimals0, decimals1 uint8) (*PricePair, error) {
	if sqrtPriceX96 == nil || sqrtPriceX96.Sign() == 0 {
		return nil, nil
	}
	price, err := v3math.SqrtPriceX96ToPrice(sqrtPriceX96, decimals0, decimals1)
	if err != nil {
		return nil, err
	}
	pair := &PricePair{Token1PerToken0: price}
	if price > 0 {
		pair.Token0PerToken1 = 1 / price
	}
	return pair, nil
}
