package position

import (
	"context"
	"errors"
	"fmt"
	"math/big"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityDesk/internal/quote"
	"liquidityDesk/internal/token"
	"liquidityDesk/internal/txparams"
	"liquidityDesk/internal/v3math"
)

var ErrNotBurnable = errors.New("position still holds liquidity or owed tokens")

// Executor signs and submits parameter structs. It lives outside this module.
type Executor interface {
	Submit(ctx context.Context, p txparams.Params) (Tx, error)
}

// Tx is a submitted transaction. Wait resolves once it is confirmed or failed.
type Tx interface {
	Hash() common.Hash
	Wait(ctx context.Context) error
}

// TransactionError carries the executor's reason verbatim.
type TransactionError struct {
	Op     string
	Reason string
	Err    error
}

func (e *TransactionError) Error() string {
	return fmt.Sprintf("%s failed: %s", e.Op, e.Reason)
}

func (e *TransactionError) Unwrap() error { return e.Err }

// Result is one confirmed transaction.
type Result struct {
	Op     string          `json:"op"`
	Hash   common.Hash     `json:"hash"`
	Params txparams.Params `json:"params"`
}

// Manager builds mutating calls and pushes them through an Executor. Failed
// transactions are reported, never retried.
type Manager struct {
	exec    Executor
	builder txparams.Builder
	gate    *Gate
	logger  *zap.Logger
}

func NewManager(exec Executor, builder txparams.Builder, gate *Gate, logger *zap.Logger) *Manager {
	if gate == nil {
		gate = NewGate()
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Manager{exec: exec, builder: builder, gate: gate, logger: logger}
}

// Swap submits a swap built from a resolved quote.
func (m *Manager) Swap(ctx context.Context, tokenIn, tokenOut token.Token, q quote.Quote, recipient common.Address) (Result, error) {
	release, err := m.gate.Acquire("swap:"+recipient.Hex(), "swap")
	if err != nil {
		return Result{}, err
	}
	defer release()

	p, err := m.builder.Swap(tokenIn, tokenOut, q, recipient)
	if err != nil {
		return Result{}, fmt.Errorf("build swap: %w", err)
	}
	return m.submit(ctx, "swap", p)
}

// Mint opens a new position.
func (m *Manager) Mint(ctx context.Context, req txparams.MintRequest) (Result, error) {
	p, err := m.builder.Mint(req)
	if err != nil {
		return Result{}, fmt.Errorf("build mint: %w", err)
	}
	key := fmt.Sprintf("mint:%s-%s-%d", p.Token0.Hex(), p.Token1.Hex(), p.Fee)
	release, err := m.gate.Acquire(key, "mint")
	if err != nil {
		return Result{}, err
	}
	defer release()
	return m.submit(ctx, "mint", p)
}

// CreateAndMint initializes a missing pool at the price implied by the desired
// amounts and then mints into it. The mint is skipped if initialization fails.
func (m *Manager) CreateAndMint(ctx context.Context, req txparams.MintRequest) ([]Result, error) {
	create, err := m.builder.CreatePool(req)
	if err != nil {
		return nil, fmt.Errorf("build pool initialization: %w", err)
	}
	mint, err := m.builder.Mint(req)
	if err != nil {
		return nil, fmt.Errorf("build mint: %w", err)
	}
	key := fmt.Sprintf("mint:%s-%s-%d", mint.Token0.Hex(), mint.Token1.Hex(), mint.Fee)
	release, err := m.gate.Acquire(key, "mint")
	if err != nil {
		return nil, err
	}
	defer release()

	created, err := m.submit(ctx, "create-pool", create)
	if err != nil {
		return nil, err
	}
	minted, err := m.submit(ctx, "mint", mint)
	if err != nil {
		return []Result{created}, err
	}
	return []Result{created, minted}, nil
}

// Increase adds amounts in pool order to an existing position. When payNative
// is set, the wrapped side is paid in the gas asset.
func (m *Manager) Increase(ctx context.Context, pos Position, amount0, amount1 *big.Int, slippageBps int64, payNative bool) (Result, error) {
	release, err := m.gate.Acquire(pos.Key(), "increase")
	if err != nil {
		return Result{}, err
	}
	defer release()

	wrapped := m.builder.Normalizer.Wrapped
	native0 := payNative && pos.Token0.Address == wrapped
	native1 := payNative && pos.Token1.Address == wrapped
	p, err := m.builder.Increase(pos.TokenID, amount0, amount1, slippageBps, native0, native1)
	if err != nil {
		return Result{}, fmt.Errorf("build increase: %w", err)
	}
	return m.submit(ctx, "increase", p)
}

// Decrease removes percent of the position's liquidity. Minimums are the
// expected amounts at the live price less slippage.
func (m *Manager) Decrease(ctx context.Context, pos Position, pool PoolState, percent int, slippageBps int64) (Result, error) {
	release, err := m.gate.Acquire(pos.Key(), "decrease")
	if err != nil {
		return Result{}, err
	}
	defer release()
	return m.decrease(ctx, pos, pool, percent, slippageBps)
}

func (m *Manager) Collect(ctx context.Context, pos Position, recipient common.Address) (Result, error) {
	release, err := m.gate.Acquire(pos.Key(), "collect")
	if err != nil {
		return Result{}, err
	}
	defer release()
	return m.collect(ctx, pos, recipient)
}

// Remove decreases then collects under one gate hold. The collect is skipped
// if the decrease fails.
func (m *Manager) Remove(ctx context.Context, pos Position, pool PoolState, percent int, slippageBps int64, recipient common.Address) ([]Result, error) {
	release, err := m.gate.Acquire(pos.Key(), "decrease")
	if err != nil {
		return nil, err
	}
	defer release()

	dec, err := m.decrease(ctx, pos, pool, percent, slippageBps)
	if err != nil {
		return nil, err
	}
	col, err := m.collect(ctx, pos, recipient)
	if err != nil {
		return []Result{dec}, err
	}
	return []Result{dec, col}, nil
}

// Burn destroys an empty position NFT.
func (m *Manager) Burn(ctx context.Context, pos Position) (Result, error) {
	if !pos.Burnable() {
		return Result{}, fmt.Errorf("burn %s: %w", pos.Key(), ErrNotBurnable)
	}
	release, err := m.gate.Acquire(pos.Key(), "burn")
	if err != nil {
		return Result{}, err
	}
	defer release()

	p, err := m.builder.Burn(pos.TokenID)
	if err != nil {
		return Result{}, fmt.Errorf("build burn: %w", err)
	}
	return m.submit(ctx, "burn", p)
}

func (m *Manager) decrease(ctx context.Context, pos Position, pool PoolState, percent int, slippageBps int64) (Result, error) {
	delta, err := LiquidityForPercent(pos.Liquidity, percent)
	if err != nil {
		return Result{}, fmt.Errorf("liquidity delta: %w", err)
	}
	if pool.SqrtPriceX96 == nil || pool.SqrtPriceX96.Sign() == 0 {
		return Result{}, fmt.Errorf("%w: pool is not initialized", v3math.ErrArithmetic)
	}
	sqrtLower, sqrtUpper, err := pos.SqrtBounds()
	if err != nil {
		return Result{}, err
	}
	expected0, expected1, err := v3math.AmountsFromLiquidity(delta, pool.SqrtPriceX96, sqrtLower, sqrtUpper)
	if err != nil {
		return Result{}, fmt.Errorf("expected amounts: %w", err)
	}
	min0, err := quote.MinimumOut(expected0, slippageBps)
	if err != nil {
		return Result{}, err
	}
	min1, err := quote.MinimumOut(expected1, slippageBps)
	if err != nil {
		return Result{}, err
	}

	p, err := m.builder.Decrease(pos.TokenID, delta, min0, min1)
	if err != nil {
		return Result{}, fmt.Errorf("build decrease: %w", err)
	}
	return m.submit(ctx, "decrease", p)
}

func (m *Manager) collect(ctx context.Context, pos Position, recipient common.Address) (Result, error) {
	p, err := m.builder.Collect(pos.TokenID, recipient)
	if err != nil {
		return Result{}, fmt.Errorf("build collect: %w", err)
	}
	return m.submit(ctx, "collect", p)
}

func (m *Manager) submit(ctx context.Context, op string, p txparams.Params) (Result, error) {
	if m.exec == nil {
		return Result{}, &TransactionError{Op: op, Reason: "no executor configured"}
	}
	tx, err := m.exec.Submit(ctx, p)
	if err != nil {
		m.logger.Warn("transaction submit failed", zap.String("op", op), zap.Error(err))
		return Result{}, &TransactionError{Op: op, Reason: err.Error(), Err: err}
	}
	if err := tx.Wait(ctx); err != nil {
		m.logger.Warn("transaction failed", zap.String("op", op), zap.String("hash", tx.Hash().Hex()), zap.Error(err))
		return Result{}, &TransactionError{Op: op, Reason: err.Error(), Err: err}
	}
	m.logger.Info("transaction confirmed", zap.String("op", op), zap.String("hash", tx.Hash().Hex()))
	return Result{Op: op, Hash: tx.Hash(), Params: p}, nil
}
