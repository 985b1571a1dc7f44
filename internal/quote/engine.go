package quote

import (
	"context"
	"errors"
	"fmt"
	"math/big"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"go.uber.org/zap"

	"liquidityDesk/internal/metrics"
	"liquidityDesk/internal/token"
)

const DefaultHighImpactThreshold = 3.0

// EngineConfig carries the per-network and policy inputs of an Engine.
type EngineConfig struct {
	WrappedNative       common.Address
	CacheTTL            time.Duration
	HighImpactThreshold float64
}

// Engine resolves single quotes: normalization, same-token short-circuit,
// cache, oracle call, slippage bound and price impact.
type Engine struct {
	oracle    Oracle
	spot      SpotSource
	norm      token.Normalizer
	cache     *Cache
	threshold float64
	logger    *zap.Logger
}

// NewEngine builds an Engine. spot may be nil, in which case price impact falls
// back to the slippage-adjusted expectation.
func NewEngine(oracle Oracle, spot SpotSource, cfg EngineConfig, logger *zap.Logger) *Engine {
	if logger == nil {
		logger = zap.NewNop()
	}
	threshold := cfg.HighImpactThreshold
	if threshold <= 0 {
		threshold = DefaultHighImpactThreshold
	}
	return &Engine{
		oracle:    oracle,
		spot:      spot,
		norm:      token.Normalizer{Wrapped: cfg.WrappedNative},
		cache:     NewCache(cfg.CacheTTL),
		threshold: threshold,
		logger:    logger,
	}
}

// Purge clears cached quotes. Call on pair change, fee change and refresh.
func (e *Engine) Purge() {
	e.cache.Purge()
}

// Quote resolves req. Oracle failures come back wrapped in ErrQuoteUnavailable;
// a cancelled ctx is returned without being counted or logged.
func (e *Engine) Quote(ctx context.Context, req Request) (Quote, error) {
	dir := req.Direction.String()
	if req.Amount == nil || req.Amount.Sign() <= 0 {
		metrics.QuoteRequests.WithLabelValues(dir, "invalid").Inc()
		return Quote{}, ErrEmptyAmount
	}
	bps, err := SlippageBps(req.SlippagePercent)
	if err != nil {
		metrics.QuoteRequests.WithLabelValues(dir, "invalid").Inc()
		return Quote{}, fmt.Errorf("slippage: %w", err)
	}

	in := e.norm.Address(req.TokenIn.Address)
	out := e.norm.Address(req.TokenOut.Address)
	key := cacheKey{tokenIn: in, tokenOut: out, amount: req.Amount.String(), fee: req.Fee, direction: req.Direction}

	if ent, ok := e.cache.get(key); ok {
		e.logger.Debug("quote cache hit", zap.String("tokenIn", in.Hex()), zap.String("tokenOut", out.Hex()), zap.String("amount", key.amount))
		q, err := e.build(req, ent, bps)
		q.Cached = true
		return q, err
	}

	if in == out {
		ent := entry{derived: new(big.Int).Set(req.Amount), sameToken: true}
		e.cache.add(key, ent)
		metrics.QuoteRequests.WithLabelValues(dir, "same_token").Inc()
		return e.build(req, ent, bps)
	}

	derived, err := e.callOracle(ctx, req.Direction, in, out, req.Fee, req.Amount)
	if err != nil {
		if errors.Is(err, context.Canceled) {
			return Quote{}, err
		}
		metrics.QuoteRequests.WithLabelValues(dir, "unavailable").Inc()
		e.logger.Warn("quote unavailable",
			zap.String("tokenIn", in.Hex()),
			zap.String("tokenOut", out.Hex()),
			zap.Uint32("fee", req.Fee),
			zap.String("direction", dir),
			zap.Error(err),
		)
		return Quote{}, err
	}

	ent := entry{derived: derived}
	if e.spot != nil {
		spot, err := e.spot.SpotPrice(ctx, req.TokenIn, req.TokenOut, req.Fee)
		if err != nil {
			e.logger.Debug("spot price unavailable, using slippage expectation", zap.Error(err))
		} else {
			ent.spot = spot
		}
	}

	e.cache.add(key, ent)
	metrics.QuoteRequests.WithLabelValues(dir, "resolved").Inc()
	return e.build(req, ent, bps)
}

func (e *Engine) callOracle(ctx context.Context, dir Direction, in, out common.Address, fee uint32, amount *big.Int) (*big.Int, error) {
	if e.oracle == nil {
		return nil, fmt.Errorf("%w: no oracle configured", ErrQuoteUnavailable)
	}

	start := time.Now()
	var (
		derived *big.Int
		err     error
	)
	if dir == ExactOutput {
		derived, err = e.oracle.QuoteExactOutputSingle(ctx, in, out, fee, amount)
	} else {
		derived, err = e.oracle.QuoteExactInputSingle(ctx, in, out, fee, amount)
	}
	metrics.OracleLatency.WithLabelValues(dir.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		return nil, fmt.Errorf("%w: %w", ErrQuoteUnavailable, err)
	}
	if derived == nil || derived.Sign() <= 0 {
		return nil, fmt.Errorf("%w: oracle returned no amount", ErrQuoteUnavailable)
	}
	return derived, nil
}

func (e *Engine) build(req Request, ent entry, bps int64) (Quote, error) {
	q := Quote{
		Direction:   req.Direction,
		TokenIn:     req.TokenIn.Address.Hex(),
		TokenOut:    req.TokenOut.Address.Hex(),
		Fee:         req.Fee,
		SlippageBps: bps,
		Route:       []string{req.TokenIn.Symbol, req.TokenOut.Symbol},
		SameToken:   ent.sameToken,
	}

	var err error
	if req.Direction == ExactOutput {
		q.AmountOut = new(big.Int).Set(req.Amount)
		q.AmountIn = new(big.Int).Set(ent.derived)
		q.Bound, err = MaximumIn(q.AmountIn, bps)
	} else {
		q.AmountIn = new(big.Int).Set(req.Amount)
		q.AmountOut = new(big.Int).Set(ent.derived)
		q.Bound, err = MinimumOut(q.AmountOut, bps)
	}
	if err != nil {
		return Quote{}, err
	}

	if !ent.sameToken {
		q.PriceImpact = e.priceImpact(req, q, ent.spot, bps)
	}
	q.HighImpact = q.PriceImpact > e.threshold
	return q, nil
}

// priceImpact is a display estimate. With a spot price it is the shortfall of
// the quoted output against spot. Without one it is the deviation of the quoted
// amount from its slippage-adjusted expectation, with tolerance read as a
// percent in both directions.
func (e *Engine) priceImpact(req Request, q Quote, spot float64, bps int64) float64 {
	if spot > 0 {
		in := token.ToDecimal(q.AmountIn, req.TokenIn.Decimals).InexactFloat64()
		out := token.ToDecimal(q.AmountOut, req.TokenOut.Decimals).InexactFloat64()
		expected := in * spot
		if expected <= 0 {
			return 0
		}
		return clampImpact((expected - out) / expected * 100)
	}

	frac := float64(bps) / bpsDenominator
	if frac >= 1 {
		return 100
	}
	actual := token.ToDecimal(q.Derived(), 0).InexactFloat64()
	expected := actual * (1 - frac)
	if expected <= 0 {
		return 0
	}
	return clampImpact((actual - expected) / expected * 100)
}

func clampImpact(v float64) float64 {
	if v < 0 {
		return 0
	}
	if v > 100 {
		return 100
	}
	return v
}
