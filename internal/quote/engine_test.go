package quote

import (
	"context"
	"errors"
	"math/big"
	"sync"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"liquidityDesk/internal/metrics"
	"liquidityDesk/internal/token"
)

var (
	wethAddr = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdcAddr = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")

	eth  = token.Native(1, "ETH")
	weth = token.Token{Address: wethAddr, Symbol: "WETH", Decimals: 18, ChainID: 1}
	usdc = token.Token{Address: usdcAddr, Symbol: "USDC", Decimals: 6, ChainID: 1}
)

// fakeOracle returns amount*2 for exact input and amount*3 for exact output.
// Amounts listed in gates block until their channel closes or ctx ends.
type fakeOracle struct {
	mu    sync.Mutex
	calls []string
	err   error
	gates map[string]chan struct{}
}

func (f *fakeOracle) record(amount *big.Int) (chan struct{}, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.calls = append(f.calls, amount.String())
	return f.gates[amount.String()], f.err
}

func (f *fakeOracle) wait(ctx context.Context, gate chan struct{}) error {
	if gate == nil {
		return nil
	}
	select {
	case <-gate:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (f *fakeOracle) QuoteExactInputSingle(ctx context.Context, _, _ common.Address, _ uint32, amountIn *big.Int) (*big.Int, error) {
	gate, err := f.record(amountIn)
	if err := f.wait(ctx, gate); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return new(big.Int).Mul(amountIn, big.NewInt(2)), nil
}

func (f *fakeOracle) QuoteExactOutputSingle(ctx context.Context, _, _ common.Address, _ uint32, amountOut *big.Int) (*big.Int, error) {
	gate, err := f.record(amountOut)
	if err := f.wait(ctx, gate); err != nil {
		return nil, err
	}
	if err != nil {
		return nil, err
	}
	return new(big.Int).Mul(amountOut, big.NewInt(3)), nil
}

func (f *fakeOracle) callCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.calls)
}

func (f *fakeOracle) lastCall() string {
	f.mu.Lock()
	defer f.mu.Unlock()
	if len(f.calls) == 0 {
		return ""
	}
	return f.calls[len(f.calls)-1]
}

type fixedSpot float64

func (s fixedSpot) SpotPrice(context.Context, token.Token, token.Token, uint32) (float64, error) {
	return float64(s), nil
}

func newTestEngine(oracle Oracle, spot SpotSource) *Engine {
	return NewEngine(oracle, spot, EngineConfig{WrappedNative: wethAddr, CacheTTL: time.Minute}, nil)
}

func TestEngineSameTokenShortCircuit(t *testing.T) {
	oracle := &fakeOracle{}
	engine := newTestEngine(oracle, nil)

	amount := big.NewInt(1_500_000_000_000_000_000)
	q, err := engine.Quote(context.Background(), Request{
		TokenIn:         eth,
		TokenOut:        weth,
		Fee:             3000,
		Amount:          amount,
		SlippagePercent: 0.5,
	})
	require.NoError(t, err)
	assert.True(t, q.SameToken)
	assert.Equal(t, 0, q.AmountOut.Cmp(amount))
	assert.Zero(t, q.PriceImpact)
	assert.False(t, q.HighImpact)
	assert.Zero(t, oracle.callCount(), "oracle must not be called for a wrapped self-swap")
}

func TestEngineExactInput(t *testing.T) {
	oracle := &fakeOracle{}
	engine := newTestEngine(oracle, nil)

	q, err := engine.Quote(context.Background(), Request{
		TokenIn:         usdc,
		TokenOut:        weth,
		Fee:             500,
		Amount:          big.NewInt(500_000),
		SlippagePercent: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(1_000_000), q.AmountOut.Int64())
	assert.Equal(t, int64(50), q.SlippageBps)
	assert.Equal(t, int64(995_000), q.MinimumOut().Int64())
	assert.Equal(t, 0, q.Derived().Cmp(q.AmountOut))
	assert.False(t, q.Cached)
	assert.Equal(t, []string{"USDC", "WETH"}, q.Route)

	again, err := engine.Quote(context.Background(), Request{
		TokenIn:         usdc,
		TokenOut:        weth,
		Fee:             500,
		Amount:          big.NewInt(500_000),
		SlippagePercent: 1,
	})
	require.NoError(t, err)
	assert.True(t, again.Cached)
	assert.Equal(t, 1, oracle.callCount())
	assert.Equal(t, int64(990_000), again.MinimumOut().Int64(), "bound follows the new tolerance")
}

func TestEngineExactOutput(t *testing.T) {
	oracle := &fakeOracle{}
	engine := newTestEngine(oracle, nil)

	q, err := engine.Quote(context.Background(), Request{
		TokenIn:         usdc,
		TokenOut:        weth,
		Fee:             3000,
		Amount:          big.NewInt(1_000_000),
		Direction:       ExactOutput,
		SlippagePercent: 0.5,
	})
	require.NoError(t, err)
	assert.Equal(t, int64(3_000_000), q.AmountIn.Int64())
	assert.Equal(t, int64(3_015_000), q.MaximumIn().Int64())
	assert.Equal(t, 0, q.Derived().Cmp(q.AmountIn))
	// Tolerance is a percent in both directions: 0.5% gives 0.005/0.995.
	assert.InDelta(t, 0.5025, q.PriceImpact, 1e-3)
}

func TestEngineSpotImpact(t *testing.T) {
	oracle := &fakeOracle{}
	// Spot says one USDC buys 2.1e-12 WETH; the fake oracle yields 2e-12.
	engine := newTestEngine(oracle, fixedSpot(2.1e-12))

	q, err := engine.Quote(context.Background(), Request{
		TokenIn:         usdc,
		TokenOut:        weth,
		Fee:             3000,
		Amount:          big.NewInt(1_000_000),
		SlippagePercent: 0.5,
	})
	require.NoError(t, err)
	assert.InDelta(t, 4.76, q.PriceImpact, 0.01)
	assert.True(t, q.HighImpact)
}

func TestEngineUnavailable(t *testing.T) {
	oracle := &fakeOracle{err: errors.New("execution reverted")}
	engine := newTestEngine(oracle, nil)

	_, err := engine.Quote(context.Background(), Request{
		TokenIn:  usdc,
		TokenOut: weth,
		Fee:      3000,
		Amount:   big.NewInt(10),
	})
	assert.ErrorIs(t, err, ErrQuoteUnavailable)

	_, err = NewEngine(nil, nil, EngineConfig{}, nil).Quote(context.Background(), Request{
		TokenIn:  usdc,
		TokenOut: weth,
		Amount:   big.NewInt(10),
	})
	assert.ErrorIs(t, err, ErrQuoteUnavailable)
}

func TestEngineEmptyAmount(t *testing.T) {
	oracle := &fakeOracle{}
	engine := newTestEngine(oracle, nil)
	for _, amount := range []*big.Int{nil, big.NewInt(0), big.NewInt(-3)} {
		_, err := engine.Quote(context.Background(), Request{TokenIn: usdc, TokenOut: weth, Amount: amount})
		assert.ErrorIs(t, err, ErrEmptyAmount)
	}
	assert.Zero(t, oracle.callCount())
}

func TestEnginePurge(t *testing.T) {
	oracle := &fakeOracle{}
	engine := newTestEngine(oracle, nil)
	req := Request{TokenIn: usdc, TokenOut: weth, Fee: 500, Amount: big.NewInt(7)}

	_, err := engine.Quote(context.Background(), req)
	require.NoError(t, err)
	engine.Purge()
	q, err := engine.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, q.Cached)
	assert.Equal(t, 2, oracle.callCount())
}

func TestEngineCacheExpires(t *testing.T) {
	oracle := &fakeOracle{}
	engine := NewEngine(oracle, nil, EngineConfig{WrappedNative: wethAddr, CacheTTL: 50 * time.Millisecond}, nil)
	req := Request{TokenIn: usdc, TokenOut: weth, Fee: 500, Amount: big.NewInt(11)}

	first, err := engine.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, first.Cached)

	time.Sleep(80 * time.Millisecond)
	second, err := engine.Quote(context.Background(), req)
	require.NoError(t, err)
	assert.False(t, second.Cached, "expired entries are re-quoted")
	assert.Equal(t, 2, oracle.callCount())
}

func TestEngineCancelledIsNotUnavailable(t *testing.T) {
	oracle := &fakeOracle{gates: map[string]chan struct{}{"13": make(chan struct{})}}
	core, logs := observer.New(zap.DebugLevel)
	engine := NewEngine(oracle, nil, EngineConfig{WrappedNative: wethAddr, CacheTTL: time.Minute}, zap.New(core))
	unavailable := metrics.QuoteRequests.WithLabelValues("exact_input", "unavailable")
	before := counterValue(t, unavailable)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := engine.Quote(ctx, Request{TokenIn: usdc, TokenOut: weth, Fee: 500, Amount: big.NewInt(13)})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, before, counterValue(t, unavailable))
	assert.Zero(t, logs.FilterMessage("quote unavailable").Len())
}

func counterValue(t *testing.T, c prometheus.Counter) float64 {
	t.Helper()
	var m dto.Metric
	require.NoError(t, c.Write(&m))
	return m.GetCounter().GetValue()
}
