package txparams

import (
	"math/big"
	"testing"
	"time"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityDesk/internal/quote"
	"liquidityDesk/internal/token"
	"liquidityDesk/internal/v3math"
)

var (
	wethAddr  = common.HexToAddress("0xC02aaA39b223FE8D0A0e5C4F27eAD9083C756Cc2")
	usdcAddr  = common.HexToAddress("0xA0b86991c6218b36c1d19D4a2e9Eb0cE3606eB48")
	recipient = common.HexToAddress("0x1111111111111111111111111111111111111111")

	eth  = token.Native(1, "ETH")
	weth = token.Token{Address: wethAddr, Symbol: "WETH", Decimals: 18}
	usdc = token.Token{Address: usdcAddr, Symbol: "USDC", Decimals: 6}

	fixedNow = time.Unix(1_700_000_000, 0)
)

func testBuilder() Builder {
	b := NewBuilder(wethAddr, 0, 0)
	b.Now = func() time.Time { return fixedNow }
	return b
}

func TestSwapExactInputUsesMinimum(t *testing.T) {
	q := quote.Quote{
		Direction: quote.ExactInput,
		Fee:       3000,
		AmountIn:  big.NewInt(1_000),
		AmountOut: big.NewInt(1_000_000),
		Bound:     big.NewInt(995_000),
	}
	p, err := testBuilder().Swap(eth, usdc, q, recipient)
	require.NoError(t, err)

	in, ok := p.(ExactInputSingle)
	require.True(t, ok)
	assert.Equal(t, wethAddr, in.TokenIn, "native input goes through the wrapped token")
	assert.Equal(t, int64(995_000), in.AmountOutMinimum.Int64())
	assert.Equal(t, int64(1_000), in.NativeValue().Int64())
	assert.Equal(t, uint64(fixedNow.Add(30*time.Minute).Unix()), in.Deadline)
	assert.Equal(t, SwapRouter, in.Target())
	assert.Equal(t, "exactInputSingle", in.Method())
}

func TestSwapExactOutputUsesMaximum(t *testing.T) {
	q := quote.Quote{
		Direction: quote.ExactOutput,
		Fee:       500,
		AmountIn:  big.NewInt(2_000),
		AmountOut: big.NewInt(5),
		Bound:     big.NewInt(2_010),
	}
	p, err := testBuilder().Swap(usdc, weth, q, recipient)
	require.NoError(t, err)

	out, ok := p.(ExactOutputSingle)
	require.True(t, ok)
	assert.Equal(t, int64(2_010), out.AmountInMaximum.Int64())
	assert.Zero(t, out.NativeValue().Sign())

	_, err = testBuilder().Swap(usdc, weth, quote.Quote{}, recipient)
	assert.ErrorIs(t, err, ErrInvalidParams)
}

func TestMintSortsAndAppliesSlippage(t *testing.T) {
	m, err := testBuilder().Mint(MintRequest{
		TokenA:      eth,
		TokenB:      usdc,
		Fee:         3000,
		TickLower:   -600,
		TickUpper:   600,
		TickSpacing: 60,
		AmountA:     big.NewInt(1_000_000),
		AmountB:     big.NewInt(2_000),
		SlippageBps: 50,
		Recipient:   recipient,
	})
	require.NoError(t, err)

	// USDC sorts below WETH.
	assert.Equal(t, usdcAddr, m.Token0)
	assert.Equal(t, wethAddr, m.Token1)
	assert.Equal(t, int64(2_000), m.Amount0Desired.Int64())
	assert.Equal(t, int64(1_000_000), m.Amount1Desired.Int64())
	assert.Equal(t, int64(1_990), m.Amount0Min.Int64())
	assert.Equal(t, int64(995_000), m.Amount1Min.Int64())
	assert.Equal(t, int64(1_000_000), m.NativeValue().Int64(), "value is the native side's amount")
}

func TestMintRejectsBadTicks(t *testing.T) {
	req := MintRequest{
		TokenA: usdc, TokenB: weth, Fee: 3000, TickSpacing: 60,
		AmountA: big.NewInt(1), AmountB: big.NewInt(1),
	}

	req.TickLower, req.TickUpper = 60, 60
	_, err := testBuilder().Mint(req)
	assert.ErrorIs(t, err, v3math.ErrDegenerateRange)

	req.TickLower, req.TickUpper = -61, 60
	_, err = testBuilder().Mint(req)
	assert.ErrorIs(t, err, ErrInvalidParams)

	req.TickLower, req.TickUpper = -887280, 60
	_, err = testBuilder().Mint(req)
	assert.ErrorIs(t, err, v3math.ErrArithmetic)

	req.TokenA, req.TickLower = eth, -60
	_, err = testBuilder().Mint(req)
	assert.ErrorIs(t, err, ErrInvalidParams, "ETH and WETH are the same pool token")
}

func TestDecreaseBounds(t *testing.T) {
	b := testBuilder()
	_, err := b.Decrease(big.NewInt(1), big.NewInt(0), nil, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)

	tooBig := new(big.Int).Lsh(big.NewInt(1), 128)
	_, err = b.Decrease(big.NewInt(1), tooBig, nil, nil)
	assert.ErrorIs(t, err, ErrInvalidParams)

	d, err := b.Decrease(big.NewInt(7), MaxUint128.ToBig(), nil, big.NewInt(3))
	require.NoError(t, err)
	assert.Zero(t, d.Amount0Min.Sign())
	assert.Equal(t, int64(3), d.Amount1Min.Int64())
}

func TestCollectUsesMaxUint128(t *testing.T) {
	c, err := testBuilder().Collect(big.NewInt(9), recipient)
	require.NoError(t, err)
	want := new(big.Int).Sub(new(big.Int).Lsh(big.NewInt(1), 128), big.NewInt(1))
	assert.Equal(t, 0, c.Amount0Max.Cmp(want))
	assert.Equal(t, 0, c.Amount1Max.Cmp(want))
}

func TestIncreaseNativeValue(t *testing.T) {
	inc, err := testBuilder().Increase(big.NewInt(1), big.NewInt(100), big.NewInt(200), 0, false, true)
	require.NoError(t, err)
	assert.Equal(t, int64(200), inc.NativeValue().Int64())
	assert.Equal(t, int64(100), inc.Amount0Min.Int64())
}

func TestDeadlinesAreFreshPerBuild(t *testing.T) {
	now := fixedNow
	b := testBuilder()
	b.Now = func() time.Time { return now }

	d1, err := b.Decrease(big.NewInt(1), big.NewInt(1), nil, nil)
	require.NoError(t, err)
	now = now.Add(time.Minute)
	d2, err := b.Decrease(big.NewInt(1), big.NewInt(1), nil, nil)
	require.NoError(t, err)
	assert.Equal(t, d1.Deadline+60, d2.Deadline)
}

func TestCreatePoolPricesFromDesiredAmounts(t *testing.T) {
	req := MintRequest{
		TokenA: eth, TokenB: usdc, Fee: 500, TickLower: -10, TickUpper: 10, TickSpacing: 10,
		AmountA: big.NewInt(1), AmountB: big.NewInt(4),
	}
	p, err := testBuilder().CreatePool(req)
	require.NoError(t, err)

	// USDC is token0 with 4 units against 1 unit of WETH: price 1/4, sqrt 1/2.
	assert.Equal(t, usdcAddr, p.Token0)
	assert.Equal(t, wethAddr, p.Token1)
	assert.Equal(t, uint32(500), p.Fee)
	assert.Equal(t, 0, p.SqrtPriceX96.Cmp(new(big.Int).Rsh(v3math.Q96, 1)))
	assert.Equal(t, "createAndInitializePoolIfNecessary", p.Method())
	assert.Zero(t, p.NativeValue().Sign())

	req.AmountB = new(big.Int)
	_, err = testBuilder().CreatePool(req)
	assert.ErrorIs(t, err, ErrInvalidParams, "a one-sided deposit cannot price a new pool")
}
