package position

import (
	"math"
	"math/big"
	"testing"

	"github.com/ethereum/go-ethereum/common"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityDesk/internal/token"
	"liquidityDesk/internal/v3math"
)

var (
	tokenA = token.Token{Address: common.HexToAddress("0x00000000000000000000000000000000000000aa"), Symbol: "A", Decimals: 18}
	tokenB = token.Token{Address: common.HexToAddress("0x00000000000000000000000000000000000000bb"), Symbol: "B", Decimals: 18}
	ether  = new(big.Int).Exp(big.NewInt(10), big.NewInt(18), nil)
)

func sqrtAt(t *testing.T, tick int) *big.Int {
	t.Helper()
	v, err := v3math.TickToSqrtPriceX96(tick)
	require.NoError(t, err)
	return v
}

func testPosition() Position {
	return Position{
		TokenID:     big.NewInt(42),
		Owner:       common.HexToAddress("0x1111111111111111111111111111111111111111"),
		Token0:      tokenA,
		Token1:      tokenB,
		Fee:         3000,
		TickLower:   -600,
		TickUpper:   600,
		Liquidity:   new(big.Int).Set(ether),
		TokensOwed0: big.NewInt(5),
		TokensOwed1: new(big.Int),
	}
}

func TestRangeMembershipIsHalfOpen(t *testing.T) {
	assert.True(t, IsInRange(0, 0, 60))
	assert.True(t, IsInRange(59, 0, 60))
	assert.False(t, IsInRange(60, 0, 60))
	assert.False(t, IsInRange(-1, 0, 60))

	assert.Equal(t, Below, SideOf(-1, 0, 60))
	assert.Equal(t, InRange, SideOf(0, 0, 60))
	assert.Equal(t, Above, SideOf(60, 0, 60))
}

func TestBurnable(t *testing.T) {
	p := testPosition()
	assert.False(t, p.Burnable())

	p.Liquidity = new(big.Int)
	assert.False(t, p.Burnable(), "owed tokens must be collected first")

	p.TokensOwed0 = nil
	assert.True(t, p.Burnable())
}

func TestDeriveInRange(t *testing.T) {
	v, err := Derive(testPosition(), PoolState{SqrtPriceX96: new(big.Int).Set(v3math.Q96), Tick: 0})
	require.NoError(t, err)

	assert.Equal(t, "42", v.TokenID)
	assert.True(t, v.InRange)
	assert.Equal(t, InRange, v.Side)
	assert.InDelta(t, 1.0, v.CurrentPrice, 1e-12)
	assert.InDelta(t, math.Pow(1.0001, -600), v.PriceLower, 1e-9)
	assert.InDelta(t, math.Pow(1.0001, 600), v.PriceUpper, 1e-9)
	assert.Positive(t, v.Amount0.Sign())
	assert.Positive(t, v.Amount1.Sign())
	assert.Equal(t, "0.000000000000000005", v.UncollectedFees0)
	assert.Equal(t, "0", v.UncollectedFees1)
	assert.False(t, v.Burnable)
}

func TestDeriveAboveRangeIsAllToken1(t *testing.T) {
	v, err := Derive(testPosition(), PoolState{SqrtPriceX96: sqrtAt(t, 700), Tick: 700})
	require.NoError(t, err)

	assert.False(t, v.InRange)
	assert.Equal(t, Above, v.Side)
	assert.Zero(t, v.Amount0.Sign())
	assert.Positive(t, v.Amount1.Sign())
}

func TestDeriveUpperTickIsOutOfRange(t *testing.T) {
	v, err := Derive(testPosition(), PoolState{SqrtPriceX96: sqrtAt(t, 600), Tick: 600})
	require.NoError(t, err)
	assert.False(t, v.InRange)
	assert.Equal(t, Above, v.Side)
}

func TestDeriveRejectsUninitializedPool(t *testing.T) {
	_, err := Derive(testPosition(), PoolState{SqrtPriceX96: new(big.Int)})
	assert.ErrorIs(t, err, v3math.ErrArithmetic)

	p := testPosition()
	p.TickLower = p.TickUpper
	_, err = Derive(p, PoolState{SqrtPriceX96: v3math.Q96})
	assert.ErrorIs(t, err, v3math.ErrDegenerateRange)
}

func TestLiquidityForPercent(t *testing.T) {
	got, err := LiquidityForPercent(big.NewInt(1000), 25)
	require.NoError(t, err)
	assert.Equal(t, int64(250), got.Int64())

	got, err = LiquidityForPercent(big.NewInt(999), 100)
	require.NoError(t, err)
	assert.Equal(t, int64(999), got.Int64())

	got, err = LiquidityForPercent(big.NewInt(3), 33)
	require.NoError(t, err)
	assert.Equal(t, int64(0), got.Int64(), "floors")

	for _, pct := range []int{0, -1, 101} {
		_, err := LiquidityForPercent(big.NewInt(1000), pct)
		assert.Error(t, err, "percent %d", pct)
	}
}

func TestPositionKey(t *testing.T) {
	assert.Equal(t, "position:42", testPosition().Key())
	assert.Equal(t, "position:new", Position{}.Key())
}
