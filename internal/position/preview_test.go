package position

import (
	"math/big"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityDesk/internal/token"
	"liquidityDesk/internal/v3math"
)

func testRange(sqrt *big.Int) Range {
	return Range{Token0: tokenA, Token1: tokenB, SqrtPriceX96: sqrt, TickLower: -600, TickUpper: 600}
}

func TestPreviewBalancedHasNoWarning(t *testing.T) {
	p, err := PreviewAmounts(testRange(v3math.Q96), "1", "1")
	require.NoError(t, err)

	assert.Greater(t, p.ImbalanceRatio, 0.9)
	assert.Empty(t, p.Warning)
	assert.Equal(t, "1", p.Amount0Max)
	assert.True(t, p.Amount0UsedWei.Cmp(ether) <= 0)
	assert.True(t, p.Amount1UsedWei.Cmp(ether) <= 0)
	assert.Positive(t, p.Liquidity.Sign())
}

func TestPreviewWarnsOnUnderusedToken(t *testing.T) {
	p, err := PreviewAmounts(testRange(v3math.Q96), "1", "10")
	require.NoError(t, err)

	assert.Less(t, p.ImbalanceRatio, ImbalanceWarnThreshold)
	assert.Equal(t, "90% of B won't be used at this price range", p.Warning)
}

func TestPreviewOutOfRangeIgnoresOneSide(t *testing.T) {
	r := testRange(sqrtAt(t, 700))
	p, err := PreviewAmounts(r, "1", "1")
	require.NoError(t, err)

	assert.Zero(t, p.Amount0UsedWei.Sign())
	assert.Equal(t, "100% of A won't be used at this price range", p.Warning)

	// Token1 alone above the range is fully used.
	p, err = PreviewAmounts(r, "", "1")
	require.NoError(t, err)
	assert.Empty(t, p.Warning)
	assert.Greater(t, p.ImbalanceRatio, 0.999)
}

func TestPreviewRejectsEmptyAndMalformed(t *testing.T) {
	_, err := PreviewAmounts(testRange(v3math.Q96), "", "0")
	assert.ErrorIs(t, err, ErrNothingSupplied)

	_, err = PreviewAmounts(testRange(v3math.Q96), "abc", "1")
	assert.ErrorIs(t, err, token.ErrInvalidAmount)

	_, err = PreviewAmounts(testRange(new(big.Int)), "1", "1")
	assert.ErrorIs(t, err, v3math.ErrArithmetic)
}

func TestByPrimaryAmountFillsCounterpart(t *testing.T) {
	p, err := ByPrimaryAmount(testRange(v3math.Q96), "1", true)
	require.NoError(t, err)

	assert.Equal(t, "1", p.Amount0Max)
	assert.Positive(t, p.Amount1UsedWei.Sign())
	assert.Greater(t, p.ImbalanceRatio, 0.999)
	assert.Empty(t, p.Warning)

	// Below the range only token0 is deposited.
	p, err = ByPrimaryAmount(testRange(sqrtAt(t, -700)), "2", true)
	require.NoError(t, err)
	assert.Equal(t, "0", p.Amount1Max)
}
