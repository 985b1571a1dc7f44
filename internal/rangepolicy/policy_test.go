package rangepolicy

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"liquidityDesk/internal/v3math"
)

func TestSnapTickBracketsTick(t *testing.T) {
	for _, spacing := range []int{1, 10, 60, 200} {
		for tick := -1000; tick <= 1000; tick += 7 {
			down := SnapTick(tick, spacing, true)
			up := SnapTick(tick, spacing, false)
			require.LessOrEqual(t, down, tick)
			require.GreaterOrEqual(t, up, tick)
			require.Zero(t, down%spacing, "down %d spacing %d", down, spacing)
			require.Zero(t, up%spacing, "up %d spacing %d", up, spacing)
			if tick%spacing == 0 {
				require.Equal(t, tick, down)
				require.Equal(t, tick, up)
			} else {
				require.Equal(t, spacing, up-down)
			}
		}
	}
}

func TestSnapTickNegative(t *testing.T) {
	assert.Equal(t, -60, SnapTick(-1, 60, true))
	assert.Equal(t, 0, SnapTick(-1, 60, false))
	assert.Equal(t, -120, SnapTick(-61, 60, true))
	assert.Equal(t, 60, SnapTick(1, 60, false))
	assert.Equal(t, 0, SnapTick(1, 60, true))
}

func TestDefaultRangeAtTickZero(t *testing.T) {
	r, err := DefaultPolicy().DefaultRange(0, 60)
	require.NoError(t, err)
	assert.Equal(t, Range{Lower: -60, Upper: 60}, r)
}

func TestDefaultRangeScalesWithTick(t *testing.T) {
	// round(|-200000| * 0.02) = 4000
	r, err := DefaultPolicy().DefaultRange(-200000, 60)
	require.NoError(t, err)
	assert.Equal(t, SnapTick(-204000, 60, true), r.Lower)
	assert.Equal(t, SnapTick(-196000, 60, false), r.Upper)
	assert.Less(t, r.Lower, -200000)
	assert.Greater(t, r.Upper, -200000)
}

func TestDefaultRangeClampsNearBounds(t *testing.T) {
	r, err := DefaultPolicy().DefaultRange(v3math.MaxTick-10, 60)
	require.NoError(t, err)
	assert.LessOrEqual(t, r.Upper, v3math.MaxTick)
	assert.Zero(t, r.Upper%60)
	assert.Less(t, r.Lower, r.Upper)

	r, err = DefaultPolicy().DefaultRange(v3math.MinTick+10, 60)
	require.NoError(t, err)
	assert.GreaterOrEqual(t, r.Lower, v3math.MinTick)
	assert.Zero(t, r.Lower%60)
}

func TestDefaultRangeRejectsBadSpacing(t *testing.T) {
	_, err := DefaultPolicy().DefaultRange(0, 0)
	assert.Error(t, err)
}

func TestFullRange(t *testing.T) {
	r, err := DefaultPolicy().FullRange(60)
	require.NoError(t, err)
	assert.Equal(t, Range{Lower: -887220, Upper: 887220}, r)

	r, err = DefaultPolicy().FullRange(200)
	require.NoError(t, err)
	assert.Equal(t, Range{Lower: -887200, Upper: 887200}, r)
}

func TestSuggestions(t *testing.T) {
	got := DefaultPolicy().Suggestions(2000)
	require.Len(t, got, 3)
	assert.Equal(t, "±5%", got[0].Label)
	assert.InDelta(t, 1900, got[0].Min, 1e-9)
	assert.InDelta(t, 2100, got[0].Max, 1e-9)
	assert.InDelta(t, 1800, got[1].Min, 1e-9)
	assert.InDelta(t, 2500, got[2].Max, 1e-9)

	r, err := got[1].Ticks(18, 18, 60)
	require.NoError(t, err)
	assert.Zero(t, r.Lower%60)
	assert.Zero(t, r.Upper%60)
	low, err := v3math.TickToPrice(r.Lower, 18, 18)
	require.NoError(t, err)
	high, err := v3math.TickToPrice(r.Upper, 18, 18)
	require.NoError(t, err)
	assert.LessOrEqual(t, low, 1800.0)
	assert.GreaterOrEqual(t, high, 2200.0/1.0001)
}

func TestPolicyValidate(t *testing.T) {
	assert.NoError(t, DefaultPolicy().Validate())

	p := DefaultPolicy()
	p.FullRangeLower, p.FullRangeUpper = 10, -10
	assert.Error(t, p.Validate())

	p = DefaultPolicy()
	p.SuggestionPercents = []float64{150}
	assert.Error(t, p.Validate())
}

func TestReportDerivesPriceFromTick(t *testing.T) {
	rep, err := DefaultPolicy().Report(0, 60, 0, 18, 18)
	require.NoError(t, err)

	assert.InDelta(t, 1.0, rep.Price, 1e-12)
	assert.Equal(t, Range{Lower: -60, Upper: 60}, rep.Default)
	assert.Equal(t, Range{Lower: -887220, Upper: 887220}, rep.Full)
	require.Len(t, rep.Suggestions, 3)
	for _, s := range rep.Suggestions {
		assert.Less(t, s.Lower, 0, s.Label)
		assert.Greater(t, s.Upper, 0, s.Label)
		assert.Zero(t, s.Lower%60)
		assert.Zero(t, s.Upper%60)
	}
}

func TestReportRejectsBadSpacing(t *testing.T) {
	_, err := DefaultPolicy().Report(100, 0, 1.5, 18, 6)
	require.Error(t, err)
}

func TestBoundsFallBackToFullRange(t *testing.T) {
	p := DefaultPolicy()

	r, err := p.Bounds(nil, nil, FallbackFull, 1000, 60)
	require.NoError(t, err)
	assert.Equal(t, Range{Lower: -887220, Upper: 887220}, r)

	lower := -120
	r, err = p.Bounds(&lower, nil, FallbackFull, 1000, 60)
	require.NoError(t, err)
	assert.Equal(t, Range{Lower: -120, Upper: 887220}, r, "only the unset side is filled")

	upper := 600
	r, err = p.Bounds(&lower, &upper, FallbackDefault, 1000, 60)
	require.NoError(t, err)
	assert.Equal(t, Range{Lower: -120, Upper: 600}, r)
}

func TestBoundsFallBackToDefaultRange(t *testing.T) {
	r, err := DefaultPolicy().Bounds(nil, nil, FallbackDefault, 1000, 60)
	require.NoError(t, err)
	assert.Equal(t, Range{Lower: 960, Upper: 1020}, r)

	_, err = DefaultPolicy().Bounds(nil, nil, FallbackFull, 0, 0)
	assert.Error(t, err, "spacing is required to fill a bound")

	_, err = DefaultPolicy().Bounds(nil, nil, Fallback("wide"), 0, 60)
	assert.Error(t, err)
}

func TestParseFallback(t *testing.T) {
	f, err := ParseFallback("")
	require.NoError(t, err)
	assert.Equal(t, FallbackFull, f)

	f, err = ParseFallback("default")
	require.NoError(t, err)
	assert.Equal(t, FallbackDefault, f)

	_, err = ParseFallback("narrow")
	assert.Error(t, err)
}
