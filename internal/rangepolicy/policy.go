package rangepolicy

import (
	"fmt"
	"math"

	"liquidityDesk/internal/v3math"
)

const (
	// DefaultRangeFraction is the share of |currentTick| the default range
	// extends on each side.
	DefaultRangeFraction = 0.02

	// DefaultFullRangeLower and DefaultFullRangeUpper bound the "full range"
	// position. They sit just inside MinTick/MaxTick on a multiple of the
	// common spacings.
	DefaultFullRangeLower = -887220
	DefaultFullRangeUpper = 887220
)

// Fallback names the range that fills a bound the caller left unset.
type Fallback string

const (
	FallbackFull    Fallback = "full"
	FallbackDefault Fallback = "default"
)

// ParseFallback accepts "full", "default" or empty for full.
func ParseFallback(raw string) (Fallback, error) {
	switch Fallback(raw) {
	case "", FallbackFull:
		return FallbackFull, nil
	case FallbackDefault:
		return FallbackDefault, nil
	}
	return "", fmt.Errorf("range fallback must be %q or %q, got %q", FallbackFull, FallbackDefault, raw)
}

// DefaultSuggestionPercents are the quick-select widths around the current price.
var DefaultSuggestionPercents = []float64{5, 10, 25}

// Policy holds the heuristics used when a user supplies no explicit bounds.
type Policy struct {
	RangeFraction      float64
	FullRangeLower     int
	FullRangeUpper     int
	SuggestionPercents []float64
}

// Range is a tick-aligned position boundary pair.
type Range struct {
	Lower int `json:"tickLower"`
	Upper int `json:"tickUpper"`
}

// Suggestion is a percentage band around the linear current price.
type Suggestion struct {
	Label   string  `json:"label"`
	Percent float64 `json:"percent"`
	Min     float64 `json:"min"`
	Max     float64 `json:"max"`
}

// DefaultPolicy returns the policy with the stock heuristics.
func DefaultPolicy() Policy {
	return Policy{
		RangeFraction:      DefaultRangeFraction,
		FullRangeLower:     DefaultFullRangeLower,
		FullRangeUpper:     DefaultFullRangeUpper,
		SuggestionPercents: append([]float64(nil), DefaultSuggestionPercents...),
	}
}

// Validate reports policy values that could never produce a usable range.
func (p Policy) Validate() error {
	if math.IsNaN(p.RangeFraction) || p.RangeFraction < 0 {
		return fmt.Errorf("range fraction must be non-negative, got %v", p.RangeFraction)
	}
	if p.FullRangeLower >= p.FullRangeUpper {
		return fmt.Errorf("full range lower %d must be below upper %d", p.FullRangeLower, p.FullRangeUpper)
	}
	if p.FullRangeLower < v3math.MinTick || p.FullRangeUpper > v3math.MaxTick {
		return fmt.Errorf("full range [%d, %d] exceeds tick bounds", p.FullRangeLower, p.FullRangeUpper)
	}
	for _, pct := range p.SuggestionPercents {
		if pct <= 0 || pct >= 100 {
			return fmt.Errorf("suggestion percent must be in (0, 100), got %v", pct)
		}
	}
	return nil
}

// SnapTick aligns tick to a multiple of spacing, rounding toward negative
// infinity when roundDown is set and toward positive infinity otherwise.
func SnapTick(tick, spacing int, roundDown bool) int {
	if spacing <= 0 {
		return tick
	}
	q := tick / spacing
	rem := tick % spacing
	if rem == 0 {
		return tick
	}
	// Integer division truncates toward zero.
	if roundDown && rem < 0 {
		q--
	}
	if !roundDown && rem > 0 {
		q++
	}
	return q * spacing
}

// DefaultRange widens the current tick by RangeFraction of its magnitude (at
// least one tick) and snaps the result outward onto the spacing grid.
func (p Policy) DefaultRange(currentTick, spacing int) (Range, error) {
	if spacing <= 0 {
		return Range{}, fmt.Errorf("tick spacing must be positive, got %d", spacing)
	}
	width := int(math.Max(1, math.Round(math.Abs(float64(currentTick))*p.RangeFraction)))
	r := Range{
		Lower: SnapTick(currentTick-width, spacing, true),
		Upper: SnapTick(currentTick+width, spacing, false),
	}
	return Clamp(r, spacing)
}

// FullRange returns the wide constant pair, snapped inward onto the spacing grid.
func (p Policy) FullRange(spacing int) (Range, error) {
	if spacing <= 0 {
		return Range{}, fmt.Errorf("tick spacing must be positive, got %d", spacing)
	}
	return Clamp(Range{
		Lower: SnapTick(p.FullRangeLower, spacing, false),
		Upper: SnapTick(p.FullRangeUpper, spacing, true),
	}, spacing)
}

// Bounds resolves a deposit range. Explicit ticks win; a nil side is taken
// from the fallback range computed at currentTick.
func (p Policy) Bounds(lower, upper *int, fallback Fallback, currentTick, spacing int) (Range, error) {
	if lower != nil && upper != nil {
		return Range{Lower: *lower, Upper: *upper}, nil
	}

	var (
		r   Range
		err error
	)
	switch fallback {
	case FallbackDefault:
		r, err = p.DefaultRange(currentTick, spacing)
	case FallbackFull, "":
		r, err = p.FullRange(spacing)
	default:
		return Range{}, fmt.Errorf("unknown range fallback %q", fallback)
	}
	if err != nil {
		return Range{}, err
	}
	if lower != nil {
		r.Lower = *lower
	}
	if upper != nil {
		r.Upper = *upper
	}
	return r, nil
}

// Suggestions lists the percentage bands computed from the linear price.
func (p Policy) Suggestions(price float64) []Suggestion {
	out := make([]Suggestion, 0, len(p.SuggestionPercents))
	for _, pct := range p.SuggestionPercents {
		frac := pct / 100
		out = append(out, Suggestion{
			Label:   fmt.Sprintf("±%g%%", pct),
			Percent: pct,
			Min:     price * (1 - frac),
			Max:     price * (1 + frac),
		})
	}
	return out
}

// Clamp pulls both bounds inside [MinTick, MaxTick] while keeping them on the
// spacing grid, and fails if the clamped range is empty.
func Clamp(r Range, spacing int) (Range, error) {
	if spacing <= 0 {
		return Range{}, fmt.Errorf("tick spacing must be positive, got %d", spacing)
	}
	minUsable := SnapTick(v3math.MinTick, spacing, false)
	maxUsable := SnapTick(v3math.MaxTick, spacing, true)
	if r.Lower < minUsable {
		r.Lower = minUsable
	}
	if r.Upper > maxUsable {
		r.Upper = maxUsable
	}
	if r.Lower >= r.Upper {
		return Range{}, fmt.Errorf("%w: ticks [%d, %d]", v3math.ErrDegenerateRange, r.Lower, r.Upper)
	}
	return r, nil
}

// PriceBoundsToTicks converts a linear price band into an aligned tick range.
func PriceBoundsToTicks(minPrice, maxPrice float64, decimals0, decimals1 uint8, spacing int) (Range, error) {
	if minPrice >= maxPrice {
		return Range{}, fmt.Errorf("%w: price band [%v, %v]", v3math.ErrDegenerateRange, minPrice, maxPrice)
	}
	lower, err := v3math.PriceToTick(minPrice, decimals0, decimals1)
	if err != nil {
		return Range{}, fmt.Errorf("convert min price: %w", err)
	}
	upper, err := v3math.PriceToTick(maxPrice, decimals0, decimals1)
	if err != nil {
		return Range{}, fmt.Errorf("convert max price: %w", err)
	}
	return Clamp(Range{
		Lower: SnapTick(lower, spacing, true),
		Upper: SnapTick(upper, spacing, false),
	}, spacing)
}

// Ticks converts a suggestion into an aligned tick range.
func (s Suggestion) Ticks(decimals0, decimals1 uint8, spacing int) (Range, error) {
	return PriceBoundsToTicks(s.Min, s.Max, decimals0, decimals1, spacing)
}
