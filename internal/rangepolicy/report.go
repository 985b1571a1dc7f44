package rangepolicy

import (
	"fmt"

	"liquidityDesk/internal/v3math"
)

// SuggestedRange is a price band together with its aligned ticks.
type SuggestedRange struct {
	Suggestion
	Range
}

// Report is what a range picker shows for one pool.
type Report struct {
	CurrentTick int              `json:"currentTick"`
	TickSpacing int              `json:"tickSpacing"`
	Price       float64          `json:"price"`
	Default     Range            `json:"defaultRange"`
	Full        Range            `json:"fullRange"`
	Suggestions []SuggestedRange `json:"suggestions"`
}

// Report derives the default range, full range and suggestions around
// currentTick. A non-positive price is replaced by the tick's price.
func (p Policy) Report(currentTick, spacing int, price float64, decimals0, decimals1 uint8) (Report, error) {
	if price <= 0 {
		var err error
		price, err = v3math.TickToPrice(currentTick, decimals0, decimals1)
		if err != nil {
			return Report{}, fmt.Errorf("price at tick %d: %w", currentTick, err)
		}
	}
	def, err := p.DefaultRange(currentTick, spacing)
	if err != nil {
		return Report{}, fmt.Errorf("default range: %w", err)
	}
	full, err := p.FullRange(spacing)
	if err != nil {
		return Report{}, fmt.Errorf("full range: %w", err)
	}

	rep := Report{
		CurrentTick: currentTick,
		TickSpacing: spacing,
		Price:       price,
		Default:     def,
		Full:        full,
	}
	for _, s := range p.Suggestions(price) {
		r, err := s.Ticks(decimals0, decimals1, spacing)
		if err != nil {
			return Report{}, fmt.Errorf("suggestion %s: %w", s.Label, err)
		}
		rep.Suggestions = append(rep.Suggestions, SuggestedRange{Suggestion: s, Range: r})
	}
	return rep, nil
}
