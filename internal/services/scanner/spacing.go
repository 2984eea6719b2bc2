package scanner

import (
	"sync"

	"TemaScan/internal/domain/models"
)

type spacingKey struct {
	symbol    string
	timeframe string
	variant   models.Variant
	direction models.Direction
}

// SpacingFilter suppresses repeated same-direction signals that are closer
// than a minimum candle distance. It is scoped to one scan job and tracks
// the closed-candle index of the last emitted signal per
// (symbol, timeframe, variant, direction), so the ama_pro and qwen passes
// of a combined scan never suppress each other.
type SpacingFilter struct {
	minBars int
	mu      sync.Mutex
	last    map[spacingKey]int
}

// NewSpacingFilter creates a filter. minBars = 0 disables suppression.
func NewSpacingFilter(minBars int) *SpacingFilter {
	return &SpacingFilter{
		minBars: minBars,
		last:    make(map[spacingKey]int),
	}
}

// Accept reports whether a signal at the given closed-candle index may be
// emitted, and records it if so. Safe for concurrent use by scan workers.
func (f *SpacingFilter) Accept(symbol, timeframe string, variant models.Variant, dir models.Direction, index int) bool {
	f.mu.Lock()
	defer f.mu.Unlock()

	key := spacingKey{symbol: symbol, timeframe: timeframe, variant: variant, direction: dir}
	if prev, ok := f.last[key]; ok && f.minBars > 0 && index-prev < f.minBars {
		return false
	}
	f.last[key] = index
	return true
}
