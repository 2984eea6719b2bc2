// Package scanner implements the adaptive TEMA crossover engine: indicator
// computation, crossover detection on closed candles, and signal spacing.
package scanner

import (
	"errors"
	"fmt"
)

// ErrInsufficientHistory is returned when a candle sequence is shorter than
// the warm-up window of the selected periods. Callers skip the unit instead
// of failing the scan.
var ErrInsufficientHistory = errors.New("insufficient candle history")

// WarmupLen is the minimum history for a stable TEMA(p) value: three nested
// EMAs each need p bars, overlapping by one.
func WarmupLen(period int) int {
	return 3*period - 2
}

// EMASeries computes an exponential moving average over values with
// smoothing factor 2/(period+1), seeded with the first value. Output is
// aligned index-for-index with the input.
func EMASeries(values []float64, period int) []float64 {
	if len(values) == 0 {
		return nil
	}
	alpha := 2.0 / float64(period+1)
	out := make([]float64, len(values))
	out[0] = values[0]
	for i := 1; i < len(values); i++ {
		out[i] = alpha*values[i] + (1-alpha)*out[i-1]
	}
	return out
}

// TEMASeries computes the triple exponential moving average
// 3*EMA1 - 3*EMA2 + EMA3 for the given period, aligned with the input.
// Entries before WarmupLen(period) are not yet stable.
func TEMASeries(values []float64, period int) []float64 {
	ema1 := EMASeries(values, period)
	ema2 := EMASeries(ema1, period)
	ema3 := EMASeries(ema2, period)

	out := make([]float64, len(values))
	for i := range out {
		out[i] = 3*ema1[i] - 3*ema2[i] + ema3[i]
	}
	return out
}

// TemaPair holds the aligned fast/slow TEMA series for one candle sequence.
type TemaPair struct {
	Fast       []float64
	Slow       []float64
	FastPeriod int
	SlowPeriod int
}

// ComputePair builds fast and slow TEMA series over the close prices.
// The sequence must cover the slow period's warm-up window.
func ComputePair(closes []float64, fastPeriod, slowPeriod int) (*TemaPair, error) {
	if fastPeriod < 1 || slowPeriod <= fastPeriod {
		return nil, fmt.Errorf("invalid periods fast=%d slow=%d", fastPeriod, slowPeriod)
	}
	if need := WarmupLen(slowPeriod); len(closes) < need {
		return nil, fmt.Errorf("%w: have %d candles, need %d for period %d",
			ErrInsufficientHistory, len(closes), need, slowPeriod)
	}
	return &TemaPair{
		Fast:       TEMASeries(closes, fastPeriod),
		Slow:       TEMASeries(closes, slowPeriod),
		FastPeriod: fastPeriod,
		SlowPeriod: slowPeriod,
	}, nil
}

// Warmup returns the first index at which both series are stable.
func (p *TemaPair) Warmup() int {
	return WarmupLen(p.SlowPeriod)
}
