package repository

import (
	"math"

	"TemaScan/internal/domain/models"
)

// Period clamps. The fast/slow ranges follow the AMA PRO indicator family;
// slow must stay at least minSeparation above fast for the TEMA pair to
// produce meaningful crossovers.
const (
	minFastPeriod = 8
	maxFastPeriod = 21
	minSlowPeriod = 21
	maxSlowPeriod = 55
	minSeparation = 6
)

// basePeriods is the timeframe-category lookup for the ama_pro variant.
// The exact values are a tunable, not a correctness requirement; longer
// timeframes get slightly longer bases to damp noise.
var basePeriods = map[Category][2]int{
	CategoryMinutes: {10, 34},
	CategoryHours:   {12, 38},
	CategoryDaily:   {14, 42},
}

// qwenBase is the fixed profile used by the qwen variant on every timeframe.
var qwenBase = [2]int{9, 26}

// PeriodsFor resolves the fast/slow TEMA periods for a timeframe, adaptation
// speed and scanner variant. The mapping is deterministic and total over the
// supported timeframe set: a larger speed multiplier shortens the periods.
func PeriodsFor(tf Timeframe, speed models.AdaptationSpeed, variant models.Variant) (fast, slow int) {
	base := basePeriods[tf.Category()]
	if variant == models.VariantQwen {
		base = qwenBase
	}

	mult := speed.Multiplier()
	fast = scalePeriod(base[0], mult, minFastPeriod, maxFastPeriod)
	slow = scalePeriod(base[1], mult, minSlowPeriod, maxSlowPeriod)
	if slow < fast+minSeparation {
		slow = fast + minSeparation
	}
	return fast, slow
}

func scalePeriod(base int, mult float64, lo, hi int) int {
	p := int(math.Round(float64(base) / mult))
	if p < lo {
		return lo
	}
	if p > hi {
		return hi
	}
	return p
}
