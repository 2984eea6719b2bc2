package scanner

import (
	"math"

	"TemaScan/internal/domain/models"
)

// angleLookback is the closed-candle window the crossover angle is measured
// over, in bars.
const angleLookback = 3

// Detection is a crossover found on a fully closed candle.
type Detection struct {
	Direction    models.Direction
	Index        int // index into the fetched candle sequence
	AngleDegrees float64
	GapPercent   float64
}

// CrossEvent is one historical crossover between the fast and slow series.
type CrossEvent struct {
	Direction models.Direction
	Index     int
}

// Crossovers enumerates every crossover between from and to (inclusive),
// comparing each index against its predecessor. Ties that persist across
// both indices produce no event.
func Crossovers(fast, slow []float64, from, to int) []CrossEvent {
	if from < 1 {
		from = 1
	}
	if to >= len(fast) {
		to = len(fast) - 1
	}
	var events []CrossEvent
	for i := from; i <= to; i++ {
		switch {
		case fast[i] > slow[i] && fast[i-1] <= slow[i-1]:
			events = append(events, CrossEvent{Direction: models.DirectionLong, Index: i})
		case fast[i] < slow[i] && fast[i-1] >= slow[i-1]:
			events = append(events, CrossEvent{Direction: models.DirectionShort, Index: i})
		}
	}
	return events
}

// Detect reports whether a crossover occurred on the last fully closed
// candle of the sequence. With n fetched candles, index n-1 is still forming
// and is never inspected; the detection index is n-2 and its predecessor
// n-3. minBarsBetween suppresses a detection when a previous same-direction
// crossover sits closer than that many bars (0 disables).
func Detect(candles []models.Candle, pair *TemaPair, minBarsBetween int) (*Detection, bool) {
	n := len(candles)
	closed := n - 2
	if closed < 1 || closed < pair.Warmup() {
		return nil, false
	}

	events := Crossovers(pair.Fast, pair.Slow, pair.Warmup(), closed)
	if len(events) == 0 {
		return nil, false
	}
	last := events[len(events)-1]
	if last.Index != closed {
		return nil, false
	}

	if minBarsBetween > 0 {
		for i := len(events) - 2; i >= 0; i-- {
			if events[i].Direction != last.Direction {
				continue
			}
			if closed-events[i].Index < minBarsBetween {
				return nil, false
			}
			break
		}
	}

	return &Detection{
		Direction:    last.Direction,
		Index:        closed,
		AngleDegrees: crossoverAngle(pair.Fast, candles, closed),
		GapPercent:   temaGap(pair, candles, closed),
	}, true
}

// crossoverAngle measures the slope of the fast TEMA over the last
// angleLookback closed candles, normalized by the window's mean close so
// angles compare across instruments of different price magnitude, and
// converts percent-per-candle to degrees.
func crossoverAngle(fast []float64, candles []models.Candle, closed int) float64 {
	from := closed - angleLookback
	if from < 0 {
		return 0
	}

	var scale float64
	for i := from; i <= closed; i++ {
		scale += candles[i].Close
	}
	scale /= float64(angleLookback + 1)
	if scale == 0 {
		return 0
	}

	slope := (fast[closed] - fast[from]) / float64(angleLookback)
	deg := math.Atan(slope/scale*100) * 180 / math.Pi
	return math.Round(deg*100) / 100
}

// temaGap is the fast/slow separation at the detection index as a percent
// of the close price.
func temaGap(pair *TemaPair, candles []models.Candle, closed int) float64 {
	price := candles[closed].Close
	if price == 0 {
		return 0
	}
	return math.Abs(pair.Fast[closed]-pair.Slow[closed]) / price * 100
}
