package models

import "time"

// Candle represents a single OHLCV bar. A candle is immutable once its
// CloseTime has elapsed; the last candle of a fetched sequence is the
// still-forming one.
type Candle struct {
	OpenTime  time.Time
	CloseTime time.Time
	Open      float64
	High      float64
	Low       float64
	Close     float64
	Volume    float64
}

// Closes extracts the close prices of a candle sequence.
func Closes(candles []Candle) []float64 {
	out := make([]float64, len(candles))
	for i, c := range candles {
		out[i] = c.Close
	}
	return out
}
