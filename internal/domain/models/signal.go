package models

import "time"

// Direction is the side of a detected crossover signal.
type Direction string

const (
	DirectionLong  Direction = "LONG"
	DirectionShort Direction = "SHORT"
)

// Variant selects the scanner profile used for period selection.
type Variant string

const (
	VariantAmaPro Variant = "ama_pro"
	VariantQwen   Variant = "qwen"
	VariantBoth   Variant = "both"
)

// Expand resolves "both" into the concrete variants a unit must run.
func (v Variant) Expand() []Variant {
	if v == VariantBoth {
		return []Variant{VariantAmaPro, VariantQwen}
	}
	return []Variant{v}
}

// AdaptationSpeed scales indicator sensitivity independent of timeframe.
type AdaptationSpeed string

const (
	SpeedSlow   AdaptationSpeed = "slow"
	SpeedNormal AdaptationSpeed = "normal"
	SpeedFast   AdaptationSpeed = "fast"
)

// Multiplier returns the period divisor for the speed. A larger multiplier
// means shorter periods and therefore more signals.
func (s AdaptationSpeed) Multiplier() float64 {
	switch s {
	case SpeedSlow:
		return 0.5
	case SpeedFast:
		return 1.5
	default:
		return 1.0
	}
}

// Market selects which instrument classes the universe covers.
type Market string

const (
	MarketSpot Market = "spot"
	MarketPerp Market = "perp"
	MarketBoth Market = "both"
)

// Signal is a directional crossover detected on a fully closed candle.
// Immutable after creation; identified by
// (symbol, timeframe, direction, candle index, variant).
type Signal struct {
	Symbol             string    `json:"symbol"`
	DisplayName        string    `json:"display_name"`
	Timeframe          string    `json:"timeframe"`
	Direction          Direction `json:"direction"`
	AngleDegrees       float64   `json:"angle_degrees"`
	GapPercent         float64   `json:"gap_percent"`
	DailyChangePercent float64   `json:"daily_change_percent"`
	CandleIndex        int       `json:"candle_index"`
	Timestamp          time.Time `json:"timestamp"`
	Variant            Variant   `json:"variant"`
}
