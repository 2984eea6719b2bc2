package repository

import "time"

// Timeframe is one of the supported scan intervals, in its raw
// user-facing form.
type Timeframe string

const (
	TF15min Timeframe = "15min"
	TF30min Timeframe = "30min"
	TF45min Timeframe = "45min"
	TF1hr   Timeframe = "1hr"
	TF2hr   Timeframe = "2hr"
	TF4hr   Timeframe = "4hr"
	TF1day  Timeframe = "1 day"
	TF1week Timeframe = "1 week"
)

// AllTimeframes lists every supported timeframe in ascending order.
func AllTimeframes() []Timeframe {
	return []Timeframe{TF15min, TF30min, TF45min, TF1hr, TF2hr, TF4hr, TF1day, TF1week}
}

// IsValidTimeframe returns true if tf is a supported timeframe.
func IsValidTimeframe(tf Timeframe) bool {
	switch tf {
	case TF15min, TF30min, TF45min, TF1hr, TF2hr, TF4hr, TF1day, TF1week:
		return true
	default:
		return false
	}
}

// Category buckets timeframes for adaptive period selection.
type Category int

const (
	CategoryMinutes Category = iota
	CategoryHours
	CategoryDaily
)

// Category returns the period-selection bucket of the timeframe.
func (tf Timeframe) Category() Category {
	switch tf {
	case TF15min, TF30min, TF45min:
		return CategoryMinutes
	case TF1hr, TF2hr, TF4hr:
		return CategoryHours
	default:
		return CategoryDaily
	}
}

// Duration returns the length of one bar.
func (tf Timeframe) Duration() time.Duration {
	switch tf {
	case TF15min:
		return 15 * time.Minute
	case TF30min:
		return 30 * time.Minute
	case TF45min:
		return 45 * time.Minute
	case TF1hr:
		return time.Hour
	case TF2hr:
		return 2 * time.Hour
	case TF4hr:
		return 4 * time.Hour
	case TF1day:
		return 24 * time.Hour
	case TF1week:
		return 7 * 24 * time.Hour
	}
	return 15 * time.Minute
}

// BinanceInterval maps the timeframe onto a native Binance kline interval
// plus a resample factor. 45min has no native interval and is rebuilt from
// three 15m bars.
func (tf Timeframe) BinanceInterval() (interval string, resample int) {
	switch tf {
	case TF15min:
		return "15m", 1
	case TF30min:
		return "30m", 1
	case TF45min:
		return "15m", 3
	case TF1hr:
		return "1h", 1
	case TF2hr:
		return "2h", 1
	case TF4hr:
		return "4h", 1
	case TF1day:
		return "1d", 1
	case TF1week:
		return "1w", 1
	}
	return "15m", 1
}
