package repository

import (
	"context"

	"TemaScan/internal/domain/models"
)

// CandleSource fetches an ascending OHLCV sequence for one
// (symbol, timeframe) pair. The final candle is the still-forming one.
type CandleSource interface {
	Candles(ctx context.Context, symbol string, market models.Market, tf Timeframe, limit int) ([]models.Candle, error)
}

// InstrumentUniverse resolves the top-N instruments by traded quote volume.
type InstrumentUniverse interface {
	TopInstruments(ctx context.Context, count int, market models.Market) ([]models.Instrument, error)
}

// MarketStream is a live ticker feed for the market snapshot.
type MarketStream interface {
	Connect(ctx context.Context) error
	Read(ctx context.Context) (<-chan *models.TickerQuote, <-chan error)
	Reconnect(ctx context.Context) error
	Close() error
	IsConnected() bool
}

// SignalPublisher delivers completed result sets to downstream consumers.
type SignalPublisher interface {
	PublishResultSet(ctx context.Context, rs *models.ResultSet) error
	Close() error
}

// Metrics records scan observability counters.
type Metrics interface {
	RecordUnitOutcome(outcome string)
	RecordSignal(direction, timeframe string)
	RecordFetchRetry(kind string)
	RecordScanDuration(seconds float64)
	SetScanProgress(percent float64)
	RecordLastPrice(symbol string, price float64)
}
