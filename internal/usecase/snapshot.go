package usecase

import (
	"context"
	"sync"

	"TemaScan/internal/domain/models"
	drepo "TemaScan/internal/domain/repository"
	"TemaScan/pkg/logger"
)

// MarketSnapshot keeps a live view of ticker prices for the market-data
// endpoint. Prices arrive over the exchange stream; instrument metadata
// comes from the cached universe, so the endpoint works even while the
// stream is down.
type MarketSnapshot struct {
	stream   drepo.MarketStream
	universe drepo.InstrumentUniverse
	metrics  drepo.Metrics
	log      *logger.Logger

	mu     sync.RWMutex
	quotes map[string]models.TickerQuote
}

// NewMarketSnapshot creates a snapshot fed by stream and universe.
func NewMarketSnapshot(stream drepo.MarketStream, universe drepo.InstrumentUniverse, metrics drepo.Metrics, log *logger.Logger) *MarketSnapshot {
	return &MarketSnapshot{
		stream:   stream,
		universe: universe,
		metrics:  metrics,
		log:      log,
		quotes:   make(map[string]models.TickerQuote),
	}
}

// IsConnected reports whether the price stream is up.
func (m *MarketSnapshot) IsConnected() bool {
	return m.stream.IsConnected()
}

// Start connects the stream and consumes it until ctx is done.
func (m *MarketSnapshot) Start(ctx context.Context) error {
	if err := m.stream.Connect(ctx); err != nil {
		return err
	}
	qCh, errCh := m.stream.Read(ctx)
	go m.consume(ctx, qCh, errCh)
	return nil
}

func (m *MarketSnapshot) consume(ctx context.Context, qCh <-chan *models.TickerQuote, errCh <-chan error) {
	for {
		select {
		case <-ctx.Done():
			return
		case err := <-errCh:
			if err != nil {
				m.log.Warn("market stream error, reconnecting", logger.Error(err))
				if rerr := m.stream.Reconnect(ctx); rerr != nil {
					m.log.Error("market stream reconnect failed", logger.Error(rerr))
					return
				}
				qCh, errCh = m.stream.Read(ctx)
			}
		case q := <-qCh:
			if q == nil {
				continue
			}
			m.apply(q)
		}
	}
}

func (m *MarketSnapshot) apply(q *models.TickerQuote) {
	m.mu.Lock()
	m.quotes[q.Symbol] = *q
	m.mu.Unlock()
	m.metrics.RecordLastPrice(q.Symbol, q.Price)
}

// Snapshot returns the top count instruments with live prices overlaid
// where the stream has delivered fresher quotes than the REST universe.
func (m *MarketSnapshot) Snapshot(ctx context.Context, count int, market models.Market) ([]models.Instrument, error) {
	list, err := m.universe.TopInstruments(ctx, count, market)
	if err != nil {
		return nil, err
	}

	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Instrument, len(list))
	for i, in := range list {
		if q, ok := m.quotes[in.Symbol]; ok {
			in.LastPrice = q.Price
			in.DailyChangePercent = q.ChangePercent
		}
		out[i] = in
	}
	return out, nil
}

// Stop closes the price stream.
func (m *MarketSnapshot) Stop() error {
	return m.stream.Close()
}
