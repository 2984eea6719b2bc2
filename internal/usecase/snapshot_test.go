package usecase

import (
	"context"
	"testing"
	"time"

	"TemaScan/internal/domain/models"
)

type fakeStream struct {
	quotes    chan *models.TickerQuote
	errs      chan error
	connected bool
}

func newFakeStream() *fakeStream {
	return &fakeStream{
		quotes: make(chan *models.TickerQuote, 16),
		errs:   make(chan error, 1),
	}
}

func (f *fakeStream) Connect(context.Context) error { f.connected = true; return nil }
func (f *fakeStream) Read(context.Context) (<-chan *models.TickerQuote, <-chan error) {
	return f.quotes, f.errs
}
func (f *fakeStream) Reconnect(ctx context.Context) error { return f.Connect(ctx) }
func (f *fakeStream) Close() error                        { f.connected = false; return nil }
func (f *fakeStream) IsConnected() bool                   { return f.connected }

func TestSnapshotOverlaysLivePrices(t *testing.T) {
	stream := newFakeStream()
	universe := &fakeUniverse{instruments: []models.Instrument{
		{Symbol: "BTCUSDT", DisplayName: "BTC/USDT", Market: models.MarketSpot, LastPrice: 50000, DailyChangePercent: 1.0, QuoteVolume: 900},
		{Symbol: "ETHUSDT", DisplayName: "ETH/USDT", Market: models.MarketSpot, LastPrice: 3000, DailyChangePercent: -0.5, QuoteVolume: 800},
	}}
	snap := NewMarketSnapshot(stream, universe, noopMetrics{}, newTestLogger(t))

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	if err := snap.Start(ctx); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if !snap.IsConnected() {
		t.Fatal("stream should be connected")
	}

	stream.quotes <- &models.TickerQuote{Symbol: "BTCUSDT", Price: 51000, ChangePercent: 2.5}

	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		list, err := snap.Snapshot(ctx, 2, models.MarketSpot)
		if err != nil {
			t.Fatalf("Snapshot: %v", err)
		}
		if list[0].LastPrice == 51000 {
			if list[0].DailyChangePercent != 2.5 {
				t.Fatalf("change = %v, want 2.5", list[0].DailyChangePercent)
			}
			if list[1].LastPrice != 3000 {
				t.Fatalf("ETH price = %v, want universe value", list[1].LastPrice)
			}
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("live quote never applied")
}

func TestSnapshotWorksWithoutQuotes(t *testing.T) {
	stream := newFakeStream()
	universe := &fakeUniverse{instruments: []models.Instrument{
		{Symbol: "BTCUSDT", DisplayName: "BTC/USDT", LastPrice: 50000},
	}}
	snap := NewMarketSnapshot(stream, universe, noopMetrics{}, newTestLogger(t))

	list, err := snap.Snapshot(context.Background(), 1, models.MarketSpot)
	if err != nil {
		t.Fatalf("Snapshot: %v", err)
	}
	if list[0].LastPrice != 50000 {
		t.Fatalf("price = %v, want REST fallback", list[0].LastPrice)
	}
}
