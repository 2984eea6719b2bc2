package usecase

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"TemaScan/internal/domain/models"
	drepo "TemaScan/internal/domain/repository"
	"TemaScan/internal/service/retry"
	"TemaScan/internal/services/scanner"
	"TemaScan/pkg/logger"
)

type fakeUniverse struct {
	instruments []models.Instrument
	err         error
}

func (f *fakeUniverse) TopInstruments(_ context.Context, count int, _ models.Market) ([]models.Instrument, error) {
	if f.err != nil {
		return nil, f.err
	}
	list := f.instruments
	if count < len(list) {
		list = list[:count]
	}
	return list, nil
}

type fakeCandles struct {
	series map[string][]models.Candle // keyed by symbol
	errs   map[string]error
	gate   chan struct{} // when set, fetches block until closed
}

func (f *fakeCandles) Candles(ctx context.Context, symbol string, _ models.Market, _ drepo.Timeframe, _ int) ([]models.Candle, error) {
	if f.gate != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-f.gate:
		}
	}
	if err, ok := f.errs[symbol]; ok {
		return nil, err
	}
	return f.series[symbol], nil
}

type noopMetrics struct{}

func (noopMetrics) RecordUnitOutcome(string)        {}
func (noopMetrics) RecordSignal(string, string)     {}
func (noopMetrics) RecordFetchRetry(string)         {}
func (noopMetrics) RecordScanDuration(float64)      {}
func (noopMetrics) SetScanProgress(float64)         {}
func (noopMetrics) RecordLastPrice(string, float64) {}

func newTestLogger(t *testing.T) *logger.Logger {
	t.Helper()
	log, err := logger.New(&logger.Config{Level: "error", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	return log
}

// shortHistory ends with a SHORT crossover on the last closed candle for
// the given periods, with one forming candle appended.
func shortHistory(t *testing.T, fastPeriod, slowPeriod int) []models.Candle {
	t.Helper()
	closes := make([]float64, 0, 400)
	for i := 0; i < 200; i++ {
		closes = append(closes, 100+float64(i))
	}
	for i := 1; i <= 200; i++ {
		closes = append(closes, 299-float64(i))
	}

	pair, err := scanner.ComputePair(closes, fastPeriod, slowPeriod)
	if err != nil {
		t.Fatalf("compute pair: %v", err)
	}
	events := scanner.Crossovers(pair.Fast, pair.Slow, 1, len(closes)-1)
	idx := -1
	for _, e := range events {
		if e.Direction == models.DirectionShort {
			idx = e.Index
		}
	}
	if idx < 0 {
		t.Fatal("no SHORT crossover in synthetic series")
	}

	truncated := append([]float64(nil), closes[:idx+1]...)
	truncated = append(truncated, truncated[len(truncated)-1]) // forming
	return candleSeries(truncated)
}

func candleSeries(closes []float64) []models.Candle {
	start := time.Date(2024, 6, 1, 0, 0, 0, 0, time.UTC)
	out := make([]models.Candle, len(closes))
	for i, c := range closes {
		out[i] = models.Candle{
			OpenTime:  start.Add(time.Duration(i) * time.Hour),
			CloseTime: start.Add(time.Duration(i+1) * time.Hour),
			Open:      c,
			High:      c + 1,
			Low:       c - 1,
			Close:     c,
			Volume:    1000,
		}
	}
	return out
}

func validParams() models.ScanParameters {
	return models.ScanParameters{
		InstrumentCount: 2,
		Timeframes:      []string{"1hr"},
		AdaptationSpeed: models.SpeedNormal,
		MinBarsBetween:  3,
		Variant:         models.VariantAmaPro,
		Market:          models.MarketPerp,
	}
}

func fastRetry() retry.Policy {
	return retry.Policy{MaxAttempts: 2, BackoffMin: time.Millisecond, BackoffMax: time.Millisecond}
}

func awaitSettled(t *testing.T, o *Orchestrator) models.ScanJob {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for time.Now().Before(deadline) {
		job := o.Job()
		if job.Status != models.StatusRunning {
			return job
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("scan did not settle in time")
	return models.ScanJob{}
}

func testOrchestrator(t *testing.T, universe *fakeUniverse, candles *fakeCandles, opts ...OrchestratorOption) (*Orchestrator, *ResultStore) {
	t.Helper()
	store := NewResultStore()
	opts = append([]OrchestratorOption{WithRetryPolicy(fastRetry()), WithWorkers(4)}, opts...)
	o := NewOrchestrator(universe, candles, store, noopMetrics{}, newTestLogger(t), opts...)
	return o, store
}

func perpInstrument(symbol string) models.Instrument {
	return models.Instrument{
		Symbol:      symbol,
		DisplayName: symbol + "-PERP",
		Market:      models.MarketPerp,
		QuoteVolume: 100,
	}
}

func TestStartRejectsEmptyTimeframes(t *testing.T) {
	o, _ := testOrchestrator(t, &fakeUniverse{}, &fakeCandles{})
	params := validParams()
	params.Timeframes = nil

	_, err := o.Start(context.Background(), params)
	if !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
	if job := o.Job(); job.Status != models.StatusIdle {
		t.Fatalf("status = %s, want idle (no work started)", job.Status)
	}
}

func TestStartRejectsUnknownTimeframe(t *testing.T) {
	o, _ := testOrchestrator(t, &fakeUniverse{}, &fakeCandles{})
	params := validParams()
	params.Timeframes = []string{"7min"}

	if _, err := o.Start(context.Background(), params); !errors.Is(err, ErrValidation) {
		t.Fatalf("error = %v, want ErrValidation", err)
	}
}

func TestStartJobConflict(t *testing.T) {
	fast, slow := drepo.PeriodsFor(drepo.TF1hr, models.SpeedNormal, models.VariantAmaPro)
	gate := make(chan struct{})
	candles := &fakeCandles{
		series: map[string][]models.Candle{"BTCUSDT": shortHistory(t, fast, slow)},
		gate:   gate,
	}
	universe := &fakeUniverse{instruments: []models.Instrument{perpInstrument("BTCUSDT")}}
	o, _ := testOrchestrator(t, universe, candles)

	first, err := o.Start(context.Background(), validParams())
	if err != nil {
		t.Fatalf("first Start: %v", err)
	}

	_, err = o.Start(context.Background(), validParams())
	if !errors.Is(err, ErrJobConflict) {
		t.Fatalf("second Start error = %v, want ErrJobConflict", err)
	}
	if job := o.Job(); job.ID != first.ID || job.Status != models.StatusRunning {
		t.Fatalf("running job disturbed: %+v", job)
	}

	close(gate)
	awaitSettled(t, o)
}

func TestScanCompletesWithSignals(t *testing.T) {
	fast, slow := drepo.PeriodsFor(drepo.TF1hr, models.SpeedNormal, models.VariantAmaPro)
	history := shortHistory(t, fast, slow)
	universe := &fakeUniverse{instruments: []models.Instrument{
		perpInstrument("BTCUSDT"),
		perpInstrument("ETHUSDT"),
	}}
	candles := &fakeCandles{series: map[string][]models.Candle{
		"BTCUSDT": history,
		"ETHUSDT": history,
	}}
	o, store := testOrchestrator(t, universe, candles)

	job, err := o.Start(context.Background(), validParams())
	if err != nil {
		t.Fatalf("Start: %v", err)
	}
	if job.Status != models.StatusRunning {
		t.Fatalf("status = %s, want running", job.Status)
	}

	done := awaitSettled(t, o)
	if done.Status != models.StatusCompleted {
		t.Fatalf("status = %s (%s), want completed", done.Status, done.Reason)
	}
	if done.ProgressPercent != 100 {
		t.Fatalf("progress = %v, want 100", done.ProgressPercent)
	}
	if done.CompletedUnits != 2 || done.TotalUnits != 2 {
		t.Fatalf("units = %d/%d, want 2/2", done.CompletedUnits, done.TotalUnits)
	}

	rs := store.Latest()
	if rs == nil {
		t.Fatal("no result set")
	}
	if rs.JobID != job.ID {
		t.Fatalf("result job id = %s, want %s", rs.JobID, job.ID)
	}
	if len(rs.Signals) != 2 {
		t.Fatalf("signals = %d, want 2", len(rs.Signals))
	}
	for _, s := range rs.Signals {
		if s.Direction != models.DirectionShort {
			t.Errorf("direction = %s, want SHORT", s.Direction)
		}
		if s.Timeframe != "1hr" || s.Variant != models.VariantAmaPro {
			t.Errorf("signal = %+v", s)
		}
		if s.DisplayName == "" {
			t.Error("display name empty")
		}
	}
}

func TestScanPartialFailureStillCompletes(t *testing.T) {
	fast, slow := drepo.PeriodsFor(drepo.TF1hr, models.SpeedNormal, models.VariantAmaPro)
	universe := &fakeUniverse{instruments: []models.Instrument{
		perpInstrument("BTCUSDT"),
		perpInstrument("NEWUSDT"),
	}}
	candles := &fakeCandles{series: map[string][]models.Candle{
		"BTCUSDT": shortHistory(t, fast, slow),
		"NEWUSDT": candleSeries([]float64{1, 2, 3, 4, 5}), // listed yesterday
	}}
	o, store := testOrchestrator(t, universe, candles)

	if _, err := o.Start(context.Background(), validParams()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := awaitSettled(t, o)
	if done.Status != models.StatusCompleted {
		t.Fatalf("status = %s, want completed despite short history", done.Status)
	}

	rs := store.Latest()
	if rs == nil || len(rs.Signals) != 1 {
		t.Fatalf("result = %+v, want exactly the BTC signal", rs)
	}
	if rs.Signals[0].Symbol != "BTCUSDT" {
		t.Fatalf("symbol = %s", rs.Signals[0].Symbol)
	}
}

func TestScanIdempotentOnFixedHistory(t *testing.T) {
	fast, slow := drepo.PeriodsFor(drepo.TF1hr, models.SpeedNormal, models.VariantAmaPro)
	universe := &fakeUniverse{instruments: []models.Instrument{perpInstrument("BTCUSDT")}}
	candles := &fakeCandles{series: map[string][]models.Candle{
		"BTCUSDT": shortHistory(t, fast, slow),
	}}
	o, store := testOrchestrator(t, universe, candles)

	runOnce := func() []models.Signal {
		if _, err := o.Start(context.Background(), validParams()); err != nil {
			t.Fatalf("Start: %v", err)
		}
		done := awaitSettled(t, o)
		if done.Status != models.StatusCompleted {
			t.Fatalf("status = %s", done.Status)
		}
		return store.Latest().Signals
	}

	first := runOnce()
	second := runOnce()
	if len(first) != len(second) {
		t.Fatalf("signal counts differ: %d vs %d", len(first), len(second))
	}
	for i := range first {
		a, b := first[i], second[i]
		if a.Symbol != b.Symbol || a.Direction != b.Direction || a.CandleIndex != b.CandleIndex ||
			a.AngleDegrees != b.AngleDegrees || a.GapPercent != b.GapPercent {
			t.Fatalf("signal %d differs: %+v vs %+v", i, a, b)
		}
	}
}

func TestScanUniverseFailure(t *testing.T) {
	universe := &fakeUniverse{err: fmt.Errorf("exchange unreachable")}
	o, store := testOrchestrator(t, universe, &fakeCandles{})

	if _, err := o.Start(context.Background(), validParams()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := awaitSettled(t, o)
	if done.Status != models.StatusFailed {
		t.Fatalf("status = %s, want failed", done.Status)
	}
	if done.Reason == "" {
		t.Fatal("failed job must carry a reason")
	}
	if store.Latest() != nil {
		t.Fatal("result set must stay untouched on universe failure")
	}
}

func TestScanCancelDiscardsPartialResults(t *testing.T) {
	fast, slow := drepo.PeriodsFor(drepo.TF1hr, models.SpeedNormal, models.VariantAmaPro)
	gate := make(chan struct{})
	universe := &fakeUniverse{instruments: []models.Instrument{perpInstrument("BTCUSDT")}}
	candles := &fakeCandles{
		series: map[string][]models.Candle{"BTCUSDT": shortHistory(t, fast, slow)},
		gate:   gate,
	}
	o, store := testOrchestrator(t, universe, candles)

	if _, err := o.Start(context.Background(), validParams()); err != nil {
		t.Fatalf("Start: %v", err)
	}
	if err := o.Cancel(); err != nil {
		t.Fatalf("Cancel: %v", err)
	}

	done := awaitSettled(t, o)
	if done.Status != models.StatusFailed || done.Reason != "cancelled" {
		t.Fatalf("job = %s (%s), want failed/cancelled", done.Status, done.Reason)
	}
	if store.Latest() != nil {
		t.Fatal("cancelled scan must not publish results")
	}
	close(gate)
}

func TestCancelWithoutRunningJob(t *testing.T) {
	o, _ := testOrchestrator(t, &fakeUniverse{}, &fakeCandles{})
	if err := o.Cancel(); !errors.Is(err, ErrNoActiveJob) {
		t.Fatalf("error = %v, want ErrNoActiveJob", err)
	}
}

func TestVariantBothEmitsBothProfiles(t *testing.T) {
	// build a history that crosses on the last closed candle for the qwen
	// profile; the ama_pro profile may or may not fire on the same bar
	fast, slow := drepo.PeriodsFor(drepo.TF1hr, models.SpeedNormal, models.VariantQwen)
	universe := &fakeUniverse{instruments: []models.Instrument{perpInstrument("BTCUSDT")}}
	candles := &fakeCandles{series: map[string][]models.Candle{
		"BTCUSDT": shortHistory(t, fast, slow),
	}}
	o, store := testOrchestrator(t, universe, candles)

	params := validParams()
	params.Variant = models.VariantBoth
	params.InstrumentCount = 1
	if _, err := o.Start(context.Background(), params); err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := awaitSettled(t, o)
	if done.Status != models.StatusCompleted {
		t.Fatalf("status = %s", done.Status)
	}

	rs := store.Latest()
	if rs == nil || len(rs.Signals) == 0 {
		t.Fatal("expected at least the qwen signal")
	}
	seen := false
	for _, s := range rs.Signals {
		if s.Variant == models.VariantQwen {
			seen = true
		}
	}
	if !seen {
		t.Fatal("qwen variant signal missing")
	}
}

// coincidentShortHistory ends with a SHORT crossover on the last closed
// candle for both scanner profiles at once: a convex rise keeps both fast
// TEMAs above their slow ones, and a final cliff drops both below on the
// same bar.
func coincidentShortHistory(t *testing.T) []models.Candle {
	t.Helper()
	closes := make([]float64, 0, 302)
	for i := 0; i < 300; i++ {
		x := float64(i)
		closes = append(closes, 100+0.01*x*x)
	}
	closes = append(closes, 150) // cliff
	closes = append(closes, 150) // forming

	last := len(closes) - 2
	for _, v := range []models.Variant{models.VariantAmaPro, models.VariantQwen} {
		fastP, slowP := drepo.PeriodsFor(drepo.TF1hr, models.SpeedNormal, v)
		pair, err := scanner.ComputePair(closes, fastP, slowP)
		if err != nil {
			t.Fatalf("compute pair (%s): %v", v, err)
		}
		events := scanner.Crossovers(pair.Fast, pair.Slow, 1, last)
		if len(events) == 0 {
			t.Fatalf("no crossover in synthetic series for %s", v)
		}
		if e := events[len(events)-1]; e.Index != last || e.Direction != models.DirectionShort {
			t.Fatalf("series must cross SHORT at the last closed candle for %s, got %+v", v, e)
		}
	}
	return candleSeries(closes)
}

func TestVariantBothKeepsCoincidentSignals(t *testing.T) {
	universe := &fakeUniverse{instruments: []models.Instrument{perpInstrument("BTCUSDT")}}
	candles := &fakeCandles{series: map[string][]models.Candle{
		"BTCUSDT": coincidentShortHistory(t),
	}}
	o, store := testOrchestrator(t, universe, candles)

	params := validParams()
	params.Variant = models.VariantBoth
	params.InstrumentCount = 1
	if _, err := o.Start(context.Background(), params); err != nil {
		t.Fatalf("Start: %v", err)
	}
	done := awaitSettled(t, o)
	if done.Status != models.StatusCompleted {
		t.Fatalf("status = %s", done.Status)
	}

	rs := store.Latest()
	if rs == nil {
		t.Fatal("no result set")
	}
	variants := make(map[models.Variant]bool)
	for _, s := range rs.Signals {
		if s.Direction != models.DirectionShort {
			t.Fatalf("direction = %s, want SHORT", s.Direction)
		}
		variants[s.Variant] = true
	}
	if len(rs.Signals) != 2 || !variants[models.VariantAmaPro] || !variants[models.VariantQwen] {
		t.Fatalf("want one signal per variant, got %d signals, variants=%v",
			len(rs.Signals), variants)
	}
}
