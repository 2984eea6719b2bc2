package api

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/labstack/echo/v4"

	"TemaScan/internal/domain/models"
	drepo "TemaScan/internal/domain/repository"
	"TemaScan/internal/usecase"
	xlogger "TemaScan/pkg/logger"
)

type stubUniverse struct {
	instruments []models.Instrument
}

func (s *stubUniverse) TopInstruments(_ context.Context, count int, _ models.Market) ([]models.Instrument, error) {
	list := s.instruments
	if count < len(list) {
		list = list[:count]
	}
	return list, nil
}

type stubCandles struct {
	gate chan struct{}
}

func (s *stubCandles) Candles(ctx context.Context, _ string, _ models.Market, _ drepo.Timeframe, _ int) ([]models.Candle, error) {
	if s.gate != nil {
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-s.gate:
		}
	}
	return nil, nil
}

type stubMetrics struct{}

func (stubMetrics) RecordUnitOutcome(string)        {}
func (stubMetrics) RecordSignal(string, string)     {}
func (stubMetrics) RecordFetchRetry(string)         {}
func (stubMetrics) RecordScanDuration(float64)      {}
func (stubMetrics) SetScanProgress(float64)         {}
func (stubMetrics) RecordLastPrice(string, float64) {}

type stubStream struct{}

func (stubStream) Connect(context.Context) error { return nil }
func (stubStream) Read(context.Context) (<-chan *models.TickerQuote, <-chan error) {
	return nil, nil
}
func (stubStream) Reconnect(context.Context) error { return nil }
func (stubStream) Close() error                    { return nil }
func (stubStream) IsConnected() bool               { return false }

func newHandler(t *testing.T, candles *stubCandles) (*ScanEchoHandler, *usecase.ResultStore, *xlogger.Logger) {
	t.Helper()
	log, err := xlogger.New(&xlogger.Config{Level: "info", Format: "json", Output: "stderr"})
	if err != nil {
		t.Fatalf("logger: %v", err)
	}
	universe := &stubUniverse{instruments: []models.Instrument{
		{Symbol: "BTCUSDT", DisplayName: "BTC/USDT:USDT", Market: models.MarketPerp, QuoteVolume: 100},
	}}
	store := usecase.NewResultStore()
	orch := usecase.NewOrchestrator(universe, candles, store, stubMetrics{}, log, usecase.WithWorkers(2))
	snap := usecase.NewMarketSnapshot(stubStream{}, universe, stubMetrics{}, log)
	return NewScanEchoHandler(log, orch, store, snap), store, log
}

func doRequest(h *ScanEchoHandler, method, path, body string) *httptest.ResponseRecorder {
	e := echo.New()
	h.RegisterRoutes(e)
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	if body != "" {
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	}
	rec := httptest.NewRecorder()
	e.ServeHTTP(rec, req)
	return rec
}

func envelope(t *testing.T, rec *httptest.ResponseRecorder) map[string]interface{} {
	t.Helper()
	var out map[string]interface{}
	if err := json.Unmarshal(rec.Body.Bytes(), &out); err != nil {
		t.Fatalf("bad envelope: %v: %s", err, rec.Body.String())
	}
	return out
}

func TestStartScanAccepted(t *testing.T) {
	h, _, _ := newHandler(t, &stubCandles{})
	rec := doRequest(h, http.MethodPost, "/api/scan", `{"timeframes":["1hr"]}`)

	env := envelope(t, rec)
	if env["status"].(float64) != http.StatusAccepted {
		t.Fatalf("status = %v, want 202: %s", env["status"], rec.Body.String())
	}
	data := env["data"].(map[string]interface{})
	if data["job_id"] == "" || data["status"] != "running" {
		t.Fatalf("data = %v", data)
	}
}

func TestStartScanEmptyTimeframesRejected(t *testing.T) {
	h, _, _ := newHandler(t, &stubCandles{})
	rec := doRequest(h, http.MethodPost, "/api/scan", `{"timeframes":[]}`)

	env := envelope(t, rec)
	if env["status"].(float64) != http.StatusBadRequest {
		t.Fatalf("status = %v, want 400: %s", env["status"], rec.Body.String())
	}
}

func TestStartScanConflict(t *testing.T) {
	gate := make(chan struct{})
	defer close(gate)
	h, _, _ := newHandler(t, &stubCandles{gate: gate})

	first := doRequest(h, http.MethodPost, "/api/scan", `{"timeframes":["1hr"]}`)
	if env := envelope(t, first); env["status"].(float64) != http.StatusAccepted {
		t.Fatalf("first scan not accepted: %s", first.Body.String())
	}

	second := doRequest(h, http.MethodPost, "/api/scan", `{"timeframes":["1hr"]}`)
	if env := envelope(t, second); env["status"].(float64) != http.StatusConflict {
		t.Fatalf("second scan status = %v, want 409: %s", env["status"], second.Body.String())
	}
}

func TestCancelWithoutJob(t *testing.T) {
	h, _, _ := newHandler(t, &stubCandles{})
	rec := doRequest(h, http.MethodPost, "/api/scan/cancel", "")
	if env := envelope(t, rec); env["status"].(float64) != http.StatusNotFound {
		t.Fatalf("status = %v, want 404", env["status"])
	}
}

func TestResultsFormatting(t *testing.T) {
	h, store, _ := newHandler(t, &stubCandles{})
	ts := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)
	store.Replace(&models.ResultSet{
		JobID: "job-1",
		Signals: []models.Signal{{
			Symbol:             "BTCUSDT",
			DisplayName:        "BTC/USDT:USDT",
			Timeframe:          "4hr",
			Direction:          models.DirectionLong,
			AngleDegrees:       12.345,
			GapPercent:         0.4192,
			DailyChangePercent: 1.2,
			Timestamp:          ts,
			Variant:            models.VariantAmaPro,
		}},
		CompletedAt: ts,
		Duration:    90 * time.Second,
	})

	rec := doRequest(h, http.MethodGet, "/api/results", "")
	env := envelope(t, rec)
	data := env["data"].(map[string]interface{})
	signals := data["signals"].([]interface{})
	if len(signals) != 1 {
		t.Fatalf("signals = %v", signals)
	}
	s := signals[0].(map[string]interface{})
	if s["pair"] != "BTC/USDT:USDT" || s["timeframe"] != "4hr" || s["direction"] != "LONG" {
		t.Fatalf("signal = %v", s)
	}
	if s["angle"] != "12.35°" {
		t.Fatalf("angle = %v, want 12.35°", s["angle"])
	}
	if s["gap"] != "0.42%" {
		t.Fatalf("gap = %v, want 0.42%%", s["gap"])
	}
	if s["daily_change"] != "+1.20%" {
		t.Fatalf("daily_change = %v, want +1.20%%", s["daily_change"])
	}
	if s["timestamp"] != "2024-06-01T12:00:00Z" {
		t.Fatalf("timestamp = %v", s["timestamp"])
	}
}

func TestResultsEmptyBeforeFirstScan(t *testing.T) {
	h, _, _ := newHandler(t, &stubCandles{})
	rec := doRequest(h, http.MethodGet, "/api/results", "")
	env := envelope(t, rec)
	data := env["data"].(map[string]interface{})
	if signals := data["signals"].([]interface{}); len(signals) != 0 {
		t.Fatalf("signals = %v, want empty", signals)
	}
}

func TestLogsEndpointServesBuffer(t *testing.T) {
	h, _, log := newHandler(t, &stubCandles{})
	log.Info("scan warming up")
	log.Warn("rate limited")

	rec := doRequest(h, http.MethodGet, "/api/logs", "")
	env := envelope(t, rec)
	data := env["data"].(map[string]interface{})
	lines := data["logs"].([]interface{})
	if len(lines) != 2 {
		t.Fatalf("lines = %v", lines)
	}
	if !strings.Contains(lines[0].(string), "INFO - scan warming up") {
		t.Fatalf("line 0 = %v", lines[0])
	}
	if !strings.Contains(lines[1].(string), "WARNING - rate limited") {
		t.Fatalf("line 1 = %v", lines[1])
	}
}

func TestStatusEndpoint(t *testing.T) {
	h, _, _ := newHandler(t, &stubCandles{})
	rec := doRequest(h, http.MethodGet, "/api/status", "")
	env := envelope(t, rec)
	data := env["data"].(map[string]interface{})
	if data["scan_status"] != "idle" {
		t.Fatalf("scan_status = %v, want idle", data["scan_status"])
	}
	if data["stream_connected"] != false {
		t.Fatalf("stream_connected = %v", data["stream_connected"])
	}
}
