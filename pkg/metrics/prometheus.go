package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder implements domain.repository.Metrics using Prometheus.
type Recorder struct {
	unitOutcomes *prometheus.CounterVec
	signals      *prometheus.CounterVec
	fetchRetries *prometheus.CounterVec
	scanDuration prometheus.Histogram
	scanProgress prometheus.Gauge
	lastPrice    *prometheus.GaugeVec
}

// New creates a new Prometheus metrics recorder.
func New() *Recorder {
	return &Recorder{
		unitOutcomes: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "temascan_scan_units_total",
				Help: "Scan units processed, by outcome",
			},
			[]string{"outcome"},
		),
		signals: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "temascan_signals_total",
				Help: "Crossover signals detected, by direction and timeframe",
			},
			[]string{"direction", "timeframe"},
		),
		fetchRetries: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Name: "temascan_fetch_retries_total",
				Help: "Retried market data fetches, by error kind",
			},
			[]string{"kind"},
		),
		scanDuration: promauto.NewHistogram(
			prometheus.HistogramOpts{
				Name:    "temascan_scan_duration_seconds",
				Help:    "Duration of completed scans in seconds",
				Buckets: []float64{1, 5, 15, 30, 60, 120, 300, 600},
			},
		),
		scanProgress: promauto.NewGauge(
			prometheus.GaugeOpts{
				Name: "temascan_scan_progress_percent",
				Help: "Progress of the running scan, 0 when idle",
			},
		),
		lastPrice: promauto.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "temascan_last_price",
				Help: "Last streamed price for a symbol",
			},
			[]string{"symbol"},
		),
	}
}

// RecordUnitOutcome counts one processed scan unit.
func (r *Recorder) RecordUnitOutcome(outcome string) {
	r.unitOutcomes.WithLabelValues(outcome).Inc()
}

// RecordSignal counts one detected crossover.
func (r *Recorder) RecordSignal(direction, timeframe string) {
	r.signals.WithLabelValues(direction, timeframe).Inc()
}

// RecordFetchRetry counts one retried fetch.
func (r *Recorder) RecordFetchRetry(kind string) {
	r.fetchRetries.WithLabelValues(kind).Inc()
}

// RecordScanDuration records the wall time of a finished scan.
func (r *Recorder) RecordScanDuration(seconds float64) {
	r.scanDuration.Observe(seconds)
}

// SetScanProgress publishes scan progress as a gauge.
func (r *Recorder) SetScanProgress(percent float64) {
	r.scanProgress.Set(percent)
}

// RecordLastPrice records the last streamed price for a symbol.
func (r *Recorder) RecordLastPrice(symbol string, price float64) {
	r.lastPrice.WithLabelValues(symbol).Set(price)
}
