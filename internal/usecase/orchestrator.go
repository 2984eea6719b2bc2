package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"TemaScan/internal/domain/models"
	drepo "TemaScan/internal/domain/repository"
	"TemaScan/internal/service/retry"
	"TemaScan/internal/services/scanner"
	"TemaScan/pkg/logger"
	"TemaScan/pkg/workpool"
)

var (
	// ErrJobConflict rejects a scan start while another job is running.
	ErrJobConflict = errors.New("a scan is already running")
	// ErrNoActiveJob rejects a cancel when nothing is running.
	ErrNoActiveJob = errors.New("no scan is running")
	// ErrValidation marks malformed scan parameters.
	ErrValidation = errors.New("invalid scan parameters")
)

const cancelledReason = "cancelled"

// Orchestrator runs scans over the (symbol x timeframe) work matrix. At
// most one job runs at a time; admission is a compare-and-set on the job
// status under the orchestrator mutex.
type Orchestrator struct {
	universe  drepo.InstrumentUniverse
	candles   drepo.CandleSource
	store     *ResultStore
	publisher drepo.SignalPublisher
	metrics   drepo.Metrics
	log       *logger.Logger

	policy      retry.Policy
	workers     int
	candleLimit int

	mu     sync.Mutex
	job    *models.ScanJob
	cancel context.CancelFunc
}

// OrchestratorOption configures the Orchestrator.
type OrchestratorOption func(*Orchestrator)

// WithWorkers bounds the scan worker pool.
func WithWorkers(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.workers = n
		}
	}
}

// WithCandleLimit sets how many candles each unit fetches.
func WithCandleLimit(n int) OrchestratorOption {
	return func(o *Orchestrator) {
		if n > 0 {
			o.candleLimit = n
		}
	}
}

// WithRetryPolicy overrides the fetch retry policy.
func WithRetryPolicy(p retry.Policy) OrchestratorOption {
	return func(o *Orchestrator) {
		o.policy = p
	}
}

// WithPublisher attaches an optional downstream signal publisher.
func WithPublisher(p drepo.SignalPublisher) OrchestratorOption {
	return func(o *Orchestrator) {
		o.publisher = p
	}
}

// NewOrchestrator creates a scan orchestrator.
func NewOrchestrator(
	universe drepo.InstrumentUniverse,
	candles drepo.CandleSource,
	store *ResultStore,
	metrics drepo.Metrics,
	log *logger.Logger,
	opts ...OrchestratorOption,
) *Orchestrator {
	o := &Orchestrator{
		universe:    universe,
		candles:     candles,
		store:       store,
		metrics:     metrics,
		log:         log,
		policy:      retry.Default(),
		workers:     15,
		candleLimit: 500,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// ValidateParameters checks a scan request before any work starts.
func ValidateParameters(p models.ScanParameters) error {
	if p.InstrumentCount <= 0 {
		return fmt.Errorf("%w: instrument count must be positive", ErrValidation)
	}
	if len(p.Timeframes) == 0 {
		return fmt.Errorf("%w: at least one timeframe is required", ErrValidation)
	}
	for _, tf := range p.Timeframes {
		if !drepo.IsValidTimeframe(drepo.Timeframe(tf)) {
			return fmt.Errorf("%w: unknown timeframe %q", ErrValidation, tf)
		}
	}
	switch p.AdaptationSpeed {
	case models.SpeedSlow, models.SpeedNormal, models.SpeedFast:
	default:
		return fmt.Errorf("%w: unknown adaptation speed %q", ErrValidation, p.AdaptationSpeed)
	}
	switch p.Variant {
	case models.VariantAmaPro, models.VariantQwen, models.VariantBoth:
	default:
		return fmt.Errorf("%w: unknown scanner variant %q", ErrValidation, p.Variant)
	}
	switch p.Market {
	case models.MarketSpot, models.MarketPerp, models.MarketBoth:
	default:
		return fmt.Errorf("%w: unknown market %q", ErrValidation, p.Market)
	}
	if p.MinBarsBetween < 0 {
		return fmt.Errorf("%w: min bars between must not be negative", ErrValidation)
	}
	return nil
}

// Start validates the parameters, admits the job if nothing is running and
// launches the scan asynchronously. The returned job is a snapshot.
func (o *Orchestrator) Start(ctx context.Context, params models.ScanParameters) (models.ScanJob, error) {
	if err := ValidateParameters(params); err != nil {
		return models.ScanJob{}, err
	}

	o.mu.Lock()
	if o.job != nil && o.job.Status == models.StatusRunning {
		o.mu.Unlock()
		return models.ScanJob{}, ErrJobConflict
	}

	runCtx, cancel := context.WithCancel(context.WithoutCancel(ctx))
	job := &models.ScanJob{
		ID:         uuid.NewString(),
		Status:     models.StatusRunning,
		Parameters: params,
		StartedAt:  time.Now().UTC(),
	}
	o.job = job
	o.cancel = cancel
	snapshot := *job
	o.mu.Unlock()

	go o.run(runCtx, job.ID, params)
	return snapshot, nil
}

// Cancel stops the running job. Workers notice between units; partially
// accumulated signals are discarded.
func (o *Orchestrator) Cancel() error {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job == nil || o.job.Status != models.StatusRunning {
		return ErrNoActiveJob
	}
	o.cancel()
	return nil
}

// Job returns a snapshot of the most recent job, or an idle placeholder
// when no scan has run yet.
func (o *Orchestrator) Job() models.ScanJob {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job == nil {
		return models.ScanJob{Status: models.StatusIdle}
	}
	snapshot := *o.job
	snapshot.Parameters.Timeframes = append([]string(nil), o.job.Parameters.Timeframes...)
	return snapshot
}

type scanUnit struct {
	instrument models.Instrument
	timeframe  drepo.Timeframe
}

func (o *Orchestrator) run(ctx context.Context, jobID string, params models.ScanParameters) {
	o.log.Buffer().Clear()
	started := time.Now()
	o.log.Info("scan started",
		logger.String("job_id", jobID),
		logger.Int("instruments", params.InstrumentCount),
		logger.Strings("timeframes", params.Timeframes),
		logger.String("variant", string(params.Variant)),
	)

	instruments, err := o.universe.TopInstruments(ctx, params.InstrumentCount, params.Market)
	if err != nil {
		o.log.Error("universe resolution failed", logger.Error(err))
		o.finish(jobID, models.StatusFailed, err.Error())
		return
	}

	units := make([]scanUnit, 0, len(instruments)*len(params.Timeframes))
	for _, in := range instruments {
		for _, tf := range params.Timeframes {
			units = append(units, scanUnit{instrument: in, timeframe: drepo.Timeframe(tf)})
		}
	}
	o.setTotalUnits(jobID, len(units))

	spacing := scanner.NewSpacingFilter(params.MinBarsBetween)
	pool := workpool.New(o.workers)

	var accMu sync.Mutex
	var signals []models.Signal

	for _, u := range units {
		u := u
		dispatched := pool.Go(ctx, func() {
			found := o.processUnit(ctx, u, params, spacing, func(s models.Signal) {
				accMu.Lock()
				signals = append(signals, s)
				accMu.Unlock()
			})
			o.unitDone(jobID, found)
		})
		if !dispatched {
			break
		}
	}
	pool.Wait()

	if ctx.Err() != nil {
		o.log.Warn("scan cancelled", logger.String("job_id", jobID))
		o.finish(jobID, models.StatusFailed, cancelledReason)
		return
	}

	rs := &models.ResultSet{
		JobID:       jobID,
		Signals:     signals,
		CompletedAt: time.Now().UTC(),
		Duration:    time.Since(started),
	}
	o.store.Replace(rs)
	if o.publisher != nil {
		if err := o.publisher.PublishResultSet(ctx, rs); err != nil {
			o.log.Error("result publish failed", logger.Error(err))
		}
	}

	o.metrics.RecordScanDuration(time.Since(started).Seconds())
	o.log.Info("scan completed",
		logger.String("job_id", jobID),
		logger.Int("signals", len(signals)),
		logger.Duration("duration", time.Since(started)),
	)
	o.finish(jobID, models.StatusCompleted, "")
}

// processUnit runs fetch -> compute -> detect -> filter for one
// (symbol, timeframe) pair and reports whether it emitted a signal.
func (o *Orchestrator) processUnit(ctx context.Context, u scanUnit, params models.ScanParameters, spacing *scanner.SpacingFilter, emit func(models.Signal)) bool {
	sym, tf := u.instrument.Symbol, u.timeframe

	var candles []models.Candle
	err := o.policy.Do(ctx, func(ctx context.Context) error {
		var ferr error
		candles, ferr = o.candles.Candles(ctx, sym, u.instrument.Market, tf, o.candleLimit)
		return ferr
	}, func(attempt int, err error) {
		o.metrics.RecordFetchRetry(retryKind(err))
		o.log.Warn("fetch retry",
			logger.String("symbol", sym),
			logger.String("timeframe", string(tf)),
			logger.Int("attempt", attempt),
			logger.Error(err),
		)
	})
	if err != nil {
		o.metrics.RecordUnitOutcome("failed")
		o.log.Error("unit failed",
			logger.String("symbol", sym),
			logger.String("timeframe", string(tf)),
			logger.Error(err),
		)
		return false
	}

	closes := models.Closes(candles)
	found := false
	for _, variant := range params.Variant.Expand() {
		fast, slow := drepo.PeriodsFor(tf, params.AdaptationSpeed, variant)
		pair, err := scanner.ComputePair(closes, fast, slow)
		if err != nil {
			if errors.Is(err, scanner.ErrInsufficientHistory) {
				o.metrics.RecordUnitOutcome("skipped")
				o.log.Warn("insufficient history",
					logger.String("symbol", sym),
					logger.String("timeframe", string(tf)),
					logger.Int("slow_period", slow),
					logger.Int("candles", len(candles)),
				)
				continue
			}
			o.metrics.RecordUnitOutcome("failed")
			o.log.Error("indicator computation failed",
				logger.String("symbol", sym),
				logger.String("timeframe", string(tf)),
				logger.Error(err),
			)
			continue
		}

		det, ok := scanner.Detect(candles, pair, params.MinBarsBetween)
		if !ok {
			continue
		}
		if !spacing.Accept(sym, string(tf), variant, det.Direction, det.Index) {
			o.log.Debug("signal suppressed by spacing",
				logger.String("symbol", sym),
				logger.String("timeframe", string(tf)),
				logger.String("direction", string(det.Direction)),
			)
			continue
		}

		emit(models.Signal{
			Symbol:             sym,
			DisplayName:        u.instrument.DisplayName,
			Timeframe:          string(tf),
			Direction:          det.Direction,
			AngleDegrees:       det.AngleDegrees,
			GapPercent:         det.GapPercent,
			DailyChangePercent: u.instrument.DailyChangePercent,
			CandleIndex:        det.Index,
			Timestamp:          candles[det.Index].CloseTime,
			Variant:            variant,
		})
		o.metrics.RecordSignal(string(det.Direction), string(tf))
		o.log.Info("signal found",
			logger.String("symbol", sym),
			logger.String("timeframe", string(tf)),
			logger.String("direction", string(det.Direction)),
			logger.Float64("angle", det.AngleDegrees),
		)
		found = true
	}
	if found {
		o.metrics.RecordUnitOutcome("signal")
	} else {
		o.metrics.RecordUnitOutcome("empty")
	}
	return found
}

func (o *Orchestrator) setTotalUnits(jobID string, total int) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job == nil || o.job.ID != jobID {
		return
	}
	o.job.TotalUnits = total
}

// unitDone advances progress after each unit, completed or failed.
func (o *Orchestrator) unitDone(jobID string, _ bool) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job == nil || o.job.ID != jobID {
		return
	}
	o.job.CompletedUnits++
	if o.job.TotalUnits > 0 {
		o.job.ProgressPercent = float64(o.job.CompletedUnits) / float64(o.job.TotalUnits) * 100
	}
	o.metrics.SetScanProgress(o.job.ProgressPercent)
}

func (o *Orchestrator) finish(jobID string, status models.ScanStatus, reason string) {
	o.mu.Lock()
	defer o.mu.Unlock()
	if o.job == nil || o.job.ID != jobID {
		return
	}
	o.job.Status = status
	o.job.Reason = reason
	o.job.CompletedAt = time.Now().UTC()
	if status == models.StatusCompleted {
		o.job.ProgressPercent = 100
	}
	o.metrics.SetScanProgress(0)
	if o.cancel != nil {
		o.cancel()
		o.cancel = nil
	}
}

func retryKind(err error) string {
	if retry.Classify(err) == retry.Transient {
		return "transient"
	}
	return "permanent"
}
