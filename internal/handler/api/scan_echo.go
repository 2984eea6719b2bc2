// Package api exposes the scanner over HTTP.
package api

import (
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"

	"TemaScan/internal/domain/models"
	"TemaScan/internal/service/metrics"
	"TemaScan/internal/service/ratelimit"
	"TemaScan/internal/usecase"
	xhttp "TemaScan/pkg/http"
	xlogger "TemaScan/pkg/logger"
)

// scan start throttle per client IP
const (
	scanStartCapacity = 3
	scanStartRefill   = 0.2 // tokens per second
)

// ScanEchoHandler implements the scanner HTTP API.
type ScanEchoHandler struct {
	logger   *xlogger.Logger
	orch     *usecase.Orchestrator
	results  *usecase.ResultStore
	snapshot *usecase.MarketSnapshot
	limiter  *ratelimit.Limiter
}

func NewScanEchoHandler(logger *xlogger.Logger, orch *usecase.Orchestrator, results *usecase.ResultStore, snapshot *usecase.MarketSnapshot) *ScanEchoHandler {
	metrics.Register()
	return &ScanEchoHandler{
		logger:   logger,
		orch:     orch,
		results:  results,
		snapshot: snapshot,
		limiter:  ratelimit.New(),
	}
}

func (h *ScanEchoHandler) RegisterRoutes(e *echo.Echo) {
	g := e.Group("/api")
	g.POST("/scan", h.StartScan)
	g.POST("/scan/cancel", h.CancelScan)
	g.GET("/scan", h.ScanJob)
	g.GET("/results", h.Results)
	g.GET("/logs", h.Logs)
	g.GET("/market-data", h.MarketData)
	g.GET("/status", h.Status)
}

// StartScan admits a new scan job. 202 on admission, 409 while another
// scan runs, 400 on bad parameters.
func (h *ScanEchoHandler) StartScan(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.APILatency.WithLabelValues("scan_start").Observe(time.Since(start).Seconds())
	}()

	if !h.limiter.Allow(c.RealIP(), scanStartCapacity, scanStartRefill) {
		return xhttp.DataResponse(c, http.StatusTooManyRequests, "too many scan requests")
	}

	req := &models.ScanRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		metrics.APIErrors.WithLabelValues("scan_start").Inc()
		return xhttp.BadRequestResponse(c, verr)
	}

	job, err := h.orch.Start(c.Request().Context(), req.Parameters())
	if err != nil {
		metrics.APIErrors.WithLabelValues("scan_start").Inc()
		switch {
		case errors.Is(err, usecase.ErrJobConflict):
			return xhttp.AppErrorResponse(c, xhttp.ConflictError(err.Error()))
		case errors.Is(err, usecase.ErrValidation):
			return xhttp.AppErrorResponse(c, xhttp.BadRequestError(err.Error()))
		default:
			h.logger.Error("scan start failed", xlogger.Error(err))
			return xhttp.AppErrorResponse(c, err)
		}
	}

	return xhttp.DataResponse(c, http.StatusAccepted, map[string]interface{}{
		"job_id": job.ID,
		"status": job.Status,
	})
}

// CancelScan stops the running job.
func (h *ScanEchoHandler) CancelScan(c echo.Context) error {
	if err := h.orch.Cancel(); err != nil {
		if errors.Is(err, usecase.ErrNoActiveJob) {
			return xhttp.AppErrorResponse(c, xhttp.NotFoundError(err.Error()))
		}
		h.logger.Error("scan cancel failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, err)
	}
	return xhttp.SuccessResponse(c, map[string]interface{}{"status": "cancelling"})
}

// ScanJob returns the current or most recent job snapshot.
func (h *ScanEchoHandler) ScanJob(c echo.Context) error {
	return xhttp.SuccessResponse(c, h.orch.Job())
}

type signalView struct {
	Pair        string `json:"pair"`
	Timeframe   string `json:"timeframe"`
	Direction   string `json:"direction"`
	Angle       string `json:"angle"`
	Gap         string `json:"gap"`
	DailyChange string `json:"daily_change"`
	Variant     string `json:"variant,omitempty"`
	Timestamp   string `json:"timestamp"`
}

type resultsView struct {
	JobID       string       `json:"job_id"`
	Signals     []signalView `json:"signals"`
	CompletedAt string       `json:"completed_at"`
	DurationMS  int64        `json:"duration_ms"`
}

// Results serves the latest completed result set. Stale results stay
// available while a new scan runs.
func (h *ScanEchoHandler) Results(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.APILatency.WithLabelValues("results").Observe(time.Since(start).Seconds())
	}()

	rs := h.results.Latest()
	if rs == nil {
		return xhttp.SuccessResponse(c, &resultsView{Signals: []signalView{}})
	}

	views := make([]signalView, 0, len(rs.Signals))
	for _, s := range rs.Signals {
		views = append(views, signalView{
			Pair:        s.DisplayName,
			Timeframe:   s.Timeframe,
			Direction:   string(s.Direction),
			Angle:       fmt.Sprintf("%.2f°", s.AngleDegrees),
			Gap:         fmt.Sprintf("%.2f%%", s.GapPercent),
			DailyChange: fmt.Sprintf("%+.2f%%", s.DailyChangePercent),
			Variant:     string(s.Variant),
			Timestamp:   s.Timestamp.UTC().Format(time.RFC3339),
		})
	}

	return xhttp.SuccessResponse(c, &resultsView{
		JobID:       rs.JobID,
		Signals:     views,
		CompletedAt: rs.CompletedAt.UTC().Format(time.RFC3339),
		DurationMS:  rs.Duration.Milliseconds(),
	})
}

// Logs serves the bounded log buffer, oldest line first.
func (h *ScanEchoHandler) Logs(c echo.Context) error {
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"logs": h.logger.Buffer().Lines(),
	})
}

// MarketData serves headline instruments with live prices.
func (h *ScanEchoHandler) MarketData(c echo.Context) error {
	start := time.Now()
	defer func() {
		metrics.APILatency.WithLabelValues("market_data").Observe(time.Since(start).Seconds())
	}()

	req := &models.MarketDataRequest{}
	if verr := xhttp.ReadAndValidateRequest(c, req); verr != nil {
		return xhttp.BadRequestResponse(c, verr)
	}

	list, err := h.snapshot.Snapshot(c.Request().Context(), req.Count, models.Market(req.Market))
	if err != nil {
		metrics.APIErrors.WithLabelValues("market_data").Inc()
		h.logger.Error("market snapshot failed", xlogger.Error(err))
		return xhttp.AppErrorResponse(c, xhttp.InternalError("market data unavailable"))
	}
	return xhttp.SuccessResponse(c, list)
}

// Status reports service health: job state and stream connectivity.
func (h *ScanEchoHandler) Status(c echo.Context) error {
	job := h.orch.Job()
	return xhttp.SuccessResponse(c, map[string]interface{}{
		"scan_status":      job.Status,
		"progress_percent": job.ProgressPercent,
		"stream_connected": h.snapshot.IsConnected(),
		"timestamp":        time.Now().UTC().Format(time.RFC3339),
	})
}
