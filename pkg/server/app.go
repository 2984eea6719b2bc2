package server

import (
	"context"
	"os"
	"os/signal"
	"syscall"

	"TemaScan/internal/domain/repository"
	"TemaScan/internal/usecase"
	"TemaScan/pkg/config"
	xhttp "TemaScan/pkg/http"
	applogger "TemaScan/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	snapshot   *usecase.MarketSnapshot
	handler    xhttp.Handler
	publisher  repository.SignalPublisher
	httpServer *xhttp.Server
}

// New creates a new App instance with all dependencies.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	snapshot *usecase.MarketSnapshot,
	handler xhttp.Handler,
	publisher repository.SignalPublisher,
) *App {
	return &App{
		cfg:       cfg,
		log:       log,
		snapshot:  snapshot,
		handler:   handler,
		publisher: publisher,
	}
}

// Run starts the application and blocks until interrupted.
func (a *App) Run() error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	a.httpServer = xhttp.NewServer(a.handler,
		xhttp.WithPort(a.cfg.Server.Port),
		xhttp.WithTimeouts(a.cfg.Server.ReadTimeout, a.cfg.Server.WriteTimeout, a.cfg.Server.ShutdownTimeout),
		xhttp.WithMetrics(a.cfg.Metrics.Enabled, a.cfg.Metrics.Path),
		xhttp.WithLogger(a.log.WithoutBuffer()),
	)

	// The live price stream is best-effort: scans fetch candles over REST
	// and run fine without a websocket connection.
	if err := a.snapshot.Start(ctx); err != nil {
		a.log.Warn("market stream unavailable", applogger.Error(err))
	} else {
		a.log.Info("market stream started", applogger.Strings("symbols", a.cfg.Universe.HeadlineSymbols))
	}

	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}
	a.log.Info("http server listening", applogger.Int("port", a.cfg.Server.Port))

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, os.Interrupt, syscall.SIGTERM)
	<-sigCh

	a.log.Info("shutdown signal received")
	return a.shutdown(ctx)
}

// shutdown gracefully stops all services.
func (a *App) shutdown(ctx context.Context) error {
	if err := a.snapshot.Stop(); err != nil {
		a.log.Warn("market stream stop error", applogger.Error(err))
	}

	shutdownCtx, cancel := context.WithTimeout(ctx, a.cfg.Server.ShutdownTimeout)
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	if a.publisher != nil {
		if err := a.publisher.Close(); err != nil {
			a.log.Warn("publisher close error", applogger.Error(err))
		}
	}

	a.log.Info("shutdown complete")
	return nil
}
