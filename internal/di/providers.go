package di

import (
	"fmt"
	"net"
	"strconv"

	"TemaScan/internal/domain/repository"
	"TemaScan/internal/handler/api"
	internalrepo "TemaScan/internal/repository"
	"TemaScan/internal/service/binance"
	"TemaScan/internal/service/retry"
	"TemaScan/internal/service/universe"
	"TemaScan/internal/usecase"
	"TemaScan/pkg/cache"
	"TemaScan/pkg/config"
	xhttp "TemaScan/pkg/http"
	pkgkafka "TemaScan/pkg/kafka"
	"TemaScan/pkg/logger"
	"TemaScan/pkg/metrics"
	"TemaScan/pkg/server"
)

// ProvideLogger creates the application logger with its log buffer.
func ProvideLogger(cfg *config.Config) (*logger.Logger, error) {
	return logger.New(&logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		Output:     cfg.Log.Output,
		BufferSize: cfg.Log.BufferSize,
	})
}

// ProvideMetrics creates a Prometheus metrics recorder.
func ProvideMetrics() repository.Metrics {
	return metrics.New()
}

// ProvideBinanceClient creates the Binance REST client.
func ProvideBinanceClient(cfg *config.Config) *binance.Client {
	return binance.NewClient(
		binance.WithBaseURLs(cfg.Binance.SpotURL, cfg.Binance.FuturesURL),
		binance.WithHTTPTimeout(cfg.Binance.HTTPTimeout),
	)
}

// ProvideMarketStream creates the Binance websocket ticker stream.
func ProvideMarketStream(cfg *config.Config) repository.MarketStream {
	return binance.NewStream(
		cfg.Binance.WebSocketURL,
		cfg.Universe.HeadlineSymbols,
		cfg.Binance.ReconnectDelay,
		cfg.Binance.PingInterval,
	)
}

// ProvideCache picks the cache backend: memory only, or memory over Redis.
func ProvideCache(cfg *config.Config) (cache.Service, error) {
	if !cfg.Redis.Enabled {
		return cache.NewMemoryCache(), nil
	}

	host, portStr, err := net.SplitHostPort(cfg.Redis.Addr)
	if err != nil {
		return nil, fmt.Errorf("redis addr %q: %w", cfg.Redis.Addr, err)
	}
	port, err := strconv.Atoi(portStr)
	if err != nil {
		return nil, fmt.Errorf("redis port %q: %w", portStr, err)
	}

	redisCache, err := cache.NewRedisCache(
		cache.WithRedisHost(host),
		cache.WithRedisPort(port),
		cache.WithRedisPassword(cfg.Redis.Password),
		cache.WithRedisDB(cfg.Redis.DB),
		cache.WithRedisPrefix("temascan"),
	)
	if err != nil {
		return nil, fmt.Errorf("redis cache: %w", err)
	}
	return cache.NewLayeredCache(redisCache), nil
}

// ProvideUniverse creates the volume-ranked instrument resolver.
func ProvideUniverse(client *binance.Client, c cache.Service, cfg *config.Config, log *logger.Logger) repository.InstrumentUniverse {
	return universe.NewResolver(client, c, cfg.Universe.CacheTTL, log)
}

// ProvideResultStore creates the in-memory latest-result holder.
func ProvideResultStore() *usecase.ResultStore {
	return usecase.NewResultStore()
}

// ProvideSignalPublisher creates the Kafka publisher when enabled.
// A nil publisher means scan results stay local.
func ProvideSignalPublisher(cfg *config.Config) (repository.SignalPublisher, error) {
	if !cfg.Kafka.Enabled {
		return nil, nil
	}

	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithHashByKey(true),
	)
	if err != nil {
		return nil, fmt.Errorf("kafka producer: %w", err)
	}
	return internalrepo.NewKafkaSignalPublisher(producer, cfg.Kafka.Topic), nil
}

// ProvideOrchestrator creates the scan orchestrator.
func ProvideOrchestrator(
	uni repository.InstrumentUniverse,
	client *binance.Client,
	store *usecase.ResultStore,
	publisher repository.SignalPublisher,
	m repository.Metrics,
	log *logger.Logger,
	cfg *config.Config,
) *usecase.Orchestrator {
	return usecase.NewOrchestrator(uni, client, store, m, log,
		usecase.WithWorkers(cfg.Scan.Workers),
		usecase.WithCandleLimit(cfg.Binance.CandleLimit),
		usecase.WithRetryPolicy(retry.Policy{
			MaxAttempts: cfg.Scan.RetryAttempts,
			BackoffMin:  cfg.Scan.RetryBackoff.Min,
			BackoffMax:  cfg.Scan.RetryBackoff.Max,
		}),
		usecase.WithPublisher(publisher),
	)
}

// ProvideMarketSnapshot creates the live market-data overlay.
func ProvideMarketSnapshot(
	stream repository.MarketStream,
	uni repository.InstrumentUniverse,
	m repository.Metrics,
	log *logger.Logger,
) *usecase.MarketSnapshot {
	return usecase.NewMarketSnapshot(stream, uni, m, log)
}

// ProvideScanHandler creates the HTTP API handler.
func ProvideScanHandler(
	log *logger.Logger,
	orch *usecase.Orchestrator,
	store *usecase.ResultStore,
	snapshot *usecase.MarketSnapshot,
) xhttp.Handler {
	return api.NewScanEchoHandler(log, orch, store, snapshot)
}

// ProvideApp assembles the application.
func ProvideApp(
	cfg *config.Config,
	log *logger.Logger,
	snapshot *usecase.MarketSnapshot,
	handler xhttp.Handler,
	publisher repository.SignalPublisher,
) *server.App {
	return server.New(cfg, log, snapshot, handler, publisher)
}
