package di

import (
	"context"
	"fmt"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"HeartForm/internal/domain/repository"
	"HeartForm/internal/domain/service"
	"HeartForm/internal/handler/api"
	internalrepo "HeartForm/internal/repository"
	"HeartForm/internal/service/ratelimit"
	"HeartForm/internal/services/prediction"
	"HeartForm/internal/usecase"
	"HeartForm/internal/view"
	"HeartForm/pkg/cache"
	pkgch "HeartForm/pkg/clickhouse"
	"HeartForm/pkg/config"
	xhttp "HeartForm/pkg/http"
	pkgkafka "HeartForm/pkg/kafka"
	applogger "HeartForm/pkg/logger"
	"HeartForm/pkg/metrics"
	"HeartForm/pkg/server"
)

// ProvideLogger creates the application logger from config.
func ProvideLogger(cfg *config.Config) (*applogger.Logger, error) {
	l, err := applogger.New(&applogger.Config{
		Level:  cfg.Log.Level,
		Format: cfg.Log.Format,
		Output: cfg.Log.Output,
	})
	if err != nil {
		return nil, fmt.Errorf("logger: %w", err)
	}
	return l, nil
}

// ProvideMetrics creates a Prometheus metrics recorder on the default registry
// served at /metrics.
func ProvideMetrics() repository.Metrics {
	return metrics.New(prometheus.DefaultRegisterer)
}

// ProvideKafkaProducer creates a Kafka producer, or nil when no brokers are
// configured. The cleanup closes it.
func ProvideKafkaProducer(cfg *config.Config, l *applogger.Logger) (*pkgkafka.Producer, func(), error) {
	if len(cfg.Kafka.Brokers) == 0 {
		return nil, func() {}, nil
	}
	producer, err := pkgkafka.NewProducer(
		pkgkafka.WithBrokers(cfg.Kafka.Brokers),
		pkgkafka.WithCompression(cfg.Kafka.Compression),
		pkgkafka.WithRequiredAcks(cfg.Kafka.RequiredAcks),
		pkgkafka.WithMaxAttempts(cfg.Kafka.Producer.MaxAttempts),
		pkgkafka.WithBatching(cfg.Kafka.Producer.BatchSize, cfg.Kafka.Producer.Linger),
		pkgkafka.WithWriteTimeout(cfg.Kafka.Producer.WriteTimeout),
		pkgkafka.WithAsync(cfg.Kafka.Producer.Async),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("kafka producer: %w", err)
	}
	cleanup := func() {
		if err := producer.Close(); err != nil {
			l.Warn("kafka producer close error", applogger.Error(err))
		}
	}
	return producer, cleanup, nil
}

// ProvideClickHouseClient creates a ClickHouse client when attempts are
// recorded there, otherwise nil. The cleanup closes it.
func ProvideClickHouseClient(cfg *config.Config, l *applogger.Logger) (*pkgch.Client, func(), error) {
	if cfg.Recording.Backend != usecase.RecordClickHouse {
		return nil, func() {}, nil
	}
	client, err := pkgch.NewClient(
		pkgch.WithHost(cfg.ClickHouse.Host),
		pkgch.WithPort(cfg.ClickHouse.Port),
		pkgch.WithDatabase(cfg.ClickHouse.Database),
		pkgch.WithCredentials(cfg.ClickHouse.User, cfg.ClickHouse.Password),
		pkgch.WithHTTP(cfg.ClickHouse.UseHTTP),
		pkgch.WithAsyncInsert(cfg.ClickHouse.AsyncInsert),
		pkgch.WithTimeouts(cfg.ClickHouse.DialTimeout, cfg.ClickHouse.ReadTimeout),
	)
	if err != nil {
		return nil, nil, fmt.Errorf("clickhouse client: %w", err)
	}

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := client.InitSchema(ctx, []string{
		fmt.Sprintf("CREATE DATABASE IF NOT EXISTS %s", cfg.ClickHouse.Database),
	}); err != nil {
		_ = client.Close()
		return nil, nil, fmt.Errorf("clickhouse schema: %w", err)
	}
	cleanup := func() {
		if err := client.Close(); err != nil {
			l.Warn("clickhouse close error", applogger.Error(err))
		}
	}
	return client, cleanup, nil
}

// ProvideAttemptPublisher creates the Kafka attempt publisher, or nil
// without a producer.
func ProvideAttemptPublisher(producer *pkgkafka.Producer, cfg *config.Config) repository.AttemptPublisher {
	if producer == nil {
		return nil
	}
	return internalrepo.NewKafkaAttemptPublisher(producer, cfg.Kafka.Topic)
}

// ProvideAttemptStorage creates ClickHouse attempt storage and its table.
func ProvideAttemptStorage(ch *pkgch.Client, cfg *config.Config) (repository.AttemptStorage, error) {
	if ch == nil {
		return nil, nil
	}
	store := internalrepo.NewClickHouseAttemptStorage(ch.DB(), cfg.ClickHouse.Database+".prediction_attempts")
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Init(ctx); err != nil {
		return nil, err
	}
	return store, nil
}

// ProvideAttemptRecorder creates the attempt recorder for the configured backend.
func ProvideAttemptRecorder(
	pub repository.AttemptPublisher,
	store repository.AttemptStorage,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.AttemptRecorder {
	return usecase.NewAttemptRecorder(pub, store, m, l, cfg.Recording.Backend)
}

// ProvideSnapshotStore creates the session snapshot store. The cleanup
// closes the underlying cache.
func ProvideSnapshotStore(cfg *config.Config) (repository.SnapshotStore, func(), error) {
	var c cache.Service
	switch cfg.Sessions.Snapshot.Backend {
	case "memory":
		c = cache.NewMemoryCache(cache.WithMemoryMaxSize(10000))
	case "redis":
		rc, err := cache.NewRedisCache(
			cache.WithRedisAddr(cfg.Redis.Host, cfg.Redis.Port),
			cache.WithRedisAuth(cfg.Redis.Password, cfg.Redis.DB),
			cache.WithRedisPrefix(cfg.Redis.Prefix),
		)
		if err != nil {
			return nil, nil, fmt.Errorf("redis snapshot store: %w", err)
		}
		c = rc
	default:
		return nil, func() {}, nil
	}
	cleanup := func() { _ = c.Close() }
	return internalrepo.NewCacheSnapshotStore(c, cfg.Sessions.Snapshot.TTL), cleanup, nil
}

// ProvidePredictor creates the HTTP client for the prediction service.
func ProvidePredictor(cfg *config.Config, l *applogger.Logger) service.Predictor {
	return prediction.NewHTTPPredictor(cfg.Predictor.BaseURL,
		prediction.WithTimeout(cfg.Predictor.Timeout),
		prediction.WithLogger(l),
	)
}

// ProvideSessionRegistry creates the per-session form registry.
func ProvideSessionRegistry(
	p service.Predictor,
	rec *usecase.AttemptRecorder,
	snapshots repository.SnapshotStore,
	m repository.Metrics,
	l *applogger.Logger,
	cfg *config.Config,
) *usecase.SessionRegistry {
	opts := []usecase.RegistryOption{
		usecase.WithIdleTTL(cfg.Sessions.IdleTTL),
		usecase.WithSweepInterval(cfg.Sessions.SweepInterval),
	}
	if snapshots != nil {
		opts = append(opts, usecase.WithSnapshotStore(snapshots))
	}
	return usecase.NewSessionRegistry(p, rec, m, l, opts...)
}

// ProvideRateLimiter creates the per-session submit limiter.
func ProvideRateLimiter(cfg *config.Config) *ratelimit.Limiter {
	return ratelimit.New(cfg.RateLimit.Capacity, cfg.RateLimit.RefillPerSec)
}

// ProvideFormHandler creates the HTTP handler for the form.
func ProvideFormHandler(l *applogger.Logger, reg *usecase.SessionRegistry, limiter *ratelimit.Limiter, cfg *config.Config) xhttp.Handler {
	return api.NewFormEchoHandler(l, reg, limiter, cfg.Sessions.CookieName)
}

// ProvideHTTPServer creates the echo server with the page renderer.
func ProvideHTTPServer(h xhttp.Handler, l *applogger.Logger, cfg *config.Config) (*xhttp.Server, error) {
	templates, err := view.ParseTemplates()
	if err != nil {
		return nil, fmt.Errorf("parse templates: %w", err)
	}
	metricsPath := ""
	if cfg.Metrics.Enabled {
		metricsPath = cfg.Metrics.Path
	}
	return xhttp.NewServer(h,
		xhttp.WithHost(cfg.Server.Host),
		xhttp.WithPort(cfg.Server.Port),
		xhttp.WithTimeouts(cfg.Server.ReadTimeout, cfg.Server.WriteTimeout, cfg.Server.ShutdownTimeout),
		xhttp.WithCORS(cfg.Server.CORS),
		xhttp.WithMetricsPath(metricsPath),
		xhttp.WithRenderer(api.NewTemplateRenderer(templates)),
		xhttp.WithLogger(l),
	), nil
}

// ProvideApp creates the application.
func ProvideApp(
	cfg *config.Config,
	l *applogger.Logger,
	srv *xhttp.Server,
	reg *usecase.SessionRegistry,
	rec *usecase.AttemptRecorder,
	limiter *ratelimit.Limiter,
	producer *pkgkafka.Producer,
) *server.App {
	return server.New(cfg, l, srv, reg, rec, limiter, producer)
}
