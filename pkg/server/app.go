package server

import (
	"context"
	"os/signal"
	"syscall"
	"time"

	"HeartForm/internal/service/ratelimit"
	"HeartForm/internal/usecase"
	"HeartForm/pkg/config"
	xhttp "HeartForm/pkg/http"
	pkgkafka "HeartForm/pkg/kafka"
	applogger "HeartForm/pkg/logger"
)

// App encapsulates the entire application lifecycle.
type App struct {
	cfg        *config.Config
	log        *applogger.Logger
	httpServer *xhttp.Server
	sessions   *usecase.SessionRegistry
	recorder   *usecase.AttemptRecorder
	limiter    *ratelimit.Limiter
}

// New creates a new App instance with all dependencies. producer is nil
// when no Kafka brokers are configured; it only feeds the log collector.
func New(
	cfg *config.Config,
	log *applogger.Logger,
	httpServer *xhttp.Server,
	sessions *usecase.SessionRegistry,
	recorder *usecase.AttemptRecorder,
	limiter *ratelimit.Limiter,
	producer *pkgkafka.Producer,
) *App {
	a := &App{
		cfg:        cfg,
		log:        log,
		httpServer: httpServer,
		sessions:   sessions,
		recorder:   recorder,
		limiter:    limiter,
	}
	if producer != nil && cfg.Log.CollectTopic != "" {
		log.AddCollector(&applogger.CollectionConfig{
			TimeInterval:   30 * time.Second,
			CountThreshold: 100,
			Topic:          cfg.Log.CollectTopic,
			Publisher:      producer,
		})
	}
	return a
}

// Run starts the application and blocks until ctx is done or the process
// is interrupted.
func (a *App) Run(ctx context.Context) error {
	ctx, stop := signal.NotifyContext(ctx, syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	a.recorder.Start(ctx)
	a.sessions.Start(ctx)
	go a.pruneLimiter(ctx)

	a.log.Info("recording attempts", applogger.String("backend", a.recorder.Backend()))
	if err := a.httpServer.Start(); err != nil {
		a.log.Error("http server start error", applogger.Error(err))
		return err
	}

	<-ctx.Done()
	a.log.Info("shutdown signal received")
	return a.shutdown()
}

func (a *App) pruneLimiter(ctx context.Context) {
	interval := a.cfg.Sessions.SweepInterval
	if interval <= 0 {
		interval = time.Minute
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			a.limiter.Prune()
		}
	}
}

// shutdown gracefully stops all services. In-flight predictions are not
// waited for; their completions are dropped with the forms. Kafka and
// ClickHouse clients are closed afterwards by the injector's cleanup.
func (a *App) shutdown() error {
	a.log.Info("shutting down...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), a.httpServer.ShutdownTimeout())
	defer cancel()
	if err := a.httpServer.Stop(shutdownCtx); err != nil {
		a.log.Error("http shutdown error", applogger.Error(err))
	}

	a.sessions.Close()
	a.recorder.Stop()

	a.log.RemoveCollector()

	a.log.Info("shutdown complete")
	return nil
}
