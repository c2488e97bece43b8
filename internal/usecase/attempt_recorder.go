package usecase

import (
	"context"
	"fmt"
	"sync"
	"time"

	"HeartForm/internal/domain/models"
	drepo "HeartForm/internal/domain/repository"
	"HeartForm/pkg/logger"
)

const (
	RecordNone       = "none"
	RecordKafka      = "kafka"
	RecordClickHouse = "clickhouse"
)

// AttemptRecorder buffers finished attempts and writes them to the configured
// backend in the background. Failures are logged and counted; the form never
// sees them.
type AttemptRecorder struct {
	pub     drepo.AttemptPublisher
	store   drepo.AttemptStorage
	metrics drepo.Metrics
	log     *logger.Logger
	backend string

	bufCh      chan *models.Attempt
	stopCh     chan struct{}
	doneCh     chan struct{}
	started    bool
	mu         sync.Mutex
	timeout    time.Duration
	maxRetries int
}

type RecorderOption func(*AttemptRecorder)

// WithRecorderBuffer sets how many attempts may wait for the backend.
func WithRecorderBuffer(n int) RecorderOption {
	return func(r *AttemptRecorder) {
		if n > 0 {
			r.bufCh = make(chan *models.Attempt, n)
		}
	}
}

// WithRecorderTimeout bounds a single backend write.
func WithRecorderTimeout(d time.Duration) RecorderOption {
	return func(r *AttemptRecorder) {
		if d > 0 {
			r.timeout = d
		}
	}
}

func WithRecorderRetries(n int) RecorderOption {
	return func(r *AttemptRecorder) {
		if n >= 0 {
			r.maxRetries = n
		}
	}
}

// NewAttemptRecorder creates a recorder for backend (none, kafka or clickhouse).
func NewAttemptRecorder(
	pub drepo.AttemptPublisher,
	store drepo.AttemptStorage,
	metrics drepo.Metrics,
	log *logger.Logger,
	backend string,
	opts ...RecorderOption,
) *AttemptRecorder {
	if log == nil {
		log = logger.Nop()
	}
	r := &AttemptRecorder{
		pub:        pub,
		store:      store,
		metrics:    metrics,
		log:        log,
		backend:    backend,
		bufCh:      make(chan *models.Attempt, 256),
		stopCh:     make(chan struct{}),
		doneCh:     make(chan struct{}),
		timeout:    5 * time.Second,
		maxRetries: 2,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Backend returns the configured sink name.
func (r *AttemptRecorder) Backend() string { return r.backend }

// Record enqueues a without blocking. When the buffer is full the attempt is
// dropped.
func (r *AttemptRecorder) Record(a *models.Attempt) {
	if a == nil || r.backend == RecordNone || r.backend == "" {
		return
	}
	select {
	case r.bufCh <- a:
	default:
		r.metrics.RecordError("record_buffer_full")
		r.log.Warn("attempt dropped, recorder buffer full", logger.String("attempt_id", a.ID))
	}
}

// Start launches the background writer.
func (r *AttemptRecorder) Start(ctx context.Context) {
	r.mu.Lock()
	if r.started {
		r.mu.Unlock()
		return
	}
	r.started = true
	r.mu.Unlock()

	go func() {
		defer close(r.doneCh)
		for {
			select {
			case <-r.stopCh:
				r.drain(ctx)
				return
			case a := <-r.bufCh:
				r.write(ctx, a)
			}
		}
	}()
}

func (r *AttemptRecorder) drain(ctx context.Context) {
	for {
		select {
		case a := <-r.bufCh:
			r.write(ctx, a)
		default:
			return
		}
	}
}

func (r *AttemptRecorder) write(ctx context.Context, a *models.Attempt) {
	backoff := 50 * time.Millisecond
	for try := 0; ; try++ {
		err := r.Process(ctx, a)
		if err == nil {
			return
		}
		if try >= r.maxRetries {
			r.log.Error("record attempt failed",
				logger.String("backend", r.backend),
				logger.String("attempt_id", a.ID),
				logger.Error(err))
			return
		}
		select {
		case <-time.After(backoff):
		case <-ctx.Done():
			return
		}
		if backoff < 2*time.Second {
			backoff *= 2
		}
	}
}

// Process writes one attempt to the backend synchronously.
func (r *AttemptRecorder) Process(ctx context.Context, a *models.Attempt) error {
	if a == nil {
		return fmt.Errorf("attempt is nil")
	}

	start := time.Now()
	wctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), r.timeout)
	defer cancel()

	var err error
	switch r.backend {
	case RecordKafka:
		err = r.pub.Publish(wctx, a)
	case RecordClickHouse:
		err = r.store.Store(wctx, a)
	case RecordNone, "":
		return nil
	default:
		err = fmt.Errorf("unknown backend: %s", r.backend)
	}

	if err != nil {
		r.metrics.RecordError("record")
		return fmt.Errorf("record attempt: %w", err)
	}
	r.metrics.RecordLatency("record", time.Since(start).Seconds())
	return nil
}

// Stop flushes what is buffered and closes the backend.
func (r *AttemptRecorder) Stop() {
	r.mu.Lock()
	started := r.started
	r.started = false
	r.mu.Unlock()

	if started {
		close(r.stopCh)
		<-r.doneCh
	}
	if r.pub != nil {
		_ = r.pub.Close()
	}
	if r.store != nil {
		_ = r.store.Close()
	}
}
