package usecase

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"

	"HeartForm/internal/domain/models"
	drepo "HeartForm/internal/domain/repository"
	"HeartForm/internal/domain/service"
	"HeartForm/pkg/logger"
)

type session struct {
	form     *PredictionForm
	lastSeen time.Time
}

// SessionRegistry keeps one mounted PredictionForm per browser session and
// unmounts forms that have been idle for too long. When a snapshot store is
// configured, inputs are saved on change and restored on remount.
type SessionRegistry struct {
	predictor service.Predictor
	snapshots drepo.SnapshotStore
	sink      AttemptSink
	metrics   drepo.Metrics
	log       *logger.Logger

	idleTTL       time.Duration
	sweepInterval time.Duration
	saveTimeout   time.Duration
	now           func() time.Time

	mu       sync.Mutex
	sessions map[string]*session

	ctx    context.Context
	cancel context.CancelFunc
	wg     sync.WaitGroup
}

type RegistryOption func(*SessionRegistry)

func WithIdleTTL(d time.Duration) RegistryOption {
	return func(r *SessionRegistry) {
		if d > 0 {
			r.idleTTL = d
		}
	}
}

func WithSweepInterval(d time.Duration) RegistryOption {
	return func(r *SessionRegistry) {
		if d > 0 {
			r.sweepInterval = d
		}
	}
}

// WithSnapshotStore enables persisting inputs across remounts.
func WithSnapshotStore(s drepo.SnapshotStore) RegistryOption {
	return func(r *SessionRegistry) { r.snapshots = s }
}

func WithClock(now func() time.Time) RegistryOption {
	return func(r *SessionRegistry) {
		if now != nil {
			r.now = now
		}
	}
}

// NewSessionRegistry creates an empty registry.
func NewSessionRegistry(
	predictor service.Predictor,
	sink AttemptSink,
	metrics drepo.Metrics,
	log *logger.Logger,
	opts ...RegistryOption,
) *SessionRegistry {
	if log == nil {
		log = logger.Nop()
	}
	ctx, cancel := context.WithCancel(context.Background())
	r := &SessionRegistry{
		predictor:     predictor,
		sink:          sink,
		metrics:       metrics,
		log:           log,
		idleTTL:       30 * time.Minute,
		sweepInterval: time.Minute,
		saveTimeout:   2 * time.Second,
		now:           time.Now,
		sessions:      make(map[string]*session),
		ctx:           ctx,
		cancel:        cancel,
	}
	for _, opt := range opts {
		opt(r)
	}
	return r
}

// Get returns the form for id, mounting it if needed. An empty or malformed
// id gets a fresh session; the returned id is the one to hand back to the
// client.
func (r *SessionRegistry) Get(ctx context.Context, id string) (*PredictionForm, string) {
	if _, err := uuid.Parse(id); err != nil {
		id = uuid.NewString()
	}

	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		s.lastSeen = r.now()
		r.mu.Unlock()
		return s.form, id
	}
	r.mu.Unlock()

	form := r.mount(ctx, id)

	r.mu.Lock()
	if s, ok := r.sessions[id]; ok {
		// lost a race with a concurrent request for the same session
		s.lastSeen = r.now()
		r.mu.Unlock()
		form.Close()
		return s.form, id
	}
	r.sessions[id] = &session{form: form, lastSeen: r.now()}
	n := len(r.sessions)
	r.mu.Unlock()

	r.metrics.SetActiveSessions(n)
	r.log.Debug("session mounted", logger.String("session_id", id))
	return form, id
}

func (r *SessionRegistry) mount(ctx context.Context, id string) *PredictionForm {
	opts := []FormOption{
		WithAttemptSink(r.sink),
		WithFormMetrics(r.metrics),
		WithFormLogger(r.log),
	}

	var saver *snapshotSaver
	if r.snapshots != nil {
		saved, ok, err := r.snapshots.Load(ctx, id)
		switch {
		case err != nil:
			r.metrics.RecordError("snapshot_load")
			r.log.Warn("load form snapshot", logger.String("session_id", id), logger.Error(err))
		case ok:
			opts = append(opts, WithInitialForm(saved))
		}
		saver = &snapshotSaver{pending: make(chan models.FormState, 1)}
		opts = append(opts, WithStateHook(saver.observe))
	}

	form := NewPredictionForm(id, r.predictor, opts...)
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		form.Run(r.ctx)
	}()
	if saver != nil {
		r.wg.Add(1)
		go func() {
			defer r.wg.Done()
			r.saveLoop(id, saver, form.Done())
		}()
	}
	return form
}

// snapshotSaver hands changed inputs from a form's owner goroutine to the
// session's save loop. Only the newest unsaved form is kept.
type snapshotSaver struct {
	pending chan models.FormState
	last    *models.FormState
}

// observe is the form's state hook; it runs on the owner goroutine only.
func (s *snapshotSaver) observe(st State) {
	if s.last != nil && *s.last == st.Form {
		return
	}
	form := st.Form
	s.last = &form
	select {
	case <-s.pending:
	default:
	}
	select {
	case s.pending <- form:
	default:
	}
}

// saveLoop persists forms one at a time, in change order, until the form
// stops. A change still pending at that point is saved before returning.
func (r *SessionRegistry) saveLoop(id string, s *snapshotSaver, done <-chan struct{}) {
	for {
		select {
		case form := <-s.pending:
			r.save(id, form)
		case <-done:
			select {
			case form := <-s.pending:
				r.save(id, form)
			default:
			}
			return
		}
	}
}

func (r *SessionRegistry) save(id string, form models.FormState) {
	ctx, cancel := context.WithTimeout(context.Background(), r.saveTimeout)
	defer cancel()
	if err := r.snapshots.Save(ctx, id, form); err != nil {
		r.metrics.RecordError("snapshot_save")
		r.log.Warn("save form snapshot", logger.String("session_id", id), logger.Error(err))
	}
}

// Len returns the number of mounted forms.
func (r *SessionRegistry) Len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.sessions)
}

// Start runs the idle sweeper until ctx is done or Close is called.
func (r *SessionRegistry) Start(ctx context.Context) {
	r.wg.Add(1)
	go func() {
		defer r.wg.Done()
		ticker := time.NewTicker(r.sweepInterval)
		defer ticker.Stop()
		for {
			select {
			case <-ctx.Done():
				return
			case <-r.ctx.Done():
				return
			case <-ticker.C:
				r.Sweep()
			}
		}
	}()
}

// Sweep unmounts every form idle longer than the TTL and returns how many
// were removed. A form with a request in flight counts as active.
func (r *SessionRegistry) Sweep() int {
	cutoff := r.now().Add(-r.idleTTL)

	r.mu.Lock()
	var idle []*PredictionForm
	for id, s := range r.sessions {
		if s.lastSeen.Before(cutoff) && !s.form.Snapshot().Loading {
			idle = append(idle, s.form)
			delete(r.sessions, id)
		}
	}
	n := len(r.sessions)
	r.mu.Unlock()

	for _, f := range idle {
		f.Close()
		r.log.Debug("session evicted", logger.String("session_id", f.ID()))
	}
	if len(idle) > 0 {
		r.metrics.SetActiveSessions(n)
	}
	return len(idle)
}

// Close unmounts every form and stops the sweeper.
func (r *SessionRegistry) Close() {
	r.cancel()
	r.mu.Lock()
	forms := make([]*PredictionForm, 0, len(r.sessions))
	for id, s := range r.sessions {
		forms = append(forms, s.form)
		delete(r.sessions, id)
	}
	r.mu.Unlock()

	for _, f := range forms {
		f.Close()
	}
	r.wg.Wait()
	r.metrics.SetActiveSessions(0)
}
