package usecase

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"

	"HeartForm/internal/domain/models"
	drepo "HeartForm/internal/domain/repository"
	"HeartForm/internal/domain/service"
	"HeartForm/pkg/logger"
)

var ErrFormClosed = errors.New("prediction form closed")

// AttemptSink receives every finished attempt. Implementations must not block.
type AttemptSink interface {
	Record(a *models.Attempt)
}

type envelope struct {
	ev    Event
	reply chan reply
}

type reply struct {
	state State
	err   error
}

// PredictionForm is one mounted form. Its state is written only by the Run
// goroutine; predictor calls run on their own goroutines and report back
// through the event channel.
type PredictionForm struct {
	id        string
	predictor service.Predictor
	sink      AttemptSink
	metrics   drepo.Metrics
	log       *logger.Logger
	newID     func() string
	onChange  func(State)

	events  chan envelope
	ctx     context.Context
	cancel  context.CancelFunc
	stopped chan struct{}
	once    sync.Once

	mu    sync.RWMutex
	state State

	subMu  sync.Mutex
	subs   map[int]chan State
	nextID int
}

type FormOption func(*PredictionForm)

// WithInitialForm replaces the default inputs, e.g. with a restored snapshot.
func WithInitialForm(form models.FormState) FormOption {
	return func(f *PredictionForm) { f.state.Form = form }
}

func WithAttemptSink(s AttemptSink) FormOption {
	return func(f *PredictionForm) { f.sink = s }
}

func WithFormMetrics(m drepo.Metrics) FormOption {
	return func(f *PredictionForm) { f.metrics = m }
}

func WithFormLogger(l *logger.Logger) FormOption {
	return func(f *PredictionForm) {
		if l != nil {
			f.log = l
		}
	}
}

// WithIDGenerator overrides attempt id generation.
func WithIDGenerator(gen func() string) FormOption {
	return func(f *PredictionForm) {
		if gen != nil {
			f.newID = gen
		}
	}
}

// WithStateHook registers a callback invoked on the owner goroutine after
// every transition. It must return quickly.
func WithStateHook(fn func(State)) FormOption {
	return func(f *PredictionForm) { f.onChange = fn }
}

// NewPredictionForm mounts a form with default inputs. Call Run to start
// processing events.
func NewPredictionForm(id string, predictor service.Predictor, opts ...FormOption) *PredictionForm {
	ctx, cancel := context.WithCancel(context.Background())
	f := &PredictionForm{
		id:        id,
		predictor: predictor,
		log:       logger.Nop(),
		newID:     uuid.NewString,
		events:    make(chan envelope, 16),
		ctx:       ctx,
		cancel:    cancel,
		stopped:   make(chan struct{}),
		state:     NewState(models.DefaultFormState()),
		subs:      make(map[int]chan State),
	}
	for _, opt := range opts {
		opt(f)
	}
	return f
}

// ID returns the identifier the form was mounted with.
func (f *PredictionForm) ID() string { return f.id }

// Run processes events until ctx is done or Close is called.
func (f *PredictionForm) Run(ctx context.Context) {
	defer close(f.stopped)
	for {
		select {
		case <-ctx.Done():
			f.shutdown()
			return
		case <-f.ctx.Done():
			return
		case env := <-f.events:
			f.handle(env)
		}
	}
}

func (f *PredictionForm) handle(env envelope) {
	f.mu.RLock()
	cur := f.state
	f.mu.RUnlock()

	next, cmd, err := Reduce(cur, env.ev)
	if err == nil {
		f.mu.Lock()
		f.state = next
		f.mu.Unlock()

		if cmd != nil {
			go f.execute(*cmd)
		}
		if f.onChange != nil {
			f.onChange(next)
		}
		f.publish(next)
	} else {
		next = cur
	}

	if env.reply != nil {
		env.reply <- reply{state: next, err: err}
	}
}

// execute calls the predictor. The request is never cancelled; if the form
// has been closed by the time it returns, the completion is dropped.
func (f *PredictionForm) execute(cmd SubmitCommand) {
	started := time.Now()
	res, msg := f.predict(cmd.Form)
	finished := time.Now()

	attempt := &models.Attempt{
		ID:         cmd.AttemptID,
		SessionID:  f.id,
		Form:       cmd.Form,
		Result:     res,
		Error:      msg,
		StartedAt:  started,
		FinishedAt: finished,
	}
	if f.metrics != nil {
		f.metrics.RecordAttempt(attempt.Outcome())
		f.metrics.RecordLatency("predict", attempt.Duration().Seconds())
	}
	if f.sink != nil {
		f.sink.Record(attempt)
	}

	ev := PredictionCompleted{AttemptID: cmd.AttemptID, Result: res, Err: msg}
	select {
	case f.events <- envelope{ev: ev}:
	case <-f.ctx.Done():
		f.log.Debug("completion dropped, form closed",
			logger.String("session_id", f.id),
			logger.String("attempt_id", cmd.AttemptID))
	}
}

func (f *PredictionForm) predict(form models.FormState) (res *models.PredictionResult, msg string) {
	defer func() {
		if r := recover(); r != nil {
			f.log.Error("predictor panic",
				logger.String("session_id", f.id),
				logger.Any("panic", r))
			res, msg = nil, models.FallbackFetchMessage
		}
	}()

	out, err := f.predictor.Predict(context.WithoutCancel(f.ctx), form)
	if err != nil {
		f.log.Warn("prediction failed",
			logger.String("session_id", f.id),
			logger.Error(err))
		return nil, ErrorMessage(err)
	}
	return &out, ""
}

// ErrorMessage is the text a failed attempt shows: the error's own message,
// or a generic fallback when it has none.
func ErrorMessage(err error) string {
	if err == nil || err.Error() == "" {
		return models.FallbackFetchMessage
	}
	return err.Error()
}

func (f *PredictionForm) dispatch(ctx context.Context, ev Event) (State, error) {
	env := envelope{ev: ev, reply: make(chan reply, 1)}
	select {
	case f.events <- env:
	case <-f.ctx.Done():
		return f.Snapshot(), ErrFormClosed
	case <-ctx.Done():
		return f.Snapshot(), ctx.Err()
	}
	select {
	case r := <-env.reply:
		return r.state, r.err
	case <-f.stopped:
		return f.Snapshot(), ErrFormClosed
	case <-ctx.Done():
		return f.Snapshot(), ctx.Err()
	}
}

// Change applies one input edit.
func (f *PredictionForm) Change(ctx context.Context, field, value string, kind models.InputKind) (State, error) {
	return f.dispatch(ctx, FieldChanged{Field: field, Value: value, Kind: kind})
}

// Submit starts an attempt and returns immediately with loading set. It fails
// with ErrSubmitInProgress while another attempt is outstanding.
func (f *PredictionForm) Submit(ctx context.Context) (State, error) {
	return f.dispatch(ctx, SubmitRequested{AttemptID: f.newID()})
}

// SubmitAndWait starts an attempt and blocks until it completes.
func (f *PredictionForm) SubmitAndWait(ctx context.Context) (State, error) {
	updates, unsubscribe := f.Subscribe()
	defer unsubscribe()

	st, err := f.Submit(ctx)
	if err != nil {
		return st, err
	}
	for {
		select {
		case s, ok := <-updates:
			if !ok {
				return f.Snapshot(), ErrFormClosed
			}
			if s.CompletedID == st.AttemptID {
				return s, nil
			}
		case <-ctx.Done():
			return f.Snapshot(), fmt.Errorf("wait for attempt %s: %w", st.AttemptID, ctx.Err())
		}
	}
}

// Snapshot returns a copy of the current state.
func (f *PredictionForm) Snapshot() State {
	f.mu.RLock()
	defer f.mu.RUnlock()
	return f.state
}

// Subscribe returns a channel that receives the state after every
// transition. Slow readers only see the latest state. The returned func
// unsubscribes; Close unsubscribes everyone.
func (f *PredictionForm) Subscribe() (<-chan State, func()) {
	ch := make(chan State, 1)
	f.subMu.Lock()
	if f.subs == nil {
		f.subMu.Unlock()
		close(ch)
		return ch, func() {}
	}
	id := f.nextID
	f.nextID++
	f.subs[id] = ch
	f.subMu.Unlock()

	return ch, func() {
		f.subMu.Lock()
		defer f.subMu.Unlock()
		if c, ok := f.subs[id]; ok {
			delete(f.subs, id)
			close(c)
		}
	}
}

func (f *PredictionForm) publish(s State) {
	f.subMu.Lock()
	defer f.subMu.Unlock()
	for _, ch := range f.subs {
		select {
		case ch <- s:
		default:
			select {
			case <-ch:
			default:
			}
			select {
			case ch <- s:
			default:
			}
		}
	}
}

// Close unmounts the form. In-flight predictor calls keep running but their
// results are discarded.
func (f *PredictionForm) Close() {
	f.shutdown()
}

func (f *PredictionForm) shutdown() {
	f.once.Do(func() {
		f.cancel()
		f.subMu.Lock()
		for id, ch := range f.subs {
			delete(f.subs, id)
			close(ch)
		}
		f.subs = nil
		f.subMu.Unlock()
	})
}

// Done is closed once Run has returned.
func (f *PredictionForm) Done() <-chan struct{} { return f.stopped }
