package usecase

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"HeartForm/internal/domain/models"
)

type predictFunc func(ctx context.Context, form models.FormState) (models.PredictionResult, error)

func (f predictFunc) Predict(ctx context.Context, form models.FormState) (models.PredictionResult, error) {
	return f(ctx, form)
}

type sinkRecorder struct {
	mu       sync.Mutex
	attempts []*models.Attempt
}

func (s *sinkRecorder) Record(a *models.Attempt) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.attempts = append(s.attempts, a)
}

func (s *sinkRecorder) all() []*models.Attempt {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]*models.Attempt(nil), s.attempts...)
}

func startForm(t *testing.T, p predictFunc, opts ...FormOption) *PredictionForm {
	t.Helper()
	f := NewPredictionForm("session-1", p, opts...)
	go f.Run(context.Background())
	t.Cleanup(f.Close)
	return f
}

func waitCtx(t *testing.T) context.Context {
	t.Helper()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	t.Cleanup(cancel)
	return ctx
}

func TestPredictionFormSuccess(t *testing.T) {
	var got models.FormState
	f := startForm(t, func(_ context.Context, form models.FormState) (models.PredictionResult, error) {
		got = form
		return models.PredictionResult{Prediction: 1, ProbabilityNoHeartDisease: 0.2, ProbabilityHeartDisease: 0.8}, nil
	})
	ctx := waitCtx(t)

	if _, err := f.Change(ctx, models.FieldAge, "61", models.KindNumber); err != nil {
		t.Fatalf("change: %v", err)
	}
	st, err := f.SubmitAndWait(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if st.Loading || st.Error != "" || st.Result == nil || st.Result.Prediction != 1 {
		t.Fatalf("unexpected state %+v", st)
	}
	if got.Age != 61 {
		t.Fatalf("predictor saw age %v, want 61", got.Age)
	}
}

func TestPredictionFormSubmitSetsLoading(t *testing.T) {
	release := make(chan struct{})
	f := startForm(t, func(context.Context, models.FormState) (models.PredictionResult, error) {
		<-release
		return models.PredictionResult{}, nil
	})
	ctx := waitCtx(t)

	st, err := f.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if !st.Loading || st.AttemptID == "" {
		t.Fatalf("expected loading with attempt id, got %+v", st)
	}
	if !f.Snapshot().Loading {
		t.Fatalf("snapshot should be loading")
	}
	close(release)
}

func TestPredictionFormErrorMessage(t *testing.T) {
	f := startForm(t, func(context.Context, models.FormState) (models.PredictionResult, error) {
		return models.PredictionResult{}, errors.New("Invalid Age")
	})
	st, err := f.SubmitAndWait(waitCtx(t))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if st.Error != "Invalid Age" || st.Result != nil || st.Loading {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestPredictionFormEmptyErrorFallsBack(t *testing.T) {
	f := startForm(t, func(context.Context, models.FormState) (models.PredictionResult, error) {
		return models.PredictionResult{}, errors.New("")
	})
	st, _ := f.SubmitAndWait(waitCtx(t))
	if st.Error != models.FallbackFetchMessage {
		t.Fatalf("expected fallback, got %q", st.Error)
	}
}

func TestPredictionFormPanicResetsLoading(t *testing.T) {
	f := startForm(t, func(context.Context, models.FormState) (models.PredictionResult, error) {
		panic("boom")
	})
	st, err := f.SubmitAndWait(waitCtx(t))
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if st.Loading || st.Error != models.FallbackFetchMessage {
		t.Fatalf("unexpected state %+v", st)
	}
}

func TestPredictionFormLoadingTogglesOncePerAttempt(t *testing.T) {
	release := make(chan struct{})
	f := startForm(t, func(context.Context, models.FormState) (models.PredictionResult, error) {
		<-release
		return models.PredictionResult{}, nil
	})
	ctx := waitCtx(t)
	updates, unsubscribe := f.Subscribe()
	defer unsubscribe()

	st, err := f.Submit(ctx)
	if err != nil {
		t.Fatalf("submit: %v", err)
	}
	if s := <-updates; !s.Loading {
		t.Fatalf("first transition should set loading")
	}
	close(release)
	select {
	case s := <-updates:
		if s.Loading || s.CompletedID != st.AttemptID {
			t.Fatalf("unexpected completion state %+v", s)
		}
	case <-ctx.Done():
		t.Fatalf("timed out waiting for completion")
	}
}

func TestPredictionFormRecordsAttempts(t *testing.T) {
	sink := &sinkRecorder{}
	f := startForm(t, func(context.Context, models.FormState) (models.PredictionResult, error) {
		return models.PredictionResult{Prediction: 0}, nil
	}, WithAttemptSink(sink), WithIDGenerator(func() string { return "attempt-1" }))

	if _, err := f.SubmitAndWait(waitCtx(t)); err != nil {
		t.Fatalf("submit: %v", err)
	}
	got := sink.all()
	if len(got) != 1 {
		t.Fatalf("expected 1 attempt, got %d", len(got))
	}
	if got[0].ID != "attempt-1" || got[0].SessionID != "session-1" || got[0].Outcome() != "success" {
		t.Fatalf("unexpected attempt %+v", got[0])
	}
}

func TestPredictionFormCloseDropsCompletion(t *testing.T) {
	started := make(chan struct{})
	release := make(chan struct{})
	done := make(chan struct{})
	f := NewPredictionForm("s", predictFunc(func(ctx context.Context, _ models.FormState) (models.PredictionResult, error) {
		close(started)
		<-release
		defer close(done)
		if ctx.Err() != nil {
			t.Errorf("request context cancelled: %v", ctx.Err())
		}
		return models.PredictionResult{Prediction: 1}, nil
	}))
	go f.Run(context.Background())
	ctx := waitCtx(t)

	if _, err := f.Submit(ctx); err != nil {
		t.Fatalf("submit: %v", err)
	}
	<-started
	f.Close()
	<-f.Done()
	close(release)
	<-done

	if st := f.Snapshot(); !st.Loading || st.Result != nil {
		t.Fatalf("closed form must not change, got %+v", st)
	}
	if _, err := f.Change(ctx, models.FieldAge, "1", models.KindNumber); !errors.Is(err, ErrFormClosed) {
		t.Fatalf("expected ErrFormClosed, got %v", err)
	}
}

func TestPredictionFormUnknownField(t *testing.T) {
	f := startForm(t, func(context.Context, models.FormState) (models.PredictionResult, error) {
		return models.PredictionResult{}, nil
	})
	before := f.Snapshot()
	_, err := f.Change(waitCtx(t), "Height", "180", models.KindNumber)
	if !errors.Is(err, ErrUnknownField) {
		t.Fatalf("expected ErrUnknownField, got %v", err)
	}
	if f.Snapshot() != before {
		t.Fatalf("state changed on unknown field")
	}
}

func TestPredictionFormInitialForm(t *testing.T) {
	form := models.DefaultFormState()
	form.Sex = "F"
	f := NewPredictionForm("s", nil, WithInitialForm(form))
	if f.Snapshot().Form.Sex != "F" {
		t.Fatalf("initial form not applied")
	}
}

func TestPredictionFormConcurrentSubmitsStartOneAttempt(t *testing.T) {
	release := make(chan struct{})
	var calls int32
	var mu sync.Mutex
	f := startForm(t, func(context.Context, models.FormState) (models.PredictionResult, error) {
		mu.Lock()
		calls++
		mu.Unlock()
		<-release
		return models.PredictionResult{}, nil
	})
	ctx := waitCtx(t)

	const n = 8
	var wg sync.WaitGroup
	errs := make(chan error, n)
	for i := 0; i < n; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, err := f.Submit(ctx)
			errs <- err
		}()
	}
	wg.Wait()
	close(errs)

	accepted, busy := 0, 0
	for err := range errs {
		switch {
		case err == nil:
			accepted++
		case errors.Is(err, ErrSubmitInProgress):
			busy++
		default:
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if accepted != 1 || busy != n-1 {
		t.Fatalf("expected 1 accepted and %d busy, got %d and %d", n-1, accepted, busy)
	}

	updates, unsubscribe := f.Subscribe()
	defer unsubscribe()
	close(release)
	for {
		select {
		case s := <-updates:
			if s.Loading {
				continue
			}
			mu.Lock()
			got := calls
			mu.Unlock()
			if got != 1 {
				t.Fatalf("expected one predictor call, got %d", got)
			}
			return
		case <-ctx.Done():
			t.Fatalf("timed out waiting for completion")
		}
	}
}
