package usecase

import (
	"context"
	"sync"
	"testing"
	"time"

	"HeartForm/internal/domain/models"
)

type memSnapshots struct {
	mu    sync.Mutex
	forms map[string]models.FormState
	saved chan string
}

func newMemSnapshots() *memSnapshots {
	return &memSnapshots{forms: map[string]models.FormState{}, saved: make(chan string, 16)}
}

func (m *memSnapshots) Load(_ context.Context, id string) (models.FormState, bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	f, ok := m.forms[id]
	return f, ok, nil
}

func (m *memSnapshots) Save(_ context.Context, id string, form models.FormState) error {
	m.mu.Lock()
	m.forms[id] = form
	m.mu.Unlock()
	m.saved <- id
	return nil
}

func (m *memSnapshots) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.forms, id)
	return nil
}

func okPredictor() predictFunc {
	return func(context.Context, models.FormState) (models.PredictionResult, error) {
		return models.PredictionResult{}, nil
	}
}

func TestSessionRegistryAssignsIDs(t *testing.T) {
	r := NewSessionRegistry(okPredictor(), nil, newFakeMetrics(), nil)
	defer r.Close()

	f1, id := r.Get(context.Background(), "not-a-uuid")
	if id == "not-a-uuid" || id == "" {
		t.Fatalf("expected a fresh uuid, got %q", id)
	}
	f2, id2 := r.Get(context.Background(), id)
	if f1 != f2 || id2 != id {
		t.Fatalf("same id must return the same form")
	}
	if r.Len() != 1 {
		t.Fatalf("expected 1 session, got %d", r.Len())
	}
}

func TestSessionRegistrySweepEvictsIdle(t *testing.T) {
	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	clock := func() time.Time { return now }
	m := newFakeMetrics()
	r := NewSessionRegistry(okPredictor(), nil, m, nil, WithIdleTTL(time.Minute), WithClock(clock))
	defer r.Close()

	form, _ := r.Get(context.Background(), "")
	now = now.Add(30 * time.Second)
	if n := r.Sweep(); n != 0 {
		t.Fatalf("evicted %d active sessions", n)
	}
	now = now.Add(2 * time.Minute)
	if n := r.Sweep(); n != 1 {
		t.Fatalf("expected 1 eviction, got %d", n)
	}

	select {
	case <-form.Done():
	case <-time.After(2 * time.Second):
		t.Fatalf("evicted form still running")
	}
	if r.Len() != 0 || m.sessions != 0 {
		t.Fatalf("expected empty registry")
	}
}

func TestSessionRegistryRestoresSnapshot(t *testing.T) {
	store := newMemSnapshots()
	r := NewSessionRegistry(okPredictor(), nil, newFakeMetrics(), nil, WithSnapshotStore(store))
	defer r.Close()
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	form, id := r.Get(ctx, "")
	if _, err := form.Change(ctx, models.FieldCholesterol, "199", models.KindNumber); err != nil {
		t.Fatalf("change: %v", err)
	}
	select {
	case <-store.saved:
	case <-ctx.Done():
		t.Fatalf("snapshot not saved")
	}

	r.Close()
	r2 := NewSessionRegistry(okPredictor(), nil, newFakeMetrics(), nil, WithSnapshotStore(store))
	defer r2.Close()
	restored, _ := r2.Get(ctx, id)
	st := restored.Snapshot()
	if st.Form.Cholesterol != 199 {
		t.Fatalf("expected restored cholesterol 199, got %v", st.Form.Cholesterol)
	}
	if st.Result != nil || st.Error != "" {
		t.Fatalf("outcome must not be restored")
	}
}

// gatedSnapshots blocks the first Save until release is closed.
type gatedSnapshots struct {
	*memSnapshots
	first   sync.Once
	entered chan struct{}
	release chan struct{}
}

func (g *gatedSnapshots) Save(ctx context.Context, id string, form models.FormState) error {
	g.first.Do(func() {
		close(g.entered)
		<-g.release
	})
	return g.memSnapshots.Save(ctx, id, form)
}

func TestSessionRegistrySavesLatestFormLast(t *testing.T) {
	store := &gatedSnapshots{
		memSnapshots: newMemSnapshots(),
		entered:      make(chan struct{}),
		release:      make(chan struct{}),
	}
	r := NewSessionRegistry(okPredictor(), nil, newFakeMetrics(), nil, WithSnapshotStore(store))
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	form, id := r.Get(ctx, "")
	if _, err := form.Change(ctx, models.FieldAge, "50", models.KindNumber); err != nil {
		t.Fatalf("change: %v", err)
	}
	select {
	case <-store.entered:
	case <-ctx.Done():
		t.Fatalf("first save never started")
	}
	for _, v := range []string{"51", "52", "53"} {
		if _, err := form.Change(ctx, models.FieldAge, v, models.KindNumber); err != nil {
			t.Fatalf("change: %v", err)
		}
	}
	close(store.release)
	r.Close()

	saved, ok, _ := store.Load(ctx, id)
	if !ok || saved.Age != 53 {
		t.Fatalf("expected last saved age 53, got %v (found=%v)", saved.Age, ok)
	}
}
