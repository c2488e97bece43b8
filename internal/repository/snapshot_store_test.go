package repository

import (
	"context"
	"testing"
	"time"

	"HeartForm/internal/domain/models"
	"HeartForm/pkg/cache"
)

func TestCacheSnapshotStore(t *testing.T) {
	mc := cache.NewMemoryCache()
	defer mc.Close()
	store := NewCacheSnapshotStore(mc, time.Minute)
	ctx := context.Background()

	if _, ok, err := store.Load(ctx, "s1"); ok || err != nil {
		t.Fatalf("expected miss, got ok=%v err=%v", ok, err)
	}

	form := models.DefaultFormState()
	form.Oldpeak = 1.5
	form.ChestPainType = "ASY"
	if err := store.Save(ctx, "s1", form); err != nil {
		t.Fatalf("save: %v", err)
	}
	got, ok, err := store.Load(ctx, "s1")
	if err != nil || !ok || got != form {
		t.Fatalf("unexpected load %+v ok=%v err=%v", got, ok, err)
	}

	if err := store.Delete(ctx, "s1"); err != nil {
		t.Fatalf("delete: %v", err)
	}
	if _, ok, _ := store.Load(ctx, "s1"); ok {
		t.Fatalf("expected miss after delete")
	}
}
