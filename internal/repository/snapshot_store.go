package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"HeartForm/internal/domain/models"
	"HeartForm/internal/domain/repository"
	"HeartForm/pkg/cache"
)

const snapshotPrefix = "form"

// CacheSnapshotStore keeps form inputs in a cache (memory or Redis).
type CacheSnapshotStore struct {
	cache cache.Service
	ttl   time.Duration
}

// NewCacheSnapshotStore creates a snapshot store. A zero ttl keeps entries
// until evicted.
func NewCacheSnapshotStore(c cache.Service, ttl time.Duration) repository.SnapshotStore {
	return &CacheSnapshotStore{cache: c, ttl: ttl}
}

func (s *CacheSnapshotStore) Load(ctx context.Context, sessionID string) (models.FormState, bool, error) {
	var form models.FormState
	err := s.cache.Get(ctx, cache.GenerateKey(snapshotPrefix, sessionID), &form)
	if errors.Is(err, cache.ErrCacheMiss) {
		return models.FormState{}, false, nil
	}
	if err != nil {
		return models.FormState{}, false, fmt.Errorf("load snapshot: %w", err)
	}
	return form, true, nil
}

func (s *CacheSnapshotStore) Save(ctx context.Context, sessionID string, form models.FormState) error {
	if err := s.cache.Set(ctx, cache.GenerateKey(snapshotPrefix, sessionID), form, s.ttl); err != nil {
		return fmt.Errorf("save snapshot: %w", err)
	}
	return nil
}

func (s *CacheSnapshotStore) Delete(ctx context.Context, sessionID string) error {
	return s.cache.Delete(ctx, cache.GenerateKey(snapshotPrefix, sessionID))
}
