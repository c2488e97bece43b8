package repository

import (
	"context"

	"HeartForm/internal/domain/models"
)

type AttemptPublisher interface {
	Publish(ctx context.Context, a *models.Attempt) error
	Close() error
}

type AttemptStorage interface {
	Init(ctx context.Context) error // ensure tables
	Store(ctx context.Context, a *models.Attempt) error
	Health(ctx context.Context) error // ping
	Close() error
}

// SnapshotStore keeps the last form inputs of a session.
type SnapshotStore interface {
	Load(ctx context.Context, sessionID string) (models.FormState, bool, error)
	Save(ctx context.Context, sessionID string, form models.FormState) error
	Delete(ctx context.Context, sessionID string) error
}

type Metrics interface {
	RecordAttempt(outcome string)
	RecordError(kind string)
	RecordLatency(op string, seconds float64)
	SetActiveSessions(n int)
}
