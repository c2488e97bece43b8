package repository

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"HeartForm/internal/domain/models"
	"HeartForm/internal/domain/repository"
)

const DefaultAttemptsTable = "heartform.prediction_attempts"

// AttemptSchema returns the DDL for the attempts table.
func AttemptSchema(table string) []string {
	return []string{
		fmt.Sprintf(`CREATE TABLE IF NOT EXISTS %s (
    attempt_id String,
    session_id String,
    started_at DateTime64(3),
    finished_at DateTime64(3),
    duration_ms UInt32,
    outcome LowCardinality(String),
    error String,
    prediction Nullable(UInt8),
    probability_no_heart_disease Nullable(Float64),
    probability_heart_disease Nullable(Float64),
    age Float64,
    sex LowCardinality(String),
    chest_pain_type LowCardinality(String),
    resting_bp Float64,
    cholesterol Float64,
    fasting_bs Float64,
    resting_ecg LowCardinality(String),
    max_hr Float64,
    exercise_angina LowCardinality(String),
    oldpeak Float64,
    st_slope LowCardinality(String)
) ENGINE = MergeTree
ORDER BY (started_at, session_id)`, table),
	}
}

const attemptColumns = `attempt_id, session_id, started_at, finished_at, duration_ms, outcome, error,
    prediction, probability_no_heart_disease, probability_heart_disease,
    age, sex, chest_pain_type, resting_bp, cholesterol, fasting_bs,
    resting_ecg, max_hr, exercise_angina, oldpeak, st_slope`

// attemptRow flattens a into insert arguments in attemptColumns order.
func attemptRow(a *models.Attempt) []interface{} {
	var (
		pred   sql.NullInt16
		probNo sql.NullFloat64
		probHD sql.NullFloat64
	)
	if a.Result != nil {
		pred = sql.NullInt16{Int16: int16(a.Result.Prediction), Valid: true}
		probNo = sql.NullFloat64{Float64: a.Result.ProbabilityNoHeartDisease, Valid: true}
		probHD = sql.NullFloat64{Float64: a.Result.ProbabilityHeartDisease, Valid: true}
	}
	f := a.Form
	return []interface{}{
		a.ID,
		a.SessionID,
		a.StartedAt,
		a.FinishedAt,
		uint32(a.Duration() / time.Millisecond),
		a.Outcome(),
		a.Error,
		pred, probNo, probHD,
		f.Age, f.Sex, f.ChestPainType, f.RestingBP, f.Cholesterol, f.FastingBS,
		f.RestingECG, f.MaxHR, f.ExerciseAngina, f.Oldpeak, f.STSlope,
	}
}

// ClickHouseAttemptStorage implements AttemptStorage for ClickHouse.
type ClickHouseAttemptStorage struct {
	db    *sql.DB
	table string
}

// NewClickHouseAttemptStorage creates attempt storage on an open pool.
func NewClickHouseAttemptStorage(db *sql.DB, table string) repository.AttemptStorage {
	if table == "" {
		table = DefaultAttemptsTable
	}
	return &ClickHouseAttemptStorage{db: db, table: table}
}

func (s *ClickHouseAttemptStorage) Init(ctx context.Context) error {
	for _, stmt := range AttemptSchema(s.table) {
		if _, err := s.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("init attempts table: %w", err)
		}
	}
	return nil
}

func (s *ClickHouseAttemptStorage) Store(ctx context.Context, a *models.Attempt) error {
	args := attemptRow(a)
	q := fmt.Sprintf("INSERT INTO %s (%s) VALUES (?%s)", s.table, attemptColumns, repeatPlaceholder(len(args)-1))
	if _, err := s.db.ExecContext(ctx, q, args...); err != nil {
		return fmt.Errorf("insert attempt: %w", err)
	}
	return nil
}

func (s *ClickHouseAttemptStorage) Health(ctx context.Context) error {
	return s.db.PingContext(ctx)
}

func (s *ClickHouseAttemptStorage) Close() error {
	return nil // pool owned by pkg/clickhouse
}

func repeatPlaceholder(n int) string {
	out := make([]byte, 0, n*3)
	for i := 0; i < n; i++ {
		out = append(out, ", ?"...)
	}
	return string(out)
}

// MessageProducer is the part of pkg/kafka.Producer the publisher needs.
type MessageProducer interface {
	Publish(ctx context.Context, topic string, key []byte, value interface{}) error
	Close() error
}

// AttemptMessage is the Kafka payload for one attempt.
type AttemptMessage struct {
	AttemptID  string                   `json:"attempt_id"`
	SessionID  string                   `json:"session_id"`
	Outcome    string                   `json:"outcome"`
	Form       models.FormState         `json:"form"`
	Result     *models.PredictionResult `json:"result,omitempty"`
	Error      string                   `json:"error,omitempty"`
	StartedAt  int64                    `json:"started_at_ms"`
	DurationMS int64                    `json:"duration_ms"`
}

// NewAttemptMessage maps a into its wire form.
func NewAttemptMessage(a *models.Attempt) AttemptMessage {
	return AttemptMessage{
		AttemptID:  a.ID,
		SessionID:  a.SessionID,
		Outcome:    a.Outcome(),
		Form:       a.Form,
		Result:     a.Result,
		Error:      a.Error,
		StartedAt:  a.StartedAt.UnixMilli(),
		DurationMS: a.Duration().Milliseconds(),
	}
}

// KafkaAttemptPublisher implements AttemptPublisher for Kafka. Messages are
// keyed by session so one session's attempts stay ordered.
type KafkaAttemptPublisher struct {
	producer MessageProducer
	topic    string
}

// NewKafkaAttemptPublisher creates a Kafka publisher.
func NewKafkaAttemptPublisher(producer MessageProducer, topic string) repository.AttemptPublisher {
	return &KafkaAttemptPublisher{producer: producer, topic: topic}
}

func (p *KafkaAttemptPublisher) Publish(ctx context.Context, a *models.Attempt) error {
	return p.producer.Publish(ctx, p.topic, []byte(a.SessionID), NewAttemptMessage(a))
}

func (p *KafkaAttemptPublisher) Close() error {
	return nil // producer owned by the app, shared with the log collector
}
