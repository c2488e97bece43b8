package repository

import (
	"context"
	"database/sql"
	"encoding/json"
	"strings"
	"testing"
	"time"

	"HeartForm/internal/domain/models"
)

type captureProducer struct {
	topic string
	key   []byte
	value interface{}
}

func (p *captureProducer) Publish(_ context.Context, topic string, key []byte, value interface{}) error {
	p.topic, p.key, p.value = topic, key, value
	return nil
}

func (p *captureProducer) Close() error { return nil }

func sampleAttempt(result *models.PredictionResult, errMsg string) *models.Attempt {
	start := time.Date(2024, 5, 1, 10, 0, 0, 0, time.UTC)
	return &models.Attempt{
		ID:         "a1",
		SessionID:  "s1",
		Form:       models.DefaultFormState(),
		Result:     result,
		Error:      errMsg,
		StartedAt:  start,
		FinishedAt: start.Add(250 * time.Millisecond),
	}
}

func TestKafkaAttemptPublisherKeysBySession(t *testing.T) {
	p := &captureProducer{}
	pub := NewKafkaAttemptPublisher(p, "heartform.attempts")
	a := sampleAttempt(&models.PredictionResult{Prediction: 1, ProbabilityHeartDisease: 0.8}, "")
	if err := pub.Publish(context.Background(), a); err != nil {
		t.Fatalf("publish: %v", err)
	}
	if p.topic != "heartform.attempts" || string(p.key) != "s1" {
		t.Fatalf("unexpected topic/key %s/%s", p.topic, p.key)
	}
	raw, _ := json.Marshal(p.value)
	var msg map[string]interface{}
	_ = json.Unmarshal(raw, &msg)
	if msg["outcome"] != "success" || msg["duration_ms"] != float64(250) {
		t.Fatalf("unexpected message %s", raw)
	}
	form, _ := msg["form"].(map[string]interface{})
	if form["ST_Slope"] != "Up" {
		t.Fatalf("form must keep service field names, got %v", form)
	}
}

func TestAttemptRowMatchesColumns(t *testing.T) {
	cols := strings.Split(attemptColumns, ",")
	row := attemptRow(sampleAttempt(nil, "Invalid Age"))
	if len(row) != len(cols) {
		t.Fatalf("row has %d values for %d columns", len(row), len(cols))
	}
	if row[5] != "error" || row[6] != "Invalid Age" {
		t.Fatalf("unexpected outcome/error %v %v", row[5], row[6])
	}
	if pred, ok := row[7].(sql.NullInt16); !ok || pred.Valid {
		t.Fatalf("failed attempt must have null prediction, got %v", row[7])
	}
	if row[4] != uint32(250) {
		t.Fatalf("unexpected duration %v", row[4])
	}
}

func TestAttemptRowWithResult(t *testing.T) {
	row := attemptRow(sampleAttempt(&models.PredictionResult{Prediction: 1, ProbabilityNoHeartDisease: 0.2, ProbabilityHeartDisease: 0.8}, ""))
	if pred := row[7].(sql.NullInt16); !pred.Valid || pred.Int16 != 1 {
		t.Fatalf("unexpected prediction %v", pred)
	}
	if p := row[9].(sql.NullFloat64); !p.Valid || p.Float64 != 0.8 {
		t.Fatalf("unexpected probability %v", p)
	}
}

func TestAttemptSchemaNamesTable(t *testing.T) {
	stmts := AttemptSchema(DefaultAttemptsTable)
	if len(stmts) != 1 || !strings.Contains(stmts[0], "CREATE TABLE IF NOT EXISTS heartform.prediction_attempts") {
		t.Fatalf("unexpected schema %v", stmts)
	}
}

func TestRepeatPlaceholder(t *testing.T) {
	if got := repeatPlaceholder(2); got != ", ?, ?" {
		t.Fatalf("got %q", got)
	}
}
