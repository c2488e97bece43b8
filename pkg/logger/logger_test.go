package logger

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"sync"
	"testing"
	"time"
)

type capturePublisher struct {
	mu    sync.Mutex
	topic string
	batch []AggregatedLogEntry
}

func (p *capturePublisher) PublishMessage(_ context.Context, topic string, payload interface{}) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.topic = topic
	p.batch = append(p.batch, payload.([]AggregatedLogEntry)...)
	return nil
}

func TestLoggerWritesJSONFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "info")
	l.Info("attempt finished", String("session", "abc"), Int("status", 200), Bool("ok", true))

	var m map[string]interface{}
	if err := json.Unmarshal(buf.Bytes(), &m); err != nil {
		t.Fatalf("decode log line: %v", err)
	}
	if m["message"] != "attempt finished" || m["session"] != "abc" || m["status"] != float64(200) || m["ok"] != true {
		t.Fatalf("unexpected log line %v", m)
	}
}

func TestLoggerRespectsLevel(t *testing.T) {
	var buf bytes.Buffer
	l := NewWriter(&buf, "warn")
	l.Info("hidden")
	l.Debug("hidden")
	if buf.Len() != 0 {
		t.Fatalf("expected nothing below warn, got %q", buf.String())
	}
}

func TestCollectorAggregatesDuplicateErrors(t *testing.T) {
	pub := &capturePublisher{}
	l := Nop()
	l.AddCollector(&CollectionConfig{TimeInterval: time.Hour, CountThreshold: 100, Topic: "logs", Publisher: pub})

	for i := 0; i < 3; i++ {
		l.Error("predict failed", Error(errors.New("boom")))
	}
	l.RemoveCollector()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	if pub.topic != "logs" {
		t.Fatalf("expected topic logs, got %q", pub.topic)
	}
	if len(pub.batch) != 1 || pub.batch[0].Count != 3 {
		t.Fatalf("expected one entry counted 3 times, got %+v", pub.batch)
	}
}
