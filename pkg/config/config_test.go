package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaultIsValid(t *testing.T) {
	c := Default()
	if err := c.Validate(); err != nil {
		t.Fatalf("default config invalid: %v", err)
	}
	if c.Predictor.BaseURL != "" {
		t.Fatalf("base url should be unset by default, got %q", c.Predictor.BaseURL)
	}
	if c.Predictor.Timeout != 0 {
		t.Fatalf("predictor timeout should be disabled by default")
	}
}

func TestLoadOverlaysYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "config.yaml")
	data := []byte(`
environment: test
server:
  port: 8089
predictor:
  base_url: http://ml.internal:8000
  timeout: 5s
recording:
  backend: clickhouse
`)
	if err := os.WriteFile(path, data, 0o600); err != nil {
		t.Fatalf("write config: %v", err)
	}

	c, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Server.Port != 8089 || c.Predictor.BaseURL != "http://ml.internal:8000" || c.Predictor.Timeout != 5*time.Second {
		t.Fatalf("unexpected config %+v", c)
	}
	if c.Sessions.CookieName != "hf_session" {
		t.Fatalf("defaults should survive overlay, got cookie %q", c.Sessions.CookieName)
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("BACKEND_URL", "http://override:9000")
	t.Setenv("HTTP_PORT", "8181")
	t.Setenv("REDIS_ADDR", "cache:6380")

	c, err := LoadWithEnv(filepath.Join(t.TempDir(), "missing.yaml"))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if c.Predictor.BaseURL != "http://override:9000" {
		t.Fatalf("expected env base url, got %q", c.Predictor.BaseURL)
	}
	if c.Server.Port != 8181 {
		t.Fatalf("expected port 8181, got %d", c.Server.Port)
	}
	if c.Redis.Host != "cache" || c.Redis.Port != 6380 {
		t.Fatalf("unexpected redis addr %s:%d", c.Redis.Host, c.Redis.Port)
	}
}

func TestValidateRejectsKafkaWithoutBrokers(t *testing.T) {
	c := Default()
	c.Recording.Backend = "kafka"
	if err := c.Validate(); err == nil {
		t.Fatalf("expected error")
	}
	c.Kafka.Brokers = []string{"localhost:9092"}
	if err := c.Validate(); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
}
