package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(path, []byte(body), 0o644); err != nil {
		t.Fatalf("write config: %v", err)
	}
	return path
}

const minimalConfig = `
backend:
  type: clickhouse
clickhouse:
  host: localhost
resolver:
  websocket_url: wss://resolver.example.com/ws
models:
  - id: m1
    url: http://localhost:9001/predict
`

func TestLoadAppliesDefaults(t *testing.T) {
	cfg, err := Load(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("server port = %d, want 8080", cfg.Server.Port)
	}
	if cfg.Round.Interval != 15*time.Minute {
		t.Fatalf("round interval = %v, want 15m", cfg.Round.Interval)
	}
	if cfg.Kafka.Topic != "bench.round_outcomes" {
		t.Fatalf("kafka topic = %s", cfg.Kafka.Topic)
	}
	if cfg.Benchmark.Validity.MinCoverage != 0.8 {
		t.Fatalf("min coverage = %v, want 0.8", cfg.Benchmark.Validity.MinCoverage)
	}
	if cfg.Benchmark.Stability.Window != 6 {
		t.Fatalf("stability window = %d, want 6", cfg.Benchmark.Stability.Window)
	}
	if cfg.Benchmark.Ensemble.MinModels != 3 {
		t.Fatalf("min models = %d, want 3", cfg.Benchmark.Ensemble.MinModels)
	}
	if cfg.Models[0].Timeout != 20*time.Second {
		t.Fatalf("model timeout = %v, want 20s", cfg.Models[0].Timeout)
	}
}

func TestLoadRejectsKafkaBackendWithoutBrokers(t *testing.T) {
	body := `
backend:
  type: kafka
resolver:
  websocket_url: wss://resolver.example.com/ws
models:
  - id: m1
    url: http://localhost:9001/predict
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for kafka backend without brokers")
	}
}

func TestLoadRejectsDuplicateModelIDs(t *testing.T) {
	body := `
backend:
  type: clickhouse
resolver:
  websocket_url: wss://resolver.example.com/ws
models:
  - id: m1
    url: http://localhost:9001/predict
  - id: m1
    url: http://localhost:9002/predict
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for duplicate model ids")
	}
}

func TestLoadRejectsUnknownBackend(t *testing.T) {
	body := `
backend:
  type: postgres
resolver:
  websocket_url: wss://resolver.example.com/ws
models:
  - id: m1
    url: http://localhost:9001/predict
`
	if _, err := Load(writeConfig(t, body)); err == nil {
		t.Fatalf("expected error for unsupported backend type")
	}
}

func TestLoadWithEnvOverrides(t *testing.T) {
	t.Setenv("RESOLVER_API_KEY", "secret-key")
	t.Setenv("KAFKA_BROKERS", "k1:9092,k2:9092")

	cfg, err := LoadWithEnv(writeConfig(t, minimalConfig))
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Resolver.APIKey != "secret-key" {
		t.Fatalf("api key = %s", cfg.Resolver.APIKey)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[0] != "k1:9092" {
		t.Fatalf("brokers = %v", cfg.Kafka.Brokers)
	}
}
