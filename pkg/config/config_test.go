package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"
)

func TestDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading defaults: %v", err)
	}

	if cfg.Server.Port != 8080 {
		t.Errorf("expected default port 8080, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "postgres" {
		t.Errorf("expected default driver postgres, got %q", cfg.Storage.Driver)
	}
	if cfg.Indexing.MinTokenCount != 10000 {
		t.Errorf("expected min token count 10000, got %d", cfg.Indexing.MinTokenCount)
	}
	if cfg.Indexing.TopTermsK != 50 {
		t.Errorf("expected top terms K 50, got %d", cfg.Indexing.TopTermsK)
	}
	if cfg.Graph.Threshold != 0.5 {
		t.Errorf("expected graph threshold 0.5, got %v", cfg.Graph.Threshold)
	}
	if cfg.Centrality.Damping != 0.85 {
		t.Errorf("expected damping 0.85, got %v", cfg.Centrality.Damping)
	}
	if cfg.Search.DefaultLimit != 50 {
		t.Errorf("expected default limit 50, got %d", cfg.Search.DefaultLimit)
	}
	if cfg.Kafka.Topics.DocumentIngest != "document-ingest" {
		t.Errorf("unexpected ingest topic %q", cfg.Kafka.Topics.DocumentIngest)
	}
}

func TestLoadFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	content := `
server:
  port: 9999
storage:
  driver: sqlite
graph:
  threshold: 0.25
indexing:
  minTokenCount: 5
  rebuildInterval: 30s
`
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Server.Port != 9999 {
		t.Errorf("expected port 9999, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "sqlite" {
		t.Errorf("expected driver sqlite, got %q", cfg.Storage.Driver)
	}
	if cfg.Graph.Threshold != 0.25 {
		t.Errorf("expected threshold 0.25, got %v", cfg.Graph.Threshold)
	}
	if cfg.Indexing.MinTokenCount != 5 {
		t.Errorf("expected min token count 5, got %d", cfg.Indexing.MinTokenCount)
	}
	if cfg.Indexing.RebuildInterval != 30*time.Second {
		t.Errorf("expected rebuild interval 30s, got %v", cfg.Indexing.RebuildInterval)
	}
	// unset fields keep their defaults
	if cfg.Postgres.Host != "localhost" {
		t.Errorf("expected untouched postgres host, got %q", cfg.Postgres.Host)
	}
	if cfg.Centrality.MaxIterations != 100 {
		t.Errorf("expected untouched max iterations, got %d", cfg.Centrality.MaxIterations)
	}
}

func TestEnvOverrides(t *testing.T) {
	t.Setenv("BG_SERVER_PORT", "7777")
	t.Setenv("BG_STORAGE_DRIVER", "memory")
	t.Setenv("BG_KAFKA_BROKERS", "kafka-1:9092,kafka-2:9092")
	t.Setenv("BG_POSTGRES_PASSWORD", "sekrit")

	cfg, err := Load("")
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("expected env port 7777, got %d", cfg.Server.Port)
	}
	if cfg.Storage.Driver != "memory" {
		t.Errorf("expected env driver memory, got %q", cfg.Storage.Driver)
	}
	if len(cfg.Kafka.Brokers) != 2 || cfg.Kafka.Brokers[1] != "kafka-2:9092" {
		t.Errorf("expected two brokers from env, got %v", cfg.Kafka.Brokers)
	}
	if cfg.Postgres.Password != "sekrit" {
		t.Errorf("expected env password, got %q", cfg.Postgres.Password)
	}
}

func TestEnvBeatsFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "app.yaml")
	if err := os.WriteFile(path, []byte("server:\n  port: 9999\n"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	t.Setenv("BG_SERVER_PORT", "7777")

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("loading config: %v", err)
	}
	if cfg.Server.Port != 7777 {
		t.Errorf("expected env override 7777, got %d", cfg.Server.Port)
	}
}

func TestMissingDefaultPathFallsBack(t *testing.T) {
	cfg, err := Load(DefaultPath)
	if err != nil {
		t.Fatalf("missing default path must not error: %v", err)
	}
	if cfg.Server.Port != 8080 {
		t.Errorf("expected defaults, got port %d", cfg.Server.Port)
	}
}

func TestMissingExplicitPathErrors(t *testing.T) {
	if _, err := Load(filepath.Join(t.TempDir(), "nope.yaml")); err == nil {
		t.Fatal("expected error for missing explicit path")
	}
}

func TestMalformedFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "bad.yaml")
	if err := os.WriteFile(path, []byte("server: [not a map"), 0o644); err != nil {
		t.Fatalf("writing config: %v", err)
	}
	if _, err := Load(path); err == nil {
		t.Fatal("expected parse error")
	}
}

func TestPostgresDSN(t *testing.T) {
	p := PostgresConfig{
		Host:     "db.internal",
		Port:     5433,
		Database: "books",
		User:     "reader",
		Password: "pw",
		SSLMode:  "require",
	}
	want := "host=db.internal port=5433 user=reader password=pw dbname=books sslmode=require"
	if got := p.DSN(); got != want {
		t.Errorf("DSN mismatch:\n got %q\nwant %q", got, want)
	}
}
