package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/mzaitsev/molecule-explorer/internal/ratelimit"
)

func TestLoadDefaults(t *testing.T) {
	cfg, err := Load("")
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Path != "molecules.db" {
		t.Fatalf("unexpected db path: %s", cfg.Database.Path)
	}
	if cfg.Ingest.ChunkSize != 500 {
		t.Fatalf("unexpected chunk size: %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Server.Port != 8080 {
		t.Fatalf("unexpected port: %d", cfg.Server.Port)
	}
	if cfg.PubChem.BatchSize != 100 {
		t.Fatalf("unexpected pubchem batch size: %d", cfg.PubChem.BatchSize)
	}
	if cfg.PubChem.RateLimit.RequestsPerSec != 5 {
		t.Fatalf("unexpected pubchem rate: %v", cfg.PubChem.RateLimit.RequestsPerSec)
	}
}

func TestLoadFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	content := "database:\n  path: /tmp/mols.db\n  debug: true\ningest:\n  chunk_size: 50\nserver:\n  port: 9090\npubchem:\n  batch_size: 25\n  rate_limit:\n    strategy: fixed_delay\n    fixed_delay: 300ms\n"
	if err := os.WriteFile(path, []byte(content), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Database.Path != "/tmp/mols.db" || !cfg.Database.Debug {
		t.Fatalf("unexpected database config: %+v", cfg.Database)
	}
	if cfg.Ingest.ChunkSize != 50 {
		t.Fatalf("unexpected chunk size: %d", cfg.Ingest.ChunkSize)
	}
	if cfg.Server.Port != 9090 {
		t.Fatalf("unexpected port: %d", cfg.Server.Port)
	}
	if cfg.PubChem.BatchSize != 25 {
		t.Fatalf("unexpected pubchem batch size: %d", cfg.PubChem.BatchSize)
	}
	if cfg.PubChem.RateLimit.Strategy != ratelimit.StrategyFixedDelay {
		t.Fatalf("unexpected rate limit strategy: %q", cfg.PubChem.RateLimit.Strategy)
	}
	if cfg.PubChem.RateLimit.FixedDelay != 300*time.Millisecond {
		t.Fatalf("unexpected fixed delay: %v", cfg.PubChem.RateLimit.FixedDelay)
	}
}

func TestLoadInvalidValuesFallBack(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	if err := os.WriteFile(path, []byte("ingest:\n  chunk_size: -1\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}

	cfg, err := Load(path)
	if err != nil {
		t.Fatalf("load: %v", err)
	}
	if cfg.Ingest.ChunkSize != 500 {
		t.Fatalf("non-positive chunk size must fall back, got %d", cfg.Ingest.ChunkSize)
	}
}
