package config

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"

	"github.com/mzaitsev/molecule-explorer/internal/ratelimit"
)

// Config is the root configuration.
type Config struct {
	Database DatabaseConfig `yaml:"database"`
	Ingest   IngestConfig   `yaml:"ingest"`
	Server   ServerConfig   `yaml:"server"`
	PubChem  PubChemConfig  `yaml:"pubchem"`
}

// DatabaseConfig configures SQLite storage.
type DatabaseConfig struct {
	Path  string `yaml:"path"`
	Debug bool   `yaml:"debug"`
}

// IngestConfig configures the load pipeline.
type IngestConfig struct {
	// ChunkSize is the number of records committed per write.
	ChunkSize int `yaml:"chunk_size"`
}

// ServerConfig configures the browse API server.
type ServerConfig struct {
	Port int `yaml:"port"`
}

// PubChemConfig configures the conformer fetcher.
type PubChemConfig struct {
	BaseURL   string           `yaml:"base_url"`
	BatchSize int              `yaml:"batch_size"`
	RateLimit ratelimit.Config `yaml:"rate_limit"`
}

// Default returns the built-in configuration.
func Default() *Config {
	return &Config{
		Database: DatabaseConfig{Path: "molecules.db"},
		Ingest:   IngestConfig{ChunkSize: 500},
		Server:   ServerConfig{Port: 8080},
		PubChem: PubChemConfig{
			BatchSize: 100,
			RateLimit: ratelimit.DefaultConfig(),
		},
	}
}

// Load reads a YAML config file on top of the defaults. An empty path
// returns the defaults unchanged.
func Load(path string) (*Config, error) {
	cfg := Default()
	if path == "" {
		return cfg, nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config %s: %w", path, err)
	}
	if err := yaml.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("parse config %s: %w", path, err)
	}

	if cfg.Database.Path == "" {
		cfg.Database.Path = "molecules.db"
	}
	if cfg.Ingest.ChunkSize <= 0 {
		cfg.Ingest.ChunkSize = 500
	}
	if cfg.Server.Port <= 0 {
		cfg.Server.Port = 8080
	}
	if cfg.PubChem.BatchSize <= 0 {
		cfg.PubChem.BatchSize = 100
	}

	return cfg, nil
}
