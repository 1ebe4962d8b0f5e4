// Package config loads process settings from the environment.
package config

import (
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/caarlos0/env/v11"

	"github.com/leonardcser/objcache-mcp/internal/cache"
)

// Config holds the settings shared by the cache daemon and the MCP server.
type Config struct {
	Dir           string        `env:"OBJCACHE_DIR"`
	StoreName     string        `env:"OBJCACHE_STORE_NAME"     envDefault:"objcache"`
	Container     string        `env:"OBJCACHE_CONTAINER"      envDefault:"records"`
	SchemaVersion int           `env:"OBJCACHE_SCHEMA_VERSION" envDefault:"1"`
	QuotaBytes    int64         `env:"OBJCACHE_QUOTA_BYTES"    envDefault:"3145728"`
	MaxDimension  int           `env:"OBJCACHE_MAX_DIMENSION"  envDefault:"1920"`
	Quality       float64       `env:"OBJCACHE_QUALITY"        envDefault:"0.8"`
	Socket        string        `env:"OBJCACHE_SOCK"`
	SnapshotTTL   time.Duration `env:"OBJCACHE_SNAPSHOT_TTL"   envDefault:"15m"`
	SweepInterval time.Duration `env:"OBJCACHE_SWEEP_INTERVAL" envDefault:"0"`
}

// ParseEnv loads configuration from environment variables into target.
func ParseEnv(target any) error {
	if err := env.Parse(target); err != nil {
		return fmt.Errorf("parse env: %w", err)
	}
	return nil
}

// Load reads Config and fills in path defaults under ~/.cache/objcache.
func Load() (Config, error) {
	var cfg Config
	if err := ParseEnv(&cfg); err != nil {
		return Config{}, err
	}
	if cfg.Dir == "" {
		cfg.Dir = defaultDir()
	}
	if cfg.Socket == "" {
		cfg.Socket = filepath.Join(cfg.Dir, "cache.sock")
	}
	if cfg.Quality <= 0 || cfg.Quality > 1 {
		return Config{}, fmt.Errorf("OBJCACHE_QUALITY must be in (0, 1], got %v", cfg.Quality)
	}
	return cfg, nil
}

// StoreOptions maps the configuration onto cache.Options.
func (c Config) StoreOptions() cache.Options {
	return cache.Options{
		Dir:           c.Dir,
		StoreName:     c.StoreName,
		Container:     c.Container,
		SchemaVersion: c.SchemaVersion,
		QuotaBytes:    c.QuotaBytes,
		MaxDimension:  c.MaxDimension,
		Quality:       c.Quality,
	}
}

func defaultDir() string {
	home, _ := os.UserHomeDir()
	if home == "" {
		home = "."
	}
	return filepath.Join(home, ".cache", "objcache")
}
