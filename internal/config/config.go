package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Config is the top-level configuration loaded from file/env.
type Config struct {
	Store  StoreConfig  `json:"store" yaml:"store"`
	Server ServerConfig `json:"server" yaml:"server"`
	Log    LogConfig    `json:"log" yaml:"log"`
	// DefaultPageSize applies when a page request omits pageSize.
	DefaultPageSize int `json:"defaultPageSize" yaml:"defaultPageSize"`
	// MaxPageSize caps pageSize and search limits accepted from clients.
	MaxPageSize int `json:"maxPageSize" yaml:"maxPageSize"`
}

// StoreConfig shapes the chunked log layout.
type StoreConfig struct {
	ChunkSize   int    `json:"chunkSize" yaml:"chunkSize"`
	Prefix      string `json:"prefix" yaml:"prefix"`
	Compression string `json:"compression" yaml:"compression"`
}

// ServerConfig covers the HTTP listener and the Pebble data directory.
type ServerConfig struct {
	HTTPAddr        string `json:"httpAddr" yaml:"httpAddr"`
	DataDir         string `json:"dataDir" yaml:"dataDir"`
	Fsync           string `json:"fsync" yaml:"fsync"`
	FsyncIntervalMs int    `json:"fsyncIntervalMs" yaml:"fsyncIntervalMs"`
}

// LogConfig selects level and format for pkg/log.
type LogConfig struct {
	Level  string `json:"level" yaml:"level"`
	Format string `json:"format" yaml:"format"`
}

// Default returns built-in defaults.
func Default() Config {
	return Config{
		Store: StoreConfig{
			ChunkSize:   50,
			Prefix:      "synth_logs",
			Compression: "none",
		},
		Server: ServerConfig{
			HTTPAddr:        ":8080",
			DataDir:         DefaultDataDir(),
			Fsync:           "interval",
			FsyncIntervalMs: 5,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "text",
		},
		DefaultPageSize: 20,
		MaxPageSize:     500,
	}
}

// Load reads configuration from a JSON or YAML file (by extension). If path is
// empty, returns defaults. Fields absent from the file keep their defaults.
func Load(path string) (Config, error) {
	if path == "" {
		return Default(), nil
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return Config{}, err
	}
	cfg := Default()
	switch strings.ToLower(filepath.Ext(path)) {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	default:
		if err := json.Unmarshal(b, &cfg); err != nil {
			return Config{}, fmt.Errorf("config: parse %s: %w", path, err)
		}
	}
	return cfg, nil
}

// Validate reports the first invalid setting.
func (c Config) Validate() error {
	switch {
	case c.Store.ChunkSize < 1:
		return errors.New("config: store.chunkSize must be >= 1")
	case c.Store.Prefix == "" || strings.Contains(c.Store.Prefix, "/"):
		return fmt.Errorf("config: store.prefix %q must be non-empty and contain no '/'", c.Store.Prefix)
	case c.DefaultPageSize < 1:
		return errors.New("config: defaultPageSize must be >= 1")
	case c.MaxPageSize < c.DefaultPageSize:
		return errors.New("config: maxPageSize must be >= defaultPageSize")
	case c.Server.FsyncIntervalMs < 0:
		return errors.New("config: server.fsyncIntervalMs must be >= 0")
	}
	switch strings.ToLower(c.Store.Compression) {
	case "", "none", "zstd":
	default:
		return fmt.Errorf("config: unknown store.compression %q", c.Store.Compression)
	}
	switch strings.ToLower(c.Server.Fsync) {
	case "", "always", "interval", "never":
	default:
		return fmt.Errorf("config: unknown server.fsync %q", c.Server.Fsync)
	}
	return nil
}
