package config

import (
	"os"
	"strconv"
)

// FromEnv overlays SYNTHLOG_* environment variables onto cfg.
func FromEnv(cfg *Config) {
	if v := os.Getenv("SYNTHLOG_CHUNK_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Store.ChunkSize = n
		}
	}
	if v := os.Getenv("SYNTHLOG_PREFIX"); v != "" {
		cfg.Store.Prefix = v
	}
	if v := os.Getenv("SYNTHLOG_COMPRESSION"); v != "" {
		cfg.Store.Compression = v
	}
	if v := os.Getenv("SYNTHLOG_HTTP_ADDR"); v != "" {
		cfg.Server.HTTPAddr = v
	}
	if v := os.Getenv("SYNTHLOG_DATA_DIR"); v != "" {
		cfg.Server.DataDir = v
	}
	if v := os.Getenv("SYNTHLOG_FSYNC"); v != "" {
		cfg.Server.Fsync = v
	}
	if v := os.Getenv("SYNTHLOG_FSYNC_INTERVAL_MS"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.Server.FsyncIntervalMs = n
		}
	}
	if v := os.Getenv("SYNTHLOG_LOG_LEVEL"); v != "" {
		cfg.Log.Level = v
	}
	if v := os.Getenv("SYNTHLOG_LOG_FORMAT"); v != "" {
		cfg.Log.Format = v
	}
	if v := os.Getenv("SYNTHLOG_DEFAULT_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.DefaultPageSize = n
		}
	}
	if v := os.Getenv("SYNTHLOG_MAX_PAGE_SIZE"); v != "" {
		if n, err := strconv.Atoi(v); err == nil {
			cfg.MaxPageSize = n
		}
	}
}
