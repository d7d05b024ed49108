package runtime

import (
	"context"
	"errors"
	"fmt"
	"os"
	"time"

	cfgpkg "github.com/rzbill/synthlog/internal/config"
	"github.com/rzbill/synthlog/internal/logstore"
	"github.com/rzbill/synthlog/internal/medium"
	"github.com/rzbill/synthlog/internal/metrics"
	pebblestore "github.com/rzbill/synthlog/internal/storage/pebble"
	logpkg "github.com/rzbill/synthlog/pkg/log"
)

// Options for building the Runtime. DataDir and Fsync default to the values
// in Config.Server when unset.
type Options struct {
	DataDir       string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	Logger        logpkg.Logger
	Metrics       *metrics.Metrics
	// Medium replaces Pebble with a caller-supplied medium (tests, in-memory mode).
	Medium medium.Medium
}

// Runtime wires storage, config and the log store for a single-node instance.
type Runtime struct {
	db      *pebblestore.DB
	medium  medium.Medium
	store   *logstore.Store
	config  cfgpkg.Config
	metrics *metrics.Metrics
	logger  logpkg.Logger
}

// Open initializes the underlying storage and returns a Runtime.
func Open(opts Options) (*Runtime, error) {
	cfg := opts.Config
	if cfg.Store.ChunkSize == 0 {
		cfg = cfgpkg.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	logger := opts.Logger
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	compression, err := logstore.ParseCompression(cfg.Store.Compression)
	if err != nil {
		return nil, err
	}

	rt := &Runtime{config: cfg, metrics: opts.Metrics, logger: logger.WithComponent("runtime")}

	m := opts.Medium
	if m == nil {
		dir := opts.DataDir
		if dir == "" {
			dir = cfg.Server.DataDir
		}
		fsync := opts.Fsync
		if fsync == pebblestore.FsyncModeUnspecified {
			if fsync, err = pebblestore.ParseFsyncMode(cfg.Server.Fsync); err != nil {
				return nil, err
			}
		}
		interval := opts.FsyncInterval
		if interval == 0 {
			interval = time.Duration(cfg.Server.FsyncIntervalMs) * time.Millisecond
		}
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("runtime: create data dir: %w", err)
		}
		popts := pebblestore.Options{DataDir: dir, Fsync: fsync, FsyncInterval: interval, Logger: logger}
		if opts.Metrics != nil {
			popts.Metrics = opts.Metrics
		}
		db, err := pebblestore.Open(popts)
		if err != nil {
			return nil, err
		}
		rt.db = db
		m = pebblestore.NewMedium(db)
		rt.logger.Info("storage opened", logpkg.Str("data_dir", dir), logpkg.Str("fsync", cfg.Server.Fsync))
	}
	rt.medium = m

	sopts := logstore.Options{
		ChunkSize:   cfg.Store.ChunkSize,
		Prefix:      cfg.Store.Prefix,
		Compression: compression,
		Logger:      logger,
	}
	if opts.Metrics != nil {
		sopts.Metrics = opts.Metrics
	}
	rt.store = logstore.New(m, sopts)
	return rt, nil
}

// Close closes underlying resources.
func (r *Runtime) Close() error {
	if r.db == nil {
		return nil
	}
	return r.db.Close()
}

// CheckHealth performs a simple health check.
func (r *Runtime) CheckHealth(ctx context.Context) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if r.store == nil {
		return errors.New("store not open")
	}
	if r.db == nil {
		_, err := r.medium.Keys(r.config.Store.Prefix + "/")
		return err
	}
	it, err := r.db.NewIter(nil)
	if err != nil {
		return err
	}
	return it.Close()
}

// Store returns the chunked log store.
func (r *Runtime) Store() *logstore.Store { return r.store }

// DB exposes the underlying DB, nil when running on a supplied medium.
func (r *Runtime) DB() *pebblestore.DB { return r.db }

// Config returns the runtime configuration.
func (r *Runtime) Config() cfgpkg.Config { return r.config }

// Metrics returns the metrics registry, possibly nil.
func (r *Runtime) Metrics() *metrics.Metrics { return r.metrics }
