package serverrun

import (
	"context"
	"errors"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"golang.org/x/sync/errgroup"

	cfgpkg "github.com/rzbill/synthlog/internal/config"
	"github.com/rzbill/synthlog/internal/medium"
	"github.com/rzbill/synthlog/internal/metrics"
	"github.com/rzbill/synthlog/internal/runtime"
	httpserver "github.com/rzbill/synthlog/internal/server/http"
	sessionsvc "github.com/rzbill/synthlog/internal/services/sessions"
	pebblestore "github.com/rzbill/synthlog/internal/storage/pebble"
	logpkg "github.com/rzbill/synthlog/pkg/log"
)

func getenvDefault(key, def string) string {
	if v := getenv(key); v != "" {
		return v
	}
	return def
}

// small wrapper to allow testing
var getenv = func(key string) string { return os.Getenv(key) }

type Options struct {
	DataDir       string
	HTTPAddr      string
	Fsync         pebblestore.FsyncMode
	FsyncInterval time.Duration
	Config        cfgpkg.Config
	// InMemory keeps every session in process memory; nothing survives exit.
	InMemory bool
	// Ready, when set, receives the bound HTTP address once listening.
	Ready func(addr string)
}

// Run starts the HTTP server and blocks until ctx is cancelled.
func Run(ctx context.Context, opts Options) error {
	sctx, stop := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer stop()

	cfg := opts.Config
	if cfg.Store.ChunkSize == 0 {
		cfg = cfgpkg.Default()
	}
	if opts.DataDir == "" {
		opts.DataDir = cfg.Server.DataDir
	}
	if opts.DataDir == "" {
		opts.DataDir = cfgpkg.DefaultDataDir()
	}
	if opts.HTTPAddr == "" {
		opts.HTTPAddr = cfg.Server.HTTPAddr
	}

	// Build process-wide logger; env wins over file config.
	logCfg := &logpkg.Config{
		Level:  getenvDefault("SYNTHLOG_LOG_LEVEL", cfg.Log.Level),
		Format: getenvDefault("SYNTHLOG_LOG_FORMAT", cfg.Log.Format),
	}
	procLogger, err := logpkg.ApplyConfig(logCfg)
	if err != nil {
		lvl := logpkg.InfoLevel
		if l, e := logpkg.ParseLevel(logCfg.Level); e == nil {
			lvl = l
		}
		procLogger = logpkg.NewLogger(logpkg.WithLevel(lvl), logpkg.WithFormatter(&logpkg.TextFormatter{}))
	}

	// Pebble logs through the stdlib logger.
	logpkg.RedirectStdLog(procLogger)

	m := metrics.NewMetrics()
	ropts := runtime.Options{
		DataDir:       filepath.Join(opts.DataDir, "store"),
		Fsync:         opts.Fsync,
		FsyncInterval: opts.FsyncInterval,
		Config:        cfg,
		Logger:        procLogger,
		Metrics:       m,
	}
	if opts.InMemory {
		ropts.Medium = medium.NewMemory()
	}
	rt, err := runtime.Open(ropts)
	if err != nil {
		return err
	}
	defer rt.Close()

	procLogger.Info("Starting synthlog server",
		logpkg.Str("http", opts.HTTPAddr),
		logpkg.Str("data_dir", ropts.DataDir),
		logpkg.Bool("in_memory", opts.InMemory),
		logpkg.Int("chunk_size", cfg.Store.ChunkSize),
		logpkg.Str("compression", cfg.Store.Compression),
		logpkg.Str("level", logCfg.Level),
		logpkg.Str("format", logCfg.Format),
	)

	svc := sessionsvc.NewWithLogger(rt, procLogger)
	hsrv := httpserver.New(rt, svc, procLogger)

	g, gctx := errgroup.WithContext(sctx)
	g.Go(func() error {
		return hsrv.ListenAndServe(gctx, opts.HTTPAddr)
	})
	if opts.Ready != nil {
		g.Go(func() error {
			t := time.NewTicker(5 * time.Millisecond)
			defer t.Stop()
			for {
				if a := hsrv.Addr(); a != nil {
					opts.Ready(a.String())
					return nil
				}
				select {
				case <-gctx.Done():
					return nil
				case <-t.C:
				}
			}
		})
	}

	err = g.Wait()
	hsrv.Close()
	if err != nil && !errors.Is(err, context.Canceled) {
		procLogger.Error("http server failed", logpkg.Err(err))
		return err
	}
	procLogger.Info("synthlog server stopped")
	return nil
}
