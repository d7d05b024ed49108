package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	clientcmd "github.com/rzbill/synthlog/internal/cmd/client"
	serverrun "github.com/rzbill/synthlog/internal/cmd/server"
	cfgpkg "github.com/rzbill/synthlog/internal/config"
	pebblestore "github.com/rzbill/synthlog/internal/storage/pebble"
	logpkg "github.com/rzbill/synthlog/pkg/log"
)

func main() {
	// Respect SYNTHLOG_LOG_LEVEL for both CLI and server start output
	level := os.Getenv("SYNTHLOG_LOG_LEVEL")
	parsed, err := logpkg.ParseLevel(level)
	if err != nil || level == "" {
		parsed = logpkg.InfoLevel
	}
	logger := logpkg.NewLogger(
		logpkg.WithLevel(parsed),
		logpkg.WithFormatter(&logpkg.TextFormatter{}),
		logpkg.WithOutput(logpkg.NewConsoleOutput()),
	)
	logpkg.RedirectStdLog(logger)

	rootCmd := &cobra.Command{
		Use:   "synthlog",
		Short: "synthlog session log CLI",
		Long:  "synthlog stores synthetic training records in chunked, append-only session logs. This CLI runs the server and talks to its HTTP API.",
	}

	rootCmd.AddCommand(newServerCommand())
	rootCmd.AddCommand(clientcmd.NewSessionCommand(clientcmd.BaseURLFromEnv))

	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

func newServerCommand() *cobra.Command {
	serverCmd := &cobra.Command{Use: "server", Short: "Server commands"}
	serverStartCmd := &cobra.Command{
		Use:     "start",
		Short:   "Start the synthlog HTTP server",
		Aliases: []string{"run"},
		RunE: func(cmd *cobra.Command, args []string) error {
			cfg, err := loadConfig(cmd)
			if err != nil {
				return err
			}
			mode, err := pebblestore.ParseFsyncMode(cfg.Server.Fsync)
			if err != nil {
				return fmt.Errorf("invalid --fsync; use always|interval|never")
			}
			inMemory, _ := cmd.Flags().GetBool("in-memory")

			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			if err := serverrun.Run(ctx, serverrun.Options{
				DataDir:       cfg.Server.DataDir,
				HTTPAddr:      cfg.Server.HTTPAddr,
				Fsync:         mode,
				FsyncInterval: time.Duration(cfg.Server.FsyncIntervalMs) * time.Millisecond,
				Config:        cfg,
				InMemory:      inMemory,
			}); err != nil {
				return fmt.Errorf("server error: %w", err)
			}
			return nil
		},
	}
	f := serverStartCmd.Flags()
	f.String("config", os.Getenv("SYNTHLOG_CONFIG"), "Config file (.yaml, .yml or .json)")
	f.String("data-dir", "", "Data directory (if not specified, uses OS-specific application data directory)")
	f.String("http", "", "HTTP listen address (default :8080)")
	f.String("fsync", "", "Fsync mode: always|interval|never (default interval)")
	f.Int("fsync-interval-ms", 0, "When --fsync=interval, group-commit window in ms (default 5)")
	f.Int("chunk-size", 0, "Records per chunk (default 50)")
	f.String("compression", "", "Chunk compression: none|zstd (default none)")
	f.String("log-level", "", "Log level: debug|info|warn|error")
	f.String("log-format", "", "Log format: text|json (default text)")
	f.Bool("in-memory", false, "Keep sessions in memory only; nothing is written to disk")
	serverCmd.AddCommand(serverStartCmd)
	return serverCmd
}

// loadConfig layers defaults, the optional config file, SYNTHLOG_* env and
// explicitly set flags, in that order.
func loadConfig(cmd *cobra.Command) (cfgpkg.Config, error) {
	cfg := cfgpkg.Default()
	if path, _ := cmd.Flags().GetString("config"); path != "" {
		loaded, err := cfgpkg.Load(path)
		if err != nil {
			return cfg, err
		}
		cfg = loaded
	}
	cfgpkg.FromEnv(&cfg)

	f := cmd.Flags()
	if f.Changed("data-dir") {
		cfg.Server.DataDir, _ = f.GetString("data-dir")
	}
	if f.Changed("http") {
		cfg.Server.HTTPAddr, _ = f.GetString("http")
	}
	if f.Changed("fsync") {
		cfg.Server.Fsync, _ = f.GetString("fsync")
	}
	if f.Changed("fsync-interval-ms") {
		cfg.Server.FsyncIntervalMs, _ = f.GetInt("fsync-interval-ms")
	}
	if f.Changed("chunk-size") {
		cfg.Store.ChunkSize, _ = f.GetInt("chunk-size")
	}
	if f.Changed("compression") {
		cfg.Store.Compression, _ = f.GetString("compression")
	}
	if f.Changed("log-level") {
		cfg.Log.Level, _ = f.GetString("log-level")
	}
	if f.Changed("log-format") {
		cfg.Log.Format, _ = f.GetString("log-format")
	}
	return cfg, cfg.Validate()
}
