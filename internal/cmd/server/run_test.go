package serverrun

import (
	"context"
	"net/http"
	"os"
	"path/filepath"
	"testing"
	"time"

	transports "github.com/rzbill/synthlog/internal/cmd/client/transports"
	cfgpkg "github.com/rzbill/synthlog/internal/config"
	pebblestore "github.com/rzbill/synthlog/internal/storage/pebble"
	"github.com/rzbill/synthlog/internal/synth"
)

func TestGetenvDefault(t *testing.T) {
	tests := []struct {
		name     string
		key      string
		def      string
		envValue string
		expected string
	}{
		{
			name:     "environment variable set",
			key:      "SYNTHLOG_TEST_VAR",
			def:      "default",
			envValue: "env_value",
			expected: "env_value",
		},
		{
			name:     "environment variable not set",
			key:      "SYNTHLOG_TEST_VAR_NOT_SET",
			def:      "default",
			envValue: "",
			expected: "default",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if tt.envValue != "" {
				t.Setenv(tt.key, tt.envValue)
			} else {
				_ = os.Unsetenv(tt.key)
			}
			if got := getenvDefault(tt.key, tt.def); got != tt.expected {
				t.Errorf("getenvDefault(%s, %s) = %s, expected %s", tt.key, tt.def, got, tt.expected)
			}
		})
	}
}

// startRun runs the server in the background and returns its base URL.
func startRun(t *testing.T, opts Options) (string, context.CancelFunc, <-chan error) {
	t.Helper()
	ready := make(chan string, 1)
	opts.HTTPAddr = "127.0.0.1:0"
	opts.Ready = func(addr string) { ready <- addr }

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- Run(ctx, opts) }()

	select {
	case addr := <-ready:
		return "http://" + addr, cancel, done
	case err := <-done:
		cancel()
		t.Fatalf("run exited early: %v", err)
	case <-time.After(5 * time.Second):
		cancel()
		t.Fatalf("server did not become ready")
	}
	return "", cancel, done
}

func waitStopped(t *testing.T, cancel context.CancelFunc, done <-chan error) {
	t.Helper()
	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned %v", err)
		}
	case <-time.After(10 * time.Second):
		t.Fatalf("run did not stop")
	}
}

func TestRunInMemory(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Store.ChunkSize = 2
	base, cancel, done := startRun(t, Options{DataDir: t.TempDir(), Config: cfg, InMemory: true})

	tr := transports.NewHTTPTransport(base, &http.Client{Timeout: 5 * time.Second})
	ctx := context.Background()
	for _, q := range []string{"a", "b", "c"} {
		if _, err := tr.Append(ctx, "runmem", synth.Record{Query: q}); err != nil {
			t.Fatalf("append %s: %v", q, err)
		}
	}
	p, err := tr.Page(ctx, "runmem", 1, 2)
	if err != nil {
		t.Fatalf("page: %v", err)
	}
	if p.Total != 3 || len(p.Items) != 2 || p.Items[0].Query != "c" || p.Items[1].Query != "b" {
		t.Fatalf("unexpected page %+v", p)
	}

	waitStopped(t, cancel, done)
}

func TestRunPersistsAcrossRestarts(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration test in short mode")
	}
	dir := t.TempDir()
	opts := Options{
		DataDir:       dir,
		Fsync:         pebblestore.FsyncModeAlways,
		FsyncInterval: time.Millisecond,
		Config:        cfgpkg.Default(),
	}

	base, cancel, done := startRun(t, opts)
	tr := transports.NewHTTPTransport(base, nil)
	if _, err := tr.Append(context.Background(), "durable", synth.Record{Query: "q1"}); err != nil {
		t.Fatalf("append: %v", err)
	}
	waitStopped(t, cancel, done)

	if _, err := os.Stat(filepath.Join(dir, "store")); err != nil {
		t.Fatalf("store dir missing: %v", err)
	}

	base, cancel, done = startRun(t, opts)
	tr = transports.NewHTTPTransport(base, nil)
	n, err := tr.Count(context.Background(), "durable")
	if err != nil || n != 1 {
		t.Fatalf("count after restart = %d, %v", n, err)
	}
	waitStopped(t, cancel, done)
}

func TestRunRejectsInvalidConfig(t *testing.T) {
	cfg := cfgpkg.Default()
	cfg.Store.Compression = "lz4"
	err := Run(context.Background(), Options{DataDir: t.TempDir(), HTTPAddr: "127.0.0.1:0", Config: cfg, InMemory: true})
	if err == nil {
		t.Fatalf("expected config validation error")
	}
}
