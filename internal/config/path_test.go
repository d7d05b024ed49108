package config

import (
	"path/filepath"
	"testing"
)

func TestDefaultDataDirHonoursXDG(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "/custom/data")
	if got := DefaultDataDir(); got != filepath.Join("/custom/data", "synthlog") {
		t.Fatalf("DefaultDataDir() = %s", got)
	}
}

func TestDefaultDataDirWithoutHome(t *testing.T) {
	t.Setenv("HOME", "")
	t.Setenv("XDG_DATA_HOME", "/ignored")
	if got := DefaultDataDir(); got != "./data" {
		t.Fatalf("DefaultDataDir() = %s, want ./data", got)
	}
}

func TestDefaultDataDirIsUsableByDefault(t *testing.T) {
	t.Setenv("XDG_DATA_HOME", "")
	got := DefaultDataDir()
	if !filepath.IsAbs(got) && got != "./data" {
		t.Fatalf("DefaultDataDir() = %s, want an absolute path", got)
	}
	if b := filepath.Base(got); b != "synthlog" && b != "Synthlog" && b != ".synthlog" {
		t.Fatalf("DefaultDataDir() = %s, want a synthlog directory", got)
	}
	if Default().Server.DataDir != got {
		t.Fatalf("Default() data dir %s != %s", Default().Server.DataDir, got)
	}
}
