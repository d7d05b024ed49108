package config

import (
	"os"
	"path/filepath"
)

const appDir = "synthlog"

// DefaultDataDir picks where Pebble keeps session logs when no data dir is
// configured: $XDG_DATA_HOME/synthlog, then the first existing platform data
// root, then ~/.synthlog. Without a home directory it falls back to ./data.
func DefaultDataDir() string {
	home, err := os.UserHomeDir()
	if err != nil || home == "" {
		return "./data"
	}
	if xdg := os.Getenv("XDG_DATA_HOME"); xdg != "" {
		return filepath.Join(xdg, appDir)
	}
	for _, root := range []struct{ parent, dir string }{
		{"/var/lib", filepath.Join("/var/lib", appDir)},
		{filepath.Join(home, "Library"), filepath.Join(home, "Library", "Application Support", "Synthlog")},
		{filepath.Join(home, "AppData"), filepath.Join(home, "AppData", "Local", "Synthlog")},
	} {
		if isDir(root.parent) {
			return root.dir
		}
	}
	return filepath.Join(home, "."+appDir)
}

func isDir(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.IsDir()
}
