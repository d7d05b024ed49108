package client

import (
	"bufio"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"strings"

	transports "github.com/rzbill/synthlog/internal/cmd/client/transports"
	"github.com/rzbill/synthlog/internal/synth"
)

// BaseURLFunc provides the base HTTP API URL (e.g., from env or flag).
type BaseURLFunc func() string

// BaseURLFromEnv returns SYNTHLOG_HTTP or the local default.
func BaseURLFromEnv() string {
	if v := os.Getenv("SYNTHLOG_HTTP"); v != "" {
		return strings.TrimRight(v, "/")
	}
	return "http://127.0.0.1:8080"
}

// transportFor builds the transport for one command invocation.
var transportFor = func(baseURL BaseURLFunc) transports.SessionsTransport {
	return transports.NewHTTPTransport(baseURL(), nil)
}

func printJSON(w io.Writer, v any) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// readRecords parses one JSON record per non-blank line. "-" reads stdin.
func readRecords(path string, stdin io.Reader) ([]synth.Record, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path)
		if err != nil {
			return nil, err
		}
		defer f.Close()
		r = f
	}
	var out []synth.Record
	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64<<10), 16<<20)
	line := 0
	for sc.Scan() {
		line++
		text := strings.TrimSpace(sc.Text())
		if text == "" {
			continue
		}
		var rec synth.Record
		if err := json.Unmarshal([]byte(text), &rec); err != nil {
			return nil, fmt.Errorf("line %d: %w", line, err)
		}
		out = append(out, rec)
	}
	return out, sc.Err()
}
