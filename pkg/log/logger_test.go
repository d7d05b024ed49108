package log

import (
	"bytes"
	"encoding/json"
	"errors"
	"log/slog"
	"strings"
	"testing"
)

func TestParseLevel(t *testing.T) {
	tests := []struct {
		in      string
		want    Level
		wantErr bool
	}{
		{in: "debug", want: DebugLevel},
		{in: "INFO", want: InfoLevel},
		{in: "", want: InfoLevel},
		{in: "warning", want: WarnLevel},
		{in: "error", want: ErrorLevel},
		{in: "loud", want: InfoLevel, wantErr: true},
	}
	for _, tt := range tests {
		got, err := ParseLevel(tt.in)
		if (err != nil) != tt.wantErr {
			t.Fatalf("ParseLevel(%q) err=%v wantErr=%v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Fatalf("ParseLevel(%q)=%v want %v", tt.in, got, tt.want)
		}
	}
}

func TestJSONOutputCarriesFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(DebugLevel), WithOutput(NewWriterOutput(&buf)))
	l.With(Component("logstore")).Info("appended", Session("s1"), Int("total", 3))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if got["msg"] != "appended" || got["component"] != "logstore" || got["session"] != "s1" {
		t.Fatalf("unexpected entry: %v", got)
	}
	if got["total"].(float64) != 3 {
		t.Fatalf("total field: %v", got["total"])
	}
}

func TestLevelGating(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithLevel(WarnLevel), WithFormatter(&TextFormatter{}), WithOutput(NewWriterOutput(&buf)))
	l.Info("hidden")
	l.Debugf("hidden too", "k", "v")
	if buf.Len() != 0 {
		t.Fatalf("expected no output below warn, got %q", buf.String())
	}
	l.Warn("visible", Err(errors.New("boom")))
	out := buf.String()
	if !strings.Contains(out, "visible") || !strings.Contains(out, "error=boom") {
		t.Fatalf("unexpected text output: %q", out)
	}
	l.SetLevel(DebugLevel)
	if l.GetLevel() != DebugLevel {
		t.Fatalf("level not updated")
	}
}

func TestApplyConfigRedacts(t *testing.T) {
	l, err := ApplyConfig(&Config{Level: "info", Format: "json", Outputs: []string{"null"}, RedactKeys: []string{"token"}})
	if err != nil {
		t.Fatalf("apply: %v", err)
	}
	var buf bytes.Buffer
	bl := l.(*BaseLogger)
	bl.outputs = append(bl.outputs, NewWriterOutput(&buf))
	l.Info("auth", Str("token", "secret"))
	if strings.Contains(buf.String(), "secret") || !strings.Contains(buf.String(), "[REDACTED]") {
		t.Fatalf("expected redaction, got %q", buf.String())
	}
}

func TestApplyConfigRejectsUnknownFormat(t *testing.T) {
	if _, err := ApplyConfig(&Config{Format: "xml"}); err == nil {
		t.Fatalf("expected error for unknown format")
	}
}

func TestSlogGroupsFlattenToDottedKeys(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(NewWriterOutput(&buf))).(*BaseLogger)
	sl := l.slogLogger.WithGroup("chunk").With("id", 3)
	sl.Info("sealed", slog.Group("items", slog.Int("count", 50)))

	var got map[string]any
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("decode %q: %v", buf.String(), err)
	}
	if got["chunk.id"].(float64) != 3 || got["chunk.items.count"].(float64) != 50 {
		t.Fatalf("unexpected entry: %v", got)
	}
}

func TestRedactionCoversAttachedFields(t *testing.T) {
	var buf bytes.Buffer
	l := NewLogger(WithOutput(NewWriterOutput(&buf))).(*BaseLogger)
	child := l.With(Str("full_seed", "the whole prompt"))
	bl := child.(*BaseLogger)
	bl.handler = bl.handler.withRedactions([]string{"full_seed"})
	bl.slogLogger = slog.New(bl.handler)

	child.Info("generated", Str("full_seed", "again"))
	if strings.Contains(buf.String(), "prompt") || strings.Contains(buf.String(), "again") {
		t.Fatalf("seed leaked: %q", buf.String())
	}
}

func TestSamplerKeepsInitialThenEveryNth(t *testing.T) {
	s := newSampler(2, 3)
	var kept []int
	for i := 0; i < 10; i++ {
		if s.allow(slog.LevelInfo, "chunk read") {
			kept = append(kept, i)
		}
	}
	want := []int{0, 1, 2, 5, 8}
	if len(kept) != len(want) {
		t.Fatalf("kept %v want %v", kept, want)
	}
	for i := range want {
		if kept[i] != want[i] {
			t.Fatalf("kept %v want %v", kept, want)
		}
	}
	if !s.allow(slog.LevelWarn, "chunk read") {
		t.Fatalf("levels are sampled independently")
	}
}
