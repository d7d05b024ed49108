package synth

import (
	"encoding/json"
	"errors"
	"strings"
	"testing"
	"time"

	"github.com/rzbill/synthlog/internal/logstore"
)

func TestPrepareFillsDefaults(t *testing.T) {
	now := time.Date(2026, 3, 1, 12, 30, 0, 5_000_000, time.UTC)
	r := Record{FullSeed: strings.Repeat("é", SeedPreviewLen+10)}
	r.Prepare("sess1", now)
	if r.ID == "" || r.SessionUID != "sess1" {
		t.Fatalf("id/session not filled: %+v", r)
	}
	if r.Timestamp != "2026-03-01T12:30:00.005Z" {
		t.Fatalf("timestamp %q", r.Timestamp)
	}
	if n := len([]rune(r.SeedPreview)); n != SeedPreviewLen {
		t.Fatalf("preview runes %d", n)
	}

	kept := Record{ID: "x", SessionUID: "other", Timestamp: "t", SeedPreview: "p", FullSeed: "long seed"}
	kept.Prepare("sess1", now)
	if kept.ID != "x" || kept.SessionUID != "other" || kept.Timestamp != "t" || kept.SeedPreview != "p" {
		t.Fatalf("existing fields overwritten: %+v", kept)
	}
}

func TestItemConversion(t *testing.T) {
	r := Record{
		ID:           "r1",
		SessionUID:   "s",
		Query:        "q",
		Answer:       "a",
		Duration:     1200,
		TokenCount:   42,
		DeepMetadata: json.RawMessage(`{"stage":"writer"}`),
	}
	it, err := r.ToItem()
	if err != nil {
		t.Fatalf("to item: %v", err)
	}
	if it.ID != "r1" || !strings.Contains(string(it.Data), `"tokenCount":42`) {
		t.Fatalf("item %s %s", it.ID, it.Data)
	}
	it.ID = "renamed"
	got, err := FromItem(it)
	if err != nil {
		t.Fatalf("from item: %v", err)
	}
	if got.ID != "renamed" || got.Answer != "a" || string(got.DeepMetadata) != `{"stage":"writer"}` {
		t.Fatalf("decoded %+v", got)
	}
}

func TestConversionErrors(t *testing.T) {
	if _, err := (Record{}).ToItem(); err == nil {
		t.Fatalf("expected error for missing id")
	}
	if _, err := FromItem(logstore.Item{ID: "a"}); !errors.Is(err, ErrNoData) {
		t.Fatalf("want ErrNoData, got %v", err)
	}
	if _, err := FromItem(logstore.Item{ID: "a", Data: json.RawMessage(`[1]`)}); err == nil {
		t.Fatalf("expected decode error")
	}
}
