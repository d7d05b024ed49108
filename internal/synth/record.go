package synth

import (
	"encoding/json"
	"errors"
	"fmt"
	"time"
	"unicode/utf8"

	"github.com/rzbill/synthlog/internal/logstore"
	"github.com/rzbill/synthlog/pkg/id"
)

// SeedPreviewLen is the number of runes of the seed kept in SeedPreview.
const SeedPreviewLen = 150

// ErrNoData is returned by FromItem when the item carries no record payload.
var ErrNoData = errors.New("synth: item has no data")

// Record is one generated sample: the seed it came from, the model's query,
// reasoning and answer, plus generation bookkeeping.
type Record struct {
	ID          string `json:"id"`
	SessionUID  string `json:"sessionUid,omitempty"`
	SeedPreview string `json:"seed_preview,omitempty"`
	FullSeed    string `json:"full_seed,omitempty"`
	Query       string `json:"query,omitempty"`
	Reasoning   string `json:"reasoning,omitempty"`
	Answer      string `json:"answer,omitempty"`
	// Timestamp is RFC 3339 with millisecond precision.
	Timestamp string `json:"timestamp,omitempty"`
	// Duration is the generation wall time in milliseconds.
	Duration   int64  `json:"duration,omitempty"`
	TokenCount int    `json:"tokenCount,omitempty"`
	ModelUsed  string `json:"modelUsed,omitempty"`
	IsError    bool   `json:"isError,omitempty"`
	Error      string `json:"error,omitempty"`
	// DeepMetadata and DeepTrace are produced by multi-stage pipelines and
	// kept opaque.
	DeepMetadata json.RawMessage `json:"deepMetadata,omitempty"`
	DeepTrace    json.RawMessage `json:"deepTrace,omitempty"`
}

// Prepare fills the fields a producer may omit: ID, SessionUID (from
// session), Timestamp (from now) and SeedPreview (from FullSeed).
func (r *Record) Prepare(session string, now time.Time) {
	if r.ID == "" {
		r.ID = id.NewRecord()
	}
	if r.SessionUID == "" {
		r.SessionUID = session
	}
	if r.Timestamp == "" {
		r.Timestamp = now.UTC().Format("2006-01-02T15:04:05.000Z07:00")
	}
	if r.SeedPreview == "" && r.FullSeed != "" {
		r.SeedPreview = Preview(r.FullSeed, SeedPreviewLen)
	}
}

// Preview truncates s to at most n runes.
func Preview(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n])
}

// ToItem wraps the record as a store item. The record must have an ID.
func (r Record) ToItem() (logstore.Item, error) {
	if r.ID == "" {
		return logstore.Item{}, errors.New("synth: record has no id")
	}
	b, err := json.Marshal(r)
	if err != nil {
		return logstore.Item{}, fmt.Errorf("synth: encode record: %w", err)
	}
	return logstore.Item{ID: r.ID, Data: b}, nil
}

// FromItem decodes the record carried by it. The item ID wins over any id
// embedded in the payload.
func FromItem(it logstore.Item) (Record, error) {
	if len(it.Data) == 0 || string(it.Data) == "null" {
		return Record{}, ErrNoData
	}
	var r Record
	if err := json.Unmarshal(it.Data, &r); err != nil {
		return Record{}, fmt.Errorf("synth: decode record %s: %w", it.ID, err)
	}
	r.ID = it.ID
	return r, nil
}
