package transports

import (
	"context"
	"io"

	"github.com/rzbill/synthlog/internal/synth"
)

// Page is one page of records, newest first.
type Page struct {
	Session  string         `json:"session"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
	Total    int            `json:"total"`
	Items    []synth.Record `json:"items"`
}

// Hit is one search match with its ordinal in the session.
type Hit struct {
	Ordinal int          `json:"ordinal"`
	Record  synth.Record `json:"record"`
}

// Index mirrors the stored session index.
type Index struct {
	TotalCount  int `json:"totalCount"`
	LastChunkID int `json:"lastChunkId"`
}

// RepairResult reports the index before and after a repair pass.
type RepairResult struct {
	Session string `json:"session"`
	Before  Index  `json:"before"`
	After   Index  `json:"after"`
	Changed bool   `json:"changed"`
}

// SessionsTransport abstracts the transport used by the CLI.
type SessionsTransport interface {
	List(ctx context.Context) ([]string, error)
	NewSession(ctx context.Context) (string, error)
	Count(ctx context.Context, session string) (int, error)
	Page(ctx context.Context, session string, page, pageSize int) (Page, error)
	Append(ctx context.Context, session string, rec synth.Record) (synth.Record, error)
	Update(ctx context.Context, session, id string, rec synth.Record) error
	Clear(ctx context.Context, session string) error
	Search(ctx context.Context, session, filter string, limit int) ([]Hit, error)
	Export(ctx context.Context, session string, w io.Writer) error
	Repair(ctx context.Context, session string) (RepairResult, error)
}
