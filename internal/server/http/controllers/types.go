package controllers

import (
	"github.com/rzbill/synthlog/internal/logstore"
	sessionsvc "github.com/rzbill/synthlog/internal/services/sessions"
	"github.com/rzbill/synthlog/internal/synth"
)

// Common request/response types for HTTP controllers

// listSessionsResp lists session ids in ascending order.
type listSessionsResp struct {
	Sessions []string `json:"sessions"`
}

// createSessionResp carries a freshly generated session id.
type createSessionResp struct {
	Session string `json:"session"`
}

// countResp reports the number of records in a session.
type countResp struct {
	Session string `json:"session"`
	Total   int    `json:"total"`
}

// pageResp is one page of records, newest first.
type pageResp struct {
	Session  string         `json:"session"`
	Page     int            `json:"page"`
	PageSize int            `json:"pageSize"`
	Total    int            `json:"total"`
	Items    []synth.Record `json:"items"`
}

// searchResp lists filter matches, newest first.
type searchResp struct {
	Session string           `json:"session"`
	Hits    []sessionsvc.Hit `json:"hits"`
}

// repairResp wraps the reconciled index.
type repairResp struct {
	Session string `json:"session"`
	logstore.RepairResult
}
