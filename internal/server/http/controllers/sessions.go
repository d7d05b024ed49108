package controllers

import (
	"encoding/json"
	"fmt"
	"net/http"

	sessionsvc "github.com/rzbill/synthlog/internal/services/sessions"
	"github.com/rzbill/synthlog/internal/synth"
	logpkg "github.com/rzbill/synthlog/pkg/log"
)

// SessionsController exposes the session log over HTTP: append, paged reads,
// update by id, clear, listing, search, export and repair.
type SessionsController struct {
	svc    *sessionsvc.Service
	logger logpkg.Logger
}

// NewSessionsController creates a new sessions controller.
func NewSessionsController(svc *sessionsvc.Service, logger logpkg.Logger) *SessionsController {
	if logger == nil {
		logger = logpkg.NewNopLogger()
	}
	return &SessionsController{svc: svc, logger: logger.With(logpkg.Component("http.sessions"))}
}

// RegisterRoutes registers all session routes with the given mux.
func (c *SessionsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /v1/sessions", c.handleList)
	mux.HandleFunc("POST /v1/sessions", c.handleCreate)
	mux.HandleFunc("DELETE /v1/sessions/{session}", c.handleClear)

	mux.HandleFunc("GET /v1/sessions/{session}/count", c.handleCount)
	mux.HandleFunc("GET /v1/sessions/{session}/items", c.handlePage)
	mux.HandleFunc("POST /v1/sessions/{session}/items", c.handleAppend)
	mux.HandleFunc("PUT /v1/sessions/{session}/items/{id}", c.handleUpdate)

	mux.HandleFunc("GET /v1/sessions/{session}/search", c.handleSearch)
	mux.HandleFunc("GET /v1/sessions/{session}/export", c.handleExport)
	mux.HandleFunc("POST /v1/sessions/{session}/repair", c.handleRepair)
}

// handleList returns every session id.
func (c *SessionsController) handleList(w http.ResponseWriter, r *http.Request) {
	list, err := c.svc.List(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list sessions")
		return
	}
	writeJSON(w, listSessionsResp{Sessions: list})
}

// handleCreate mints a session id. Nothing is stored until the first append.
func (c *SessionsController) handleCreate(w http.ResponseWriter, r *http.Request) {
	writeJSONStatus(w, http.StatusCreated, createSessionResp{Session: c.svc.NewSessionID()})
}

func (c *SessionsController) handleCount(w http.ResponseWriter, r *http.Request) {
	session := r.PathValue("session")
	n, err := c.svc.Count(r.Context(), session)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, countResp{Session: session, Total: n})
}

// handlePage returns ?page= (1-based, default 1) of ?pageSize= records,
// newest first. Out-of-range pages return an empty list.
func (c *SessionsController) handlePage(w http.ResponseWriter, r *http.Request) {
	session := r.PathValue("session")
	page, err := parseIntParam(r, "page", 1)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	pageSize, err := parseIntParam(r, "pageSize", 0)
	if err != nil {
		writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	items, err := c.svc.Page(r.Context(), session, page, pageSize)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	total, err := c.svc.Count(r.Context(), session)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, pageResp{Session: session, Page: page, PageSize: pageSize, Total: total, Items: items})
}

// handleAppend stores the record in the body. Returns 201 with the stored
// record, or 507 when the medium rejected the write.
func (c *SessionsController) handleAppend(w http.ResponseWriter, r *http.Request) {
	session := r.PathValue("session")
	var rec synth.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	stored, err := c.svc.Append(r.Context(), session, rec)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSONStatus(w, http.StatusCreated, stored)
}

// handleUpdate replaces the record with the path id.
func (c *SessionsController) handleUpdate(w http.ResponseWriter, r *http.Request) {
	session, id := r.PathValue("session"), r.PathValue("id")
	var rec synth.Record
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxBodyBytes)).Decode(&rec); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if rec.ID != "" && rec.ID != id {
		writeError(w, http.StatusBadRequest, fmt.Sprintf("body id %q does not match path id %q", rec.ID, id))
		return
	}
	rec.ID = id
	if err := c.svc.Update(r.Context(), session, rec); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeNoContent(w)
}

func (c *SessionsController) handleClear(w http.ResponseWriter, r *http.Request) {
	if err := c.svc.Clear(r.Context(), r.PathValue("session")); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeNoContent(w)
}

// handleSearch evaluates ?filter= (CEL) against the session, newest first,
// returning at most ?limit= hits.
func (c *SessionsController) handleSearch(w http.ResponseWriter, r *http.Request) {
	session := r.PathValue("session")
	q := r.URL.Query()
	hits, err := c.svc.Search(r.Context(), session, q.Get("filter"), parseLimit(q.Get("limit")))
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, searchResp{Session: session, Hits: hits})
}

// handleExport streams the session as JSON Lines, oldest first.
func (c *SessionsController) handleExport(w http.ResponseWriter, r *http.Request) {
	session := r.PathValue("session")
	if _, err := c.svc.Count(r.Context(), session); err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	w.Header().Set("Content-Type", "application/x-ndjson")
	w.Header().Set("Content-Disposition", fmt.Sprintf("attachment; filename=%q", session+".jsonl"))
	n, err := c.svc.Export(r.Context(), session, w)
	if err != nil {
		// Headers are already sent.
		c.logger.Warn("export aborted", logpkg.Session(session), logpkg.Int("records", n), logpkg.Err(err))
	}
}

func (c *SessionsController) handleRepair(w http.ResponseWriter, r *http.Request) {
	session := r.PathValue("session")
	res, err := c.svc.Repair(r.Context(), session)
	if err != nil {
		writeError(w, statusForError(err), err.Error())
		return
	}
	writeJSON(w, repairResp{Session: session, RepairResult: res})
}
