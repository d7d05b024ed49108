package sessionsvc

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/rzbill/synthlog/internal/logstore"
	"github.com/rzbill/synthlog/internal/metrics"
	"github.com/rzbill/synthlog/internal/runtime"
	"github.com/rzbill/synthlog/internal/synth"
	"github.com/rzbill/synthlog/pkg/id"
	logpkg "github.com/rzbill/synthlog/pkg/log"
)

var (
	// ErrInvalidArgument marks malformed requests: missing record id or an
	// uncompilable filter.
	ErrInvalidArgument = errors.New("sessions: invalid argument")
	// ErrNotFound is returned by Update when no record has the given id.
	ErrNotFound = errors.New("sessions: record not found")
)

// Hit is one search match.
type Hit struct {
	Ordinal int          `json:"ordinal"`
	Record  synth.Record `json:"record"`
}

// Service is the session-level facade over the chunked log store used by the
// HTTP transport and the CLI. Writes to one session are serialized; reads are
// not.
type Service struct {
	rt      *runtime.Runtime
	store   *logstore.Store
	logger  logpkg.Logger
	metrics *metrics.Metrics
	locks   *keyedLocks
	listing singleflight.Group
	now     func() time.Time

	defaultPageSize int
	maxPageSize     int
}

// New returns a Service using a default logger.
func New(rt *runtime.Runtime) *Service {
	return NewWithLogger(rt, nil)
}

// NewWithLogger returns a Service using the provided logger.
func NewWithLogger(rt *runtime.Runtime, logger logpkg.Logger) *Service {
	if logger == nil {
		logger = logpkg.NewLogger()
	}
	cfg := rt.Config()
	return &Service{
		rt:              rt,
		store:           rt.Store(),
		logger:          logger.With(logpkg.Component("sessions")),
		metrics:         rt.Metrics(),
		locks:           newKeyedLocks(),
		now:             time.Now,
		defaultPageSize: cfg.DefaultPageSize,
		maxPageSize:     cfg.MaxPageSize,
	}
}

// NewSessionID returns a fresh session uid.
func (s *Service) NewSessionID() string { return id.NewSession() }

// Append stores rec at the end of session. Missing id, session uid, timestamp
// and seed preview are filled in; the stored record is returned.
func (s *Service) Append(ctx context.Context, session string, rec synth.Record) (synth.Record, error) {
	if err := logstore.ValidateSession(session); err != nil {
		return synth.Record{}, err
	}
	start := time.Now()
	rec.Prepare(session, s.now())
	it, err := rec.ToItem()
	if err != nil {
		return synth.Record{}, fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	unlock := s.locks.lock(session)
	err = s.store.Append(ctx, session, it)
	unlock()

	s.observe("append", start)
	if err != nil {
		s.countAppend(metrics.ResultNotPersisted)
		s.logger.Warn("append failed", logpkg.Session(session), logpkg.Str("id", rec.ID), logpkg.Err(err))
		return synth.Record{}, err
	}
	s.countAppend(metrics.ResultOK)
	s.logger.Debug("appended", logpkg.Session(session), logpkg.Str("id", rec.ID), logpkg.Int("bytes", len(it.Data)))
	return rec, nil
}

// Page returns the records of a 1-based page, newest first. pageSize 0 selects
// the configured default and larger values are capped at the configured
// maximum. Items that do not decode as records are skipped.
func (s *Service) Page(ctx context.Context, session string, page, pageSize int) ([]synth.Record, error) {
	if err := logstore.ValidateSession(session); err != nil {
		return nil, err
	}
	start := time.Now()
	items := s.store.Page(session, page, s.pageSize(pageSize))
	out := make([]synth.Record, 0, len(items))
	for _, it := range items {
		rec, err := synth.FromItem(it)
		if err != nil {
			s.logger.Debug("skipping undecodable record", logpkg.Session(session), logpkg.Str("id", it.ID), logpkg.Err(err))
			continue
		}
		out = append(out, rec)
	}
	s.observe("page", start)
	if s.metrics != nil {
		s.metrics.PageReadsTotal.Inc()
	}
	return out, nil
}

// Update replaces the stored record with rec.ID.
func (s *Service) Update(ctx context.Context, session string, rec synth.Record) error {
	if err := logstore.ValidateSession(session); err != nil {
		return err
	}
	if rec.ID == "" {
		return fmt.Errorf("%w: record id is required", ErrInvalidArgument)
	}
	start := time.Now()
	rec.Prepare(session, s.now())
	it, err := rec.ToItem()
	if err != nil {
		return fmt.Errorf("%w: %w", ErrInvalidArgument, err)
	}

	unlock := s.locks.lock(session)
	found, err := s.store.UpdateItem(ctx, session, it)
	unlock()

	s.observe("update", start)
	switch {
	case err != nil:
		s.countUpdate(metrics.ResultNotPersisted)
		s.logger.Warn("update failed", logpkg.Session(session), logpkg.Str("id", rec.ID), logpkg.Err(err))
		return err
	case !found:
		s.countUpdate(metrics.ResultNotFound)
		return fmt.Errorf("%w: %s", ErrNotFound, rec.ID)
	}
	s.countUpdate(metrics.ResultOK)
	s.logger.Debug("updated", logpkg.Session(session), logpkg.Str("id", rec.ID))
	return nil
}

// Count returns the number of records appended to session.
func (s *Service) Count(ctx context.Context, session string) (int, error) {
	if err := logstore.ValidateSession(session); err != nil {
		return 0, err
	}
	return s.store.TotalCount(session), nil
}

// Clear removes every record of session.
func (s *Service) Clear(ctx context.Context, session string) error {
	if err := logstore.ValidateSession(session); err != nil {
		return err
	}
	start := time.Now()
	unlock := s.locks.lock(session)
	total := s.store.TotalCount(session)
	err := s.store.ClearSession(ctx, session)
	unlock()

	s.observe("clear", start)
	if err != nil {
		s.logger.Error("clear failed", logpkg.Session(session), logpkg.Err(err))
		return err
	}
	if s.metrics != nil {
		s.metrics.ClearsTotal.Inc()
	}
	s.logger.Info("session cleared", logpkg.Session(session), logpkg.Int("records", total))
	return nil
}

// List returns all session ids in ascending order. Concurrent callers share
// one key scan.
func (s *Service) List(ctx context.Context) ([]string, error) {
	v, err, _ := s.listing.Do("sessions", func() (any, error) {
		return s.store.ListSessions()
	})
	if err != nil {
		return nil, err
	}
	shared := v.([]string)
	out := make([]string, len(shared))
	copy(out, shared)
	return out, nil
}

// Repair reconciles the session index with its stored chunks.
func (s *Service) Repair(ctx context.Context, session string) (logstore.RepairResult, error) {
	if err := logstore.ValidateSession(session); err != nil {
		return logstore.RepairResult{}, err
	}
	start := time.Now()
	unlock := s.locks.lock(session)
	res, err := s.store.Repair(ctx, session)
	unlock()

	s.observe("repair", start)
	if err != nil {
		s.logger.Error("repair failed", logpkg.Session(session), logpkg.Err(err))
		return res, err
	}
	if s.metrics != nil {
		s.metrics.RepairsTotal.WithLabelValues(fmt.Sprint(res.Changed)).Inc()
	}
	return res, nil
}

// Search returns up to limit records of session, newest first, for which the
// CEL expression evaluates to true. The expression sees id, ordinal, size,
// text (raw JSON), json (parsed record) and now_ms. An empty expression
// matches everything.
func (s *Service) Search(ctx context.Context, session, expr string, limit int) ([]Hit, error) {
	if err := logstore.ValidateSession(session); err != nil {
		return nil, err
	}
	filter, err := newCELFilter(expr)
	if err != nil {
		return nil, fmt.Errorf("%w: filter: %w", ErrInvalidArgument, err)
	}
	limit = s.pageSize(limit)
	start := time.Now()

	hits := []Hit{}
	var scanErr error
	s.store.Scan(session, logstore.NewestFirst, func(ordinal int, it logstore.Item) bool {
		if err := ctx.Err(); err != nil {
			scanErr = err
			return false
		}
		if !filter.Eval(it.ID, ordinal, it.Data) {
			return true
		}
		rec, err := synth.FromItem(it)
		if err != nil {
			return true
		}
		hits = append(hits, Hit{Ordinal: ordinal, Record: rec})
		return len(hits) < limit
	})
	s.observe("search", start)
	if scanErr != nil {
		return nil, scanErr
	}
	return hits, nil
}

// Export writes session as JSON Lines, oldest first, one record per line, and
// returns the number of lines written.
func (s *Service) Export(ctx context.Context, session string, w io.Writer) (int, error) {
	if err := logstore.ValidateSession(session); err != nil {
		return 0, err
	}
	start := time.Now()
	bw := bufio.NewWriter(w)
	var (
		n       int
		line    bytes.Buffer
		scanErr error
	)
	s.store.Scan(session, logstore.OldestFirst, func(_ int, it logstore.Item) bool {
		if err := ctx.Err(); err != nil {
			scanErr = err
			return false
		}
		if len(it.Data) == 0 {
			return true
		}
		line.Reset()
		if err := json.Compact(&line, it.Data); err != nil {
			s.logger.Debug("skipping undecodable record", logpkg.Session(session), logpkg.Str("id", it.ID))
			return true
		}
		line.WriteByte('\n')
		if _, err := bw.Write(line.Bytes()); err != nil {
			scanErr = err
			return false
		}
		n++
		return true
	})
	if scanErr == nil {
		scanErr = bw.Flush()
	}
	s.observe("export", start)
	if scanErr != nil {
		return n, scanErr
	}
	s.logger.Info("session exported", logpkg.Session(session), logpkg.Int("records", n))
	return n, nil
}

func (s *Service) pageSize(n int) int {
	if n <= 0 {
		return s.defaultPageSize
	}
	if n > s.maxPageSize {
		return s.maxPageSize
	}
	return n
}

func (s *Service) observe(op string, start time.Time) {
	if s.metrics != nil {
		s.metrics.ObserveOp(op, time.Since(start))
	}
}

func (s *Service) countAppend(result string) {
	if s.metrics != nil {
		s.metrics.AppendsTotal.WithLabelValues(result).Inc()
	}
}

func (s *Service) countUpdate(result string) {
	if s.metrics != nil {
		s.metrics.UpdatesTotal.WithLabelValues(result).Inc()
	}
}
