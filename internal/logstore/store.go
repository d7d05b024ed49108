package logstore

import (
	"context"
	"errors"
	"fmt"
	"sort"

	"github.com/rzbill/synthlog/internal/medium"
	logpkg "github.com/rzbill/synthlog/pkg/log"
)

// DefaultChunkSize is the number of items per chunk.
const DefaultChunkSize = 50

var (
	// ErrNotPersisted wraps every write failure. The item or update was not
	// stored; the caller decides whether to surface or drop it.
	ErrNotPersisted = errors.New("logstore: not persisted")
	// ErrCorruptIndex is returned by Append when the session index exists but
	// cannot be decoded. Appending would otherwise overwrite sealed chunks.
	ErrCorruptIndex = errors.New("logstore: corrupt session index")
)

// Options configures a Store.
type Options struct {
	// ChunkSize is the capacity C of each chunk. Defaults to DefaultChunkSize.
	ChunkSize int
	// Prefix namespaces every key. Defaults to DefaultPrefix.
	Prefix string
	// Compression applies to chunk values written from now on.
	Compression Compression
	Logger      logpkg.Logger
	Metrics     MetricsHook
}

// MetricsHook observes degraded reads: missing or undecodable chunk data
// encountered while serving a request.
type MetricsHook interface {
	ObserveDegradedRead(reason string)
}

type noopMetrics struct{}

func (noopMetrics) ObserveDegradedRead(string) {}

const (
	reasonMissingChunk = "missing_chunk"
	reasonCorruptChunk = "corrupt_chunk"
	reasonShortChunk   = "short_chunk"
	reasonCorruptIndex = "corrupt_index"
)

// Store is the chunked append-only log for many sessions on one medium.
//
// Store holds no mutable state of its own and performs plain read-modify-write
// sequences. It assumes a single writer per session; callers with concurrent
// writers must serialize per session.
type Store struct {
	m       medium.Medium
	tx      medium.Transactional
	size    int
	prefix  string
	codec   chunkCodec
	logger  logpkg.Logger
	metrics MetricsHook
}

// New returns a Store over m.
func New(m medium.Medium, opts Options) *Store {
	if opts.ChunkSize <= 0 {
		opts.ChunkSize = DefaultChunkSize
	}
	if opts.Prefix == "" {
		opts.Prefix = DefaultPrefix
	}
	if opts.Compression == "" {
		opts.Compression = CompressionNone
	}
	if opts.Logger == nil {
		opts.Logger = logpkg.NewNopLogger()
	}
	if opts.Metrics == nil {
		opts.Metrics = noopMetrics{}
	}
	s := &Store{
		m:       m,
		size:    opts.ChunkSize,
		prefix:  opts.Prefix,
		codec:   chunkCodec{compression: opts.Compression},
		logger:  opts.Logger.WithComponent("logstore"),
		metrics: opts.Metrics,
	}
	if tx, ok := m.(medium.Transactional); ok {
		s.tx = tx
	}
	return s
}

// ChunkSize returns the configured chunk capacity.
func (s *Store) ChunkSize() int { return s.size }

// Transactional reports whether appends and clears commit atomically.
func (s *Store) Transactional() bool { return s.tx != nil }

// maxPagePrealloc bounds the slice capacity reserved up front by Page.
const maxPagePrealloc = 1024

type indexState int

const (
	indexAbsent indexState = iota
	indexPresent
	indexCorrupt
)

func (s *Store) loadIndex(session string) (SessionIndex, indexState) {
	b, err := s.m.Get(KeyIndex(s.prefix, session))
	if err != nil {
		if !errors.Is(err, medium.ErrNotFound) {
			s.logger.Warn("index read failed", logpkg.Session(session), logpkg.Err(err))
		}
		return SessionIndex{}, indexAbsent
	}
	idx, ok := decodeIndex(b)
	if !ok {
		s.metrics.ObserveDegradedRead(reasonCorruptIndex)
		s.logger.Warn("index undecodable", logpkg.Session(session), logpkg.Int("bytes", len(b)))
		return SessionIndex{}, indexCorrupt
	}
	// Chunks 0..LastChunkID hold at most (LastChunkID+1)*C items.
	if idx.TotalCount > 0 && (idx.TotalCount-1)/s.size > idx.LastChunkID {
		s.metrics.ObserveDegradedRead(reasonCorruptIndex)
		s.logger.Warn("index count exceeds chunk capacity", logpkg.Session(session),
			logpkg.Int("total", idx.TotalCount), logpkg.Int("last_chunk", idx.LastChunkID))
		return SessionIndex{}, indexCorrupt
	}
	return idx, indexPresent
}

// loadChunk returns the decoded chunk and whether a value was present.
// Undecodable values are reported as present but empty.
func (s *Store) loadChunk(session string, chunkID int) ([]Item, bool) {
	b, err := s.m.Get(KeyChunk(s.prefix, session, chunkID))
	if err != nil {
		if !errors.Is(err, medium.ErrNotFound) {
			s.logger.Warn("chunk read failed", logpkg.Session(session), logpkg.Int("chunk", chunkID), logpkg.Err(err))
		}
		return nil, false
	}
	items, ok := s.codec.decode(b)
	if !ok {
		s.metrics.ObserveDegradedRead(reasonCorruptChunk)
		s.logger.Warn("chunk undecodable", logpkg.Session(session), logpkg.Int("chunk", chunkID))
		return nil, true
	}
	return items, true
}

// Append adds item to the end of session's log.
//
// The chunk is written before the index. On a non-transactional medium an
// interruption between the two writes leaves the item stored in its chunk but
// outside TotalCount and Page until Repair reconciles the index. On a
// Transactional medium both writes commit together.
func (s *Store) Append(ctx context.Context, session string, item Item) error {
	if err := ValidateSession(session); err != nil {
		return err
	}
	idx, state := s.loadIndex(session)
	if state == indexCorrupt {
		return fmt.Errorf("%w: %w", ErrNotPersisted, ErrCorruptIndex)
	}

	chunk, _ := s.loadChunk(session, idx.LastChunkID)
	if len(chunk) >= s.size {
		idx.LastChunkID++
		chunk = []Item{item}
		s.logger.Debug("chunk opened", logpkg.Session(session), logpkg.Int("chunk", idx.LastChunkID))
	} else {
		chunk = append(chunk, item)
	}
	idx.TotalCount++

	chunkVal, err := s.codec.encode(chunk)
	if err != nil {
		return fmt.Errorf("%w: encode chunk: %w", ErrNotPersisted, err)
	}
	indexVal, err := encodeIndex(idx)
	if err != nil {
		return fmt.Errorf("%w: encode index: %w", ErrNotPersisted, err)
	}
	chunkKey := KeyChunk(s.prefix, session, idx.LastChunkID)
	indexKey := KeyIndex(s.prefix, session)

	if s.tx != nil {
		if err := s.tx.Apply(ctx, []medium.Op{medium.SetOp(chunkKey, chunkVal), medium.SetOp(indexKey, indexVal)}); err != nil {
			s.logger.Warn("append rejected", logpkg.Session(session), logpkg.Err(err))
			return fmt.Errorf("%w: %w", ErrNotPersisted, err)
		}
		return nil
	}
	if err := s.m.Set(chunkKey, chunkVal); err != nil {
		s.logger.Warn("append rejected", logpkg.Session(session), logpkg.Str("key", chunkKey), logpkg.Err(err))
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	if err := s.m.Set(indexKey, indexVal); err != nil {
		s.logger.Warn("append index write rejected; item stored but not counted",
			logpkg.Session(session), logpkg.Int("chunk", idx.LastChunkID), logpkg.Err(err))
		return fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	return nil
}

// Page returns up to pageSize items of the 1-based page, newest first.
// Out-of-range or invalid arguments yield an empty slice. Items whose chunk
// data is missing or undecodable are skipped.
func (s *Store) Page(session string, page, pageSize int) []Item {
	if ValidateSession(session) != nil || page < 1 || pageSize < 1 {
		return []Item{}
	}
	idx, state := s.loadIndex(session)
	if state != indexPresent || idx.TotalCount == 0 {
		return []Item{}
	}
	total := idx.TotalCount
	pages := total / pageSize
	if total%pageSize != 0 {
		pages++
	}
	if page-1 >= pages {
		return []Item{}
	}
	end := total - (page-1)*pageSize
	start := max(0, end-pageSize)

	out := make([]Item, 0, min(end-start, maxPagePrealloc))
	s.walk(session, start, end, NewestFirst, func(_ int, it Item) bool {
		out = append(out, it)
		return true
	})
	return out
}

// Order selects the direction of Scan.
type Order int

const (
	NewestFirst Order = iota
	OldestFirst
)

// Scan calls fn with every readable item of session and its ordinal, in the
// given order, until fn returns false. The walk is bounded by the TotalCount
// observed when Scan starts, so concurrent appends do not shift it. Missing or
// undecodable items are skipped as in Page.
func (s *Store) Scan(session string, order Order, fn func(ordinal int, item Item) bool) {
	if ValidateSession(session) != nil {
		return
	}
	idx, state := s.loadIndex(session)
	if state != indexPresent {
		return
	}
	s.walk(session, 0, idx.TotalCount, order, fn)
}

// walk visits ordinals [start, end), decoding each chunk once per run of
// consecutive ordinals that share it.
func (s *Store) walk(session string, start, end int, order Order, fn func(int, Item) bool) {
	cachedID := -1
	var cached []Item
	visit := func(k int) bool {
		chunkID, offset := k/s.size, k%s.size
		if chunkID != cachedID {
			var present bool
			cached, present = s.loadChunk(session, chunkID)
			cachedID = chunkID
			if !present {
				s.metrics.ObserveDegradedRead(reasonMissingChunk)
				s.logger.Debug("chunk missing", logpkg.Session(session), logpkg.Int("chunk", chunkID))
			}
		}
		if offset >= len(cached) {
			if len(cached) > 0 {
				s.metrics.ObserveDegradedRead(reasonShortChunk)
			}
			return true
		}
		return fn(k, cached[offset])
	}
	if order == NewestFirst {
		for k := end - 1; k >= start; k-- {
			if !visit(k) {
				return
			}
		}
		return
	}
	for k := start; k < end; k++ {
		if !visit(k) {
			return
		}
	}
}

// UpdateItem replaces the stored item whose ID equals item.ID. Chunks are
// scanned newest first and the scan stops at the first match. found is false
// when no item matches; nothing is written in that case.
func (s *Store) UpdateItem(ctx context.Context, session string, item Item) (bool, error) {
	if ValidateSession(session) != nil || item.ID == "" {
		return false, nil
	}
	idx, state := s.loadIndex(session)
	if state != indexPresent {
		return false, nil
	}
	for chunkID := idx.LastChunkID; chunkID >= 0; chunkID-- {
		chunk, _ := s.loadChunk(session, chunkID)
		for i := range chunk {
			if chunk[i].ID != item.ID {
				continue
			}
			chunk[i] = item
			val, err := s.codec.encode(chunk)
			if err != nil {
				return false, fmt.Errorf("%w: encode chunk: %w", ErrNotPersisted, err)
			}
			if err := s.m.Set(KeyChunk(s.prefix, session, chunkID), val); err != nil {
				s.logger.Warn("update rejected", logpkg.Session(session), logpkg.Str("id", item.ID), logpkg.Err(err))
				return false, fmt.Errorf("%w: %w", ErrNotPersisted, err)
			}
			return true, nil
		}
	}
	return false, nil
}

// TotalCount returns the number of items appended to session, or 0 when the
// session has never been written.
func (s *Store) TotalCount(session string) int {
	if ValidateSession(session) != nil {
		return 0
	}
	idx, state := s.loadIndex(session)
	if state != indexPresent {
		return 0
	}
	return idx.TotalCount
}

// Index returns the raw session index and whether one is stored and decodable.
func (s *Store) Index(session string) (SessionIndex, bool) {
	if ValidateSession(session) != nil {
		return SessionIndex{}, false
	}
	idx, state := s.loadIndex(session)
	return idx, state == indexPresent
}

// ClearSession removes every chunk of session and then its index. Calling it
// on an unknown or already cleared session is a no-op.
//
// The chunk after LastChunkID is removed too: an interrupted append that
// opened a new chunk leaves it behind.
func (s *Store) ClearSession(ctx context.Context, session string) error {
	if err := ValidateSession(session); err != nil {
		return err
	}
	idx, state := s.loadIndex(session)
	var keys []string
	switch state {
	case indexAbsent:
		return nil
	case indexCorrupt:
		// No trustworthy bound; sweep the session's key range.
		all, err := s.m.Keys(KeySessionPrefix(s.prefix, session))
		if err != nil {
			return err
		}
		for _, k := range all {
			if pk, ok := ParseKey(s.prefix, k); ok && pk.Kind == KeyKindChunk {
				keys = append(keys, k)
			}
		}
	default:
		for i := 0; i <= idx.LastChunkID+1; i++ {
			keys = append(keys, KeyChunk(s.prefix, session, i))
		}
	}
	keys = append(keys, KeyIndex(s.prefix, session))

	if s.tx != nil {
		ops := make([]medium.Op, len(keys))
		for i, k := range keys {
			ops[i] = medium.RemoveOp(k)
		}
		return s.tx.Apply(ctx, ops)
	}
	for _, k := range keys {
		if err := s.m.Remove(k); err != nil {
			return err
		}
	}
	return nil
}

// ListSessions returns the ids of all sessions that have an index record, in
// ascending order.
func (s *Store) ListSessions() ([]string, error) {
	keys, err := s.m.Keys(s.prefix + sep)
	if err != nil {
		return nil, err
	}
	seen := make(map[string]struct{})
	out := []string{}
	for _, k := range keys {
		pk, ok := ParseKey(s.prefix, k)
		if !ok || pk.Kind != KeyKindIndex {
			continue
		}
		if _, dup := seen[pk.Session]; dup {
			continue
		}
		seen[pk.Session] = struct{}{}
		out = append(out, pk.Session)
	}
	sort.Strings(out)
	return out, nil
}
