package logstore

import (
	"context"
	"fmt"

	"github.com/rzbill/synthlog/internal/medium"
	logpkg "github.com/rzbill/synthlog/pkg/log"
)

// RepairResult reports what Repair found and wrote.
type RepairResult struct {
	Before  SessionIndex `json:"before"`
	After   SessionIndex `json:"after"`
	Changed bool         `json:"changed"`
}

// Repair reconciles session's index with the chunks actually stored.
//
// The highest stored chunk id becomes LastChunkID and every chunk below it is
// taken as sealed (C items), whether or not it is still readable; the total
// is lastChunk*C plus the decoded length of the last chunk. This recovers
// items left uncounted by an interrupted append and rebuilds an undecodable
// index without ever pointing appends at a chunk that already holds data.
// When no chunk exists the index is removed.
func (s *Store) Repair(ctx context.Context, session string) (RepairResult, error) {
	if err := ValidateSession(session); err != nil {
		return RepairResult{}, err
	}
	before, state := s.loadIndex(session)
	res := RepairResult{Before: before}

	last, err := s.lastStoredChunk(session)
	if err != nil {
		return res, err
	}
	var lastLen int
	if last >= 0 {
		items, _ := s.loadChunk(session, last)
		lastLen = min(len(items), s.size)
	}

	indexKey := KeyIndex(s.prefix, session)
	if last < 0 {
		if state == indexAbsent {
			return res, nil
		}
		if err := s.m.Remove(indexKey); err != nil {
			return res, err
		}
		res.Changed = true
		s.logger.Info("repair removed index without chunks", logpkg.Session(session))
		return res, nil
	}

	after := SessionIndex{TotalCount: last*s.size + lastLen, LastChunkID: last}
	res.After = after
	if state == indexPresent && after == before {
		return res, nil
	}
	val, err := encodeIndex(after)
	if err != nil {
		return res, err
	}
	if s.tx != nil {
		err = s.tx.Apply(ctx, []medium.Op{medium.SetOp(indexKey, val)})
	} else {
		err = s.m.Set(indexKey, val)
	}
	if err != nil {
		return res, fmt.Errorf("%w: %w", ErrNotPersisted, err)
	}
	res.Changed = true
	s.logger.Info("repair rewrote index",
		logpkg.Session(session),
		logpkg.Int("before_total", before.TotalCount),
		logpkg.Int("after_total", after.TotalCount),
		logpkg.Int("last_chunk", after.LastChunkID),
	)
	return res, nil
}

// lastStoredChunk returns the highest chunk id with a stored key, or -1.
func (s *Store) lastStoredChunk(session string) (int, error) {
	keys, err := s.m.Keys(KeySessionPrefix(s.prefix, session))
	if err != nil {
		return -1, err
	}
	last := -1
	for _, k := range keys {
		pk, ok := ParseKey(s.prefix, k)
		if !ok || pk.Kind != KeyKindChunk || pk.Session != session {
			continue
		}
		last = max(last, pk.ChunkID)
	}
	return last, nil
}
