package pebblestore

import (
	"context"
	"errors"
	"fmt"

	"github.com/cockroachdb/pebble"
	"github.com/rzbill/synthlog/internal/medium"
)

// Medium exposes a DB through the medium.Medium and medium.Transactional
// contracts. Keys are stored as their UTF-8 bytes.
type Medium struct {
	db *DB
}

var (
	_ medium.Medium        = (*Medium)(nil)
	_ medium.Transactional = (*Medium)(nil)
)

// NewMedium wraps db.
func NewMedium(db *DB) *Medium { return &Medium{db: db} }

func (m *Medium) Get(key string) ([]byte, error) {
	v, err := m.db.Get([]byte(key))
	if err != nil {
		if errors.Is(err, pebble.ErrNotFound) {
			return nil, medium.ErrNotFound
		}
		return nil, err
	}
	return v, nil
}

func (m *Medium) Set(key string, value []byte) error {
	return m.db.Set([]byte(key), value)
}

func (m *Medium) Remove(key string) error {
	return m.db.Delete([]byte(key))
}

func (m *Medium) Keys(prefix string) ([]string, error) {
	lower := []byte(prefix)
	iter, err := m.db.NewIter(&pebble.IterOptions{LowerBound: lower, UpperBound: prefixUpperBound(lower)})
	if err != nil {
		return nil, err
	}
	defer iter.Close()
	var out []string
	for ok := iter.First(); ok; ok = iter.Next() {
		out = append(out, string(iter.Key()))
	}
	return out, iter.Error()
}

// Apply commits ops in a single Pebble batch.
func (m *Medium) Apply(ctx context.Context, ops []medium.Op) error {
	if len(ops) == 0 {
		return nil
	}
	b := m.db.NewBatch()
	defer b.Close()
	for _, op := range ops {
		var err error
		switch op.Kind {
		case medium.OpSet:
			err = b.Set([]byte(op.Key), op.Value, nil)
		case medium.OpRemove:
			err = b.Delete([]byte(op.Key), nil)
		default:
			err = fmt.Errorf("pebble: unknown op kind %d", op.Kind)
		}
		if err != nil {
			return err
		}
	}
	return m.db.CommitBatch(ctx, b)
}
