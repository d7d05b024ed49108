package medium

import (
	"context"
	"errors"
)

var (
	// ErrNotFound is returned by Get when the key is absent.
	ErrNotFound = errors.New("medium: key not found")
	// ErrQuotaExceeded is returned by Set when the write would exceed the
	// medium's capacity. The previous value, if any, is left intact.
	ErrQuotaExceeded = errors.New("medium: quota exceeded")
)

// Medium is a flat string-keyed store with key-granular atomicity.
type Medium interface {
	// Get returns a copy of the value for key, or ErrNotFound.
	Get(key string) ([]byte, error)
	// Set writes value under key. It may fail, e.g. with ErrQuotaExceeded.
	Set(key string, value []byte) error
	// Remove deletes key. Removing an absent key is not an error.
	Remove(key string) error
	// Keys lists keys starting with prefix in ascending byte order.
	Keys(prefix string) ([]string, error)
}

// OpKind selects the mutation an Op performs.
type OpKind int

const (
	OpSet OpKind = iota
	OpRemove
)

// Op is a single mutation in a Transactional apply.
type Op struct {
	Kind  OpKind
	Key   string
	Value []byte
}

// SetOp builds a set mutation.
func SetOp(key string, value []byte) Op { return Op{Kind: OpSet, Key: key, Value: value} }

// RemoveOp builds a remove mutation.
func RemoveOp(key string) Op { return Op{Kind: OpRemove, Key: key} }

// Transactional is implemented by media that can apply several mutations
// atomically: either every op is visible afterwards or none is.
type Transactional interface {
	Apply(ctx context.Context, ops []Op) error
}
