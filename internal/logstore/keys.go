package logstore

import (
	"errors"
	"strconv"
	"strings"
)

// Keyspace helpers.
//
// Layout (per store prefix):
// - {prefix}/{session}/index
// - {prefix}/{session}/chunk/{chunkId}
//
// Session ids may not contain '/', so both the session and the chunk id are
// recoverable from any key.

const (
	sep         = "/"
	indexSuffix = "index"
	chunkSeg    = "chunk"
)

// DefaultPrefix namespaces all keys written by a Store.
const DefaultPrefix = "synth_logs"

// ErrInvalidSession is returned for empty session ids or ids containing '/'.
var ErrInvalidSession = errors.New("logstore: invalid session id")

// ValidateSession reports whether session can be embedded in a key.
func ValidateSession(session string) error {
	if session == "" || strings.Contains(session, sep) {
		return ErrInvalidSession
	}
	return nil
}

// KeySessionPrefix returns the prefix shared by every key of session.
func KeySessionPrefix(prefix, session string) string {
	return prefix + sep + session + sep
}

// KeyIndex builds the session index key.
func KeyIndex(prefix, session string) string {
	return KeySessionPrefix(prefix, session) + indexSuffix
}

// KeyChunk builds the key of chunk chunkID within session.
func KeyChunk(prefix, session string, chunkID int) string {
	return KeySessionPrefix(prefix, session) + chunkSeg + sep + strconv.Itoa(chunkID)
}

// KeyKind distinguishes parsed keys.
type KeyKind int

const (
	KeyKindUnknown KeyKind = iota
	KeyKindIndex
	KeyKindChunk
)

// ParsedKey is the decoded form of a store key.
type ParsedKey struct {
	Kind    KeyKind
	Session string
	ChunkID int
}

// ParseKey decodes key under prefix. ok is false for keys that do not belong
// to the layout.
func ParseKey(prefix, key string) (ParsedKey, bool) {
	rest, found := strings.CutPrefix(key, prefix+sep)
	if !found {
		return ParsedKey{}, false
	}
	session, tail, found := strings.Cut(rest, sep)
	if !found || session == "" {
		return ParsedKey{}, false
	}
	if tail == indexSuffix {
		return ParsedKey{Kind: KeyKindIndex, Session: session}, true
	}
	num, found := strings.CutPrefix(tail, chunkSeg+sep)
	if !found {
		return ParsedKey{}, false
	}
	id, err := strconv.Atoi(num)
	if err != nil || id < 0 || strconv.Itoa(id) != num {
		return ParsedKey{}, false
	}
	return ParsedKey{Kind: KeyKindChunk, Session: session, ChunkID: id}, true
}
