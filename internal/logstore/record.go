package logstore

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
	"sync"

	"github.com/klauspost/compress/zstd"
)

// Item is a single log entry. The store only inspects ID; Data is carried
// verbatim.
type Item struct {
	ID   string          `json:"id"`
	Data json.RawMessage `json:"data,omitempty"`
}

// SessionIndex is the per-session metadata record.
type SessionIndex struct {
	TotalCount  int `json:"totalCount"`
	LastChunkID int `json:"lastChunkId"`
}

func encodeIndex(idx SessionIndex) ([]byte, error) {
	return json.Marshal(idx)
}

func decodeIndex(b []byte) (SessionIndex, bool) {
	var idx SessionIndex
	if err := json.Unmarshal(b, &idx); err != nil {
		return SessionIndex{}, false
	}
	if idx.TotalCount < 0 || idx.LastChunkID < 0 {
		return SessionIndex{}, false
	}
	return idx, true
}

// Compression selects how chunk values are encoded.
type Compression string

const (
	CompressionNone Compression = "none"
	CompressionZstd Compression = "zstd"
)

// ParseCompression maps a config spelling onto a Compression.
func ParseCompression(s string) (Compression, error) {
	switch Compression(strings.ToLower(s)) {
	case "", CompressionNone:
		return CompressionNone, nil
	case CompressionZstd:
		return CompressionZstd, nil
	default:
		return "", fmt.Errorf("logstore: unknown compression %q", s)
	}
}

// zstdMagic is the frame magic number of RFC 8878. A JSON chunk always starts
// with '[' so the two encodings cannot be confused.
var zstdMagic = []byte{0x28, 0xb5, 0x2f, 0xfd}

var (
	zstdOnce sync.Once
	zstdEnc  *zstd.Encoder
	zstdDec  *zstd.Decoder
	zstdErr  error
)

func zstdCodecs() (*zstd.Encoder, *zstd.Decoder, error) {
	zstdOnce.Do(func() {
		zstdEnc, zstdErr = zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedDefault))
		if zstdErr != nil {
			return
		}
		zstdDec, zstdErr = zstd.NewReader(nil, zstd.WithDecoderConcurrency(0))
	})
	return zstdEnc, zstdDec, zstdErr
}

// chunkCodec serializes chunks. Decoding detects the encoding from the value,
// so a store can switch compression without rewriting existing chunks.
type chunkCodec struct {
	compression Compression
}

func (c chunkCodec) encode(items []Item) ([]byte, error) {
	raw, err := json.Marshal(items)
	if err != nil {
		return nil, err
	}
	if c.compression != CompressionZstd {
		return raw, nil
	}
	enc, _, err := zstdCodecs()
	if err != nil {
		return nil, err
	}
	return enc.EncodeAll(raw, make([]byte, 0, len(raw)/2)), nil
}

func (c chunkCodec) decode(b []byte) ([]Item, bool) {
	if bytes.HasPrefix(b, zstdMagic) {
		_, dec, err := zstdCodecs()
		if err != nil {
			return nil, false
		}
		raw, err := dec.DecodeAll(b, nil)
		if err != nil {
			return nil, false
		}
		b = raw
	}
	var items []Item
	if err := json.Unmarshal(b, &items); err != nil {
		return nil, false
	}
	return items, true
}
