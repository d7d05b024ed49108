// Package logstore implements the chunked append-only log that stores each
// session's generated records on a key/value medium.
//
// # Overview
//
// Items are appended to fixed-capacity chunks. A small index per session
// tracks the total count and the id of the open chunk:
//   - synth_logs/{session}/index           ({"totalCount":N,"lastChunkId":L})
//   - synth_logs/{session}/chunk/{chunkId} (JSON array of items, optionally zstd)
//
// The item with 0-based append ordinal k lives in chunk k/C at offset k%C.
// Chunks below L are sealed and hold exactly C items; chunk L holds
// N - L*C items.
//
// API surface
//
//	st := logstore.New(m, logstore.Options{ChunkSize: 50})
//	_ = st.Append(ctx, "s1", logstore.Item{ID: "a", Data: raw})
//	items := st.Page("s1", 1, 20)          // newest first
//	found, _ := st.UpdateItem(ctx, "s1", patched)
//	n := st.TotalCount("s1")
//	_ = st.ClearSession(ctx, "s1")
//	sessions, _ := st.ListSessions()
//
// # Consistency
//
// Append writes the chunk and then the index. On a medium with only
// key-granular atomicity an interruption between the two leaves the item
// stored but uncounted; Repair reconciles the index with the chunks. When the
// medium implements medium.Transactional both writes, and the removals of
// ClearSession, commit as one.
//
// Reads never fail: missing chunks, undecodable values and out-of-range pages
// degrade to fewer or no items.
package logstore
