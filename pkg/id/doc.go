// Package id provides identifiers for synthetic records and sessions.
//
// # Records
//
// Record ids are UUIDv7 strings: the leading 48 bits are the Unix millisecond
// timestamp, so ids created by one process compare in creation order. The
// generator serializes calls so the uuid package's per-millisecond sequence
// stays monotonic.
//
// # Sessions
//
// Session uids are 12 character nanoids over [0-9a-z]. They never contain
// '/', which keeps them safe to embed in store keys.
//
// Usage
//
//	g := id.NewGenerator()
//	rec := g.NewRecord()   // "0190f5b2-..."
//	sess := g.NewSession() // "k3v9q0x1m2ab"
package id
