// Package pebblestore provides a thin wrapper around Pebble with fsync policy,
// batches and minimal metrics hooks, and adapts it to the medium contract used
// by the log store.
//
// Usage:
//
//	db, err := pebblestore.Open(pebblestore.Options{
//	    DataDir: "./data",
//	    Fsync:   pebblestore.FsyncModeInterval,
//	})
//	if err != nil { /* handle */ }
//	defer db.Close()
//
//	m := pebblestore.NewMedium(db)
//	_ = m.Set("synth_logs/s1/index", []byte(`{"totalCount":0,"lastChunkId":0}`))
//
//	// Atomic multi-key updates
//	_ = m.Apply(ctx, []medium.Op{medium.SetOp("a", []byte("1")), medium.RemoveOp("b")})
package pebblestore
