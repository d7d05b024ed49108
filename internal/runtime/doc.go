// Package runtime wires storage, config and the chunked log store into a
// single-node synthlog instance. It exposes Open/Close, a health check and
// accessors used by higher-level services.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	_ = rt.CheckHealth(context.Background())
//	_ = rt.Store().Append(ctx, "session-1", logstore.Item{ID: "a", Data: []byte(`{}`)})
package runtime
