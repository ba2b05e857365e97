// Package runtime wires storage, config, and facades into a single-node
// Cleave instance. It exposes Open/Close, basic health checks, per-namespace
// record stores and result feeds, and the background retention sweeper for
// result feeds.
//
// Example:
//
//	cfg := config.Default()
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: cfg})
//	defer rt.Close()
//	// Health
//	_ = rt.CheckHealth(context.Background())
//	// Work with records
//	store := rt.Records("default")
//	_, _ = store.Create(context.Background(), "r1", record.Props{Text: "hello"})
package runtime
