// Package grpcserver hosts the gRPC server for Cleave, registering the
// standard grpc_health_v1 health service backed by the runtime's storage
// probe. The functional record and step API is served over HTTP.
//
// Example:
//
//	rt, _ := runtime.Open(runtime.Options{DataDir: "./data", Fsync: pebblestore.FsyncModeAlways, Config: config.Default()})
//	s := grpcserver.New(rt, nil)
//	ctx, cancel := context.WithCancel(context.Background())
//	defer cancel()
//	_ = s.ListenAndServe(ctx, ":50051")
package grpcserver
