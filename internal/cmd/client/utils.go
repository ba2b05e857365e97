package client

import (
	"context"
	"os"

	transports "github.com/rzbill/cleave/internal/cmd/client/transports"
	"google.golang.org/grpc"
	"google.golang.org/grpc/credentials/insecure"
)

// grpcAddrFromEnv returns the gRPC server address from CLEAVE_GRPC or a default.
func grpcAddrFromEnv() string {
	if addr := os.Getenv("CLEAVE_GRPC"); addr != "" {
		return addr
	}
	return "127.0.0.1:50051"
}

// dialGRPC dials a cleave gRPC endpoint with insecure transport for local/dev.
func dialGRPC(ctx context.Context, addr string) (*grpc.ClientConn, error) {
	return grpc.DialContext(ctx, addr, grpc.WithTransportCredentials(insecure.NewCredentials()))
}

// resultOut returns a flat map rendering of a results feed entry for CLI output.
func resultOut(e transports.ResultEntry) map[string]any {
	out := map[string]any{
		"token":       e.Token,
		"seq":         e.Seq,
		"entity_id":   e.EntityID,
		"done":        e.Done,
		"splits":      e.Splits,
		"split_count": e.SplitCount,
		"segments":    e.Segments,
		"depth":       e.Depth,
		"at_ms":       e.AtMs,
	}
	if e.Error != "" {
		out["error"] = e.Error
	}
	return out
}
