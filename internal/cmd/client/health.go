package client

import (
	"fmt"

	"github.com/spf13/cobra"
	healthpb "google.golang.org/grpc/health/grpc_health_v1"
	"google.golang.org/protobuf/encoding/protojson"
)

// NewHealthCommand constructs the `health` command, a gRPC health probe.
func NewHealthCommand() *cobra.Command {
	healthCmd := &cobra.Command{
		Use:   "health",
		Short: "Probe the node's gRPC health endpoint",
		RunE: func(cmd *cobra.Command, _ []string) error {
			service, _ := cmd.Flags().GetString("service")
			addr, _ := cmd.Flags().GetString("grpc")
			if addr == "" {
				addr = grpcAddrFromEnv()
			}

			conn, err := dialGRPC(cmd.Context(), addr)
			if err != nil {
				return err
			}
			defer func() { _ = conn.Close() }()
			cli := healthpb.NewHealthClient(conn)
			resp, err := cli.Check(cmd.Context(), &healthpb.HealthCheckRequest{Service: service})
			if err != nil {
				return err
			}
			b, err := protojson.Marshal(resp)
			if err != nil {
				return err
			}
			_, _ = fmt.Fprintln(cmd.OutOrStdout(), string(b))
			return nil
		},
	}
	healthCmd.Flags().String("service", "", "Service name to check (empty = whole node)")
	healthCmd.Flags().String("grpc", "", "gRPC address (overrides CLEAVE_GRPC)")
	return healthCmd
}
