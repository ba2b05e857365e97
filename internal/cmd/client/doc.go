// Package client provides the `cleave` command-line client.
//
// The CLI talks to the cleave HTTP and gRPC endpoints to manage records
// and drive halving steps from a terminal. It is primarily intended for
// developers and operators.
//
// Installation
//
//	go install github.com/rzbill/cleave/cmd/cleave@latest
//
// Or build from this repo and use the embedded `cleave` binary.
//
// # Address configuration
//
// The HTTP base URL is discovered by the application that embeds the
// commands via a BaseURLFunc. When using the standalone binary, it
// defaults to http://127.0.0.1:8080. The gRPC address is read from the
// CLEAVE_GRPC environment variable (default 127.0.0.1:50051).
//
// Usage
//
//	cleave record create --namespace default --id doc-1 \
//	    --text 'some long text that needs cutting down'
//
//	cleave record get --namespace default --id doc-1
//	cleave record list --namespace default --limit 10
//
//	# Run one splitting round, or drive the recursion to completion
//	cleave step run --id doc-1
//	cleave step run --id doc-1 --max-rounds 0
//
//	# Trigger asynchronously; the outcome lands on the results feed
//	cleave step trigger --id doc-1 --depth 2
//
//	# Read the results feed
//	cleave step results --namespace default --limit 10
//	cleave step results --group driver --commit
//	cleave step results --follow --filter 'done'
//
//	# Inspect a consumer group cursor
//	cleave step cursor --group driver
//
//	# Probe node health over gRPC
//	cleave health
//	cleave health --service cleave.node --grpc 127.0.0.1:50051
//
// Notes
//
//   - step run re-invokes the node once per round, incrementing the
//     reported depth, until the node answers done or --max-rounds is
//     reached. --max-rounds 0 means run until done.
//   - step results --commit advances the group cursor past the returned
//     items; the next poll with the same group resumes after them.
//   - step results --follow connects to the SSE endpoint and prints one
//     JSON line per entry. --filter applies a server-side CEL expression.
package client
