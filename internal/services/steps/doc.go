// Package steps implements the step facade: synchronous and triggered
// splitting rounds plus access to the per-namespace results feed.
//
// A round loads the record, halves every working segment above the length
// threshold once, and persists the survivors behind a version check. The
// outcome of every invocation, including failed ones, is appended to the
// results feed; drivers follow the feed to decide whether to re-invoke.
//
// Example:
//
//	svc := steps.New(rt)
//	ack, _ := svc.Trigger(ctx, steps.RunRequest{Namespace: "default", ID: id})
//	items, next, _ := svc.Results(ctx, steps.ResultsRequest{Namespace: "default"})
//	_ = svc.Subscribe(ctx, "default", nil, steps.SubscribeOptions{Filter: "done"}, sink)
package steps
