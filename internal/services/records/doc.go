// Package records implements the record facade over the runtime's
// per-namespace stores. It provides create/read/replace/delete with
// optimistic versioning, consumed by the HTTP transport and the CLI.
//
// Example:
//
//	svc := records.New(rt)
//	id, tok, _ := svc.Create(ctx, "default", "", "some text to split later")
//	props, tok, _ := svc.Get(ctx, "default", id)
//	_, _ = svc.SetText(ctx, "default", id, "fresh text")
package records
