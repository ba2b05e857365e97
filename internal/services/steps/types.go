package steps

import (
	"context"

	"github.com/rzbill/cleave/internal/results"
)

// Starting positions for feed reads.
const (
	FromBegin = "begin"
	FromEnd   = "end"
)

// RunRequest names the record one splitting round should act on. Depth is
// the driver-reported recursion depth, recorded for audit.
type RunRequest struct {
	Namespace string
	ID        string
	Depth     int64
}

// TriggerAck acknowledges an accepted asynchronous invocation. The outcome
// arrives on the results feed, not in the ack.
type TriggerAck struct {
	EntityID string `json:"entity_id"`
	Accepted bool   `json:"accepted"`
}

// ResultsRequest is a one-shot poll of the results feed.
type ResultsRequest struct {
	Namespace string
	// StartToken resumes after a previous read. When empty, Group's
	// committed cursor applies, then From.
	StartToken []byte
	Group      string
	From       string // FromBegin (default) or FromEnd
	Limit      int
	Reverse    bool
}

// ResultItem pairs a feed entry with its position token.
type ResultItem struct {
	Token results.Token
	Entry results.Entry
}

// SubscribeOptions controls starting position for a feed subscription.
// From: FromBegin (default) or FromEnd; an explicit start token wins.
type SubscribeOptions struct {
	From  string
	Group string
	// Filter is an optional CEL expression evaluated per entry.
	// When empty, all entries are delivered.
	Filter string
	// Limit is the maximum number of entries to deliver before stopping.
	// When 0, no limit is applied and the subscription runs until the
	// sink's context ends.
	Limit int
}

// SubscribeSink is implemented by transports to receive streamed entries.
type SubscribeSink interface {
	Send(ResultItem) error
	Context() context.Context
	Flush() error
}
