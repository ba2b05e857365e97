package transports

import "context"

// Record is a record snapshot returned by the node API.
type Record struct {
	ID             string
	Text           string
	Segments       []string
	SplitCount     int64
	LastSplitDepth int64
	Token          string
	CreatedAtMs    int64
	UpdatedAtMs    int64
}

// StepResult is the outcome of one synchronous splitting round.
type StepResult struct {
	EntityID       string
	Done           bool
	Splits         int
	SplitCount     int64
	SegmentsBefore int
	SegmentsAfter  int
}

// TriggerAck acknowledges an accepted asynchronous step. The outcome
// arrives on the results feed.
type TriggerAck struct {
	EntityID string
	Accepted bool
}

// ResultEntry is one results feed entry plus its position token.
type ResultEntry struct {
	Token      string
	Seq        uint64
	EntityID   string
	Done       bool
	Splits     int
	SplitCount int64
	Segments   int
	Depth      int64
	Error      string
	AtMs       int64
}

// ResultsRequest describes a one-shot poll of the results feed.
type ResultsRequest struct {
	Namespace  string
	Group      string
	From       string
	StartToken string
	Limit      int
	Reverse    bool
}

// SubscribeRequest describes a streaming subscription to the results feed.
type SubscribeRequest struct {
	Namespace  string
	Group      string
	From       string
	StartToken string
	Filter     string
	Limit      int
}

// CursorInfo reports a consumer group's committed feed position.
type CursorInfo struct {
	Namespace string
	Group     string
	Committed bool
	Token     string
	Seq       uint64
}

// NodeTransport abstracts the transport used by the CLI (HTTP/gRPC).
type NodeTransport interface {
	CreateNamespace(ctx context.Context, ns string) error
	CreateRecord(ctx context.Context, ns, id, text string) (newID, token string, err error)
	GetRecord(ctx context.Context, ns, id string) (Record, error)
	ListRecords(ctx context.Context, ns string, limit int) ([]Record, error)
	SetRecordText(ctx context.Context, ns, id, text string) (token string, err error)
	DeleteRecord(ctx context.Context, ns, id string) error
	TriggerStep(ctx context.Context, ns, id string, depth int64) (TriggerAck, error)
	RunStep(ctx context.Context, ns, id string, depth int64) (StepResult, error)
	ListResults(ctx context.Context, req ResultsRequest) (items []ResultEntry, nextToken string, err error)
	SubscribeResults(ctx context.Context, req SubscribeRequest, onEntry func(ResultEntry) error) error
	CommitCursor(ctx context.Context, ns, group, token string) error
	GetCursor(ctx context.Context, ns, group string) (CursorInfo, error)
}
