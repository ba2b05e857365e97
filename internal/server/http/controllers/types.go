package controllers

import "github.com/rzbill/cleave/internal/results"

// Common request/response types for HTTP controllers

// nsCreateReq represents a request to create a new namespace.
type nsCreateReq struct {
	Namespace string `json:"namespace"`
}

// recordCreateReq represents a request to create a record. ID is optional;
// the service generates one when absent.
type recordCreateReq struct {
	Namespace string `json:"namespace"`
	ID        string `json:"id"`
	Text      string `json:"text"`
}

// recordSetTextReq represents a request to replace a record's text.
type recordSetTextReq struct {
	Namespace string `json:"namespace"`
	ID        string `json:"id"`
	Text      string `json:"text"`
}

// stepReq represents a request to run or trigger a halving step.
type stepReq struct {
	Namespace string `json:"namespace"`
	ID        string `json:"id"`
	Depth     int64  `json:"depth"`
}

// cursorCommitReq represents a request to commit a consumer group cursor
// on the results feed. Token carries the base64 form of a feed token.
type cursorCommitReq struct {
	Namespace string `json:"namespace"`
	Group     string `json:"group"`
	Token     string `json:"token"`
}

// recordRespJSON represents a record in fetch and list responses.
type recordRespJSON struct {
	ID             string   `json:"id"`
	Text           string   `json:"text,omitempty"`
	Segments       []string `json:"segments,omitempty"`
	SplitCount     int64    `json:"split_count"`
	LastSplitDepth int64    `json:"last_split_depth"`
	Token          string   `json:"token"`
	CreatedAtMs    int64    `json:"created_at_ms,omitempty"`
	UpdatedAtMs    int64    `json:"updated_at_ms,omitempty"`
}

// stepResultJSON represents a completed step outcome.
type stepResultJSON struct {
	EntityID       string `json:"entity_id"`
	Done           bool   `json:"done"`
	Splits         int    `json:"splits"`
	SplitCount     int64  `json:"split_count"`
	SegmentsBefore int    `json:"segments_before"`
	SegmentsAfter  int    `json:"segments_after"`
}

// resultItemJSON represents one results feed entry in poll responses.
type resultItemJSON struct {
	Token string        `json:"token"`
	Seq   uint64        `json:"seq"`
	Entry results.Entry `json:"entry"`
}
