// Package transports provides pluggable transport implementations for the CLI.
package transports

import (
	"bufio"
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
)

// HTTPTransport implements NodeTransport over the node's REST API.
type HTTPTransport struct {
	baseURL func() string
	client  *http.Client
}

// NewHTTPTransport constructs a new HTTPTransport using the provided base URL source.
func NewHTTPTransport(baseURL func() string) *HTTPTransport {
	return &HTTPTransport{baseURL: baseURL, client: http.DefaultClient}
}

// do executes the request and converts non-2xx responses into errors,
// surfacing the server's {"error": ...} message when present.
func (t *HTTPTransport) do(req *http.Request) (*http.Response, error) {
	resp, err := t.client.Do(req)
	if err != nil {
		return nil, err
	}
	if resp.StatusCode >= 300 {
		defer func() { _ = resp.Body.Close() }()
		var e struct {
			Error string `json:"error"`
		}
		if json.NewDecoder(resp.Body).Decode(&e) == nil && e.Error != "" {
			return nil, fmt.Errorf("%s: %s", resp.Status, e.Error)
		}
		return nil, fmt.Errorf("http error: %s", resp.Status)
	}
	return resp, nil
}

func (t *HTTPTransport) postJSON(ctx context.Context, path string, body, out any) error {
	b, err := json.Marshal(body)
	if err != nil {
		return err
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodPost, t.baseURL()+path, bytes.NewReader(b))
	if err != nil {
		return err
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := t.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	if out == nil {
		_, _ = io.Copy(io.Discard, resp.Body)
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (t *HTTPTransport) getJSON(ctx context.Context, path string, q url.Values, out any) error {
	u := t.baseURL() + path
	if len(q) > 0 {
		u += "?" + q.Encode()
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return err
	}
	resp, err := t.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	return json.NewDecoder(resp.Body).Decode(out)
}

// recordJSON mirrors the node's record representation on the wire.
type recordJSON struct {
	ID             string   `json:"id"`
	Text           string   `json:"text"`
	Segments       []string `json:"segments"`
	SplitCount     int64    `json:"split_count"`
	LastSplitDepth int64    `json:"last_split_depth"`
	Token          string   `json:"token"`
	CreatedAtMs    int64    `json:"created_at_ms"`
	UpdatedAtMs    int64    `json:"updated_at_ms"`
}

func fromRecordJSON(r recordJSON) Record {
	return Record{
		ID:             r.ID,
		Text:           r.Text,
		Segments:       r.Segments,
		SplitCount:     r.SplitCount,
		LastSplitDepth: r.LastSplitDepth,
		Token:          r.Token,
		CreatedAtMs:    r.CreatedAtMs,
		UpdatedAtMs:    r.UpdatedAtMs,
	}
}

// resultItemJSON mirrors one results feed item on the wire.
type resultItemJSON struct {
	Token string `json:"token"`
	Seq   uint64 `json:"seq"`
	Entry struct {
		EntityID   string `json:"entity_id"`
		Done       bool   `json:"done"`
		Splits     int    `json:"splits"`
		SplitCount int64  `json:"split_count"`
		Segments   int    `json:"segments"`
		Depth      int64  `json:"depth"`
		Error      string `json:"error"`
		AtMs       int64  `json:"at_ms"`
	} `json:"entry"`
}

func fromResultItemJSON(it resultItemJSON) ResultEntry {
	return ResultEntry{
		Token:      it.Token,
		Seq:        it.Seq,
		EntityID:   it.Entry.EntityID,
		Done:       it.Entry.Done,
		Splits:     it.Entry.Splits,
		SplitCount: it.Entry.SplitCount,
		Segments:   it.Entry.Segments,
		Depth:      it.Entry.Depth,
		Error:      it.Entry.Error,
		AtMs:       it.Entry.AtMs,
	}
}

// CreateNamespace creates a namespace.
func (t *HTTPTransport) CreateNamespace(ctx context.Context, ns string) error {
	return t.postJSON(ctx, "/v1/ns/create", map[string]string{"namespace": ns}, nil)
}

// CreateRecord creates a record and returns its id and version token.
func (t *HTTPTransport) CreateRecord(ctx context.Context, ns, id, text string) (string, string, error) {
	var out struct {
		ID    string `json:"id"`
		Token string `json:"token"`
	}
	body := map[string]string{"namespace": ns, "id": id, "text": text}
	if err := t.postJSON(ctx, "/v1/records/create", body, &out); err != nil {
		return "", "", err
	}
	return out.ID, out.Token, nil
}

// GetRecord fetches a record's properties and current version token.
func (t *HTTPTransport) GetRecord(ctx context.Context, ns, id string) (Record, error) {
	q := url.Values{}
	if ns != "" {
		q.Set("namespace", ns)
	}
	q.Set("id", id)
	var out recordJSON
	if err := t.getJSON(ctx, "/v1/records/get", q, &out); err != nil {
		return Record{}, err
	}
	return fromRecordJSON(out), nil
}

// ListRecords lists records in a namespace in id order.
func (t *HTTPTransport) ListRecords(ctx context.Context, ns string, limit int) ([]Record, error) {
	q := url.Values{}
	if ns != "" {
		q.Set("namespace", ns)
	}
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	var out struct {
		Records []recordJSON `json:"records"`
	}
	if err := t.getJSON(ctx, "/v1/records", q, &out); err != nil {
		return nil, err
	}
	recs := make([]Record, 0, len(out.Records))
	for _, r := range out.Records {
		recs = append(recs, fromRecordJSON(r))
	}
	return recs, nil
}

// SetRecordText replaces a record's text and returns the new version token.
func (t *HTTPTransport) SetRecordText(ctx context.Context, ns, id, text string) (string, error) {
	var out struct {
		Token string `json:"token"`
	}
	body := map[string]string{"namespace": ns, "id": id, "text": text}
	if err := t.postJSON(ctx, "/v1/records/set-text", body, &out); err != nil {
		return "", err
	}
	return out.Token, nil
}

// DeleteRecord deletes a record by id.
func (t *HTTPTransport) DeleteRecord(ctx context.Context, ns, id string) error {
	q := url.Values{}
	if ns != "" {
		q.Set("namespace", ns)
	}
	q.Set("id", id)
	req, err := http.NewRequestWithContext(ctx, http.MethodDelete, t.baseURL()+"/v1/records/delete?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := t.do(req)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()
	_, _ = io.Copy(io.Discard, resp.Body)
	return nil
}

// TriggerStep starts a step asynchronously and returns the ack.
func (t *HTTPTransport) TriggerStep(ctx context.Context, ns, id string, depth int64) (TriggerAck, error) {
	var out struct {
		EntityID string `json:"entity_id"`
		Accepted bool   `json:"accepted"`
	}
	body := map[string]any{"namespace": ns, "id": id, "depth": depth}
	if err := t.postJSON(ctx, "/v1/step/trigger", body, &out); err != nil {
		return TriggerAck{}, err
	}
	return TriggerAck{EntityID: out.EntityID, Accepted: out.Accepted}, nil
}

// RunStep runs one step synchronously and returns its outcome.
func (t *HTTPTransport) RunStep(ctx context.Context, ns, id string, depth int64) (StepResult, error) {
	var out struct {
		EntityID       string `json:"entity_id"`
		Done           bool   `json:"done"`
		Splits         int    `json:"splits"`
		SplitCount     int64  `json:"split_count"`
		SegmentsBefore int    `json:"segments_before"`
		SegmentsAfter  int    `json:"segments_after"`
	}
	body := map[string]any{"namespace": ns, "id": id, "depth": depth}
	if err := t.postJSON(ctx, "/v1/step/run", body, &out); err != nil {
		return StepResult{}, err
	}
	return StepResult{
		EntityID:       out.EntityID,
		Done:           out.Done,
		Splits:         out.Splits,
		SplitCount:     out.SplitCount,
		SegmentsBefore: out.SegmentsBefore,
		SegmentsAfter:  out.SegmentsAfter,
	}, nil
}

// ListResults reads one page of the results feed.
func (t *HTTPTransport) ListResults(ctx context.Context, req ResultsRequest) ([]ResultEntry, string, error) {
	q := url.Values{}
	if req.Namespace != "" {
		q.Set("namespace", req.Namespace)
	}
	if req.Group != "" {
		q.Set("group", req.Group)
	}
	if req.From != "" {
		q.Set("from", req.From)
	}
	if req.StartToken != "" {
		q.Set("start_token", req.StartToken)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	if req.Reverse {
		q.Set("reverse", "true")
	}
	var out struct {
		Items     []resultItemJSON `json:"items"`
		NextToken string           `json:"next_token"`
	}
	if err := t.getJSON(ctx, "/v1/step/results", q, &out); err != nil {
		return nil, "", err
	}
	items := make([]ResultEntry, 0, len(out.Items))
	for _, it := range out.Items {
		items = append(items, fromResultItemJSON(it))
	}
	return items, out.NextToken, nil
}

// SubscribeResults streams feed entries over SSE and invokes onEntry for each.
func (t *HTTPTransport) SubscribeResults(ctx context.Context, req SubscribeRequest, onEntry func(ResultEntry) error) error {
	q := url.Values{}
	if req.Namespace != "" {
		q.Set("namespace", req.Namespace)
	}
	if req.Group != "" {
		q.Set("group", req.Group)
	}
	if req.From != "" {
		q.Set("from", req.From)
	}
	if req.StartToken != "" {
		q.Set("start_token", req.StartToken)
	}
	if req.Filter != "" {
		q.Set("filter", req.Filter)
	}
	if req.Limit > 0 {
		q.Set("limit", strconv.Itoa(req.Limit))
	}
	hreq, err := http.NewRequestWithContext(ctx, http.MethodGet, t.baseURL()+"/v1/step/results/subscribe?"+q.Encode(), nil)
	if err != nil {
		return err
	}
	resp, err := t.do(hreq)
	if err != nil {
		return err
	}
	defer func() { _ = resp.Body.Close() }()

	sc := bufio.NewScanner(resp.Body)
	sc.Buffer(make([]byte, 0, 64<<10), 1<<20)
	for sc.Scan() {
		line := sc.Text()
		if !strings.HasPrefix(line, "data: ") {
			continue
		}
		var it resultItemJSON
		if err := json.Unmarshal([]byte(strings.TrimPrefix(line, "data: ")), &it); err != nil {
			continue
		}
		if cbErr := onEntry(fromResultItemJSON(it)); cbErr != nil {
			return cbErr
		}
	}
	if err := sc.Err(); err != nil && ctx.Err() == nil {
		return err
	}
	return nil
}

// CommitCursor commits a consumer group cursor on the results feed.
func (t *HTTPTransport) CommitCursor(ctx context.Context, ns, group, token string) error {
	body := map[string]string{"namespace": ns, "group": group, "token": token}
	return t.postJSON(ctx, "/v1/step/results/commit", body, nil)
}

// GetCursor reads a consumer group's committed feed position.
func (t *HTTPTransport) GetCursor(ctx context.Context, ns, group string) (CursorInfo, error) {
	q := url.Values{}
	if ns != "" {
		q.Set("namespace", ns)
	}
	q.Set("group", group)
	var out struct {
		Namespace string `json:"namespace"`
		Group     string `json:"group"`
		Committed bool   `json:"committed"`
		Token     string `json:"token"`
		Seq       uint64 `json:"seq"`
	}
	if err := t.getJSON(ctx, "/v1/step/results/cursor", q, &out); err != nil {
		return CursorInfo{}, err
	}
	return CursorInfo{Namespace: out.Namespace, Group: out.Group, Committed: out.Committed, Token: out.Token, Seq: out.Seq}, nil
}
