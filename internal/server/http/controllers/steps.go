package controllers

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rzbill/cleave/internal/record"
	"github.com/rzbill/cleave/internal/results"
	"github.com/rzbill/cleave/internal/runtime"
	stepsvc "github.com/rzbill/cleave/internal/services/steps"
)

// StepsController handles all step-related HTTP endpoints.
//
// It provides a JSON interface to the Steps service: synchronous step runs,
// asynchronous triggers, results feed polling with consumer group cursors,
// and real-time result delivery via Server-Sent Events.
type StepsController struct {
	rt *runtime.Runtime
	st *stepsvc.Service
}

// NewStepsController creates a new steps controller.
func NewStepsController(rt *runtime.Runtime, svc *stepsvc.Service) *StepsController {
	return &StepsController{
		rt: rt,
		st: svc,
	}
}

// RegisterRoutes registers all step-related routes with the given mux.
//
// This method sets up HTTP endpoints for:
// - Step execution (trigger, run)
// - Results feed access (poll, SSE subscribe)
// - Consumer group cursors (commit, read)
func (c *StepsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/step/trigger", c.handleTrigger)
	mux.HandleFunc("/v1/step/run", c.handleRun)
	mux.HandleFunc("/v1/step/results", c.handleResults)
	mux.HandleFunc("/v1/step/results/subscribe", c.handleSubscribeSSE)
	mux.HandleFunc("/v1/step/results/commit", c.handleCursorCommit)
	mux.HandleFunc("/v1/step/results/cursor", c.handleCursor)
}

// handleTrigger starts a step asynchronously.
//
// The response is an immediate 202 ack; the step outcome arrives on the
// results feed.
func (c *StepsController) handleTrigger(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req stepReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Id is required")
		return
	}
	ack, err := c.st.Trigger(r.Context(), stepsvc.RunRequest{Namespace: req.Namespace, ID: req.ID, Depth: req.Depth})
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to trigger step")
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusAccepted)
	_ = json.NewEncoder(w).Encode(ack)
}

// handleRun runs one step synchronously and returns its outcome.
//
// Step failures map to 4xx/5xx; the outcome is appended to the results
// feed either way.
func (c *StepsController) handleRun(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req stepReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Id is required")
		return
	}
	res, err := c.st.Run(r.Context(), stepsvc.RunRequest{Namespace: req.Namespace, ID: req.ID, Depth: req.Depth})
	if err != nil {
		switch {
		case errors.Is(err, record.ErrNotFound):
			writeError(w, http.StatusNotFound, "Record not found")
		case errors.Is(err, record.ErrConflict):
			writeError(w, http.StatusConflict, "Record changed concurrently")
		default:
			writeError(w, http.StatusInternalServerError, err.Error())
		}
		return
	}
	writeJSON(w, stepResultJSON{
		EntityID:       res.EntityID,
		Done:           res.Done,
		Splits:         res.Splits,
		SplitCount:     res.SplitCount,
		SegmentsBefore: res.SegmentsBefore,
		SegmentsAfter:  res.SegmentsAfter,
	})
}

// handleResults reads one page of the results feed.
//
// Query params: namespace, group, from=begin|end, start_token, limit, reverse.
func (c *StepsController) handleResults(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ns := r.URL.Query().Get("namespace")
	group := r.URL.Query().Get("group")
	from := r.URL.Query().Get("from")
	startB64 := r.URL.Query().Get("start_token")
	limitStr := r.URL.Query().Get("limit")
	reverseStr := r.URL.Query().Get("reverse")

	var start []byte
	if startB64 != "" {
		if b, err := base64.StdEncoding.DecodeString(startB64); err == nil {
			start = b
		}
	}
	limit := 100
	if v := parseLimit(limitStr); v > 0 {
		limit = v
	}

	items, next, err := c.st.Results(r.Context(), stepsvc.ResultsRequest{
		Namespace:  ns,
		StartToken: start,
		Group:      group,
		From:       from,
		Limit:      limit,
		Reverse:    parseBool(reverseStr),
	})
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read results")
		return
	}
	if ns == "" {
		ns = c.rt.Config().DefaultNamespaceName
	}

	out := struct {
		Namespace string           `json:"namespace"`
		Items     []resultItemJSON `json:"items"`
		NextToken string           `json:"next_token"`
	}{Namespace: ns}

	out.Items = make([]resultItemJSON, 0, len(items))
	for _, it := range items {
		out.Items = append(out.Items, resultItemJSON{
			Token: base64.StdEncoding.EncodeToString(it.Token[:]),
			Seq:   it.Token.Seq(),
			Entry: it.Entry,
		})
	}
	if next != (results.Token{}) {
		out.NextToken = base64.StdEncoding.EncodeToString(next[:])
	}
	writeJSON(w, out)
}

// handleSubscribeSSE streams results feed entries over SSE.
// Query params: namespace, group, from=begin|end, start_token, filter, limit
func (c *StepsController) handleSubscribeSSE(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ns := r.URL.Query().Get("namespace")
	group := r.URL.Query().Get("group")
	from := r.URL.Query().Get("from")
	startB64 := r.URL.Query().Get("start_token")
	filter := r.URL.Query().Get("filter")
	limitStr := r.URL.Query().Get("limit")

	if ns == "" {
		ns = c.rt.Config().DefaultNamespaceName
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")

	var start []byte
	if startB64 != "" {
		if b, err := base64.StdEncoding.DecodeString(startB64); err == nil {
			start = b
		}
	}

	opts := stepsvc.SubscribeOptions{Group: group}
	if from == stepsvc.FromEnd {
		opts.From = stepsvc.FromEnd
	}
	if filter != "" {
		// bound filter length to 2KiB to avoid abuse
		if len(filter) > 2048 {
			writeError(w, http.StatusBadRequest, "Filter too long")
			return
		}
		opts.Filter = filter
	}
	if limitStr != "" {
		if limit := parseLimit(limitStr); limit > 0 {
			opts.Limit = limit
		}
	}

	if err := c.st.Subscribe(r.Context(), ns, start, opts, sseSink{w: w, r: r}); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to subscribe")
		return
	}
}

// handleCursorCommit commits a consumer group cursor on the results feed.
func (c *StepsController) handleCursorCommit(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req cursorCommitReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.Group == "" {
		writeError(w, http.StatusBadRequest, "Group is required")
		return
	}
	raw, err := base64.StdEncoding.DecodeString(req.Token)
	if err != nil || len(raw) != 8 {
		writeError(w, http.StatusBadRequest, "Invalid token format")
		return
	}
	var tok results.Token
	copy(tok[:], raw)
	if err := c.st.CommitCursor(r.Context(), req.Namespace, req.Group, tok); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to commit cursor")
		return
	}
	writeNoContent(w)
}

// handleCursor reads a consumer group cursor.
//
// Responds {"committed": false} when the group has no cursor yet.
func (c *StepsController) handleCursor(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ns := r.URL.Query().Get("namespace")
	group := r.URL.Query().Get("group")
	if group == "" {
		writeError(w, http.StatusBadRequest, "Group parameter is required")
		return
	}
	tok, ok, err := c.st.Cursor(r.Context(), ns, group)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to read cursor")
		return
	}
	if ns == "" {
		ns = c.rt.Config().DefaultNamespaceName
	}
	resp := map[string]any{"namespace": ns, "group": group, "committed": ok}
	if ok {
		resp["token"] = base64.StdEncoding.EncodeToString(tok[:])
		resp["seq"] = tok.Seq()
	}
	writeJSON(w, resp)
}
