package controllers

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"net/http"

	stepsvc "github.com/rzbill/cleave/internal/services/steps"
)

// sseSink implements the SubscribeSink interface for Server-Sent Events.
//
// It formats results feed entries as SSE data events for real-time
// streaming to web clients.
type sseSink struct {
	w http.ResponseWriter
	r *http.Request
}

// Send formats and sends a feed entry as an SSE data event.
//
// The entry is JSON-encoded and sent with the "data: " prefix followed by
// two newlines as required by the SSE specification.
func (s sseSink) Send(it stepsvc.ResultItem) error {
	b, _ := json.Marshal(map[string]any{
		"token": base64.StdEncoding.EncodeToString(it.Token[:]),
		"seq":   it.Token.Seq(),
		"entry": it.Entry,
	})
	if _, err := s.w.Write([]byte("data: ")); err != nil {
		return err
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if _, err := s.w.Write([]byte("\n\n")); err != nil {
		return err
	}
	return nil
}

// Context returns the request context for cancellation.
func (s sseSink) Context() context.Context {
	return s.r.Context()
}

// Flush flushes the HTTP response writer if it supports flushing.
//
// This ensures that SSE events are immediately sent to the client.
func (s sseSink) Flush() error {
	if f, ok := s.w.(http.Flusher); ok {
		f.Flush()
	}
	return nil
}
