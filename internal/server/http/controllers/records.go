package controllers

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/rzbill/cleave/internal/record"
	"github.com/rzbill/cleave/internal/runtime"
	recordsvc "github.com/rzbill/cleave/internal/services/records"
)

// RecordsController handles all record-related HTTP endpoints.
//
// It provides a JSON interface to the Records service: creating records,
// fetching their properties and version token, resetting text, listing
// and deleting.
type RecordsController struct {
	rt *runtime.Runtime
	rc *recordsvc.Service
}

// NewRecordsController creates a new records controller.
func NewRecordsController(rt *runtime.Runtime, svc *recordsvc.Service) *RecordsController {
	return &RecordsController{
		rt: rt,
		rc: svc,
	}
}

// RegisterRoutes registers all record-related routes with the given mux.
func (c *RecordsController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/records", c.handleList)
	mux.HandleFunc("/v1/records/create", c.handleCreate)
	mux.HandleFunc("/v1/records/get", c.handleGet)
	mux.HandleFunc("/v1/records/set-text", c.handleSetText)
	mux.HandleFunc("/v1/records/delete", c.handleDelete)
}

// handleCreate creates a new record from the posted text.
//
// The id is optional; a generated one is returned. Responds 201 with
// {"id": ..., "token": ...} on success.
func (c *RecordsController) handleCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req recordCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	id, tok, err := c.rc.Create(r.Context(), req.Namespace, req.ID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, recordsvc.ErrTextTooLarge):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, record.ErrExists):
			writeError(w, http.StatusConflict, "Record already exists")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to create record")
		}
		return
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusCreated)
	_ = json.NewEncoder(w).Encode(map[string]string{"id": id, "token": tok.String()})
}

// handleGet fetches a record's properties and current version token.
func (c *RecordsController) handleGet(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ns := r.URL.Query().Get("namespace")
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Id parameter is required")
		return
	}
	props, tok, err := c.rc.Get(r.Context(), ns, id)
	if err != nil {
		if errors.Is(err, record.ErrNotFound) {
			writeError(w, http.StatusNotFound, "Record not found")
			return
		}
		writeError(w, http.StatusInternalServerError, "Failed to get record")
		return
	}
	writeJSON(w, recordRespJSON{
		ID:             id,
		Text:           props.Text,
		Segments:       props.Segments,
		SplitCount:     props.SplitCount,
		LastSplitDepth: props.LastSplitDepth,
		Token:          tok.String(),
	})
}

// handleList lists records in a namespace in id order.
func (c *RecordsController) handleList(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodGet {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ns := r.URL.Query().Get("namespace")
	limit := parseLimit(r.URL.Query().Get("limit"))
	entries, err := c.rc.List(r.Context(), ns, limit)
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list records")
		return
	}
	if ns == "" {
		ns = c.rt.Config().DefaultNamespaceName
	}
	items := make([]recordRespJSON, 0, len(entries))
	for _, e := range entries {
		items = append(items, recordRespJSON{
			ID:             e.ID,
			Text:           e.Props.Text,
			Segments:       e.Props.Segments,
			SplitCount:     e.Props.SplitCount,
			LastSplitDepth: e.Props.LastSplitDepth,
			Token:          e.Token.String(),
			CreatedAtMs:    e.CreatedAtMs,
			UpdatedAtMs:    e.UpdatedAtMs,
		})
	}
	writeJSON(w, map[string]any{"namespace": ns, "records": items})
}

// handleSetText replaces a record's text and resets its split state.
//
// Responds with the new version token.
func (c *RecordsController) handleSetText(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req recordSetTextReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if req.ID == "" {
		writeError(w, http.StatusBadRequest, "Id is required")
		return
	}
	tok, err := c.rc.SetText(r.Context(), req.Namespace, req.ID, req.Text)
	if err != nil {
		switch {
		case errors.Is(err, recordsvc.ErrTextTooLarge):
			writeError(w, http.StatusBadRequest, err.Error())
		case errors.Is(err, record.ErrNotFound):
			writeError(w, http.StatusNotFound, "Record not found")
		case errors.Is(err, record.ErrConflict):
			writeError(w, http.StatusConflict, "Record changed concurrently")
		default:
			writeError(w, http.StatusInternalServerError, "Failed to set record text")
		}
		return
	}
	writeJSON(w, map[string]string{"id": req.ID, "token": tok.String()})
}

// handleDelete deletes a record. Deleting a missing record succeeds.
func (c *RecordsController) handleDelete(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodDelete {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	ns := r.URL.Query().Get("namespace")
	id := r.URL.Query().Get("id")
	if id == "" {
		writeError(w, http.StatusBadRequest, "Id parameter is required")
		return
	}
	if err := c.rc.Delete(r.Context(), ns, id); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to delete record")
		return
	}
	writeNoContent(w)
}
