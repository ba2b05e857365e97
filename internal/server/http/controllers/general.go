package controllers

import (
	"encoding/json"
	"net/http"
	"runtime/debug"
	"time"

	"github.com/rzbill/cleave/internal/runtime"
	recordsvc "github.com/rzbill/cleave/internal/services/records"
)

// started anchors the uptime reported by the status endpoint.
var started = time.Now()

// GeneralController handles general HTTP endpoints like health and namespaces.
//
// It provides endpoints for service health monitoring and namespace management
// operations that are not specific to records or steps.
type GeneralController struct {
	rt *runtime.Runtime
	rc *recordsvc.Service
}

// NewGeneralController creates a new general controller.
//
// The controller requires both a runtime instance for health probes and
// a records service for namespace operations.
func NewGeneralController(rt *runtime.Runtime, svc *recordsvc.Service) *GeneralController {
	return &GeneralController{
		rt: rt,
		rc: svc,
	}
}

// RegisterRoutes registers general routes with the given mux.
//
// This method sets up HTTP endpoints for:
// - Health checks (/v1/healthz, /v1/readyz)
// - Node status (/v1/status)
// - Namespace management (/v1/namespaces, /v1/ns/create)
func (c *GeneralController) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("/v1/healthz", c.handleHealth)
	mux.HandleFunc("/v1/readyz", c.handleReady)
	mux.HandleFunc("/v1/status", c.handleStatus)
	mux.HandleFunc("/v1/namespaces", c.handleListNamespaces)
	mux.HandleFunc("/v1/ns/create", c.handleNSCreate)
}

// handleHealth reports process liveness.
//
// Always returns 200 OK with {"status": "ok"} while the process serves.
func (c *GeneralController) handleHealth(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleReady reports readiness of the storage layer.
//
// Returns 200 OK with {"status": "ok"} when the storage probe passes,
// 503 Service Unavailable otherwise.
func (c *GeneralController) handleReady(w http.ResponseWriter, r *http.Request) {
	if err := c.rt.CheckHealth(r.Context()); err != nil {
		writeError(w, http.StatusServiceUnavailable, "not_serving")
		return
	}
	writeJSON(w, map[string]string{"status": "ok"})
}

// handleStatus returns node status with version and uptime.
func (c *GeneralController) handleStatus(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, map[string]any{
		"status":    "ok",
		"version":   nodeVersion(),
		"uptime_ms": time.Since(started).Milliseconds(),
	})
}

// handleListNamespaces lists all namespaces.
//
// Returns a JSON response with an array of namespace names.
func (c *GeneralController) handleListNamespaces(w http.ResponseWriter, r *http.Request) {
	list, err := c.rc.ListNamespaces(r.Context())
	if err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to list namespaces")
		return
	}
	writeJSON(w, map[string]any{"namespaces": list})
}

// handleNSCreate creates a new namespace.
//
// Expects a JSON body with a "namespace" field. Returns 201 Created on success.
func (c *GeneralController) handleNSCreate(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		writeError(w, http.StatusMethodNotAllowed, "Method not allowed")
		return
	}
	var req nsCreateReq
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, http.StatusBadRequest, "Invalid request body")
		return
	}
	if _, err := c.rc.EnsureNamespace(r.Context(), req.Namespace); err != nil {
		writeError(w, http.StatusInternalServerError, "Failed to create namespace")
		return
	}
	writeCreated(w)
}

// nodeVersion reports the module version stamped into the binary, or
// "devel" for local builds.
func nodeVersion() string {
	if bi, ok := debug.ReadBuildInfo(); ok && bi.Main.Version != "" && bi.Main.Version != "(devel)" {
		return bi.Main.Version
	}
	return "devel"
}
