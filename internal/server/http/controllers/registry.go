package controllers

import (
	"net/http"

	"github.com/rzbill/cleave/internal/runtime"
	recordsvc "github.com/rzbill/cleave/internal/services/records"
	stepsvc "github.com/rzbill/cleave/internal/services/steps"
)

// ControllerRegistry manages all HTTP controllers.
//
// It provides a centralized way to register all controller routes
// and manages the lifecycle of individual controllers.
type ControllerRegistry struct {
	general *GeneralController
	records *RecordsController
	steps   *StepsController
}

// NewControllerRegistry creates a new controller registry.
//
// It initializes all controllers with the provided runtime and services.
func NewControllerRegistry(rt *runtime.Runtime, recordsSvc *recordsvc.Service, stepsSvc *stepsvc.Service) *ControllerRegistry {
	return &ControllerRegistry{
		general: NewGeneralController(rt, recordsSvc),
		records: NewRecordsController(rt, recordsSvc),
		steps:   NewStepsController(rt, stepsSvc),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
//
// This method sets up all HTTP endpoints for the Cleave service,
// including general endpoints (health, namespaces), record-specific
// endpoints, and step endpoints.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.records.RegisterRoutes(mux)
	r.steps.RegisterRoutes(mux)
}
