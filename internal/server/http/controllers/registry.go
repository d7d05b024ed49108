package controllers

import (
	"net/http"

	"github.com/rzbill/synthlog/internal/runtime"
	sessionsvc "github.com/rzbill/synthlog/internal/services/sessions"
	logpkg "github.com/rzbill/synthlog/pkg/log"
)

// ControllerRegistry manages all HTTP controllers.
type ControllerRegistry struct {
	general  *GeneralController
	sessions *SessionsController
}

// NewControllerRegistry creates a new controller registry.
func NewControllerRegistry(rt *runtime.Runtime, svc *sessionsvc.Service, logger logpkg.Logger) *ControllerRegistry {
	return &ControllerRegistry{
		general:  NewGeneralController(rt),
		sessions: NewSessionsController(svc, logger),
	}
}

// RegisterAllRoutes registers all controller routes with the given mux.
//
// This sets up the general endpoints (health, metrics) and the session
// endpoints.
func (r *ControllerRegistry) RegisterAllRoutes(mux *http.ServeMux) {
	r.general.RegisterRoutes(mux)
	r.sessions.RegisterRoutes(mux)
}
