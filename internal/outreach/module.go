// Package outreach provides AI-assisted outreach email generation for leads.
package outreach

import (
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/outreach/agent"
	"leadflow_backend/internal/outreach/handler"
)

// Module is the outreach bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
}

// NewModule wires the generation agent to the HTTP handler. The lead loader
// comes from the leads module so outreach shares its ownership rules.
func NewModule(generator agent.EmailGenerator, leads handler.LeadLoader) *Module {
	return &Module{handler: handler.New(generator, leads)}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "outreach"
}

// RegisterRoutes mounts the generation endpoint on the session group:
// origin and body validation run before the session check.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	ctx.Session.POST("/generate-outreach-email", m.handler.GenerateOutreachEmail)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
