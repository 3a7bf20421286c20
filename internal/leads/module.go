// Package leads provides the sales-pipeline bounded context: lead CRUD,
// stage transitions, and the qualification event intake that feeds the
// automation worker.
package leads

import (
	"leadflow_backend/internal/events"
	apphttp "leadflow_backend/internal/http"
	"leadflow_backend/internal/leads/handler"
	"leadflow_backend/internal/leads/repository"
	"leadflow_backend/internal/leads/service"
	"leadflow_backend/platform/logger"
	"leadflow_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
	repo    *repository.Repository
}

// NewModule creates and initializes the leads module with all its
// dependencies. dispatcher may be nil when no job backend is configured;
// qualified jobs then stay pending until a worker picks them up.
func NewModule(pool *pgxpool.Pool, eventBus events.Bus, dispatcher service.JobDispatcher, log *logger.Logger, val *validator.Validator) *Module {
	repo := repository.New(pool)
	svc := service.New(repo, eventBus, dispatcher, log)
	h := handler.New(svc, val)

	return &Module{
		handler: h,
		service: svc,
		repo:    repo,
	}
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// Service returns the leads service for use by other modules.
func (m *Module) Service() *service.Service {
	return m.service
}

// Repository exposes the persistence layer for the background worker, which
// shares this module's job and lead tables.
func (m *Module) Repository() *repository.Repository {
	return m.repo
}

// RegisterRoutes mounts the CRUD routes on the authenticated group and the
// qualification intake on the session group, where identity is resolved but
// not yet enforced when the handler starts.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.Protected)
	ctx.Session.POST("/qualify-lead", m.handler.QualifyLead)
}

// Compile-time check that Module implements http.Module
var _ apphttp.Module = (*Module)(nil)
