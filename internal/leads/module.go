// Package leads provides the sales lead bounded context module.
package leads

import (
	apphttp "sales_leads_backend/internal/http"
	"sales_leads_backend/internal/leads/handler"
	"sales_leads_backend/internal/leads/query"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/internal/leads/service"
	"sales_leads_backend/platform/config"
	"sales_leads_backend/platform/logger"
	"sales_leads_backend/platform/validator"

	"github.com/jackc/pgx/v5/pgxpool"
)

// ModuleConfig combines the config interfaces needed by the leads module.
type ModuleConfig interface {
	config.SearchConfig
	config.ExportConfig
}

// Module is the leads bounded context module implementing http.Module.
type Module struct {
	handler *handler.Handler
	service *service.Service
}

// NewModule wires the repository, service and handler for leads.
func NewModule(pool *pgxpool.Pool, val *validator.Validator, cfg ModuleConfig, log *logger.Logger) *Module {
	sorter := query.MustSortBuilder(repository.SortColumns)
	search := query.NewPostgresTextSearch(repository.SearchColumn, cfg.GetSearchLanguage())

	repo := repository.New(pool, search, sorter)
	svc := service.New(repo, sorter, log, cfg.GetExportMaxRows())

	return &Module{
		handler: handler.New(svc, val, log),
		service: svc,
	}
}

// Service returns the lead service for late wiring of optional collaborators.
func (m *Module) Service() *service.Service {
	return m.service
}

// Name returns the module identifier.
func (m *Module) Name() string {
	return "leads"
}

// RegisterRoutes mounts leads routes on the provided router context.
func (m *Module) RegisterRoutes(ctx *apphttp.RouterContext) {
	m.handler.RegisterRoutes(ctx.V1.Group("/leads"))
}

var _ apphttp.Module = (*Module)(nil)
