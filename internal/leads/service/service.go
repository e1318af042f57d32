// Package service implements the lead query service: it composes sorting,
// search and pagination into repository calls and translates storage
// failures into the apperr taxonomy.
package service

import (
	"context"
	"errors"
	"log/slog"
	"net/http"

	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/internal/leads/query"
	"sales_leads_backend/internal/leads/repository"
	"sales_leads_backend/internal/leads/transport"
	"sales_leads_backend/platform/apperr"
	"sales_leads_backend/platform/logger"

	"github.com/google/uuid"
)

// ExportLimit is the hard cap on rows in a single export.
const ExportLimit = 10000

const (
	msgNotFound       = "Lead not found"
	msgDuplicateEmail = "A lead with this email already exists"
	msgNoIDs          = "No lead ids provided"
)

// Repository is the storage the service needs. It is satisfied by
// *repository.Repository and by test doubles.
type Repository interface {
	List(ctx context.Context, params repository.ListParams) ([]domain.Lead, int, error)
	Export(ctx context.Context, params repository.ExportParams) (repository.Cursor, error)
	GetByID(ctx context.Context, id uuid.UUID) (domain.Lead, error)
	Create(ctx context.Context, id uuid.UUID, fields domain.Fields) (domain.Lead, error)
	Update(ctx context.Context, id uuid.UUID, fields domain.Fields) (domain.Lead, error)
	Delete(ctx context.Context, id uuid.UUID) error
	BulkDelete(ctx context.Context, ids []uuid.UUID) (int, error)
}

// Metrics receives counters about lead activity.
type Metrics interface {
	LeadsMutated(op string, count int)
	LeadsExported(format string, rows int)
}

type noopMetrics struct{}

func (noopMetrics) LeadsMutated(string, int)  {}
func (noopMetrics) LeadsExported(string, int) {}

type Service struct {
	repo        Repository
	sorter      *query.SortBuilder
	log         *logger.Logger
	exportLimit int
	archiver    ExportArchiver
	metrics     Metrics
}

// New creates the lead service. exportLimit values outside (0, ExportLimit]
// are clamped to ExportLimit.
func New(repo Repository, sorter *query.SortBuilder, log *logger.Logger, exportLimit int) *Service {
	if exportLimit <= 0 || exportLimit > ExportLimit {
		exportLimit = ExportLimit
	}
	return &Service{
		repo:        repo,
		sorter:      sorter,
		log:         log,
		exportLimit: exportLimit,
		metrics:     noopMetrics{},
	}
}

// SetArchiver enables copying every export to object storage.
func (s *Service) SetArchiver(a ExportArchiver) {
	s.archiver = a
}

func (s *Service) SetMetrics(m Metrics) {
	if m == nil {
		m = noopMetrics{}
	}
	s.metrics = m
}

// List returns one page of leads matching req.
func (s *Service) List(ctx context.Context, req transport.ListLeadsRequest) (transport.LeadListResponse, error) {
	if req.Page < 1 {
		req.Page = query.DefaultPage
	}
	if req.PageSize < 1 {
		req.PageSize = query.DefaultPageSize
	}
	if req.PageSize > query.MaxPageSize {
		return transport.LeadListResponse{}, apperr.Validation("page_size must be at most 101")
	}

	terms, err := s.sorter.Parse(req.SortBy)
	if err != nil {
		return transport.LeadListResponse{}, err
	}

	leads, total, err := s.repo.List(ctx, repository.ListParams{
		Search: req.Query,
		Sort:   terms,
		Limit:  req.PageSize,
		Offset: query.Offset(req.Page, req.PageSize),
	})
	if err != nil {
		return transport.LeadListResponse{}, s.internal(ctx, "leads.list", "list the leads", err)
	}

	data := make([]transport.LeadResponse, 0, len(leads))
	for _, lead := range leads {
		data = append(data, transport.ToLeadResponse(lead))
	}

	return transport.LeadListResponse{
		CurrentPage:  req.Page,
		PageSize:     req.PageSize,
		TotalRecords: total,
		TotalPages:   query.TotalPages(total, req.PageSize),
		Data:         data,
	}, nil
}

func (s *Service) GetByID(ctx context.Context, id uuid.UUID) (transport.LeadResponse, error) {
	lead, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return transport.LeadResponse{}, apperr.NotFound(msgNotFound)
		}
		return transport.LeadResponse{}, s.internal(ctx, "leads.get", "retrieve the lead", err)
	}
	return transport.ToLeadResponse(lead), nil
}

func (s *Service) Create(ctx context.Context, req transport.CreateLeadRequest) (transport.LeadResponse, error) {
	fields, err := prepare(req.Fields())
	if err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.Create(ctx, uuid.New(), fields)
	if err != nil {
		if errors.Is(err, repository.ErrDuplicateEmail) {
			return transport.LeadResponse{}, duplicateEmail()
		}
		return transport.LeadResponse{}, s.internal(ctx, "leads.create", "create the lead", err)
	}

	s.log.WithContext(ctx).LeadEvent("lead_created", slog.String("lead_id", lead.ID.String()))
	s.metrics.LeadsMutated("create", 1)
	return transport.ToLeadResponse(lead), nil
}

// Update replaces all mutable fields of the lead.
func (s *Service) Update(ctx context.Context, id uuid.UUID, req transport.UpdateLeadRequest) (transport.LeadResponse, error) {
	fields, err := prepare(req.Fields())
	if err != nil {
		return transport.LeadResponse{}, err
	}

	lead, err := s.repo.Update(ctx, id, fields)
	if err != nil {
		switch {
		case errors.Is(err, repository.ErrNotFound):
			return transport.LeadResponse{}, apperr.NotFound(msgNotFound)
		case errors.Is(err, repository.ErrDuplicateEmail):
			return transport.LeadResponse{}, duplicateEmail()
		}
		return transport.LeadResponse{}, s.internal(ctx, "leads.update", "update the lead", err)
	}

	s.log.WithContext(ctx).LeadEvent("lead_updated", slog.String("lead_id", lead.ID.String()))
	s.metrics.LeadsMutated("update", 1)
	return transport.ToLeadResponse(lead), nil
}

func (s *Service) Delete(ctx context.Context, id uuid.UUID) error {
	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return apperr.NotFound(msgNotFound)
		}
		return s.internal(ctx, "leads.delete", "delete the lead", err)
	}

	s.log.WithContext(ctx).LeadEvent("lead_deleted", slog.String("lead_id", id.String()))
	s.metrics.LeadsMutated("delete", 1)
	return nil
}

// BulkDelete removes every existing lead in ids and reports how many were
// removed. Unknown ids are not an error.
func (s *Service) BulkDelete(ctx context.Context, req transport.BulkDeleteRequest) (int, error) {
	if len(req.IDs) == 0 {
		return 0, apperr.Validation(msgNoIDs)
	}

	deleted, err := s.repo.BulkDelete(ctx, req.IDs)
	if err != nil {
		return 0, s.internal(ctx, "leads.bulk_delete", "delete the leads", err)
	}

	s.log.WithContext(ctx).LeadEvent("leads_bulk_deleted",
		slog.Int("requested", len(req.IDs)),
		slog.Int("deleted", deleted),
	)
	s.metrics.LeadsMutated("bulk_delete", deleted)
	return deleted, nil
}

func prepare(fields domain.Fields) (domain.Fields, error) {
	fields = fields.Normalize()
	if v := fields.Validate(); v != nil {
		return domain.Fields{}, apperr.Validation(v.Message)
	}
	return fields, nil
}

func duplicateEmail() error {
	return apperr.ValidationWithStatus(msgDuplicateEmail, http.StatusConflict)
}

// internal logs err and returns a safe message. Errors already in the
// taxonomy pass through untouched.
func (s *Service) internal(ctx context.Context, op, action string, err error) error {
	if domainErr, ok := apperr.AsError(err); ok {
		return domainErr
	}
	s.log.WithContext(ctx).DatabaseError(op, err)
	return apperr.Wrap(apperr.KindInternal, "Could not "+action+". Please try again later.", err).WithOp(op)
}
