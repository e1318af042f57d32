package transport

import (
	"time"

	"sales_leads_backend/internal/leads/domain"

	"github.com/google/uuid"
)

// Request DTOs
type CreateLeadRequest struct {
	Name            string       `json:"name" validate:"required,notblank_trimmed"`
	Email           string       `json:"email" validate:"required,trimmed_email"`
	CompanyName     string       `json:"company_name" validate:"required,notblank_trimmed"`
	Stage           domain.Stage `json:"stage,omitempty" validate:"omitempty,lead_stage"`
	IsEngaged       bool         `json:"is_engaged"`
	LastContactedAt *time.Time   `json:"last_contacted_at,omitempty"`
}

// UpdateLeadRequest replaces every mutable field; omitted optional fields
// fall back to their defaults exactly as on create.
type UpdateLeadRequest CreateLeadRequest

func (r CreateLeadRequest) Fields() domain.Fields {
	return domain.Fields{
		Name:            r.Name,
		Email:           r.Email,
		CompanyName:     r.CompanyName,
		Stage:           r.Stage,
		IsEngaged:       r.IsEngaged,
		LastContactedAt: r.LastContactedAt,
	}
}

func (r UpdateLeadRequest) Fields() domain.Fields {
	return CreateLeadRequest(r).Fields()
}

type BulkDeleteRequest struct {
	IDs []uuid.UUID `json:"ids"`
}

type ListLeadsRequest struct {
	Page     int    `form:"page,default=1" validate:"min=1"`
	PageSize int    `form:"page_size,default=10" validate:"min=1,max=101"`
	Query    string `form:"query" validate:"max=200"`
	SortBy   string `form:"sort_by" validate:"max=200"`
}

type ExportFormat string

const (
	ExportFormatCSV  ExportFormat = "csv"
	ExportFormatXLSX ExportFormat = "xlsx"
)

type ExportRequest struct {
	Query  string       `form:"query" validate:"max=200"`
	SortBy string       `form:"sort_by" validate:"max=200"`
	Format ExportFormat `form:"format,default=csv" validate:"oneof=csv xlsx"`
}

// Response DTOs
type LeadResponse struct {
	ID              uuid.UUID    `json:"id"`
	Name            string       `json:"name"`
	Email           string       `json:"email"`
	CompanyName     string       `json:"company_name"`
	Stage           domain.Stage `json:"stage"`
	IsEngaged       bool         `json:"is_engaged"`
	LastContactedAt *time.Time   `json:"last_contacted_at"`
	CreatedAt       time.Time    `json:"created_at"`
	UpdatedAt       time.Time    `json:"updated_at"`
}

type LeadListResponse struct {
	CurrentPage  int            `json:"current_page"`
	PageSize     int            `json:"page_size"`
	TotalRecords int            `json:"total_records"`
	TotalPages   int            `json:"total_pages"`
	Data         []LeadResponse `json:"data"`
}

func ToLeadResponse(lead domain.Lead) LeadResponse {
	return LeadResponse{
		ID:              lead.ID,
		Name:            lead.Name,
		Email:           lead.Email,
		CompanyName:     lead.CompanyName,
		Stage:           lead.Stage,
		IsEngaged:       lead.IsEngaged,
		LastContactedAt: lead.LastContactedAt,
		CreatedAt:       lead.CreatedAt,
		UpdatedAt:       lead.UpdatedAt,
	}
}
