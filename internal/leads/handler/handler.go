package handler

import (
	"net/http"

	"sales_leads_backend/internal/leads/domain"
	"sales_leads_backend/internal/leads/service"
	"sales_leads_backend/internal/leads/transport"
	"sales_leads_backend/platform/httpkit"
	"sales_leads_backend/platform/logger"
	"sales_leads_backend/platform/validator"

	"github.com/gin-gonic/gin"
	playground "github.com/go-playground/validator/v10"
	"github.com/google/uuid"
)

type Handler struct {
	svc *service.Service
	val *validator.Validator
	log *logger.Logger
}

const (
	msgInvalidRequest = "Invalid request"
	msgInvalidID      = "Invalid lead id"
)

// New panics if the lead_stage rule cannot be registered; without it every
// request carrying a stage would fail validation.
func New(svc *service.Service, val *validator.Validator, log *logger.Logger) *Handler {
	err := val.RegisterValidation("lead_stage", func(fl playground.FieldLevel) bool {
		return domain.IsKnownStage(domain.Stage(fl.Field().String()))
	})
	if err != nil {
		panic("leads handler: register lead_stage validation: " + err.Error())
	}
	return &Handler{svc: svc, val: val, log: log}
}

func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("", h.List)
	rg.POST("", h.Create)
	rg.GET("/export", h.Export)
	rg.POST("/bulk-delete", h.BulkDelete)
	rg.GET("/:id", h.GetByID)
	rg.PUT("/:id", h.Update)
	rg.DELETE("/:id", h.Delete)
}

func (h *Handler) List(c *gin.Context) {
	var req transport.ListLeadsRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if !h.validate(c, req) {
		return
	}

	result, err := h.svc.List(c.Request.Context(), req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	httpkit.OK(c, result)
}

// Export streams matching leads as a file download. The query is opened
// before any header is written so that failures still produce a JSON error.
func (h *Handler) Export(c *gin.Context) {
	var req transport.ExportRequest
	if err := c.ShouldBindQuery(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if !h.validate(c, req) {
		return
	}

	ctx := c.Request.Context()
	exp, err := h.svc.Export(ctx, req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	c.Header("Content-Disposition", "attachment; filename="+exp.Filename())
	c.Header("Content-Type", exp.ContentType())
	c.Status(http.StatusOK)

	// Headers are sent; the service logs mid-stream failures.
	_, _ = exp.WriteTo(ctx, c.Writer)
}

func (h *Handler) Create(c *gin.Context) {
	var req transport.CreateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if !h.validate(c, req) {
		return
	}

	lead, err := h.svc.Create(c.Request.Context(), req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	httpkit.JSON(c, http.StatusCreated, lead)
}

func (h *Handler) GetByID(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	lead, err := h.svc.GetByID(c.Request.Context(), id)
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Update(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	var req transport.UpdateLeadRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}
	if !h.validate(c, req) {
		return
	}

	lead, err := h.svc.Update(c.Request.Context(), id, req)
	if httpkit.HandleError(c, h.log, err) {
		return
	}

	httpkit.OK(c, lead)
}

func (h *Handler) Delete(c *gin.Context) {
	id, ok := parseID(c)
	if !ok {
		return
	}

	if httpkit.HandleError(c, h.log, h.svc.Delete(c.Request.Context(), id)) {
		return
	}

	httpkit.NoContent(c)
}

func (h *Handler) BulkDelete(c *gin.Context) {
	var req transport.BulkDeleteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidRequest)
		return
	}

	if _, err := h.svc.BulkDelete(c.Request.Context(), req); httpkit.HandleError(c, h.log, err) {
		return
	}

	httpkit.NoContent(c)
}

func (h *Handler) validate(c *gin.Context, req interface{}) bool {
	if err := h.val.Struct(req); err != nil {
		httpkit.Error(c, http.StatusBadRequest, validator.Message(err))
		return false
	}
	return true
}

func parseID(c *gin.Context) (uuid.UUID, bool) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		httpkit.Error(c, http.StatusBadRequest, msgInvalidID)
		return uuid.UUID{}, false
	}
	return id, true
}
