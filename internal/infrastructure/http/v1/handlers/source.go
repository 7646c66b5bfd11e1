package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/id"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/source"
	"goodsflow/internal/infrastructure/http/v1/dto"
)

// SourceHandler handles HTTP requests for source documents.
type SourceHandler struct {
	*BaseHandler
	service *source.Service
}

// NewSourceHandler creates a new source document handler.
func NewSourceHandler(base *BaseHandler, service *source.Service) *SourceHandler {
	return &SourceHandler{
		BaseHandler: base,
		service:     service,
	}
}

// Create handles POST /document/source.
func (h *SourceHandler) Create(c *gin.Context) {
	var req dto.CreateSourceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := req.ToEntity()
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Create(c.Request.Context(), doc); err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromSource(doc))
}

// Update handles PUT /document/source/:id.
func (h *SourceHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var req dto.UpdateSourceRequest
	if !h.BindJSON(c, &req) {
		return
	}

	doc, err := h.service.GetByID(ctx, docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	if err := req.ApplyTo(doc); err != nil {
		h.Error(c, err)
		return
	}

	if err := h.service.Update(ctx, doc); err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSource(doc))
}

// Get handles GET /document/source/:id.
func (h *SourceHandler) Get(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	doc, err := h.service.GetByID(c.Request.Context(), docID)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromSource(doc))
}

// Cancel handles POST /document/source/:id/cancel.
func (h *SourceHandler) Cancel(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	if err := h.service.Cancel(c.Request.Context(), docID); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "source document cancelled")
}

// List handles GET /document/source.
func (h *SourceHandler) List(c *gin.Context) {
	filter := source.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "-date")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"
	filter.PartyName = c.Query("partyName")

	if v := c.Query("kind"); v != "" {
		kind := source.Kind(v)
		filter.Kind = &kind
	}

	if v := c.Query("status"); v != "" {
		status := source.Status(v)
		filter.Status = &status
	}

	if v := c.Query("dateFrom"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateFrom").WithDetail("dateFrom", v))
			return
		}
		filter.DateFrom = &t
	}

	if v := c.Query("dateTo"); v != "" {
		t, err := time.Parse(time.RFC3339, v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid dateTo").WithDetail("dateTo", v))
			return
		}
		filter.DateTo = &t
	}

	result, err := h.service.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromSourceList(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}
