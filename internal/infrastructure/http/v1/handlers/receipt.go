package handlers

import (
	"time"

	"github.com/gin-gonic/gin"

	"goodsflow/internal/core/apperror"
	appctx "goodsflow/internal/core/context"
	"goodsflow/internal/core/id"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/receipt"
	"goodsflow/internal/domain/source"
	"goodsflow/internal/infrastructure/http/v1/dto"
	"goodsflow/internal/infrastructure/storage/postgres"
)

// ReceiptHandler handles HTTP requests for receipt documents.
type ReceiptHandler struct {
	*BaseHandler
	service *receipt.Service
	sources *source.Service
	audit   *postgres.AuditService
}

// NewReceiptHandler creates a new receipt handler.
func NewReceiptHandler(base *BaseHandler, service *receipt.Service, sources *source.Service, audit *postgres.AuditService) *ReceiptHandler {
	return &ReceiptHandler{
		BaseHandler: base,
		service:     service,
		sources:     sources,
		audit:       audit,
	}
}

// Create handles POST /document/receipt.
func (h *ReceiptHandler) Create(c *gin.Context) {
	ctx := c.Request.Context()

	var in receipt.Input
	if !h.BindJSON(c, &in) {
		return
	}

	if in.ReceivedBy == "" {
		in.ReceivedBy = appctx.GetUserName(ctx)
	}

	doc, err := h.service.Create(ctx, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromReceipt(doc))
}

// Update handles PUT /document/receipt/:id.
func (h *ReceiptHandler) Update(c *gin.Context) {
	ctx := c.Request.Context()

	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	var in receipt.Input
	if !h.BindJSON(c, &in) {
		return
	}

	if in.ReceivedBy == "" {
		in.ReceivedBy = appctx.GetUserName(ctx)
	}

	doc, err := h.service.Update(ctx, docID, in)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromReceipt(doc))
}

// Get handles GET /document/receipt/:id.
func (h *ReceiptHandler) Get(c *gin.Context) {
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

	h.OK(c, dto.FromReceipt(doc))
}

// List handles GET /document/receipt.
func (h *ReceiptHandler) List(c *gin.Context) {
	filter := receipt.ListFilter{
		ListFilter: domain.DefaultListFilter(),
	}
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)
	filter.OrderBy = c.DefaultQuery("orderBy", "-date")
	filter.IncludeDeleted = c.Query("includeDeleted") == "true"
	filter.ReceivedBy = c.Query("receivedBy")

	if v := c.Query("sourceId"); v != "" {
		sourceID, err := id.Parse(v)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid sourceId").WithDetail("sourceId", v))
			return
		}
		filter.SourceID = &sourceID
	}

	if v := c.Query("sourceKind"); v != "" {
		kind := source.Kind(v)
		filter.SourceKind = &kind
	}

	if v := c.Query("status"); v != "" {
		status := receipt.Status(v)
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
		Items:      dto.FromReceiptList(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// Pending handles GET /source/:id/pending. Order sources answer with
// per-line balances, challans with the outstanding carton count.
func (h *ReceiptHandler) Pending(c *gin.Context) {
	ctx := c.Request.Context()

	sourceID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	src, err := h.sources.GetByID(ctx, sourceID)
	if err != nil {
		h.Error(c, err)
		return
	}

	resp := dto.PendingResponse{SourceID: sourceID.String()}

	if src.Kind == source.KindChallan {
		cartons, err := h.service.GetPendingCartons(ctx, sourceID)
		if err != nil {
			h.Error(c, err)
			return
		}
		resp.PendingCartons = &cartons
	} else {
		lines, err := h.service.GetPending(ctx, sourceID)
		if err != nil {
			h.Error(c, err)
			return
		}
		resp.Lines = lines
	}

	h.OK(c, resp)
}

// History handles GET /document/receipt/:id/history.
func (h *ReceiptHandler) History(c *gin.Context) {
	docID, err := id.Parse(c.Param("id"))
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid id format"))
		return
	}

	limit := h.ParseIntQuery(c, "limit", 50)

	entries, err := h.audit.GetEntityHistory(c.Request.Context(), "receipt", docID, limit)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, gin.H{"items": entries})
}
