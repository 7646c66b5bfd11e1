package handlers

import (
	"github.com/gin-gonic/gin"

	"goodsflow/internal/core/apperror"
	"goodsflow/internal/core/id"
	"goodsflow/internal/domain"
	"goodsflow/internal/domain/material"
	"goodsflow/internal/domain/registers/finishedstock"
	"goodsflow/internal/domain/registers/materialcost"
	"goodsflow/internal/infrastructure/http/v1/dto"
)

// StockHandler handles HTTP requests for the stock registers.
type StockHandler struct {
	*BaseHandler
	costs    *materialcost.Service
	finished *finishedstock.Service
}

// NewStockHandler creates a new stock register handler.
func NewStockHandler(base *BaseHandler, costs *materialcost.Service, finished *finishedstock.Service) *StockHandler {
	return &StockHandler{
		BaseHandler: base,
		costs:       costs,
		finished:    finished,
	}
}

// materialRef builds a material reference from query parameters.
// Exactly one of materialId / materialName must be supplied.
func (h *StockHandler) materialRef(c *gin.Context) (material.Ref, bool) {
	idParam := c.Query("materialId")
	name := c.Query("materialName")

	if idParam != "" {
		materialID, err := id.Parse(idParam)
		if err != nil {
			h.Error(c, apperror.NewValidation("invalid materialId").WithDetail("materialId", idParam))
			return material.Ref{}, false
		}
		return material.RefByID(materialID), true
	}

	if name != "" {
		return material.RefByName(name), true
	}

	h.Error(c, apperror.NewValidation("materialId or materialName is required"))
	return material.Ref{}, false
}

// --- Material cost register ---

// CreateCostRecord handles POST /register/material-cost.
func (h *StockHandler) CreateCostRecord(c *gin.Context) {
	var req dto.CreateStockRecordRequest
	if !h.BindJSON(c, &req) {
		return
	}

	materialID, err := id.Parse(req.MaterialID)
	if err != nil {
		h.Error(c, apperror.NewValidation("invalid materialId").WithDetail("materialId", req.MaterialID))
		return
	}

	rec, err := h.costs.CreateRecord(c.Request.Context(), materialID, req.MaterialName, req.InitialQty, req.InitialPrice)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.Created(c, dto.FromStockRecord(rec))
}

// GetCostRecord handles GET /register/material-cost/record.
func (h *StockHandler) GetCostRecord(c *gin.Context) {
	ref, ok := h.materialRef(c)
	if !ok {
		return
	}

	rec, err := h.costs.Get(c.Request.Context(), ref)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromStockRecord(rec))
}

// ListCostRecords handles GET /register/material-cost.
func (h *StockHandler) ListCostRecords(c *gin.Context) {
	filter := domain.DefaultListFilter()
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	result, err := h.costs.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromStockRecordList(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// RebuildCostRecord handles POST /register/material-cost/rebuild.
// Recomputes quantity and weighted average from the event history.
func (h *StockHandler) RebuildCostRecord(c *gin.Context) {
	ref, ok := h.materialRef(c)
	if !ok {
		return
	}

	if err := h.costs.Rebuild(c.Request.Context(), ref); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "cost record rebuilt")
}

// --- Finished goods register ---

// GetFinishedStock handles GET /register/finished-stock/:product.
func (h *StockHandler) GetFinishedStock(c *gin.Context) {
	stock, err := h.finished.Get(c.Request.Context(), c.Param("product"))
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.FromFinishedStock(stock))
}

// ListFinishedStock handles GET /register/finished-stock.
func (h *StockHandler) ListFinishedStock(c *gin.Context) {
	filter := domain.DefaultListFilter()
	filter.Search = c.Query("search")
	filter.Limit = h.ParseIntQuery(c, "limit", 50)
	filter.Offset = h.ParseIntQuery(c, "offset", 0)

	result, err := h.finished.List(c.Request.Context(), filter)
	if err != nil {
		h.Error(c, err)
		return
	}

	h.OK(c, dto.ListResponse{
		Items:      dto.FromFinishedStockList(result.Items),
		TotalCount: result.TotalCount,
		Limit:      result.Limit,
		Offset:     result.Offset,
	})
}

// AddFinishedStock handles POST /register/finished-stock/:product/add.
// Records produced cartons entering the dispatchable pool.
func (h *StockHandler) AddFinishedStock(c *gin.Context) {
	var req dto.AddFinishedStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.finished.Add(c.Request.Context(), c.Param("product"), req.Cartons); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "stock added")
}

// DeductFinishedStock handles POST /register/finished-stock/:product/deduct.
func (h *StockHandler) DeductFinishedStock(c *gin.Context) {
	var req dto.DeductFinishedStockRequest
	if !h.BindJSON(c, &req) {
		return
	}

	if err := h.finished.Deduct(c.Request.Context(), c.Param("product"), req.Unit, req.Quantity); err != nil {
		h.Error(c, err)
		return
	}

	h.Success(c, "stock deducted")
}
