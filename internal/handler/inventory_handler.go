package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vrindashine1/erp-po-inventory/internal/middleware"
	"github.com/vrindashine1/erp-po-inventory/internal/service"
	"github.com/vrindashine1/erp-po-inventory/pkg/pagination"
	"github.com/vrindashine1/erp-po-inventory/pkg/response"
)

type InventoryHandler struct {
	inventoryService service.InventoryService
}

func NewInventoryHandler(inventoryService service.InventoryService) *InventoryHandler {
	return &InventoryHandler{inventoryService: inventoryService}
}

func (h *InventoryHandler) RegisterRoutes(router *gin.RouterGroup) {
	inventory := router.Group("/api/inventory-transactions", middleware.RequireAuth())
	{
		inventory.GET("", h.ListTransactions)
	}
}

// ListTransactions returns the movement ledger, newest first
// @Summary      List inventory transactions
// @Description  Retrieves the append-only inventory movement ledger. Manager role required
// @Tags         inventory
// @Security     BearerAuth
// @Produce      json
// @Param        page   query  int  false  "Page number (default 1)"
// @Param        limit  query  int  false  "Number of items per page (default 20)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      403  {object}  response.Response
// @Router       /api/inventory-transactions [get]
func (h *InventoryHandler) ListTransactions(c *gin.Context) {
	params := pagination.Parse(c)

	entries, total, err := h.inventoryService.ListTransactions(c.Request.Context(), middleware.GetActor(c), params.Page, params.Limit)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"transactions": entries,
		"total":        total,
		"page":         params.Page,
		"limit":        params.Limit,
	}))
}
