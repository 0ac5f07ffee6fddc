package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/vrindashine1/erp-po-inventory/internal/middleware"
	"github.com/vrindashine1/erp-po-inventory/internal/service"
	"github.com/vrindashine1/erp-po-inventory/pkg/pagination"
	"github.com/vrindashine1/erp-po-inventory/pkg/response"
)

type PurchaseOrderHandler struct {
	poService service.PurchaseOrderService
}

func NewPurchaseOrderHandler(poService service.PurchaseOrderService) *PurchaseOrderHandler {
	return &PurchaseOrderHandler{poService: poService}
}

func (h *PurchaseOrderHandler) RegisterRoutes(router *gin.RouterGroup) {
	orders := router.Group("/api/purchase-orders", middleware.RequireAuth())
	{
		orders.GET("", h.ListPurchaseOrders)
		orders.POST("", h.CreatePurchaseOrder)
		orders.GET("/:id", h.GetPurchaseOrder)
		orders.POST("/:id/approve", h.ApprovePurchaseOrder)
		orders.POST("/:id/receive-goods", h.ReceiveGoods)
		orders.DELETE("/:id", h.DeletePurchaseOrder)
	}
}

// ListPurchaseOrders returns paginated purchase orders
// @Summary      List purchase orders
// @Description  Retrieves a paginated list of purchase orders, optionally filtered by exact status
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        page    query     int     false  "Page number (default 1)"
// @Param        limit   query     int     false  "Number of items per page (default 20)"
// @Param        status  query     string  false  "Exact status filter (Pending, Approved, Partially Delivered, Completed, Cancelled)"
// @Success      200  {object}  response.Response{data=object}
// @Failure      500  {object}  response.Response
// @Router       /api/purchase-orders [get]
func (h *PurchaseOrderHandler) ListPurchaseOrders(c *gin.Context) {
	params := pagination.Parse(c)

	filter := service.PoListFilter{
		Status: c.Query("status"),
		Page:   params.Page,
		Limit:  params.Limit,
	}

	orders, total, err := h.poService.List(c.Request.Context(), middleware.GetActor(c), filter)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, map[string]interface{}{
		"purchase_orders": orders,
		"total":           total,
		"page":            params.Page,
		"limit":           params.Limit,
	}))
}

// CreatePurchaseOrder creates a Pending purchase order with its items
// @Summary      Create purchase order
// @Description  Creates a purchase order in Pending status, assigning po_number and total_amount in one transaction
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        payload  body      service.CreatePurchaseOrderRequest  true  "Create Purchase Order Payload"
// @Success      201      {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Failure      500      {object}  response.Response
// @Router       /api/purchase-orders [post]
func (h *PurchaseOrderHandler) CreatePurchaseOrder(c *gin.Context) {
	var req service.CreatePurchaseOrderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.Create(c.Request.Context(), middleware.GetActor(c), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusCreated, response.Success(http.StatusCreated, po))
}

// GetPurchaseOrder returns one purchase order with its items
// @Summary      Get purchase order
// @Description  Retrieves a purchase order by ID including items and received quantities
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase Order ID"
// @Success      200  {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id} [get]
func (h *PurchaseOrderHandler) GetPurchaseOrder(c *gin.Context) {
	po, err := h.poService.GetByID(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// ApprovePurchaseOrder moves a Pending order to Approved
// @Summary      Approve purchase order
// @Description  Approves a Pending purchase order. Manager role required; sets approver and approval timestamp exactly once
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase Order ID"
// @Success      200  {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id}/approve [post]
func (h *PurchaseOrderHandler) ApprovePurchaseOrder(c *gin.Context) {
	po, err := h.poService.Approve(c.Request.Context(), middleware.GetActor(c), c.Param("id"))
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// ReceiveGoods records a goods receipt against an order
// @Summary      Receive goods
// @Description  Applies receipt lines to an Approved or Partially Delivered order, updating received quantities, stock and the inventory ledger atomically
// @Tags         purchase-orders
// @Security     BearerAuth
// @Accept       json
// @Produce      json
// @Param        id       path      string                       true  "Purchase Order ID"
// @Param        payload  body      service.ReceiveGoodsRequest  true  "Receipt Lines Payload"
// @Success      200      {object}  response.Response{data=service.PurchaseOrderResponse}
// @Failure      400      {object}  response.Response
// @Failure      403      {object}  response.Response
// @Failure      404      {object}  response.Response
// @Router       /api/purchase-orders/{id}/receive-goods [post]
func (h *PurchaseOrderHandler) ReceiveGoods(c *gin.Context) {
	var req service.ReceiveGoodsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, response.Error(http.StatusBadRequest, "Invalid request payload: "+err.Error()))
		return
	}

	po, err := h.poService.ReceiveGoods(c.Request.Context(), middleware.GetActor(c), c.Param("id"), req)
	if err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, po))
}

// DeletePurchaseOrder removes a Pending order
// @Summary      Delete purchase order
// @Description  Deletes a Pending purchase order. Managers may delete any; the creator may delete their own
// @Tags         purchase-orders
// @Security     BearerAuth
// @Produce      json
// @Param        id   path      string  true  "Purchase Order ID"
// @Success      200  {object}  response.Response
// @Failure      400  {object}  response.Response
// @Failure      403  {object}  response.Response
// @Failure      404  {object}  response.Response
// @Router       /api/purchase-orders/{id} [delete]
func (h *PurchaseOrderHandler) DeletePurchaseOrder(c *gin.Context) {
	if err := h.poService.Delete(c.Request.Context(), middleware.GetActor(c), c.Param("id")); err != nil {
		respondError(c, err)
		return
	}

	c.JSON(http.StatusOK, response.Success(http.StatusOK, "Purchase order deleted successfully"))
}
