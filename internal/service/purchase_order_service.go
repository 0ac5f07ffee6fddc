package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vrindashine1/erp-po-inventory/internal/apperror"
	"github.com/vrindashine1/erp-po-inventory/internal/authz"
	"github.com/vrindashine1/erp-po-inventory/internal/model"
	"github.com/vrindashine1/erp-po-inventory/internal/repository"
	ws "github.com/vrindashine1/erp-po-inventory/internal/websocket"
)

// --- DTOs ---

type CreatePoItemRequest struct {
	ProductID       string          `json:"product_id" binding:"required"`
	OrderedQuantity decimal.Decimal `json:"ordered_quantity" binding:"required"`
	UnitPrice       decimal.Decimal `json:"unit_price" binding:"required"`
}

type CreatePurchaseOrderRequest struct {
	SupplierID           string                `json:"supplier_id" binding:"required"`
	ExpectedDeliveryDate string                `json:"expected_delivery_date"` // YYYY-MM-DD, optional
	Items                []CreatePoItemRequest `json:"items" binding:"required,min=1,dive"`
}

type ReceiveLineRequest struct {
	ItemID      string          `json:"item_id" binding:"required"`
	ReceivedQty decimal.Decimal `json:"received_qty" binding:"required"`
}

type ReceiveGoodsRequest struct {
	Items []ReceiveLineRequest `json:"items" binding:"required,min=1,dive"`
}

type PoListFilter struct {
	Status string
	Page   int
	Limit  int
}

type PoItemResponse struct {
	ID               string          `json:"id"`
	ProductID        string          `json:"product_id"`
	ProductName      string          `json:"product_name"`
	OrderedQuantity  decimal.Decimal `json:"ordered_quantity"`
	ReceivedQuantity decimal.Decimal `json:"received_quantity"`
	UnitPrice        decimal.Decimal `json:"unit_price"`
	Subtotal         decimal.Decimal `json:"subtotal"`
}

type PurchaseOrderResponse struct {
	ID                   string           `json:"id"`
	PoNumber             string           `json:"po_number"`
	SupplierID           string           `json:"supplier_id"`
	SupplierName         string           `json:"supplier_name"`
	OrderDate            string           `json:"order_date"`
	ExpectedDeliveryDate *string          `json:"expected_delivery_date"`
	Status               string           `json:"status"`
	TotalAmount          decimal.Decimal  `json:"total_amount"`
	CreatedBy            string           `json:"created_by"`
	CreatedByUsername    string           `json:"created_by_username"`
	ApprovedBy           *string          `json:"approved_by"`
	ApprovedByUsername   string           `json:"approved_by_username"`
	ApprovalDate         *string          `json:"approval_date"`
	ItemsCount           int              `json:"items_count"`
	Items                []PoItemResponse `json:"items"`
}

// stockEvent is broadcast over the websocket hub after a receipt commits
type stockEvent struct {
	Event         string          `json:"event"`
	ProductID     string          `json:"product_id"`
	ProductName   string          `json:"product_name"`
	CurrentStock  decimal.Decimal `json:"current_stock"`
	ReorderNeeded bool            `json:"reorder_needed"`
}

// --- Interface ---

type PurchaseOrderService interface {
	Create(ctx context.Context, actor authz.Actor, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error)
	Approve(ctx context.Context, actor authz.Actor, id string) (*PurchaseOrderResponse, error)
	ReceiveGoods(ctx context.Context, actor authz.Actor, id string, req ReceiveGoodsRequest) (*PurchaseOrderResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id string) error
	GetByID(ctx context.Context, actor authz.Actor, id string) (*PurchaseOrderResponse, error)
	List(ctx context.Context, actor authz.Actor, filter PoListFilter) ([]PurchaseOrderResponse, int64, error)
}

type purchaseOrderService struct {
	poRepo       repository.PurchaseOrderRepository
	supplierRepo repository.SupplierRepository
	productRepo  repository.ProductRepository
	ledgerRepo   repository.InventoryTxRepository
	txManager    repository.TransactionManager
	hub          *ws.Hub
}

func NewPurchaseOrderService(
	poRepo repository.PurchaseOrderRepository,
	supplierRepo repository.SupplierRepository,
	productRepo repository.ProductRepository,
	ledgerRepo repository.InventoryTxRepository,
	txManager repository.TransactionManager,
	hub *ws.Hub,
) PurchaseOrderService {
	return &purchaseOrderService{
		poRepo:       poRepo,
		supplierRepo: supplierRepo,
		productRepo:  productRepo,
		ledgerRepo:   ledgerRepo,
		txManager:    txManager,
		hub:          hub,
	}
}

// --- Implementation ---

func (s *purchaseOrderService) Create(ctx context.Context, actor authz.Actor, req CreatePurchaseOrderRequest) (*PurchaseOrderResponse, error) {
	if d := authz.CanPerform(actor, authz.ActionCreatePO, nil); !d.Allowed {
		return nil, apperror.Forbidden("%s", d.Reason)
	}

	supplierID, err := uuid.Parse(req.SupplierID)
	if err != nil {
		return nil, apperror.Validation("invalid supplier_id: %s", req.SupplierID)
	}

	if len(req.Items) == 0 {
		return nil, apperror.Validation("a purchase order must have at least one item")
	}

	var expectedDelivery *time.Time
	if req.ExpectedDeliveryDate != "" {
		parsed, parseErr := time.Parse("2006-01-02", req.ExpectedDeliveryDate)
		if parseErr != nil {
			return nil, apperror.Validation("invalid expected_delivery_date: %s (want YYYY-MM-DD)", req.ExpectedDeliveryDate)
		}
		expectedDelivery = &parsed
	}

	seenProducts := make(map[uuid.UUID]bool, len(req.Items))
	items := make([]model.PurchaseOrderItem, 0, len(req.Items))
	for _, itemReq := range req.Items {
		productID, parseErr := uuid.Parse(itemReq.ProductID)
		if parseErr != nil {
			return nil, apperror.Validation("invalid product_id: %s", itemReq.ProductID)
		}
		if itemReq.OrderedQuantity.LessThanOrEqual(decimal.Zero) {
			return nil, apperror.Validation("ordered_quantity must be positive for product %s", itemReq.ProductID)
		}
		if itemReq.UnitPrice.LessThanOrEqual(decimal.Zero) {
			return nil, apperror.Validation("unit_price must be positive for product %s", itemReq.ProductID)
		}
		if seenProducts[productID] {
			return nil, apperror.Validation("product %s appears more than once in the order", itemReq.ProductID)
		}
		seenProducts[productID] = true

		items = append(items, model.PurchaseOrderItem{
			ProductID:        productID,
			OrderedQuantity:  itemReq.OrderedQuantity,
			ReceivedQuantity: decimal.Zero,
			UnitPrice:        itemReq.UnitPrice,
		})
	}

	var po model.PurchaseOrder
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, findErr := s.supplierRepo.FindByID(txCtx, supplierID); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("supplier %s not found", supplierID)
			}
			return fmt.Errorf("failed to load supplier: %w", findErr)
		}

		for i := range items {
			if _, findErr := s.productRepo.FindByID(txCtx, items[i].ProductID); findErr != nil {
				if errors.Is(findErr, gorm.ErrRecordNotFound) {
					return apperror.NotFound("product %s not found", items[i].ProductID)
				}
				return fmt.Errorf("failed to load product: %w", findErr)
			}
		}

		poNumber, seqErr := s.poRepo.NextPoNumber(txCtx)
		if seqErr != nil {
			return fmt.Errorf("failed to assign po number: %w", seqErr)
		}

		po = model.PurchaseOrder{
			PoNumber:             poNumber,
			SupplierID:           supplierID,
			OrderDate:            time.Now(),
			ExpectedDeliveryDate: expectedDelivery,
			Status:               model.POStatusPending,
			TotalAmount:          orderTotal(items),
			CreatedByID:          actor.ID,
		}
		if createErr := s.poRepo.Create(txCtx, &po); createErr != nil {
			return fmt.Errorf("failed to create purchase order: %w", createErr)
		}

		for i := range items {
			items[i].PurchaseOrderID = po.ID
			if itemErr := s.poRepo.CreateItem(txCtx, &items[i]); itemErr != nil {
				return fmt.Errorf("failed to create purchase order item: %w", itemErr)
			}
		}

		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, po.ID)
}

func (s *purchaseOrderService) Approve(ctx context.Context, actor authz.Actor, id string) (*PurchaseOrderResponse, error) {
	if d := authz.CanPerform(actor, authz.ActionApprovePO, nil); !d.Allowed {
		return nil, apperror.Forbidden("%s", d.Reason)
	}

	poID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid purchase order id: %s", id)
	}

	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, findErr := s.poRepo.FindByIDForUpdate(txCtx, poID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("purchase order %s not found", id)
			}
			return fmt.Errorf("failed to load purchase order: %w", findErr)
		}

		if po.Status != model.POStatusPending {
			return apperror.InvalidState("PO status is %s. Only Pending orders can be approved", po.Status)
		}

		now := time.Now()
		po.Status = model.POStatusApproved
		po.ApprovedByID = &actor.ID
		po.ApprovalDate = &now

		if saveErr := s.poRepo.Save(txCtx, po); saveErr != nil {
			return fmt.Errorf("failed to approve purchase order: %w", saveErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	return s.reload(ctx, poID)
}

// ReceiveGoods applies a list of receipt lines to an order. All lines
// succeed or none do: any validation, over-receipt or storage failure
// aborts the transaction and no item, stock or ledger change survives.
// Per line the ordering is fixed: item update, then stock increment under
// a product row lock, then ledger append.
func (s *purchaseOrderService) ReceiveGoods(ctx context.Context, actor authz.Actor, id string, req ReceiveGoodsRequest) (*PurchaseOrderResponse, error) {
	if d := authz.CanPerform(actor, authz.ActionReceiveGoods, nil); !d.Allowed {
		return nil, apperror.Forbidden("%s", d.Reason)
	}

	poID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid purchase order id: %s", id)
	}

	if len(req.Items) == 0 {
		return nil, apperror.Validation("no items provided for receiving")
	}

	var events []stockEvent
	err = s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, findErr := s.poRepo.FindByIDForUpdate(txCtx, poID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("purchase order %s not found", id)
			}
			return fmt.Errorf("failed to load purchase order: %w", findErr)
		}

		if po.Status != model.POStatusApproved && po.Status != model.POStatusPartiallyDelivered {
			return apperror.InvalidState(
				"goods can only be received for Approved or Partially Delivered orders, got %s", po.Status)
		}

		itemsByID := make(map[uuid.UUID]*model.PurchaseOrderItem, len(po.Items))
		for i := range po.Items {
			itemsByID[po.Items[i].ID] = &po.Items[i]
		}

		for _, line := range req.Items {
			itemID, parseErr := uuid.Parse(line.ItemID)
			if parseErr != nil {
				return apperror.Validation("invalid item_id: %s", line.ItemID)
			}

			item, ok := itemsByID[itemID]
			if !ok {
				return apperror.NotFound("purchase order item %s not found in this PO", line.ItemID)
			}

			delta, applyErr := applyReceipt(item, line.ReceivedQty)
			if applyErr != nil {
				return applyErr
			}

			if saveErr := s.poRepo.SaveItem(txCtx, item); saveErr != nil {
				return fmt.Errorf("failed to update received quantity: %w", saveErr)
			}

			product, lockErr := s.productRepo.FindByIDForUpdate(txCtx, item.ProductID)
			if lockErr != nil {
				return fmt.Errorf("failed to lock product %s: %w", item.ProductID, lockErr)
			}

			newStock := product.CurrentStock.Add(delta)
			if stockErr := s.productRepo.UpdateStock(txCtx, product.ID, newStock); stockErr != nil {
				return fmt.Errorf("failed to update stock for product %s: %w", product.Name, stockErr)
			}

			entry := model.InventoryTransaction{
				ProductID:           product.ID,
				TransactionType:     model.TxTypeIn,
				Quantity:            delta,
				PurchaseOrderItemID: &item.ID,
			}
			if ledgerErr := s.ledgerRepo.Create(txCtx, &entry); ledgerErr != nil {
				return fmt.Errorf("failed to record inventory transaction: %w", ledgerErr)
			}

			events = append(events, stockEvent{
				Event:         "stock_updated",
				ProductID:     product.ID.String(),
				ProductName:   product.Name,
				CurrentStock:  newStock,
				ReorderNeeded: newStock.LessThan(product.ReorderThreshold),
			})
		}

		po.Status = recomputeStatus(po.Items)
		if saveErr := s.poRepo.Save(txCtx, po); saveErr != nil {
			return fmt.Errorf("failed to update purchase order status: %w", saveErr)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	// Broadcast only after the transaction committed
	if s.hub != nil {
		for _, event := range events {
			if payload, marshalErr := json.Marshal(event); marshalErr == nil {
				s.hub.Broadcast <- payload
			}
		}
	}

	return s.reload(ctx, poID)
}

func (s *purchaseOrderService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	poID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid purchase order id: %s", id)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		po, findErr := s.poRepo.FindByIDForUpdate(txCtx, poID)
		if findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("purchase order %s not found", id)
			}
			return fmt.Errorf("failed to load purchase order: %w", findErr)
		}

		// State guard comes first: a non-Pending order is undeletable
		// no matter who asks.
		if po.Status != model.POStatusPending {
			return apperror.InvalidState("only Pending purchase orders can be deleted, got %s", po.Status)
		}

		if d := authz.CanPerform(actor, authz.ActionDeletePO, po); !d.Allowed {
			return apperror.Forbidden("%s", d.Reason)
		}

		if delErr := s.poRepo.Delete(txCtx, poID); delErr != nil {
			return fmt.Errorf("failed to delete purchase order: %w", delErr)
		}
		return nil
	})
}

func (s *purchaseOrderService) GetByID(ctx context.Context, actor authz.Actor, id string) (*PurchaseOrderResponse, error) {
	if d := authz.CanPerform(actor, authz.ActionReadPO, nil); !d.Allowed {
		return nil, apperror.Forbidden("%s", d.Reason)
	}

	poID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid purchase order id: %s", id)
	}

	return s.reload(ctx, poID)
}

func (s *purchaseOrderService) List(ctx context.Context, actor authz.Actor, filter PoListFilter) ([]PurchaseOrderResponse, int64, error) {
	if d := authz.CanPerform(actor, authz.ActionReadPO, nil); !d.Allowed {
		return nil, 0, apperror.Forbidden("%s", d.Reason)
	}

	if filter.Page <= 0 {
		filter.Page = 1
	}
	if filter.Limit <= 0 {
		filter.Limit = 20
	}

	orders, total, err := s.poRepo.List(ctx, filter.Page, filter.Limit, filter.Status)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list purchase orders: %w", err)
	}

	result := make([]PurchaseOrderResponse, 0, len(orders))
	for i := range orders {
		result = append(result, *toPurchaseOrderResponse(&orders[i]))
	}
	return result, total, nil
}

func (s *purchaseOrderService) reload(ctx context.Context, id uuid.UUID) (*PurchaseOrderResponse, error) {
	po, err := s.poRepo.FindByIDWithItems(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("purchase order %s not found", id)
		}
		return nil, fmt.Errorf("failed to reload purchase order: %w", err)
	}
	return toPurchaseOrderResponse(po), nil
}

func toPurchaseOrderResponse(po *model.PurchaseOrder) *PurchaseOrderResponse {
	items := make([]PoItemResponse, 0, len(po.Items))
	for i := range po.Items {
		item := &po.Items[i]
		items = append(items, PoItemResponse{
			ID:               item.ID.String(),
			ProductID:        item.ProductID.String(),
			ProductName:      item.Product.Name,
			OrderedQuantity:  item.OrderedQuantity,
			ReceivedQuantity: item.ReceivedQuantity,
			UnitPrice:        item.UnitPrice,
			Subtotal:         item.Subtotal(),
		})
	}

	resp := &PurchaseOrderResponse{
		ID:                 po.ID.String(),
		PoNumber:           po.PoNumber,
		SupplierID:         po.SupplierID.String(),
		SupplierName:       po.Supplier.Name,
		OrderDate:          po.OrderDate.Format("2006-01-02"),
		Status:             po.Status,
		TotalAmount:        po.TotalAmount,
		CreatedBy:          po.CreatedByID.String(),
		CreatedByUsername:  po.CreatedBy.Username,
		ApprovedByUsername: "",
		ItemsCount:         len(items),
		Items:              items,
	}
	if po.ExpectedDeliveryDate != nil {
		formatted := po.ExpectedDeliveryDate.Format("2006-01-02")
		resp.ExpectedDeliveryDate = &formatted
	}
	if po.ApprovedByID != nil {
		approvedBy := po.ApprovedByID.String()
		resp.ApprovedBy = &approvedBy
	}
	if po.ApprovedBy != nil {
		resp.ApprovedByUsername = po.ApprovedBy.Username
	}
	if po.ApprovalDate != nil {
		formatted := po.ApprovalDate.Format(time.RFC3339)
		resp.ApprovalDate = &formatted
	}
	return resp
}
