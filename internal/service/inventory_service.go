package service

import (
	"context"
	"fmt"

	"github.com/shopspring/decimal"

	"github.com/vrindashine1/erp-po-inventory/internal/apperror"
	"github.com/vrindashine1/erp-po-inventory/internal/authz"
	"github.com/vrindashine1/erp-po-inventory/internal/model"
	"github.com/vrindashine1/erp-po-inventory/internal/repository"
)

type InventoryTransactionResponse struct {
	ID                  string          `json:"id"`
	ProductID           string          `json:"product_id"`
	ProductName         string          `json:"product_name"`
	TransactionType     string          `json:"transaction_type"`
	Quantity            decimal.Decimal `json:"quantity"`
	TransactionDate     string          `json:"transaction_date"`
	PurchaseOrderItemID *string         `json:"purchase_order_item_id"`
}

// InventoryService exposes the movement ledger read-only. Appends happen
// exclusively inside the goods-receipt transaction.
type InventoryService interface {
	ListTransactions(ctx context.Context, actor authz.Actor, page, limit int) ([]InventoryTransactionResponse, int64, error)
}

type inventoryService struct {
	ledgerRepo repository.InventoryTxRepository
}

func NewInventoryService(ledgerRepo repository.InventoryTxRepository) InventoryService {
	return &inventoryService{ledgerRepo: ledgerRepo}
}

func (s *inventoryService) ListTransactions(ctx context.Context, actor authz.Actor, page, limit int) ([]InventoryTransactionResponse, int64, error) {
	if d := authz.CanPerform(actor, authz.ActionViewLedger, nil); !d.Allowed {
		return nil, 0, apperror.Forbidden("%s", d.Reason)
	}

	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	entries, total, err := s.ledgerRepo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list inventory transactions: %w", err)
	}

	result := make([]InventoryTransactionResponse, 0, len(entries))
	for i := range entries {
		result = append(result, toInventoryTxResponse(&entries[i]))
	}
	return result, total, nil
}

func toInventoryTxResponse(tx *model.InventoryTransaction) InventoryTransactionResponse {
	resp := InventoryTransactionResponse{
		ID:              tx.ID.String(),
		ProductID:       tx.ProductID.String(),
		ProductName:     tx.Product.Name,
		TransactionType: tx.TransactionType,
		Quantity:        tx.Quantity,
		TransactionDate: tx.TransactionDate.Format("2006-01-02T15:04:05Z07:00"),
	}
	if tx.PurchaseOrderItemID != nil {
		itemID := tx.PurchaseOrderItemID.String()
		resp.PurchaseOrderItemID = &itemID
	}
	return resp
}
