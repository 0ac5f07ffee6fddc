package service

import (
	"github.com/shopspring/decimal"

	"github.com/vrindashine1/erp-po-inventory/internal/apperror"
	"github.com/vrindashine1/erp-po-inventory/internal/model"
)

// applyReceipt validates one receipt line against the item's ordered and
// already-received quantities, then increments the received quantity.
// It returns the applied delta for the caller to propagate to the product
// stock and the inventory ledger. No clamping: a line that would exceed
// the ordered quantity fails instead of being truncated.
func applyReceipt(item *model.PurchaseOrderItem, qty decimal.Decimal) (decimal.Decimal, error) {
	if qty.LessThanOrEqual(decimal.Zero) {
		return decimal.Zero, apperror.Validation(
			"received quantity for item %s must be positive", item.Product.Name)
	}

	if item.ReceivedQuantity.Add(qty).GreaterThan(item.OrderedQuantity) {
		return decimal.Zero, apperror.OverReceipt(
			item.Product.Name, item.OrderedQuantity, item.ReceivedQuantity, qty)
	}

	item.ReceivedQuantity = item.ReceivedQuantity.Add(qty)
	return qty, nil
}

// recomputeStatus derives the post-receipt order status from the item set.
// Callers invoke it once per receive call, after all lines were applied, so
// at least one unit has been received by the time it runs.
func recomputeStatus(items []model.PurchaseOrderItem) string {
	for i := range items {
		if !items[i].FullyReceived() {
			return model.POStatusPartiallyDelivered
		}
	}
	return model.POStatusCompleted
}

// orderTotal sums the line subtotals. Computed once at creation and frozen.
func orderTotal(items []model.PurchaseOrderItem) decimal.Decimal {
	total := decimal.Zero
	for i := range items {
		total = total.Add(items[i].Subtotal())
	}
	return total
}
