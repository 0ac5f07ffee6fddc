package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// Transaction direction constants
const (
	TxTypeIn  = "In"
	TxTypeOut = "Out"
)

// InventoryTransaction is the append-only movement ledger. Rows are never
// updated or deleted; corrections happen by appending offsetting entries.
type InventoryTransaction struct {
	ID                  uuid.UUID          `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	ProductID           uuid.UUID          `gorm:"type:uuid;not null;index" json:"product_id"`
	Product             Product            `gorm:"foreignKey:ProductID" json:"-"`
	TransactionType     string             `gorm:"type:varchar(3);not null" json:"transaction_type"` // In, Out
	Quantity            decimal.Decimal    `gorm:"type:decimal(10,2);not null" json:"quantity"`
	TransactionDate     time.Time          `gorm:"autoCreateTime;index" json:"transaction_date"`
	PurchaseOrderItemID *uuid.UUID         `gorm:"type:uuid;index" json:"purchase_order_item_id"`
	PurchaseOrderItem   *PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderItemID" json:"-"`
}
