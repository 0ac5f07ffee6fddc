package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
)

// PO status constants
const (
	POStatusPending            = "Pending"
	POStatusApproved           = "Approved"
	POStatusPartiallyDelivered = "Partially Delivered"
	POStatusCompleted          = "Completed"
	POStatusCancelled          = "Cancelled"
)

// PurchaseOrder is an order placed with a supplier for specified product
// quantities at agreed prices. po_number, order_date, total_amount and
// created_by are frozen at creation; approved_by/approval_date are set
// exactly once, at approval.
type PurchaseOrder struct {
	ID                   uuid.UUID           `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PoNumber             string              `gorm:"type:varchar(50);uniqueIndex;not null" json:"po_number"`
	SupplierID           uuid.UUID           `gorm:"type:uuid;not null;index" json:"supplier_id"`
	Supplier             Supplier            `gorm:"foreignKey:SupplierID" json:"-"`
	OrderDate            time.Time           `gorm:"type:date;not null" json:"order_date"`
	ExpectedDeliveryDate *time.Time          `gorm:"type:date" json:"expected_delivery_date"`
	Status               string              `gorm:"type:varchar(20);not null;default:'Pending';index" json:"status"`
	TotalAmount          decimal.Decimal     `gorm:"type:decimal(10,2);not null;default:0" json:"total_amount"`
	CreatedByID          uuid.UUID           `gorm:"type:uuid;not null;index" json:"created_by"`
	CreatedBy            User                `gorm:"foreignKey:CreatedByID" json:"-"`
	ApprovedByID         *uuid.UUID          `gorm:"type:uuid" json:"approved_by"`
	ApprovedBy           *User               `gorm:"foreignKey:ApprovedByID" json:"-"`
	ApprovalDate         *time.Time          `json:"approval_date"`
	Items                []PurchaseOrderItem `gorm:"foreignKey:PurchaseOrderID;constraint:OnDelete:CASCADE" json:"items"`
	CreatedAt            time.Time           `json:"created_at"`
	UpdatedAt            time.Time           `json:"updated_at"`
}

// PurchaseOrderItem is one product line of a purchase order.
// ordered_quantity and unit_price are immutable after creation;
// received_quantity only ever grows, bounded by ordered_quantity.
type PurchaseOrderItem struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	PurchaseOrderID  uuid.UUID       `gorm:"type:uuid;not null;index:idx_po_product,unique" json:"purchase_order_id"`
	ProductID        uuid.UUID       `gorm:"type:uuid;not null;index:idx_po_product,unique" json:"product_id"`
	Product          Product         `gorm:"foreignKey:ProductID" json:"-"`
	OrderedQuantity  decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"ordered_quantity"`
	ReceivedQuantity decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"received_quantity"`
	UnitPrice        decimal.Decimal `gorm:"type:decimal(10,2);not null" json:"unit_price"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
}

// Subtotal is ordered_quantity x unit_price, derived, never stored
func (i *PurchaseOrderItem) Subtotal() decimal.Decimal {
	return i.OrderedQuantity.Mul(i.UnitPrice)
}

// FullyReceived reports whether the line has nothing left to receive
func (i *PurchaseOrderItem) FullyReceived() bool {
	return i.ReceivedQuantity.GreaterThanOrEqual(i.OrderedQuantity)
}

// PoSequence holds the monotonic counter backing po_number assignment.
// A single row is incremented under a row lock inside the creation
// transaction, so concurrent creates cannot take the same number.
type PoSequence struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	LastValue int64     `gorm:"not null;default:0" json:"last_value"`
	UpdatedAt time.Time `json:"updated_at"`
}
