package model

import (
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"
)

// Product represents a stocked item identified by SKU
type Product struct {
	ID               uuid.UUID       `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	Name             string          `gorm:"type:varchar(255);uniqueIndex;not null" json:"name"`
	Description      string          `gorm:"type:text" json:"description"`
	SKU              string          `gorm:"type:varchar(50);uniqueIndex;not null" json:"sku"`
	CurrentStock     decimal.Decimal `gorm:"type:decimal(10,2);not null;default:0" json:"current_stock"`
	ReorderThreshold decimal.Decimal `gorm:"type:decimal(10,2);not null;default:10" json:"reorder_threshold"`
	CreatedAt        time.Time       `json:"created_at"`
	UpdatedAt        time.Time       `json:"updated_at"`
	DeletedAt        gorm.DeletedAt  `gorm:"index" json:"-"`
}

// ReorderNeeded flags stock below the reorder threshold.
// Derived on read, never stored.
func (p *Product) ReorderNeeded() bool {
	return p.CurrentStock.LessThan(p.ReorderThreshold)
}
