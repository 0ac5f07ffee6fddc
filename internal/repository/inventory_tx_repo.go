package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/vrindashine1/erp-po-inventory/internal/model"
)

// InventoryTxRepository is the ledger recorder. The interface deliberately
// has no update or delete: entries are immutable once appended.
type InventoryTxRepository interface {
	Create(ctx context.Context, tx *model.InventoryTransaction) error
	List(ctx context.Context, page, limit int) ([]model.InventoryTransaction, int64, error)
}

type inventoryTxRepository struct {
	db *gorm.DB
}

func NewInventoryTxRepository(db *gorm.DB) InventoryTxRepository {
	return &inventoryTxRepository{db: db}
}

func (r *inventoryTxRepository) Create(ctx context.Context, tx *model.InventoryTransaction) error {
	return GetDB(ctx, r.db).Create(tx).Error
}

func (r *inventoryTxRepository) List(ctx context.Context, page, limit int) ([]model.InventoryTransaction, int64, error) {
	var entries []model.InventoryTransaction
	var total int64

	db := GetDB(ctx, r.db).Model(&model.InventoryTransaction{})
	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Product").
		Order("transaction_date DESC").
		Offset(offset).Limit(limit).
		Find(&entries).Error; err != nil {
		return nil, 0, err
	}

	return entries, total, nil
}
