package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vrindashine1/erp-po-inventory/internal/model"
)

type PurchaseOrderRepository interface {
	Create(ctx context.Context, po *model.PurchaseOrder) error
	CreateItem(ctx context.Context, item *model.PurchaseOrderItem) error
	Save(ctx context.Context, po *model.PurchaseOrder) error
	SaveItem(ctx context.Context, item *model.PurchaseOrderItem) error
	Delete(ctx context.Context, id uuid.UUID) error
	FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error)
	List(ctx context.Context, page, limit int, status string) ([]model.PurchaseOrder, int64, error)
	NextPoNumber(ctx context.Context) (string, error)
}

type purchaseOrderRepository struct {
	db *gorm.DB
}

func NewPurchaseOrderRepository(db *gorm.DB) PurchaseOrderRepository {
	return &purchaseOrderRepository{db: db}
}

func (r *purchaseOrderRepository) Create(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Create(po).Error
}

func (r *purchaseOrderRepository) CreateItem(ctx context.Context, item *model.PurchaseOrderItem) error {
	return GetDB(ctx, r.db).Create(item).Error
}

func (r *purchaseOrderRepository) Save(ctx context.Context, po *model.PurchaseOrder) error {
	return GetDB(ctx, r.db).Omit("Items", "Supplier", "CreatedBy", "ApprovedBy").Save(po).Error
}

func (r *purchaseOrderRepository) SaveItem(ctx context.Context, item *model.PurchaseOrderItem) error {
	return GetDB(ctx, r.db).Omit("Product").Save(item).Error
}

func (r *purchaseOrderRepository) Delete(ctx context.Context, id uuid.UUID) error {
	db := GetDB(ctx, r.db)
	if err := db.Where("purchase_order_id = ?", id).Delete(&model.PurchaseOrderItem{}).Error; err != nil {
		return err
	}
	return db.Where("id = ?", id).Delete(&model.PurchaseOrder{}).Error
}

func (r *purchaseOrderRepository) FindByIDWithItems(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	var po model.PurchaseOrder
	if err := GetDB(ctx, r.db).
		Preload("Items").
		Preload("Items.Product").
		Preload("Supplier").
		Preload("CreatedBy").
		Preload("ApprovedBy").
		First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}
	return &po, nil
}

// FindByIDForUpdate locks the PO row for the rest of the transaction, then
// loads its items. Approve, receive and delete all go through this so the
// read-validate-write sequence is atomic per PO.
func (r *purchaseOrderRepository) FindByIDForUpdate(ctx context.Context, id uuid.UUID) (*model.PurchaseOrder, error) {
	db := GetDB(ctx, r.db)

	var po model.PurchaseOrder
	if err := db.Clauses(clause.Locking{Strength: "UPDATE"}).
		First(&po, "id = ?", id).Error; err != nil {
		return nil, err
	}

	if err := db.Preload("Product").
		Where("purchase_order_id = ?", id).
		Order("created_at asc").
		Find(&po.Items).Error; err != nil {
		return nil, err
	}

	return &po, nil
}

func (r *purchaseOrderRepository) List(ctx context.Context, page, limit int, status string) ([]model.PurchaseOrder, int64, error) {
	var orders []model.PurchaseOrder
	var total int64

	db := GetDB(ctx, r.db).Model(&model.PurchaseOrder{})
	if status != "" {
		db = db.Where("status = ?", status)
	}

	if err := db.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	offset := (page - 1) * limit
	if err := db.
		Preload("Items").
		Preload("Items.Product").
		Preload("Supplier").
		Preload("CreatedBy").
		Preload("ApprovedBy").
		Order("order_date DESC, created_at DESC").
		Offset(offset).Limit(limit).
		Find(&orders).Error; err != nil {
		return nil, 0, err
	}

	return orders, total, nil
}

// NextPoNumber increments the dedicated sequence row under a row lock and
// formats the result as PO-NNNNN. Taking the number and persisting the PO
// happen in the same transaction, so a failed creation aborts both and the
// committed counter never skips or reuses a value it handed out.
func (r *purchaseOrderRepository) NextPoNumber(ctx context.Context) (string, error) {
	db := GetDB(ctx, r.db)

	var seq model.PoSequence
	err := db.Clauses(clause.Locking{Strength: "UPDATE"}).First(&seq).Error
	if errors.Is(err, gorm.ErrRecordNotFound) {
		seq = model.PoSequence{LastValue: 0}
		if err := db.Create(&seq).Error; err != nil {
			return "", err
		}
	} else if err != nil {
		return "", err
	}

	seq.LastValue++
	if err := db.Save(&seq).Error; err != nil {
		return "", err
	}

	return fmt.Sprintf("PO-%05d", seq.LastValue), nil
}
