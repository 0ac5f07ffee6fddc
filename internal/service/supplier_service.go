package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"gorm.io/gorm"

	"github.com/vrindashine1/erp-po-inventory/internal/apperror"
	"github.com/vrindashine1/erp-po-inventory/internal/authz"
	"github.com/vrindashine1/erp-po-inventory/internal/model"
	"github.com/vrindashine1/erp-po-inventory/internal/repository"
)

// DTOs
type CreateSupplierRequest struct {
	Name          string `json:"name" binding:"required"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email" binding:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

type UpdateSupplierRequest struct {
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email" binding:"omitempty,email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

type SupplierResponse struct {
	ID            string `json:"id"`
	Name          string `json:"name"`
	ContactPerson string `json:"contact_person"`
	Email         string `json:"email"`
	Phone         string `json:"phone"`
	Address       string `json:"address"`
}

type SupplierService interface {
	Create(ctx context.Context, actor authz.Actor, req CreateSupplierRequest) (*SupplierResponse, error)
	Update(ctx context.Context, actor authz.Actor, id string, req UpdateSupplierRequest) (*SupplierResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id string) error
	GetByID(ctx context.Context, id string) (*SupplierResponse, error)
	List(ctx context.Context, page, limit int) ([]SupplierResponse, int64, error)
}

type supplierService struct {
	repo      repository.SupplierRepository
	txManager repository.TransactionManager
}

func NewSupplierService(repo repository.SupplierRepository, txManager repository.TransactionManager) SupplierService {
	return &supplierService{repo: repo, txManager: txManager}
}

func toSupplierResponse(s *model.Supplier) *SupplierResponse {
	return &SupplierResponse{
		ID:            s.ID.String(),
		Name:          s.Name,
		ContactPerson: s.ContactPerson,
		Email:         s.Email,
		Phone:         s.Phone,
		Address:       s.Address,
	}
}

func (s *supplierService) Create(ctx context.Context, actor authz.Actor, req CreateSupplierRequest) (*SupplierResponse, error) {
	if d := authz.CanPerform(actor, authz.ActionWriteSupplier, nil); !d.Allowed {
		return nil, apperror.Forbidden("%s", d.Reason)
	}

	supplier := model.Supplier{
		Name:          req.Name,
		ContactPerson: req.ContactPerson,
		Email:         req.Email,
		Phone:         req.Phone,
		Address:       req.Address,
	}

	if err := s.repo.Create(ctx, &supplier); err != nil {
		return nil, fmt.Errorf("failed to create supplier: %w", err)
	}
	return toSupplierResponse(&supplier), nil
}

func (s *supplierService) Update(ctx context.Context, actor authz.Actor, id string, req UpdateSupplierRequest) (*SupplierResponse, error) {
	if d := authz.CanPerform(actor, authz.ActionWriteSupplier, nil); !d.Allowed {
		return nil, apperror.Forbidden("%s", d.Reason)
	}

	supplierID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid supplier id: %s", id)
	}

	supplier, err := s.repo.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("supplier %s not found", id)
		}
		return nil, fmt.Errorf("failed to load supplier: %w", err)
	}

	if req.Name != "" {
		supplier.Name = req.Name
	}
	if req.ContactPerson != "" {
		supplier.ContactPerson = req.ContactPerson
	}
	if req.Email != "" {
		supplier.Email = req.Email
	}
	if req.Phone != "" {
		supplier.Phone = req.Phone
	}
	if req.Address != "" {
		supplier.Address = req.Address
	}

	if err := s.repo.Update(ctx, supplier); err != nil {
		return nil, fmt.Errorf("failed to update supplier: %w", err)
	}
	return toSupplierResponse(supplier), nil
}

// Delete removes a supplier unless purchase orders still reference it.
// The check and the delete share one transaction so a concurrent create
// cannot slip a referencing order in between.
func (s *supplierService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if d := authz.CanPerform(actor, authz.ActionWriteSupplier, nil); !d.Allowed {
		return apperror.Forbidden("%s", d.Reason)
	}

	supplierID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid supplier id: %s", id)
	}

	return s.txManager.RunInTx(ctx, func(txCtx context.Context) error {
		if _, findErr := s.repo.FindByID(txCtx, supplierID); findErr != nil {
			if errors.Is(findErr, gorm.ErrRecordNotFound) {
				return apperror.NotFound("supplier %s not found", id)
			}
			return fmt.Errorf("failed to load supplier: %w", findErr)
		}

		count, countErr := s.repo.CountReferencingOrders(txCtx, supplierID)
		if countErr != nil {
			return fmt.Errorf("failed to count referencing orders: %w", countErr)
		}
		if count > 0 {
			return apperror.InvalidState("supplier is referenced by %d purchase order(s) and cannot be deleted", count)
		}

		if delErr := s.repo.Delete(txCtx, supplierID); delErr != nil {
			return fmt.Errorf("failed to delete supplier: %w", delErr)
		}
		return nil
	})
}

func (s *supplierService) GetByID(ctx context.Context, id string) (*SupplierResponse, error) {
	supplierID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid supplier id: %s", id)
	}

	supplier, err := s.repo.FindByID(ctx, supplierID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("supplier %s not found", id)
		}
		return nil, fmt.Errorf("failed to load supplier: %w", err)
	}
	return toSupplierResponse(supplier), nil
}

func (s *supplierService) List(ctx context.Context, page, limit int) ([]SupplierResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	suppliers, total, err := s.repo.List(ctx, page, limit)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list suppliers: %w", err)
	}

	result := make([]SupplierResponse, 0, len(suppliers))
	for i := range suppliers {
		result = append(result, *toSupplierResponse(&suppliers[i]))
	}
	return result, total, nil
}
