package service

import (
	"context"
	"errors"
	"fmt"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"gorm.io/gorm"

	"github.com/vrindashine1/erp-po-inventory/internal/apperror"
	"github.com/vrindashine1/erp-po-inventory/internal/authz"
	"github.com/vrindashine1/erp-po-inventory/internal/model"
	"github.com/vrindashine1/erp-po-inventory/internal/repository"
)

// DTOs
type CreateProductRequest struct {
	Name             string          `json:"name" binding:"required"`
	Description      string          `json:"description"`
	SKU              string          `json:"sku" binding:"required"`
	ReorderThreshold decimal.Decimal `json:"reorder_threshold"`
}

type UpdateProductRequest struct {
	Name             string           `json:"name"`
	Description      string           `json:"description"`
	SKU              string           `json:"sku"`
	ReorderThreshold *decimal.Decimal `json:"reorder_threshold"`
}

type ProductResponse struct {
	ID               string          `json:"id"`
	Name             string          `json:"name"`
	Description      string          `json:"description"`
	SKU              string          `json:"sku"`
	CurrentStock     decimal.Decimal `json:"current_stock"`
	ReorderThreshold decimal.Decimal `json:"reorder_threshold"`
	ReorderNeeded    bool            `json:"reorder_needed"`
}

type ProductService interface {
	Create(ctx context.Context, actor authz.Actor, req CreateProductRequest) (*ProductResponse, error)
	Update(ctx context.Context, actor authz.Actor, id string, req UpdateProductRequest) (*ProductResponse, error)
	Delete(ctx context.Context, actor authz.Actor, id string) error
	GetByID(ctx context.Context, id string) (*ProductResponse, error)
	List(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error)
}

type productService struct {
	repo repository.ProductRepository
}

func NewProductService(repo repository.ProductRepository) ProductService {
	return &productService{repo: repo}
}

// toProductResponse recomputes reorder_needed on every read; the flag is
// never stored.
func toProductResponse(p *model.Product) *ProductResponse {
	return &ProductResponse{
		ID:               p.ID.String(),
		Name:             p.Name,
		Description:      p.Description,
		SKU:              p.SKU,
		CurrentStock:     p.CurrentStock,
		ReorderThreshold: p.ReorderThreshold,
		ReorderNeeded:    p.ReorderNeeded(),
	}
}

func (s *productService) Create(ctx context.Context, actor authz.Actor, req CreateProductRequest) (*ProductResponse, error) {
	if d := authz.CanPerform(actor, authz.ActionWriteProduct, nil); !d.Allowed {
		return nil, apperror.Forbidden("%s", d.Reason)
	}

	if req.ReorderThreshold.IsNegative() {
		return nil, apperror.Validation("reorder_threshold must not be negative")
	}

	product := model.Product{
		Name:             req.Name,
		Description:      req.Description,
		SKU:              req.SKU,
		CurrentStock:     decimal.Zero,
		ReorderThreshold: req.ReorderThreshold,
	}

	if err := s.repo.Create(ctx, &product); err != nil {
		return nil, fmt.Errorf("failed to create product: %w", err)
	}
	return toProductResponse(&product), nil
}

// Update never touches current_stock: stock only moves through goods
// receipts and the inventory ledger.
func (s *productService) Update(ctx context.Context, actor authz.Actor, id string, req UpdateProductRequest) (*ProductResponse, error) {
	if d := authz.CanPerform(actor, authz.ActionWriteProduct, nil); !d.Allowed {
		return nil, apperror.Forbidden("%s", d.Reason)
	}

	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid product id: %s", id)
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product %s not found", id)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}

	if req.Name != "" {
		product.Name = req.Name
	}
	if req.Description != "" {
		product.Description = req.Description
	}
	if req.SKU != "" {
		product.SKU = req.SKU
	}
	if req.ReorderThreshold != nil {
		if req.ReorderThreshold.IsNegative() {
			return nil, apperror.Validation("reorder_threshold must not be negative")
		}
		product.ReorderThreshold = *req.ReorderThreshold
	}

	if err := s.repo.Update(ctx, product); err != nil {
		return nil, fmt.Errorf("failed to update product: %w", err)
	}
	return toProductResponse(product), nil
}

func (s *productService) Delete(ctx context.Context, actor authz.Actor, id string) error {
	if d := authz.CanPerform(actor, authz.ActionWriteProduct, nil); !d.Allowed {
		return apperror.Forbidden("%s", d.Reason)
	}

	productID, err := uuid.Parse(id)
	if err != nil {
		return apperror.Validation("invalid product id: %s", id)
	}

	if _, err := s.repo.FindByID(ctx, productID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return apperror.NotFound("product %s not found", id)
		}
		return fmt.Errorf("failed to load product: %w", err)
	}

	if err := s.repo.Delete(ctx, productID); err != nil {
		return fmt.Errorf("failed to delete product: %w", err)
	}
	return nil
}

func (s *productService) GetByID(ctx context.Context, id string) (*ProductResponse, error) {
	productID, err := uuid.Parse(id)
	if err != nil {
		return nil, apperror.Validation("invalid product id: %s", id)
	}

	product, err := s.repo.FindByID(ctx, productID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, apperror.NotFound("product %s not found", id)
		}
		return nil, fmt.Errorf("failed to load product: %w", err)
	}
	return toProductResponse(product), nil
}

func (s *productService) List(ctx context.Context, page, limit int, search string) ([]ProductResponse, int64, error) {
	if page <= 0 {
		page = 1
	}
	if limit <= 0 {
		limit = 20
	}

	products, total, err := s.repo.List(ctx, page, limit, search)
	if err != nil {
		return nil, 0, fmt.Errorf("failed to list products: %w", err)
	}

	result := make([]ProductResponse, 0, len(products))
	for i := range products {
		result = append(result, *toProductResponse(&products[i]))
	}
	return result, total, nil
}
