package postgres

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"farmDirect/domain"

	"gorm.io/gorm"
)

type ProductRepository struct {
	DB *gorm.DB
}

func NewProductRepository(db *gorm.DB) *ProductRepository {
	return &ProductRepository{
		DB: db,
	}
}

func (r *ProductRepository) Create(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Omit("Farmer", "Category").Create(product).Error; err != nil {
		return wrap(translate(err, "product not found", "product already exists"), "failed to create product")
	}

	return nil
}

func (r *ProductRepository) FindByID(ctx context.Context, id uint) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("context error: %w", err)
	}

	var product domain.Product

	err := r.DB.WithContext(ctx).Preload("Farmer").Preload("Category").First(&product, id).Error
	if err != nil {
		return domain.Product{}, wrap(translate(err, "product not found", ""), "failed to find product")
	}

	return product, nil
}

func (r *ProductRepository) FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	query := r.DB.WithContext(ctx).Preload("Farmer").Preload("Category")

	if filter.CategoryID != 0 {
		query = query.Where("category_id = ?", filter.CategoryID)
	}
	if filter.FarmerID != 0 {
		query = query.Where("farmer_id = ?", filter.FarmerID)
	}
	if s := strings.TrimSpace(filter.Search); s != "" {
		like := "%" + strings.ToLower(s) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(description) LIKE ?", like, like)
	}

	var products []domain.Product
	if err := query.Order("created_at DESC").Find(&products).Error; err != nil {
		return nil, fmt.Errorf("failed to find products: %w", err)
	}

	return products, nil
}

func (r *ProductRepository) Update(ctx context.Context, product *domain.Product) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	updateData := map[string]interface{}{
		"name":        product.Name,
		"description": product.Description,
		"price":       product.Price,
		"category_id": product.CategoryID,
		"image_url":   product.ImageURL,
		"updated_at":  time.Now().UTC(),
	}

	result := r.DB.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", product.ID).Updates(updateData)
	if result.Error != nil {
		return wrap(translate(result.Error, "product not found", "product already exists"), "failed to update product")
	}
	if result.RowsAffected == 0 {
		return domain.NotFound("product not found")
	}

	return nil
}

// UpdateStock sets the on-hand quantity unless it would fall below what
// unpaid orders already hold.
func (r *ProductRepository) UpdateStock(ctx context.Context, id uint, stock int) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Model(&domain.Product{}).
		Where("id = ? AND reserved <= ?", id, stock).
		Updates(map[string]interface{}{"stock": stock, "updated_at": time.Now().UTC()})
	if result.Error != nil {
		return wrap(translate(result.Error, "product not found", ""), "failed to update stock")
	}

	if result.RowsAffected == 0 {
		var count int64
		if err := r.DB.WithContext(ctx).Model(&domain.Product{}).Where("id = ?", id).Count(&count).Error; err != nil {
			return fmt.Errorf("failed to check product: %w", err)
		}
		if count == 0 {
			return domain.NotFound("product not found")
		}
		return domain.Conflict("stock cannot be lower than the quantity held by pending orders")
	}

	return nil
}

func (r *ProductRepository) Delete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Delete(&domain.Product{}, id)
	if result.Error != nil {
		if errors.Is(translate(result.Error, "product not found", ""), domain.ErrConflict) {
			return domain.WrapError(domain.ErrConflict, "product has orders and cannot be deleted", result.Error)
		}
		return fmt.Errorf("failed to delete product: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return domain.NotFound("product not found")
	}

	return nil
}
