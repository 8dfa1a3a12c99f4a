package postgres

import (
	"context"
	"fmt"

	"farmDirect/domain"

	"gorm.io/gorm"
)

type CategoryRepository struct {
	DB *gorm.DB
}

func NewCategoryRepository(db *gorm.DB) *CategoryRepository {
	return &CategoryRepository{
		DB: db,
	}
}

func (r *CategoryRepository) Create(ctx context.Context, category *domain.Category) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := r.DB.WithContext(ctx).Create(category).Error; err != nil {
		return wrap(translate(err, "category not found", "category already exists"), "failed to create category")
	}

	return nil
}

func (r *CategoryRepository) withCount(ctx context.Context) *gorm.DB {
	return r.DB.WithContext(ctx).Model(&domain.Category{}).
		Select("categories.*, (SELECT COUNT(*) FROM products p WHERE p.category_id = categories.id) AS product_count")
}

func (r *CategoryRepository) FindByID(ctx context.Context, id uint) (domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return domain.Category{}, fmt.Errorf("context error: %w", err)
	}

	var category domain.Category

	err := r.withCount(ctx).Where("categories.id = ?", id).First(&category).Error
	if err != nil {
		return domain.Category{}, wrap(translate(err, "category not found", ""), "failed to find category")
	}

	return category, nil
}

func (r *CategoryRepository) FindAll(ctx context.Context) ([]domain.Category, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var categories []domain.Category
	err := r.withCount(ctx).Order("categories.name").Find(&categories).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find categories: %w", err)
	}

	return categories, nil
}

func (r *CategoryRepository) Update(ctx context.Context, category *domain.Category) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Model(&domain.Category{}).
		Where("id = ?", category.ID).
		Updates(map[string]interface{}{"name": category.Name, "unit": category.Unit})
	if result.Error != nil {
		return wrap(translate(result.Error, "category not found", "category already exists"), "failed to update category")
	}
	if result.RowsAffected == 0 {
		return domain.NotFound("category not found")
	}

	return nil
}

func (r *CategoryRepository) Delete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	result := r.DB.WithContext(ctx).Delete(&domain.Category{}, id)
	if result.Error != nil {
		return wrap(translate(result.Error, "category not found", ""), "failed to delete category")
	}
	if result.RowsAffected == 0 {
		return domain.NotFound("category not found")
	}

	return nil
}
