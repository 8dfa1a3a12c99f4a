package category

import (
	"context"
	"fmt"
	"strings"

	"farmDirect/business/policy"
	"farmDirect/domain"
	"farmDirect/pkg/logger"
)

// CategoryRepository contract interface
type CategoryRepository interface {
	Create(ctx context.Context, category *domain.Category) error
	FindByID(ctx context.Context, id uint) (domain.Category, error)
	FindAll(ctx context.Context) ([]domain.Category, error)
	Update(ctx context.Context, category *domain.Category) error
	Delete(ctx context.Context, id uint) error
}

type categoryService struct {
	categoryRepo CategoryRepository
}

func NewCategoryService(categoryRepo CategoryRepository) *categoryService {
	return &categoryService{
		categoryRepo: categoryRepo,
	}
}

func (s *categoryService) GetAllCategories(ctx context.Context) ([]domain.Category, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when get all categories")
		return nil, fmt.Errorf("context error: %w", err)
	}

	categories, err := s.categoryRepo.FindAll(ctx)
	if err != nil {
		logger.Error("Failed to find all categories", err)
		return nil, err
	}

	return categories, nil
}

func (s *categoryService) GetCategoryByID(ctx context.Context, id uint) (domain.Category, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when get category by id")
		return domain.Category{}, fmt.Errorf("context error: %w", err)
	}

	if id == 0 {
		return domain.Category{}, domain.Validation("invalid category id")
	}

	return s.categoryRepo.FindByID(ctx, id)
}

func (s *categoryService) CreateCategory(ctx context.Context, session domain.Session, category *domain.Category) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when create category")
		return nil, fmt.Errorf("context error: %w", err)
	}

	if err := policy.Authorize(session, policy.ManageCategories, nil); err != nil {
		return nil, err
	}

	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return nil, domain.Validation("category name is required")
	}

	if err := s.categoryRepo.Create(ctx, category); err != nil {
		logger.Error("failed to create category", err)
		return nil, err
	}

	logger.Info("category created", "category_id", category.ID)

	return category, nil
}

func (s *categoryService) UpdateCategory(ctx context.Context, session domain.Session, category *domain.Category) (*domain.Category, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when updating category")
		return nil, fmt.Errorf("context error: %w", err)
	}

	if err := policy.Authorize(session, policy.ManageCategories, nil); err != nil {
		return nil, err
	}

	category.Name = strings.TrimSpace(category.Name)
	if category.Name == "" {
		return nil, domain.Validation("category name is required")
	}

	if err := s.categoryRepo.Update(ctx, category); err != nil {
		logger.Error("failed to update category", err)
		return nil, err
	}

	updated, err := s.categoryRepo.FindByID(ctx, category.ID)
	if err != nil {
		return nil, err
	}

	return &updated, nil
}

func (s *categoryService) DeleteCategory(ctx context.Context, session domain.Session, id uint) error {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when deleting category")
		return fmt.Errorf("context error: %w", err)
	}

	if err := policy.Authorize(session, policy.ManageCategories, nil); err != nil {
		return err
	}

	if err := s.categoryRepo.Delete(ctx, id); err != nil {
		logger.Error("failed to delete category", err)
		return err
	}

	logger.Info("category deleted", "category_id", id)

	return nil
}
