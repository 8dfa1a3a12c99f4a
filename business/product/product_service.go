package product

import (
	"context"
	"fmt"
	"strings"

	"farmDirect/business/policy"
	"farmDirect/domain"
	"farmDirect/pkg/logger"
)

// ProductRepository contract interface
type ProductRepository interface {
	Create(ctx context.Context, product *domain.Product) error
	FindByID(ctx context.Context, id uint) (domain.Product, error)
	FindAll(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	Update(ctx context.Context, product *domain.Product) error
	UpdateStock(ctx context.Context, id uint, stock int) error
	Delete(ctx context.Context, id uint) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
}

type CategoryRepository interface {
	FindByID(ctx context.Context, id uint) (domain.Category, error)
}

type productService struct {
	productRepo  ProductRepository
	userRepo     UserRepository
	categoryRepo CategoryRepository
}

func NewProductService(productRepo ProductRepository, userRepo UserRepository, categoryRepo CategoryRepository) *productService {
	return &productService{
		productRepo:  productRepo,
		userRepo:     userRepo,
		categoryRepo: categoryRepo,
	}
}

func (s *productService) GetAllProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when get all product")
		return nil, fmt.Errorf("context error: %w", err)
	}

	products, err := s.productRepo.FindAll(ctx, filter)
	if err != nil {
		logger.Error("Failed to find all product", err)
		return nil, err
	}

	return products, nil
}

func (s *productService) GetProductByID(ctx context.Context, id uint) (domain.Product, error) {
	if id == 0 {
		return domain.Product{}, domain.Validation("invalid product id")
	}

	if err := ctx.Err(); err != nil {
		logger.Error("context error when get product")
		return domain.Product{}, fmt.Errorf("context error: %w", err)
	}

	product, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		logger.Error("failed to find product by id", err)
		return domain.Product{}, err
	}

	return product, nil
}

func (s *productService) GetMyProducts(ctx context.Context, session domain.Session) ([]domain.Product, error) {
	if err := policy.Authorize(session, policy.ListOwnProducts, nil); err != nil {
		return nil, err
	}

	return s.GetAllProducts(ctx, domain.ProductFilter{FarmerID: session.UserID})
}

// CreateProduct lists a product for the calling farmer. Admins must name
// the farmer the product belongs to.
func (s *productService) CreateProduct(ctx context.Context, session domain.Session, product *domain.Product) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when create product")
		return nil, fmt.Errorf("context error: %w", err)
	}

	if err := policy.Authorize(session, policy.CreateProduct, nil); err != nil {
		return nil, err
	}

	if session.Role == domain.RoleFarmer || product.FarmerID == 0 {
		product.FarmerID = session.UserID
	}

	if err := validate(product); err != nil {
		logger.Error("Invalid product data", err)
		return nil, err
	}

	if product.Stock < 0 {
		return nil, domain.Validation("stock cannot be negative")
	}
	product.Reserved = 0

	farmer, err := s.userRepo.FindByID(ctx, product.FarmerID)
	if err != nil {
		return nil, err
	}
	if farmer.Role != domain.RoleFarmer {
		return nil, domain.Validation("products can only belong to farmers")
	}

	if err := s.checkCategory(ctx, product.CategoryID); err != nil {
		return nil, err
	}

	if err := s.productRepo.Create(ctx, product); err != nil {
		logger.Error("failed to create new product", err)
		return nil, err
	}

	logger.Info("product created successfully", "product_id", product.ID, "farmer_id", product.FarmerID)

	return product, nil
}

func (s *productService) UpdateProduct(ctx context.Context, session domain.Session, product *domain.Product) (*domain.Product, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when updating product")
		return nil, fmt.Errorf("context error: %w", err)
	}

	if product.ID == 0 {
		return nil, domain.Validation("product ID is required")
	}

	existing, err := s.productRepo.FindByID(ctx, product.ID)
	if err != nil {
		return nil, err
	}

	if err := policy.Authorize(session, policy.UpdateProduct, policy.Owned(existing.FarmerID)); err != nil {
		return nil, err
	}

	product.FarmerID = existing.FarmerID
	if err := validate(product); err != nil {
		logger.Error("Invalid product data", err)
		return nil, err
	}

	if err := s.checkCategory(ctx, product.CategoryID); err != nil {
		return nil, err
	}

	if err := s.productRepo.Update(ctx, product); err != nil {
		logger.Error("failed to update product", err)
		return nil, err
	}

	updatedProduct, err := s.productRepo.FindByID(ctx, product.ID)
	if err != nil {
		logger.Error("failed to fetch updated product", err)
		return nil, err
	}

	logger.Info("product updated success", "product_id", product.ID)

	return &updatedProduct, nil
}

func (s *productService) UpdateStock(ctx context.Context, session domain.Session, id uint, stock int) (domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return domain.Product{}, fmt.Errorf("context error: %w", err)
	}

	if stock < 0 {
		return domain.Product{}, domain.Validation("stock cannot be negative")
	}

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return domain.Product{}, err
	}

	if err := policy.Authorize(session, policy.UpdateProductStock, policy.Owned(existing.FarmerID)); err != nil {
		return domain.Product{}, err
	}

	if stock < existing.Reserved {
		return domain.Product{}, domain.Validation(fmt.Sprintf("stock cannot be lower than the %d units held by pending orders", existing.Reserved))
	}

	if err := s.productRepo.UpdateStock(ctx, id, stock); err != nil {
		logger.Error("failed to update stock", err, "product_id", id)
		return domain.Product{}, err
	}

	logger.Info("product stock updated", "product_id", id, "stock", stock)

	return s.productRepo.FindByID(ctx, id)
}

func (s *productService) DeleteProduct(ctx context.Context, session domain.Session, id uint) error {
	if id == 0 {
		return domain.Validation("invalid product id")
	}

	if err := ctx.Err(); err != nil {
		logger.Error("context error when deleting product")
		return fmt.Errorf("context error: %w", err)
	}

	existing, err := s.productRepo.FindByID(ctx, id)
	if err != nil {
		return err
	}

	if err := policy.Authorize(session, policy.DeleteProduct, policy.Owned(existing.FarmerID)); err != nil {
		return err
	}

	if err := s.productRepo.Delete(ctx, id); err != nil {
		logger.Error("failed to delete product", err)
		return err
	}

	logger.Info("product deleted success", "product_id", id)

	return nil
}

func (s *productService) checkCategory(ctx context.Context, id *uint) error {
	if id == nil || *id == 0 {
		return nil
	}

	if _, err := s.categoryRepo.FindByID(ctx, *id); err != nil {
		return err
	}

	return nil
}

func validate(p *domain.Product) error {
	p.Name = strings.TrimSpace(p.Name)
	if p.Name == "" {
		return domain.Validation("product name is required")
	}

	if !p.Price.IsPositive() {
		return domain.Validation("price must be greater than 0")
	}

	if p.Price.Exponent() < -2 {
		return domain.Validation("price cannot have more than 2 decimal places")
	}

	return nil
}
