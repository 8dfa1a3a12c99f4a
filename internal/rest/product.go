package rest

import (
	"context"
	"net/http"
	"strings"
	"time"

	"farmDirect/domain"
	"farmDirect/internal/middleware"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
)

type ProductService interface {
	GetAllProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	GetProductByID(ctx context.Context, id uint) (domain.Product, error)
	GetMyProducts(ctx context.Context, session domain.Session) ([]domain.Product, error)
	CreateProduct(ctx context.Context, session domain.Session, product *domain.Product) (*domain.Product, error)
	UpdateProduct(ctx context.Context, session domain.Session, product *domain.Product) (*domain.Product, error)
	UpdateStock(ctx context.Context, session domain.Session, id uint, stock int) (domain.Product, error)
	DeleteProduct(ctx context.Context, session domain.Session, id uint) error
}

type ProductHandler struct {
	productService ProductService
	validator      *validator.Validate
	timeout        time.Duration
}

func NewProductHandler(productService ProductService, timeout time.Duration) *ProductHandler {
	return &ProductHandler{
		productService: productService,
		validator:      validator.New(),
		timeout:        timeout,
	}
}

type ProductRequest struct {
	Name        string          `json:"name" validate:"required"`
	Description string          `json:"description"`
	Price       decimal.Decimal `json:"price"`
	Stock       int             `json:"stock" validate:"gte=0"`
	CategoryID  *uint           `json:"category_id"`
	ImageURL    string          `json:"image_url"`
	FarmerID    uint            `json:"farmer_id"`
}

type StockRequest struct {
	Stock *int `json:"stock" validate:"required"`
}

func (r ProductRequest) toDomain() *domain.Product {
	return &domain.Product{
		FarmerID:    r.FarmerID,
		CategoryID:  r.CategoryID,
		Name:        r.Name,
		Description: r.Description,
		Price:       r.Price,
		Stock:       r.Stock,
		ImageURL:    r.ImageURL,
	}
}

func (h *ProductHandler) GetAllProducts(c echo.Context) error {
	categoryID, err := queryID(c, "category_id")
	if err != nil {
		return err
	}

	farmerID, err := queryID(c, "farmer_id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	products, err := h.productService.GetAllProducts(ctx, domain.ProductFilter{
		CategoryID: categoryID,
		FarmerID:   farmerID,
		Search:     strings.TrimSpace(c.QueryParam("search")),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(products))
}

func (h *ProductHandler) GetProductByID(c echo.Context) error {
	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	product, err := h.productService.GetProductByID(ctx, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(product))
}

func (h *ProductHandler) GetMyProducts(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	products, err := h.productService.GetMyProducts(ctx, session)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(products))
}

func (h *ProductHandler) CreateProduct(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	var req ProductRequest
	if err := bindRequest(c, h.validator, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	product, err := h.productService.CreateProduct(ctx, session, req.toDomain())
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(product))
}

func (h *ProductHandler) UpdateProduct(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req ProductRequest
	if err := bindRequest(c, h.validator, &req); err != nil {
		return err
	}

	product := req.toDomain()
	product.ID = id

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	updated, err := h.productService.UpdateProduct(ctx, session, product)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(updated))
}

func (h *ProductHandler) UpdateStock(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req StockRequest
	if err := bindRequest(c, h.validator, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	product, err := h.productService.UpdateStock(ctx, session, id, *req.Stock)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(product))
}

func (h *ProductHandler) DeleteProduct(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.productService.DeleteProduct(ctx, session, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
