package rest

import (
	"context"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"farmDirect/domain"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockProductService struct {
	GetAllProductsFunc func(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error)
	CreateProductFunc  func(ctx context.Context, session domain.Session, product *domain.Product) (*domain.Product, error)
	UpdateStockFunc    func(ctx context.Context, session domain.Session, id uint, stock int) (domain.Product, error)
}

func (m *mockProductService) GetAllProducts(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return m.GetAllProductsFunc(ctx, filter)
}

func (m *mockProductService) GetProductByID(context.Context, uint) (domain.Product, error) {
	return domain.Product{}, domain.NotFound("product not found")
}

func (m *mockProductService) GetMyProducts(context.Context, domain.Session) ([]domain.Product, error) {
	return nil, nil
}

func (m *mockProductService) CreateProduct(ctx context.Context, session domain.Session, product *domain.Product) (*domain.Product, error) {
	return m.CreateProductFunc(ctx, session, product)
}

func (m *mockProductService) UpdateProduct(_ context.Context, _ domain.Session, product *domain.Product) (*domain.Product, error) {
	return product, nil
}

func (m *mockProductService) UpdateStock(ctx context.Context, session domain.Session, id uint, stock int) (domain.Product, error) {
	return m.UpdateStockFunc(ctx, session, id, stock)
}

func (m *mockProductService) DeleteProduct(context.Context, domain.Session, uint) error {
	return nil
}

func TestListProductsPassesFilters(t *testing.T) {
	var got domain.ProductFilter
	svc := &mockProductService{
		GetAllProductsFunc: func(_ context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
			got = filter
			return []domain.Product{{ID: 7, Name: "Red Apples"}}, nil
		},
	}

	e := newTestEcho()
	e.GET("/products", NewProductHandler(svc, time.Second).GetAllProducts)

	rec := serve(e, httptest.NewRequest(http.MethodGet, "/products?category_id=2&search=+apple+", nil))
	assert.Equal(t, http.StatusOK, rec.Code)
	require.NotNil(t, got.CategoryID)
	assert.Equal(t, uint(2), *got.CategoryID)
	assert.Nil(t, got.FarmerID)
	assert.Equal(t, "apple", got.Search)

	rec = serve(e, httptest.NewRequest(http.MethodGet, "/products?farmer_id=x", nil))
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestCreateProductHandler(t *testing.T) {
	farmer := domain.Session{UserID: 2, Role: domain.RoleFarmer}
	svc := &mockProductService{
		CreateProductFunc: func(_ context.Context, session domain.Session, p *domain.Product) (*domain.Product, error) {
			assert.Equal(t, farmer, session)
			assert.True(t, p.Price.Equal(decimal.RequireFromString("120.50")))
			p.ID = 9
			return p, nil
		},
	}

	e := newTestEcho()
	e.POST("/products", NewProductHandler(svc, time.Second).CreateProduct, withSession(farmer))

	req := httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"Red Apples","price":"120.50","stock":50}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec := serve(e, req)
	assert.Equal(t, http.StatusCreated, rec.Code)

	req = httptest.NewRequest(http.MethodPost, "/products", strings.NewReader(`{"name":"Red Apples","price":"1","stock":-1}`))
	req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
	rec = serve(e, req)
	assert.Equal(t, http.StatusBadRequest, rec.Code)
}

func TestUpdateStockHandler(t *testing.T) {
	svc := &mockProductService{
		UpdateStockFunc: func(_ context.Context, _ domain.Session, id uint, stock int) (domain.Product, error) {
			if stock < 3 {
				return domain.Product{}, domain.Conflict("stock cannot drop below reserved quantity")
			}
			return domain.Product{ID: id, Stock: stock, Reserved: 3}, nil
		},
	}

	e := newTestEcho()
	e.PATCH("/products/:id/stock", NewProductHandler(svc, time.Second).UpdateStock, withSession(domain.Session{UserID: 2, Role: domain.RoleFarmer}))

	patch := func(body string) *httptest.ResponseRecorder {
		req := httptest.NewRequest(http.MethodPatch, "/products/7/stock", strings.NewReader(body))
		req.Header.Set(echo.HeaderContentType, echo.MIMEApplicationJSON)
		return serve(e, req)
	}

	assert.Equal(t, http.StatusOK, patch(`{"stock":10}`).Code)
	assert.Equal(t, http.StatusConflict, patch(`{"stock":1}`).Code)
	assert.Equal(t, http.StatusBadRequest, patch(`{}`).Code)
}
