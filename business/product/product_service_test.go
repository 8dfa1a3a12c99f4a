package product

import (
	"context"
	"sync"
	"testing"

	"farmDirect/domain"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type memoryProducts struct {
	mu       sync.Mutex
	products map[uint]domain.Product
	nextID   uint
}

func newMemoryProducts() *memoryProducts {
	return &memoryProducts{products: map[uint]domain.Product{}, nextID: 1}
}

func (m *memoryProducts) Create(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	p.ID = m.nextID
	m.nextID++
	m.products[p.ID] = *p
	return nil
}

func (m *memoryProducts) FindByID(_ context.Context, id uint) (domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return domain.Product{}, domain.NotFound("product not found")
	}
	return p, nil
}

func (m *memoryProducts) FindAll(_ context.Context, f domain.ProductFilter) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	var out []domain.Product
	for _, p := range m.products {
		if f.FarmerID != 0 && p.FarmerID != f.FarmerID {
			continue
		}
		out = append(out, p)
	}
	return out, nil
}

func (m *memoryProducts) Update(_ context.Context, p *domain.Product) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.products[p.ID]
	cur.Name, cur.Price, cur.Description, cur.CategoryID = p.Name, p.Price, p.Description, p.CategoryID
	m.products[p.ID] = cur
	return nil
}

func (m *memoryProducts) UpdateStock(_ context.Context, id uint, stock int) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	cur := m.products[id]
	if cur.Reserved > stock {
		return domain.Conflict("stock below reserved")
	}
	cur.Stock = stock
	m.products[id] = cur
	return nil
}

func (m *memoryProducts) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.products, id)
	return nil
}

type stubUsers map[uint]domain.User

func (s stubUsers) FindByID(_ context.Context, id uint) (domain.User, error) {
	u, ok := s[id]
	if !ok {
		return domain.User{}, domain.NotFound("user not found")
	}
	return u, nil
}

type stubCategories map[uint]domain.Category

func (s stubCategories) FindByID(_ context.Context, id uint) (domain.Category, error) {
	c, ok := s[id]
	if !ok {
		return domain.Category{}, domain.NotFound("category not found")
	}
	return c, nil
}

var (
	admin    = domain.Session{UserID: 1, Role: domain.RoleAdmin}
	farmer   = domain.Session{UserID: 2, Role: domain.RoleFarmer}
	neighbor = domain.Session{UserID: 3, Role: domain.RoleFarmer}
	consumer = domain.Session{UserID: 4, Role: domain.RoleConsumer}
)

func newService() (*productService, *memoryProducts) {
	repo := newMemoryProducts()
	users := stubUsers{
		1: {ID: 1, Role: domain.RoleAdmin},
		2: {ID: 2, Role: domain.RoleFarmer},
		3: {ID: 3, Role: domain.RoleFarmer},
		4: {ID: 4, Role: domain.RoleConsumer},
	}
	categories := stubCategories{1: {ID: 1, Name: "Fruits"}}
	return NewProductService(repo, users, categories), repo
}

func apples() *domain.Product {
	cat := uint(1)
	return &domain.Product{Name: "Red Apples", Price: decimal.NewFromInt(120), Stock: 50, CategoryID: &cat}
}

func TestCreateProduct(t *testing.T) {
	svc, _ := newService()

	p, err := svc.CreateProduct(context.Background(), farmer, apples())
	require.NoError(t, err)
	assert.Equal(t, uint(2), p.FarmerID)

	_, err = svc.CreateProduct(context.Background(), consumer, apples())
	assert.ErrorIs(t, err, domain.ErrForbidden)

	onBehalf := apples()
	onBehalf.FarmerID = 3
	p, err = svc.CreateProduct(context.Background(), admin, onBehalf)
	require.NoError(t, err)
	assert.Equal(t, uint(3), p.FarmerID)

	toConsumer := apples()
	toConsumer.FarmerID = 4
	_, err = svc.CreateProduct(context.Background(), admin, toConsumer)
	assert.ErrorIs(t, err, domain.ErrValidation)
}

func TestCreateProductValidation(t *testing.T) {
	svc, _ := newService()
	missing := uint(99)

	tests := []struct {
		name   string
		mutate func(p *domain.Product)
		kind   error
	}{
		{"blank name", func(p *domain.Product) { p.Name = "  " }, domain.ErrValidation},
		{"zero price", func(p *domain.Product) { p.Price = decimal.Zero }, domain.ErrValidation},
		{"fractional cents", func(p *domain.Product) { p.Price = decimal.RequireFromString("1.005") }, domain.ErrValidation},
		{"negative stock", func(p *domain.Product) { p.Stock = -1 }, domain.ErrValidation},
		{"unknown category", func(p *domain.Product) { p.CategoryID = &missing }, domain.ErrNotFound},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := apples()
			tt.mutate(p)
			_, err := svc.CreateProduct(context.Background(), farmer, p)
			assert.ErrorIs(t, err, tt.kind)
		})
	}
}

func TestOwnershipRules(t *testing.T) {
	svc, repo := newService()
	p, err := svc.CreateProduct(context.Background(), farmer, apples())
	require.NoError(t, err)

	update := apples()
	update.ID = p.ID
	update.Name = "Green Apples"

	_, err = svc.UpdateProduct(context.Background(), neighbor, update)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	updated, err := svc.UpdateProduct(context.Background(), farmer, update)
	require.NoError(t, err)
	assert.Equal(t, "Green Apples", updated.Name)

	assert.ErrorIs(t, svc.DeleteProduct(context.Background(), neighbor, p.ID), domain.ErrForbidden)
	require.NoError(t, svc.DeleteProduct(context.Background(), admin, p.ID))
	assert.Empty(t, repo.products)
}

func TestUpdateStock(t *testing.T) {
	svc, repo := newService()
	p, err := svc.CreateProduct(context.Background(), farmer, apples())
	require.NoError(t, err)

	held := repo.products[p.ID]
	held.Reserved = 10
	repo.products[p.ID] = held

	_, err = svc.UpdateStock(context.Background(), farmer, p.ID, -1)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateStock(context.Background(), farmer, p.ID, 9)
	assert.ErrorIs(t, err, domain.ErrValidation)

	_, err = svc.UpdateStock(context.Background(), neighbor, p.ID, 20)
	assert.ErrorIs(t, err, domain.ErrForbidden)

	got, err := svc.UpdateStock(context.Background(), farmer, p.ID, 20)
	require.NoError(t, err)
	assert.Equal(t, 20, got.Stock)
	assert.Equal(t, 10, got.Available())
}

func TestGetMyProducts(t *testing.T) {
	svc, _ := newService()
	_, err := svc.CreateProduct(context.Background(), farmer, apples())
	require.NoError(t, err)
	other := apples()
	other.FarmerID = 3
	_, err = svc.CreateProduct(context.Background(), admin, other)
	require.NoError(t, err)

	mine, err := svc.GetMyProducts(context.Background(), farmer)
	require.NoError(t, err)
	assert.Len(t, mine, 1)

	_, err = svc.GetMyProducts(context.Background(), consumer)
	assert.ErrorIs(t, err, domain.ErrForbidden)
}
