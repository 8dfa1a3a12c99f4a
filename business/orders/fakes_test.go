package orders

import (
	"context"
	"fmt"
	"sync"
	"time"

	"farmDirect/domain"

	"github.com/shopspring/decimal"
)

// memoryStore mirrors the transactional behaviour of the postgres
// repository: every call holds the lock for its whole duration and undoes
// its own writes on failure.
type memoryStore struct {
	mu       sync.Mutex
	products map[uint]*domain.Product
	users    map[uint]*domain.User
	orders   map[uint]*domain.Order
	nextID   uint
	events   []string
}

func newMemoryStore() *memoryStore {
	return &memoryStore{
		products: map[uint]*domain.Product{},
		users:    map[uint]*domain.User{},
		orders:   map[uint]*domain.Order{},
		nextID:   1,
	}
}

func (m *memoryStore) addUser(u domain.User) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.users[u.ID] = &u
}

func (m *memoryStore) addProduct(p domain.Product) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.products[p.ID] = &p
}

func (m *memoryStore) product(id uint) domain.Product {
	m.mu.Lock()
	defer m.mu.Unlock()
	return *m.products[id]
}

func (m *memoryStore) balance(userID uint) decimal.Decimal {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.users[userID].Balance
}

func (m *memoryStore) orderCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.orders)
}

func (m *memoryStore) Create(_ context.Context, userID uint, lines []domain.OrderLine, submit domain.PaymentSubmitter) (domain.Order, domain.PaymentSubmission, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	order := domain.Order{ID: m.nextID, UserID: userID, Status: domain.OrderPending, Total: decimal.Zero}
	for _, l := range lines {
		p, ok := m.products[l.ProductID]
		if !ok {
			return domain.Order{}, domain.PaymentSubmission{}, domain.NotFound(fmt.Sprintf("product %d not found", l.ProductID))
		}
		if p.Available() < l.Quantity {
			return domain.Order{}, domain.PaymentSubmission{}, domain.Validation(fmt.Sprintf("insufficient stock for %s", p.Name))
		}
		item := domain.OrderItem{OrderID: order.ID, ProductID: p.ID, Quantity: l.Quantity, Price: p.Price}
		order.Total = order.Total.Add(item.Subtotal())
		order.Items = append(order.Items, item)
	}

	submission, err := submit(order)
	if err != nil {
		return domain.Order{}, domain.PaymentSubmission{}, err
	}

	for _, item := range order.Items {
		m.products[item.ProductID].Reserved += item.Quantity
	}
	order.PaymentTrackingID = &submission.TrackingID
	m.orders[order.ID] = &order
	m.nextID++
	m.events = append(m.events, domain.EventOrderCreated)

	return m.snapshot(&order), submission, nil
}

func (m *memoryStore) FindByID(_ context.Context, id uint) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return domain.Order{}, domain.NotFound("order not found")
	}

	return m.snapshot(o), nil
}

func (m *memoryStore) List(_ context.Context, scope domain.OrderScope) ([]domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	var out []domain.Order
	for _, o := range m.orders {
		snap := m.snapshot(o)
		switch {
		case scope.All:
		case scope.UserID != 0 && o.UserID != scope.UserID:
			continue
		case scope.FarmerID != 0 && !containsID(snap.FarmerIDs(), scope.FarmerID):
			continue
		}
		out = append(out, snap)
	}

	return out, nil
}

func (m *memoryStore) MarkPaid(_ context.Context, id uint, paidAt time.Time) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok || o.Status != domain.OrderPending || o.PaidAt != nil {
		return false, nil
	}

	for _, item := range o.Items {
		p := m.products[item.ProductID]
		p.Stock -= item.Quantity
		p.Reserved -= item.Quantity
		farmer := m.users[p.FarmerID]
		farmer.Balance = farmer.Balance.Add(item.Subtotal())
	}
	o.Status = domain.OrderCompleted
	o.PaidAt = &paidAt
	m.events = append(m.events, domain.EventOrderPaid)

	return true, nil
}

func (m *memoryStore) CancelPending(_ context.Context, id uint) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok || o.Status != domain.OrderPending {
		return false, nil
	}

	m.release(o)
	o.Status = domain.OrderCancelled
	m.events = append(m.events, domain.EventOrderCancelled)

	return true, nil
}

func (m *memoryStore) UpdateStatus(_ context.Context, observed domain.Order, to domain.OrderStatus) (domain.Order, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[observed.ID]
	if !ok {
		return domain.Order{}, domain.NotFound("order not found")
	}
	if o.Status != observed.Status {
		return domain.Order{}, domain.Conflict("order status changed concurrently")
	}

	if to == domain.OrderCancelled {
		switch {
		case o.Status == domain.OrderPending:
			m.release(o)
		case o.Status.Paid():
			for _, item := range o.Items {
				p := m.products[item.ProductID]
				p.Stock += item.Quantity
				farmer := m.users[p.FarmerID]
				farmer.Balance = farmer.Balance.Sub(item.Subtotal())
			}
		}
	}
	o.Status = to
	m.events = append(m.events, domain.EventOrderStatus)

	return m.snapshot(o), nil
}

func (m *memoryStore) Delete(_ context.Context, id uint) error {
	m.mu.Lock()
	defer m.mu.Unlock()

	o, ok := m.orders[id]
	if !ok {
		return domain.NotFound("order not found")
	}
	if o.Status == domain.OrderPending {
		m.release(o)
	}
	delete(m.orders, id)

	return nil
}

func (m *memoryStore) release(o *domain.Order) {
	for _, item := range o.Items {
		m.products[item.ProductID].Reserved -= item.Quantity
	}
}

func (m *memoryStore) snapshot(o *domain.Order) domain.Order {
	out := *o
	out.Items = make([]domain.OrderItem, len(o.Items))
	for i, item := range o.Items {
		p := *m.products[item.ProductID]
		item.Product = &p
		out.Items[i] = item
	}

	return out
}

func containsID(ids []uint, id uint) bool {
	for _, v := range ids {
		if v == id {
			return true
		}
	}

	return false
}

type userFinder struct {
	store *memoryStore
}

func (u userFinder) FindByID(_ context.Context, id uint) (domain.User, error) {
	u.store.mu.Lock()
	defer u.store.mu.Unlock()

	user, ok := u.store.users[id]
	if !ok {
		return domain.User{}, domain.NotFound("user not found")
	}

	return *user, nil
}

type mockGateway struct {
	mu    sync.Mutex
	calls int

	SubmitOrderFunc func(ctx context.Context, req domain.PaymentRequest) (domain.PaymentSubmission, error)
}

func (g *mockGateway) SubmitOrder(ctx context.Context, req domain.PaymentRequest) (domain.PaymentSubmission, error) {
	g.mu.Lock()
	g.calls++
	g.mu.Unlock()

	if g.SubmitOrderFunc != nil {
		return g.SubmitOrderFunc(ctx, req)
	}

	return domain.PaymentSubmission{
		TrackingID:  fmt.Sprintf("trk-%d", req.OrderID),
		RedirectURL: fmt.Sprintf("https://pay.example/%d", req.OrderID),
	}, nil
}

func (g *mockGateway) callCount() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.calls
}

type memoryIdempotency struct {
	mu      sync.Mutex
	entries map[string]*domain.Checkout
}

func newMemoryIdempotency() *memoryIdempotency {
	return &memoryIdempotency{entries: map[string]*domain.Checkout{}}
}

func (m *memoryIdempotency) Acquire(ctx context.Context, userID uint, key string) (domain.Checkout, bool, error) {
	if err := ctx.Err(); err != nil {
		return domain.Checkout{}, false, err
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	k := fmt.Sprintf("%d:%s", userID, key)
	if stored, ok := m.entries[k]; ok {
		if stored == nil {
			return domain.Checkout{}, false, nil
		}
		return *stored, false, nil
	}
	m.entries[k] = nil

	return domain.Checkout{}, true, nil
}

func (m *memoryIdempotency) Complete(ctx context.Context, userID uint, key string, checkout domain.Checkout) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[fmt.Sprintf("%d:%s", userID, key)] = &checkout
	return nil
}

func (m *memoryIdempotency) Release(ctx context.Context, userID uint, key string) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.entries, fmt.Sprintf("%d:%s", userID, key))
	return nil
}

// abandoningStore cancels the request context once the order is committed,
// as when the client disconnects while the gateway call returns.
type abandoningStore struct {
	*memoryStore
	cancel context.CancelFunc
}

func (a abandoningStore) Create(ctx context.Context, userID uint, lines []domain.OrderLine, submit domain.PaymentSubmitter) (domain.Order, domain.PaymentSubmission, error) {
	order, submission, err := a.memoryStore.Create(ctx, userID, lines, submit)
	a.cancel()
	return order, submission, err
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []string
}

func (n *recordingNotifier) SendEmail(_, toEmail, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, toEmail)
	return nil
}
