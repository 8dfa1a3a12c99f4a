package domain

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

type OrderStatus string

const (
	OrderPending    OrderStatus = "PENDING"
	OrderProcessing OrderStatus = "PROCESSING"
	OrderShipped    OrderStatus = "SHIPPED"
	OrderDelivered  OrderStatus = "DELIVERED"
	OrderCompleted  OrderStatus = "COMPLETED"
	OrderCancelled  OrderStatus = "CANCELLED"
)

var orderStatuses = map[OrderStatus]bool{
	OrderPending:    true,
	OrderProcessing: true,
	OrderShipped:    true,
	OrderDelivered:  true,
	OrderCompleted:  true,
	OrderCancelled:  true,
}

// manual transitions available to farmers and admins. PENDING -> COMPLETED
// is only ever performed by the payment callback.
var validNext = map[OrderStatus][]OrderStatus{
	OrderPending:    {OrderCancelled},
	OrderCompleted:  {OrderProcessing, OrderCancelled},
	OrderProcessing: {OrderShipped, OrderCancelled},
	OrderShipped:    {OrderDelivered},
}

// AllOrderStatuses lists the statuses in lifecycle order.
func AllOrderStatuses() []OrderStatus {
	return []OrderStatus{OrderPending, OrderCompleted, OrderProcessing, OrderShipped, OrderDelivered, OrderCancelled}
}

// ParseOrderStatus accepts the enumerated statuses, case-insensitively.
func ParseOrderStatus(raw string) (OrderStatus, bool) {
	s := OrderStatus(strings.ToUpper(strings.TrimSpace(raw)))
	return s, orderStatuses[s]
}

func (s OrderStatus) CanTransition(to OrderStatus) bool {
	for _, next := range validNext[s] {
		if next == to {
			return true
		}
	}

	return false
}

// Paid reports whether stock and balances have been settled for the order.
func (s OrderStatus) Paid() bool {
	switch s {
	case OrderCompleted, OrderProcessing, OrderShipped, OrderDelivered:
		return true
	}

	return false
}

type Order struct {
	ID                uint            `gorm:"primaryKey" json:"id"`
	UserID            uint            `gorm:"column:user_id;not null" json:"user_id"`
	Status            OrderStatus     `gorm:"column:status;default:PENDING" json:"status"`
	Total             decimal.Decimal `gorm:"column:total;type:numeric(12,2)" json:"total"`
	PaymentTrackingID *string         `gorm:"column:payment_tracking_id" json:"payment_tracking_id,omitempty"`
	PaidAt            *time.Time      `gorm:"column:paid_at" json:"paid_at,omitempty"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	User  *User       `gorm:"foreignKey:UserID" json:"user,omitempty"`
	Items []OrderItem `gorm:"foreignKey:OrderID" json:"items"`
}

func (Order) TableName() string {
	return "orders"
}

// FarmerIDs lists the distinct farmers selling items in the order. Items
// must have their Product loaded.
func (o Order) FarmerIDs() []uint {
	seen := make(map[uint]bool, len(o.Items))
	ids := make([]uint, 0, len(o.Items))
	for _, item := range o.Items {
		if item.Product == nil || seen[item.Product.FarmerID] {
			continue
		}
		seen[item.Product.FarmerID] = true
		ids = append(ids, item.Product.FarmerID)
	}

	return ids
}

type OrderItem struct {
	ID        uint            `gorm:"primaryKey" json:"id"`
	OrderID   uint            `gorm:"column:order_id;not null" json:"order_id"`
	ProductID uint            `gorm:"column:product_id;not null" json:"product_id"`
	Quantity  int             `gorm:"column:quantity" json:"quantity"`
	Price     decimal.Decimal `gorm:"column:price;type:numeric(12,2)" json:"price"`

	Product *Product `gorm:"foreignKey:ProductID" json:"product,omitempty"`
}

func (OrderItem) TableName() string {
	return "order_items"
}

func (i OrderItem) Subtotal() decimal.Decimal {
	return i.Price.Mul(decimal.NewFromInt(int64(i.Quantity)))
}

// OrderLine is one requested product in a checkout.
type OrderLine struct {
	ProductID uint
	Quantity  int
}

type CreateOrderInput struct {
	Lines          []OrderLine
	Phone          string
	IdempotencyKey string
}

// Checkout is the result of a successful checkout.
type Checkout struct {
	Order       Order  `json:"order"`
	RedirectURL string `json:"redirect_url,omitempty"`
}

// PaymentSubmitter registers a freshly priced order with the payment
// gateway. It runs inside the checkout transaction.
type PaymentSubmitter func(order Order) (PaymentSubmission, error)

type OrderScope struct {
	UserID   uint
	FarmerID uint
	All      bool
}
