package domain

import (
	"time"

	"github.com/google/uuid"
	"gorm.io/datatypes"
)

const (
	EventOrderCreated   = "order.created"
	EventOrderPaid      = "order.paid"
	EventOrderCancelled = "order.cancelled"
	EventOrderStatus    = "order.status_changed"
)

const (
	OutboxPending = "PENDING"
	OutboxSent    = "SENT"
)

type OutboxMessage struct {
	ID          uuid.UUID      `gorm:"type:uuid;primaryKey"`
	AggregateID string         `gorm:"column:aggregate_id"`
	EventType   string         `gorm:"column:event_type"`
	Payload     datatypes.JSON `gorm:"column:payload;type:jsonb"`
	Status      string         `gorm:"column:status;default:PENDING"`
	CreatedAt   time.Time      `gorm:"column:created_at"`
	SentAt      *time.Time     `gorm:"column:sent_at"`
}

func (OutboxMessage) TableName() string {
	return "outbox_messages"
}

// OrderEvent is the payload published for every order lifecycle change.
type OrderEvent struct {
	OrderID    uint        `json:"order_id"`
	UserID     uint        `json:"user_id"`
	Status     OrderStatus `json:"status"`
	Previous   OrderStatus `json:"previous_status,omitempty"`
	Total      string      `json:"total"`
	OccurredAt time.Time   `json:"occurred_at"`
}
