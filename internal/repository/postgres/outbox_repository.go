package postgres

import (
	"context"
	"encoding/json"
	"fmt"
	"strconv"
	"time"

	"farmDirect/domain"

	"github.com/google/uuid"
	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OutboxRepository struct {
	DB *gorm.DB
}

func NewOutboxRepository(db *gorm.DB) *OutboxRepository {
	return &OutboxRepository{
		DB: db,
	}
}

// enqueueOrderEvent writes an outbox row inside the caller's transaction.
func enqueueOrderEvent(tx *gorm.DB, eventType string, order domain.Order, previous domain.OrderStatus) error {
	now := time.Now().UTC()

	payload, err := json.Marshal(domain.OrderEvent{
		OrderID:    order.ID,
		UserID:     order.UserID,
		Status:     order.Status,
		Previous:   previous,
		Total:      order.Total.StringFixed(2),
		OccurredAt: now,
	})
	if err != nil {
		return fmt.Errorf("failed to encode %s event: %w", eventType, err)
	}

	msg := domain.OutboxMessage{
		ID:          uuid.New(),
		AggregateID: strconv.FormatUint(uint64(order.ID), 10),
		EventType:   eventType,
		Payload:     datatypes.JSON(payload),
		Status:      domain.OutboxPending,
		CreatedAt:   now,
	}

	if err := tx.Create(&msg).Error; err != nil {
		return fmt.Errorf("failed to create outbox message: %w", err)
	}

	return nil
}

// RelayPending locks up to limit pending messages, hands them to publish
// and marks them SENT when publish succeeds. Rows locked by another relay
// are skipped.
func (r *OutboxRepository) RelayPending(ctx context.Context, limit int, publish func(ctx context.Context, msgs []domain.OutboxMessage) error) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, fmt.Errorf("context error: %w", err)
	}

	var relayed int
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var msgs []domain.OutboxMessage
		err := tx.Clauses(clause.Locking{Strength: "UPDATE", Options: "SKIP LOCKED"}).
			Where("status = ?", domain.OutboxPending).
			Order("created_at").
			Limit(limit).
			Find(&msgs).Error
		if err != nil {
			return fmt.Errorf("failed to get pending outbox messages: %w", err)
		}

		if len(msgs) == 0 {
			return nil
		}

		if err := publish(ctx, msgs); err != nil {
			return err
		}

		ids := make([]uuid.UUID, len(msgs))
		for i, m := range msgs {
			ids[i] = m.ID
		}

		result := tx.Model(&domain.OutboxMessage{}).
			Where("id IN ?", ids).
			Updates(map[string]interface{}{"status": domain.OutboxSent, "sent_at": time.Now().UTC()})
		if result.Error != nil {
			return fmt.Errorf("failed to mark outbox messages as sent: %w", result.Error)
		}
		if result.RowsAffected != int64(len(ids)) {
			return fmt.Errorf("not all outbox messages were marked as sent; expected %d, got %d", len(ids), result.RowsAffected)
		}

		relayed = len(msgs)
		return nil
	})
	if err != nil {
		return 0, err
	}

	return relayed, nil
}
