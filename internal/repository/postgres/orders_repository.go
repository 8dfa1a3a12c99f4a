package postgres

import (
	"context"
	"fmt"
	"sort"
	"time"

	"farmDirect/domain"

	"github.com/shopspring/decimal"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"
)

type OrdersRepository struct {
	DB *gorm.DB
}

func NewOrdersRepository(db *gorm.DB) *OrdersRepository {
	return &OrdersRepository{
		DB: db,
	}
}

func (r *OrdersRepository) Create(ctx context.Context, userID uint, lines []domain.OrderLine, submit domain.PaymentSubmitter) (domain.Order, domain.PaymentSubmission, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, domain.PaymentSubmission{}, fmt.Errorf("context error: %w", err)
	}

	var (
		order      domain.Order
		submission domain.PaymentSubmission
	)

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		ids := make([]uint, len(lines))
		for i, l := range lines {
			ids[i] = l.ProductID
		}

		var products []domain.Product
		err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
			Where("id IN ?", ids).
			Order("id").
			Find(&products).Error
		if err != nil {
			return fmt.Errorf("failed to lock products: %w", err)
		}

		byID := make(map[uint]domain.Product, len(products))
		for _, p := range products {
			byID[p.ID] = p
		}

		now := time.Now().UTC()
		order = domain.Order{UserID: userID, Status: domain.OrderPending, Total: decimal.Zero}
		items := make([]domain.OrderItem, 0, len(lines))

		for _, l := range lines {
			p, ok := byID[l.ProductID]
			if !ok {
				return domain.NotFound(fmt.Sprintf("product %d not found", l.ProductID))
			}

			if p.Available() < l.Quantity {
				return domain.Validation(fmt.Sprintf("insufficient stock for %s: %d available", p.Name, p.Available()))
			}

			result := tx.Model(&domain.Product{}).
				Where("id = ? AND stock - reserved >= ?", p.ID, l.Quantity).
				Updates(map[string]interface{}{
					"reserved":   gorm.Expr("reserved + ?", l.Quantity),
					"updated_at": now,
				})
			if result.Error != nil {
				return wrap(translate(result.Error, "product not found", "stock conflict"), "failed to reserve stock")
			}
			if result.RowsAffected == 0 {
				return domain.Conflict(fmt.Sprintf("stock for %s changed, please retry", p.Name))
			}

			item := domain.OrderItem{ProductID: p.ID, Quantity: l.Quantity, Price: p.Price}
			order.Total = order.Total.Add(item.Subtotal())
			items = append(items, item)
		}

		if err := tx.Omit(clause.Associations).Create(&order).Error; err != nil {
			return fmt.Errorf("failed to create order: %w", err)
		}

		for i := range items {
			items[i].OrderID = order.ID
		}
		if err := tx.Omit(clause.Associations).Create(&items).Error; err != nil {
			return fmt.Errorf("failed to create order items: %w", err)
		}
		order.Items = items

		submission, err = submit(order)
		if err != nil {
			return err
		}

		if err := tx.Model(&domain.Order{}).Where("id = ?", order.ID).
			Update("payment_tracking_id", submission.TrackingID).Error; err != nil {
			return fmt.Errorf("failed to save payment tracking id: %w", err)
		}
		order.PaymentTrackingID = &submission.TrackingID

		return enqueueOrderEvent(tx, domain.EventOrderCreated, order, "")
	})
	if err != nil {
		return domain.Order{}, domain.PaymentSubmission{}, err
	}

	created, err := r.FindByID(ctx, order.ID)
	if err != nil {
		return order, submission, nil
	}

	return created, submission, nil
}

func (r *OrdersRepository) FindByID(ctx context.Context, id uint) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("context error: %w", err)
	}

	var order domain.Order
	err := r.withItems(r.DB.WithContext(ctx)).
		Preload("User").
		First(&order, id).Error
	if err != nil {
		return domain.Order{}, wrap(translate(err, "order not found", ""), "failed to find order")
	}

	return order, nil
}

func (r *OrdersRepository) List(ctx context.Context, scope domain.OrderScope) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	query := r.withItems(r.DB.WithContext(ctx)).Preload("User")

	switch {
	case scope.All:
	case scope.FarmerID != 0:
		query = query.Where(`EXISTS (
			SELECT 1 FROM order_items oi
			JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = orders.id AND p.farmer_id = ?)`, scope.FarmerID)
	default:
		query = query.Where("user_id = ?", scope.UserID)
	}

	var orders []domain.Order
	if err := query.Order("created_at DESC").Find(&orders).Error; err != nil {
		return nil, fmt.Errorf("failed to find orders: %w", err)
	}

	return orders, nil
}

func (r *OrdersRepository) MarkPaid(ctx context.Context, id uint, paidAt time.Time) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	var applied bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ? AND paid_at IS NULL", id, domain.OrderPending).
			Updates(map[string]interface{}{
				"status":     domain.OrderCompleted,
				"paid_at":    paidAt,
				"updated_at": paidAt,
			})
		if result.Error != nil {
			return wrap(translate(result.Error, "order not found", ""), "failed to mark order paid")
		}
		if result.RowsAffected == 0 {
			return nil
		}

		order, err := lockedOrder(tx, id)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			if err := adjustStock(tx, item, -item.Quantity, -item.Quantity); err != nil {
				return err
			}
		}

		if err := adjustBalances(tx, order.Items, 1); err != nil {
			return err
		}

		if err := enqueueOrderEvent(tx, domain.EventOrderPaid, order, domain.OrderPending); err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

func (r *OrdersRepository) CancelPending(ctx context.Context, id uint) (bool, error) {
	if err := ctx.Err(); err != nil {
		return false, fmt.Errorf("context error: %w", err)
	}

	var applied bool
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ?", id, domain.OrderPending).
			Updates(map[string]interface{}{"status": domain.OrderCancelled, "updated_at": time.Now().UTC()})
		if result.Error != nil {
			return fmt.Errorf("failed to cancel order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return nil
		}

		order, err := lockedOrder(tx, id)
		if err != nil {
			return err
		}

		for _, item := range order.Items {
			if err := adjustStock(tx, item, 0, -item.Quantity); err != nil {
				return err
			}
		}

		if err := enqueueOrderEvent(tx, domain.EventOrderCancelled, order, domain.OrderPending); err != nil {
			return err
		}

		applied = true
		return nil
	})
	if err != nil {
		return false, err
	}

	return applied, nil
}

func (r *OrdersRepository) UpdateStatus(ctx context.Context, observed domain.Order, to domain.OrderStatus) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("context error: %w", err)
	}

	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		result := tx.Model(&domain.Order{}).
			Where("id = ? AND status = ?", observed.ID, observed.Status).
			Updates(map[string]interface{}{"status": to, "updated_at": time.Now().UTC()})
		if result.Error != nil {
			return wrap(translate(result.Error, "order not found", ""), "failed to update order status")
		}
		if result.RowsAffected == 0 {
			return domain.Conflict("order was modified concurrently, please retry")
		}

		order, err := lockedOrder(tx, observed.ID)
		if err != nil {
			return err
		}

		eventType := domain.EventOrderStatus
		if to == domain.OrderCancelled {
			eventType = domain.EventOrderCancelled

			switch {
			case observed.Status == domain.OrderPending:
				for _, item := range order.Items {
					if err := adjustStock(tx, item, 0, -item.Quantity); err != nil {
						return err
					}
				}
			case observed.Status.Paid():
				for _, item := range order.Items {
					if err := adjustStock(tx, item, item.Quantity, 0); err != nil {
						return err
					}
				}
				if err := adjustBalances(tx, order.Items, -1); err != nil {
					return err
				}
			}
		}

		return enqueueOrderEvent(tx, eventType, order, observed.Status)
	})
	if err != nil {
		return domain.Order{}, err
	}

	return r.FindByID(ctx, observed.ID)
}

func (r *OrdersRepository) Delete(ctx context.Context, id uint) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	return r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		order, err := lockedOrder(tx, id)
		if err != nil {
			return err
		}

		if order.Status == domain.OrderPending {
			for _, item := range order.Items {
				if err := adjustStock(tx, item, 0, -item.Quantity); err != nil {
					return err
				}
			}
		}

		result := tx.Delete(&domain.Order{}, id)
		if result.Error != nil {
			return fmt.Errorf("failed to delete order: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return domain.NotFound("order not found")
		}

		return nil
	})
}

func (r *OrdersRepository) withItems(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.product_id") }).
		Preload("Items.Product")
}

// lockedOrder loads an order with its items and locks the order row for the
// rest of the transaction.
func lockedOrder(tx *gorm.DB, id uint) (domain.Order, error) {
	var order domain.Order
	err := tx.Clauses(clause.Locking{Strength: "UPDATE"}).
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("order_items.product_id") }).
		Preload("Items.Product").
		First(&order, id).Error
	if err != nil {
		return domain.Order{}, wrap(translate(err, "order not found", ""), "failed to load order")
	}

	return order, nil
}

// adjustStock shifts a product's stock and reservation. Decrements are
// conditional so neither column can go negative.
func adjustStock(tx *gorm.DB, item domain.OrderItem, stockDelta, reservedDelta int) error {
	query := tx.Model(&domain.Product{}).Where("id = ?", item.ProductID)
	if reservedDelta < 0 {
		query = query.Where("reserved >= ?", -reservedDelta)
	}
	if stockDelta < 0 {
		query = query.Where("stock >= ?", -stockDelta)
	}

	result := query.Updates(map[string]interface{}{
		"stock":      gorm.Expr("stock + ?", stockDelta),
		"reserved":   gorm.Expr("reserved + ?", reservedDelta),
		"updated_at": time.Now().UTC(),
	})
	if result.Error != nil {
		return wrap(translate(result.Error, "product not found", ""), "failed to adjust stock")
	}
	if result.RowsAffected == 0 {
		return fmt.Errorf("stock of product %d is inconsistent with order %d", item.ProductID, item.OrderID)
	}

	return nil
}

// adjustBalances credits (sign 1) or debits (sign -1) each farmer by the
// value of their items. Farmers are updated in id order.
func adjustBalances(tx *gorm.DB, items []domain.OrderItem, sign int64) error {
	amounts := map[uint]decimal.Decimal{}
	for _, item := range items {
		if item.Product == nil {
			return fmt.Errorf("order item %d has no product loaded", item.ID)
		}
		farmerID := item.Product.FarmerID
		amounts[farmerID] = amounts[farmerID].Add(item.Subtotal())
	}

	farmers := make([]uint, 0, len(amounts))
	for id := range amounts {
		farmers = append(farmers, id)
	}
	sort.Slice(farmers, func(i, j int) bool { return farmers[i] < farmers[j] })

	for _, id := range farmers {
		delta := amounts[id].Mul(decimal.NewFromInt(sign))
		result := tx.Model(&domain.User{}).
			Where("id = ?", id).
			Updates(map[string]interface{}{
				"balance":    gorm.Expr("balance + ?", delta),
				"updated_at": time.Now().UTC(),
			})
		if result.Error != nil {
			return fmt.Errorf("failed to update farmer balance: %w", result.Error)
		}
		if result.RowsAffected == 0 {
			return fmt.Errorf("farmer %d not found", id)
		}
	}

	return nil
}
