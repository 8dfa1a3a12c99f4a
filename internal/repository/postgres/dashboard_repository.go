package postgres

import (
	"context"
	"fmt"
	"time"

	"farmDirect/domain"

	"gorm.io/gorm"
)

// settled orders are the ones whose money reached the farmers
const settledOrder = "o.paid_at IS NOT NULL AND o.status <> 'CANCELLED'"

type DashboardRepository struct {
	DB *gorm.DB
}

func NewDashboardRepository(db *gorm.DB) *DashboardRepository {
	return &DashboardRepository{
		DB: db,
	}
}

// Totals counts everything created before the given instant.
func (r *DashboardRepository) Totals(ctx context.Context, before time.Time) (domain.Totals, error) {
	if err := ctx.Err(); err != nil {
		return domain.Totals{}, fmt.Errorf("context error: %w", err)
	}

	db := r.DB.WithContext(ctx)
	var t domain.Totals

	if err := db.Model(&domain.User{}).Where("created_at < ?", before).Count(&t.Users).Error; err != nil {
		return domain.Totals{}, fmt.Errorf("failed to count users: %w", err)
	}
	if err := db.Model(&domain.Product{}).Where("created_at < ?", before).Count(&t.Products).Error; err != nil {
		return domain.Totals{}, fmt.Errorf("failed to count products: %w", err)
	}
	if err := db.Model(&domain.Order{}).Where("created_at < ?", before).Count(&t.Orders).Error; err != nil {
		return domain.Totals{}, fmt.Errorf("failed to count orders: %w", err)
	}

	err := db.Raw("SELECT COALESCE(SUM(o.total), 0) FROM orders o WHERE "+settledOrder+" AND o.paid_at < ?", before).
		Row().Scan(&t.Revenue)
	if err != nil {
		return domain.Totals{}, fmt.Errorf("failed to sum revenue: %w", err)
	}

	return t, nil
}

func (r *DashboardRepository) DailySignups(ctx context.Context, since time.Time) ([]domain.DailyPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var points []domain.DailyPoint
	err := r.DB.WithContext(ctx).Raw(`
		SELECT date_trunc('day', created_at) AS day, COUNT(*) AS count, 0 AS amount
		FROM users
		WHERE created_at >= ?
		GROUP BY 1
		ORDER BY 1`, since).Scan(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate signups: %w", err)
	}

	return points, nil
}

func (r *DashboardRepository) DailyTransactions(ctx context.Context, since time.Time) ([]domain.DailyPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var points []domain.DailyPoint
	err := r.DB.WithContext(ctx).Raw(`
		SELECT date_trunc('day', o.paid_at) AS day, COUNT(*) AS count, COALESCE(SUM(o.total), 0) AS amount
		FROM orders o
		WHERE `+settledOrder+` AND o.paid_at >= ?
		GROUP BY 1
		ORDER BY 1`, since).Scan(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate transactions: %w", err)
	}

	return points, nil
}

func (r *DashboardRepository) RecentOrders(ctx context.Context, limit int) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var orders []domain.Order
	err := r.DB.WithContext(ctx).Preload("User").Preload("Items").
		Order("created_at DESC").Limit(limit).Find(&orders).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find recent orders: %w", err)
	}

	return orders, nil
}

func (r *DashboardRepository) RecentProducts(ctx context.Context, limit int) ([]domain.Product, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var products []domain.Product
	err := r.DB.WithContext(ctx).Preload("Farmer").Preload("Category").
		Order("created_at DESC").Limit(limit).Find(&products).Error
	if err != nil {
		return nil, fmt.Errorf("failed to find recent products: %w", err)
	}

	return products, nil
}

func (r *DashboardRepository) CategoryStats(ctx context.Context) ([]domain.CategoryStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var stats []domain.CategoryStat
	err := r.DB.WithContext(ctx).Raw(`
		SELECT c.id AS category_id, c.name AS name,
			COUNT(DISTINCT p.id) AS product_count,
			COALESCE(SUM(oi.quantity) FILTER (WHERE ` + settledOrder + `), 0) AS items_sold
		FROM categories c
		LEFT JOIN products p ON p.category_id = c.id
		LEFT JOIN order_items oi ON oi.product_id = p.id
		LEFT JOIN orders o ON o.id = oi.order_id
		GROUP BY c.id, c.name
		ORDER BY c.name`).Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate categories: %w", err)
	}

	return stats, nil
}

func (r *DashboardRepository) TopProducts(ctx context.Context, limit int) ([]domain.ProductStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var stats []domain.ProductStat
	err := r.DB.WithContext(ctx).Raw(`
		SELECT p.id AS product_id, p.name AS name,
			SUM(oi.quantity) AS units_sold,
			SUM(oi.quantity * oi.price) AS revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		WHERE `+settledOrder+`
		GROUP BY p.id, p.name
		ORDER BY units_sold DESC, p.id
		LIMIT ?`, limit).Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate top products: %w", err)
	}

	return stats, nil
}

// Farmer gathers the farmer dashboard. Recent orders only carry the
// farmer's own items.
func (r *DashboardRepository) Farmer(ctx context.Context, farmerID uint, lowStock, recent int) (domain.FarmerDashboard, error) {
	if err := ctx.Err(); err != nil {
		return domain.FarmerDashboard{}, fmt.Errorf("context error: %w", err)
	}

	var d domain.FarmerDashboard
	err := r.DB.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		var farmer domain.User
		if err := tx.First(&farmer, farmerID).Error; err != nil {
			return wrap(translate(err, "farmer not found", ""), "failed to find farmer")
		}
		d.Balance = farmer.Balance

		if err := tx.Model(&domain.Product{}).Where("farmer_id = ?", farmerID).Count(&d.ProductCount).Error; err != nil {
			return fmt.Errorf("failed to count products: %w", err)
		}

		err := tx.Where("farmer_id = ? AND stock - reserved <= ?", farmerID, lowStock).
			Order("stock - reserved").Find(&d.LowStock).Error
		if err != nil {
			return fmt.Errorf("failed to find low stock products: %w", err)
		}

		farmerOrders := `
			FROM orders o
			WHERE EXISTS (
				SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
				WHERE oi.order_id = o.id AND p.farmer_id = ?)`

		if err := tx.Raw("SELECT COUNT(*) "+farmerOrders+" AND o.status = ?", farmerID, domain.OrderPending).
			Row().Scan(&d.PendingOrders); err != nil {
			return fmt.Errorf("failed to count pending orders: %w", err)
		}
		if err := tx.Raw("SELECT COUNT(*) "+farmerOrders+" AND "+settledOrder, farmerID).
			Row().Scan(&d.PaidOrders); err != nil {
			return fmt.Errorf("failed to count paid orders: %w", err)
		}

		err = tx.Raw(`
			SELECT COALESCE(SUM(oi.quantity * oi.price), 0)
			FROM order_items oi
			JOIN orders o ON o.id = oi.order_id
			JOIN products p ON p.id = oi.product_id
			WHERE p.farmer_id = ? AND `+settledOrder, farmerID).Row().Scan(&d.TotalSales)
		if err != nil {
			return fmt.Errorf("failed to sum sales: %w", err)
		}

		err = tx.Preload("User").
			Preload("Items", "product_id IN (?)", tx.Model(&domain.Product{}).Select("id").Where("farmer_id = ?", farmerID)).
			Preload("Items.Product").
			Where(`EXISTS (
				SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
				WHERE oi.order_id = orders.id AND p.farmer_id = ?)`, farmerID).
			Order("created_at DESC").Limit(recent).Find(&d.RecentOrders).Error
		if err != nil {
			return fmt.Errorf("failed to find recent orders: %w", err)
		}

		return nil
	})
	if err != nil {
		return domain.FarmerDashboard{}, err
	}

	return d, nil
}

// farmerSales restricts order items to the farmer's products in settled
// orders. It takes the farmer id as its only argument.
const farmerSales = `
	FROM order_items oi
	JOIN orders o ON o.id = oi.order_id
	JOIN products p ON p.id = oi.product_id
	WHERE p.farmer_id = ? AND ` + settledOrder

func (r *DashboardRepository) FarmerSalesSummary(ctx context.Context, farmerID uint) (domain.SalesSummary, error) {
	if err := ctx.Err(); err != nil {
		return domain.SalesSummary{}, fmt.Errorf("context error: %w", err)
	}

	var summary domain.SalesSummary
	err := r.DB.WithContext(ctx).Raw(`
		SELECT COALESCE(SUM(oi.quantity * oi.price), 0) AS total_sales,
			COUNT(DISTINCT o.id) AS orders,
			COALESCE(SUM(oi.quantity), 0) AS units_sold`+farmerSales, farmerID).
		Row().Scan(&summary.TotalSales, &summary.Orders, &summary.UnitsSold)
	if err != nil {
		return domain.SalesSummary{}, fmt.Errorf("failed to summarize sales: %w", err)
	}

	return summary, nil
}

// FarmerSalesTrend returns one point per day with settled sales. Amount is
// the farmer's share of the orders, not the order totals.
func (r *DashboardRepository) FarmerSalesTrend(ctx context.Context, farmerID uint, since time.Time) ([]domain.DailyPoint, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var points []domain.DailyPoint
	err := r.DB.WithContext(ctx).Raw(`
		SELECT date_trunc('day', o.paid_at) AS day,
			COUNT(DISTINCT o.id) AS count,
			COALESCE(SUM(oi.quantity * oi.price), 0) AS amount`+farmerSales+` AND o.paid_at >= ?
		GROUP BY 1
		ORDER BY 1`, farmerID, since).Scan(&points).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate sales trend: %w", err)
	}

	return points, nil
}

// FarmerOrderStatus counts the orders holding at least one of the farmer's
// products, per status.
func (r *DashboardRepository) FarmerOrderStatus(ctx context.Context, farmerID uint) ([]domain.StatusCount, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var counts []domain.StatusCount
	err := r.DB.WithContext(ctx).Raw(`
		SELECT o.status AS status, COUNT(*) AS count
		FROM orders o
		WHERE EXISTS (
			SELECT 1 FROM order_items oi JOIN products p ON p.id = oi.product_id
			WHERE oi.order_id = o.id AND p.farmer_id = ?)
		GROUP BY o.status`, farmerID).Scan(&counts).Error
	if err != nil {
		return nil, fmt.Errorf("failed to count orders by status: %w", err)
	}

	return counts, nil
}

func (r *DashboardRepository) FarmerTopProducts(ctx context.Context, farmerID uint, limit int) ([]domain.ProductStat, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var stats []domain.ProductStat
	err := r.DB.WithContext(ctx).Raw(`
		SELECT p.id AS product_id, p.name AS name,
			SUM(oi.quantity) AS units_sold,
			SUM(oi.quantity * oi.price) AS revenue`+farmerSales+`
		GROUP BY p.id, p.name
		ORDER BY units_sold DESC, p.id
		LIMIT ?`, farmerID, limit).Scan(&stats).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate farmer top products: %w", err)
	}

	return stats, nil
}

// FarmerCategorySales groups the farmer's settled sales by category.
// Uncategorized products are reported under category 0.
func (r *DashboardRepository) FarmerCategorySales(ctx context.Context, farmerID uint) ([]domain.CategorySales, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	var sales []domain.CategorySales
	err := r.DB.WithContext(ctx).Raw(`
		SELECT COALESCE(c.id, 0) AS category_id, COALESCE(c.name, 'Uncategorized') AS name,
			SUM(oi.quantity) AS units_sold,
			SUM(oi.quantity * oi.price) AS revenue
		FROM order_items oi
		JOIN orders o ON o.id = oi.order_id
		JOIN products p ON p.id = oi.product_id
		LEFT JOIN categories c ON c.id = p.category_id
		WHERE p.farmer_id = ? AND `+settledOrder+`
		GROUP BY 1, 2
		ORDER BY revenue DESC, 1`, farmerID).Scan(&sales).Error
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate category sales: %w", err)
	}

	return sales, nil
}
