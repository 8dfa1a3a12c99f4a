//go:build integration

package postgres

import (
	"context"
	"errors"
	"fmt"
	"os"
	"sync"
	"testing"
	"time"

	"farmDirect/domain"
	"farmDirect/pkg/database"

	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	gormpostgres "gorm.io/driver/postgres"
	"gorm.io/gorm"
	gormlogger "gorm.io/gorm/logger"
)

// openTestDB connects to TEST_DATABASE_DSN (postgres:// URL form), applies
// the migrations and empties every table.
func openTestDB(t *testing.T) *gorm.DB {
	t.Helper()

	dsn := os.Getenv("TEST_DATABASE_DSN")
	if dsn == "" {
		t.Skip("TEST_DATABASE_DSN not set")
	}

	require.NoError(t, database.MigrateURL(dsn, true))

	db, err := gorm.Open(gormpostgres.Open(dsn), &gorm.Config{Logger: gormlogger.Default.LogMode(gormlogger.Silent)})
	require.NoError(t, err)

	require.NoError(t, db.Exec("TRUNCATE outbox_messages, order_items, orders, products, categories, users RESTART IDENTITY CASCADE").Error)

	t.Cleanup(func() {
		_ = database.ClosePostgres(db)
	})

	return db
}

type fixture struct {
	farmer   domain.User
	consumer domain.User
	apples   domain.Product
}

func seed(t *testing.T, db *gorm.DB, stock int) fixture {
	t.Helper()

	f := fixture{
		farmer:   domain.User{Name: "Farmer", Email: "farmer@example.com", Password: "x", Role: domain.RoleFarmer},
		consumer: domain.User{Name: "Consumer", Email: "consumer@example.com", Password: "x", Role: domain.RoleConsumer, Phone: "+254700000002"},
	}
	require.NoError(t, db.Create(&f.farmer).Error)
	require.NoError(t, db.Create(&f.consumer).Error)

	f.apples = domain.Product{FarmerID: f.farmer.ID, Name: "Red Apples", Price: decimal.NewFromInt(120), Stock: stock}
	require.NoError(t, db.Omit("Farmer", "Category").Create(&f.apples).Error)

	return f
}

func okSubmit(order domain.Order) (domain.PaymentSubmission, error) {
	return domain.PaymentSubmission{TrackingID: fmt.Sprintf("trk-%d", order.ID), RedirectURL: "https://pay.example"}, nil
}

func reload(t *testing.T, db *gorm.DB, p domain.Product, u domain.User) (domain.Product, domain.User) {
	t.Helper()
	require.NoError(t, db.First(&p, p.ID).Error)
	require.NoError(t, db.First(&u, u.ID).Error)
	return p, u
}

func TestCheckoutAndDuplicateCallback(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, 50)
	repo := NewOrdersRepository(db)
	ctx := context.Background()

	order, sub, err := repo.Create(ctx, f.consumer.ID, []domain.OrderLine{{ProductID: f.apples.ID, Quantity: 2}}, okSubmit)
	require.NoError(t, err)
	assert.True(t, order.Total.Equal(decimal.NewFromInt(240)))
	assert.Equal(t, sub.TrackingID, *order.PaymentTrackingID)

	p, _ := reload(t, db, f.apples, f.farmer)
	assert.Equal(t, 2, p.Reserved)
	assert.Equal(t, 50, p.Stock)

	var wg sync.WaitGroup
	results := make(chan bool, 5)
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			applied, err := repo.MarkPaid(ctx, order.ID, time.Now())
			assert.NoError(t, err)
			results <- applied
		}()
	}
	wg.Wait()
	close(results)

	applied := 0
	for ok := range results {
		if ok {
			applied++
		}
	}
	assert.Equal(t, 1, applied)

	p, farmer := reload(t, db, f.apples, f.farmer)
	assert.Equal(t, 48, p.Stock)
	assert.Equal(t, 0, p.Reserved)
	assert.True(t, farmer.Balance.Equal(decimal.NewFromInt(240)))

	var events int64
	require.NoError(t, db.Model(&domain.OutboxMessage{}).Where("aggregate_id = ?", fmt.Sprint(order.ID)).Count(&events).Error)
	assert.Equal(t, int64(2), events)
}

func TestConcurrentCheckoutNeverOversells(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, 3)
	repo := NewOrdersRepository(db)

	const attempts = 12
	var (
		wg        sync.WaitGroup
		mu        sync.Mutex
		succeeded int
	)
	for i := 0; i < attempts; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			_, _, err := repo.Create(context.Background(), f.consumer.ID, []domain.OrderLine{{ProductID: f.apples.ID, Quantity: 1}}, okSubmit)
			if err != nil {
				assert.True(t, errors.Is(err, domain.ErrValidation) || errors.Is(err, domain.ErrConflict), err.Error())
				return
			}
			mu.Lock()
			succeeded++
			mu.Unlock()
		}()
	}
	wg.Wait()

	assert.Equal(t, 3, succeeded)
	p, _ := reload(t, db, f.apples, f.farmer)
	assert.Equal(t, 3, p.Reserved)
	assert.Equal(t, 3, p.Stock)
}

func TestGatewayFailureRollsBack(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, 5)
	repo := NewOrdersRepository(db)

	failing := func(domain.Order) (domain.PaymentSubmission, error) {
		return domain.PaymentSubmission{}, domain.NewError(domain.ErrUpstream, "payment gateway unavailable")
	}

	_, _, err := repo.Create(context.Background(), f.consumer.ID, []domain.OrderLine{{ProductID: f.apples.ID, Quantity: 2}}, failing)
	assert.ErrorIs(t, err, domain.ErrUpstream)

	var orders, items, outbox int64
	db.Model(&domain.Order{}).Count(&orders)
	db.Model(&domain.OrderItem{}).Count(&items)
	db.Model(&domain.OutboxMessage{}).Count(&outbox)
	assert.Zero(t, orders)
	assert.Zero(t, items)
	assert.Zero(t, outbox)

	p, _ := reload(t, db, f.apples, f.farmer)
	assert.Equal(t, 0, p.Reserved)
}

func TestStatusUpdateLosesRace(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, 5)
	repo := NewOrdersRepository(db)
	ctx := context.Background()

	order, _, err := repo.Create(ctx, f.consumer.ID, []domain.OrderLine{{ProductID: f.apples.ID, Quantity: 1}}, okSubmit)
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, order, domain.OrderCancelled)
	require.NoError(t, err)

	_, err = repo.UpdateStatus(ctx, order, domain.OrderCancelled)
	assert.ErrorIs(t, err, domain.ErrConflict)

	p, _ := reload(t, db, f.apples, f.farmer)
	assert.Equal(t, 0, p.Reserved)
}

func TestCancelPaidOrderRestocks(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, 5)
	repo := NewOrdersRepository(db)
	ctx := context.Background()

	order, _, err := repo.Create(ctx, f.consumer.ID, []domain.OrderLine{{ProductID: f.apples.ID, Quantity: 2}}, okSubmit)
	require.NoError(t, err)
	applied, err := repo.MarkPaid(ctx, order.ID, time.Now())
	require.NoError(t, err)
	require.True(t, applied)

	paid, err := repo.FindByID(ctx, order.ID)
	require.NoError(t, err)
	_, err = repo.UpdateStatus(ctx, paid, domain.OrderCancelled)
	require.NoError(t, err)

	p, farmer := reload(t, db, f.apples, f.farmer)
	assert.Equal(t, 5, p.Stock)
	assert.True(t, farmer.Balance.IsZero())
}

func TestUpdateStockRespectsReservations(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, 5)
	orders := NewOrdersRepository(db)
	products := NewProductRepository(db)
	ctx := context.Background()

	_, _, err := orders.Create(ctx, f.consumer.ID, []domain.OrderLine{{ProductID: f.apples.ID, Quantity: 3}}, okSubmit)
	require.NoError(t, err)

	assert.ErrorIs(t, products.UpdateStock(ctx, f.apples.ID, 2), domain.ErrConflict)
	assert.NoError(t, products.UpdateStock(ctx, f.apples.ID, 3))
	assert.ErrorIs(t, products.UpdateStock(ctx, 9999, 3), domain.ErrNotFound)
}

func TestRelayPendingMarksSent(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, 5)
	orders := NewOrdersRepository(db)
	outbox := NewOutboxRepository(db)
	ctx := context.Background()

	_, _, err := orders.Create(ctx, f.consumer.ID, []domain.OrderLine{{ProductID: f.apples.ID, Quantity: 1}}, okSubmit)
	require.NoError(t, err)

	_, err = outbox.RelayPending(ctx, 10, func(context.Context, []domain.OutboxMessage) error {
		return errors.New("broker down")
	})
	assert.Error(t, err)

	var published []domain.OutboxMessage
	n, err := outbox.RelayPending(ctx, 10, func(_ context.Context, msgs []domain.OutboxMessage) error {
		published = msgs
		return nil
	})
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, domain.EventOrderCreated, published[0].EventType)

	n, err = outbox.RelayPending(ctx, 10, func(context.Context, []domain.OutboxMessage) error { return nil })
	require.NoError(t, err)
	assert.Zero(t, n)
}

func TestDeleteUserWithOrdersConflicts(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, 5)
	users := NewUserRepository(db)

	assert.ErrorIs(t, users.Delete(context.Background(), f.farmer.ID), domain.ErrConflict)

	found, err := users.FindByEmail(context.Background(), "CONSUMER@example.com")
	require.NoError(t, err)
	assert.Equal(t, f.consumer.ID, found.ID)
}

func TestFarmerAnalyticsCountSettledSalesOnly(t *testing.T) {
	db := openTestDB(t)
	f := seed(t, db, 50)
	orders := NewOrdersRepository(db)
	dashboard := NewDashboardRepository(db)
	ctx := context.Background()

	paid, _, err := orders.Create(ctx, f.consumer.ID, []domain.OrderLine{{ProductID: f.apples.ID, Quantity: 3}}, okSubmit)
	require.NoError(t, err)
	applied, err := orders.MarkPaid(ctx, paid.ID, time.Now())
	require.NoError(t, err)
	require.True(t, applied)

	_, _, err = orders.Create(ctx, f.consumer.ID, []domain.OrderLine{{ProductID: f.apples.ID, Quantity: 1}}, okSubmit)
	require.NoError(t, err)

	summary, err := dashboard.FarmerSalesSummary(ctx, f.farmer.ID)
	require.NoError(t, err)
	assert.True(t, summary.TotalSales.Equal(decimal.NewFromInt(360)))
	assert.Equal(t, int64(1), summary.Orders)
	assert.Equal(t, int64(3), summary.UnitsSold)

	trend, err := dashboard.FarmerSalesTrend(ctx, f.farmer.ID, time.Now().AddDate(0, 0, -1))
	require.NoError(t, err)
	require.Len(t, trend, 1)
	assert.Equal(t, int64(1), trend[0].Count)

	statuses, err := dashboard.FarmerOrderStatus(ctx, f.farmer.ID)
	require.NoError(t, err)
	assert.ElementsMatch(t, []domain.StatusCount{
		{Status: domain.OrderCompleted, Count: 1},
		{Status: domain.OrderPending, Count: 1},
	}, statuses)

	top, err := dashboard.FarmerTopProducts(ctx, f.farmer.ID, 5)
	require.NoError(t, err)
	require.Len(t, top, 1)
	assert.Equal(t, int64(3), top[0].UnitsSold)

	categories, err := dashboard.FarmerCategorySales(ctx, f.farmer.ID)
	require.NoError(t, err)
	require.Len(t, categories, 1)
	assert.Equal(t, "Uncategorized", categories[0].Name)

	none, err := dashboard.FarmerSalesSummary(ctx, f.consumer.ID)
	require.NoError(t, err)
	assert.True(t, none.TotalSales.IsZero())
}
