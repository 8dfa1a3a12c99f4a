package dashboard

import (
	"context"
	"fmt"
	"math"
	"time"

	"farmDirect/business/policy"
	"farmDirect/domain"
	"farmDirect/pkg/logger"

	"github.com/shopspring/decimal"
)

const (
	recentLimit   = 10
	topProducts   = 10
	lowStockLimit = 5
	chartDays     = 30
	maxTrendDays  = 365
	maxTopLimit   = 50
)

// DashboardRepository contract interface
type DashboardRepository interface {
	Totals(ctx context.Context, before time.Time) (domain.Totals, error)
	DailySignups(ctx context.Context, since time.Time) ([]domain.DailyPoint, error)
	DailyTransactions(ctx context.Context, since time.Time) ([]domain.DailyPoint, error)
	RecentOrders(ctx context.Context, limit int) ([]domain.Order, error)
	RecentProducts(ctx context.Context, limit int) ([]domain.Product, error)
	CategoryStats(ctx context.Context) ([]domain.CategoryStat, error)
	TopProducts(ctx context.Context, limit int) ([]domain.ProductStat, error)
	Farmer(ctx context.Context, farmerID uint, lowStock, recent int) (domain.FarmerDashboard, error)
	FarmerSalesSummary(ctx context.Context, farmerID uint) (domain.SalesSummary, error)
	FarmerSalesTrend(ctx context.Context, farmerID uint, since time.Time) ([]domain.DailyPoint, error)
	FarmerOrderStatus(ctx context.Context, farmerID uint) ([]domain.StatusCount, error)
	FarmerTopProducts(ctx context.Context, farmerID uint, limit int) ([]domain.ProductStat, error)
	FarmerCategorySales(ctx context.Context, farmerID uint) ([]domain.CategorySales, error)
}

type dashboardService struct {
	repo DashboardRepository
	now  func() time.Time
}

func NewDashboardService(repo DashboardRepository) *dashboardService {
	return &dashboardService{
		repo: repo,
		now:  func() time.Time { return time.Now().UTC() },
	}
}

func (s *dashboardService) AdminSummary(ctx context.Context, session domain.Session) (domain.AdminSummary, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when building admin summary")
		return domain.AdminSummary{}, fmt.Errorf("context error: %w", err)
	}

	if err := policy.Authorize(session, policy.ViewAdminBoard, nil); err != nil {
		return domain.AdminSummary{}, err
	}

	now := s.now()
	today := now.Truncate(24 * time.Hour)
	since := today.AddDate(0, 0, -(chartDays - 1))

	var (
		summary  domain.AdminSummary
		previous domain.Totals
		err      error
	)

	if summary.Totals, err = s.repo.Totals(ctx, now); err != nil {
		logger.Error("failed to load totals", err)
		return domain.AdminSummary{}, err
	}
	if previous, err = s.repo.Totals(ctx, now.AddDate(0, -1, 0)); err != nil {
		logger.Error("failed to load last month totals", err)
		return domain.AdminSummary{}, err
	}
	summary.Growth = growth(summary.Totals, previous)

	signups, err := s.repo.DailySignups(ctx, since)
	if err != nil {
		return domain.AdminSummary{}, err
	}
	summary.UserGrowth = fillDays(signups, since, chartDays)

	transactions, err := s.repo.DailyTransactions(ctx, since)
	if err != nil {
		return domain.AdminSummary{}, err
	}
	summary.Transactions = fillDays(transactions, since, chartDays)

	if summary.RecentOrders, err = s.repo.RecentOrders(ctx, recentLimit); err != nil {
		return domain.AdminSummary{}, err
	}
	if summary.RecentProducts, err = s.repo.RecentProducts(ctx, recentLimit); err != nil {
		return domain.AdminSummary{}, err
	}
	if summary.Categories, err = s.repo.CategoryStats(ctx); err != nil {
		return domain.AdminSummary{}, err
	}
	if summary.TopProducts, err = s.repo.TopProducts(ctx, topProducts); err != nil {
		return domain.AdminSummary{}, err
	}

	return summary, nil
}

func (s *dashboardService) FarmerDashboard(ctx context.Context, session domain.Session) (domain.FarmerDashboard, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when building farmer dashboard")
		return domain.FarmerDashboard{}, fmt.Errorf("context error: %w", err)
	}

	if err := policy.Authorize(session, policy.ViewFarmerBoard, nil); err != nil {
		return domain.FarmerDashboard{}, err
	}

	board, err := s.repo.Farmer(ctx, session.UserID, lowStockLimit, recentLimit)
	if err != nil {
		logger.Error("failed to load farmer dashboard", "farmer_id", session.UserID, err)
		return domain.FarmerDashboard{}, err
	}

	return board, nil
}

// farmerAnalytics gates the analytics reads on the caller being a farmer.
func farmerAnalytics(ctx context.Context, session domain.Session, what string) error {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when loading "+what, err)
		return fmt.Errorf("context error: %w", err)
	}

	return policy.Authorize(session, policy.ViewFarmerBoard, nil)
}

func (s *dashboardService) SalesSummary(ctx context.Context, session domain.Session) (domain.SalesSummary, error) {
	if err := farmerAnalytics(ctx, session, "sales summary"); err != nil {
		return domain.SalesSummary{}, err
	}

	summary, err := s.repo.FarmerSalesSummary(ctx, session.UserID)
	if err != nil {
		logger.Error("failed to load sales summary", err, "farmer_id", session.UserID)
		return domain.SalesSummary{}, err
	}

	summary.AverageOrder = decimal.Zero
	if summary.Orders > 0 {
		summary.AverageOrder = summary.TotalSales.Div(decimal.NewFromInt(summary.Orders)).Round(2)
	}

	return summary, nil
}

// SalesTrend returns the farmer's daily settled sales for the last days
// days, today included. Zero means the default chart window.
func (s *dashboardService) SalesTrend(ctx context.Context, session domain.Session, days int) ([]domain.DailyPoint, error) {
	if err := farmerAnalytics(ctx, session, "sales trend"); err != nil {
		return nil, err
	}

	if days == 0 {
		days = chartDays
	}
	if days < 0 || days > maxTrendDays {
		return nil, domain.Validation(fmt.Sprintf("days must be between 1 and %d", maxTrendDays))
	}

	since := s.now().Truncate(24*time.Hour).AddDate(0, 0, -(days - 1))
	points, err := s.repo.FarmerSalesTrend(ctx, session.UserID, since)
	if err != nil {
		logger.Error("failed to load sales trend", err, "farmer_id", session.UserID)
		return nil, err
	}

	return fillDays(points, since, days), nil
}

// OrderStatusBreakdown reports every status, zero included, in lifecycle
// order.
func (s *dashboardService) OrderStatusBreakdown(ctx context.Context, session domain.Session) ([]domain.StatusCount, error) {
	if err := farmerAnalytics(ctx, session, "order status breakdown"); err != nil {
		return nil, err
	}

	counts, err := s.repo.FarmerOrderStatus(ctx, session.UserID)
	if err != nil {
		logger.Error("failed to load order status breakdown", err, "farmer_id", session.UserID)
		return nil, err
	}

	byStatus := make(map[domain.OrderStatus]int64, len(counts))
	for _, c := range counts {
		byStatus[c.Status] += c.Count
	}

	statuses := domain.AllOrderStatuses()
	out := make([]domain.StatusCount, 0, len(statuses))
	for _, st := range statuses {
		out = append(out, domain.StatusCount{Status: st, Count: byStatus[st]})
	}

	return out, nil
}

// TopProducts ranks the farmer's products by units sold. A limit of zero
// uses the default and larger limits are capped.
func (s *dashboardService) TopProducts(ctx context.Context, session domain.Session, limit int) ([]domain.ProductStat, error) {
	if err := farmerAnalytics(ctx, session, "top products"); err != nil {
		return nil, err
	}

	switch {
	case limit < 0:
		return nil, domain.Validation("limit must be positive")
	case limit == 0:
		limit = topProducts
	case limit > maxTopLimit:
		limit = maxTopLimit
	}

	stats, err := s.repo.FarmerTopProducts(ctx, session.UserID, limit)
	if err != nil {
		logger.Error("failed to load top products", err, "farmer_id", session.UserID)
		return nil, err
	}

	return stats, nil
}

func (s *dashboardService) CategorySales(ctx context.Context, session domain.Session) ([]domain.CategorySales, error) {
	if err := farmerAnalytics(ctx, session, "category sales"); err != nil {
		return nil, err
	}

	sales, err := s.repo.FarmerCategorySales(ctx, session.UserID)
	if err != nil {
		logger.Error("failed to load category sales", err, "farmer_id", session.UserID)
		return nil, err
	}

	return sales, nil
}

// growth is the percentage change from previous to current, rounded to one
// decimal. An empty previous period counts as 1.
func growth(current, previous domain.Totals) domain.Growth {
	pct := func(cur, prev decimal.Decimal) float64 {
		if prev.IsZero() {
			prev = decimal.NewFromInt(1)
		}
		f, _ := cur.Sub(prev).Div(prev).Mul(decimal.NewFromInt(100)).Float64()
		return math.Round(f*10) / 10
	}
	count := func(cur, prev int64) float64 {
		return pct(decimal.NewFromInt(cur), decimal.NewFromInt(prev))
	}

	return domain.Growth{
		Users:    count(current.Users, previous.Users),
		Products: count(current.Products, previous.Products),
		Orders:   count(current.Orders, previous.Orders),
		Revenue:  pct(current.Revenue, previous.Revenue),
	}
}

// fillDays returns one point per day starting at since, zero where the
// query had no row.
func fillDays(points []domain.DailyPoint, since time.Time, days int) []domain.DailyPoint {
	byDay := make(map[string]domain.DailyPoint, len(points))
	for _, p := range points {
		byDay[p.Day.UTC().Format(time.DateOnly)] = p
	}

	out := make([]domain.DailyPoint, 0, days)
	for i := 0; i < days; i++ {
		day := since.AddDate(0, 0, i)
		p, ok := byDay[day.Format(time.DateOnly)]
		if !ok {
			p = domain.DailyPoint{Amount: decimal.Zero}
		}
		p.Day = day
		out = append(out, p)
	}

	return out
}
