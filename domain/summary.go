package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type Totals struct {
	Users    int64           `json:"users"`
	Products int64           `json:"products"`
	Orders   int64           `json:"orders"`
	Revenue  decimal.Decimal `json:"revenue"`
}

type Growth struct {
	Users    float64 `json:"users"`
	Products float64 `json:"products"`
	Orders   float64 `json:"orders"`
	Revenue  float64 `json:"revenue"`
}

type DailyPoint struct {
	Day    time.Time       `json:"day"`
	Count  int64           `json:"count"`
	Amount decimal.Decimal `json:"amount"`
}

type CategoryStat struct {
	CategoryID   uint   `json:"category_id"`
	Name         string `json:"name"`
	ProductCount int64  `json:"product_count"`
	ItemsSold    int64  `json:"items_sold"`
}

type ProductStat struct {
	ProductID uint            `json:"product_id"`
	Name      string          `json:"name"`
	UnitsSold int64           `json:"units_sold"`
	Revenue   decimal.Decimal `json:"revenue"`
}

type AdminSummary struct {
	Totals         Totals         `json:"totals"`
	Growth         Growth         `json:"growth"`
	UserGrowth     []DailyPoint   `json:"user_growth"`
	Transactions   []DailyPoint   `json:"transactions"`
	RecentOrders   []Order        `json:"recent_orders"`
	RecentProducts []Product      `json:"recent_products"`
	Categories     []CategoryStat `json:"categories"`
	TopProducts    []ProductStat  `json:"top_products"`
}

type FarmerDashboard struct {
	ProductCount  int64           `json:"product_count"`
	LowStock      []Product       `json:"low_stock"`
	PendingOrders int64           `json:"pending_orders"`
	PaidOrders    int64           `json:"paid_orders"`
	TotalSales    decimal.Decimal `json:"total_sales"`
	Balance       decimal.Decimal `json:"balance"`
	RecentOrders  []Order         `json:"recent_orders"`
}

// SalesSummary covers a farmer's settled order items.
type SalesSummary struct {
	TotalSales   decimal.Decimal `json:"total_sales"`
	Orders       int64           `json:"orders"`
	UnitsSold    int64           `json:"units_sold"`
	AverageOrder decimal.Decimal `json:"average_order"`
}

type StatusCount struct {
	Status OrderStatus `json:"status"`
	Count  int64       `json:"count"`
}

type CategorySales struct {
	CategoryID uint            `json:"category_id"`
	Name       string          `json:"name"`
	UnitsSold  int64           `json:"units_sold"`
	Revenue    decimal.Decimal `json:"revenue"`
}
