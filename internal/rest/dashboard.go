package rest

import (
	"context"
	"net/http"
	"time"

	"farmDirect/domain"
	"farmDirect/internal/middleware"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

type DashboardService interface {
	AdminSummary(ctx context.Context, session domain.Session) (domain.AdminSummary, error)
	FarmerDashboard(ctx context.Context, session domain.Session) (domain.FarmerDashboard, error)
	SalesSummary(ctx context.Context, session domain.Session) (domain.SalesSummary, error)
	SalesTrend(ctx context.Context, session domain.Session, days int) ([]domain.DailyPoint, error)
	OrderStatusBreakdown(ctx context.Context, session domain.Session) ([]domain.StatusCount, error)
	TopProducts(ctx context.Context, session domain.Session, limit int) ([]domain.ProductStat, error)
	CategorySales(ctx context.Context, session domain.Session) ([]domain.CategorySales, error)
}

type DashboardHandler struct {
	dashboardService DashboardService
	timeout          time.Duration
}

func NewDashboardHandler(dashboardService DashboardService, timeout time.Duration) *DashboardHandler {
	return &DashboardHandler{
		dashboardService: dashboardService,
		timeout:          timeout,
	}
}

func (h *DashboardHandler) AdminSummary(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	summary, err := h.dashboardService.AdminSummary(ctx, session)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(summary))
}

func (h *DashboardHandler) FarmerDashboard(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	board, err := h.dashboardService.FarmerDashboard(ctx, session)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(board))
}

func (h *DashboardHandler) SalesSummary(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	summary, err := h.dashboardService.SalesSummary(ctx, session)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(summary))
}

// SalesTrend accepts ?days=N.
func (h *DashboardHandler) SalesTrend(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	days, err := queryInt(c, "days")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	points, err := h.dashboardService.SalesTrend(ctx, session, days)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(points))
}

func (h *DashboardHandler) OrderStatus(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	counts, err := h.dashboardService.OrderStatusBreakdown(ctx, session)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(counts))
}

// TopProducts accepts ?limit=N.
func (h *DashboardHandler) TopProducts(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	limit, err := queryInt(c, "limit")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	stats, err := h.dashboardService.TopProducts(ctx, session, limit)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(stats))
}

func (h *DashboardHandler) CategorySales(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	sales, err := h.dashboardService.CategorySales(ctx, session)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(sales))
}
