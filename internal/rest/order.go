package rest

import (
	"context"
	"net/http"
	"time"

	"farmDirect/domain"
	"farmDirect/internal/middleware"

	"github.com/AMFarhan21/fres"
	"github.com/go-playground/validator/v10"
	"github.com/labstack/echo/v4"
)

// IdempotencyHeader lets a client retry a checkout without creating a
// second order.
const IdempotencyHeader = "Idempotency-Key"

type OrdersService interface {
	CreateOrder(ctx context.Context, session domain.Session, input domain.CreateOrderInput) (domain.Checkout, error)
	ListOrders(ctx context.Context, session domain.Session) ([]domain.Order, error)
	GetOrder(ctx context.Context, session domain.Session, id uint) (domain.Order, error)
	UpdateStatus(ctx context.Context, session domain.Session, id uint, rawStatus string) (domain.Order, error)
	DeleteOrder(ctx context.Context, session domain.Session, id uint) error
}

type OrdersHandler struct {
	ordersService OrdersService
	validate      *validator.Validate
	timeout       time.Duration
}

func NewOrdersHandler(ordersService OrdersService, timeout time.Duration) *OrdersHandler {
	return &OrdersHandler{
		ordersService: ordersService,
		validate:      validator.New(),
		timeout:       timeout,
	}
}

type OrderItemInput struct {
	ProductID uint `json:"product_id" validate:"required"`
	Quantity  int  `json:"quantity" validate:"required,gt=0"`
}

type CreateOrderRequest struct {
	Items []OrderItemInput `json:"items" validate:"required,min=1,dive"`
	Phone string           `json:"phone"`
}

type UpdateStatusRequest struct {
	Status string `json:"status" validate:"required"`
}

func (h *OrdersHandler) CreateOrder(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	var req CreateOrderRequest
	if err := bindRequest(c, h.validate, &req); err != nil {
		return err
	}

	lines := make([]domain.OrderLine, 0, len(req.Items))
	for _, item := range req.Items {
		lines = append(lines, domain.OrderLine{ProductID: item.ProductID, Quantity: item.Quantity})
	}

	// The gateway round trip happens inside this request.
	ctx, cancel := context.WithTimeout(c.Request().Context(), 2*h.timeout)
	defer cancel()

	checkout, err := h.ordersService.CreateOrder(ctx, session, domain.CreateOrderInput{
		Lines:          lines,
		Phone:          req.Phone,
		IdempotencyKey: c.Request().Header.Get(IdempotencyHeader),
	})
	if err != nil {
		return err
	}

	return c.JSON(http.StatusCreated, fres.Response.StatusCreated(checkout))
}

func (h *OrdersHandler) GetAllOrders(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	orders, err := h.ordersService.ListOrders(ctx, session)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(orders))
}

func (h *OrdersHandler) GetOrderByID(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	order, err := h.ordersService.GetOrder(ctx, session, id)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(order))
}

func (h *OrdersHandler) UpdateOrderStatus(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	var req UpdateStatusRequest
	if err := bindRequest(c, h.validate, &req); err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	order, err := h.ordersService.UpdateStatus(ctx, session, id, req.Status)
	if err != nil {
		return err
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(order))
}

func (h *OrdersHandler) DeleteOrder(c echo.Context) error {
	session, err := middleware.CurrentSession(c)
	if err != nil {
		return err
	}

	id, err := paramID(c, "id")
	if err != nil {
		return err
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), h.timeout)
	defer cancel()

	if err := h.ordersService.DeleteOrder(ctx, session, id); err != nil {
		return err
	}

	return c.NoContent(http.StatusNoContent)
}
