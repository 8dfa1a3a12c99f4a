package orders

import (
	"context"
	"errors"
	"fmt"
	"math"
	"sort"
	"time"

	"farmDirect/business/policy"
	"farmDirect/domain"
	"farmDirect/pkg/logger"
	"farmDirect/pkg/metrics"
)

// OrdersRepository contract interface. Every method that changes stock,
// reservations or balances runs in a single database transaction.
type OrdersRepository interface {
	// Create locks the products, reserves stock, inserts the order with its
	// items and calls submit before committing. Any error rolls back.
	Create(ctx context.Context, userID uint, lines []domain.OrderLine, submit domain.PaymentSubmitter) (domain.Order, domain.PaymentSubmission, error)
	FindByID(ctx context.Context, id uint) (domain.Order, error)
	List(ctx context.Context, scope domain.OrderScope) ([]domain.Order, error)
	// MarkPaid moves a PENDING, unpaid order to COMPLETED and settles stock
	// and farmer balances. It reports false when the order was not PENDING.
	MarkPaid(ctx context.Context, id uint, paidAt time.Time) (bool, error)
	// CancelPending moves a PENDING order to CANCELLED and releases its
	// reservation. It reports false when the order was not PENDING.
	CancelPending(ctx context.Context, id uint) (bool, error)
	// UpdateStatus applies a manual transition conditional on order.Status
	// still being current.
	UpdateStatus(ctx context.Context, order domain.Order, to domain.OrderStatus) (domain.Order, error)
	Delete(ctx context.Context, id uint) error
}

type UserRepository interface {
	FindByID(ctx context.Context, id uint) (domain.User, error)
}

type PaymentGateway interface {
	SubmitOrder(ctx context.Context, req domain.PaymentRequest) (domain.PaymentSubmission, error)
}

// IdempotencyRepository remembers checkouts by client supplied key.
type IdempotencyRepository interface {
	// Acquire claims the key. When the key was already completed it
	// returns the stored checkout with acquired=false.
	Acquire(ctx context.Context, userID uint, key string) (stored domain.Checkout, acquired bool, err error)
	Complete(ctx context.Context, userID uint, key string, checkout domain.Checkout) error
	Release(ctx context.Context, userID uint, key string) error
}

type NotificationRepository interface {
	SendEmail(toName, toEmail, subject, message string) (err error)
}

const (
	SubjectPaymentReceived   = "Payment received for your FarmDirect order"
	EmailBodyPaymentReceived = `Hello %v,</br></br>We have received your payment of %v for order #%v. The farmers are preparing your produce.</br></br>FarmDirect`
)

const (
	idempotencyWriteTimeout = 5 * time.Second
	// quantities are stored in INTEGER columns
	maxLineQuantity = math.MaxInt32
)

type OrdersService struct {
	orderRepo OrdersRepository
	userRepo  UserRepository
	gateway   PaymentGateway
	idemRepo  IdempotencyRepository
	notifRepo NotificationRepository
	now       func() time.Time
}

func NewOrdersService(
	orderRepo OrdersRepository,
	userRepo UserRepository,
	gateway PaymentGateway,
	idemRepo IdempotencyRepository,
	notifRepo NotificationRepository,
) *OrdersService {
	return &OrdersService{
		orderRepo: orderRepo,
		userRepo:  userRepo,
		gateway:   gateway,
		idemRepo:  idemRepo,
		notifRepo: notifRepo,
		now:       time.Now,
	}
}

func (s *OrdersService) CreateOrder(ctx context.Context, session domain.Session, input domain.CreateOrderInput) (domain.Checkout, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when creating order")
		return domain.Checkout{}, fmt.Errorf("context error: %w", err)
	}

	if err := policy.Authorize(session, policy.CreateOrder, nil); err != nil {
		return domain.Checkout{}, err
	}

	lines, err := normalizeLines(input.Lines)
	if err != nil {
		metrics.CheckoutTotal.WithLabelValues("rejected").Inc()
		return domain.Checkout{}, err
	}

	if input.IdempotencyKey != "" {
		stored, acquired, err := s.idemRepo.Acquire(ctx, session.UserID, input.IdempotencyKey)
		if err != nil {
			logger.Error("failed to acquire idempotency key", err)
			return domain.Checkout{}, fmt.Errorf("failed to acquire idempotency key: %w", err)
		}

		if !acquired {
			if stored.Order.ID == 0 {
				return domain.Checkout{}, domain.Conflict("an identical checkout is already in progress")
			}

			order, err := s.orderRepo.FindByID(ctx, stored.Order.ID)
			if err != nil {
				return domain.Checkout{}, err
			}

			logger.Info("checkout replayed from idempotency key", "order_id", order.ID)
			return domain.Checkout{Order: order, RedirectURL: stored.RedirectURL}, nil
		}
	}

	checkout, err := s.checkout(ctx, session, input.Phone, lines)

	if input.IdempotencyKey != "" {
		// The outcome must be recorded even when the caller has gone away,
		// otherwise a retry would be refused or create a second order.
		idemCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), idempotencyWriteTimeout)
		defer cancel()

		if err != nil {
			if rerr := s.idemRepo.Release(idemCtx, session.UserID, input.IdempotencyKey); rerr != nil {
				logger.Warn("failed to release idempotency key", rerr)
			}
		} else if cerr := s.idemRepo.Complete(idemCtx, session.UserID, input.IdempotencyKey, checkout); cerr != nil {
			logger.Error("failed to store idempotency key", cerr, "order_id", checkout.Order.ID)
		}
	}

	if err != nil {
		return domain.Checkout{}, err
	}

	return checkout, nil
}

func (s *OrdersService) checkout(ctx context.Context, session domain.Session, phone string, lines []domain.OrderLine) (domain.Checkout, error) {
	start := time.Now()
	defer func() {
		metrics.CheckoutDuration.Observe(time.Since(start).Seconds())
	}()

	if phone == "" {
		buyer, err := s.userRepo.FindByID(ctx, session.UserID)
		if err != nil {
			logger.Error("failed to load buyer", err)
			return domain.Checkout{}, err
		}
		phone = buyer.Phone
	}

	if phone == "" {
		metrics.CheckoutTotal.WithLabelValues("rejected").Inc()
		return domain.Checkout{}, domain.Validation("a phone number is required for payment")
	}

	submit := func(order domain.Order) (domain.PaymentSubmission, error) {
		return s.gateway.SubmitOrder(ctx, domain.PaymentRequest{
			OrderID:     order.ID,
			Amount:      order.Total.StringFixed(2),
			Description: fmt.Sprintf("FarmDirect order #%d", order.ID),
			Phone:       phone,
		})
	}

	order, submission, err := s.orderRepo.Create(ctx, session.UserID, lines, submit)
	if err != nil {
		metrics.CheckoutTotal.WithLabelValues(checkoutOutcome(err)).Inc()
		logger.Error("failed to create order", err, "user_id", session.UserID)
		return domain.Checkout{}, err
	}

	metrics.CheckoutTotal.WithLabelValues("created").Inc()
	logger.Info("order created", "order_id", order.ID, "total", order.Total.String())

	return domain.Checkout{Order: order, RedirectURL: submission.RedirectURL}, nil
}

// ApplyPaymentResult records a gateway notification. Repeated deliveries
// of the same outcome change nothing after the first.
func (s *OrdersService) ApplyPaymentResult(ctx context.Context, cb domain.PaymentCallback) (domain.PaymentResult, error) {
	if err := ctx.Err(); err != nil {
		return domain.PaymentResult{}, fmt.Errorf("context error: %w", err)
	}

	outcome := domain.ParsePaymentStatus(cb.Status)
	if outcome == domain.PaymentUnknown {
		metrics.PaymentCallbackTotal.WithLabelValues("rejected").Inc()
		return domain.PaymentResult{}, domain.Validation(fmt.Sprintf("unknown payment status %q", cb.Status))
	}

	if cb.OrderID == 0 {
		metrics.PaymentCallbackTotal.WithLabelValues("rejected").Inc()
		return domain.PaymentResult{}, domain.Validation("merchant reference is required")
	}

	order, err := s.orderRepo.FindByID(ctx, cb.OrderID)
	if err != nil {
		metrics.PaymentCallbackTotal.WithLabelValues("rejected").Inc()
		return domain.PaymentResult{}, err
	}

	if order.PaymentTrackingID != nil && *order.PaymentTrackingID != cb.TrackingID {
		metrics.PaymentCallbackTotal.WithLabelValues("rejected").Inc()
		logger.Warn("payment callback tracking id mismatch", "order_id", order.ID)
		return domain.PaymentResult{}, domain.Forbidden("tracking id does not match order")
	}

	var applied bool
	switch outcome {
	case domain.PaymentSucceeded:
		applied, err = s.orderRepo.MarkPaid(ctx, order.ID, s.now().UTC())
	default:
		applied, err = s.orderRepo.CancelPending(ctx, order.ID)
	}
	if err != nil {
		metrics.PaymentCallbackTotal.WithLabelValues("error").Inc()
		logger.Error("failed to apply payment result", err, "order_id", order.ID)
		return domain.PaymentResult{}, err
	}

	if !applied {
		metrics.PaymentCallbackTotal.WithLabelValues("duplicate").Inc()
		logger.Info("payment callback had no effect", "order_id", order.ID, "status", string(order.Status))
		return domain.PaymentResult{OrderID: order.ID, Status: order.Status, Applied: false}, nil
	}

	if outcome == domain.PaymentFailed {
		metrics.PaymentCallbackTotal.WithLabelValues("cancelled").Inc()
		metrics.OrderStatusTransitions.WithLabelValues(string(domain.OrderPending), string(domain.OrderCancelled)).Inc()
		logger.Info("order cancelled after failed payment", "order_id", order.ID)
		return domain.PaymentResult{OrderID: order.ID, Status: domain.OrderCancelled, Applied: true}, nil
	}

	metrics.PaymentCallbackTotal.WithLabelValues("applied").Inc()
	metrics.OrderStatusTransitions.WithLabelValues(string(domain.OrderPending), string(domain.OrderCompleted)).Inc()
	logger.Info("order paid", "order_id", order.ID, "total", order.Total.String())

	s.sendPaymentReceipt(ctx, order)

	return domain.PaymentResult{OrderID: order.ID, Status: domain.OrderCompleted, Applied: true}, nil
}

func (s *OrdersService) sendPaymentReceipt(ctx context.Context, order domain.Order) {
	buyer, err := s.userRepo.FindByID(ctx, order.UserID)
	if err != nil {
		logger.Warn("failed to load buyer for receipt", err, "order_id", order.ID)
		return
	}

	body := fmt.Sprintf(EmailBodyPaymentReceived, buyer.Name, order.Total.StringFixed(2), order.ID)
	if err := s.notifRepo.SendEmail(buyer.Name, buyer.Email, SubjectPaymentReceived, body); err != nil {
		logger.Warn("failed to send payment receipt", err, "order_id", order.ID)
	}
}

func (s *OrdersService) UpdateStatus(ctx context.Context, session domain.Session, id uint, rawStatus string) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		logger.Error("context error when updating order status")
		return domain.Order{}, fmt.Errorf("context error: %w", err)
	}

	to, ok := domain.ParseOrderStatus(rawStatus)
	if !ok {
		return domain.Order{}, domain.Validation(fmt.Sprintf("invalid order status %q", rawStatus))
	}

	if err := policy.Authorize(session, policy.UpdateOrderStatus, nil); err != nil {
		return domain.Order{}, err
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}

	if err := policy.Authorize(session, policy.UpdateOrderStatus, policy.Owned(order.FarmerIDs()...)); err != nil {
		logger.Warn("order status update denied", "order_id", order.ID, "user_id", session.UserID)
		return domain.Order{}, domain.Forbidden("you can only update orders containing your products")
	}

	if order.Status == to {
		return order, nil
	}

	if !order.Status.CanTransition(to) {
		return domain.Order{}, domain.Conflict(fmt.Sprintf("cannot change order status from %s to %s", order.Status, to))
	}

	updated, err := s.orderRepo.UpdateStatus(ctx, order, to)
	if err != nil {
		logger.Error("failed to update order status", err, "order_id", order.ID)
		return domain.Order{}, err
	}

	metrics.OrderStatusTransitions.WithLabelValues(string(order.Status), string(to)).Inc()
	logger.Info("order status updated", "order_id", order.ID, "from", string(order.Status), "to", string(to))

	return updated, nil
}

func (s *OrdersService) ListOrders(ctx context.Context, session domain.Session) ([]domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return nil, fmt.Errorf("context error: %w", err)
	}

	if err := policy.Authorize(session, policy.ListOrders, nil); err != nil {
		return nil, err
	}

	scope := domain.OrderScope{}
	switch session.Role {
	case domain.RoleAdmin:
		scope.All = true
	case domain.RoleFarmer:
		scope.FarmerID = session.UserID
	default:
		scope.UserID = session.UserID
	}

	orders, err := s.orderRepo.List(ctx, scope)
	if err != nil {
		logger.Error("failed to list orders", err)
		return nil, err
	}

	return orders, nil
}

func (s *OrdersService) GetOrder(ctx context.Context, session domain.Session, id uint) (domain.Order, error) {
	if err := ctx.Err(); err != nil {
		return domain.Order{}, fmt.Errorf("context error: %w", err)
	}

	order, err := s.orderRepo.FindByID(ctx, id)
	if err != nil {
		return domain.Order{}, err
	}

	owners := append([]uint{order.UserID}, order.FarmerIDs()...)
	if err := policy.Authorize(session, policy.ViewOrder, policy.Owned(owners...)); err != nil {
		return domain.Order{}, err
	}

	return order, nil
}

func (s *OrdersService) DeleteOrder(ctx context.Context, session domain.Session, id uint) error {
	if err := ctx.Err(); err != nil {
		return fmt.Errorf("context error: %w", err)
	}

	if err := policy.Authorize(session, policy.DeleteOrder, nil); err != nil {
		return err
	}

	if err := s.orderRepo.Delete(ctx, id); err != nil {
		logger.Error("failed to delete order", err, "order_id", id)
		return err
	}

	logger.Info("order deleted", "order_id", id)

	return nil
}

// normalizeLines validates requested quantities, merges repeated products
// and orders lines by product id so rows are always locked in one order.
func normalizeLines(lines []domain.OrderLine) ([]domain.OrderLine, error) {
	if len(lines) == 0 {
		return nil, domain.Validation("order must contain at least one item")
	}

	merged := make(map[uint]int, len(lines))
	for _, l := range lines {
		if l.ProductID == 0 {
			return nil, domain.Validation("product id is required")
		}
		if l.Quantity <= 0 {
			return nil, domain.Validation("quantity must be greater than 0")
		}
		merged[l.ProductID] += l.Quantity
		if q := merged[l.ProductID]; q <= 0 || q > maxLineQuantity {
			return nil, domain.Validation("quantity is too large")
		}
	}

	out := make([]domain.OrderLine, 0, len(merged))
	for id, qty := range merged {
		out = append(out, domain.OrderLine{ProductID: id, Quantity: qty})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ProductID < out[j].ProductID })

	return out, nil
}

func checkoutOutcome(err error) string {
	switch {
	case errors.Is(err, domain.ErrValidation), errors.Is(err, domain.ErrNotFound), errors.Is(err, domain.ErrConflict):
		return "rejected"
	default:
		return "failed"
	}
}
