package rest

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"
	"strings"
	"time"

	"farmDirect/domain"
	"farmDirect/internal/repository/pesapal"
	"farmDirect/pkg/logger"

	"github.com/AMFarhan21/fres"
	"github.com/labstack/echo/v4"
)

const maxWebhookBody = 1 << 20

type (
	PaymentCallbackService interface {
		ApplyPaymentResult(ctx context.Context, cb domain.PaymentCallback) (domain.PaymentResult, error)
	}

	SignatureVerifier interface {
		Verify(body []byte, signature string) bool
	}

	WebhookController struct {
		paymentService PaymentCallbackService
		verifier       SignatureVerifier
		timeout        time.Duration
	}

	// WebhookRequest is the gateway's payment notification. Status may come
	// as a code or a description depending on the notification type.
	WebhookRequest struct {
		OrderMerchantReference   string `json:"OrderMerchantReference"`
		OrderTrackingID          string `json:"OrderTrackingId"`
		OrderNotificationType    string `json:"OrderNotificationType"`
		Status                   string `json:"status"`
		PaymentStatusDescription string `json:"payment_status_description"`
	}
)

func NewWebhookController(paymentService PaymentCallbackService, verifier SignatureVerifier, timeout time.Duration) *WebhookController {
	return &WebhookController{
		paymentService: paymentService,
		verifier:       verifier,
		timeout:        timeout,
	}
}

// HandleWebhook answers 2xx only once the outcome is stored. Local failures
// answer 500 so the gateway delivers again.
func (ctrl *WebhookController) HandleWebhook(c echo.Context) error {
	body, err := io.ReadAll(io.LimitReader(c.Request().Body, maxWebhookBody))
	if err != nil {
		logger.Error("failed to read webhook body", err)
		return domain.Validation("unreadable request body")
	}

	if !ctrl.verifier.Verify(body, c.Request().Header.Get(pesapal.SignatureHeader)) {
		logger.Warn("payment callback rejected: bad signature", "remote_ip", c.RealIP())
		return domain.Unauthorized("invalid signature")
	}

	var request WebhookRequest
	if err := json.Unmarshal(body, &request); err != nil {
		logger.Warn("failed to decode webhook request", err)
		return domain.Validation("invalid request body")
	}

	orderID, err := strconv.ParseUint(strings.TrimSpace(request.OrderMerchantReference), 10, 64)
	if err != nil || orderID == 0 {
		return domain.Validation("invalid merchant reference")
	}

	status := request.Status
	if status == "" {
		status = request.PaymentStatusDescription
	}

	ctx, cancel := context.WithTimeout(c.Request().Context(), ctrl.timeout)
	defer cancel()

	result, err := ctrl.paymentService.ApplyPaymentResult(ctx, domain.PaymentCallback{
		OrderID:    uint(orderID),
		TrackingID: request.OrderTrackingID,
		Status:     status,
	})
	if err != nil {
		if isCallbackRejection(err) {
			return err
		}
		logger.Error("failed to apply payment callback", "order_id", orderID, err)
		return echo.NewHTTPError(http.StatusInternalServerError, "failed to record payment")
	}

	return c.JSON(http.StatusOK, fres.Response.StatusOK(result))
}

// isCallbackRejection reports errors that a redelivery cannot fix.
func isCallbackRejection(err error) bool {
	return errors.Is(err, domain.ErrValidation) ||
		errors.Is(err, domain.ErrNotFound) ||
		errors.Is(err, domain.ErrForbidden)
}
