package domain

import "strings"

// PaymentSubmission is what the gateway hands back for a submitted order.
type PaymentSubmission struct {
	TrackingID  string `json:"order_tracking_id"`
	RedirectURL string `json:"redirect_url"`
}

type PaymentRequest struct {
	OrderID     uint
	Amount      string
	Description string
	Phone       string
}

type PaymentOutcome int

const (
	PaymentUnknown PaymentOutcome = iota
	PaymentSucceeded
	PaymentFailed
)

// ParsePaymentStatus classifies a gateway payment status string.
func ParsePaymentStatus(raw string) PaymentOutcome {
	switch strings.ToUpper(strings.TrimSpace(raw)) {
	case "COMPLETED", "SUCCESS":
		return PaymentSucceeded
	case "FAILED", "INVALID", "REVERSED", "CANCELLED":
		return PaymentFailed
	}

	return PaymentUnknown
}

// PaymentCallback is the inbound notification from the gateway.
type PaymentCallback struct {
	OrderID    uint
	TrackingID string
	Status     string
}

type PaymentResult struct {
	OrderID uint        `json:"order_id"`
	Status  OrderStatus `json:"status"`
	Applied bool        `json:"applied"`
}
