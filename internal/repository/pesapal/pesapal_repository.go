package pesapal

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"
	"strings"
	"sync"
	"time"

	"farmDirect/domain"
	"farmDirect/pkg/metrics"

	"github.com/pobyzaarif/goshortcute"
)

// tokens are refreshed this long before the gateway expires them
const tokenSkew = 30 * time.Second

// fallback lifetime when the gateway omits a parsable expiry
const defaultTokenTTL = 4 * time.Minute

type PesapalConfig struct {
	BaseURL        string
	ConsumerKey    string
	ConsumerSecret string
	CallbackURL    string
	NotificationID string
	Currency       string
	Timeout        time.Duration
}

type PesapalRepository struct {
	cfg    PesapalConfig
	client *http.Client
	now    func() time.Time

	mu        sync.Mutex
	token     string
	expiresAt time.Time
}

func NewPesapalRepository(cfg PesapalConfig) *PesapalRepository {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 15 * time.Second
	}

	return &PesapalRepository{
		cfg:    cfg,
		client: &http.Client{Timeout: timeout},
		now:    time.Now,
	}
}

type gatewayError struct {
	ErrorType string `json:"error_type"`
	Code      string `json:"code"`
	Message   string `json:"message"`
}

type tokenResponse struct {
	Token      string        `json:"token"`
	ExpiryDate string        `json:"expiryDate"`
	Error      *gatewayError `json:"error"`
	Status     string        `json:"status"`
	Message    string        `json:"message"`
}

type billingAddress struct {
	PhoneNumber string `json:"phone_number"`
}

type submitOrderRequest struct {
	ID             string         `json:"id"`
	Currency       string         `json:"currency"`
	Amount         json.Number    `json:"amount"`
	Description    string         `json:"description"`
	CallbackURL    string         `json:"callback_url"`
	NotificationID string         `json:"notification_id,omitempty"`
	BillingAddress billingAddress `json:"billing_address"`
}

type submitOrderResponse struct {
	OrderTrackingID   string        `json:"order_tracking_id"`
	MerchantReference string        `json:"merchant_reference"`
	RedirectURL       string        `json:"redirect_url"`
	Error             *gatewayError `json:"error"`
	Status            string        `json:"status"`
}

// RequestToken returns a cached bearer token, fetching a new one when the
// cached token is about to expire.
func (r *PesapalRepository) RequestToken(ctx context.Context) (string, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.token != "" && r.now().Before(r.expiresAt.Add(-tokenSkew)) {
		return r.token, nil
	}

	start := time.Now()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, r.cfg.BaseURL+"/Auth/RequestToken", nil)
	if err != nil {
		return "", err
	}

	buildBasicAuth := goshortcute.StringtoBase64Encode(r.cfg.ConsumerKey + ":" + r.cfg.ConsumerSecret)
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", "Basic "+buildBasicAuth)

	var out tokenResponse
	if err := r.do(req, &out); err != nil {
		observe("token", start, err)
		return "", err
	}

	if out.Error != nil || out.Token == "" {
		err := upstream("payment gateway rejected credentials", describe(out.Error, out.Message))
		observe("token", start, err)
		return "", err
	}
	observe("token", start, nil)

	expiresAt, perr := time.Parse(time.RFC3339Nano, out.ExpiryDate)
	if perr != nil {
		expiresAt = r.now().Add(defaultTokenTTL)
	}

	r.token = out.Token
	r.expiresAt = expiresAt

	return r.token, nil
}

// SubmitOrder registers the order with the gateway and returns its tracking
// id and the page where the consumer completes payment.
func (r *PesapalRepository) SubmitOrder(ctx context.Context, p domain.PaymentRequest) (domain.PaymentSubmission, error) {
	token, err := r.RequestToken(ctx)
	if err != nil {
		return domain.PaymentSubmission{}, err
	}

	start := time.Now()
	payload, err := json.Marshal(submitOrderRequest{
		ID:             strconv.FormatUint(uint64(p.OrderID), 10),
		Currency:       r.cfg.Currency,
		Amount:         json.Number(p.Amount),
		Description:    p.Description,
		CallbackURL:    r.cfg.CallbackURL,
		NotificationID: r.cfg.NotificationID,
		BillingAddress: billingAddress{PhoneNumber: p.Phone},
	})
	if err != nil {
		return domain.PaymentSubmission{}, fmt.Errorf("failed to marshal json payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, r.cfg.BaseURL+"/Transactions/SubmitOrderRequest", bytes.NewReader(payload))
	if err != nil {
		return domain.PaymentSubmission{}, err
	}
	req.Header.Add("Content-Type", "application/json")
	req.Header.Add("Accept", "application/json")
	req.Header.Add("Authorization", "Bearer "+token)

	var out submitOrderResponse
	if err := r.do(req, &out); err != nil {
		observe("submit_order", start, err)
		return domain.PaymentSubmission{}, err
	}

	if out.Error != nil || out.OrderTrackingID == "" {
		err := upstream("payment gateway rejected the order", describe(out.Error, out.Status))
		observe("submit_order", start, err)
		return domain.PaymentSubmission{}, err
	}
	observe("submit_order", start, nil)

	return domain.PaymentSubmission{
		TrackingID:  out.OrderTrackingID,
		RedirectURL: out.RedirectURL,
	}, nil
}

func (r *PesapalRepository) do(req *http.Request, out any) error {
	res, err := r.client.Do(req)
	if err != nil {
		return upstream("payment gateway unavailable", err.Error())
	}
	defer res.Body.Close()

	body, err := io.ReadAll(io.LimitReader(res.Body, 1<<20))
	if err != nil {
		return upstream("payment gateway unavailable", err.Error())
	}

	if res.StatusCode < 200 || res.StatusCode > 299 {
		return upstream("payment gateway returned an error", fmt.Sprintf("status %d: %s", res.StatusCode, strings.TrimSpace(string(body))))
	}

	if err := json.Unmarshal(body, out); err != nil {
		return upstream("payment gateway returned an invalid response", err.Error())
	}

	return nil
}

func upstream(message, detail string) error {
	return domain.WrapError(domain.ErrUpstream, message, errors.New(detail))
}

func describe(e *gatewayError, fallback string) string {
	if e == nil {
		return fallback
	}

	return strings.TrimSpace(e.Code + " " + e.Message)
}

func observe(operation string, start time.Time, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}

	metrics.GatewayRequestDuration.WithLabelValues(operation, outcome).Observe(time.Since(start).Seconds())
}
