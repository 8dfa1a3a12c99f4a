package pesapal

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"farmDirect/domain"

	"github.com/pobyzaarif/goshortcute"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newGateway(t *testing.T, handler http.HandlerFunc) *PesapalRepository {
	t.Helper()

	srv := httptest.NewServer(handler)
	t.Cleanup(srv.Close)

	return NewPesapalRepository(PesapalConfig{
		BaseURL:        srv.URL,
		ConsumerKey:    "key",
		ConsumerSecret: "secret",
		CallbackURL:    "https://farmdirect.example/payment/complete",
		NotificationID: "ipn-1",
		Currency:       "KES",
		Timeout:        2 * time.Second,
	})
}

func TestSubmitOrder(t *testing.T) {
	var tokenCalls atomic.Int32

	repo := newGateway(t, func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/Auth/RequestToken":
			tokenCalls.Add(1)
			assert.Equal(t, http.MethodGet, r.Method)
			assert.Equal(t, "Basic "+goshortcute.StringtoBase64Encode("key:secret"), r.Header.Get("Authorization"))
			_ = json.NewEncoder(w).Encode(map[string]string{
				"token":      "tok-1",
				"expiryDate": time.Now().Add(5 * time.Minute).UTC().Format(time.RFC3339Nano),
				"status":     "200",
			})
		case "/Transactions/SubmitOrderRequest":
			assert.Equal(t, "Bearer tok-1", r.Header.Get("Authorization"))

			var body map[string]any
			require.NoError(t, json.NewDecoder(r.Body).Decode(&body))
			assert.Equal(t, "7", body["id"])
			assert.Equal(t, "KES", body["currency"])
			assert.Equal(t, 240.0, body["amount"])
			assert.Equal(t, "ipn-1", body["notification_id"])
			assert.Equal(t, "+254700000002", body["billing_address"].(map[string]any)["phone_number"])

			_ = json.NewEncoder(w).Encode(map[string]string{
				"order_tracking_id":  "trk-7",
				"merchant_reference": "7",
				"redirect_url":       "https://pay.pesapal.com/iframe/trk-7",
				"status":             "200",
			})
		default:
			http.NotFound(w, r)
		}
	})

	req := domain.PaymentRequest{OrderID: 7, Amount: "240.00", Description: "FarmDirect order #7", Phone: "+254700000002"}

	sub, err := repo.SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, "trk-7", sub.TrackingID)
	assert.Equal(t, "https://pay.pesapal.com/iframe/trk-7", sub.RedirectURL)

	_, err = repo.SubmitOrder(context.Background(), req)
	require.NoError(t, err)
	assert.Equal(t, int32(1), tokenCalls.Load(), "token is cached")
}

func TestSubmitOrderGatewayErrors(t *testing.T) {
	tests := []struct {
		name    string
		handler http.HandlerFunc
	}{
		{"token rejected", func(w http.ResponseWriter, r *http.Request) {
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "invalid_consumer_key_or_secret_provided", "message": "bad key"},
			})
		}},
		{"server error", func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusServiceUnavailable)
		}},
		{"order rejected", func(w http.ResponseWriter, r *http.Request) {
			if r.URL.Path == "/Auth/RequestToken" {
				_ = json.NewEncoder(w).Encode(map[string]string{"token": "tok"})
				return
			}
			_ = json.NewEncoder(w).Encode(map[string]any{
				"error": map[string]string{"code": "amount_exceeds_limit", "message": "limit"},
			})
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			repo := newGateway(t, tt.handler)
			_, err := repo.SubmitOrder(context.Background(), domain.PaymentRequest{OrderID: 1, Amount: "10.00"})
			assert.ErrorIs(t, err, domain.ErrUpstream)
		})
	}
}

func TestSubmitOrderUnreachable(t *testing.T) {
	repo := NewPesapalRepository(PesapalConfig{BaseURL: "http://127.0.0.1:1", Timeout: time.Second})

	_, err := repo.SubmitOrder(context.Background(), domain.PaymentRequest{OrderID: 1, Amount: "1.00"})
	assert.ErrorIs(t, err, domain.ErrUpstream)
}

func TestSignatureVerifier(t *testing.T) {
	v := NewSignatureVerifier("shared")
	body := []byte(`{"OrderMerchantReference":"7"}`)
	sig := v.Sign(body)

	assert.True(t, v.Verify(body, sig))
	assert.False(t, v.Verify(body, ""))
	assert.False(t, v.Verify(body, "zz"))
	assert.False(t, v.Verify([]byte(`{"OrderMerchantReference":"8"}`), sig))
	assert.False(t, NewSignatureVerifier("other").Verify(body, sig))
}
