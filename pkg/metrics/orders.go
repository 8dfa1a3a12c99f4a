package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	// Checkouts by outcome: created, rejected, failed
	CheckoutTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farmdirect_checkout_total",
		Help: "Checkout attempts by outcome",
	}, []string{"outcome"})

	// Latency of the whole checkout transaction including the gateway call
	CheckoutDuration = prometheus.NewHistogram(prometheus.HistogramOpts{
		Name:    "farmdirect_checkout_duration_seconds",
		Help:    "Duration of checkout transactions",
		Buckets: prometheus.DefBuckets,
	})

	// Payment callbacks by result: applied, duplicate, cancelled, rejected, error
	PaymentCallbackTotal = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farmdirect_payment_callback_total",
		Help: "Payment gateway callbacks by result",
	}, []string{"result"})

	GatewayRequestDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "farmdirect_gateway_request_duration_seconds",
		Help:    "Latency of payment gateway calls",
		Buckets: prometheus.DefBuckets,
	}, []string{"operation", "outcome"})

	OrderStatusTransitions = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farmdirect_order_status_transitions_total",
		Help: "Order status transitions",
	}, []string{"from", "to"})

	OutboxPublished = prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "farmdirect_outbox_published_total",
		Help: "Outbox messages relayed to Kafka by outcome",
	}, []string{"outcome"})
)

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			CheckoutTotal,
			CheckoutDuration,
			PaymentCallbackTotal,
			GatewayRequestDuration,
			OrderStatusTransitions,
			OutboxPublished,
		)
	})
}
