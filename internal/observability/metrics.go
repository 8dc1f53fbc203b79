package observability

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
)

var (
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_requests_total",
			Help: "Total number of requests",
		},
		[]string{"route", "code", "method"},
	)

	PaymentDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "checkout_payment_seconds",
			Help:    "Duration of payment provider calls",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"step"},
	)

	PaymentsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_payments_total",
			Help: "Payment attempts by outcome",
		},
		[]string{"outcome"},
	)

	TotalMismatch = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_total_mismatch_total",
			Help: "Bookings whose client total differs from unit price times quantity",
		},
	)

	ArtifactsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_ticket_artifacts_total",
			Help: "Ticket artifacts generated by format",
		},
		[]string{"format"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "checkout_notifications_total",
			Help: "Notification emails by recipient kind and result",
		},
		[]string{"kind", "result"},
	)

	DBTxDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "checkout_db_tx_seconds",
			Help:    "Duration of DB transactions",
			Buckets: prometheus.DefBuckets,
		},
	)

	OutboxLag = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "checkout_outbox_lag_seconds",
			Help: "Lag of outbox publishing",
		},
	)

	RateLimitExceeded = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "checkout_rate_limit_exceeded_total",
			Help: "Total rate limit exceeded",
		},
	)
)

var registerOnce sync.Once

func InitMetrics() {
	registerOnce.Do(func() {
		prometheus.MustRegister(
			RequestsTotal,
			PaymentDuration,
			PaymentsTotal,
			TotalMismatch,
			ArtifactsTotal,
			NotificationsTotal,
			DBTxDuration,
			OutboxLag,
			RateLimitExceeded,
		)
	})
}
