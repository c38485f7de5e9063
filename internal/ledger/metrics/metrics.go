package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the ledger's Prometheus metrics.
type Metrics struct {
	PaymentsCompleted prometheus.Counter
	PaymentsFailed    *prometheus.CounterVec
	PaymentVolume     prometheus.Counter
	FeesAccrued       prometheus.Counter
	PaymentDuration   prometheus.Histogram
	PublishFailures   prometheus.Counter
}

// New creates and registers all ledger metrics.
func New() *Metrics {
	return &Metrics{
		PaymentsCompleted: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facepay_payments_completed_total",
			Help: "Total number of completed payments",
		}),
		PaymentsFailed: promauto.NewCounterVec(prometheus.CounterOpts{
			Name: "facepay_payments_failed_total",
			Help: "Total number of failed payment attempts by reason",
		}, []string{"reason"}),
		PaymentVolume: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facepay_payment_volume_total",
			Help: "Total value moved through completed payments, in minor units",
		}),
		FeesAccrued: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facepay_fees_accrued_total",
			Help: "Total protocol fees accrued, in minor units",
		}),
		PaymentDuration: promauto.NewHistogram(prometheus.HistogramOpts{
			Name:    "facepay_payment_duration_seconds",
			Help:    "End-to-end payment processing latency",
			Buckets: prometheus.DefBuckets,
		}),
		PublishFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "facepay_notification_publish_failures_total",
			Help: "Payment notifications that failed to publish after commit",
		}),
	}
}

func (m *Metrics) RecordCompleted(amount, fee uint64) {
	m.PaymentsCompleted.Inc()
	m.PaymentVolume.Add(float64(amount))
	m.FeesAccrued.Add(float64(fee))
}

func (m *Metrics) RecordFailed(reason string) {
	m.PaymentsFailed.WithLabelValues(reason).Inc()
}

func (m *Metrics) ObservePaymentDuration(seconds float64) {
	m.PaymentDuration.Observe(seconds)
}

func (m *Metrics) RecordPublishFailure() {
	m.PublishFailures.Inc()
}
