package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// CheckoutMetrics records checkout attempts and their outcomes.
type CheckoutMetrics struct {
	duration          *prometheus.HistogramVec
	success           *prometheus.CounterVec
	failure           *prometheus.CounterVec
	promoRejections   *prometheus.CounterVec
	allocationFailure prometheus.Counter
}

// NewCheckoutMetrics registers the checkout metrics on the provided registerer.
func NewCheckoutMetrics(reg prometheus.Registerer) *CheckoutMetrics {
	if reg == nil {
		return &CheckoutMetrics{}
	}
	duration := prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "checkout_duration_seconds",
		Help:    "Duration of checkout transactions in seconds.",
		Buckets: prometheus.DefBuckets,
	}, []string{"source"})
	success := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_success",
		Help: "Successful checkouts.",
	}, []string{"source"})
	failure := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "checkout_failure",
		Help: "Failed checkouts by reason.",
	}, []string{"source", "reason"})
	promoRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "promo_rejections",
		Help: "Promo code rejections by reason.",
	}, []string{"reason"})
	allocationFailure := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_allocation_failure",
		Help: "Order line allocations that could not satisfy the positivity floor.",
	})
	reg.MustRegister(duration, success, failure, promoRejections, allocationFailure)
	return &CheckoutMetrics{
		duration:          duration,
		success:           success,
		failure:           failure,
		promoRejections:   promoRejections,
		allocationFailure: allocationFailure,
	}
}

// ObserveDuration records the checkout duration for the cart source.
func (c *CheckoutMetrics) ObserveDuration(source string, duration time.Duration) {
	if c == nil || c.duration == nil {
		return
	}
	c.duration.WithLabelValues(normalizeLabel(source)).Observe(duration.Seconds())
}

// IncSuccess increments the success counter for the cart source.
func (c *CheckoutMetrics) IncSuccess(source string) {
	if c == nil || c.success == nil {
		return
	}
	c.success.WithLabelValues(normalizeLabel(source)).Inc()
}

// IncFailure increments the failure counter for the cart source and reason.
func (c *CheckoutMetrics) IncFailure(source, reason string) {
	if c == nil || c.failure == nil {
		return
	}
	c.failure.WithLabelValues(normalizeLabel(source), normalizeLabel(reason)).Inc()
}

// IncPromoRejection increments the promo rejection counter for the reason.
func (c *CheckoutMetrics) IncPromoRejection(reason string) {
	if c == nil || c.promoRejections == nil {
		return
	}
	c.promoRejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

// IncAllocationFailure increments the allocation failure counter.
func (c *CheckoutMetrics) IncAllocationFailure() {
	if c == nil || c.allocationFailure == nil {
		return
	}
	c.allocationFailure.Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
