package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// ClientMetrics records health signals emitted by the storefront core.
type ClientMetrics struct {
	persistenceFailures *prometheus.CounterVec
	streamReconnects    prometheus.Counter
	staleEventsDropped  prometheus.Counter
	couponRejections    *prometheus.CounterVec
}

// NewClientMetrics registers the client metrics on the provided registerer.
// A nil registerer yields a no-op recorder, matching how workers run without
// a metrics endpoint.
func NewClientMetrics(reg prometheus.Registerer) *ClientMetrics {
	if reg == nil {
		return &ClientMetrics{}
	}
	persistenceFailures := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "cart_persistence_failures_total",
		Help: "Cart save/load/clear operations that fell back to memory.",
	}, []string{"op"})
	streamReconnects := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_stream_reconnects_total",
		Help: "Reconnect attempts made by the order status stream.",
	})
	staleEventsDropped := prometheus.NewCounter(prometheus.CounterOpts{
		Name: "order_stream_stale_events_total",
		Help: "Status events discarded because they would rewind the displayed status.",
	})
	couponRejections := prometheus.NewCounterVec(prometheus.CounterOpts{
		Name: "coupon_rejections_total",
		Help: "Coupon evaluations that failed a validity guard.",
	}, []string{"reason"})
	reg.MustRegister(persistenceFailures, streamReconnects, staleEventsDropped, couponRejections)
	return &ClientMetrics{
		persistenceFailures: persistenceFailures,
		streamReconnects:    streamReconnects,
		staleEventsDropped:  staleEventsDropped,
		couponRejections:    couponRejections,
	}
}

// IncPersistenceFailure counts a storage degradation for the named operation.
func (c *ClientMetrics) IncPersistenceFailure(op string) {
	if c == nil || c.persistenceFailures == nil {
		return
	}
	c.persistenceFailures.WithLabelValues(normalizeLabel(op)).Inc()
}

// IncStreamReconnect counts one reconnect attempt.
func (c *ClientMetrics) IncStreamReconnect() {
	if c == nil || c.streamReconnects == nil {
		return
	}
	c.streamReconnects.Inc()
}

// IncStaleEventDropped counts a discarded out-of-order status event.
func (c *ClientMetrics) IncStaleEventDropped() {
	if c == nil || c.staleEventsDropped == nil {
		return
	}
	c.staleEventsDropped.Inc()
}

// IncCouponRejection counts a failed coupon guard by reason.
func (c *ClientMetrics) IncCouponRejection(reason string) {
	if c == nil || c.couponRejections == nil {
		return
	}
	c.couponRejections.WithLabelValues(normalizeLabel(reason)).Inc()
}

func normalizeLabel(value string) string {
	if value == "" {
		return "unknown"
	}
	return value
}
