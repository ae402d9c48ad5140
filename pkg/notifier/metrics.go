// metrics.go exposes the notifier's own delivery counters.

package notifier

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Drop reasons recorded in notifier_items_dropped_total.
const (
	dropDisabled = "disabled"
	dropIgnored  = "ignored"
	dropCapture  = "capture_error"
	dropDelivery = "delivery_error"
)

// Metrics counts reported and dropped items. A nil *Metrics records nothing.
type Metrics struct {
	reported  *prometheus.CounterVec
	drops     *prometheus.CounterVec
	batches   *prometheus.CounterVec
	queueSize prometheus.Gauge
}

// NewMetrics registers the notifier metrics on reg.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	factory := promauto.With(reg)
	return &Metrics{
		reported: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_items_reported_total",
				Help: "Payloads built and accepted for delivery, by level",
			},
			[]string{"level"},
		),
		drops: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_items_dropped_total",
				Help: "Events or payloads dropped, by reason",
			},
			[]string{"reason"},
		),
		batches: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "notifier_batches_total",
				Help: "Batches handed to a sender, by handler and outcome",
			},
			[]string{"handler", "outcome"},
		),
		queueSize: factory.NewGauge(
			prometheus.GaugeOpts{
				Name: "notifier_queue_size",
				Help: "Payloads waiting in the delivery queue",
			},
		),
	}
}

func (m *Metrics) reportedItem(level Level) {
	if m == nil {
		return
	}
	m.reported.WithLabelValues(string(level)).Inc()
}

func (m *Metrics) dropped(reason string, n int) {
	if m == nil || n <= 0 {
		return
	}
	m.drops.WithLabelValues(reason).Add(float64(n))
}

func (m *Metrics) batch(handler HandlerMode, ok bool) {
	if m == nil {
		return
	}
	outcome := "success"
	if !ok {
		outcome = "failure"
	}
	m.batches.WithLabelValues(string(handler), outcome).Inc()
}

func (m *Metrics) setQueueSize(n int) {
	if m == nil {
		return
	}
	m.queueSize.Set(float64(n))
}
