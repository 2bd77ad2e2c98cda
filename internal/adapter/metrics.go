package adapter

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

const (
	namespace = "aviotgw"
	subsystem = "adapter"
)

// Metric outcome label values.
const (
	OutcomeForwarded    = "forwarded"
	OutcomeDiscarded    = "discarded"
	OutcomeUnauthorized = "unauthorized"
	OutcomeBadRequest   = "bad_request"
	OutcomeError        = "error"
)

// Metrics holds the Prometheus metrics of the message router.
type Metrics struct {
	MessagesReceivedTotal  *prometheus.CounterVec
	MessagesForwardedTotal *prometheus.CounterVec
	ForwardFailuresTotal   *prometheus.CounterVec
}

var (
	metricsInstance *Metrics
	metricsOnce     sync.Once
)

// NewMetrics creates the router metrics registered on the default
// registry.
func NewMetrics() *Metrics {
	return &Metrics{
		MessagesReceivedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "messages_received_total",
				Help:      "Inbound provider messages by provider, type and outcome",
			},
			[]string{"provider", "type", "outcome"},
		),
		MessagesForwardedTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "messages_forwarded_total",
				Help:      "Messages forwarded downstream by provider and kind",
			},
			[]string{"provider", "kind"},
		),
		ForwardFailuresTotal: promauto.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Subsystem: subsystem,
				Name:      "forward_failures_total",
				Help:      "Downstream forward initiations that failed by provider",
			},
			[]string{"provider"},
		),
	}
}

// GetMetrics returns the process-wide router metrics.
func GetMetrics() *Metrics {
	metricsOnce.Do(func() {
		metricsInstance = NewMetrics()
	})

	return metricsInstance
}
