// Package metrics holds the Prometheus collectors shared by the webhook,
// the events worker and the outbound clients.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var WebhookDeliveries = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "concierge",
		Subsystem: "webhook",
		Name:      "deliveries_total",
		Help:      "Webhook entries by object and outcome",
	},
	[]string{"object", "outcome"}, // outcome: accepted, duplicate, rejected, invalid
)

var InboundEvents = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "concierge",
		Subsystem: "webhook",
		Name:      "inbound_events_total",
		Help:      "Messages and comments extracted from deliveries",
	},
	[]string{"platform", "surface"},
)

var IntentsFired = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "concierge",
		Subsystem: "replies",
		Name:      "intents_total",
		Help:      "Intent flags raised by the classifier",
	},
	[]string{"intent"},
)

var OutboundCalls = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "concierge",
		Subsystem: "graph",
		Name:      "calls_total",
		Help:      "Graph API calls by kind and status",
	},
	[]string{"kind", "status"},
)

var EventsProcessed = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "concierge",
		Subsystem: "worker",
		Name:      "events_total",
		Help:      "Ledger rows finished by the events worker",
	},
	[]string{"platform", "surface", "status"},
)

var ModelLatency = prometheus.NewHistogramVec(
	prometheus.HistogramOpts{
		Namespace: "concierge",
		Subsystem: "brain",
		Name:      "latency_seconds",
		Help:      "Latency of model calls",
		Buckets:   []float64{0.25, 0.5, 1, 2, 4, 8, 15, 30},
	},
	[]string{"model", "status"},
)

var Lookups = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Namespace: "concierge",
		Subsystem: "geo",
		Name:      "lookups_total",
		Help:      "Geocode and route lookups by outcome",
	},
	[]string{"kind", "outcome"}, // outcome: hit, miss, error
)

func init() {
	prometheus.MustRegister(WebhookDeliveries, InboundEvents, IntentsFired, OutboundCalls, EventsProcessed, ModelLatency, Lookups)
}

// Handler exposes the default registry.
func Handler() http.Handler {
	return promhttp.Handler()
}

func Status(err error) string {
	if err != nil {
		return "error"
	}
	return "ok"
}
