package metrics

import (
	"sync"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var (
	// HTTP
	RequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total HTTP requests",
		},
		[]string{"route", "method", "status"},
	)

	// Webhook deliveries by event type and routing outcome
	WebhookEventsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "webhook_events_total",
			Help: "Total webhook deliveries processed",
		},
		[]string{"event", "result"}, // result: applied|already_terminal|not_found|ignored
	)

	// Settlements by transaction kind and terminal status
	SettlementsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "transactions_settled_total",
			Help: "Total transactions moved to a terminal status",
		},
		[]string{"kind", "status"},
	)

	// Rejected deliveries (signature failures)
	SignatureFailures = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "webhook_signature_failures_total",
			Help: "Total webhook deliveries rejected for a bad signature",
		},
	)
)

var Handler = promhttp.Handler

var registerOnce sync.Once

func Init() {
	registerOnce.Do(func() {
		prometheus.MustRegister(RequestsTotal)
		prometheus.MustRegister(WebhookEventsTotal)
		prometheus.MustRegister(SettlementsTotal)
		prometheus.MustRegister(SignatureFailures)
	})
}
