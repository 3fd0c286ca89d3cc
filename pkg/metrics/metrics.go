package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

var Registry = prometheus.NewRegistry()

var (
	HTTPRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_requests_total",
			Help: "Total number of HTTP requests.",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDurationSeconds = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "Duration of HTTP requests.",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "path"},
	)

	SosTriggersTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sos_triggers_total",
			Help: "Total number of SOS triggers by trigger type.",
		},
		[]string{"type"},
	)

	SosCommitsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sos_commits_total",
			Help: "Total number of SOS commits by result.",
		},
		[]string{"result"},
	)

	NotificationsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sos_notifications_total",
			Help: "Total number of contact notifications by outcome.",
		},
		[]string{"outcome"},
	)

	RetentionDeletedTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "sos_retention_deleted_total",
			Help: "Total number of rows pruned by the retention job.",
		},
		[]string{"table"},
	)

	DocstoreRequestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "docstore_requests_total",
			Help: "Total number of document store RPCs.",
		},
		[]string{"method", "code"},
	)
)

func init() {
	Registry.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		HTTPRequestsTotal,
		HTTPRequestDurationSeconds,
		SosTriggersTotal,
		SosCommitsTotal,
		NotificationsTotal,
		RetentionDeletedTotal,
		DocstoreRequestsTotal,
	)
}

func Handler() http.Handler {
	return promhttp.HandlerFor(Registry, promhttp.HandlerOpts{Registry: Registry})
}
