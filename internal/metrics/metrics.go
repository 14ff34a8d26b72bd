package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	HTTPRequestsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gem_http_requests_total",
		Help: "HTTP requests by method, route and status.",
	}, []string{"method", "route", "status"})

	HTTPRequestDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "gem_http_request_duration_seconds",
		Help:    "HTTP request latency by method and route.",
		Buckets: prometheus.DefBuckets,
	}, []string{"method", "route"})

	SalesTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gem_sales_total",
		Help: "Committed sales by type.",
	}, []string{"type"})

	SaleUndosTotal = promauto.NewCounter(prometheus.CounterOpts{
		Name: "gem_sale_undos_total",
		Help: "Cancelled sales.",
	})

	// CommitConflictsTotal counts version-guard misses that led to a retry.
	CommitConflictsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gem_commit_conflicts_total",
		Help: "Optimistic commit conflicts by operation.",
	}, []string{"operation"})

	InvoiceOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gem_invoice_operations_total",
		Help: "Invoice operations by action.",
	}, []string{"action"})

	RecycleBinOpsTotal = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "gem_recycle_bin_operations_total",
		Help: "Recycle bin operations by action and entity type.",
	}, []string{"action", "entity_type"})

	WebsocketClients = promauto.NewGauge(prometheus.GaugeOpts{
		Name: "gem_websocket_clients",
		Help: "Connected event stream clients.",
	})
)
