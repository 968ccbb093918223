// Package metrics provides the Prometheus registry used by the admin client.
// All metrics are defined in their respective packages (client, table, store) to
// maintain modularity and avoid circular dependencies.
//
// This package provides documentation and reference for all available metrics.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Registry is the default Prometheus registry used by the admin client.
// All metrics are automatically registered via promauto in their respective packages.
var Registry = prometheus.DefaultRegisterer

// Gatherer is the registry the metrics endpoint serves.
var Gatherer = prometheus.DefaultGatherer

// Names lists every metric family the client registers.
var Names = []string{
	"admin_api_requests_total",
	"admin_api_request_duration_seconds",
	"admin_api_errors_total",
	"admin_api_canceled_total",
	"admin_table_loads_total",
	"admin_table_load_duration_seconds",
	"admin_store_operations_total",
	"admin_store_misses_total",
	"admin_store_errors_total",
}

// Metrics Documentation
//
// Request Metrics (pkg/client):
//   - admin_api_requests_total{endpoint, status} (Counter): Requests by endpoint and HTTP status
//   - admin_api_request_duration_seconds{endpoint} (Histogram): Request duration by endpoint
//   - admin_api_errors_total{kind} (Counter): Failures by kind (api, http, feature_disabled, session_expired, network)
//   - admin_api_canceled_total (Counter): Requests cancelled by the caller
//
// Table Metrics (pkg/table):
//   - admin_table_loads_total{loader, outcome} (Counter): Loads by outcome (committed, superseded, canceled, failed)
//   - admin_table_load_duration_seconds{loader} (Histogram): Fetch duration of committed loads
//
// Store Metrics (pkg/store):
//   - admin_store_operations_total{backend, operation} (Counter): Persisted key operations
//   - admin_store_misses_total{backend} (Counter): Reads of absent keys
//   - admin_store_errors_total{backend, operation} (Counter): Backend failures
//
// Example Prometheus Queries:
//
//   # Session expiries per hour
//   increase(admin_api_errors_total{kind="session_expired"}[1h])
//
//   # Share of table loads thrown away because a newer one started
//   rate(admin_table_loads_total{outcome="superseded"}[5m]) /
//   sum(rate(admin_table_loads_total[5m]))
//
//   # P95 Request Latency
//   histogram_quantile(0.95, rate(admin_api_request_duration_seconds_bucket[5m]))
