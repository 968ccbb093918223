package store

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Operations tracks store operations by backend and operation.
	Operations = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_store_operations_total",
			Help: "Total number of persisted key/value operations",
		},
		[]string{"backend", "operation"}, // "redis"|"memory", "get"|"set"|"delete"
	)

	// Misses tracks reads of absent keys.
	Misses = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_store_misses_total",
			Help: "Total number of reads of keys that were not present",
		},
		[]string{"backend"},
	)

	// Errors tracks backend failures.
	Errors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "admin_store_errors_total",
			Help: "Total number of store operation errors",
		},
		[]string{"backend", "operation"},
	)
)
