// internal/app/system/metrics/metrics.go
//
// Package metrics holds the Prometheus instruments for the scheduling core.
// These counters are the service's analytics surface; they are exported on
// /metrics by the bootstrap router.
package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Materializations counts calendar range reads.
	Materializations = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spedhub",
		Subsystem: "schedule",
		Name:      "materializations_total",
		Help:      "Calendar date-range materializations served.",
	})

	// VirtualInstances counts instances synthesized from templates during
	// materialization (gap filling).
	VirtualInstances = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spedhub",
		Subsystem: "schedule",
		Name:      "virtual_instances_total",
		Help:      "Virtual instances synthesized from templates.",
	})

	// OrphansDetected counts durable instances excluded from a result set
	// because no template matched their slot.
	OrphansDetected = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spedhub",
		Subsystem: "schedule",
		Name:      "orphans_detected_total",
		Help:      "Orphaned instances detected during materialization.",
	})

	// OrphansDeleted counts orphaned rows actually removed by cleanup.
	OrphansDeleted = promauto.NewCounter(prometheus.CounterOpts{
		Namespace: "spedhub",
		Subsystem: "schedule",
		Name:      "orphans_deleted_total",
		Help:      "Orphaned instance rows deleted by cleanup.",
	})

	// Promotions counts ephemeral-to-durable saves by outcome:
	// "inserted" for a clean insert, "converted" when a duplicate-slot
	// conflict was resolved as an update against the winner's row.
	Promotions = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spedhub",
		Subsystem: "schedule",
		Name:      "instance_promotions_total",
		Help:      "Virtual instance promotions to durable rows, by outcome.",
	}, []string{"outcome"})

	// GroupOps counts group/ungroup requests by operation and result
	// ("ok", "forbidden", "invalid", "error").
	GroupOps = promauto.NewCounterVec(prometheus.CounterOpts{
		Namespace: "spedhub",
		Subsystem: "schedule",
		Name:      "group_operations_total",
		Help:      "Session group/ungroup operations, by result.",
	}, []string{"op", "result"})
)
