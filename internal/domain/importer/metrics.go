package importer

import (
	"github.com/prometheus/client_golang/prometheus"
)

// Metrics is the importer's Prometheus instrumentation.
type Metrics struct {
	ImportsTotal         *prometheus.CounterVec
	RowsTotal            *prometheus.CounterVec
	RollbacksTotal       prometheus.Counter
	SnapshotsPurgedTotal prometheus.Counter
}

// NewMetrics builds and registers the importer metrics.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		ImportsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weekly_pulse",
			Subsystem: "importer",
			Name:      "imports_total",
			Help:      "Import runs by final status.",
		}, []string{"status"}),
		RowsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "weekly_pulse",
			Subsystem: "importer",
			Name:      "rows_total",
			Help:      "Imported rows by outcome.",
		}, []string{"outcome"}),
		RollbacksTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weekly_pulse",
			Subsystem: "importer",
			Name:      "rollbacks_total",
			Help:      "Completed rollbacks.",
		}),
		SnapshotsPurgedTotal: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "weekly_pulse",
			Subsystem: "importer",
			Name:      "snapshots_purged_total",
			Help:      "Rollback snapshots cleared by the retention job.",
		}),
	}
	reg.MustRegister(m.ImportsTotal, m.RowsTotal, m.RollbacksTotal, m.SnapshotsPurgedTotal)
	return m
}
