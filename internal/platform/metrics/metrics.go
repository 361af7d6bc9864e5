package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics holds the Prometheus counters the sync run reports into.
type Metrics struct {
	SyncRuns           prometheus.Counter
	SyncFailures       prometheus.Counter
	DiagnosesCorrected prometheus.Counter
	DiagnosesDiscarded prometheus.Counter
	FactsPublished     prometheus.Counter
	FactsSuppressed    prometheus.Counter
	RowsSkipped        prometheus.Counter
}

// New creates and registers all Prometheus metrics.
func New() *Metrics {
	return &Metrics{
		SyncRuns: promauto.NewCounter(prometheus.CounterOpts{
			Name: "directory_sync_runs_total",
			Help: "Total number of sync runs started.",
		}),
		SyncFailures: promauto.NewCounter(prometheus.CounterOpts{
			Name: "directory_sync_failures_total",
			Help: "Total number of sync runs that exhausted all attempts.",
		}),
		DiagnosesCorrected: promauto.NewCounter(prometheus.CounterOpts{
			Name: "directory_sync_diagnoses_corrected_total",
			Help: "Diagnosis codes rewritten during correction.",
		}),
		DiagnosesDiscarded: promauto.NewCounter(prometheus.CounterOpts{
			Name: "directory_sync_diagnoses_discarded_total",
			Help: "Diagnosis codes discarded because no valid form was found.",
		}),
		FactsPublished: promauto.NewCounter(prometheus.CounterOpts{
			Name: "directory_sync_facts_published_total",
			Help: "Star-model facts pushed to the registry.",
		}),
		FactsSuppressed: promauto.NewCounter(prometheus.CounterOpts{
			Name: "directory_sync_facts_suppressed_total",
			Help: "Fact groups suppressed by the donor threshold.",
		}),
		RowsSkipped: promauto.NewCounter(prometheus.CounterOpts{
			Name: "directory_sync_rows_skipped_total",
			Help: "Input rows skipped as malformed or unattributable.",
		}),
	}
}
