package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Metrics of the collector. Label "direction" is deposit or withdrawal, "task"
// is a scheduler task name.
type Metrics struct {
	RecordsUpserted  *prometheus.CounterVec
	ItemsSkipped     *prometheus.CounterVec
	UpsertFailures   *prometheus.CounterVec
	CycleFailures    *prometheus.CounterVec
	CycleDuration    *prometheus.HistogramVec
	TicksSkipped     prometheus.Counter
	StageObserved    *prometheus.CounterVec
	StageRegressions prometheus.Counter
}

// New registers the collector metrics on reg. A nil reg gives unregistered
// metrics, which is what tests that don't assert on them use.
func New(reg prometheus.Registerer) *Metrics {
	f := promauto.With(reg)

	return &Metrics{
		RecordsUpserted: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_collector_records_upserted_total",
			Help: "Canonical bridge records written",
		}, []string{"direction"}),
		ItemsSkipped: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_collector_items_skipped_total",
			Help: "Indexer items skipped during reconciliation",
		}, []string{"direction", "reason"}),
		UpsertFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_collector_upsert_failures_total",
			Help: "Records that could not be written",
		}, []string{"direction"}),
		CycleFailures: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_collector_cycle_failures_total",
			Help: "Scheduler task runs that returned an error",
		}, []string{"task"}),
		CycleDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "bridge_collector_cycle_duration_seconds",
			Help:    "Duration of scheduler task runs",
			Buckets: prometheus.DefBuckets,
		}, []string{"task"}),
		TicksSkipped: f.NewCounter(prometheus.CounterOpts{
			Name: "bridge_collector_ticks_skipped_total",
			Help: "Scheduler ticks skipped because a cycle was running or cooling down",
		}),
		StageObserved: f.NewCounterVec(prometheus.CounterOpts{
			Name: "bridge_collector_withdrawal_stage_observed_total",
			Help: "Withdrawal stages written by the status watcher",
		}, []string{"stage"}),
		StageRegressions: f.NewCounter(prometheus.CounterOpts{
			Name: "bridge_collector_withdrawal_stage_regressions_total",
			Help: "Withdrawals whose observed stage moved backwards",
		}),
	}
}
