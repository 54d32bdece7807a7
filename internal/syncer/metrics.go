package syncer

import "github.com/prometheus/client_golang/prometheus"

var (
	recordsSynced = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtime",
		Subsystem: "sync",
		Name:      "records_synced_total",
		Help:      "Number of records the remote store accepted, labeled by kind.",
	}, []string{"kind"})

	recordsFailed = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtime",
		Subsystem: "sync",
		Name:      "records_failed_total",
		Help:      "Number of record upserts the remote store rejected, labeled by kind.",
	}, []string{"kind"})

	passes = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtime",
		Subsystem: "sync",
		Name:      "passes_total",
		Help:      "Reconciliation passes that pushed at least one record, labeled by kind.",
	}, []string{"kind"})

	droppedTriggers = prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: "fieldtime",
		Subsystem: "sync",
		Name:      "dropped_triggers_total",
		Help:      "Triggers ignored because a pass was already running, labeled by kind.",
	}, []string{"kind"})

	passDuration = prometheus.NewHistogramVec(prometheus.HistogramOpts{
		Namespace: "fieldtime",
		Subsystem: "sync",
		Name:      "pass_duration_seconds",
		Help:      "Time spent pushing pending records and persisting the result.",
		Buckets:   prometheus.ExponentialBuckets(0.01, 2, 10),
	}, []string{"kind"})
)

func init() {
	prometheus.MustRegister(recordsSynced, recordsFailed, passes, droppedTriggers, passDuration)
}
