package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
)

const (
	webinarSync = "webinar_sync"

	// Platform API metrics
	apiRequestsTotal = "platform_api_requests_total"

	// Sync engine metrics
	SyncJobsCount        = "sync_jobs_count"
	entitiesWrittenTotal = "entities_written_total"
	chunkFailuresTotal   = "resync_chunk_failures_total"

	// Labels
	jobStatusLabel     = "status"
	entityKindLabel    = "kind"
	writeDecisionLabel = "decision"
)

var syncJobsCountLabels = []string{
	jobStatusLabel,
}

var entitiesWrittenLabels = []string{
	entityKindLabel,
	writeDecisionLabel,
}

/**
* Metrics definition
**/
var apiRequestsTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: webinarSync,
		Name:      apiRequestsTotal,
		Help:      "number of requests issued against the webinar platform API",
	},
)

var syncJobsCountMetric = prometheus.NewGaugeVec(
	prometheus.GaugeOpts{
		Subsystem: webinarSync,
		Name:      SyncJobsCount,
		Help:      "number of sync jobs in each status",
	},
	syncJobsCountLabels,
)

var entitiesWrittenTotalMetric = prometheus.NewCounterVec(
	prometheus.CounterOpts{
		Subsystem: webinarSync,
		Name:      entitiesWrittenTotal,
		Help:      "number of entity snapshots written, partitioned by kind and reconcile decision",
	},
	entitiesWrittenLabels,
)

var chunkFailuresTotalMetric = prometheus.NewCounter(
	prometheus.CounterOpts{
		Subsystem: webinarSync,
		Name:      chunkFailuresTotal,
		Help:      "number of items that failed during chunked resync processing",
	},
)

func IncreaseAPIRequestsMetric() {
	apiRequestsTotalMetric.Inc()
}

func UpdateSyncJobsCountMetric(status string, count int) {
	labels := prometheus.Labels{
		jobStatusLabel: status,
	}
	syncJobsCountMetric.With(labels).Set(float64(count))
}

func IncreaseEntitiesWrittenMetric(kind, decision string) {
	labels := prometheus.Labels{
		entityKindLabel:    kind,
		writeDecisionLabel: decision,
	}
	entitiesWrittenTotalMetric.With(labels).Inc()
}

func IncreaseChunkFailuresMetric(count int) {
	if count <= 0 {
		return
	}
	chunkFailuresTotalMetric.Add(float64(count))
}

func RegisterMetrics() {
	prometheus.MustRegister(apiRequestsTotalMetric)
	prometheus.MustRegister(syncJobsCountMetric)
	prometheus.MustRegister(entitiesWrittenTotalMetric)
	prometheus.MustRegister(chunkFailuresTotalMetric)
}
