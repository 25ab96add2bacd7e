package archive

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const (
	outcomeStored  = "stored"
	outcomeFailed  = "failed"
	outcomeSkipped = "skipped"
)

var errNoStore = errors.New("archive: object store not configured")

var (
	// archiveWrites counts Archive calls by outcome (stored|failed|skipped).
	archiveWrites = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "archive_writes_total",
			Help: "Total number of query archival attempts by outcome.",
		},
		[]string{"outcome"},
	)

	// archiveLatency records object-store write duration, including failures.
	archiveLatency = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "archive_write_duration_seconds",
			Help:    "Duration of object-store writes in seconds.",
			Buckets: prometheus.DefBuckets,
		},
	)
)

func init() {
	prometheus.MustRegister(archiveWrites, archiveLatency)
}
