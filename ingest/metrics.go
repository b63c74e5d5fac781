package ingest

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
)

func partitionLabel(part int) string {
	return strconv.Itoa(part)
}

var (
	metricProteins = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pepdb_ingest_proteins_total",
			Help: "Number of proteins processed by result",
		},
		[]string{"result"},
	)
	metricPeptidesBuffered = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pepdb_ingest_peptides_buffered_total",
			Help: "Number of peptides added to the partition buffers",
		},
	)
	metricBatchesWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "pepdb_ingest_batches_written_total",
			Help: "Number of partition batches written successfully",
		},
		[]string{"partition"},
	)
	metricBatchRetries = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pepdb_ingest_batch_retried_attempts_total",
			Help: "Number of batch write attempts that failed and were retried",
		},
	)
	metricBatchesFailedPermanently = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "pepdb_ingest_batches_failed_permanently_total",
			Help: "Number of batches dropped after the retry budget was exhausted",
		},
	)
	metricBatchWriteDuration = prometheus.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "pepdb_ingest_batch_write_duration_seconds",
			Help:    "Duration of successful batch writes",
			Buckets: prometheus.ExponentialBuckets(0.001, 4, 10),
		},
	)
)

func init() {
	prometheus.MustRegister(
		metricProteins,
		metricPeptidesBuffered,
		metricBatchesWritten,
		metricBatchRetries,
		metricBatchesFailedPermanently,
		metricBatchWriteDuration,
	)
}
