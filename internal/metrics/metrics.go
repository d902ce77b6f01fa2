package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Report metrics
	ReportDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studio_report_duration_seconds",
			Help:    "Time spent filtering and aggregating a report",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"report", "view"},
	)

	ReportRows = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studio_report_rows",
			Help:    "Number of finalized groups returned by a report",
			Buckets: []float64{0, 1, 5, 10, 25, 50, 100, 250, 1000},
		},
		[]string{"report"},
	)

	// Ingest metrics
	RecordsLoaded = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "studio_records_loaded",
			Help: "Records held in the current snapshot of each dataset",
		},
		[]string{"dataset"},
	)

	IngestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studio_ingest_duration_seconds",
			Help:    "Duration of dataset fetches in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"dataset"},
	)

	IngestErrors = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_ingest_errors_total",
			Help: "Total number of failed dataset fetches",
		},
		[]string{"dataset"},
	)

	IngestLastSuccess = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "studio_ingest_last_success_timestamp",
			Help: "Unix time of the last successful fetch per dataset",
		},
		[]string{"dataset"},
	)

	// Export metrics
	ExportsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_exports_total",
			Help: "Total number of report exports by kind and outcome",
		},
		[]string{"kind", "outcome"}, // kind: "xlsx", "push"
	)

	// API metrics
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "studio_api_requests_total",
			Help: "Total number of API requests",
		},
		[]string{"method", "route", "status"},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "studio_api_request_duration_seconds",
			Help:    "API request latency in seconds",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordReport records one report computation.
func RecordReport(report, view string, duration time.Duration, rows int) {
	ReportDuration.WithLabelValues(report, view).Observe(duration.Seconds())
	ReportRows.WithLabelValues(report).Observe(float64(rows))
}

// RecordIngest records a dataset fetch. On success the loaded gauge is set to
// the snapshot size.
func RecordIngest(dataset string, duration time.Duration, records int, err error) {
	IngestDuration.WithLabelValues(dataset).Observe(duration.Seconds())
	if err != nil {
		IngestErrors.WithLabelValues(dataset).Inc()
		return
	}
	RecordsLoaded.WithLabelValues(dataset).Set(float64(records))
	IngestLastSuccess.WithLabelValues(dataset).Set(float64(time.Now().Unix()))
}

// RecordExport records an export attempt.
func RecordExport(kind string, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	ExportsTotal.WithLabelValues(kind, outcome).Inc()
}

// RecordAPIRequest records an API request metric
func RecordAPIRequest(method, route string, status int, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}
