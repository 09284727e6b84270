// Package metrics provides Prometheus metrics for the data acquisition
// pipeline and the artifact server:
//   - epidata_downloads_total: Counter with status label (ok/error)
//   - epidata_download_bytes_total: Counter of downloaded payload bytes
//   - epidata_datasets_written_total: Counter with output format label
//   - epidata_pipeline_runs_total: Counter with family and status labels
//   - http_request_total / http_request_duration_seconds / http_request_in_flight
//
// All metrics are registered with the Prometheus default registry
// during package initialization.
package metrics

import "github.com/prometheus/client_golang/prometheus"

var (
	DownloadsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epidata_downloads_total",
			Help: "Total dataset downloads",
		},
		[]string{"status"},
	)

	DownloadBytes = prometheus.NewCounter(
		prometheus.CounterOpts{
			Name: "epidata_download_bytes_total",
			Help: "Total bytes downloaded from remote datasets",
		},
	)

	DatasetsWritten = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epidata_datasets_written_total",
			Help: "Total output artifacts written",
		},
		[]string{"format"},
	)

	PipelineRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "epidata_pipeline_runs_total",
			Help: "Total dataset pipeline runs",
		},
		[]string{"family", "status"},
	)

	HTTPRequestTotals = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Name: "http_request_total",
			Help: "Total HTTP requests",
		},
		[]string{"method", "path", "status"},
	)

	HTTPRequestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "http_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5},
		},
		[]string{"method", "path"},
	)

	HTTPRequestInFlight = prometheus.NewGauge(
		prometheus.GaugeOpts{
			Name: "http_request_in_flight",
			Help: "Current in-flight requests",
		},
	)
)

func init() {
	prometheus.MustRegister(DownloadsTotal)
	prometheus.MustRegister(DownloadBytes)
	prometheus.MustRegister(DatasetsWritten)
	prometheus.MustRegister(PipelineRunsTotal)
	prometheus.MustRegister(HTTPRequestTotals)
	prometheus.MustRegister(HTTPRequestDuration)
	prometheus.MustRegister(HTTPRequestInFlight)
}
