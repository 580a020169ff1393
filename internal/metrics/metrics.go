package metrics

import (
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// Recorder collects the metrics of a single download run on its own registry.
// The registry is written out as a node_exporter textfile at the end of the run.
type Recorder struct {
	registry *prometheus.Registry

	requestsTotal   *prometheus.CounterVec
	requestDuration *prometheus.HistogramVec
	recordsWritten  prometheus.Gauge
	lastSuccess     prometheus.Gauge
}

// NewRecorder creates a Recorder with all collectors registered.
func NewRecorder() *Recorder {
	reg := prometheus.NewRegistry()
	factory := promauto.With(reg)

	return &Recorder{
		registry: reg,
		// Tracks the number of outbound API calls to FAIRsharing.
		requestsTotal: factory.NewCounterVec(
			prometheus.CounterOpts{
				Name: "fairsharing_api_requests_total",
				Help: "Total number of FAIRsharing API requests made (by endpoint, method and status).",
			},
			[]string{"endpoint", "method", "status"},
		),
		requestDuration: factory.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "fairsharing_api_request_duration_seconds",
				Help:    "Duration of FAIRsharing API requests in seconds.",
				Buckets: prometheus.ExponentialBuckets(0.01, 2, 12), // 10ms → ~20s
			},
			[]string{"endpoint", "method"},
		),
		recordsWritten: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fairsharing_records_written",
			Help: "Number of records written by the last successful run.",
		}),
		lastSuccess: factory.NewGauge(prometheus.GaugeOpts{
			Name: "fairsharing_last_success_timestamp_seconds",
			Help: "Unix time of the last successful run.",
		}),
	}
}

// ObserveRequest implements httpclient.Observer. A zero status is reported as "error".
func (r *Recorder) ObserveRequest(endpoint, method string, status int, elapsed time.Duration) {
	label := "error"
	if status > 0 {
		label = strconv.Itoa(status)
	}
	r.requestsTotal.WithLabelValues(endpoint, method, label).Inc()
	r.requestDuration.WithLabelValues(endpoint, method).Observe(elapsed.Seconds())
}

// RecordSuccess marks a completed run that wrote n records.
func (r *Recorder) RecordSuccess(n int, at time.Time) {
	r.recordsWritten.Set(float64(n))
	r.lastSuccess.Set(float64(at.Unix()))
}

// WriteTextfile writes all collected metrics to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.registry)
}
