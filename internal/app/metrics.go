package app

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains Prometheus metrics for rotation runs.
type Metrics struct {
	reg *prometheus.Registry

	listed         *prometheus.CounterVec
	selected       *prometheus.CounterVec
	deleted        *prometheus.CounterVec
	deleteFailures *prometheus.CounterVec
	skipped        *prometheus.CounterVec

	jobDuration *prometheus.HistogramVec
}

// NewMetrics registers the rotation collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	f := promauto.With(reg)
	return &Metrics{
		reg: reg,

		listed: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotatekit_items_listed_total",
				Help: "Total number of items listed from sources",
			},
			[]string{"job"},
		),

		selected: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotatekit_items_selected_total",
				Help: "Total number of items selected for deletion",
			},
			[]string{"job"},
		),

		deleted: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotatekit_items_deleted_total",
				Help: "Total number of items deleted",
			},
			[]string{"job"},
		),

		deleteFailures: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotatekit_delete_failures_total",
				Help: "Total number of selected items that could not be deleted",
			},
			[]string{"job"},
		),

		skipped: f.NewCounterVec(
			prometheus.CounterOpts{
				Name: "rotatekit_items_skipped_total",
				Help: "Total number of items skipped because their date could not be read",
			},
			[]string{"job"},
		),

		jobDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "rotatekit_job_duration_seconds",
				Help:    "Duration of rotation job runs",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"job", "status"},
		),
	}
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.reg, promhttp.HandlerOpts{})
}

func (m *Metrics) observe(res JobResult) {
	if m == nil {
		return
	}
	m.listed.WithLabelValues(res.Job).Add(float64(res.Listed))
	m.selected.WithLabelValues(res.Job).Add(float64(res.Selected))
	m.deleted.WithLabelValues(res.Job).Add(float64(res.Deleted))
	m.deleteFailures.WithLabelValues(res.Job).Add(float64(res.Failed))
	m.skipped.WithLabelValues(res.Job).Add(float64(res.Skipped))
	m.jobDuration.WithLabelValues(res.Job, res.Status()).Observe(res.Duration.Seconds())
}
