package metrics

import (
	"errors"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"github.com/Ecews-Speed-Project/cmt-api/internal/domain/carerecord"
)

const namespace = "cmt"

// Metrics holds the collectors exported on /metrics. Each instance owns its
// registry so tests can create as many as they need.
type Metrics struct {
	Registry *prometheus.Registry

	HTTPRequestsTotal   *prometheus.CounterVec
	HTTPRequestDuration *prometheus.HistogramVec
	HTTPInFlight        prometheus.Gauge
	HTTPPanicsTotal     *prometheus.CounterVec

	StoreQueryDuration *prometheus.HistogramVec

	RefreshRunsTotal   *prometheus.CounterVec
	RefreshLastSuccess *prometheus.GaugeVec
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	f := promauto.With(reg)

	return &Metrics{
		Registry: reg,

		HTTPRequestsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "Total number of HTTP requests",
		}, []string{"method", "route", "status"}),

		HTTPRequestDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "Duration of HTTP requests in seconds",
			Buckets:   prometheus.DefBuckets,
		}, []string{"method", "route", "status"}),

		HTTPInFlight: f.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "http_requests_in_flight",
			Help:      "Number of HTTP requests being served",
		}),

		HTTPPanicsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_panics_total",
			Help:      "Handler panics recovered by route",
		}, []string{"route"}),

		StoreQueryDuration: f.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "store_query_duration_seconds",
			Help:      "Duration of care record store calls in seconds",
			Buckets:   []float64{.005, .01, .025, .05, .1, .25, .5, 1, 2.5, 5, 10, 30},
		}, []string{"op", "outcome"}),

		RefreshRunsTotal: f.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "refresh_runs_total",
			Help:      "Performance refresh job runs by outcome",
		}, []string{"job", "outcome"}),

		RefreshLastSuccess: f.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "refresh_last_success_timestamp_seconds",
			Help:      "Unix time of the last successful refresh run",
		}, []string{"job"}),
	}
}

func (m *Metrics) RecordHTTPRequest(method, route string, statusCode int, duration time.Duration) {
	status := strconv.Itoa(statusCode)
	m.HTTPRequestsTotal.WithLabelValues(method, route, status).Inc()
	m.HTTPRequestDuration.WithLabelValues(method, route, status).Observe(duration.Seconds())
}

// RecordPanic matches middleware.PanicHook.
func (m *Metrics) RecordPanic(route string) {
	m.HTTPPanicsTotal.WithLabelValues(route).Inc()
}

// ObserveStore matches carerecord.ObserveFunc.
func (m *Metrics) ObserveStore(op string, d time.Duration, err error) {
	m.StoreQueryDuration.WithLabelValues(op, outcome(err)).Observe(d.Seconds())
}

// RecordRefresh counts a refresh run. skipped marks runs that lost the lock.
func (m *Metrics) RecordRefresh(job string, skipped bool, err error, at time.Time) {
	switch {
	case skipped:
		m.RefreshRunsTotal.WithLabelValues(job, "skipped").Inc()
	case err != nil:
		m.RefreshRunsTotal.WithLabelValues(job, "error").Inc()
	default:
		m.RefreshRunsTotal.WithLabelValues(job, "ok").Inc()
		m.RefreshLastSuccess.WithLabelValues(job).Set(float64(at.Unix()))
	}
}

func outcome(err error) string {
	switch {
	case err == nil:
		return "ok"
	case errors.Is(err, carerecord.ErrNotFound):
		return "not_found"
	case errors.Is(err, carerecord.ErrInvalidInput):
		return "invalid"
	}
	return "error"
}
