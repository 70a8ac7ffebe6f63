// Package metrics exposes portal activity to Prometheus.
package metrics

import (
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/isepctf/ctfportal/internal/services/countdown"
	"github.com/isepctf/ctfportal/internal/services/credential"
	"github.com/isepctf/ctfportal/internal/services/policy"
)

const namespace = "ctfportal"

// Collector holds the portal metrics
type Collector struct {
	httpRequests        *prometheus.CounterVec
	httpDuration        *prometheus.HistogramVec
	passwordEvaluations *prometheus.CounterVec
	submissions         *prometheus.CounterVec
	registerer          prometheus.Registerer
}

var (
	_ policy.Observer     = (*Collector)(nil)
	_ credential.Observer = (*Collector)(nil)
)

// NewCollector creates and registers metrics on reg
func NewCollector(reg prometheus.Registerer) *Collector {
	factory := promauto.With(reg)
	return &Collector{
		httpRequests: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "http_requests_total",
			Help:      "HTTP requests by method, route template and status",
		}, []string{"method", "route", "status"}),
		httpDuration: factory.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "http_request_duration_seconds",
			Help:      "HTTP request latency",
			Buckets:   []float64{.001, .005, .01, .025, .05, .1, .25, .5, 1, 2.5},
		}, []string{"method", "route"}),
		passwordEvaluations: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "password_evaluations_total",
			Help:      "Password strength evaluations by resulting category",
		}, []string{"category"}),
		submissions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "credential_submissions_total",
			Help:      "Credential change submissions by outcome",
		}, []string{"outcome"}),
		registerer: reg,
	}
}

// ObserveRequest records one served HTTP request
func (c *Collector) ObserveRequest(method, route string, status int, d time.Duration) {
	c.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
	c.httpDuration.WithLabelValues(method, route).Observe(d.Seconds())
}

// ObserveEvaluation records a live strength check
func (c *Collector) ObserveEvaluation(result policy.Result) {
	c.passwordEvaluations.WithLabelValues(strings.ToLower(string(result.Category))).Inc()
}

// ObserveSubmission implements credential.Observer
func (c *Collector) ObserveSubmission(reason credential.Reason) {
	outcome := string(reason)
	if reason == credential.ReasonNone {
		outcome = "accepted"
	}
	c.submissions.WithLabelValues(outcome).Inc()
}

var _ credential.Observer = (*Collector)(nil)

// TrackCountdown exports the competition clock as gauges read on scrape
func (c *Collector) TrackCountdown(cd *countdown.Countdown) {
	factory := promauto.With(c.registerer)
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ctf_running",
		Help:      "1 while the competition clock is running",
	}, func() float64 {
		if cd.Snapshot().Running {
			return 1
		}
		return 0
	})
	factory.NewGaugeFunc(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "ctf_remaining_seconds",
		Help:      "Time left on the competition clock",
	}, func() float64 {
		return cd.Snapshot().Remaining.Seconds()
	})
}

// Handler serves the registry in the Prometheus exposition format
func Handler(g prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(g, promhttp.HandlerOpts{})
}
