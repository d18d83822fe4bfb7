// Package metric provides Prometheus metrics for recall.
package metric

import (
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/common/expfmt"
)

const namespace = "recall"

// Request attempt results.
const (
	ResultOK          = "ok"
	ResultTransient   = "transient"
	ResultRejected    = "rejected"
	ResultExpired     = "expired"
	ResultExhausted   = "exhausted"
	ResultCanceled    = "canceled"
	ResultDenied      = "denied"
	ResultUnavailable = "unavailable"
	ResultTimeout     = "timeout"
)

// Purge reasons.
const (
	PurgeUnauthorized  = "unauthorized"
	PurgeRefreshDenied = "refresh_denied"
	PurgeValidation    = "validation_failed"
	PurgeLogout        = "logout"
)

// Registry holds all application metrics.
type Registry struct {
	reg *prometheus.Registry

	RequestsTotal   *prometheus.CounterVec
	AttemptsTotal   *prometheus.CounterVec
	RetriesTotal    *prometheus.CounterVec
	RequestDuration *prometheus.HistogramVec

	RefreshTotal *prometheus.CounterVec
	PurgesTotal  *prometheus.CounterVec

	BridgeCallsTotal *prometheus.CounterVec
}

// NewRegistry creates a registry with all application metrics registered.
// Go runtime collectors are included so `system metrics` is useful on its own.
func NewRegistry() *Registry {
	r := &Registry{
		reg: prometheus.NewRegistry(),

		RequestsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "Engine calls by endpoint and final outcome",
		}, []string{"endpoint", "outcome"}),

		AttemptsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "attempts_total",
			Help:      "Individual HTTP attempts by endpoint and result",
		}, []string{"endpoint", "result"}),

		RetriesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "retries_total",
			Help:      "Backoff retries scheduled by endpoint",
		}, []string{"endpoint"}),

		RequestDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "Wall time of engine calls including retries",
			Buckets:   []float64{.05, .1, .25, .5, 1, 2.5, 5, 10, 20, 45},
		}, []string{"endpoint"}),

		RefreshTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "refresh_total",
			Help:      "Token refresh exchanges by result",
		}, []string{"result"}),

		PurgesTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "session",
			Name:      "purges_total",
			Help:      "Credential purges by reason",
		}, []string{"reason"}),

		BridgeCallsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "bridge",
			Name:      "calls_total",
			Help:      "Page bridge calls by action and result",
		}, []string{"action", "result"}),
	}

	r.reg.MustRegister(
		r.RequestsTotal,
		r.AttemptsTotal,
		r.RetriesTotal,
		r.RequestDuration,
		r.RefreshTotal,
		r.PurgesTotal,
		r.BridgeCallsTotal,
		collectors.NewGoCollector(),
	)
	return r
}

// Registerer exposes the underlying registry for additional collectors.
func (r *Registry) Registerer() prometheus.Registerer {
	return r.reg
}

// Gatherer exposes the underlying registry for scraping.
func (r *Registry) Gatherer() prometheus.Gatherer {
	return r.reg
}

// ObserveRequest records a finished engine call.
func (r *Registry) ObserveRequest(endpoint, outcome string, elapsed time.Duration) {
	if r == nil {
		return
	}
	r.RequestsTotal.WithLabelValues(endpoint, outcome).Inc()
	r.RequestDuration.WithLabelValues(endpoint).Observe(elapsed.Seconds())
}

// ObserveAttempt records one HTTP attempt.
func (r *Registry) ObserveAttempt(endpoint, result string) {
	if r == nil {
		return
	}
	r.AttemptsTotal.WithLabelValues(endpoint, result).Inc()
}

// ObserveRetry records a scheduled retry.
func (r *Registry) ObserveRetry(endpoint string) {
	if r == nil {
		return
	}
	r.RetriesTotal.WithLabelValues(endpoint).Inc()
}

// ObserveRefresh records a refresh exchange result.
func (r *Registry) ObserveRefresh(result string) {
	if r == nil {
		return
	}
	r.RefreshTotal.WithLabelValues(result).Inc()
}

// ObservePurge records a credential purge.
func (r *Registry) ObservePurge(reason string) {
	if r == nil {
		return
	}
	r.PurgesTotal.WithLabelValues(reason).Inc()
}

// ObserveBridgeCall records a page bridge call.
func (r *Registry) ObserveBridgeCall(action, result string) {
	if r == nil {
		return
	}
	r.BridgeCallsTotal.WithLabelValues(action, result).Inc()
}

// WriteText writes every gathered family in the Prometheus text format.
// With prefix set, only families whose name starts with it are written.
func (r *Registry) WriteText(w io.Writer, prefix string) error {
	families, err := r.reg.Gather()
	if err != nil {
		return fmt.Errorf("gather metrics: %w", err)
	}
	for _, mf := range families {
		if !strings.HasPrefix(mf.GetName(), prefix) {
			continue
		}
		if _, err := expfmt.MetricFamilyToText(w, mf); err != nil {
			return fmt.Errorf("encode %s: %w", mf.GetName(), err)
		}
	}
	return nil
}
