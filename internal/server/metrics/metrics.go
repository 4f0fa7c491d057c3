// Package metrics collects and exposes the Prometheus metrics of the auth
// flows.
package metrics

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Flow labels.
const (
	FlowRegister  = "register"
	FlowPassword  = "password"
	FlowFederated = "federated"
	FlowSession   = "session"
)

// Recorder is what the service layer reports to.
type Recorder interface {
	RecordAttempt(flow, outcome string)
	RecordHashDuration(d time.Duration)
	RecordAccountCreated(method string)
	RecordAccountLinked()
}

// Collector is the Prometheus implementation of Recorder.
type Collector struct {
	attempts     *prometheus.CounterVec
	hashDuration prometheus.Histogram
	created      *prometheus.CounterVec
	linked       prometheus.Counter
}

// NewCollector creates a Collector and registers it with reg.
func NewCollector(reg prometheus.Registerer) *Collector {
	c := &Collector{
		attempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boostauth_auth_attempts_total",
			Help: "Authentication attempts by flow and outcome.",
		}, []string{"flow", "outcome"}),
		hashDuration: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "boostauth_password_hash_seconds",
			Help:    "Time spent hashing or verifying a password.",
			Buckets: []float64{0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1, 2.5},
		}),
		created: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "boostauth_accounts_created_total",
			Help: "Accounts created, by creation method.",
		}, []string{"method"}),
		linked: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "boostauth_accounts_linked_total",
			Help: "External identities linked to existing accounts.",
		}),
	}

	reg.MustRegister(c.attempts, c.hashDuration, c.created, c.linked)
	return c
}

func (c *Collector) RecordAttempt(flow, outcome string) {
	c.attempts.WithLabelValues(flow, outcome).Inc()
}

func (c *Collector) RecordHashDuration(d time.Duration) {
	c.hashDuration.Observe(d.Seconds())
}

func (c *Collector) RecordAccountCreated(method string) {
	c.created.WithLabelValues(method).Inc()
}

func (c *Collector) RecordAccountLinked() {
	c.linked.Inc()
}

// Nop discards everything.
type Nop struct{}

func (Nop) RecordAttempt(string, string)     {}
func (Nop) RecordHashDuration(time.Duration) {}
func (Nop) RecordAccountCreated(string)      {}
func (Nop) RecordAccountLinked()             {}

// Handler returns the scrape handler for gatherer.
func Handler(gatherer prometheus.Gatherer) http.Handler {
	return promhttp.HandlerFor(gatherer, promhttp.HandlerOpts{})
}
