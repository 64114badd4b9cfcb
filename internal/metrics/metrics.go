// Package metrics defines the Prometheus collectors exported by the service.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics contains the custom collectors for recording application events.
type Metrics struct {
	registry *prometheus.Registry

	Logins        *prometheus.CounterVec
	Signups       *prometheus.CounterVec
	GateDenials   *prometheus.CounterVec
	Notifications *prometheus.CounterVec
	Enrichment    *prometheus.CounterVec
	Feeds         *prometheus.CounterVec
}

// New creates a private registry with Go/process collectors and the custom metrics.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector())
	reg.MustRegister(collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	return NewWithRegistry(reg)
}

// NewWithRegistry registers the custom metrics on reg.
func NewWithRegistry(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		registry: reg,
		Logins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carshelf_logins_total",
			Help: "Login attempts by outcome",
		}, []string{"outcome"}),
		Signups: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carshelf_signups_total",
			Help: "Signup attempts by outcome",
		}, []string{"outcome"}),
		GateDenials: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carshelf_gate_denials_total",
			Help: "Requests rejected by the auth gate by reason",
		}, []string{"reason"}),
		Notifications: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carshelf_notifications_total",
			Help: "Outbound notifications by outcome",
		}, []string{"outcome"}),
		Enrichment: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carshelf_enrichment_requests_total",
			Help: "Third-party catalog lookups by outcome",
		}, []string{"outcome"}),
		Feeds: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "carshelf_feed_requests_total",
			Help: "Joke and picture feed lookups by feed and outcome",
		}, []string{"feed", "outcome"}),
	}

	reg.MustRegister(m.Logins, m.Signups, m.GateDenials, m.Notifications, m.Enrichment, m.Feeds)
	return m
}

// Handler serves the registry in the Prometheus exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
