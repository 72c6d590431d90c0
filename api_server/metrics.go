package main

import (
	"net/http"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// metrics owns its registry so each Server (and each test) starts clean.
type metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	signDuration *prometheus.HistogramVec
	cacheLookups *prometheus.CounterVec
}

func newMetrics() *metrics {
	reg := prometheus.NewRegistry()
	f := promauto.With(reg)
	return &metrics{
		registry: reg,
		requests: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dy_sign",
				Subsystem: "api",
				Name:      "requests_total",
				Help:      "Total number of /api requests",
			},
			[]string{"action", "status"},
		),
		signDuration: f.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "dy_sign",
				Subsystem: "signer",
				Name:      "sign_duration_seconds",
				Help:      "Time spent producing one a_bogus token",
				Buckets:   []float64{0.00001, 0.00005, 0.0001, 0.0005, 0.001, 0.005, 0.01},
			},
			[]string{"action"},
		),
		cacheLookups: f.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "dy_sign",
				Subsystem: "api",
				Name:      "key_cache_lookups_total",
				Help:      "API key cache lookups by result",
			},
			[]string{"result"},
		),
	}
}

func (m *metrics) observeSign(action string, start time.Time) {
	m.signDuration.WithLabelValues(action).Observe(time.Since(start).Seconds())
}

func (m *metrics) handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
