// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes the guard's Prometheus instrumentation:
// packet throughput, decision outcomes, classifier latency, and
// injection results.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

// Metrics holds every Prometheus collector the guard registers. The
// dispatcher updates all of them except PacketsCaptured, which no code
// in this repository increments.
type Metrics struct {
	PacketsCaptured  prometheus.Counter
	HTTPEventsParsed prometheus.Counter

	Decisions *prometheus.CounterVec // labels: stage, action

	ClassifierRequests prometheus.Counter
	ClassifierErrors   *prometheus.CounterVec // labels: error_code
	ClassifierLatency  prometheus.Histogram

	InjectionsAttempted prometheus.Counter
	InjectionsSent      prometheus.Counter
	InjectionLatency    prometheus.Histogram
}

// New builds a Metrics collector. Call Register to expose it.
func New() *Metrics {
	return &Metrics{
		PacketsCaptured: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateguard_packets_captured_total",
			Help: "Total number of TCP segments observed by the capture loop.",
		}),
		HTTPEventsParsed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateguard_http_events_parsed_total",
			Help: "Total number of segments recognized as the start of an HTTP request.",
		}),
		Decisions: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateguard_decisions_total",
			Help: "Total number of access decisions, by stage and action.",
		}, []string{"stage", "action"}),
		ClassifierRequests: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateguard_classifier_requests_total",
			Help: "Total number of calls made to the external classifier.",
		}),
		ClassifierErrors: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "gateguard_classifier_errors_total",
			Help: "Total number of failed classifier calls, by error code.",
		}, []string{"error_code"}),
		ClassifierLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateguard_classifier_latency_seconds",
			Help:    "Latency of classifier HTTP calls.",
			Buckets: prometheus.DefBuckets,
		}),
		InjectionsAttempted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateguard_injections_attempted_total",
			Help: "Total number of spoofed 403 segments the guard attempted to send.",
		}),
		InjectionsSent: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "gateguard_injections_sent_total",
			Help: "Total number of spoofed 403 segments successfully sent.",
		}),
		InjectionLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "gateguard_injection_latency_seconds",
			Help:    "Latency of forging and sending a spoofed response.",
			Buckets: prometheus.DefBuckets,
		}),
	}
}

// Register registers every collector with the default Prometheus
// registry.
func (m *Metrics) Register() {
	prometheus.MustRegister(
		m.PacketsCaptured,
		m.HTTPEventsParsed,
		m.Decisions,
		m.ClassifierRequests,
		m.ClassifierErrors,
		m.ClassifierLatency,
		m.InjectionsAttempted,
		m.InjectionsSent,
		m.InjectionLatency,
	)
}

// ObserveClassifier records one classifier call's latency and, when
// errorCode is neither empty nor "OK", counts it as a failure.
func (m *Metrics) ObserveClassifier(latency time.Duration, errorCode string) {
	m.ClassifierRequests.Inc()
	m.ClassifierLatency.Observe(latency.Seconds())
	if errorCode != "" && errorCode != "OK" {
		m.ClassifierErrors.WithLabelValues(errorCode).Inc()
	}
}

// ObserveInjection records one injection attempt's latency and outcome.
func (m *Metrics) ObserveInjection(latency time.Duration, sent bool) {
	m.InjectionsAttempted.Inc()
	m.InjectionLatency.Observe(latency.Seconds())
	if sent {
		m.InjectionsSent.Inc()
	}
}

// ObserveDecision counts one access decision for stage ("POLICY_STAGE",
// "AI_STAGE", "FAIL_STAGE") and the resulting action string.
func (m *Metrics) ObserveDecision(stage, action string) {
	m.Decisions.WithLabelValues(stage, action).Inc()
}
