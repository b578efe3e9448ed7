// Package metrics exposes gateway counters in Prometheus format.
package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics holds the gateway's counters on a private registry so tests can
// construct independent instances.
type Metrics struct {
	registry *prometheus.Registry

	CallsStarted       prometheus.Counter
	TurnsCompleted     prometheus.Counter
	CompletionFailures prometheus.Counter
	SynthesisFailures  prometheus.Counter
	FallbacksServed    prometheus.Counter
	ArtifactsStored    prometheus.Counter
	ArtifactsEvicted   prometheus.Counter
}

// New creates a Metrics with all counters registered, plus the Go runtime
// and process collectors.
func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		registry: reg,
		CallsStarted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicewire_calls_started_total",
			Help: "Inbound calls answered with a control document.",
		}),
		TurnsCompleted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicewire_turns_completed_total",
			Help: "Conversation turns that produced a playable reply.",
		}),
		CompletionFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicewire_completion_failures_total",
			Help: "Language-completion backend failures.",
		}),
		SynthesisFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicewire_synthesis_failures_total",
			Help: "Speech-synthesis backend failures.",
		}),
		FallbacksServed: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicewire_fallbacks_served_total",
			Help: "Spoken fallback documents served instead of the normal flow.",
		}),
		ArtifactsStored: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicewire_artifacts_stored_total",
			Help: "Audio artifacts written to the cache.",
		}),
		ArtifactsEvicted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "voicewire_artifacts_evicted_total",
			Help: "Audio artifacts dropped by TTL or cap eviction.",
		}),
	}

	reg.MustRegister(
		m.CallsStarted,
		m.TurnsCompleted,
		m.CompletionFailures,
		m.SynthesisFailures,
		m.FallbacksServed,
		m.ArtifactsStored,
		m.ArtifactsEvicted,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

// Handler serves the registry in exposition format.
func (m *Metrics) Handler() http.Handler {
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
