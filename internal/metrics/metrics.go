// Package metrics owns the Prometheus collectors exported on /metrics.
package metrics

import (
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "veryx"

var (
	initOnce sync.Once

	appendsTotal         *prometheus.CounterVec
	appendDuration       prometheus.Histogram
	appendRetriesTotal   prometheus.Counter
	readsTotal           *prometheus.CounterVec
	replayedEventsTotal  prometheus.Counter
	integrityChecksTotal *prometheus.CounterVec
	commandsTotal        *prometheus.CounterVec
	httpRequestDuration  *prometheus.HistogramVec
)

// Init registers collectors on the default Prometheus registry exactly once.
func Init() {
	initOnce.Do(func() {
		appendsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_appends_total",
				Help:      "Event log appends by event type and outcome.",
			},
			[]string{"event_type", "outcome"},
		)

		appendDuration = prometheus.NewHistogram(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "event_append_duration_seconds",
				Help:      "Duration of event log appends in seconds.",
				Buckets:   prometheus.DefBuckets,
			},
		)

		appendRetriesTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_append_retries_total",
				Help:      "Append attempts retried after a conflict or an unavailable store.",
			},
		)

		readsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "event_log_reads_total",
				Help:      "Full event log reads by outcome.",
			},
			[]string{"outcome"},
		)

		replayedEventsTotal = prometheus.NewCounter(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "replayed_events_total",
				Help:      "Events folded by projection replays.",
			},
		)

		integrityChecksTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "integrity_checks_total",
				Help:      "Integrity verifications by verdict.",
			},
			[]string{"verdict"},
		)

		commandsTotal = prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "commands_total",
				Help:      "Handled commands by name and outcome.",
			},
			[]string{"command", "outcome"},
		)

		httpRequestDuration = prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: namespace,
				Name:      "http_request_duration_seconds",
				Help:      "HTTP request duration by route pattern and status code.",
				Buckets:   prometheus.DefBuckets,
			},
			[]string{"route", "status"},
		)

		prometheus.MustRegister(
			appendsTotal,
			appendDuration,
			appendRetriesTotal,
			readsTotal,
			replayedEventsTotal,
			integrityChecksTotal,
			commandsTotal,
			httpRequestDuration,
		)

		// Make the verdict series visible at /metrics before the first check.
		for _, verdict := range []string{"VERIFIED", "COMPROMISED"} {
			integrityChecksTotal.WithLabelValues(verdict)
		}
	})
}

func IncAppend(eventType, outcome string) {
	Init()
	appendsTotal.WithLabelValues(eventType, outcome).Inc()
}

func ObserveAppendDuration(d time.Duration) {
	Init()
	appendDuration.Observe(d.Seconds())
}

func IncAppendRetries() {
	Init()
	appendRetriesTotal.Inc()
}

func IncRead(outcome string) {
	Init()
	readsTotal.WithLabelValues(outcome).Inc()
}

func AddReplayedEvents(n int) {
	Init()
	replayedEventsTotal.Add(float64(n))
}

func IncIntegrityCheck(verdict string) {
	Init()
	integrityChecksTotal.WithLabelValues(verdict).Inc()
}

func IncCommand(command, outcome string) {
	Init()
	commandsTotal.WithLabelValues(command, outcome).Inc()
}

func ObserveHTTPRequest(route, status string, d time.Duration) {
	Init()
	httpRequestDuration.WithLabelValues(route, status).Observe(d.Seconds())
}
