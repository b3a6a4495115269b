package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

const (
	OutcomeOK       = "ok"
	OutcomeNotFound = "not_found"
	OutcomeConflict = "conflict"
	OutcomeInvalid  = "invalid"
)

// Metrics holds the service collectors on a private registry so several
// servers (and tests) can coexist in one process.
type Metrics struct {
	registry     *prometheus.Registry
	requests     *prometheus.CounterVec
	participants *prometheus.GaugeVec
	journalPrune prometheus.Counter
}

func New() *Metrics {
	m := &Metrics{
		registry: prometheus.NewRegistry(),
		requests: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "mergington_enrollment_requests_total",
				Help: "Signup and unregister requests by outcome",
			},
			[]string{"action", "outcome"},
		),
		participants: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "mergington_participants",
				Help: "Current roster size per activity",
			},
			[]string{"activity"},
		),
		journalPrune: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "mergington_journal_pruned_rows_total",
			Help: "Journal rows removed by retention",
		}),
	}
	m.registry.MustRegister(
		m.requests,
		m.participants,
		m.journalPrune,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) ObserveRequest(action, outcome string) {
	if m == nil {
		return
	}
	m.requests.WithLabelValues(action, outcome).Inc()
}

func (m *Metrics) SetParticipants(activity string, n int) {
	if m == nil {
		return
	}
	m.participants.WithLabelValues(activity).Set(float64(n))
}

func (m *Metrics) AddPruned(n int64) {
	if m == nil || n <= 0 {
		return
	}
	m.journalPrune.Add(float64(n))
}

// Handler serves the Prometheus text exposition for this instance.
func (m *Metrics) Handler() http.Handler {
	if m == nil {
		return http.NotFoundHandler()
	}
	return promhttp.HandlerFor(m.registry, promhttp.HandlerOpts{})
}
