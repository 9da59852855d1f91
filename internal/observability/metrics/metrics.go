package metrics

import "github.com/prometheus/client_golang/prometheus"

// PipelineMetrics exposes counters/histograms for the booking pipeline.
type PipelineMetrics struct {
	turnsTotal      *prometheus.CounterVec
	bookingsCreated *prometheus.CounterVec
	externalLatency *prometheus.HistogramVec
}

func NewPipelineMetrics(reg prometheus.Registerer) *PipelineMetrics {
	m := &PipelineMetrics{
		turnsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "talobot",
			Subsystem: "pipeline",
			Name:      "turns_total",
			Help:      "Conversation turns handled, by channel and terminal outcome",
		}, []string{"channel", "outcome"}),
		bookingsCreated: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "talobot",
			Subsystem: "pipeline",
			Name:      "bookings_created_total",
			Help:      "Calendar events created from conversations",
		}, []string{"channel"}),
		externalLatency: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: "talobot",
			Subsystem: "pipeline",
			Name:      "external_call_seconds",
			Help:      "Latency of external collaborator calls",
			Buckets:   prometheus.DefBuckets,
		}, []string{"collaborator", "status"}),
	}
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	reg.MustRegister(m.turnsTotal, m.bookingsCreated, m.externalLatency)
	return m
}

// ObserveTurn records a handled turn and its terminal outcome.
func (m *PipelineMetrics) ObserveTurn(channel, outcome string) {
	if m == nil {
		return
	}
	m.turnsTotal.WithLabelValues(channel, outcome).Inc()
}

// ObserveBooking records a created calendar event.
func (m *PipelineMetrics) ObserveBooking(channel string) {
	if m == nil {
		return
	}
	m.bookingsCreated.WithLabelValues(channel).Inc()
}

// ObserveExternalCall records one collaborator round trip.
func (m *PipelineMetrics) ObserveExternalCall(collaborator, status string, seconds float64) {
	if m == nil {
		return
	}
	m.externalLatency.WithLabelValues(collaborator, status).Observe(seconds)
}
