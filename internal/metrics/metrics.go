package metrics

import (
	"strconv"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
)

// Metrics groups the game counters. A nil *Metrics is valid and records nothing.
type Metrics struct {
	Registry *prometheus.Registry

	joins        *prometheus.CounterVec
	spins        *prometheus.CounterVec
	payoutCents  prometheus.Counter
	recordings   prometheus.Counter
	activeTimers prometheus.Gauge
}

func New() *Metrics {
	reg := prometheus.NewRegistry()
	m := &Metrics{
		Registry: reg,
		joins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spinrooms_joins_total",
			Help: "Join attempts by outcome.",
		}, []string{"outcome"}),
		spins: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "spinrooms_spins_total",
			Help: "Resolved spins by 1-based spin index.",
		}, []string{"spin"}),
		payoutCents: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spinrooms_payout_cents_total",
			Help: "Prize money paid to winners, in cents.",
		}),
		recordings: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "spinrooms_recordings_total",
			Help: "Recordings appended for finished rooms.",
		}),
		activeTimers: prometheus.NewGauge(prometheus.GaugeOpts{
			Name: "spinrooms_active_spin_timers",
			Help: "Rooms currently counting down to a spin.",
		}),
	}
	reg.MustRegister(
		m.joins, m.spins, m.payoutCents, m.recordings, m.activeTimers,
		collectors.NewGoCollector(),
		collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
	)
	return m
}

func (m *Metrics) Join(outcome string) {
	if m == nil {
		return
	}
	m.joins.WithLabelValues(outcome).Inc()
}

func (m *Metrics) Spin(spin int, amountCents int64) {
	if m == nil {
		return
	}
	m.spins.WithLabelValues(strconv.Itoa(spin)).Inc()
	m.payoutCents.Add(float64(amountCents))
}

func (m *Metrics) Recorded() {
	if m == nil {
		return
	}
	m.recordings.Inc()
}

func (m *Metrics) TimerStarted() {
	if m == nil {
		return
	}
	m.activeTimers.Inc()
}

func (m *Metrics) TimerStopped() {
	if m == nil {
		return
	}
	m.activeTimers.Dec()
}
