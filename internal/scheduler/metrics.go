package scheduler

import "github.com/prometheus/client_golang/prometheus"

type Metrics struct {
	Registered       prometheus.Counter
	Superseded       prometheus.Counter
	Cancelled        prometheus.Counter
	Reversed         prometheus.Counter
	ReversalFailures prometheus.Counter
	Exhausted        prometheus.Counter
	Pending          prometheus.Gauge
}

// NewMetrics регистрирует счётчики в reg; nil reg = без регистрации.
func NewMetrics(reg prometheus.Registerer) *Metrics {
	m := &Metrics{
		Registered: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modbot", Subsystem: "scheduler", Name: "registered_total",
			Help: "Temporary actions registered.",
		}),
		Superseded: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modbot", Subsystem: "scheduler", Name: "superseded_total",
			Help: "Pending actions cancelled by a newer registration for the same target.",
		}),
		Cancelled: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modbot", Subsystem: "scheduler", Name: "cancelled_total",
			Help: "Pending actions cancelled explicitly.",
		}),
		Reversed: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modbot", Subsystem: "scheduler", Name: "reversed_total",
			Help: "Actions reversed on expiry.",
		}),
		ReversalFailures: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modbot", Subsystem: "scheduler", Name: "reversal_failures_total",
			Help: "Failed reverse() calls, each retry counted.",
		}),
		Exhausted: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "modbot", Subsystem: "scheduler", Name: "reversal_exhausted_total",
			Help: "Actions left pending after the retry cap; need operator attention.",
		}),
		Pending: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: "modbot", Subsystem: "scheduler", Name: "pending",
			Help: "Actions armed in the in-memory queue.",
		}),
	}
	if reg != nil {
		reg.MustRegister(m.Registered, m.Superseded, m.Cancelled, m.Reversed,
			m.ReversalFailures, m.Exhausted, m.Pending)
	}
	return m
}
