package monitoring

import "github.com/prometheus/client_golang/prometheus"

const namespace = "procsim"

type metrics struct {
	now        prometheus.Gauge
	events     prometheus.Counter
	started    prometheus.Counter
	live       prometheus.Gauge
	interrupts *prometheus.CounterVec
	waiting    *prometheus.GaugeVec
	free       *prometheus.GaugeVec
}

func newMetrics(registry *prometheus.Registry) *metrics {
	m := &metrics{
		now: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "simulated_time_seconds",
			Help:      "Current simulated time",
		}),
		events: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "events_total",
			Help:      "Number of events executed",
		}),
		started: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "processes_started_total",
			Help:      "Number of processes that have started",
		}),
		live: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Name:      "live_processes",
			Help:      "Number of processes that have started and not ended",
		}),
		interrupts: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: namespace,
				Name:      "interrupts_total",
				Help:      "Number of interrupts delivered, by kind",
			},
			[]string{"kind"},
		),
		waiting: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "waiting_processes",
				Help:      "Number of processes waiting in a line",
			},
			[]string{"line"},
		),
		free: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: namespace,
				Name:      "free_instances",
				Help:      "Number of free instances of a resource",
			},
			[]string{"line"},
		),
	}

	registry.MustRegister(
		m.now,
		m.events,
		m.started,
		m.live,
		m.interrupts,
		m.waiting,
		m.free,
	)

	return m
}
