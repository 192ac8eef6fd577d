package ingest

import "github.com/prometheus/client_golang/prometheus"

type metrics struct {
	batchLatency prometheus.Histogram
	ingestErrors prometheus.Counter
}

func initMetrics(register bool) *metrics {
	m := &metrics{
		batchLatency: prometheus.NewHistogram(prometheus.HistogramOpts{
			Namespace: "eventsink",
			Subsystem: "ingest",
			Name:      "tcp_batch_latency_seconds",
			Help:      "Time to read, decode and enqueue one inbound batch",
			Buckets:   []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25},
		}),
		ingestErrors: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventsink",
			Subsystem: "ingest",
			Name:      "tcp_errors_total",
			Help:      "Total number of errors during TCP ingest",
		}),
	}

	if register {
		prometheus.MustRegister(
			m.batchLatency,
			m.ingestErrors,
		)
	}
	return m
}

func (m *metrics) incError() {
	m.ingestErrors.Inc()
}
