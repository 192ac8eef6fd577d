package sink

import "github.com/prometheus/client_golang/prometheus"

// Recorder receives the sink's dispatch counters. Injected so tests can
// assert on increments without prometheus plumbing.
type Recorder interface {
	IncSuccess()
	IncEmpty()
	IncUnderflow()
}

type promRecorder struct {
	success   prometheus.Counter
	empty     prometheus.Counter
	underflow prometheus.Counter
}

// NewRecorder builds the prometheus-backed recorder. Registration is
// optional so parallel tests can construct sinks freely.
func NewRecorder(register bool) Recorder {
	r := &promRecorder{
		success: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventsink",
			Subsystem: "sink",
			Name:      "batch_success_total",
			Help:      "Committed dispatch invocations (including empty batches)",
		}),
		empty: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventsink",
			Subsystem: "sink",
			Name:      "batch_empty_total",
			Help:      "Invocations that found the channel empty and skipped the send",
		}),
		underflow: prometheus.NewCounter(prometheus.CounterOpts{
			Namespace: "eventsink",
			Subsystem: "sink",
			Name:      "batch_underflow_total",
			Help:      "Batches cut short because the channel ran dry before capacity",
		}),
	}

	if register {
		prometheus.MustRegister(
			r.success,
			r.empty,
			r.underflow,
		)
	}
	return r
}

func (r *promRecorder) IncSuccess()   { r.success.Inc() }
func (r *promRecorder) IncEmpty()     { r.empty.Inc() }
func (r *promRecorder) IncUnderflow() { r.underflow.Inc() }
