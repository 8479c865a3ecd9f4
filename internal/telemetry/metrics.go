package telemetry

import (
	"errors"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "notesync"

// MetricsSink counts events per name in a Prometheus counter.
type MetricsSink struct {
	events *prometheus.CounterVec
}

// NewMetricsSink registers the event counter in reg. A counter already
// registered under the same name is reused.
func NewMetricsSink(reg prometheus.Registerer) (*MetricsSink, error) {
	events := prometheus.NewCounterVec(prometheus.CounterOpts{
		Namespace: namespace,
		Subsystem: "sync",
		Name:      "events_total",
		Help:      "number of recorded sync events",
	}, []string{"event"})

	if err := reg.Register(events); err != nil {
		var are prometheus.AlreadyRegisteredError
		if !errors.As(err, &are) {
			return nil, err
		}
		existing, ok := are.ExistingCollector.(*prometheus.CounterVec)
		if !ok {
			return nil, err
		}
		events = existing
	}

	return &MetricsSink{events: events}, nil
}

// Record implements Sink
func (s *MetricsSink) Record(name string, _ map[string]string) {
	s.events.WithLabelValues(name).Inc()
}

// Counter exposes the per-event counter for name.
func (s *MetricsSink) Counter(name string) prometheus.Counter {
	return s.events.WithLabelValues(name)
}
