// Package navmetrics exports decoder events as Prometheus metrics.
package navmetrics

import (
	"github.com/gnsskit/gonav/pkg/navmsg"
	"github.com/prometheus/client_golang/prometheus"
)

// Observer counts decoder events by type and signal. It implements
// navmsg.Observer.
type Observer struct {
	events *prometheus.CounterVec
}

// New registers the event counters with reg and returns the observer.
func New(reg prometheus.Registerer) *Observer {
	o := &Observer{
		events: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: "gonav",
			Subsystem: "decoder",
			Name:      "events_total",
			Help:      "Decoder events by type and signal.",
		}, []string{"type", "signal"}),
	}
	reg.MustRegister(o.events)
	return o
}

// Notify implements navmsg.Observer.
func (o *Observer) Notify(ev navmsg.Event) {
	o.events.WithLabelValues(ev.Type.String(), ev.Signal.String()).Inc()
}
