// Package metrics counts solves and their iteration counts in a private
// Prometheus registry. Batch runs export the registry as a node_exporter
// textfile; nothing here listens on a port.
package metrics

import (
	"fmt"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/tomorrownow/PyFCM/internal/fcm"
)

// Outcome label values.
const (
	OutcomeConverged = "converged"
	OutcomeDiverged  = "nonconverged"
)

// Recorder observes engine solves. It satisfies fcm.Observer.
type Recorder struct {
	registry   *prometheus.Registry
	solves     *prometheus.CounterVec
	iterations *prometheus.HistogramVec
	residual   *prometheus.GaugeVec
}

// NewRecorder creates a recorder with its own registry.
func NewRecorder() *Recorder {
	r := &Recorder{
		registry: prometheus.NewRegistry(),
		solves: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: "fcm",
				Name:      "solves_total",
				Help:      "Fixed-point solves by kind and outcome.",
			},
			[]string{"kind", "outcome"},
		),
		iterations: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: "fcm",
				Name:      "solve_iterations",
				Help:      "Iterations needed per solve.",
				Buckets:   prometheus.ExponentialBuckets(1, 2, 11),
			},
			[]string{"kind"},
		),
		residual: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Namespace: "fcm",
				Name:      "last_residual",
				Help:      "L-infinity residual of the most recent solve.",
			},
			[]string{"kind"},
		),
	}
	r.registry.MustRegister(r.solves, r.iterations, r.residual)
	return r
}

// ObserveSolve implements fcm.Observer.
func (r *Recorder) ObserveSolve(ev fcm.SolveEvent) {
	outcome := OutcomeConverged
	if !ev.Converged {
		outcome = OutcomeDiverged
	}
	kind := string(ev.Kind)
	r.solves.WithLabelValues(kind, outcome).Inc()
	r.iterations.WithLabelValues(kind).Observe(float64(ev.Iterations))
	r.residual.WithLabelValues(kind).Set(ev.Residual)
}

// Registry exposes the underlying registry.
func (r *Recorder) Registry() *prometheus.Registry { return r.registry }

// WriteTextfile writes every metric to path in the text exposition format.
func (r *Recorder) WriteTextfile(path string) error {
	if err := prometheus.WriteToTextfile(path, r.registry); err != nil {
		return fmt.Errorf("metrics: write %s: %w", path, err)
	}
	return nil
}
