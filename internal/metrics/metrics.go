// Package metrics collects per-run Prometheus metrics and writes them in the
// node_exporter textfile format next to the run's artifacts.
package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
)

const namespace = "doctune"

// Run holds the collectors of one doctune invocation.
type Run struct {
	reg *prometheus.Registry

	documents       prometheus.Gauge
	tokens          prometheus.Gauge
	truncated       prometheus.Gauge
	trainerStep     prometheus.Gauge
	trainerLoss     prometheus.Gauge
	phaseSeconds    *prometheus.GaugeVec
	commandsTotal   *prometheus.CounterVec
	commandDuration *prometheus.HistogramVec
}

// NewRun registers collectors labelled with the subcommand and run id.
func NewRun(command, runID string) *Run {
	labels := prometheus.Labels{"command": command, "run_id": runID}
	r := &Run{
		reg: prometheus.NewRegistry(),
		documents: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "dataset", Name: "documents",
			Help: "Number of documents or records loaded", ConstLabels: labels,
		}),
		tokens: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "dataset", Name: "tokens",
			Help: "Number of tokens after truncation", ConstLabels: labels,
		}),
		truncated: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "dataset", Name: "truncated_records",
			Help: "Records cut at the maximum sequence length", ConstLabels: labels,
		}),
		trainerStep: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "trainer", Name: "last_step",
			Help: "Last optimizer step reported by the trainer", ConstLabels: labels,
		}),
		trainerLoss: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace, Subsystem: "trainer", Name: "last_loss",
			Help: "Last training loss reported by the trainer", ConstLabels: labels,
		}),
		phaseSeconds: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: namespace, Name: "phase_duration_seconds",
			Help: "Wall time spent per pipeline phase", ConstLabels: labels,
		}, []string{"phase"}),
		commandsTotal: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace, Subsystem: "ollama", Name: "commands_total",
			Help: "Ollama CLI invocations by subcommand and outcome", ConstLabels: labels,
		}, []string{"subcommand", "outcome"}),
		commandDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace, Subsystem: "ollama", Name: "command_duration_seconds",
			Help: "Duration of Ollama CLI invocations", ConstLabels: labels,
			Buckets: prometheus.ExponentialBuckets(0.05, 4, 8),
		}, []string{"subcommand"}),
	}
	r.reg.MustRegister(r.documents, r.tokens, r.truncated, r.trainerStep, r.trainerLoss,
		r.phaseSeconds, r.commandsTotal, r.commandDuration)
	return r
}

// Registry exposes the underlying registry.
func (r *Run) Registry() *prometheus.Registry { return r.reg }

// SetDocuments records the dataset size.
func (r *Run) SetDocuments(n int) { r.documents.Set(float64(n)) }

// SetTokens records tokenization totals.
func (r *Run) SetTokens(tokens, truncated int) {
	r.tokens.Set(float64(tokens))
	r.truncated.Set(float64(truncated))
}

// ObserveTrainerStep records the latest trainer progress.
func (r *Run) ObserveTrainerStep(step int, loss float64) {
	r.trainerStep.Set(float64(step))
	if loss != 0 {
		r.trainerLoss.Set(loss)
	}
}

// ObservePhase records how long a pipeline phase took.
func (r *Run) ObservePhase(phase string, d time.Duration) {
	r.phaseSeconds.WithLabelValues(phase).Set(d.Seconds())
}

// ObserveCommand implements ollama.Observer.
func (r *Run) ObserveCommand(sub string, d time.Duration, err error) {
	outcome := "ok"
	if err != nil {
		outcome = "error"
	}
	r.commandsTotal.WithLabelValues(sub, outcome).Inc()
	r.commandDuration.WithLabelValues(sub).Observe(d.Seconds())
}

// WriteTextfile writes all collected metrics to path.
func (r *Run) WriteTextfile(path string) error {
	return prometheus.WriteToTextfile(path, r.reg)
}
