package provision

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"

	pmetrics "github.com/dropDatabas3/printdesk/internal/metrics"
)

// Metrics agrupa las métricas del provisioning. Un *Metrics nil es válido (no-op).
type Metrics struct {
	runs         *prometheus.CounterVec
	stepDuration *prometheus.HistogramVec
	repairs      *prometheus.CounterVec
}

// NewMetrics crea y registra las métricas en reg (DefaultRegisterer si es nil).
// Registrar dos veces reutiliza los collectors existentes.
func NewMetrics(reg prometheus.Registerer) (*Metrics, error) {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	m := &Metrics{
		runs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provision_runs_total",
			Help: "Corridas de provisioning del admin por resultado",
		}, []string{"outcome"}), // outcome: created|reconciled|failed
		stepDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Name:    "provision_step_duration_seconds",
			Help:    "Duración de cada paso del provisioning",
			Buckets: []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		}, []string{"step"}),
		repairs: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "provision_repairs_total",
			Help: "Reparaciones de drift aplicadas por tipo",
		}, []string{"kind"}), // kind: password|email_confirmed|profile
	}

	var err error
	if m.runs, err = pmetrics.Register(reg, m.runs); err != nil {
		return nil, err
	}
	if m.stepDuration, err = pmetrics.Register(reg, m.stepDuration); err != nil {
		return nil, err
	}
	if m.repairs, err = pmetrics.Register(reg, m.repairs); err != nil {
		return nil, err
	}
	return m, nil
}

func (m *Metrics) observeStep(step Step, start time.Time) {
	if m == nil {
		return
	}
	m.stepDuration.WithLabelValues(string(step)).Observe(time.Since(start).Seconds())
}

func (m *Metrics) run(outcome string) {
	if m == nil {
		return
	}
	m.runs.WithLabelValues(outcome).Inc()
}

func (m *Metrics) repair(kind string) {
	if m == nil {
		return
	}
	m.repairs.WithLabelValues(kind).Inc()
}
