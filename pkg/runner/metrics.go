package runner

import (
	"github.com/prometheus/client_golang/prometheus"
)

const metricsNamespace = "questcheck"

// runMetrics is a private registry per run; nothing is registered globally.
type runMetrics struct {
	registry     *prometheus.Registry
	runPassed    prometheus.Gauge
	runDuration  prometheus.Gauge
	lastRun      prometheus.Gauge
	stepDuration *prometheus.GaugeVec
	stepStatus   *prometheus.GaugeVec
	checked      prometheus.Gauge
	shotBytes    prometheus.Gauge
	gatePassed   *prometheus.GaugeVec
}

func newRunMetrics() *runMetrics {
	m := &runMetrics{
		registry: prometheus.NewRegistry(),
		runPassed: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_passed",
			Help:      "1 if the last scenario run passed, 0 otherwise.",
		}),
		runDuration: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "run_duration_seconds",
			Help:      "Wall time of the last scenario run.",
		}),
		lastRun: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "last_run_timestamp_seconds",
			Help:      "Unix time the last scenario run finished.",
		}),
		stepDuration: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "step_duration_seconds",
			Help:      "Wall time of each step in the last run.",
		}, []string{"scenario", "step"}),
		stepStatus: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "step_status",
			Help:      "1 for the status each step ended in during the last run.",
		}, []string{"scenario", "step", "status"}),
		checked: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "checkboxes_checked",
			Help:      "Set checkboxes checked on the dungeon page.",
		}),
		shotBytes: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "screenshot_bytes",
			Help:      "Size of the evidence screenshot.",
		}),
		gatePassed: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Namespace: metricsNamespace,
			Name:      "quality_gate_passed",
			Help:      "1 if the quality gate passed in the last run.",
		}, []string{"gate", "required"}),
	}

	m.registry.MustRegister(
		m.runPassed,
		m.runDuration,
		m.lastRun,
		m.stepDuration,
		m.stepStatus,
		m.checked,
		m.shotBytes,
		m.gatePassed,
	)
	return m
}

func (m *runMetrics) observe(summary *ExecutionSummary) {
	m.runPassed.Set(boolGauge(summary.Status == statusSuccess))
	m.runDuration.Set(summary.Duration.Seconds())
	m.lastRun.Set(float64(summary.EndTime.Unix()))
	m.checked.Set(float64(summary.Metrics.CheckboxesChecked))
	m.shotBytes.Set(float64(summary.Metrics.ScreenshotBytes))

	for _, step := range summary.Steps {
		m.stepDuration.WithLabelValues(summary.Scenario, step.Name).Set(step.Duration.Seconds())
		m.stepStatus.WithLabelValues(summary.Scenario, step.Name, string(step.Status)).Set(1)
	}

	if summary.QualityGateResults != nil {
		for _, r := range summary.QualityGateResults.Results {
			required := "false"
			if r.Required {
				required = "true"
			}
			m.gatePassed.WithLabelValues(r.Name, required).Set(boolGauge(r.Passed))
		}
	}
}

// writePrometheusTextfile renders summary into a fresh registry and writes
// it atomically to path.
func writePrometheusTextfile(path string, summary *ExecutionSummary) error {
	m := newRunMetrics()
	m.observe(summary)
	return prometheus.WriteToTextfile(path, m.registry)
}

func boolGauge(b bool) float64 {
	if b {
		return 1
	}
	return 0
}
