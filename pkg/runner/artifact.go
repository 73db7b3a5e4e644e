package runner

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/questcheck/pkg/scenario"
	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu"
)

// Artifact file names inside the output directory.
const (
	ExecutionFile   = "execution.json"
	SummaryFile     = "summary.md"
	MetricsFile     = "metrics.json"
	PrometheusFile  = "metrics.prom"
	EvidencePDFFile = "evidence.pdf"
)

// ArtifactWriter handles writing execution artifacts
type ArtifactWriter struct {
	outputDir string
	config    ArtifactConfig
}

// NewArtifactWriter creates a new artifact writer
func NewArtifactWriter(outputDir string, config ArtifactConfig) *ArtifactWriter {
	return &ArtifactWriter{
		outputDir: outputDir,
		config:    config,
	}
}

// OutputDir returns the directory artifacts are written to.
func (w *ArtifactWriter) OutputDir() string {
	return w.outputDir
}

// WriteAll writes all configured artifact formats and returns the paths
// written, in order.
func (w *ArtifactWriter) WriteAll(summary *ExecutionSummary) ([]string, error) {
	// Ensure output directory exists
	if err := os.MkdirAll(w.outputDir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create output directory: %w", err)
	}

	var written []string
	add := func(name string, write func(*ExecutionSummary) error) error {
		if err := write(summary); err != nil {
			return err
		}
		written = append(written, filepath.Join(w.outputDir, name))
		return nil
	}

	if w.config.JSON {
		if err := add(ExecutionFile, w.WriteExecutionJSON); err != nil {
			return written, fmt.Errorf("failed to write execution JSON: %w", err)
		}
	}

	if w.config.Markdown {
		if err := add(SummaryFile, w.WriteSummaryMarkdown); err != nil {
			return written, fmt.Errorf("failed to write summary markdown: %w", err)
		}
	}

	if w.config.Metrics {
		if err := add(MetricsFile, w.WriteMetricsJSON); err != nil {
			return written, fmt.Errorf("failed to write metrics JSON: %w", err)
		}
		if err := add(PrometheusFile, w.WritePrometheus); err != nil {
			return written, fmt.Errorf("failed to write prometheus metrics: %w", err)
		}
	}

	// The PDF needs a screenshot, which a failed run may not have
	if w.config.PDF && summary.Screenshot != "" {
		if err := add(EvidencePDFFile, w.WriteEvidencePDF); err != nil {
			return written, fmt.Errorf("failed to write evidence PDF: %w", err)
		}
	}

	return written, nil
}

// WriteExecutionJSON writes the full execution summary as JSON
func (w *ArtifactWriter) WriteExecutionJSON(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, ExecutionFile)

	data, err := json.MarshalIndent(summary, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal execution summary: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write execution JSON: %w", writeErr)
	}

	return nil
}

// WriteSummaryMarkdown writes a human-readable markdown summary
func (w *ArtifactWriter) WriteSummaryMarkdown(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, SummaryFile)

	var md strings.Builder

	// Header
	md.WriteString("# questcheck Run Summary\n\n")
	md.WriteString(fmt.Sprintf("**Scenario:** %s\n\n", summary.Scenario))
	md.WriteString(fmt.Sprintf("**Run ID:** %s\n\n", summary.RunID))
	md.WriteString(fmt.Sprintf("**Status:** %s\n\n", summary.Status))
	md.WriteString(fmt.Sprintf("**Started:** %s\n\n", summary.StartTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Completed:** %s\n\n", summary.EndTime.Format(time.RFC3339)))
	md.WriteString(fmt.Sprintf("**Duration:** %s\n\n", summary.Duration))

	// Result
	md.WriteString("## Result\n\n")
	if summary.Error != "" {
		md.WriteString(fmt.Sprintf("❌ **Error (%s):** %s\n\n", summary.ErrorKind, summary.Error))
		if summary.FailedStep != "" {
			md.WriteString(fmt.Sprintf("Failed at step `%s`.\n\n", summary.FailedStep))
		}
	} else {
		md.WriteString("✅ **Success**\n\n")
	}

	// Steps
	if len(summary.Steps) > 0 {
		md.WriteString("## Steps\n\n")
		md.WriteString("| # | Step | Status | Duration |\n")
		md.WriteString("|---|------|--------|----------|\n")
		for i, step := range summary.Steps {
			md.WriteString(fmt.Sprintf("| %d | %s | %s %s | %s |\n",
				i+1, step.Name, statusIcon(step.Status), step.Status, step.Duration.Round(time.Millisecond)))
		}
		md.WriteString("\n")
	}

	// Evidence
	if summary.Screenshot != "" {
		md.WriteString("## Evidence\n\n")
		md.WriteString(fmt.Sprintf("- **Screenshot:** `%s` (%d bytes)\n", summary.Screenshot, summary.Metrics.ScreenshotBytes))
		if summary.SpawnedURL != "" {
			md.WriteString(fmt.Sprintf("- **Dungeon page:** `%s`\n", summary.SpawnedURL))
		}
		md.WriteString("\n")
	}

	// Quality Gates
	if summary.QualityGateResults != nil && len(summary.QualityGateResults.Results) > 0 {
		md.WriteString("## Quality Gates\n\n")
		for _, result := range summary.QualityGateResults.Results {
			status := "✅"
			if !result.Passed {
				status = "❌"
			}
			md.WriteString(fmt.Sprintf("%s **%s**", status, result.Name))
			if result.Required {
				md.WriteString(" (required)")
			}
			md.WriteString("\n")
			if result.Error != "" {
				md.WriteString(fmt.Sprintf("   Error: %s\n", result.Error))
			}
		}
		md.WriteString("\n")
	}

	// Metrics
	md.WriteString("## Metrics\n\n")
	md.WriteString(fmt.Sprintf("- **Steps Passed:** %d\n", summary.Metrics.StepsPassed))
	md.WriteString(fmt.Sprintf("- **Steps Failed:** %d\n", summary.Metrics.StepsFailed))
	md.WriteString(fmt.Sprintf("- **Steps Skipped:** %d\n", summary.Metrics.StepsSkipped))
	md.WriteString(fmt.Sprintf("- **Checkboxes Checked:** %d\n", summary.Metrics.CheckboxesChecked))

	// Snapshot goes last, it can be long
	if summary.Snapshot != "" {
		md.WriteString("\n## DOM at Failure\n\n```html\n")
		md.WriteString(summary.Snapshot)
		md.WriteString("\n```\n")
	}

	// Write file
	if writeErr := os.WriteFile(path, []byte(md.String()), 0600); writeErr != nil {
		return fmt.Errorf("failed to write summary markdown: %w", writeErr)
	}

	return nil
}

// WriteMetricsJSON writes execution metrics as JSON
func (w *ArtifactWriter) WriteMetricsJSON(summary *ExecutionSummary) error {
	path := filepath.Join(w.outputDir, MetricsFile)

	data, err := json.MarshalIndent(summary.Metrics, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal metrics: %w", err)
	}

	if writeErr := os.WriteFile(path, data, 0600); writeErr != nil {
		return fmt.Errorf("failed to write metrics JSON: %w", writeErr)
	}

	return nil
}

// WritePrometheus writes the run's metrics in the Prometheus text format,
// for a node_exporter textfile collector.
func (w *ArtifactWriter) WritePrometheus(summary *ExecutionSummary) error {
	return writePrometheusTextfile(filepath.Join(w.outputDir, PrometheusFile), summary)
}

// WriteEvidencePDF embeds the screenshot in a one-page PDF.
func (w *ArtifactWriter) WriteEvidencePDF(summary *ExecutionSummary) error {
	if summary.Screenshot == "" {
		return fmt.Errorf("no screenshot to embed")
	}
	path := filepath.Join(w.outputDir, EvidencePDFFile)

	// ImportImagesFile appends to an existing file
	if err := os.Remove(path); err != nil && !os.IsNotExist(err) {
		return fmt.Errorf("failed to replace evidence PDF: %w", err)
	}

	if err := api.ImportImagesFile([]string{summary.Screenshot}, path, pdfcpu.DefaultImportConfig(), nil); err != nil {
		return fmt.Errorf("failed to import screenshot: %w", err)
	}

	return nil
}

// ExecutionSummary contains a complete summary of a scenario run
type ExecutionSummary struct {
	RunID              string                `json:"run_id"`
	Scenario           string                `json:"scenario"`
	Status             string                `json:"status"`
	Error              string                `json:"error,omitempty"`
	ErrorKind          string                `json:"error_kind,omitempty"`
	FailedStep         string                `json:"failed_step,omitempty"`
	Snapshot           string                `json:"snapshot,omitempty"`
	StartTime          time.Time             `json:"start_time"`
	EndTime            time.Time             `json:"end_time"`
	Duration           time.Duration         `json:"duration"`
	Steps              []scenario.StepResult `json:"steps"`
	SpawnedURL         string                `json:"spawned_url,omitempty"`
	Screenshot         string                `json:"screenshot,omitempty"`
	QualityGateResults *QualityGateResults   `json:"quality_gate_results,omitempty"`
	Metrics            ExecutionMetrics      `json:"metrics"`
	LogPath            string                `json:"log_path,omitempty"`
}

// ExecutionMetrics contains execution metrics
type ExecutionMetrics struct {
	StepsTotal        int   `json:"steps_total"`
	StepsPassed       int   `json:"steps_passed"`
	StepsFailed       int   `json:"steps_failed"`
	StepsSkipped      int   `json:"steps_skipped"`
	CheckboxesChecked int   `json:"checkboxes_checked"`
	ScreenshotBytes   int64 `json:"screenshot_bytes"`
	GatesPassed       int   `json:"gates_passed"`
	GatesFailed       int   `json:"gates_failed"`
}

// applyReport copies a scenario report into the summary.
func (s *ExecutionSummary) applyReport(r *scenario.Report) {
	s.Scenario = r.Scenario
	s.Steps = r.Steps
	s.FailedStep = r.FailedStep
	s.SpawnedURL = r.SpawnedURL
	s.Screenshot = r.Screenshot

	passed, failed, skipped := r.Counts()
	s.Metrics.StepsTotal = len(r.Steps)
	s.Metrics.StepsPassed = passed
	s.Metrics.StepsFailed = failed
	s.Metrics.StepsSkipped = skipped
	s.Metrics.CheckboxesChecked = r.Checked

	if r.Screenshot != "" {
		if info, err := os.Stat(r.Screenshot); err == nil {
			s.Metrics.ScreenshotBytes = info.Size()
		}
	}
}

// applyGates copies gate results into the summary.
func (s *ExecutionSummary) applyGates(results *QualityGateResults) {
	s.QualityGateResults = results
	s.Metrics.GatesPassed = 0
	s.Metrics.GatesFailed = 0
	for _, r := range results.Results {
		if r.Passed {
			s.Metrics.GatesPassed++
		} else {
			s.Metrics.GatesFailed++
		}
	}
}

func statusIcon(status scenario.Status) string {
	switch status {
	case scenario.StatusPassed:
		return "✅"
	case scenario.StatusFailed:
		return "❌"
	default:
		return "⏭"
	}
}
