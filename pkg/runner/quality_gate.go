package runner

import (
	"bytes"
	"context"
	"fmt"
	"image/png"
	"os"
	"os/exec"
	"strings"
	"time"

	"github.com/entrhq/questcheck/pkg/security/workspace"
)

// QualityGate is a check run after the scenario passes. A run only succeeds
// when every required gate passes.
type QualityGate interface {
	// Name returns the name of the quality gate
	Name() string

	// Required returns true if failure should fail the run
	Required() bool

	// Execute runs the quality gate and returns an error if it fails
	Execute(ctx context.Context, workspaceDir string) error
}

// EvidenceGate checks that the screenshot is a regular file inside the
// workspace, is non-empty and decodes as a PNG image.
type EvidenceGate struct {
	path string
}

// NewEvidenceGate creates a gate for the screenshot at path.
func NewEvidenceGate(path string) *EvidenceGate {
	return &EvidenceGate{path: path}
}

// Name returns the name of the quality gate
func (g *EvidenceGate) Name() string {
	return "evidence"
}

// Required always returns true.
func (g *EvidenceGate) Required() bool {
	return true
}

// Execute validates the screenshot file.
func (g *EvidenceGate) Execute(ctx context.Context, workspaceDir string) error {
	guard, err := workspace.NewGuard(workspaceDir)
	if err != nil {
		return &QualityGateError{GateName: g.Name(), Err: err}
	}
	path, err := guard.RequireFile(g.path)
	if err != nil {
		return &QualityGateError{GateName: g.Name(), Err: fmt.Errorf("screenshot not readable: %w", err)}
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return &QualityGateError{GateName: g.Name(), Err: fmt.Errorf("screenshot not readable: %w", err)}
	}
	if len(data) == 0 {
		return &QualityGateError{GateName: g.Name(), Err: fmt.Errorf("screenshot %s is empty", g.path)}
	}
	cfg, err := png.DecodeConfig(bytes.NewReader(data))
	if err != nil {
		return &QualityGateError{GateName: g.Name(), Err: fmt.Errorf("screenshot is not a valid PNG: %w", err)}
	}
	if cfg.Width == 0 || cfg.Height == 0 {
		return &QualityGateError{GateName: g.Name(), Err: fmt.Errorf("screenshot has no pixels (%dx%d)", cfg.Width, cfg.Height)}
	}
	return nil
}

// CommandQualityGate executes a shell command as a quality gate
type CommandQualityGate struct {
	name     string
	command  string
	required bool
	timeout  time.Duration
}

// NewCommandQualityGate creates a new command-based quality gate
func NewCommandQualityGate(name, command string, required bool) *CommandQualityGate {
	return &CommandQualityGate{
		name:     name,
		command:  command,
		required: required,
		timeout:  5 * time.Minute, // Default timeout
	}
}

// Name returns the name of the quality gate
func (g *CommandQualityGate) Name() string {
	return g.name
}

// Required returns true if failure should fail the run
func (g *CommandQualityGate) Required() bool {
	return g.required
}

// Execute runs the command through sh in the workspace directory.
func (g *CommandQualityGate) Execute(ctx context.Context, workspaceDir string) error {
	if strings.TrimSpace(g.command) == "" {
		return &QualityGateError{GateName: g.name, Err: fmt.Errorf("empty command")}
	}

	execCtx, cancel := context.WithTimeout(ctx, g.timeout)
	defer cancel()

	cmd := exec.CommandContext(execCtx, "sh", "-c", g.command)
	cmd.Dir = workspaceDir

	output, err := cmd.CombinedOutput()
	if err != nil {
		return &QualityGateError{
			GateName: g.name,
			Command:  g.command,
			Output:   string(output),
			Err:      err,
		}
	}

	return nil
}

// QualityGateError represents a quality gate execution failure
type QualityGateError struct {
	GateName string
	Command  string
	Output   string
	Err      error
}

func (e *QualityGateError) Error() string {
	return fmt.Sprintf("quality gate '%s' failed: %v", e.GateName, e.Err)
}

// Unwrap returns the underlying error
func (e *QualityGateError) Unwrap() error {
	return e.Err
}

// QualityGateRunner manages execution of multiple quality gates
type QualityGateRunner struct {
	gates []QualityGate
}

// NewQualityGateRunner creates a new quality gate runner
func NewQualityGateRunner(gates []QualityGate) *QualityGateRunner {
	return &QualityGateRunner{gates: gates}
}

// Len returns the number of gates.
func (r *QualityGateRunner) Len() int {
	return len(r.gates)
}

// RunAll executes every gate in order and returns the results. onResult, if
// non-nil, is called after each gate.
func (r *QualityGateRunner) RunAll(ctx context.Context, workspaceDir string, onResult func(QualityGateResult)) *QualityGateResults {
	results := &QualityGateResults{
		AllPassed: true,
		Results:   make([]QualityGateResult, 0, len(r.gates)),
	}

	for _, gate := range r.gates {
		result := QualityGateResult{
			Name:     gate.Name(),
			Required: gate.Required(),
			Passed:   true,
		}

		start := time.Now()
		if err := gate.Execute(ctx, workspaceDir); err != nil {
			result.Passed = false
			result.Error = err.Error()
			if gate.Required() {
				results.AllPassed = false
			}
		}
		result.Duration = time.Since(start)

		results.Results = append(results.Results, result)
		if onResult != nil {
			onResult(result)
		}
	}

	return results
}

// QualityGateResults contains results from running quality gates
type QualityGateResults struct {
	AllPassed bool                `json:"all_passed"`
	Results   []QualityGateResult `json:"results"`
}

// QualityGateResult represents the result of a single quality gate
type QualityGateResult struct {
	Name     string        `json:"name"`
	Required bool          `json:"required"`
	Passed   bool          `json:"passed"`
	Error    string        `json:"error,omitempty"`
	Duration time.Duration `json:"duration"`
}

// GetFailedGates returns a list of failed required gates
func (r *QualityGateResults) GetFailedGates() []QualityGateResult {
	failed := make([]QualityGateResult, 0)
	for _, result := range r.Results {
		if result.Required && !result.Passed {
			failed = append(failed, result)
		}
	}
	return failed
}

// FormatErrorMessage creates a formatted error message for failed gates
func (r *QualityGateResults) FormatErrorMessage() string {
	failed := r.GetFailedGates()
	if len(failed) == 0 {
		return ""
	}

	var msg strings.Builder
	msg.WriteString("Quality gate failures:\n\n")
	for _, result := range failed {
		msg.WriteString(fmt.Sprintf("❌ %s\n", result.Name))
		if result.Error != "" {
			msg.WriteString(fmt.Sprintf("   Error: %s\n\n", result.Error))
		}
	}

	return msg.String()
}

// CreateQualityGates builds the gate list for a run: the evidence gate for
// screenshotPath first, then the configured command gates.
func CreateQualityGates(screenshotPath string, configs []QualityGateConfig) []QualityGate {
	gates := make([]QualityGate, 0, len(configs)+1)
	gates = append(gates, NewEvidenceGate(screenshotPath))
	for _, config := range configs {
		gates = append(gates, NewCommandQualityGate(config.Name, config.Command, config.Required))
	}
	return gates
}
