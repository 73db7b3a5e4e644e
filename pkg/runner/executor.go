package runner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/entrhq/questcheck/pkg/browser"
	"github.com/entrhq/questcheck/pkg/history"
	"github.com/entrhq/questcheck/pkg/logging"
	"github.com/entrhq/questcheck/pkg/scenario"
	"github.com/entrhq/questcheck/pkg/security/workspace"
	"github.com/entrhq/questcheck/pkg/types"
	"github.com/google/uuid"
)

const (
	statusRunning = "running"
	statusSuccess = "success"
	statusFailed  = "failed"
)

// Error kinds recorded in the summary and history.
const (
	KindAssertion   = "assertion"
	KindNavigation  = "navigation"
	KindMissingPage = "missing_page"
	KindQualityGate = "quality_gate"
	KindCancelled   = "cancelled"
	KindSetup       = "setup"
)

// SessionProvider owns the browser driver for a run.
// *browser.SessionManager satisfies it.
type SessionProvider interface {
	scenario.SessionStarter
	Initialize() error
	ListSessions() []browser.SessionInfo
	Shutdown() error
}

// Executor runs the quest scenario once and reports on it
type Executor struct {
	config         *Config
	sessions       SessionProvider
	guard          *workspace.Guard
	console        *Logger
	log            *logging.Logger
	qualityGates   *QualityGateRunner
	artifactWriter *ArtifactWriter
	history        history.Store

	appPath        string
	screenshotPath string

	// Execution state
	startTime time.Time
	summary   *ExecutionSummary
}

// Option configures an Executor.
type Option func(*Executor)

// WithConsole sets the console logger. Defaults to one on stdout at the
// configured verbosity.
func WithConsole(l *Logger) Option {
	return func(e *Executor) {
		e.console = l
	}
}

// WithDiagnostics sets the diagnostic file logger.
func WithDiagnostics(l *logging.Logger) Option {
	return func(e *Executor) {
		e.log = l
	}
}

// WithHistory records runs in store instead of the configured database.
func WithHistory(store history.Store) Option {
	return func(e *Executor) {
		e.history = store
	}
}

// NewExecutor validates config, resolves every run path inside the workspace
// and prepares an executor. sessions is not initialized until Run.
func NewExecutor(config *Config, sessions SessionProvider, opts ...Option) (*Executor, error) {
	// Validate configuration
	if err := config.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}
	if sessions == nil {
		return nil, fmt.Errorf("session provider is required")
	}

	guard, err := workspace.NewGuard(config.WorkspaceDir)
	if err != nil {
		return nil, fmt.Errorf("invalid workspace: %w", err)
	}

	// The app need not exist yet; a missing document fails the launch step
	appPath, err := guard.Resolve(config.AppPath)
	if err != nil {
		return nil, fmt.Errorf("app path: %w", err)
	}
	screenshotPath, err := guard.Resolve(config.Evidence.ScreenshotPath)
	if err != nil {
		return nil, fmt.Errorf("screenshot path: %w", err)
	}
	artifactDir, err := guard.Resolve(config.Artifacts.OutputDir)
	if err != nil && config.Artifacts.Enabled {
		return nil, fmt.Errorf("artifact directory: %w", err)
	}

	e := &Executor{
		config:         config,
		sessions:       sessions,
		guard:          guard,
		qualityGates:   NewQualityGateRunner(CreateQualityGates(screenshotPath, config.QualityGates)),
		artifactWriter: NewArtifactWriter(artifactDir, config.Artifacts),
		appPath:        appPath,
		screenshotPath: screenshotPath,
	}
	for _, opt := range opts {
		opt(e)
	}
	if e.console == nil {
		e.console = NewLogger(ParseLogLevel(config.Logging.Verbosity))
	}
	if e.log == nil {
		e.log = logging.Nop()
	}

	runID := e.log.RunID()
	if runID == "" {
		runID = uuid.NewString()
	}
	e.summary = &ExecutionSummary{
		RunID:    runID,
		Scenario: scenario.QuestScenario,
		Status:   statusRunning,
		LogPath:  e.log.LogPath(),
	}
	return e, nil
}

// Summary returns the run summary. It is complete once Run returns.
func (e *Executor) Summary() *ExecutionSummary {
	return e.summary
}

// Run executes the quest scenario, then the quality gates, and writes the
// run's artifacts and history. The returned error is the first failure.
func (e *Executor) Run(ctx context.Context) error {
	e.startTime = time.Now()
	e.summary.StartTime = e.startTime

	e.console.Header(fmt.Sprintf("questcheck: %s", scenario.QuestScenario))
	e.console.Verbosef("workspace: %s", e.guard.Root())
	e.log.Infof("run started: workspace=%s app=%s", e.guard.Root(), e.appPath)

	if err := e.sessions.Initialize(); err != nil {
		return e.fail(fmt.Errorf("failed to start browser driver: %w", err))
	}
	// Teardown also runs as the scenario's last step; this covers every
	// path that never reaches it.
	defer func() {
		for _, info := range e.sessions.ListSessions() {
			e.log.Warnf("session %q still open at shutdown (url=%s, spawned pages=%d)", info.Name, info.CurrentURL, info.SpawnedPage)
		}
		if err := e.sessions.Shutdown(); err != nil {
			e.console.Warningf("browser shutdown: %v", err)
			e.log.Warnf("browser shutdown: %v", err)
		}
	}()

	quest := &scenario.Quest{
		Sessions:       e.sessions,
		SessionName:    scenario.QuestScenario,
		SessionOptions: e.config.SessionOptions(),
		AppPath:        e.appPath,
		Fixture:        e.config.LoginFixture(),
		Expect:         e.config.Expect,
		ScreenshotPath: e.screenshotPath,
		FullPage:       e.config.Evidence.FullPage,
	}
	steps, err := quest.Steps()
	if err != nil {
		return e.fail(fmt.Errorf("invalid scenario: %w", err))
	}

	report := scenario.NewRunner(scenario.QuestScenario, e.log, e.consoleEvent).Run(ctx, steps)
	e.summary.applyReport(report)
	if !report.Passed {
		return e.fail(report.Err)
	}

	e.console.Section("Quality Gates")
	results := e.qualityGates.RunAll(ctx, e.guard.Root(), func(r QualityGateResult) {
		var gateErr error
		if r.Error != "" {
			gateErr = errors.New(r.Error)
		}
		e.console.HandleEvent(types.NewGateResultEvent(report.Scenario, r.Name, r.Required, r.Passed, gateErr))
		e.log.Infof("quality gate %s: passed=%v required=%v", r.Name, r.Passed, r.Required)
	})
	e.summary.applyGates(results)
	if !results.AllPassed {
		return e.fail(&QualityGateFailure{Results: results})
	}

	return e.finalize()
}

// finalize completes a successful run and generates artifacts
func (e *Executor) finalize() error {
	e.summary.Status = statusSuccess
	e.summary.EndTime = time.Now()
	e.summary.Duration = e.summary.EndTime.Sub(e.startTime)

	e.writeArtifacts()
	e.recordHistory()

	e.log.Infof("run completed: %s (duration: %s)", e.summary.Status, e.summary.Duration)
	e.console.Summary(e.summary.Status, e.summary)
	return nil
}

// fail marks the execution as failed and returns err
func (e *Executor) fail(err error) error {
	e.summary.Status = statusFailed
	e.summary.Error = err.Error()
	e.summary.ErrorKind = ErrorKind(err)
	e.summary.EndTime = time.Now()
	e.summary.Duration = e.summary.EndTime.Sub(e.startTime)

	var assertErr *browser.AssertionError
	if errors.As(err, &assertErr) {
		e.summary.Snapshot = assertErr.Snapshot
	}

	// Try to generate artifacts even on failure
	e.writeArtifacts()
	e.recordHistory()

	e.log.Errorf("run failed (%s): %v", e.summary.ErrorKind, err)
	e.console.Summary(e.summary.Status, e.summary)
	return err
}

// consoleEvent forwards ev to the console with artifact paths shown relative
// to the workspace.
func (e *Executor) consoleEvent(ev *types.ScenarioEvent) {
	if ev.Artifact != nil {
		artifact := *ev.Artifact
		artifact.Path = e.displayPath(artifact.Path)
		shown := *ev
		shown.Artifact = &artifact
		ev = &shown
	}
	e.console.HandleEvent(ev)
}

func (e *Executor) displayPath(path string) string {
	rel, err := e.guard.Rel(path)
	if err != nil || strings.HasPrefix(rel, "..") {
		return path
	}
	return rel
}

func (e *Executor) writeArtifacts() {
	if !e.config.Artifacts.Enabled {
		return
	}
	written, err := e.artifactWriter.WriteAll(e.summary)
	for _, path := range written {
		e.consoleEvent(types.NewArtifactWrittenEvent(e.summary.Scenario, artifactKind(path), path, fileSize(path)))
	}
	if err != nil {
		e.console.Warningf("failed to write artifacts: %v", err)
		e.log.Warnf("failed to write artifacts: %v", err)
		return
	}
	e.log.Infof("artifacts written to %s", e.artifactWriter.OutputDir())
}

// recordHistory saves the run. A history failure never changes the outcome.
func (e *Executor) recordHistory() {
	store := e.history
	if store == nil {
		if !e.config.History.Enabled {
			return
		}
		opened, err := e.openHistory()
		if err != nil {
			e.console.Warningf("run history unavailable: %v", err)
			e.log.Warnf("run history unavailable: %v", err)
			return
		}
		defer opened.Close()
		store = opened
	}

	// Detached from the run context so a cancelled run is still recorded
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := store.Save(ctx, e.summary.Record()); err != nil {
		e.console.Warningf("failed to record run history: %v", err)
		e.log.Warnf("failed to record run history: %v", err)
	}
}

func (e *Executor) openHistory() (*history.SQLiteStore, error) {
	path, err := e.config.HistoryPath()
	if err != nil {
		return nil, err
	}
	if !filepath.IsAbs(path) {
		path = filepath.Join(e.guard.Root(), path)
	}
	if err := e.guard.Allow(filepath.Dir(path)); err != nil {
		return nil, err
	}
	resolved, err := e.guard.Resolve(path)
	if err != nil {
		return nil, err
	}
	return history.OpenSQLite(resolved)
}

// Record converts the summary into a history record.
func (s *ExecutionSummary) Record() *history.Record {
	rec := &history.Record{
		RunID:       s.RunID,
		Scenario:    s.Scenario,
		Passed:      s.Status == statusSuccess,
		GatesPassed: s.QualityGateResults != nil && s.QualityGateResults.AllPassed,
		FailedStep:  s.FailedStep,
		Error:       s.Error,
		Duration:    s.Duration,
		Checked:     s.Metrics.CheckboxesChecked,
		SpawnedURL:  s.SpawnedURL,
		Screenshot:  s.Screenshot,
		StartedAt:   s.StartTime,
		Steps:       make([]history.StepRecord, 0, len(s.Steps)),
	}
	for _, step := range s.Steps {
		rec.Steps = append(rec.Steps, history.StepRecord{
			Name:     step.Name,
			Status:   string(step.Status),
			Duration: step.Duration,
		})
	}
	return rec
}

// QualityGateFailure is returned by Run when a required gate fails.
type QualityGateFailure struct {
	Results *QualityGateResults
}

func (e *QualityGateFailure) Error() string {
	failed := e.Results.GetFailedGates()
	names := make([]string, 0, len(failed))
	for _, f := range failed {
		names = append(names, f.Name)
	}
	return fmt.Sprintf("required quality gates failed: %s", strings.Join(names, ", "))
}

// ErrorKind classifies a run error for reports and history.
func ErrorKind(err error) string {
	var (
		assertErr  *browser.AssertionError
		navErr     *browser.NavigationError
		missingErr *browser.MissingPageError
		gateErr    *QualityGateFailure
	)
	switch {
	case err == nil:
		return ""
	case errors.As(err, &missingErr):
		return KindMissingPage
	case errors.As(err, &navErr):
		return KindNavigation
	case errors.As(err, &assertErr):
		return KindAssertion
	case errors.As(err, &gateErr):
		return KindQualityGate
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return KindCancelled
	default:
		return KindSetup
	}
}

func artifactKind(path string) string {
	switch filepath.Base(path) {
	case ExecutionFile:
		return "json"
	case SummaryFile:
		return "markdown"
	case MetricsFile, PrometheusFile:
		return "metrics"
	case EvidencePDFFile:
		return "pdf"
	default:
		return "file"
	}
}

func fileSize(path string) int64 {
	info, err := os.Stat(path)
	if err != nil {
		return 0
	}
	return info.Size()
}
