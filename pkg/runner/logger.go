package runner

import (
	"errors"
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/alecthomas/chroma/v2"
	"github.com/alecthomas/chroma/v2/lexers"
	"github.com/charmbracelet/lipgloss"
	"github.com/entrhq/questcheck/pkg/browser"
	"github.com/entrhq/questcheck/pkg/types"
)

// LogLevel represents the logging verbosity level
type LogLevel int

const (
	// LogLevelQuiet shows only critical information (errors, warnings, final summary)
	LogLevelQuiet LogLevel = iota
	// LogLevelNormal shows step progress (default)
	LogLevelNormal
	// LogLevelVerbose adds skipped steps, artifacts and gate errors
	LogLevelVerbose
	// LogLevelDebug shows all internal details for debugging
	LogLevelDebug
)

// Color palette
var (
	salmonPink  = lipgloss.Color("#FFB3BA")
	mintGreen   = lipgloss.Color("#A8E6CF")
	mutedGray   = lipgloss.Color("#6B7280")
	brightWhite = lipgloss.Color("#F9FAFB")
	amber       = lipgloss.Color("#FDE68A")
	errorRed    = lipgloss.Color("203")
)

type consoleStyles struct {
	header  lipgloss.Style
	section lipgloss.Style
	rule    lipgloss.Style
	step    lipgloss.Style
	success lipgloss.Style
	info    lipgloss.Style
	warning lipgloss.Style
	err     lipgloss.Style
	muted   lipgloss.Style

	markup markupStyles
}

// markupStyles color an HTML snapshot by token category.
type markupStyles struct {
	tag       lipgloss.Style
	attribute lipgloss.Style
	value     lipgloss.Style
	comment   lipgloss.Style
	text      lipgloss.Style
}

// newConsoleStyles binds every style to a renderer for w, so color is only
// emitted when w is a terminal.
func newConsoleStyles(w io.Writer) consoleStyles {
	return consoleStylesFor(lipgloss.NewRenderer(w))
}

func consoleStylesFor(r *lipgloss.Renderer) consoleStyles {
	return consoleStyles{
		header:  r.NewStyle().Foreground(brightWhite).Bold(true),
		section: r.NewStyle().Foreground(salmonPink).Bold(true),
		rule:    r.NewStyle().Foreground(mutedGray),
		step:    r.NewStyle().Foreground(salmonPink),
		success: r.NewStyle().Foreground(mintGreen).Bold(true),
		info:    r.NewStyle().Foreground(salmonPink),
		warning: r.NewStyle().Foreground(amber),
		err:     r.NewStyle().Foreground(errorRed).Bold(true),
		muted:   r.NewStyle().Foreground(mutedGray),
		markup: markupStyles{
			tag:       r.NewStyle().Foreground(salmonPink),
			attribute: r.NewStyle().Foreground(amber),
			value:     r.NewStyle().Foreground(mintGreen),
			comment:   r.NewStyle().Foreground(mutedGray).Italic(true),
			text:      r.NewStyle().Foreground(brightWhite),
		},
	}
}

func (m markupStyles) forToken(t chroma.TokenType) lipgloss.Style {
	return m.pick(t).TabWidth(lipgloss.NoTabConversion)
}

func (m markupStyles) pick(t chroma.TokenType) lipgloss.Style {
	switch {
	case t == chroma.NameTag:
		return m.tag
	case t == chroma.NameAttribute:
		return m.attribute
	case t.InCategory(chroma.LiteralString):
		return m.value
	case t.InCategory(chroma.Comment):
		return m.comment
	default:
		return m.text
	}
}

// highlightHTML colors markup with the logger's renderer. Output to a
// non-terminal writer is returned unchanged.
func (l *Logger) highlightHTML(markup string) string {
	lexer := lexers.Get("html")
	if lexer == nil {
		return markup
	}
	iter, err := chroma.Coalesce(lexer).Tokenise(nil, markup)
	if err != nil {
		return markup
	}

	var b strings.Builder
	for token := iter(); token != chroma.EOF; token = iter() {
		if token.Value == "" {
			continue
		}
		style := l.styles.markup.forToken(token.Type)
		// Styles pad multi-line input, so render each line on its own.
		lines := strings.Split(token.Value, "\n")
		for i, line := range lines {
			if line != "" {
				b.WriteString(style.Render(line))
			}
			if i < len(lines)-1 {
				b.WriteByte('\n')
			}
		}
	}
	out := b.String()
	if !strings.HasSuffix(markup, "\n") {
		out = strings.TrimSuffix(out, "\n")
	}
	return out
}

// Logger prints run progress to the console
type Logger struct {
	level  LogLevel
	writer io.Writer
	styles consoleStyles

	startTime time.Time
}

// NewLogger creates a new logger with the specified level writing to stdout
func NewLogger(level LogLevel) *Logger {
	return NewLoggerWithWriter(level, os.Stdout)
}

// NewLoggerWithWriter creates a logger writing to w.
func NewLoggerWithWriter(level LogLevel, w io.Writer) *Logger {
	return &Logger{
		level:     level,
		writer:    w,
		styles:    newConsoleStyles(w),
		startTime: time.Now(),
	}
}

func (l *Logger) line(style lipgloss.Style, format string, args ...interface{}) {
	fmt.Fprintln(l.writer, style.Render(fmt.Sprintf(format, args...)))
}

// Header prints a prominent header message
func (l *Logger) Header(message string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
		l.line(l.styles.header, "%s", strings.Repeat("=", 70))
		l.line(l.styles.header, "  %s", message)
		l.line(l.styles.header, "%s", strings.Repeat("=", 70))
	}
}

// Section prints a section divider
func (l *Logger) Section(title string) {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
		l.line(l.styles.section, "▶ %s", title)
		l.line(l.styles.rule, "%s", strings.Repeat("─", 50))
	}
}

// Step prints a step as [index/total] description
func (l *Logger) Step(index, total int, message string) {
	if l.level >= LogLevelNormal {
		l.line(l.styles.step, "[%d/%d] %s", index, total, message)
	}
}

// Successf prints a success message with checkmark
func (l *Logger) Successf(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		l.line(l.styles.success, "✓ "+format, args...)
	}
}

// Infof prints an informational message
func (l *Logger) Infof(format string, args ...interface{}) {
	if l.level >= LogLevelNormal {
		l.line(l.styles.info, format, args...)
	}
}

// Warningf prints a warning message
func (l *Logger) Warningf(format string, args ...interface{}) {
	if l.level >= LogLevelQuiet {
		l.line(l.styles.warning, "⚠ Warning: "+format, args...)
	}
}

// Errorf prints an error message
func (l *Logger) Errorf(format string, args ...interface{}) {
	if l.level >= LogLevelQuiet {
		l.line(l.styles.err, "✗ Error: "+format, args...)
	}
}

// Verbosef prints detailed information (only in verbose mode)
func (l *Logger) Verbosef(format string, args ...interface{}) {
	if l.level >= LogLevelVerbose {
		l.line(l.styles.muted, "→ "+format, args...)
	}
}

// Debugf prints debug information (only in debug mode)
func (l *Logger) Debugf(format string, args ...interface{}) {
	if l.level >= LogLevelDebug {
		l.line(l.styles.muted, "[DEBUG] "+format, args...)
	}
}

// debugSnapshot prints the DOM captured at a failed assertion.
func (l *Logger) debugSnapshot(snapshot string) {
	if l.level >= LogLevelDebug {
		l.line(l.styles.muted, "[DEBUG] DOM at failure:")
		fmt.Fprintln(l.writer, l.highlightHTML(snapshot))
	}
}

// QualityGate logs quality gate execution
func (l *Logger) QualityGate(name string, passed bool, message string) {
	if l.level < LogLevelNormal {
		return
	}
	if passed {
		l.line(l.styles.success, "  ✓ %s: passed", name)
		return
	}
	l.line(l.styles.err, "  ✗ %s: failed", name)
	if message != "" {
		l.line(l.styles.muted, "    %s", message)
	}
}

// Newline adds a blank line (respects log level)
func (l *Logger) Newline() {
	if l.level >= LogLevelNormal {
		fmt.Fprintln(l.writer)
	}
}

// HandleEvent renders a scenario event. It is a types.EventHandler.
func (l *Logger) HandleEvent(e *types.ScenarioEvent) {
	switch e.Type {
	case types.EventTypeRunStart:
		l.Section(fmt.Sprintf("Scenario %s (%v steps)", e.Scenario, e.Metadata["total_steps"]))
	case types.EventTypeStepStart:
		l.Step(e.Step.Index, e.Step.Total, e.Step.Description)
	case types.EventTypeStepPassed:
		l.Successf("%s (%s)", e.Step.Name, e.Step.Duration.Round(time.Millisecond))
	case types.EventTypeStepFailed:
		l.Errorf("%s: %v", e.Step.Name, e.Error)
		var assertErr *browser.AssertionError
		if errors.As(e.Error, &assertErr) && assertErr.Snapshot != "" {
			l.debugSnapshot(assertErr.Snapshot)
		}
	case types.EventTypeStepSkipped:
		l.Verbosef("skipped %s", e.Step.Name)
	case types.EventTypePageSpawned:
		l.Infof("  page opened: %s", e.Page.URL)
	case types.EventTypeArtifactWritten:
		l.Verbosef("%s written to %s (%s bytes)", e.Artifact.Kind, e.Artifact.Path, formatNumber(e.Artifact.Bytes))
	case types.EventTypeGateResult:
		msg := ""
		if e.Error != nil && l.level >= LogLevelVerbose {
			msg = e.Error.Error()
		}
		l.QualityGate(e.Gate.Name, e.Gate.Passed, msg)
	case types.EventTypeRunEnd:
		l.Debugf("scenario %s finished (passed=%v)", e.Scenario, e.Passed)
	}
}

// Summary prints a final execution summary
func (l *Logger) Summary(status string, summary *ExecutionSummary) {
	if l.level < LogLevelQuiet {
		return
	}

	l.printSummaryHeader()
	l.printStatus(status)
	l.printScenarioAndDuration(summary)
	l.printMetrics(summary)
	l.printQualityGates(summary)
	l.printEvidence(summary)
	l.printError(summary)
	l.printSummaryFooter()
}

func (l *Logger) printSummaryHeader() {
	fmt.Fprintln(l.writer)
	l.line(l.styles.header, "%s", strings.Repeat("=", 70))
	l.line(l.styles.header, "  RUN SUMMARY")
	l.line(l.styles.header, "%s", strings.Repeat("=", 70))
}

func (l *Logger) printStatus(status string) {
	fmt.Fprint(l.writer, "  Status: ")
	switch status {
	case statusSuccess:
		l.line(l.styles.success, "✓ SUCCESS")
	case statusFailed:
		l.line(l.styles.err, "✗ FAILED")
	default:
		fmt.Fprintln(l.writer, status)
	}
}

func (l *Logger) printScenarioAndDuration(summary *ExecutionSummary) {
	fmt.Fprintf(l.writer, "  Scenario: %s\n", summary.Scenario)
	fmt.Fprintf(l.writer, "  Duration: %s\n", summary.Duration.Round(time.Millisecond))
}

func (l *Logger) printMetrics(summary *ExecutionSummary) {
	if summary.Metrics.StepsTotal == 0 {
		return
	}

	m := summary.Metrics
	fmt.Fprintf(l.writer, "\n  📊 Steps: %d passed, %d failed, %d skipped\n", m.StepsPassed, m.StepsFailed, m.StepsSkipped)
	if m.CheckboxesChecked > 0 {
		fmt.Fprintf(l.writer, "    Sets checked: %d\n", m.CheckboxesChecked)
	}
}

func (l *Logger) printQualityGates(summary *ExecutionSummary) {
	if summary.QualityGateResults == nil || len(summary.QualityGateResults.Results) == 0 {
		return
	}

	fmt.Fprintf(l.writer, "\n  🎯 Quality Gates:\n")
	for _, result := range summary.QualityGateResults.Results {
		if result.Passed {
			l.line(l.styles.success, "    ✓ %s", result.Name)
		} else {
			l.line(l.styles.err, "    ✗ %s", result.Name)
			if result.Error != "" && l.level >= LogLevelVerbose {
				l.line(l.styles.muted, "      %s", result.Error)
			}
		}
	}
}

func (l *Logger) printEvidence(summary *ExecutionSummary) {
	if summary.Screenshot == "" {
		return
	}

	fmt.Fprintf(l.writer, "\n  📸 Screenshot: %s (%s bytes)\n", summary.Screenshot, formatNumber(summary.Metrics.ScreenshotBytes))
}

func (l *Logger) printError(summary *ExecutionSummary) {
	if summary.Error == "" {
		return
	}

	fmt.Fprintln(l.writer)
	l.line(l.styles.err, "  Error Details:")
	if summary.FailedStep != "" {
		fmt.Fprintf(l.writer, "    step: %s\n", summary.FailedStep)
	}
	if summary.ErrorKind != "" {
		fmt.Fprintf(l.writer, "    kind: %s\n", summary.ErrorKind)
	}
	l.line(l.styles.err, "    %s", summary.Error)
	if summary.LogPath != "" {
		fmt.Fprintf(l.writer, "    log: %s\n", summary.LogPath)
	}
}

func (l *Logger) printSummaryFooter() {
	l.line(l.styles.header, "%s", strings.Repeat("=", 70))
	fmt.Fprintln(l.writer)
}

// ParseLogLevel converts a string log level to LogLevel type
func ParseLogLevel(level string) LogLevel {
	switch level {
	case "quiet":
		return LogLevelQuiet
	case "normal":
		return LogLevelNormal
	case "verbose":
		return LogLevelVerbose
	case "debug":
		return LogLevelDebug
	default:
		return LogLevelNormal
	}
}

// formatNumber formats large numbers with commas for readability
func formatNumber(n int64) string {
	if n < 1000 {
		return fmt.Sprintf("%d", n)
	}
	if n < 1000000 {
		return fmt.Sprintf("%d,%03d", n/1000, n%1000)
	}
	return fmt.Sprintf("%d,%03d,%03d", n/1000000, (n/1000)%1000, n%1000)
}
