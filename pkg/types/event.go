package types

import "time"

// ScenarioEventType defines the type of event emitted while a scenario runs.
type ScenarioEventType string

const (
	EventTypeRunStart        ScenarioEventType = "run_start"        // EventTypeRunStart indicates a scenario run has begun.
	EventTypeRunEnd          ScenarioEventType = "run_end"          // EventTypeRunEnd indicates a scenario run has finished, passed or not.
	EventTypeStepStart       ScenarioEventType = "step_start"       // EventTypeStepStart indicates a step is about to run.
	EventTypeStepPassed      ScenarioEventType = "step_passed"      // EventTypeStepPassed indicates a step completed without error.
	EventTypeStepFailed      ScenarioEventType = "step_failed"      // EventTypeStepFailed indicates a step returned an error.
	EventTypeStepSkipped     ScenarioEventType = "step_skipped"     // EventTypeStepSkipped indicates a step did not run because an earlier one failed.
	EventTypePageSpawned     ScenarioEventType = "page_spawned"     // EventTypePageSpawned indicates the application opened a new page.
	EventTypeArtifactWritten ScenarioEventType = "artifact_written" // EventTypeArtifactWritten indicates an evidence or report file was written.
	EventTypeGateResult      ScenarioEventType = "gate_result"      // EventTypeGateResult indicates a quality gate finished.
)

// EventHandler receives scenario events. Handlers are called synchronously on
// the runner's goroutine and must not block.
type EventHandler func(*ScenarioEvent)

// ScenarioEvent represents an event emitted during a scenario run.
type ScenarioEvent struct {
	// Metadata holds optional additional information about the event.
	Metadata map[string]interface{}

	// Error contains the failure for step_failed and failed run_end events.
	Error error

	// Step describes the step for step events.
	Step *StepInfo

	// Page describes the new page for page_spawned events.
	Page *PageInfo

	// Artifact describes the written file for artifact_written events.
	Artifact *ArtifactInfo

	// Gate describes the outcome for gate_result events.
	Gate *GateInfo

	// Time is when the event was created.
	Time time.Time

	// Scenario is the name of the running scenario.
	Scenario string

	// Type indicates the kind of event.
	Type ScenarioEventType

	// Passed is set on run_end.
	Passed bool
}

// StepInfo identifies a step within a run.
type StepInfo struct {
	Name        string
	Description string
	Index       int // 1-based
	Total       int
	Duration    time.Duration
}

// PageInfo describes a page opened by the application under test.
type PageInfo struct {
	URL     string
	Trigger string
}

// ArtifactInfo describes a file produced by a run.
type ArtifactInfo struct {
	Kind  string // "screenshot", "json", "markdown", "metrics", "pdf"
	Path  string
	Bytes int64
}

// GateInfo describes a finished quality gate.
type GateInfo struct {
	Name     string
	Required bool
	Passed   bool
}

func newEvent(t ScenarioEventType, scenario string) *ScenarioEvent {
	return &ScenarioEvent{
		Type:     t,
		Scenario: scenario,
		Time:     time.Now(),
		Metadata: make(map[string]interface{}),
	}
}

// NewRunStartEvent creates a run start event.
func NewRunStartEvent(scenario string, totalSteps int) *ScenarioEvent {
	e := newEvent(EventTypeRunStart, scenario)
	e.Metadata["total_steps"] = totalSteps
	return e
}

// NewRunEndEvent creates a run end event. err is the first step failure, if any.
func NewRunEndEvent(scenario string, passed bool, err error) *ScenarioEvent {
	e := newEvent(EventTypeRunEnd, scenario)
	e.Passed = passed
	e.Error = err
	return e
}

// NewStepStartEvent creates a step start event.
func NewStepStartEvent(scenario string, step StepInfo) *ScenarioEvent {
	e := newEvent(EventTypeStepStart, scenario)
	e.Step = &step
	return e
}

// NewStepPassedEvent creates a step passed event.
func NewStepPassedEvent(scenario string, step StepInfo) *ScenarioEvent {
	e := newEvent(EventTypeStepPassed, scenario)
	e.Step = &step
	return e
}

// NewStepFailedEvent creates a step failed event.
func NewStepFailedEvent(scenario string, step StepInfo, err error) *ScenarioEvent {
	e := newEvent(EventTypeStepFailed, scenario)
	e.Step = &step
	e.Error = err
	return e
}

// NewStepSkippedEvent creates a step skipped event.
func NewStepSkippedEvent(scenario string, step StepInfo) *ScenarioEvent {
	e := newEvent(EventTypeStepSkipped, scenario)
	e.Step = &step
	return e
}

// NewPageSpawnedEvent creates a page spawned event.
func NewPageSpawnedEvent(scenario, trigger, url string) *ScenarioEvent {
	e := newEvent(EventTypePageSpawned, scenario)
	e.Page = &PageInfo{URL: url, Trigger: trigger}
	return e
}

// NewArtifactWrittenEvent creates an artifact written event.
func NewArtifactWrittenEvent(scenario, kind, path string, size int64) *ScenarioEvent {
	e := newEvent(EventTypeArtifactWritten, scenario)
	e.Artifact = &ArtifactInfo{Kind: kind, Path: path, Bytes: size}
	return e
}

// NewGateResultEvent creates a quality gate result event.
func NewGateResultEvent(scenario, gate string, required, passed bool, err error) *ScenarioEvent {
	e := newEvent(EventTypeGateResult, scenario)
	e.Gate = &GateInfo{Name: gate, Required: required, Passed: passed}
	e.Error = err
	return e
}

// WithMetadata adds metadata to the event and returns it for chaining.
func (e *ScenarioEvent) WithMetadata(key string, value interface{}) *ScenarioEvent {
	if e.Metadata == nil {
		e.Metadata = make(map[string]interface{})
	}
	e.Metadata[key] = value
	return e
}

// IsStepEvent returns true for step lifecycle events.
func (e *ScenarioEvent) IsStepEvent() bool {
	switch e.Type {
	case EventTypeStepStart, EventTypeStepPassed, EventTypeStepFailed, EventTypeStepSkipped:
		return true
	}
	return false
}

// IsRunEvent returns true for run start and end events.
func (e *ScenarioEvent) IsRunEvent() bool {
	return e.Type == EventTypeRunStart || e.Type == EventTypeRunEnd
}

// IsErrorEvent returns true if the event reports a failure.
func (e *ScenarioEvent) IsErrorEvent() bool {
	switch e.Type {
	case EventTypeStepFailed:
		return true
	case EventTypeRunEnd:
		return !e.Passed
	case EventTypeGateResult:
		return e.Gate != nil && !e.Gate.Passed
	}
	return false
}
