package types

import (
	"errors"
	"testing"
	"time"
)

func TestScenarioEventType(t *testing.T) {
	tests := []struct {
		eventType ScenarioEventType
		expected  string
	}{
		{EventTypeRunStart, "run_start"},
		{EventTypeRunEnd, "run_end"},
		{EventTypeStepStart, "step_start"},
		{EventTypeStepPassed, "step_passed"},
		{EventTypeStepFailed, "step_failed"},
		{EventTypeStepSkipped, "step_skipped"},
		{EventTypePageSpawned, "page_spawned"},
		{EventTypeArtifactWritten, "artifact_written"},
		{EventTypeGateResult, "gate_result"},
	}

	for _, tt := range tests {
		t.Run(tt.expected, func(t *testing.T) {
			if string(tt.eventType) != tt.expected {
				t.Errorf("ScenarioEventType = %v, want %v", tt.eventType, tt.expected)
			}
		})
	}
}

func TestNewStepEvents(t *testing.T) {
	info := StepInfo{Name: "check-sets", Index: 8, Total: 11, Duration: 40 * time.Millisecond}
	failure := errors.New("boom")

	start := NewStepStartEvent("quest", info)
	if start.Type != EventTypeStepStart || start.Step.Name != "check-sets" {
		t.Errorf("unexpected start event: %+v", start)
	}
	if start.Scenario != "quest" {
		t.Errorf("Scenario = %q, want %q", start.Scenario, "quest")
	}
	if start.Time.IsZero() {
		t.Error("expected event time to be set")
	}

	failed := NewStepFailedEvent("quest", info, failure)
	if failed.Error != failure {
		t.Error("Step failed event error not set correctly")
	}
	if failed.Step.Index != 8 || failed.Step.Total != 11 {
		t.Errorf("Step position = %d/%d, want 8/11", failed.Step.Index, failed.Step.Total)
	}

	// events carry their own copy of the step info
	info.Name = "changed"
	if start.Step.Name != "check-sets" {
		t.Error("step info should be copied into the event")
	}
}

func TestNewRunEvents(t *testing.T) {
	start := NewRunStartEvent("quest", 11)
	if start.Metadata["total_steps"] != 11 {
		t.Errorf("total_steps = %v, want 11", start.Metadata["total_steps"])
	}

	end := NewRunEndEvent("quest", true, nil)
	if !end.Passed || end.Error != nil {
		t.Errorf("unexpected run end event: %+v", end)
	}
}

func TestNewOtherEvents(t *testing.T) {
	page := NewPageSpawnedEvent("quest", "click Yes", "file:///app/dungeon.html")
	if page.Page == nil || page.Page.URL != "file:///app/dungeon.html" || page.Page.Trigger != "click Yes" {
		t.Errorf("unexpected page event: %+v", page.Page)
	}

	artifact := NewArtifactWrittenEvent("quest", "screenshot", "/tmp/shot.png", 2048)
	if artifact.Artifact == nil || artifact.Artifact.Bytes != 2048 || artifact.Artifact.Kind != "screenshot" {
		t.Errorf("unexpected artifact event: %+v", artifact.Artifact)
	}

	gate := NewGateResultEvent("quest", "evidence", true, false, errors.New("missing"))
	if gate.Gate == nil || gate.Gate.Passed || !gate.Gate.Required {
		t.Errorf("unexpected gate event: %+v", gate.Gate)
	}
}

func TestScenarioEventWithMetadata(t *testing.T) {
	event := NewStepPassedEvent("quest", StepInfo{Name: "launch"})
	result := event.WithMetadata("checked", 3)

	if result != event {
		t.Error("WithMetadata should return the same event for chaining")
	}
	if event.Metadata["checked"] != 3 {
		t.Errorf("WithMetadata did not set metadata correctly, got %v", event.Metadata["checked"])
	}

	bare := &ScenarioEvent{Type: EventTypeStepStart}
	bare.WithMetadata("k", "v")
	if bare.Metadata["k"] != "v" {
		t.Error("WithMetadata should initialize a nil map")
	}
}

func TestScenarioEventHelpers(t *testing.T) {
	tests := []struct {
		event   *ScenarioEvent
		name    string
		isStep  bool
		isRun   bool
		isError bool
	}{
		{name: "step_start", event: NewStepStartEvent("q", StepInfo{}), isStep: true},
		{name: "step_failed", event: NewStepFailedEvent("q", StepInfo{}, errors.New("x")), isStep: true, isError: true},
		{name: "step_skipped", event: NewStepSkippedEvent("q", StepInfo{}), isStep: true},
		{name: "run_start", event: NewRunStartEvent("q", 1), isRun: true},
		{name: "run_end_passed", event: NewRunEndEvent("q", true, nil), isRun: true},
		{name: "run_end_failed", event: NewRunEndEvent("q", false, errors.New("x")), isRun: true, isError: true},
		{name: "gate_failed", event: NewGateResultEvent("q", "g", true, false, nil), isError: true},
		{name: "gate_passed", event: NewGateResultEvent("q", "g", true, true, nil)},
		{name: "page_spawned", event: NewPageSpawnedEvent("q", "t", "u")},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := tt.event.IsStepEvent(); got != tt.isStep {
				t.Errorf("IsStepEvent() = %v, want %v", got, tt.isStep)
			}
			if got := tt.event.IsRunEvent(); got != tt.isRun {
				t.Errorf("IsRunEvent() = %v, want %v", got, tt.isRun)
			}
			if got := tt.event.IsErrorEvent(); got != tt.isError {
				t.Errorf("IsErrorEvent() = %v, want %v", got, tt.isError)
			}
		})
	}
}
