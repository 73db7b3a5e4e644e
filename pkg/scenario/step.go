package scenario

import (
	"context"
	"time"

	"github.com/entrhq/questcheck/pkg/browser"
	"github.com/entrhq/questcheck/pkg/types"
	"github.com/playwright-community/playwright-go"
)

// Status is the outcome of a single step.
type Status string

const (
	StatusPassed  Status = "passed"
	StatusFailed  Status = "failed"
	StatusSkipped Status = "skipped"
)

// Step is one named unit of a scenario. Steps run strictly in order; the
// first error stops every later step except those marked Always.
type Step struct {
	Name        string
	Description string
	// Always steps run even after an earlier failure or cancellation.
	Always bool
	Run    func(ctx context.Context, st *State) error
}

// State is what steps hand to each other across a run.
type State struct {
	Session    *browser.Session
	Page       playwright.Page // main page
	Spawned    playwright.Page // page opened by the application
	SpawnedURL string
	Checked    int
	Screenshot string
	ShotBytes  int64

	scenario string
	emit     func(*types.ScenarioEvent)
}

// Emit forwards an event to the runner's handlers.
func (st *State) Emit(e *types.ScenarioEvent) {
	if st.emit != nil {
		st.emit(e)
	}
}

// Scenario returns the name of the running scenario.
func (st *State) Scenario() string {
	return st.scenario
}

// StepResult records how one step went.
type StepResult struct {
	Name        string        `json:"name"`
	Description string        `json:"description,omitempty"`
	Status      Status        `json:"status"`
	Duration    time.Duration `json:"duration"`
	Error       string        `json:"error,omitempty"`
	Err         error         `json:"-"`
}

// Report is the outcome of a whole run.
type Report struct {
	Scenario   string        `json:"scenario"`
	StartedAt  time.Time     `json:"started_at"`
	FinishedAt time.Time     `json:"finished_at"`
	Duration   time.Duration `json:"duration"`
	Passed     bool          `json:"passed"`
	FailedStep string        `json:"failed_step,omitempty"`
	Error      string        `json:"error,omitempty"`
	Err        error         `json:"-"`
	Steps      []StepResult  `json:"steps"`

	SpawnedURL string `json:"spawned_url,omitempty"`
	Checked    int    `json:"checked"`
	Screenshot string `json:"screenshot,omitempty"`
}

// Counts returns how many steps passed, failed and were skipped.
func (r *Report) Counts() (passed, failed, skipped int) {
	for _, s := range r.Steps {
		switch s.Status {
		case StatusPassed:
			passed++
		case StatusFailed:
			failed++
		case StatusSkipped:
			skipped++
		}
	}
	return passed, failed, skipped
}

// Step returns the result for the named step.
func (r *Report) Step(name string) (StepResult, bool) {
	for _, s := range r.Steps {
		if s.Name == name {
			return s, true
		}
	}
	return StepResult{}, false
}
