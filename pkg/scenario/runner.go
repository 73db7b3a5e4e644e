package scenario

import (
	"context"
	"fmt"
	"time"

	"github.com/entrhq/questcheck/pkg/logging"
	"github.com/entrhq/questcheck/pkg/types"
)

// Runner executes steps in sequence and reports on them.
type Runner struct {
	name     string
	log      *logging.Logger
	handlers []types.EventHandler
}

// NewRunner creates a runner for the named scenario. A nil logger discards
// diagnostics.
func NewRunner(name string, log *logging.Logger, handlers ...types.EventHandler) *Runner {
	if log == nil {
		log = logging.Nop()
	}
	return &Runner{name: name, log: log, handlers: handlers}
}

func (r *Runner) emit(e *types.ScenarioEvent) {
	for _, h := range r.handlers {
		h(e)
	}
}

// Run executes steps in order. The first failing step becomes the run's
// error and later steps are skipped, except Always steps, which still run.
// Cancellation is checked between steps, never inside one.
func (r *Runner) Run(ctx context.Context, steps []Step) *Report {
	report := &Report{
		Scenario:  r.name,
		StartedAt: time.Now(),
		Steps:     make([]StepResult, len(steps)),
	}
	st := &State{scenario: r.name, emit: r.emit}

	r.emit(types.NewRunStartEvent(r.name, len(steps)))
	r.log.Infof("scenario %q started with %d steps", r.name, len(steps))

	var failure error
	for i, step := range steps {
		info := types.StepInfo{
			Name:        step.Name,
			Description: step.Description,
			Index:       i + 1,
			Total:       len(steps),
		}
		res := &report.Steps[i]
		stepLog := r.log.With("step", step.Name, "index", i+1)
		res.Name = step.Name
		res.Description = step.Description

		if failure == nil {
			if err := ctx.Err(); err != nil {
				failure = fmt.Errorf("run cancelled before step %s: %w", step.Name, err)
				report.FailedStep = step.Name
			}
		}

		if failure != nil && !step.Always {
			res.Status = StatusSkipped
			r.emit(types.NewStepSkippedEvent(r.name, info))
			stepLog.Debugf("step skipped")
			continue
		}

		r.emit(types.NewStepStartEvent(r.name, info))
		start := time.Now()
		err := step.Run(ctx, st)
		res.Duration = time.Since(start)
		info.Duration = res.Duration

		if err != nil {
			res.Status = StatusFailed
			res.Err = err
			res.Error = err.Error()
			r.emit(types.NewStepFailedEvent(r.name, info, err))
			stepLog.Errorf("step failed after %s: %v", res.Duration, err)
			if failure == nil {
				failure = err
				report.FailedStep = step.Name
			}
			continue
		}

		res.Status = StatusPassed
		r.emit(types.NewStepPassedEvent(r.name, info))
		stepLog.Infof("step passed in %s", res.Duration)
	}

	report.FinishedAt = time.Now()
	report.Duration = report.FinishedAt.Sub(report.StartedAt)
	report.Passed = failure == nil
	report.Err = failure
	if failure != nil {
		report.Error = failure.Error()
	}
	report.SpawnedURL = st.SpawnedURL
	report.Checked = st.Checked
	report.Screenshot = st.Screenshot

	r.emit(types.NewRunEndEvent(r.name, report.Passed, failure))
	r.log.Infof("scenario %q finished: passed=%v duration=%s", r.name, report.Passed, report.Duration)
	return report
}
