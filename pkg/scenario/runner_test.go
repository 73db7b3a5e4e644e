package scenario

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/google/go-cmp/cmp"
	"github.com/google/go-cmp/cmp/cmpopts"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/entrhq/questcheck/pkg/logging"
	"github.com/entrhq/questcheck/pkg/types"
)

func okStep(name string, calls *[]string) Step {
	return Step{Name: name, Run: func(ctx context.Context, st *State) error {
		*calls = append(*calls, name)
		return nil
	}}
}

func failStep(name string, err error, calls *[]string) Step {
	return Step{Name: name, Run: func(ctx context.Context, st *State) error {
		*calls = append(*calls, name)
		return err
	}}
}

func TestRunnerAllPass(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	var calls []string
	var events []types.ScenarioEventType
	r := NewRunner("test", nil, func(e *types.ScenarioEvent) {
		events = append(events, e.Type)
	})

	report := r.Run(context.Background(), []Step{
		okStep("one", &calls),
		okStep("two", &calls),
	})

	assert.True(t, report.Passed)
	assert.NoError(t, report.Err)
	assert.Empty(t, report.FailedStep)
	assert.Equal(t, []string{"one", "two"}, calls)

	want := []types.ScenarioEventType{
		types.EventTypeRunStart,
		types.EventTypeStepStart, types.EventTypeStepPassed,
		types.EventTypeStepStart, types.EventTypeStepPassed,
		types.EventTypeRunEnd,
	}
	if diff := cmp.Diff(want, events); diff != "" {
		t.Errorf("events mismatch (-want +got):\n%s", diff)
	}
}

func TestRunnerStopsAtFirstFailure(t *testing.T) {
	defer goleak.VerifyNone(t, goleak.IgnoreCurrent())

	boom := errors.New("boom")
	var calls []string
	teardown := okStep("teardown", &calls)
	teardown.Always = true

	report := NewRunner("test", nil).Run(context.Background(), []Step{
		okStep("one", &calls),
		failStep("two", boom, &calls),
		okStep("three", &calls),
		failStep("four", errors.New("never"), &calls),
		teardown,
	})

	require.False(t, report.Passed)
	assert.ErrorIs(t, report.Err, boom)
	assert.Equal(t, "two", report.FailedStep)
	assert.Equal(t, "boom", report.Error)
	assert.Equal(t, []string{"one", "two", "teardown"}, calls)

	want := []StepResult{
		{Name: "one", Status: StatusPassed},
		{Name: "two", Status: StatusFailed, Error: "boom"},
		{Name: "three", Status: StatusSkipped},
		{Name: "four", Status: StatusSkipped},
		{Name: "teardown", Status: StatusPassed},
	}
	opts := cmpopts.IgnoreFields(StepResult{}, "Duration", "Err")
	if diff := cmp.Diff(want, report.Steps, opts); diff != "" {
		t.Errorf("step results mismatch (-want +got):\n%s", diff)
	}

	passed, failed, skipped := report.Counts()
	assert.Equal(t, 2, passed)
	assert.Equal(t, 1, failed)
	assert.Equal(t, 2, skipped)
}

func TestRunnerAlwaysStepFailureKeepsFirstError(t *testing.T) {
	first := errors.New("first")
	var calls []string
	cleanup := failStep("cleanup", errors.New("cleanup failed"), &calls)
	cleanup.Always = true

	report := NewRunner("test", nil).Run(context.Background(), []Step{
		failStep("one", first, &calls),
		cleanup,
	})

	assert.ErrorIs(t, report.Err, first)
	assert.Equal(t, "one", report.FailedStep)
	res, ok := report.Step("cleanup")
	require.True(t, ok)
	assert.Equal(t, StatusFailed, res.Status)
}

func TestRunnerHonoursCancellation(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var calls []string
	cancelling := Step{Name: "one", Run: func(ctx context.Context, st *State) error {
		calls = append(calls, "one")
		cancel()
		return nil
	}}
	teardown := okStep("teardown", &calls)
	teardown.Always = true

	report := NewRunner("test", nil).Run(ctx, []Step{
		cancelling,
		okStep("two", &calls),
		teardown,
	})

	assert.False(t, report.Passed)
	assert.ErrorIs(t, report.Err, context.Canceled)
	assert.Equal(t, "two", report.FailedStep)
	assert.Equal(t, []string{"one", "teardown"}, calls)

	res, _ := report.Step("two")
	assert.Equal(t, StatusSkipped, res.Status)
}

func TestRunnerCarriesStateBetweenSteps(t *testing.T) {
	var spawned []string
	report := NewRunner("test", nil, func(e *types.ScenarioEvent) {
		if e.Type == types.EventTypePageSpawned {
			spawned = append(spawned, e.Page.URL)
		}
	}).Run(context.Background(), []Step{
		{Name: "produce", Run: func(ctx context.Context, st *State) error {
			st.Checked = 3
			st.SpawnedURL = "file:///app/dungeon.html"
			st.Emit(types.NewPageSpawnedEvent(st.Scenario(), "click", st.SpawnedURL))
			return nil
		}},
		{Name: "consume", Run: func(ctx context.Context, st *State) error {
			if st.Checked != 3 {
				return errors.New("state lost")
			}
			return nil
		}},
	})

	require.True(t, report.Passed, report.Error)
	assert.Equal(t, 3, report.Checked)
	assert.Equal(t, "file:///app/dungeon.html", report.SpawnedURL)
	assert.Equal(t, []string{"file:///app/dungeon.html"}, spawned)
}

func TestReportStepLookup(t *testing.T) {
	report := &Report{Steps: []StepResult{{Name: "launch", Status: StatusPassed}}}

	_, ok := report.Step("missing")
	assert.False(t, ok)

	res, ok := report.Step("launch")
	assert.True(t, ok)
	assert.Equal(t, StatusPassed, res.Status)
}

func TestRunnerLogsStepFields(t *testing.T) {
	dir := t.TempDir()
	logging.SetLogDirectory(dir)
	log, err := logging.NewLogger("scenario")
	require.NoError(t, err)
	defer log.Close()
	if filepath.Dir(log.LogPath()) != dir {
		t.Skipf("log directory already chosen: %s", log.LogPath())
	}

	var calls []string
	NewRunner("test", log).Run(context.Background(), []Step{
		okStep("first", &calls),
		failStep("second", errors.New("boom"), &calls),
	})
	require.NoError(t, log.Close())

	data, err := os.ReadFile(log.LogPath())
	require.NoError(t, err)
	content := string(data)
	assert.Contains(t, content, `"step":"first","index":1`)
	assert.Contains(t, content, `"step":"second","index":2`)
	assert.Contains(t, content, "step failed after")
}
