package main

import (
	"bytes"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/spf13/cobra"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/entrhq/questcheck/pkg/history"
	"github.com/entrhq/questcheck/pkg/runner"
)

// execute runs a fresh command tree with args and returns its output.
func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	root := newRootCmd()
	var out bytes.Buffer
	root.SetOut(&out)
	root.SetErr(&out)
	root.SetArgs(args)
	err := root.ExecuteContext(context.Background())
	return out.String(), err
}

func TestVersionFlag(t *testing.T) {
	out, err := execute(t, "--version")
	require.NoError(t, err)
	assert.Equal(t, "questcheck version "+Version+"\n", out)
}

func TestLoadConfig(t *testing.T) {
	t.Run("explicit missing file", func(t *testing.T) {
		_, err := loadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
		assert.ErrorContains(t, err, "failed to read config file")
	})

	t.Run("implicit missing file gives defaults", func(t *testing.T) {
		wd, err := os.Getwd()
		require.NoError(t, err)
		require.NoError(t, os.Chdir(t.TempDir()))
		t.Cleanup(func() { _ = os.Chdir(wd) })
		config, err := loadConfig("")
		require.NoError(t, err)
		assert.Equal(t, runner.DefaultConfig(), config)
	})

	t.Run("overlay keeps unset defaults", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "questcheck.yaml")
		require.NoError(t, os.WriteFile(path, []byte(`
workspace_dir: ../ascension
browser:
  headless: false
expect:
  heading: "Task 1 / 7"
quality_gates:
  - name: lint
    command: npm run lint
`), 0644))

		config, err := loadConfig(path)
		require.NoError(t, err)
		assert.Equal(t, "../ascension", config.WorkspaceDir)
		assert.False(t, config.Browser.Headless)
		assert.Equal(t, "Task 1 / 7", config.Expect.Heading)
		assert.Equal(t, "#next-task-btn", config.Expect.NextButton)
		assert.Equal(t, runner.DefaultScreenshotPath, config.Evidence.ScreenshotPath)
		require.Len(t, config.QualityGates, 1)
		assert.Equal(t, "npm run lint", config.QualityGates[0].Command)
	})

	t.Run("malformed yaml", func(t *testing.T) {
		path := filepath.Join(t.TempDir(), "bad.yaml")
		require.NoError(t, os.WriteFile(path, []byte("browser: [unclosed"), 0644))
		_, err := loadConfig(path)
		assert.ErrorContains(t, err, "failed to parse config file")
	})
}

func TestRunFlags_Apply(t *testing.T) {
	cmd := &cobra.Command{Use: "run"}
	flags := &runFlags{}
	flags.register(cmd.Flags())
	require.NoError(t, cmd.ParseFlags([]string{
		"--workspace", "/srv/app",
		"--headed",
		"--timeout", "5s",
		"-v", "debug",
		"--pdf",
		"--no-history",
		"--log-dir", "/var/log/questcheck",
	}))

	config := runner.DefaultConfig()
	config.AppPath = "main.html"
	flags.apply(cmd, config)

	assert.Equal(t, "/srv/app", config.WorkspaceDir)
	assert.Equal(t, "main.html", config.AppPath, "unset flags keep the config value")
	assert.False(t, config.Browser.Headless)
	assert.Equal(t, float64(5000), config.Browser.TimeoutMS)
	assert.Equal(t, "debug", config.Logging.Verbosity)
	assert.True(t, config.Artifacts.PDF)
	assert.False(t, config.History.Enabled)
	assert.Equal(t, "/var/log/questcheck", config.Logging.Dir)
	assert.True(t, config.Artifacts.Enabled)
}

func TestRun_InvalidWorkspace(t *testing.T) {
	missing := filepath.Join(t.TempDir(), "nope")
	_, err := execute(t, "run", "--workspace", missing, "--no-history", "--no-artifacts")
	require.Error(t, err)
	assert.ErrorContains(t, err, "invalid workspace")
	assert.NotErrorIs(t, err, errRunFailed, "setup errors are printed by main")
}

func seedHistory(t *testing.T) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.db")
	store, err := history.OpenSQLite(path)
	require.NoError(t, err)
	defer store.Close()

	now := time.Now()
	runs := []*history.Record{
		{RunID: "aaaaaaaa-1111", Scenario: "ascension-quest", Passed: true, GatesPassed: true, Checked: 3, Duration: 2 * time.Second, StartedAt: now.Add(-3 * time.Hour)},
		{RunID: "bbbbbbbb-2222", Scenario: "ascension-quest", FailedStep: "spawn-page", Error: "no page", Duration: time.Second, StartedAt: now.Add(-2 * time.Hour)},
		{RunID: "cccccccc-3333", Scenario: "ascension-quest", FailedStep: "spawn-page", Error: "no page", Duration: time.Second, StartedAt: now.Add(-time.Hour)},
	}
	for _, r := range runs {
		require.NoError(t, store.Save(context.Background(), r))
	}
	return path
}

func TestHistoryList(t *testing.T) {
	db := seedHistory(t)

	t.Run("all runs newest first", func(t *testing.T) {
		out, err := execute(t, "history", "list", "--db", db)
		require.NoError(t, err)
		assert.Contains(t, out, "FAILED STEP")
		newest := strings.Index(out, "cccccccc")
		oldest := strings.Index(out, "aaaaaaaa")
		require.NotEqual(t, -1, newest)
		require.NotEqual(t, -1, oldest)
		assert.Less(t, newest, oldest)
		assert.NotContains(t, out, "-3333", "run ids are shortened")
	})

	t.Run("failed only", func(t *testing.T) {
		out, err := execute(t, "history", "list", "--db", db, "--failed")
		require.NoError(t, err)
		assert.NotContains(t, out, "aaaaaaaa")
		assert.Contains(t, out, "bbbbbbbb")
	})

	t.Run("limit", func(t *testing.T) {
		out, err := execute(t, "history", "list", "--db", db, "-n", "1")
		require.NoError(t, err)
		assert.Contains(t, out, "cccccccc")
		assert.NotContains(t, out, "bbbbbbbb")
	})

	t.Run("since", func(t *testing.T) {
		out, err := execute(t, "history", "list", "--db", db, "--since", "90m")
		require.NoError(t, err)
		assert.Contains(t, out, "cccccccc")
		assert.NotContains(t, out, "bbbbbbbb")
	})

	t.Run("conflicting filters", func(t *testing.T) {
		_, err := execute(t, "history", "list", "--db", db, "--failed", "--passed")
		assert.ErrorContains(t, err, "mutually exclusive")
	})

	t.Run("empty database", func(t *testing.T) {
		out, err := execute(t, "history", "list", "--db", filepath.Join(t.TempDir(), "empty.db"))
		require.NoError(t, err)
		assert.Equal(t, "No runs recorded.\n", out)
	})
}

func TestHistoryStats(t *testing.T) {
	db := seedHistory(t)

	out, err := execute(t, "history", "stats", "--db", db)
	require.NoError(t, err)
	assert.Contains(t, out, "Runs:         3 (1 passed, 2 failed)")
	assert.Contains(t, out, "Pass rate:    33.3%")
	assert.Contains(t, out, "spawn-page")
}
