package main

import (
	"fmt"
	"sort"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/charmbracelet/lipgloss/table"
	"github.com/spf13/cobra"

	"github.com/entrhq/questcheck/pkg/history"
)

func newHistoryCmd(configFile *string) *cobra.Command {
	var dbPath string

	cmd := &cobra.Command{
		Use:   "history",
		Short: "Inspect recorded runs",
	}
	cmd.PersistentFlags().StringVar(&dbPath, "db", "", "history database path (default from config, then ~/.questcheck/history.db)")

	open := func() (*history.SQLiteStore, error) {
		path := dbPath
		if path == "" {
			config, err := loadConfig(*configFile)
			if err != nil {
				return nil, err
			}
			if path, err = config.HistoryPath(); err != nil {
				return nil, err
			}
		}
		return history.OpenSQLite(path)
	}

	cmd.AddCommand(newHistoryListCmd(open), newHistoryStatsCmd(open))
	return cmd
}

func newHistoryListCmd(open func() (*history.SQLiteStore, error)) *cobra.Command {
	var (
		limit    int
		scenario string
		failed   bool
		passed   bool
		since    time.Duration
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List recent runs, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if failed && passed {
				return fmt.Errorf("--failed and --passed are mutually exclusive")
			}
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			filter := history.Filter{Scenario: scenario, Limit: limit}
			if failed || passed {
				filter.Passed = &passed
			}
			if since > 0 {
				filter.After = time.Now().Add(-since)
			}

			runs, err := store.List(cmd.Context(), filter)
			if err != nil {
				return err
			}
			if len(runs) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No runs recorded.")
				return nil
			}
			fmt.Fprintln(cmd.OutOrStdout(), runsTable(runs))
			return nil
		},
	}

	f := cmd.Flags()
	f.IntVarP(&limit, "limit", "n", 20, "maximum number of runs")
	f.StringVar(&scenario, "scenario", "", "only runs of this scenario")
	f.BoolVar(&failed, "failed", false, "only failed runs")
	f.BoolVar(&passed, "passed", false, "only passed runs")
	f.DurationVar(&since, "since", 0, "only runs started within this duration, e.g. 24h")
	return cmd
}

func newHistoryStatsCmd(open func() (*history.SQLiteStore, error)) *cobra.Command {
	return &cobra.Command{
		Use:   "stats",
		Short: "Show pass rate and the steps that fail most",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			store, err := open()
			if err != nil {
				return err
			}
			defer store.Close()

			stats, err := store.Stats(cmd.Context())
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Runs:         %d (%d passed, %d failed)\n", stats.TotalRuns, stats.PassedRuns, stats.FailedRuns)
			fmt.Fprintf(out, "Pass rate:    %.1f%%\n", stats.PassRate()*100)
			fmt.Fprintf(out, "Avg duration: %s\n", stats.AvgDuration.Round(time.Millisecond))

			if len(stats.FailedSteps) == 0 {
				return nil
			}
			steps := make([]string, 0, len(stats.FailedSteps))
			for step := range stats.FailedSteps {
				steps = append(steps, step)
			}
			sort.Slice(steps, func(i, j int) bool {
				a, b := stats.FailedSteps[steps[i]], stats.FailedSteps[steps[j]]
				if a != b {
					return a > b
				}
				return steps[i] < steps[j]
			})

			t := table.New().Border(lipgloss.NormalBorder()).Headers("FAILED STEP", "RUNS")
			for _, step := range steps {
				t.Row(step, fmt.Sprintf("%d", stats.FailedSteps[step]))
			}
			fmt.Fprintln(out, t.Render())
			return nil
		},
	}
}

func runsTable(runs []*history.Record) string {
	t := table.New().
		Border(lipgloss.NormalBorder()).
		Headers("RUN", "STARTED", "RESULT", "FAILED STEP", "DURATION", "SETS")
	for _, r := range runs {
		result := "pass"
		if !r.Passed {
			result = "FAIL"
		}
		id := r.RunID
		if len(id) > 8 {
			id = id[:8]
		}
		t.Row(
			id,
			r.StartedAt.Local().Format("2006-01-02 15:04:05"),
			result,
			r.FailedStep,
			r.Duration.Round(time.Millisecond).String(),
			fmt.Sprintf("%d", r.Checked),
		)
	}
	return t.Render()
}
