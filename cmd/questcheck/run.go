package main

import (
	"fmt"
	"io"
	"time"

	"github.com/spf13/cobra"
	"github.com/spf13/pflag"

	"github.com/entrhq/questcheck/pkg/browser"
	"github.com/entrhq/questcheck/pkg/logging"
	"github.com/entrhq/questcheck/pkg/runner"
)

// runFlags are command-line overrides. Only flags the user set are applied.
type runFlags struct {
	workspace  string
	app        string
	screenshot string
	headed     bool
	install    bool
	timeout    time.Duration
	verbosity  string
	fullPage   bool
	noArtifact bool
	pdf        bool
	noHistory  bool
	historyDB  string
	logDir     string
}

func newRunCmd(configFile *string) *cobra.Command {
	flags := &runFlags{}

	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the quest scenario once",
		Example: `  # Check index.html in the current directory
  questcheck run

  # Check another checkout with a visible browser
  questcheck run --workspace ../ascension --headed -v verbose

  # First run on a fresh machine
  questcheck run --install`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			config, err := loadConfig(*configFile)
			if err != nil {
				return err
			}
			flags.apply(cmd, config)
			return runScenario(cmd, config)
		},
	}

	flags.register(cmd.Flags())

	return cmd
}

func (f *runFlags) register(fs *pflag.FlagSet) {
	fs.StringVarP(&f.workspace, "workspace", "w", ".", "workspace directory containing the app")
	fs.StringVar(&f.app, "app", "index.html", "main document, relative to the workspace")
	fs.StringVar(&f.screenshot, "screenshot", runner.DefaultScreenshotPath, "screenshot output path, relative to the workspace")
	fs.BoolVar(&f.headed, "headed", false, "show the browser window")
	fs.BoolVar(&f.install, "install", false, "download the Playwright driver and Chromium first")
	fs.DurationVar(&f.timeout, "timeout", 30*time.Second, "default timeout for browser operations")
	fs.StringVarP(&f.verbosity, "verbosity", "v", "normal", "console verbosity: quiet, normal, verbose, debug")
	fs.BoolVar(&f.fullPage, "full-page", false, "capture the full scrollable dungeon page")
	fs.BoolVar(&f.noArtifact, "no-artifacts", false, "skip execution.json, summary.md and metrics")
	fs.BoolVar(&f.pdf, "pdf", false, "also write evidence.pdf with the screenshot")
	fs.BoolVar(&f.noHistory, "no-history", false, "do not record this run in the history database")
	fs.StringVar(&f.historyDB, "history-db", "", "history database path (default ~/.questcheck/history.db)")
	fs.StringVar(&f.logDir, "log-dir", "", "diagnostic log directory (default ~/.questcheck/logs)")
}

// apply overrides config with every flag set on the command line.
func (f *runFlags) apply(cmd *cobra.Command, config *runner.Config) {
	changed := cmd.Flags().Changed

	if changed("workspace") {
		config.WorkspaceDir = f.workspace
	}
	if changed("app") {
		config.AppPath = f.app
	}
	if changed("screenshot") {
		config.Evidence.ScreenshotPath = f.screenshot
	}
	if changed("headed") {
		config.Browser.Headless = !f.headed
	}
	if changed("install") {
		config.Browser.Install = f.install
	}
	if changed("timeout") {
		config.Browser.TimeoutMS = float64(f.timeout.Milliseconds())
	}
	if changed("verbosity") {
		config.Logging.Verbosity = f.verbosity
	}
	if changed("full-page") {
		config.Evidence.FullPage = f.fullPage
	}
	if changed("no-artifacts") {
		config.Artifacts.Enabled = !f.noArtifact
	}
	if changed("pdf") {
		config.Artifacts.PDF = f.pdf
	}
	if changed("no-history") {
		config.History.Enabled = !f.noHistory
	}
	if changed("history-db") {
		config.History.DBPath = f.historyDB
	}
	if changed("log-dir") {
		config.Logging.Dir = f.logDir
	}
}

func runScenario(cmd *cobra.Command, config *runner.Config) error {
	if err := config.Validate(); err != nil {
		return fmt.Errorf("invalid configuration: %w", err)
	}

	logging.SetLogDirectory(config.Logging.Dir)
	diag, err := logging.NewLogger("runner")
	if err != nil {
		diag.Warnf("continuing without a log file: %v", err)
	}
	defer diag.Close()

	browserLog, _ := logging.NewLogger("browser")
	defer browserLog.Close()

	level := runner.ParseLogLevel(config.Logging.Verbosity)
	var driverOutput io.Writer = io.Discard
	if level >= runner.LogLevelDebug {
		driverOutput = cmd.ErrOrStderr()
	}

	manager := browser.NewSessionManager(
		browser.WithInstall(config.Browser.Install),
		browser.WithDriverOutput(driverOutput),
		browser.WithLogger(browserLog),
		browser.WithMaxSessions(1),
	)
	// Shutdown is idempotent; the executor also shuts down on every path
	defer manager.Shutdown()

	executor, err := runner.NewExecutor(config, manager,
		runner.WithConsole(runner.NewLoggerWithWriter(level, cmd.OutOrStdout())),
		runner.WithDiagnostics(diag),
	)
	if err != nil {
		return err
	}

	if err := executor.Run(cmd.Context()); err != nil {
		diag.Errorf("run failed: %v", err)
		return fmt.Errorf("%w: %v", errRunFailed, err)
	}
	return nil
}
