// Package runner executes the quest acceptance scenario non-interactively,
// for CI pipelines and local verification.
//
// It wraps the scenario engine with everything a run needs around it:
//
// - YAML configuration with defaults and validation
// - Workspace path resolution for the app, the screenshot and artifacts
// - Quality gates that must pass after the scenario does
// - Artifact generation and run history
//
// Architecture:
//
//	┌─────────────────────────────────────────────────────────┐
//	│                      Executor                           │
//	│  - Workspace Guard                                      │
//	│  - Quality Gates (evidence + commands)                  │
//	│  - Artifacts (json, markdown, metrics, pdf)             │
//	│  - Run History (sqlite)                                 │
//	└──────────────────┬──────────────────────────────────────┘
//	                   │
//	                   ▼
//	        ┌──────────────────────┐        ┌──────────────────┐
//	        │   scenario.Runner    │ ─────▶ │  SessionManager  │
//	        │   (quest steps)      │        │  (Chromium)      │
//	        └──────────────────────┘        └──────────────────┘
//
// Example usage:
//
//	config := runner.DefaultConfig()
//	config.WorkspaceDir = "/path/to/app"
//
//	manager := browser.NewSessionManager()
//	executor, err := runner.NewExecutor(config, manager)
//	if err != nil {
//	    log.Fatal(err)
//	}
//	if err := executor.Run(context.Background()); err != nil {
//	    os.Exit(1)
//	}
//
// Quality Gates:
//
// The evidence gate always runs first and checks that the screenshot exists,
// is non-empty and decodes as PNG. Configured command gates follow, run
// through sh in the workspace. Only required gates fail the run.
//
// Artifacts:
//
// The artifact writer generates run reports, also on failure:
// - execution.json: Full run summary, including per-step results
// - summary.md: Human-readable markdown summary with the DOM at failure
// - metrics.json and metrics.prom: Run metrics (Prometheus textfile format)
// - evidence.pdf: The screenshot as a PDF page (opt-in)
package runner
