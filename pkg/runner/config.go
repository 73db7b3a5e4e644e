package runner

import (
	"fmt"
	"os"
	"path/filepath"

	"github.com/entrhq/questcheck/pkg/browser"
	"github.com/entrhq/questcheck/pkg/scenario"
)

// Config represents the configuration for a scenario run
type Config struct {
	// Workspace directory; every relative path below is resolved against it
	WorkspaceDir string `yaml:"workspace_dir" json:"workspace_dir"`

	// Main document of the application under test
	AppPath string `yaml:"app_path" json:"app_path"`

	Browser BrowserConfig `yaml:"browser" json:"browser"`

	// Mock sign-in; blank container selectors follow Expect
	Fixture scenario.ScriptLoginFixture `yaml:"fixture" json:"fixture"`

	// Selectors and literals read from the application's DOM
	Expect scenario.Expectations `yaml:"expect" json:"expect"`

	Evidence EvidenceConfig `yaml:"evidence" json:"evidence"`

	// Quality gates run after the scenario passes
	QualityGates []QualityGateConfig `yaml:"quality_gates" json:"quality_gates"`

	Artifacts ArtifactConfig `yaml:"artifacts" json:"artifacts"`

	History HistoryConfig `yaml:"history" json:"history"`

	Logging LoggingConfig `yaml:"logging" json:"logging"`
}

// BrowserConfig controls the Chromium session
type BrowserConfig struct {
	Headless  bool             `yaml:"headless" json:"headless"`
	Install   bool             `yaml:"install" json:"install"` // download driver and Chromium before starting
	TimeoutMS float64          `yaml:"timeout_ms" json:"timeout_ms"`
	Viewport  browser.Viewport `yaml:"viewport" json:"viewport"`
}

// EvidenceConfig defines where the screenshot goes
type EvidenceConfig struct {
	ScreenshotPath string `yaml:"screenshot_path" json:"screenshot_path"`
	FullPage       bool   `yaml:"full_page" json:"full_page"`
}

// QualityGateConfig defines a command gate run in the workspace
type QualityGateConfig struct {
	Name     string `yaml:"name" json:"name"`
	Command  string `yaml:"command" json:"command"`
	Required bool   `yaml:"required" json:"required"`
}

// ArtifactConfig defines artifact generation configuration
type ArtifactConfig struct {
	Enabled   bool   `yaml:"enabled" json:"enabled"`
	OutputDir string `yaml:"output_dir" json:"output_dir"`

	// Individual format flags
	JSON     bool `yaml:"json" json:"json"`
	Markdown bool `yaml:"markdown" json:"markdown"`
	Metrics  bool `yaml:"metrics" json:"metrics"` // metrics.json and metrics.prom
	PDF      bool `yaml:"pdf" json:"pdf"`         // evidence.pdf with the screenshot
}

// HistoryConfig controls the run history database
type HistoryConfig struct {
	Enabled bool   `yaml:"enabled" json:"enabled"`
	DBPath  string `yaml:"db_path" json:"db_path"` // empty means ~/.questcheck/history.db
}

// LoggingConfig defines logging configuration
type LoggingConfig struct {
	// Verbosity controls logging level: quiet, normal, verbose, debug
	Verbosity string `yaml:"verbosity" json:"verbosity"`

	// Dir holds the diagnostic log files; empty means ~/.questcheck/logs
	Dir string `yaml:"dir" json:"dir"`
}

// DefaultScreenshotPath is where the dungeon screenshot is written.
const DefaultScreenshotPath = "jules-scratch/verification/dungeon_verification.png"

// Validate validates the configuration
func (c *Config) Validate() error {
	if c.WorkspaceDir == "" {
		return fmt.Errorf("workspace directory is required")
	}

	if c.AppPath == "" {
		return fmt.Errorf("app path is required")
	}

	if c.Browser.TimeoutMS < 0 {
		return fmt.Errorf("browser timeout cannot be negative")
	}

	if c.Browser.Viewport.Width < 0 || c.Browser.Viewport.Height < 0 {
		return fmt.Errorf("viewport dimensions cannot be negative")
	}

	if err := c.LoginFixture().Validate(); err != nil {
		return err
	}

	if err := c.Expect.Validate(); err != nil {
		return err
	}

	if c.Evidence.ScreenshotPath == "" {
		return fmt.Errorf("evidence screenshot_path is required")
	}

	for i, gate := range c.QualityGates {
		if gate.Name == "" {
			return fmt.Errorf("quality gate %d: name is required", i)
		}
		if gate.Command == "" {
			return fmt.Errorf("quality gate %q: command is required", gate.Name)
		}
	}

	if c.Artifacts.Enabled && c.Artifacts.OutputDir == "" {
		return fmt.Errorf("artifacts output_dir is required when artifacts are enabled")
	}

	// Set default verbosity if not specified
	if c.Logging.Verbosity == "" {
		c.Logging.Verbosity = "normal"
	}

	// Validate log level
	validLevels := map[string]bool{
		"quiet":   true,
		"normal":  true,
		"verbose": true,
		"debug":   true,
	}
	if !validLevels[c.Logging.Verbosity] {
		return fmt.Errorf("invalid logging verbosity: %s (must be 'quiet', 'normal', 'verbose', or 'debug')", c.Logging.Verbosity)
	}

	return nil
}

// LoginFixture returns the configured fixture with its container selectors
// defaulted from the expectations.
func (c *Config) LoginFixture() *scenario.ScriptLoginFixture {
	return c.Fixture.WithSelectors(c.Expect)
}

// HistoryPath returns the configured database path, or the default under the
// user's home directory.
func (c *Config) HistoryPath() (string, error) {
	if c.History.DBPath != "" {
		return c.History.DBPath, nil
	}
	home, err := os.UserHomeDir()
	if err != nil {
		return "", fmt.Errorf("failed to get home directory: %w", err)
	}
	return filepath.Join(home, ".questcheck", "history.db"), nil
}

// SessionOptions converts the browser section into session options.
func (c *Config) SessionOptions() browser.SessionOptions {
	opts := browser.SessionOptions{
		Headless: c.Browser.Headless,
		Timeout:  c.Browser.TimeoutMS,
	}
	if c.Browser.Viewport.Width > 0 && c.Browser.Viewport.Height > 0 {
		vp := c.Browser.Viewport
		opts.Viewport = &vp
	}
	return opts
}

// DefaultConfig returns a default configuration suitable for most use cases
func DefaultConfig() *Config {
	return &Config{
		WorkspaceDir: ".",
		AppPath:      "index.html",
		Browser: BrowserConfig{
			Headless:  true,
			TimeoutMS: browser.DefaultTimeout,
			Viewport: browser.Viewport{
				Width:  browser.DefaultViewportWidth,
				Height: browser.DefaultViewportHeight,
			},
		},
		Fixture: *scenario.DefaultLoginFixture(),
		Expect:  scenario.DefaultExpectations(),
		Evidence: EvidenceConfig{
			ScreenshotPath: DefaultScreenshotPath,
		},
		Artifacts: ArtifactConfig{
			Enabled:   true,
			OutputDir: ".questcheck/artifacts",
			JSON:      true,
			Markdown:  true,
			Metrics:   true,
		},
		History: HistoryConfig{
			Enabled: true,
		},
		Logging: LoggingConfig{
			Verbosity: "normal",
		},
	}
}
