package main

import (
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/entrhq/questcheck/pkg/runner"
)

// defaultConfigFile is loaded from the working directory when --config is
// not given and the file exists.
const defaultConfigFile = "questcheck.yaml"

// errRunFailed marks a scenario run that failed after printing its summary.
var errRunFailed = errors.New("scenario run failed")

// newRootCmd builds a fresh command tree, so tests never share flag state.
func newRootCmd() *cobra.Command {
	var configFile string

	root := &cobra.Command{
		Use:   "questcheck",
		Short: "Browser acceptance check for the Ascension quest flow.",
		Long: `questcheck loads a local web app in Chromium, signs in with a mock user,
begins a quest, and verifies the dungeon page it opens. A screenshot of the
dungeon page is kept as evidence. The exit status is 0 only when every step
and every required quality gate passed.`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	root.SetVersionTemplate("questcheck version {{.Version}}\n")
	root.PersistentFlags().StringVarP(&configFile, "config", "c", "", "config file (default is ./"+defaultConfigFile+" if present)")

	root.AddCommand(
		newRunCmd(&configFile),
		newHistoryCmd(&configFile),
	)
	return root
}

// loadConfig reads path over DefaultConfig. An empty path falls back to
// ./questcheck.yaml, and to the defaults alone when that is missing too.
func loadConfig(path string) (*runner.Config, error) {
	explicit := path != ""
	if !explicit {
		path = defaultConfigFile
	}

	data, err := os.ReadFile(path)
	if err != nil {
		if !explicit && errors.Is(err, os.ErrNotExist) {
			return runner.DefaultConfig(), nil
		}
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	config := runner.DefaultConfig()
	if err := yaml.Unmarshal(data, config); err != nil {
		return nil, fmt.Errorf("failed to parse config file: %w", err)
	}
	return config, nil
}
