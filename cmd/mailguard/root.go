package main

import (
	"errors"
	"fmt"
	"io/fs"
	"os"

	"github.com/spf13/cobra"

	"mercator-hq/mailguard/pkg/cli"
	"mercator-hq/mailguard/pkg/config"
)

// defaultConfigFile is read when --config is not given and the file exists.
const defaultConfigFile = "config.yaml"

var (
	cfgFile string
	verbose bool
)

var rootCmd = newRootCmd()

func newRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "mailguard",
		Short: "Classify email as safe, spam or phishing",
		Long: `Mailguard runs a set of analyzers over email text and reports each
analyzer's verdict with its confidence.

Analyzers:
  - builtin weighted pattern rules
  - statistical model inference servers
  - a URL reputation service
  - a language model (Anthropic or OpenAI)
  - YAML rule packs, optionally synced from Git`,
		Version:       Version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	cmd.PersistentFlags().StringVarP(&cfgFile, "config", "c", "", "config file path (default "+defaultConfigFile+" when present)")
	cmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "debug logging")

	cmd.AddCommand(
		newRunCmd(),
		newScanCmd(),
		newModelsCmd(),
		newHistoryCmd(),
		newRulesCmd(),
		newVersionCmd(),
	)
	return cmd
}

// Execute runs the root command and returns the process exit code.
func Execute() int {
	err := rootCmd.Execute()
	if err != nil {
		fmt.Fprintln(os.Stderr, "Error:", err)
	}
	return cli.ExitCode(err)
}

// loadConfig reads the configuration named by --config, or config.yaml in
// the working directory, or the defaults. Environment overrides apply in
// every case.
func loadConfig() (*config.Config, error) {
	path := cfgFile
	if path == "" {
		if _, err := os.Stat(defaultConfigFile); err == nil {
			path = defaultConfigFile
		} else if !errors.Is(err, fs.ErrNotExist) {
			return nil, cli.NewConfigError("", err.Error())
		}
	}

	cfg, err := config.LoadConfigWithEnvOverrides(path)
	if err != nil {
		return nil, cli.NewConfigError("", err.Error())
	}
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	config.SetConfig(cfg)
	return cfg, nil
}
