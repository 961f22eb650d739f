package main

import (
	"fmt"

	"github.com/spf13/cobra"

	xuanbrain "github.com/xuan-brain/xuan-brain"
)

var (
	cfgBaseDir    string
	cfgConfigPath string
	cfgDebug      bool
	cfgLogFormat  string
	outputJSON    bool
)

var rootCmd = &cobra.Command{
	Use:   "xuan-brain",
	Short: "xuan-brain - research library data tools",
	Long: `xuan-brain manages where a research library keeps its data.

It moves the data folder (database, config, files, cache, logs) to a new
location without losing anything, cleans up the folder left behind, and
copies the legacy relational library into the graph store.`,
	SilenceUsage:  true,
	SilenceErrors: true,
}

func init() {
	rootCmd.PersistentFlags().StringVar(&cfgBaseDir, "base-dir", "", "Default base directory (default: platform data dir, or XUAN_BRAIN_HOME)")
	rootCmd.PersistentFlags().StringVar(&cfgConfigPath, "config", "", "Path to data-path.json (default: user config dir, or XUAN_BRAIN_CONFIG)")
	rootCmd.PersistentFlags().BoolVar(&outputJSON, "json", false, "Output as JSON")
	rootCmd.PersistentFlags().BoolVar(&cfgDebug, "debug", false, "Enable debug logging")
	rootCmd.PersistentFlags().StringVar(&cfgLogFormat, "log-format", "", "Log format: text or json")

	rootCmd.AddCommand(dataCmd)
	rootCmd.AddCommand(recordsCmd)
}

// loadConfig reads the environment and applies flag overrides.
func loadConfig() xuanbrain.Config {
	cfg := xuanbrain.ConfigFromEnv()

	if cfgBaseDir != "" {
		cfg.BaseDir = cfgBaseDir
	}
	if cfgConfigPath != "" {
		cfg.ConfigPath = cfgConfigPath
	}
	if cfgDebug {
		cfg.Debug = true
	}
	if cfgLogFormat != "" {
		cfg.LogFormat = cfgLogFormat
	}

	return cfg
}

func newClient() (*xuanbrain.Client, error) {
	client, err := xuanbrain.New(loadConfig())
	if err != nil {
		return nil, fmt.Errorf("initialize client: %w", err)
	}
	return client, nil
}
