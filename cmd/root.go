package cmd

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/tabdock/internal/config"
	"github.com/fakeyudi/tabdock/internal/logging"
)

// cfg holds the merged configuration, populated in PersistentPreRunE.
var cfg config.Config

var rootCmd = &cobra.Command{
	Use:           "tabdock",
	Short:         "Keep browser tab groups and sessions across restarts",
	SilenceUsage:  true,
	SilenceErrors: false,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		global, err := config.LoadGlobal()
		if err != nil {
			return fmt.Errorf("loading global config: %w", err)
		}
		project, err := config.LoadProject()
		if err != nil {
			return fmt.Errorf("loading project config: %w", err)
		}
		cfg = config.Merge(global, project)

		if remoteURL != "" {
			cfg.RemoteURL = remoteURL
		}
		logging.Configure(cfg.LogLevel, cfg.LogFormat)
		logging.SetOutput(cmd.ErrOrStderr())
		return nil
	},
}

// remoteURL overrides the configured DevTools endpoint.
var remoteURL string

// Execute runs the root command. Exits with code 1 on error.
func Execute() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}

// GetConfig returns the merged configuration for use by subcommands.
func GetConfig() config.Config {
	return cfg
}

func init() {
	rootCmd.PersistentFlags().StringVar(&remoteURL, "remote", "", "DevTools endpoint of the browser (overrides remote_url)")
}
