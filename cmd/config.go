package cmd

import (
	"encoding/json"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/tabdock/internal/session"
)

var configCmd = &cobra.Command{
	Use:   "config",
	Short: "Show or change settings",
}

var configGetCmd = &cobra.Command{
	Use:     "get",
	Aliases: []string{"show"},
	Short:   "Print the merged settings and the stored retention limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		c := GetConfig()
		repo, closeFn, err := openRepository(cmd.Context(), c)
		if err != nil {
			return err
		}
		defer closeFn()

		stored, err := repo.Config(cmd.Context())
		if err != nil {
			return err
		}
		data, err := json.MarshalIndent(c, "", "  ")
		if err != nil {
			return err
		}
		cmd.Println(string(data))
		cmd.Printf("Max sessions: %d\n", stored.MaxSessions)
		return nil
	},
}

var maxSessionsFlag int

var configSetCmd = &cobra.Command{
	Use:   "set",
	Short: "Change the stored retention limit",
	RunE: func(cmd *cobra.Command, args []string) error {
		if !cmd.Flags().Changed("max-sessions") {
			return cmd.Usage()
		}
		repo, closeFn, err := openRepository(cmd.Context(), GetConfig())
		if err != nil {
			return err
		}
		defer closeFn()

		got, err := repo.SetConfig(cmd.Context(), session.Config{MaxSessions: maxSessionsFlag})
		if err != nil {
			return err
		}
		cmd.Printf("Max sessions: %d\n", got.MaxSessions)
		return nil
	},
}

func init() {
	configSetCmd.Flags().IntVar(&maxSessionsFlag, "max-sessions", session.DefaultMaxSessions, "sessions to keep (1-10)")
	configCmd.AddCommand(configGetCmd, configSetCmd)
	rootCmd.AddCommand(configCmd)
}
