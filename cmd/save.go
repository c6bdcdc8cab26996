package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/tabdock/internal/engine"
)

var saveCmd = &cobra.Command{
	Use:   "save",
	Short: "Save the open windows of the browser as a new session",
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := attach(cmd.Context(), GetConfig())
		if err != nil {
			return err
		}
		defer a.close()

		resp := a.engine.Handle(cmd.Context(), engine.SaveSession{})
		if !resp.Success {
			return errors.New(resp.Error)
		}
		cmd.Printf("Saved %s: %d tabs in %d windows.\n", resp.Session.ID, resp.Session.TotalTabs, resp.Session.WindowCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(saveCmd)
}
