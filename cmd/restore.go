package cmd

import (
	"errors"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/tabdock/internal/engine"
)

var restoreCmd = &cobra.Command{
	Use:   "restore [session-id]",
	Short: "Reopen a stored session in the browser (newest when no id is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		a, err := attach(cmd.Context(), GetConfig())
		if err != nil {
			return err
		}
		defer a.close()

		var req engine.RestoreSession
		if len(args) == 1 {
			req.SessionID = args[0]
		}
		resp := a.engine.Handle(cmd.Context(), req)
		if !resp.Success {
			return errors.New(resp.Error)
		}
		r := resp.Restore
		cmd.Printf("Restored %s: %d windows, %d tabs.\n", r.SessionID, r.WindowsCreated, r.TabsCreated)
		for _, f := range r.Failures {
			cmd.Printf("  skipped: %s\n", f)
		}
		return nil
	},
}

func init() {
	rootCmd.AddCommand(restoreCmd)
}
