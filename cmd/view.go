package cmd

import (
	"os"

	"github.com/charmbracelet/x/term"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/tabdock/internal/tui"
)

var plainOutput bool

var viewCmd = &cobra.Command{
	Use:   "view",
	Short: "Browse stored sessions",
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeFn, err := openRepository(cmd.Context(), GetConfig())
		if err != nil {
			return err
		}
		defer closeFn()

		all, err := repo.GetAll(cmd.Context())
		if err != nil {
			return err
		}
		sc, err := repo.Config(cmd.Context())
		if err != nil {
			return err
		}

		// Pipes and tests get text; the browser needs a terminal.
		if plainOutput || !term.IsTerminal(os.Stdout.Fd()) {
			cmd.Print(tui.Plain(all, sc))
			return nil
		}
		return tui.Run(all, sc)
	},
}

func init() {
	viewCmd.Flags().BoolVar(&plainOutput, "plain", false, "plain text output instead of TUI")
	rootCmd.AddCommand(viewCmd)
}
