package cmd

import (
	"github.com/spf13/cobra"

	"github.com/fakeyudi/tabdock/internal/logging"
	"github.com/fakeyudi/tabdock/internal/session"
)

var migrateCmd = &cobra.Command{
	Use:   "migrate",
	Short: "Upgrade a legacy single saved session into the session history",
	RunE: func(cmd *cobra.Command, args []string) error {
		st, err := openStores(GetConfig())
		if err != nil {
			return err
		}
		defer st.close()

		res, err := session.Migrate(cmd.Context(), st.durable, nil, logging.NewLogger("migrate"))
		if err != nil {
			return err
		}
		if !res.Migrated {
			cmd.Println("nothing to migrate")
			return nil
		}
		cmd.Printf("Migrated %s: %d tabs in %d windows.\n", res.Session.ID, res.Session.TotalTabs, res.Session.WindowCount)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(migrateCmd)
}
