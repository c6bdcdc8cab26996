package cmd

import (
	"fmt"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/fakeyudi/tabdock/internal/bundle"
	"github.com/fakeyudi/tabdock/internal/session"
)

var sessionsCmd = &cobra.Command{
	Use:   "sessions",
	Short: "Inspect and manage stored sessions",
	Args:  cobra.NoArgs,
	RunE: func(cmd *cobra.Command, args []string) error {
		return sessionsListCmd.RunE(cmd, args)
	},
}

var sessionsListCmd = &cobra.Command{
	Use:   "list",
	Short: "List stored sessions, newest first",
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
		if len(all) == 0 {
			cmd.Println("no stored sessions")
			return nil
		}
		for _, s := range all {
			cmd.Printf("%s  %s  %d tabs  %d windows\n",
				s.ID, time.UnixMilli(s.Timestamp).Format(time.RFC3339), s.TotalTabs, s.WindowCount)
		}
		return nil
	},
}

var sessionsRmCmd = &cobra.Command{
	Use:   "rm <session-id>",
	Short: "Delete a stored session",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		repo, closeFn, err := openRepository(cmd.Context(), GetConfig())
		if err != nil {
			return err
		}
		defer closeFn()

		if err := repo.Delete(cmd.Context(), args[0]); err != nil {
			return err
		}
		cmd.Printf("Deleted %s.\n", args[0])
		return nil
	},
}

var exportFormat string

var sessionsExportCmd = &cobra.Command{
	Use:   "export [session-id]",
	Short: "Write stored sessions to stdout (all of them when no id is given)",
	Args:  cobra.MaximumNArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		renderer, err := bundle.RendererFor(exportFormat)
		if err != nil {
			return err
		}
		repo, closeFn, err := openRepository(cmd.Context(), GetConfig())
		if err != nil {
			return err
		}
		defer closeFn()

		b := &bundle.Bundle{Version: bundle.Version, ExportedAt: time.Now().UnixMilli(), Sessions: []session.Snapshot{}}
		if len(args) == 1 {
			s, err := repo.Get(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			b.Sessions = append(b.Sessions, s)
		} else {
			all, err := repo.GetAll(cmd.Context())
			if err != nil {
				return err
			}
			b.Sessions = append(b.Sessions, all...)
		}

		data, err := renderer.Render(b)
		if err != nil {
			return err
		}
		_, err = cmd.OutOrStdout().Write(data)
		return err
	},
}

var sessionsImportCmd = &cobra.Command{
	Use:   "import <file>",
	Short: "Add the sessions of an exported bundle to the history",
	Args:  cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		path := args[0]
		data, err := os.ReadFile(path)
		if err != nil {
			if os.IsNotExist(err) {
				return fmt.Errorf("file not found: %s", path)
			}
			return err
		}
		b, err := bundle.ParserFor(path).Parse(data)
		if err != nil {
			return err
		}

		repo, closeFn, err := openRepository(cmd.Context(), GetConfig())
		if err != nil {
			return err
		}
		defer closeFn()

		// Oldest first so the bundle's newest session ends up current.
		imported := 0
		for i := len(b.Sessions) - 1; i >= 0; i-- {
			if b.Sessions[i].Empty() {
				continue
			}
			saved, err := repo.CreateNew(cmd.Context(), b.Sessions[i])
			if err != nil {
				return err
			}
			imported++
			cmd.Printf("Imported %s as %s.\n", b.Sessions[i].ID, saved.ID)
		}
		if imported == 0 {
			cmd.Println("no sessions to import")
		}
		return nil
	},
}

func init() {
	sessionsExportCmd.Flags().StringVarP(&exportFormat, "format", "f", "json", "export format (json, yaml, md)")
	sessionsCmd.AddCommand(sessionsListCmd, sessionsRmCmd, sessionsExportCmd, sessionsImportCmd)
	rootCmd.AddCommand(sessionsCmd)
}
