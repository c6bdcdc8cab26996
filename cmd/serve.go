package cmd

import (
	"context"
	"errors"
	"os/signal"
	"syscall"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/fakeyudi/tabdock/internal/config"
	"github.com/fakeyudi/tabdock/internal/logging"
	"github.com/fakeyudi/tabdock/internal/server"
	"github.com/fakeyudi/tabdock/internal/session"
)

var serveCmd = &cobra.Command{
	Use:   "serve",
	Short: "Attach to the browser, track tab groups and serve the control socket",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		c := GetConfig()
		log := logging.NewLogger("serve")

		a, err := attach(ctx, c)
		if err != nil {
			return err
		}
		defer a.close()

		if c.MaxSessions > 0 {
			applyMaxSessions(ctx, a.engine.Sessions(), c.MaxSessions, log)
		}

		go func() {
			path, err := config.GlobalPath()
			if err != nil {
				log.WithError(err).Warn("config reload disabled")
				return
			}
			reload := config.ReloadFunc(log, func(next config.Config) {
				logging.Configure(next.LogLevel, next.LogFormat)
				if next.MaxSessions > 0 {
					applyMaxSessions(ctx, a.engine.Sessions(), next.MaxSessions, log)
				}
			})
			if err := config.Watch(ctx, path, config.DefaultWatchDebounce, reload); err != nil {
				log.WithError(err).Warn("config watcher stopped")
			}
		}()

		errc := make(chan error, 2)
		go func() { errc <- a.engine.Run(ctx, a.host.Events()) }()
		go func() { errc <- server.New(a.engine, logging.NewLogger("server")).ListenAndServe(ctx, c.Listen) }()

		log.WithFields(logrus.Fields{"browser": c.RemoteURL, "listen": c.Listen}).Info("tabdock running")
		err = <-errc
		stop()
		if errors.Is(err, context.Canceled) {
			return nil
		}
		return err
	},
}

func applyMaxSessions(ctx context.Context, repo *session.Repository, n int, log *logrus.Entry) {
	if _, err := repo.SetConfig(ctx, session.Config{MaxSessions: n}); err != nil {
		log.WithError(err).Warn("ignoring max_sessions from config")
		return
	}
	log.WithField("max_sessions", n).Info("session retention updated")
}

func init() {
	rootCmd.AddCommand(serveCmd)
}
