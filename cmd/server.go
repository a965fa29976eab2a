package cmd

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"github.com/redis/go-redis/v9"
	"github.com/spf13/cobra"

	"github.com/example/mayabook/internal/auth"
	"github.com/example/mayabook/internal/booking"
	"github.com/example/mayabook/internal/db"
	"github.com/example/mayabook/internal/form"
	"github.com/example/mayabook/internal/journal"
	"github.com/example/mayabook/internal/migrate"
	"github.com/example/mayabook/internal/web"
)

func newServerCmd(a *app) *cobra.Command {
	var migrateUp bool

	cmd := &cobra.Command{
		Use:   "server",
		Short: "Run the HTTP form shell",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
			defer cancel()

			hashKey, blockKey, err := a.cfg.CookieKeys()
			if err != nil {
				return err
			}
			api := a.api()

			var repo *journal.Repo
			if a.cfg.Postgres.URL != "" {
				d, err := db.Open(ctx, a.cfg.Postgres.URL, a.cfg.Postgres.MaxConns)
				if err != nil {
					return err
				}
				defer d.Close()
				if err := d.Ping(ctx); err != nil {
					return fmt.Errorf("db ping: %w", err)
				}
				if migrateUp {
					ran, err := migrate.Up(ctx, d)
					if err != nil {
						return err
					}
					for _, f := range ran {
						a.log.WithField("migration", f).Info("applied migration")
					}
				}
				repo = journal.NewRepo(d)
			} else {
				a.log.Info("DATABASE_URL not set; submissions are not journaled")
			}

			ws := &web.Server{
				API:            api,
				Cookies:        auth.NewSessionStore(hashKey, blockKey, 0),
				Catalog:        booking.DefaultCatalog(),
				Log:            a.log,
				IdempotencyTTL: a.cfg.Redis.IdempotencyTTL,
				CORSOrigins:    a.cfg.HTTP.CORSOrigins,
			}
			if a.cfg.Redis.Addr != "" {
				rdb := redis.NewClient(&redis.Options{
					Addr:     a.cfg.Redis.Addr,
					Password: a.cfg.Redis.Password,
					DB:       a.cfg.Redis.DB,
				})
				defer rdb.Close()
				if err := rdb.Ping(ctx).Err(); err != nil {
					return fmt.Errorf("failed to ping redis: %w", err)
				}
				ws.Idempotency = rdb
			}

			ws.Sessions = web.NewRegistry(func(sessionID string, svc booking.Service) (*form.Controller, error) {
				var sub form.Submitter = api
				if repo != nil {
					sub = journal.NewRecorder(api, repo, sessionID, a.log)
				}
				return form.New(svc, sub, auth.FromContext(), form.WithLogger(a.log.WithField("session", sessionID)))
			}, a.cfg.HTTP.SessionTTL, a.log)
			go func() { _ = ws.Sessions.Run(ctx, a.cfg.HTTP.ReapInterval) }()

			return web.Start(ctx, a.cfg.HTTP.ListenAddr, ws.Routes(), a.log)
		},
	}

	cmd.Flags().BoolVar(&migrateUp, "migrate", true, "run database migrations on startup")
	cmd.Flags().Lookup("migrate").NoOptDefVal = "true"
	return cmd
}
