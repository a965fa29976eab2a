package cmd

import (
	"context"
	"errors"
	"fmt"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/mayabook/internal/booking"
	"github.com/example/mayabook/internal/db"
	"github.com/example/mayabook/internal/journal"
	"github.com/example/mayabook/internal/migrate"
)

func (a *app) openDB(ctx context.Context) (*db.DB, error) {
	if a.cfg.Postgres.URL == "" {
		return nil, errors.New("DATABASE_URL is not set")
	}
	return db.Open(ctx, a.cfg.Postgres.URL, a.cfg.Postgres.MaxConns)
}

func newMigrateCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "migrate",
		Short: "Apply database migrations for the submission journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer d.Close()
			ran, err := migrate.Up(ctx, d)
			for _, name := range ran {
				fmt.Fprintf(cmd.OutOrStdout(), "applied %s\n", name)
			}
			if err != nil {
				return err
			}
			if len(ran) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "up to date")
			}
			return nil
		},
	}
	cmd.AddCommand(newAttemptsCmd(a))
	return cmd
}

func newAttemptsCmd(a *app) *cobra.Command {
	var limit int
	cmd := &cobra.Command{
		Use:   "attempts",
		Short: "Show recent submission attempts from the journal",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			d, err := a.openDB(ctx)
			if err != nil {
				return err
			}
			defer d.Close()
			rows, err := journal.NewRepo(d).Recent(ctx, limit)
			if err != nil {
				return err
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "WHEN\tSESSION\tSERVICE\tKIND\tRESULT\tDETAIL\tTOOK")
			for _, at := range rows {
				result, detail := "ok", at.Reference+" "+booking.FormatAmount(at.TotalPrice)
				if !at.Success {
					result, detail = string(at.ErrorKind), at.Reason
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\t%s\t%s\t%s\t%s\n",
					at.AttemptedAt.Format("2006-01-02 15:04:05"), at.SessionID, at.ServiceID, at.Kind, result, detail, at.Duration)
			}
			return tw.Flush()
		},
	}
	cmd.Flags().IntVar(&limit, "limit", 20, "number of attempts to show")
	return cmd
}
