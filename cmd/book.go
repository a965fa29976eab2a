package cmd

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/example/mayabook/internal/booking"
	"github.com/example/mayabook/internal/db"
	"github.com/example/mayabook/internal/form"
	"github.com/example/mayabook/internal/journal"
)

func newBookCmd(a *app) *cobra.Command {
	var f formFlags
	cmd := &cobra.Command{
		Use:   "book",
		Short: "Price and submit a booking as the signed-in user",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			v, err := a.vault()
			if err != nil {
				return err
			}

			var sub form.Submitter = a.api()
			if a.cfg.Postgres.URL != "" {
				d, err := db.Open(ctx, a.cfg.Postgres.URL, a.cfg.Postgres.MaxConns)
				if err != nil {
					return err
				}
				defer d.Close()
				sub = journal.NewRecorder(sub, journal.NewRepo(d), "cli", a.log)
			}

			ctl, err := f.build(sub, v, form.WithLogger(a.log))
			if err != nil {
				return err
			}
			out := cmd.OutOrStdout()
			printItinerary(out, ctl.Itinerary())

			conf, err := ctl.Submit(ctx)
			if err != nil {
				return fmt.Errorf("booking failed: %w", err)
			}
			fmt.Fprintf(out, "\nConfirmed %s (%s)\n", conf.Reference, conf.Status)
			if conf.ServiceName != "" {
				fmt.Fprintf(out, "  %s\n", conf.ServiceName)
			}
			if conf.CheckIn != "" {
				fmt.Fprintf(out, "  %s to %s\n", conf.CheckIn, conf.CheckOut)
			} else if conf.Date != "" {
				fmt.Fprintf(out, "  %s\n", conf.Date)
			}
			fmt.Fprintf(out, "  charged %s\n", booking.FormatAmount(conf.TotalPrice))
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
