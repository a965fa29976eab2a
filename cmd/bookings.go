package cmd

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/mayabook/internal/booking"
)

func newBookingsCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "bookings",
		Short: "List or cancel your bookings",
	}
	cmd.AddCommand(newBookingsListCmd(a), newBookingsCancelCmd(a))
	return cmd
}

func newBookingsListCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List your bookings",
		RunE: func(cmd *cobra.Command, args []string) error {
			ctx := context.Background()
			v, err := a.vault()
			if err != nil {
				return err
			}
			token, _ := v.CurrentToken(ctx)
			rows, err := a.api().MyBookings(ctx, token)
			if err != nil {
				return err
			}
			if len(rows) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No bookings")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tREFERENCE\tHOTEL\tCHECK-IN\tCHECK-OUT\tTOTAL\tSTATUS")
			for _, b := range rows {
				fmt.Fprintf(tw, "%d\t%s\t%s\t%s\t%s\t%s\t%s\n",
					b.ID, b.Reference, b.HotelName, b.CheckIn, b.CheckOut, booking.FormatAmount(b.TotalPrice), b.Status)
			}
			return tw.Flush()
		},
	}
}

func newBookingsCancelCmd(a *app) *cobra.Command {
	var reason string
	cmd := &cobra.Command{
		Use:   "cancel <booking-id>",
		Short: "Cancel one of your bookings",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("booking id: %w", err)
			}
			ctx := context.Background()
			v, err := a.vault()
			if err != nil {
				return err
			}
			token, _ := v.CurrentToken(ctx)
			if err := a.api().Cancel(ctx, token, id, reason); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Booking %d cancelled\n", id)
			return nil
		},
	}
	cmd.Flags().StringVar(&reason, "reason", "", "cancellation reason")
	return cmd
}
