package cmd

import (
	"context"
	"fmt"
	"strconv"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/mayabook/internal/approval"
	"github.com/example/mayabook/internal/mayaapi"
)

func newAdminCmd(a *app) *cobra.Command {
	cmd := &cobra.Command{
		Use:   "admin",
		Short: "Review hotels and businesses waiting for approval",
	}
	cmd.AddCommand(
		newAdminPendingCmd(a),
		newAdminDecideCmd(a, mayaapi.Approve),
		newAdminDecideCmd(a, mayaapi.Reject),
	)
	return cmd
}

func (a *app) queue() (*approval.Queue, error) {
	v, err := a.vault()
	if err != nil {
		return nil, err
	}
	return approval.NewQueue(a.api(), v, a.log), nil
}

func newAdminPendingCmd(a *app) *cobra.Command {
	return &cobra.Command{
		Use:   "pending",
		Short: "List pending hotels and businesses",
		RunE: func(cmd *cobra.Command, args []string) error {
			q, err := a.queue()
			if err != nil {
				return err
			}
			if err := q.Refresh(context.Background()); err != nil {
				return err
			}
			if q.Total() == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "Nothing to review")
				return nil
			}
			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "KIND\tID\tNAME\tLOCATION\tOWNER\tCREATED")
			for _, kind := range []mayaapi.ListingKind{mayaapi.Hotels, mayaapi.Businesses} {
				for _, l := range q.List(kind) {
					fmt.Fprintf(tw, "%s\t%d\t%s\t%s\t%s\t%s\n", kind, l.ID, l.Name, l.Location, l.OwnerEmail, l.CreatedAt)
				}
			}
			return tw.Flush()
		},
	}
}

func newAdminDecideCmd(a *app, d mayaapi.Decision) *cobra.Command {
	var notes string
	cmd := &cobra.Command{
		Use:   fmt.Sprintf("%s <hotel|business> <id>", d),
		Short: fmt.Sprintf("%s a pending listing", d),
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			kind, err := mayaapi.ParseListingKind(args[0])
			if err != nil {
				return err
			}
			id, err := strconv.ParseInt(args[1], 10, 64)
			if err != nil {
				return fmt.Errorf("listing id: %w", err)
			}
			q, err := a.queue()
			if err != nil {
				return err
			}
			ctx := context.Background()
			if err := q.Refresh(ctx); err != nil {
				return err
			}
			if err := q.Decide(ctx, kind, id, d, notes); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "%s %d: %s done, %d still pending\n", kind, id, d, q.Total())
			return nil
		},
	}
	if d == mayaapi.Reject {
		cmd.Flags().StringVar(&notes, "notes", "", "note sent to the owner")
	}
	return cmd
}
