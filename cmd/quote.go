package cmd

import (
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/example/mayabook/internal/auth"
	"github.com/example/mayabook/internal/booking"
	"github.com/example/mayabook/internal/form"
)

// formFlags describe one booking form on the command line.
type formFlags struct {
	id, name, kind string
	price          float64
	sets           []string
	addons         []string
}

func (f *formFlags) register(cmd *cobra.Command) {
	fl := cmd.Flags()
	fl.StringVar(&f.id, "id", "", "service id")
	fl.StringVar(&f.name, "name", "", "service name")
	fl.StringVar(&f.kind, "kind", "", "service kind: hotel, tour, cenote or horseback")
	fl.Float64Var(&f.price, "price", 0, "base price in MXN")
	fl.StringArrayVar(&f.sets, "set", nil, "field=value, repeatable (e.g. --set check_in=2024-06-01)")
	fl.StringArrayVar(&f.addons, "addon", nil, "add-on name, repeatable (hotel only)")
	_ = cmd.MarkFlagRequired("id")
	_ = cmd.MarkFlagRequired("kind")
}

// build fills a controller from the flags. Field errors name the offending flag.
func (f *formFlags) build(sub form.Submitter, creds form.Credentials, opts ...form.Option) (*form.Controller, error) {
	kind, err := booking.ParseKind(f.kind)
	if err != nil {
		return nil, err
	}
	name := f.name
	if name == "" {
		name = f.id
	}
	ctl, err := form.New(booking.Service{ID: f.id, Name: name, Kind: kind, BasePrice: f.price}, sub, creds, opts...)
	if err != nil {
		return nil, err
	}
	for _, kv := range f.sets {
		field, value, ok := strings.Cut(kv, "=")
		if !ok {
			return nil, fmt.Errorf("--set %q: want field=value", kv)
		}
		if err := ctl.SetField(form.Field(strings.TrimSpace(field)), value); err != nil {
			return nil, fmt.Errorf("--set %s: %w", field, err)
		}
	}
	for _, name := range f.addons {
		if err := ctl.ToggleAddon(name); err != nil {
			return nil, fmt.Errorf("--addon %q: %w", name, err)
		}
	}
	return ctl, nil
}

func printItinerary(w io.Writer, it booking.Itinerary) {
	tw := tabwriter.NewWriter(w, 0, 4, 2, ' ', 0)
	for _, li := range it.Items {
		fmt.Fprintf(tw, "%s\t%s\n", li.Description, booking.FormatAmount(li.Amount))
	}
	fmt.Fprintf(tw, "Total\t%s\n", booking.FormatAmount(it.Total))
	_ = tw.Flush()
}

func newQuoteCmd(a *app) *cobra.Command {
	var f formFlags
	cmd := &cobra.Command{
		Use:   "quote",
		Short: "Price a booking without submitting it",
		Example: `  mayabook quote --id 7 --kind hotel --price 1000 \
    --set check_in=2024-06-01 --set check_out=2024-06-03 --addon "Acceso a Spa"`,
		RunE: func(cmd *cobra.Command, args []string) error {
			ctl, err := f.build(a.api(), auth.Static{})
			if err != nil {
				return err
			}
			printItinerary(cmd.OutOrStdout(), ctl.Itinerary())
			if err := ctl.ValidateForSubmit(); err != nil {
				fmt.Fprintf(cmd.OutOrStdout(), "\nnot bookable yet: %v\n", err)
			}
			return nil
		},
	}
	f.register(cmd)
	return cmd
}
