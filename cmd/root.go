package cmd

import (
	"fmt"
	"io"
	"os"

	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/example/mayabook/internal/auth"
	"github.com/example/mayabook/internal/config"
	"github.com/example/mayabook/internal/logging"
	"github.com/example/mayabook/internal/mayaapi"
)

var (
	Version   = "dev"
	CommitSHA = "none"
	BuildDate = "unknown"
)

// app is what every subcommand shares once configuration has loaded.
type app struct {
	cfg    config.Config
	log    *logrus.Logger
	closer io.Closer
	apiURL string
}

func (a *app) load(cmd *cobra.Command) error {
	cfg, err := config.FromEnv()
	if err != nil {
		return err
	}
	a.cfg = cfg
	if a.apiURL != "" {
		a.cfg.API.BaseURL = a.apiURL
	}
	a.log, a.closer, err = logging.New(logging.Options{Level: cfg.Log.Level, Format: cfg.Log.Format, File: cfg.Log.File})
	return err
}

func (a *app) api() *mayaapi.Client {
	return mayaapi.New(a.cfg.API.BaseURL,
		mayaapi.WithTimeout(a.cfg.API.Timeout),
		mayaapi.WithLogger(a.log),
		mayaapi.WithBreaker(a.cfg.API.BreakerMaxFailures, a.cfg.API.BreakerCooldown),
	)
}

func (a *app) vault() (*auth.Vault, error) {
	key, err := a.cfg.VaultKey()
	if err != nil {
		return nil, err
	}
	return auth.NewVault(a.cfg.Keys.VaultPath, key)
}

func NewRootCmd() *cobra.Command {
	a := &app{}
	root := &cobra.Command{
		Use:           "mayabook",
		Short:         "Price and book Maya Digital hotels, tours, cenotes and horseback rides",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.load(cmd)
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			if a.closer != nil {
				return a.closer.Close()
			}
			return nil
		},
	}
	root.PersistentFlags().StringVar(&a.apiURL, "api-url", "", "booking API base URL (overrides API_BASE_URL)")

	root.AddCommand(newVersionCmd())
	root.AddCommand(newKeysCmd())
	root.AddCommand(newServerCmd(a))
	root.AddCommand(newQuoteCmd(a))
	root.AddCommand(newBookCmd(a))
	root.AddCommand(newLoginCmd(a), newLogoutCmd(a), newWhoamiCmd(a))
	root.AddCommand(newBookingsCmd(a))
	root.AddCommand(newAdminCmd(a))
	root.AddCommand(newMigrateCmd(a))

	return root
}

func Execute() {
	if err := NewRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, err)
		os.Exit(1)
	}
}
