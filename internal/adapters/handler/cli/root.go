// Package cli is the habitctl command tree.
package cli

import (
	"context"
	"os"

	"github.com/spf13/cobra"
)

// RootOptions holds global flags for all commands.
type RootOptions struct {
	ConfigPath string
	APIURL     string
	Verbose    bool

	factory AppFactory
}

// NewRootCommand creates the root command wired to the real services.
func NewRootCommand() *cobra.Command {
	return NewRootCommandWith(DefaultAppFactory(os.Stderr))
}

// NewRootCommandWith creates the root command with a custom App factory.
func NewRootCommandWith(factory AppFactory) *cobra.Command {
	opts := &RootOptions{factory: factory}

	cmd := &cobra.Command{
		Use:   "habitctl",
		Short: "habitctl - track daily habits",
		Long: `habitctl keeps your habits in sync with the Trilho habit service.

Sign in once with "habitctl login"; the session is stored locally and reused
by every other command.`,
		SilenceUsage: true,
	}

	cmd.PersistentFlags().StringVar(&opts.ConfigPath, "config", "", "path to a YAML config file (default $TRILHO_CONFIG)")
	cmd.PersistentFlags().StringVar(&opts.APIURL, "api", "", "habit service base URL (overrides config)")
	cmd.PersistentFlags().BoolVarP(&opts.Verbose, "verbose", "v", false, "log requests to stderr")

	cmd.AddCommand(NewLoginCommand(opts))
	cmd.AddCommand(NewRegisterCommand(opts))
	cmd.AddCommand(NewLogoutCommand(opts))
	cmd.AddCommand(NewListCommand(opts))
	cmd.AddCommand(NewCreateCommand(opts))
	cmd.AddCommand(NewEditCommand(opts))
	cmd.AddCommand(NewDeleteCommand(opts))
	cmd.AddCommand(NewDoneCommand(opts))
	cmd.AddCommand(NewReorderCommand(opts))
	cmd.AddCommand(NewProgressCommand(opts))
	cmd.AddCommand(NewHeatmapCommand(opts))

	return cmd
}

// withApp builds the App, runs fn and closes the App.
func withApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, app *App) error) (err error) {
	ctx := cmd.Context()
	if ctx == nil {
		ctx = context.Background()
	}

	app, err := opts.factory(ctx, opts)
	if err != nil {
		return err
	}
	defer func() {
		if cerr := app.Close(); err == nil {
			err = cerr
		}
	}()

	return fn(ctx, app)
}

// withSyncedApp is withApp for commands that need a signed-in session and a
// fresh snapshot.
func withSyncedApp(cmd *cobra.Command, opts *RootOptions, fn func(ctx context.Context, app *App) error) error {
	return withApp(cmd, opts, func(ctx context.Context, app *App) error {
		if err := app.requireSession(ctx); err != nil {
			return err
		}
		if err := app.Sync.FetchAll(ctx); err != nil {
			return err
		}
		return fn(ctx, app)
	})
}
