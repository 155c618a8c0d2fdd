package cli

import (
	"context"
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

const passwordEnv = "TRILHO_PASSWORD"

type credentialFlags struct {
	name     string
	email    string
	password string
}

func (f *credentialFlags) resolvePassword() string {
	if f.password != "" {
		return f.password
	}
	return os.Getenv(passwordEnv)
}

func NewLoginCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &credentialFlags{}

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Sign in and store the session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				creds, err := app.Session.SignIn(ctx, flags.email, flags.resolvePassword())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Signed in as %s <%s>\n", creds.User.Name, creds.User.Email)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.email, "email", "", "account email")
	cmd.Flags().StringVar(&flags.password, "password", "", "account password (default $"+passwordEnv+")")

	return cmd
}

func NewRegisterCommand(rootOpts *RootOptions) *cobra.Command {
	flags := &credentialFlags{}

	cmd := &cobra.Command{
		Use:   "register",
		Short: "Create an account and sign in",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				creds, err := app.Session.SignUp(ctx, flags.name, flags.email, flags.resolvePassword())
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Welcome, %s! You are signed in.\n", creds.User.Name)
				return nil
			})
		},
	}

	cmd.Flags().StringVar(&flags.name, "name", "", "display name")
	cmd.Flags().StringVar(&flags.email, "email", "", "account email")
	cmd.Flags().StringVar(&flags.password, "password", "", "account password (default $"+passwordEnv+")")

	return cmd
}

func NewLogoutCommand(rootOpts *RootOptions) *cobra.Command {
	return &cobra.Command{
		Use:   "logout",
		Short: "Forget the stored session",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withApp(cmd, rootOpts, func(ctx context.Context, app *App) error {
				if err := app.Session.SignOut(ctx); err != nil {
					return err
				}
				fmt.Fprintln(cmd.OutOrStdout(), "Signed out.")
				return nil
			})
		},
	}
}
