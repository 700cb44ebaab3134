package cli

import (
	"context"
	"errors"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/dns-automate/zone-manager/internal/app"
)

func newUsersCommand(c *Context) *cobra.Command {
	usersCmd := &cobra.Command{
		Use:     "users",
		Aliases: []string{"user"},
		Short:   "Manage login users",
	}

	var email, username, password string
	addCmd := &cobra.Command{
		Use:   "add",
		Short: "Create a login user",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			if password == "" {
				return errors.New("--password is required")
			}
			return c.run(cmd, func(ctx context.Context, a *app.App) error {
				user, err := a.Auth.CreateUser(ctx, email, username, password)
				if err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "Created user %s (%s)\n", user.Email, user.ID)
				return nil
			})
		},
	}
	addCmd.Flags().StringVar(&email, "email", "", "login email")
	addCmd.Flags().StringVar(&username, "username", "", "display name (default: the email's local part)")
	addCmd.Flags().StringVar(&password, "password", "", "login password")
	_ = addCmd.MarkFlagRequired("email")

	usersCmd.AddCommand(addCmd)
	return usersCmd
}
