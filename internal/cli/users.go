package cli

import (
	"fmt"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-scheduler/internal/auth"
)

func newUsersCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "users",
		Short: "Manage users in the local database",
		Long:  "Add and list users directly in the SQLite database. Use this to bootstrap the first owner before any API key exists.",
	}
	cmd.AddCommand(newUsersAddCmd(), newUsersListCmd())
	return cmd
}

func newUsersAddCmd() *cobra.Command {
	var name, role string

	cmd := &cobra.Command{
		Use:   "add <email>",
		Short: "Add a user",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			r := auth.Role(strings.ToLower(role))
			if !r.IsValid() {
				return fmt.Errorf("invalid role %q (use owner, tenant or admin)", role)
			}

			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			u, err := auth.NewUserStore(database).Add(cmd.Context(), args[0], name, r)
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), u)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Added %s (%s) as %s\n", u.Email, u.ID, u.Role)
			return nil
		},
	}

	cmd.Flags().StringVar(&name, "name", "", "display name")
	cmd.Flags().StringVar(&role, "role", string(auth.RoleTenant), "role: owner, tenant or admin")

	return cmd
}

func newUsersListCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "list",
		Short: "List users",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			database, err := openDB()
			if err != nil {
				return err
			}
			defer closeDB(database)

			users, err := auth.NewUserStore(database).List(cmd.Context())
			if err != nil {
				return err
			}

			if isJSON() {
				return printJSON(cmd.OutOrStdout(), users)
			}
			return printUserTable(cmd.OutOrStdout(), users)
		},
	}
}
