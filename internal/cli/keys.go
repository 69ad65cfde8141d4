package cli

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-scheduler/internal/auth"
)

func newKeysCmd() *cobra.Command {
	var userEmail string

	cmd := &cobra.Command{
		Use:   "keys",
		Short: "Manage API keys in the local database",
	}
	cmd.PersistentFlags().StringVar(&userEmail, "user", "", "email of the key owner (required)")

	create := &cobra.Command{
		Use:   "create [name]",
		Short: "Create an API key",
		Long:  "Creates an API key for a user. The key is printed once and cannot be shown again.",
		Args:  cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			name := "CLI"
			if len(args) == 1 {
				name = args[0]
			}
			return withUser(cmd, userEmail, func(stores keyStores, u *auth.User) error {
				raw, key, err := stores.keys.Create(cmd.Context(), name, u.ID)
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(cmd.OutOrStdout(), map[string]interface{}{"key": raw, "api_key": key})
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Created key #%d for %s\n\n  %s\n\nStore it now, it will not be shown again.\n", key.ID, u.Email, raw)
				return nil
			})
		},
	}

	list := &cobra.Command{
		Use:   "list",
		Short: "List a user's API keys",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return withUser(cmd, userEmail, func(stores keyStores, u *auth.User) error {
				keys, err := stores.keys.List(cmd.Context(), u.ID)
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(cmd.OutOrStdout(), keys)
				}
				return printKeyTable(cmd.OutOrStdout(), keys)
			})
		},
	}

	revoke := &cobra.Command{
		Use:   "revoke <id>",
		Short: "Revoke an API key",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := strconv.ParseInt(args[0], 10, 64)
			if err != nil {
				return fmt.Errorf("invalid key ID: %s", args[0])
			}
			return withUser(cmd, userEmail, func(stores keyStores, u *auth.User) error {
				if err := stores.keys.Delete(cmd.Context(), id, u.ID); err != nil {
					return err
				}
				fmt.Fprintf(cmd.OutOrStdout(), "✓ Revoked key #%d\n", id)
				return nil
			})
		},
	}

	cmd.AddCommand(create, list, revoke)
	return cmd
}

type keyStores struct {
	users *auth.UserStore
	keys  *auth.APIKeyStore
}

// withUser opens the database, resolves the --user email and calls fn.
func withUser(cmd *cobra.Command, email string, fn func(keyStores, *auth.User) error) error {
	if email == "" {
		return fmt.Errorf("--user is required")
	}

	database, err := openDB()
	if err != nil {
		return err
	}
	defer closeDB(database)

	stores := keyStores{users: auth.NewUserStore(database), keys: auth.NewAPIKeyStore(database)}
	u, err := stores.users.GetByEmail(cmd.Context(), email)
	if err != nil {
		return err
	}
	return fn(stores, u)
}
