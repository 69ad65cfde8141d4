// Package cli defines the cobra command tree for vs.
package cli

import (
	"database/sql"
	"fmt"
	"os"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-scheduler/internal/client"
	"github.com/evcraddock/visit-scheduler/internal/db"
)

var (
	flagFormat string
	flagDB     string
)

// NewRootCmd creates the root cobra command with global flags.
func NewRootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:           "vs",
		Short:         "Schedule property visits",
		Long:          "Owners publish visit slots and propose them to applicants; applicants pick one. Runs the API server and talks to it.",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	root.PersistentFlags().StringVar(&flagFormat, "format", "text", "output format (text|json)")
	root.PersistentFlags().StringVar(&flagDB, "db", "", "SQLite database path for serve, users and keys (default: ~/.visit-scheduler/visits.db)")

	root.AddCommand(
		newServeCmd(),
		newUsersCmd(),
		newKeysCmd(),
		newLoginCmd(),
		newLogoutCmd(),
		newStatusCmd(),
		newVersionCmd(),
		newPropertiesCmd(),
		newSlotsCmd(),
		newApplyCmd(),
		newApplicationsCmd(),
		newProposeCmd(),
		newAvailableCmd(),
		newChooseCmd(),
		newAdvanceCmd(),
		newHistoryCmd(),
		newVisitStatusCmd(),
		newExportCmd(),
	)

	return root
}

// openDB opens the SQLite database using the --db flag or default path.
func openDB() (*sql.DB, error) {
	path := flagDB
	if path == "" {
		var err error
		path, err = db.DefaultPath()
		if err != nil {
			return nil, err
		}
	}
	return db.Open(path)
}

// newAPIClient creates an HTTP client for the visit-scheduler API.
func newAPIClient() *client.Client {
	return client.New(getServerURL(), getAPIKey())
}

// isJSON returns true if the --format flag is set to json.
func isJSON() bool {
	return flagFormat == "json"
}

// closeDB closes the database, logging any error to stderr.
func closeDB(database *sql.DB) {
	if err := database.Close(); err != nil {
		fmt.Fprintf(os.Stderr, "warning: closing database: %v\n", err)
	}
}
