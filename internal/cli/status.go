package cli

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-scheduler/internal/client"
)

func newStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "status",
		Short: "Check connection and auth status",
		Long:  "Tests the connection to the server and checks if the stored API key is valid.",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runStatus(cmd.Context(), cmd.OutOrStdout())
		},
	}
}

func runStatus(ctx context.Context, out io.Writer) error {
	serverURL := getServerURL()
	apiKey := getAPIKey()

	fmt.Fprintf(out, "Server:  %s\n", serverURL)

	if apiKey == "" {
		fmt.Fprintln(out, "API Key: not configured")
		fmt.Fprintln(out, "\nRun 'vs login' to authenticate.")
		return nil
	}

	prefix := apiKey
	if len(prefix) > 8 {
		prefix = prefix[:8]
	}
	fmt.Fprintf(out, "API Key: %s…\n", prefix)

	me, err := client.New(serverURL, apiKey).Me(ctx)
	var apiErr *client.Error
	switch {
	case err == nil:
		fmt.Fprintf(out, "User:    %s (%s)\n", me.Email, me.Role)
		fmt.Fprintln(out, "Status:  ✓ connected and authenticated")
	case errors.As(err, &apiErr) && apiErr.Status == http.StatusUnauthorized:
		fmt.Fprintln(out, "Status:  ✗ invalid API key")
		fmt.Fprintln(out, "\nRun 'vs login' to re-authenticate.")
	case errors.As(err, &apiErr):
		fmt.Fprintf(out, "Status:  ✗ unexpected response (%d)\n", apiErr.Status)
	default:
		fmt.Fprintf(out, "Status:  ✗ cannot reach server (%v)\n", err)
	}

	return nil
}
