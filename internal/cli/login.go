package cli

import (
	"bufio"
	"context"
	"fmt"
	"io"
	"strings"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-scheduler/internal/client"
)

func newLoginCmd() *cobra.Command {
	var (
		server string
		verify bool
	)

	cmd := &cobra.Command{
		Use:   "login",
		Short: "Log in and store an API key",
		Long: `Stores an API key for CLI access.

Create a key with "vs keys create --user <email>" on the server host, or
through POST /api/keys, then paste it here.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runLogin(cmd.Context(), cmd.InOrStdin(), cmd.OutOrStdout(), server, verify)
		},
	}

	cmd.Flags().StringVar(&server, "server", "", "server URL (default: from config or "+defaultServerURL+")")
	cmd.Flags().BoolVar(&verify, "verify", true, "check the key against the server before saving")

	return cmd
}

func runLogin(ctx context.Context, in io.Reader, out io.Writer, serverFlag string, verify bool) error {
	serverURL := serverFlag
	if serverURL == "" {
		serverURL = getServerURL()
	}

	fmt.Fprint(out, "Paste your API key: ")
	key, err := bufio.NewReader(in).ReadString('\n')
	if err != nil && err != io.EOF {
		return fmt.Errorf("reading input: %w", err)
	}

	key = strings.TrimSpace(key)
	if err := validateAPIKey(key); err != nil {
		return err
	}

	if verify {
		me, err := client.New(serverURL, key).Me(ctx)
		if err != nil {
			return fmt.Errorf("checking key against %s: %w", serverURL, err)
		}
		fmt.Fprintf(out, "\nAuthenticated as %s (%s)\n", me.Email, me.Role)
	}

	// Load existing config to preserve other fields
	cfg, err := loadConfig()
	if err != nil {
		cfg = CLIConfig{}
	}

	cfg.APIKey = key
	if serverFlag != "" {
		cfg.ServerURL = serverFlag
	}

	if err := saveConfig(cfg); err != nil {
		return fmt.Errorf("saving config: %w", err)
	}

	fmt.Fprintln(out, "✓ API key saved. You're logged in!")
	return nil
}

// validateAPIKey checks that the key is non-empty and has the expected prefix.
func validateAPIKey(key string) error {
	if key == "" {
		return fmt.Errorf("no API key provided")
	}
	if !strings.HasPrefix(key, "vs_") {
		return fmt.Errorf("invalid API key format (should start with vs_)")
	}
	return nil
}
