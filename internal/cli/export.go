package cli

import (
	"fmt"
	"os"

	"github.com/spf13/cobra"
)

func newExportCmd() *cobra.Command {
	var output string

	cmd := &cobra.Command{
		Use:   "export <property-id>",
		Short: "Download a property's visit schedule as a spreadsheet",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePropertyID(args[0])
			if err != nil {
				return err
			}
			if output == "" {
				output = fmt.Sprintf("schedule-%d.xlsx", id)
			}

			f, err := os.Create(output)
			if err != nil {
				return fmt.Errorf("creating %s: %w", output, err)
			}
			if err := newAPIClient().ExportSchedule(cmd.Context(), id, f); err != nil {
				_ = f.Close()
				_ = os.Remove(output)
				return err
			}
			if err := f.Close(); err != nil {
				return fmt.Errorf("writing %s: %w", output, err)
			}

			fmt.Fprintf(cmd.OutOrStdout(), "✓ Wrote %s\n", output)
			return nil
		},
	}

	cmd.Flags().StringVarP(&output, "output", "o", "", "output file (default schedule-<id>.xlsx)")

	return cmd
}
