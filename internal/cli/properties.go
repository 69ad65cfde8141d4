package cli

import (
	"fmt"
	"math"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-scheduler/internal/client"
)

func newPropertiesCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:     "properties",
		Aliases: []string{"property", "props"},
		Short:   "List and manage rental properties",
	}
	cmd.AddCommand(newPropertiesListCmd(), newPropertiesAddCmd(), newPropertiesShowCmd(), newPropertiesRemoveCmd())
	return cmd
}

func newPropertiesListCmd() *cobra.Command {
	var (
		mine bool
		city string
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List properties",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, args []string) error {
			props, err := newAPIClient().ListProperties(cmd.Context(), client.PropertyQuery{Mine: mine, City: city})
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), props)
			}
			return printPropertyTable(cmd.OutOrStdout(), props)
		},
	}

	cmd.Flags().BoolVar(&mine, "mine", false, "only properties you own")
	cmd.Flags().StringVar(&city, "city", "", "filter by city")

	return cmd
}

func newPropertiesAddCmd() *cobra.Command {
	var (
		city string
		rent float64
	)

	cmd := &cobra.Command{
		Use:   "add <title> <address>",
		Short: "Add a property you own",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			np := client.NewProperty{Title: args[0], Address: args[1], City: city}
			if cmd.Flags().Changed("rent") {
				if rent < 0 {
					return fmt.Errorf("rent cannot be negative")
				}
				cents := int64(math.Round(rent * 100))
				np.RentCents = &cents
			}

			p, err := newAPIClient().AddProperty(cmd.Context(), np)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), p)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Added property #%d\n", p.ID)
			printPropertySummary(cmd.OutOrStdout(), p)
			return nil
		},
	}

	cmd.Flags().StringVar(&city, "city", "", "city")
	cmd.Flags().Float64Var(&rent, "rent", 0, "monthly rent in euros")

	return cmd
}

func newPropertiesShowCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "show <id>",
		Short: "Show a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePropertyID(args[0])
			if err != nil {
				return err
			}
			p, err := newAPIClient().GetProperty(cmd.Context(), id)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), p)
			}
			printPropertySummary(cmd.OutOrStdout(), p)
			return nil
		},
	}
}

func newPropertiesRemoveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "remove <id>",
		Short: "Delete a property with its slots and applications",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePropertyID(args[0])
			if err != nil {
				return err
			}
			if err := newAPIClient().DeleteProperty(cmd.Context(), id); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Removed property #%d\n", id)
			return nil
		},
	}
}

// parsePropertyID parses a positive numeric property ID.
func parsePropertyID(s string) (int64, error) {
	id, err := strconv.ParseInt(s, 10, 64)
	if err != nil || id <= 0 {
		return 0, fmt.Errorf("invalid property ID: %s", s)
	}
	return id, nil
}
