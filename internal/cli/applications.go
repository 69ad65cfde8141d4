package cli

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/evcraddock/visit-scheduler/internal/application"
	"github.com/evcraddock/visit-scheduler/internal/client"
	"github.com/evcraddock/visit-scheduler/internal/visit"
)

func newApplyCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "apply <property-id>",
		Short: "Apply to rent a property",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePropertyID(args[0])
			if err != nil {
				return err
			}
			app, err := newAPIClient().Apply(cmd.Context(), id)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), app)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Applied to property #%d\n", id)
			printApplicationSummary(cmd.OutOrStdout(), app)
			return nil
		},
	}
}

func newApplicationsCmd() *cobra.Command {
	var propertyID int64

	cmd := &cobra.Command{
		Use:     "applications [application-id]",
		Aliases: []string{"apps"},
		Short:   "List applications or show one",
		Long: `Without arguments lists your own applications, or with --property the
applications received for a property you own. With an ID shows that
application.`,
		Args: cobra.MaximumNArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := newAPIClient()
			out := cmd.OutOrStdout()

			if len(args) == 1 {
				app, err := api.GetApplication(cmd.Context(), args[0])
				if err != nil {
					return err
				}
				if isJSON() {
					return printJSON(out, app)
				}
				printApplicationSummary(out, app)
				return nil
			}

			var (
				apps []*application.Application
				err  error
			)
			if propertyID > 0 {
				apps, err = api.ListApplications(cmd.Context(), propertyID)
			} else {
				apps, err = api.MyApplications(cmd.Context())
			}
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(out, apps)
			}
			return printApplicationTable(out, apps)
		},
	}

	cmd.Flags().Int64Var(&propertyID, "property", 0, "list applications for this property")

	return cmd
}

func newProposeCmd() *cobra.Command {
	var msg string

	cmd := &cobra.Command{
		Use:   "propose <application-id> <slot-id>...",
		Short: "Offer visit slots to an applicant",
		Long:  "Offers a selection of bookable slots to an approved applicant, who is emailed the dates and a link to choose one.",
		Args:  cobra.MinimumNArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			app, err := newAPIClient().Propose(cmd.Context(), args[0], args[1:], msg)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), app)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Proposed %d visit %s\n", len(args)-1, plural(len(args)-1, "slot"))
			printApplicationSummary(cmd.OutOrStdout(), app)
			return nil
		},
	}

	cmd.Flags().StringVarP(&msg, "message", "m", "", "message to the applicant")

	return cmd
}

func newAvailableCmd() *cobra.Command {
	var (
		q   client.SlotQuery
		all bool
	)

	cmd := &cobra.Command{
		Use:   "available <application-id>",
		Short: "Show the proposed slots you can still book",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			groups, err := newAPIClient().AvailableSlots(cmd.Context(), args[0], q)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), groups)
			}
			printDateGroups(cmd.OutOrStdout(), groups, all)
			return nil
		},
	}

	cmd.Flags().StringVar(&q.Time, "time", "", "time of day: morning, afternoon or evening")
	cmd.Flags().StringVar(&q.Type, "type", "", "visit type: individual or group")
	cmd.Flags().BoolVar(&all, "all", false, "expand every date")

	return cmd
}

func newChooseCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "choose <application-id> <slot-id>",
		Short: "Book one of the proposed slots",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			v, err := newAPIClient().Choose(cmd.Context(), args[0], args[1])
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Visit booked (%s)\n", v.ID)
			return nil
		},
	}
}

func newAdvanceCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "advance <application-id> <status>",
		Short: "Move an application to its next status",
		Long: `Moves an application along its lifecycle, e.g. approved, rejected,
visit_completed or selected. Proposing and booking visits use "propose"
and "choose".`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			to, err := application.ParseStatus(args[1])
			if err != nil {
				return err
			}
			app, err := newAPIClient().Advance(cmd.Context(), args[0], to)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), app)
			}
			printApplicationSummary(cmd.OutOrStdout(), app)
			return nil
		},
	}
}

func newHistoryCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "history <application-id>",
		Short: "Show an application's status changes, visits and messages",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			api := newAPIClient()
			ctx := cmd.Context()

			events, err := api.History(ctx, args[0])
			if err != nil {
				return err
			}
			visits, err := api.Visits(ctx, args[0])
			if err != nil {
				return err
			}
			msgs, err := api.Messages(ctx, args[0])
			if err != nil {
				return err
			}

			out := cmd.OutOrStdout()
			if isJSON() {
				return printJSON(out, map[string]interface{}{
					"history":  events,
					"visits":   visits,
					"messages": msgs,
				})
			}

			printHistory(out, events)
			fmt.Fprintln(out)
			if err := printVisitTable(out, visits); err != nil {
				return err
			}
			printMessages(out, msgs)
			return nil
		},
	}
}

func newVisitStatusCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "visit-status <visit-id> <status>",
		Short: "Record a visit outcome",
		Long:  "Records the outcome of a scheduled visit: completed, cancelled or no_show. Cancelling frees the place in the slot.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			st := visit.Status(args[1])
			if !st.IsValid() || st == visit.Scheduled {
				return fmt.Errorf("invalid visit status %q (use completed, cancelled or no_show)", args[1])
			}
			v, err := newAPIClient().UpdateVisit(cmd.Context(), args[0], st)
			if err != nil {
				return err
			}
			if isJSON() {
				return printJSON(cmd.OutOrStdout(), v)
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Visit %s marked %s\n", v.ID, v.Status.Label())
			return nil
		},
	}
}
