package cli

import (
	"fmt"
	"io"
	"os"
	"sort"
	"strings"
	"time"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/evcraddock/visit-scheduler/internal/client"
	"github.com/evcraddock/visit-scheduler/internal/slot"
)

func newSlotsCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "slots",
		Short: "Manage a property's visit slots",
		Long: `Manage the visit slots of a property you own.

Slot rows are numbered from 1 in "slots list"; "slots edit" uses the same
numbers. "slots list --yaml" writes rows that "slots save" reads back.`,
	}
	cmd.AddCommand(
		newSlotsListCmd(),
		newSlotsGenerateCmd(),
		newSlotsSaveCmd(),
		newSlotsEditCmd(),
		newSlotsDeleteCmd(),
	)
	return cmd
}

func newSlotsListCmd() *cobra.Command {
	var (
		q      client.SlotQuery
		asYAML bool
	)

	cmd := &cobra.Command{
		Use:   "list <property-id>",
		Short: "List visit slots",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePropertyID(args[0])
			if err != nil {
				return err
			}
			slots, err := newAPIClient().ListSlots(cmd.Context(), id, q)
			if err != nil {
				return err
			}

			switch {
			case asYAML:
				drafts := make([]slot.Draft, len(slots))
				for i, s := range slots {
					drafts[i] = slot.DraftOf(s)
				}
				return writeDrafts(cmd.OutOrStdout(), drafts)
			case isJSON():
				return printJSON(cmd.OutOrStdout(), slots)
			default:
				return printSlotTable(cmd.OutOrStdout(), slots)
			}
		},
	}

	cmd.Flags().BoolVar(&q.Bookable, "bookable", false, "only slots that can still be booked")
	cmd.Flags().StringVar(&q.Time, "time", "", "time of day: morning, afternoon or evening")
	cmd.Flags().StringVar(&q.Type, "type", "", "visit type: individual or group")
	cmd.Flags().BoolVar(&asYAML, "yaml", false, "write editable rows as YAML")

	return cmd
}

func newSlotsGenerateCmd() *cobra.Command {
	var (
		req      client.GenerateRequest
		duration time.Duration
		save     bool
	)

	cmd := &cobra.Command{
		Use:   "generate <property-id>",
		Short: "Generate slots for a recurring window",
		Long: `Cuts each selected day's window into back-to-back slots.

Without --save the rows are only printed. With --save they are appended to
the property's existing slots and saved.`,
		Example: `  vs slots generate 3 --from 2030-03-02 --to 2030-03-15 --start 10:00 --end 12:00 --duration 30m --weekdays sat,sun`,
		Args:    cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePropertyID(args[0])
			if err != nil {
				return err
			}
			if duration < time.Minute {
				return fmt.Errorf("duration must be at least one minute, got %s", duration)
			}
			req.DurationMinutes = int(duration / time.Minute)

			api := newAPIClient()
			drafts, err := api.GenerateSlots(cmd.Context(), id, req)
			if err != nil {
				return err
			}

			if !save {
				if isJSON() {
					return printJSON(cmd.OutOrStdout(), drafts)
				}
				return printDraftTable(cmd.OutOrStdout(), drafts)
			}

			existing, err := api.ListSlots(cmd.Context(), id, client.SlotQuery{})
			if err != nil {
				return err
			}
			editor := slot.NewEditor(existing, cliLocation())
			editor.Append(drafts...)
			saved, err := api.SaveSlots(cmd.Context(), id, editor.Slots())
			if err != nil {
				return err
			}
			return printSaved(cmd.OutOrStdout(), saved)
		},
	}

	f := cmd.Flags()
	f.StringVar(&req.From, "from", "", "first date, YYYY-MM-DD")
	f.StringVar(&req.To, "to", "", "last date, inclusive")
	f.StringVar(&req.DayStart, "start", "", "daily start time, HH:MM")
	f.StringVar(&req.DayEnd, "end", "", "daily end time, HH:MM")
	f.DurationVar(&duration, "duration", 30*time.Minute, "length of each slot")
	f.IntVar(&req.Capacity, "capacity", 1, "places per slot")
	f.BoolVar(&req.Group, "group", false, "group visits")
	f.StringSliceVar(&req.Weekdays, "weekdays", nil, "only these weekdays, e.g. sat,sun")
	f.BoolVar(&save, "save", false, "append to existing slots and save")
	for _, name := range []string{"from", "to", "start", "end"} {
		_ = cmd.MarkFlagRequired(name)
	}

	return cmd
}

func newSlotsSaveCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "save <property-id> <file>",
		Short: "Replace a property's slots with rows from a YAML file",
		Long: `Replaces the property's slots with the rows in a YAML file ("-" reads
stdin). Rows with an id update that slot, rows without one are added and
slots missing from the file are deleted. Nothing changes if any row is
invalid.`,
		Args: cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePropertyID(args[0])
			if err != nil {
				return err
			}
			drafts, err := readDrafts(cmd.InOrStdin(), args[1])
			if err != nil {
				return err
			}
			saved, err := newAPIClient().SaveSlots(cmd.Context(), id, drafts)
			if err != nil {
				return err
			}
			return printSaved(cmd.OutOrStdout(), saved)
		},
	}
}

func newSlotsEditCmd() *cobra.Command {
	var (
		add     bool
		row     int
		sets    []string
		removes []int
		dryRun  bool
	)

	cmd := &cobra.Command{
		Use:   "edit <property-id>",
		Short: "Add, change or remove slot rows and save",
		Long: `Edits the property's slots row by row, then saves them all at once.

--add appends a row (today, 09:00-09:30, one place). --set field=value
changes the row chosen by --row, or the added row. Fields: date,
start_time, end_time, max_capacity, is_group_visit, is_available, notes.
--remove deletes rows by number.`,
		Example: `  vs slots edit 3 --add --set date=2030-03-02 --set start_time=18:00 --set end_time=18:30
  vs slots edit 3 --row 2 --set max_capacity=4 --set is_group_visit=true
  vs slots edit 3 --remove 5 --remove 6`,
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePropertyID(args[0])
			if err != nil {
				return err
			}

			api := newAPIClient()
			existing, err := api.ListSlots(cmd.Context(), id, client.SlotQuery{})
			if err != nil {
				return err
			}

			editor := slot.NewEditor(existing, cliLocation())
			if err := applyEdits(editor, add, row, sets, removes); err != nil {
				return err
			}

			if dryRun {
				if isJSON() {
					return printJSON(cmd.OutOrStdout(), editor.Slots())
				}
				return printDraftTable(cmd.OutOrStdout(), editor.Slots())
			}

			saved, err := api.SaveSlots(cmd.Context(), id, editor.Slots())
			if err != nil {
				return err
			}
			return printSaved(cmd.OutOrStdout(), saved)
		},
	}

	cmd.Flags().BoolVar(&add, "add", false, "append a new row")
	cmd.Flags().IntVar(&row, "row", 0, "row number to change")
	cmd.Flags().StringArrayVar(&sets, "set", nil, "field=value to set on the row")
	cmd.Flags().IntSliceVar(&removes, "remove", nil, "row numbers to delete")
	cmd.Flags().BoolVar(&dryRun, "dry-run", false, "print the rows instead of saving")

	return cmd
}

// applyEdits runs the edit flags against the editor. Row numbers are 1-based.
// Removals run last, highest row first, so numbers refer to the listing.
func applyEdits(e *slot.Editor, add bool, row int, sets []string, removes []int) error {
	target := row - 1
	if add {
		idx := e.AddSlot()
		if row == 0 {
			target = idx
		}
	}

	if len(sets) > 0 && target < 0 {
		return fmt.Errorf("--set needs --row or --add")
	}
	for _, kv := range sets {
		field, value, ok := strings.Cut(kv, "=")
		if !ok {
			return fmt.Errorf("invalid --set %q (use field=value)", kv)
		}
		if err := e.UpdateSlot(target, strings.TrimSpace(field), value); err != nil {
			return err
		}
	}

	sorted := append([]int(nil), removes...)
	sort.Sort(sort.Reverse(sort.IntSlice(sorted)))
	for i, n := range sorted {
		if i > 0 && n == sorted[i-1] {
			continue
		}
		if err := e.RemoveSlot(n - 1); err != nil {
			return err
		}
	}
	return nil
}

func newSlotsDeleteCmd() *cobra.Command {
	return &cobra.Command{
		Use:   "delete <property-id> <slot-id>",
		Short: "Delete one slot",
		Long:  "Deletes a slot. Slots with bookings cannot be deleted; mark them unavailable instead.",
		Args:  cobra.ExactArgs(2),
		RunE: func(cmd *cobra.Command, args []string) error {
			id, err := parsePropertyID(args[0])
			if err != nil {
				return err
			}
			if err := newAPIClient().DeleteSlot(cmd.Context(), id, args[1]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "✓ Deleted slot %s\n", args[1])
			return nil
		},
	}
}

func printSaved(out io.Writer, saved []*slot.VisitSlot) error {
	if isJSON() {
		return printJSON(out, saved)
	}
	fmt.Fprintf(out, "✓ Saved %d visit %s\n", len(saved), plural(len(saved), "slot"))
	return printSlotTable(out, saved)
}

// writeDrafts writes slot rows as a YAML list.
func writeDrafts(w io.Writer, drafts []slot.Draft) error {
	enc := yaml.NewEncoder(w)
	enc.SetIndent(2)
	if err := enc.Encode(drafts); err != nil {
		return fmt.Errorf("encoding slots: %w", err)
	}
	return enc.Close()
}

// readDrafts reads a YAML list of slot rows from path, or from stdin when
// path is "-".
func readDrafts(stdin io.Reader, path string) ([]slot.Draft, error) {
	var (
		data []byte
		err  error
	)
	if path == "-" {
		data, err = io.ReadAll(stdin)
	} else {
		data, err = os.ReadFile(path)
	}
	if err != nil {
		return nil, fmt.Errorf("reading slots: %w", err)
	}

	var drafts []slot.Draft
	if err := yaml.Unmarshal(data, &drafts); err != nil {
		return nil, fmt.Errorf("parsing slots: %w", err)
	}
	return drafts, nil
}
