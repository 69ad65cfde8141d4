package cli

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/evcraddock/visit-scheduler/internal/application"
	"github.com/evcraddock/visit-scheduler/internal/auth"
	"github.com/evcraddock/visit-scheduler/internal/message"
	"github.com/evcraddock/visit-scheduler/internal/property"
	"github.com/evcraddock/visit-scheduler/internal/slot"
	"github.com/evcraddock/visit-scheduler/internal/visit"
)

// printJSON marshals v as indented JSON and writes it to w.
func printJSON(w io.Writer, v interface{}) error {
	enc := json.NewEncoder(w)
	enc.SetIndent("", "  ")
	return enc.Encode(v)
}

// printPropertySummary prints a single property summary in text format.
func printPropertySummary(w io.Writer, p *property.Property) {
	fmt.Fprintf(w, "Property #%d\n", p.ID)
	fmt.Fprintf(w, "  Title:    %s\n", p.Title)
	fmt.Fprintf(w, "  Address:  %s\n", p.Address)
	if p.City != "" {
		fmt.Fprintf(w, "  City:     %s\n", p.City)
	}
	if p.RentCents != nil {
		fmt.Fprintf(w, "  Rent:     %s\n", p.Rent())
	}
}

// printPropertyTable prints a list of properties as a formatted table.
func printPropertyTable(out io.Writer, props []*property.Property) error {
	if len(props) == 0 {
		fmt.Fprintln(out, "No properties found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tTITLE\tADDRESS\tCITY\tRENT")
	for _, p := range props {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s\t%s\n",
			p.ID,
			truncate(p.Title, 30),
			truncate(p.Address, 40),
			p.City,
			dash(p.Rent()),
		)
	}
	return w.Flush()
}

// printSlotTable prints slots with 1-based row numbers, the same numbering
// "slots edit" uses.
func printSlotTable(out io.Writer, slots []*slot.VisitSlot) error {
	if len(slots) == 0 {
		fmt.Fprintln(out, "No visit slots.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tID\tDATE\tTIME\tTYPE\tBOOKED\tOPEN\tNOTES")
	for i, s := range slots {
		fmt.Fprintf(w, "%d\t%s\t%s\t%s-%s\t%s\t%d/%d\t%s\t%s\n",
			i+1,
			shortID(s.ID),
			s.Date,
			s.StartTime, s.EndTime,
			s.Kind(),
			s.CurrentBookings, s.MaxCapacity,
			yesNo(s.IsAvailable),
			truncate(s.Notes, 30),
		)
	}
	return w.Flush()
}

// printDraftTable prints unsaved slot rows.
func printDraftTable(out io.Writer, drafts []slot.Draft) error {
	if len(drafts) == 0 {
		fmt.Fprintln(out, "No visit slots.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "#\tDATE\tTIME\tTYPE\tCAPACITY\tOPEN")
	for i, d := range drafts {
		kind := slot.KindIndividual
		if d.IsGroupVisit {
			kind = slot.KindGroup
		}
		fmt.Fprintf(w, "%d\t%s\t%s-%s\t%s\t%d\t%s\n",
			i+1, d.Date, d.StartTime, d.EndTime, kind, d.MaxCapacity, yesNo(d.IsAvailable))
	}
	return w.Flush()
}

// printDateGroups prints bookable slots grouped by date. Collapsed groups
// show only their slot count unless all is set.
func printDateGroups(out io.Writer, groups []slot.DateGroup, all bool) {
	if len(groups) == 0 {
		fmt.Fprintln(out, "No bookable visit slots.")
		return
	}
	for _, g := range groups {
		if !g.Expanded && !all {
			fmt.Fprintf(out, "%s  (%d %s, use --all to show)\n", g.Date, len(g.Slots), plural(len(g.Slots), "slot"))
			continue
		}
		fmt.Fprintln(out, g.Date)
		for _, s := range g.Slots {
			fmt.Fprintf(out, "  %s  %s-%s  %-10s  %d left\n", s.ID, s.StartTime, s.EndTime, s.Kind(), s.Remaining())
		}
	}
}

// printApplicationTable prints applications as a formatted table.
func printApplicationTable(out io.Writer, apps []*application.Application) error {
	if len(apps) == 0 {
		fmt.Fprintln(out, "No applications found.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tPROPERTY\tTENANT\tSTATUS\tUPDATED")
	for _, a := range apps {
		fmt.Fprintf(w, "%s\t%d\t%s\t%s\t%s\n",
			a.ID, a.PropertyID, shortID(a.TenantID), a.Status.Label(), a.UpdatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// printApplicationSummary prints one application and where it can go next.
func printApplicationSummary(w io.Writer, a *application.Application) {
	fmt.Fprintf(w, "Application %s\n", a.ID)
	fmt.Fprintf(w, "  Property: #%d\n", a.PropertyID)
	fmt.Fprintf(w, "  Status:   %s\n", a.Status.Label())
	if next := a.Status.Next(); len(next) > 0 {
		names := make([]string, len(next))
		for i, s := range next {
			names[i] = string(s)
		}
		fmt.Fprintf(w, "  Next:     %s\n", strings.Join(names, ", "))
	}
}

// printHistory prints the status changes of an application, oldest first.
func printHistory(out io.Writer, events []application.StatusEvent) {
	if len(events) == 0 {
		fmt.Fprintln(out, "No status changes yet.")
		return
	}
	for _, e := range events {
		from := "(new)"
		if e.From != "" {
			from = e.From.Label()
		}
		fmt.Fprintf(out, "%s  %s → %s  by %s\n",
			e.CreatedAt.Format("2006-01-02 15:04"), from, e.To.Label(), shortID(e.Actor))
	}
}

// printMessages prints the messages of an application.
func printMessages(out io.Writer, msgs []*message.Message) {
	for _, m := range msgs {
		fmt.Fprintf(out, "\n[%s] %s (%s):\n", m.CreatedAt.Format("2006-01-02 15:04"), shortID(m.AuthorID), m.Kind)
		for _, line := range strings.Split(m.Text, "\n") {
			fmt.Fprintf(out, "  %s\n", line)
		}
	}
}

// printVisitTable prints booked visits.
func printVisitTable(out io.Writer, visits []*visit.Visit) error {
	if len(visits) == 0 {
		fmt.Fprintln(out, "No visits booked.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tSLOT\tSTATUS\tBOOKED")
	for _, v := range visits {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", v.ID, v.SlotID, v.Status.Label(), v.CreatedAt.Format("2006-01-02 15:04"))
	}
	return w.Flush()
}

// printKeyTable prints API keys without their secrets.
func printKeyTable(out io.Writer, keys []auth.APIKey) error {
	if len(keys) == 0 {
		fmt.Fprintln(out, "No API keys.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tNAME\tPREFIX\tCREATED\tLAST USED")
	for _, k := range keys {
		last := "never"
		if k.LastUsedAt != nil {
			last = k.LastUsedAt.Format("2006-01-02 15:04")
		}
		fmt.Fprintf(w, "%d\t%s\t%s…\t%s\t%s\n", k.ID, k.Name, k.KeyPrefix, k.CreatedAt.Format("2006-01-02"), last)
	}
	return w.Flush()
}

// printUserTable prints registered users.
func printUserTable(out io.Writer, users []*auth.User) error {
	if len(users) == 0 {
		fmt.Fprintln(out, "No users.")
		return nil
	}

	w := tabwriter.NewWriter(out, 0, 0, 2, ' ', 0)
	fmt.Fprintln(w, "ID\tEMAIL\tNAME\tROLE")
	for _, u := range users {
		fmt.Fprintf(w, "%s\t%s\t%s\t%s\n", u.ID, u.Email, dash(u.Name), u.Role)
	}
	return w.Flush()
}

func truncate(s string, max int) string {
	if len([]rune(s)) <= max {
		return s
	}
	return string([]rune(s)[:max-1]) + "…"
}

func shortID(id string) string {
	if len(id) > 8 {
		return id[:8]
	}
	return id
}

func dash(s string) string {
	if s == "" {
		return "-"
	}
	return s
}

func yesNo(b bool) string {
	if b {
		return "yes"
	}
	return "no"
}

func plural(n int, word string) string {
	if n == 1 {
		return word
	}
	return word + "s"
}
