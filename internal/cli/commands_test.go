package cli

import (
	"encoding/json"
	"net/http/httptest"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"testing"
	"time"

	"github.com/evcraddock/visit-scheduler/internal/application"
	"github.com/evcraddock/visit-scheduler/internal/db"
	"github.com/evcraddock/visit-scheduler/internal/property"
	"github.com/evcraddock/visit-scheduler/internal/scheduling"
	"github.com/evcraddock/visit-scheduler/internal/slot"
	"github.com/evcraddock/visit-scheduler/internal/visit"
	"github.com/evcraddock/visit-scheduler/internal/web"
)

// cliEnv is an API server on a temp database plus API keys created through
// the direct-database commands.
type cliEnv struct {
	dbPath string
	keys   map[string]string
}

func newCLIEnv(t *testing.T) *cliEnv {
	t.Helper()
	dir := t.TempDir()
	t.Setenv("HOME", dir)
	t.Setenv("VS_CONFIG", "")

	e := &cliEnv{dbPath: filepath.Join(dir, "vs.db"), keys: map[string]string{}}
	for email, role := range map[string]string{"owner@example.com": "owner", "tenant@example.com": "tenant"} {
		if _, err := executeCommand("users", "add", email, "--role", role, "--db", e.dbPath); err != nil {
			t.Fatalf("users add %s: %v", email, err)
		}
		out, err := executeCommand("--format", "json", "keys", "create", "cli-test", "--user", email, "--db", e.dbPath)
		if err != nil {
			t.Fatalf("keys create %s: %v", email, err)
		}
		var created struct {
			Key string `json:"key"`
		}
		if err := json.Unmarshal([]byte(out), &created); err != nil {
			t.Fatalf("decoding key: %v\n%s", err, out)
		}
		e.keys[role] = created.Key
	}

	database, err := db.Open(e.dbPath)
	if err != nil {
		t.Fatalf("open db: %v", err)
	}
	t.Cleanup(func() { _ = database.Close() })

	svc := scheduling.NewService(database, scheduling.Options{Location: time.UTC})
	srv := httptest.NewServer(web.NewServer(database, web.Options{Service: svc}))
	t.Cleanup(srv.Close)
	t.Setenv("VS_SERVER_URL", srv.URL)
	return e
}

// run executes a command as the given role and fails the test on error.
func (e *cliEnv) run(t *testing.T, as string, args ...string) string {
	t.Helper()
	t.Setenv("VS_API_KEY", e.keys[as])
	out, err := executeCommand(args...)
	if err != nil {
		t.Fatalf("vs %s: %v\n%s", strings.Join(args, " "), err, out)
	}
	return out
}

func decodeOutput(t *testing.T, out string, v interface{}) {
	t.Helper()
	if err := json.Unmarshal([]byte(out), v); err != nil {
		t.Fatalf("decoding output: %v\n%s", err, out)
	}
}

func TestUsersAndKeysCommands(t *testing.T) {
	e := newCLIEnv(t)

	out, err := executeCommand("users", "list", "--db", e.dbPath)
	if err != nil {
		t.Fatalf("users list: %v", err)
	}
	if !strings.Contains(out, "owner@example.com") || !strings.Contains(out, "tenant") {
		t.Errorf("users list = %q", out)
	}

	_, err = executeCommand("users", "add", "owner@example.com", "--db", e.dbPath)
	if err == nil || !strings.Contains(err.Error(), "already exists") {
		t.Errorf("duplicate user err = %v", err)
	}

	out, err = executeCommand("keys", "list", "--user", "owner@example.com", "--db", e.dbPath)
	if err != nil {
		t.Fatalf("keys list: %v", err)
	}
	if !strings.Contains(out, "cli-test") || strings.Contains(out, e.keys["owner"]) {
		t.Errorf("keys list = %q, want name without secret", out)
	}
}

func TestVisitSchedulingThroughCLI(t *testing.T) {
	e := newCLIEnv(t)

	var prop property.Property
	decodeOutput(t, e.run(t, "owner", "--format", "json", "properties", "add", "T2 Belleville", "12 rue de Belleville", "--city", "Paris", "--rent", "1250"), &prop)
	if prop.RentCents == nil || *prop.RentCents != 125000 {
		t.Fatalf("rent = %v, want 125000 cents", prop.RentCents)
	}
	pid := strconv.FormatInt(prop.ID, 10)

	out := e.run(t, "owner", "slots", "generate", pid,
		"--from", "2099-03-07", "--to", "2099-03-08", "--start", "10:00", "--end", "11:00", "--duration", "30m", "--save")
	if !strings.Contains(out, "Saved 4 visit slots") {
		t.Fatalf("generate --save = %q", out)
	}

	e.run(t, "owner", "slots", "edit", pid, "--row", "1", "--set", "max_capacity=2", "--set", "is_group_visit=true")
	e.run(t, "owner", "slots", "edit", pid, "--remove", "4")

	var slots []*slot.VisitSlot
	decodeOutput(t, e.run(t, "owner", "--format", "json", "slots", "list", pid), &slots)
	if len(slots) != 3 {
		t.Fatalf("got %d slots, want 3", len(slots))
	}
	if slots[0].MaxCapacity != 2 || !slots[0].IsGroupVisit {
		t.Errorf("edited row = %+v", slots[0])
	}

	var app application.Application
	decodeOutput(t, e.run(t, "tenant", "--format", "json", "apply", pid), &app)
	if app.Status != application.Pending {
		t.Fatalf("status = %s, want pending", app.Status)
	}

	out = e.run(t, "owner", "propose", app.ID, slots[0].ID, slots[2].ID, "-m", "Bring your ID")
	if !strings.Contains(out, "Proposed 2 visit slots") {
		t.Errorf("propose = %q", out)
	}

	var groups []slot.DateGroup
	decodeOutput(t, e.run(t, "tenant", "--format", "json", "available", app.ID), &groups)
	if len(groups) != 2 {
		t.Fatalf("got %d date groups, want 2", len(groups))
	}

	var booked visit.Visit
	decodeOutput(t, e.run(t, "tenant", "--format", "json", "choose", app.ID, slots[2].ID), &booked)
	if booked.SlotID != slots[2].ID || booked.Status != visit.Scheduled {
		t.Errorf("visit = %+v", booked)
	}

	out = e.run(t, "owner", "history", app.ID)
	for _, want := range []string{"Pending → Visit proposed", "Visit proposed → Visit scheduled", "Bring your ID"} {
		if !strings.Contains(out, want) {
			t.Errorf("history missing %q:\n%s", want, out)
		}
	}

	out = e.run(t, "owner", "visit-status", booked.ID, "completed")
	if !strings.Contains(out, "marked Completed") {
		t.Errorf("visit-status = %q", out)
	}
	out = e.run(t, "owner", "advance", app.ID, "selected")
	if !strings.Contains(out, "Selected") {
		t.Errorf("advance = %q", out)
	}

	out = e.run(t, "owner", "applications", "--property", pid)
	if !strings.Contains(out, app.ID) {
		t.Errorf("applications = %q", out)
	}

	xlsx := filepath.Join(t.TempDir(), "schedule.xlsx")
	e.run(t, "owner", "export", pid, "-o", xlsx)
	data, err := os.ReadFile(xlsx)
	if err != nil {
		t.Fatalf("reading export: %v", err)
	}
	if !strings.HasPrefix(string(data), "PK") {
		t.Errorf("export is not an xlsx archive")
	}
}

func TestCLIReportsServerErrors(t *testing.T) {
	e := newCLIEnv(t)

	t.Setenv("VS_API_KEY", e.keys["tenant"])
	_, err := executeCommand("properties", "add", "T1", "1 rue Oberkampf")
	if err == nil || !strings.Contains(err.Error(), "may not") {
		t.Errorf("tenant adding property: err = %v, want role error", err)
	}

	t.Setenv("VS_API_KEY", "")
	_, err = executeCommand("properties", "list")
	if err == nil {
		t.Error("expected error without an API key")
	}
}
