package db

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestOpen(t *testing.T) {
	tests := []struct {
		name  string
		setup func(t *testing.T) string
	}{
		{
			name: "creates new database",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "visits.db")
			},
		},
		{
			name: "creates nested directories",
			setup: func(t *testing.T) string {
				return filepath.Join(t.TempDir(), "a", "b", "visits.db")
			},
		},
		{
			name: "opens existing database",
			setup: func(t *testing.T) string {
				path := filepath.Join(t.TempDir(), "visits.db")
				d, err := Open(path)
				require.NoError(t, err, "setup")
				require.NoError(t, d.Close(), "setup close")
				return path
			},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			path := tt.setup(t)
			d, err := Open(path)
			require.NoError(t, err)
			defer func() {
				assert.NoError(t, d.Close())
			}()

			_, err = os.Stat(path)
			assert.False(t, os.IsNotExist(err), "database file was not created")
		})
	}
}

func TestWALMode(t *testing.T) {
	d := openTestDB(t)

	var mode string
	require.NoError(t, d.QueryRow("PRAGMA journal_mode").Scan(&mode))
	assert.Equal(t, "wal", mode)
}

func TestForeignKeys(t *testing.T) {
	d := openTestDB(t)

	var fk int
	require.NoError(t, d.QueryRow("PRAGMA foreign_keys").Scan(&fk))
	assert.Equal(t, 1, fk)
}

func TestMigrations(t *testing.T) {
	tests := []struct {
		table string
		cols  []string
	}{
		{"users", []string{"id", "email", "name", "role", "created_at", "phone"}},
		{"api_keys", []string{"id", "user_id", "name", "key_prefix", "key_hash", "created_at", "last_used_at"}},
		{"properties", []string{"id", "title", "address", "city", "rent_cents", "owner_id", "created_at", "updated_at"}},
		{"visit_slots", []string{"id", "property_id", "date", "start_time", "end_time", "max_capacity", "current_bookings", "is_group_visit", "is_available", "created_at", "updated_at", "notes"}},
		{"applications", []string{"id", "property_id", "tenant_id", "status", "created_at", "updated_at"}},
		{"application_slots", []string{"application_id", "slot_id"}},
		{"application_status_events", []string{"id", "application_id", "from_status", "to_status", "actor", "created_at"}},
		{"visits", []string{"id", "slot_id", "application_id", "visitor_id", "status", "created_at", "updated_at"}},
		{"messages", []string{"id", "application_id", "author_id", "kind", "text", "created_at"}},
	}

	d := openTestDB(t)

	for _, tt := range tests {
		t.Run(tt.table, func(t *testing.T) {
			assert.Equal(t, tt.cols, tableColumns(t, d, tt.table))
		})
	}
}

func TestCapacityConstraint(t *testing.T) {
	d := openTestDB(t)
	propID := insertProperty(t, d)

	insert := `INSERT INTO visit_slots (id, property_id, date, start_time, end_time, max_capacity, current_bookings)
		VALUES (?, ?, '2025-01-10', '09:00', '09:30', ?, ?)`

	tests := []struct {
		name     string
		capacity int
		bookings int
		wantErr  bool
	}{
		{"empty slot", 1, 0, false},
		{"full slot", 2, 2, false},
		{"overbooked", 1, 2, true},
		{"negative bookings", 1, -1, true},
		{"zero capacity", 0, 0, true},
	}

	for i, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := d.Exec(insert, fmt.Sprintf("slot-%d", i), propID, tt.capacity, tt.bookings)
			if tt.wantErr {
				assert.Error(t, err)
				return
			}
			assert.NoError(t, err)
		})
	}
}

func TestTimeRangeConstraint(t *testing.T) {
	d := openTestDB(t)
	propID := insertProperty(t, d)

	_, err := d.Exec(
		`INSERT INTO visit_slots (id, property_id, date, start_time, end_time) VALUES ('s1', ?, '2025-01-10', '10:00', '09:30')`,
		propID,
	)
	assert.Error(t, err, "end before start must be rejected")
}

func TestCascadeDelete(t *testing.T) {
	d := openTestDB(t)
	propID := insertProperty(t, d)

	for i := 0; i < 3; i++ {
		_, err := d.Exec(
			`INSERT INTO visit_slots (id, property_id, date, start_time, end_time) VALUES (?, ?, '2025-01-10', ?, ?)`,
			fmt.Sprintf("slot-%d", i), propID, fmt.Sprintf("1%d:00", i), fmt.Sprintf("1%d:30", i),
		)
		require.NoError(t, err)
	}

	var count int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM visit_slots WHERE property_id = ?`, propID).Scan(&count))
	require.Equal(t, 3, count)

	_, err := d.Exec(`DELETE FROM properties WHERE id = ?`, propID)
	require.NoError(t, err)

	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM visit_slots WHERE property_id = ?`, propID).Scan(&count))
	assert.Equal(t, 0, count)
}

func TestOneScheduledVisitPerApplication(t *testing.T) {
	d := openTestDB(t)
	propID := insertProperty(t, d)

	stmts := []string{
		`INSERT INTO users (id, email, role) VALUES ('tenant-1', 'tenant@example.com', 'tenant')`,
		fmt.Sprintf(`INSERT INTO visit_slots (id, property_id, date, start_time, end_time, max_capacity) VALUES ('slot-1', %d, '2025-01-10', '09:00', '09:30', 5)`, propID),
		fmt.Sprintf(`INSERT INTO applications (id, property_id, tenant_id) VALUES ('app-1', %d, 'tenant-1')`, propID),
		`INSERT INTO visits (id, slot_id, application_id, visitor_id) VALUES ('v1', 'slot-1', 'app-1', 'tenant-1')`,
	}
	for _, s := range stmts {
		_, err := d.Exec(s)
		require.NoError(t, err, s)
	}

	_, err := d.Exec(`INSERT INTO visits (id, slot_id, application_id, visitor_id) VALUES ('v2', 'slot-1', 'app-1', 'tenant-1')`)
	assert.Error(t, err, "second scheduled visit must be rejected")

	_, err = d.Exec(`INSERT INTO visits (id, slot_id, application_id, visitor_id, status) VALUES ('v3', 'slot-1', 'app-1', 'tenant-1', 'cancelled')`)
	assert.NoError(t, err, "cancelled visits do not count")
}

func TestMigrationsIdempotent(t *testing.T) {
	path := filepath.Join(t.TempDir(), "visits.db")

	d1, err := Open(path)
	require.NoError(t, err, "first open")
	require.NoError(t, d1.Close())

	d2, err := Open(path)
	require.NoError(t, err, "second open (idempotency)")
	require.NoError(t, d2.Close())
}

func TestInTx(t *testing.T) {
	d := openTestDB(t)
	ctx := context.Background()

	err := InTx(ctx, d, func(tx *sql.Tx) error {
		_, err := tx.Exec(`INSERT INTO users (id, email, role) VALUES ('u1', 'kept@example.com', 'owner')`)
		return err
	})
	require.NoError(t, err)

	boom := errors.New("boom")
	err = InTx(ctx, d, func(tx *sql.Tx) error {
		if _, err := tx.Exec(`INSERT INTO users (id, email, role) VALUES ('u2', 'dropped@example.com', 'owner')`); err != nil {
			return err
		}
		return boom
	})
	require.ErrorIs(t, err, boom)

	var count int
	require.NoError(t, d.QueryRow(`SELECT COUNT(*) FROM users`).Scan(&count))
	assert.Equal(t, 1, count, "rolled back insert must not persist")
}

func TestDefaultPath(t *testing.T) {
	p, err := DefaultPath()
	require.NoError(t, err)

	assert.Equal(t, "visits.db", filepath.Base(p))
	assert.Equal(t, ".visit-scheduler", filepath.Base(filepath.Dir(p)))
}

// openTestDB creates a temporary database for testing.
func openTestDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "visits.db")
	d, err := Open(path)
	require.NoError(t, err, "open test db")
	t.Cleanup(func() {
		assert.NoError(t, d.Close())
	})
	return d
}

func insertProperty(t *testing.T, d *sql.DB) int64 {
	t.Helper()
	_, err := d.Exec(`INSERT OR IGNORE INTO users (id, email, role) VALUES ('owner-1', 'owner@example.com', 'owner')`)
	require.NoError(t, err)

	res, err := d.Exec(`INSERT INTO properties (title, address, owner_id) VALUES ('T2 Belleville', '12 rue de Belleville', 'owner-1')`)
	require.NoError(t, err)
	id, err := res.LastInsertId()
	require.NoError(t, err)
	return id
}

// tableColumns returns column names for a table using PRAGMA table_info.
func tableColumns(t *testing.T, d *sql.DB, table string) []string {
	t.Helper()
	rows, err := d.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	require.NoError(t, err)
	defer func() {
		assert.NoError(t, rows.Close())
	}()

	var cols []string
	for rows.Next() {
		var cid int
		var name, typ string
		var notnull int
		var dflt *string
		var pk int
		require.NoError(t, rows.Scan(&cid, &name, &typ, &notnull, &dflt, &pk))
		cols = append(cols, name)
	}
	return cols
}
