package db

import (
	"database/sql"
	"fmt"
)

// migrations is an ordered list of SQL statements to run.
var migrations = []string{
	`CREATE TABLE IF NOT EXISTS users (
		id         TEXT    PRIMARY KEY,
		email      TEXT    NOT NULL UNIQUE,
		name       TEXT    NOT NULL DEFAULT '',
		role       TEXT    NOT NULL CHECK (role IN ('admin', 'owner', 'tenant')),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS api_keys (
		id           INTEGER  PRIMARY KEY AUTOINCREMENT,
		user_id      TEXT     NOT NULL REFERENCES users(id) ON DELETE CASCADE,
		name         TEXT     NOT NULL,
		key_prefix   TEXT     NOT NULL,
		key_hash     TEXT     NOT NULL UNIQUE,
		created_at   DATETIME DEFAULT CURRENT_TIMESTAMP,
		last_used_at DATETIME
	)`,
	`CREATE TABLE IF NOT EXISTS properties (
		id         INTEGER PRIMARY KEY AUTOINCREMENT,
		title      TEXT    NOT NULL,
		address    TEXT    NOT NULL,
		city       TEXT    NOT NULL DEFAULT '',
		rent_cents INTEGER,
		owner_id   TEXT    NOT NULL REFERENCES users(id),
		created_at DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS visit_slots (
		id               TEXT    PRIMARY KEY,
		property_id      INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		date             TEXT    NOT NULL,
		start_time       TEXT    NOT NULL,
		end_time         TEXT    NOT NULL,
		max_capacity     INTEGER NOT NULL DEFAULT 1 CHECK (max_capacity >= 1),
		current_bookings INTEGER NOT NULL DEFAULT 0,
		is_group_visit   INTEGER NOT NULL DEFAULT 0,
		is_available     INTEGER NOT NULL DEFAULT 1,
		created_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at       DATETIME DEFAULT CURRENT_TIMESTAMP,
		CHECK (current_bookings >= 0 AND current_bookings <= max_capacity),
		CHECK (end_time > start_time)
	)`,
	`CREATE INDEX IF NOT EXISTS visit_slots_property_date
		ON visit_slots (property_id, date, start_time)`,
	`CREATE TABLE IF NOT EXISTS applications (
		id          TEXT    PRIMARY KEY,
		property_id INTEGER NOT NULL REFERENCES properties(id) ON DELETE CASCADE,
		tenant_id   TEXT    NOT NULL REFERENCES users(id),
		status      TEXT    NOT NULL DEFAULT 'pending',
		created_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at  DATETIME DEFAULT CURRENT_TIMESTAMP,
		UNIQUE (property_id, tenant_id)
	)`,
	`CREATE TABLE IF NOT EXISTS application_slots (
		application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		slot_id        TEXT NOT NULL REFERENCES visit_slots(id) ON DELETE CASCADE,
		PRIMARY KEY (application_id, slot_id)
	)`,
	`CREATE TABLE IF NOT EXISTS application_status_events (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		application_id TEXT    NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		from_status    TEXT    NOT NULL,
		to_status      TEXT    NOT NULL,
		actor          TEXT    NOT NULL DEFAULT '',
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	`CREATE TABLE IF NOT EXISTS visits (
		id             TEXT PRIMARY KEY,
		slot_id        TEXT NOT NULL REFERENCES visit_slots(id) ON DELETE CASCADE,
		application_id TEXT NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		visitor_id     TEXT NOT NULL,
		status         TEXT NOT NULL DEFAULT 'scheduled'
			CHECK (status IN ('scheduled', 'completed', 'cancelled', 'no_show')),
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP,
		updated_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
	// At most one live booking per application.
	`CREATE UNIQUE INDEX IF NOT EXISTS visits_one_scheduled
		ON visits (application_id) WHERE status = 'scheduled'`,
	`CREATE TABLE IF NOT EXISTS messages (
		id             INTEGER PRIMARY KEY AUTOINCREMENT,
		application_id TEXT    NOT NULL REFERENCES applications(id) ON DELETE CASCADE,
		author_id      TEXT    NOT NULL DEFAULT '',
		kind           TEXT    NOT NULL DEFAULT 'note',
		text           TEXT    NOT NULL,
		created_at     DATETIME DEFAULT CURRENT_TIMESTAMP
	)`,
}

// migrate runs all migrations in order.
func migrate(db *sql.DB) error {
	for i, m := range migrations {
		if _, err := db.Exec(m); err != nil {
			return fmt.Errorf("migration %d: %w", i, err)
		}
	}

	// Column additions are idempotent: existing columns are skipped
	columnMigrations := []struct {
		table, column, definition string
	}{
		{"visit_slots", "notes", "TEXT NOT NULL DEFAULT ''"},
		{"users", "phone", "TEXT NOT NULL DEFAULT ''"},
	}

	for _, cm := range columnMigrations {
		if err := addColumnIfNotExists(db, cm.table, cm.column, cm.definition); err != nil {
			return fmt.Errorf("adding %s.%s: %w", cm.table, cm.column, err)
		}
	}

	return nil
}

// addColumnIfNotExists adds a column to a table if it doesn't already exist.
func addColumnIfNotExists(db *sql.DB, table, column, definition string) error {
	exists, err := columnExists(db, table, column)
	if err != nil {
		return err
	}
	if exists {
		return nil
	}

	_, err = db.Exec(fmt.Sprintf("ALTER TABLE %s ADD COLUMN %s %s", table, column, definition))
	return err
}

func columnExists(db *sql.DB, table, column string) (found bool, err error) {
	rows, err := db.Query(fmt.Sprintf("PRAGMA table_info(%s)", table))
	if err != nil {
		return false, fmt.Errorf("checking table info: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var cid int
		var name, colType string
		var notNull, pk int
		var dfltValue interface{}
		if err := rows.Scan(&cid, &name, &colType, &notNull, &dfltValue, &pk); err != nil {
			return false, fmt.Errorf("scanning column info: %w", err)
		}
		if name == column {
			return true, nil
		}
	}
	if err := rows.Err(); err != nil {
		return false, fmt.Errorf("iterating columns: %w", err)
	}
	return false, nil
}
