package application

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/evcraddock/visit-scheduler/internal/db"
)

// Repository provides data access for applications, their proposed slots
// and their status history.
type Repository struct {
	q db.Querier
}

// NewRepository creates an application repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

const selectColumns = `id, property_id, tenant_id, status, created_at, updated_at`

// Create files a pending application for a tenant.
func (r *Repository) Create(ctx context.Context, propertyID int64, tenantID string) (*Application, error) {
	id := uuid.NewString()
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO applications (id, property_id, tenant_id, status) VALUES (?, ?, ?, ?)",
		id, propertyID, tenantID, Pending,
	)
	if err != nil {
		if strings.Contains(err.Error(), "UNIQUE constraint failed") {
			return nil, fmt.Errorf("%w: property %d", ErrDuplicate, propertyID)
		}
		return nil, fmt.Errorf("inserting application: %w", err)
	}
	return r.Get(ctx, id)
}

// Get returns an application by id.
func (r *Repository) Get(ctx context.Context, id string) (*Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE id = ?", selectColumns)
	a, err := scanApplication(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying application %s: %w", id, err)
	}
	return a, nil
}

// ListByProperty returns a property's applications, oldest first.
func (r *Repository) ListByProperty(ctx context.Context, propertyID int64) ([]*Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE property_id = ? ORDER BY created_at, id", selectColumns)
	return r.list(ctx, query, propertyID)
}

// ListByTenant returns a tenant's applications, newest first.
func (r *Repository) ListByTenant(ctx context.Context, tenantID string) ([]*Application, error) {
	query := fmt.Sprintf("SELECT %s FROM applications WHERE tenant_id = ? ORDER BY created_at DESC, id", selectColumns)
	return r.list(ctx, query, tenantID)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) (apps []*Application, err error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing applications: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	apps = []*Application{}
	for rows.Next() {
		a, err := scanApplication(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning application: %w", err)
		}
		apps = append(apps, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating applications: %w", err)
	}
	return apps, nil
}

// Transition moves an application from one status to another and records
// the change. The update only applies if the stored status is still from;
// otherwise ErrStaleStatus is returned and nothing is written.
func (r *Repository) Transition(ctx context.Context, id string, from, to Status, actor string) error {
	if err := CheckTransition(from, to); err != nil {
		return err
	}

	result, err := r.q.ExecContext(ctx,
		"UPDATE applications SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?",
		to, id, from,
	)
	if err != nil {
		return fmt.Errorf("updating application status: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		cur, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s is %s, expected %s", ErrStaleStatus, id, cur.Status, from)
	}

	_, err = r.q.ExecContext(ctx,
		"INSERT INTO application_status_events (application_id, from_status, to_status, actor) VALUES (?, ?, ?, ?)",
		id, from, to, actor,
	)
	if err != nil {
		return fmt.Errorf("recording status change: %w", err)
	}
	return nil
}

// History returns an application's status changes, oldest first.
func (r *Repository) History(ctx context.Context, id string) (events []StatusEvent, err error) {
	rows, err := r.q.QueryContext(ctx,
		`SELECT id, application_id, from_status, to_status, actor, created_at
		FROM application_status_events WHERE application_id = ? ORDER BY id`, id)
	if err != nil {
		return nil, fmt.Errorf("listing status history: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	events = []StatusEvent{}
	for rows.Next() {
		var e StatusEvent
		if err := rows.Scan(&e.ID, &e.ApplicationID, &e.From, &e.To, &e.Actor, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning status event: %w", err)
		}
		events = append(events, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating status history: %w", err)
	}
	return events, nil
}

// SetProposedSlots replaces the set of slots offered to the tenant.
func (r *Repository) SetProposedSlots(ctx context.Context, id string, slotIDs []string) error {
	if _, err := r.q.ExecContext(ctx, "DELETE FROM application_slots WHERE application_id = ?", id); err != nil {
		return fmt.Errorf("clearing proposed slots: %w", err)
	}
	for _, slotID := range slotIDs {
		_, err := r.q.ExecContext(ctx,
			"INSERT OR IGNORE INTO application_slots (application_id, slot_id) VALUES (?, ?)",
			id, slotID,
		)
		if err != nil {
			return fmt.Errorf("storing proposed slot %s: %w", slotID, err)
		}
	}
	return nil
}

// ProposedSlotIDs returns the ids of the slots offered to the tenant.
func (r *Repository) ProposedSlotIDs(ctx context.Context, id string) (ids []string, err error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT slot_id FROM application_slots WHERE application_id = ? ORDER BY slot_id", id)
	if err != nil {
		return nil, fmt.Errorf("listing proposed slots: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	ids = []string{}
	for rows.Next() {
		var slotID string
		if err := rows.Scan(&slotID); err != nil {
			return nil, fmt.Errorf("scanning proposed slot: %w", err)
		}
		ids = append(ids, slotID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating proposed slots: %w", err)
	}
	return ids, nil
}

// IsProposed reports whether slotID was offered on the application.
func (r *Repository) IsProposed(ctx context.Context, id, slotID string) (bool, error) {
	var n int
	err := r.q.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM application_slots WHERE application_id = ? AND slot_id = ?",
		id, slotID,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("checking proposed slot: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanApplication(s scanner) (*Application, error) {
	var a Application
	if err := s.Scan(&a.ID, &a.PropertyID, &a.TenantID, &a.Status, &a.CreatedAt, &a.UpdatedAt); err != nil {
		return nil, err
	}
	return &a, nil
}
