package visit

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/google/uuid"

	"github.com/evcraddock/visit-scheduler/internal/db"
)

// Repository provides data access for booked visits.
type Repository struct {
	q db.Querier
}

// NewRepository creates a visit repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

const selectColumns = "id, slot_id, application_id, visitor_id, status, created_at, updated_at"

// Add records a scheduled visit for an application.
func (r *Repository) Add(ctx context.Context, slotID, applicationID, visitorID string) (*Visit, error) {
	id := uuid.NewString()
	_, err := r.q.ExecContext(ctx,
		"INSERT INTO visits (id, slot_id, application_id, visitor_id, status) VALUES (?, ?, ?, ?, ?)",
		id, slotID, applicationID, visitorID, Scheduled,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting visit: %w", err)
	}
	return r.Get(ctx, id)
}

// Get returns a visit by id.
func (r *Repository) Get(ctx context.Context, id string) (*Visit, error) {
	var v Visit
	err := r.q.QueryRowContext(ctx,
		"SELECT "+selectColumns+" FROM visits WHERE id = ?", id,
	).Scan(&v.ID, &v.SlotID, &v.ApplicationID, &v.VisitorID, &v.Status, &v.CreatedAt, &v.UpdatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying visit %s: %w", id, err)
	}
	return &v, nil
}

// ListByApplication returns an application's visits, newest first.
func (r *Repository) ListByApplication(ctx context.Context, applicationID string) ([]*Visit, error) {
	return r.list(ctx,
		"SELECT "+selectColumns+" FROM visits WHERE application_id = ? ORDER BY created_at DESC, id",
		applicationID,
	)
}

// ListByProperty returns every visit booked on a property's slots.
func (r *Repository) ListByProperty(ctx context.Context, propertyID int64) ([]*Visit, error) {
	return r.list(ctx,
		`SELECT v.id, v.slot_id, v.application_id, v.visitor_id, v.status, v.created_at, v.updated_at
		FROM visits v
		INNER JOIN visit_slots s ON s.id = v.slot_id
		WHERE s.property_id = ?
		ORDER BY s.date, s.start_time, v.created_at`,
		propertyID,
	)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) (visits []*Visit, err error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing visits: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	visits = []*Visit{}
	for rows.Next() {
		var v Visit
		if err := rows.Scan(&v.ID, &v.SlotID, &v.ApplicationID, &v.VisitorID, &v.Status, &v.CreatedAt, &v.UpdatedAt); err != nil {
			return nil, fmt.Errorf("scanning visit: %w", err)
		}
		visits = append(visits, &v)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visits: %w", err)
	}

	return visits, nil
}

// UpdateStatus records a scheduled visit's outcome. Only scheduled visits
// can change status.
func (r *Repository) UpdateStatus(ctx context.Context, id string, status Status) error {
	if !status.IsValid() || status == Scheduled {
		return fmt.Errorf("invalid visit outcome: %q", status)
	}

	result, err := r.q.ExecContext(ctx,
		"UPDATE visits SET status = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ? AND status = ?",
		status, id, Scheduled,
	)
	if err != nil {
		return fmt.Errorf("updating visit status: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		v, err := r.Get(ctx, id)
		if err != nil {
			return err
		}
		return fmt.Errorf("%w: %s is %s", ErrNotScheduled, id, v.Status)
	}

	return nil
}
