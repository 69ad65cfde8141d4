package slot

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/google/uuid"

	"github.com/evcraddock/visit-scheduler/internal/db"
)

// Repository provides data access for visit slots. It works on a plain
// database handle or inside a transaction.
type Repository struct {
	q db.Querier
}

// NewRepository creates a slot repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

const selectColumns = `id, property_id, date, start_time, end_time, max_capacity, current_bookings,
	is_group_visit, is_available, notes, created_at, updated_at`

// ListByProperty returns a property's slots ordered by date and start time.
func (r *Repository) ListByProperty(ctx context.Context, propertyID int64) ([]*VisitSlot, error) {
	query := fmt.Sprintf(`SELECT %s FROM visit_slots WHERE property_id = ?
		ORDER BY date, start_time, id`, selectColumns)
	return r.list(ctx, query, propertyID)
}

// ListByIDs returns the slots with the given ids, ordered by date and start
// time. Unknown ids are skipped.
func (r *Repository) ListByIDs(ctx context.Context, ids []string) ([]*VisitSlot, error) {
	if len(ids) == 0 {
		return []*VisitSlot{}, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	query := fmt.Sprintf(`SELECT %s FROM visit_slots WHERE id IN (%s)
		ORDER BY date, start_time, id`, selectColumns, placeholders)
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return r.list(ctx, query, args...)
}

func (r *Repository) list(ctx context.Context, query string, args ...any) (slots []*VisitSlot, err error) {
	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing visit slots: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	slots = []*VisitSlot{}
	for rows.Next() {
		s, err := scanSlot(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning visit slot: %w", err)
		}
		slots = append(slots, s)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating visit slots: %w", err)
	}
	return slots, nil
}

// Get returns a slot by id.
func (r *Repository) Get(ctx context.Context, id string) (*VisitSlot, error) {
	query := fmt.Sprintf("SELECT %s FROM visit_slots WHERE id = ?", selectColumns)
	s, err := scanSlot(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying visit slot %s: %w", id, err)
	}
	return s, nil
}

// Replace makes the property's slots match drafts: rows with an id are
// updated, rows without one are inserted and persisted slots missing from
// drafts are deleted. Drafts must already be validated. Run it inside a
// transaction so a failure leaves the slots untouched.
func (r *Repository) Replace(ctx context.Context, propertyID int64, drafts []Draft) ([]*VisitSlot, error) {
	existing, err := r.ListByProperty(ctx, propertyID)
	if err != nil {
		return nil, err
	}
	byID := make(map[string]*VisitSlot, len(existing))
	for _, s := range existing {
		byID[s.ID] = s
	}

	kept := make(map[string]bool, len(drafts))
	for _, d := range drafts {
		if d.ID == "" {
			if _, err := r.insert(ctx, propertyID, d); err != nil {
				return nil, err
			}
			continue
		}
		cur, ok := byID[d.ID]
		if !ok {
			return nil, fmt.Errorf("%w: %s is not a slot of property %d", ErrNotFound, d.ID, propertyID)
		}
		if err := checkBooked(cur, d); err != nil {
			return nil, err
		}
		if err := r.write(ctx, d); err != nil {
			return nil, err
		}
		kept[d.ID] = true
	}

	for _, s := range existing {
		if kept[s.ID] {
			continue
		}
		if err := r.Delete(ctx, s.ID); err != nil {
			return nil, err
		}
	}

	return r.ListByProperty(ctx, propertyID)
}

// Insert adds validated drafts to a property without touching existing slots.
func (r *Repository) Insert(ctx context.Context, propertyID int64, drafts []Draft) ([]*VisitSlot, error) {
	out := make([]*VisitSlot, 0, len(drafts))
	for _, d := range drafts {
		s, err := r.insert(ctx, propertyID, d)
		if err != nil {
			return nil, err
		}
		out = append(out, s)
	}
	return out, nil
}

func (r *Repository) insert(ctx context.Context, propertyID int64, d Draft) (*VisitSlot, error) {
	id := uuid.NewString()
	_, err := r.q.ExecContext(ctx, `INSERT INTO visit_slots
		(id, property_id, date, start_time, end_time, max_capacity, is_group_visit, is_available, notes)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		id, propertyID, d.Date, d.StartTime, d.EndTime, d.MaxCapacity,
		d.IsGroupVisit, d.IsAvailable, d.Notes,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting visit slot: %w", err)
	}
	return r.Get(ctx, id)
}

// checkBooked refuses edits that would strand the visitors already booked
// into cur: a capacity below their count or a new date or time.
func checkBooked(cur *VisitSlot, d Draft) error {
	if cur.CurrentBookings == 0 {
		return nil
	}
	if d.MaxCapacity < cur.CurrentBookings {
		return fmt.Errorf("%w: slot %s has %d bookings", ErrCapacityBelowBookings, cur.ID, cur.CurrentBookings)
	}
	if d.Date != cur.Date || d.StartTime != cur.StartTime || d.EndTime != cur.EndTime {
		return fmt.Errorf("%w: slot %s on %s at %s has %d bookings",
			ErrBookedSlotMoved, cur.ID, cur.Date, cur.StartTime, cur.CurrentBookings)
	}
	return nil
}

// write stores every editable field of d. The WHERE clause repeats the
// checkBooked rules against the stored row, so bookings that landed since
// the read still hold.
func (r *Repository) write(ctx context.Context, d Draft) error {
	result, err := r.q.ExecContext(ctx, `UPDATE visit_slots
		SET date = ?, start_time = ?, end_time = ?, max_capacity = ?,
			is_group_visit = ?, is_available = ?, notes = ?, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND current_bookings <= ?
			AND (current_bookings = 0 OR (date = ? AND start_time = ? AND end_time = ?))`,
		d.Date, d.StartTime, d.EndTime, d.MaxCapacity,
		d.IsGroupVisit, d.IsAvailable, d.Notes,
		d.ID, d.MaxCapacity,
		d.Date, d.StartTime, d.EndTime,
	)
	if err != nil {
		return fmt.Errorf("updating visit slot %s: %w", d.ID, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		cur, err := r.Get(ctx, d.ID)
		if err != nil {
			return err
		}
		if err := checkBooked(cur, d); err != nil {
			return err
		}
		return fmt.Errorf("%w: slot %s", ErrCapacityBelowBookings, d.ID)
	}
	return nil
}

// Patch is a partial slot update. Nil fields are left unchanged.
type Patch struct {
	Date         *string `json:"date,omitempty"`
	StartTime    *string `json:"start_time,omitempty"`
	EndTime      *string `json:"end_time,omitempty"`
	MaxCapacity  *int    `json:"max_capacity,omitempty"`
	IsGroupVisit *bool   `json:"is_group_visit,omitempty"`
	IsAvailable  *bool   `json:"is_available,omitempty"`
	Notes        *string `json:"notes,omitempty"`
}

// Apply returns d with the patch's non-nil fields set.
func (p Patch) Apply(d Draft) Draft {
	if p.Date != nil {
		d.Date = *p.Date
	}
	if p.StartTime != nil {
		d.StartTime = *p.StartTime
	}
	if p.EndTime != nil {
		d.EndTime = *p.EndTime
	}
	if p.MaxCapacity != nil {
		d.MaxCapacity = *p.MaxCapacity
	}
	if p.IsGroupVisit != nil {
		d.IsGroupVisit = *p.IsGroupVisit
	}
	if p.IsAvailable != nil {
		d.IsAvailable = *p.IsAvailable
	}
	if p.Notes != nil {
		d.Notes = *p.Notes
	}
	return d
}

// Update applies a patch to one slot. The result is validated together with
// the property's other slots so the edit cannot introduce an overlap.
func (r *Repository) Update(ctx context.Context, id string, patch Patch) (*VisitSlot, error) {
	cur, err := r.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	siblings, err := r.ListByProperty(ctx, cur.PropertyID)
	if err != nil {
		return nil, err
	}

	drafts := make([]Draft, 0, len(siblings))
	target := -1
	for _, s := range siblings {
		d := DraftOf(s)
		if s.ID == id {
			d = patch.Apply(d)
			target = len(drafts)
		}
		drafts = append(drafts, d)
	}
	if target < 0 {
		return nil, fmt.Errorf("%w: %s", ErrNotFound, id)
	}

	valid, err := Validate(drafts)
	if err != nil {
		return nil, err
	}
	updated := valid[target]
	if err := checkBooked(cur, updated); err != nil {
		return nil, err
	}
	if err := r.write(ctx, updated); err != nil {
		return nil, err
	}
	return r.Get(ctx, id)
}

// Delete removes a slot that has no bookings.
func (r *Repository) Delete(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx,
		"DELETE FROM visit_slots WHERE id = ? AND current_bookings = 0", id)
	if err != nil {
		return fmt.Errorf("deleting visit slot %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrHasBookings, id)
	}
	return nil
}

// Book takes one place in a slot. The increment only applies while the slot
// is available and below capacity, so concurrent bookings never overfill it.
func (r *Repository) Book(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE visit_slots
		SET current_bookings = current_bookings + 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND is_available = 1 AND current_bookings < max_capacity`, id)
	if err != nil {
		return fmt.Errorf("booking visit slot %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 1 {
		return nil
	}

	s, err := r.Get(ctx, id)
	if err != nil {
		return err
	}
	if !s.IsAvailable {
		return fmt.Errorf("%w: %s", ErrUnavailable, id)
	}
	return fmt.Errorf("%w: %s", ErrFull, id)
}

// Release gives back one place in a slot.
func (r *Repository) Release(ctx context.Context, id string) error {
	result, err := r.q.ExecContext(ctx, `UPDATE visit_slots
		SET current_bookings = current_bookings - 1, updated_at = CURRENT_TIMESTAMP
		WHERE id = ? AND current_bookings > 0`, id)
	if err != nil {
		return fmt.Errorf("releasing visit slot %s: %w", id, err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if n == 0 {
		if _, err := r.Get(ctx, id); err != nil {
			return err
		}
		return fmt.Errorf("%w: %s", ErrNoBookings, id)
	}
	return nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanSlot(s scanner) (*VisitSlot, error) {
	var v VisitSlot
	err := s.Scan(
		&v.ID, &v.PropertyID, &v.Date, &v.StartTime, &v.EndTime,
		&v.MaxCapacity, &v.CurrentBookings, &v.IsGroupVisit, &v.IsAvailable,
		&v.Notes, &v.CreatedAt, &v.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
