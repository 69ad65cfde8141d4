package property

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"

	"github.com/evcraddock/visit-scheduler/internal/db"
)

// Repository provides CRUD operations for properties.
type Repository struct {
	q db.Querier
}

// NewRepository creates a property repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

const selectColumns = `id, title, address, city, rent_cents, owner_id, created_at, updated_at`

// Insert adds a new property and returns it with its generated ID.
func (r *Repository) Insert(ctx context.Context, p *Property) (*Property, error) {
	if strings.TrimSpace(p.Title) == "" || strings.TrimSpace(p.Address) == "" {
		return nil, fmt.Errorf("%w: title and address are required", ErrInvalid)
	}
	if p.RentCents != nil && *p.RentCents < 0 {
		return nil, fmt.Errorf("%w: rent cannot be negative", ErrInvalid)
	}

	result, err := r.q.ExecContext(ctx,
		"INSERT INTO properties (title, address, city, rent_cents, owner_id) VALUES (?, ?, ?, ?, ?)",
		strings.TrimSpace(p.Title), strings.TrimSpace(p.Address), strings.TrimSpace(p.City), p.RentCents, p.OwnerID,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting property: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	return r.GetByID(ctx, id)
}

// GetByID returns a property by its ID.
func (r *Repository) GetByID(ctx context.Context, id int64) (*Property, error) {
	query := fmt.Sprintf("SELECT %s FROM properties WHERE id = ?", selectColumns)
	p, err := scanProperty(r.q.QueryRowContext(ctx, query, id))
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("%w: %d", ErrNotFound, id)
	}
	if err != nil {
		return nil, fmt.Errorf("querying property %d: %w", id, err)
	}

	return p, nil
}

// ListOptions controls filtering for List.
type ListOptions struct {
	OwnerID string // empty = all owners
	City    string // case-insensitive, empty = all
}

// List returns properties, newest first, optionally filtered.
func (r *Repository) List(ctx context.Context, opts ListOptions) (properties []*Property, err error) {
	query := fmt.Sprintf("SELECT %s FROM properties", selectColumns)
	var args []any
	var conditions []string

	if opts.OwnerID != "" {
		conditions = append(conditions, "owner_id = ?")
		args = append(args, opts.OwnerID)
	}
	if opts.City != "" {
		conditions = append(conditions, "city = ? COLLATE NOCASE")
		args = append(args, opts.City)
	}

	if len(conditions) > 0 {
		query += " WHERE " + strings.Join(conditions, " AND ")
	}
	query += " ORDER BY created_at DESC, id DESC"

	rows, err := r.q.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("listing properties: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	properties = []*Property{}
	for rows.Next() {
		p, err := scanProperty(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning property: %w", err)
		}
		properties = append(properties, p)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating properties: %w", err)
	}

	return properties, nil
}

// Delete removes a property by ID. Slots, applications and visits cascade.
func (r *Repository) Delete(ctx context.Context, id int64) error {
	result, err := r.q.ExecContext(ctx, "DELETE FROM properties WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting property: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", ErrNotFound, id)
	}

	return nil
}
