package message

import (
	"context"
	"fmt"
	"strings"

	"github.com/evcraddock/visit-scheduler/internal/db"
)

// Repository provides data access for application messages.
type Repository struct {
	q db.Querier
}

// NewRepository creates a message repository.
func NewRepository(q db.Querier) *Repository {
	return &Repository{q: q}
}

// Add stores a message on an application.
func (r *Repository) Add(ctx context.Context, applicationID, authorID string, kind Kind, text string) (*Message, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, fmt.Errorf("message text is required")
	}
	if kind == "" {
		kind = KindNote
	}

	result, err := r.q.ExecContext(ctx,
		"INSERT INTO messages (application_id, author_id, kind, text) VALUES (?, ?, ?, ?)",
		applicationID, authorID, kind, text,
	)
	if err != nil {
		return nil, fmt.Errorf("inserting message: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("getting insert id: %w", err)
	}

	var m Message
	err = r.q.QueryRowContext(ctx,
		"SELECT id, application_id, author_id, kind, text, created_at FROM messages WHERE id = ?", id,
	).Scan(&m.ID, &m.ApplicationID, &m.AuthorID, &m.Kind, &m.Text, &m.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("reading back message: %w", err)
	}

	return &m, nil
}

// ListByApplication returns an application's messages, oldest first.
func (r *Repository) ListByApplication(ctx context.Context, applicationID string) (messages []*Message, err error) {
	rows, err := r.q.QueryContext(ctx,
		"SELECT id, application_id, author_id, kind, text, created_at FROM messages WHERE application_id = ? ORDER BY id",
		applicationID,
	)
	if err != nil {
		return nil, fmt.Errorf("listing messages: %w", err)
	}
	defer func() {
		if closeErr := rows.Close(); closeErr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", closeErr)
		}
	}()

	messages = []*Message{}
	for rows.Next() {
		var m Message
		if err := rows.Scan(&m.ID, &m.ApplicationID, &m.AuthorID, &m.Kind, &m.Text, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning message: %w", err)
		}
		messages = append(messages, &m)
	}

	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating messages: %w", err)
	}

	return messages, nil
}
