// Package auth provides users, roles and bearer-token authentication.
package auth

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
)

// Role is what a user is allowed to do.
type Role string

const (
	RoleAdmin  Role = "admin"
	RoleOwner  Role = "owner"
	RoleTenant Role = "tenant"
)

// IsValid checks if a role is recognized.
func (r Role) IsValid() bool {
	switch r {
	case RoleAdmin, RoleOwner, RoleTenant:
		return true
	}
	return false
}

// ErrUserNotFound is returned when no user matches.
var ErrUserNotFound = errors.New("user not found")

// ErrUserExists is returned when adding an email that is already registered.
var ErrUserExists = errors.New("user already exists")

// User represents a registered user.
type User struct {
	ID        string    `json:"id"`
	Email     string    `json:"email"`
	Name      string    `json:"name"`
	Phone     string    `json:"phone,omitempty"`
	Role      Role      `json:"role"`
	CreatedAt time.Time `json:"created_at"`
}

// Principal returns the identity carried through request contexts.
func (u *User) Principal() Principal {
	return Principal{UserID: u.ID, Email: u.Email, Role: u.Role}
}

// UserStore manages users in SQLite.
type UserStore struct {
	db *sql.DB
}

// NewUserStore creates a user store.
func NewUserStore(db *sql.DB) *UserStore {
	return &UserStore{db: db}
}

const userColumns = "id, email, name, phone, role, created_at"

// Add creates a new user with the given role.
func (s *UserStore) Add(ctx context.Context, email, name string, role Role) (*User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	name = strings.TrimSpace(name)

	if email == "" {
		return nil, fmt.Errorf("email is required")
	}
	if !role.IsValid() {
		return nil, fmt.Errorf("invalid role: %q", role)
	}

	id := uuid.NewString()
	if _, err := s.db.ExecContext(ctx,
		"INSERT INTO users (id, email, name, role) VALUES (?, ?, ?, ?)",
		id, email, name, string(role),
	); err != nil {
		if strings.Contains(err.Error(), "UNIQUE") {
			return nil, fmt.Errorf("%w: %s", ErrUserExists, email)
		}
		return nil, fmt.Errorf("adding user: %w", err)
	}

	return s.GetByID(ctx, id)
}

// EnsureAdmin makes sure the given email exists with the admin role.
// An empty email is a no-op.
func (s *UserStore) EnsureAdmin(ctx context.Context, email string) error {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" {
		return nil
	}

	u, err := s.GetByEmail(ctx, email)
	if errors.Is(err, ErrUserNotFound) {
		_, err = s.Add(ctx, email, "", RoleAdmin)
		return err
	}
	if err != nil {
		return err
	}
	if u.Role == RoleAdmin {
		return nil
	}

	if _, err := s.db.ExecContext(ctx, "UPDATE users SET role = ? WHERE id = ?", string(RoleAdmin), u.ID); err != nil {
		return fmt.Errorf("promoting %s to admin: %w", email, err)
	}
	return nil
}

// List returns all users ordered by email.
func (s *UserStore) List(ctx context.Context) (users []*User, err error) {
	rows, err := s.db.QueryContext(ctx, "SELECT "+userColumns+" FROM users ORDER BY email")
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		u, err := scanUser(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, u)
	}

	return users, rows.Err()
}

// GetByID returns a user by ID.
func (s *UserStore) GetByID(ctx context.Context, id string) (*User, error) {
	row := s.db.QueryRowContext(ctx, "SELECT "+userColumns+" FROM users WHERE id = ?", id)
	return getUser(row)
}

// GetByEmail returns a user by email (case-insensitive).
func (s *UserStore) GetByEmail(ctx context.Context, email string) (*User, error) {
	row := s.db.QueryRowContext(ctx,
		"SELECT "+userColumns+" FROM users WHERE LOWER(email) = ?",
		strings.ToLower(strings.TrimSpace(email)),
	)
	return getUser(row)
}

// Delete removes a user by ID.
func (s *UserStore) Delete(ctx context.Context, id string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM users WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("deleting user: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return ErrUserNotFound
	}

	return nil
}

func getUser(row *sql.Row) (*User, error) {
	u, err := scanUser(row)
	if err == sql.ErrNoRows {
		return nil, ErrUserNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("querying user: %w", err)
	}
	return u, nil
}

func scanUser(row interface{ Scan(...interface{}) error }) (*User, error) {
	var u User
	var role string
	if err := row.Scan(&u.ID, &u.Email, &u.Name, &u.Phone, &role, &u.CreatedAt); err != nil {
		return nil, err
	}
	u.Role = Role(role)
	return &u, nil
}
