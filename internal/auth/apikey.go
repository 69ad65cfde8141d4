package auth

import (
	"context"
	"crypto/rand"
	"crypto/sha256"
	"database/sql"
	"encoding/hex"
	"errors"
	"fmt"
	"strings"
	"time"
)

const (
	apiKeyBytes  = 32 // 256-bit keys
	apiKeyPrefix = "vs_"
)

// ErrKeyNotFound is returned when no key matches the id for that user.
var ErrKeyNotFound = errors.New("api key not found")

// APIKey is the stored representation of an API key (no raw key).
type APIKey struct {
	ID         int64      `json:"id"`
	UserID     string     `json:"user_id"`
	Name       string     `json:"name"`
	KeyPrefix  string     `json:"key_prefix"` // first 8 chars for identification
	CreatedAt  time.Time  `json:"created_at"`
	LastUsedAt *time.Time `json:"last_used_at,omitempty"`
}

// APIKeyStore manages API keys in SQLite.
type APIKeyStore struct {
	db *sql.DB
}

// NewAPIKeyStore creates an API key store.
func NewAPIKeyStore(db *sql.DB) *APIKeyStore {
	return &APIKeyStore{db: db}
}

// IsAPIKey reports whether a bearer token looks like an API key rather than a JWT.
func IsAPIKey(token string) bool {
	return strings.HasPrefix(token, apiKeyPrefix)
}

// Create generates a new API key owned by userID.
// Returns the raw key (shown once to user) and the stored record.
func (s *APIKeyStore) Create(ctx context.Context, name, userID string) (string, *APIKey, error) {
	raw, err := generateAPIKey()
	if err != nil {
		return "", nil, fmt.Errorf("generating key: %w", err)
	}

	prefix := raw[:8]
	hash := hashAPIKey(raw)

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO api_keys (user_id, name, key_prefix, key_hash) VALUES (?, ?, ?, ?)",
		userID, name, prefix, hash,
	)
	if err != nil {
		return "", nil, fmt.Errorf("storing key: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return "", nil, fmt.Errorf("getting key id: %w", err)
	}

	key := &APIKey{
		ID:        id,
		UserID:    userID,
		Name:      name,
		KeyPrefix: prefix,
		CreatedAt: time.Now(),
	}

	return raw, key, nil
}

// List returns the API keys owned by userID (without the raw key).
func (s *APIKeyStore) List(ctx context.Context, userID string) (keys []APIKey, err error) {
	rows, err := s.db.QueryContext(ctx,
		"SELECT id, user_id, name, key_prefix, created_at, last_used_at FROM api_keys WHERE user_id = ? ORDER BY created_at DESC, id DESC",
		userID,
	)
	if err != nil {
		return nil, fmt.Errorf("querying keys: %w", err)
	}
	defer func() {
		if cerr := rows.Close(); cerr != nil && err == nil {
			err = fmt.Errorf("closing rows: %w", cerr)
		}
	}()

	for rows.Next() {
		var k APIKey
		if err := rows.Scan(&k.ID, &k.UserID, &k.Name, &k.KeyPrefix, &k.CreatedAt, &k.LastUsedAt); err != nil {
			return nil, fmt.Errorf("scanning key: %w", err)
		}
		keys = append(keys, k)
	}

	return keys, rows.Err()
}

// Delete removes an API key by ID, scoped to its owner.
func (s *APIKeyStore) Delete(ctx context.Context, id int64, userID string) error {
	result, err := s.db.ExecContext(ctx, "DELETE FROM api_keys WHERE id = ? AND user_id = ?", id, userID)
	if err != nil {
		return fmt.Errorf("deleting key: %w", err)
	}

	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("checking affected rows: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%w: %d", ErrKeyNotFound, id)
	}

	return nil
}

// Validate checks a raw API key against stored hashes and returns the key's
// owner. ok is false for unknown keys. last_used_at is updated on success.
func (s *APIKeyStore) Validate(ctx context.Context, rawKey string) (p Principal, ok bool, err error) {
	hash := hashAPIKey(rawKey)

	var role string
	err = s.db.QueryRowContext(ctx,
		`SELECT u.id, u.email, u.role FROM api_keys k
		 JOIN users u ON u.id = k.user_id
		 WHERE k.key_hash = ?`,
		hash,
	).Scan(&p.UserID, &p.Email, &role)
	if err == sql.ErrNoRows {
		return Principal{}, false, nil
	}
	if err != nil {
		return Principal{}, false, fmt.Errorf("validating key: %w", err)
	}
	p.Role = Role(role)

	if _, err := s.db.ExecContext(ctx,
		"UPDATE api_keys SET last_used_at = ? WHERE key_hash = ?",
		time.Now(), hash,
	); err != nil {
		return Principal{}, false, fmt.Errorf("touching key: %w", err)
	}

	return p, true, nil
}

func generateAPIKey() (string, error) {
	b := make([]byte, apiKeyBytes)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return apiKeyPrefix + hex.EncodeToString(b), nil
}

func hashAPIKey(key string) string {
	h := sha256.Sum256([]byte(key))
	return hex.EncodeToString(h[:])
}
