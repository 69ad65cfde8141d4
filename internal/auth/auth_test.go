package auth

import (
	"context"
	"database/sql"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/evcraddock/visit-scheduler/internal/db"
)

func testDB(t *testing.T) *sql.DB {
	t.Helper()
	path := filepath.Join(t.TempDir(), "test.db")
	d, err := db.Open(path)
	require.NoError(t, err, "open db")
	t.Cleanup(func() {
		require.NoError(t, d.Close())
	})
	return d
}

func testUser(t *testing.T, d *sql.DB, email string, role Role) *User {
	t.Helper()
	u, err := NewUserStore(d).Add(context.Background(), email, "", role)
	require.NoError(t, err)
	return u
}
