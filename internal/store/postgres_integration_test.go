//go:build postgres_integration

package store

import (
	"os"
	"testing"

	"github.com/stretchr/testify/require"
)

func TestPostgresStore(t *testing.T) {
	dsn := os.Getenv("DATABASE_URL")
	if dsn == "" {
		t.Skip("DATABASE_URL not set; skipping integration test")
	}
	runStoreSuite(t, func(t *testing.T) Store {
		p, err := NewPostgres(t.Context(), dsn)
		require.NoError(t, err)
		require.NoError(t, p.Migrate(t.Context()))
		_, err = p.db.ExecContext(t.Context(), `TRUNCATE documents`)
		require.NoError(t, err)
		t.Cleanup(func() { _ = p.Close() })
		return p
	})
}
