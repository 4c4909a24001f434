package tracked

import (
	"database/sql"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vmunix/arrq/internal/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Apply(db))
	return db
}

func TestIgnoreStore(t *testing.T) {
	s := NewIgnoreStore(setupTestDB(t))
	key := Key{"sab", "nzo_1"}

	has, err := s.Has(key)
	require.NoError(t, err)
	assert.False(t, has)

	require.NoError(t, s.Add(key, "Show.S01E01"))
	has, err = s.Has(key)
	require.NoError(t, err)
	assert.True(t, has)

	assert.ErrorIs(t, s.Add(key, "Show.S01E01"), ErrDuplicate)

	other, err := s.Has(Key{"qbit", "nzo_1"})
	require.NoError(t, err)
	assert.False(t, other)
}
