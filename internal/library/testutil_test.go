package library

import (
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vmunix/arrq/internal/migrations"
)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:?_pragma=foreign_keys(1)")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })

	require.NoError(t, migrations.Apply(db))
	return db
}

// seedSeries adds a series with episodes 1..n of the given season.
func seedSeries(t *testing.T, store *Store, title string, season, n int) (*Series, []Episode) {
	t.Helper()
	s := &Series{Title: title}
	require.NoError(t, store.AddSeries(s))

	var eps []Episode
	for i := 1; i <= n; i++ {
		air := time.Date(2024, 1, i, 0, 0, 0, 0, time.UTC)
		e := &Episode{SeriesID: s.ID, Season: season, Number: i, Title: "Episode " + string(rune('A'+i-1)), AirDateUTC: &air}
		require.NoError(t, store.AddEpisode(e))
		eps = append(eps, *e)
	}
	return s, eps
}
