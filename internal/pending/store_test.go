package pending

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/arrq/internal/quality"
)

func TestStore_Add(t *testing.T) {
	f := newFixture(t)

	r := f.release("Severance.S01E01.1080p.WEB-DL-GRP", f.episodes[0])
	require.NoError(t, f.store.Add(r))
	assert.Positive(t, r.ID)
	assert.Equal(t, QueueIDBase+int(r.ID), r.QueueID())
	assert.False(t, r.Added.IsZero())
	assert.Equal(t, r.Added, r.ReleaseAt)

	snap := f.store.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, r.Title, snap[0].Title)
	assert.Equal(t, f.series.ID, snap[0].Remote.Series.ID)
}

func TestStore_Add_Invalid(t *testing.T) {
	f := newFixture(t)

	err := f.store.Add(&Release{Title: "x"})
	assert.ErrorIs(t, err, ErrInvalidRelease)

	r := f.release("Severance.S01E01", f.episodes[0])
	r.Reason = "bogus"
	assert.ErrorIs(t, f.store.Add(r), ErrInvalidRelease)
}

func TestStore_Add_DuplicateReplacesOlder(t *testing.T) {
	f := newFixture(t)

	first := f.release("Severance.S01E01.1080p.WEB-DL-GRP", f.episodes[0])
	require.NoError(t, f.store.Add(first))

	second := f.release("severance.s01e01.1080p.web-dl-grp", f.episodes[0])
	second.Reason = ReasonFallback
	require.NoError(t, f.store.Add(second))
	assert.NotEqual(t, first.ID, second.ID)

	snap := f.store.Snapshot()
	require.Len(t, snap, 1)
	assert.Equal(t, second.ID, snap[0].ID)
	assert.Equal(t, ReasonFallback, snap[0].Reason)

	var rows int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM pending_releases`).Scan(&rows))
	assert.Equal(t, 1, rows)
}

func TestStore_DifferentEpisodesAreDistinct(t *testing.T) {
	f := newFixture(t)

	require.NoError(t, f.store.Add(f.release("Severance.S01E01", f.episodes[0])))
	require.NoError(t, f.store.Add(f.release("Severance.S01E01", f.episodes[1])))
	assert.Equal(t, 2, f.store.Count())
}

func TestStore_SnapshotIsCopy(t *testing.T) {
	f := newFixture(t)
	require.NoError(t, f.store.Add(f.release("Severance.S01E01", f.episodes[0])))

	snap := f.store.Snapshot()
	snap[0].Title = "changed"
	snap[0].Remote.Episodes[0].Title = "changed"

	again := f.store.Snapshot()
	assert.Equal(t, "Severance.S01E01", again[0].Title)
	assert.Equal(t, "Episode", again[0].Remote.Episodes[0].Title)
}

func TestStore_FindByQueueID(t *testing.T) {
	f := newFixture(t)
	r := f.release("Severance.S01E02", f.episodes[1])
	require.NoError(t, f.store.Add(r))

	got, ok := f.store.FindByQueueID(r.QueueID())
	require.True(t, ok)
	assert.Equal(t, r.ID, got.ID)

	_, ok = f.store.FindByQueueID(int(r.ID))
	assert.False(t, ok, "tracked id range must not resolve to a pending release")
	_, ok = f.store.FindByQueueID(r.QueueID() + 1)
	assert.False(t, ok)
}

func TestStore_Remove(t *testing.T) {
	f := newFixture(t)
	a := f.release("Severance.S01E01", f.episodes[0])
	b := f.release("Severance.S01E02", f.episodes[1])
	require.NoError(t, f.store.Add(a))
	require.NoError(t, f.store.Add(b))

	var counts []int
	f.store.OnChange(func(n int) { counts = append(counts, n) })

	n, err := f.store.Remove(a.ID, a.ID, 9999)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Equal(t, []int{1}, counts)

	n, err = f.store.Remove(9999)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.Equal(t, []int{1}, counts, "no-op removal must not notify")
}

func TestStore_Due(t *testing.T) {
	f := newFixture(t)
	now := time.Now().UTC()

	ready := f.release("Severance.S01E01", f.episodes[0])
	ready.ReleaseAt = now.Add(-time.Minute)
	later := f.release("Severance.S01E02", f.episodes[1])
	later.ReleaseAt = now.Add(time.Hour)
	require.NoError(t, f.store.Add(ready))
	require.NoError(t, f.store.Add(later))

	due := f.store.Due(now)
	require.Len(t, due, 1)
	assert.Equal(t, ready.ID, due[0].ID)
}

func TestStore_Reschedule(t *testing.T) {
	f := newFixture(t)
	r := f.release("Severance.S01E01", f.episodes[0])
	require.NoError(t, f.store.Add(r))

	at := time.Now().UTC().Add(time.Hour).Truncate(time.Second)
	require.NoError(t, f.store.Reschedule(r.ID, at, ReasonDownloadClientUnavailable))

	got, ok := f.store.FindByQueueID(r.QueueID())
	require.True(t, ok)
	assert.Equal(t, ReasonDownloadClientUnavailable, got.Reason)
	assert.True(t, at.Equal(got.ReleaseAt))

	assert.ErrorIs(t, f.store.Reschedule(9999, at, ReasonDelay), ErrNotFound)
}

func TestStore_Load(t *testing.T) {
	f := newFixture(t)
	r := f.release("Severance.S01E01.720p.HDTV-GRP", f.episodes[0], f.episodes[1])
	r.Remote.Quality = quality.Model{Quality: quality.Bluray2160p, Revision: 2}
	r.Remote.Languages = []quality.Language{quality.LanguageFrench, quality.LanguageGerman}
	require.NoError(t, f.store.Add(r))

	reloaded := NewStore(f.db, f.resolver, nil)
	require.NoError(t, reloaded.Load())

	snap := reloaded.Snapshot()
	require.Len(t, snap, 1)
	got := snap[0]
	assert.Equal(t, r.ID, got.ID)
	assert.Equal(t, f.series.Title, got.Remote.Series.Title)
	assert.Equal(t, []int64{f.episodes[0].ID, f.episodes[1].ID}, got.Remote.EpisodeIDs())
	// Stored quality wins over what the title would parse to.
	assert.Equal(t, quality.Bluray2160p, got.Remote.Quality.Quality)
	assert.Equal(t, 2, got.Remote.Quality.Revision)
	assert.Equal(t, []quality.Language{quality.LanguageFrench, quality.LanguageGerman}, got.Remote.Languages)
}

func TestStore_Load_DropsMissingSeries(t *testing.T) {
	f := newFixture(t)
	r := f.release("Severance.S01E01", f.episodes[0])
	r.Remote.Series.ID = 4242
	require.NoError(t, f.store.Add(r))

	reloaded := NewStore(f.db, f.resolver, nil)
	require.NoError(t, reloaded.Load())
	assert.Zero(t, reloaded.Count())

	var rows int
	require.NoError(t, f.db.QueryRow(`SELECT COUNT(*) FROM pending_releases`).Scan(&rows))
	assert.Zero(t, rows)
}
