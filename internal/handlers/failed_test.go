package handlers

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/vmunix/arrq/internal/blocklist"
	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/quality"
	"github.com/vmunix/arrq/internal/tracked"
)

func TestFailedDownloads_MarkAsFailed(t *testing.T) {
	f := newFixture(t)
	ch := f.bus.Subscribe(10, events.EventDownloadFailed)
	td := f.track(t, "nzo_1", download.StatusDownloading, expanse())

	require.NoError(t, f.failed.MarkAsFailed(context.Background(), td, false))

	got, _ := f.registry.Get(td.Key())
	assert.Equal(t, tracked.StateFailed, got.State)

	entries, total, err := f.blocklist.List(blocklist.Filter{})
	require.NoError(t, err)
	require.Equal(t, 1, total)
	e := entries[0]
	assert.Equal(t, int64(7), e.SeriesID)
	assert.Equal(t, []int64{70}, e.EpisodeIDs)
	assert.Equal(t, td.Item.Title, e.SourceTitle)
	assert.Equal(t, quality.WEBDL1080p, e.Quality.Quality)
	assert.Equal(t, download.ProtocolUsenet, e.Protocol)
	assert.Equal(t, "nzbgeek", e.Indexer)
	assert.Equal(t, "Manually marked as failed", e.Message)
	assert.Equal(t, "nzo_1", e.DownloadID)

	ev := receive(t, ch).(*events.DownloadFailed)
	assert.Equal(t, "nzo_1", ev.DownloadID)
	assert.Equal(t, int64(7), ev.SeriesID)
	assert.False(t, ev.SkipRedownload)
}

func TestFailedDownloads_AlreadyFailedBlocklistsOnce(t *testing.T) {
	f := newFixture(t)
	td := f.track(t, "nzo_1", download.StatusFailed, expanse())
	td.StatusMessages = []string{"CRC error"}

	require.NoError(t, f.failed.MarkAsFailed(context.Background(), td, true))
	require.NoError(t, f.failed.MarkAsFailed(context.Background(), td, true))

	entries, total, err := f.blocklist.List(blocklist.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
	assert.Equal(t, "CRC error", entries[0].Message)
}

func TestFailedDownloads_UnmatchedDownload(t *testing.T) {
	f := newFixture(t)
	td := f.track(t, "nzo_2", download.StatusDownloading, nil)

	require.NoError(t, f.failed.MarkAsFailed(context.Background(), td, false))

	entries, _, err := f.blocklist.List(blocklist.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Zero(t, entries[0].SeriesID)
}

func TestFailedDownloads_ImportedCanBeMarkedFailed(t *testing.T) {
	f := newFixture(t)
	td := f.track(t, "nzo_3", download.StatusCompleted, expanse())
	_, err := f.registry.SetState(td.Key(), tracked.StateImported)
	require.NoError(t, err)

	require.NoError(t, f.failed.MarkAsFailed(context.Background(), td, false))

	got, ok := f.registry.Get(td.Key())
	require.True(t, ok)
	assert.Equal(t, tracked.StateFailed, got.State)

	_, total, err := f.blocklist.List(blocklist.Filter{})
	require.NoError(t, err)
	assert.Equal(t, 1, total)
}
