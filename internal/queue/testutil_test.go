package queue

import (
	"context"
	"database/sql"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"
	_ "modernc.org/sqlite"

	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/download/mocks"
	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/library"
	"github.com/vmunix/arrq/internal/migrations"
	"github.com/vmunix/arrq/internal/pending"
	"github.com/vmunix/arrq/internal/quality"
	"github.com/vmunix/arrq/internal/tracked"
)

var t0 = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func setupTestDB(t *testing.T) *sql.DB {
	t.Helper()
	db, err := sql.Open("sqlite", ":memory:")
	require.NoError(t, err)
	db.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = db.Close() })
	require.NoError(t, migrations.Apply(db))
	return db
}

func mockClient(ctrl *gomock.Controller, name string, protocol download.Protocol) *mocks.MockDownloader {
	m := mocks.NewMockDownloader(ctrl)
	m.EXPECT().Name().Return(name).AnyTimes()
	m.EXPECT().Protocol().Return(protocol).AnyTimes()
	return m
}

type recordingBus struct {
	mu     sync.Mutex
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) error {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.events = append(b.events, e)
	return nil
}

func (b *recordingBus) ofType(typ string) []events.Event {
	b.mu.Lock()
	defer b.mu.Unlock()
	var out []events.Event
	for _, e := range b.events {
		if e.EventType() == typ {
			out = append(out, e)
		}
	}
	return out
}

// fakeTracked and fakePending are in-memory snapshot sources.
type fakeTracked []*tracked.TrackedDownload

func (f fakeTracked) Snapshot() []*tracked.TrackedDownload { return f }

type fakePending struct {
	mu       sync.Mutex
	releases map[int64]*pending.Release
}

func newFakePending(releases ...*pending.Release) *fakePending {
	f := &fakePending{releases: make(map[int64]*pending.Release)}
	for _, r := range releases {
		f.releases[r.ID] = r
	}
	return f
}

func (f *fakePending) Snapshot() []*pending.Release {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]*pending.Release, 0, len(f.releases))
	for _, r := range f.releases {
		out = append(out, r)
	}
	return out
}

func (f *fakePending) FindByQueueID(queueID int) (*pending.Release, bool) {
	f.mu.Lock()
	defer f.mu.Unlock()
	r, ok := f.releases[int64(queueID-pending.QueueIDBase)]
	return r, ok
}

func (f *fakePending) Remove(ids ...int64) (int, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, id := range ids {
		if _, ok := f.releases[id]; ok {
			delete(f.releases, id)
			n++
		}
	}
	return n, nil
}

var (
	expanse = library.Series{ID: 7, Title: "The Expanse", SortTitle: "expanse"}
	andor   = library.Series{ID: 9, Title: "Andor", SortTitle: "andor"}
)

func remote(series library.Series, season, number int, q quality.Quality, langs ...quality.Language) *library.RemoteEpisode {
	if len(langs) == 0 {
		langs = []quality.Language{quality.LanguageEnglish}
	}
	return &library.RemoteEpisode{
		Series:    series,
		Episodes:  []library.Episode{{ID: series.ID*100 + int64(number), SeriesID: series.ID, Season: season, Number: number, Title: "Episode"}},
		Quality:   quality.Model{Quality: q, Revision: 1},
		Languages: langs,
	}
}

// dl builds a tracked download snapshot.
func dl(queueID int, title string, size, left int64, added time.Time, timeLeft *time.Duration) *tracked.TrackedDownload {
	return &tracked.TrackedDownload{
		QueueID:        queueID,
		DownloadClient: "sab",
		DownloadID:     title,
		Item: download.ClientItem{
			DownloadID: title,
			Title:      title,
			Status:     download.StatusDownloading,
			Size:       size,
			SizeLeft:   left,
			TimeLeft:   timeLeft,
		},
		Protocol: download.ProtocolUsenet,
		Indexer:  "nzbgeek",
		Remote:   remote(expanse, 1, queueID, quality.WEBDL1080p),
		State:    tracked.StateDownloading,
		Added:    added,
		LastSeen: added,
	}
}

func release(id int64, title string, size int64, added, releaseAt time.Time, reason pending.Reason) *pending.Release {
	return &pending.Release{
		ID:        id,
		Title:     title,
		Indexer:   "nzbgeek",
		Protocol:  download.ProtocolUsenet,
		Size:      size,
		Remote:    *remote(expanse, 1, 1, quality.HDTV720p),
		Reason:    reason,
		Added:     added,
		ReleaseAt: releaseAt,
	}
}

func dur(d time.Duration) *time.Duration { return &d }

func newTestService(tr fakeTracked, pe *fakePending) *Service {
	if pe == nil {
		pe = newFakePending()
	}
	s := NewService(tr, pe, quality.NewRanking(nil, nil), 0, nil, nil)
	s.now = func() time.Time { return t0 }
	return s
}

func ids(items []Item) []int {
	out := make([]int, len(items))
	for i, item := range items {
		out[i] = item.ID
	}
	return out
}
