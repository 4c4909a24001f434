package queue

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/mock/gomock"

	"github.com/vmunix/arrq/internal/blocklist"
	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/download/mocks"
	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/handlers"
	"github.com/vmunix/arrq/internal/pending"
	"github.com/vmunix/arrq/internal/quality"
	"github.com/vmunix/arrq/internal/tracked"
)

type removerFixture struct {
	registry  *tracked.Registry
	pending   *fakePending
	blocklist *blocklist.Store
	ignores   *tracked.IgnoreStore
	bus       *recordingBus
	client    *mocks.MockDownloader
	remover   *Remover
}

func newRemoverFixture(t *testing.T, bus handlers.Publisher) *removerFixture {
	t.Helper()
	ctrl := gomock.NewController(t)
	db := setupTestDB(t)

	rec := &recordingBus{}
	if bus == nil {
		bus = rec
	}
	f := &removerFixture{
		registry:  tracked.NewRegistry(tracked.RegistryOptions{GracePeriod: time.Hour}, nil),
		pending:   newFakePending(),
		blocklist: blocklist.NewStore(db),
		ignores:   tracked.NewIgnoreStore(db),
		bus:       rec,
		client:    mockClient(ctrl, "sab", download.ProtocolUsenet),
	}
	f.remover = NewRemover(RemoverDeps{
		Registry:  f.registry,
		Pending:   f.pending,
		Clients:   download.NewProvider(f.client),
		Blocklist: f.blocklist,
		Failed:    handlers.NewFailedDownloads(f.registry, f.blocklist, bus, nil),
		Ignored:   handlers.NewIgnoredDownloads(f.registry, f.ignores, bus, nil),
		Bus:       bus,
	}, nil)
	return f
}

// track adds a downloading item for client and returns its queue id.
func (f *removerFixture) track(t *testing.T, client, id string) int {
	t.Helper()
	f.registry.Apply(client, []tracked.Observation{{
		Item: download.ClientItem{
			DownloadID: id,
			Title:      "The.Expanse.S02E05.1080p.WEB-DL-" + id,
			Status:     download.StatusDownloading,
			Size:       1000,
			SizeLeft:   400,
		},
		Protocol: download.ProtocolUsenet,
		Indexer:  "nzbgeek",
		Remote:   remote(expanse, 2, 5, quality.WEBDL1080p),
	}}, t0)
	td, ok := f.registry.Get(tracked.Key{Client: client, DownloadID: id})
	require.True(t, ok)
	return td.QueueID
}

func (f *removerFixture) blocklistCount(t *testing.T) int {
	t.Helper()
	_, total, err := f.blocklist.List(blocklist.Filter{})
	require.NoError(t, err)
	return total
}

func TestRemover_DecisionTable(t *testing.T) {
	for mask := 0; mask < 16; mask++ {
		opts := RemoveOptions{
			RemoveFromClient: mask&8 != 0,
			ChangeCategory:   mask&4 != 0,
			Blocklist:        mask&2 != 0,
			SkipRedownload:   mask&1 != 0,
		}
		name := fmt.Sprintf("remove=%t,category=%t,blocklist=%t,skip=%t",
			opts.RemoveFromClient, opts.ChangeCategory, opts.Blocklist, opts.SkipRedownload)

		t.Run(name, func(t *testing.T) {
			f := newRemoverFixture(t, nil)
			id := f.track(t, "sab", "nzo_1")
			key := tracked.Key{Client: "sab", DownloadID: "nzo_1"}

			switch {
			case opts.RemoveFromClient:
				f.client.EXPECT().Remove(gomock.Any(), "nzo_1", true).Return(nil)
			case opts.ChangeCategory:
				f.client.EXPECT().MarkImported(gomock.Any(), "nzo_1").Return(nil)
			}

			require.NoError(t, f.remover.Remove(context.Background(), id, opts))

			assert.False(t, f.registry.Has(key), "download stops being tracked")

			wantBlocklist := 0
			if opts.Blocklist {
				wantBlocklist = 1
			}
			assert.Equal(t, wantBlocklist, f.blocklistCount(t))

			ignoreOnly := !opts.RemoveFromClient && !opts.ChangeCategory && !opts.Blocklist
			ignored, err := f.ignores.Has(key)
			require.NoError(t, err)
			assert.Equal(t, ignoreOnly, ignored)

			failed := f.bus.ofType(events.EventDownloadFailed)
			if opts.Blocklist {
				require.Len(t, failed, 1)
				assert.Equal(t, opts.SkipRedownload, failed[0].(*events.DownloadFailed).SkipRedownload)
			} else {
				assert.Empty(t, failed)
			}

			removed := f.bus.ofType(events.EventDownloadRemoved)
			require.Len(t, removed, 1)
			ev := removed[0].(*events.DownloadRemoved)
			assert.Equal(t, opts.RemoveFromClient, ev.RemovedFromClient)
			assert.Equal(t, opts.Blocklist, ev.Blocklisted)
			assert.Len(t, f.bus.ofType(events.EventQueueUpdated), 1)
		})
	}
}

func TestRemover_DecisionForFlags(t *testing.T) {
	tests := []struct {
		opts   RemoveOptions
		client clientAction
		block  bool
		ignore bool
	}{
		{RemoveOptions{}, clientNone, false, true},
		{RemoveOptions{SkipRedownload: true}, clientNone, false, true},
		{RemoveOptions{Blocklist: true}, clientNone, true, false},
		{RemoveOptions{ChangeCategory: true}, clientChangeCategory, false, false},
		{RemoveOptions{RemoveFromClient: true}, clientRemove, false, false},
		{RemoveOptions{RemoveFromClient: true, ChangeCategory: true}, clientRemove, false, false},
		{RemoveOptions{RemoveFromClient: true, ChangeCategory: true, Blocklist: true}, clientRemove, true, false},
		{RemoveOptions{ChangeCategory: true, Blocklist: true, SkipRedownload: true}, clientChangeCategory, true, false},
	}
	for _, tt := range tests {
		d := tt.opts.decision()
		assert.Equal(t, tt.client, d.client, "%+v", tt.opts)
		assert.Equal(t, tt.block, d.blocklist, "%+v", tt.opts)
		assert.Equal(t, tt.ignore, d.ignore, "%+v", tt.opts)
	}
}

func TestRemover_BlocklistOnlySignalsSearch(t *testing.T) {
	bus := events.NewBus(nil, nil)
	defer bus.Close()
	searches := bus.Subscribe(10, events.EventSearchRequested)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	go func() { _ = handlers.NewRedownloadHandler(bus, nil).Start(ctx) }()
	time.Sleep(10 * time.Millisecond)

	f := newRemoverFixture(t, bus)
	id := f.track(t, "sab", "nzo_1")

	require.NoError(t, f.remover.Remove(context.Background(), id, RemoveOptions{Blocklist: true}))

	assert.Equal(t, 1, f.blocklistCount(t))
	assert.False(t, f.registry.Has(tracked.Key{Client: "sab", DownloadID: "nzo_1"}))

	select {
	case e := <-searches:
		ev := e.(*events.SearchRequested)
		assert.Equal(t, expanse.ID, ev.SeriesID)
		assert.Equal(t, []int64{expanse.ID*100 + 5}, ev.EpisodeIDs)
	case <-time.After(time.Second):
		t.Fatal("no replacement search requested")
	}
}

func TestRemover_VanishedClient(t *testing.T) {
	f := newRemoverFixture(t, nil)
	id := f.track(t, "gone", "nzo_1")

	err := f.remover.Remove(context.Background(), id, RemoveOptions{RemoveFromClient: true})
	require.ErrorIs(t, err, ErrClientUnavailable)

	assert.True(t, f.registry.Has(tracked.Key{Client: "gone", DownloadID: "nzo_1"}))
	svc := NewService(f.registry, f.pending, quality.NewRanking(nil, nil), 10, nil, nil)
	page := svc.GetQueue(PagingSpec{}, Filter{})
	assert.Equal(t, []int{id}, ids(page.Records))

	err = f.remover.Remove(context.Background(), id, RemoveOptions{ChangeCategory: true, Blocklist: true})
	require.ErrorIs(t, err, ErrClientUnavailable)
	assert.Zero(t, f.blocklistCount(t))
}

func TestRemover_ClientErrorKeepsTracking(t *testing.T) {
	f := newRemoverFixture(t, nil)
	id := f.track(t, "sab", "nzo_1")
	f.client.EXPECT().Remove(gomock.Any(), "nzo_1", true).Return(fmt.Errorf("sabnzbd sab: %w", download.ErrClientUnavailable))

	err := f.remover.Remove(context.Background(), id, RemoveOptions{RemoveFromClient: true, Blocklist: true})
	require.ErrorIs(t, err, ErrClientUnavailable)

	assert.True(t, f.registry.Has(tracked.Key{Client: "sab", DownloadID: "nzo_1"}))
	assert.Zero(t, f.blocklistCount(t))
	assert.Empty(t, f.bus.ofType(events.EventDownloadRemoved))
}

func TestRemover_NotFound(t *testing.T) {
	f := newRemoverFixture(t, nil)

	err := f.remover.Remove(context.Background(), 12345, RemoveOptions{RemoveFromClient: true})
	assert.ErrorIs(t, err, ErrNotFound)

	err = f.remover.Remove(context.Background(), pending.QueueIDBase+99, RemoveOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemover_Pending(t *testing.T) {
	f := newRemoverFixture(t, nil)
	rel := release(3, "The.Expanse.S01E01.720p.HDTV", 1000, t0, t0.Add(time.Hour), pending.ReasonDelay)
	f.pending.releases[rel.ID] = rel

	// Client flags are meaningless for pending releases; the mock expects no calls.
	err := f.remover.Remove(context.Background(), rel.QueueID(), RemoveOptions{
		RemoveFromClient: true, ChangeCategory: true, Blocklist: true,
	})
	require.NoError(t, err)
	assert.Empty(t, f.pending.Snapshot())

	entries, _, err := f.blocklist.List(blocklist.Filter{})
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, pendingBlocklistMessage, entries[0].Message)
	assert.Equal(t, rel.Title, entries[0].SourceTitle)
	assert.Equal(t, expanse.ID, entries[0].SeriesID)
	assert.Equal(t, quality.HDTV720p, entries[0].Quality.Quality)

	err = f.remover.Remove(context.Background(), rel.QueueID(), RemoveOptions{})
	assert.ErrorIs(t, err, ErrNotFound)
}

func TestRemover_PendingWithoutBlocklist(t *testing.T) {
	f := newRemoverFixture(t, nil)
	rel := release(3, "The.Expanse.S01E01.720p.HDTV", 1000, t0, t0.Add(time.Hour), pending.ReasonDelay)
	f.pending.releases[rel.ID] = rel

	require.NoError(t, f.remover.Remove(context.Background(), rel.QueueID(), RemoveOptions{}))
	assert.Empty(t, f.pending.Snapshot())
	assert.Zero(t, f.blocklistCount(t))
}

func TestRemover_IgnoreIsIdempotent(t *testing.T) {
	f := newRemoverFixture(t, nil)
	id := f.track(t, "sab", "nzo_1")
	key := tracked.Key{Client: "sab", DownloadID: "nzo_1"}

	require.NoError(t, f.remover.Remove(context.Background(), id, RemoveOptions{}))
	assert.False(t, f.registry.Has(key))

	// The download shows up again before the ignore record is consulted.
	id = f.track(t, "sab", "nzo_1")
	require.NoError(t, f.remover.Remove(context.Background(), id, RemoveOptions{}))

	assert.True(t, f.registry.Has(key), "duplicate ignore leaves the download tracked")
	assert.Len(t, f.bus.ofType(events.EventDownloadIgnored), 1)
	assert.Len(t, f.bus.ofType(events.EventDownloadRemoved), 1)
}

func TestRemover_RemoveManyDeduplicates(t *testing.T) {
	f := newRemoverFixture(t, nil)
	id := f.track(t, "sab", "nzo_1")
	rel := release(3, "Pending", 1000, t0, t0.Add(time.Hour), pending.ReasonDelay)
	f.pending.releases[rel.ID] = rel

	f.client.EXPECT().Remove(gomock.Any(), "nzo_1", true).Return(nil).Times(1)

	n, err := f.remover.RemoveMany(context.Background(),
		[]int{id, rel.QueueID(), id, 424242, rel.QueueID()},
		RemoveOptions{RemoveFromClient: true, Blocklist: true, SkipRedownload: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, 2, f.blocklistCount(t), "one entry per release")
	assert.Len(t, f.bus.ofType(events.EventDownloadFailed), 1)
	assert.Len(t, f.bus.ofType(events.EventQueueUpdated), 1)
	assert.False(t, f.registry.Has(tracked.Key{Client: "sab", DownloadID: "nzo_1"}))
	assert.Empty(t, f.pending.Snapshot())
}

func TestRemover_RemoveManySameDownloadOnTwoClients(t *testing.T) {
	f := newRemoverFixture(t, nil)
	ctrl := gomock.NewController(t)
	qbit := mockClient(ctrl, "qbit", download.ProtocolTorrent)
	f.remover.clients = download.NewProvider(f.client, qbit)

	sabID := f.track(t, "sab", "abc123")
	qbitID := f.track(t, "qbit", "abc123")
	require.NotEqual(t, sabID, qbitID)

	// Each client owns its own copy, so each is asked once.
	f.client.EXPECT().Remove(gomock.Any(), "abc123", true).Return(nil).Times(1)
	qbit.EXPECT().Remove(gomock.Any(), "abc123", true).Return(nil).Times(1)

	n, err := f.remover.RemoveMany(context.Background(),
		[]int{sabID, qbitID, qbitID, sabID},
		RemoveOptions{RemoveFromClient: true, Blocklist: true})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	assert.Equal(t, 1, f.blocklistCount(t), "the download id is blocklisted once")
	assert.Len(t, f.bus.ofType(events.EventDownloadFailed), 2)
	assert.False(t, f.registry.Has(tracked.Key{Client: "sab", DownloadID: "abc123"}))
	assert.False(t, f.registry.Has(tracked.Key{Client: "qbit", DownloadID: "abc123"}))
}

func TestRemover_BlocklistImportedDownload(t *testing.T) {
	f := newRemoverFixture(t, nil)
	id := f.track(t, "sab", "nzo_1")
	key := tracked.Key{Client: "sab", DownloadID: "nzo_1"}

	_, err := f.registry.SetState(key, tracked.StateImporting)
	require.NoError(t, err)
	_, err = f.registry.SetState(key, tracked.StateImported)
	require.NoError(t, err)

	f.client.EXPECT().Remove(gomock.Any(), "nzo_1", true).Return(nil).Times(1)

	err = f.remover.Remove(context.Background(), id, RemoveOptions{RemoveFromClient: true, Blocklist: true})
	require.NoError(t, err)

	assert.Equal(t, 1, f.blocklistCount(t))
	assert.Len(t, f.bus.ofType(events.EventDownloadFailed), 1)
	assert.Len(t, f.bus.ofType(events.EventDownloadRemoved), 1)
	assert.False(t, f.registry.Has(key))
}

func TestRemover_RemoveManyContinuesPastFailures(t *testing.T) {
	f := newRemoverFixture(t, nil)
	gone := f.track(t, "gone", "nzo_1")
	ok1 := f.track(t, "sab", "nzo_2")
	ok2 := f.track(t, "sab", "nzo_3")

	f.client.EXPECT().Remove(gomock.Any(), "nzo_2", true).Return(nil)
	f.client.EXPECT().Remove(gomock.Any(), "nzo_3", true).Return(nil)

	n, err := f.remover.RemoveMany(context.Background(), []int{gone, ok1, ok2}, RemoveOptions{RemoveFromClient: true})
	require.ErrorIs(t, err, ErrClientUnavailable)
	assert.Equal(t, 2, n)

	assert.True(t, f.registry.Has(tracked.Key{Client: "gone", DownloadID: "nzo_1"}))
	assert.False(t, f.registry.Has(tracked.Key{Client: "sab", DownloadID: "nzo_2"}))
	assert.False(t, f.registry.Has(tracked.Key{Client: "sab", DownloadID: "nzo_3"}))
}

func TestRemover_ConcurrentRemovalCallsClientOnce(t *testing.T) {
	f := newRemoverFixture(t, nil)
	id := f.track(t, "sab", "nzo_1")

	entered := make(chan struct{})
	unblock := make(chan struct{})
	f.client.EXPECT().Remove(gomock.Any(), "nzo_1", true).DoAndReturn(
		func(context.Context, string, bool) error {
			close(entered)
			<-unblock
			return nil
		}).Times(1)

	var wg sync.WaitGroup
	var first error
	wg.Add(1)
	go func() {
		defer wg.Done()
		first = f.remover.Remove(context.Background(), id, RemoveOptions{RemoveFromClient: true})
	}()

	<-entered
	second := f.remover.Remove(context.Background(), id, RemoveOptions{RemoveFromClient: true})
	close(unblock)
	wg.Wait()

	require.NoError(t, first)
	assert.ErrorIs(t, second, ErrNotFound)

	third := f.remover.Remove(context.Background(), id, RemoveOptions{RemoveFromClient: true})
	assert.ErrorIs(t, third, ErrNotFound)
}
