package pending

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"

	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/library"
	"github.com/vmunix/arrq/internal/migrations"
	"github.com/vmunix/arrq/internal/quality"
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

type fixture struct {
	db       *sql.DB
	library  *library.Store
	resolver *library.Resolver
	store    *Store
	series   *library.Series
	episodes []library.Episode
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	db := setupTestDB(t)
	lib := library.NewStore(db)
	series := &library.Series{Title: "Severance"}
	require.NoError(t, lib.AddSeries(series))

	var eps []library.Episode
	for i := 1; i <= 3; i++ {
		e := &library.Episode{SeriesID: series.ID, Season: 1, Number: i, Title: "Episode"}
		require.NoError(t, lib.AddEpisode(e))
		eps = append(eps, *e)
	}

	resolver := library.NewResolver(lib, time.Minute, nil)
	return &fixture{
		db:       db,
		library:  lib,
		resolver: resolver,
		store:    NewStore(db, resolver, nil),
		series:   series,
		episodes: eps,
	}
}

func (f *fixture) release(title string, episodes ...library.Episode) *Release {
	return &Release{
		Title:       title,
		DownloadURL: "https://indexer.example/get/" + title,
		Indexer:     "nzbgeek",
		Protocol:    download.ProtocolUsenet,
		Size:        1 << 30,
		Remote: library.RemoteEpisode{
			Series:    *f.series,
			Episodes:  episodes,
			Quality:   quality.Model{Quality: quality.WEBDL1080p, Revision: 1},
			Languages: []quality.Language{quality.LanguageEnglish},
		},
		Reason: ReasonDelay,
	}
}

type fakeGrabber struct {
	err      error
	requests []download.GrabRequest
}

func (g *fakeGrabber) Grab(_ context.Context, req download.GrabRequest) (*download.Grab, error) {
	if g.err != nil {
		return nil, g.err
	}
	g.requests = append(g.requests, req)
	return &download.Grab{
		ID:         int64(len(g.requests)),
		Client:     "sabnzbd",
		DownloadID: "SABnzbd_nzo_" + req.Title,
		SeriesID:   req.SeriesID,
		EpisodeIDs: req.EpisodeIDs,
		Title:      req.Title,
		Indexer:    req.Indexer,
		Protocol:   req.Protocol,
	}, nil
}

type fakeBlocklist map[string]bool

func (b fakeBlocklist) IsBlocklisted(_ int64, title string) (bool, error) {
	return b[title], nil
}

type recordingBus struct {
	events []events.Event
}

func (b *recordingBus) Publish(_ context.Context, e events.Event) error {
	b.events = append(b.events, e)
	return nil
}
