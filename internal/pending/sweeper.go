package pending

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/events"
)

// Grabber sends a release to a download client.
type Grabber interface {
	Grab(ctx context.Context, req download.GrabRequest) (*download.Grab, error)
}

// BlocklistChecker reports whether a release title was blocklisted for a series.
type BlocklistChecker interface {
	IsBlocklisted(seriesID int64, sourceTitle string) (bool, error)
}

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// Sweeper grabs pending releases once they are due.
type Sweeper struct {
	store      *Store
	grabber    Grabber
	blocklist  BlocklistChecker
	bus        Publisher
	retryDelay time.Duration
	log        *slog.Logger
}

// NewSweeper creates a sweeper. Releases whose client is unavailable are retried after retryDelay.
func NewSweeper(store *Store, grabber Grabber, blocklist BlocklistChecker, bus Publisher, retryDelay time.Duration, log *slog.Logger) *Sweeper {
	if log == nil {
		log = slog.Default()
	}
	if retryDelay <= 0 {
		retryDelay = 5 * time.Minute
	}
	return &Sweeper{
		store:      store,
		grabber:    grabber,
		blocklist:  blocklist,
		bus:        bus,
		retryDelay: retryDelay,
		log:        log.With("component", "pending-sweeper"),
	}
}

// Sweep processes every release due at now and returns how many were grabbed.
// A failure on one release does not stop the others.
func (s *Sweeper) Sweep(ctx context.Context, now time.Time) (int, error) {
	due := s.store.Due(now)
	if len(due) == 0 {
		return 0, nil
	}
	s.log.Debug("sweeping pending releases", "due", len(due))

	var errs []error
	grabbed := 0
	for _, r := range due {
		if ctx.Err() != nil {
			break
		}
		ok, err := s.process(ctx, r, now)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			grabbed++
		}
	}
	return grabbed, errors.Join(errs...)
}

// GrabNow sends the release exposed under queueID to a client immediately.
func (s *Sweeper) GrabNow(ctx context.Context, queueID int) error {
	r, ok := s.store.FindByQueueID(queueID)
	if !ok {
		return fmt.Errorf("grab pending %d: %w", queueID, ErrNotFound)
	}
	return s.grab(ctx, r)
}

func (s *Sweeper) process(ctx context.Context, r *Release, now time.Time) (bool, error) {
	blocked, err := s.blocklist.IsBlocklisted(r.Remote.Series.ID, r.Title)
	if err != nil {
		return false, fmt.Errorf("check blocklist for %q: %w", r.Title, err)
	}
	if blocked {
		s.log.Info("dropping blocklisted pending release", "title", r.Title, "series_id", r.Remote.Series.ID)
		_, err := s.store.Remove(r.ID)
		return false, err
	}

	err = s.grab(ctx, r)
	if errors.Is(err, download.ErrClientUnavailable) {
		s.log.Warn("download client unavailable, retrying later", "title", r.Title, "retry_at", now.Add(s.retryDelay))
		return false, s.store.Reschedule(r.ID, now.Add(s.retryDelay), ReasonDownloadClientUnavailable)
	}
	if err != nil {
		return false, err
	}
	return true, nil
}

func (s *Sweeper) grab(ctx context.Context, r *Release) error {
	g, err := s.grabber.Grab(ctx, download.GrabRequest{
		URL:        r.DownloadURL,
		Title:      r.Title,
		Indexer:    r.Indexer,
		Protocol:   r.Protocol,
		SeriesID:   r.Remote.Series.ID,
		EpisodeIDs: r.Remote.EpisodeIDs(),
		Quality:    r.Remote.Quality,
		Languages:  r.Remote.Languages,
	})
	if err != nil {
		return fmt.Errorf("grab pending %q: %w", r.Title, err)
	}
	if _, err := s.store.Remove(r.ID); err != nil {
		return err
	}

	s.log.Info("pending release grabbed", "title", r.Title, "client", g.Client, "download_id", g.DownloadID)
	if s.bus != nil {
		_ = s.bus.Publish(ctx, &events.DownloadGrabbed{
			BaseEvent:  events.NewBaseEvent(events.EventDownloadGrabbed, events.EntityDownload, g.ID),
			Client:     g.Client,
			DownloadID: g.DownloadID,
			Title:      g.Title,
			Indexer:    g.Indexer,
			SeriesID:   g.SeriesID,
			EpisodeIDs: g.EpisodeIDs,
		})
	}
	return nil
}
