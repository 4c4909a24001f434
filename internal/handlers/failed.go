package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"github.com/vmunix/arrq/internal/blocklist"
	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/tracked"
)

const defaultFailureMessage = "Manually marked as failed"

// Blocklist is the part of the blocklist store the failure path writes to.
type Blocklist interface {
	Block(e *blocklist.Entry) error
	HasDownload(downloadID string) (bool, error)
}

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// FailedDownloads marks tracked downloads failed and blocklists their release.
type FailedDownloads struct {
	registry  *tracked.Registry
	blocklist Blocklist
	bus       Publisher
	log       *slog.Logger
}

// NewFailedDownloads creates the failed download service.
func NewFailedDownloads(registry *tracked.Registry, bl Blocklist, bus Publisher, log *slog.Logger) *FailedDownloads {
	if log == nil {
		log = slog.Default()
	}
	return &FailedDownloads{
		registry:  registry,
		blocklist: bl,
		bus:       bus,
		log:       log.With("component", "failed-downloads"),
	}
}

// MarkAsFailed moves td to failed from whatever state it is in, writes a
// blocklist entry for its release and announces the failure. A download that
// is already failed is fine; a download id that is already blocklisted is not
// blocklisted twice.
func (s *FailedDownloads) MarkAsFailed(ctx context.Context, td *tracked.TrackedDownload, skipRedownload bool) error {
	key := td.Key()
	if _, err := s.registry.MarkFailed(key); err != nil {
		if !errors.Is(err, tracked.ErrNotFound) {
			return fmt.Errorf("mark %s failed: %w", td.DownloadID, err)
		}
		s.log.Debug("marking untracked download failed", "client", key.Client, "download_id", key.DownloadID)
	}

	message := strings.Join(td.StatusMessages, ", ")
	if message == "" {
		message = td.Item.Message
	}
	if message == "" {
		message = defaultFailureMessage
	}

	entry := &blocklist.Entry{
		SourceTitle: td.Item.Title,
		Protocol:    td.Protocol,
		Indexer:     td.Indexer,
		Message:     message,
		DownloadID:  td.DownloadID,
	}
	if td.Remote != nil {
		entry.SeriesID = td.Remote.Series.ID
		entry.EpisodeIDs = td.Remote.EpisodeIDs()
		entry.Quality = td.Remote.Quality
		entry.Languages = td.Remote.Languages
	}

	exists, err := s.blocklist.HasDownload(td.DownloadID)
	if err != nil {
		return fmt.Errorf("mark %s failed: %w", td.DownloadID, err)
	}
	if !exists {
		if err := s.blocklist.Block(entry); err != nil {
			return fmt.Errorf("mark %s failed: %w", td.DownloadID, err)
		}
	}

	s.log.Info("download marked failed", "client", key.Client, "download_id", key.DownloadID,
		"title", td.Item.Title, "skip_redownload", skipRedownload)

	if s.bus != nil {
		if err := s.bus.Publish(ctx, &events.DownloadFailed{
			BaseEvent:      events.NewBaseEvent(events.EventDownloadFailed, events.EntityDownload, int64(td.QueueID)),
			Client:         key.Client,
			DownloadID:     key.DownloadID,
			Title:          td.Item.Title,
			SeriesID:       entry.SeriesID,
			EpisodeIDs:     entry.EpisodeIDs,
			Message:        message,
			SkipRedownload: skipRedownload,
		}); err != nil {
			s.log.Error("failed to publish download failed event", "error", err)
		}
	}
	return nil
}
