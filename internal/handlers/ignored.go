package handlers

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/tracked"
)

// IgnoredDownloads records downloads the user no longer wants tracked.
type IgnoredDownloads struct {
	registry *tracked.Registry
	ignores  *tracked.IgnoreStore
	bus      Publisher
	log      *slog.Logger
}

// NewIgnoredDownloads creates the ignored download service.
func NewIgnoredDownloads(registry *tracked.Registry, ignores *tracked.IgnoreStore, bus Publisher, log *slog.Logger) *IgnoredDownloads {
	if log == nil {
		log = slog.Default()
	}
	return &IgnoredDownloads{
		registry: registry,
		ignores:  ignores,
		bus:      bus,
		log:      log.With("component", "ignored-downloads"),
	}
}

// Ignore records td as ignored. It returns false without error when the
// download was already ignored, in which case nothing else happens.
func (s *IgnoredDownloads) Ignore(ctx context.Context, td *tracked.TrackedDownload) (bool, error) {
	key := td.Key()
	if err := s.ignores.Add(key, td.Item.Title); err != nil {
		if errors.Is(err, tracked.ErrDuplicate) {
			s.log.Debug("download already ignored", "client", key.Client, "download_id", key.DownloadID)
			return false, nil
		}
		return false, fmt.Errorf("ignore %s: %w", key.DownloadID, err)
	}

	if _, err := s.registry.SetState(key, tracked.StateIgnored); err != nil {
		// The record stands even if the download left the registry or reached a terminal state.
		s.log.Debug("ignored download state not changed", "download_id", key.DownloadID, "error", err)
	}

	s.log.Info("download ignored", "client", key.Client, "download_id", key.DownloadID, "title", td.Item.Title)
	if s.bus != nil {
		if err := s.bus.Publish(ctx, &events.DownloadIgnored{
			BaseEvent:  events.NewBaseEvent(events.EventDownloadIgnored, events.EntityDownload, int64(td.QueueID)),
			Client:     key.Client,
			DownloadID: key.DownloadID,
			Title:      td.Item.Title,
		}); err != nil {
			s.log.Error("failed to publish download ignored event", "error", err)
		}
	}
	return true, nil
}
