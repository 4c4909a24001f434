package handlers

import (
	"context"
	"log/slog"

	"github.com/vmunix/arrq/internal/events"
)

// RedownloadHandler asks for a replacement search after a download failed.
type RedownloadHandler struct {
	*BaseHandler
}

// NewRedownloadHandler creates a redownload handler.
func NewRedownloadHandler(bus *events.Bus, logger *slog.Logger) *RedownloadHandler {
	return &RedownloadHandler{BaseHandler: NewBaseHandler(bus, "redownload-handler", logger)}
}

// Name returns the handler name.
func (h *RedownloadHandler) Name() string { return "redownload" }

// Start begins processing events.
func (h *RedownloadHandler) Start(ctx context.Context) error {
	ch := h.Bus().Subscribe(100, events.EventDownloadFailed)
	return h.loop(ctx, ch, func(ctx context.Context, e events.Event) {
		if df, ok := e.(*events.DownloadFailed); ok {
			h.handleFailed(ctx, df)
		}
	})
}

func (h *RedownloadHandler) handleFailed(ctx context.Context, e *events.DownloadFailed) {
	if e.SkipRedownload {
		h.Logger().Debug("redownload skipped", "download_id", e.DownloadID)
		return
	}
	if e.SeriesID == 0 {
		h.Logger().Debug("no series for failed download, nothing to search", "download_id", e.DownloadID)
		return
	}

	h.Logger().Info("requesting replacement search", "series_id", e.SeriesID, "episodes", len(e.EpisodeIDs))
	h.publish(ctx, &events.SearchRequested{
		BaseEvent:  events.NewBaseEvent(events.EventSearchRequested, events.EntitySeries, e.SeriesID),
		SeriesID:   e.SeriesID,
		EpisodeIDs: e.EpisodeIDs,
		Reason:     "download failed",
	})
}
