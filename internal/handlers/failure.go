package handlers

import (
	"context"
	"log/slog"

	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/tracked"
)

// FailureHandler blocklists downloads that their client reported as failed.
type FailureHandler struct {
	*BaseHandler
	registry *tracked.Registry
	failed   *FailedDownloads
}

// NewFailureHandler creates a failure handler.
func NewFailureHandler(bus *events.Bus, registry *tracked.Registry, failed *FailedDownloads, logger *slog.Logger) *FailureHandler {
	return &FailureHandler{
		BaseHandler: NewBaseHandler(bus, "failure-handler", logger),
		registry:    registry,
		failed:      failed,
	}
}

// Name returns the handler name.
func (h *FailureHandler) Name() string { return "failure" }

// Start begins processing events.
func (h *FailureHandler) Start(ctx context.Context) error {
	ch := h.Bus().Subscribe(100, events.EventDownloadClientFailed)
	return h.loop(ctx, ch, func(ctx context.Context, e events.Event) {
		if cf, ok := e.(*events.DownloadClientFailed); ok {
			h.handleClientFailed(ctx, cf)
		}
	})
}

func (h *FailureHandler) handleClientFailed(ctx context.Context, e *events.DownloadClientFailed) {
	td, ok := h.registry.Get(tracked.Key{Client: e.Client, DownloadID: e.DownloadID})
	if !ok {
		h.Logger().Debug("failed download no longer tracked", "client", e.Client, "download_id", e.DownloadID)
		return
	}
	if err := h.failed.MarkAsFailed(ctx, td, false); err != nil {
		h.Logger().Error("failed to handle client failure", "download_id", e.DownloadID, "error", err)
	}
}
