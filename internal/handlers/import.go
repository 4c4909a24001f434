package handlers

import (
	"context"
	"errors"
	"log/slog"

	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/tracked"
)

// ImportHandler marks tracked downloads imported once the importer reports them done.
type ImportHandler struct {
	*BaseHandler
	registry *tracked.Registry
}

// NewImportHandler creates an import handler.
func NewImportHandler(bus *events.Bus, registry *tracked.Registry, logger *slog.Logger) *ImportHandler {
	return &ImportHandler{
		BaseHandler: NewBaseHandler(bus, "import-handler", logger),
		registry:    registry,
	}
}

// Name returns the handler name.
func (h *ImportHandler) Name() string { return "import" }

// Start begins processing events.
func (h *ImportHandler) Start(ctx context.Context) error {
	ch := h.Bus().Subscribe(100, events.EventImportCompleted)
	return h.loop(ctx, ch, func(ctx context.Context, e events.Event) {
		if ic, ok := e.(*events.ImportCompleted); ok {
			h.handleImportCompleted(ctx, ic)
		}
	})
}

func (h *ImportHandler) handleImportCompleted(ctx context.Context, e *events.ImportCompleted) {
	key := tracked.Key{Client: e.Client, DownloadID: e.DownloadID}
	changed, err := h.registry.SetState(key, tracked.StateImported)
	switch {
	case errors.Is(err, tracked.ErrNotFound):
		h.Logger().Debug("imported download not tracked", "client", e.Client, "download_id", e.DownloadID)
		return
	case err != nil:
		h.Logger().Warn("cannot mark download imported", "download_id", e.DownloadID, "error", err)
		return
	case !changed:
		return
	}

	h.Logger().Info("download imported", "client", e.Client, "download_id", e.DownloadID)
	h.publish(ctx, &events.QueueUpdated{
		BaseEvent: events.NewBaseEvent(events.EventQueueUpdated, events.EntityQueue, 0),
		Client:    e.Client,
		Changed:   1,
	})
}
