package download

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/vmunix/arrq/internal/quality"
)

// GrabRequest describes a release to hand to a download client.
type GrabRequest struct {
	URL        string
	Title      string
	Indexer    string
	Protocol   Protocol
	SeriesID   int64
	EpisodeIDs []int64
	Quality    quality.Model
	Languages  []quality.Language
}

// Manager hands releases to the right download client and records the grab.
type Manager struct {
	clients *Provider
	store   *Store
	log     *slog.Logger
}

// NewManager creates a new download manager.
func NewManager(clients *Provider, store *Store, log *slog.Logger) *Manager {
	if log == nil {
		log = slog.Default()
	}
	return &Manager{
		clients: clients,
		store:   store,
		log:     log.With("component", "download-manager"),
	}
}

// Grab sends a release to the first client configured for its protocol and records it.
// Returns ErrClientUnavailable if no client serves the protocol or the client is unreachable.
func (m *Manager) Grab(ctx context.Context, req GrabRequest) (*Grab, error) {
	client := m.clients.ForProtocol(req.Protocol)
	if client == nil {
		return nil, fmt.Errorf("no %s client configured: %w", req.Protocol, ErrClientUnavailable)
	}

	downloadID, err := client.Add(ctx, req.URL, "")
	if err != nil {
		m.log.Error("grab failed", "title", req.Title, "client", client.Name(), "error", err)
		return nil, fmt.Errorf("add to %s: %w", client.Name(), err)
	}

	g := &Grab{
		Client:     client.Name(),
		DownloadID: downloadID,
		SeriesID:   req.SeriesID,
		EpisodeIDs: req.EpisodeIDs,
		Title:      req.Title,
		Indexer:    req.Indexer,
		Protocol:   req.Protocol,
		Quality:    req.Quality,
		Languages:  req.Languages,
	}
	if err := m.store.Add(g); err != nil {
		// The client already has it; reconciliation will still find the item by title.
		return nil, fmt.Errorf("save grab: %w", err)
	}

	m.log.Info("grab sent", "title", req.Title, "client", client.Name(), "download_id", downloadID)
	return g, nil
}

// Lookup returns the grab recorded for a client's item, or nil when none was recorded.
func (m *Manager) Lookup(client, downloadID string) (*Grab, error) {
	g, err := m.store.Get(client, downloadID)
	if err != nil {
		if errors.Is(err, ErrNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return g, nil
}
