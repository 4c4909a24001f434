package v1

import (
	"context"
	"errors"
	"net/http"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/vmunix/arrq/internal/blocklist"
	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/library"
	"github.com/vmunix/arrq/internal/pending"
	"github.com/vmunix/arrq/internal/queue"
)

// ErrMissingDependency is returned when a required dependency is nil.
var ErrMissingDependency = errors.New("missing required dependency")

// QueueReader answers paged queue queries.
type QueueReader interface {
	GetQueue(spec queue.PagingSpec, f queue.Filter) queue.Page
}

// QueueRemover removes queue items.
type QueueRemover interface {
	Remove(ctx context.Context, id int, opts queue.RemoveOptions) error
	RemoveMany(ctx context.Context, ids []int, opts queue.RemoveOptions) (int, error)
}

// PendingGrabber sends a pending release to a download client right away.
type PendingGrabber interface {
	GrabNow(ctx context.Context, queueID int) error
}

// PendingAdder defers a release.
type PendingAdder interface {
	Add(r *pending.Release) error
}

// BlocklistStore lists and deletes blocklist entries.
type BlocklistStore interface {
	List(f blocklist.Filter) ([]*blocklist.Entry, int, error)
	Delete(id int64) error
	DeleteMany(ids []int64) (int64, error)
}

// Resolver maps release titles to the library.
type Resolver interface {
	Resolve(title string) (*library.RemoteEpisode, error)
	Invalidate()
}

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// ServerDeps contains all dependencies for the API server.
// Required dependencies must be non-nil; optional dependencies may be nil.
type ServerDeps struct {
	// Required dependencies
	Queue     QueueReader
	Remover   QueueRemover
	Blocklist BlocklistStore

	// Optional dependencies (nil if not configured)
	Library  *library.Store
	Resolver Resolver
	Pending  PendingAdder
	Grabber  PendingGrabber
	Bus      Publisher
	EventLog *events.EventLog
	Notifier http.Handler        // websocket push endpoint
	Gatherer prometheus.Gatherer // served on /metrics
}

// Validate checks that all required dependencies are provided.
func (d ServerDeps) Validate() error {
	if d.Queue == nil {
		return errors.New("queue service is required")
	}
	if d.Remover == nil {
		return errors.New("queue remover is required")
	}
	if d.Blocklist == nil {
		return errors.New("blocklist store is required")
	}
	return nil
}
