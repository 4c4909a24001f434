package queue

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strconv"
	"sync"

	"github.com/vmunix/arrq/internal/blocklist"
	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/handlers"
	"github.com/vmunix/arrq/internal/metrics"
	"github.com/vmunix/arrq/internal/pending"
	"github.com/vmunix/arrq/internal/tracked"
)

const pendingBlocklistMessage = "Pending release manually blocklisted"

// PendingStore is the part of the pending release store removals need.
type PendingStore interface {
	FindByQueueID(queueID int) (*pending.Release, bool)
	Remove(ids ...int64) (int, error)
}

// ClientLookup resolves a download client by its configured name.
type ClientLookup interface {
	Get(name string) download.Downloader
}

// Blocklister writes blocklist entries.
type Blocklister interface {
	Block(e *blocklist.Entry) error
}

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// RemoverDeps are the collaborators of a Remover.
type RemoverDeps struct {
	Registry  *tracked.Registry
	Pending   PendingStore
	Clients   ClientLookup
	Blocklist Blocklister
	Failed    *handlers.FailedDownloads
	Ignored   *handlers.IgnoredDownloads
	Bus       Publisher
	Metrics   *metrics.Metrics
}

// Remover removes items from the queue.
type Remover struct {
	registry  *tracked.Registry
	pending   PendingStore
	clients   ClientLookup
	blocklist Blocklister
	failed    *handlers.FailedDownloads
	ignored   *handlers.IgnoredDownloads
	bus       Publisher
	metrics   *metrics.Metrics
	log       *slog.Logger

	mu       sync.Mutex
	inFlight map[string]struct{}
}

// NewRemover creates a remover.
func NewRemover(deps RemoverDeps, log *slog.Logger) *Remover {
	if log == nil {
		log = slog.Default()
	}
	return &Remover{
		registry:  deps.Registry,
		pending:   deps.Pending,
		clients:   deps.Clients,
		blocklist: deps.Blocklist,
		failed:    deps.Failed,
		ignored:   deps.Ignored,
		bus:       deps.Bus,
		metrics:   deps.Metrics,
		log:       log.With("component", "queue-remover"),
		inFlight:  make(map[string]struct{}),
	}
}

// Remove removes one queue item. Pending releases are deleted, optionally
// blocklisting them. Tracked downloads are handled according to opts and
// stop being tracked once every action succeeded, except when an ignore
// finds the download already ignored.
func (r *Remover) Remove(ctx context.Context, id int, opts RemoveOptions) error {
	if rel, ok := r.pending.FindByQueueID(id); ok {
		return r.removePending(rel, opts)
	}

	td, ok := r.registry.FindByQueueID(id)
	if !ok {
		return fmt.Errorf("queue item %d: %w", id, ErrNotFound)
	}
	key := td.Key()
	if !r.claim(key) {
		return fmt.Errorf("queue item %d: %w", id, ErrNotFound)
	}
	defer r.release(key)

	stop, err := r.removeTracked(ctx, td, opts)
	if err != nil {
		return err
	}
	if stop {
		n := r.registry.StopTracking(key)
		r.publishRemoved(ctx, n)
	}
	return nil
}

// RemoveMany removes a batch of queue items. Ids are de-duplicated by the
// underlying release or download, unknown ids are skipped and a failure on
// one item does not stop the others. It returns how many items were removed
// along with the joined per-item errors.
func (r *Remover) RemoveMany(ctx context.Context, ids []int, opts RemoveOptions) (int, error) {
	var (
		releases  []*pending.Release
		downloads []*tracked.TrackedDownload
		seenRel   = make(map[int64]bool)
		seenKey   = make(map[tracked.Key]bool)
	)
	for _, id := range ids {
		if rel, ok := r.pending.FindByQueueID(id); ok {
			if !seenRel[rel.ID] {
				seenRel[rel.ID] = true
				releases = append(releases, rel)
			}
			continue
		}
		if td, ok := r.registry.FindByQueueID(id); ok {
			if !seenKey[td.Key()] {
				seenKey[td.Key()] = true
				downloads = append(downloads, td)
			}
			continue
		}
		r.log.Debug("skipping unknown queue id", "id", id)
	}

	var errs []error
	removed := 0
	for _, rel := range releases {
		if err := r.removePending(rel, opts); err != nil {
			errs = append(errs, err)
			continue
		}
		removed++
	}

	var stop, claimed []tracked.Key
	for _, td := range downloads {
		key := td.Key()
		if !r.claim(key) {
			errs = append(errs, fmt.Errorf("queue item %d: %w", td.QueueID, ErrNotFound))
			continue
		}
		claimed = append(claimed, key)

		ok, err := r.removeTracked(ctx, td, opts)
		if err != nil {
			errs = append(errs, err)
			continue
		}
		if ok {
			stop = append(stop, key)
		}
	}
	if len(stop) > 0 {
		n := r.registry.StopTracking(stop...)
		removed += n
		r.publishRemoved(ctx, n)
	}
	for _, key := range claimed {
		r.release(key)
	}

	r.log.Info("bulk removal", "requested", len(ids), "removed", removed, "errors", len(errs))
	return removed, errors.Join(errs...)
}

func (r *Remover) removePending(rel *pending.Release, opts RemoveOptions) error {
	key := tracked.Key{Client: "pending", DownloadID: strconv.FormatInt(rel.ID, 10)}
	if !r.claim(key) {
		return fmt.Errorf("pending release %d: %w", rel.ID, ErrNotFound)
	}
	defer r.release(key)

	n, err := r.pending.Remove(rel.ID)
	if err != nil {
		return fmt.Errorf("remove pending release %d: %w", rel.ID, err)
	}
	if n == 0 {
		return fmt.Errorf("pending release %d: %w", rel.ID, ErrNotFound)
	}

	label := "pending"
	if opts.Blocklist {
		label = "pending_blocklist"
		if err := r.blocklist.Block(&blocklist.Entry{
			SeriesID:    rel.Remote.Series.ID,
			EpisodeIDs:  rel.Remote.EpisodeIDs(),
			SourceTitle: rel.Title,
			Languages:   rel.Remote.Languages,
			Quality:     rel.Remote.Quality,
			Protocol:    rel.Protocol,
			Indexer:     rel.Indexer,
			Message:     pendingBlocklistMessage,
		}); err != nil {
			return fmt.Errorf("blocklist pending release %d: %w", rel.ID, err)
		}
	}

	r.metrics.CountRemoval(label)
	r.log.Info("pending release removed", "id", rel.ID, "title", rel.Title, "blocklisted", opts.Blocklist)
	return nil
}

// removeTracked performs the client, blocklist and ignore actions for td
// and reports whether it should stop being tracked.
func (r *Remover) removeTracked(ctx context.Context, td *tracked.TrackedDownload, opts RemoveOptions) (bool, error) {
	key := td.Key()
	if !r.registry.Has(key) {
		return false, fmt.Errorf("queue item %d: %w", td.QueueID, ErrNotFound)
	}

	d := opts.decision()
	if d.client != clientNone {
		client := r.clients.Get(td.DownloadClient)
		if client == nil {
			return false, fmt.Errorf("download client %q: %w", td.DownloadClient, ErrClientUnavailable)
		}
		switch d.client {
		case clientRemove:
			if err := client.Remove(ctx, td.DownloadID, true); err != nil {
				return false, fmt.Errorf("remove %s from %s: %w", td.DownloadID, td.DownloadClient, err)
			}
		case clientChangeCategory:
			if err := client.MarkImported(ctx, td.DownloadID); err != nil {
				return false, fmt.Errorf("change category of %s in %s: %w", td.DownloadID, td.DownloadClient, err)
			}
		}
	}

	if d.blocklist {
		if err := r.failed.MarkAsFailed(ctx, td, opts.SkipRedownload); err != nil {
			return false, err
		}
	}

	if d.ignore {
		ok, err := r.ignored.Ignore(ctx, td)
		if err != nil {
			return false, err
		}
		if !ok {
			r.log.Debug("download already ignored", "client", key.Client, "download_id", key.DownloadID)
			return false, nil
		}
	}

	r.metrics.CountRemoval(d.label)
	r.log.Info("download removed from queue", "client", key.Client, "download_id", key.DownloadID,
		"action", d.label)
	r.publish(ctx, &events.DownloadRemoved{
		BaseEvent:         events.NewBaseEvent(events.EventDownloadRemoved, events.EntityDownload, int64(td.QueueID)),
		Client:            key.Client,
		DownloadID:        key.DownloadID,
		Title:             td.Item.Title,
		RemovedFromClient: d.client == clientRemove,
		Blocklisted:       d.blocklist,
	})
	return true, nil
}

// claim marks key as being removed. It returns false when another removal holds it.
func (r *Remover) claim(key tracked.Key) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	k := key.Client + "\x00" + key.DownloadID
	if _, busy := r.inFlight[k]; busy {
		return false
	}
	r.inFlight[k] = struct{}{}
	return true
}

func (r *Remover) release(key tracked.Key) {
	r.mu.Lock()
	delete(r.inFlight, key.Client+"\x00"+key.DownloadID)
	r.mu.Unlock()
}

func (r *Remover) publishRemoved(ctx context.Context, n int) {
	if n == 0 {
		return
	}
	r.publish(ctx, &events.QueueUpdated{
		BaseEvent: events.NewBaseEvent(events.EventQueueUpdated, events.EntityQueue, 0),
		Removed:   n,
	})
}

func (r *Remover) publish(ctx context.Context, e events.Event) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(ctx, e); err != nil {
		r.log.Error("failed to publish event", "type", e.EventType(), "error", err)
	}
}
