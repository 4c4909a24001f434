package tracked

import (
	"context"
	"errors"
	"log/slog"
	"time"

	"github.com/cenkalti/backoff/v4"
	"golang.org/x/sync/errgroup"

	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/library"
	"github.com/vmunix/arrq/internal/metrics"
	"github.com/vmunix/arrq/internal/quality"
)

// GrabLookup finds the grab record for a client item.
type GrabLookup interface {
	Lookup(client, downloadID string) (*download.Grab, error)
}

// Resolver matches client items to library series and episodes.
type Resolver interface {
	Resolve(title string) (*library.RemoteEpisode, error)
	Lookup(seriesID int64, episodeIDs []int64, title string) (*library.RemoteEpisode, error)
}

// DownloadBlocklist reports whether a download id was blocklisted.
type DownloadBlocklist interface {
	HasDownload(downloadID string) (bool, error)
}

// Publisher publishes events.
type Publisher interface {
	Publish(ctx context.Context, e events.Event) error
}

// ReconcilerOptions configures polling.
type ReconcilerOptions struct {
	Interval      time.Duration
	ClientTimeout time.Duration
}

// Reconciler periodically refreshes the registry from every download client.
type Reconciler struct {
	clients   *download.Provider
	registry  *Registry
	grabs     GrabLookup
	resolver  Resolver
	ignores   *IgnoreStore
	blocklist DownloadBlocklist
	bus       Publisher
	metrics   *metrics.Metrics
	opts      ReconcilerOptions
	log       *slog.Logger
	now       func() time.Time
}

// ReconcilerDeps are the collaborators of a Reconciler. Bus and Metrics may be nil.
type ReconcilerDeps struct {
	Clients   *download.Provider
	Registry  *Registry
	Grabs     GrabLookup
	Resolver  Resolver
	Ignores   *IgnoreStore
	Blocklist DownloadBlocklist
	Bus       Publisher
	Metrics   *metrics.Metrics
}

// NewReconciler creates a reconciler.
func NewReconciler(deps ReconcilerDeps, opts ReconcilerOptions, log *slog.Logger) *Reconciler {
	if log == nil {
		log = slog.Default()
	}
	if opts.Interval <= 0 {
		opts.Interval = time.Minute
	}
	if opts.ClientTimeout <= 0 {
		opts.ClientTimeout = 30 * time.Second
	}
	return &Reconciler{
		clients:   deps.Clients,
		registry:  deps.Registry,
		grabs:     deps.Grabs,
		resolver:  deps.Resolver,
		ignores:   deps.Ignores,
		blocklist: deps.Blocklist,
		bus:       deps.Bus,
		metrics:   deps.Metrics,
		opts:      opts,
		log:       log.With("component", "reconciler"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Name returns the component name.
func (r *Reconciler) Name() string { return "reconciler" }

// Start reconciles immediately and then on every interval until ctx is canceled.
func (r *Reconciler) Start(ctx context.Context) error {
	ticker := time.NewTicker(r.opts.Interval)
	defer ticker.Stop()

	r.Reconcile(ctx)
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			r.Reconcile(ctx)
		}
	}
}

// Reconcile polls every configured client in parallel and applies the results.
// Clients that own tracked downloads but are no longer configured only expire.
// Failures are logged per client and never returned.
func (r *Reconciler) Reconcile(ctx context.Context) {
	configured := r.clients.All()
	names := make(map[string]bool, len(configured))

	var g errgroup.Group
	for _, c := range configured {
		names[c.Name()] = true
		g.Go(func() error {
			r.pollClient(ctx, c)
			return nil
		})
	}
	_ = g.Wait()

	for _, name := range r.registry.Clients() {
		if names[name] {
			continue
		}
		if removed := r.registry.Expire(name, r.now()); len(removed) > 0 {
			r.log.Info("expired downloads of removed client", "client", name, "count", len(removed))
			r.metrics.AddExpired(name, len(removed))
			r.publishDiff(ctx, name, Diff{Removed: removed})
		}
	}
	r.metrics.SetTracked(r.registry.CountByState())
}

func (r *Reconciler) pollClient(ctx context.Context, c download.Downloader) {
	name := c.Name()
	start := time.Now()

	items, err := r.list(ctx, c)
	r.metrics.ObserveReconcile(name, time.Since(start), err)
	if err != nil {
		removed := r.registry.Expire(name, r.now())
		r.log.Warn("download client poll failed", "client", name, "error", err, "expired", len(removed))
		r.metrics.AddExpired(name, len(removed))
		r.publishDiff(ctx, name, Diff{Removed: removed})
		return
	}

	// Matching does I/O against the stores, so it happens before the registry lock is taken.
	known := r.registry.Known(name)
	observations := make([]Observation, 0, len(items))
	for _, item := range items {
		obs := Observation{Item: item, Protocol: c.Protocol(), Tracked: known[item.DownloadID]}
		if !obs.Tracked {
			r.match(name, &obs)
		}
		observations = append(observations, obs)
	}

	now := r.now()
	diff := r.registry.Apply(name, observations, now)
	r.metrics.AddExpired(name, len(diff.Removed))
	r.log.Debug("download client reconciled", "client", name, "items", len(items),
		"added", len(diff.Added), "changed", len(diff.Changed), "removed", len(diff.Removed),
		"duration_ms", time.Since(start).Milliseconds())

	for _, td := range diff.Failed {
		r.publish(ctx, &events.DownloadClientFailed{
			BaseEvent:  events.NewBaseEvent(events.EventDownloadClientFailed, events.EntityDownload, int64(td.QueueID)),
			Client:     td.DownloadClient,
			DownloadID: td.DownloadID,
			Title:      td.Item.Title,
			Message:    td.Item.Message,
		})
	}
	r.publishDiff(ctx, name, diff)
}

// list fetches the client's items, retrying with backoff within the client timeout.
func (r *Reconciler) list(ctx context.Context, c download.Downloader) ([]download.ClientItem, error) {
	ctx, cancel := context.WithTimeout(ctx, r.opts.ClientTimeout)
	defer cancel()

	b := backoff.NewExponentialBackOff()
	b.InitialInterval = 500 * time.Millisecond
	b.MaxElapsedTime = r.opts.ClientTimeout

	var items []download.ClientItem
	err := backoff.Retry(func() error {
		var err error
		items, err = c.List(ctx)
		if err != nil && !errors.Is(err, download.ErrClientUnavailable) {
			// Only connectivity problems are worth retrying.
			return backoff.Permanent(err)
		}
		return err
	}, backoff.WithContext(b, ctx))
	if err != nil {
		return nil, err
	}
	return items, nil
}

// match fills the series, episodes and initial state of a newly seen item.
func (r *Reconciler) match(client string, obs *Observation) {
	key := Key{Client: client, DownloadID: obs.Item.DownloadID}
	log := r.log.With("client", client, "download_id", key.DownloadID)

	grab, err := r.grabs.Lookup(client, key.DownloadID)
	if err != nil {
		log.Warn("grab lookup failed", "error", err)
	}
	if grab != nil {
		obs.Indexer = grab.Indexer
		obs.Added = grab.GrabbedAt
		if grab.Protocol != download.ProtocolUnknown {
			obs.Protocol = grab.Protocol
		}
		remote, err := r.resolver.Lookup(grab.SeriesID, grab.EpisodeIDs, grab.Title)
		if err != nil {
			log.Warn("grab series lookup failed", "series_id", grab.SeriesID, "error", err)
		} else {
			// The grab's quality and languages win over a parse of the title.
			if grab.Quality.Quality != quality.Unknown {
				remote.Quality = grab.Quality
			}
			if len(grab.Languages) > 0 {
				remote.Languages = grab.Languages
			}
			obs.Remote = remote
		}
	}
	if obs.Remote == nil {
		remote, err := r.resolver.Resolve(obs.Item.Title)
		if err != nil {
			log.Warn("title resolve failed", "title", obs.Item.Title, "error", err)
		}
		obs.Remote = remote
	}

	if r.ignores != nil {
		ignored, err := r.ignores.Has(key)
		if err != nil {
			log.Warn("ignore lookup failed", "error", err)
		}
		if ignored {
			obs.InitialState = StateIgnored
			return
		}
	}
	if r.blocklist != nil {
		blocked, err := r.blocklist.HasDownload(key.DownloadID)
		if err != nil {
			log.Warn("blocklist lookup failed", "error", err)
		}
		if blocked {
			obs.InitialState = StateFailed
		}
	}
}

func (r *Reconciler) publishDiff(ctx context.Context, client string, diff Diff) {
	if diff.Empty() {
		return
	}
	r.publish(ctx, &events.QueueUpdated{
		BaseEvent: events.NewBaseEvent(events.EventQueueUpdated, events.EntityQueue, 0),
		Client:    client,
		Added:     len(diff.Added),
		Changed:   len(diff.Changed),
		Removed:   len(diff.Removed),
	})
}

func (r *Reconciler) publish(ctx context.Context, e events.Event) {
	if r.bus == nil {
		return
	}
	if err := r.bus.Publish(ctx, e); err != nil {
		r.log.Warn("publish failed", "type", e.EventType(), "error", err)
	}
}
