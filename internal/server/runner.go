// Package server wires every component into one cancellable lifecycle.
package server

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"strconv"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"golang.org/x/sync/errgroup"

	v1 "github.com/vmunix/arrq/internal/api/v1"
	"github.com/vmunix/arrq/internal/blocklist"
	"github.com/vmunix/arrq/internal/config"
	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/events"
	"github.com/vmunix/arrq/internal/handlers"
	"github.com/vmunix/arrq/internal/library"
	"github.com/vmunix/arrq/internal/metrics"
	"github.com/vmunix/arrq/internal/notify"
	"github.com/vmunix/arrq/internal/pending"
	"github.com/vmunix/arrq/internal/quality"
	"github.com/vmunix/arrq/internal/queue"
	"github.com/vmunix/arrq/internal/tracked"
)

const (
	resolverTTL     = 10 * time.Minute
	shutdownTimeout = 30 * time.Second
)

// Component is a long-running part of the server.
type Component interface {
	Name() string
	Start(ctx context.Context) error
}

// Runner manages the server components.
type Runner struct {
	db     *sql.DB
	config *config.Config
	logger *slog.Logger
}

// NewRunner creates a new runner.
func NewRunner(db *sql.DB, cfg *config.Config, logger *slog.Logger) *Runner {
	if logger == nil {
		logger = slog.Default()
	}
	return &Runner{
		db:     db,
		config: cfg,
		logger: logger,
	}
}

// Run listens on the configured address and serves until ctx is canceled
// or a component fails.
func (r *Runner) Run(ctx context.Context) error {
	addr := net.JoinHostPort(r.config.Server.Host, strconv.Itoa(r.config.Server.Port))
	ln, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}
	return r.Serve(ctx, ln)
}

// Serve runs every component and the HTTP API on ln.
// It blocks until ctx is canceled or a component fails.
func (r *Runner) Serve(ctx context.Context, ln net.Listener) error {
	g, ctx := errgroup.WithContext(ctx)

	a, err := r.build(ctx)
	if err != nil {
		_ = ln.Close()
		return err
	}
	defer func() { _ = a.bus.Close() }()

	for _, c := range a.components {
		g.Go(func() error {
			r.logger.Debug("component starting", "component", c.Name())
			if err := c.Start(ctx); err != nil && !errors.Is(err, context.Canceled) {
				return fmt.Errorf("%s: %w", c.Name(), err)
			}
			return nil
		})
	}

	srv := &http.Server{
		Handler:           v1.LogRequests(r.logger, a.handler),
		ReadHeaderTimeout: 10 * time.Second,
	}
	g.Go(func() error {
		if err := srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
			return fmt.Errorf("http server: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		<-ctx.Done()
		shutdownCtx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
		defer cancel()
		if err := srv.Shutdown(shutdownCtx); err != nil {
			return fmt.Errorf("shutdown: %w", err)
		}
		return nil
	})

	r.logger.Info("server starting",
		"addr", ln.Addr().String(),
		"database", r.config.Database.Path,
		"clients", a.clients,
		"websocket", r.config.Notifications.WebSocket,
		"log_level", r.config.Server.LogLevel,
	)
	err = g.Wait()
	r.logger.Info("server stopped")
	return err
}

// app holds the wired components of one server run.
type app struct {
	bus        *events.Bus
	components []Component
	handler    http.Handler
	clients    int
}

func (r *Runner) build(ctx context.Context) (*app, error) {
	cfg := r.config
	log := r.logger

	// === Events and metrics ===
	eventLog := events.NewEventLog(r.db)
	bus := events.NewBus(eventLog, log)

	reg := prometheus.NewRegistry()
	reg.MustRegister(collectors.NewGoCollector(), collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}))
	m := metrics.New(reg)

	// === Stores ===
	libraryStore := library.NewStore(r.db)
	resolver := library.NewResolver(libraryStore, resolverTTL, log)
	blocklistStore := blocklist.NewStore(r.db)
	ignoreStore := tracked.NewIgnoreStore(r.db)
	grabStore := download.NewStore(r.db)

	pendingStore := pending.NewStore(r.db, resolver, log)
	if err := pendingStore.Load(); err != nil {
		_ = bus.Close()
		return nil, fmt.Errorf("load pending releases: %w", err)
	}
	m.SetPending(pendingStore.Count())
	pendingStore.OnChange(func(count int) {
		m.SetPending(count)
		_ = bus.Publish(ctx, &events.PendingUpdated{
			BaseEvent: events.NewBaseEvent(events.EventPendingUpdated, events.EntityPending, 0),
			Count:     count,
		})
	})

	// === Download clients ===
	clients, err := NewClients(cfg.Downloaders, log)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	provider := download.NewProvider(clients...)
	manager := download.NewManager(provider, grabStore, log)

	// === Tracking and handlers ===
	registry := tracked.NewRegistry(tracked.RegistryOptions{
		GracePeriod:  cfg.Queue.GracePeriod,
		StallTimeout: cfg.Queue.StallTimeout,
	}, log)
	reconciler := tracked.NewReconciler(tracked.ReconcilerDeps{
		Clients:   provider,
		Registry:  registry,
		Grabs:     manager,
		Resolver:  resolver,
		Ignores:   ignoreStore,
		Blocklist: blocklistStore,
		Bus:       bus,
		Metrics:   m,
	}, tracked.ReconcilerOptions{
		Interval:      cfg.Queue.ReconcileInterval,
		ClientTimeout: cfg.Queue.ClientTimeout,
	}, log)

	failed := handlers.NewFailedDownloads(registry, blocklistStore, bus, log)
	ignored := handlers.NewIgnoredDownloads(registry, ignoreStore, bus, log)

	// === Queue ===
	service := queue.NewService(registry, pendingStore, rankingFrom(cfg.Quality), cfg.Queue.PageSize, m, log)
	remover := queue.NewRemover(queue.RemoverDeps{
		Registry:  registry,
		Pending:   pendingStore,
		Clients:   provider,
		Blocklist: blocklistStore,
		Failed:    failed,
		Ignored:   ignored,
		Bus:       bus,
		Metrics:   m,
	}, log)
	sweeper := pending.NewSweeper(pendingStore, manager, blocklistStore, bus, cfg.Pending.RetryDelay, log)

	// === Scheduled jobs ===
	scheduler := NewScheduler(log)
	if err := scheduler.Add("pending-sweep", cfg.Pending.SweepSchedule, func() {
		if _, err := sweeper.Sweep(ctx, time.Now().UTC()); err != nil {
			log.Warn("pending sweep incomplete", "error", err)
		}
	}); err != nil {
		_ = bus.Close()
		return nil, err
	}
	if cfg.Events.Retention > 0 {
		if err := scheduler.Add("events-prune", cfg.Events.PruneSchedule, func() {
			n, err := eventLog.Prune(cfg.Events.Retention)
			if err != nil {
				log.Warn("event prune failed", "error", err)
				return
			}
			log.Debug("events pruned", "count", n)
		}); err != nil {
			_ = bus.Close()
			return nil, err
		}
	}

	components := []Component{
		reconciler,
		handlers.NewFailureHandler(bus, registry, failed, log),
		handlers.NewRedownloadHandler(bus, log),
		handlers.NewImportHandler(bus, registry, log),
		scheduler,
	}

	// === HTTP ===
	deps := v1.ServerDeps{
		Queue:     service,
		Remover:   remover,
		Blocklist: blocklistStore,
		Library:   libraryStore,
		Resolver:  resolver,
		Pending:   pendingStore,
		Grabber:   sweeper,
		Bus:       bus,
		EventLog:  eventLog,
		Gatherer:  reg,
	}
	if cfg.Notifications.WebSocket {
		hub := notify.NewHub(bus, cfg.Notifications.AllowAnyOrigin, log)
		deps.Notifier = hub
		components = append(components, hub)
	}
	api, err := v1.New(deps, log)
	if err != nil {
		_ = bus.Close()
		return nil, err
	}
	mux := http.NewServeMux()
	api.RegisterRoutes(mux)

	return &app{
		bus:        bus,
		components: components,
		handler:    mux,
		clients:    len(clients),
	}, nil
}

// rankingFrom builds the quality and language preference order. Unknown names are skipped.
func rankingFrom(cfg config.QualityConfig) *quality.Ranking {
	var qualities []quality.Quality
	for _, name := range cfg.Order {
		if q, ok := quality.FindByName(name); ok {
			qualities = append(qualities, q)
		}
	}
	var languages []quality.Language
	for _, name := range cfg.Languages {
		if l, ok := quality.FindLanguage(name); ok {
			languages = append(languages, l)
		}
	}
	return quality.NewRanking(qualities, languages)
}
