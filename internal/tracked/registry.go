package tracked

import (
	"cmp"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/library"
)

// Observation is one item reported by a client during a poll.
// Match fields are only used when the download is first tracked.
type Observation struct {
	Item         download.ClientItem
	Protocol     download.Protocol
	Indexer      string
	Remote       *library.RemoteEpisode
	Added        time.Time // when the release was grabbed; zero uses the poll time
	InitialState State     // overrides the derived state for a new download

	// Tracked is set when the download was tracked as the observation was
	// built, so matching was skipped. Apply drops such an observation if the
	// download stopped being tracked in the meantime; the next poll matches it.
	Tracked bool
}

// Diff summarizes what a reconciliation pass changed.
type Diff struct {
	Added   []Key
	Changed []Key
	Removed []Key
	Failed  []*TrackedDownload // downloads that entered the failed state
}

// Empty reports whether nothing changed.
func (d Diff) Empty() bool {
	return len(d.Added) == 0 && len(d.Changed) == 0 && len(d.Removed) == 0
}

// RegistryOptions tunes reconciliation heuristics.
type RegistryOptions struct {
	// GracePeriod is how long a download may go unreported before it is dropped.
	GracePeriod time.Duration
	// StallTimeout is how long a download may make no progress before it is flagged.
	StallTimeout time.Duration
}

// Registry is the single owner of tracked downloads.
type Registry struct {
	opts RegistryOptions
	log  *slog.Logger

	mu        sync.RWMutex
	downloads map[Key]*TrackedDownload
	byQueueID map[int]Key
}

// NewRegistry creates an empty registry.
func NewRegistry(opts RegistryOptions, log *slog.Logger) *Registry {
	if log == nil {
		log = slog.Default()
	}
	return &Registry{
		opts:      opts,
		log:       log.With("component", "registry"),
		downloads: make(map[Key]*TrackedDownload),
		byQueueID: make(map[int]Key),
	}
}

// Known returns the download ids currently tracked for client.
func (r *Registry) Known(client string) map[string]bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	known := make(map[string]bool)
	for k := range r.downloads {
		if k.Client == client {
			known[k.DownloadID] = true
		}
	}
	return known
}

// Clients returns the names of clients that own at least one tracked download.
func (r *Registry) Clients() []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var names []string
	for k := range r.downloads {
		if !slices.Contains(names, k.Client) {
			names = append(names, k.Client)
		}
	}
	slices.Sort(names)
	return names
}

// Apply reconciles a successful poll of client. Unreported downloads are
// dropped once they have been absent for longer than the grace period.
func (r *Registry) Apply(client string, observations []Observation, now time.Time) Diff {
	r.mu.Lock()
	defer r.mu.Unlock()

	var diff Diff
	seen := make(map[Key]bool, len(observations))
	for _, obs := range observations {
		key := Key{Client: client, DownloadID: obs.Item.DownloadID}
		if key.DownloadID == "" || seen[key] {
			continue
		}
		seen[key] = true

		td, ok := r.downloads[key]
		if !ok && obs.Tracked {
			r.log.Debug("download stopped being tracked during poll", "client", client, "download_id", key.DownloadID)
			continue
		}
		if !ok {
			td = r.track(key, obs, now)
			diff.Added = append(diff.Added, key)
			if td.State == StateFailed && obs.InitialState == "" {
				diff.Failed = append(diff.Failed, td.clone())
			}
			continue
		}

		changed, failed := r.update(td, obs.Item, now)
		if changed {
			diff.Changed = append(diff.Changed, key)
		}
		if failed {
			diff.Failed = append(diff.Failed, td.clone())
		}
	}

	diff.Removed = r.expireLocked(client, now, seen)
	return diff
}

// Expire drops downloads of client that have not been seen within the grace period.
// It is used when a poll fails so known state survives short outages.
func (r *Registry) Expire(client string, now time.Time) []Key {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.expireLocked(client, now, nil)
}

func (r *Registry) expireLocked(client string, now time.Time, seen map[Key]bool) []Key {
	var removed []Key
	for key, td := range r.downloads {
		if key.Client != client || seen[key] {
			continue
		}
		if now.Sub(td.LastSeen) > r.opts.GracePeriod {
			r.removeLocked(key)
			removed = append(removed, key)
		}
	}
	slices.SortFunc(removed, compareKeys)
	if len(removed) > 0 {
		r.log.Debug("tracked downloads expired", "client", client, "count", len(removed))
	}
	return removed
}

func (r *Registry) track(key Key, obs Observation, now time.Time) *TrackedDownload {
	td := &TrackedDownload{
		QueueID:        r.allocateQueueID(key),
		DownloadClient: key.Client,
		DownloadID:     key.DownloadID,
		Item:           obs.Item,
		Protocol:       obs.Protocol,
		Indexer:        obs.Indexer,
		Remote:         obs.Remote,
		Added:          obs.Added,
		LastSeen:       now,
		LastProgress:   now,
	}
	if td.Added.IsZero() {
		td.Added = now
	}
	if obs.InitialState != "" {
		td.State = obs.InitialState
	} else {
		td.State, td.StatusMessages = deriveState(obs.Item, td.LastProgress, now, r.opts.StallTimeout)
	}

	r.downloads[key] = td
	r.byQueueID[td.QueueID] = key
	r.log.Debug("tracking download", "client", key.Client, "download_id", key.DownloadID,
		"queue_id", td.QueueID, "state", td.State, "matched", td.Remote != nil)
	return td
}

// update refreshes td from a new observation. It reports whether anything
// visible changed and whether the download just failed.
func (r *Registry) update(td *TrackedDownload, item download.ClientItem, now time.Time) (changed, failed bool) {
	prev := td.Item
	td.LastSeen = now
	if item.SizeLeft < prev.SizeLeft || item.Status != prev.Status {
		td.LastProgress = now
	}
	td.Item = item

	changed = prev.Status != item.Status || prev.SizeLeft != item.SizeLeft ||
		prev.Message != item.Message || prev.OutputPath != item.OutputPath

	if td.State.IsTerminal() {
		return changed, false
	}

	state, msgs := deriveState(item, td.LastProgress, now, r.opts.StallTimeout)
	if state == td.State {
		if !slices.Equal(msgs, td.StatusMessages) {
			td.StatusMessages = msgs
			changed = true
		}
		return changed, false
	}
	if !td.State.CanTransitionTo(state) {
		return changed, false
	}

	r.log.Info("tracked download state changed", "client", td.DownloadClient, "download_id", td.DownloadID,
		"from", td.State, "to", state)
	td.State = state
	td.StatusMessages = msgs
	return true, state == StateFailed
}

// allocateQueueID returns the hashed id for key, probing linearly on collision.
func (r *Registry) allocateQueueID(key Key) int {
	id := hashQueueID(key)
	for {
		owner, taken := r.byQueueID[id]
		if !taken || owner == key {
			return id
		}
		id++
		if id >= queueIDSpace {
			id = 1
		}
	}
}

// Snapshot returns copies of all tracked downloads ordered by added time then queue id.
func (r *Registry) Snapshot() []*TrackedDownload {
	r.mu.RLock()
	out := make([]*TrackedDownload, 0, len(r.downloads))
	for _, td := range r.downloads {
		out = append(out, td.clone())
	}
	r.mu.RUnlock()

	slices.SortFunc(out, func(a, b *TrackedDownload) int {
		if c := a.Added.Compare(b.Added); c != 0 {
			return c
		}
		return cmp.Compare(a.QueueID, b.QueueID)
	})
	return out
}

// Get returns a copy of the download with the given key.
func (r *Registry) Get(key Key) (*TrackedDownload, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	td, ok := r.downloads[key]
	if !ok {
		return nil, false
	}
	return td.clone(), true
}

// Has reports whether key is tracked.
func (r *Registry) Has(key Key) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.downloads[key]
	return ok
}

// Find returns a copy of the download with the given client download id.
// When several clients report the same id the lowest queue id wins.
func (r *Registry) Find(downloadID string) (*TrackedDownload, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	var found *TrackedDownload
	for k, td := range r.downloads {
		if k.DownloadID == downloadID && (found == nil || td.QueueID < found.QueueID) {
			found = td
		}
	}
	if found == nil {
		return nil, false
	}
	return found.clone(), true
}

// FindByQueueID returns a copy of the download exposed under queueID.
func (r *Registry) FindByQueueID(queueID int) (*TrackedDownload, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	key, ok := r.byQueueID[queueID]
	if !ok {
		return nil, false
	}
	return r.downloads[key].clone(), true
}

// SetState moves a download to state. It reports false without error when the
// download is already in that state.
func (r *Registry) SetState(key Key, state State) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	td, ok := r.downloads[key]
	if !ok {
		return false, fmt.Errorf("set state of %s/%s: %w", key.Client, key.DownloadID, ErrNotFound)
	}
	if td.State == state {
		return false, nil
	}
	if !td.State.CanTransitionTo(state) {
		return false, fmt.Errorf("%s/%s %s -> %s: %w", key.Client, key.DownloadID, td.State, state, ErrInvalidTransition)
	}
	r.log.Info("tracked download state set", "client", key.Client, "download_id", key.DownloadID,
		"from", td.State, "to", state)
	td.State = state
	return true, nil
}

// MarkFailed moves a download to failed from any other state, including the
// terminal ones. It backs manual failure, which the user may request after an
// import. It reports false without error when the download is already failed.
func (r *Registry) MarkFailed(key Key) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	td, ok := r.downloads[key]
	if !ok {
		return false, fmt.Errorf("mark %s/%s failed: %w", key.Client, key.DownloadID, ErrNotFound)
	}
	if td.State == StateFailed {
		return false, nil
	}
	r.log.Info("tracked download marked failed", "client", key.Client, "download_id", key.DownloadID,
		"from", td.State)
	td.State = StateFailed
	return true, nil
}

// StopTracking removes downloads and returns how many were tracked.
func (r *Registry) StopTracking(keys ...Key) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	n := 0
	for _, key := range keys {
		if _, ok := r.downloads[key]; ok {
			r.removeLocked(key)
			n++
		}
	}
	return n
}

// CountByState returns the number of tracked downloads per state.
func (r *Registry) CountByState() map[string]int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	counts := make(map[string]int)
	for _, td := range r.downloads {
		counts[string(td.State)]++
	}
	return counts
}

func (r *Registry) removeLocked(key Key) {
	if td, ok := r.downloads[key]; ok {
		delete(r.byQueueID, td.QueueID)
		delete(r.downloads, key)
	}
}

func compareKeys(a, b Key) int {
	if c := cmp.Compare(a.Client, b.Client); c != 0 {
		return c
	}
	return cmp.Compare(a.DownloadID, b.DownloadID)
}
