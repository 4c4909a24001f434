package pending

import (
	"cmp"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"sync"
	"time"

	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/library"
	"github.com/vmunix/arrq/internal/quality"
)

// RemoteLookup rebuilds the series and episodes of a stored release.
type RemoteLookup interface {
	Lookup(seriesID int64, episodeIDs []int64, title string) (*library.RemoteEpisode, error)
}

// Store keeps pending releases in SQLite and serves reads from memory.
// Writes hit the database first and update the in-memory copy under the same lock.
type Store struct {
	db     *sql.DB
	lookup RemoteLookup
	log    *slog.Logger

	mu       sync.RWMutex
	releases map[int64]*Release
	onChange func(count int)
}

// NewStore creates a pending release store. Call Load before use.
func NewStore(db *sql.DB, lookup RemoteLookup, log *slog.Logger) *Store {
	if log == nil {
		log = slog.Default()
	}
	return &Store{
		db:       db,
		lookup:   lookup,
		log:      log.With("component", "pending"),
		releases: make(map[int64]*Release),
	}
}

// OnChange registers fn to be called with the new count after every change.
// fn runs without the store lock held.
func (s *Store) OnChange(fn func(count int)) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.onChange = fn
}

// Load replaces the in-memory set with the persisted releases.
// Releases whose series no longer exists are deleted.
func (s *Store) Load() error {
	rows, err := s.db.Query(`
		SELECT id, title, download_url, indexer, protocol, quality_id, quality_revision, languages,
		       size, series_id, episode_ids, reason, added_at, release_at
		FROM pending_releases ORDER BY id`)
	if err != nil {
		return fmt.Errorf("query pending releases: %w", err)
	}

	type stored struct {
		release    *Release
		seriesID   int64
		episodeIDs []int64
	}
	var loaded []stored
	for rows.Next() {
		r := &Release{}
		var protocol, languages, episodes, reason string
		var qualityID, revision int
		var seriesID int64
		if err := rows.Scan(&r.ID, &r.Title, &r.DownloadURL, &r.Indexer, &protocol, &qualityID, &revision,
			&languages, &r.Size, &seriesID, &episodes, &reason, &r.Added, &r.ReleaseAt); err != nil {
			rows.Close()
			return fmt.Errorf("scan pending release: %w", err)
		}
		r.Protocol, _ = download.ParseProtocol(protocol)
		r.Reason = Reason(reason)
		r.Remote.Quality = quality.Model{Quality: quality.FindByID(qualityID), Revision: revision}

		var langIDs []int
		if err := json.Unmarshal([]byte(languages), &langIDs); err != nil {
			rows.Close()
			return fmt.Errorf("decode languages of pending %d: %w", r.ID, err)
		}
		for _, id := range langIDs {
			r.Remote.Languages = append(r.Remote.Languages, quality.FindLanguageByID(id))
		}

		var episodeIDs []int64
		if err := json.Unmarshal([]byte(episodes), &episodeIDs); err != nil {
			rows.Close()
			return fmt.Errorf("decode episodes of pending %d: %w", r.ID, err)
		}
		loaded = append(loaded, stored{release: r, seriesID: seriesID, episodeIDs: episodeIDs})
	}
	if err := rows.Err(); err != nil {
		rows.Close()
		return fmt.Errorf("iterate pending releases: %w", err)
	}
	rows.Close()

	releases := make(map[int64]*Release, len(loaded))
	for _, l := range loaded {
		remote, err := s.lookup.Lookup(l.seriesID, l.episodeIDs, l.release.Title)
		if errors.Is(err, library.ErrNotFound) {
			s.log.Warn("dropping pending release for missing series", "title", l.release.Title, "series_id", l.seriesID)
			if _, err := s.db.Exec(`DELETE FROM pending_releases WHERE id = ?`, l.release.ID); err != nil {
				return fmt.Errorf("delete orphaned pending %d: %w", l.release.ID, err)
			}
			continue
		}
		if err != nil {
			return fmt.Errorf("resolve pending %d: %w", l.release.ID, err)
		}
		// Stored quality and languages win over a re-parse of the title.
		remote.Quality = l.release.Remote.Quality
		remote.Languages = l.release.Remote.Languages
		l.release.Remote = *remote
		releases[l.release.ID] = l.release
	}

	s.mu.Lock()
	s.releases = releases
	s.mu.Unlock()

	s.log.Info("pending releases loaded", "count", len(releases))
	return nil
}

// Add stores a release, replacing any older release with the same identity.
// The release's ID is set on success.
func (s *Store) Add(r *Release) error {
	if r.Title == "" || r.Remote.Series.ID == 0 {
		return fmt.Errorf("add pending %q: %w", r.Title, ErrInvalidRelease)
	}
	if r.Reason == "" {
		r.Reason = ReasonDelay
	}
	if !r.Reason.Valid() {
		return fmt.Errorf("add pending %q: unknown reason %q: %w", r.Title, r.Reason, ErrInvalidRelease)
	}
	if r.Added.IsZero() {
		r.Added = time.Now().UTC()
	}
	if r.ReleaseAt.IsZero() {
		r.ReleaseAt = r.Added
	}

	episodes, err := json.Marshal(r.Remote.EpisodeIDs())
	if err != nil {
		return fmt.Errorf("marshal episode ids: %w", err)
	}
	langIDs := make([]int, len(r.Remote.Languages))
	for i, l := range r.Remote.Languages {
		langIDs[i] = l.ID
	}
	languages, err := json.Marshal(langIDs)
	if err != nil {
		return fmt.Errorf("marshal languages: %w", err)
	}
	identity := r.Identity()

	s.mu.Lock()
	replaced, err := s.insert(r, identity, string(episodes), string(languages))
	if err != nil {
		s.mu.Unlock()
		return err
	}
	if replaced != 0 {
		delete(s.releases, replaced)
	}
	s.releases[r.ID] = r.clone()
	count, fn := len(s.releases), s.onChange
	s.mu.Unlock()

	if replaced != 0 {
		s.log.Debug("pending release replaced", "title", r.Title, "old_id", replaced, "id", r.ID)
	} else {
		s.log.Info("release pending", "title", r.Title, "reason", r.Reason, "release_at", r.ReleaseAt)
	}
	if fn != nil {
		fn(count)
	}
	return nil
}

// insert writes r in one transaction, deleting the row with the same identity.
// It returns the id of the replaced row, or 0.
func (s *Store) insert(r *Release, identity, episodes, languages string) (int64, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return 0, fmt.Errorf("begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	var replaced int64
	err = tx.QueryRow(`SELECT id FROM pending_releases WHERE identity = ?`, identity).Scan(&replaced)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return 0, fmt.Errorf("check pending identity: %w", err)
	}
	if replaced != 0 {
		if _, err := tx.Exec(`DELETE FROM pending_releases WHERE id = ?`, replaced); err != nil {
			return 0, fmt.Errorf("delete replaced pending %d: %w", replaced, err)
		}
	}

	result, err := tx.Exec(`
		INSERT INTO pending_releases (identity, title, download_url, indexer, protocol, quality_id, quality_revision,
			languages, size, series_id, episode_ids, reason, added_at, release_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		identity, r.Title, r.DownloadURL, r.Indexer, r.Protocol.String(), r.Remote.Quality.Quality.ID, r.Remote.Quality.Revision,
		languages, r.Size, r.Remote.Series.ID, episodes, string(r.Reason), r.Added.UTC(), r.ReleaseAt.UTC(),
	)
	if err != nil {
		return 0, fmt.Errorf("insert pending release: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("get last insert id: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("commit pending release: %w", err)
	}
	r.ID = id
	return replaced, nil
}

// Snapshot returns copies of all pending releases ordered by id.
func (s *Store) Snapshot() []*Release {
	s.mu.RLock()
	out := make([]*Release, 0, len(s.releases))
	for _, r := range s.releases {
		out = append(out, r.clone())
	}
	s.mu.RUnlock()

	slices.SortFunc(out, func(a, b *Release) int { return cmp.Compare(a.ID, b.ID) })
	return out
}

// Count returns the number of pending releases.
func (s *Store) Count() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.releases)
}

// FindByQueueID returns a copy of the release exposed under queueID.
func (s *Store) FindByQueueID(queueID int) (*Release, bool) {
	if queueID <= QueueIDBase {
		return nil, false
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	r, ok := s.releases[int64(queueID-QueueIDBase)]
	if !ok {
		return nil, false
	}
	return r.clone(), true
}

// Due returns copies of releases whose release time is at or before now.
func (s *Store) Due(now time.Time) []*Release {
	var due []*Release
	for _, r := range s.Snapshot() {
		if !r.ReleaseAt.After(now) {
			due = append(due, r)
		}
	}
	return due
}

// Remove deletes releases by id and returns how many existed.
func (s *Store) Remove(ids ...int64) (int, error) {
	if len(ids) == 0 {
		return 0, nil
	}

	s.mu.Lock()
	removed := 0
	for _, id := range ids {
		if _, ok := s.releases[id]; !ok {
			continue
		}
		if _, err := s.db.Exec(`DELETE FROM pending_releases WHERE id = ?`, id); err != nil {
			count, fn := len(s.releases), s.onChange
			s.mu.Unlock()
			if removed > 0 && fn != nil {
				fn(count)
			}
			return removed, fmt.Errorf("delete pending %d: %w", id, err)
		}
		delete(s.releases, id)
		removed++
	}
	count, fn := len(s.releases), s.onChange
	s.mu.Unlock()

	if removed > 0 && fn != nil {
		fn(count)
	}
	return removed, nil
}

// Reschedule moves a release's release time and reason.
func (s *Store) Reschedule(id int64, releaseAt time.Time, reason Reason) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	r, ok := s.releases[id]
	if !ok {
		return fmt.Errorf("reschedule pending %d: %w", id, ErrNotFound)
	}
	if _, err := s.db.Exec(`UPDATE pending_releases SET release_at = ?, reason = ? WHERE id = ?`,
		releaseAt.UTC(), string(reason), id); err != nil {
		return fmt.Errorf("reschedule pending %d: %w", id, err)
	}
	r.ReleaseAt = releaseAt.UTC()
	r.Reason = reason
	return nil
}
