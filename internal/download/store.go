package download

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/vmunix/arrq/internal/quality"
)

// Grab records a release handed to a download client, so later observations
// of the client's item can be tied back to the series and episodes it was grabbed for.
type Grab struct {
	ID         int64
	Client     string
	DownloadID string
	SeriesID   int64
	EpisodeIDs []int64
	Title      string
	Indexer    string
	Protocol   Protocol
	Quality    quality.Model
	Languages  []quality.Language
	GrabbedAt  time.Time
}

// Store persists grab records.
type Store struct {
	db *sql.DB
}

// NewStore creates a grab store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Add records a grab.
// This method is idempotent: if a grab with the same client and download id
// already exists, g receives the existing record's ID and time.
func (s *Store) Add(g *Grab) error {
	var existingID int64
	var existingAt time.Time
	err := s.db.QueryRow(`
		SELECT id, grabbed_at FROM grabs
		WHERE client = ? AND download_id = ?`,
		g.Client, g.DownloadID,
	).Scan(&existingID, &existingAt)
	if err == nil {
		g.ID = existingID
		g.GrabbedAt = existingAt
		return nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return fmt.Errorf("check existing grab: %w", err)
	}

	episodes, err := json.Marshal(nonNil(g.EpisodeIDs))
	if err != nil {
		return fmt.Errorf("marshal episode ids: %w", err)
	}
	langIDs := make([]int, len(g.Languages))
	for i, l := range g.Languages {
		langIDs[i] = l.ID
	}
	languages, err := json.Marshal(langIDs)
	if err != nil {
		return fmt.Errorf("marshal languages: %w", err)
	}
	if g.GrabbedAt.IsZero() {
		g.GrabbedAt = time.Now().UTC()
	}

	result, err := s.db.Exec(`
		INSERT INTO grabs (client, download_id, series_id, episode_ids, title, indexer, protocol,
			quality_id, quality_revision, languages, grabbed_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		g.Client, g.DownloadID, g.SeriesID, string(episodes), g.Title, g.Indexer, g.Protocol.String(),
		g.Quality.Quality.ID, g.Quality.Revision, string(languages), g.GrabbedAt,
	)
	if err != nil {
		return fmt.Errorf("insert grab: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	g.ID = id
	return nil
}

// Get returns the grab for a client's download id.
// Returns ErrNotFound if no grab was recorded.
func (s *Store) Get(client, downloadID string) (*Grab, error) {
	g := &Grab{}
	var episodes, protocol, languages string
	var qualityID, revision int
	err := s.db.QueryRow(`
		SELECT id, client, download_id, series_id, episode_ids, title, indexer, protocol,
		       quality_id, quality_revision, languages, grabbed_at
		FROM grabs WHERE client = ? AND download_id = ?`, client, downloadID,
	).Scan(&g.ID, &g.Client, &g.DownloadID, &g.SeriesID, &episodes, &g.Title, &g.Indexer, &protocol,
		&qualityID, &revision, &languages, &g.GrabbedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get grab %s/%s: %w", client, downloadID, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get grab %s/%s: %w", client, downloadID, err)
	}
	if err := json.Unmarshal([]byte(episodes), &g.EpisodeIDs); err != nil {
		return nil, fmt.Errorf("decode episode ids: %w", err)
	}
	var langIDs []int
	if err := json.Unmarshal([]byte(languages), &langIDs); err != nil {
		return nil, fmt.Errorf("decode languages: %w", err)
	}
	for _, id := range langIDs {
		g.Languages = append(g.Languages, quality.FindLanguageByID(id))
	}
	g.Protocol, _ = ParseProtocol(protocol)
	g.Quality = quality.Model{Quality: quality.FindByID(qualityID), Revision: revision}
	return g, nil
}

// Delete removes a grab record. Deleting a missing record is not an error.
func (s *Store) Delete(client, downloadID string) error {
	if _, err := s.db.Exec(`DELETE FROM grabs WHERE client = ? AND download_id = ?`, client, downloadID); err != nil {
		return fmt.Errorf("delete grab %s/%s: %w", client, downloadID, err)
	}
	return nil
}

func nonNil(ids []int64) []int64 {
	if ids == nil {
		return []int64{}
	}
	return ids
}
