// Package blocklist records releases that must not be grabbed again.
package blocklist

import (
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/quality"
)

// ErrNotFound is returned when a blocklist entry does not exist.
var ErrNotFound = errors.New("blocklist entry not found")

// Entry is an immutable record of a rejected release.
type Entry struct {
	ID          int64              `json:"id"`
	SeriesID    int64              `json:"seriesId"`
	EpisodeIDs  []int64            `json:"episodeIds"`
	SourceTitle string             `json:"sourceTitle"`
	Languages   []quality.Language `json:"languages"`
	Quality     quality.Model      `json:"quality"`
	Date        time.Time          `json:"date"`
	Protocol    download.Protocol  `json:"protocol"`
	Indexer     string             `json:"indexer,omitempty"`
	Message     string             `json:"message,omitempty"`
	DownloadID  string             `json:"downloadId,omitempty"`
}

// Filter narrows List results. Zero values match everything.
type Filter struct {
	SeriesIDs []int64
	Protocol  *download.Protocol
	Limit     int // 0 = no limit
	Offset    int
}

// Store persists blocklist entries.
type Store struct {
	db *sql.DB
}

// NewStore creates a blocklist store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Block records a rejected release and sets its ID. A zero Date is set to now.
func (s *Store) Block(e *Entry) error {
	if e.Date.IsZero() {
		e.Date = time.Now().UTC()
	}
	if e.EpisodeIDs == nil {
		e.EpisodeIDs = []int64{}
	}
	episodes, err := json.Marshal(e.EpisodeIDs)
	if err != nil {
		return fmt.Errorf("marshal episode ids: %w", err)
	}
	languages, err := json.Marshal(languageIDs(e.Languages))
	if err != nil {
		return fmt.Errorf("marshal languages: %w", err)
	}

	result, err := s.db.Exec(`
		INSERT INTO blocklist (series_id, episode_ids, source_title, quality_id, quality_revision, languages, date, protocol, indexer, message, download_id)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		e.SeriesID, string(episodes), e.SourceTitle, e.Quality.Quality.ID, e.Quality.Revision, string(languages),
		e.Date, e.Protocol.String(), e.Indexer, e.Message, e.DownloadID,
	)
	if err != nil {
		return fmt.Errorf("insert blocklist entry: %w", err)
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	e.ID = id
	return nil
}

const entryColumns = `id, series_id, episode_ids, source_title, quality_id, quality_revision, languages, date, protocol, indexer, message, download_id`

// Get retrieves an entry by ID.
// Returns ErrNotFound if the entry does not exist.
func (s *Store) Get(id int64) (*Entry, error) {
	row := s.db.QueryRow(`SELECT `+entryColumns+` FROM blocklist WHERE id = ?`, id)
	e, err := scanEntry(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("get blocklist %d: %w", id, ErrNotFound)
	}
	if err != nil {
		return nil, fmt.Errorf("get blocklist %d: %w", id, err)
	}
	return e, nil
}

// List returns entries matching f, newest first, with the total number of matches.
func (s *Store) List(f Filter) ([]*Entry, int, error) {
	var conditions []string
	var args []any

	if len(f.SeriesIDs) > 0 {
		conditions = append(conditions, "series_id IN ("+placeholders(len(f.SeriesIDs))+")")
		for _, id := range f.SeriesIDs {
			args = append(args, id)
		}
	}
	if f.Protocol != nil {
		conditions = append(conditions, "protocol = ?")
		args = append(args, f.Protocol.String())
	}

	whereClause := ""
	if len(conditions) > 0 {
		whereClause = " WHERE " + strings.Join(conditions, " AND ")
	}

	var total int
	if err := s.db.QueryRow("SELECT COUNT(*) FROM blocklist"+whereClause, args...).Scan(&total); err != nil {
		return nil, 0, fmt.Errorf("count blocklist: %w", err)
	}

	query := "SELECT " + entryColumns + " FROM blocklist" + whereClause + " ORDER BY date DESC, id DESC"
	if f.Limit > 0 {
		query += fmt.Sprintf(" LIMIT %d OFFSET %d", f.Limit, f.Offset)
	}

	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, 0, fmt.Errorf("list blocklist: %w", err)
	}
	defer rows.Close()

	var entries []*Entry
	for rows.Next() {
		e, err := scanEntry(rows)
		if err != nil {
			return nil, 0, fmt.Errorf("scan blocklist entry: %w", err)
		}
		entries = append(entries, e)
	}
	return entries, total, rows.Err()
}

// Delete removes an entry.
// Returns ErrNotFound if the entry does not exist.
func (s *Store) Delete(id int64) error {
	result, err := s.db.Exec(`DELETE FROM blocklist WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete blocklist %d: %w", id, err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("delete blocklist %d: %w", id, ErrNotFound)
	}
	return nil
}

// DeleteMany removes the given entries and returns how many existed.
func (s *Store) DeleteMany(ids []int64) (int64, error) {
	if len(ids) == 0 {
		return 0, nil
	}
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	result, err := s.db.Exec(`DELETE FROM blocklist WHERE id IN (`+placeholders(len(ids))+`)`, args...)
	if err != nil {
		return 0, fmt.Errorf("delete blocklist entries: %w", err)
	}
	return result.RowsAffected()
}

// HasDownload reports whether a download id has been blocklisted.
func (s *Store) HasDownload(downloadID string) (bool, error) {
	if downloadID == "" {
		return false, nil
	}
	var n int
	if err := s.db.QueryRow(`SELECT COUNT(*) FROM blocklist WHERE download_id = ?`, downloadID).Scan(&n); err != nil {
		return false, fmt.Errorf("check blocklist download: %w", err)
	}
	return n > 0, nil
}

// IsBlocklisted reports whether a release title is blocklisted for a series.
// Titles compare case-insensitively.
func (s *Store) IsBlocklisted(seriesID int64, sourceTitle string) (bool, error) {
	var n int
	err := s.db.QueryRow(`
		SELECT COUNT(*) FROM blocklist
		WHERE series_id = ? AND source_title = ? COLLATE NOCASE`,
		seriesID, sourceTitle,
	).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check blocklist title: %w", err)
	}
	return n > 0, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanEntry(row scanner) (*Entry, error) {
	e := &Entry{}
	var episodes, languages, protocol string
	var qualityID int
	if err := row.Scan(&e.ID, &e.SeriesID, &episodes, &e.SourceTitle, &qualityID, &e.Quality.Revision,
		&languages, &e.Date, &protocol, &e.Indexer, &e.Message, &e.DownloadID); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(episodes), &e.EpisodeIDs); err != nil {
		return nil, fmt.Errorf("decode episode ids: %w", err)
	}
	var langIDs []int
	if err := json.Unmarshal([]byte(languages), &langIDs); err != nil {
		return nil, fmt.Errorf("decode languages: %w", err)
	}
	e.Languages = make([]quality.Language, 0, len(langIDs))
	for _, id := range langIDs {
		e.Languages = append(e.Languages, quality.FindLanguageByID(id))
	}
	e.Quality.Quality = quality.FindByID(qualityID)
	e.Protocol, _ = download.ParseProtocol(protocol)
	return e, nil
}

func languageIDs(langs []quality.Language) []int {
	ids := make([]int, len(langs))
	for i, l := range langs {
		ids[i] = l.ID
	}
	return ids
}

func placeholders(n int) string {
	return strings.TrimSuffix(strings.Repeat("?,", n), ",")
}
