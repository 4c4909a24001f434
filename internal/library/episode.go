package library

import (
	"fmt"
	"strings"
)

const episodeColumns = "id, series_id, season, episode, title, air_date_utc"

func addEpisode(q querier, e *Episode) error {
	result, err := q.Exec(`
		INSERT INTO episodes (series_id, season, episode, title, air_date_utc)
		VALUES (?, ?, ?, ?, ?)`,
		e.SeriesID, e.Season, e.Number, e.Title, e.AirDateUTC,
	)
	if err != nil {
		return fmt.Errorf("insert episode: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	e.ID = id
	return nil
}

// AddEpisode inserts a new episode and sets its ID.
func (s *Store) AddEpisode(e *Episode) error { return addEpisode(s.db, e) }

// AddEpisode inserts a new episode within a transaction.
func (t *Tx) AddEpisode(e *Episode) error { return addEpisode(t.tx, e) }

// GetEpisode retrieves an episode by ID.
// Returns ErrNotFound if the episode does not exist.
func (s *Store) GetEpisode(id int64) (*Episode, error) {
	e := &Episode{}
	err := s.db.QueryRow(`SELECT `+episodeColumns+` FROM episodes WHERE id = ?`, id).
		Scan(&e.ID, &e.SeriesID, &e.Season, &e.Number, &e.Title, &e.AirDateUTC)
	if err != nil {
		return nil, fmt.Errorf("get episode %d: %w", id, mapSQLiteError(err))
	}
	return e, nil
}

// ListEpisodes returns the episodes of a series, optionally limited to one season
// (season < 0 means all seasons), ordered by season and number.
func (s *Store) ListEpisodes(seriesID int64, season int) ([]Episode, error) {
	query := `SELECT ` + episodeColumns + ` FROM episodes WHERE series_id = ?`
	args := []any{seriesID}
	if season >= 0 {
		query += " AND season = ?"
		args = append(args, season)
	}
	query += " ORDER BY season, episode"
	return s.queryEpisodes(query, args...)
}

// FindEpisodes returns the episodes of a series season with the given numbers.
// Numbers that do not exist are skipped.
func (s *Store) FindEpisodes(seriesID int64, season int, numbers []int) ([]Episode, error) {
	if len(numbers) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(numbers)), ",")
	args := []any{seriesID, season}
	for _, n := range numbers {
		args = append(args, n)
	}
	return s.queryEpisodes(`SELECT `+episodeColumns+` FROM episodes
		WHERE series_id = ? AND season = ? AND episode IN (`+placeholders+`)
		ORDER BY season, episode`, args...)
}

// GetEpisodes returns the episodes with the given IDs ordered by season and number.
func (s *Store) GetEpisodes(ids []int64) ([]Episode, error) {
	if len(ids) == 0 {
		return nil, nil
	}
	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(ids)), ",")
	args := make([]any, len(ids))
	for i, id := range ids {
		args[i] = id
	}
	return s.queryEpisodes(`SELECT `+episodeColumns+` FROM episodes
		WHERE id IN (`+placeholders+`) ORDER BY season, episode`, args...)
}

func (s *Store) queryEpisodes(query string, args ...any) ([]Episode, error) {
	rows, err := s.db.Query(query, args...)
	if err != nil {
		return nil, fmt.Errorf("query episodes: %w", err)
	}
	defer rows.Close()

	var out []Episode
	for rows.Next() {
		var e Episode
		if err := rows.Scan(&e.ID, &e.SeriesID, &e.Season, &e.Number, &e.Title, &e.AirDateUTC); err != nil {
			return nil, fmt.Errorf("scan episode: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}
