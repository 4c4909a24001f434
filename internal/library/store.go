package library

import (
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/vmunix/arrq/pkg/release"
)

// querier abstracts *sql.DB and *sql.Tx for shared query logic.
type querier interface {
	QueryRow(query string, args ...any) *sql.Row
	Query(query string, args ...any) (*sql.Rows, error)
	Exec(query string, args ...any) (sql.Result, error)
}

// Store persists series and episodes.
type Store struct {
	db *sql.DB
}

// NewStore creates a new library store.
func NewStore(db *sql.DB) *Store {
	return &Store{db: db}
}

// Begin starts a transaction.
func (s *Store) Begin() (*Tx, error) {
	tx, err := s.db.Begin()
	if err != nil {
		return nil, fmt.Errorf("begin transaction: %w", err)
	}
	return &Tx{tx: tx}, nil
}

// Tx wraps a database transaction with the same write methods as Store.
type Tx struct {
	tx *sql.Tx
}

// Commit commits the transaction.
func (t *Tx) Commit() error {
	return t.tx.Commit()
}

// Rollback aborts the transaction.
func (t *Tx) Rollback() error {
	return t.tx.Rollback()
}

// mapSQLiteError translates driver errors into package sentinels.
// modernc.org/sqlite only exposes constraint failures through the message text.
func mapSQLiteError(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, sql.ErrNoRows) {
		return ErrNotFound
	}
	msg := err.Error()
	if strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed") {
		return ErrDuplicate
	}
	if strings.Contains(msg, "FOREIGN KEY constraint failed") ||
		strings.Contains(msg, "CHECK constraint failed") {
		return ErrConstraint
	}
	return err
}

func addSeries(q querier, s *Series) error {
	if s.SortTitle == "" {
		s.SortTitle = release.SortTitle(s.Title)
	}
	s.CleanTitle = release.CleanTitle(release.StripYear(s.Title))
	now := time.Now().UTC()
	result, err := q.Exec(`
		INSERT INTO series (title, sort_title, clean_title, added_at)
		VALUES (?, ?, ?, ?)`,
		s.Title, s.SortTitle, s.CleanTitle, now,
	)
	if err != nil {
		return fmt.Errorf("insert series: %w", mapSQLiteError(err))
	}
	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("get last insert id: %w", err)
	}
	s.ID = id
	s.AddedAt = now
	return nil
}

// AddSeries inserts a series and sets its ID.
func (s *Store) AddSeries(series *Series) error { return addSeries(s.db, series) }

// AddSeries inserts a series within a transaction.
func (t *Tx) AddSeries(series *Series) error { return addSeries(t.tx, series) }

// GetSeries retrieves a series by ID.
// Returns ErrNotFound if the series does not exist.
func (s *Store) GetSeries(id int64) (*Series, error) {
	series := &Series{}
	err := s.db.QueryRow(`
		SELECT id, title, sort_title, clean_title, added_at
		FROM series WHERE id = ?`, id,
	).Scan(&series.ID, &series.Title, &series.SortTitle, &series.CleanTitle, &series.AddedAt)
	if err != nil {
		return nil, fmt.Errorf("get series %d: %w", id, mapSQLiteError(err))
	}
	return series, nil
}

// ListSeries returns every series ordered by sort title.
func (s *Store) ListSeries() ([]*Series, error) {
	rows, err := s.db.Query(`
		SELECT id, title, sort_title, clean_title, added_at
		FROM series ORDER BY sort_title, id`)
	if err != nil {
		return nil, fmt.Errorf("list series: %w", err)
	}
	defer rows.Close()

	var out []*Series
	for rows.Next() {
		series := &Series{}
		if err := rows.Scan(&series.ID, &series.Title, &series.SortTitle, &series.CleanTitle, &series.AddedAt); err != nil {
			return nil, fmt.Errorf("scan series: %w", err)
		}
		out = append(out, series)
	}
	return out, rows.Err()
}
