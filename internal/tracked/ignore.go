package tracked

import (
	"database/sql"
	"fmt"
	"time"
)

// IgnoreStore persists downloads the user chose to ignore, so they are not
// tracked again after a restart.
type IgnoreStore struct {
	db *sql.DB
}

// NewIgnoreStore creates an ignore record store.
func NewIgnoreStore(db *sql.DB) *IgnoreStore {
	return &IgnoreStore{db: db}
}

// Add records an ignored download.
// Returns ErrDuplicate if the download was already ignored.
func (s *IgnoreStore) Add(key Key, title string) error {
	result, err := s.db.Exec(`
		INSERT INTO ignored_downloads (client, download_id, title, ignored_at)
		VALUES (?, ?, ?, ?)
		ON CONFLICT (client, download_id) DO NOTHING`,
		key.Client, key.DownloadID, title, time.Now().UTC(),
	)
	if err != nil {
		return fmt.Errorf("insert ignore record: %w", err)
	}
	n, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("rows affected: %w", err)
	}
	if n == 0 {
		return fmt.Errorf("ignore %s/%s: %w", key.Client, key.DownloadID, ErrDuplicate)
	}
	return nil
}

// Has reports whether a download was ignored.
func (s *IgnoreStore) Has(key Key) (bool, error) {
	var n int
	err := s.db.QueryRow(`SELECT COUNT(*) FROM ignored_downloads WHERE client = ? AND download_id = ?`,
		key.Client, key.DownloadID).Scan(&n)
	if err != nil {
		return false, fmt.Errorf("check ignore record: %w", err)
	}
	return n > 0, nil
}
