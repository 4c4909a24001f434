package queue

import (
	"errors"

	"github.com/vmunix/arrq/internal/download"
)

var (
	// ErrNotFound is returned when a queue id matches neither a pending release
	// nor a tracked download, or the item was removed concurrently.
	ErrNotFound = errors.New("queue item not found")

	// ErrClientUnavailable is returned when the download client owning an item
	// is no longer configured or cannot be reached.
	ErrClientUnavailable = download.ErrClientUnavailable
)
