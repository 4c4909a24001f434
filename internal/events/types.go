package events

// Entity types
const (
	EntityDownload = "download"
	EntityPending  = "pending"
	EntityQueue    = "queue"
	EntitySeries   = "series"
)

// Event type constants
const (
	EventQueueUpdated         = "queue.updated"
	EventPendingUpdated       = "pending.updated"
	EventDownloadGrabbed      = "download.grabbed"
	EventDownloadClientFailed = "download.client_failed"
	EventDownloadFailed       = "download.failed"
	EventDownloadIgnored      = "download.ignored"
	EventDownloadRemoved      = "download.removed"
	EventImportCompleted      = "import.completed"
	EventSearchRequested      = "search.requested"
)

// QueueUpdated is emitted when reconciliation or a removal changed the tracked downloads.
type QueueUpdated struct {
	BaseEvent
	Client  string `json:"client,omitempty"`
	Added   int    `json:"added"`
	Changed int    `json:"changed"`
	Removed int    `json:"removed"`
}

// PendingUpdated is emitted when the set of pending releases changed.
type PendingUpdated struct {
	BaseEvent
	Count int `json:"count"`
}

// DownloadGrabbed is emitted when a release was handed to a download client.
type DownloadGrabbed struct {
	BaseEvent
	Client     string  `json:"client"`
	DownloadID string  `json:"download_id"`
	Title      string  `json:"title"`
	Indexer    string  `json:"indexer,omitempty"`
	SeriesID   int64   `json:"series_id"`
	EpisodeIDs []int64 `json:"episode_ids,omitempty"`
}

// DownloadClientFailed is emitted when a download client reports an item as failed.
type DownloadClientFailed struct {
	BaseEvent
	Client     string `json:"client"`
	DownloadID string `json:"download_id"`
	Title      string `json:"title"`
	Message    string `json:"message,omitempty"`
}

// DownloadFailed is emitted after a download was marked failed and blocklisted.
type DownloadFailed struct {
	BaseEvent
	Client         string  `json:"client"`
	DownloadID     string  `json:"download_id"`
	Title          string  `json:"title"`
	SeriesID       int64   `json:"series_id,omitempty"`
	EpisodeIDs     []int64 `json:"episode_ids,omitempty"`
	Message        string  `json:"message,omitempty"`
	SkipRedownload bool    `json:"skip_redownload"`
}

// DownloadIgnored is emitted when a download is ignored and no longer tracked.
type DownloadIgnored struct {
	BaseEvent
	Client     string `json:"client"`
	DownloadID string `json:"download_id"`
	Title      string `json:"title"`
}

// DownloadRemoved is emitted when a queue item was removed by the user.
type DownloadRemoved struct {
	BaseEvent
	Client            string `json:"client,omitempty"`
	DownloadID        string `json:"download_id,omitempty"`
	Title             string `json:"title"`
	RemovedFromClient bool   `json:"removed_from_client"`
	Blocklisted       bool   `json:"blocklisted"`
}

// ImportCompleted is emitted by the importer once a download's files are in the library.
type ImportCompleted struct {
	BaseEvent
	Client     string `json:"client"`
	DownloadID string `json:"download_id"`
}

// SearchRequested asks the searcher to look for a replacement release.
type SearchRequested struct {
	BaseEvent
	SeriesID   int64   `json:"series_id"`
	EpisodeIDs []int64 `json:"episode_ids"`
	Reason     string  `json:"reason"`
}
