package v1

import (
	"time"

	"github.com/vmunix/arrq/internal/blocklist"
	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/pending"
)

// Queue

type bulkRemoveRequest struct {
	IDs []int `json:"ids"`
}

type bulkRemoveResponse struct {
	Removed int      `json:"removed"`
	Errors  []string `json:"errors,omitempty"`
}

// Blocklist

type blocklistPage struct {
	Page         int                `json:"page"`
	PageSize     int                `json:"pageSize"`
	TotalRecords int                `json:"totalRecords"`
	Records      []*blocklist.Entry `json:"records"`
}

type bulkDeleteRequest struct {
	IDs []int64 `json:"ids"`
}

type bulkDeleteResponse struct {
	Deleted int64 `json:"deleted"`
}

// Library

type addSeriesRequest struct {
	Title     string              `json:"title"`
	SortTitle string              `json:"sortTitle,omitempty"`
	Episodes  []addEpisodeRequest `json:"episodes"`
}

type addEpisodeRequest struct {
	Season     int        `json:"seasonNumber"`
	Number     int        `json:"episodeNumber"`
	Title      string     `json:"title"`
	AirDateUTC *time.Time `json:"airDateUtc,omitempty"`
}

// Pending

type addPendingRequest struct {
	Title       string            `json:"title"`
	DownloadURL string            `json:"downloadUrl"`
	Indexer     string            `json:"indexer"`
	Protocol    download.Protocol `json:"protocol"`
	Size        int64             `json:"size"`
	Reason      pending.Reason    `json:"reason,omitempty"`
	ReleaseAt   *time.Time        `json:"releaseAt,omitempty"`
}

// Imports

type importedRequest struct {
	Client     string `json:"client"`
	DownloadID string `json:"downloadId"`
}

// Events

// EventResponse is one entry of the event history.
type EventResponse struct {
	ID         int64  `json:"id"`
	EventType  string `json:"eventType"`
	EntityType string `json:"entityType"`
	EntityID   int64  `json:"entityId"`
	OccurredAt string `json:"occurredAt"`
}

type listEventsResponse struct {
	Items []EventResponse `json:"items"`
	Total int             `json:"total"`
}
