// Package queue merges pending releases and tracked downloads into one
// sortable, filterable, paged view and carries out removals from it.
package queue

import (
	"time"

	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/library"
	"github.com/vmunix/arrq/internal/pending"
	"github.com/vmunix/arrq/internal/quality"
	"github.com/vmunix/arrq/internal/tracked"
)

// Kind tells which store a queue item comes from.
type Kind string

const (
	KindTracked Kind = "tracked"
	KindPending Kind = "pending"
)

// Status is the status a queue item is shown with.
type Status string

const (
	StatusQueued                    Status = "queued"
	StatusPaused                    Status = "paused"
	StatusDownloading               Status = "downloading"
	StatusCompleted                 Status = "completed"
	StatusFailed                    Status = "failed"
	StatusWarning                   Status = "warning"
	StatusDelay                     Status = "delay"
	StatusDownloadClientUnavailable Status = "downloadClientUnavailable"
	StatusFallback                  Status = "fallback"
)

// Item is one row of the queue.
type Item struct {
	ID                      int                `json:"id"`
	Kind                    Kind               `json:"kind"`
	Series                  *library.Series    `json:"series,omitempty"`
	Episodes                []library.Episode  `json:"episodes,omitempty"`
	Title                   string             `json:"title"`
	Protocol                download.Protocol  `json:"protocol"`
	Indexer                 string             `json:"indexer,omitempty"`
	Quality                 quality.Model      `json:"quality"`
	Languages               []quality.Language `json:"languages"`
	Size                    int64              `json:"size"`
	SizeLeft                int64              `json:"sizeleft"`
	Status                  Status             `json:"status"`
	TrackedState            tracked.State      `json:"trackedDownloadState,omitempty"`
	StatusMessages          []string           `json:"statusMessages,omitempty"`
	DownloadClient          string             `json:"downloadClient,omitempty"`
	DownloadID              string             `json:"downloadId,omitempty"`
	OutputPath              string             `json:"outputPath,omitempty"`
	Added                   *time.Time         `json:"added,omitempty"`
	EstimatedCompletionTime *time.Time         `json:"estimatedCompletionTime,omitempty"`
	TimeLeft                *time.Duration     `json:"timeleft,omitempty"`
}

// Progress returns the completed percentage, 0 for items of unknown size.
func (i *Item) Progress() float64 {
	if i.Size <= 0 {
		return 0
	}
	return 100 - float64(i.SizeLeft)/float64(i.Size)*100
}

func fromTracked(td *tracked.TrackedDownload) Item {
	item := Item{
		ID:             td.QueueID,
		Kind:           KindTracked,
		Title:          td.Item.Title,
		Protocol:       td.Protocol,
		Indexer:        td.Indexer,
		Size:           td.Item.Size,
		SizeLeft:       td.Item.SizeLeft,
		Status:         trackedStatus(td),
		TrackedState:   td.State,
		StatusMessages: td.StatusMessages,
		DownloadClient: td.DownloadClient,
		DownloadID:     td.DownloadID,
		OutputPath:     td.Item.OutputPath,
		Languages:      []quality.Language{},
	}
	if !td.Added.IsZero() {
		added := td.Added
		item.Added = &added
	}
	if td.Item.TimeLeft != nil {
		left := *td.Item.TimeLeft
		eta := td.LastSeen.Add(left)
		item.TimeLeft = &left
		item.EstimatedCompletionTime = &eta
	}
	if td.Remote != nil {
		series := td.Remote.Series
		item.Series = &series
		item.Episodes = td.Remote.Episodes
		item.Quality = td.Remote.Quality
		item.Languages = td.Remote.Languages
	}
	return item
}

func trackedStatus(td *tracked.TrackedDownload) Status {
	switch td.State {
	case tracked.StateFailed:
		return StatusFailed
	case tracked.StateWarning:
		return StatusWarning
	}
	switch td.Item.Status {
	case download.StatusQueued:
		return StatusQueued
	case download.StatusPaused:
		return StatusPaused
	case download.StatusCompleted:
		return StatusCompleted
	case download.StatusFailed:
		return StatusFailed
	case download.StatusWarning:
		return StatusWarning
	default:
		return StatusDownloading
	}
}

func fromPending(r *pending.Release, now time.Time) Item {
	series := r.Remote.Series
	added := r.Added
	eta := r.ReleaseAt
	left := max(eta.Sub(now), 0)
	return Item{
		ID:                      r.QueueID(),
		Kind:                    KindPending,
		Series:                  &series,
		Episodes:                r.Remote.Episodes,
		Title:                   r.Title,
		Protocol:                r.Protocol,
		Indexer:                 r.Indexer,
		Quality:                 r.Remote.Quality,
		Languages:               r.Remote.Languages,
		Size:                    r.Size,
		SizeLeft:                r.Size,
		Status:                  pendingStatus(r.Reason),
		Added:                   &added,
		EstimatedCompletionTime: &eta,
		TimeLeft:                &left,
	}
}

func pendingStatus(reason pending.Reason) Status {
	switch reason {
	case pending.ReasonDownloadClientUnavailable:
		return StatusDownloadClientUnavailable
	case pending.ReasonFallback:
		return StatusFallback
	default:
		return StatusDelay
	}
}
