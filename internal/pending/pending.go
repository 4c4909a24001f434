// Package pending holds releases that were chosen but not yet sent to a download client.
package pending

import (
	"fmt"
	"strings"
	"time"

	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/library"
)

// QueueIDBase offsets pending queue ids so they never collide with tracked download ids.
const QueueIDBase = 1 << 30

// Reason explains why a release is waiting.
type Reason string

const (
	ReasonDelay                     Reason = "delay"
	ReasonDownloadClientUnavailable Reason = "downloadClientUnavailable"
	ReasonFallback                  Reason = "fallback"
)

// Valid reports whether r is a known reason.
func (r Reason) Valid() bool {
	switch r {
	case ReasonDelay, ReasonDownloadClientUnavailable, ReasonFallback:
		return true
	}
	return false
}

// Release is a deferred grab.
type Release struct {
	ID          int64                 `json:"id"`
	Title       string                `json:"title"`
	DownloadURL string                `json:"downloadUrl"`
	Indexer     string                `json:"indexer"`
	Protocol    download.Protocol     `json:"protocol"`
	Size        int64                 `json:"size"`
	Remote      library.RemoteEpisode `json:"remoteEpisode"`
	Reason      Reason                `json:"reason"`
	Added       time.Time             `json:"added"`
	ReleaseAt   time.Time             `json:"releaseAt"`
}

// QueueID returns the id the release is exposed under in the queue.
func (r *Release) QueueID() int {
	return QueueIDBase + int(r.ID)
}

// Identity is the key two releases are considered the same release by.
func (r *Release) Identity() string {
	ids := make([]string, len(r.Remote.Episodes))
	for i, e := range r.Remote.Episodes {
		ids[i] = fmt.Sprint(e.ID)
	}
	return strings.ToLower(fmt.Sprintf("%s|%s|%d|%s",
		r.Title, r.Indexer, r.Remote.Series.ID, strings.Join(ids, ",")))
}

// clone returns a copy that shares no slices with r.
func (r *Release) clone() *Release {
	c := *r
	c.Remote.Episodes = append([]library.Episode(nil), r.Remote.Episodes...)
	c.Remote.Languages = append(c.Remote.Languages[:0:0], r.Remote.Languages...)
	return &c
}
