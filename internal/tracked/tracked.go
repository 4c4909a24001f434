// Package tracked keeps the reconciled view of downloads that live in external download clients.
package tracked

import (
	"hash/fnv"
	"time"

	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/library"
)

// queueIDSpace bounds tracked queue ids to [1, queueIDSpace) so they never reach the pending range.
const queueIDSpace = 1 << 30

// Key identifies a download within its client.
type Key struct {
	Client     string
	DownloadID string
}

// TrackedDownload is a client item reconciled into local state.
type TrackedDownload struct {
	QueueID        int
	DownloadClient string
	DownloadID     string
	Item           download.ClientItem
	Protocol       download.Protocol
	Indexer        string
	Remote         *library.RemoteEpisode // nil when the release is not matched to a series
	State          State
	StatusMessages []string
	Added          time.Time
	LastSeen       time.Time
	LastProgress   time.Time
}

// Key returns the identity of the download.
func (t *TrackedDownload) Key() Key {
	return Key{Client: t.DownloadClient, DownloadID: t.DownloadID}
}

// clone returns a copy sharing no mutable slices or pointers with t.
func (t *TrackedDownload) clone() *TrackedDownload {
	c := *t
	c.StatusMessages = append([]string(nil), t.StatusMessages...)
	if t.Item.TimeLeft != nil {
		left := *t.Item.TimeLeft
		c.Item.TimeLeft = &left
	}
	if t.Remote != nil {
		remote := *t.Remote
		remote.Episodes = append([]library.Episode(nil), t.Remote.Episodes...)
		c.Remote = &remote
	}
	return &c
}

// hashQueueID derives a stable queue id for a key, in [1, queueIDSpace).
func hashQueueID(k Key) int {
	h := fnv.New32a()
	_, _ = h.Write([]byte(k.Client))
	_, _ = h.Write([]byte{0})
	_, _ = h.Write([]byte(k.DownloadID))
	return int(h.Sum32()%(queueIDSpace-1)) + 1
}
