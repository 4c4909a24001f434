// Package library stores the series and episodes releases are matched against
// and resolves release titles to them.
package library

import (
	"time"

	"github.com/vmunix/arrq/internal/quality"
)

// Series is a monitored TV series.
type Series struct {
	ID         int64     `json:"id"`
	Title      string    `json:"title"`
	SortTitle  string    `json:"sortTitle"`
	CleanTitle string    `json:"-"`
	AddedAt    time.Time `json:"added"`
}

// Episode is a single episode of a series.
type Episode struct {
	ID         int64      `json:"id"`
	SeriesID   int64      `json:"seriesId"`
	Season     int        `json:"seasonNumber"`
	Number     int        `json:"episodeNumber"`
	Title      string     `json:"title"`
	AirDateUTC *time.Time `json:"airDateUtc,omitempty"`
}

// RemoteEpisode is a release matched to a series and its episodes.
type RemoteEpisode struct {
	Series    Series             `json:"series"`
	Episodes  []Episode          `json:"episodes"`
	Quality   quality.Model      `json:"quality"`
	Languages []quality.Language `json:"languages"`
}

// EpisodeIDs returns the ids of the matched episodes.
func (r *RemoteEpisode) EpisodeIDs() []int64 {
	ids := make([]int64, len(r.Episodes))
	for i, e := range r.Episodes {
		ids[i] = e.ID
	}
	return ids
}
