package queue

import (
	"cmp"
	"strings"
	"time"

	"golang.org/x/text/collate"
	"golang.org/x/text/language"

	"github.com/vmunix/arrq/internal/quality"
)

// Ranker orders qualities and languages by user preference.
type Ranker interface {
	CompareQuality(a, b quality.Model) int
	CompareLanguages(a, b []quality.Language) int
}

const (
	SortAscending  = "ascending"
	SortDescending = "descending"

	defaultSortKey = "timeleft"
)

// comparator orders items ascending by one sort key.
// When null is set, items it reports true for sort last in either direction.
type comparator struct {
	compare func(a, b *Item) int
	null    func(*Item) bool
}

// comparatorFor returns the comparator for key, falling back to time left.
// The collator is used for the indexer and download client keys and is not
// safe for concurrent use, so callers create one per sort.
func comparatorFor(key string, ranker Ranker, coll *collate.Collator) comparator {
	switch strings.ToLower(key) {
	case "status":
		return comparator{compare: func(a, b *Item) int {
			return strings.Compare(string(a.Status), string(b.Status))
		}}
	case "series.sorttitle":
		return comparator{compare: func(a, b *Item) int {
			return strings.Compare(seriesSortTitle(a), seriesSortTitle(b))
		}}
	case "title":
		return comparator{compare: func(a, b *Item) int {
			return strings.Compare(a.Title, b.Title)
		}}
	case "episode":
		return comparator{compare: func(a, b *Item) int {
			as, ae := episodeNumber(a)
			bs, be := episodeNumber(b)
			if c := cmp.Compare(as, bs); c != 0 {
				return c
			}
			return cmp.Compare(ae, be)
		}}
	case "episode.airdateutc", "episodes.airdateutc":
		return comparator{compare: func(a, b *Item) int {
			return episodeAirDate(a).Compare(episodeAirDate(b))
		}}
	case "episode.title", "episodes.title":
		return comparator{compare: func(a, b *Item) int {
			return strings.Compare(episodeTitle(a), episodeTitle(b))
		}}
	case "language", "languages":
		return comparator{compare: func(a, b *Item) int {
			return ranker.CompareLanguages(a.Languages, b.Languages)
		}}
	case "quality":
		return comparator{compare: func(a, b *Item) int {
			return ranker.CompareQuality(a.Quality, b.Quality)
		}}
	case "size":
		return comparator{compare: func(a, b *Item) int {
			return cmp.Compare(a.Size, b.Size)
		}}
	case "progress":
		return comparator{compare: func(a, b *Item) int {
			return cmp.Compare(clampedProgress(a), clampedProgress(b))
		}}
	case "estimatedcompletiontime":
		return comparator{
			compare: func(a, b *Item) int { return a.EstimatedCompletionTime.Compare(*b.EstimatedCompletionTime) },
			null:    func(i *Item) bool { return i.EstimatedCompletionTime == nil },
		}
	case "added":
		return comparator{
			compare: func(a, b *Item) int { return a.Added.Compare(*b.Added) },
			null:    func(i *Item) bool { return i.Added == nil },
		}
	case "protocol":
		return comparator{compare: func(a, b *Item) int {
			return cmp.Compare(a.Protocol, b.Protocol)
		}}
	case "indexer":
		return comparator{compare: func(a, b *Item) int {
			return coll.CompareString(a.Indexer, b.Indexer)
		}}
	case "downloadclient":
		return comparator{compare: func(a, b *Item) int {
			return coll.CompareString(a.DownloadClient, b.DownloadClient)
		}}
	default:
		return comparator{
			compare: func(a, b *Item) int { return cmp.Compare(*a.TimeLeft, *b.TimeLeft) },
			null:    func(i *Item) bool { return i.TimeLeft == nil },
		}
	}
}

// normalizeSortKey lower-cases key and maps unknown keys to the default.
func normalizeSortKey(key string) string {
	switch k := strings.ToLower(key); k {
	case "status", "series.sorttitle", "title", "episode",
		"episode.airdateutc", "episodes.airdateutc", "episode.title", "episodes.title",
		"language", "languages", "quality", "size", "progress",
		"timeleft", "estimatedcompletiontime", "added",
		"protocol", "indexer", "downloadclient":
		return k
	default:
		return defaultSortKey
	}
}

// normalizeDirection accepts ascending/descending and asc/desc; anything else is ascending.
func normalizeDirection(dir string) string {
	switch strings.ToLower(dir) {
	case "descending", "desc":
		return SortDescending
	default:
		return SortAscending
	}
}

func newCollator() *collate.Collator {
	return collate.New(language.Und, collate.IgnoreCase)
}

// sortFunc builds the full ordering: the primary key in the requested
// direction with nulls last, then most complete first.
func sortFunc(c comparator, descending bool) func(a, b Item) int {
	return func(a, b Item) int {
		if r := primary(c, &a, &b, descending); r != 0 {
			return r
		}
		return cmp.Compare(b.Progress(), a.Progress())
	}
}

func primary(c comparator, a, b *Item, descending bool) int {
	if c.null != nil {
		an, bn := c.null(a), c.null(b)
		switch {
		case an && bn:
			return 0
		case an:
			return 1
		case bn:
			return -1
		}
	}
	r := c.compare(a, b)
	if descending {
		return -r
	}
	return r
}

func seriesSortTitle(i *Item) string {
	if i.Series != nil && i.Series.SortTitle != "" {
		return i.Series.SortTitle
	}
	return i.Title
}

func episodeNumber(i *Item) (int, int) {
	if len(i.Episodes) == 0 {
		return -1, -1
	}
	return i.Episodes[0].Season, i.Episodes[0].Number
}

func episodeAirDate(i *Item) time.Time {
	if len(i.Episodes) == 0 || i.Episodes[0].AirDateUTC == nil {
		return time.Time{}
	}
	return *i.Episodes[0].AirDateUTC
}

func episodeTitle(i *Item) string {
	if len(i.Episodes) == 0 {
		return ""
	}
	return i.Episodes[0].Title
}

func clampedProgress(i *Item) float64 {
	return 100 - float64(i.SizeLeft)/float64(max(i.Size, 1))*100
}
