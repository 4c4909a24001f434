package queue

import (
	"log/slog"
	"slices"
	"time"

	"github.com/vmunix/arrq/internal/download"
	"github.com/vmunix/arrq/internal/metrics"
	"github.com/vmunix/arrq/internal/pending"
	"github.com/vmunix/arrq/internal/quality"
	"github.com/vmunix/arrq/internal/tracked"
)

const defaultPageSize = 10

// TrackedSource provides a point-in-time copy of tracked downloads.
type TrackedSource interface {
	Snapshot() []*tracked.TrackedDownload
}

// PendingSource provides a point-in-time copy of pending releases.
type PendingSource interface {
	Snapshot() []*pending.Release
}

// PagingSpec selects one page of the sorted queue.
type PagingSpec struct {
	Page          int
	PageSize      int
	SortKey       string
	SortDirection string
}

// Filter narrows the queue. Zero values match everything.
type Filter struct {
	SeriesIDs            []int64
	Protocol             *download.Protocol
	Languages            []int
	Qualities            []int
	Statuses             []Status
	IncludeUnknownSeries bool
}

// Page is one page of queue items.
type Page struct {
	Page          int    `json:"page"`
	PageSize      int    `json:"pageSize"`
	SortKey       string `json:"sortKey"`
	SortDirection string `json:"sortDirection"`
	TotalRecords  int    `json:"totalRecords"`
	Records       []Item `json:"records"`
}

// Service answers queue queries from the last reconciled state. It never
// calls a download client.
type Service struct {
	tracked  TrackedSource
	pending  PendingSource
	ranker   Ranker
	pageSize int
	metrics  *metrics.Metrics
	log      *slog.Logger
	now      func() time.Time
}

// NewService creates a queue service. pageSize is used when a request does not set one.
func NewService(tr TrackedSource, pe PendingSource, ranker Ranker, pageSize int, m *metrics.Metrics, log *slog.Logger) *Service {
	if log == nil {
		log = slog.Default()
	}
	if pageSize < 1 {
		pageSize = defaultPageSize
	}
	return &Service{
		tracked:  tr,
		pending:  pe,
		ranker:   ranker,
		pageSize: pageSize,
		metrics:  m,
		log:      log.With("component", "queue"),
		now:      time.Now,
	}
}

// GetQueue returns one page of the filtered and sorted queue along with
// the filtered total. Unknown sort keys sort by time left and a page past
// the end returns the last page instead.
func (s *Service) GetQueue(spec PagingSpec, f Filter) Page {
	s.metrics.CountQuery()

	items := s.Items(f)
	spec = s.normalize(spec)
	slices.SortStableFunc(items, sortFunc(
		comparatorFor(spec.SortKey, s.ranker, newCollator()),
		spec.SortDirection == SortDescending,
	))

	page := Page{
		Page:          spec.Page,
		PageSize:      spec.PageSize,
		SortKey:       spec.SortKey,
		SortDirection: spec.SortDirection,
		TotalRecords:  len(items),
	}
	page.Records = pageOf(items, page.Page, page.PageSize)
	if len(page.Records) == 0 && page.Page > 1 {
		page.Page = max((page.TotalRecords+page.PageSize-1)/page.PageSize, 1)
		page.Records = pageOf(items, page.Page, page.PageSize)
	}

	s.log.Debug("queue query", "sort_key", page.SortKey, "direction", page.SortDirection,
		"page", page.Page, "total", page.TotalRecords)
	return page
}

// Items returns the filtered, unsorted queue: tracked downloads followed by
// pending releases.
func (s *Service) Items(f Filter) []Item {
	now := s.now()
	downloads := s.tracked.Snapshot()
	releases := s.pending.Snapshot()

	items := make([]Item, 0, len(downloads)+len(releases))
	for _, td := range downloads {
		if td.State == tracked.StateIgnored {
			continue
		}
		if td.Remote == nil && !f.IncludeUnknownSeries {
			continue
		}
		items = append(items, fromTracked(td))
	}
	for _, r := range releases {
		items = append(items, fromPending(r, now))
	}
	return slices.DeleteFunc(items, func(i Item) bool { return !f.matches(&i) })
}

func (s *Service) normalize(spec PagingSpec) PagingSpec {
	if spec.Page < 1 {
		spec.Page = 1
	}
	if spec.PageSize < 1 {
		spec.PageSize = s.pageSize
	}
	spec.SortKey = normalizeSortKey(spec.SortKey)
	spec.SortDirection = normalizeDirection(spec.SortDirection)
	return spec
}

func pageOf(items []Item, page, size int) []Item {
	skip := (page - 1) * size
	if skip >= len(items) {
		return []Item{}
	}
	return items[skip:min(skip+size, len(items))]
}

func (f Filter) matches(i *Item) bool {
	if len(f.SeriesIDs) > 0 && (i.Series == nil || !slices.Contains(f.SeriesIDs, i.Series.ID)) {
		return false
	}
	if f.Protocol != nil && i.Protocol != *f.Protocol {
		return false
	}
	if len(f.Languages) > 0 && !slices.ContainsFunc(i.Languages, func(l quality.Language) bool {
		return slices.Contains(f.Languages, l.ID)
	}) {
		return false
	}
	if len(f.Qualities) > 0 && !slices.Contains(f.Qualities, i.Quality.Quality.ID) {
		return false
	}
	if len(f.Statuses) > 0 && !slices.Contains(f.Statuses, i.Status) {
		return false
	}
	return true
}
