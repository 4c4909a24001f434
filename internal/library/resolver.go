package library

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/patrickmn/go-cache"

	"github.com/vmunix/arrq/internal/quality"
	"github.com/vmunix/arrq/pkg/release"
)

const seriesCacheKey = "series:all"

// Resolver maps release titles to library series and episodes.
// Results are memoised; call Invalidate after the library changes.
type Resolver struct {
	store *Store
	cache *cache.Cache
	log   *slog.Logger
}

// NewResolver creates a resolver whose memoised results live for ttl.
func NewResolver(store *Store, ttl time.Duration, log *slog.Logger) *Resolver {
	if log == nil {
		log = slog.Default()
	}
	return &Resolver{
		store: store,
		cache: cache.New(ttl, 2*ttl),
		log:   log.With("component", "resolver"),
	}
}

// resolution wraps a cached result so a known miss is distinguishable from no entry.
type resolution struct {
	remote *RemoteEpisode
}

// Resolve parses title and matches it against the library.
// It returns nil without error when the title does not map to a known series.
func (r *Resolver) Resolve(title string) (*RemoteEpisode, error) {
	key := "title:" + title
	if v, ok := r.cache.Get(key); ok {
		return v.(resolution).remote, nil
	}

	remote, err := r.resolve(title)
	if err != nil {
		return nil, err
	}
	r.cache.Set(key, resolution{remote: remote}, cache.DefaultExpiration)
	return remote, nil
}

func (r *Resolver) resolve(title string) (*RemoteEpisode, error) {
	info := release.Parse(title)
	if !info.IsEpisode() || info.Title == "" {
		r.log.Debug("title not parseable as episode", "title", title)
		return nil, nil
	}

	all, err := r.allSeries()
	if err != nil {
		return nil, err
	}
	titles := make([]string, len(all))
	for i, s := range all {
		titles[i] = s.Title
	}

	match := release.MatchTitle(info.Title, titles)
	if match.Index < 0 || match.Confidence < release.ConfidenceMedium {
		r.log.Debug("no series match", "title", title, "parsed", info.Title, "score", match.Score)
		return nil, nil
	}
	series := all[match.Index]

	var episodes []Episode
	if info.FullSeason {
		episodes, err = r.store.ListEpisodes(series.ID, info.Season)
	} else {
		episodes, err = r.store.FindEpisodes(series.ID, info.Season, info.Episodes)
	}
	if err != nil {
		return nil, fmt.Errorf("resolve episodes for %q: %w", title, err)
	}

	return &RemoteEpisode{
		Series:    *series,
		Episodes:  episodes,
		Quality:   quality.FromRelease(info),
		Languages: quality.ParseLanguages(info.Languages),
	}, nil
}

// Lookup builds a RemoteEpisode from stored ids, parsing quality and languages from title.
func (r *Resolver) Lookup(seriesID int64, episodeIDs []int64, title string) (*RemoteEpisode, error) {
	series, err := r.store.GetSeries(seriesID)
	if err != nil {
		return nil, err
	}
	episodes, err := r.store.GetEpisodes(episodeIDs)
	if err != nil {
		return nil, err
	}
	info := release.Parse(title)
	return &RemoteEpisode{
		Series:    *series,
		Episodes:  episodes,
		Quality:   quality.FromRelease(info),
		Languages: quality.ParseLanguages(info.Languages),
	}, nil
}

// Invalidate drops all memoised results.
func (r *Resolver) Invalidate() {
	r.cache.Flush()
}

func (r *Resolver) allSeries() ([]*Series, error) {
	if v, ok := r.cache.Get(seriesCacheKey); ok {
		return v.([]*Series), nil
	}
	all, err := r.store.ListSeries()
	if err != nil {
		return nil, err
	}
	r.cache.Set(seriesCacheKey, all, cache.DefaultExpiration)
	return all, nil
}
