// Package release parses episodic release titles into series, episode and quality information.
package release

// Resolution is the vertical resolution advertised by a release title.
type Resolution int

const (
	ResolutionUnknown Resolution = iota
	Resolution480p
	Resolution720p
	Resolution1080p
	Resolution2160p
)

const unknownStr = "unknown"

func (r Resolution) String() string {
	switch r {
	case Resolution480p:
		return "480p"
	case Resolution720p:
		return "720p"
	case Resolution1080p:
		return "1080p"
	case Resolution2160p:
		return "2160p"
	default:
		return unknownStr
	}
}

// Lines returns the number of vertical lines, or 0 when unknown.
func (r Resolution) Lines() int {
	switch r {
	case Resolution480p:
		return 480
	case Resolution720p:
		return 720
	case Resolution1080p:
		return 1080
	case Resolution2160p:
		return 2160
	default:
		return 0
	}
}

// Source is where the release was captured or ripped from.
type Source int

const (
	SourceUnknown Source = iota
	SourceTelevision
	SourceWeb
	SourceWebRip
	SourceDVD
	SourceBluRay
)

func (s Source) String() string {
	switch s {
	case SourceTelevision:
		return "television"
	case SourceWeb:
		return "web"
	case SourceWebRip:
		return "webrip"
	case SourceDVD:
		return "dvd"
	case SourceBluRay:
		return "bluray"
	default:
		return unknownStr
	}
}

// Info is the parsed form of a release title.
type Info struct {
	// Title is the series title as written in the release, separators replaced by spaces.
	Title      string
	Season     int
	Episodes   []int
	FullSeason bool
	Resolution Resolution
	Source     Source
	Remux      bool
	// Languages holds the lower-case names of languages tagged in the title.
	// Empty means the release did not tag a language.
	Languages []string
	Group     string
	Proper    bool
	Repack    bool
	// Version is 1 for a normal release and increases for PROPER, REPACK and vN tags.
	Version int
}

// IsEpisode reports whether the title identified at least one episode or a season pack.
func (i *Info) IsEpisode() bool {
	return i.Season > 0 && (len(i.Episodes) > 0 || i.FullSeason)
}
