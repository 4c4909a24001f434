// Package quality defines release qualities and languages and ranks them
// according to a configured preference order.
package quality

import (
	"strings"

	"github.com/vmunix/arrq/pkg/release"
)

// Quality is a named combination of source and resolution.
type Quality struct {
	ID         int    `json:"id"`
	Name       string `json:"name"`
	Source     string `json:"source"`
	Resolution int    `json:"resolution"`
}

// Model is a quality together with its revision.
// Revision is 1 for an original release and higher for PROPER/REPACK releases.
type Model struct {
	Quality  Quality `json:"quality"`
	Revision int     `json:"revision"`
}

var (
	Unknown     = Quality{0, "Unknown", "unknown", 0}
	SDTV        = Quality{1, "SDTV", "television", 480}
	DVD         = Quality{2, "DVD", "dvd", 480}
	WEBDL1080p  = Quality{3, "WEBDL-1080p", "web", 1080}
	HDTV720p    = Quality{4, "HDTV-720p", "television", 720}
	WEBDL720p   = Quality{5, "WEBDL-720p", "web", 720}
	Bluray720p  = Quality{6, "Bluray-720p", "bluray", 720}
	Bluray1080p = Quality{7, "Bluray-1080p", "bluray", 1080}
	WEBDL480p   = Quality{8, "WEBDL-480p", "web", 480}
	HDTV1080p   = Quality{9, "HDTV-1080p", "television", 1080}
	WEBRip480p  = Quality{12, "WEBRip-480p", "webrip", 480}
	Bluray480p  = Quality{13, "Bluray-480p", "bluray", 480}
	WEBRip720p  = Quality{14, "WEBRip-720p", "webrip", 720}
	WEBRip1080p = Quality{15, "WEBRip-1080p", "webrip", 1080}
	HDTV2160p   = Quality{16, "HDTV-2160p", "television", 2160}
	WEBRip2160p = Quality{17, "WEBRip-2160p", "webrip", 2160}
	WEBDL2160p  = Quality{18, "WEBDL-2160p", "web", 2160}
	Bluray2160p = Quality{19, "Bluray-2160p", "bluray", 2160}
	Remux1080p  = Quality{20, "Bluray-1080p Remux", "blurayraw", 1080}
	Remux2160p  = Quality{21, "Bluray-2160p Remux", "blurayraw", 2160}
)

// DefaultOrder lists all qualities from least to most preferred.
var DefaultOrder = []Quality{
	Unknown,
	SDTV, WEBRip480p, WEBDL480p, DVD, Bluray480p,
	HDTV720p, WEBRip720p, WEBDL720p, Bluray720p,
	HDTV1080p, WEBRip1080p, WEBDL1080p, Bluray1080p, Remux1080p,
	HDTV2160p, WEBRip2160p, WEBDL2160p, Bluray2160p, Remux2160p,
}

var byID = func() map[int]Quality {
	m := make(map[int]Quality, len(DefaultOrder))
	for _, q := range DefaultOrder {
		m[q.ID] = q
	}
	return m
}()

// FindByID returns the quality with the given id, or Unknown.
func FindByID(id int) Quality {
	if q, ok := byID[id]; ok {
		return q
	}
	return Unknown
}

// FindByName returns the quality with the given name (case-insensitive).
func FindByName(name string) (Quality, bool) {
	for _, q := range DefaultOrder {
		if strings.EqualFold(q.Name, name) {
			return q, true
		}
	}
	return Unknown, false
}

// FromRelease maps parsed release information to a quality model.
func FromRelease(info *release.Info) Model {
	m := Model{Quality: Unknown, Revision: max(info.Version, 1)}
	res := info.Resolution.Lines()

	switch info.Source {
	case release.SourceBluRay:
		switch {
		case info.Remux && res == 2160:
			m.Quality = Remux2160p
		case info.Remux:
			m.Quality = Remux1080p
		case res == 2160:
			m.Quality = Bluray2160p
		case res == 1080:
			m.Quality = Bluray1080p
		case res == 720:
			m.Quality = Bluray720p
		default:
			m.Quality = Bluray480p
		}
	case release.SourceWeb:
		m.Quality = pickByResolution(res, WEBDL480p, WEBDL720p, WEBDL1080p, WEBDL2160p)
	case release.SourceWebRip:
		m.Quality = pickByResolution(res, WEBRip480p, WEBRip720p, WEBRip1080p, WEBRip2160p)
	case release.SourceTelevision:
		m.Quality = pickByResolution(res, SDTV, HDTV720p, HDTV1080p, HDTV2160p)
	case release.SourceDVD:
		m.Quality = DVD
	default:
		// Resolution alone: assume the most common source for that size.
		switch res {
		case 2160:
			m.Quality = WEBDL2160p
		case 1080:
			m.Quality = WEBDL1080p
		case 720:
			m.Quality = WEBDL720p
		case 480:
			m.Quality = SDTV
		}
	}
	return m
}

func pickByResolution(res int, sd, hd720, hd1080, uhd Quality) Quality {
	switch res {
	case 2160:
		return uhd
	case 1080:
		return hd1080
	case 720:
		return hd720
	default:
		return sd
	}
}
