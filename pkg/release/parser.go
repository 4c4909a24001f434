package release

import (
	"regexp"
	"strconv"
	"strings"
)

var (
	// S01E01, S01E01E02, S01E01-E03, S01E01-03
	seasonEpisodeRe = regexp.MustCompile(`(?i)\bS(\d{1,2})E(\d{1,3})((?:[-_. ]?E\d{1,3})*)(?:-(\d{1,3})\b)?`)
	// 1x01
	crossEpisodeRe = regexp.MustCompile(`(?i)\b(\d{1,2})x(\d{2,3})\b`)
	// S01 or Season 1 on its own
	seasonPackRe  = regexp.MustCompile(`(?i)\b(?:S(\d{1,2})|Season[ ._-]?(\d{1,2}))\b`)
	extraEpRe     = regexp.MustCompile(`(?i)E(\d{1,3})`)
	versionRe     = regexp.MustCompile(`(?i)\bv([2-9])\b`)
	groupRe       = regexp.MustCompile(`-([A-Za-z0-9]+)$`)
	extensionRe   = regexp.MustCompile(`(?i)\.(mkv|mp4|avi|nzb|torrent)$`)
	separatorsRe  = regexp.MustCompile(`[._\[\]()]+`)
	whitespaceRe  = regexp.MustCompile(`\s+`)
	titleTrimmers = " -_.[]()"
)

var languageTokens = map[string]string{
	"english":    "english",
	"french":     "french",
	"vostfr":     "french",
	"vff":        "french",
	"truefrench": "french",
	"german":     "german",
	"deutsch":    "german",
	"spanish":    "spanish",
	"espanol":    "spanish",
	"castellano": "spanish",
	"italian":    "italian",
	"ita":        "italian",
	"dutch":      "dutch",
	"danish":     "danish",
	"swedish":    "swedish",
	"norwegian":  "norwegian",
	"finnish":    "finnish",
	"polish":     "polish",
	"russian":    "russian",
	"rus":        "russian",
	"japanese":   "japanese",
	"korean":     "korean",
	"chinese":    "chinese",
	"portuguese": "portuguese",
	"hindi":      "hindi",
}

// Parse extracts series, episode and quality information from a release title.
// Fields that cannot be determined keep their zero value.
func Parse(name string) *Info {
	info := &Info{Version: 1}

	name = strings.TrimSpace(extensionRe.ReplaceAllString(strings.TrimSpace(name), ""))
	if name == "" {
		return info
	}

	if m := groupRe.FindStringSubmatch(name); m != nil && !strings.EqualFold(m[1], "dl") {
		info.Group = m[1]
	}

	titleEnd := parseEpisodes(name, info)
	if titleEnd > 0 {
		info.Title = normalizeTitle(name[:titleEnd])
	}

	words := wordsOf(name)
	info.Resolution = parseResolution(words)
	info.Source, info.Remux = parseSource(strings.ToLower(name), words)
	info.Languages = parseLanguages(words)

	info.Proper = hasWord(words, "proper")
	info.Repack = hasWord(words, "repack") || hasWord(words, "rerip")
	if info.Proper || info.Repack {
		info.Version = 2
	}
	if m := versionRe.FindStringSubmatch(name); m != nil {
		if v, err := strconv.Atoi(m[1]); err == nil && v > info.Version {
			info.Version = v
		}
	}

	return info
}

// parseEpisodes fills season and episode fields and returns the index
// where the series title ends, or -1 when no episode marker was found.
func parseEpisodes(name string, info *Info) int {
	if loc := seasonEpisodeRe.FindStringSubmatchIndex(name); loc != nil {
		m := submatches(name, loc)
		info.Season = atoi(m[1])
		first := atoi(m[2])
		info.Episodes = []int{first}
		for _, e := range extraEpRe.FindAllStringSubmatch(m[3], -1) {
			info.Episodes = append(info.Episodes, atoi(e[1]))
		}
		last := info.Episodes[len(info.Episodes)-1]
		if m[4] != "" {
			last = atoi(m[4])
		}
		// A dash between two episode numbers denotes a range.
		if strings.Contains(m[3], "-") || m[4] != "" {
			info.Episodes = expandRange(first, last)
		}
		return loc[0]
	}

	if loc := crossEpisodeRe.FindStringSubmatchIndex(name); loc != nil {
		m := submatches(name, loc)
		info.Season = atoi(m[1])
		info.Episodes = []int{atoi(m[2])}
		return loc[0]
	}

	if loc := seasonPackRe.FindStringSubmatchIndex(name); loc != nil {
		m := submatches(name, loc)
		season := m[1]
		if season == "" {
			season = m[2]
		}
		info.Season = atoi(season)
		info.FullSeason = true
		return loc[0]
	}

	return -1
}

func submatches(s string, loc []int) []string {
	out := make([]string, len(loc)/2)
	for i := range out {
		if loc[2*i] >= 0 {
			out[i] = s[loc[2*i]:loc[2*i+1]]
		}
	}
	return out
}

func expandRange(first, last int) []int {
	if last < first || last-first > 100 {
		return []int{first}
	}
	eps := make([]int, 0, last-first+1)
	for e := first; e <= last; e++ {
		eps = append(eps, e)
	}
	return eps
}

func atoi(s string) int {
	n, _ := strconv.Atoi(s)
	return n
}

func normalizeTitle(s string) string {
	s = separatorsRe.ReplaceAllString(s, " ")
	s = strings.Trim(s, titleTrimmers)
	return whitespaceRe.ReplaceAllString(s, " ")
}

// wordsOf lower-cases the name and splits it on release separators.
func wordsOf(name string) []string {
	return strings.FieldsFunc(strings.ToLower(name), func(r rune) bool {
		switch r {
		case '.', '_', ' ', '-', '[', ']', '(', ')', '+':
			return true
		}
		return false
	})
}

func hasWord(words []string, target string) bool {
	for _, w := range words {
		if w == target {
			return true
		}
	}
	return false
}

func parseResolution(words []string) Resolution {
	switch {
	case hasWord(words, "2160p"), hasWord(words, "4k"), hasWord(words, "uhd"):
		return Resolution2160p
	case hasWord(words, "1080p"), hasWord(words, "1080i"):
		return Resolution1080p
	case hasWord(words, "720p"):
		return Resolution720p
	case hasWord(words, "480p"), hasWord(words, "576p"), hasWord(words, "sdtv"):
		return Resolution480p
	default:
		return ResolutionUnknown
	}
}

func parseSource(lower string, words []string) (Source, bool) {
	remux := hasWord(words, "remux")
	switch {
	case remux, hasWord(words, "bluray"), strings.Contains(lower, "blu-ray"), hasWord(words, "bdrip"), hasWord(words, "brrip"):
		return SourceBluRay, remux
	case hasWord(words, "webrip"):
		return SourceWebRip, false
	case strings.Contains(lower, "web-dl"), hasWord(words, "webdl"), hasWord(words, "web"):
		return SourceWeb, false
	case hasWord(words, "hdtv"), hasWord(words, "pdtv"), hasWord(words, "sdtv"), hasWord(words, "dsr"):
		return SourceTelevision, false
	case hasWord(words, "dvdrip"), hasWord(words, "dvd"), hasWord(words, "dvdr"):
		return SourceDVD, false
	default:
		return SourceUnknown, false
	}
}

func parseLanguages(words []string) []string {
	var langs []string
	seen := make(map[string]bool)
	for _, w := range words {
		lang, ok := languageTokens[w]
		if !ok || seen[lang] {
			continue
		}
		seen[lang] = true
		langs = append(langs, lang)
	}
	return langs
}
