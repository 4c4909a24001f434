package release

import (
	"github.com/hbollon/go-edlib"
)

// MatchConfidence grades a fuzzy title match.
type MatchConfidence int

const (
	ConfidenceNone   MatchConfidence = iota // Score < 0.80
	ConfidenceLow                           // Score >= 0.80
	ConfidenceMedium                        // Score >= 0.90
	ConfidenceHigh                          // Score >= 0.97
)

func (c MatchConfidence) String() string {
	switch c {
	case ConfidenceHigh:
		return "high"
	case ConfidenceMedium:
		return "medium"
	case ConfidenceLow:
		return "low"
	default:
		return "none"
	}
}

// MatchResult is the best candidate for a parsed series title.
type MatchResult struct {
	Index      int // position in the candidate slice, -1 when nothing matched
	Title      string
	Score      float64 // Jaro-Winkler similarity of the cleaned titles
	Confidence MatchConfidence
}

// MatchTitle finds the candidate series title closest to parsed.
// An exact match of the cleaned titles always wins; otherwise Jaro-Winkler
// similarity picks the best candidate. Ties keep the earliest candidate.
func MatchTitle(parsed string, candidates []string) MatchResult {
	best := MatchResult{Index: -1}
	key := CleanTitle(StripYear(parsed))
	if key == "" {
		return best
	}

	for i, candidate := range candidates {
		ck := CleanTitle(StripYear(candidate))
		if ck == key {
			return MatchResult{Index: i, Title: candidate, Score: 1, Confidence: ConfidenceHigh}
		}
		score := float64(edlib.JaroWinklerSimilarity(key, ck))
		if score > best.Score {
			best = MatchResult{Index: i, Title: candidate, Score: score}
		}
	}

	switch {
	case best.Score >= 0.97:
		best.Confidence = ConfidenceHigh
	case best.Score >= 0.90:
		best.Confidence = ConfidenceMedium
	case best.Score >= 0.80:
		best.Confidence = ConfidenceLow
	default:
		return MatchResult{Index: -1, Score: best.Score}
	}
	return best
}
