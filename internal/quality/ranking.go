package quality

import "cmp"

// Ranking orders qualities and languages by user preference.
// Qualities and languages absent from the configured order rank below all listed ones.
type Ranking struct {
	qualityRank  map[int]int
	languageRank map[int]int
}

// NewRanking builds a ranking from preference lists ordered least to most preferred.
// An empty quality order uses DefaultOrder; an empty language order ranks by id.
func NewRanking(qualities []Quality, languages []Language) *Ranking {
	if len(qualities) == 0 {
		qualities = DefaultOrder
	}
	r := &Ranking{qualityRank: make(map[int]int, len(qualities))}
	for i, q := range qualities {
		r.qualityRank[q.ID] = i
	}
	if len(languages) > 0 {
		r.languageRank = make(map[int]int, len(languages))
		for i, l := range languages {
			r.languageRank[l.ID] = i
		}
	}
	return r
}

// QualityRank returns the position of q in the preference order, or -1.
func (r *Ranking) QualityRank(q Quality) int {
	if rank, ok := r.qualityRank[q.ID]; ok {
		return rank
	}
	return -1
}

// CompareQuality compares by preference rank, then by revision.
func (r *Ranking) CompareQuality(a, b Model) int {
	if c := cmp.Compare(r.QualityRank(a.Quality), r.QualityRank(b.Quality)); c != 0 {
		return c
	}
	return cmp.Compare(a.Revision, b.Revision)
}

func (r *Ranking) languageRankOf(l Language) int {
	if r.languageRank == nil {
		return l.ID
	}
	if rank, ok := r.languageRank[l.ID]; ok {
		return rank
	}
	return -1
}

// CompareLanguages compares language lists element by element,
// then by length when one list is a prefix of the other.
func (r *Ranking) CompareLanguages(a, b []Language) int {
	for i := 0; i < len(a) && i < len(b); i++ {
		if c := cmp.Compare(r.languageRankOf(a[i]), r.languageRankOf(b[i])); c != 0 {
			return c
		}
	}
	return cmp.Compare(len(a), len(b))
}
