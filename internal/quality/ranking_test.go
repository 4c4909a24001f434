package quality

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRanking_CompareQuality_DefaultOrder(t *testing.T) {
	r := NewRanking(nil, nil)

	hd := Model{Quality: WEBDL1080p, Revision: 1}
	sd := Model{Quality: SDTV, Revision: 1}
	proper := Model{Quality: WEBDL1080p, Revision: 2}

	assert.Equal(t, 1, r.CompareQuality(hd, sd))
	assert.Equal(t, -1, r.CompareQuality(sd, hd))
	assert.Equal(t, 0, r.CompareQuality(hd, hd))
	assert.Equal(t, 1, r.CompareQuality(proper, hd))
}

func TestRanking_CompareQuality_ConfiguredOrder(t *testing.T) {
	// Prefer 720p over 1080p; anything unlisted ranks lowest.
	r := NewRanking([]Quality{WEBDL1080p, WEBDL720p}, nil)

	assert.Equal(t, 1, r.CompareQuality(Model{Quality: WEBDL720p}, Model{Quality: WEBDL1080p}))
	assert.Equal(t, -1, r.CompareQuality(Model{Quality: Bluray2160p}, Model{Quality: WEBDL1080p}))
	assert.Equal(t, -1, r.QualityRank(Bluray2160p))
}

func TestRanking_CompareLanguages(t *testing.T) {
	r := NewRanking(nil, nil)

	en := []Language{LanguageEnglish}
	fr := []Language{LanguageFrench}
	enFr := []Language{LanguageEnglish, LanguageFrench}

	assert.Equal(t, -1, r.CompareLanguages(en, fr))
	assert.Equal(t, 1, r.CompareLanguages(fr, en))
	assert.Equal(t, -1, r.CompareLanguages(en, enFr))
	assert.Equal(t, 0, r.CompareLanguages(enFr, enFr))
	assert.Equal(t, 0, r.CompareLanguages(nil, nil))
}

func TestRanking_CompareLanguages_ConfiguredOrder(t *testing.T) {
	r := NewRanking(nil, []Language{LanguageFrench, LanguageEnglish})

	assert.Equal(t, 1, r.CompareLanguages([]Language{LanguageEnglish}, []Language{LanguageFrench}))
	assert.Equal(t, -1, r.CompareLanguages([]Language{LanguageGerman}, []Language{LanguageFrench}))
}
