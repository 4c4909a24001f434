package quality

import "strings"

// Language is a spoken language a release is tagged with.
type Language struct {
	ID   int    `json:"id"`
	Name string `json:"name"`
}

var (
	LanguageUnknown    = Language{0, "Unknown"}
	LanguageEnglish    = Language{1, "English"}
	LanguageFrench     = Language{2, "French"}
	LanguageSpanish    = Language{3, "Spanish"}
	LanguageGerman     = Language{4, "German"}
	LanguageItalian    = Language{5, "Italian"}
	LanguageDanish     = Language{6, "Danish"}
	LanguageDutch      = Language{7, "Dutch"}
	LanguageJapanese   = Language{8, "Japanese"}
	LanguageRussian    = Language{11, "Russian"}
	LanguagePolish     = Language{12, "Polish"}
	LanguageChinese    = Language{10, "Chinese"}
	LanguageSwedish    = Language{14, "Swedish"}
	LanguageNorwegian  = Language{15, "Norwegian"}
	LanguageFinnish    = Language{16, "Finnish"}
	LanguagePortuguese = Language{18, "Portuguese"}
	LanguageKorean     = Language{21, "Korean"}
	LanguageHindi      = Language{26, "Hindi"}
)

// Languages lists every known language ordered by id.
var Languages = []Language{
	LanguageUnknown, LanguageEnglish, LanguageFrench, LanguageSpanish, LanguageGerman,
	LanguageItalian, LanguageDanish, LanguageDutch, LanguageJapanese, LanguageChinese,
	LanguageRussian, LanguagePolish, LanguageSwedish, LanguageNorwegian, LanguageFinnish,
	LanguagePortuguese, LanguageKorean, LanguageHindi,
}

// FindLanguage returns the language with the given name (case-insensitive).
func FindLanguage(name string) (Language, bool) {
	for _, l := range Languages {
		if strings.EqualFold(l.Name, name) {
			return l, true
		}
	}
	return LanguageUnknown, false
}

// FindLanguageByID returns the language with the given id, or LanguageUnknown.
func FindLanguageByID(id int) Language {
	for _, l := range Languages {
		if l.ID == id {
			return l
		}
	}
	return LanguageUnknown
}

// ParseLanguages maps language names detected in a release title.
// A release without language tags is assumed to be English.
func ParseLanguages(names []string) []Language {
	if len(names) == 0 {
		return []Language{LanguageEnglish}
	}
	out := make([]Language, 0, len(names))
	for _, n := range names {
		if l, ok := FindLanguage(n); ok {
			out = append(out, l)
		}
	}
	if len(out) == 0 {
		return []Language{LanguageUnknown}
	}
	return out
}
