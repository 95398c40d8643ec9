package model

import "strings"

// Language is a supported translation language code.
type Language string

// SourceLanguage is the language every review is assumed to be written in.
const SourceLanguage Language = "en"

var supportedLanguages = []Language{"en", "fr", "es", "de", "zh", "ja", "ko", "it", "pt", "ru"}

// SupportedLanguages returns the fixed set of target languages.
func SupportedLanguages() []Language {
	out := make([]Language, len(supportedLanguages))
	copy(out, supportedLanguages)
	return out
}

// ParseLanguage accepts a code from the supported set.  Codes are matched
// exactly after trimming; "FR" is not "fr".
func ParseLanguage(s string) (Language, bool) {
	s = strings.TrimSpace(s)
	for _, l := range supportedLanguages {
		if string(l) == s {
			return l, true
		}
	}
	return "", false
}
