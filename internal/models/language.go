package models

// Language is a supported session locale.
type Language string

const (
	LanguageEnglish Language = "en"
	LanguageRussian Language = "ru"
	LanguageKazakh  Language = "kk"

	DefaultLanguage = LanguageEnglish
)

// ParseLanguage returns the Language for s and whether it is supported.
func ParseLanguage(s string) (Language, bool) {
	switch l := Language(s); l {
	case LanguageEnglish, LanguageRussian, LanguageKazakh:
		return l, true
	}
	return "", false
}
