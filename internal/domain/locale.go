package domain

import (
	"fmt"
	"strings"
)

type Locale string

const (
	LocalePT Locale = "pt"
	LocaleEN Locale = "en"
)

// DefaultLocale is the locale a fresh process starts with.
const DefaultLocale = LocalePT

func ParseLocale(s string) (Locale, error) {
	switch Locale(strings.ToLower(strings.TrimSpace(s))) {
	case LocalePT:
		return LocalePT, nil
	case LocaleEN:
		return LocaleEN, nil
	default:
		return "", fmt.Errorf("unsupported locale: %q", s)
	}
}

// LanguageName is the English name of the language, used to ask the model
// for output in that language.
func (l Locale) LanguageName() string {
	if l == LocalePT {
		return "Portuguese"
	}
	return "English"
}

// Tag is the BCP 47 tag handed to speech engines.
func (l Locale) Tag() string {
	if l == LocalePT {
		return "pt-BR"
	}
	return "en-US"
}

// Language is the ISO-639-1 code used by transcription services.
func (l Locale) Language() string {
	return string(l)
}

func (l Locale) Valid() bool {
	return l == LocalePT || l == LocaleEN
}
