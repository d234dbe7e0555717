package analytics

import (
	"strings"
	"sync"

	"github.com/pemistahl/lingua-go"
)

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

var detectableLanguages = []lingua.Language{
	lingua.English, lingua.Spanish, lingua.French, lingua.German, lingua.Italian,
	lingua.Portuguese, lingua.Dutch, lingua.Swedish, lingua.Polish, lingua.Russian,
	lingua.Japanese, lingua.Chinese, lingua.Korean, lingua.Arabic, lingua.Hindi,
}

func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(detectableLanguages...).
			WithLowAccuracyMode().
			Build()
	})
	return detector
}

// DetectLanguage returns the ISO 639-1 code of text, or "" when it cannot be decided.
// Only the first few thousand characters are inspected.
func DetectLanguage(text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	if r := []rune(text); len(r) > 4000 {
		text = string(r[:4000])
	}

	lang, ok := languageDetector().DetectLanguageOf(text)
	if !ok {
		return ""
	}
	return strings.ToLower(lang.IsoCode639_1().String())
}
