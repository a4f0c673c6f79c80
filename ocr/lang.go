package ocr

import (
	"sync"
	"unicode/utf8"

	"github.com/pemistahl/lingua-go"
)

// langHintMinRunes is the native-text length under which detection is too
// unreliable to bias the recognizer with.
const langHintMinRunes = 40

var (
	detectorOnce sync.Once
	detector     lingua.LanguageDetector
)

var linguaToTesseract = map[lingua.Language]string{
	lingua.English: "eng",
	lingua.Spanish: "spa",
	lingua.French:  "fra",
	lingua.German:  "deu",
}

func languageDetector() lingua.LanguageDetector {
	detectorOnce.Do(func() {
		detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(lingua.English, lingua.Spanish, lingua.French, lingua.German).
			Build()
	})
	return detector
}

// LanguageHints detects the dominant language of the page's native text and
// returns trained-data hints for the recognizer. Returns nil when the text is
// too short or detection is inconclusive; the engine then falls back to its
// own default.
func LanguageHints(nativeText string) []string {
	if utf8.RuneCountInString(nativeText) < langHintMinRunes {
		return nil
	}
	lang, ok := languageDetector().DetectLanguageOf(nativeText)
	if !ok {
		return nil
	}
	code, known := linguaToTesseract[lang]
	if !known {
		return nil
	}
	return []string{code}
}
