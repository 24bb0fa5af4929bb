package usecases

import (
	"strings"
	"sync"
	"unicode"

	"github.com/pemistahl/lingua-go"

	"leadbot/internal/entities"
)

// hinglishMarkers are romanized Hindi function words. General-purpose
// detectors read short romanized Hindi as English, so these win.
var hinglishMarkers = map[string]struct{}{
	"mera": {}, "meri": {}, "kya": {}, "hai": {}, "hain": {}, "kaun": {},
	"naam": {}, "nam": {}, "ka": {}, "ki": {}, "ke": {}, "aap": {},
	"kab": {}, "kaha": {}, "kahan": {}, "kripya": {}, "mujhe": {},
	"chahiye": {}, "kitna": {},
}

// Classification is the result of classifying one message.
type Classification struct {
	Tag        entities.LanguageTag
	Code       string // raw detector code, lowercased; empty when not detected
	Normalized string
}

// LanguageDetector reports the ISO 639-1 code of the dominant language.
type LanguageDetector interface {
	Detect(text string) (string, bool)
}

type linguaDetector struct {
	once     sync.Once
	detector lingua.LanguageDetector
}

var defaultDetector = &linguaDetector{}

// Detect builds the lingua model set on first use.
func (d *linguaDetector) Detect(text string) (string, bool) {
	d.once.Do(func() {
		d.detector = lingua.NewLanguageDetectorBuilder().
			FromLanguages(
				lingua.English, lingua.Hindi, lingua.Marathi, lingua.Bengali,
				lingua.Urdu, lingua.Spanish, lingua.French, lingua.German,
				lingua.Portuguese, lingua.Indonesian, lingua.Arabic,
			).
			Build()
	})
	lang, ok := d.detector.DetectLanguageOf(text)
	if !ok {
		return "", false
	}
	return strings.ToLower(lang.IsoCode639_1().String()), true
}

// LanguageClassifier tags messages as en, hi, hinglish or other.
type LanguageClassifier struct {
	detector LanguageDetector
}

// NewLanguageClassifier uses the lingua detector when detector is nil.
func NewLanguageClassifier(detector LanguageDetector) *LanguageClassifier {
	if detector == nil {
		detector = defaultDetector
	}
	return &LanguageClassifier{detector: detector}
}

// Classify returns the language tag for text. Only hinglish text is
// normalized; everything else is returned unchanged.
func (c *LanguageClassifier) Classify(text string) Classification {
	if strings.TrimSpace(text) == "" {
		return Classification{Tag: entities.LangOther, Normalized: text}
	}

	lower := strings.ToLower(text)
	if isASCII(lower) && hasHinglishMarker(lower) {
		return Classification{Tag: entities.LangHinglish, Normalized: NormalizeHinglish(text)}
	}

	code, ok := c.detector.Detect(text)
	if !ok || code == "" {
		return Classification{Tag: entities.LangOther, Normalized: text}
	}
	switch {
	case strings.HasPrefix(code, "hi"):
		return Classification{Tag: entities.LangHI, Code: code, Normalized: text}
	case strings.HasPrefix(code, "en"):
		return Classification{Tag: entities.LangEN, Code: code, Normalized: text}
	}
	return Classification{Tag: entities.LangOther, Code: code, Normalized: text}
}

func isASCII(s string) bool {
	for i := 0; i < len(s); i++ {
		if s[i] > unicode.MaxASCII {
			return false
		}
	}
	return true
}

func hasHinglishMarker(lower string) bool {
	words := strings.FieldsFunc(lower, func(r rune) bool {
		return !unicode.IsLetter(r)
	})
	for _, w := range words {
		if _, ok := hinglishMarkers[w]; ok {
			return true
		}
	}
	return false
}

// NormalizeHinglish lowercases text and collapses elongated spellings:
// runs of three or more identical vowels become one, any other run of three
// or more becomes two. The result is trimmed. Applying it twice is the same
// as applying it once.
func NormalizeHinglish(text string) string {
	runes := []rune(strings.ToLower(text))
	var sb strings.Builder
	sb.Grow(len(runes))
	for i := 0; i < len(runes); {
		j := i + 1
		for j < len(runes) && runes[j] == runes[i] {
			j++
		}
		n := j - i
		if n >= 3 {
			if isVowel(runes[i]) {
				n = 1
			} else {
				n = 2
			}
		}
		for k := 0; k < n; k++ {
			sb.WriteRune(runes[i])
		}
		i = j
	}
	return strings.TrimSpace(sb.String())
}

func isVowel(r rune) bool {
	switch r {
	case 'a', 'e', 'i', 'o', 'u':
		return true
	}
	return false
}
