// Package language detects the document language, translation status,
// jurisdiction and section structure of contract text.
package language

import (
	"strings"
	"unicode/utf8"

	"github.com/abadojack/whatlanggo"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

const (
	sampleRunes       = 2000
	minDetectRunes    = 20
	defaultConfidence = 0.5
)

var langMap = map[whatlanggo.Lang]string{
	whatlanggo.Eng: constants.LangEnglish,
	whatlanggo.Rus: constants.LangRussian,
	whatlanggo.Srp: constants.LangSerbian,
	whatlanggo.Hrv: constants.LangSerbian,
	whatlanggo.Fra: constants.LangFrench,
}

// Detect classifies the first 2000 characters of text. Unsupported languages
// and samples too short to classify report english with confidence 0.5.
func Detect(text string) (string, float64) {
	sample := strings.TrimSpace(text)
	if utf8.RuneCountInString(sample) > sampleRunes {
		sample = string([]rune(sample)[:sampleRunes])
	}
	if utf8.RuneCountInString(sample) < minDetectRunes {
		return constants.LangEnglish, defaultConfidence
	}

	info := whatlanggo.Detect(sample)
	lang, ok := langMap[info.Lang]
	if !ok {
		return constants.LangEnglish, defaultConfidence
	}
	conf := info.Confidence
	if conf <= 0 {
		conf = defaultConfidence
	}
	return lang, conf
}

// Governing describes whether the text is a translation and which language controls.
type Governing struct {
	IsTranslation       bool   `json:"is_translation"`
	GoverningLanguage   string `json:"governing_language"`
	HasOriginalAttached bool   `json:"has_original_attached"`
	Notes               string `json:"notes"`
}

var translationIndicators = []struct {
	lang    string
	phrases []string
}{
	{constants.LangEnglish, []string{"translated from", "translation of", "original in"}},
	{constants.LangRussian, []string{"перевод с", "оригинал на"}},
	{constants.LangSerbian, []string{"prevod sa", "original na"}},
	{constants.LangFrench, []string{"traduit de", "original en"}},
}

// Bilingual clauses; a non-empty prevails value names the controlling version.
var bilingualIndicators = []struct {
	phrase   string
	prevails string
}{
	{"bilingual", ""},
	{"двуязычный", ""},
	{"dvojezičn", ""},
	{"bilingue", ""},
	{"serbian version prevails", constants.LangSerbian},
	{"српска верзија има предност", constants.LangSerbian},
	{"russian version prevails", constants.LangRussian},
	{"русская версия имеет преимущественную силу", constants.LangRussian},
	{"english version prevails", constants.LangEnglish},
	{"la version française prévaut", constants.LangFrench},
}

var attachmentIndicators = []string{"attached hereto", "приложен", "priložen", "joint", "annex"}

// DetectGoverningLanguage looks for translation, bilingual and attachment phrases.
func DetectGoverningLanguage(text, detected string) Governing {
	lower := strings.ToLower(text)
	g := Governing{GoverningLanguage: detected}
	var notes []string

	for _, set := range translationIndicators {
		for _, p := range set.phrases {
			if strings.Contains(lower, p) {
				g.IsTranslation = true
				notes = append(notes, "Translation indicator found: '"+p+"'")
				break
			}
		}
	}

	for _, b := range bilingualIndicators {
		if strings.Contains(lower, b.phrase) {
			notes = append(notes, "Bilingual note found: '"+b.phrase+"'")
			if b.prevails != "" {
				g.GoverningLanguage = b.prevails
			}
		}
	}

	for _, p := range attachmentIndicators {
		if strings.Contains(lower, p) {
			g.HasOriginalAttached = true
			notes = append(notes, "Reference to attached original found")
			break
		}
	}

	if len(notes) == 0 {
		g.Notes = "No translation indicators found"
	} else {
		g.Notes = strings.Join(notes, "; ")
	}
	return g
}
