package language

import (
	"regexp"
	"sort"
	"strings"
)

// Structure summarises the heading layout of a contract.
type Structure struct {
	HasHeadings     bool     `json:"has_headings"`
	Sections        []string `json:"sections"`
	AppearsComplete bool     `json:"appears_complete"`
	HasNumbering    bool     `json:"has_numbering"`
	HasArticles     bool     `json:"has_articles"`
}

// minCompleteSections is the number of distinct typical sections a complete
// contract is expected to have.
const minCompleteSections = 5

// Section keywords per language. Go's \b is ASCII-only, so the Cyrillic and
// accented alternatives use explicit non-letter boundaries.
var sectionPatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(parties|definitions|term|payment|termination|warranties|liability|dispute|governing law)\b`),
	regexp.MustCompile(`(?i)(?:^|[^\p{L}])(стороны|определения|срок|оплата|расторжение|гарантии|ответственность|споры|применимое право)(?:[^\p{L}]|$)`),
	regexp.MustCompile(`(?i)(?:^|[^\p{L}])(strane|definicije|rok|plaćanje|raskid|garancije|odgovornost|sporovi|pravo)(?:[^\p{L}]|$)`),
	regexp.MustCompile(`(?i)(?:^|[^\p{L}])(définitions|durée|paiement|résiliation|garanties|responsabilité|litiges|droit applicable)(?:[^\p{L}]|$)`),
}

var (
	reNumbering = regexp.MustCompile(`\n\s*\d+\.\s+[A-ZА-ЯЉЊЂЋЏČĆŽŠĐ]`)
	reArticles  = regexp.MustCompile(`(?i)(?:^|[^\p{L}])(article|статья|član|clan|článek)\s+\d+`)
)

// DetectStructure finds typical section keywords, numbering and article headings.
func DetectStructure(text string) Structure {
	seen := map[string]struct{}{}
	var sections []string
	total := 0
	for _, re := range sectionPatterns {
		for _, m := range re.FindAllStringSubmatch(text, -1) {
			total++
			key := strings.ToLower(m[1])
			if _, ok := seen[key]; ok {
				continue
			}
			seen[key] = struct{}{}
			sections = append(sections, key)
		}
	}
	if sections == nil {
		sections = []string{}
	}

	s := Structure{
		Sections:     sections,
		HasNumbering: reNumbering.MatchString(text),
		HasArticles:  reArticles.MatchString(text),
	}
	s.HasHeadings = s.HasNumbering || s.HasArticles || total > 3
	s.AppearsComplete = len(sections) >= minCompleteSections
	return s
}

var referencePatterns = []*regexp.Regexp{
	regexp.MustCompile(`(?i)\b(exhibit|annex|schedule|appendix|attachment)\s+([A-Z0-9]+)\b`),
	regexp.MustCompile(`(?i)(?:^|[^\p{L}])(приложение)\s+(?:№\s*)?([А-Я0-9]+)`),
	regexp.MustCompile(`(?i)\b(prilog)\s+(?:br\.\s*)?([A-Z0-9]+)\b`),
	regexp.MustCompile(`(?i)\b(annexe)\s+([A-Z0-9]+)\b`),
}

// ExtractReferencedDocuments lists mentioned exhibits, annexes and schedules
// as "Exhibit A", deduplicated case-insensitively in order of first appearance.
func ExtractReferencedDocuments(text string) []string {
	type hit struct {
		pos  int
		name string
	}
	var hits []hit
	for _, re := range referencePatterns {
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			kw := text[m[2]:m[3]]
			id := text[m[4]:m[5]]
			hits = append(hits, hit{pos: m[2], name: titleWord(kw) + " " + strings.ToUpper(id)})
		}
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].pos < hits[j].pos })

	seen := map[string]struct{}{}
	out := []string{}
	for _, h := range hits {
		key := strings.ToLower(h.name)
		if _, ok := seen[key]; ok {
			continue
		}
		seen[key] = struct{}{}
		out = append(out, h.name)
	}
	return out
}

func titleWord(w string) string {
	r := []rune(strings.ToLower(w))
	if len(r) == 0 {
		return w
	}
	return strings.ToUpper(string(r[0])) + string(r[1:])
}
