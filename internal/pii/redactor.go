package pii

import (
	"errors"
	"fmt"
	"log/slog"
	"regexp"
	"sort"
	"strings"
)

// ErrRedaction is returned when the text could not be safely redacted.
var ErrRedaction = errors.New("pii redaction failed")

// maxSweeps bounds the verification passes run after the category passes.
const maxSweeps = 3

// Summary counts redactions by category.
type Summary map[string]int

// Total is the sum of all category counts.
func (s Summary) Total() int {
	n := 0
	for _, v := range s {
		n += v
	}
	return n
}

// Message renders the audit line, e.g. "Redacted 2 PII item(s): email=1, person_name=1".
func (s Summary) Message() string {
	if s.Total() == 0 {
		return "No PII detected"
	}
	parts := make([]string, 0, len(s))
	for _, c := range Order {
		if n := s[string(c)]; n > 0 {
			parts = append(parts, fmt.Sprintf("%s=%d", c, n))
		}
	}
	return fmt.Sprintf("Redacted %d PII item(s): %s", s.Total(), strings.Join(parts, ", "))
}

func newSummary() Summary {
	s := make(Summary, len(Order))
	for _, c := range Order {
		s[string(c)] = 0
	}
	return s
}

// Redactor replaces personal data in contract text with placeholders.
// It holds no state between calls and is safe for concurrent use.
type Redactor struct {
	logger *slog.Logger
}

// NewRedactor creates a Redactor. A nil logger falls back to slog.Default().
func NewRedactor(logger *slog.Logger) *Redactor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Redactor{logger: logger}
}

type span struct {
	start, end int
	repl       string
}

// Redact applies every category in precedence order and returns the redacted
// text with per-category counts.
func (r *Redactor) Redact(text string) (out string, summary Summary, err error) {
	defer func() {
		if p := recover(); p != nil {
			out, summary = "", nil
			err = fmt.Errorf("%w: %v", ErrRedaction, p)
		}
	}()

	summary = newSummary()
	out = text
	for _, c := range Order {
		var n int
		if c == PersonName {
			out, n = redactNames(out)
		} else {
			out, n = redactCategory(out, c)
		}
		summary[string(c)] += n
	}

	// Replacements shorten the text, which can move a number into the
	// keyword window of a phone rule. Sweep until the strict detectors are quiet.
	for i := 0; ; i++ {
		found := 0
		for _, c := range strictCategories {
			var n int
			out, n = redactCategory(out, c)
			summary[string(c)] += n
			found += n
		}
		if found == 0 {
			break
		}
		if i == maxSweeps {
			return "", nil, fmt.Errorf("%w: detectors still match after %d sweeps", ErrRedaction, maxSweeps)
		}
	}

	r.logger.Debug("pii.redact.done", "total", summary.Total(), "in_len", len(text), "out_len", len(out))
	return out, summary, nil
}

// Detect counts strict-category matches without modifying the text.
func Detect(text string) Summary {
	s := newSummary()
	for _, c := range strictCategories {
		s[string(c)] = len(findSpans(text, c))
	}
	return s
}

func redactCategory(text string, c Category) (string, int) {
	spans := findSpans(text, c)
	if len(spans) == 0 {
		return text, 0
	}
	return rebuild(text, spans), len(spans)
}

// findSpans collects non-overlapping validated matches of every rule of c,
// skipping anything that touches an existing placeholder.
func findSpans(text string, c Category) []span {
	protected := rePlaceholder.FindAllStringIndex(text, -1)
	var spans []span
	for _, rl := range rules[c] {
		for _, m := range rl.re.FindAllStringSubmatchIndex(text, -1) {
			start, end := m[2*rl.group], m[2*rl.group+1]
			if start < 0 {
				continue
			}
			if rl.valid != nil && !rl.valid(text, start, end) {
				continue
			}
			if overlapsAny(start, end, protected) || overlapsSpans(start, end, spans) {
				continue
			}
			spans = append(spans, span{start: start, end: end, repl: Placeholder(c)})
		}
	}
	sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
	return spans
}

// rebuild applies sorted, non-overlapping spans left to right. Offsets come
// from the input text; delta tracks how far the output has drifted from it.
func rebuild(text string, spans []span) string {
	buf := []byte(text)
	delta := 0
	for _, s := range spans {
		start, end := s.start+delta, s.end+delta
		if start < 0 || end > len(buf) || start > end {
			panic(fmt.Sprintf("span %d:%d out of range", s.start, s.end))
		}
		next := make([]byte, 0, len(buf)-(end-start)+len(s.repl))
		next = append(next, buf[:start]...)
		next = append(next, s.repl...)
		next = append(next, buf[end:]...)
		buf = next
		delta += len(s.repl) - (s.end - s.start)
	}
	return string(buf)
}

func overlapsAny(start, end int, ranges [][]int) bool {
	for _, p := range ranges {
		if start < p[1] && p[0] < end {
			return true
		}
	}
	return false
}

func overlapsSpans(start, end int, spans []span) bool {
	for _, s := range spans {
		if start < s.end && s.start < end {
			return true
		}
	}
	return false
}

// parties assigns letters to distinct names in order of first appearance.
type parties struct {
	letters map[string]string
	next    int
	named   []namedParty
}

type namedParty struct {
	name string
	repl string
}

func (p *parties) placeholder(key, role string) string {
	key = strings.ToLower(strings.Join(strings.Fields(key), " "))
	letter, ok := p.letters[key]
	if !ok {
		p.next++
		letter = partyLetter(p.next)
		p.letters[key] = letter
	}
	return PartyPlaceholder(letter, displayRole(role))
}

// remember records a name so later role-less mentions get the same placeholder.
func (p *parties) remember(name, repl string) {
	for _, n := range p.named {
		if n.name == name {
			return
		}
	}
	p.named = append(p.named, namedParty{name: name, repl: repl})
}

type nameRule struct {
	re        *regexp.Regexp
	nameGroup int
	roleGroup int
	// contact rules replace the role mention; the identity is already a placeholder
	contact bool
}

var nameRules = []nameRule{
	{re: reNameParenRole, nameGroup: 1, roleGroup: 2},
	{re: reNameCommaRole, nameGroup: 1, roleGroup: 2},
	{re: reRoleColonName, nameGroup: 2, roleGroup: 1},
	{re: reLowerNameCommaRole, nameGroup: 1, roleGroup: 2},
	{re: reContactRole, nameGroup: 1, roleGroup: 2, contact: true},
}

func redactNames(text string) (string, int) {
	p := &parties{letters: map[string]string{}}
	total := 0
	for _, nr := range nameRules {
		protected := rePlaceholder.FindAllStringIndex(text, -1)
		matches := nr.re.FindAllStringSubmatchIndex(text, -1)
		var spans []span
		for _, m := range matches {
			ns, ne := m[2*nr.nameGroup], m[2*nr.nameGroup+1]
			rs, rend := m[2*nr.roleGroup], m[2*nr.roleGroup+1]
			if ns < 0 || rs < 0 {
				continue
			}
			role := text[rs:rend]
			if nr.contact {
				key := "contact:" + strings.ToLower(role)
				if overlapsSpans(rs, rend, spans) {
					continue
				}
				spans = append(spans, span{start: rs, end: rend, repl: p.placeholder(key, role)})
				continue
			}
			name, off := trimName(text[ns:ne])
			if off < 0 {
				continue
			}
			ns += off
			ne = ns + len(name)
			if overlapsAny(ns, ne, protected) || overlapsSpans(ns, ne, spans) {
				continue
			}
			repl := p.placeholder(name, role)
			p.remember(name, repl)
			spans = append(spans, span{start: ns, end: ne, repl: repl})
		}
		if len(spans) == 0 {
			continue
		}
		sort.Slice(spans, func(i, j int) bool { return spans[i].start < spans[j].start })
		text = rebuild(text, spans)
		total += len(spans)
	}

	for _, n := range p.named {
		re := regexp.MustCompile(leftEdge + `(` + regexp.QuoteMeta(n.name) + `)` + rightEdge)
		protected := rePlaceholder.FindAllStringIndex(text, -1)
		var spans []span
		for _, m := range re.FindAllStringSubmatchIndex(text, -1) {
			if overlapsAny(m[2], m[3], protected) {
				continue
			}
			spans = append(spans, span{start: m[2], end: m[3], repl: n.repl})
		}
		if len(spans) > 0 {
			text = rebuild(text, spans)
			total += len(spans)
		}
	}
	return text, total
}
