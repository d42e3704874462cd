package pii

import (
	"regexp"
	"strings"
)

// Category names double as keys of the redaction summary.
type Category string

const (
	Email      Category = "email"
	Phone      Category = "phone"
	IBAN       Category = "iban"
	CreditCard Category = "credit_card"
	IPAddress  Category = "ip_address"
	Address    Category = "address"
	NationalID Category = "national_id"
	PersonName Category = "person_name"
)

// Order is the precedence in which categories are applied.
var Order = []Category{Email, Phone, IBAN, CreditCard, IPAddress, Address, NationalID, PersonName}

// strictCategories are the ones whose detectors must never match redacted output.
var strictCategories = []Category{Email, Phone, IBAN, CreditCard, IPAddress}

var placeholders = map[Category]string{
	Email:      "[EMAIL]",
	Phone:      "[PHONE]",
	IBAN:       "[BANK_ACCOUNT]",
	CreditCard: "[CREDIT_CARD]",
	IPAddress:  "[IP_ADDRESS]",
	Address:    "[ADDRESS]",
	NationalID: "[ID_NUMBER]",
}

// Placeholder returns the fixed token for a category. Person names use PartyPlaceholder.
func Placeholder(c Category) string {
	return placeholders[c]
}

// PartyPlaceholder renders "[PARTY_A - Tenant]".
func PartyPlaceholder(letter, role string) string {
	return "[PARTY_" + letter + " - " + role + "]"
}

// rule is one detector. Group selects the capture group that gets replaced
// (0 = whole match). Valid, when set, rejects matches given the full text and
// the byte offsets of the replaced span.
type rule struct {
	re    *regexp.Regexp
	group int
	valid func(text string, start, end int) bool
}

var (
	reEmail = regexp.MustCompile(`[A-Za-z0-9._%+\-]+@[A-Za-z0-9.\-]+\.[A-Za-z]{2,}`)

	rePhone   = regexp.MustCompile(`\+?\(?\d[\d \t().\-]{5,}\d`)
	reISODate = regexp.MustCompile(`^\d{4}-\d{2}-\d{2}$`)
	reDMYDate = regexp.MustCompile(`^\d{1,2}[./\-]\d{1,2}[./\-]\d{2,4}$`)

	reIBANCompact = regexp.MustCompile(`\b[A-Z]{2}\d{2}[A-Z0-9]{11,30}\b`)
	reIBANSpaced  = regexp.MustCompile(`\b[A-Z]{2}\d{2}(?: [A-Z0-9]{4}){2,7}(?: [A-Z0-9]{1,3})?\b`)
	reAccountNo   = regexp.MustCompile(`(?i)\b(?:account|acct|a/c|račun|счет|счёт)\s*(?:no\.?|number|#|№)?\s*:?\s*(\d{6,20})\b`)

	reCard4x4  = regexp.MustCompile(`\b\d{4}[ \-]?\d{4}[ \-]?\d{4}[ \-]?\d{4}\b`)
	reCardAmex = regexp.MustCompile(`\b\d{4}[ \-]?\d{6}[ \-]?\d{5}\b`)

	reIP = regexp.MustCompile(`\b(?:\d{1,3}\.){3}\d{1,3}\b`)

	reStreet   = regexp.MustCompile(`\b\d{1,5}\s+(?:[A-Z][A-Za-z]+\s+){1,3}(?:Street|St|Avenue|Ave|Road|Rd|Boulevard|Blvd|Lane|Ln|Drive|Dr|Court|Ct|Way|Place|Pl|Square|Sq)\b\.?`)
	reUSZip    = regexp.MustCompile(`\b[A-Z]{2}\s+\d{5}(?:-\d{4})?\b`)
	reUKPost   = regexp.MustCompile(`\b[A-Z]{1,2}\d[A-Z\d]?\s+\d[A-Z]{2}\b`)
	reUlica    = regexp.MustCompile(`(?i)\b(?:ulica|ul\.|улица|ул\.|rue|avenue)\s+[^\s,;]+(?:\s+[^\s,;]+){0,3}\s+\d{1,4}[a-zA-Z]?\b`)
	reSSN      = regexp.MustCompile(`\b\d{3}-\d{2}-\d{4}\b`)
	reIDKeyed  = regexp.MustCompile(`(?i)(?:^|[^\p{L}\p{N}_])(?:passport|id\s*(?:no\.?|number|card)|national\s+id|personal\s+id|jmbg|паспорт)\s*(?:no\.?|number|#|№)?\s*:?\s*([A-Z0-9]{6,13})\b`)
	rePassport = regexp.MustCompile(`\b[A-Z]{1,2}\d{7,9}\b`)

	rePlaceholder = regexp.MustCompile(`\[[A-Z_]+(?: - [^\]]+)?\]`)
)

var phoneKeywords = []string{"phone", "tel", "mobile", "cell", "contact", "call", "телефон", "telefon"}

// phoneContextWindow is how far before a number we look for a phone keyword.
const phoneContextWindow = 50

func validPhone(text string, start, end int) bool {
	m := text[start:end]
	if t := strings.TrimSpace(m); reISODate.MatchString(t) || reDMYDate.MatchString(t) {
		return false
	}
	n := countDigits(m)
	if n < 7 || n > 15 {
		return false
	}
	window := strings.ToLower(text[max(0, start-phoneContextWindow):start])
	for _, kw := range phoneKeywords {
		if strings.Contains(window, kw) {
			return true
		}
	}
	return false
}

func validIBAN(text string, start, end int) bool {
	n := len(strings.ReplaceAll(text[start:end], " ", ""))
	return n >= 15 && n <= 34
}

func validCard(text string, start, end int) bool {
	n := countDigits(text[start:end])
	return n == 15 || n == 16
}

func validIP(text string, start, end int) bool {
	for _, oct := range strings.Split(text[start:end], ".") {
		v := 0
		for _, r := range oct {
			v = v*10 + int(r-'0')
		}
		if v > 255 {
			return false
		}
	}
	return true
}

func countDigits(s string) int {
	n := 0
	for _, r := range s {
		if r >= '0' && r <= '9' {
			n++
		}
	}
	return n
}

var rules = map[Category][]rule{
	Email:      {{re: reEmail}},
	Phone:      {{re: rePhone, valid: validPhone}},
	IBAN:       {{re: reIBANSpaced, valid: validIBAN}, {re: reIBANCompact, valid: validIBAN}, {re: reAccountNo, group: 1}},
	CreditCard: {{re: reCard4x4, valid: validCard}, {re: reCardAmex, valid: validCard}},
	IPAddress:  {{re: reIP, valid: validIP}},
	Address:    {{re: reStreet}, {re: reUlica}, {re: reUSZip}, {re: reUKPost}},
	NationalID: {{re: reSSN}, {re: reIDKeyed, group: 1}, {re: rePassport}},
}

// Contractual roles recognised next to person names.
const roleAlternation = `landlord|lessor|tenant|lessee|buyer|seller|vendor|purchaser|employer|employee|contractor|client|service provider|customer|licensor|licensee|arrendador|arrendatario|bailleur|locataire|zakupodavac|zakupac|арендодатель|арендатор`

// capWord is one capitalised name word in any alphabet: Ivan, Marković,
// O'Brien, McAllister, Jean-Pierre.
const capWord = `\p{Lu}(?:\p{Ll}+|['’]\p{Lu}\p{Ll}+)(?:\p{Lu}\p{Ll}+)?(?:[-'’]\p{Lu}?\p{Ll}+)*`

const capName = capWord + `(?:[ \t]+` + capWord + `){0,3}`

// RE2's \b only knows ASCII word characters, so role and name edges use
// explicit letter classes to work for Cyrillic and accented text.
const (
	leftEdge  = `(?:^|[^\p{L}\p{N}_])`
	rightEdge = `(?:[^\p{L}\p{N}_]|$)`
)

var (
	// "John Smith, Landlord" / "John Smith, the Tenant"
	reNameCommaRole = regexp.MustCompile(`(` + capName + `)\s*,\s*(?:the\s+|as\s+)?(?i:(` + roleAlternation + `))` + rightEdge)
	// "Contact: john, tenant"
	reLowerNameCommaRole = regexp.MustCompile(`(?:^|[:;(\n]\s*)(\p{Ll}{2,})\s*,\s*(?:the\s+)?(?i:(` + roleAlternation + `))` + rightEdge)
	// `John Smith (the "Tenant")`
	reNameParenRole = regexp.MustCompile(`(` + capName + `)\s*\(\s*(?i:the\s+|hereinafter\s+(?:referred\s+to\s+as\s+)?(?:the\s+)?)?["“']?(?i:(` + roleAlternation + `))["”']?\s*\)`)
	// "Tenant: John Smith"
	reRoleColonName = regexp.MustCompile(leftEdge + `(?i:(` + roleAlternation + `))\s*:\s*(` + capName + `)`)
	// "[EMAIL], tenant" where the contact is the only identity left
	reContactRole = regexp.MustCompile(`(\[(?:EMAIL|PHONE)\])\s*,\s*(?:the\s+)?(?i:(` + roleAlternation + `))` + rightEdge)
)

// Capitalised words that start sentences or clauses rather than names.
var nameStopwords = map[string]struct{}{
	"the": {}, "this": {}, "that": {}, "these": {}, "those": {}, "any": {}, "all": {}, "each": {},
	"such": {}, "said": {}, "by": {}, "between": {}, "and": {}, "or": {}, "of": {}, "to": {},
	"from": {}, "with": {}, "for": {}, "made": {}, "party": {}, "parties": {}, "agreement": {},
	"contract": {}, "lease": {}, "contact": {}, "signed": {}, "name": {}, "dear": {}, "mr": {},
	"mrs": {}, "ms": {}, "dr": {}, "if": {}, "when": {}, "where": {}, "a": {}, "an": {},
	"rent": {}, "payment": {}, "notice": {}, "here": {}, "hereby": {}, "both": {}, "either": {},
}

var roleWords = func() map[string]struct{} {
	m := map[string]struct{}{}
	for _, r := range strings.Split(roleAlternation, "|") {
		for _, w := range strings.Fields(r) {
			m[w] = struct{}{}
		}
	}
	return m
}()

// trimName drops leading stopwords and rejects candidates made only of
// stopwords or role words. It returns the byte offset of the kept name inside
// the candidate, or -1.
func trimName(candidate string) (string, int) {
	words := strings.Fields(candidate)
	offset := 0
	rest := candidate
	for len(words) > 0 {
		w := strings.ToLower(words[0])
		_, stop := nameStopwords[w]
		_, role := roleWords[w]
		if !stop && !role {
			break
		}
		idx := strings.Index(rest, words[0]) + len(words[0])
		offset += idx
		rest = rest[idx:]
		trimmed := strings.TrimLeft(rest, " \t")
		offset += len(rest) - len(trimmed)
		rest = trimmed
		words = words[1:]
	}
	if len(words) == 0 {
		return "", -1
	}
	for _, w := range words {
		if _, role := roleWords[strings.ToLower(w)]; role {
			return "", -1
		}
	}
	return rest, offset
}

// displayRole title-cases a matched role keyword.
func displayRole(role string) string {
	words := strings.Fields(strings.ToLower(role))
	for i, w := range words {
		r := []rune(w)
		r[0] = []rune(strings.ToUpper(string(r[0])))[0]
		words[i] = string(r)
	}
	return strings.Join(words, " ")
}

// partyLetter maps 1 -> A, 26 -> Z, 27 -> AA.
func partyLetter(n int) string {
	var b []byte
	for n > 0 {
		n--
		b = append([]byte{byte('A' + n%26)}, b...)
		n /= 26
	}
	return string(b)
}
