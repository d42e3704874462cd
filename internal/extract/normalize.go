package extract

import (
	"fmt"
	"regexp"
	"strings"
	"unicode/utf8"
)

// MinTextChars is the length below which extracted text is reported as too short.
const MinTextChars = 100

var (
	reSpaces   = regexp.MustCompile(`[ \t\x{00A0}]+`)
	reNewLines = regexp.MustCompile(`\n{3,}`)
)

// Normalize collapses runs of spaces, trims every line and keeps at most one
// blank line between paragraphs.
func Normalize(text string) string {
	text = strings.ReplaceAll(text, "\r\n", "\n")
	text = strings.ReplaceAll(text, "\r", "\n")
	text = strings.ReplaceAll(text, "\f", "\n\n")
	text = reSpaces.ReplaceAllString(text, " ")

	lines := strings.Split(text, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimSpace(ln)
	}
	text = strings.Join(lines, "\n")
	text = reNewLines.ReplaceAllString(text, "\n\n")
	return strings.TrimSpace(text)
}

// Validate reports ErrTextTooShort when the result carries fewer than
// MinTextChars characters of text.
func Validate(r Result) error {
	return ValidateMin(r, MinTextChars)
}

// ValidateMin is Validate with a caller-chosen minimum.
func ValidateMin(r Result, min int) error {
	if min <= 0 {
		min = MinTextChars
	}
	if n := utf8.RuneCountInString(strings.TrimSpace(r.Text)); n < min {
		return fmt.Errorf("%w: %d characters (minimum %d)", ErrTextTooShort, n, min)
	}
	return nil
}
