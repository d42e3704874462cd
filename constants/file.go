package constants

import "strings"

const (
	PDF  = "PDF"
	DOCX = "DOCX"
)

// FileTypes holds the allowed values for the format column in documents.
var FileTypes = []string{PDF, DOCX}

// AllowedExtensions holds the extensions accepted for contract analysis.
var AllowedExtensions = map[string]struct{}{
	"pdf":  {},
	"docx": {},
}

// NormalizeExt lowercases and trims the dot from a file extension.
func NormalizeExt(ext string) string {
	return strings.ToLower(strings.TrimPrefix(ext, "."))
}

// MapExtToFormat returns the document format for an extension, or "" if unsupported.
func MapExtToFormat(ext string) string {
	switch NormalizeExt(ext) {
	case "pdf":
		return PDF
	case "docx":
		return DOCX
	default:
		return ""
	}
}
