package entity

import (
	"time"

	"github.com/google/uuid"
)

// Document is an uploaded contract. Text and extraction metadata are written
// once, by the first analysis run that extracts it.
type Document struct {
	ID                   uuid.UUID `json:"id"`
	Location             string    `json:"location"` // local path or s3://bucket/key
	Filename             string    `json:"filename"`
	Format               string    `json:"format"`
	Text                 *string   `json:"text,omitempty"`
	PageCount            int       `json:"page_count"`
	ExtractionQuality    *float64  `json:"extraction_quality,omitempty"`
	IsScanned            bool      `json:"is_scanned"`
	ExtractionMethod     string    `json:"extraction_method,omitempty"`
	DetectedLanguage     *string   `json:"detected_language,omitempty"`
	DetectedJurisdiction *string   `json:"detected_jurisdiction,omitempty"`
	CreatedAt            time.Time `json:"created_at"`
	UpdatedAt            time.Time `json:"updated_at"`
}

// HasText reports whether extraction already populated the document.
func (d *Document) HasText() bool {
	return d != nil && d.Text != nil
}

// TextOrEmpty returns the extracted text or "".
func (d *Document) TextOrEmpty() string {
	if d == nil || d.Text == nil {
		return ""
	}
	return *d.Text
}

// QualityOrZero returns the extraction quality or 0 when unknown.
func (d *Document) QualityOrZero() float64 {
	if d == nil || d.ExtractionQuality == nil {
		return 0
	}
	return *d.ExtractionQuality
}

// Extraction is the once-only update applied to a Document.
type Extraction struct {
	Text      string
	PageCount int
	Quality   float64
	IsScanned bool
	Method    string
	Format    string
}
