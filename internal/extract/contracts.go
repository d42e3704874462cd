package extract

import (
	"context"
	"errors"
	"time"
)

var (
	ErrFileNotFound      = errors.New("file not found")
	ErrUnsupportedFormat = errors.New("unsupported file format")
	ErrCorruptFile       = errors.New("corrupt or unreadable file")
	// ErrTextTooShort is a soft validation failure; the pipeline continues.
	ErrTextTooShort = errors.New("extracted text too short")
)

// TextExtractor turns a local file into normalized text plus quality metrics.
type TextExtractor interface {
	Extract(ctx context.Context, path string) (Result, error)
}

type Result struct {
	Text            string
	Pages           int
	QualityScore    float64 // 0..1
	IsScanned       bool
	Format          string // constants.PDF | constants.DOCX
	Method          string // "pdf-text" | "pdf-ocr" | "docx"
	AvgCharsPerPage float64
	Warnings        []string
	Duration        time.Duration
}

const (
	MethodPDFText = "pdf-text"
	MethodPDFOCR  = "pdf-ocr"
	MethodDOCX    = "docx"
)

// OCR recognizes the pages of a PDF. Implemented by OCRAdapter.
type OCR interface {
	Available() bool
	Recognize(ctx context.Context, path string, pages int) (OCRResult, error)
}

type OCRResult struct {
	Text     string
	Pages    int
	Warnings []string
}
