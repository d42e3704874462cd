// Package extract turns PDF and DOCX contracts into normalized text and
// scores how much of the document the text layer captured.
package extract

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

type Config struct {
	// FullPageChars is the characters-per-page count treated as a fully legible page.
	FullPageChars float64
	// ScannedBelow marks a document as scanned below this many chars per page.
	ScannedBelow float64
	// OCRBelow triggers OCR fallback below this many chars per page.
	OCRBelow float64
	// OCRQualityCap bounds the quality of OCR-derived text.
	OCRQualityCap float64
}

func DefaultConfig() Config {
	return Config{FullPageChars: 2000, ScannedBelow: 500, OCRBelow: 200, OCRQualityCap: 0.8}
}

type Extractor struct {
	cfg      Config
	ocr      OCR
	pdfPages func(path string) ([]string, error)
	logger   *slog.Logger
}

// NewExtractor builds the PDF/DOCX extractor. ocr may be nil to disable fallback.
func NewExtractor(cfg Config, ocr OCR, logger *slog.Logger) *Extractor {
	if logger == nil {
		logger = slog.Default()
	}
	def := DefaultConfig()
	if cfg.FullPageChars <= 0 {
		cfg.FullPageChars = def.FullPageChars
	}
	if cfg.ScannedBelow <= 0 {
		cfg.ScannedBelow = def.ScannedBelow
	}
	if cfg.OCRBelow <= 0 {
		cfg.OCRBelow = def.OCRBelow
	}
	if cfg.OCRQualityCap <= 0 {
		cfg.OCRQualityCap = def.OCRQualityCap
	}
	return &Extractor{cfg: cfg, ocr: ocr, pdfPages: readPDF, logger: logger}
}

// Extract picks a strategy based on file extension.
func (e *Extractor) Extract(ctx context.Context, path string) (Result, error) {
	start := time.Now()

	info, err := os.Stat(path)
	if err != nil {
		if errors.Is(err, fs.ErrNotExist) {
			return Result{}, fmt.Errorf("%w: %s", ErrFileNotFound, filepath.Base(path))
		}
		return Result{}, fmt.Errorf("%w: %v", ErrCorruptFile, err)
	}
	if info.IsDir() {
		return Result{}, fmt.Errorf("%w: %s is a directory", ErrFileNotFound, filepath.Base(path))
	}

	ext := constants.NormalizeExt(filepath.Ext(path))
	e.logger.Debug("extract.start", "file", filepath.Base(path), "ext", ext, "bytes", info.Size())

	var res Result
	switch constants.MapExtToFormat(ext) {
	case constants.PDF:
		res, err = e.extractPDF(ctx, path)
	case constants.DOCX:
		res, err = e.extractDOCX(path)
	default:
		e.logger.Error("extract.unsupported", "extension", ext)
		return Result{}, fmt.Errorf("%w: %q", ErrUnsupportedFormat, ext)
	}
	if err != nil {
		e.logger.Error("extract.failed", "file", filepath.Base(path), "error", err)
		return Result{}, err
	}

	res.Duration = time.Since(start)
	e.logger.Info("extract.done",
		"format", res.Format,
		"method", res.Method,
		"pages", res.Pages,
		"chars", utf8.RuneCountInString(res.Text),
		"quality", res.QualityScore,
		"is_scanned", res.IsScanned,
		"elapsed_ms", res.Duration.Milliseconds(),
	)
	return res, nil
}

func (e *Extractor) extractPDF(ctx context.Context, path string) (Result, error) {
	pages, err := e.pdfPages(path)
	if err != nil {
		return Result{}, err
	}

	text := Normalize(strings.Join(pages, "\n\n"))
	pageCount := max(len(pages), 1)
	avg := float64(utf8.RuneCountInString(text)) / float64(pageCount)

	res := Result{
		Text:            text,
		Pages:           len(pages),
		QualityScore:    min(1.0, avg/e.cfg.FullPageChars),
		IsScanned:       avg < e.cfg.ScannedBelow,
		Format:          constants.PDF,
		Method:          MethodPDFText,
		AvgCharsPerPage: avg,
	}

	if avg >= e.cfg.OCRBelow {
		return res, nil
	}
	if e.ocr == nil || !e.ocr.Available() {
		res.Warnings = append(res.Warnings, "little or no text layer and OCR is not available")
		e.logger.Warn("extract.ocr.unavailable", "avg_chars_per_page", avg)
		return res, nil
	}

	e.logger.Info("extract.ocr.fallback", "pages", len(pages), "avg_chars_per_page", avg)
	o, err := e.ocr.Recognize(ctx, path, len(pages))
	if err != nil {
		if ctx.Err() != nil {
			return Result{}, ctx.Err()
		}
		res.Warnings = append(res.Warnings, "ocr failed: "+err.Error())
		return res, nil
	}
	res.Warnings = append(res.Warnings, o.Warnings...)

	ocrText := Normalize(o.Text)
	if utf8.RuneCountInString(ocrText) <= utf8.RuneCountInString(text) {
		return res, nil
	}
	ocrAvg := float64(utf8.RuneCountInString(ocrText)) / float64(pageCount)
	res.Text = ocrText
	res.QualityScore = min(e.cfg.OCRQualityCap, ocrAvg/e.cfg.FullPageChars)
	res.IsScanned = true
	res.Method = MethodPDFOCR
	res.AvgCharsPerPage = ocrAvg
	return res, nil
}

func (e *Extractor) extractDOCX(path string) (Result, error) {
	paragraphs, err := readDOCX(path)
	if err != nil {
		return Result{}, err
	}
	text := Normalize(strings.Join(paragraphs, "\n\n"))
	pages := max(1, len(paragraphs)/paragraphsPerPage)
	return Result{
		Text:            text,
		Pages:           pages,
		QualityScore:    1.0,
		Format:          constants.DOCX,
		Method:          MethodDOCX,
		AvgCharsPerPage: float64(utf8.RuneCountInString(text)) / float64(pages),
	}, nil
}
