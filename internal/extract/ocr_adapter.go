package extract

import (
	"context"
	"log/slog"

	"github.com/joseph-ayodele/contract-analyzer/internal/ocr"
)

type OCRAdapter struct {
	e      *ocr.Engine
	logger *slog.Logger
}

func NewOCRAdapter(e *ocr.Engine, logger *slog.Logger) *OCRAdapter {
	if logger == nil {
		logger = slog.Default()
	}
	return &OCRAdapter{e: e, logger: logger}
}

func (a *OCRAdapter) Available() bool {
	return a.e != nil && a.e.Available()
}

func (a *OCRAdapter) Recognize(ctx context.Context, path string, pages int) (OCRResult, error) {
	r, err := a.e.RecognizePDF(ctx, path, pages)
	if err != nil {
		a.logger.Warn("extract.ocr.failed", "path", path, "error", err)
	}
	return OCRResult{
		Text:     r.Text,
		Pages:    r.Pages,
		Warnings: r.Warnings,
	}, err
}
