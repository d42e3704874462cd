package ocr

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

// RecognizePDF OCRs pages 1..pages of the PDF at path. Each page gets its own
// deadline; a page that runs out of time is skipped with a warning. When the
// overall deadline expires the pages read so far are returned.
func (e *Engine) RecognizePDF(ctx context.Context, path string, pages int) (Result, error) {
	start := time.Now()
	if pages <= 0 {
		return Result{}, fmt.Errorf("ocr: no pages to recognize")
	}
	if e.cfg.MaxPages > 0 && pages > e.cfg.MaxPages {
		pages = e.cfg.MaxPages
	}

	tmpDir, err := os.MkdirTemp(e.cfg.TempDir, "ca-ocr-*")
	if err != nil {
		return Result{}, err
	}
	defer func() {
		if err := os.RemoveAll(tmpDir); err != nil {
			e.logger.Warn("ocr.tempdir.cleanup_failed", "dir", tmpDir, "error", err)
		}
	}()

	totalCtx, cancel := context.WithTimeout(ctx, e.cfg.TotalTimeout)
	defer cancel()

	var b strings.Builder
	var res Result
	for page := 1; page <= pages; page++ {
		if totalCtx.Err() != nil {
			res.Skipped += pages - page + 1
			res.Warnings = append(res.Warnings, fmt.Sprintf("ocr total timeout reached after %d of %d pages", page-1, pages))
			break
		}

		txt, err := e.recognizePage(totalCtx, path, tmpDir, page)
		if err != nil {
			res.Skipped++
			if errors.Is(err, context.DeadlineExceeded) {
				res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: ocr timed out", page))
			} else {
				res.Warnings = append(res.Warnings, fmt.Sprintf("page %d: %v", page, err))
			}
			e.logger.Warn("ocr.page.skipped", "page", page, "error", err)
			continue
		}
		txt = strings.TrimSpace(txt)
		if txt == "" {
			continue
		}
		if b.Len() > 0 {
			b.WriteString("\n\n")
		}
		b.WriteString(txt)
		res.Pages++
	}

	if ctx.Err() != nil {
		return Result{}, ctx.Err()
	}

	res.Text = b.String()
	res.Duration = time.Since(start)
	e.logger.Info("ocr.pdf.done", "pages", pages, "recognized", res.Pages, "skipped", res.Skipped,
		"chars", len(res.Text), "elapsed_ms", res.Duration.Milliseconds())
	return res, nil
}

func (e *Engine) recognizePage(ctx context.Context, path, dir string, page int) (string, error) {
	pageCtx, cancel := context.WithTimeout(ctx, e.cfg.PageTimeout)
	defer cancel()

	prefix := filepath.Join(dir, "page-"+strconv.Itoa(page))
	n := strconv.Itoa(page)
	// pdftoppm -r 300 -png -f N -l N -singlefile <in.pdf> <tmp/page-N>
	_, errb, err := e.runner.Run(pageCtx, e.cfg.Pdftoppm,
		"-r", strconv.Itoa(e.cfg.DPI), "-png", "-f", n, "-l", n, "-singlefile", path, prefix)
	if err != nil {
		if pageCtx.Err() != nil {
			return "", pageCtx.Err()
		}
		return "", fmt.Errorf("pdftoppm: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 256))
	}

	txt, err := e.tesseract(pageCtx, prefix+".png")
	if err != nil && pageCtx.Err() != nil {
		return "", pageCtx.Err()
	}
	return txt, err
}
