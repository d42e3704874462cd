// Package ocr renders PDF pages with pdftoppm and reads them with tesseract.
package ocr

import (
	"log/slog"
	"os/exec"
	"time"
)

type Config struct {
	Pdftoppm  string // binary name or absolute path; if empty -> "pdftoppm"
	Tesseract string // binary name or absolute path; if empty -> "tesseract"

	TesseractLang string // default "eng+rus+srp+fra"
	TessdataDir   string
	DPI           int // rasterization DPI, default 300
	MaxPages      int // 0 = no limit

	PageTimeout  time.Duration // render + recognize one page, default 25s
	TotalTimeout time.Duration // all pages together, default 60s

	TempDir string
}

// Result is the recognized text of a document.
type Result struct {
	Text     string
	Pages    int // pages that produced text
	Skipped  int // pages that timed out or failed
	Warnings []string
	Duration time.Duration
}

type Engine struct {
	cfg      Config
	runner   Runner
	lookPath func(string) (string, error)
	logger   *slog.Logger
}

func NewEngine(cfg Config, logger *slog.Logger) *Engine {
	if logger == nil {
		logger = slog.Default()
	}
	if cfg.Pdftoppm == "" {
		cfg.Pdftoppm = "pdftoppm"
	}
	if cfg.Tesseract == "" {
		cfg.Tesseract = "tesseract"
	}
	if cfg.TesseractLang == "" {
		cfg.TesseractLang = "eng+rus+srp+fra"
	}
	if cfg.DPI <= 0 {
		cfg.DPI = 300
	}
	if cfg.PageTimeout <= 0 {
		cfg.PageTimeout = 25 * time.Second
	}
	if cfg.TotalTimeout <= 0 {
		cfg.TotalTimeout = 60 * time.Second
	}
	return &Engine{cfg: cfg, runner: execRunner{logger: logger}, lookPath: exec.LookPath, logger: logger}
}

// WithRunner swaps the command runner. Binaries are then assumed present.
func (e *Engine) WithRunner(r Runner) *Engine {
	e.runner = r
	e.lookPath = func(name string) (string, error) { return name, nil }
	return e
}

// Available reports whether both external binaries can be found.
func (e *Engine) Available() bool {
	for _, bin := range []string{e.cfg.Pdftoppm, e.cfg.Tesseract} {
		if _, err := e.lookPath(bin); err != nil {
			e.logger.Debug("ocr.binary.missing", "binary", bin, "error", err)
			return false
		}
	}
	return true
}
