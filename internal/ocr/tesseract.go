package ocr

import (
	"context"
	"fmt"
	"regexp"
	"strings"
)

// runs of box-drawing and pipe noise tesseract emits for table rulings
var reBoxNoise = regexp.MustCompile(`[│┃|_]{3,}`)

func (e *Engine) tesseract(ctx context.Context, image string) (string, error) {
	args := []string{image, "stdout", "-l", e.cfg.TesseractLang}
	if e.cfg.TessdataDir != "" {
		args = append(args, "--tessdata-dir", e.cfg.TessdataDir)
	}

	// tesseract <file> stdout -l <lang>
	out, errb, err := e.runner.Run(ctx, e.cfg.Tesseract, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 256))
	}
	return reBoxNoise.ReplaceAllString(string(out), ""), nil
}
