package ocr

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// stubRunner answers pdftoppm with success and tesseract with canned page text.
// Pages listed in hang block until their context is done.
type stubRunner struct {
	mu    sync.Mutex
	calls []string
	hang  map[string]bool
}

func (s *stubRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	s.mu.Lock()
	s.calls = append(s.calls, name+" "+strings.Join(args, " "))
	s.mu.Unlock()

	switch name {
	case "pdftoppm":
		return nil, nil, nil
	case "tesseract":
		img := args[0]
		for page := range s.hang {
			if strings.HasSuffix(img, "page-"+page+".png") {
				<-ctx.Done()
				return nil, nil, ctx.Err()
			}
		}
		return []byte("  text of " + img[strings.LastIndex(img, "page-"):] + "  \n"), nil, nil
	}
	return nil, []byte("unknown command"), assert.AnError
}

func newTestEngine(cfg Config, r Runner) *Engine {
	cfg.TempDir = ""
	return NewEngine(cfg, nil).WithRunner(r)
}

func TestRecognizePDF_AllPages(t *testing.T) {
	r := &stubRunner{}
	e := newTestEngine(Config{}, r)

	res, err := e.RecognizePDF(context.Background(), "/tmp/in.pdf", 3)
	require.NoError(t, err)

	assert.Equal(t, 3, res.Pages)
	assert.Zero(t, res.Skipped)
	assert.Equal(t, "text of page-1.png\n\ntext of page-2.png\n\ntext of page-3.png", res.Text)
	assert.Len(t, r.calls, 6)
	assert.Contains(t, r.calls[0], "-f 1 -l 1 -singlefile /tmp/in.pdf")
	assert.Contains(t, r.calls[1], "-l eng+rus+srp+fra")
}

func TestRecognizePDF_PageTimeoutSkipsPage(t *testing.T) {
	r := &stubRunner{hang: map[string]bool{"2": true}}
	e := newTestEngine(Config{PageTimeout: 30 * time.Millisecond, TotalTimeout: 5 * time.Second}, r)

	res, err := e.RecognizePDF(context.Background(), "/tmp/in.pdf", 3)
	require.NoError(t, err)

	assert.Equal(t, 2, res.Pages)
	assert.Equal(t, 1, res.Skipped)
	assert.Contains(t, res.Warnings, "page 2: ocr timed out")
	assert.NotContains(t, res.Text, "page-2")
}

func TestRecognizePDF_TotalTimeoutStopsEarly(t *testing.T) {
	r := &stubRunner{hang: map[string]bool{"1": true, "2": true, "3": true}}
	e := newTestEngine(Config{PageTimeout: time.Second, TotalTimeout: 50 * time.Millisecond}, r)

	res, err := e.RecognizePDF(context.Background(), "/tmp/in.pdf", 3)
	require.NoError(t, err)

	assert.Zero(t, res.Pages)
	assert.Equal(t, 3, res.Skipped)
	assert.Empty(t, res.Text)
}

func TestRecognizePDF_MaxPages(t *testing.T) {
	r := &stubRunner{}
	e := newTestEngine(Config{MaxPages: 1}, r)

	res, err := e.RecognizePDF(context.Background(), "/tmp/in.pdf", 5)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Pages)
	assert.Len(t, r.calls, 2)
}

func TestRecognizePDF_NoPages(t *testing.T) {
	e := newTestEngine(Config{}, &stubRunner{})
	_, err := e.RecognizePDF(context.Background(), "/tmp/in.pdf", 0)
	assert.Error(t, err)
}

func TestAvailable(t *testing.T) {
	e := NewEngine(Config{Pdftoppm: "definitely-not-a-binary-xyz"}, nil)
	assert.False(t, e.Available())

	assert.True(t, newTestEngine(Config{}, &stubRunner{}).Available())
}
