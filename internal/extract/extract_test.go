package extract

import (
	"archive/zip"
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/joseph-ayodele/contract-analyzer/constants"
)

func writeDOCX(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "lease.docx")
	f, err := os.Create(path)
	require.NoError(t, err)
	zw := zip.NewWriter(f)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(`<?xml version="1.0" encoding="UTF-8"?>
<w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` + body + `</w:body></w:document>`))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	require.NoError(t, f.Close())
	return path
}

func para(text string) string {
	return `<w:p><w:r><w:t xml:space="preserve">` + text + `</w:t></w:r></w:p>`
}

type stubOCR struct {
	available bool
	text      string
	err       error
	calls     int
}

func (s *stubOCR) Available() bool { return s.available }

func (s *stubOCR) Recognize(_ context.Context, _ string, pages int) (OCRResult, error) {
	s.calls++
	return OCRResult{Text: s.text, Pages: pages}, s.err
}

func touch(t *testing.T, name string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), name)
	require.NoError(t, os.WriteFile(path, []byte("%PDF-1.4"), 0o644))
	return path
}

func TestExtract_DOCX(t *testing.T) {
	body := para("LEASE AGREEMENT") +
		para("1.   Parties:  John   Smith and Jane Doe") +
		`<w:tbl><w:tr><w:tc>` + para("Rent") + `</w:tc><w:tc>` + para("1200 EUR") + `</w:tc></w:tr></w:tbl>` +
		para("2. Term")
	path := writeDOCX(t, body)

	res, err := NewExtractor(Config{}, nil, nil).Extract(context.Background(), path)
	require.NoError(t, err)

	assert.Equal(t, constants.DOCX, res.Format)
	assert.Equal(t, MethodDOCX, res.Method)
	assert.Equal(t, 1.0, res.QualityScore)
	assert.False(t, res.IsScanned)
	assert.Equal(t, 1, res.Pages)
	assert.Equal(t, "LEASE AGREEMENT\n\n1. Parties: John Smith and Jane Doe\n\nRent | 1200 EUR\n\n2. Term", res.Text)
}

func TestExtract_DOCXPageEstimate(t *testing.T) {
	var b strings.Builder
	for i := 0; i < 45; i++ {
		b.WriteString(para("Clause text"))
	}
	res, err := NewExtractor(Config{}, nil, nil).Extract(context.Background(), writeDOCX(t, b.String()))
	require.NoError(t, err)
	assert.Equal(t, 2, res.Pages)
}

func TestExtract_Errors(t *testing.T) {
	e := NewExtractor(Config{}, nil, nil)

	_, err := e.Extract(context.Background(), filepath.Join(t.TempDir(), "missing.pdf"))
	assert.ErrorIs(t, err, ErrFileNotFound)

	_, err = e.Extract(context.Background(), touch(t, "notes.txt"))
	assert.ErrorIs(t, err, ErrUnsupportedFormat)

	bad := filepath.Join(t.TempDir(), "bad.docx")
	require.NoError(t, os.WriteFile(bad, []byte("not a zip"), 0o644))
	_, err = e.Extract(context.Background(), bad)
	assert.ErrorIs(t, err, ErrCorruptFile)

	badPDF := filepath.Join(t.TempDir(), "bad.pdf")
	require.NoError(t, os.WriteFile(badPDF, []byte("garbage bytes"), 0o644))
	_, err = e.Extract(context.Background(), badPDF)
	assert.ErrorIs(t, err, ErrCorruptFile)
}

func TestExtract_PDFQuality(t *testing.T) {
	e := NewExtractor(Config{}, nil, nil)
	e.pdfPages = func(string) ([]string, error) {
		return []string{strings.Repeat("a", 1000), strings.Repeat("b", 1000)}, nil
	}

	res, err := e.Extract(context.Background(), touch(t, "c.pdf"))
	require.NoError(t, err)
	assert.Equal(t, MethodPDFText, res.Method)
	assert.Equal(t, 2, res.Pages)
	assert.InDelta(t, 0.5, res.QualityScore, 0.01)
	assert.False(t, res.IsScanned)
}

func TestExtract_PDFWithoutTextAndNoOCR(t *testing.T) {
	o := &stubOCR{available: false}
	e := NewExtractor(Config{}, o, nil)
	e.pdfPages = func(string) ([]string, error) { return []string{"", ""}, nil }

	res, err := e.Extract(context.Background(), touch(t, "scan.pdf"))
	require.NoError(t, err)
	assert.Empty(t, res.Text)
	assert.Zero(t, res.QualityScore)
	assert.True(t, res.IsScanned)
	assert.Zero(t, o.calls)
	assert.NotEmpty(t, res.Warnings)
}

func TestExtract_PDFFallsBackToOCR(t *testing.T) {
	o := &stubOCR{available: true, text: strings.Repeat("recognized text ", 100)}
	e := NewExtractor(Config{}, o, nil)
	e.pdfPages = func(string) ([]string, error) { return []string{"x"}, nil }

	res, err := e.Extract(context.Background(), touch(t, "scan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, 1, o.calls)
	assert.Equal(t, MethodPDFOCR, res.Method)
	assert.True(t, res.IsScanned)
	assert.LessOrEqual(t, res.QualityScore, 0.8)
	assert.Contains(t, res.Text, "recognized text")
}

func TestExtract_OCRKeepsLongerDigitalText(t *testing.T) {
	o := &stubOCR{available: true, text: "short"}
	e := NewExtractor(Config{}, o, nil)
	e.pdfPages = func(string) ([]string, error) { return []string{"slightly longer digital text"}, nil }

	res, err := e.Extract(context.Background(), touch(t, "scan.pdf"))
	require.NoError(t, err)
	assert.Equal(t, MethodPDFText, res.Method)
	assert.Equal(t, "slightly longer digital text", res.Text)
}

func TestNormalize(t *testing.T) {
	in := "  Title   here \r\n\n\n\n  1.  First\t clause  \n\fNext page"
	assert.Equal(t, "Title here\n\n1. First clause\n\nNext page", Normalize(in))
}

func TestValidate(t *testing.T) {
	err := Validate(Result{Text: "too short"})
	assert.ErrorIs(t, err, ErrTextTooShort)

	assert.NoError(t, Validate(Result{Text: strings.Repeat("x", MinTextChars)}))
	assert.NoError(t, ValidateMin(Result{Text: "abcdef"}, 5))
}

func TestTextFromContentStream(t *testing.T) {
	stream := []byte("BT\n/F1 12 Tf\n72 720 Td\n(1. Parties) Tj\n0 -14 Td\n[(The ) -20 (Tenant\\051)] TJ\nT*\n(Rent \\(monthly\\)) '\nET")
	assert.Equal(t, "1. Parties\nThe Tenant)\nRent (monthly)\n", textFromContentStream(stream))
}
