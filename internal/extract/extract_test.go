package extract

import (
	"archive/zip"
	"bytes"
	"context"
	"errors"
	"fmt"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"recruit-backend/internal/extract/ocr"
)

type fakeOCR struct {
	pages []string
	err   error
	calls int
	opts  ocr.Options
}

func (f *fakeOCR) Recognize(_ context.Context, _ []byte, opts ocr.Options) ([]string, error) {
	f.calls++
	f.opts = opts
	return f.pages, f.err
}

// buildPDF writes a single-page PDF whose text layer is text.
func buildPDF(text string) []byte {
	stream := fmt.Sprintf("BT /F1 12 Tf 72 712 Td (%s) Tj ET", text)
	objects := []string{
		"<< /Type /Catalog /Pages 2 0 R >>",
		"<< /Type /Pages /Kids [3 0 R] /Count 1 >>",
		"<< /Type /Page /Parent 2 0 R /MediaBox [0 0 612 792] /Contents 4 0 R /Resources << /Font << /F1 5 0 R >> >> >>",
		fmt.Sprintf("<< /Length %d >>\nstream\n%s\nendstream", len(stream), stream),
		"<< /Type /Font /Subtype /Type1 /BaseFont /Helvetica /Encoding /WinAnsiEncoding >>",
	}
	var buf bytes.Buffer
	buf.WriteString("%PDF-1.4\n")
	offsets := make([]int, len(objects))
	for i, obj := range objects {
		offsets[i] = buf.Len()
		fmt.Fprintf(&buf, "%d 0 obj\n%s\nendobj\n", i+1, obj)
	}
	xref := buf.Len()
	fmt.Fprintf(&buf, "xref\n0 %d\n", len(objects)+1)
	buf.WriteString("0000000000 65535 f \n")
	for _, off := range offsets {
		fmt.Fprintf(&buf, "%010d 00000 n \n", off)
	}
	fmt.Fprintf(&buf, "trailer\n<< /Size %d /Root 1 0 R >>\nstartxref\n%d\n%%%%EOF\n", len(objects)+1, xref)
	return buf.Bytes()
}

func buildDOCX(t *testing.T, paragraphs ...string) []byte {
	t.Helper()
	var body strings.Builder
	for _, p := range paragraphs {
		fmt.Fprintf(&body, "<w:p><w:r><w:t>%s</w:t></w:r></w:p>", p)
	}
	doc := `<?xml version="1.0" encoding="UTF-8"?><w:document xmlns:w="http://schemas.openxmlformats.org/wordprocessingml/2006/main"><w:body>` +
		body.String() + `</w:body></w:document>`

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("word/document.xml")
	require.NoError(t, err)
	_, err = w.Write([]byte(doc))
	require.NoError(t, err)
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestExtractPDFTextLayer(t *testing.T) {
	rec := &fakeOCR{pages: []string{"should not be used"}}
	ex := New(rec, ocr.DefaultOptions())

	text := "Experienced Go engineer with seven years building payment services in Ulaanbaatar"
	res, err := ex.Extract(context.Background(), buildPDF(text), MimePDF, "cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, MethodTextLayer, res.Method)
	assert.Equal(t, 1, res.Pages)
	assert.Contains(t, res.Text, "Experienced Go engineer")
	assert.Zero(t, rec.calls)
}

func TestExtractShortTextFallsBackToOCR(t *testing.T) {
	rec := &fakeOCR{pages: []string{"Бат Тод  senior   engineer", "", "React , Node"}}
	ex := New(rec, ocr.Options{Zoom: 2, Languages: []string{"eng", "mon"}})

	// 30 characters of clean text trips the length check even though the ratio is fine.
	res, err := ex.Extract(context.Background(), buildPDF("abcdefghij abcdefghij abcdefgh"), MimePDF, "cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, MethodOCR, res.Method)
	assert.Equal(t, 1, rec.calls)
	assert.Equal(t, 2.0, rec.opts.Zoom)
	assert.Equal(t, []string{"eng", "mon"}, rec.opts.Languages)
	assert.Equal(t, "Бат Тод senior engineer\n\nReact , Node", res.Text)
}

func TestExtractCorruptPDFFallsBackToOCR(t *testing.T) {
	rec := &fakeOCR{pages: []string{"Recovered by OCR"}}
	ex := New(rec, ocr.DefaultOptions())

	res, err := ex.Extract(context.Background(), []byte("%PDF-1.4 this is not a real pdf"), MimePDF, "cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, MethodOCR, res.Method)
	assert.Equal(t, "Recovered by OCR", res.Text)
}

func TestExtractBothPathsEmpty(t *testing.T) {
	ex := New(&fakeOCR{err: ocr.ErrUnavailable}, ocr.DefaultOptions())

	_, err := ex.Extract(context.Background(), []byte("%PDF-1.4 garbage"), MimePDF, "cv.pdf")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrExtractionFailed))
}

func TestExtractGarbledKeepsTextLayerWhenOCRUnavailable(t *testing.T) {
	ex := New(nil, ocr.DefaultOptions())

	res, err := ex.Extract(context.Background(), buildPDF("Short CV text"), MimePDF, "cv.pdf")
	require.NoError(t, err)
	assert.Equal(t, MethodTextLayer, res.Method)
	assert.True(t, res.Garbled)
	assert.Equal(t, "Short CV text", res.Text)
}

func TestExtractDOCX(t *testing.T) {
	ex := New(nil, ocr.DefaultOptions())
	data := buildDOCX(t, "Jane Doe", "Go, Kubernetes (5 years)")

	res, err := ex.Extract(context.Background(), data, "application/zip", "cv.docx")
	require.NoError(t, err)
	assert.Equal(t, MethodDOCX, res.Method)
	assert.Equal(t, "Jane Doe\nGo, Kubernetes 5 years", res.Text)
}

func TestExtractRejectsPlainZip(t *testing.T) {
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	w, err := zw.Create("notes.txt")
	require.NoError(t, err)
	_, err = w.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, zw.Close())

	_, err = New(nil, ocr.DefaultOptions()).Extract(context.Background(), buf.Bytes(), "application/zip", "notes.zip")
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}

func TestExtractRejectsImages(t *testing.T) {
	_, err := New(nil, ocr.DefaultOptions()).Extract(context.Background(), []byte{0x89, 'P', 'N', 'G'}, "image/png", "cv.png")
	assert.True(t, errors.Is(err, ErrUnsupportedType))
}
