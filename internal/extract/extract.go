package extract

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"recruit-backend/internal/extract/ocr"
	"recruit-backend/internal/shared/metrics"
	"recruit-backend/internal/shared/telemetry"
)

const (
	MimePDF  = "application/pdf"
	MimeDOCX = "application/vnd.openxmlformats-officedocument.wordprocessingml.document"

	MethodTextLayer = "text_layer"
	MethodOCR       = "ocr"
	MethodDOCX      = "docx"
)

var (
	ErrExtractionFailed = errors.New("extraction failed")
	ErrUnsupportedType  = errors.New("unsupported document type")
)

// Result is the cleaned text plus how it was obtained.
type Result struct {
	Text    string
	Method  string
	Pages   int
	Garbled bool
}

// Extractor turns stored CV bytes into normalized text.
type Extractor struct {
	OCR        ocr.Recognizer
	OCROptions ocr.Options
}

// New returns an Extractor. A nil recognizer disables the OCR fallback.
func New(rec ocr.Recognizer, opts ocr.Options) *Extractor {
	if rec == nil {
		rec = ocr.Disabled{}
	}
	return &Extractor{OCR: rec, OCROptions: opts}
}

// Extract dispatches on the detected document type.
func (e *Extractor) Extract(ctx context.Context, data []byte, mimeType string, fileName string) (Result, error) {
	if err := ctx.Err(); err != nil {
		return Result{}, err
	}
	switch DetectMimeType(mimeType, fileName, data) {
	case MimePDF:
		return e.extractPDF(ctx, data)
	case MimeDOCX:
		text, err := extractDOCX(data)
		if err != nil {
			return Result{}, fmt.Errorf("%w: docx: %v", ErrExtractionFailed, err)
		}
		cleaned := Normalize(text)
		if cleaned == "" {
			return Result{}, fmt.Errorf("%w: empty docx", ErrExtractionFailed)
		}
		return Result{Text: cleaned, Method: MethodDOCX, Pages: 1}, nil
	default:
		return Result{}, fmt.Errorf("%w: %s", ErrUnsupportedType, strings.TrimSpace(mimeType))
	}
}

func (e *Extractor) extractPDF(ctx context.Context, data []byte) (Result, error) {
	pages, primaryErr := readPDFPages(data)
	raw := strings.Join(pages, "\n\n")
	primary := Result{Text: Normalize(raw), Method: MethodTextLayer, Pages: len(pages)}

	reason := ""
	switch {
	case primaryErr != nil:
		reason = "parse_error"
	case IsGarbled(raw):
		reason = "garbled"
		primary.Garbled = true
	default:
		return primary, nil
	}

	fields := map[string]any{
		"reason":     reason,
		"text_runes": len([]rune(primary.Text)),
		"pages":      len(pages),
	}
	if primaryErr != nil {
		fields["error"] = primaryErr.Error()
	}
	telemetry.Info("extract.ocr_fallback", fields)
	metrics.IncOCRFallback()

	ocrPages, err := e.OCR.Recognize(ctx, data, e.OCROptions)
	if err != nil {
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, ctxErr
		}
		if !errors.Is(err, ocr.ErrUnavailable) {
			telemetry.Warn("extract.ocr_failed", map[string]any{"error": err.Error()})
		}
	}
	cleaned := make([]string, 0, len(ocrPages))
	for _, p := range ocrPages {
		if c := Normalize(p); c != "" {
			cleaned = append(cleaned, c)
		}
	}
	if text := strings.Join(cleaned, "\n\n"); text != "" {
		return Result{Text: text, Method: MethodOCR, Pages: len(ocrPages), Garbled: primary.Garbled}, nil
	}

	// OCR produced nothing; a garbled text layer is still better than no text.
	if primary.Text != "" {
		return primary, nil
	}
	if primaryErr != nil {
		return Result{}, fmt.Errorf("%w: %v", ErrExtractionFailed, primaryErr)
	}
	return Result{}, ErrExtractionFailed
}
