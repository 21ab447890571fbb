// Package ocr talks to the OCR sidecar that rasterizes PDF pages and
// recognizes their text.
package ocr

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"
)

// ErrUnavailable is returned when no OCR engine is configured.
var ErrUnavailable = errors.New("ocr unavailable")

// Options controls rasterization and recognition.
type Options struct {
	Zoom      float64
	Languages []string
}

// DefaultOptions renders at 2x and recognizes English plus Mongolian Cyrillic.
func DefaultOptions() Options {
	return Options{Zoom: 2.0, Languages: []string{"eng", "mon"}}
}

// Recognizer returns one text string per PDF page.
type Recognizer interface {
	Recognize(ctx context.Context, pdf []byte, opts Options) ([]string, error)
}

// Disabled is used when OCR_SERVICE_URL is not set.
type Disabled struct{}

func (Disabled) Recognize(context.Context, []byte, Options) ([]string, error) {
	return nil, ErrUnavailable
}

// HTTPClient calls the OCR sidecar over HTTP.
type HTTPClient struct {
	baseURL string
	client  *http.Client
}

// NewHTTPClient builds a client for the sidecar at baseURL.
func NewHTTPClient(baseURL string, timeout time.Duration) *HTTPClient {
	if timeout <= 0 {
		timeout = 120 * time.Second
	}
	return &HTTPClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: timeout},
	}
}

type recognizeResponse struct {
	Pages []string `json:"pages"`
	Error string   `json:"error,omitempty"`
}

// Recognize posts the PDF to /ocr and returns the recognized pages.
func (c *HTTPClient) Recognize(ctx context.Context, pdf []byte, opts Options) ([]string, error) {
	if opts.Zoom <= 0 {
		opts.Zoom = DefaultOptions().Zoom
	}
	if len(opts.Languages) == 0 {
		opts.Languages = DefaultOptions().Languages
	}
	q := url.Values{}
	q.Set("zoom", strconv.FormatFloat(opts.Zoom, 'f', -1, 64))
	q.Set("lang", strings.Join(opts.Languages, "+"))

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, c.baseURL+"/ocr?"+q.Encode(), bytes.NewReader(pdf))
	if err != nil {
		return nil, fmt.Errorf("ocr request: %w", err)
	}
	req.Header.Set("Content-Type", "application/pdf")

	resp, err := c.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("ocr call: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 32<<20))
	if err != nil {
		return nil, fmt.Errorf("ocr read: %w", err)
	}
	var out recognizeResponse
	if err := json.Unmarshal(body, &out); err != nil {
		return nil, fmt.Errorf("ocr decode status=%d: %w", resp.StatusCode, err)
	}
	if out.Error != "" {
		return nil, fmt.Errorf("ocr error status=%d: %s", resp.StatusCode, out.Error)
	}
	if resp.StatusCode >= 300 {
		return nil, fmt.Errorf("ocr status %d", resp.StatusCode)
	}
	return out.Pages, nil
}
