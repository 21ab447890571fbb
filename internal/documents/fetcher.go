package documents

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"recruit-backend/internal/shared/storage/object"
)

// MaxDocumentBytes caps uploads and fetches.
const MaxDocumentBytes = 10 << 20

// LocationOpener reads an object addressed by bucket and key.
type LocationOpener interface {
	OpenLocation(ctx context.Context, loc object.Location) (io.ReadCloser, error)
}

// Fetcher resolves a cv URL to its bytes.
type Fetcher struct {
	// Local resolves local:// URLs. Nil disables the scheme.
	Local object.ObjectStore
	// Buckets resolves bucket schemes such as s3 and gs.
	Buckets map[string]LocationOpener
	HTTP    *http.Client
	// AllowedHosts lists hosts http(s) URLs may point at. A leading dot
	// matches subdomains. Empty rejects every http(s) URL.
	AllowedHosts []string
	// MaxBytes defaults to MaxDocumentBytes.
	MaxBytes int64
}

// Fetch returns the document bytes and the content type reported by the
// source, if any.
func (f *Fetcher) Fetch(ctx context.Context, cvURL string) ([]byte, string, error) {
	loc, err := object.ParseURL(cvURL)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %s", ErrInvalidInput, cvURL)
	}

	var rc io.ReadCloser
	var contentType string
	switch loc.Scheme {
	case object.SchemeLocal:
		if f.Local == nil {
			return nil, "", fmt.Errorf("%w: local storage is not configured", ErrInvalidInput)
		}
		rc, err = f.Local.Open(ctx, loc.Key)
	case object.SchemeHTTP, object.SchemeHTTPS:
		rc, contentType, err = f.get(ctx, loc.Raw)
	default:
		opener, ok := f.Buckets[loc.Scheme]
		if !ok || opener == nil {
			return nil, "", fmt.Errorf("%w: %s storage is not configured", ErrInvalidInput, loc.Scheme)
		}
		rc, err = opener.OpenLocation(ctx, loc)
	}
	if err != nil {
		if errors.Is(err, object.ErrNotFound) {
			return nil, "", fmt.Errorf("%w: %v", ErrNotFound, err)
		}
		return nil, "", err
	}
	defer rc.Close()

	data, err := readLimited(rc, f.maxBytes())
	if err != nil {
		return nil, "", err
	}
	return data, contentType, nil
}

func (f *Fetcher) maxBytes() int64 {
	if f.MaxBytes > 0 {
		return f.MaxBytes
	}
	return MaxDocumentBytes
}

func (f *Fetcher) get(ctx context.Context, raw string) (io.ReadCloser, string, error) {
	target, err := url.Parse(raw)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	if !f.hostAllowed(target.Hostname()) {
		return nil, "", fmt.Errorf("%w: host %q is not allowed", ErrInvalidInput, target.Hostname())
	}

	client := &http.Client{Timeout: 30 * time.Second}
	if f.HTTP != nil {
		c := *f.HTTP
		client = &c
	}
	client.CheckRedirect = func(req *http.Request, via []*http.Request) error {
		if len(via) >= 5 {
			return errors.New("too many redirects")
		}
		if !f.hostAllowed(req.URL.Hostname()) {
			return fmt.Errorf("%w: redirect to host %q is not allowed", ErrInvalidInput, req.URL.Hostname())
		}
		return nil
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, target.String(), nil)
	if err != nil {
		return nil, "", fmt.Errorf("%w: %v", ErrInvalidInput, err)
	}
	resp, err := client.Do(req)
	if err != nil {
		if errors.Is(err, ErrInvalidInput) {
			return nil, "", err
		}
		return nil, "", fmt.Errorf("fetch document: %w", err)
	}
	switch {
	case resp.StatusCode == http.StatusNotFound:
		resp.Body.Close()
		return nil, "", fmt.Errorf("%w: %s", ErrNotFound, raw)
	case resp.StatusCode < 200 || resp.StatusCode > 299:
		resp.Body.Close()
		return nil, "", fmt.Errorf("fetch document: http status %d", resp.StatusCode)
	}
	return resp.Body, resp.Header.Get("Content-Type"), nil
}

func (f *Fetcher) hostAllowed(host string) bool {
	host = strings.ToLower(strings.TrimSuffix(host, "."))
	if host == "" {
		return false
	}
	for _, allowed := range f.AllowedHosts {
		allowed = strings.ToLower(strings.TrimSpace(allowed))
		switch {
		case allowed == "":
		case strings.HasPrefix(allowed, "."):
			if strings.HasSuffix(host, allowed) {
				return true
			}
		case host == allowed:
			return true
		}
	}
	return false
}

func readLimited(r io.Reader, limit int64) ([]byte, error) {
	var buf bytes.Buffer
	n, err := io.Copy(&buf, io.LimitReader(r, limit+1))
	if err != nil {
		return nil, fmt.Errorf("read document: %w", err)
	}
	if n > limit {
		return nil, ErrTooLarge
	}
	return buf.Bytes(), nil
}
