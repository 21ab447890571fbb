package object

import (
	"bytes"
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"io"
	"net/http"
	"time"
)

// ObjectStore defines the contract for saving and retrieving binary objects.
// Keys are relative to the store root; URL turns a key into an addressable
// cv URL (local://, s3://, gs://) that Fetcher can resolve later.
type ObjectStore interface {
	Save(ctx context.Context, namespace string, fileName string, r io.Reader) (storageKey string, sizeBytes int64, mimeType string, err error)
	Open(ctx context.Context, storageKey string) (io.ReadCloser, error)
	URL(storageKey string) string
}

// Sniff reads up to 512 bytes to detect the content type and returns a reader
// that replays them ahead of the rest of r.
func Sniff(r io.Reader) (string, io.Reader, error) {
	var head [512]byte
	n, err := io.ReadFull(r, head[:])
	if err != nil && err != io.EOF && err != io.ErrUnexpectedEOF {
		return "", nil, fmt.Errorf("read sniff: %w", err)
	}
	buf := append([]byte(nil), head[:n]...)
	return http.DetectContentType(buf), io.MultiReader(bytes.NewReader(buf), r), nil
}

// RandomID returns a hex identifier used to make stored names unique.
func RandomID() string {
	var b [16]byte
	if _, err := rand.Read(b[:]); err != nil {
		return fmt.Sprintf("%d", time.Now().UnixNano())
	}
	return hex.EncodeToString(b[:])
}

// CountingReader counts bytes passed through it.
type CountingReader struct {
	R io.Reader
	N int64
}

func (c *CountingReader) Read(p []byte) (int, error) {
	n, err := c.R.Read(p)
	c.N += int64(n)
	return n, err
}
