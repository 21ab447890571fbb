package gcs

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	gcs "cloud.google.com/go/storage"

	"recruit-backend/internal/shared/storage/object"
	"recruit-backend/internal/shared/util"
)

// Store implements ObjectStore using Google Cloud Storage.
type Store struct {
	client *gcs.Client
	bucket string
	prefix string
}

// New creates a GCS-backed store using application default credentials.
func New(ctx context.Context, bucket, prefix string) (*Store, error) {
	if strings.TrimSpace(bucket) == "" {
		return nil, fmt.Errorf("gcs bucket is required")
	}
	client, err := gcs.NewClient(ctx)
	if err != nil {
		return nil, fmt.Errorf("gcs client: %w", err)
	}
	return &Store{
		client: client,
		bucket: bucket,
		prefix: strings.Trim(strings.TrimSpace(prefix), "/"),
	}, nil
}

// Save uploads the reader contents under the hashed namespace.
func (s *Store) Save(ctx context.Context, namespace string, fileName string, r io.Reader) (string, int64, string, error) {
	sanitizedName, err := util.SanitizeFileName(fileName)
	if err != nil {
		return "", 0, "", fmt.Errorf("sanitize file name: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", 0, "", err
	}

	mimeType, body, err := object.Sniff(r)
	if err != nil {
		return "", 0, "", err
	}

	storageKey := path.Join(util.HashKey(namespace), object.RandomID()+"_"+sanitizedName)
	objectKey := object.ApplyPrefix(s.prefix, storageKey)

	w := s.client.Bucket(s.bucket).Object(objectKey).NewWriter(ctx)
	w.ContentType = mimeType
	n, err := io.Copy(w, body)
	if err != nil {
		_ = w.Close()
		return "", 0, "", fmt.Errorf("gcs write bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	if err := w.Close(); err != nil {
		return "", 0, "", fmt.Errorf("gcs close bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return storageKey, n, mimeType, nil
}

// Open downloads a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return s.OpenLocation(ctx, object.Location{Bucket: s.bucket, Key: object.ApplyPrefix(s.prefix, storageKey)})
}

// OpenLocation reads a gs:// location that may live in another bucket.
func (s *Store) OpenLocation(ctx context.Context, loc object.Location) (io.ReadCloser, error) {
	rc, err := s.client.Bucket(loc.Bucket).Object(loc.Key).NewReader(ctx)
	if errors.Is(err, gcs.ErrObjectNotExist) {
		return nil, fmt.Errorf("%w: gcs bucket=%s key=%s", object.ErrNotFound, loc.Bucket, loc.Key)
	}
	if err != nil {
		return nil, fmt.Errorf("gcs read bucket=%s key=%s: %w", loc.Bucket, loc.Key, err)
	}
	return rc, nil
}

// URL returns the gs:// address of storageKey including the store prefix.
func (s *Store) URL(storageKey string) string {
	return object.BuildURL(object.SchemeGCS, s.bucket, object.ApplyPrefix(s.prefix, storageKey))
}

// Close releases the underlying client.
func (s *Store) Close() error {
	return s.client.Close()
}

var _ object.ObjectStore = (*Store)(nil)
