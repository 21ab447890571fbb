package s3

import (
	"context"
	"errors"
	"fmt"
	"io"
	"path"
	"strings"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	s3types "github.com/aws/aws-sdk-go-v2/service/s3/types"

	"recruit-backend/internal/shared/storage/object"
	"recruit-backend/internal/shared/util"
)

// Store implements ObjectStore using Amazon S3.
type Store struct {
	client   *s3.Client
	bucket   string
	prefix   string
	kmsKeyID string
}

// New creates a new S3-backed object store.
func New(ctx context.Context, region, bucket, prefix, kmsKeyID string) (*Store, error) {
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required")
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}

	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}

	return &Store{
		client:   s3.NewFromConfig(cfg),
		bucket:   bucket,
		prefix:   strings.Trim(strings.TrimSpace(prefix), "/"),
		kmsKeyID: strings.TrimSpace(kmsKeyID),
	}, nil
}

// Save uploads the reader contents to S3 under the hashed namespace.
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
	n, err := s.put(ctx, storageKey, mimeType, body)
	if err != nil {
		return "", 0, "", err
	}
	return storageKey, n, mimeType, nil
}

// Open downloads a stored object for reading.
func (s *Store) Open(ctx context.Context, storageKey string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	objectKey := object.ApplyPrefix(s.prefix, storageKey)
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(s.bucket),
		Key:    aws.String(objectKey),
	})
	if err != nil {
		return nil, getObjectError(s.bucket, objectKey, err)
	}
	return out.Body, nil
}

// URL returns the s3:// address of storageKey including the store prefix.
func (s *Store) URL(storageKey string) string {
	return object.BuildURL(object.SchemeS3, s.bucket, object.ApplyPrefix(s.prefix, storageKey))
}

// OpenLocation reads an s3:// location that may live in another bucket.
func (s *Store) OpenLocation(ctx context.Context, loc object.Location) (io.ReadCloser, error) {
	out, err := s.client.GetObject(ctx, &s3.GetObjectInput{
		Bucket: aws.String(loc.Bucket),
		Key:    aws.String(loc.Key),
	})
	if err != nil {
		return nil, getObjectError(loc.Bucket, loc.Key, err)
	}
	return out.Body, nil
}

func getObjectError(bucket, key string, err error) error {
	var noKey *s3types.NoSuchKey
	if errors.As(err, &noKey) {
		return fmt.Errorf("%w: s3 bucket=%s key=%s", object.ErrNotFound, bucket, key)
	}
	return fmt.Errorf("s3 get object bucket=%s key=%s: %w", bucket, key, err)
}

func (s *Store) put(ctx context.Context, storageKey, contentType string, r io.Reader) (int64, error) {
	objectKey := object.ApplyPrefix(s.prefix, storageKey)
	counter := &object.CountingReader{R: r}

	input := &s3.PutObjectInput{
		Bucket:      aws.String(s.bucket),
		Key:         aws.String(objectKey),
		Body:        counter,
		ContentType: aws.String(contentType),
	}
	if s.kmsKeyID != "" {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAwsKms
		input.SSEKMSKeyId = aws.String(s.kmsKeyID)
	} else {
		input.ServerSideEncryption = s3types.ServerSideEncryptionAes256
	}

	if _, err := s.client.PutObject(ctx, input); err != nil {
		return 0, fmt.Errorf("s3 put object bucket=%s key=%s: %w", s.bucket, objectKey, err)
	}
	return counter.N, nil
}

var _ object.ObjectStore = (*Store)(nil)
