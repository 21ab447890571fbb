package documents

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"strings"

	"recruit-backend/internal/extract"
	"recruit-backend/internal/shared/storage/object"
)

// Stored describes an uploaded CV.
type Stored struct {
	CVURL     string `json:"cvUrl"`
	FileName  string `json:"fileName"`
	MimeType  string `json:"mimeType"`
	SizeBytes int64  `json:"sizeBytes"`
}

// Service stores CV uploads.
type Service struct {
	Store object.ObjectStore
}

// uploadNamespace groups CV objects under one hashed directory.
const uploadNamespace = "cv"

// Upload validates the document type and saves it to the object store.
func (s *Service) Upload(ctx context.Context, fileName string, r io.Reader) (Stored, error) {
	fileName = strings.TrimSpace(fileName)
	if fileName == "" {
		return Stored{}, fmt.Errorf("%w: file name is required", ErrInvalidInput)
	}
	data, err := readLimited(r, MaxDocumentBytes)
	if err != nil {
		return Stored{}, err
	}
	if len(data) == 0 {
		return Stored{}, fmt.Errorf("%w: file is empty", ErrInvalidInput)
	}
	mimeType := extract.DetectMimeType("", fileName, data)
	if mimeType != extract.MimePDF && mimeType != extract.MimeDOCX {
		return Stored{}, fmt.Errorf("%w: %s", ErrUnsupportedType, mimeType)
	}

	key, size, _, err := s.Store.Save(ctx, uploadNamespace, fileName, bytes.NewReader(data))
	if err != nil {
		return Stored{}, err
	}
	return Stored{
		CVURL:     s.Store.URL(key),
		FileName:  fileName,
		MimeType:  mimeType,
		SizeBytes: size,
	}, nil
}
