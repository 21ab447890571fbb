package documents

import (
	"context"
	"fmt"
	"net/http"
	"path"
	"strings"
	"time"

	"github.com/aws/aws-sdk-go-v2/aws"
	awsconfig "github.com/aws/aws-sdk-go-v2/config"
	"github.com/aws/aws-sdk-go-v2/service/s3"
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"recruit-backend/internal/extract"
	"recruit-backend/internal/shared/server/respond"
	"recruit-backend/internal/shared/storage/object"
	"recruit-backend/internal/shared/telemetry"
	"recruit-backend/internal/shared/util"
)

const (
	presignExpires       = 15 * time.Minute
	defaultUploadsPrefix = "uploads"
)

var allowedContentTypes = map[string]struct{}{
	extract.MimePDF:  {},
	extract.MimeDOCX: {},
}

// PresignHandler issues presigned S3 PUT URLs for direct browser uploads.
type PresignHandler struct {
	presign *s3.PresignClient
	bucket  string
	prefix  string
}

// NewPresignHandler builds a handler for bucket using the default AWS credential chain.
func NewPresignHandler(ctx context.Context, region, bucket, prefix string) (*PresignHandler, error) {
	bucket = strings.TrimSpace(bucket)
	if bucket == "" {
		return nil, fmt.Errorf("s3 bucket is required for presigned uploads")
	}
	prefix = strings.Trim(strings.TrimSpace(prefix), "/")
	if prefix == "" {
		prefix = defaultUploadsPrefix
	}

	loadOpts := []func(*awsconfig.LoadOptions) error{}
	if region != "" {
		loadOpts = append(loadOpts, awsconfig.WithRegion(region))
	}
	cfg, err := awsconfig.LoadDefaultConfig(ctx, loadOpts...)
	if err != nil {
		return nil, fmt.Errorf("load aws config: %w", err)
	}
	return &PresignHandler{
		presign: s3.NewPresignClient(s3.NewFromConfig(cfg)),
		bucket:  bucket,
		prefix:  prefix,
	}, nil
}

type presignRequest struct {
	FileName    string `json:"fileName"`
	ContentType string `json:"contentType"`
	SizeBytes   int64  `json:"sizeBytes"`
}

type presignResponse struct {
	UploadURL        string `json:"uploadUrl"`
	CVURL            string `json:"cvUrl"`
	ExpiresInSeconds int64  `json:"expiresInSeconds"`
}

// RegisterRoutes attaches the presign route to the router group.
func (h *PresignHandler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/uploads/presign", h.handle)
}

func (h *PresignHandler) handle(c *gin.Context) {
	var req presignRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}

	req.FileName = strings.TrimSpace(req.FileName)
	req.ContentType = strings.TrimSpace(req.ContentType)

	if req.FileName == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "fileName is required", nil)
		return
	}
	if _, ok := allowedContentTypes[req.ContentType]; !ok {
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_document", "contentType is not allowed", nil)
		return
	}
	if req.SizeBytes <= 0 || req.SizeBytes > MaxDocumentBytes {
		respond.Error(c, http.StatusBadRequest, "validation_error", "sizeBytes exceeds limit", gin.H{"maxBytes": MaxDocumentBytes})
		return
	}

	sanitized, err := util.SanitizeFileName(req.FileName)
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid fileName", nil)
		return
	}

	key := path.Join(h.prefix, uuid.NewString(), sanitized)
	out, err := h.presign.PresignPutObject(c.Request.Context(), presignInput(h.bucket, key), func(opts *s3.PresignOptions) {
		opts.Expires = presignExpires
	})
	if err != nil {
		telemetry.Error("uploads.presign.failed", map[string]any{
			"err":         err.Error(),
			"bucket":      h.bucket,
			"key":         key,
			"contentType": req.ContentType,
			"sizeBytes":   req.SizeBytes,
			"request_id":  c.GetString("requestId"),
		})
		respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to generate upload url", nil)
		return
	}

	respond.OK(c, presignResponse{
		UploadURL:        out.URL,
		CVURL:            object.BuildURL(object.SchemeS3, h.bucket, key),
		ExpiresInSeconds: int64(presignExpires.Seconds()),
	})
}

func presignInput(bucket, key string) *s3.PutObjectInput {
	return &s3.PutObjectInput{
		Bucket: aws.String(bucket),
		Key:    aws.String(key),
	}
}
