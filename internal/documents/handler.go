package documents

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"recruit-backend/internal/shared/server/respond"
)

// Handler wires HTTP handlers to the service.
type Handler struct {
	Svc *Service
}

// NewHandler constructs a Handler.
func NewHandler(svc *Service) *Handler {
	return &Handler{Svc: svc}
}

// RegisterRoutes attaches document routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/documents", h.upload)
}

func (h *Handler) upload(c *gin.Context) {
	c.Request.Body = http.MaxBytesReader(c.Writer, c.Request.Body, MaxDocumentBytes+(1<<20))

	fileHeader, err := c.FormFile("file")
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "file is required", nil)
		return
	}
	if fileHeader.Size > MaxDocumentBytes {
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", ErrTooLarge.Error(), gin.H{"maxBytes": MaxDocumentBytes})
		return
	}

	file, err := fileHeader.Open()
	if err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "unable to read file", nil)
		return
	}
	defer file.Close()

	stored, err := h.Svc.Upload(c.Request.Context(), fileHeader.Filename, file)
	if err != nil {
		switch {
		case errors.Is(err, ErrInvalidInput):
			respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
		case errors.Is(err, ErrTooLarge):
			respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", err.Error(), gin.H{"maxBytes": MaxDocumentBytes})
		case errors.Is(err, ErrUnsupportedType):
			respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_document", "only PDF and DOCX files are accepted", nil)
		default:
			respond.Error(c, http.StatusInternalServerError, "internal_error", "failed to upload document", nil)
		}
		return
	}

	respond.Created(c, stored)
}
