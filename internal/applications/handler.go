package applications

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/gin-gonic/gin"

	"recruit-backend/internal/documents"
	"recruit-backend/internal/extract"
	"recruit-backend/internal/scoring"
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

// RegisterRoutes attaches read and admin routes to rg.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.GET("/applications", h.list)
	rg.GET("/applications/:id", h.get)
	rg.DELETE("/applications/:id", h.delete)
	rg.PATCH("/applications/bookmark", h.patch)
	rg.PATCH("/applications/:id/bookmark", h.toggleBookmark)
	rg.PATCH("/applications/:id/status", h.setStatus)
}

// RegisterPipelineRoutes attaches the routes that call the oracle. They are
// kept separate so the router can put them behind a stricter rate limit.
func (h *Handler) RegisterPipelineRoutes(rg *gin.RouterGroup) {
	rg.POST("/applications", h.submit)
	rg.POST("/applications/recalculate", h.recomputeAll)
	rg.POST("/applications/:id/recalculate", h.recompute)
}

func requestContext(c *gin.Context) context.Context {
	return WithRequestID(c.Request.Context(), c.GetString("requestId"))
}

type submitRequest struct {
	JobID  string `json:"jobId" form:"jobId"`
	CVURL  string `json:"cvUrl" form:"cvUrl"`
	CVText string `json:"cvText" form:"cvText"`
}

func (h *Handler) submit(c *gin.Context) {
	var req submitRequest
	if err := c.ShouldBind(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	c.Set("jobId", strings.TrimSpace(req.JobID))

	app, err := h.Svc.Submit(requestContext(c), SubmitInput{JobID: req.JobID, CVURL: req.CVURL, CVText: req.CVText})
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("applicationId", app.ID)
	respond.Created(c, app)
}

func (h *Handler) list(c *gin.Context) {
	f := ListFilter{
		Status: c.Query("status"),
		JobID:  c.Query("jobId"),
		Sort:   c.Query("sort"),
	}
	if v := c.Query("bookmarked"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			respond.Error(c, http.StatusBadRequest, "validation_error", "bookmarked must be a boolean", nil)
			return
		}
		f.BookmarkedOnly = b
	}
	for _, p := range []struct {
		name string
		dst  *int
	}{{"limit", &f.Limit}, {"offset", &f.Offset}} {
		v := c.Query(p.name)
		if v == "" {
			continue
		}
		parsed, err := strconv.Atoi(v)
		if err != nil || parsed < 0 {
			respond.Error(c, http.StatusBadRequest, "validation_error", p.name+" must be a non-negative integer", nil)
			return
		}
		*p.dst = parsed
	}

	out, err := h.Svc.List(requestContext(c), f)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("applicationId", id)
	app, err := h.Svc.Get(requestContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("jobId", app.JobID)
	respond.OK(c, app)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set("applicationId", id)
	if err := h.Svc.Delete(requestContext(c), id); err != nil {
		writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) toggleBookmark(c *gin.Context) {
	id := c.Param("id")
	c.Set("applicationId", id)
	app, err := h.Svc.ToggleBookmark(requestContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, app)
}

type patchRequest struct {
	ID         string  `json:"id"`
	Status     *string `json:"status"`
	Bookmarked *bool   `json:"bookmarked"`
	Revision   int64   `json:"revision"`
}

func (h *Handler) patch(c *gin.Context) {
	var req patchRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	req.ID = strings.TrimSpace(req.ID)
	if req.ID == "" {
		respond.Error(c, http.StatusBadRequest, "validation_error", "id is required", nil)
		return
	}
	c.Set("applicationId", req.ID)
	h.applyPatch(c, req.ID, Patch{Status: req.Status, Bookmarked: req.Bookmarked}, req.Revision)
}

type statusRequest struct {
	Status   string `json:"status"`
	Revision int64  `json:"revision"`
}

func (h *Handler) setStatus(c *gin.Context) {
	id := c.Param("id")
	c.Set("applicationId", id)
	var req statusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	h.applyPatch(c, id, Patch{Status: &req.Status}, req.Revision)
}

func (h *Handler) applyPatch(c *gin.Context, id string, p Patch, revision int64) {
	ctx := requestContext(c)
	var before string
	if p.Status != nil {
		if current, err := h.Svc.Get(ctx, id); err == nil {
			before = current.Status
		}
	}
	app, err := h.Svc.Update(ctx, id, p, revision)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("jobId", app.JobID)
	if p.Status != nil && before != "" {
		c.Set("statusTransition", before+"->"+app.Status)
	}
	respond.OK(c, app)
}

func (h *Handler) recompute(c *gin.Context) {
	id := c.Param("id")
	c.Set("applicationId", id)
	app, err := h.Svc.Recompute(requestContext(c), id)
	if err != nil {
		writeError(c, err)
		return
	}
	c.Set("jobId", app.JobID)
	respond.OK(c, app)
}

func (h *Handler) recomputeAll(c *gin.Context) {
	ctx := requestContext(c)
	if async, _ := strconv.ParseBool(c.Query("async")); async {
		summary, err := h.Svc.EnqueueRecomputeAll(ctx)
		if err != nil {
			writeError(c, err)
			return
		}
		respond.Accepted(c, summary)
		return
	}
	summary, err := h.Svc.RecomputeAll(ctx)
	if err != nil {
		writeError(c, err)
		return
	}
	respond.OK(c, summary)
}

func writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput), errors.Is(err, documents.ErrInvalidInput), errors.Is(err, scoring.ErrInvalidTarget):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrJobNotFound):
		respond.Error(c, http.StatusNotFound, "job_not_found", "job not found", nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "application_not_found", "application not found", nil)
	case errors.Is(err, documents.ErrNotFound):
		respond.Error(c, http.StatusNotFound, "document_not_found", "document not found", nil)
	case errors.Is(err, ErrRevisionConflict):
		respond.Error(c, http.StatusConflict, "revision_conflict", err.Error(), nil)
	case errors.Is(err, documents.ErrTooLarge):
		respond.Error(c, http.StatusRequestEntityTooLarge, "validation_error", err.Error(), gin.H{"maxBytes": documents.MaxDocumentBytes})
	case errors.Is(err, extract.ErrUnsupportedType), errors.Is(err, documents.ErrUnsupportedType):
		respond.Error(c, http.StatusUnsupportedMediaType, "unsupported_document", "only PDF and DOCX files are accepted", nil)
	case errors.Is(err, extract.ErrExtractionFailed), errors.Is(err, ErrEmptyText):
		respond.Error(c, http.StatusUnprocessableEntity, "extraction_failed", "no text could be extracted from the document", nil)
	case errors.Is(err, scoring.ErrTimeout):
		respond.Error(c, http.StatusGatewayTimeout, "timeout", "scoring did not finish in time", nil)
	case errors.Is(err, scoring.ErrPipelineFailed), errors.Is(err, ErrPipelineNotConfigured):
		respond.Error(c, http.StatusBadGateway, "pipeline_failed", "scoring failed", gin.H{"reason": err.Error()})
	case errors.Is(err, ErrQueueNotConfigured):
		respond.Error(c, http.StatusServiceUnavailable, "queue_not_configured", err.Error(), nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "application operation failed", nil)
	}
}
