package jobs

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

// RegisterRoutes attaches job routes to the router group.
func (h *Handler) RegisterRoutes(rg *gin.RouterGroup) {
	rg.POST("/jobs", h.create)
	rg.GET("/jobs", h.list)
	rg.GET("/jobs/:id", h.get)
	rg.PUT("/jobs/:id", h.update)
	rg.DELETE("/jobs/:id", h.delete)
}

func (h *Handler) create(c *gin.Context) {
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	job, err := h.Svc.Create(c.Request.Context(), in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	c.Set("jobId", job.ID)
	respond.Created(c, job)
}

func (h *Handler) list(c *gin.Context) {
	out, err := h.Svc.List(c.Request.Context())
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, out)
}

func (h *Handler) get(c *gin.Context) {
	id := c.Param("id")
	c.Set("jobId", id)
	job, err := h.Svc.Get(c.Request.Context(), id)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, job)
}

func (h *Handler) update(c *gin.Context) {
	id := c.Param("id")
	c.Set("jobId", id)
	var in Input
	if err := c.ShouldBindJSON(&in); err != nil {
		respond.Error(c, http.StatusBadRequest, "validation_error", "invalid request body", nil)
		return
	}
	job, err := h.Svc.Update(c.Request.Context(), id, in)
	if err != nil {
		h.writeError(c, err)
		return
	}
	respond.OK(c, job)
}

func (h *Handler) delete(c *gin.Context) {
	id := c.Param("id")
	c.Set("jobId", id)
	if err := h.Svc.Delete(c.Request.Context(), id); err != nil {
		h.writeError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}

func (h *Handler) writeError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ErrInvalidInput):
		respond.Error(c, http.StatusBadRequest, "validation_error", err.Error(), nil)
	case errors.Is(err, ErrNotFound):
		respond.Error(c, http.StatusNotFound, "job_not_found", "job not found", nil)
	default:
		respond.Error(c, http.StatusInternalServerError, "internal_error", "job operation failed", nil)
	}
}
