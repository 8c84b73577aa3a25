package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/flightmgmt/flight-ops-api/internal/models"
	appErrors "github.com/flightmgmt/flight-ops-api/pkg/errors"
	"github.com/flightmgmt/flight-ops-api/pkg/response"
)

type referenceInvalidator interface {
	Invalidate(ctx context.Context, kind models.ReferenceKind, id string) error
	InvalidateAll(ctx context.Context) error
}

// ReferenceHandler exposes administrative reference cache controls.
type ReferenceHandler struct {
	refdata referenceInvalidator
}

// NewReferenceHandler constructs handler.
func NewReferenceHandler(refdata referenceInvalidator) *ReferenceHandler {
	return &ReferenceHandler{refdata: refdata}
}

type invalidateCacheRequest struct {
	Kind string `json:"kind" binding:"omitempty,oneof=airline station aircraft"`
	ID   string `json:"id"`
}

// InvalidateCache godoc
// @Summary Invalidate reference data cache
// @Tags Admin
// @Accept json
// @Produce json
// @Param payload body invalidateCacheRequest false "Scope; empty body flushes everything"
// @Success 200 {object} response.Envelope
// @Router /admin/cache/invalidate [post]
func (h *ReferenceHandler) InvalidateCache(c *gin.Context) {
	var req invalidateCacheRequest
	if c.Request.ContentLength > 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
			return
		}
	}

	if req.Kind == "" {
		if err := h.refdata.InvalidateAll(c.Request.Context()); err != nil {
			response.Error(c, err)
			return
		}
		response.JSON(c, gin.H{"invalidated": "all"})
		return
	}

	if req.ID == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "id is required when kind is set"))
		return
	}
	if err := h.refdata.Invalidate(c.Request.Context(), models.ReferenceKind(req.Kind), req.ID); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, gin.H{"invalidated": req.Kind + ":" + req.ID})
}
