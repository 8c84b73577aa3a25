package handler

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flightmgmt/flight-ops-api/internal/dto"
	"github.com/flightmgmt/flight-ops-api/internal/models"
	appErrors "github.com/flightmgmt/flight-ops-api/pkg/errors"
	"github.com/flightmgmt/flight-ops-api/pkg/response"
)

type conflictReader interface {
	ListUnresolved(ctx context.Context, page models.PageRequest) ([]models.Conflict, int64, error)
	GetConflict(ctx context.Context, id uuid.UUID) (*models.Conflict, error)
}

type conflictResolver interface {
	ResolveConflict(ctx context.Context, conflictID uuid.UUID, resolution, resolvedBy string) error
}

// ConflictHandler exposes conflict review and resolution endpoints.
// Resolution goes through the upload service so a batch whose last open
// conflict is resolved transitions to COMPLETED.
type ConflictHandler struct {
	conflicts conflictReader
	uploads   conflictResolver
}

// NewConflictHandler constructs handler.
func NewConflictHandler(conflicts conflictReader, uploads conflictResolver) *ConflictHandler {
	return &ConflictHandler{conflicts: conflicts, uploads: uploads}
}

// List godoc
// @Summary List unresolved conflicts
// @Tags Conflicts
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /conflicts [get]
func (h *ConflictHandler) List(c *gin.Context) {
	page := pageFromQuery(c)
	conflicts, total, err := h.conflicts.ListUnresolved(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Paginated(c, conflicts, paginationFor(page, total))
}

// Get godoc
// @Summary Get conflict
// @Tags Conflicts
// @Produce json
// @Param id path string true "Conflict ID"
// @Success 200 {object} response.Envelope
// @Router /conflicts/{id} [get]
func (h *ConflictHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid conflict id"))
		return
	}
	conflict, err := h.conflicts.GetConflict(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, conflict)
}

// Resolve godoc
// @Summary Resolve conflict
// @Tags Conflicts
// @Accept json
// @Produce json
// @Param id path string true "Conflict ID"
// @Param payload body dto.ResolveConflictRequest true "Resolution note"
// @Success 200 {object} response.Envelope
// @Router /conflicts/{id}/resolve [post]
func (h *ConflictHandler) Resolve(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid conflict id"))
		return
	}
	var req dto.ResolveConflictRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	resolvedBy := ""
	if claims := claimsFromContext(c); claims != nil {
		resolvedBy = claims.Username
	}
	if err := h.uploads.ResolveConflict(c.Request.Context(), id, req.Resolution, resolvedBy); err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, gin.H{"resolved": true})
}
