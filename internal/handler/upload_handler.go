package handler

import (
	"context"
	"io"
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flightmgmt/flight-ops-api/internal/dto"
	"github.com/flightmgmt/flight-ops-api/internal/models"
	appErrors "github.com/flightmgmt/flight-ops-api/pkg/errors"
	"github.com/flightmgmt/flight-ops-api/pkg/response"
)

type uploadService interface {
	Accept(ctx context.Context, fileName string, content []byte, uploadedBy string) (*models.UploadBatch, error)
	GetBatch(ctx context.Context, id uuid.UUID) (*models.UploadBatch, error)
	ListBatches(ctx context.Context, page models.PageRequest) ([]models.UploadBatch, int64, error)
	BatchConflicts(ctx context.Context, batchID uuid.UUID) ([]models.Conflict, error)
}

// UploadHandler exposes schedule upload and batch tracking endpoints.
type UploadHandler struct {
	uploads uploadService
}

// NewUploadHandler constructs handler.
func NewUploadHandler(uploads uploadService) *UploadHandler {
	return &UploadHandler{uploads: uploads}
}

// Upload godoc
// @Summary Upload flight schedule CSV
// @Tags Uploads
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "Schedule CSV"
// @Success 202 {object} response.Envelope
// @Router /uploads [post]
func (h *UploadHandler) Upload(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "file is required"))
		return
	}
	defer file.Close()

	if !strings.HasSuffix(strings.ToLower(header.Filename), ".csv") {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "only CSV uploads are supported"))
		return
	}

	content, err := io.ReadAll(file)
	if err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "unreadable upload"))
		return
	}

	uploadedBy := ""
	if claims := claimsFromContext(c); claims != nil {
		uploadedBy = claims.Username
	}

	batch, err := h.uploads.Accept(c.Request.Context(), header.Filename, content, uploadedBy)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.UploadAcceptedResponse{
		BatchID:  batch.ID,
		FileName: batch.FileName,
		Status:   batch.Status,
	})
}

// BatchStatus godoc
// @Summary Upload batch status
// @Tags Uploads
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /uploads/batches/{id} [get]
func (h *UploadHandler) BatchStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid batch id"))
		return
	}
	batch, err := h.uploads.GetBatch(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, dto.NewBatchStatusResponse(*batch))
}

// ListBatches godoc
// @Summary List upload batches
// @Tags Uploads
// @Produce json
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /uploads/batches [get]
func (h *UploadHandler) ListBatches(c *gin.Context) {
	page := pageFromQuery(c)
	batches, total, err := h.uploads.ListBatches(c.Request.Context(), page)
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]dto.BatchStatusResponse, 0, len(batches))
	for _, b := range batches {
		items = append(items, dto.NewBatchStatusResponse(b))
	}
	response.Paginated(c, items, paginationFor(page, total))
}

// BatchConflicts godoc
// @Summary Conflicts recorded for a batch
// @Tags Uploads
// @Produce json
// @Param id path string true "Batch ID"
// @Success 200 {object} response.Envelope
// @Router /uploads/batches/{id}/conflicts [get]
func (h *UploadHandler) BatchConflicts(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid batch id"))
		return
	}
	conflicts, err := h.uploads.BatchConflicts(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, conflicts)
}
