package handler

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path"
	"strings"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flightmgmt/flight-ops-api/internal/dto"
	"github.com/flightmgmt/flight-ops-api/internal/models"
	appErrors "github.com/flightmgmt/flight-ops-api/pkg/errors"
	"github.com/flightmgmt/flight-ops-api/pkg/response"
	"github.com/flightmgmt/flight-ops-api/pkg/storage"
)

type exportService interface {
	Queue(ctx context.Context, req dto.ExportRequest, claims *models.JWTClaims) (*models.ExportJob, error)
	Get(ctx context.Context, id uuid.UUID) (*models.ExportJob, error)
}

type downloadVerifier interface {
	Verify(token string) (jobID, relPath string, err error)
}

type artifactOpener interface {
	Open(relPath string) (io.ReadCloser, error)
}

// ExportHandler exposes schedule export queueing, status and download.
type ExportHandler struct {
	exports exportService
	signer  downloadVerifier
	files   artifactOpener
}

// NewExportHandler constructs handler.
func NewExportHandler(exports exportService, signer downloadVerifier, files artifactOpener) *ExportHandler {
	return &ExportHandler{exports: exports, signer: signer, files: files}
}

// Create godoc
// @Summary Queue schedule export
// @Tags Exports
// @Accept json
// @Produce json
// @Param payload body dto.ExportRequest true "Export payload"
// @Success 202 {object} response.Envelope
// @Router /flights/export [post]
func (h *ExportHandler) Create(c *gin.Context) {
	var req dto.ExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	job, err := h.exports.Queue(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Accepted(c, dto.ExportQueuedResponse{JobID: job.ID, Status: job.Status})
}

// Status godoc
// @Summary Export job status
// @Tags Exports
// @Produce json
// @Param id path string true "Export job ID"
// @Success 200 {object} response.Envelope
// @Router /flights/export/{id}/status [get]
func (h *ExportHandler) Status(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid export job id"))
		return
	}
	job, err := h.exports.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}

	resp := dto.ExportJobResponse{ExportJob: *job}
	if job.DownloadToken != nil {
		resp.DownloadURL = "/api/v1/exports/" + *job.DownloadToken
	}
	response.JSON(c, resp)
}

// Download godoc
// @Summary Download rendered export
// @Tags Exports
// @Produce octet-stream
// @Param token path string true "Signed download token"
// @Success 200
// @Router /exports/{token} [get]
func (h *ExportHandler) Download(c *gin.Context) {
	jobID, relPath, err := h.signer.Verify(c.Param("token"))
	if err != nil {
		if errors.Is(err, storage.ErrTokenExpired) {
			response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "download link has expired"))
			return
		}
		response.Error(c, appErrors.Clone(appErrors.ErrForbidden, "invalid download link"))
		return
	}

	file, err := h.files.Open(relPath)
	if err != nil {
		response.Error(c, appErrors.ErrNotFound)
		return
	}
	defer file.Close()

	filename := fmt.Sprintf("schedule-%s%s", jobID, path.Ext(relPath))
	contentType := "text/csv"
	if strings.HasSuffix(relPath, ".pdf") {
		contentType = "application/pdf"
	}
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Header("Content-Type", contentType)
	c.Status(http.StatusOK)
	_, _ = io.Copy(c.Writer, file)
}
