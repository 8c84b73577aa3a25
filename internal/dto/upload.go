package dto

import (
	"github.com/google/uuid"

	"github.com/flightmgmt/flight-ops-api/internal/models"
)

// UploadAcceptedResponse acknowledges a queued schedule upload.
type UploadAcceptedResponse struct {
	BatchID  uuid.UUID           `json:"batchId"`
	FileName string              `json:"fileName"`
	Status   models.UploadStatus `json:"status"`
}

// BatchStatusResponse reports processing progress for one batch.
type BatchStatusResponse struct {
	models.UploadBatch
	ProgressPercentage int `json:"progressPercentage"`
}

// NewBatchStatusResponse wraps a batch with its derived progress.
func NewBatchStatusResponse(b models.UploadBatch) BatchStatusResponse {
	return BatchStatusResponse{UploadBatch: b, ProgressPercentage: b.ProgressPercentage()}
}

// ResolveConflictRequest records a manual resolution for one conflict.
type ResolveConflictRequest struct {
	Resolution string `json:"resolution" binding:"required,min=3"`
}

// UploadProgressEvent is published to subscribers while a batch processes.
type UploadProgressEvent struct {
	BatchID            uuid.UUID           `json:"batchId"`
	TotalRows          int                 `json:"totalRows"`
	ProcessedRows      int                 `json:"processedRows"`
	SuccessfulRows     int                 `json:"successfulRows"`
	FailedRows         int                 `json:"failedRows"`
	ConflictRows       int                 `json:"conflictRows"`
	Status             models.UploadStatus `json:"status"`
	ProgressPercentage int                 `json:"progressPercentage"`
}
