package dto

import (
	"github.com/google/uuid"

	"github.com/flightmgmt/flight-ops-api/internal/models"
)

// ExportRequest queues an asynchronous schedule export.
type ExportRequest struct {
	Format      string  `json:"format" binding:"required,oneof=csv pdf"`
	AirlineCode *string `json:"airlineCode" binding:"omitempty,len=2"`
	FromDate    string  `json:"fromDate" binding:"required,datetime=2006-01-02"`
	ToDate      string  `json:"toDate" binding:"required,datetime=2006-01-02"`
}

// ExportJobResponse reports the state of an export job, including the signed
// download URL once the artifact is ready.
type ExportJobResponse struct {
	models.ExportJob
	DownloadURL string `json:"downloadUrl,omitempty"`
}

// ExportQueuedResponse acknowledges an accepted export request.
type ExportQueuedResponse struct {
	JobID  uuid.UUID              `json:"jobId"`
	Status models.ExportJobStatus `json:"status"`
}
