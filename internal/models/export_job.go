package models

import (
	"time"

	"github.com/google/uuid"
)

// ExportFormat selects the rendered output of a schedule export.
type ExportFormat string

const (
	ExportFormatCSV ExportFormat = "csv"
	ExportFormatPDF ExportFormat = "pdf"
)

// ExportJobStatus tracks an asynchronous export request.
type ExportJobStatus string

const (
	ExportStatusPending   ExportJobStatus = "PENDING"
	ExportStatusRunning   ExportJobStatus = "RUNNING"
	ExportStatusCompleted ExportJobStatus = "COMPLETED"
	ExportStatusFailed    ExportJobStatus = "FAILED"
)

// ExportJob is a queued schedule export. FilePath and DownloadToken are set
// once rendering succeeds.
type ExportJob struct {
	ID            uuid.UUID       `db:"id" json:"id"`
	RequestedBy   string          `db:"requested_by" json:"requestedBy"`
	Format        ExportFormat    `db:"format" json:"format"`
	AirlineCode   *string         `db:"airline_code" json:"airlineCode,omitempty"`
	FromDate      time.Time       `db:"from_date" json:"fromDate"`
	ToDate        time.Time       `db:"to_date" json:"toDate"`
	Status        ExportJobStatus `db:"status" json:"status"`
	FilePath      *string         `db:"file_path" json:"-"`
	DownloadToken *string         `db:"download_token" json:"downloadToken,omitempty"`
	ErrorMessage  *string         `db:"error_message" json:"errorMessage,omitempty"`
	CreatedAt     time.Time       `db:"created_at" json:"createdAt"`
	CompletedAt   *time.Time      `db:"completed_at" json:"completedAt,omitempty"`
}
