package models

import (
	"time"

	"github.com/google/uuid"
)

// UploadStatus tracks the lifecycle of a schedule upload batch.
type UploadStatus string

const (
	UploadStatusUploaded   UploadStatus = "UPLOADED"
	UploadStatusProcessing UploadStatus = "PROCESSING"
	UploadStatusCompleted  UploadStatus = "COMPLETED"
	UploadStatusFailed     UploadStatus = "FAILED"
)

// UploadBatch records one uploaded schedule file and its processing outcome.
// A batch that finished row processing but still has unresolved conflicts
// remains PROCESSING until the last conflict is resolved.
type UploadBatch struct {
	ID             uuid.UUID    `db:"id" json:"id"`
	FileName       string       `db:"file_name" json:"fileName"`
	UploadedBy     string       `db:"uploaded_by" json:"uploadedBy"`
	Status         UploadStatus `db:"status" json:"status"`
	TotalRows      int          `db:"total_rows" json:"totalRows"`
	ProcessedRows  int          `db:"processed_rows" json:"processedRows"`
	SuccessfulRows int          `db:"successful_rows" json:"successfulRows"`
	FailedRows     int          `db:"failed_rows" json:"failedRows"`
	ConflictRows   int          `db:"conflict_rows" json:"conflictRows"`
	ErrorDetails   *string      `db:"error_details" json:"errorDetails,omitempty"`
	StartedAt      *time.Time   `db:"started_at" json:"startedAt,omitempty"`
	CompletedAt    *time.Time   `db:"completed_at" json:"completedAt,omitempty"`
	CreatedAt      time.Time    `db:"created_at" json:"createdAt"`
	UpdatedAt      time.Time    `db:"updated_at" json:"updatedAt"`
}

// ProgressPercentage returns row progress as a whole percentage, zero when
// the batch has no rows.
func (b *UploadBatch) ProgressPercentage() int {
	if b.TotalRows == 0 {
		return 0
	}
	return b.ProcessedRows * 100 / b.TotalRows
}
