package repository

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/flightmgmt/flight-ops-api/internal/models"
)

const exportJobColumns = `id, requested_by, format, airline_code, from_date, to_date,
status, file_path, download_token, error_message, created_at, completed_at`

// ExportJobRepository persists schedule export job metadata.
type ExportJobRepository struct {
	db *sqlx.DB
}

// NewExportJobRepository constructs the repository.
func NewExportJobRepository(db *sqlx.DB) *ExportJobRepository {
	return &ExportJobRepository{db: db}
}

// Create inserts a new export job row.
func (r *ExportJobRepository) Create(ctx context.Context, job *models.ExportJob) error {
	if job.ID == uuid.Nil {
		job.ID = uuid.New()
	}
	if job.Status == "" {
		job.Status = models.ExportStatusPending
	}
	if job.CreatedAt.IsZero() {
		job.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO export_jobs (` + exportJobColumns + `)
VALUES (:id, :requested_by, :format, :airline_code, :from_date, :to_date,
:status, :file_path, :download_token, :error_message, :created_at, :completed_at)`
	if _, err := r.db.NamedExecContext(ctx, query, job); err != nil {
		return fmt.Errorf("create export job: %w", err)
	}
	return nil
}

// GetByID returns an export job by its identifier.
func (r *ExportJobRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.ExportJob, error) {
	const query = `SELECT ` + exportJobColumns + ` FROM export_jobs WHERE id = $1`
	var job models.ExportJob
	if err := r.db.GetContext(ctx, &job, query, id); err != nil {
		return nil, fmt.Errorf("get export job: %w", err)
	}
	return &job, nil
}

// UpdateExportJobParams defines the mutable fields.
type UpdateExportJobParams struct {
	Status        *models.ExportJobStatus
	FilePath      *string
	DownloadToken *string
	ErrorMessage  *string
	CompletedAt   *time.Time
}

// Update persists the provided changes for a job row.
func (r *ExportJobRepository) Update(ctx context.Context, id uuid.UUID, params UpdateExportJobParams) error {
	set := make([]string, 0, 5)
	args := make([]interface{}, 0, 6)
	argPos := 1

	if params.Status != nil {
		set = append(set, fmt.Sprintf("status = $%d", argPos))
		args = append(args, *params.Status)
		argPos++
	}
	if params.FilePath != nil {
		set = append(set, fmt.Sprintf("file_path = $%d", argPos))
		args = append(args, *params.FilePath)
		argPos++
	}
	if params.DownloadToken != nil {
		set = append(set, fmt.Sprintf("download_token = $%d", argPos))
		args = append(args, *params.DownloadToken)
		argPos++
	}
	if params.ErrorMessage != nil {
		set = append(set, fmt.Sprintf("error_message = $%d", argPos))
		args = append(args, *params.ErrorMessage)
		argPos++
	}
	if params.CompletedAt != nil {
		set = append(set, fmt.Sprintf("completed_at = $%d", argPos))
		args = append(args, *params.CompletedAt)
		argPos++
	}

	if len(set) == 0 {
		return nil
	}

	query := fmt.Sprintf("UPDATE export_jobs SET %s WHERE id = $%d", strings.Join(set, ", "), argPos)
	args = append(args, id)

	if _, err := r.db.ExecContext(ctx, query, args...); err != nil {
		return fmt.Errorf("update export job: %w", err)
	}
	return nil
}
