package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/flightmgmt/flight-ops-api/internal/models"
)

const batchColumns = `id, file_name, uploaded_by, status, total_rows, processed_rows,
successful_rows, failed_rows, conflict_rows, error_details, started_at, completed_at,
created_at, updated_at`

// BatchRepository persists upload batch metadata.
type BatchRepository struct {
	db *sqlx.DB
}

// NewBatchRepository constructs the repository.
func NewBatchRepository(db *sqlx.DB) *BatchRepository {
	return &BatchRepository{db: db}
}

// Create inserts a new batch row with generated defaults.
func (r *BatchRepository) Create(ctx context.Context, batch *models.UploadBatch) error {
	if batch.ID == uuid.Nil {
		batch.ID = uuid.New()
	}
	if batch.Status == "" {
		batch.Status = models.UploadStatusUploaded
	}
	now := time.Now().UTC()
	if batch.CreatedAt.IsZero() {
		batch.CreatedAt = now
	}
	batch.UpdatedAt = now

	const query = `INSERT INTO upload_batches (` + batchColumns + `)
VALUES (:id, :file_name, :uploaded_by, :status, :total_rows, :processed_rows,
:successful_rows, :failed_rows, :conflict_rows, :error_details, :started_at, :completed_at,
:created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("create upload batch: %w", err)
	}
	return nil
}

// GetByID returns a batch row by its identifier.
func (r *BatchRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.UploadBatch, error) {
	const query = `SELECT ` + batchColumns + ` FROM upload_batches WHERE id = $1`
	var batch models.UploadBatch
	if err := r.db.GetContext(ctx, &batch, query, id); err != nil {
		return nil, fmt.Errorf("get upload batch: %w", err)
	}
	return &batch, nil
}

// Update persists the batch's mutable processing fields.
func (r *BatchRepository) Update(ctx context.Context, batch *models.UploadBatch) error {
	batch.UpdatedAt = time.Now().UTC()
	const query = `UPDATE upload_batches SET
status = :status, total_rows = :total_rows, processed_rows = :processed_rows,
successful_rows = :successful_rows, failed_rows = :failed_rows, conflict_rows = :conflict_rows,
error_details = :error_details, started_at = :started_at, completed_at = :completed_at,
updated_at = :updated_at
WHERE id = :id`
	if _, err := r.db.NamedExecContext(ctx, query, batch); err != nil {
		return fmt.Errorf("update upload batch: %w", err)
	}
	return nil
}

// List returns batches newest first.
func (r *BatchRepository) List(ctx context.Context, page models.PageRequest) ([]models.UploadBatch, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM upload_batches`); err != nil {
		return nil, 0, fmt.Errorf("count upload batches: %w", err)
	}

	const query = `SELECT ` + batchColumns + ` FROM upload_batches
ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	var batches []models.UploadBatch
	if err := r.db.SelectContext(ctx, &batches, query, page.PageSize, page.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list upload batches: %w", err)
	}
	return batches, total, nil
}

// CountByStatus returns the number of batches in the given status.
func (r *BatchRepository) CountByStatus(ctx context.Context, status models.UploadStatus) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM upload_batches WHERE status = $1`
	if err := r.db.GetContext(ctx, &total, query, status); err != nil {
		return 0, fmt.Errorf("count batches by status: %w", err)
	}
	return total, nil
}
