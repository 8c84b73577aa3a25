package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/flightmgmt/flight-ops-api/internal/models"
)

const conflictColumns = `id, batch_id, row_number, flight_id, existing_flight_id, conflict_type, severity,
description, flight_number, flight_date, candidate_data, resolved, resolution, resolved_by, resolved_at, created_at`

// ConflictRepository persists detected scheduling conflicts.
type ConflictRepository struct {
	db *sqlx.DB
}

// NewConflictRepository constructs the repository.
func NewConflictRepository(db *sqlx.DB) *ConflictRepository {
	return &ConflictRepository{db: db}
}

// Create inserts a conflict row.
func (r *ConflictRepository) Create(ctx context.Context, conflict *models.Conflict) error {
	if conflict.ID == uuid.Nil {
		conflict.ID = uuid.New()
	}
	if conflict.Severity == "" {
		conflict.Severity = models.SeverityFor(conflict.Type)
	}
	if conflict.CreatedAt.IsZero() {
		conflict.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO flight_conflicts (` + conflictColumns + `)
VALUES (:id, :batch_id, :row_number, :flight_id, :existing_flight_id, :conflict_type, :severity,
:description, :flight_number, :flight_date, :candidate_data, :resolved, :resolution, :resolved_by, :resolved_at, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, conflict); err != nil {
		return fmt.Errorf("create conflict: %w", err)
	}
	return nil
}

// GetByID returns a conflict row by its identifier.
func (r *ConflictRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Conflict, error) {
	const query = `SELECT ` + conflictColumns + ` FROM flight_conflicts WHERE id = $1`
	var conflict models.Conflict
	if err := r.db.GetContext(ctx, &conflict, query, id); err != nil {
		return nil, fmt.Errorf("get conflict: %w", err)
	}
	return &conflict, nil
}

// ListByBatch returns the conflicts recorded for one batch, unresolved first.
func (r *ConflictRepository) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Conflict, error) {
	const query = `SELECT ` + conflictColumns + ` FROM flight_conflicts
WHERE batch_id = $1 ORDER BY resolved ASC, created_at ASC`
	var conflicts []models.Conflict
	if err := r.db.SelectContext(ctx, &conflicts, query, batchID); err != nil {
		return nil, fmt.Errorf("list conflicts by batch: %w", err)
	}
	return conflicts, nil
}

// ListUnresolved returns open conflicts newest first.
func (r *ConflictRepository) ListUnresolved(ctx context.Context, page models.PageRequest) ([]models.Conflict, int64, error) {
	var total int64
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM flight_conflicts WHERE resolved = FALSE`); err != nil {
		return nil, 0, fmt.Errorf("count unresolved conflicts: %w", err)
	}

	const query = `SELECT ` + conflictColumns + ` FROM flight_conflicts
WHERE resolved = FALSE ORDER BY created_at DESC LIMIT $1 OFFSET $2`
	var conflicts []models.Conflict
	if err := r.db.SelectContext(ctx, &conflicts, query, page.PageSize, page.Offset()); err != nil {
		return nil, 0, fmt.Errorf("list unresolved conflicts: %w", err)
	}
	return conflicts, total, nil
}

// Resolve marks a conflict resolved with the caller's note.
func (r *ConflictRepository) Resolve(ctx context.Context, id uuid.UUID, resolution, resolvedBy string) error {
	const query = `UPDATE flight_conflicts SET resolved = TRUE, resolution = $1, resolved_by = $2, resolved_at = $3
WHERE id = $4 AND resolved = FALSE`
	res, err := r.db.ExecContext(ctx, query, resolution, resolvedBy, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("resolve conflict: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("resolve conflict rows affected: %w", err)
	}
	if affected == 0 {
		return fmt.Errorf("conflict %s is already resolved or missing", id)
	}
	return nil
}

// CountUnresolvedByBatch returns the number of open conflicts for a batch.
func (r *ConflictRepository) CountUnresolvedByBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	var total int
	const query = `SELECT COUNT(*) FROM flight_conflicts WHERE batch_id = $1 AND resolved = FALSE`
	if err := r.db.GetContext(ctx, &total, query, batchID); err != nil {
		return 0, fmt.Errorf("count unresolved conflicts by batch: %w", err)
	}
	return total, nil
}

// CountUnresolved returns the total number of open conflicts.
func (r *ConflictRepository) CountUnresolved(ctx context.Context) (int, error) {
	var total int
	if err := r.db.GetContext(ctx, &total, `SELECT COUNT(*) FROM flight_conflicts WHERE resolved = FALSE`); err != nil {
		return 0, fmt.Errorf("count unresolved conflicts: %w", err)
	}
	return total, nil
}
