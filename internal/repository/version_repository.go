package repository

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/flightmgmt/flight-ops-api/internal/models"
)

const versionColumns = `id, flight_id, version, change_type, changed_by, summary, changed_fields,
before_snapshot, after_snapshot, created_at`

// VersionRepository persists flight change history.
type VersionRepository struct {
	db *sqlx.DB
}

// NewVersionRepository constructs the repository.
func NewVersionRepository(db *sqlx.DB) *VersionRepository {
	return &VersionRepository{db: db}
}

// Create appends an audit entry for a flight.
func (r *VersionRepository) Create(ctx context.Context, entry *models.FlightVersion) error {
	if entry.ID == uuid.Nil {
		entry.ID = uuid.New()
	}
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = time.Now().UTC()
	}

	const query = `INSERT INTO flight_versions (` + versionColumns + `)
VALUES (:id, :flight_id, :version, :change_type, :changed_by, :summary, :changed_fields,
:before_snapshot, :after_snapshot, :created_at)`
	if _, err := r.db.NamedExecContext(ctx, query, entry); err != nil {
		return fmt.Errorf("create flight version: %w", err)
	}
	return nil
}

// ListByFlight returns a flight's history, newest entry first.
func (r *VersionRepository) ListByFlight(ctx context.Context, flightID uuid.UUID) ([]models.FlightVersion, error) {
	const query = `SELECT ` + versionColumns + ` FROM flight_versions
WHERE flight_id = $1 ORDER BY created_at DESC`
	var entries []models.FlightVersion
	if err := r.db.SelectContext(ctx, &entries, query, flightID); err != nil {
		return nil, fmt.Errorf("list flight versions: %w", err)
	}
	return entries, nil
}
