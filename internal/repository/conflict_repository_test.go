package repository

import (
	"context"
	"regexp"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"
	"github.com/stretchr/testify/require"

	"github.com/flightmgmt/flight-ops-api/internal/models"
)

func newConflictRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func TestConflictRepositoryCreateAssignsSeverity(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO flight_conflicts")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	conflict := &models.Conflict{
		Type:         models.ConflictFlightNumberDuplicate,
		Description:  "duplicate flight number",
		FlightNumber: "GA123",
		FlightDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
	}
	require.NoError(t, repo.Create(context.Background(), conflict))
	require.Equal(t, models.SeverityCritical, conflict.Severity)
	require.NotEqual(t, uuid.Nil, conflict.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryResolve(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE flight_conflicts SET resolved = TRUE")).
		WithArgs("keep the later departure", "ops-1", sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.Resolve(context.Background(), id, "keep the later departure", "ops-1"))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryResolveAlreadyResolved(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	id := uuid.New()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE flight_conflicts SET resolved = TRUE")).
		WithArgs("note", "ops-1", sqlmock.AnyArg(), id).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Resolve(context.Background(), id, "note", "ops-1")
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestConflictRepositoryCountUnresolvedByBatch(t *testing.T) {
	db, mock, cleanup := newConflictRepoMock(t)
	defer cleanup()
	repo := NewConflictRepository(db)

	batchID := uuid.New()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM flight_conflicts WHERE batch_id = $1 AND resolved = FALSE")).
		WithArgs(batchID).
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))

	total, err := repo.CountUnresolvedByBatch(context.Background(), batchID)
	require.NoError(t, err)
	require.Equal(t, 3, total)
	require.NoError(t, mock.ExpectationsWereMet())
}
