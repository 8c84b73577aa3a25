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

	"github.com/flightmgmt/flight-ops-api/internal/dto"
	"github.com/flightmgmt/flight-ops-api/internal/models"
)

func newFlightRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func flightRows(flights ...models.Flight) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{
		"id", "flight_number", "airline_code", "airline_name", "aircraft_type", "aircraft_name",
		"flight_date", "departure_time", "arrival_time", "origin_icao", "origin_name", "dest_icao", "dest_name",
		"flight_type", "status", "gate", "terminal", "actual_departure", "actual_arrival", "delay_minutes",
		"version", "is_active", "batch_id", "created_at", "updated_at",
	})
	for _, f := range flights {
		rows.AddRow(f.ID, f.FlightNumber, f.AirlineCode, f.AirlineName, f.AircraftType, f.AircraftName,
			f.FlightDate, f.Departure, f.Arrival, f.OriginICAO, f.OriginName, f.DestICAO, f.DestName,
			f.FlightType, f.Status, f.Gate, f.Terminal, f.ActualDeparture, f.ActualArrival, f.DelayMinutes,
			f.Version, f.IsActive, f.BatchID, f.CreatedAt, f.UpdatedAt)
	}
	return rows
}

func sampleFlight() models.Flight {
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return models.Flight{
		ID:           uuid.New(),
		FlightNumber: "GA123",
		AirlineCode:  "GA",
		AirlineName:  "Garuda Indonesia",
		AircraftType: "B738",
		AircraftName: "Boeing 737-800",
		FlightDate:   date,
		Departure:    date.Add(8 * time.Hour),
		Arrival:      date.Add(10 * time.Hour),
		OriginICAO:   "WIII",
		OriginName:   "Soekarno-Hatta",
		DestICAO:     "WADD",
		DestName:     "Ngurah Rai",
		FlightType:   models.FlightTypePassenger,
		Status:       models.FlightStatusScheduled,
		Version:      1,
		IsActive:     true,
		CreatedAt:    time.Now().UTC(),
		UpdatedAt:    time.Now().UTC(),
	}
}

func TestFlightRepositoryCreateDefaults(t *testing.T) {
	db, mock, cleanup := newFlightRepoMock(t)
	defer cleanup()
	repo := NewFlightRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO flights")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	flight := sampleFlight()
	flight.ID = uuid.Nil
	flight.Version = 0
	flight.Status = ""

	require.NoError(t, repo.Create(context.Background(), &flight))
	require.NotEqual(t, uuid.Nil, flight.ID)
	require.Equal(t, 1, flight.Version)
	require.Equal(t, models.FlightStatusScheduled, flight.Status)
	require.True(t, flight.IsActive)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlightRepositoryGetByNaturalKey(t *testing.T) {
	db, mock, cleanup := newFlightRepoMock(t)
	defer cleanup()
	repo := NewFlightRepository(db)

	flight := sampleFlight()
	mock.ExpectQuery("SELECT (.+) FROM flights").
		WithArgs(flight.FlightNumber, flight.AirlineCode, flight.FlightDate).
		WillReturnRows(flightRows(flight))

	fetched, err := repo.GetByNaturalKey(context.Background(), flight.Key())
	require.NoError(t, err)
	require.Equal(t, flight.ID, fetched.ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlightRepositoryUpdateWithVersionStale(t *testing.T) {
	db, mock, cleanup := newFlightRepoMock(t)
	defer cleanup()
	repo := NewFlightRepository(db)

	flight := sampleFlight()
	mock.ExpectExec(regexp.QuoteMeta("UPDATE flights SET")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.UpdateWithVersion(context.Background(), &flight, 1)
	require.ErrorIs(t, err, ErrStaleVersion)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlightRepositoryUpdateWithVersionOK(t *testing.T) {
	db, mock, cleanup := newFlightRepoMock(t)
	defer cleanup()
	repo := NewFlightRepository(db)

	flight := sampleFlight()
	flight.Version = 2
	mock.ExpectExec(regexp.QuoteMeta("UPDATE flights SET")).
		WillReturnResult(sqlmock.NewResult(0, 1))

	require.NoError(t, repo.UpdateWithVersion(context.Background(), &flight, 1))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlightRepositoryListWithFilters(t *testing.T) {
	db, mock, cleanup := newFlightRepoMock(t)
	defer cleanup()
	repo := NewFlightRepository(db)

	flight := sampleFlight()
	mock.ExpectQuery(regexp.QuoteMeta("SELECT COUNT(*) FROM flights WHERE is_active = TRUE AND airline_code = $1 AND status = $2")).
		WithArgs("GA", "SCHEDULED").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(1))
	mock.ExpectQuery("SELECT (.+) FROM flights WHERE is_active = TRUE AND airline_code").
		WithArgs("GA", "SCHEDULED", 20, 0).
		WillReturnRows(flightRows(flight))

	flights, total, err := repo.List(context.Background(),
		dto.FlightFilter{AirlineCode: "GA", Status: "SCHEDULED"},
		models.PageRequest{Page: 1, PageSize: 20})
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Len(t, flights, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlightRepositoryFindByAircraftOnDate(t *testing.T) {
	db, mock, cleanup := newFlightRepoMock(t)
	defer cleanup()
	repo := NewFlightRepository(db)

	flight := sampleFlight()
	mock.ExpectQuery("SELECT (.+) FROM flights").
		WithArgs("B738", flight.FlightDate).
		WillReturnRows(flightRows(flight))

	flights, err := repo.FindByAircraftOnDate(context.Background(), "B738", flight.FlightDate)
	require.NoError(t, err)
	require.Len(t, flights, 1)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlightRepositoryDeactivateMissing(t *testing.T) {
	db, mock, cleanup := newFlightRepoMock(t)
	defer cleanup()
	repo := NewFlightRepository(db)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE flights SET is_active = FALSE")).
		WillReturnResult(sqlmock.NewResult(0, 0))

	err := repo.Deactivate(context.Background(), uuid.New())
	require.Error(t, err)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestFlightRepositoryCountByStatusOnDate(t *testing.T) {
	db, mock, cleanup := newFlightRepoMock(t)
	defer cleanup()
	repo := NewFlightRepository(db)

	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	rows := sqlmock.NewRows([]string{"status", "total"}).
		AddRow("SCHEDULED", 12).
		AddRow("CANCELLED", 2)
	mock.ExpectQuery("SELECT status, COUNT").
		WithArgs(date).
		WillReturnRows(rows)

	counts, err := repo.CountByStatusOnDate(context.Background(), date)
	require.NoError(t, err)
	require.Equal(t, 12, counts["SCHEDULED"])
	require.Equal(t, 2, counts["CANCELLED"])
	require.NoError(t, mock.ExpectationsWereMet())
}
