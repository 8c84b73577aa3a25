package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/flightmgmt/flight-ops-api/internal/dto"
	"github.com/flightmgmt/flight-ops-api/internal/models"
)

const flightColumns = `id, flight_number, airline_code, airline_name, aircraft_type, aircraft_name,
flight_date, departure_time, arrival_time, origin_icao, origin_name, dest_icao, dest_name,
flight_type, status, gate, terminal, actual_departure, actual_arrival, delay_minutes,
version, is_active, batch_id, created_at, updated_at`

// ErrStaleVersion is returned when a compare-and-swap update finds the row
// already changed by another writer.
var ErrStaleVersion = errors.New("flight version is stale")

// FlightRepository persists operational flights.
type FlightRepository struct {
	db *sqlx.DB
}

// NewFlightRepository constructs the repository.
func NewFlightRepository(db *sqlx.DB) *FlightRepository {
	return &FlightRepository{db: db}
}

// Create inserts a new flight row with generated defaults.
func (r *FlightRepository) Create(ctx context.Context, flight *models.Flight) error {
	if flight.ID == uuid.Nil {
		flight.ID = uuid.New()
	}
	if flight.Status == "" {
		flight.Status = models.FlightStatusScheduled
	}
	if flight.Version == 0 {
		flight.Version = 1
	}
	now := time.Now().UTC()
	if flight.CreatedAt.IsZero() {
		flight.CreatedAt = now
	}
	flight.UpdatedAt = now
	flight.IsActive = true

	const query = `INSERT INTO flights (` + flightColumns + `)
VALUES (:id, :flight_number, :airline_code, :airline_name, :aircraft_type, :aircraft_name,
:flight_date, :departure_time, :arrival_time, :origin_icao, :origin_name, :dest_icao, :dest_name,
:flight_type, :status, :gate, :terminal, :actual_departure, :actual_arrival, :delay_minutes,
:version, :is_active, :batch_id, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, flight); err != nil {
		return fmt.Errorf("create flight: %w", err)
	}
	return nil
}

// GetByID returns an active flight by its identifier.
func (r *FlightRepository) GetByID(ctx context.Context, id uuid.UUID) (*models.Flight, error) {
	const query = `SELECT ` + flightColumns + ` FROM flights WHERE id = $1 AND is_active = TRUE`
	var flight models.Flight
	if err := r.db.GetContext(ctx, &flight, query, id); err != nil {
		return nil, fmt.Errorf("get flight: %w", err)
	}
	return &flight, nil
}

// GetByNaturalKey looks up the active flight with the given number, airline
// and date. Returns sql.ErrNoRows when absent.
func (r *FlightRepository) GetByNaturalKey(ctx context.Context, key models.NaturalKey) (*models.Flight, error) {
	const query = `SELECT ` + flightColumns + ` FROM flights
WHERE flight_number = $1 AND airline_code = $2 AND flight_date = $3 AND is_active = TRUE`
	var flight models.Flight
	if err := r.db.GetContext(ctx, &flight, query, key.FlightNumber, key.AirlineCode, key.FlightDate); err != nil {
		return nil, fmt.Errorf("get flight by key: %w", err)
	}
	return &flight, nil
}

// FindByAircraftOnDate returns active flights using the given aircraft on a
// date, for double booking checks.
func (r *FlightRepository) FindByAircraftOnDate(ctx context.Context, aircraftType string, date time.Time) ([]models.Flight, error) {
	const query = `SELECT ` + flightColumns + ` FROM flights
WHERE aircraft_type = $1 AND flight_date = $2 AND is_active = TRUE AND status <> 'CANCELLED'
ORDER BY departure_time ASC`
	var flights []models.Flight
	if err := r.db.SelectContext(ctx, &flights, query, aircraftType, date); err != nil {
		return nil, fmt.Errorf("find flights by aircraft: %w", err)
	}
	return flights, nil
}

// FindByOriginOnDate returns active flights departing the given station on a
// date, for departure slot checks.
func (r *FlightRepository) FindByOriginOnDate(ctx context.Context, originICAO string, date time.Time) ([]models.Flight, error) {
	const query = `SELECT ` + flightColumns + ` FROM flights
WHERE origin_icao = $1 AND flight_date = $2 AND is_active = TRUE AND status <> 'CANCELLED'
ORDER BY departure_time ASC`
	var flights []models.Flight
	if err := r.db.SelectContext(ctx, &flights, query, originICAO, date); err != nil {
		return nil, fmt.Errorf("find flights by origin: %w", err)
	}
	return flights, nil
}

// List returns a filtered page of flights plus the total match count.
func (r *FlightRepository) List(ctx context.Context, filter dto.FlightFilter, page models.PageRequest) ([]models.Flight, int64, error) {
	where := []string{"is_active = TRUE"}
	args := make([]interface{}, 0, 8)
	argPos := 1

	add := func(cond string, value interface{}) {
		where = append(where, fmt.Sprintf(cond, argPos))
		args = append(args, value)
		argPos++
	}

	if filter.AirlineCode != "" {
		add("airline_code = $%d", filter.AirlineCode)
	}
	if filter.OriginICAO != "" {
		add("origin_icao = $%d", filter.OriginICAO)
	}
	if filter.DestICAO != "" {
		add("dest_icao = $%d", filter.DestICAO)
	}
	if filter.Status != "" {
		add("status = $%d", filter.Status)
	}
	if filter.DateFrom != nil {
		add("flight_date >= $%d", *filter.DateFrom)
	}
	if filter.DateTo != nil {
		add("flight_date <= $%d", *filter.DateTo)
	}

	clause := strings.Join(where, " AND ")

	var total int64
	countQuery := "SELECT COUNT(*) FROM flights WHERE " + clause
	if err := r.db.GetContext(ctx, &total, countQuery, args...); err != nil {
		return nil, 0, fmt.Errorf("count flights: %w", err)
	}

	query := fmt.Sprintf(`SELECT `+flightColumns+` FROM flights WHERE %s
ORDER BY flight_date ASC, departure_time ASC LIMIT $%d OFFSET $%d`, clause, argPos, argPos+1)
	args = append(args, page.PageSize, page.Offset())

	var flights []models.Flight
	if err := r.db.SelectContext(ctx, &flights, query, args...); err != nil {
		return nil, 0, fmt.Errorf("list flights: %w", err)
	}
	return flights, total, nil
}

// ListBetween returns active flights departing within the window, optionally
// restricted to one airline. Used by schedule exports.
func (r *FlightRepository) ListBetween(ctx context.Context, from, to time.Time, airlineCode string) ([]models.Flight, error) {
	query := `SELECT ` + flightColumns + ` FROM flights
WHERE flight_date >= $1 AND flight_date <= $2 AND is_active = TRUE`
	args := []interface{}{from, to}
	if airlineCode != "" {
		query += " AND airline_code = $3"
		args = append(args, airlineCode)
	}
	query += " ORDER BY flight_date ASC, departure_time ASC"

	var flights []models.Flight
	if err := r.db.SelectContext(ctx, &flights, query, args...); err != nil {
		return nil, fmt.Errorf("list flights between: %w", err)
	}
	return flights, nil
}

// UpdateWithVersion persists the flight using compare-and-swap on the version
// the caller read. Returns ErrStaleVersion when another writer won.
func (r *FlightRepository) UpdateWithVersion(ctx context.Context, flight *models.Flight, expectedVersion int) error {
	flight.UpdatedAt = time.Now().UTC()
	const query = `UPDATE flights SET
airline_name = $1, aircraft_type = $2, aircraft_name = $3,
departure_time = $4, arrival_time = $5,
origin_icao = $6, origin_name = $7, dest_icao = $8, dest_name = $9,
status = $10, gate = $11, terminal = $12,
actual_departure = $13, actual_arrival = $14, delay_minutes = $15,
version = $16, is_active = $17, updated_at = $18
WHERE id = $19 AND version = $20`
	res, err := r.db.ExecContext(ctx, query,
		flight.AirlineName, flight.AircraftType, flight.AircraftName,
		flight.Departure, flight.Arrival,
		flight.OriginICAO, flight.OriginName, flight.DestICAO, flight.DestName,
		flight.Status, flight.Gate, flight.Terminal,
		flight.ActualDeparture, flight.ActualArrival, flight.DelayMinutes,
		flight.Version, flight.IsActive, flight.UpdatedAt,
		flight.ID, expectedVersion,
	)
	if err != nil {
		return fmt.Errorf("update flight: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update flight rows affected: %w", err)
	}
	if affected == 0 {
		return ErrStaleVersion
	}
	return nil
}

// Deactivate soft deletes a flight.
func (r *FlightRepository) Deactivate(ctx context.Context, id uuid.UUID) error {
	const query = `UPDATE flights SET is_active = FALSE, updated_at = $1 WHERE id = $2`
	res, err := r.db.ExecContext(ctx, query, time.Now().UTC(), id)
	if err != nil {
		return fmt.Errorf("deactivate flight: %w", err)
	}
	affected, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("deactivate flight rows affected: %w", err)
	}
	if affected == 0 {
		return sql.ErrNoRows
	}
	return nil
}

// CountByStatusOnDate aggregates flight counts per status for a date.
func (r *FlightRepository) CountByStatusOnDate(ctx context.Context, date time.Time) (map[string]int, error) {
	const query = `SELECT status, COUNT(*) AS total FROM flights
WHERE flight_date = $1 AND is_active = TRUE GROUP BY status`
	rows := []struct {
		Status string `db:"status"`
		Total  int    `db:"total"`
	}{}
	if err := r.db.SelectContext(ctx, &rows, query, date); err != nil {
		return nil, fmt.Errorf("count flights by status: %w", err)
	}
	counts := make(map[string]int, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}
	return counts, nil
}

// AverageDelayOnDate returns the mean delay of operated flights for a date.
func (r *FlightRepository) AverageDelayOnDate(ctx context.Context, date time.Time) (float64, error) {
	const query = `SELECT COALESCE(AVG(delay_minutes), 0) FROM flights
WHERE flight_date = $1 AND is_active = TRUE AND status IN ('DEPARTED', 'ARRIVED', 'DELAYED')`
	var avg float64
	if err := r.db.GetContext(ctx, &avg, query, date); err != nil {
		return 0, fmt.Errorf("average delay: %w", err)
	}
	return avg, nil
}
