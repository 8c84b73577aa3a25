package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flightmgmt/flight-ops-api/internal/dto"
	"github.com/flightmgmt/flight-ops-api/internal/models"
	"github.com/flightmgmt/flight-ops-api/internal/repository"
	appErrors "github.com/flightmgmt/flight-ops-api/pkg/errors"
)

type memoryFlightStore struct {
	flights  map[uuid.UUID]*models.Flight
	stale    bool
	avgDelay float64
}

func newMemoryFlightStore() *memoryFlightStore {
	return &memoryFlightStore{flights: map[uuid.UUID]*models.Flight{}}
}

func (s *memoryFlightStore) Create(ctx context.Context, flight *models.Flight) error {
	if flight.ID == uuid.Nil {
		flight.ID = uuid.New()
	}
	if flight.Version == 0 {
		flight.Version = 1
	}
	flight.IsActive = true
	copied := *flight
	s.flights[flight.ID] = &copied
	return nil
}

func (s *memoryFlightStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Flight, error) {
	flight, ok := s.flights[id]
	if !ok || !flight.IsActive {
		return nil, sql.ErrNoRows
	}
	copied := *flight
	return &copied, nil
}

func (s *memoryFlightStore) List(ctx context.Context, filter dto.FlightFilter, page models.PageRequest) ([]models.Flight, int64, error) {
	var out []models.Flight
	for _, f := range s.flights {
		if !f.IsActive {
			continue
		}
		if filter.AirlineCode != "" && f.AirlineCode != filter.AirlineCode {
			continue
		}
		out = append(out, *f)
	}
	return out, int64(len(out)), nil
}

func (s *memoryFlightStore) UpdateWithVersion(ctx context.Context, flight *models.Flight, expectedVersion int) error {
	if s.stale {
		return repository.ErrStaleVersion
	}
	current, ok := s.flights[flight.ID]
	if !ok || current.Version != expectedVersion {
		return repository.ErrStaleVersion
	}
	copied := *flight
	s.flights[flight.ID] = &copied
	return nil
}

func (s *memoryFlightStore) Deactivate(ctx context.Context, id uuid.UUID) error {
	flight, ok := s.flights[id]
	if !ok {
		return sql.ErrNoRows
	}
	flight.IsActive = false
	return nil
}

func (s *memoryFlightStore) CountByStatusOnDate(ctx context.Context, date time.Time) (map[string]int, error) {
	counts := map[string]int{}
	for _, f := range s.flights {
		if f.IsActive {
			counts[string(f.Status)]++
		}
	}
	return counts, nil
}

func (s *memoryFlightStore) AverageDelayOnDate(ctx context.Context, date time.Time) (float64, error) {
	return s.avgDelay, nil
}

type stubDetector struct {
	conflicts  []models.Conflict
	unresolved int
}

func (s *stubDetector) Detect(ctx context.Context, candidate *models.Flight) ([]models.Conflict, error) {
	return s.conflicts, nil
}

func (s *stubDetector) Record(ctx context.Context, conflicts []models.Conflict) error {
	return nil
}

func (s *stubDetector) CountUnresolved(ctx context.Context) (int, error) {
	return s.unresolved, nil
}

type flightFixture struct {
	service  *FlightService
	flights  *memoryFlightStore
	detector *stubDetector
	history  *stubVersionStore
	events   *capturingPublisher
	batches  *memoryBatchStore
}

func newFlightFixture(t *testing.T) *flightFixture {
	t.Helper()
	f := &flightFixture{
		flights:  newMemoryFlightStore(),
		detector: &stubDetector{},
		history:  &stubVersionStore{},
		events:   &capturingPublisher{},
		batches:  newMemoryBatchStore(),
	}
	f.service = NewFlightService(f.flights, f.detector,
		NewVersionService(f.history, nil),
		stubResolver{}, f.events, f.batches, nil)
	return f
}

func adminClaims() *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-1", Username: "admin", Role: models.RoleAdmin}
}

func airlineClaims(code string) *models.JWTClaims {
	return &models.JWTClaims{UserID: "u-2", Username: "airline-ops", Role: models.RoleAirlineOps, AirlineCode: code}
}

func createReq() dto.CreateFlightRequest {
	return dto.CreateFlightRequest{
		FlightNumber: "GA100",
		AirlineCode:  "GA",
		AircraftType: "B738",
		FlightDate:   "2026-09-01",
		Departure:    "08:00",
		Arrival:      "10:00",
		OriginICAO:   "WIII",
		DestICAO:     "WADD",
		FlightType:   "PASSENGER",
	}
}

func TestCreateFlightEnrichesAndVersions(t *testing.T) {
	f := newFlightFixture(t)

	flight, conflicts, err := f.service.Create(context.Background(), createReq(), adminClaims())
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Equal(t, 1, flight.Version)
	require.Equal(t, "Airline GA", flight.AirlineName)
	require.Equal(t, "Station WIII", flight.OriginName)
	require.Len(t, f.history.entries, 1)
	require.Equal(t, models.ChangeCreated, f.history.entries[0].ChangeType)
	require.Len(t, f.events.events, 1)
	require.Equal(t, dto.EventFlightCreated, f.events.events[0].EventType)
}

func TestCreateFlightBlockedByConflicts(t *testing.T) {
	f := newFlightFixture(t)
	f.detector.conflicts = []models.Conflict{{Type: models.ConflictSlotConflict}}

	_, conflicts, err := f.service.Create(context.Background(), createReq(), adminClaims())
	require.ErrorIs(t, err, appErrors.ErrFlightConflict)
	require.Len(t, conflicts, 1)
	require.Empty(t, f.flights.flights)
}

func TestCreateFlightAirlineScopeEnforced(t *testing.T) {
	f := newFlightFixture(t)

	_, _, err := f.service.Create(context.Background(), createReq(), airlineClaims("JT"))
	require.ErrorIs(t, err, appErrors.ErrForbidden)
}

func TestUpdateMajorChangeBumpsVersion(t *testing.T) {
	f := newFlightFixture(t)
	flight, _, err := f.service.Create(context.Background(), createReq(), adminClaims())
	require.NoError(t, err)

	aircraft := "A333"
	updated, conflicts, err := f.service.Update(context.Background(), flight.ID,
		dto.UpdateFlightRequest{AircraftType: &aircraft, Version: 1}, adminClaims())
	require.NoError(t, err)
	require.Empty(t, conflicts)
	require.Equal(t, 2, updated.Version)
	require.Equal(t, models.ChangeAircraft, f.history.entries[1].ChangeType)
}

func TestUpdateMinorChangeKeepsVersion(t *testing.T) {
	f := newFlightFixture(t)
	flight, _, err := f.service.Create(context.Background(), createReq(), adminClaims())
	require.NoError(t, err)

	dep := "08:20"
	arr := "10:20"
	updated, _, err := f.service.Update(context.Background(), flight.ID,
		dto.UpdateFlightRequest{Departure: &dep, Arrival: &arr, Version: 1}, adminClaims())
	require.NoError(t, err)
	require.Equal(t, 1, updated.Version)
	require.Equal(t, models.ChangeTime, f.history.entries[1].ChangeType)
}

func TestUpdateStaleVersionRejected(t *testing.T) {
	f := newFlightFixture(t)
	flight, _, err := f.service.Create(context.Background(), createReq(), adminClaims())
	require.NoError(t, err)

	aircraft := "A333"
	_, _, err = f.service.Update(context.Background(), flight.ID,
		dto.UpdateFlightRequest{AircraftType: &aircraft, Version: 99}, adminClaims())
	require.ErrorIs(t, err, appErrors.ErrVersionConflict)
}

func TestUpdateStatusComputesDelay(t *testing.T) {
	f := newFlightFixture(t)
	flight, _, err := f.service.Create(context.Background(), createReq(), adminClaims())
	require.NoError(t, err)

	actual := flight.Departure.Add(25 * time.Minute)
	updated, err := f.service.UpdateStatus(context.Background(), flight.ID, dto.UpdateStatusRequest{
		Status:          "DEPARTED",
		ActualDeparture: &actual,
	}, adminClaims())
	require.NoError(t, err)
	require.Equal(t, 25, updated.DelayMinutes)
	require.False(t, updated.OnTime())
	require.Equal(t, models.FlightStatusDeparted, updated.Status)
}

func TestUpdateStatusSmallDelayIsOnTime(t *testing.T) {
	f := newFlightFixture(t)
	flight, _, err := f.service.Create(context.Background(), createReq(), adminClaims())
	require.NoError(t, err)

	actual := flight.Departure.Add(10 * time.Minute)
	updated, err := f.service.UpdateStatus(context.Background(), flight.ID, dto.UpdateStatusRequest{
		Status:          "DEPARTED",
		ActualDeparture: &actual,
	}, adminClaims())
	require.NoError(t, err)
	require.True(t, updated.OnTime())
}

func TestUpdateStatusCancelPublishesCancellation(t *testing.T) {
	f := newFlightFixture(t)
	flight, _, err := f.service.Create(context.Background(), createReq(), adminClaims())
	require.NoError(t, err)

	_, err = f.service.UpdateStatus(context.Background(), flight.ID, dto.UpdateStatusRequest{
		Status: "CANCELLED",
		Reason: "weather",
	}, adminClaims())
	require.NoError(t, err)

	last := f.events.events[len(f.events.events)-1]
	require.Equal(t, dto.EventFlightCancelled, last.EventType)
	require.Equal(t, "weather", last.Detail)
}

func TestDeleteSoftDeletes(t *testing.T) {
	f := newFlightFixture(t)
	flight, _, err := f.service.Create(context.Background(), createReq(), adminClaims())
	require.NoError(t, err)

	require.NoError(t, f.service.Delete(context.Background(), flight.ID, adminClaims()))
	_, err = f.service.Get(context.Background(), flight.ID)
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestListScopesAirlineUsers(t *testing.T) {
	f := newFlightFixture(t)
	_, _, err := f.service.Create(context.Background(), createReq(), adminClaims())
	require.NoError(t, err)

	other := createReq()
	other.FlightNumber = "JT500"
	other.AirlineCode = "JT"
	other.Departure = "14:00"
	other.Arrival = "16:00"
	_, _, err = f.service.Create(context.Background(), other, adminClaims())
	require.NoError(t, err)

	flights, total, err := f.service.List(context.Background(), dto.FlightFilter{},
		models.PageRequest{}, airlineClaims("JT"))
	require.NoError(t, err)
	require.EqualValues(t, 1, total)
	require.Equal(t, "JT", flights[0].AirlineCode)
}

func TestDashboardAggregates(t *testing.T) {
	f := newFlightFixture(t)
	f.detector.unresolved = 4
	f.flights.avgDelay = 12.5

	_, _, err := f.service.Create(context.Background(), createReq(), adminClaims())
	require.NoError(t, err)

	overview, err := f.service.Dashboard(context.Background())
	require.NoError(t, err)
	require.Equal(t, 1, overview.TotalFlights)
	require.Equal(t, 4, overview.OpenConflicts)
	require.Equal(t, 12.5, overview.AverageDelayMinutes)
}
