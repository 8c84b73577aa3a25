package service

import (
	"context"
	"database/sql"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flightmgmt/flight-ops-api/internal/models"
)

type stubConflictFlightStore struct {
	byKey      *models.Flight
	byAircraft []models.Flight
	byOrigin   []models.Flight
}

func (s *stubConflictFlightStore) GetByNaturalKey(ctx context.Context, key models.NaturalKey) (*models.Flight, error) {
	if s.byKey == nil {
		return nil, sql.ErrNoRows
	}
	return s.byKey, nil
}

func (s *stubConflictFlightStore) FindByAircraftOnDate(ctx context.Context, aircraftType string, date time.Time) ([]models.Flight, error) {
	return s.byAircraft, nil
}

func (s *stubConflictFlightStore) FindByOriginOnDate(ctx context.Context, originICAO string, date time.Time) ([]models.Flight, error) {
	return s.byOrigin, nil
}

type stubConflictStore struct {
	created []models.Conflict
}

func (s *stubConflictStore) Create(ctx context.Context, conflict *models.Conflict) error {
	s.created = append(s.created, *conflict)
	return nil
}

func (s *stubConflictStore) GetByID(ctx context.Context, id uuid.UUID) (*models.Conflict, error) {
	return nil, sql.ErrNoRows
}

func (s *stubConflictStore) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Conflict, error) {
	return nil, nil
}

func (s *stubConflictStore) ListUnresolved(ctx context.Context, page models.PageRequest) ([]models.Conflict, int64, error) {
	return nil, 0, nil
}

func (s *stubConflictStore) Resolve(ctx context.Context, id uuid.UUID, resolution, resolvedBy string) error {
	return nil
}

func (s *stubConflictStore) CountUnresolvedByBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	return 0, nil
}

func (s *stubConflictStore) CountUnresolved(ctx context.Context) (int, error) {
	return 0, nil
}

func testFlight(number string, dep, arr time.Time) models.Flight {
	return models.Flight{
		ID:           uuid.New(),
		FlightNumber: number,
		AirlineCode:  "GA",
		AircraftType: "B738",
		FlightDate:   time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC),
		Departure:    dep,
		Arrival:      arr,
		OriginICAO:   "WIII",
		DestICAO:     "WADD",
		Status:       models.FlightStatusScheduled,
		IsActive:     true,
	}
}

func at(hour, minute int) time.Time {
	return time.Date(2026, 9, 1, hour, minute, 0, 0, time.UTC)
}

func TestDetectNoConflicts(t *testing.T) {
	flights := &stubConflictFlightStore{}
	svc := NewConflictService(flights, &stubConflictStore{}, nil, nil)

	candidate := testFlight("GA100", at(8, 0), at(10, 0))
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	require.Empty(t, conflicts)
}

func TestDetectDuplicateFlightNumber(t *testing.T) {
	existing := testFlight("GA100", at(8, 0), at(10, 0))
	flights := &stubConflictFlightStore{byKey: &existing}
	svc := NewConflictService(flights, &stubConflictStore{}, nil, nil)

	candidate := testFlight("GA100", at(14, 0), at(16, 0))
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, models.ConflictFlightNumberDuplicate, conflicts[0].Type)
	require.Equal(t, models.SeverityCritical, conflicts[0].Severity)
	require.Equal(t, existing.ID, *conflicts[0].ExistingFlightID)
}

func TestDetectDuplicateSkipsSameFlight(t *testing.T) {
	existing := testFlight("GA100", at(8, 0), at(10, 0))
	flights := &stubConflictFlightStore{byKey: &existing}
	svc := NewConflictService(flights, &stubConflictStore{}, nil, nil)

	// Re-checking the same flight, e.g. on update, is not a duplicate.
	candidate := existing
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	require.Empty(t, conflicts)
}

func TestDetectAircraftDoubleBookingOverlap(t *testing.T) {
	other := testFlight("GA200", at(9, 0), at(11, 0))
	flights := &stubConflictFlightStore{byAircraft: []models.Flight{other}}
	svc := NewConflictService(flights, &stubConflictStore{}, nil, nil)

	// Departs 30 minutes after the other lands, inside the turnaround
	// buffer, so the rotation is infeasible.
	candidate := testFlight("GA300", at(11, 15), at(13, 0))
	candidate.OriginICAO = "WADD"
	candidate.DestICAO = "WIII"
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, models.ConflictAircraftDoubleBooking, conflicts[0].Type)
	require.Equal(t, models.SeverityHigh, conflicts[0].Severity)
}

func TestDetectAircraftClearAfterTurnaround(t *testing.T) {
	other := testFlight("GA200", at(9, 0), at(11, 0))
	flights := &stubConflictFlightStore{byAircraft: []models.Flight{other}}
	svc := NewConflictService(flights, &stubConflictStore{}, nil, nil)

	// Departs after the buffered arrival, rotation is fine.
	candidate := testFlight("GA300", at(11, 45), at(13, 30))
	candidate.OriginICAO = "WADD"
	candidate.DestICAO = "WIII"
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	require.Empty(t, conflicts)
}

func TestDetectDoubleBookingBufferBoundaryCollides(t *testing.T) {
	other := testFlight("GA200", at(9, 0), at(11, 0))
	flights := &stubConflictFlightStore{byAircraft: []models.Flight{other}}
	svc := NewConflictService(flights, &stubConflictStore{}, nil, nil)

	// Departing exactly when the turnaround buffer ends leaves no margin,
	// so the rotation is still infeasible.
	candidate := testFlight("GA300", at(11, 30), at(13, 15))
	candidate.OriginICAO = "WADD"
	candidate.DestICAO = "WIII"
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, models.ConflictAircraftDoubleBooking, conflicts[0].Type)
}

func TestDetectDoubleBookingSymmetric(t *testing.T) {
	// The earlier flight's buffered arrival reaches into the later one
	// regardless of which side is the candidate.
	earlier := testFlight("GA200", at(6, 0), at(7, 50))
	flights := &stubConflictFlightStore{byAircraft: []models.Flight{earlier}}
	svc := NewConflictService(flights, &stubConflictStore{}, nil, nil)

	later := testFlight("GA300", at(8, 0), at(10, 0))
	later.OriginICAO = "WADD"
	later.DestICAO = "WIII"
	conflicts, err := svc.Detect(context.Background(), &later)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, models.ConflictAircraftDoubleBooking, conflicts[0].Type)
}

func TestDetectSlotConflict(t *testing.T) {
	other := testFlight("JT500", at(8, 20), at(10, 30))
	other.AircraftType = "A320"
	flights := &stubConflictFlightStore{byOrigin: []models.Flight{other}}
	svc := NewConflictService(flights, &stubConflictStore{}, nil, nil)

	candidate := testFlight("GA100", at(8, 0), at(10, 0))
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	require.Len(t, conflicts, 1)
	require.Equal(t, models.ConflictSlotConflict, conflicts[0].Type)
	require.Equal(t, models.SeverityMedium, conflicts[0].Severity)
}

func TestDetectSlotBoundaryIsClear(t *testing.T) {
	// Exactly 30 minutes of separation is acceptable.
	other := testFlight("JT500", at(8, 30), at(10, 30))
	other.AircraftType = "A320"
	flights := &stubConflictFlightStore{byOrigin: []models.Flight{other}}
	svc := NewConflictService(flights, &stubConflictStore{}, nil, nil)

	candidate := testFlight("GA100", at(8, 0), at(10, 0))
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	require.Empty(t, conflicts)
}

func TestDetectReturnsFullConflictSet(t *testing.T) {
	existing := testFlight("GA100", at(8, 0), at(10, 0))
	overlapping := testFlight("GA200", at(8, 10), at(10, 10))
	flights := &stubConflictFlightStore{
		byKey:      &existing,
		byAircraft: []models.Flight{overlapping},
		byOrigin:   []models.Flight{overlapping},
	}
	svc := NewConflictService(flights, &stubConflictStore{}, nil, nil)

	candidate := testFlight("GA100", at(8, 5), at(10, 5))
	conflicts, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	require.Len(t, conflicts, 3)

	types := map[models.ConflictType]bool{}
	for _, c := range conflicts {
		types[c.Type] = true
	}
	require.True(t, types[models.ConflictFlightNumberDuplicate])
	require.True(t, types[models.ConflictAircraftDoubleBooking])
	require.True(t, types[models.ConflictSlotConflict])
}

func TestDetectDoesNotMutateCandidate(t *testing.T) {
	existing := testFlight("GA100", at(8, 0), at(10, 0))
	flights := &stubConflictFlightStore{byKey: &existing}
	svc := NewConflictService(flights, &stubConflictStore{}, nil, nil)

	candidate := testFlight("GA100", at(14, 0), at(16, 0))
	before := candidate
	_, err := svc.Detect(context.Background(), &candidate)
	require.NoError(t, err)
	require.Equal(t, before, candidate)
}

func TestRecordPersistsAll(t *testing.T) {
	store := &stubConflictStore{}
	svc := NewConflictService(&stubConflictFlightStore{}, store, nil, nil)

	err := svc.Record(context.Background(), []models.Conflict{
		{Type: models.ConflictSlotConflict},
		{Type: models.ConflictAircraftDoubleBooking},
	})
	require.NoError(t, err)
	require.Len(t, store.created, 2)
}
