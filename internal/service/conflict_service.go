package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flightmgmt/flight-ops-api/internal/models"
)

// Buffer constants for schedule conflict checks.
const (
	// turnaroundBuffer pads every arrival before comparing aircraft
	// rotations, modelling minimum ground time.
	turnaroundBuffer = 30 * time.Minute
	// slotSeparation is the minimum spacing between departures from the
	// same station.
	slotSeparation = 30 * time.Minute
)

// ConflictFlightStore is the flight lookup surface the detector needs.
type ConflictFlightStore interface {
	GetByNaturalKey(ctx context.Context, key models.NaturalKey) (*models.Flight, error)
	FindByAircraftOnDate(ctx context.Context, aircraftType string, date time.Time) ([]models.Flight, error)
	FindByOriginOnDate(ctx context.Context, originICAO string, date time.Time) ([]models.Flight, error)
}

// ConflictStore persists detected conflicts.
type ConflictStore interface {
	Create(ctx context.Context, conflict *models.Conflict) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Conflict, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Conflict, error)
	ListUnresolved(ctx context.Context, page models.PageRequest) ([]models.Conflict, int64, error)
	Resolve(ctx context.Context, id uuid.UUID, resolution, resolvedBy string) error
	CountUnresolvedByBatch(ctx context.Context, batchID uuid.UUID) (int, error)
	CountUnresolved(ctx context.Context) (int, error)
}

// ConflictService detects scheduling conflicts between a candidate flight
// and the persisted schedule. Detection never mutates the candidate and
// always returns the complete conflict set.
type ConflictService struct {
	flights   ConflictFlightStore
	conflicts ConflictStore
	metrics   *MetricsService
	logger    *zap.Logger
}

// NewConflictService constructs the service.
func NewConflictService(flights ConflictFlightStore, conflicts ConflictStore, metrics *MetricsService, logger *zap.Logger) *ConflictService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ConflictService{flights: flights, conflicts: conflicts, metrics: metrics, logger: logger}
}

// Detect runs all conflict checks for the candidate against persisted
// flights and returns every conflict found. The candidate itself is never
// modified and nothing is persisted here.
func (s *ConflictService) Detect(ctx context.Context, candidate *models.Flight) ([]models.Conflict, error) {
	var found []models.Conflict

	dup, err := s.checkDuplicateNumber(ctx, candidate)
	if err != nil {
		return nil, err
	}
	found = append(found, dup...)

	booking, err := s.checkAircraftDoubleBooking(ctx, candidate)
	if err != nil {
		return nil, err
	}
	found = append(found, booking...)

	slot, err := s.checkDepartureSlot(ctx, candidate)
	if err != nil {
		return nil, err
	}
	found = append(found, slot...)

	if len(found) > 0 {
		for i := range found {
			s.metrics.RecordConflictDetected(string(found[i].Type))
		}
		s.logger.Info("conflicts detected",
			zap.String("flight_number", candidate.FlightNumber),
			zap.String("airline_code", candidate.AirlineCode),
			zap.Int("count", len(found)))
	}
	return found, nil
}

// checkDuplicateNumber flags an active flight already holding the
// candidate's natural key.
func (s *ConflictService) checkDuplicateNumber(ctx context.Context, candidate *models.Flight) ([]models.Conflict, error) {
	existing, err := s.flights.GetByNaturalKey(ctx, candidate.Key())
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, nil
		}
		return nil, fmt.Errorf("duplicate check: %w", err)
	}
	if existing.ID == candidate.ID {
		return nil, nil
	}

	return []models.Conflict{s.newConflict(candidate, existing, models.ConflictFlightNumberDuplicate,
		fmt.Sprintf("flight %s/%s already scheduled on %s",
			candidate.AirlineCode, candidate.FlightNumber, candidate.FlightDate.Format("2006-01-02")))}, nil
}

// checkAircraftDoubleBooking flags flights whose buffered operating windows
// overlap on the same aircraft. Both arrivals are padded with the turnaround
// buffer so the check is symmetric.
func (s *ConflictService) checkAircraftDoubleBooking(ctx context.Context, candidate *models.Flight) ([]models.Conflict, error) {
	others, err := s.flights.FindByAircraftOnDate(ctx, candidate.AircraftType, candidate.FlightDate)
	if err != nil {
		return nil, fmt.Errorf("double booking check: %w", err)
	}

	var found []models.Conflict
	candidateEnd := candidate.Arrival.Add(turnaroundBuffer)
	for i := range others {
		other := &others[i]
		if other.ID == candidate.ID {
			continue
		}
		// Departing exactly at the buffered arrival still collides; the
		// window is inclusive on both sides.
		otherEnd := other.Arrival.Add(turnaroundBuffer)
		if !candidate.Departure.After(otherEnd) && !other.Departure.After(candidateEnd) {
			found = append(found, s.newConflict(candidate, other, models.ConflictAircraftDoubleBooking,
				fmt.Sprintf("aircraft %s already committed to %s/%s between %s and %s",
					candidate.AircraftType, other.AirlineCode, other.FlightNumber,
					other.Departure.Format("15:04"), other.Arrival.Format("15:04"))))
		}
	}
	return found, nil
}

// checkDepartureSlot flags departures from the same origin station closer
// than the slot separation. Only the origin side is checked.
func (s *ConflictService) checkDepartureSlot(ctx context.Context, candidate *models.Flight) ([]models.Conflict, error) {
	others, err := s.flights.FindByOriginOnDate(ctx, candidate.OriginICAO, candidate.FlightDate)
	if err != nil {
		return nil, fmt.Errorf("slot check: %w", err)
	}

	var found []models.Conflict
	for i := range others {
		other := &others[i]
		if other.ID == candidate.ID {
			continue
		}
		gap := candidate.Departure.Sub(other.Departure)
		if gap < 0 {
			gap = -gap
		}
		if gap < slotSeparation {
			found = append(found, s.newConflict(candidate, other, models.ConflictSlotConflict,
				fmt.Sprintf("departure within %s of %s/%s at %s",
					slotSeparation, other.AirlineCode, other.FlightNumber, candidate.OriginICAO)))
		}
	}
	return found, nil
}

func (s *ConflictService) newConflict(candidate, existing *models.Flight, conflictType models.ConflictType, description string) models.Conflict {
	conflict := models.Conflict{
		Type:         conflictType,
		Severity:     models.SeverityFor(conflictType),
		Description:  description,
		FlightNumber: candidate.FlightNumber,
		FlightDate:   candidate.FlightDate,
		BatchID:      candidate.BatchID,
	}
	if candidate.ID != uuid.Nil {
		id := candidate.ID
		conflict.FlightID = &id
	}
	if existing != nil && existing.ID != uuid.Nil {
		id := existing.ID
		conflict.ExistingFlightID = &id
	}
	return conflict
}

// Record persists the given conflicts.
func (s *ConflictService) Record(ctx context.Context, conflicts []models.Conflict) error {
	for i := range conflicts {
		if err := s.conflicts.Create(ctx, &conflicts[i]); err != nil {
			return fmt.Errorf("record conflict: %w", err)
		}
	}
	return nil
}

// GetConflict returns one conflict by identifier.
func (s *ConflictService) GetConflict(ctx context.Context, id uuid.UUID) (*models.Conflict, error) {
	return s.conflicts.GetByID(ctx, id)
}

// ListByBatch returns the conflicts recorded for one batch.
func (s *ConflictService) ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Conflict, error) {
	return s.conflicts.ListByBatch(ctx, batchID)
}

// Resolve marks a conflict resolved.
func (s *ConflictService) Resolve(ctx context.Context, id uuid.UUID, resolution, resolvedBy string) error {
	if err := s.conflicts.Resolve(ctx, id, resolution, resolvedBy); err != nil {
		return err
	}
	s.metrics.RecordConflictResolved()
	return nil
}

// CountUnresolvedByBatch returns the number of open conflicts for a batch.
func (s *ConflictService) CountUnresolvedByBatch(ctx context.Context, batchID uuid.UUID) (int, error) {
	return s.conflicts.CountUnresolvedByBatch(ctx, batchID)
}

// ListUnresolved returns the open conflicts page.
func (s *ConflictService) ListUnresolved(ctx context.Context, page models.PageRequest) ([]models.Conflict, int64, error) {
	return s.conflicts.ListUnresolved(ctx, page.Normalize())
}

// CountUnresolved returns the total number of open conflicts.
func (s *ConflictService) CountUnresolved(ctx context.Context) (int, error) {
	return s.conflicts.CountUnresolved(ctx)
}
