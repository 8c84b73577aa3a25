package service

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flightmgmt/flight-ops-api/internal/dto"
	"github.com/flightmgmt/flight-ops-api/internal/models"
	"github.com/flightmgmt/flight-ops-api/internal/repository"
	appErrors "github.com/flightmgmt/flight-ops-api/pkg/errors"
)

// FlightStore is the persistence surface the flight service needs.
type FlightStore interface {
	Create(ctx context.Context, flight *models.Flight) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.Flight, error)
	List(ctx context.Context, filter dto.FlightFilter, page models.PageRequest) ([]models.Flight, int64, error)
	UpdateWithVersion(ctx context.Context, flight *models.Flight, expectedVersion int) error
	Deactivate(ctx context.Context, id uuid.UUID) error
	CountByStatusOnDate(ctx context.Context, date time.Time) (map[string]int, error)
	AverageDelayOnDate(ctx context.Context, date time.Time) (float64, error)
}

// ConflictDetector runs schedule checks for a candidate flight.
type ConflictDetector interface {
	Detect(ctx context.Context, candidate *models.Flight) ([]models.Conflict, error)
	Record(ctx context.Context, conflicts []models.Conflict) error
	CountUnresolved(ctx context.Context) (int, error)
}

// ChangeTracker classifies changes and maintains the audit trail.
type ChangeTracker interface {
	Assess(previous, next *models.Flight) ChangeAssessment
	RecordCreation(ctx context.Context, flight *models.Flight, changedBy string) error
	RecordChange(ctx context.Context, flight *models.Flight, assessment ChangeAssessment, changedBy string) error
	History(ctx context.Context, flightID uuid.UUID) ([]models.FlightVersion, error)
}

// ReferenceResolver enriches flights with reference data names.
type ReferenceResolver interface {
	GetAirline(ctx context.Context, code string) models.ReferenceEntity
	GetStation(ctx context.Context, icao string, destination bool) models.ReferenceEntity
	GetAircraft(ctx context.Context, typeCode string) models.ReferenceEntity
}

// EventPublisher emits domain events.
type EventPublisher interface {
	PublishFlightEvent(ctx context.Context, event dto.FlightEvent)
}

// BatchCounter exposes the batch aggregate the dashboard needs.
type BatchCounter interface {
	CountByStatus(ctx context.Context, status models.UploadStatus) (int, error)
}

// FlightService implements single flight operations: creation with conflict
// detection, versioned updates, status transitions and dashboards.
type FlightService struct {
	flights   FlightStore
	conflicts ConflictDetector
	versions  ChangeTracker
	refdata   ReferenceResolver
	events    EventPublisher
	batches   BatchCounter
	logger    *zap.Logger
}

// NewFlightService constructs the service.
func NewFlightService(
	flights FlightStore,
	conflicts ConflictDetector,
	versions ChangeTracker,
	refdata ReferenceResolver,
	events EventPublisher,
	batches BatchCounter,
	logger *zap.Logger,
) *FlightService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &FlightService{
		flights:   flights,
		conflicts: conflicts,
		versions:  versions,
		refdata:   refdata,
		events:    events,
		batches:   batches,
		logger:    logger,
	}
}

// Create validates, enriches and persists a new flight. Detected conflicts
// block the creation and are reported back to the caller.
func (s *FlightService) Create(ctx context.Context, req dto.CreateFlightRequest, claims *models.JWTClaims) (*models.Flight, []models.Conflict, error) {
	if !claims.CanAccessAirline(req.AirlineCode) {
		return nil, nil, appErrors.ErrForbidden
	}

	flight, err := flightFromCreateRequest(req)
	if err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}

	s.enrich(ctx, flight)

	conflicts, err := s.conflicts.Detect(ctx, flight)
	if err != nil {
		return nil, nil, fmt.Errorf("detect conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, conflicts, appErrors.ErrFlightConflict
	}

	if err := s.flights.Create(ctx, flight); err != nil {
		return nil, nil, fmt.Errorf("create flight: %w", err)
	}
	if err := s.versions.RecordCreation(ctx, flight, claims.Username); err != nil {
		return nil, nil, err
	}

	s.events.PublishFlightEvent(ctx, dto.FlightEvent{
		EventType:    dto.EventFlightCreated,
		FlightID:     &flight.ID,
		FlightNumber: flight.FlightNumber,
		AirlineCode:  flight.AirlineCode,
		FlightDate:   flight.FlightDate.Format("2006-01-02"),
	})
	return flight, nil, nil
}

// Get returns one flight by ID.
func (s *FlightService) Get(ctx context.Context, id uuid.UUID) (*models.Flight, error) {
	flight, err := s.flights.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get flight: %w", err)
	}
	return flight, nil
}

// List returns a filtered page of flights. Airline scoped users only see
// their own airline regardless of the requested filter.
func (s *FlightService) List(ctx context.Context, filter dto.FlightFilter, page models.PageRequest, claims *models.JWTClaims) ([]models.Flight, int64, error) {
	if claims != nil && !claims.IsAdmin() && claims.Role == models.RoleAirlineOps {
		filter.AirlineCode = claims.AirlineCode
	}
	return s.flights.List(ctx, filter, page.Normalize())
}

// Update applies a partial update under optimistic concurrency. A major
// change bumps the version; conflicts introduced by the change block it.
func (s *FlightService) Update(ctx context.Context, id uuid.UUID, req dto.UpdateFlightRequest, claims *models.JWTClaims) (*models.Flight, []models.Conflict, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, nil, err
	}
	if !claims.CanAccessAirline(current.AirlineCode) {
		return nil, nil, appErrors.ErrForbidden
	}
	if current.Version != req.Version {
		return nil, nil, appErrors.ErrVersionConflict
	}

	next := *current
	if err := applyUpdate(&next, req); err != nil {
		return nil, nil, appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	s.enrich(ctx, &next)

	conflicts, err := s.conflicts.Detect(ctx, &next)
	if err != nil {
		return nil, nil, fmt.Errorf("detect conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		return nil, conflicts, appErrors.ErrFlightConflict
	}

	assessment := s.versions.Assess(current, &next)
	if assessment.Major {
		next.Version = current.Version + 1
	}

	if err := s.flights.UpdateWithVersion(ctx, &next, req.Version); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, nil, appErrors.ErrVersionConflict
		}
		return nil, nil, fmt.Errorf("update flight: %w", err)
	}
	if err := s.versions.RecordChange(ctx, &next, assessment, claims.Username); err != nil {
		return nil, nil, err
	}

	s.events.PublishFlightEvent(ctx, dto.FlightEvent{
		EventType:    dto.EventFlightUpdated,
		FlightID:     &next.ID,
		FlightNumber: next.FlightNumber,
		AirlineCode:  next.AirlineCode,
		FlightDate:   next.FlightDate.Format("2006-01-02"),
		Detail:       assessment.Summary,
	})
	return &next, nil, nil
}

// UpdateStatus transitions a flight's operational status and computes delay
// from actual times.
func (s *FlightService) UpdateStatus(ctx context.Context, id uuid.UUID, req dto.UpdateStatusRequest, claims *models.JWTClaims) (*models.Flight, error) {
	current, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	if !claims.CanAccessAirline(current.AirlineCode) {
		return nil, appErrors.ErrForbidden
	}

	status := models.FlightStatus(req.Status)
	if !status.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown flight status")
	}

	next := *current
	next.Status = status
	if req.ActualDeparture != nil {
		next.ActualDeparture = req.ActualDeparture
	}
	if req.ActualArrival != nil {
		next.ActualArrival = req.ActualArrival
	}
	next.DelayMinutes = computeDelay(&next)
	if next.DelayMinutes > models.OnTimeThresholdMinutes && status != models.FlightStatusCancelled &&
		status != models.FlightStatusDeparted && status != models.FlightStatusArrived {
		next.Status = models.FlightStatusDelayed
	}

	assessment := s.versions.Assess(current, &next)
	if err := s.flights.UpdateWithVersion(ctx, &next, current.Version); err != nil {
		if errors.Is(err, repository.ErrStaleVersion) {
			return nil, appErrors.ErrVersionConflict
		}
		return nil, fmt.Errorf("update flight status: %w", err)
	}
	if err := s.versions.RecordChange(ctx, &next, assessment, claims.Username); err != nil {
		return nil, err
	}

	eventType := dto.EventStatusChanged
	if next.Status == models.FlightStatusCancelled {
		eventType = dto.EventFlightCancelled
	}
	s.events.PublishFlightEvent(ctx, dto.FlightEvent{
		EventType:    eventType,
		FlightID:     &next.ID,
		FlightNumber: next.FlightNumber,
		AirlineCode:  next.AirlineCode,
		FlightDate:   next.FlightDate.Format("2006-01-02"),
		Detail:       req.Reason,
	})
	return &next, nil
}

// Delete soft deletes a flight and records the cancellation.
func (s *FlightService) Delete(ctx context.Context, id uuid.UUID, claims *models.JWTClaims) error {
	current, err := s.Get(ctx, id)
	if err != nil {
		return err
	}
	if !claims.CanAccessAirline(current.AirlineCode) {
		return appErrors.ErrForbidden
	}

	if err := s.flights.Deactivate(ctx, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return fmt.Errorf("delete flight: %w", err)
	}

	previous := *current
	current.Status = models.FlightStatusCancelled
	if err := s.versions.RecordChange(ctx, current, ChangeAssessment{
		ChangeType:    models.ChangeCancellation,
		Summary:       "flight removed from schedule",
		ChangedFields: []string{"status"},
		Before:        &previous,
	}, claims.Username); err != nil {
		return err
	}

	s.events.PublishFlightEvent(ctx, dto.FlightEvent{
		EventType:    dto.EventFlightCancelled,
		FlightID:     &current.ID,
		FlightNumber: current.FlightNumber,
		AirlineCode:  current.AirlineCode,
		FlightDate:   current.FlightDate.Format("2006-01-02"),
	})
	return nil
}

// History returns a flight's audit trail.
func (s *FlightService) History(ctx context.Context, id uuid.UUID) (*dto.VersionHistoryResponse, error) {
	flight, err := s.Get(ctx, id)
	if err != nil {
		return nil, err
	}
	entries, err := s.versions.History(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("flight history: %w", err)
	}
	return &dto.VersionHistoryResponse{
		FlightID: id.String(),
		Current:  flight.Version,
		Entries:  entries,
	}, nil
}

// LiveBoard returns today's flights ordered by departure.
func (s *FlightService) LiveBoard(ctx context.Context, station string) ([]models.Flight, error) {
	today := truncateToDay(time.Now().UTC())
	filter := dto.FlightFilter{DateFrom: &today, DateTo: &today, OriginICAO: station}
	flights, _, err := s.flights.List(ctx, filter, models.PageRequest{Page: 1, PageSize: 200})
	if err != nil {
		return nil, fmt.Errorf("live board: %w", err)
	}
	return flights, nil
}

// Dashboard aggregates today's operational picture.
func (s *FlightService) Dashboard(ctx context.Context) (*dto.DashboardOverview, error) {
	today := truncateToDay(time.Now().UTC())

	byStatus, err := s.flights.CountByStatusOnDate(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("dashboard counts: %w", err)
	}

	total := 0
	for _, n := range byStatus {
		total += n
	}
	operated := byStatus[string(models.FlightStatusDeparted)] + byStatus[string(models.FlightStatusArrived)]
	delayed := byStatus[string(models.FlightStatusDelayed)]

	onTimeRate := 0.0
	if operated+delayed > 0 {
		onTimeRate = float64(operated) / float64(operated+delayed) * 100
	}

	avgDelay, err := s.flights.AverageDelayOnDate(ctx, today)
	if err != nil {
		return nil, fmt.Errorf("dashboard delay: %w", err)
	}

	openConflicts, err := s.conflicts.CountUnresolved(ctx)
	if err != nil {
		return nil, fmt.Errorf("dashboard conflicts: %w", err)
	}
	activeBatches, err := s.batches.CountByStatus(ctx, models.UploadStatusProcessing)
	if err != nil {
		return nil, fmt.Errorf("dashboard batches: %w", err)
	}

	return &dto.DashboardOverview{
		Date:                today.Format("2006-01-02"),
		TotalFlights:        total,
		ByStatus:            byStatus,
		DelayedFlights:      delayed,
		CancelledFlights:    byStatus[string(models.FlightStatusCancelled)],
		OnTimeRate:          onTimeRate,
		AverageDelayMinutes: avgDelay,
		OpenConflicts:       openConflicts,
		ActiveBatches:       activeBatches,
	}, nil
}

// enrich fills display names from reference data. Lookups degrade to
// sentinels, never failing the caller.
func (s *FlightService) enrich(ctx context.Context, flight *models.Flight) {
	airline := s.refdata.GetAirline(ctx, flight.AirlineCode)
	flight.AirlineName = airline.Name

	origin := s.refdata.GetStation(ctx, flight.OriginICAO, false)
	flight.OriginName = origin.Name

	dest := s.refdata.GetStation(ctx, flight.DestICAO, true)
	flight.DestName = dest.Name

	aircraft := s.refdata.GetAircraft(ctx, flight.AircraftType)
	flight.AircraftName = aircraft.Name
}

func flightFromCreateRequest(req dto.CreateFlightRequest) (*models.Flight, error) {
	date, err := time.Parse("2006-01-02", req.FlightDate)
	if err != nil {
		return nil, fmt.Errorf("invalid flight date: %w", err)
	}
	departure, err := combineDateTime(date, req.Departure)
	if err != nil {
		return nil, fmt.Errorf("invalid departure time: %w", err)
	}
	arrival, err := combineDateTime(date, req.Arrival)
	if err != nil {
		return nil, fmt.Errorf("invalid arrival time: %w", err)
	}
	// Overnight arrivals land on the next calendar day.
	if !arrival.After(departure) {
		arrival = arrival.Add(24 * time.Hour)
	}
	if req.OriginICAO == req.DestICAO {
		return nil, fmt.Errorf("origin and destination must differ")
	}

	return &models.Flight{
		FlightNumber: req.FlightNumber,
		AirlineCode:  req.AirlineCode,
		AircraftType: req.AircraftType,
		FlightDate:   date,
		Departure:    departure,
		Arrival:      arrival,
		OriginICAO:   req.OriginICAO,
		DestICAO:     req.DestICAO,
		FlightType:   models.FlightType(req.FlightType),
		Status:       models.FlightStatusScheduled,
		Gate:         req.Gate,
		Terminal:     req.Terminal,
	}, nil
}

func applyUpdate(flight *models.Flight, req dto.UpdateFlightRequest) error {
	if req.AircraftType != nil {
		flight.AircraftType = *req.AircraftType
	}
	if req.Departure != nil {
		departure, err := combineDateTime(flight.FlightDate, *req.Departure)
		if err != nil {
			return fmt.Errorf("invalid departure time: %w", err)
		}
		flight.Departure = departure
	}
	if req.Arrival != nil {
		arrival, err := combineDateTime(flight.FlightDate, *req.Arrival)
		if err != nil {
			return fmt.Errorf("invalid arrival time: %w", err)
		}
		flight.Arrival = arrival
	}
	if !flight.Arrival.After(flight.Departure) {
		flight.Arrival = flight.Arrival.Add(24 * time.Hour)
	}
	if req.OriginICAO != nil {
		flight.OriginICAO = *req.OriginICAO
	}
	if req.DestICAO != nil {
		flight.DestICAO = *req.DestICAO
	}
	if flight.OriginICAO == flight.DestICAO {
		return fmt.Errorf("origin and destination must differ")
	}
	if req.Gate != nil {
		flight.Gate = req.Gate
	}
	if req.Terminal != nil {
		flight.Terminal = req.Terminal
	}
	return nil
}

// computeDelay derives the delay in minutes from actual versus scheduled
// times, preferring departure.
func computeDelay(flight *models.Flight) int {
	switch {
	case flight.ActualDeparture != nil:
		return int(flight.ActualDeparture.Sub(flight.Departure).Minutes())
	case flight.ActualArrival != nil:
		return int(flight.ActualArrival.Sub(flight.Arrival).Minutes())
	default:
		return flight.DelayMinutes
	}
}

func combineDateTime(date time.Time, clock string) (time.Time, error) {
	t, err := time.Parse("15:04", clock)
	if err != nil {
		return time.Time{}, err
	}
	return time.Date(date.Year(), date.Month(), date.Day(), t.Hour(), t.Minute(), 0, 0, time.UTC), nil
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}
