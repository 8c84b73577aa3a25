package service

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flightmgmt/flight-ops-api/internal/models"
)

// majorTimeShift is the schedule movement beyond which a time change counts
// as a major revision.
const majorTimeShift = 30 * time.Minute

// VersionStore persists flight audit entries.
type VersionStore interface {
	Create(ctx context.Context, entry *models.FlightVersion) error
	ListByFlight(ctx context.Context, flightID uuid.UUID) ([]models.FlightVersion, error)
}

// VersionService classifies flight changes and maintains the audit trail.
// Major changes (aircraft swap, schedule shift beyond the threshold, route
// change) bump the flight version; minor changes only append history.
type VersionService struct {
	versions VersionStore
	logger   *zap.Logger
}

// NewVersionService constructs the service.
func NewVersionService(versions VersionStore, logger *zap.Logger) *VersionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &VersionService{versions: versions, logger: logger}
}

// ChangeAssessment is the outcome of comparing two revisions of a flight.
// Before carries the previous revision for the audit snapshot; it is nil on
// creation.
type ChangeAssessment struct {
	Major         bool
	ChangeType    models.ChangeType
	Summary       string
	ChangedFields []string
	Before        *models.Flight
}

// Assess compares the previous and next revision of a flight and classifies
// the change. Classification precedence: status, aircraft, time, generic
// schedule change.
func (s *VersionService) Assess(previous, next *models.Flight) ChangeAssessment {
	var notes []string
	var fields []string
	major := false

	aircraftChanged := previous.AircraftType != next.AircraftType
	if aircraftChanged {
		major = true
		fields = append(fields, "aircraftType")
		notes = append(notes, fmt.Sprintf("aircraft %s -> %s", previous.AircraftType, next.AircraftType))
	}

	depShift := absDuration(next.Departure.Sub(previous.Departure))
	arrShift := absDuration(next.Arrival.Sub(previous.Arrival))
	if depShift > 0 {
		fields = append(fields, "departureTime")
	}
	if arrShift > 0 {
		fields = append(fields, "arrivalTime")
	}
	timeChanged := depShift > 0 || arrShift > 0
	if depShift > majorTimeShift || arrShift > majorTimeShift {
		major = true
	}
	if timeChanged {
		notes = append(notes, fmt.Sprintf("times shifted dep %s arr %s", depShift, arrShift))
	}

	routeChanged := previous.OriginICAO != next.OriginICAO || previous.DestICAO != next.DestICAO
	if routeChanged {
		major = true
		if previous.OriginICAO != next.OriginICAO {
			fields = append(fields, "originIcao")
		}
		if previous.DestICAO != next.DestICAO {
			fields = append(fields, "destIcao")
		}
		notes = append(notes, fmt.Sprintf("route %s-%s -> %s-%s",
			previous.OriginICAO, previous.DestICAO, next.OriginICAO, next.DestICAO))
	}

	statusChanged := previous.Status != next.Status
	if statusChanged {
		fields = append(fields, "status")
		notes = append(notes, fmt.Sprintf("status %s -> %s", previous.Status, next.Status))
	}
	if !equalStringPtr(previous.Gate, next.Gate) {
		fields = append(fields, "gate")
	}
	if !equalStringPtr(previous.Terminal, next.Terminal) {
		fields = append(fields, "terminal")
	}

	// Status transitions classify first, regardless of what else moved in
	// the same mutation.
	changeType := models.ChangeSchedule
	switch {
	case statusChanged && next.Status == models.FlightStatusCancelled:
		changeType = models.ChangeCancellation
	case statusChanged:
		changeType = models.ChangeStatusUpdate
	case aircraftChanged:
		changeType = models.ChangeAircraft
	case timeChanged && !routeChanged:
		changeType = models.ChangeTime
	}

	summary := strings.Join(notes, "; ")
	if summary == "" {
		summary = "no material change"
	}

	return ChangeAssessment{
		Major:         major,
		ChangeType:    changeType,
		Summary:       summary,
		ChangedFields: fields,
		Before:        previous,
	}
}

// RecordCreation writes the initial audit entry for a new flight.
func (s *VersionService) RecordCreation(ctx context.Context, flight *models.Flight, changedBy string) error {
	return s.record(ctx, flight, ChangeAssessment{
		ChangeType: models.ChangeCreated,
		Summary:    "flight created",
	}, changedBy)
}

// RecordChange writes an audit entry for an assessed change. The caller is
// responsible for having bumped flight.Version when the change is major.
func (s *VersionService) RecordChange(ctx context.Context, flight *models.Flight, assessment ChangeAssessment, changedBy string) error {
	return s.record(ctx, flight, assessment, changedBy)
}

func (s *VersionService) record(ctx context.Context, flight *models.Flight, assessment ChangeAssessment, changedBy string) error {
	after, err := json.Marshal(flight)
	if err != nil {
		return fmt.Errorf("marshal flight snapshot: %w", err)
	}
	var before []byte
	if assessment.Before != nil {
		if before, err = json.Marshal(assessment.Before); err != nil {
			return fmt.Errorf("marshal previous snapshot: %w", err)
		}
	}

	entry := &models.FlightVersion{
		FlightID:       flight.ID,
		Version:        flight.Version,
		ChangeType:     assessment.ChangeType,
		ChangedBy:      changedBy,
		Summary:        assessment.Summary,
		ChangedFields:  assessment.ChangedFields,
		BeforeSnapshot: before,
		AfterSnapshot:  after,
	}
	if err := s.versions.Create(ctx, entry); err != nil {
		return fmt.Errorf("record flight version: %w", err)
	}

	s.logger.Debug("flight version recorded",
		zap.String("flight_id", flight.ID.String()),
		zap.Int("version", flight.Version),
		zap.String("change_type", string(assessment.ChangeType)))
	return nil
}

func equalStringPtr(a, b *string) bool {
	if a == nil || b == nil {
		return a == b
	}
	return *a == *b
}

// History returns a flight's audit trail, newest first.
func (s *VersionService) History(ctx context.Context, flightID uuid.UUID) ([]models.FlightVersion, error) {
	return s.versions.ListByFlight(ctx, flightID)
}

func absDuration(d time.Duration) time.Duration {
	if d < 0 {
		return -d
	}
	return d
}
