package service

import (
	"context"
	"database/sql"
	"encoding/csv"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/flightmgmt/flight-ops-api/internal/dto"
	"github.com/flightmgmt/flight-ops-api/internal/models"
	appErrors "github.com/flightmgmt/flight-ops-api/pkg/errors"
	"github.com/flightmgmt/flight-ops-api/pkg/jobs"
)

// JobUploadProcess is the queue job type for schedule uploads.
const JobUploadProcess = "upload.process"

// csvColumnCount is the minimum number of columns a schedule row must have.
// Gate and terminal are optional trailing columns.
const csvColumnCount = 9

// BatchStore is the persistence surface for upload batches.
type BatchStore interface {
	Create(ctx context.Context, batch *models.UploadBatch) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.UploadBatch, error)
	Update(ctx context.Context, batch *models.UploadBatch) error
	List(ctx context.Context, page models.PageRequest) ([]models.UploadBatch, int64, error)
	CountByStatus(ctx context.Context, status models.UploadStatus) (int, error)
}

// UploadFlightStore is the flight persistence surface the pipeline needs.
type UploadFlightStore interface {
	Create(ctx context.Context, flight *models.Flight) error
}

// BatchConflictStore is the conflict surface the pipeline and resolution
// flow need.
type BatchConflictStore interface {
	Detect(ctx context.Context, candidate *models.Flight) ([]models.Conflict, error)
	Record(ctx context.Context, conflicts []models.Conflict) error
	GetConflict(ctx context.Context, id uuid.UUID) (*models.Conflict, error)
	ListByBatch(ctx context.Context, batchID uuid.UUID) ([]models.Conflict, error)
	Resolve(ctx context.Context, id uuid.UUID, resolution, resolvedBy string) error
	CountUnresolvedByBatch(ctx context.Context, batchID uuid.UUID) (int, error)
}

// ProgressPublisher pushes batch progress and domain events.
type ProgressPublisher interface {
	PublishFlightEvent(ctx context.Context, event dto.FlightEvent)
	PublishProgress(ctx context.Context, event dto.UploadProgressEvent)
}

// UploadFileStore holds uploaded schedule files until processing picks them
// up.
type UploadFileStore interface {
	Save(relPath string, data []byte) (string, error)
	Open(relPath string) (io.ReadCloser, error)
	Remove(relPath string) error
}

// UploadService accepts schedule files, queues them for processing and
// exposes batch progress and conflict resolution.
type UploadService struct {
	batches          BatchStore
	flights          UploadFlightStore
	conflicts        BatchConflictStore
	versions         ChangeTracker
	refdata          ReferenceResolver
	events           ProgressPublisher
	files            UploadFileStore
	queue            *jobs.Queue
	progressInterval int
	metrics          *MetricsService
	logger           *zap.Logger
}

// NewUploadService constructs the service.
func NewUploadService(
	batches BatchStore,
	flights UploadFlightStore,
	conflicts BatchConflictStore,
	versions ChangeTracker,
	refdata ReferenceResolver,
	events ProgressPublisher,
	files UploadFileStore,
	queue *jobs.Queue,
	progressInterval int,
	metrics *MetricsService,
	logger *zap.Logger,
) *UploadService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if progressInterval <= 0 {
		progressInterval = 10
	}
	return &UploadService{
		batches:          batches,
		flights:          flights,
		conflicts:        conflicts,
		versions:         versions,
		refdata:          refdata,
		events:           events,
		files:            files,
		queue:            queue,
		progressInterval: progressInterval,
		metrics:          metrics,
		logger:           logger,
	}
}

// Accept stores the uploaded file, creates the batch record and queues the
// processing job.
func (s *UploadService) Accept(ctx context.Context, fileName string, content []byte, uploadedBy string) (*models.UploadBatch, error) {
	batch := &models.UploadBatch{
		FileName:   fileName,
		UploadedBy: uploadedBy,
		Status:     models.UploadStatusUploaded,
	}
	if err := s.batches.Create(ctx, batch); err != nil {
		return nil, fmt.Errorf("create batch: %w", err)
	}

	relPath := fmt.Sprintf("uploads/%s.csv", batch.ID)
	if _, err := s.files.Save(relPath, content); err != nil {
		return nil, fmt.Errorf("store upload: %w", err)
	}

	if _, err := s.queue.Enqueue(jobs.Job{
		Type: JobUploadProcess,
		Payload: map[string]interface{}{
			"batchId":  batch.ID.String(),
			"filePath": relPath,
		},
	}); err != nil {
		return nil, fmt.Errorf("queue upload job: %w", err)
	}

	s.logger.Info("upload accepted",
		zap.String("batch_id", batch.ID.String()),
		zap.String("file_name", fileName))
	return batch, nil
}

// GetBatch returns the batch with its current progress.
func (s *UploadService) GetBatch(ctx context.Context, id uuid.UUID) (*models.UploadBatch, error) {
	batch, err := s.batches.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrBatchNotFound
		}
		return nil, fmt.Errorf("get batch: %w", err)
	}
	return batch, nil
}

// ListBatches returns batches newest first.
func (s *UploadService) ListBatches(ctx context.Context, page models.PageRequest) ([]models.UploadBatch, int64, error) {
	return s.batches.List(ctx, page.Normalize())
}

// BatchConflicts returns the conflicts recorded for one batch.
func (s *UploadService) BatchConflicts(ctx context.Context, batchID uuid.UUID) ([]models.Conflict, error) {
	if _, err := s.GetBatch(ctx, batchID); err != nil {
		return nil, err
	}
	return s.conflicts.ListByBatch(ctx, batchID)
}

// ResolveConflict records the resolution and completes the owning batch once
// its last open conflict is gone.
func (s *UploadService) ResolveConflict(ctx context.Context, conflictID uuid.UUID, resolution, resolvedBy string) error {
	conflict, err := s.conflicts.GetConflict(ctx, conflictID)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return appErrors.ErrNotFound
		}
		return fmt.Errorf("get conflict: %w", err)
	}

	if err := s.conflicts.Resolve(ctx, conflictID, resolution, resolvedBy); err != nil {
		return appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, err.Error())
	}
	s.metrics.RecordConflictResolved()

	s.events.PublishFlightEvent(ctx, dto.FlightEvent{
		EventType:    dto.EventConflictResolved,
		BatchID:      conflict.BatchID,
		FlightNumber: conflict.FlightNumber,
		FlightDate:   conflict.FlightDate.Format("2006-01-02"),
		Detail:       resolution,
	})

	if conflict.BatchID == nil {
		return nil
	}

	open, err := s.conflicts.CountUnresolvedByBatch(ctx, *conflict.BatchID)
	if err != nil {
		return fmt.Errorf("count open conflicts: %w", err)
	}
	if open > 0 {
		return nil
	}

	batch, err := s.batches.GetByID(ctx, *conflict.BatchID)
	if err != nil {
		return fmt.Errorf("get batch: %w", err)
	}
	if batch.Status != models.UploadStatusProcessing {
		return nil
	}

	batch.Status = models.UploadStatusCompleted
	now := time.Now().UTC()
	batch.CompletedAt = &now
	if err := s.batches.Update(ctx, batch); err != nil {
		return fmt.Errorf("complete batch: %w", err)
	}
	s.publishProgress(ctx, batch)
	s.events.PublishFlightEvent(ctx, dto.FlightEvent{
		EventType: dto.EventBatchCompleted,
		BatchID:   &batch.ID,
	})
	return nil
}

func (s *UploadService) publishProgress(ctx context.Context, batch *models.UploadBatch) {
	s.events.PublishProgress(ctx, dto.UploadProgressEvent{
		BatchID:            batch.ID,
		TotalRows:          batch.TotalRows,
		ProcessedRows:      batch.ProcessedRows,
		SuccessfulRows:     batch.SuccessfulRows,
		FailedRows:         batch.FailedRows,
		ConflictRows:       batch.ConflictRows,
		Status:             batch.Status,
		ProgressPercentage: batch.ProgressPercentage(),
	})
}

// UploadWorker executes queued upload jobs.
type UploadWorker struct {
	service *UploadService
	logger  *zap.Logger
}

// NewUploadWorker constructs the worker.
func NewUploadWorker(service *UploadService, logger *zap.Logger) *UploadWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UploadWorker{service: service, logger: logger}
}

// Handle processes one queued upload job.
func (w *UploadWorker) Handle(ctx context.Context, job jobs.Job) error {
	batchID, err := uuid.Parse(stringPayload(job.Payload, "batchId"))
	if err != nil {
		return fmt.Errorf("upload job missing batch id: %w", err)
	}
	filePath := stringPayload(job.Payload, "filePath")
	if filePath == "" {
		return fmt.Errorf("upload job missing file path")
	}

	return w.service.process(ctx, batchID, filePath)
}

func stringPayload(payload map[string]interface{}, key string) string {
	if v, ok := payload[key].(string); ok {
		return v
	}
	return ""
}

// pendingRow is a parsed, conflict-free schedule row waiting on the batch
// commit decision.
type pendingRow struct {
	number int
	flight *models.Flight
}

// process runs the batch through the ingestion pipeline in two phases:
// every row is parsed, enriched and checked first, and flights are only
// committed when the whole file came through without conflicts. Row errors
// are absorbed and tallied; the final counters and end timestamp are
// persisted even when processing aborts.
func (s *UploadService) process(ctx context.Context, batchID uuid.UUID, filePath string) error {
	batch, err := s.batches.GetByID(ctx, batchID)
	if err != nil {
		return fmt.Errorf("load batch: %w", err)
	}

	now := time.Now().UTC()
	batch.Status = models.UploadStatusProcessing
	batch.StartedAt = &now
	if err := s.batches.Update(ctx, batch); err != nil {
		return fmt.Errorf("mark batch processing: %w", err)
	}
	s.publishProgress(ctx, batch)

	rows, readErr := s.readRows(filePath)

	// Counters and the end timestamp must land even on abort, and the
	// final progress notification is guaranteed the same way.
	defer func() {
		end := time.Now().UTC()
		batch.CompletedAt = &end
		if err := s.batches.Update(ctx, batch); err != nil {
			s.logger.Error("persist batch outcome", zap.String("batch_id", batchID.String()), zap.Error(err))
		}
		s.metrics.RecordUploadOutcome(string(batch.Status))
		s.publishProgress(ctx, batch)
	}()

	if readErr != nil {
		batch.Status = models.UploadStatusFailed
		detail := readErr.Error()
		batch.ErrorDetails = &detail
		s.events.PublishFlightEvent(ctx, dto.FlightEvent{
			EventType: dto.EventBatchFailed,
			BatchID:   &batch.ID,
			Detail:    detail,
		})
		return nil
	}

	batch.TotalRows = len(rows)
	var rowErrors []string
	var pending []pendingRow
	var found []models.Conflict

	for i, row := range rows {
		rowNum := i + 2
		flight, conflicts, err := s.classifyRow(ctx, batch, rowNum, row)
		switch {
		case err != nil:
			batch.FailedRows++
			s.metrics.RecordUploadRow("failed")
			rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", rowNum, err))
		case len(conflicts) > 0:
			batch.ConflictRows++
			s.metrics.RecordUploadRow("conflict")
			found = append(found, conflicts...)
		default:
			pending = append(pending, pendingRow{number: rowNum, flight: flight})
		}
		batch.ProcessedRows++

		if batch.ProcessedRows%s.progressInterval == 0 {
			if err := s.batches.Update(ctx, batch); err != nil {
				s.logger.Warn("persist batch progress", zap.Error(err))
			}
			s.publishProgress(ctx, batch)
		}
	}

	if len(found) > 0 {
		// A single conflict holds back the whole file: the records are
		// persisted for operator review and no flight is committed until
		// every conflict is resolved.
		if err := s.conflicts.Record(ctx, found); err != nil {
			batch.Status = models.UploadStatusFailed
			detail := fmt.Sprintf("record conflicts: %v", err)
			batch.ErrorDetails = &detail
			s.events.PublishFlightEvent(ctx, dto.FlightEvent{
				EventType: dto.EventBatchFailed,
				BatchID:   &batch.ID,
				Detail:    detail,
			})
			return nil
		}
		batch.Status = models.UploadStatusProcessing
	} else {
		for _, p := range pending {
			if err := s.commitRow(ctx, batch, p.flight); err != nil {
				batch.FailedRows++
				s.metrics.RecordUploadRow("failed")
				rowErrors = append(rowErrors, fmt.Sprintf("row %d: %v", p.number, err))
				continue
			}
			batch.SuccessfulRows++
			s.metrics.RecordUploadRow("imported")
		}
		batch.Status = models.UploadStatusCompleted
		s.events.PublishFlightEvent(ctx, dto.FlightEvent{
			EventType: dto.EventBatchCompleted,
			BatchID:   &batch.ID,
		})
	}

	if len(rowErrors) > 0 {
		detail := strings.Join(rowErrors, "\n")
		batch.ErrorDetails = &detail
	}

	if err := s.files.Remove(filePath); err != nil {
		s.logger.Warn("remove processed upload", zap.String("path", filePath), zap.Error(err))
	}
	return nil
}

// classifyRow parses and enriches one schedule row and checks it against
// the already published schedule. Conflicting rows carry their source row
// number and candidate payload so operators can act on them later.
func (s *UploadService) classifyRow(ctx context.Context, batch *models.UploadBatch, rowNum int, record []string) (*models.Flight, []models.Conflict, error) {
	flight, err := parseScheduleRow(record)
	if err != nil {
		return nil, nil, err
	}
	id := batch.ID
	flight.BatchID = &id

	airline := s.refdata.GetAirline(ctx, flight.AirlineCode)
	flight.AirlineName = airline.Name
	origin := s.refdata.GetStation(ctx, flight.OriginICAO, false)
	flight.OriginName = origin.Name
	dest := s.refdata.GetStation(ctx, flight.DestICAO, true)
	flight.DestName = dest.Name
	aircraft := s.refdata.GetAircraft(ctx, flight.AircraftType)
	flight.AircraftName = aircraft.Name

	conflicts, err := s.conflicts.Detect(ctx, flight)
	if err != nil {
		return nil, nil, fmt.Errorf("detect conflicts: %w", err)
	}
	if len(conflicts) > 0 {
		candidate, err := json.Marshal(flight)
		if err != nil {
			return nil, nil, fmt.Errorf("marshal candidate row: %w", err)
		}
		num := rowNum
		for j := range conflicts {
			conflicts[j].RowNumber = &num
			conflicts[j].CandidateData = candidate
		}
		s.events.PublishFlightEvent(ctx, dto.FlightEvent{
			EventType:    dto.EventConflictDetected,
			BatchID:      &batch.ID,
			FlightNumber: flight.FlightNumber,
			AirlineCode:  flight.AirlineCode,
			FlightDate:   flight.FlightDate.Format("2006-01-02"),
			Detail:       fmt.Sprintf("%d conflicts", len(conflicts)),
		})
	}
	return flight, conflicts, nil
}

// commitRow persists a conflict-free flight and its creation audit entry.
func (s *UploadService) commitRow(ctx context.Context, batch *models.UploadBatch, flight *models.Flight) error {
	if err := s.flights.Create(ctx, flight); err != nil {
		return fmt.Errorf("persist flight: %w", err)
	}
	if err := s.versions.RecordCreation(ctx, flight, batch.UploadedBy); err != nil {
		return fmt.Errorf("record creation: %w", err)
	}
	return nil
}

// readRows loads and parses the CSV, skipping the header row.
func (s *UploadService) readRows(filePath string) ([][]string, error) {
	f, err := s.files.Open(filePath)
	if err != nil {
		return nil, fmt.Errorf("open upload: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("parse csv: %w", err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("file is empty")
	}
	return records[1:], nil
}

// scheduleRow carries the validatable fields of one CSV record.
type scheduleRow struct {
	FlightNumber string `validate:"required,min=3,max=8"`
	AirlineCode  string `validate:"required,len=2"`
	AircraftType string `validate:"required"`
	OriginICAO   string `validate:"required,len=4,nefield=DestICAO"`
	DestICAO     string `validate:"required,len=4"`
	FlightType   string `validate:"required,oneof=PASSENGER CARGO FERRY"`
}

var rowValidator = validator.New()

// parseScheduleRow maps one CSV record onto a flight. Expected columns:
// flightNumber, airlineCode, aircraftType, flightDate, departureTime,
// arrivalTime, originIcao, destIcao, flightType, then optional gate and
// terminal.
func parseScheduleRow(record []string) (*models.Flight, error) {
	if len(record) < csvColumnCount {
		return nil, fmt.Errorf("expected at least %d columns, got %d", csvColumnCount, len(record))
	}
	for i := range record {
		record[i] = strings.TrimSpace(record[i])
	}

	date, err := time.Parse("2006-01-02", record[3])
	if err != nil {
		return nil, fmt.Errorf("invalid flight date %q", record[3])
	}
	departure, err := combineDateTime(date, record[4])
	if err != nil {
		return nil, fmt.Errorf("invalid departure time %q", record[4])
	}
	arrival, err := combineDateTime(date, record[5])
	if err != nil {
		return nil, fmt.Errorf("invalid arrival time %q", record[5])
	}
	if !arrival.After(departure) {
		arrival = arrival.Add(24 * time.Hour)
	}

	row := scheduleRow{
		FlightNumber: record[0],
		AirlineCode:  record[1],
		AircraftType: record[2],
		OriginICAO:   record[6],
		DestICAO:     record[7],
		FlightType:   strings.ToUpper(record[8]),
	}
	if err := rowValidator.Struct(row); err != nil {
		return nil, fmt.Errorf("invalid schedule row: %w", err)
	}

	flight := &models.Flight{
		FlightNumber: row.FlightNumber,
		AirlineCode:  row.AirlineCode,
		AircraftType: row.AircraftType,
		FlightDate:   date,
		Departure:    departure,
		Arrival:      arrival,
		OriginICAO:   row.OriginICAO,
		DestICAO:     row.DestICAO,
		FlightType:   models.FlightType(row.FlightType),
		Status:       models.FlightStatusScheduled,
	}
	if len(record) > 9 && record[9] != "" {
		gate := record[9]
		flight.Gate = &gate
	}
	if len(record) > 10 && record[10] != "" {
		terminal := record[10]
		flight.Terminal = &terminal
	}
	return flight, nil
}
