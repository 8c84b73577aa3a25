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
	"github.com/flightmgmt/flight-ops-api/pkg/export"
	"github.com/flightmgmt/flight-ops-api/pkg/jobs"
)

// JobExportRender is the queue job type for schedule exports.
const JobExportRender = "export.render"

// ExportJobStore is the persistence surface for export jobs.
type ExportJobStore interface {
	Create(ctx context.Context, job *models.ExportJob) error
	GetByID(ctx context.Context, id uuid.UUID) (*models.ExportJob, error)
	Update(ctx context.Context, id uuid.UUID, params repository.UpdateExportJobParams) error
}

// ScheduleLister loads the flights an export covers.
type ScheduleLister interface {
	ListBetween(ctx context.Context, from, to time.Time, airlineCode string) ([]models.Flight, error)
}

// ArtifactStore persists rendered export files.
type ArtifactStore interface {
	Save(relPath string, data []byte) (string, error)
}

// TokenSigner issues signed download tokens for finished exports.
type TokenSigner interface {
	Sign(jobID, relPath string) string
}

// ExportService queues schedule exports and renders them asynchronously.
type ExportService struct {
	exports ExportJobStore
	flights ScheduleLister
	store   ArtifactStore
	signer  TokenSigner
	queue   *jobs.Queue
	csv     *export.CSVExporter
	pdf     *export.PDFExporter
	logger  *zap.Logger
}

// NewExportService constructs the service.
func NewExportService(
	exports ExportJobStore,
	flights ScheduleLister,
	store ArtifactStore,
	signer TokenSigner,
	queue *jobs.Queue,
	logger *zap.Logger,
) *ExportService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportService{
		exports: exports,
		flights: flights,
		store:   store,
		signer:  signer,
		queue:   queue,
		csv:     export.NewCSVExporter(),
		pdf:     export.NewPDFExporter(),
		logger:  logger,
	}
}

// Queue validates the request, creates the job record and enqueues it.
func (s *ExportService) Queue(ctx context.Context, req dto.ExportRequest, claims *models.JWTClaims) (*models.ExportJob, error) {
	from, err := time.Parse("2006-01-02", req.FromDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid from date")
	}
	to, err := time.Parse("2006-01-02", req.ToDate)
	if err != nil {
		return nil, appErrors.Clone(appErrors.ErrValidation, "invalid to date")
	}
	if to.Before(from) {
		return nil, appErrors.Clone(appErrors.ErrValidation, "date range is inverted")
	}

	airlineCode := req.AirlineCode
	if claims.Role == models.RoleAirlineOps {
		code := claims.AirlineCode
		airlineCode = &code
	}

	job := &models.ExportJob{
		RequestedBy: claims.Username,
		Format:      models.ExportFormat(req.Format),
		AirlineCode: airlineCode,
		FromDate:    from,
		ToDate:      to,
		Status:      models.ExportStatusPending,
	}
	if err := s.exports.Create(ctx, job); err != nil {
		return nil, fmt.Errorf("create export job: %w", err)
	}

	if _, err := s.queue.Enqueue(jobs.Job{
		Type:    JobExportRender,
		Payload: map[string]interface{}{"jobId": job.ID.String()},
	}); err != nil {
		return nil, fmt.Errorf("queue export job: %w", err)
	}
	return job, nil
}

// Get returns one export job.
func (s *ExportService) Get(ctx context.Context, id uuid.UUID) (*models.ExportJob, error) {
	job, err := s.exports.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, appErrors.ErrNotFound
		}
		return nil, fmt.Errorf("get export job: %w", err)
	}
	return job, nil
}

// ExportWorker renders queued exports.
type ExportWorker struct {
	service *ExportService
	logger  *zap.Logger
}

// NewExportWorker constructs the worker.
func NewExportWorker(service *ExportService, logger *zap.Logger) *ExportWorker {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ExportWorker{service: service, logger: logger}
}

// Handle renders one queued export job.
func (w *ExportWorker) Handle(ctx context.Context, job jobs.Job) error {
	id, err := uuid.Parse(stringPayload(job.Payload, "jobId"))
	if err != nil {
		return fmt.Errorf("export job missing id: %w", err)
	}
	return w.service.render(ctx, id)
}

func (s *ExportService) render(ctx context.Context, id uuid.UUID) error {
	job, err := s.exports.GetByID(ctx, id)
	if err != nil {
		return fmt.Errorf("load export job: %w", err)
	}

	running := models.ExportStatusRunning
	if err := s.exports.Update(ctx, id, repository.UpdateExportJobParams{Status: &running}); err != nil {
		return fmt.Errorf("mark export running: %w", err)
	}

	airline := ""
	if job.AirlineCode != nil {
		airline = *job.AirlineCode
	}
	flights, err := s.flights.ListBetween(ctx, job.FromDate, job.ToDate, airline)
	if err != nil {
		return s.fail(ctx, id, err)
	}

	data := scheduleDataset(flights)
	title := fmt.Sprintf("Flight Schedule %s to %s",
		job.FromDate.Format("2006-01-02"), job.ToDate.Format("2006-01-02"))

	var rendered []byte
	switch job.Format {
	case models.ExportFormatPDF:
		rendered, err = s.pdf.Render(data, title)
	default:
		rendered, err = s.csv.Render(data)
	}
	if err != nil {
		return s.fail(ctx, id, err)
	}

	relPath := fmt.Sprintf("exports/%s.%s", job.ID, job.Format)
	if _, err := s.store.Save(relPath, rendered); err != nil {
		return s.fail(ctx, id, err)
	}

	token := s.signer.Sign(job.ID.String(), relPath)
	completed := models.ExportStatusCompleted
	now := time.Now().UTC()
	if err := s.exports.Update(ctx, id, repository.UpdateExportJobParams{
		Status:        &completed,
		FilePath:      &relPath,
		DownloadToken: &token,
		CompletedAt:   &now,
	}); err != nil {
		return fmt.Errorf("mark export completed: %w", err)
	}

	s.logger.Info("export rendered",
		zap.String("job_id", job.ID.String()),
		zap.String("format", string(job.Format)),
		zap.Int("flights", len(flights)))
	return nil
}

func (s *ExportService) fail(ctx context.Context, id uuid.UUID, cause error) error {
	failed := models.ExportStatusFailed
	msg := cause.Error()
	now := time.Now().UTC()
	if err := s.exports.Update(ctx, id, repository.UpdateExportJobParams{
		Status:       &failed,
		ErrorMessage: &msg,
		CompletedAt:  &now,
	}); err != nil {
		s.logger.Error("mark export failed", zap.String("job_id", id.String()), zap.Error(err))
	}
	return fmt.Errorf("render export %s: %w", id, cause)
}

func scheduleDataset(flights []models.Flight) export.Dataset {
	headers := []string{"Flight", "Airline", "Date", "Departure", "Arrival", "Origin", "Destination", "Aircraft", "Status"}
	rows := make([]map[string]string, 0, len(flights))
	for _, f := range flights {
		rows = append(rows, map[string]string{
			"Flight":      f.FlightNumber,
			"Airline":     f.AirlineCode,
			"Date":        f.FlightDate.Format("2006-01-02"),
			"Departure":   f.Departure.Format("15:04"),
			"Arrival":     f.Arrival.Format("15:04"),
			"Origin":      f.OriginICAO,
			"Destination": f.DestICAO,
			"Aircraft":    f.AircraftType,
			"Status":      string(f.Status),
		})
	}
	return export.Dataset{Headers: headers, Rows: rows}
}
