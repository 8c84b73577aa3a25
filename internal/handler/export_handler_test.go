package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"net/http"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flightmgmt/flight-ops-api/internal/dto"
	"github.com/flightmgmt/flight-ops-api/internal/middleware"
	"github.com/flightmgmt/flight-ops-api/internal/models"
	"github.com/flightmgmt/flight-ops-api/pkg/storage"
)

type exportServiceMock struct {
	job *models.ExportJob
	err error
}

func (m *exportServiceMock) Queue(ctx context.Context, req dto.ExportRequest, claims *models.JWTClaims) (*models.ExportJob, error) {
	return m.job, m.err
}

func (m *exportServiceMock) Get(ctx context.Context, id uuid.UUID) (*models.ExportJob, error) {
	return m.job, m.err
}

type verifierMock struct {
	jobID   string
	relPath string
	err     error
}

func (m *verifierMock) Verify(token string) (string, string, error) {
	return m.jobID, m.relPath, m.err
}

type openerMock struct {
	content string
	err     error
}

func (m *openerMock) Open(relPath string) (io.ReadCloser, error) {
	if m.err != nil {
		return nil, m.err
	}
	return io.NopCloser(bytes.NewBufferString(m.content)), nil
}

func TestExportHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	job := &models.ExportJob{ID: uuid.New(), Status: models.ExportStatusPending}
	handler := NewExportHandler(&exportServiceMock{job: job}, &verifierMock{}, &openerMock{})

	payload, _ := json.Marshal(dto.ExportRequest{Format: "csv", FromDate: "2026-09-01", ToDate: "2026-09-07"})
	c, w := newGinContext(http.MethodPost, "/flights/export", payload)
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Username: "admin", Role: models.RoleAdmin})

	handler.Create(c)
	require.Equal(t, http.StatusAccepted, w.Code)
	require.Contains(t, w.Body.String(), job.ID.String())
}

func TestExportHandlerStatusIncludesDownloadURL(t *testing.T) {
	gin.SetMode(gin.TestMode)
	token := "signed-token"
	now := time.Now()
	job := &models.ExportJob{
		ID:            uuid.New(),
		Status:        models.ExportStatusCompleted,
		DownloadToken: &token,
		CompletedAt:   &now,
	}
	handler := NewExportHandler(&exportServiceMock{job: job}, &verifierMock{}, &openerMock{})

	c, w := newGinContext(http.MethodGet, "/flights/export/"+job.ID.String()+"/status", nil)
	c.Params = gin.Params{{Key: "id", Value: job.ID.String()}}

	handler.Status(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "/api/v1/exports/signed-token")
}

func TestExportHandlerDownload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{}, &verifierMock{
		jobID:   "job-1",
		relPath: "exports/job-1.csv",
	}, &openerMock{content: "Flight,Airline\nGA100,GA\n"})

	c, w := newGinContext(http.MethodGet, "/exports/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.Download(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Equal(t, "text/csv", w.Header().Get("Content-Type"))
	require.Contains(t, w.Body.String(), "GA100")
}

func TestExportHandlerDownloadExpired(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewExportHandler(&exportServiceMock{}, &verifierMock{err: storage.ErrTokenExpired}, &openerMock{})

	c, w := newGinContext(http.MethodGet, "/exports/token", nil)
	c.Params = gin.Params{{Key: "token", Value: "token"}}

	handler.Download(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
