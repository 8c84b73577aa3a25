package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/stretchr/testify/require"

	"github.com/flightmgmt/flight-ops-api/internal/dto"
	"github.com/flightmgmt/flight-ops-api/internal/middleware"
	"github.com/flightmgmt/flight-ops-api/internal/models"
	appErrors "github.com/flightmgmt/flight-ops-api/pkg/errors"
)

type flightServiceMock struct {
	flight    *models.Flight
	conflicts []models.Conflict
	flights   []models.Flight
	total     int64
	history   *dto.VersionHistoryResponse
	overview  *dto.DashboardOverview
	err       error
}

func (m *flightServiceMock) Create(ctx context.Context, req dto.CreateFlightRequest, claims *models.JWTClaims) (*models.Flight, []models.Conflict, error) {
	return m.flight, m.conflicts, m.err
}

func (m *flightServiceMock) Get(ctx context.Context, id uuid.UUID) (*models.Flight, error) {
	return m.flight, m.err
}

func (m *flightServiceMock) List(ctx context.Context, filter dto.FlightFilter, page models.PageRequest, claims *models.JWTClaims) ([]models.Flight, int64, error) {
	return m.flights, m.total, m.err
}

func (m *flightServiceMock) Update(ctx context.Context, id uuid.UUID, req dto.UpdateFlightRequest, claims *models.JWTClaims) (*models.Flight, []models.Conflict, error) {
	return m.flight, m.conflicts, m.err
}

func (m *flightServiceMock) UpdateStatus(ctx context.Context, id uuid.UUID, req dto.UpdateStatusRequest, claims *models.JWTClaims) (*models.Flight, error) {
	return m.flight, m.err
}

func (m *flightServiceMock) Delete(ctx context.Context, id uuid.UUID, claims *models.JWTClaims) error {
	return m.err
}

func (m *flightServiceMock) History(ctx context.Context, id uuid.UUID) (*dto.VersionHistoryResponse, error) {
	return m.history, m.err
}

func (m *flightServiceMock) LiveBoard(ctx context.Context, station string) ([]models.Flight, error) {
	return m.flights, m.err
}

func (m *flightServiceMock) Dashboard(ctx context.Context) (*dto.DashboardOverview, error) {
	return m.overview, m.err
}

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func testFlight() *models.Flight {
	date := time.Date(2026, 9, 1, 0, 0, 0, 0, time.UTC)
	return &models.Flight{
		ID:           uuid.New(),
		FlightNumber: "GA100",
		AirlineCode:  "GA",
		AircraftType: "B738",
		FlightDate:   date,
		Departure:    date.Add(8 * time.Hour),
		Arrival:      date.Add(10 * time.Hour),
		OriginICAO:   "WIII",
		DestICAO:     "WADD",
		FlightType:   models.FlightTypePassenger,
		Status:       models.FlightStatusScheduled,
		Version:      1,
		IsActive:     true,
	}
}

func createPayload() []byte {
	payload, _ := json.Marshal(dto.CreateFlightRequest{
		FlightNumber: "GA100",
		AirlineCode:  "GA",
		AircraftType: "B738",
		FlightDate:   "2026-09-01",
		Departure:    "08:00",
		Arrival:      "10:00",
		OriginICAO:   "WIII",
		DestICAO:     "WADD",
		FlightType:   "PASSENGER",
	})
	return payload
}

func TestFlightHandlerCreate(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFlightHandler(&flightServiceMock{flight: testFlight()})

	c, w := newGinContext(http.MethodPost, "/flights", createPayload())
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Username: "admin", Role: models.RoleAdmin})

	handler.Create(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Contains(t, w.Body.String(), "GA100")
}

func TestFlightHandlerCreateConflict(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFlightHandler(&flightServiceMock{
		conflicts: []models.Conflict{{
			Type:         models.ConflictSlotConflict,
			Severity:     models.SeverityMedium,
			FlightNumber: "GA100",
		}},
		err: appErrors.ErrFlightConflict,
	})

	c, w := newGinContext(http.MethodPost, "/flights", createPayload())
	c.Set(middleware.ContextUserKey, &models.JWTClaims{Username: "admin", Role: models.RoleAdmin})

	handler.Create(c)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), "SLOT_CONFLICT")
}

func TestFlightHandlerCreateRejectsBadPayload(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFlightHandler(&flightServiceMock{})

	c, w := newGinContext(http.MethodPost, "/flights", []byte(`{"flightNumber":"GA100"}`))
	handler.Create(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFlightHandlerGetInvalidID(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFlightHandler(&flightServiceMock{})

	c, w := newGinContext(http.MethodGet, "/flights/nope", nil)
	c.Params = gin.Params{{Key: "id", Value: "nope"}}

	handler.Get(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestFlightHandlerListPaginates(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFlightHandler(&flightServiceMock{
		flights: []models.Flight{*testFlight()},
		total:   41,
	})

	c, w := newGinContext(http.MethodGet, "/flights?page=2&limit=20", nil)
	handler.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"totalItems":41`)
	require.Contains(t, w.Body.String(), `"totalPages":3`)
}

func TestFlightHandlerUpdateStatus(t *testing.T) {
	gin.SetMode(gin.TestMode)
	flight := testFlight()
	flight.Status = models.FlightStatusDelayed
	handler := NewFlightHandler(&flightServiceMock{flight: flight})

	payload, _ := json.Marshal(dto.UpdateStatusRequest{Status: "DELAYED"})
	c, w := newGinContext(http.MethodPatch, "/flights/"+flight.ID.String()+"/status", payload)
	c.Params = gin.Params{{Key: "id", Value: flight.ID.String()}}

	handler.UpdateStatus(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), "DELAYED")
}

func TestFlightHandlerDelete(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFlightHandler(&flightServiceMock{})

	id := uuid.New()
	c, w := newGinContext(http.MethodDelete, "/flights/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	handler.Delete(c)
	c.Writer.WriteHeaderNow()
	require.Equal(t, http.StatusNoContent, w.Code)
}

func TestFlightHandlerDeleteForbidden(t *testing.T) {
	gin.SetMode(gin.TestMode)
	handler := NewFlightHandler(&flightServiceMock{err: appErrors.ErrForbidden})

	id := uuid.New()
	c, w := newGinContext(http.MethodDelete, "/flights/"+id.String(), nil)
	c.Params = gin.Params{{Key: "id", Value: id.String()}}

	handler.Delete(c)
	require.Equal(t, http.StatusForbidden, w.Code)
}
