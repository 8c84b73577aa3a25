package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/flightmgmt/flight-ops-api/internal/dto"
	"github.com/flightmgmt/flight-ops-api/internal/models"
	appErrors "github.com/flightmgmt/flight-ops-api/pkg/errors"
	"github.com/flightmgmt/flight-ops-api/pkg/response"
)

type flightService interface {
	Create(ctx context.Context, req dto.CreateFlightRequest, claims *models.JWTClaims) (*models.Flight, []models.Conflict, error)
	Get(ctx context.Context, id uuid.UUID) (*models.Flight, error)
	List(ctx context.Context, filter dto.FlightFilter, page models.PageRequest, claims *models.JWTClaims) ([]models.Flight, int64, error)
	Update(ctx context.Context, id uuid.UUID, req dto.UpdateFlightRequest, claims *models.JWTClaims) (*models.Flight, []models.Conflict, error)
	UpdateStatus(ctx context.Context, id uuid.UUID, req dto.UpdateStatusRequest, claims *models.JWTClaims) (*models.Flight, error)
	Delete(ctx context.Context, id uuid.UUID, claims *models.JWTClaims) error
	History(ctx context.Context, id uuid.UUID) (*dto.VersionHistoryResponse, error)
	LiveBoard(ctx context.Context, station string) ([]models.Flight, error)
	Dashboard(ctx context.Context) (*dto.DashboardOverview, error)
}

// FlightHandler exposes flight CRUD, status and dashboard endpoints.
type FlightHandler struct {
	flights flightService
}

// NewFlightHandler constructs handler.
func NewFlightHandler(flights flightService) *FlightHandler {
	return &FlightHandler{flights: flights}
}

// Create godoc
// @Summary Create flight
// @Tags Flights
// @Accept json
// @Produce json
// @Param payload body dto.CreateFlightRequest true "Flight payload"
// @Success 201 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /flights [post]
func (h *FlightHandler) Create(c *gin.Context) {
	var req dto.CreateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	flight, conflicts, err := h.flights.Create(c.Request.Context(), req, claimsFromContext(c))
	if err != nil {
		if errors.Is(err, appErrors.ErrFlightConflict) {
			writeConflicts(c, conflicts)
			return
		}
		response.Error(c, err)
		return
	}
	response.Created(c, dto.NewFlightResponse(*flight))
}

// List godoc
// @Summary List flights
// @Tags Flights
// @Produce json
// @Param airlineCode query string false "Filter by airline"
// @Param originIcao query string false "Filter by origin station"
// @Param destIcao query string false "Filter by destination station"
// @Param status query string false "Filter by status"
// @Param dateFrom query string false "Filter by date (inclusive)"
// @Param dateTo query string false "Filter by date (inclusive)"
// @Param page query int false "Page"
// @Param limit query int false "Page size"
// @Success 200 {object} response.Envelope
// @Router /flights [get]
func (h *FlightHandler) List(c *gin.Context) {
	var filter dto.FlightFilter
	filter.AirlineCode = c.Query("airlineCode")
	filter.OriginICAO = c.Query("originIcao")
	filter.DestICAO = c.Query("destIcao")
	filter.Status = c.Query("status")
	if from, err := time.Parse("2006-01-02", c.Query("dateFrom")); err == nil {
		filter.DateFrom = &from
	}
	if to, err := time.Parse("2006-01-02", c.Query("dateTo")); err == nil {
		filter.DateTo = &to
	}

	page := pageFromQuery(c)
	flights, total, err := h.flights.List(c.Request.Context(), filter, page, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}

	items := make([]dto.FlightResponse, 0, len(flights))
	for _, f := range flights {
		items = append(items, dto.NewFlightResponse(f))
	}
	response.Paginated(c, items, paginationFor(page, total))
}

// Get godoc
// @Summary Get flight
// @Tags Flights
// @Produce json
// @Param id path string true "Flight ID"
// @Success 200 {object} response.Envelope
// @Router /flights/{id} [get]
func (h *FlightHandler) Get(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid flight id"))
		return
	}
	flight, err := h.flights.Get(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, dto.NewFlightResponse(*flight))
}

// Update godoc
// @Summary Update flight
// @Tags Flights
// @Accept json
// @Produce json
// @Param id path string true "Flight ID"
// @Param payload body dto.UpdateFlightRequest true "Update payload"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /flights/{id} [put]
func (h *FlightHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid flight id"))
		return
	}
	var req dto.UpdateFlightRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	flight, conflicts, err := h.flights.Update(c.Request.Context(), id, req, claimsFromContext(c))
	if err != nil {
		if errors.Is(err, appErrors.ErrFlightConflict) {
			writeConflicts(c, conflicts)
			return
		}
		response.Error(c, err)
		return
	}
	response.JSON(c, dto.NewFlightResponse(*flight))
}

// UpdateStatus godoc
// @Summary Update flight status
// @Tags Flights
// @Accept json
// @Produce json
// @Param id path string true "Flight ID"
// @Param payload body dto.UpdateStatusRequest true "Status payload"
// @Success 200 {object} response.Envelope
// @Router /flights/{id}/status [patch]
func (h *FlightHandler) UpdateStatus(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid flight id"))
		return
	}
	var req dto.UpdateStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Wrap(err, appErrors.ErrValidation.Code, http.StatusBadRequest, "invalid payload"))
		return
	}

	flight, err := h.flights.UpdateStatus(c.Request.Context(), id, req, claimsFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, dto.NewFlightResponse(*flight))
}

// Delete godoc
// @Summary Soft delete flight
// @Tags Flights
// @Produce json
// @Param id path string true "Flight ID"
// @Success 204
// @Router /flights/{id} [delete]
func (h *FlightHandler) Delete(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid flight id"))
		return
	}
	if err := h.flights.Delete(c.Request.Context(), id, claimsFromContext(c)); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// History godoc
// @Summary Flight version history
// @Tags Flights
// @Produce json
// @Param id path string true "Flight ID"
// @Success 200 {object} response.Envelope
// @Router /flights/{id}/history [get]
func (h *FlightHandler) History(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid flight id"))
		return
	}
	history, err := h.flights.History(c.Request.Context(), id)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, history)
}

// LiveBoard godoc
// @Summary Today's live departure/arrival board
// @Tags Flights
// @Produce json
// @Param station query string false "Filter by station ICAO"
// @Success 200 {object} response.Envelope
// @Router /flights/live [get]
func (h *FlightHandler) LiveBoard(c *gin.Context) {
	flights, err := h.flights.LiveBoard(c.Request.Context(), c.Query("station"))
	if err != nil {
		response.Error(c, err)
		return
	}
	items := make([]dto.FlightResponse, 0, len(flights))
	for _, f := range flights {
		items = append(items, dto.NewFlightResponse(f))
	}
	response.JSON(c, items)
}

// Dashboard godoc
// @Summary Today's operational overview
// @Tags Flights
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /flights/dashboard [get]
func (h *FlightHandler) Dashboard(c *gin.Context) {
	overview, err := h.flights.Dashboard(c.Request.Context())
	if err != nil {
		response.Error(c, err)
		return
	}
	response.JSON(c, overview)
}

func writeConflicts(c *gin.Context, conflicts []models.Conflict) {
	c.JSON(http.StatusConflict, response.Envelope{
		Data: gin.H{"conflicts": conflicts},
		Error: &response.ErrorBody{
			Code:    appErrors.ErrFlightConflict.Code,
			Message: appErrors.ErrFlightConflict.Message,
		},
	})
}

func pageFromQuery(c *gin.Context) models.PageRequest {
	page := models.PageRequest{Page: 1, PageSize: 20}
	if p, err := strconv.Atoi(c.DefaultQuery("page", "1")); err == nil {
		page.Page = p
	}
	if limit, err := strconv.Atoi(c.DefaultQuery("limit", "20")); err == nil {
		page.PageSize = limit
	}
	return page.Normalize()
}

func paginationFor(page models.PageRequest, total int64) response.Pagination {
	totalPages := int((total + int64(page.PageSize) - 1) / int64(page.PageSize))
	return response.Pagination{
		Page:       page.Page,
		PageSize:   page.PageSize,
		TotalItems: total,
		TotalPages: totalPages,
	}
}
