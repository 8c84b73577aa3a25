package response

import (
	"net/http"

	"github.com/gin-gonic/gin"

	appErrors "github.com/flightmgmt/flight-ops-api/pkg/errors"
)

// Envelope is the standard response wrapper for all endpoints.
type Envelope struct {
	Data       interface{} `json:"data,omitempty"`
	Error      *ErrorBody  `json:"error,omitempty"`
	Pagination *Pagination `json:"pagination,omitempty"`
	Meta       interface{} `json:"meta,omitempty"`
}

// ErrorBody carries the machine readable error payload.
type ErrorBody struct {
	Code    string `json:"code"`
	Message string `json:"message"`
}

// Pagination describes the page window of a list response.
type Pagination struct {
	Page       int   `json:"page"`
	PageSize   int   `json:"pageSize"`
	TotalItems int64 `json:"totalItems"`
	TotalPages int   `json:"totalPages"`
}

// JSON writes a 200 response with the given payload.
func JSON(c *gin.Context, data interface{}) {
	c.JSON(http.StatusOK, Envelope{Data: data})
}

// Created writes a 201 response with the given payload.
func Created(c *gin.Context, data interface{}) {
	c.JSON(http.StatusCreated, Envelope{Data: data})
}

// Accepted writes a 202 response for asynchronous operations.
func Accepted(c *gin.Context, data interface{}) {
	c.JSON(http.StatusAccepted, Envelope{Data: data})
}

// NoContent writes an empty 204 response.
func NoContent(c *gin.Context) {
	c.Status(http.StatusNoContent)
}

// Paginated writes a 200 response with pagination metadata.
func Paginated(c *gin.Context, data interface{}, p Pagination) {
	c.JSON(http.StatusOK, Envelope{Data: data, Pagination: &p})
}

// Error maps any error onto the envelope, normalising unknown errors to 500.
func Error(c *gin.Context, err error) {
	appErr := appErrors.FromError(err)
	c.JSON(appErr.Status, Envelope{Error: &ErrorBody{
		Code:    appErr.Code,
		Message: appErr.Message,
	}})
}
