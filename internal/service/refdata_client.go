package service

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/sony/gobreaker"
	"go.uber.org/zap"

	"github.com/flightmgmt/flight-ops-api/internal/models"
	"github.com/flightmgmt/flight-ops-api/pkg/config"
)

// ErrReferenceNotFound marks a definitive upstream miss, as opposed to a
// transport or availability failure.
var ErrReferenceNotFound = fmt.Errorf("reference entity not found")

// ReferenceClient fetches reference data from the upstream reference
// manager. Calls run through a circuit breaker so a failing upstream stops
// consuming request budget.
type ReferenceClient struct {
	baseURL    string
	httpClient *http.Client
	breaker    *gobreaker.CircuitBreaker
	maxRetries int
	logger     *zap.Logger
}

// NewReferenceClient constructs the client from configuration.
func NewReferenceClient(cfg config.ReferenceManagerConfig, logger *zap.Logger) *ReferenceClient {
	if logger == nil {
		logger = zap.NewNop()
	}

	settings := gobreaker.Settings{
		Name:    "reference-manager",
		Timeout: cfg.BreakerCooldown,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			if counts.Requests < uint32(cfg.BreakerMinRequests) {
				return false
			}
			ratio := float64(counts.TotalFailures) / float64(counts.Requests)
			return ratio >= cfg.BreakerFailureRatio
		},
		MaxRequests: uint32(cfg.BreakerProbes),
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("reference breaker state change",
				zap.String("breaker", name),
				zap.String("from", from.String()),
				zap.String("to", to.String()))
		},
	}

	return &ReferenceClient{
		baseURL:    cfg.BaseURL,
		httpClient: &http.Client{Timeout: cfg.RequestTimeout},
		breaker:    gobreaker.NewCircuitBreaker(settings),
		maxRetries: cfg.MaxRetries,
		logger:     logger,
	}
}

type referencePayload struct {
	ID     string `json:"id"`
	Code   string `json:"code"`
	Name   string `json:"name"`
	Active bool   `json:"active"`
}

// FetchByID retrieves one entity by upstream identifier.
func (c *ReferenceClient) FetchByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.ReferenceEntity, error) {
	endpoint := fmt.Sprintf("%s/api/v1/%ss/%s", c.baseURL, kind, url.PathEscape(id))
	return c.fetch(ctx, kind, endpoint)
}

// FetchByCode retrieves one entity by its public code.
func (c *ReferenceClient) FetchByCode(ctx context.Context, kind models.ReferenceKind, code string) (*models.ReferenceEntity, error) {
	endpoint := fmt.Sprintf("%s/api/v1/%ss/code/%s", c.baseURL, kind, url.PathEscape(code))
	return c.fetch(ctx, kind, endpoint)
}

func (c *ReferenceClient) fetch(ctx context.Context, kind models.ReferenceKind, endpoint string) (*models.ReferenceEntity, error) {
	// A definitive 404 is a successful call from the breaker's point of
	// view; only transport and availability failures should trip it.
	result, err := c.breaker.Execute(func() (interface{}, error) {
		var lastErr error
		for attempt := 0; attempt <= c.maxRetries; attempt++ {
			entity, err := c.doFetch(ctx, kind, endpoint)
			if err == nil {
				return entity, nil
			}
			if err == ErrReferenceNotFound {
				return (*models.ReferenceEntity)(nil), nil
			}
			lastErr = err
			select {
			case <-ctx.Done():
				return nil, ctx.Err()
			case <-time.After(time.Duration(attempt+1) * 200 * time.Millisecond):
			}
		}
		return nil, lastErr
	})
	if err != nil {
		return nil, err
	}
	entity := result.(*models.ReferenceEntity)
	if entity == nil {
		return nil, ErrReferenceNotFound
	}
	return entity, nil
}

func (c *ReferenceClient) doFetch(ctx context.Context, kind models.ReferenceKind, endpoint string) (*models.ReferenceEntity, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return nil, fmt.Errorf("build reference request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("reference request: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusNotFound:
		return nil, ErrReferenceNotFound
	case resp.StatusCode != http.StatusOK:
		io.Copy(io.Discard, resp.Body)
		return nil, fmt.Errorf("reference request returned %d", resp.StatusCode)
	}

	var payload referencePayload
	if err := json.NewDecoder(resp.Body).Decode(&payload); err != nil {
		return nil, fmt.Errorf("decode reference response: %w", err)
	}

	return &models.ReferenceEntity{
		ID:     payload.ID,
		Kind:   kind,
		Code:   payload.Code,
		Name:   payload.Name,
		Active: payload.Active,
		Origin: models.OriginLive,
	}, nil
}
