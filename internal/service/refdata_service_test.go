package service

import (
	"context"
	"encoding/json"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/flightmgmt/flight-ops-api/internal/models"
	"github.com/flightmgmt/flight-ops-api/pkg/config"
	appErrors "github.com/flightmgmt/flight-ops-api/pkg/errors"
)

type stubReferenceFetcher struct {
	entities map[string]*models.ReferenceEntity
	err      error
	calls    int
}

func (s *stubReferenceFetcher) FetchByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.ReferenceEntity, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if e, ok := s.entities[fmt.Sprintf("%s:%s", kind, id)]; ok {
		return e, nil
	}
	return nil, ErrReferenceNotFound
}

func (s *stubReferenceFetcher) FetchByCode(ctx context.Context, kind models.ReferenceKind, code string) (*models.ReferenceEntity, error) {
	s.calls++
	if s.err != nil {
		return nil, s.err
	}
	if e, ok := s.entities[fmt.Sprintf("%s:code:%s", kind, code)]; ok {
		return e, nil
	}
	return nil, ErrReferenceNotFound
}

type memorySharedCache struct {
	values map[string][]byte
}

func newMemorySharedCache() *memorySharedCache {
	return &memorySharedCache{values: map[string][]byte{}}
}

func (c *memorySharedCache) Get(ctx context.Context, key string, dest interface{}) error {
	raw, ok := c.values[key]
	if !ok {
		return appErrors.ErrCacheMiss
	}
	return json.Unmarshal(raw, dest)
}

func (c *memorySharedCache) Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error {
	raw, err := json.Marshal(value)
	if err != nil {
		return err
	}
	c.values[key] = raw
	return nil
}

func (c *memorySharedCache) DeleteByPattern(ctx context.Context, pattern string) error {
	for key := range c.values {
		delete(c.values, key)
	}
	return nil
}

func refCfg() config.ReferenceManagerConfig {
	return config.ReferenceManagerConfig{
		AirlineTTL:  time.Hour,
		StationTTL:  time.Hour,
		AircraftTTL: time.Hour,
		LocalTTL:    time.Minute,
	}
}

func TestGetAirlineLiveAndCached(t *testing.T) {
	fetcher := &stubReferenceFetcher{entities: map[string]*models.ReferenceEntity{
		"airline:code:GA": {ID: "al-1", Kind: models.ReferenceAirline, Code: "GA", Name: "Garuda Indonesia", Active: true, Origin: models.OriginLive},
	}}
	svc := NewReferenceService(fetcher, newMemorySharedCache(), refCfg(), nil, nil)

	first := svc.GetAirline(context.Background(), "GA")
	require.Equal(t, "Garuda Indonesia", first.Name)
	require.Equal(t, models.OriginLive, first.Origin)
	require.Equal(t, 1, fetcher.calls)

	second := svc.GetAirline(context.Background(), "GA")
	require.Equal(t, "Garuda Indonesia", second.Name)
	require.Equal(t, models.OriginCache, second.Origin)
	require.Equal(t, 1, fetcher.calls)
}

func TestGetAirlineFallsBackOnUpstreamFailure(t *testing.T) {
	fetcher := &stubReferenceFetcher{err: fmt.Errorf("connection refused")}
	svc := NewReferenceService(fetcher, newMemorySharedCache(), refCfg(), nil, nil)

	entity := svc.GetAirline(context.Background(), "GA")
	require.Equal(t, models.FallbackAirlineCode, entity.Code)
	require.Equal(t, models.OriginFallback, entity.Origin)
}

func TestGetStationSentinelsDistinguishDirection(t *testing.T) {
	fetcher := &stubReferenceFetcher{err: fmt.Errorf("connection refused")}
	svc := NewReferenceService(fetcher, newMemorySharedCache(), refCfg(), nil, nil)

	origin := svc.GetStation(context.Background(), "WIII", false)
	dest := svc.GetStation(context.Background(), "WADD", true)
	require.Equal(t, models.FallbackStationICAO, origin.Code)
	require.Equal(t, models.FallbackDestinationICAO, dest.Code)
}

func TestGetAircraftNotFoundUsesFallback(t *testing.T) {
	fetcher := &stubReferenceFetcher{entities: map[string]*models.ReferenceEntity{}}
	svc := NewReferenceService(fetcher, newMemorySharedCache(), refCfg(), nil, nil)

	entity := svc.GetAircraft(context.Background(), "ZZZZ")
	require.Equal(t, models.FallbackAircraftName, entity.Name)
	require.Equal(t, models.OriginFallback, entity.Origin)
}

func TestSharedCacheServesAfterLocalEviction(t *testing.T) {
	fetcher := &stubReferenceFetcher{entities: map[string]*models.ReferenceEntity{
		"station:code:WIII": {ID: "st-1", Kind: models.ReferenceStation, Code: "WIII", Name: "Soekarno-Hatta", Active: true, Origin: models.OriginLive},
	}}
	shared := newMemorySharedCache()
	svc := NewReferenceService(fetcher, shared, refCfg(), nil, nil)

	svc.GetStation(context.Background(), "WIII", false)
	require.Equal(t, 1, fetcher.calls)

	// A fresh service shares nothing in-process but still hits Redis.
	svc2 := NewReferenceService(fetcher, shared, refCfg(), nil, nil)
	entity := svc2.GetStation(context.Background(), "WIII", false)
	require.Equal(t, "Soekarno-Hatta", entity.Name)
	require.Equal(t, models.OriginCache, entity.Origin)
	require.Equal(t, 1, fetcher.calls)
}

func TestInvalidateClearsBothLayers(t *testing.T) {
	fetcher := &stubReferenceFetcher{entities: map[string]*models.ReferenceEntity{
		"airline:code:GA": {ID: "al-1", Kind: models.ReferenceAirline, Code: "GA", Name: "Garuda Indonesia", Active: true, Origin: models.OriginLive},
	}}
	shared := newMemorySharedCache()
	svc := NewReferenceService(fetcher, shared, refCfg(), nil, nil)

	svc.GetAirline(context.Background(), "GA")
	require.NoError(t, svc.Invalidate(context.Background(), models.ReferenceAirline, "al-1"))

	svc.GetAirline(context.Background(), "GA")
	require.Equal(t, 2, fetcher.calls)
}

func TestEmptyCodeResolvesToFallbackWithoutUpstreamCall(t *testing.T) {
	fetcher := &stubReferenceFetcher{}
	svc := NewReferenceService(fetcher, newMemorySharedCache(), refCfg(), nil, nil)

	entity := svc.GetAirline(context.Background(), "")
	require.Equal(t, models.OriginFallback, entity.Origin)
	require.Zero(t, fetcher.calls)
}

func TestGetByIDLiveThenCached(t *testing.T) {
	fetcher := &stubReferenceFetcher{entities: map[string]*models.ReferenceEntity{
		"airline:al-1": {ID: "al-1", Kind: models.ReferenceAirline, Code: "GA", Name: "Garuda Indonesia", Active: true, Origin: models.OriginLive},
	}}
	svc := NewReferenceService(fetcher, newMemorySharedCache(), refCfg(), nil, nil)

	first := svc.GetByID(context.Background(), models.ReferenceAirline, "al-1")
	require.Equal(t, "Garuda Indonesia", first.Name)
	require.Equal(t, models.OriginLive, first.Origin)
	require.Equal(t, 1, fetcher.calls)

	second := svc.GetByID(context.Background(), models.ReferenceAirline, "al-1")
	require.Equal(t, models.OriginCache, second.Origin)
	require.Equal(t, 1, fetcher.calls)
}

func TestCodeLookupWarmsIDKey(t *testing.T) {
	fetcher := &stubReferenceFetcher{entities: map[string]*models.ReferenceEntity{
		"airline:code:GA": {ID: "al-1", Kind: models.ReferenceAirline, Code: "GA", Name: "Garuda Indonesia", Active: true, Origin: models.OriginLive},
	}}
	svc := NewReferenceService(fetcher, newMemorySharedCache(), refCfg(), nil, nil)

	svc.GetAirline(context.Background(), "GA")
	require.Equal(t, 1, fetcher.calls)

	// The code lookup stored the entity under its ID key too.
	entity := svc.GetByID(context.Background(), models.ReferenceAirline, "al-1")
	require.Equal(t, "Garuda Indonesia", entity.Name)
	require.Equal(t, models.OriginCache, entity.Origin)
	require.Equal(t, 1, fetcher.calls)
}

func TestGetByIDUpstreamFailureFallsBack(t *testing.T) {
	fetcher := &stubReferenceFetcher{err: fmt.Errorf("connection refused")}
	svc := NewReferenceService(fetcher, newMemorySharedCache(), refCfg(), nil, nil)

	entity := svc.GetByID(context.Background(), models.ReferenceStation, "st-9")
	require.Equal(t, models.OriginFallback, entity.Origin)
}
