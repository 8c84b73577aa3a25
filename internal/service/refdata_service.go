package service

import (
	"context"
	"fmt"
	"time"

	gocache "github.com/patrickmn/go-cache"
	"go.uber.org/zap"

	"github.com/flightmgmt/flight-ops-api/internal/models"
	"github.com/flightmgmt/flight-ops-api/pkg/config"
)

// ReferenceFetcher is the upstream surface of the reference data service.
type ReferenceFetcher interface {
	FetchByID(ctx context.Context, kind models.ReferenceKind, id string) (*models.ReferenceEntity, error)
	FetchByCode(ctx context.Context, kind models.ReferenceKind, code string) (*models.ReferenceEntity, error)
}

// SharedCache is the distributed cache layer behind the in-process one.
type SharedCache interface {
	Get(ctx context.Context, key string, dest interface{}) error
	Set(ctx context.Context, key string, value interface{}, ttl time.Duration) error
	DeleteByPattern(ctx context.Context, pattern string) error
}

// ReferenceService resolves airlines, stations and aircraft types through a
// two layer cache (in-process, then Redis) in front of the reference
// manager. Lookups degrade to cached and finally sentinel values, so Get
// methods never fail a caller on upstream trouble.
type ReferenceService struct {
	client  ReferenceFetcher
	local   *gocache.Cache
	shared  SharedCache
	cfg     config.ReferenceManagerConfig
	metrics *MetricsService
	logger  *zap.Logger
}

// NewReferenceService constructs the service.
func NewReferenceService(client ReferenceFetcher, shared SharedCache, cfg config.ReferenceManagerConfig, metrics *MetricsService, logger *zap.Logger) *ReferenceService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &ReferenceService{
		client:  client,
		local:   gocache.New(cfg.LocalTTL, 2*cfg.LocalTTL),
		shared:  shared,
		cfg:     cfg,
		metrics: metrics,
		logger:  logger,
	}
}

// GetAirline resolves an airline by its two letter code.
func (s *ReferenceService) GetAirline(ctx context.Context, code string) models.ReferenceEntity {
	return s.resolveByCode(ctx, models.ReferenceAirline, code, false)
}

// GetStation resolves a station by ICAO code. The destination flag selects
// the alternate sentinel so degraded routes stay readable.
func (s *ReferenceService) GetStation(ctx context.Context, icao string, destination bool) models.ReferenceEntity {
	return s.resolveByCode(ctx, models.ReferenceStation, icao, destination)
}

// GetAircraft resolves an aircraft type by its type code.
func (s *ReferenceService) GetAircraft(ctx context.Context, typeCode string) models.ReferenceEntity {
	return s.resolveByCode(ctx, models.ReferenceAircraft, typeCode, false)
}

// GetByID resolves an entity by its upstream identifier, walking the same
// cache ladder as the code lookups.
func (s *ReferenceService) GetByID(ctx context.Context, kind models.ReferenceKind, id string) models.ReferenceEntity {
	if id == "" {
		return s.fallback(kind, false)
	}
	key := idKey(kind, id)

	if cached, ok := s.local.Get(key); ok {
		entity := cached.(models.ReferenceEntity)
		entity.Origin = models.OriginCache
		s.metrics.RecordReferenceLookup(string(kind), string(models.OriginCache))
		return entity
	}

	var entity models.ReferenceEntity
	if err := s.shared.Get(ctx, key, &entity); err == nil {
		entity.Origin = models.OriginCache
		s.local.Set(key, entity, gocache.DefaultExpiration)
		s.metrics.RecordReferenceLookup(string(kind), string(models.OriginCache))
		return entity
	}

	fetched, err := s.client.FetchByID(ctx, kind, id)
	if err != nil {
		if err != ErrReferenceNotFound {
			s.logger.Warn("reference lookup degraded to fallback",
				zap.String("kind", string(kind)),
				zap.String("id", id),
				zap.Error(err))
		}
		return s.fallback(kind, false)
	}

	s.store(ctx, *fetched)
	s.metrics.RecordReferenceLookup(string(kind), string(models.OriginLive))
	return *fetched
}

// resolveByCode walks the lookup ladder: in-process cache, shared cache,
// live upstream, then sentinel fallback.
func (s *ReferenceService) resolveByCode(ctx context.Context, kind models.ReferenceKind, code string, destination bool) models.ReferenceEntity {
	if code == "" {
		return s.fallback(kind, destination)
	}
	key := codeKey(kind, code)

	if cached, ok := s.local.Get(key); ok {
		entity := cached.(models.ReferenceEntity)
		entity.Origin = models.OriginCache
		s.metrics.RecordReferenceLookup(string(kind), string(models.OriginCache))
		return entity
	}

	var entity models.ReferenceEntity
	if err := s.shared.Get(ctx, key, &entity); err == nil {
		entity.Origin = models.OriginCache
		s.local.Set(key, entity, gocache.DefaultExpiration)
		s.metrics.RecordReferenceLookup(string(kind), string(models.OriginCache))
		return entity
	}

	fetched, err := s.client.FetchByCode(ctx, kind, code)
	if err != nil {
		if err != ErrReferenceNotFound {
			s.logger.Warn("reference lookup degraded to fallback",
				zap.String("kind", string(kind)),
				zap.String("code", code),
				zap.Error(err))
		}
		return s.fallback(kind, destination)
	}

	s.store(ctx, *fetched)
	s.metrics.RecordReferenceLookup(string(kind), string(models.OriginLive))
	return *fetched
}

func (s *ReferenceService) fallback(kind models.ReferenceKind, destination bool) models.ReferenceEntity {
	s.metrics.RecordReferenceLookup(string(kind), string(models.OriginFallback))
	return models.FallbackFor(kind, destination)
}

// store writes the entity under both its ID and code keys in both layers.
func (s *ReferenceService) store(ctx context.Context, entity models.ReferenceEntity) {
	ttl := s.ttlFor(entity.Kind)
	keys := []string{codeKey(entity.Kind, entity.Code)}
	if entity.ID != "" {
		keys = append(keys, idKey(entity.Kind, entity.ID))
	}
	for _, key := range keys {
		s.local.Set(key, entity, gocache.DefaultExpiration)
		if err := s.shared.Set(ctx, key, entity, ttl); err != nil {
			s.logger.Warn("shared reference cache write failed", zap.String("key", key), zap.Error(err))
		}
	}
}

// Invalidate evicts one entity from both cache layers.
func (s *ReferenceService) Invalidate(ctx context.Context, kind models.ReferenceKind, id string) error {
	s.local.Flush()
	if err := s.shared.DeleteByPattern(ctx, idKey(kind, id)); err != nil {
		return fmt.Errorf("invalidate reference %s:%s: %w", kind, id, err)
	}
	if err := s.shared.DeleteByPattern(ctx, string(kind)+":code:*"); err != nil {
		return fmt.Errorf("invalidate reference codes for %s: %w", kind, err)
	}
	s.logger.Info("reference cache invalidated", zap.String("kind", string(kind)), zap.String("id", id))
	return nil
}

// InvalidateAll clears all reference data from both layers.
func (s *ReferenceService) InvalidateAll(ctx context.Context) error {
	s.local.Flush()
	for _, kind := range []models.ReferenceKind{models.ReferenceAirline, models.ReferenceStation, models.ReferenceAircraft} {
		if err := s.shared.DeleteByPattern(ctx, string(kind)+":*"); err != nil {
			return fmt.Errorf("invalidate all %s: %w", kind, err)
		}
	}
	s.logger.Info("reference cache fully invalidated")
	return nil
}

func (s *ReferenceService) ttlFor(kind models.ReferenceKind) time.Duration {
	switch kind {
	case models.ReferenceAirline:
		return s.cfg.AirlineTTL
	case models.ReferenceStation:
		return s.cfg.StationTTL
	default:
		return s.cfg.AircraftTTL
	}
}

func idKey(kind models.ReferenceKind, id string) string {
	return fmt.Sprintf("%s:%s", kind, id)
}

func codeKey(kind models.ReferenceKind, code string) string {
	return fmt.Sprintf("%s:code:%s", kind, code)
}
