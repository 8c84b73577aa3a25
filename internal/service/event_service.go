package service

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"

	"github.com/flightmgmt/flight-ops-api/internal/dto"
	"github.com/flightmgmt/flight-ops-api/internal/models"
	"github.com/flightmgmt/flight-ops-api/pkg/config"
)

// EventService publishes domain events to the flight event stream and
// fan-outs upload progress over pub/sub. A nil Redis client turns both into
// no-ops so unit tests and degraded deployments keep working.
type EventService struct {
	client  *redis.Client
	cfg     config.EventsConfig
	metrics *MetricsService
	logger  *zap.Logger
}

// NewEventService constructs the service.
func NewEventService(client *redis.Client, cfg config.EventsConfig, metrics *MetricsService, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{client: client, cfg: cfg, metrics: metrics, logger: logger}
}

// PublishFlightEvent appends a domain event to the flight event stream.
func (s *EventService) PublishFlightEvent(ctx context.Context, event dto.FlightEvent) {
	if s.client == nil {
		return
	}
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now().UTC()
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal flight event", zap.Error(err))
		return
	}

	err = s.client.XAdd(ctx, &redis.XAddArgs{
		Stream: s.cfg.FlightStream,
		Values: map[string]interface{}{
			"type":    event.EventType,
			"payload": payload,
		},
	}).Err()
	if err != nil {
		s.logger.Error("publish flight event",
			zap.String("event_type", event.EventType),
			zap.Error(err))
		return
	}
	s.metrics.RecordEventPublished(event.EventType)
}

// PublishProgress pushes a batch progress snapshot to its subscribers.
func (s *EventService) PublishProgress(ctx context.Context, event dto.UploadProgressEvent) {
	if s.client == nil {
		return
	}

	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Error("marshal progress event", zap.Error(err))
		return
	}

	channel := fmt.Sprintf("%s.%s", s.cfg.ProgressPrefix, event.BatchID)
	if err := s.client.Publish(ctx, channel, payload).Err(); err != nil {
		s.logger.Error("publish progress event", zap.String("channel", channel), zap.Error(err))
	}
}

// ReferenceInvalidator reacts to upstream reference data changes.
type ReferenceInvalidator interface {
	Invalidate(ctx context.Context, kind models.ReferenceKind, id string) error
	InvalidateAll(ctx context.Context) error
	GetByID(ctx context.Context, kind models.ReferenceKind, id string) models.ReferenceEntity
}

// SubscribeReferenceEvents listens on the reference change channel and
// invalidates the matching cache entries. Blocks until the context ends.
func (s *EventService) SubscribeReferenceEvents(ctx context.Context, invalidator ReferenceInvalidator) {
	if s.client == nil {
		return
	}

	sub := s.client.Subscribe(ctx, s.cfg.ReferenceChannel)
	defer sub.Close()

	s.logger.Info("subscribed to reference events", zap.String("channel", s.cfg.ReferenceChannel))

	ch := sub.Channel()
	for {
		select {
		case <-ctx.Done():
			return
		case msg, ok := <-ch:
			if !ok {
				return
			}
			s.handleReferenceEvent(ctx, invalidator, msg.Payload)
		}
	}
}

func (s *EventService) handleReferenceEvent(ctx context.Context, invalidator ReferenceInvalidator, payload string) {
	var event dto.ReferenceEvent
	if err := json.Unmarshal([]byte(payload), &event); err != nil {
		s.logger.Warn("malformed reference event", zap.Error(err))
		return
	}

	var kind models.ReferenceKind
	switch event.EntityType {
	case "AIRLINE":
		kind = models.ReferenceAirline
	case "STATION":
		kind = models.ReferenceStation
	case "AIRCRAFT_TYPE":
		kind = models.ReferenceAircraft
	default:
		if err := invalidator.InvalidateAll(ctx); err != nil {
			s.logger.Error("invalidate all reference caches", zap.Error(err))
		}
		return
	}

	if err := invalidator.Invalidate(ctx, kind, event.EntityID); err != nil {
		s.logger.Error("invalidate reference cache",
			zap.String("entity_type", event.EntityType),
			zap.String("entity_id", event.EntityID),
			zap.Error(err))
		return
	}

	// Re-warm the changed entity so the next schedule lookup starts from
	// fresh data instead of a cold miss.
	invalidator.GetByID(ctx, kind, event.EntityID)
}
