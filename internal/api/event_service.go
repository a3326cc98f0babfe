package api

import (
	"encoding/json"

	"github.com/google/uuid"
	"github.com/matheus3301/sigma/internal/bus"
	"go.uber.org/zap"
)

// EventService implements sigma.v1.EventService.
type EventService struct {
	bus    *bus.Bus
	logger *zap.Logger
}

// NewEventService creates a new event service.
func NewEventService(b *bus.Bus, logger *zap.Logger) *EventService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &EventService{bus: b, logger: logger}
}

// Watch streams bus events until the client goes away.
func (s *EventService) Watch(req *WatchRequest, stream EventStream) error {
	ch, unsub := s.bus.Subscribe(req.Prefix, 256)
	defer unsub()

	for {
		select {
		case evt := <-ch:
			payload, err := json.Marshal(evt.Payload)
			if err != nil {
				s.logger.Warn("unencodable event payload", zap.String("kind", evt.Kind), zap.Error(err))
				payload = nil
			}
			if err := stream.Send(&Event{
				ID:           uuid.New().String(),
				Kind:         evt.Kind,
				OccurredAtMs: evt.Timestamp.UnixMilli(),
				Payload:      payload,
			}); err != nil {
				return err
			}
		case <-stream.Context().Done():
			return nil
		}
	}
}
