package session

import (
	"context"
	"encoding/json"
	"fmt"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/harshitk99/excali-new/internal/metrics"
	"github.com/harshitk99/excali-new/internal/models"
)

// Delivery summarises one fan-out.
type Delivery struct {
	Attempted int
	Failed    int
}

// Broadcaster fans frames out to room members. Delivery is best effort: a
// failed send is logged and counted and never retried.
type Broadcaster struct {
	registry *Registry
	logger   *zap.Logger
}

func NewBroadcaster(registry *Registry, logger *zap.Logger) *Broadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Broadcaster{registry: registry, logger: logger}
}

// Broadcast marshals frame once and sends it to every session joined to room
// when the call is made.
func (b *Broadcaster) Broadcast(ctx context.Context, room models.RoomID, frame any, opts ...MemberOption) (Delivery, error) {
	payload, err := json.Marshal(frame)
	if err != nil {
		return Delivery{}, fmt.Errorf("marshal frame: %w", err)
	}

	var d Delivery
	for _, s := range b.registry.RoomMembers(room, opts...) {
		d.Attempted++
		if err := s.Client.Send(payload); err != nil {
			d.Failed++
			b.logger.Debug("broadcast send failed",
				zap.String("session", s.ID),
				zap.Int64("room", int64(room)),
				zap.Error(err))
		}
	}
	metrics.ObserveFrames(d.Attempted-d.Failed, d.Failed)
	trace.SpanFromContext(ctx).AddEvent("broadcast", trace.WithAttributes(
		attribute.Int64("room", int64(room)),
		attribute.Int("attempted", d.Attempted),
		attribute.Int("failed", d.Failed),
	))
	return d, nil
}

// SendTo delivers frame to a single session.
func (b *Broadcaster) SendTo(s *Session, frame any) error {
	payload, err := json.Marshal(frame)
	if err != nil {
		return fmt.Errorf("marshal frame: %w", err)
	}
	if err := s.Client.Send(payload); err != nil {
		metrics.ObserveFrames(0, 1)
		return err
	}
	metrics.ObserveFrames(1, 0)
	return nil
}
