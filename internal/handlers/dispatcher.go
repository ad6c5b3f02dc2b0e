package handlers

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/harshitk99/excali-new/internal/imagegen"
	"github.com/harshitk99/excali-new/internal/metrics"
	"github.com/harshitk99/excali-new/internal/models"
	"github.com/harshitk99/excali-new/internal/protocol"
	"github.com/harshitk99/excali-new/internal/session"
	"github.com/harshitk99/excali-new/internal/telemetry"
)

// PersistenceGateway is the durable store as seen by the dispatcher.
type PersistenceGateway interface {
	CreateChat(ctx context.Context, roomID models.RoomID, userID, userName, message string) (*models.Chat, error)
	CreateDrawing(ctx context.Context, drawing *models.Drawing) (*models.Drawing, error)
	// FindDrawingByIDAndOwner returns nil, nil when no drawing matches.
	FindDrawingByIDAndOwner(ctx context.Context, id int64, userID string) (*models.Drawing, error)
	DeleteDrawing(ctx context.Context, id int64) error
	DeleteAllDrawingsInRoom(ctx context.Context, roomID models.RoomID) (int64, error)
	FindRoomAdmin(ctx context.Context, roomID models.RoomID) (adminID string, found bool, err error)
}

// errNotAuthorized marks destructive events the sender may not perform. They
// are dropped without telling the client.
var errNotAuthorized = errors.New("not authorized")

type Dispatcher struct {
	registry    *session.Registry
	broadcaster *session.Broadcaster
	store       PersistenceGateway
	images      imagegen.Provider
	placement   protocol.ImagePlacement
	logger      *zap.Logger
}

func NewDispatcher(registry *session.Registry, broadcaster *session.Broadcaster, store PersistenceGateway, images imagegen.Provider, logger *zap.Logger) *Dispatcher {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Dispatcher{
		registry:    registry,
		broadcaster: broadcaster,
		store:       store,
		images:      images,
		placement:   protocol.DefaultValues().Image,
		logger:      logger,
	}
}

// Dispatch runs ev for s to completion. Failures are logged and counted here;
// the returned error is informational and never ends the connection.
func (d *Dispatcher) Dispatch(ctx context.Context, s *session.Session, ev protocol.Event) error {
	ctx, span := telemetry.Tracer().Start(ctx, "event "+ev.Type(), trace.WithAttributes(
		attribute.String("event.type", ev.Type()),
		attribute.Int64("room.id", int64(ev.Room())),
		attribute.String("user.id", s.UserID),
		attribute.String("session.id", s.ID),
	))
	defer span.End()

	logger := d.logger.With(
		zap.String("event", ev.Type()),
		zap.String("session", s.ID),
		zap.String("user", s.UserID),
		zap.Int64("room", int64(ev.Room())),
	)

	err := ev.Dispatch(ctx, &eventHandler{d: d, s: s, logger: logger})
	switch {
	case err == nil:
		metrics.ObserveEvent(ev.Type(), metrics.OutcomeOK)
	case errors.Is(err, errNotAuthorized):
		logger.Debug("event not authorized, skipped")
		span.SetAttributes(attribute.Bool("event.denied", true))
		metrics.ObserveEvent(ev.Type(), metrics.OutcomeDenied)
	default:
		logger.Warn("event failed", zap.Error(err))
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
		metrics.ObserveEvent(ev.Type(), metrics.OutcomeFailed)
	}
	return err
}

func (d *Dispatcher) publishRoomCount() {
	metrics.SetRooms(d.registry.Stats().Rooms)
}

// eventHandler binds the dispatcher to one sending session.
type eventHandler struct {
	d      *Dispatcher
	s      *session.Session
	logger *zap.Logger
}

var _ protocol.Handler = (*eventHandler)(nil)

func (h *eventHandler) JoinRoom(_ context.Context, ev *protocol.JoinRoom) error {
	if h.d.registry.Join(h.s, ev.RoomID) {
		h.d.publishRoomCount()
	}
	return nil
}

func (h *eventHandler) LeaveRoom(_ context.Context, ev *protocol.LeaveRoom) error {
	if h.d.registry.Leave(h.s, ev.RoomID) {
		h.d.publishRoomCount()
	}
	return nil
}

func (h *eventHandler) Chat(ctx context.Context, ev *protocol.Chat) error {
	if _, err := h.d.store.CreateChat(ctx, ev.RoomID, h.s.UserID, ev.UserName, ev.Message); err != nil {
		return fmt.Errorf("persist chat: %w", err)
	}
	_, err := h.d.broadcaster.Broadcast(ctx, ev.RoomID, protocol.NewChatFrame(ev, h.s.UserID))
	return err
}

// Draw fans out to everyone but the sending session, then confirms to that
// session alone so every member sees the stored id exactly once.
func (h *eventHandler) Draw(ctx context.Context, ev *protocol.Draw) error {
	drawing, err := h.d.store.CreateDrawing(ctx, ev.Drawing(h.s.UserID))
	if err != nil {
		return fmt.Errorf("persist drawing: %w", err)
	}
	frame := protocol.NewDrawFrame(drawing)
	if _, err := h.d.broadcaster.Broadcast(ctx, ev.RoomID, frame, session.ExcludeSession(h.s)); err != nil {
		return err
	}
	if err := h.d.broadcaster.SendTo(h.s, frame); err != nil {
		h.logger.Debug("draw confirmation not delivered", zap.Error(err))
	}
	return nil
}

func (h *eventHandler) DeleteDrawing(ctx context.Context, ev *protocol.DeleteDrawing) error {
	drawing, err := h.d.store.FindDrawingByIDAndOwner(ctx, ev.DrawingID, h.s.UserID)
	if err != nil {
		return err
	}
	if drawing == nil {
		return errNotAuthorized
	}
	if err := h.d.store.DeleteDrawing(ctx, drawing.ID); err != nil {
		return err
	}
	_, err = h.d.broadcaster.Broadcast(ctx, drawing.RoomID, protocol.NewDeleteDrawingFrame(drawing))
	return err
}

func (h *eventHandler) ClearRoom(ctx context.Context, ev *protocol.ClearRoom) error {
	adminID, found, err := h.d.store.FindRoomAdmin(ctx, ev.RoomID)
	if err != nil {
		return err
	}
	if !found || adminID != h.s.UserID {
		return errNotAuthorized
	}
	removed, err := h.d.store.DeleteAllDrawingsInRoom(ctx, ev.RoomID)
	if err != nil {
		return err
	}
	h.logger.Info("room cleared", zap.Int64("drawings_removed", removed))
	_, err = h.d.broadcaster.Broadcast(ctx, ev.RoomID, protocol.NewClearRoomFrame(ev.RoomID))
	return err
}

// GenerateImage always ends with an ai_message to the room, flagged as an
// error when generation or persistence fails.
func (h *eventHandler) GenerateImage(ctx context.Context, ev *protocol.GenerateImage) error {
	if _, err := h.d.broadcaster.Broadcast(ctx, ev.RoomID, protocol.NewAIGeneratingFrame(ev.RoomID)); err != nil {
		return err
	}

	drawing, err := h.generate(ctx, ev)
	if err != nil {
		if _, berr := h.d.broadcaster.Broadcast(ctx, ev.RoomID, protocol.NewAIErrorFrame(ev.RoomID)); berr != nil {
			return errors.Join(err, berr)
		}
		return err
	}
	_, err = h.d.broadcaster.Broadcast(ctx, ev.RoomID, protocol.NewAIImageFrame(ev.RoomID, ev.Prompt, drawing))
	return err
}

func (h *eventHandler) generate(ctx context.Context, ev *protocol.GenerateImage) (*models.Drawing, error) {
	provider := h.d.images.Name()
	start := time.Now()
	img, err := h.d.images.Generate(ctx, ev.Prompt)
	if err != nil {
		metrics.ObserveImageGeneration(provider, metrics.OutcomeFailed, time.Since(start))
		return nil, fmt.Errorf("generate image: %w", err)
	}
	metrics.ObserveImageGeneration(provider, metrics.OutcomeOK, time.Since(start))
	h.logger.Info("image generated", zap.String("provider", provider), zap.Duration("took", time.Since(start)))

	drawing, err := h.d.store.CreateDrawing(ctx, h.d.placement.ImageDrawing(ev.RoomID, h.s.UserID, img.URL))
	if err != nil {
		return nil, fmt.Errorf("persist image drawing: %w", err)
	}
	return drawing, nil
}
