package protocol

import (
	"context"
	"strings"

	"github.com/harshitk99/excali-new/internal/models"
)

const (
	TypeJoinRoom      = "join_room"
	TypeLeaveRoom     = "leave_room"
	TypeChat          = "chat"
	TypeDraw          = "draw"
	TypeDeleteDrawing = "delete_drawing"
	TypeClearRoom     = "clear_room"
	TypeGenerateImage = "ai_generate_image"
	TypeAIGenerating  = "ai_generating"
	TypeAIMessage     = "ai_message"
)

// Event is one decoded inbound frame. The set of implementations is closed:
// each one calls exactly one Handler method.
type Event interface {
	Type() string
	Room() models.RoomID
	Dispatch(ctx context.Context, h Handler) error
}

// Handler receives every event kind. Adding an event means adding a method
// here, so an unhandled kind does not compile.
type Handler interface {
	JoinRoom(ctx context.Context, ev *JoinRoom) error
	LeaveRoom(ctx context.Context, ev *LeaveRoom) error
	Chat(ctx context.Context, ev *Chat) error
	Draw(ctx context.Context, ev *Draw) error
	DeleteDrawing(ctx context.Context, ev *DeleteDrawing) error
	ClearRoom(ctx context.Context, ev *ClearRoom) error
	GenerateImage(ctx context.Context, ev *GenerateImage) error
}

type JoinRoom struct {
	RoomID models.RoomID `json:"roomId" validate:"gt=0"`
}

func (*JoinRoom) Type() string { return TypeJoinRoom }
func (e *JoinRoom) Room() models.RoomID { return e.RoomID }
func (e *JoinRoom) Dispatch(ctx context.Context, h Handler) error { return h.JoinRoom(ctx, e) }

// LeaveRoom accepts the room under "roomId" or the older "room" key.
type LeaveRoom struct {
	RoomID     models.RoomID `json:"roomId" validate:"gt=0"`
	LegacyRoom models.RoomID `json:"room" validate:"-"`
}

func (*LeaveRoom) Type() string { return TypeLeaveRoom }
func (e *LeaveRoom) Room() models.RoomID { return e.RoomID }
func (e *LeaveRoom) Dispatch(ctx context.Context, h Handler) error { return h.LeaveRoom(ctx, e) }

func (e *LeaveRoom) normalize(Defaults) {
	if e.RoomID == 0 {
		e.RoomID = e.LegacyRoom
	}
}

type Chat struct {
	RoomID   models.RoomID `json:"roomId" validate:"gt=0"`
	Message  string        `json:"message" validate:"required,max=2000"`
	UserName string        `json:"userName" validate:"max=64"`
}

func (*Chat) Type() string { return TypeChat }
func (e *Chat) Room() models.RoomID { return e.RoomID }
func (e *Chat) Dispatch(ctx context.Context, h Handler) error { return h.Chat(ctx, e) }

func (e *Chat) normalize(d Defaults) {
	e.UserName = strings.TrimSpace(e.UserName)
	if e.UserName == "" {
		e.UserName = d.Chat.UserName
	}
}

type Draw struct {
	RoomID      models.RoomID    `json:"roomId" validate:"gt=0"`
	Points      []float64        `json:"points" validate:"max=10000"`
	Color       string           `json:"color" validate:"max=32"`
	StrokeWidth float64          `json:"strokeWidth" validate:"gt=0,lte=100"`
	ShapeType   models.ShapeType `json:"shapeType" validate:"oneof=line rectangle circle arrow text image"`
	X           *float64         `json:"x"`
	Y           *float64         `json:"y"`
	Width       *float64         `json:"width"`
	Height      *float64         `json:"height"`
	Radius      *float64         `json:"radius"`
	Text        string           `json:"text" validate:"max=2000"`
	ImageURL    string           `json:"imageUrl"`
}

func (*Draw) Type() string { return TypeDraw }
func (e *Draw) Room() models.RoomID { return e.RoomID }
func (e *Draw) Dispatch(ctx context.Context, h Handler) error { return h.Draw(ctx, e) }

func (e *Draw) normalize(d Defaults) {
	if e.Color == "" {
		e.Color = d.Draw.Color
	}
	if e.StrokeWidth == 0 {
		e.StrokeWidth = d.Draw.StrokeWidth
	}
	if e.ShapeType == "" {
		e.ShapeType = d.Draw.ShapeType
	}
	if e.Points == nil {
		e.Points = []float64{}
	}
}

// Drawing builds the record to persist for this event, authored by userID.
func (e *Draw) Drawing(userID string) *models.Drawing {
	return &models.Drawing{
		RoomID:      e.RoomID,
		UserID:      userID,
		ShapeType:   e.ShapeType,
		Points:      e.Points,
		X:           e.X,
		Y:           e.Y,
		Width:       e.Width,
		Height:      e.Height,
		Radius:      e.Radius,
		Text:        e.Text,
		Color:       e.Color,
		StrokeWidth: e.StrokeWidth,
		ImageURL:    e.ImageURL,
	}
}

type DeleteDrawing struct {
	DrawingID int64         `json:"drawingId" validate:"gt=0"`
	RoomID    models.RoomID `json:"roomId" validate:"gt=0"`
}

func (*DeleteDrawing) Type() string { return TypeDeleteDrawing }
func (e *DeleteDrawing) Room() models.RoomID { return e.RoomID }
func (e *DeleteDrawing) Dispatch(ctx context.Context, h Handler) error { return h.DeleteDrawing(ctx, e) }

type ClearRoom struct {
	RoomID models.RoomID `json:"roomId" validate:"gt=0"`
}

func (*ClearRoom) Type() string { return TypeClearRoom }
func (e *ClearRoom) Room() models.RoomID { return e.RoomID }
func (e *ClearRoom) Dispatch(ctx context.Context, h Handler) error { return h.ClearRoom(ctx, e) }

type GenerateImage struct {
	RoomID models.RoomID `json:"roomId" validate:"gt=0"`
	Prompt string        `json:"prompt" validate:"required,max=1000"`
}

func (*GenerateImage) Type() string { return TypeGenerateImage }
func (e *GenerateImage) Room() models.RoomID { return e.RoomID }
func (e *GenerateImage) Dispatch(ctx context.Context, h Handler) error { return h.GenerateImage(ctx, e) }

func (e *GenerateImage) normalize(Defaults) {
	e.Prompt = strings.TrimSpace(e.Prompt)
}
