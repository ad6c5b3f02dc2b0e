package protocol

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/harshitk99/excali-new/internal/models"
)

func TestDecodeEvents(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want Event
	}{
		{
			name: "join with numeric room",
			raw:  `{"type":"join_room","roomId":7}`,
			want: &JoinRoom{RoomID: 7},
		},
		{
			name: "join with string room",
			raw:  `{"type":"join_room","roomId":"7"}`,
			want: &JoinRoom{RoomID: 7},
		},
		{
			name: "leave with roomId",
			raw:  `{"type":"leave_room","roomId":3}`,
			want: &LeaveRoom{RoomID: 3},
		},
		{
			name: "leave with legacy room key",
			raw:  `{"type":"leave_room","room":"3"}`,
			want: &LeaveRoom{RoomID: 3, LegacyRoom: 3},
		},
		{
			name: "leave prefers roomId",
			raw:  `{"type":"leave_room","roomId":4,"room":3}`,
			want: &LeaveRoom{RoomID: 4, LegacyRoom: 3},
		},
		{
			name: "chat with default name",
			raw:  `{"type":"chat","roomId":1,"message":"hi"}`,
			want: &Chat{RoomID: 1, Message: "hi", UserName: "Anonymous"},
		},
		{
			name: "chat with name",
			raw:  `{"type":"chat","roomId":1,"message":"hi","userName":"  Ann "}`,
			want: &Chat{RoomID: 1, Message: "hi", UserName: "Ann"},
		},
		{
			name: "draw with defaults",
			raw:  `{"type":"draw","roomId":2}`,
			want: &Draw{RoomID: 2, Points: []float64{}, Color: "#000000", StrokeWidth: 2, ShapeType: models.ShapeLine},
		},
		{
			name: "delete drawing",
			raw:  `{"type":"delete_drawing","roomId":2,"drawingId":11}`,
			want: &DeleteDrawing{RoomID: 2, DrawingID: 11},
		},
		{
			name: "clear room",
			raw:  `{"type":"clear_room","roomId":"2"}`,
			want: &ClearRoom{RoomID: 2},
		},
		{
			name: "generate image trims prompt",
			raw:  `{"type":"ai_generate_image","roomId":2,"prompt":"  a cat  "}`,
			want: &GenerateImage{RoomID: 2, Prompt: "a cat"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := Decode([]byte(tt.raw))
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestDecodeDrawKeepsGeometry(t *testing.T) {
	ev, err := Decode([]byte(`{"type":"draw","roomId":9,"shapeType":"rectangle","x":1,"y":2,"width":30,"height":40,"color":"#ff0000","strokeWidth":4}`))
	require.NoError(t, err)

	draw := ev.(*Draw)
	d := draw.Drawing("alice")
	assert.Equal(t, models.RoomID(9), d.RoomID)
	assert.Equal(t, "alice", d.UserID)
	assert.Equal(t, models.ShapeRectangle, d.ShapeType)
	require.NotNil(t, d.Width)
	assert.Equal(t, 30.0, *d.Width)
	assert.Nil(t, d.Radius)
	assert.Equal(t, "#ff0000", d.Color)
	assert.Equal(t, 4.0, d.StrokeWidth)
}

func TestDecodeErrors(t *testing.T) {
	tests := []struct {
		name string
		raw  string
		want error
	}{
		{"not json", `hello`, ErrMalformedEvent},
		{"array", `[1,2]`, ErrMalformedEvent},
		{"missing type", `{"roomId":1}`, ErrUnknownEventType},
		{"unknown type", `{"type":"cursor","roomId":1}`, ErrUnknownEventType},
		{"outbound type", `{"type":"ai_message","roomId":1}`, ErrUnknownEventType},
		{"bad room id", `{"type":"join_room","roomId":"abc"}`, ErrMalformedEvent},
		{"wrong field type", `{"type":"chat","roomId":1,"message":5}`, ErrMalformedEvent},
		{"missing room", `{"type":"join_room"}`, ErrInvalidEvent},
		{"negative room", `{"type":"clear_room","roomId":-1}`, ErrInvalidEvent},
		{"leave without room", `{"type":"leave_room"}`, ErrInvalidEvent},
		{"empty chat", `{"type":"chat","roomId":1,"message":""}`, ErrInvalidEvent},
		{"long chat", `{"type":"chat","roomId":1,"message":"` + strings.Repeat("a", 2001) + `"}`, ErrInvalidEvent},
		{"unknown shape", `{"type":"draw","roomId":1,"shapeType":"star"}`, ErrInvalidEvent},
		{"stroke too wide", `{"type":"draw","roomId":1,"strokeWidth":101}`, ErrInvalidEvent},
		{"negative stroke", `{"type":"draw","roomId":1,"strokeWidth":-1}`, ErrInvalidEvent},
		{"missing drawing id", `{"type":"delete_drawing","roomId":1}`, ErrInvalidEvent},
		{"blank prompt", `{"type":"ai_generate_image","roomId":1,"prompt":"   "}`, ErrInvalidEvent},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ev, err := Decode([]byte(tt.raw))
			assert.Nil(t, ev)
			if !errors.Is(err, tt.want) {
				t.Fatalf("expected %v, got %v", tt.want, err)
			}
		})
	}
}

type recordingHandler struct {
	calls []string
}

func (r *recordingHandler) JoinRoom(context.Context, *JoinRoom) error {
	r.calls = append(r.calls, TypeJoinRoom)
	return nil
}
func (r *recordingHandler) LeaveRoom(context.Context, *LeaveRoom) error {
	r.calls = append(r.calls, TypeLeaveRoom)
	return nil
}
func (r *recordingHandler) Chat(context.Context, *Chat) error {
	r.calls = append(r.calls, TypeChat)
	return nil
}
func (r *recordingHandler) Draw(context.Context, *Draw) error {
	r.calls = append(r.calls, TypeDraw)
	return nil
}
func (r *recordingHandler) DeleteDrawing(context.Context, *DeleteDrawing) error {
	r.calls = append(r.calls, TypeDeleteDrawing)
	return nil
}
func (r *recordingHandler) ClearRoom(context.Context, *ClearRoom) error {
	r.calls = append(r.calls, TypeClearRoom)
	return nil
}
func (r *recordingHandler) GenerateImage(context.Context, *GenerateImage) error {
	r.calls = append(r.calls, TypeGenerateImage)
	return nil
}

func TestDispatchCallsMatchingHandler(t *testing.T) {
	h := &recordingHandler{}
	for name, newEvent := range eventFactories {
		ev := newEvent()
		require.Equal(t, name, ev.Type())
		require.NoError(t, ev.Dispatch(context.Background(), h))
		assert.Equal(t, name, h.calls[len(h.calls)-1])
	}
	assert.Len(t, h.calls, len(eventFactories))
}

func TestDefaultsTable(t *testing.T) {
	d := DefaultValues()
	assert.Equal(t, "Anonymous", d.Chat.UserName)
	assert.Equal(t, "#000000", d.Draw.Color)
	assert.Equal(t, 2.0, d.Draw.StrokeWidth)
	assert.Equal(t, models.ShapeLine, d.Draw.ShapeType)
	assert.Equal(t, ImagePlacement{X: 100, Y: 100, Width: 256, Height: 256, Color: "#000000", StrokeWidth: 2}, d.Image)

	_, err := parseDefaults([]byte("chat: {}"))
	assert.Error(t, err)
	_, err = parseDefaults([]byte("chat: ["))
	assert.Error(t, err)
}

func TestImageDrawing(t *testing.T) {
	d := DefaultValues().Image.ImageDrawing(5, "bob", "https://img/1.png")
	assert.Equal(t, models.ShapeImage, d.ShapeType)
	assert.Equal(t, models.RoomID(5), d.RoomID)
	assert.Equal(t, "bob", d.UserID)
	assert.Equal(t, "https://img/1.png", d.ImageURL)
	require.NotNil(t, d.X)
	assert.Equal(t, 100.0, *d.X)
	assert.Equal(t, 256.0, *d.Height)
}

func TestOutboundFrames(t *testing.T) {
	raw, err := json.Marshal(NewChatFrame(&Chat{RoomID: 3, Message: "yo", UserName: "Ann"}, "u1"))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"chat","message":"yo","roomId":3,"userId":"u1","userName":"Ann"}`, string(raw))

	raw, err = json.Marshal(NewDeleteDrawingFrame(&models.Drawing{ID: 9, RoomID: 3}))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"delete_drawing","drawingId":9,"roomId":3}`, string(raw))

	raw, err = json.Marshal(NewAIErrorFrame(3))
	require.NoError(t, err)
	var frame map[string]any
	require.NoError(t, json.Unmarshal(raw, &frame))
	assert.Equal(t, "ai_message", frame["type"])
	assert.Equal(t, true, frame["error"])
	assert.NotContains(t, frame, "imageUrl")
	assert.NotContains(t, frame, "drawing")

	raw, err = json.Marshal(NewAIGeneratingFrame(3))
	require.NoError(t, err)
	assert.JSONEq(t, `{"type":"ai_generating","roomId":3}`, string(raw))
}
