package protocol

import "github.com/harshitk99/excali-new/internal/models"

/*** Server to client frames ***/

type ChatFrame struct {
	Type     string        `json:"type"`
	Message  string        `json:"message"`
	RoomID   models.RoomID `json:"roomId"`
	UserID   string        `json:"userId"`
	UserName string        `json:"userName"`
}

func NewChatFrame(ev *Chat, userID string) ChatFrame {
	return ChatFrame{Type: TypeChat, Message: ev.Message, RoomID: ev.RoomID, UserID: userID, UserName: ev.UserName}
}

type DrawFrame struct {
	Type    string          `json:"type"`
	Drawing *models.Drawing `json:"drawing"`
	RoomID  models.RoomID   `json:"roomId"`
}

func NewDrawFrame(d *models.Drawing) DrawFrame {
	return DrawFrame{Type: TypeDraw, Drawing: d, RoomID: d.RoomID}
}

type DeleteDrawingFrame struct {
	Type      string        `json:"type"`
	DrawingID int64         `json:"drawingId"`
	RoomID    models.RoomID `json:"roomId"`
}

func NewDeleteDrawingFrame(d *models.Drawing) DeleteDrawingFrame {
	return DeleteDrawingFrame{Type: TypeDeleteDrawing, DrawingID: d.ID, RoomID: d.RoomID}
}

type ClearRoomFrame struct {
	Type   string        `json:"type"`
	RoomID models.RoomID `json:"roomId"`
}

func NewClearRoomFrame(roomID models.RoomID) ClearRoomFrame {
	return ClearRoomFrame{Type: TypeClearRoom, RoomID: roomID}
}

type AIGeneratingFrame struct {
	Type   string        `json:"type"`
	RoomID models.RoomID `json:"roomId"`
}

func NewAIGeneratingFrame(roomID models.RoomID) AIGeneratingFrame {
	return AIGeneratingFrame{Type: TypeAIGenerating, RoomID: roomID}
}

// AIMessageFrame reports the outcome of an image request to the whole room.
// Error is set, and ImageURL and Drawing are empty, when generation failed.
type AIMessageFrame struct {
	Type     string          `json:"type"`
	RoomID   models.RoomID   `json:"roomId"`
	Content  string          `json:"content"`
	ImageURL string          `json:"imageUrl,omitempty"`
	Drawing  *models.Drawing `json:"drawing,omitempty"`
	Error    bool            `json:"error,omitempty"`
}

func NewAIImageFrame(roomID models.RoomID, prompt string, d *models.Drawing) AIMessageFrame {
	return AIMessageFrame{
		Type:     TypeAIMessage,
		RoomID:   roomID,
		Content:  "Here is your image: " + prompt,
		ImageURL: d.ImageURL,
		Drawing:  d,
	}
}

func NewAIErrorFrame(roomID models.RoomID) AIMessageFrame {
	return AIMessageFrame{
		Type:    TypeAIMessage,
		RoomID:  roomID,
		Content: "Sorry, the image could not be generated. Please try again.",
		Error:   true,
	}
}
