package models

import (
	"bytes"
	"encoding/json"
	"errors"
	"strconv"
	"time"
)

// RoomID identifies a room. Clients send it either as a JSON number or as a
// numeric string; it is always written back as a number.
type RoomID int64

var ErrInvalidRoomID = errors.New("invalid room id")

func (id *RoomID) UnmarshalJSON(b []byte) error {
	b = bytes.TrimSpace(b)
	if bytes.Equal(b, []byte("null")) {
		*id = 0
		return nil
	}
	if len(b) > 0 && b[0] == '"' {
		var s string
		if err := json.Unmarshal(b, &s); err != nil {
			return ErrInvalidRoomID
		}
		if s == "" {
			*id = 0
			return nil
		}
		b = []byte(s)
	}
	n, err := strconv.ParseInt(string(b), 10, 64)
	if err != nil {
		return ErrInvalidRoomID
	}
	*id = RoomID(n)
	return nil
}

func (id RoomID) String() string { return strconv.FormatInt(int64(id), 10) }

type ShapeType string

const (
	ShapeLine      ShapeType = "line"
	ShapeRectangle ShapeType = "rectangle"
	ShapeCircle    ShapeType = "circle"
	ShapeArrow     ShapeType = "arrow"
	ShapeText      ShapeType = "text"
	ShapeImage     ShapeType = "image"
)

// ShapeTypes lists every shape kind a drawing element may carry.
var ShapeTypes = []ShapeType{ShapeLine, ShapeRectangle, ShapeCircle, ShapeArrow, ShapeText, ShapeImage}

/*** Persisted records ***/

// Room is owned by the HTTP service; this process only reads AdminID.
type Room struct {
	ID        RoomID    `gorm:"primaryKey;autoIncrement" json:"id"`
	Slug      string    `gorm:"uniqueIndex;not null" json:"slug"`
	AdminID   string    `gorm:"not null;index" json:"adminId"`
	CreatedAt time.Time `json:"createdAt"`
}

// Chat is one accepted chat line. Append-only.
type Chat struct {
	ID        int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID    RoomID    `gorm:"not null;index" json:"roomId"`
	UserID    string    `gorm:"not null;index" json:"userId"`
	UserName  string    `json:"userName"`
	Message   string    `gorm:"type:text;not null" json:"message"`
	CreatedAt time.Time `gorm:"index" json:"createdAt"`
}

// Drawing is one shape, stroke or image placed on a room's canvas. Geometry
// fields are optional and only meaningful for some shape types.
type Drawing struct {
	ID          int64     `gorm:"primaryKey;autoIncrement" json:"id"`
	RoomID      RoomID    `gorm:"not null;index" json:"roomId"`
	UserID      string    `gorm:"not null;index" json:"userId"`
	ShapeType   ShapeType `gorm:"not null;default:line" json:"shapeType"`
	Points      []float64 `gorm:"serializer:json" json:"points"`
	X           *float64  `json:"x,omitempty"`
	Y           *float64  `json:"y,omitempty"`
	Width       *float64  `json:"width,omitempty"`
	Height      *float64  `json:"height,omitempty"`
	Radius      *float64  `json:"radius,omitempty"`
	Text        string    `json:"text,omitempty"`
	Color       string    `gorm:"not null" json:"color"`
	StrokeWidth float64   `gorm:"not null" json:"strokeWidth"`
	ImageURL    string    `gorm:"type:text" json:"imageUrl,omitempty"`
	CreatedAt   time.Time `json:"createdAt"`
}

// All returns every persisted model, in migration order.
func All() []any {
	return []any{&Room{}, &Chat{}, &Drawing{}}
}
