package protocol

import (
	_ "embed"
	"fmt"

	"gopkg.in/yaml.v3"

	"github.com/harshitk99/excali-new/internal/models"
)

// embeds the optional-field defaults table at compile time
//
//go:embed defaults.yaml
var defaultsYAML []byte

type ChatDefaults struct {
	UserName string `yaml:"userName"`
}

type DrawDefaults struct {
	Color       string           `yaml:"color"`
	StrokeWidth float64          `yaml:"strokeWidth"`
	ShapeType   models.ShapeType `yaml:"shapeType"`
}

// ImagePlacement is where a generated image lands on the canvas.
type ImagePlacement struct {
	X           float64 `yaml:"x"`
	Y           float64 `yaml:"y"`
	Width       float64 `yaml:"width"`
	Height      float64 `yaml:"height"`
	Color       string  `yaml:"color"`
	StrokeWidth float64 `yaml:"strokeWidth"`
}

type Defaults struct {
	Chat  ChatDefaults   `yaml:"chat"`
	Draw  DrawDefaults   `yaml:"draw"`
	Image ImagePlacement `yaml:"image"`
}

var defaults = mustParseDefaults(defaultsYAML)

func parseDefaults(data []byte) (Defaults, error) {
	var d Defaults
	if err := yaml.Unmarshal(data, &d); err != nil {
		return Defaults{}, fmt.Errorf("failed to parse defaults table: %w", err)
	}
	if d.Chat.UserName == "" || d.Draw.Color == "" || d.Draw.StrokeWidth <= 0 || d.Draw.ShapeType == "" {
		return Defaults{}, fmt.Errorf("defaults table is incomplete")
	}
	return d, nil
}

func mustParseDefaults(data []byte) Defaults {
	d, err := parseDefaults(data)
	if err != nil {
		panic(err)
	}
	return d
}

// DefaultValues returns the table applied to inbound events.
func DefaultValues() Defaults {
	return defaults
}

// ImageDrawing builds the record persisted for a generated image.
func (p ImagePlacement) ImageDrawing(roomID models.RoomID, userID, imageURL string) *models.Drawing {
	x, y, w, h := p.X, p.Y, p.Width, p.Height
	return &models.Drawing{
		RoomID:      roomID,
		UserID:      userID,
		ShapeType:   models.ShapeImage,
		Points:      []float64{},
		X:           &x,
		Y:           &y,
		Width:       &w,
		Height:      &h,
		Color:       p.Color,
		StrokeWidth: p.StrokeWidth,
		ImageURL:    imageURL,
	}
}
