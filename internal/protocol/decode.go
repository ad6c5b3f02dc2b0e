package protocol

import (
	"encoding/json"
	"errors"
	"fmt"

	"github.com/go-playground/validator/v10"
)

var (
	ErrMalformedEvent   = errors.New("malformed event")
	ErrUnknownEventType = errors.New("unknown event type")
	ErrInvalidEvent     = errors.New("invalid event")
)

var validate = validator.New()

var eventFactories = map[string]func() Event{
	TypeJoinRoom:      func() Event { return &JoinRoom{} },
	TypeLeaveRoom:     func() Event { return &LeaveRoom{} },
	TypeChat:          func() Event { return &Chat{} },
	TypeDraw:          func() Event { return &Draw{} },
	TypeDeleteDrawing: func() Event { return &DeleteDrawing{} },
	TypeClearRoom:     func() Event { return &ClearRoom{} },
	TypeGenerateImage: func() Event { return &GenerateImage{} },
}

// normalizer fills optional fields from the defaults table before validation.
type normalizer interface {
	normalize(Defaults)
}

// Decode parses one inbound text frame into its event. The returned error
// wraps ErrMalformedEvent, ErrUnknownEventType or ErrInvalidEvent.
func Decode(raw []byte) (Event, error) {
	var envelope struct {
		Type string `json:"type"`
	}
	if err := json.Unmarshal(raw, &envelope); err != nil {
		return nil, fmt.Errorf("%w: %v", ErrMalformedEvent, err)
	}
	newEvent, ok := eventFactories[envelope.Type]
	if !ok {
		return nil, fmt.Errorf("%w: %q", ErrUnknownEventType, envelope.Type)
	}

	ev := newEvent()
	if err := json.Unmarshal(raw, ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedEvent, envelope.Type, err)
	}
	if n, ok := ev.(normalizer); ok {
		n.normalize(defaults)
	}
	if err := validate.Struct(ev); err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrInvalidEvent, envelope.Type, err)
	}
	return ev, nil
}
