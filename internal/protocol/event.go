package protocol

import (
	"fmt"

	"vinput/internal/input"
)

// EventPayload is the JSON form of an input.Event:
//
//	{"type":"key_press","key":"ControlLeft"}
//	{"type":"button_release","button":"left"}
//	{"type":"pointer_move","x":100,"y":200.5}
//	{"type":"wheel","dx":0,"dy":-3}
type EventPayload struct {
	Type   string  `json:"type"`
	Key    string  `json:"key,omitempty"`
	Button string  `json:"button,omitempty"`
	X      float64 `json:"x,omitempty"`
	Y      float64 `json:"y,omitempty"`
	DX     int64   `json:"dx,omitempty"`
	DY     int64   `json:"dy,omitempty"`
}

// NewEventPayload converts ev to its JSON form
func NewEventPayload(ev input.Event) EventPayload {
	p := EventPayload{Type: ev.Kind.String()}
	switch ev.Kind {
	case input.KindKeyPress, input.KindKeyRelease:
		p.Key = ev.Key.String()
	case input.KindButtonPress, input.KindButtonRelease:
		p.Button = ev.Button.String()
	case input.KindPointerMove:
		p.X, p.Y = ev.X, ev.Y
	case input.KindWheel:
		p.DX, p.DY = ev.DeltaX, ev.DeltaY
	}
	return p
}

// Event converts p back into an input.Event
func (p EventPayload) Event() (input.Event, error) {
	switch p.Type {
	case "key_press", "key_release":
		k, err := input.ParseKey(p.Key)
		if err != nil {
			return input.Event{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		if p.Type == "key_press" {
			return input.KeyPress(k), nil
		}
		return input.KeyRelease(k), nil
	case "button_press", "button_release":
		b, err := input.ParseButton(p.Button)
		if err != nil {
			return input.Event{}, fmt.Errorf("%w: %w", ErrInvalidPayload, err)
		}
		if p.Type == "button_press" {
			return input.ButtonPress(b), nil
		}
		return input.ButtonRelease(b), nil
	case "pointer_move":
		return input.PointerMove(p.X, p.Y), nil
	case "wheel":
		return input.Wheel(p.DX, p.DY), nil
	default:
		return input.Event{}, fmt.Errorf("%w: event type %q", ErrInvalidPayload, p.Type)
	}
}
