// Package protocol defines the wire formats used to carry input events
// between machines: JSON over HTTP and WebSocket, and a compact binary
// format over UDP.
package protocol

import (
	"encoding/json"
	"fmt"

	"github.com/tidwall/gjson"

	"vinput/internal/input"
)

// MessageType defines the type of WebSocket message
type MessageType string

const (
	// TypeAuth is sent by a client immediately after connecting
	TypeAuth MessageType = "auth"

	// TypeSimulate carries one EventPayload to inject
	TypeSimulate MessageType = "simulate"

	// TypeMoveRelative carries a MoveRelativePayload
	TypeMoveRelative MessageType = "move_relative"

	// TypeResult answers a simulate or move_relative message
	TypeResult MessageType = "result"

	// TypePing is an application-level heartbeat, answered with a result
	TypePing MessageType = "ping"
)

// Message is the generic container for all WebSocket messages
type Message struct {
	Type    MessageType `json:"type"`
	ID      string      `json:"id,omitempty"`
	Payload any         `json:"payload,omitempty"`
}

// Envelope is a received message whose payload has not been decoded yet
type Envelope struct {
	Type    MessageType
	ID      string
	Payload json.RawMessage
}

// ParseEnvelope reads the type and id of a message without decoding the
// payload, which is left for the handler of that type.
func ParseEnvelope(data []byte) (Envelope, error) {
	if !gjson.ValidBytes(data) {
		return Envelope{}, ErrMalformed
	}
	res := gjson.GetManyBytes(data, "type", "id", "payload")
	if res[0].Type != gjson.String || res[0].Str == "" {
		return Envelope{}, fmt.Errorf("%w: missing type", ErrMalformed)
	}
	env := Envelope{Type: MessageType(res[0].Str), ID: res[1].String()}
	if res[2].Exists() {
		env.Payload = json.RawMessage(res[2].Raw)
	}
	return env, nil
}

// AuthPayload is the payload for TypeAuth
type AuthPayload struct {
	Token        string `json:"token"`
	AgentName    string `json:"agent_name"`
	AgentVersion string `json:"agent_version"`
}

// MoveRelativePayload is the payload for TypeMoveRelative and the body of
// POST /api/move_relative
type MoveRelativePayload struct {
	DX        int32 `json:"dx"`
	DY        int32 `json:"dy"`
	WantStart bool  `json:"want_start"`
}

// ResultPayload is the payload for TypeResult
type ResultPayload struct {
	OK    bool   `json:"ok"`
	Error string `json:"error,omitempty"`

	// Start is the pointer position before a relative move
	Start *PointPayload `json:"start,omitempty"`
}

// PointPayload is a pointer position
type PointPayload struct {
	X int32 `json:"x"`
	Y int32 `json:"y"`
}

// PointerPayload is the body of GET /api/pointer
type PointerPayload struct {
	X       int32    `json:"x"`
	Y       int32    `json:"y"`
	Buttons []string `json:"buttons"`
}

// NewPointerPayload converts a pointer snapshot
func NewPointerPayload(st input.PointerState) PointerPayload {
	p := PointerPayload{X: st.X, Y: st.Y, Buttons: []string{}}
	for _, b := range []struct {
		mask input.ButtonMask
		name string
	}{
		{input.MaskLeft, "left"},
		{input.MaskRight, "right"},
		{input.MaskMiddle, "middle"},
		{input.MaskOther, "other"},
	} {
		if st.Buttons&b.mask != 0 {
			p.Buttons = append(p.Buttons, b.name)
		}
	}
	return p
}
