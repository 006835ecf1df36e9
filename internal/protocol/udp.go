package protocol

import (
	"crypto/hmac"
	"crypto/sha256"
	"encoding/binary"
	"fmt"
	"math"

	"vinput/internal/input"
)

// UDP Packet types
const (
	UDPPacketPointerMove  uint8 = 0x01
	UDPPacketButton       uint8 = 0x02
	UDPPacketWheel        uint8 = 0x03
	UDPPacketKeyEvent     uint8 = 0x04
	UDPPacketMoveRelative uint8 = 0x05
	UDPPacketRegister     uint8 = 0x10
	UDPPacketAck          uint8 = 0x12 // Agent -> sender: confirms the UDP path is open
)

// Header: [type(1)] [seq(4)] [timestamp(8)] = 13 bytes
const UDPHeaderSize = 13

// RegisterMACSize is the length of the token proof carried by Register.
const RegisterMACSize = sha256.Size

// Button kinds on the wire
const (
	udpButtonLeft   uint8 = 1
	udpButtonMiddle uint8 = 2
	udpButtonRight  uint8 = 3
	udpButtonRaw    uint8 = 4
)

// UDPPacket represents a binary-encoded input event for low-latency UDP transport.
//
// Wire format per type (big endian):
//
//	PointerMove  (0x01): header + x(float64) + y(float64)                         = 29 bytes
//	Button       (0x02): header + kind(uint8) + raw(int64) + pressed(uint8)        = 23 bytes
//	Wheel        (0x03): header + dx(int32) + dy(int32)                            = 21 bytes
//	KeyEvent     (0x04): header + key(uint16) + pressed(uint8)                     = 16 bytes
//	MoveRelative (0x05): header + dx(int32) + dy(int32)                            = 21 bytes
//	Register     (0x10): header + mac([32]byte)                                    = 45 bytes
//	Ack          (0x12): header only                                               = 13 bytes
//
// The Register mac is RegisterMAC of the agent token, all zero when the
// agent has none. Keys travel as their input.Key ordinal, so both ends must run the same key set.
type UDPPacket struct {
	Type       uint8
	Seq        uint32
	Timestamp  int64
	X, Y       float64 // pointer move
	DeltaX     int32   // wheel, relative move
	DeltaY     int32   // wheel, relative move
	ButtonKind uint8
	ButtonRaw  int64
	Pressed    uint8 // button / key (1=pressed, 0=released)
	Key        uint16
	MAC        [RegisterMACSize]byte // register
}

func payloadSize(typ uint8) (int, bool) {
	switch typ {
	case UDPPacketPointerMove:
		return 16, true
	case UDPPacketButton:
		return 10, true
	case UDPPacketWheel, UDPPacketMoveRelative:
		return 8, true
	case UDPPacketKeyEvent:
		return 3, true
	case UDPPacketRegister:
		return RegisterMACSize, true
	case UDPPacketAck:
		return 0, true
	}
	return 0, false
}

// EncodeUDPPacket serializes a UDPPacket to wire format.
func EncodeUDPPacket(pkt *UDPPacket) []byte {
	size, _ := payloadSize(pkt.Type)
	buf := make([]byte, UDPHeaderSize+size)
	buf[0] = pkt.Type
	binary.BigEndian.PutUint32(buf[1:5], pkt.Seq)
	binary.BigEndian.PutUint64(buf[5:13], uint64(pkt.Timestamp))

	payload := buf[UDPHeaderSize:]
	switch pkt.Type {
	case UDPPacketPointerMove:
		binary.BigEndian.PutUint64(payload[0:8], math.Float64bits(pkt.X))
		binary.BigEndian.PutUint64(payload[8:16], math.Float64bits(pkt.Y))
	case UDPPacketButton:
		payload[0] = pkt.ButtonKind
		binary.BigEndian.PutUint64(payload[1:9], uint64(pkt.ButtonRaw))
		payload[9] = pkt.Pressed
	case UDPPacketWheel, UDPPacketMoveRelative:
		binary.BigEndian.PutUint32(payload[0:4], uint32(pkt.DeltaX))
		binary.BigEndian.PutUint32(payload[4:8], uint32(pkt.DeltaY))
	case UDPPacketKeyEvent:
		binary.BigEndian.PutUint16(payload[0:2], pkt.Key)
		payload[2] = pkt.Pressed
	case UDPPacketRegister:
		copy(payload, pkt.MAC[:])
	}

	return buf
}

// DecodeUDPPacket deserializes wire bytes into a UDPPacket.
func DecodeUDPPacket(data []byte) (*UDPPacket, error) {
	if len(data) < UDPHeaderSize {
		return nil, ErrPacketTooShort
	}

	pkt := &UDPPacket{
		Type:      data[0],
		Seq:       binary.BigEndian.Uint32(data[1:5]),
		Timestamp: int64(binary.BigEndian.Uint64(data[5:13])),
	}

	size, ok := payloadSize(pkt.Type)
	if !ok {
		return nil, fmt.Errorf("%w: 0x%02x", ErrUnknownPacketType, pkt.Type)
	}
	payload := data[UDPHeaderSize:]
	if len(payload) < size {
		return nil, fmt.Errorf("%w: type 0x%02x payload %d bytes", ErrPacketTooShort, pkt.Type, len(payload))
	}

	switch pkt.Type {
	case UDPPacketPointerMove:
		pkt.X = math.Float64frombits(binary.BigEndian.Uint64(payload[0:8]))
		pkt.Y = math.Float64frombits(binary.BigEndian.Uint64(payload[8:16]))
	case UDPPacketButton:
		pkt.ButtonKind = payload[0]
		pkt.ButtonRaw = int64(binary.BigEndian.Uint64(payload[1:9]))
		pkt.Pressed = payload[9]
	case UDPPacketWheel, UDPPacketMoveRelative:
		pkt.DeltaX = int32(binary.BigEndian.Uint32(payload[0:4]))
		pkt.DeltaY = int32(binary.BigEndian.Uint32(payload[4:8]))
	case UDPPacketKeyEvent:
		pkt.Key = binary.BigEndian.Uint16(payload[0:2])
		pkt.Pressed = payload[2]
	case UDPPacketRegister:
		copy(pkt.MAC[:], payload)
	}

	return pkt, nil
}

// IsEvent reports whether the packet carries an input.Event.
func (pkt *UDPPacket) IsEvent() bool {
	switch pkt.Type {
	case UDPPacketPointerMove, UDPPacketButton, UDPPacketWheel, UDPPacketKeyEvent:
		return true
	}
	return false
}

// PacketFromEvent builds the packet carrying ev. Wheel deltas must fit int32.
func PacketFromEvent(ev input.Event, seq uint32, ts int64) (*UDPPacket, error) {
	pkt := &UDPPacket{Seq: seq, Timestamp: ts}
	switch ev.Kind {
	case input.KindKeyPress, input.KindKeyRelease:
		if !ev.Key.Valid() {
			return nil, fmt.Errorf("%w: key %d", ErrOutOfRange, uint16(ev.Key))
		}
		pkt.Type = UDPPacketKeyEvent
		pkt.Key = uint16(ev.Key)
		pkt.Pressed = boolByte(ev.Kind == input.KindKeyPress)
	case input.KindButtonPress, input.KindButtonRelease:
		pkt.Type = UDPPacketButton
		pkt.Pressed = boolByte(ev.Kind == input.KindButtonPress)
		switch b := ev.Button; {
		case b.IsLeft():
			pkt.ButtonKind = udpButtonLeft
		case b.IsMiddle():
			pkt.ButtonKind = udpButtonMiddle
		case b.IsRight():
			pkt.ButtonKind = udpButtonRight
		default:
			raw, ok := b.Raw()
			if !ok {
				return nil, fmt.Errorf("%w: invalid button", ErrOutOfRange)
			}
			pkt.ButtonKind = udpButtonRaw
			pkt.ButtonRaw = raw
		}
	case input.KindPointerMove:
		pkt.Type = UDPPacketPointerMove
		pkt.X, pkt.Y = ev.X, ev.Y
	case input.KindWheel:
		if ev.DeltaX < math.MinInt32 || ev.DeltaX > math.MaxInt32 ||
			ev.DeltaY < math.MinInt32 || ev.DeltaY > math.MaxInt32 {
			return nil, fmt.Errorf("%w: wheel (%d, %d)", ErrOutOfRange, ev.DeltaX, ev.DeltaY)
		}
		pkt.Type = UDPPacketWheel
		pkt.DeltaX, pkt.DeltaY = int32(ev.DeltaX), int32(ev.DeltaY)
	default:
		return nil, fmt.Errorf("%w: event kind %d", ErrInvalidPayload, uint8(ev.Kind))
	}
	return pkt, nil
}

// Event returns the input.Event carried by an event packet.
func (pkt *UDPPacket) Event() (input.Event, error) {
	switch pkt.Type {
	case UDPPacketKeyEvent:
		k := input.Key(pkt.Key)
		if !k.Valid() {
			return input.Event{}, fmt.Errorf("%w: key %d", ErrOutOfRange, pkt.Key)
		}
		if pkt.Pressed != 0 {
			return input.KeyPress(k), nil
		}
		return input.KeyRelease(k), nil
	case UDPPacketButton:
		var b input.Button
		switch pkt.ButtonKind {
		case udpButtonLeft:
			b = input.ButtonLeft
		case udpButtonMiddle:
			b = input.ButtonMiddle
		case udpButtonRight:
			b = input.ButtonRight
		case udpButtonRaw:
			b = input.UnknownButton(pkt.ButtonRaw)
		default:
			return input.Event{}, fmt.Errorf("%w: button kind %d", ErrOutOfRange, pkt.ButtonKind)
		}
		if pkt.Pressed != 0 {
			return input.ButtonPress(b), nil
		}
		return input.ButtonRelease(b), nil
	case UDPPacketPointerMove:
		return input.PointerMove(pkt.X, pkt.Y), nil
	case UDPPacketWheel:
		return input.Wheel(int64(pkt.DeltaX), int64(pkt.DeltaY)), nil
	default:
		return input.Event{}, fmt.Errorf("%w: 0x%02x carries no event", ErrUnknownPacketType, pkt.Type)
	}
}

func boolByte(b bool) uint8 {
	if b {
		return 1
	}
	return 0
}

// RegisterMAC proves knowledge of token for a Register packet with the
// given seq and timestamp: HMAC-SHA256 keyed by token over the header.
func RegisterMAC(token string, seq uint32, ts int64) [RegisterMACSize]byte {
	var hdr [UDPHeaderSize]byte
	hdr[0] = UDPPacketRegister
	binary.BigEndian.PutUint32(hdr[1:5], seq)
	binary.BigEndian.PutUint64(hdr[5:13], uint64(ts))

	m := hmac.New(sha256.New, []byte(token))
	m.Write(hdr[:])
	var mac [RegisterMACSize]byte
	copy(mac[:], m.Sum(nil))
	return mac
}

// VerifyRegister reports whether a Register packet carries a valid proof
// of token.
func VerifyRegister(pkt *UDPPacket, token string) bool {
	if pkt.Type != UDPPacketRegister {
		return false
	}
	want := RegisterMAC(token, pkt.Seq, pkt.Timestamp)
	return hmac.Equal(pkt.MAC[:], want[:])
}
