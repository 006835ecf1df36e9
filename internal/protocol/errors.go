package protocol

import "errors"

var (
	// ErrMalformed is returned for messages that are not valid JSON or lack a type.
	ErrMalformed = errors.New("protocol: malformed message")

	// ErrInvalidPayload is returned when a payload does not describe a valid event.
	ErrInvalidPayload = errors.New("protocol: invalid payload")

	// ErrUnauthorized is returned for an auth message with the wrong token.
	ErrUnauthorized = errors.New("protocol: invalid token")

	ErrPacketTooShort    = errors.New("udp: packet too short")
	ErrUnknownPacketType = errors.New("udp: unknown packet type")
	ErrOutOfRange        = errors.New("udp: value out of range")
)
