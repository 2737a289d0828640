package client

import (
	"errors"
)

var (
	ErrTimeout            = errors.New("request timed out")
	ErrShortPacket        = errors.New("failed to read packet: too short")
	ErrIncompleteRead     = errors.New("failed to read packet: incomplete")
	ErrUnexpectedResponse = errors.New("failed to read packet: unexpected type or structure")

	errWrite = errors.New("failed to write packet")
)
