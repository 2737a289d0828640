//go:build !linux && !darwin

package udp

import (
	"errors"
	"net"
)

var (
	errUnsupportedOperation = errors.New("unsupported operation")
)

func SetDSCP(conn *net.UDPConn, dscp uint8) error {
	return errUnsupportedOperation
}
