//go:build linux || darwin

package udp

import (
	"net"

	"golang.org/x/sys/unix"
)

// SetDSCP sets the Differentiated Services Codepoint of outgoing packets
// for both IPv4 and IPv6 traffic on conn.
func SetDSCP(conn *net.UDPConn, dscp uint8) error {
	if dscp > 63 {
		panic("invalid argument: dscp must not be greater than 63")
	}
	sconn, err := conn.SyscallConn()
	if err != nil {
		return err
	}
	var res struct {
		err error
	}
	err = sconn.Control(func(fd uintptr) {
		tos := int(dscp << 2)
		err4 := unix.SetsockoptInt(int(fd), unix.IPPROTO_IP, unix.IP_TOS, tos)
		err6 := unix.SetsockoptInt(int(fd), unix.IPPROTO_IPV6, unix.IPV6_TCLASS, tos)
		if err4 != nil && err6 != nil {
			res.err = err4
		}
	})
	if err != nil {
		return err
	}
	return res.err
}
