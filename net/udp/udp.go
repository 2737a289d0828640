// Package udp provides the datagram transport used by the SNTP client.
package udp

import (
	"errors"
	"net"
	"net/netip"
	"strconv"
	"time"

	"github.com/libp2p/go-reuseport"

	"go.uber.org/zap"

	"example.com/tinyntp/base/zaplog"
)

const (
	// Upper bound for a single poll of the socket.
	pollInterval = time.Millisecond

	maxDatagramLen = 2048
)

var (
	errNotBound      = errors.New("transport not bound")
	errNoDestination = errors.New("no destination set")
	errShortWrite    = errors.New("failed to write packet")
)

// Transport is a UDP socket with a send/poll/read interface in the style of
// embedded networking stacks. Inbound datagrams from hosts other than the
// current destination are discarded.
type Transport struct {
	Log  *zap.Logger
	DSCP uint8

	conn      *net.UDPConn
	localPort int
	remote    netip.AddrPort
	out       []byte
	in        [maxDatagramLen]byte
	unread    []byte
}

func compareAddrs(x, y netip.Addr) int {
	return x.Unmap().Compare(y.Unmap())
}

func (t *Transport) logger() *zap.Logger {
	return zaplog.Or(t.Log)
}

// Bind opens the socket on the given local port. Binding again to the same
// port keeps the existing socket.
func (t *Transport) Bind(port int) error {
	if t.conn != nil {
		if port == t.localPort {
			return nil
		}
		t.Release()
	}
	conn, err := reuseport.ListenPacket("udp", net.JoinHostPort("", strconv.Itoa(port)))
	if err != nil {
		return err
	}
	t.conn = conn.(*net.UDPConn)
	t.localPort = port
	if t.DSCP != 0 {
		err = SetDSCP(t.conn, t.DSCP)
		if err != nil {
			t.logger().Info("failed to set DSCP", zap.Error(err))
		}
	}
	return nil
}

func (t *Transport) LocalAddr() net.Addr {
	if t.conn == nil {
		return nil
	}
	return t.conn.LocalAddr()
}

// BeginSend resolves host and starts a new outbound datagram.
func (t *Transport) BeginSend(host string, port int) error {
	if t.conn == nil {
		return errNotBound
	}
	addr, err := net.ResolveUDPAddr("udp", net.JoinHostPort(host, strconv.Itoa(port)))
	if err != nil {
		return err
	}
	ap := addr.AddrPort()
	t.remote = netip.AddrPortFrom(ap.Addr().Unmap(), ap.Port())
	t.out = t.out[:0]
	return nil
}

func (t *Transport) Write(b []byte) (int, error) {
	if !t.remote.IsValid() {
		return 0, errNoDestination
	}
	t.out = append(t.out, b...)
	return len(b), nil
}

func (t *Transport) EndSend() error {
	if t.conn == nil {
		return errNotBound
	}
	if !t.remote.IsValid() {
		return errNoDestination
	}
	n, err := t.conn.WriteToUDPAddrPort(t.out, t.remote)
	if err != nil {
		return err
	}
	if n != len(t.out) {
		return errShortWrite
	}
	t.out = t.out[:0]
	return nil
}

// PollForPacket waits at most pollInterval for the next datagram and
// returns its size, or 0 if none arrived. Unread bytes of the previous
// datagram are dropped.
func (t *Transport) PollForPacket() int {
	t.unread = nil
	if t.conn == nil {
		return 0
	}
	err := t.conn.SetReadDeadline(time.Now().Add(pollInterval))
	if err != nil {
		t.logger().Info("failed to set read deadline", zap.Error(err))
		return 0
	}
	n, srcAddr, err := t.conn.ReadFromUDPAddrPort(t.in[:])
	if err != nil {
		var nerr net.Error
		if !errors.As(err, &nerr) || !nerr.Timeout() {
			t.logger().Info("failed to read packet", zap.Error(err))
		}
		return 0
	}
	if compareAddrs(srcAddr.Addr(), t.remote.Addr()) != 0 {
		t.logger().Info("received packet from unexpected source",
			zap.Stringer("from", srcAddr))
		return 0
	}
	t.unread = t.in[:n]
	return n
}

func (t *Transport) Read(b []byte) int {
	n := copy(b, t.unread)
	t.unread = t.unread[n:]
	return n
}

func (t *Transport) Release() {
	if t.conn != nil {
		err := t.conn.Close()
		if err != nil {
			t.logger().Info("failed to close connection", zap.Error(err))
		}
	}
	t.conn = nil
	t.localPort = 0
	t.remote = netip.AddrPort{}
	t.out = t.out[:0]
	t.unread = nil
}
