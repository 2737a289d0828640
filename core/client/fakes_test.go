package client

import (
	"example.com/tinyntp/net/ntp"
)

type fakeTicks struct {
	now  uint32
	step uint32
}

func (t *fakeTicks) NowTicks() uint32 {
	now := t.now
	t.now += t.step
	return now
}

type datagram struct {
	data []byte
	// number of bytes the transport hands out before reporting no more
	// data; 0 means all of data
	avail int
}

// fakeTransport answers every request synchronously via respond. A nil
// respond, or a respond returning nil, drops the request.
type fakeTransport struct {
	respond func(req []byte) *datagram

	bound    bool
	released int
	host     string
	port     int
	sending  []byte
	sent     [][]byte
	queue    []*datagram
	current  []byte
}

func (t *fakeTransport) Bind(port int) error {
	t.bound = true
	return nil
}

func (t *fakeTransport) BeginSend(host string, port int) error {
	t.host, t.port = host, port
	t.sending = t.sending[:0]
	return nil
}

func (t *fakeTransport) Write(b []byte) (int, error) {
	t.sending = append(t.sending, b...)
	return len(b), nil
}

func (t *fakeTransport) EndSend() error {
	req := append([]byte(nil), t.sending...)
	t.sent = append(t.sent, req)
	if t.respond != nil {
		if d := t.respond(req); d != nil {
			t.queue = append(t.queue, d)
		}
	}
	return nil
}

func (t *fakeTransport) PollForPacket() int {
	if len(t.queue) == 0 {
		return 0
	}
	d := t.queue[0]
	t.queue = t.queue[1:]
	t.current = d.data
	if d.avail != 0 {
		t.current = d.data[:d.avail]
	}
	return len(d.data)
}

func (t *fakeTransport) Read(b []byte) int {
	n := copy(b, t.current)
	t.current = t.current[n:]
	return n
}

func (t *fakeTransport) Release() {
	t.bound = false
	t.released++
	t.queue = nil
	t.current = nil
}

// fakeServer is an SNTP server whose clock reads unixSeconds.
type fakeServer struct {
	unixSeconds uint32
	mode        uint8
}

func (s *fakeServer) response(req []byte) *datagram {
	var reqPkt ntp.Packet
	err := ntp.DecodePacket(&reqPkt, req)
	if err != nil {
		panic(err)
	}
	mode := s.mode
	if mode == 0 {
		mode = ntp.ModeServer
	}
	resp := ntp.Packet{
		Stratum:      1,
		OriginTime:   reqPkt.TransmitTime,
		ReceiveTime:  ntp.Time64{Seconds: ntp.UnixToProtocol(s.unixSeconds)},
		TransmitTime: ntp.Time64{Seconds: ntp.UnixToProtocol(s.unixSeconds)},
	}
	resp.SetVersion(4)
	resp.SetMode(mode)
	var b []byte
	ntp.EncodePacket(&b, &resp)
	return &datagram{data: b}
}
