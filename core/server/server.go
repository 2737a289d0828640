// Package server implements a minimal SNTP responder. It answers client
// mode requests with the local wall clock and is used as a loopback peer
// for the client as well as by the server subcommand.
package server

import (
	"context"
	"errors"
	"net"
	"strconv"
	"time"

	"github.com/libp2p/go-reuseport"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"go.uber.org/zap"

	"example.com/tinyntp/base/metrics"
	"example.com/tinyntp/base/zaplog"

	"example.com/tinyntp/net/ntp"
)

const (
	// "LOCL", an uncalibrated local clock
	serverRefID = 0x4c4f434c

	defaultStratum = 1
)

type ipServerMetrics struct {
	pktsReceived prometheus.Counter
	reqsAccepted prometheus.Counter
	reqsServed   prometheus.Counter
}

func newIPServerMetrics(reg prometheus.Registerer) *ipServerMetrics {
	f := promauto.With(reg)
	return &ipServerMetrics{
		pktsReceived: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ServerPktsReceivedN,
			Help: metrics.ServerPktsReceivedH,
		}),
		reqsAccepted: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ServerReqsAcceptedN,
			Help: metrics.ServerReqsAcceptedH,
		}),
		reqsServed: f.NewCounter(prometheus.CounterOpts{
			Name: metrics.ServerReqsServedN,
			Help: metrics.ServerReqsServedH,
		}),
	}
}

type IPServer struct {
	Log        *zap.Logger
	Stratum    uint8
	Registerer prometheus.Registerer
	// Now is the server's clock, time.Now if nil.
	Now func() time.Time
	// NumGoroutine sockets share the port via SO_REUSEPORT. It is ignored
	// for ephemeral ports.
	NumGoroutine int
}

func (s *IPServer) now() time.Time {
	if s.Now == nil {
		return time.Now()
	}
	return s.Now()
}

func handleRequest(req *ntp.Packet, rxt, txt time.Time, stratum uint8, resp *ntp.Packet) {
	resp.SetLeapIndicator(ntp.LeapIndicatorNoWarning)
	v := req.Version()
	if v < 3 {
		v = 3
	}
	resp.SetVersion(v)
	resp.SetMode(ntp.ModeServer)
	resp.Stratum = stratum
	resp.Poll = req.Poll
	resp.Precision = -10
	resp.RootDispersion = 10
	resp.ReferenceID = serverRefID
	resp.ReferenceTime = ntp.Time64FromTime(rxt)
	resp.OriginTime = req.TransmitTime
	resp.ReceiveTime = ntp.Time64FromTime(rxt)
	resp.TransmitTime = ntp.Time64FromTime(txt)
}

func (s *IPServer) runIPServer(ctx context.Context, log *zap.Logger, mtrcs *ipServerMetrics,
	conn *net.UDPConn) {
	defer conn.Close()

	stratum := s.Stratum
	if stratum == 0 {
		stratum = defaultStratum
	}

	buf := make([]byte, 2048)
	for {
		buf = buf[:cap(buf)]
		n, srcAddr, err := conn.ReadFromUDPAddrPort(buf)
		if err != nil {
			if ctx.Err() != nil || errors.Is(err, net.ErrClosed) {
				return
			}
			log.Error("failed to read packet", zap.Error(err))
			continue
		}
		rxt := s.now()
		buf = buf[:n]
		mtrcs.pktsReceived.Inc()

		var ntpreq ntp.Packet
		err = ntp.DecodePacket(&ntpreq, buf)
		if err != nil {
			log.Info("failed to decode packet payload", zap.Error(err))
			continue
		}

		err = ntp.ValidateRequest(&ntpreq)
		if err != nil {
			log.Info("failed to validate packet payload", zap.Error(err))
			continue
		}

		mtrcs.reqsAccepted.Inc()
		log.Debug("received request",
			zap.Time("at", rxt),
			zap.Stringer("from", srcAddr),
			zap.Object("data", ntp.PacketMarshaler{Pkt: &ntpreq}),
		)

		var ntpresp ntp.Packet
		handleRequest(&ntpreq, rxt, s.now(), stratum, &ntpresp)
		ntp.EncodePacket(&buf, &ntpresp)

		n, err = conn.WriteToUDPAddrPort(buf, srcAddr)
		if err != nil || n != len(buf) {
			log.Error("failed to write packet", zap.Error(err))
			continue
		}
		mtrcs.reqsServed.Inc()
	}
}

// Start listens on localHost and serves requests until ctx is done. It
// returns the address actually bound.
func (s *IPServer) Start(ctx context.Context, localHost *net.UDPAddr) (*net.UDPAddr, error) {
	log := zaplog.Or(s.Log)
	mtrcs := newIPServerMetrics(s.Registerer)

	n := s.NumGoroutine
	if n < 1 || localHost.Port == 0 {
		n = 1
	}
	addr := net.JoinHostPort(localHost.IP.String(), strconv.Itoa(localHost.Port))
	if localHost.IP == nil {
		addr = net.JoinHostPort("", strconv.Itoa(localHost.Port))
	}

	conns := make([]*net.UDPConn, 0, n)
	for i := 0; i < n; i++ {
		conn, err := reuseport.ListenPacket("udp", addr)
		if err != nil {
			for _, c := range conns {
				_ = c.Close()
			}
			return nil, err
		}
		conns = append(conns, conn.(*net.UDPConn))
	}
	localAddr := conns[0].LocalAddr().(*net.UDPAddr)
	log.Info("server listening via IP", zap.Stringer("local host", localAddr))

	for _, conn := range conns {
		go s.runIPServer(ctx, log, mtrcs, conn)
	}
	go func() {
		<-ctx.Done()
		for _, conn := range conns {
			_ = conn.Close()
		}
	}()
	return localAddr, nil
}
