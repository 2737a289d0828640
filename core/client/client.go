// Package client implements a small SNTP client that maintains a virtual
// UTC clock for hosts without a real time clock.
//
// A successful synchronization stores one reference point: the absolute
// time in Unix seconds and the value of a monotonic millisecond tick counter
// at the instant the server's response arrived. Between synchronizations,
// the current time is extrapolated from the elapsed ticks.
//
// A Client is not safe for concurrent use.
package client

import (
	"time"

	"github.com/HdrHistogram/hdrhistogram-go"
	"github.com/prometheus/client_golang/prometheus"

	"go.uber.org/zap"

	"example.com/tinyntp/base/timebase"

	"example.com/tinyntp/net/ntp"
)

const (
	DefaultServer    = "pool.ntp.org"
	DefaultTimeoutMs = 6000
)

// Transport is the datagram capability set the client needs. Host name
// resolution is left to the implementation.
type Transport interface {
	Bind(port int) error
	BeginSend(host string, port int) error
	Write(b []byte) (int, error)
	EndSend() error
	// PollForPacket checks for an inbound datagram and returns its size,
	// or 0 if none is available.
	PollForPacket() int
	// Read copies at most len(b) unread bytes of the current datagram
	// into b and returns the number of bytes copied.
	Read(b []byte) int
	Release()
}

// syncState is committed as a whole; lastSyncTick == 0 means never
// synchronized.
type syncState struct {
	lastSyncEpochSeconds uint32
	lastSyncTick         uint32
}

type Client struct {
	log       *zap.Logger
	transport Transport
	ticks     timebase.TickSource
	mtrcs     *clientMetrics
	histo     *hdrhistogram.Histogram

	server    string
	port      int
	localPort int
	timeoutMs uint32
	validate  bool

	tzOffsetSeconds int64
	state           syncState
}

type Option func(c *Client)

// WithLogger sets the sink for diagnostic messages. The default discards
// everything.
func WithLogger(log *zap.Logger) Option {
	return func(c *Client) { c.log = log }
}

func WithServer(host string, port int) Option {
	return func(c *Client) { c.server, c.port = host, port }
}

func WithLocalPort(port int) Option {
	return func(c *Client) { c.localPort = port }
}

func WithTimeout(timeoutMs uint32) Option {
	return func(c *Client) { c.timeoutMs = timeoutMs }
}

// WithResponseValidation makes the client reject responses whose leap
// indicator, version, mode or stratum are not those of a usable server.
func WithResponseValidation() Option {
	return func(c *Client) { c.validate = true }
}

// WithRegisterer registers the client's Prometheus metrics with reg.
func WithRegisterer(reg prometheus.Registerer) Option {
	return func(c *Client) { c.mtrcs = newClientMetrics(reg) }
}

// WithHistogram records the round trip time of every received response,
// in ticks, into h.
func WithHistogram(h *hdrhistogram.Histogram) Option {
	return func(c *Client) { c.histo = h }
}

func New(transport Transport, ticks timebase.TickSource, opts ...Option) *Client {
	if transport == nil {
		panic("transport must not be nil")
	}
	if ticks == nil {
		panic("tick source must not be nil")
	}
	c := &Client{
		log:       zap.NewNop(),
		transport: transport,
		ticks:     ticks,
		server:    DefaultServer,
		port:      ntp.ServerPort,
		timeoutMs: DefaultTimeoutMs,
	}
	for _, opt := range opts {
		opt(c)
	}
	if c.log == nil {
		c.log = zap.NewNop()
	}
	if c.mtrcs == nil {
		c.mtrcs = newClientMetrics(nil)
	}
	return c
}

// Start resets the client and synchronizes from scratch: a first exchange
// trusts the server's transmit timestamp, a second one seeded with that
// estimate applies the round trip offset correction.
func (c *Client) Start() error {
	c.Teardown()
	return c.update()
}

// Refresh performs one offset corrected exchange seeded with the current
// virtual time. An unsynchronized client is started instead.
func (c *Client) Refresh() error {
	if !c.Synchronized() {
		return c.Start()
	}
	return c.update()
}

func (c *Client) update() error {
	if !c.Synchronized() {
		err := c.sync(0 /* transmit only */)
		if err != nil {
			return err
		}
	}
	t0 := ntp.UnixToProtocol(c.utcSecondsAt(c.ticks.NowTicks()))
	return c.sync(t0)
}

// Teardown drops the synchronization point and the timezone offset and
// releases the transport.
func (c *Client) Teardown() {
	c.state = syncState{}
	c.tzOffsetSeconds = 0
	c.transport.Release()
}

func (c *Client) Synchronized() bool {
	return c.state.lastSyncTick != 0
}

// NowMillis returns the current time in milliseconds since the Unix epoch,
// shifted by the timezone offset, or 0 if the client has never been
// synchronized.
func (c *Client) NowMillis() uint64 {
	s := c.state
	if s.lastSyncTick == 0 {
		return 0
	}
	elapsed := c.ticks.NowTicks() - s.lastSyncTick
	return uint64(s.lastSyncEpochSeconds)*1000 +
		uint64(elapsed) +
		uint64(c.tzOffsetSeconds*1000)
}

func (c *Client) NowSeconds() uint32 {
	return uint32(c.NowMillis() / 1000)
}

// Time returns NowMillis as a time.Time in UTC, or the zero time if the
// client has never been synchronized.
func (c *Client) Time() time.Time {
	ms := c.NowMillis()
	if ms == 0 {
		return time.Time{}
	}
	return time.UnixMilli(int64(ms)).UTC()
}

// utcSecondsAt extrapolates the reference point to tick, ignoring the
// timezone offset.
func (c *Client) utcSecondsAt(tick uint32) uint32 {
	return c.state.lastSyncEpochSeconds + (tick-c.state.lastSyncTick)/1000
}

func (c *Client) SetTimezoneOffsetSeconds(offset int64) {
	c.tzOffsetSeconds = offset
}

func (c *Client) SetTimezoneOffsetHours(hours int64) {
	c.tzOffsetSeconds = hours * 3600
}

// SetServer changes the server used by the next exchange. The current
// synchronization point is kept.
func (c *Client) SetServer(host string, port int) {
	c.server = host
	c.port = port
}

func (c *Client) Server() (host string, port int) {
	return c.server, c.port
}

func (c *Client) Transport() Transport {
	return c.transport
}
