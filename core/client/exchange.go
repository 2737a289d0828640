package client

import (
	"fmt"

	"go.uber.org/zap"

	"example.com/tinyntp/net/ntp"
)

// exchange sends one request carrying txSeconds (NTP epoch) and waits up
// to timeoutMs for the response. It returns the decoded response and the
// tick at which it arrived. There are no retries.
func (c *Client) exchange(txSeconds uint32) (resp ntp.Packet, rxTick uint32, err error) {
	err = c.transport.Bind(c.localPort)
	if err != nil {
		return resp, 0, fmt.Errorf("failed to bind transport: %w", err)
	}

	req := ntp.EncodeRequest(txSeconds)
	err = c.transport.BeginSend(c.server, c.port)
	if err != nil {
		return resp, 0, fmt.Errorf("failed to begin packet: %w", err)
	}
	n, err := c.transport.Write(req[:])
	if err != nil {
		return resp, 0, fmt.Errorf("failed to write packet: %w", err)
	}
	if n != len(req) {
		return resp, 0, errWrite
	}
	err = c.transport.EndSend()
	if err != nil {
		return resp, 0, fmt.Errorf("failed to send packet: %w", err)
	}
	txTick := c.ticks.NowTicks()
	c.mtrcs.reqsSent.Inc()

	var size int
	for {
		size = c.transport.PollForPacket()
		if size > 0 {
			break
		}
		if c.ticks.NowTicks()-txTick > c.timeoutMs {
			c.mtrcs.timeouts.Inc()
			c.log.Info("request timed out",
				zap.String("server", c.server),
				zap.Uint32("timeout_ms", c.timeoutMs))
			return resp, 0, ErrTimeout
		}
	}
	rxTick = c.ticks.NowTicks()

	var buf [ntp.PacketLen]byte
	if size < ntp.PacketLen {
		// drain the datagram so that it does not linger in the transport
		n := c.transport.Read(buf[:size])
		c.mtrcs.shortPackets.Inc()
		c.log.Info("packet too short",
			zap.Int("expected", ntp.PacketLen),
			zap.Int("got", size),
			zap.Binary("data", buf[:n]))
		return resp, 0, ErrShortPacket
	}

	total := 0
	for total < len(buf) {
		n := c.transport.Read(buf[total:])
		if n <= 0 {
			break
		}
		total += n
	}
	if total < len(buf) {
		c.mtrcs.incompleteReads.Inc()
		c.log.Info("response read incomplete",
			zap.Int("expected", ntp.PacketLen),
			zap.Int("got", total),
			zap.Binary("data", buf[:total]))
		return resp, 0, ErrIncompleteRead
	}

	err = ntp.DecodePacket(&resp, buf[:])
	if err != nil {
		panic(err) // buf has exactly ntp.PacketLen bytes
	}
	c.log.Debug("received response",
		zap.Uint32("at", rxTick),
		zap.String("from", c.server),
		zap.Object("data", ntp.PacketMarshaler{Pkt: &resp}),
	)

	if c.validate {
		err = ntp.ValidateResponseMetadata(&resp)
		if err != nil {
			c.log.Info("received packet with unexpected type or structure", zap.Error(err))
			return resp, 0, ErrUnexpectedResponse
		}
	}

	if c.histo != nil {
		err = c.histo.RecordValue(int64(rxTick - txTick))
		if err != nil {
			c.log.Info("failed to record round trip time", zap.Error(err))
		}
	}
	c.mtrcs.respsAccepted.Inc()

	if rxTick == 0 {
		// 0 marks an unsynchronized state
		rxTick--
	}
	return resp, rxTick, nil
}

// sync runs one exchange and, on success, replaces the synchronization
// point. A non-zero t0 selects full offset mode. On failure the state is
// left untouched.
func (c *Client) sync(t0 uint32) error {
	resp, rxTick, err := c.exchange(t0)
	if err != nil {
		return err
	}

	useOffset := t0 != 0
	var t3 uint32
	var delay int32
	if useOffset {
		t3 = c.utcSecondsAt(rxTick)
		delay = ntp.RoundTripDelay(resp.OriginTime.Seconds, resp.ReceiveTime.Seconds,
			resp.TransmitTime.Seconds, ntp.UnixToProtocol(t3))
	}
	seconds, offset := estimate(&resp, t3, useOffset)

	c.state = syncState{
		lastSyncEpochSeconds: seconds,
		lastSyncTick:         rxTick,
	}
	c.mtrcs.syncs.Inc()
	if useOffset {
		c.mtrcs.offset.Set(float64(offset))
	}
	c.log.Debug("synchronized",
		zap.Bool("offset_mode", useOffset),
		zap.Int32("offset", offset),
		zap.Int32("round_trip_delay", delay),
		zap.Uint32("epoch_seconds", seconds),
		zap.Uint32("tick", rxTick),
	)
	return nil
}
