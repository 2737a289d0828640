package client

import (
	"example.com/tinyntp/net/ntp"
)

// estimate returns the absolute time in Unix seconds derived from resp.
//
// In full offset mode the clock offset is computed from the originate,
// receive and transmit timestamps and the destination time t3 (Unix
// seconds), assuming symmetric network delay. Otherwise the server's
// transmit timestamp is taken as is. All arithmetic wraps at 32 bits like
// the protocol's own timestamps.
func estimate(resp *ntp.Packet, t3 uint32, useOffset bool) (uint32, int32) {
	transmit := resp.TransmitTime.Seconds
	if !useOffset {
		return ntp.ProtocolToUnix(transmit), 0
	}
	offset := ntp.ClockOffset(
		resp.OriginTime.Seconds,
		resp.ReceiveTime.Seconds,
		transmit,
		ntp.UnixToProtocol(t3),
	)
	return ntp.ProtocolToUnix(transmit) + uint32(offset), offset
}
