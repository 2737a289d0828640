// Package gopacketntp dissects raw NTP datagrams with gopacket's NTP layer.
// It serves as an independent decoder for diagnostics and cross-checks of
// package ntp.
package gopacketntp

import (
	"errors"

	"github.com/google/gopacket"
	"github.com/google/gopacket/layers"

	"example.com/tinyntp/net/ntp"
)

var (
	errNoNTPLayer = errors.New("no NTP layer found")
	errMismatch   = errors.New("codec and dissector disagree")
)

func Dissect(b []byte) (*layers.NTP, error) {
	pkt := gopacket.NewPacket(b, layers.LayerTypeNTP, gopacket.Default)
	if l := pkt.ErrorLayer(); l != nil {
		return nil, l.Error()
	}
	l, ok := pkt.Layer(layers.LayerTypeNTP).(*layers.NTP)
	if !ok {
		return nil, errNoNTPLayer
	}
	return l, nil
}

// Dump returns a human readable, multi-line description of the datagram.
func Dump(b []byte) string {
	return gopacket.NewPacket(b, layers.LayerTypeNTP, gopacket.Default).Dump()
}

func time64FromNTPTimestamp(ts layers.NTPTimestamp) ntp.Time64 {
	return ntp.Time64{
		Seconds:  uint32(uint64(ts) >> 32),
		Fraction: uint32(ts),
	}
}

// ToPacket converts a dissected layer into the codec's packet representation.
func ToPacket(l *layers.NTP) ntp.Packet {
	var pkt ntp.Packet
	pkt.SetLeapIndicator(uint8(l.LeapIndicator) & 0b11)
	pkt.SetVersion(uint8(l.Version) & 0b111)
	pkt.SetMode(uint8(l.Mode) & 0b111)
	pkt.Stratum = uint8(l.Stratum)
	pkt.Poll = int8(l.Poll)
	pkt.Precision = int8(l.Precision)
	pkt.RootDelay = uint32(l.RootDelay)
	pkt.RootDispersion = uint32(l.RootDispersion)
	pkt.ReferenceID = uint32(l.ReferenceID)
	pkt.ReferenceTime = time64FromNTPTimestamp(l.ReferenceTimestamp)
	pkt.OriginTime = time64FromNTPTimestamp(l.OriginTimestamp)
	pkt.ReceiveTime = time64FromNTPTimestamp(l.ReceiveTimestamp)
	pkt.TransmitTime = time64FromNTPTimestamp(l.TransmitTimestamp)
	return pkt
}

// CrossCheck decodes b with both package ntp and gopacket and reports an
// error if the two views of the packet differ.
func CrossCheck(b []byte) error {
	pkt, err := ntp.DecodeResponse(b)
	if err != nil {
		return err
	}
	l, err := Dissect(b[:ntp.PacketLen])
	if err != nil {
		return err
	}
	if ToPacket(l) != pkt {
		return errMismatch
	}
	return nil
}
