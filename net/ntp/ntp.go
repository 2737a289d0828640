package ntp

import (
	"errors"
	"time"
)

const (
	// Seconds from NTP epoch (1900) to Unix epoch (1970), including 17 leap days
	EpochDelta uint32 = 2208988800

	ServerPort = 123

	PacketLen = 48

	nanosecondsPerSecond int64 = 1e9

	// LI = 3, VN = 3, Mode = 3, the request byte sent by legacy SNTP clients
	ClientRequestLVM uint8 = 0xdb

	LeapIndicatorNoWarning    = 0
	LeapIndicatorInsertSecond = 1
	LeapIndicatorDeleteSecond = 2
	LeapIndicatorUnknown      = 3

	VersionMin = 1
	VersionMax = 4

	ModeReserved0        = 0
	ModeSymmetricActive  = 1
	ModeSymmetricPassive = 2
	ModeClient           = 3
	ModeServer           = 4
	ModeBroadcast        = 5
	ModeControl          = 6
	ModeReserved7        = 7
)

// Field offsets within the 48 byte packet.
const (
	offLVM            = 0
	offStratum        = 1
	offPoll           = 2
	offPrecision      = 3
	offRootDelay      = 4
	offRootDispersion = 8
	offReferenceID    = 12
	offReferenceTime  = 16
	offOriginTime     = 24
	offReceiveTime    = 32
	offTransmitTime   = 40
)

type Time64 struct {
	Seconds  uint32
	Fraction uint32
}

type Packet struct {
	LVM            uint8
	Stratum        uint8
	Poll           int8
	Precision      int8
	RootDelay      uint32
	RootDispersion uint32
	ReferenceID    uint32
	ReferenceTime  Time64
	OriginTime     Time64
	ReceiveTime    Time64
	TransmitTime   Time64
}

var (
	errUnexpectedPacketSize = errors.New("unexpected packet size")
)

// UnixToProtocol converts Unix epoch seconds to NTP epoch seconds. Both
// representations are 32 bits wide and wrap (NTP era 0 ends in 2036).
func UnixToProtocol(s uint32) uint32 {
	return s + EpochDelta
}

func ProtocolToUnix(s uint32) uint32 {
	return s - EpochDelta
}

func Time64FromTime(t time.Time) Time64 {
	return Time64{
		Seconds:  UnixToProtocol(uint32(t.Unix())),
		Fraction: uint32(int64(t.Nanosecond()) << 32 / nanosecondsPerSecond),
	}
}

func (t Time64) Before(u Time64) bool {
	return t.Seconds < u.Seconds ||
		t.Seconds == u.Seconds && t.Fraction < u.Fraction
}

// ClockOffset returns ((t1 - t0) + (t2 - t3)) / 2 for whole-second NTP
// timestamps, computed on signed 32 bit deltas. The halving rounds toward
// negative infinity.
func ClockOffset(t0, t1, t2, t3 uint32) int32 {
	return (int32(t1-t0) + int32(t2-t3)) >> 1
}

func RoundTripDelay(t0, t1, t2, t3 uint32) int32 {
	return int32(t3-t0) - int32(t2-t1)
}

// EncodeRequest builds the client request: mode byte 0xDB, all other fields
// zero except the transmit timestamp seconds.
func EncodeRequest(transmitSeconds uint32) [PacketLen]byte {
	var b [PacketLen]byte
	b[offLVM] = ClientRequestLVM
	putUint32(b[offTransmitTime:], transmitSeconds)
	return b
}

func EncodePacket(b *[]byte, pkt *Packet) {
	if cap(*b) < PacketLen {
		*b = make([]byte, PacketLen)
	} else {
		*b = (*b)[:PacketLen]
	}

	buf := *b
	_ = buf[47]
	buf[offLVM] = byte(pkt.LVM)
	buf[offStratum] = byte(pkt.Stratum)
	buf[offPoll] = byte(pkt.Poll)
	buf[offPrecision] = byte(pkt.Precision)
	putUint32(buf[offRootDelay:], pkt.RootDelay)
	putUint32(buf[offRootDispersion:], pkt.RootDispersion)
	putUint32(buf[offReferenceID:], pkt.ReferenceID)
	putTime64(buf[offReferenceTime:], pkt.ReferenceTime)
	putTime64(buf[offOriginTime:], pkt.OriginTime)
	putTime64(buf[offReceiveTime:], pkt.ReceiveTime)
	putTime64(buf[offTransmitTime:], pkt.TransmitTime)
}

// DecodePacket reinterprets the first 48 bytes of b. Only the shape is
// checked, field values are passed through as received.
func DecodePacket(pkt *Packet, b []byte) error {
	if len(b) < PacketLen {
		return errUnexpectedPacketSize
	}

	_ = b[47]
	pkt.LVM = uint8(b[offLVM])
	pkt.Stratum = uint8(b[offStratum])
	pkt.Poll = int8(b[offPoll])
	pkt.Precision = int8(b[offPrecision])
	pkt.RootDelay = getUint32(b[offRootDelay:])
	pkt.RootDispersion = getUint32(b[offRootDispersion:])
	pkt.ReferenceID = getUint32(b[offReferenceID:])
	pkt.ReferenceTime = getTime64(b[offReferenceTime:])
	pkt.OriginTime = getTime64(b[offOriginTime:])
	pkt.ReceiveTime = getTime64(b[offReceiveTime:])
	pkt.TransmitTime = getTime64(b[offTransmitTime:])

	return nil
}

func DecodeResponse(b []byte) (Packet, error) {
	var pkt Packet
	err := DecodePacket(&pkt, b)
	return pkt, err
}

func putTime64(b []byte, t Time64) {
	putUint32(b[0:], t.Seconds)
	putUint32(b[4:], t.Fraction)
}

func getTime64(b []byte) Time64 {
	return Time64{
		Seconds:  getUint32(b[0:]),
		Fraction: getUint32(b[4:]),
	}
}

func (p *Packet) LeapIndicator() uint8 {
	return (p.LVM >> 6) & 0b0000_0011
}

func (p *Packet) SetLeapIndicator(l uint8) {
	if l&0b0000_0011 != l {
		panic("unexpected NTP leap indicator value")
	}
	p.LVM = (p.LVM & 0b0011_1111) | (l << 6)
}

func (p *Packet) Version() uint8 {
	return (p.LVM >> 3) & 0b0000_0111
}

func (p *Packet) SetVersion(v uint8) {
	if v&0b0000_0111 != v {
		panic("unexpected NTP version value")
	}
	p.LVM = (p.LVM & 0b_1100_0111) | (v << 3)
}

func (p *Packet) Mode() uint8 {
	return p.LVM & 0b0000_0111
}

func (p *Packet) SetMode(m uint8) {
	if m&0b0000_0111 != m {
		panic("unexpected NTP mode value")
	}
	p.LVM = (p.LVM & 0b1111_1000) | m
}
