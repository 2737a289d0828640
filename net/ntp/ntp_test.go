package ntp_test

import (
	"encoding/binary"
	"testing"
	"time"

	"example.com/tinyntp/net/ntp"
)

func TestEncodeRequest(t *testing.T) {
	const txSeconds = 0xe8a1b2c3
	b := ntp.EncodeRequest(txSeconds)

	if b[0] != 0xdb {
		t.Errorf("mode byte = %#x; expected 0xdb", b[0])
	}
	if v := binary.BigEndian.Uint32(b[40:44]); v != txSeconds {
		t.Errorf("transmit seconds on the wire = %#x; expected %#x", v, uint32(txSeconds))
	}
	for i, x := range b {
		if i == 0 || 40 <= i && i < 44 {
			continue
		}
		if x != 0 {
			t.Errorf("byte %d = %#x; expected 0", i, x)
		}
	}

	pkt, err := ntp.DecodeResponse(b[:])
	if err != nil {
		t.Fatalf("DecodeResponse failed: %v", err)
	}
	if pkt.LeapIndicator() != ntp.LeapIndicatorUnknown ||
		pkt.Version() != 3 || pkt.Mode() != ntp.ModeClient {
		t.Errorf("unexpected LVM fields: li=%d vn=%d mode=%d",
			pkt.LeapIndicator(), pkt.Version(), pkt.Mode())
	}
	if pkt.TransmitTime.Seconds != txSeconds || pkt.TransmitTime.Fraction != 0 {
		t.Errorf("unexpected transmit time %+v", pkt.TransmitTime)
	}
}

func TestPacketRoundTrip(t *testing.T) {
	tests := []ntp.Packet{
		{},
		{
			LVM:            0x24,
			Stratum:        2,
			Poll:           6,
			Precision:      -20,
			RootDelay:      0x00000a1b,
			RootDispersion: 0x00001c2d,
			ReferenceID:    0xc0a80001,
			ReferenceTime:  ntp.Time64{Seconds: 3900000000, Fraction: 1},
			OriginTime:     ntp.Time64{Seconds: 3900000001, Fraction: 0x80000000},
			ReceiveTime:    ntp.Time64{Seconds: 3900000002, Fraction: 0xffffffff},
			TransmitTime:   ntp.Time64{Seconds: 0xffffffff, Fraction: 0x01020304},
		},
	}
	for _, want := range tests {
		var b []byte
		ntp.EncodePacket(&b, &want)
		if len(b) != ntp.PacketLen {
			t.Fatalf("encoded length = %d; expected %d", len(b), ntp.PacketLen)
		}
		var got ntp.Packet
		err := ntp.DecodePacket(&got, b)
		if err != nil {
			t.Fatalf("DecodePacket failed: %v", err)
		}
		if got != want {
			t.Errorf("decode(encode(%+v)) = %+v", want, got)
		}
	}
}

func TestWireImageIsBigEndian(t *testing.T) {
	pkt := ntp.Packet{
		RootDelay:    0x01020304,
		ReferenceID:  0x0a0b0c0d,
		ReceiveTime:  ntp.Time64{Seconds: 0x11223344, Fraction: 0x55667788},
		TransmitTime: ntp.Time64{Seconds: 0x99aabbcc, Fraction: 0xddeeff00},
	}
	var b []byte
	ntp.EncodePacket(&b, &pkt)

	tests := []struct {
		off  int
		want uint32
	}{
		{4, 0x01020304},
		{12, 0x0a0b0c0d},
		{32, 0x11223344},
		{36, 0x55667788},
		{40, 0x99aabbcc},
		{44, 0xddeeff00},
	}
	for _, test := range tests {
		if got := binary.BigEndian.Uint32(b[test.off:]); got != test.want {
			t.Errorf("word at offset %d = %#x; expected %#x", test.off, got, test.want)
		}
	}
}

func TestDecodeResponseShort(t *testing.T) {
	b := make([]byte, 40)
	_, err := ntp.DecodeResponse(b)
	if err == nil {
		t.Errorf("decoding a 40 byte buffer must fail")
	}
}

func TestByteOrderSelfInverse(t *testing.T) {
	for _, v := range []uint32{0, 1, 0x000000ff, 0x12345678, 0x80000000, 0xffffffff} {
		if got := ntp.NetworkToHost32(ntp.HostToNetwork32(v)); got != v {
			t.Errorf("NetworkToHost32(HostToNetwork32(%#x)) = %#x", v, got)
		}
		if got := ntp.Swap32(ntp.Swap32(v)); got != v {
			t.Errorf("Swap32(Swap32(%#x)) = %#x", v, got)
		}
	}
	if got := ntp.Swap32(0x12345678); got != 0x78563412 {
		t.Errorf("Swap32(0x12345678) = %#x", got)
	}
}

func TestClockOffset(t *testing.T) {
	tests := []struct {
		t0, t1, t2, t3 uint32
		offset, rtd    int32
	}{
		{100, 105, 106, 112, -1, 11},
		{100, 110, 110, 100, 10, 0},
		{1000, 990, 991, 1001, -10, 0},
		// deltas across the 32 bit wrap
		{0xfffffffe, 0x00000003, 0x00000004, 0x0000000a, -1, 11},
	}
	for _, test := range tests {
		if got := ntp.ClockOffset(test.t0, test.t1, test.t2, test.t3); got != test.offset {
			t.Errorf("ClockOffset(%d, %d, %d, %d) = %d; expected %d",
				test.t0, test.t1, test.t2, test.t3, got, test.offset)
		}
		if got := ntp.RoundTripDelay(test.t0, test.t1, test.t2, test.t3); got != test.rtd {
			t.Errorf("RoundTripDelay(%d, %d, %d, %d) = %d; expected %d",
				test.t0, test.t1, test.t2, test.t3, got, test.rtd)
		}
	}
}

func TestEpochConversion(t *testing.T) {
	if got := ntp.UnixToProtocol(0); got != 2208988800 {
		t.Errorf("UnixToProtocol(0) = %d", got)
	}
	const unix = 1700000000
	if got := ntp.ProtocolToUnix(ntp.UnixToProtocol(unix)); got != unix {
		t.Errorf("ProtocolToUnix(UnixToProtocol(%d)) = %d", unix, got)
	}
}

func TestValidateResponseMetadata(t *testing.T) {
	var pkt ntp.Packet
	pkt.SetLeapIndicator(ntp.LeapIndicatorNoWarning)
	pkt.SetVersion(4)
	pkt.SetMode(ntp.ModeServer)
	pkt.Stratum = 1
	if err := ntp.ValidateResponseMetadata(&pkt); err != nil {
		t.Errorf("valid response rejected: %v", err)
	}

	bad := pkt
	bad.Stratum = 0
	if ntp.ValidateResponseMetadata(&bad) == nil {
		t.Errorf("stratum 0 response must be rejected")
	}
	bad = pkt
	bad.SetMode(ntp.ModeClient)
	if ntp.ValidateResponseMetadata(&bad) == nil {
		t.Errorf("client mode response must be rejected")
	}
	bad = pkt
	bad.SetLeapIndicator(ntp.LeapIndicatorUnknown)
	if ntp.ValidateResponseMetadata(&bad) == nil {
		t.Errorf("unsynchronized response must be rejected")
	}
	bad = pkt
	bad.ReceiveTime = ntp.Time64{Seconds: 3912345678, Fraction: 0x80000000}
	bad.TransmitTime = ntp.Time64{Seconds: 3912345678, Fraction: 0x7fffffff}
	if ntp.ValidateResponseMetadata(&bad) == nil {
		t.Errorf("response transmitted before it was received must be rejected")
	}
	ok := bad
	ok.TransmitTime = ok.ReceiveTime
	if err := ntp.ValidateResponseMetadata(&ok); err != nil {
		t.Errorf("response with equal receive and transmit times rejected: %v", err)
	}
}

func TestBefore(t *testing.T) {
	t0 := ntp.Time64{Seconds: 10, Fraction: 100}
	t1 := ntp.Time64{Seconds: 10, Fraction: 200}
	t2 := ntp.Time64{Seconds: 20, Fraction: 0}

	if !t0.Before(t1) || !t1.Before(t2) || !t0.Before(t2) {
		t.Errorf("t0 < t1 < t2 must hold")
	}
	if t1.Before(t0) || t2.Before(t1) || t2.Before(t2) {
		t.Errorf("unexpected ordering")
	}
}

func TestTime64FromTime(t *testing.T) {
	t0 := time.Unix(1700000000, 500_000_000)
	t64 := ntp.Time64FromTime(t0)
	if t64.Seconds != 1700000000+2208988800 {
		t.Errorf("seconds = %d", t64.Seconds)
	}
	if t64.Fraction != 1<<31 {
		t.Errorf("fraction = %#x; expected 0x80000000", t64.Fraction)
	}
}
