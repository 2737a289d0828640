package ntp

import (
	"encoding/binary"
	"testing"
)

func TestConversionOnBothByteOrders(t *testing.T) {
	for _, little := range []bool{true, false} {
		for _, v := range []uint32{0, 0xdb, 0x12345678, 0xdeadbeef, 0xffffffff} {
			if got := networkToHost32(little, hostToNetwork32(little, v)); got != v {
				t.Errorf("little=%v: round trip of %#x = %#x", little, v, got)
			}

			// A network order word stored in host memory order must read
			// back as big endian bytes.
			var b [4]byte
			storeHost32(little, b[:], hostToNetwork32(little, v))
			if got := binary.BigEndian.Uint32(b[:]); got != v {
				t.Errorf("little=%v: wire image of %#x = %#x", little, v, got)
			}
			if got := networkToHost32(little, loadHost32(little, b[:])); got != v {
				t.Errorf("little=%v: decoded %#x; expected %#x", little, got, v)
			}
		}
	}
}

func TestHostByteOrderProbe(t *testing.T) {
	var b [4]byte
	binary.NativeEndian.PutUint32(b[:], 1)
	if want := b[0] == 1; hostLittleEndian != want {
		t.Errorf("hostLittleEndian = %v; expected %v", hostLittleEndian, want)
	}
}
