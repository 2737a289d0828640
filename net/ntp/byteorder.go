package ntp

import (
	"unsafe"
)

// Host byte order is probed once at run time. Packet fields are converted
// with HostToNetwork32/NetworkToHost32 and then stored in host memory order,
// which puts them on the wire in big endian order on any host.
var hostLittleEndian = isLittleEndian()

func isLittleEndian() bool {
	x := uint32(1)
	return *(*byte)(unsafe.Pointer(&x)) == 1
}

func Swap32(v uint32) uint32 {
	return (v&0x000000ff)<<24 | (v&0x0000ff00)<<8 |
		(v&0x00ff0000)>>8 | (v&0xff000000)>>24
}

func HostToNetwork32(v uint32) uint32 {
	return hostToNetwork32(hostLittleEndian, v)
}

func NetworkToHost32(v uint32) uint32 {
	return networkToHost32(hostLittleEndian, v)
}

func hostToNetwork32(littleEndian bool, v uint32) uint32 {
	if littleEndian {
		return Swap32(v)
	}
	return v
}

func networkToHost32(littleEndian bool, v uint32) uint32 {
	if littleEndian {
		return Swap32(v)
	}
	return v
}

func storeHost32(littleEndian bool, b []byte, w uint32) {
	_ = b[3]
	if littleEndian {
		b[0] = byte(w)
		b[1] = byte(w >> 8)
		b[2] = byte(w >> 16)
		b[3] = byte(w >> 24)
	} else {
		b[0] = byte(w >> 24)
		b[1] = byte(w >> 16)
		b[2] = byte(w >> 8)
		b[3] = byte(w)
	}
}

func loadHost32(littleEndian bool, b []byte) uint32 {
	_ = b[3]
	if littleEndian {
		return uint32(b[0]) | uint32(b[1])<<8 | uint32(b[2])<<16 | uint32(b[3])<<24
	}
	return uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3])
}

func putUint32(b []byte, v uint32) {
	storeHost32(hostLittleEndian, b, HostToNetwork32(v))
}

func getUint32(b []byte) uint32 {
	return NetworkToHost32(loadHost32(hostLittleEndian, b))
}
