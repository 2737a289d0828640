package timebase

// TickSource is a free running millisecond counter. It wraps at its native
// 32 bit width, so elapsed time must be computed as uint32(now - then).
type TickSource interface {
	NowTicks() uint32
}
