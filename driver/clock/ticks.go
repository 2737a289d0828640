package clock

import (
	"go.uber.org/zap"

	"example.com/tinyntp/base/timebase"
	"example.com/tinyntp/base/zaplog"
)

// SystemTicks is a millisecond tick source backed by the host's monotonic
// clock. It is unaffected by steps of the wall clock.
type SystemTicks struct {
	Log *zap.Logger
}

var _ timebase.TickSource = (*SystemTicks)(nil)

func (c *SystemTicks) NowTicks() uint32 {
	ms, err := monotonicMillis()
	if err != nil {
		zaplog.Or(c.Log).Fatal("failed to read monotonic clock", zap.Error(err))
	}
	return uint32(ms)
}
