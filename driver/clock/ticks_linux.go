//go:build linux

package clock

import (
	"golang.org/x/sys/unix"
)

func monotonicMillis() (int64, error) {
	var ts unix.Timespec
	err := unix.ClockGettime(unix.CLOCK_MONOTONIC, &ts)
	if err != nil {
		return 0, err
	}
	return int64(ts.Sec)*1e3 + int64(ts.Nsec)/1e6, nil
}
