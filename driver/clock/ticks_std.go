//go:build !linux

package clock

import (
	"time"
)

var start = time.Now()

func monotonicMillis() (int64, error) {
	return time.Since(start).Milliseconds(), nil
}
