//go:build linux && arm && !arm64

package v4l2

import "time"

// timeval mirrors struct timeval: 8 bytes on 32-bit ARM.
type timeval struct {
	sec  int32
	usec int32
}

func (t timeval) time() time.Time {
	return time.Unix(int64(t.sec), int64(t.usec)*1000)
}
