//go:build linux && (amd64 || arm64)

package v4l2

import "time"

// timeval mirrors struct timeval: 16 bytes on 64-bit architectures.
type timeval struct {
	sec  int64
	usec int64
}

func (t timeval) time() time.Time {
	return time.Unix(t.sec, t.usec*1000)
}
