package capture

import "errors"

var (
	// ErrNotSupported reports a pixel format the conversion layer cannot
	// decode.
	ErrNotSupported = errors.New("capture: pixel format not supported")

	// ErrNegotiate reports that no mutually acceptable format exists
	// between the requested configuration and the device.
	ErrNegotiate = errors.New("capture: format negotiation failed")

	// ErrStopped reports that an ioctl was abandoned because the device is
	// shutting down.
	ErrStopped = errors.New("capture: device stopped")

	// ErrCorruptFrame reports a frame the driver flagged as damaged or that
	// arrived truncated. The stream remains usable.
	ErrCorruptFrame = errors.New("capture: corrupt frame")

	// ErrClosed reports use of a handle after Close.
	ErrClosed = errors.New("capture: handle closed")
)
