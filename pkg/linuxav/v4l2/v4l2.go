//go:build linux

// Package v4l2 provides pure Go bindings to the Video4Linux2 (V4L2) API
// for capture devices: capability queries, format negotiation, memory-mapped
// streaming I/O, device controls, and input/standard/tuner selection.
//
// This package does not use cgo, enabling simple cross-compilation for
// different Linux architectures (amd64, arm64, arm).
//
// # Device Enumeration
//
// Use FindDevices to discover all V4L2 video capture devices:
//
//	devices, err := v4l2.FindDevices()
//	for _, dev := range devices {
//	    fmt.Printf("%s: %s\n", dev.DevicePath, dev.DeviceName)
//	}
//
// # Capture
//
// Open a device and drive the streaming state machine directly:
//
//	dev, _ := v4l2.Open("/dev/video0")
//	dev.SetFormat(1280, 720, v4l2.PixFmtYUYV)
//	count, _ := dev.RequestBuffers(4)
//	for i := uint32(0); i < count; i++ {
//	    data, _ := dev.MapBuffer(i)
//	    dev.QueueBuffer(i)
//	}
//	dev.StreamOn()
//	frame, _ := dev.DequeueBuffer()
//
// Every method issues a single ioctl and surfaces the raw errno. Callers
// that need EINTR retry semantics wrap them.
package v4l2
