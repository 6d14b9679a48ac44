//go:build linux

package v4l2

import (
	"fmt"
	"syscall"
	"unsafe"
)

// RequestBuffers asks the driver for count mmap buffers and returns how many
// it granted, which may be fewer or more than requested.
func (d *Device) RequestBuffers(count uint32) (uint32, error) {
	req := v4l2_requestbuffers{
		count:  count,
		typ:    BufTypeVideoCapture,
		memory: MemoryMmap,
	}
	if err := ioctl(d.fd, VIDIOC_REQBUFS, unsafe.Pointer(&req)); err != nil {
		return 0, fmt.Errorf("reqbufs %s: %w", d.path, err)
	}
	return req.count, nil
}

// ReleaseBuffers frees the driver-side buffer queue by requesting zero
// buffers. All mappings must be unmapped first.
func (d *Device) ReleaseBuffers() error {
	req := v4l2_requestbuffers{
		typ:    BufTypeVideoCapture,
		memory: MemoryMmap,
	}
	return ioctl(d.fd, VIDIOC_REQBUFS, unsafe.Pointer(&req))
}

// MapBuffer queries buffer index and maps it into the process address
// space. The mapping stays valid until UnmapBuffer.
func (d *Device) MapBuffer(index uint32) ([]byte, error) {
	buf := v4l2_buffer{
		index:  index,
		typ:    BufTypeVideoCapture,
		memory: MemoryMmap,
	}
	if err := ioctl(d.fd, VIDIOC_QUERYBUF, unsafe.Pointer(&buf)); err != nil {
		return nil, fmt.Errorf("querybuf %s index %d: %w", d.path, index, err)
	}
	data, err := syscall.Mmap(d.fd, int64(buf.m), int(buf.length),
		syscall.PROT_READ|syscall.PROT_WRITE, syscall.MAP_SHARED)
	if err != nil {
		return nil, fmt.Errorf("mmap %s index %d: %w", d.path, index, err)
	}
	return data, nil
}

// UnmapBuffer releases a mapping returned by MapBuffer.
func (d *Device) UnmapBuffer(data []byte) error {
	return syscall.Munmap(data)
}

// QueueBuffer hands buffer index back to the driver for filling.
func (d *Device) QueueBuffer(index uint32) error {
	buf := v4l2_buffer{
		index:  index,
		typ:    BufTypeVideoCapture,
		memory: MemoryMmap,
	}
	return ioctl(d.fd, VIDIOC_QBUF, unsafe.Pointer(&buf))
}

// DequeueBuffer blocks until the driver completes a buffer and returns its
// index and payload metadata. The raw errno is surfaced unchanged so callers
// can retry EINTR.
func (d *Device) DequeueBuffer() (Frame, error) {
	buf := v4l2_buffer{
		typ:    BufTypeVideoCapture,
		memory: MemoryMmap,
	}
	if err := ioctl(d.fd, VIDIOC_DQBUF, unsafe.Pointer(&buf)); err != nil {
		return Frame{}, err
	}
	return Frame{
		Index:     buf.index,
		BytesUsed: buf.bytesused,
		Flags:     buf.flags,
		Sequence:  buf.sequence,
		Timestamp: buf.timestamp.time(),
	}, nil
}

// StreamOn starts capture streaming.
func (d *Device) StreamOn() error {
	typ := int32(BufTypeVideoCapture)
	return ioctl(d.fd, VIDIOC_STREAMON, unsafe.Pointer(&typ))
}

// StreamOff stops streaming and removes all buffers from both driver queues.
func (d *Device) StreamOff() error {
	typ := int32(BufTypeVideoCapture)
	return ioctl(d.fd, VIDIOC_STREAMOFF, unsafe.Pointer(&typ))
}
