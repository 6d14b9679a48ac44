package capture

import (
	"errors"
	"fmt"

	"github.com/rneureuther1/motion/pkg/linuxav/v4l2"
)

const (
	// mmapBufferCount is how many driver buffers are requested; the driver
	// may grant more.
	mmapBufferCount = 4

	// minMmapBuffers is the floor below which streaming cannot ping-pong.
	minMmapBuffers = 2
)

type poolState int

const (
	poolIdle poolState = iota
	poolRequested
	poolMapped
	poolStreaming
	poolStopped
)

// bufferPool owns the memory-mapped streaming queue of one device. At most
// one buffer is held by this process at a time; it is requeued at the start
// of the next capture.
type bufferPool struct {
	dev   *device
	state poolState

	buffers  [][]byte
	inFlight int // buffer index held by us, -1 when none
}

func newBufferPool(dev *device) *bufferPool {
	return &bufferPool{dev: dev, inFlight: -1}
}

// start walks the pool to streaming: request, map, queue all, stream on.
// Any failure unwinds the steps already taken.
func (p *bufferPool) start() error {
	vd := p.dev.vd

	var granted uint32
	err := p.dev.retry(func() error {
		var reqErr error
		granted, reqErr = vd.RequestBuffers(mmapBufferCount)
		return reqErr
	})
	if err != nil {
		return fmt.Errorf("%w: requesting buffers: %v", ErrNegotiate, err)
	}
	p.state = poolRequested
	if granted < minMmapBuffers {
		p.unwind()
		return fmt.Errorf("%w: driver granted %d buffers, need at least %d",
			ErrNegotiate, granted, minMmapBuffers)
	}
	if granted != mmapBufferCount {
		p.dev.log.Info("driver adjusted buffer count",
			"requested", mmapBufferCount, "granted", granted)
	}

	for i := uint32(0); i < granted; i++ {
		data, err := vd.MapBuffer(i)
		if err != nil {
			p.unwind()
			return fmt.Errorf("%w: mapping buffer %d: %v", ErrNegotiate, i, err)
		}
		p.buffers = append(p.buffers, data)
	}
	p.state = poolMapped

	for i := range p.buffers {
		index := uint32(i)
		if err := p.dev.retry(func() error { return vd.QueueBuffer(index) }); err != nil {
			p.unwind()
			return fmt.Errorf("%w: queueing buffer %d: %v", ErrNegotiate, i, err)
		}
	}
	if err := p.dev.retry(vd.StreamOn); err != nil {
		p.unwind()
		return fmt.Errorf("%w: stream on: %v", ErrNegotiate, err)
	}
	p.state = poolStreaming
	p.inFlight = -1
	return nil
}

// capture returns the payload of the next completed buffer. The returned
// slice aliases the mmap region and is valid until the next capture call.
func (p *bufferPool) capture() ([]byte, v4l2.Frame, error) {
	if p.state != poolStreaming {
		return nil, v4l2.Frame{}, fmt.Errorf("capture: pool not streaming (state %d)", p.state)
	}
	vd := p.dev.vd

	if p.inFlight >= 0 {
		index := uint32(p.inFlight)
		if err := p.dev.retry(func() error { return vd.QueueBuffer(index) }); err != nil {
			return nil, v4l2.Frame{}, fmt.Errorf("requeueing buffer %d: %w", index, err)
		}
		p.inFlight = -1
	}

	var frame v4l2.Frame
	err := p.dev.retry(func() error {
		var dqErr error
		frame, dqErr = vd.DequeueBuffer()
		return dqErr
	})
	if err != nil {
		return nil, v4l2.Frame{}, fmt.Errorf("dequeueing: %w", err)
	}
	if int(frame.Index) >= len(p.buffers) {
		return nil, v4l2.Frame{}, fmt.Errorf("driver returned buffer %d of %d", frame.Index, len(p.buffers))
	}
	p.inFlight = int(frame.Index)

	if frame.Flags&v4l2.BufFlagError != 0 || frame.BytesUsed == 0 {
		return nil, frame, fmt.Errorf("%w: buffer %d flags %#x bytes %d",
			ErrCorruptFrame, frame.Index, frame.Flags, frame.BytesUsed)
	}
	return p.buffers[frame.Index][:frame.BytesUsed], frame, nil
}

// drain pulls and discards count frames. Used after input switching to
// flush frames exposed under the previous source.
func (p *bufferPool) drain(count int) {
	for i := 0; i < count; i++ {
		if _, _, err := p.capture(); err != nil {
			if errors.Is(err, ErrCorruptFrame) {
				continue
			}
			p.dev.log.Debug("drain capture failed", "error", err)
			return
		}
	}
}

// shutdown tears the pool down in reverse order: stream off first so the
// driver stops writing, then unmap, then release the queue.
func (p *bufferPool) shutdown() {
	if p.state == poolStopped {
		return
	}
	if p.state == poolStreaming {
		if err := p.dev.vd.StreamOff(); err != nil {
			p.dev.log.Warn("stream off failed", "error", err)
		}
	}
	p.unwind()
	p.state = poolStopped
}

func (p *bufferPool) unwind() {
	for _, data := range p.buffers {
		if err := p.dev.vd.UnmapBuffer(data); err != nil {
			p.dev.log.Warn("unmapping buffer failed", "error", err)
		}
	}
	p.buffers = nil
	p.inFlight = -1
	if p.state >= poolRequested {
		if err := p.dev.vd.ReleaseBuffers(); err != nil {
			p.dev.log.Debug("releasing buffer queue failed", "error", err)
		}
	}
	p.state = poolIdle
}
