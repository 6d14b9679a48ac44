package capture

import (
	"bytes"
	"errors"
	"fmt"
	"testing"

	"github.com/rneureuther1/motion/pkg/linuxav/v4l2"
)

// tinyConfig negotiates an 8x8 planar frame so scripted payloads stay small.
func tinyConfig(path string) Config {
	cfg := DefaultConfig(path)
	cfg.Width, cfg.Height = 8, 8
	return cfg
}

func tinyFrame(fill byte) []byte {
	return bytes.Repeat([]byte{fill}, 96) // 8x8 planar 4:2:0
}

func TestOpenStartsStreaming(t *testing.T) {
	fake := newFakeDevice()
	fake.frames = [][]byte{tinyFrame(1)}
	r := testRegistry(fake)

	h, err := r.Open(tinyConfig(fake.path))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	if got := fake.opCount("reqbufs"); got != 1 {
		t.Errorf("reqbufs calls = %d, want 1", got)
	}
	if got := fake.opCount("streamon"); got != 1 {
		t.Errorf("streamon calls = %d, want 1", got)
	}
	for i := 0; i < 4; i++ {
		if fake.opCount("qbuf"+string(rune('0'+i))) != 1 {
			t.Errorf("buffer %d not queued before streamon", i)
		}
	}
	if h.Width() != 8 || h.Height() != 8 {
		t.Errorf("geometry = %dx%d, want 8x8", h.Width(), h.Height())
	}
	if h.FrameSize() != 96 {
		t.Errorf("FrameSize = %d, want 96", h.FrameSize())
	}
}

func TestOpenTooFewBuffers(t *testing.T) {
	fake := newFakeDevice()
	fake.granted = 1
	r := testRegistry(fake)

	_, err := r.Open(tinyConfig(fake.path))
	if !errors.Is(err, ErrNegotiate) {
		t.Fatalf("error = %v, want ErrNegotiate", err)
	}
	if len(r.Devices()) != 0 {
		t.Error("failed open left a registry entry")
	}
	if !fake.closed {
		t.Error("failed open left the node open")
	}
}

func TestOpenSharesDevice(t *testing.T) {
	fake := newFakeDevice()
	fake.frames = [][]byte{tinyFrame(1)}
	r := testRegistry(fake)

	h1, err := r.Open(tinyConfig(fake.path))
	if err != nil {
		t.Fatalf("first open: %v", err)
	}
	h2, err := r.Open(tinyConfig(fake.path))
	if err != nil {
		t.Fatalf("second open: %v", err)
	}

	if got := fake.opCount("reqbufs"); got != 1 {
		t.Errorf("device initialized %d times, want 1", got)
	}

	if err := h1.Close(); err != nil {
		t.Fatalf("first close: %v", err)
	}
	if fake.closed {
		t.Fatal("device torn down while a consumer remains")
	}
	if err := h2.Close(); err != nil {
		t.Fatalf("second close: %v", err)
	}
	if !fake.closed {
		t.Fatal("device not torn down after last close")
	}
	if len(r.Devices()) != 0 {
		t.Error("registry entry not removed")
	}
}

func TestTeardownOrder(t *testing.T) {
	fake := newFakeDevice()
	fake.frames = [][]byte{tinyFrame(1)}
	r := testRegistry(fake)

	h, err := r.Open(tinyConfig(fake.path))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	// The driver must stop writing before the mappings disappear.
	streamoff, munmap, fclose := -1, -1, -1
	for i, op := range fake.ops {
		switch op {
		case "streamoff":
			streamoff = i
		case "munmap":
			if munmap < 0 {
				munmap = i
			}
		case "close":
			fclose = i
		}
	}
	if streamoff < 0 || munmap < 0 || fclose < 0 {
		t.Fatalf("missing teardown ops in %v", fake.ops)
	}
	if !(streamoff < munmap && munmap < fclose) {
		t.Errorf("teardown order streamoff=%d munmap=%d close=%d", streamoff, munmap, fclose)
	}
}

func TestNextFrameDelivers(t *testing.T) {
	fake := newFakeDevice()
	fake.frames = [][]byte{tinyFrame(11), tinyFrame(22)}
	r := testRegistry(fake)

	h, err := r.Open(tinyConfig(fake.path))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	dst := make([]byte, h.FrameSize())
	if err := h.NextFrame(dst); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if !bytes.Equal(dst, tinyFrame(11)) {
		t.Error("first frame payload mismatch")
	}
	if err := h.NextFrame(dst); err != nil {
		t.Fatalf("second frame: %v", err)
	}
	if !bytes.Equal(dst, tinyFrame(22)) {
		t.Error("second frame payload mismatch")
	}
}

func TestNextFrameRequeuesInFlightBuffer(t *testing.T) {
	fake := newFakeDevice()
	fake.frames = [][]byte{tinyFrame(1)}
	r := testRegistry(fake)

	h, err := r.Open(tinyConfig(fake.path))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	dst := make([]byte, h.FrameSize())
	for i := 0; i < 3; i++ {
		if err := h.NextFrame(dst); err != nil {
			t.Fatalf("frame %d: %v", i, err)
		}
	}
	// Initial queue plus one requeue each for the first two dequeued
	// buffers; the third is still in flight.
	if got := fake.opCount("qbuf0"); got != 2 {
		t.Errorf("qbuf0 calls = %d, want 2", got)
	}
	if got := fake.opCount("qbuf1"); got != 2 {
		t.Errorf("qbuf1 calls = %d, want 2", got)
	}
	if got := fake.opCount("qbuf2"); got != 1 {
		t.Errorf("qbuf2 calls = %d, want 1", got)
	}
}

func TestNextFrameCorruptFrameIsRecoverable(t *testing.T) {
	fake := newFakeDevice()
	fake.frames = [][]byte{tinyFrame(1)}
	fake.flagged[1] = v4l2.BufFlagError
	r := testRegistry(fake)

	h, err := r.Open(tinyConfig(fake.path))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	dst := make([]byte, h.FrameSize())
	if err := h.NextFrame(dst); err != nil {
		t.Fatalf("first frame: %v", err)
	}
	if err := h.NextFrame(dst); !errors.Is(err, ErrCorruptFrame) {
		t.Fatalf("error = %v, want ErrCorruptFrame", err)
	}
	if err := h.NextFrame(dst); err != nil {
		t.Fatalf("stream did not survive corrupt frame: %v", err)
	}
}

func TestRoundRobinInputSwitch(t *testing.T) {
	fake := newFakeDevice()
	fake.frames = [][]byte{tinyFrame(1)}
	fake.inputs = []v4l2.InputInfo{
		{Index: 0, Name: "Composite 0", Type: v4l2.InputTypeCamera},
		{Index: 1, Name: "Composite 1", Type: v4l2.InputTypeCamera},
	}
	r := testRegistry(fake)

	cfg1 := tinyConfig(fake.path)
	cfg1.Input = 0
	h1, err := r.Open(cfg1)
	if err != nil {
		t.Fatalf("open input 0: %v", err)
	}
	defer h1.Close()

	cfg2 := tinyConfig(fake.path)
	cfg2.Input = 1
	cfg2.RoundRobinSkip = 2
	h2, err := r.Open(cfg2)
	if err != nil {
		t.Fatalf("open input 1: %v", err)
	}
	defer h2.Close()

	dst := make([]byte, h1.FrameSize())
	if err := h1.NextFrame(dst); err != nil {
		t.Fatalf("h1 frame: %v", err)
	}
	before := fake.captures
	if err := h2.NextFrame(dst); err != nil {
		t.Fatalf("h2 frame: %v", err)
	}

	if got := fake.opCount("s_input1"); got != 1 {
		t.Errorf("s_input1 calls = %d, want 1", got)
	}
	// Ownership switch drains the whole queue (4) plus skip-1 (1)
	// before the delivered frame.
	if got := fake.captures - before; got != 6 {
		t.Errorf("captures during switch = %d, want 6", got)
	}

	// Taking the device back switches the input again.
	if err := h1.NextFrame(dst); err != nil {
		t.Fatalf("h1 frame after switch: %v", err)
	}
	if got := fake.opCount("s_input0"); got < 1 {
		t.Errorf("device was not switched back to input 0 (ops %v)", fake.ops)
	}
}

func TestRoundRobinConcurrentHandoff(t *testing.T) {
	fake := newFakeDevice()
	fake.frames = [][]byte{tinyFrame(1)}
	fake.inputs = []v4l2.InputInfo{
		{Index: 0, Name: "Composite 0", Type: v4l2.InputTypeCamera},
		{Index: 1, Name: "Composite 1", Type: v4l2.InputTypeCamera},
	}
	r := testRegistry(fake)

	cfg1 := tinyConfig(fake.path)
	cfg1.Input = 0
	h1, err := r.Open(cfg1)
	if err != nil {
		t.Fatalf("open input 0: %v", err)
	}
	defer h1.Close()

	cfg2 := tinyConfig(fake.path)
	cfg2.Input = 1
	h2, err := r.Open(cfg2)
	if err != nil {
		t.Fatalf("open input 1: %v", err)
	}
	defer h2.Close()

	// Two consumers on separate goroutines take strict turns under the
	// default one-frame quota; each turn must hand device ownership to the
	// other goroutine and switch the input back.
	const turns = 5
	turn1 := make(chan struct{}, 1)
	turn2 := make(chan struct{})
	errs := make(chan error, 2)

	go func() {
		dst := make([]byte, h1.FrameSize())
		for i := 0; i < turns; i++ {
			<-turn1
			if err := h1.NextFrame(dst); err != nil {
				errs <- fmt.Errorf("h1 turn %d: %w", i, err)
				return
			}
			turn2 <- struct{}{}
		}
		errs <- nil
	}()
	go func() {
		dst := make([]byte, h2.FrameSize())
		for i := 0; i < turns; i++ {
			<-turn2
			if err := h2.NextFrame(dst); err != nil {
				errs <- fmt.Errorf("h2 turn %d: %w", i, err)
				return
			}
			if i < turns-1 {
				turn1 <- struct{}{}
			}
		}
		errs <- nil
	}()

	turn1 <- struct{}{}
	for i := 0; i < 2; i++ {
		if err := <-errs; err != nil {
			t.Fatal(err)
		}
	}

	// Every h2 turn found the device on input 0 and switched; every h1
	// turn after the first switched back. The open itself selects input 0
	// once, so both counts land on the turn count.
	if got := fake.opCount("s_input1"); got != turns {
		t.Errorf("s_input1 calls = %d, want %d", got, turns)
	}
	if got := fake.opCount("s_input0"); got != turns {
		t.Errorf("s_input0 calls = %d, want %d", got, turns)
	}
}

func TestNextFrameAfterClose(t *testing.T) {
	fake := newFakeDevice()
	fake.frames = [][]byte{tinyFrame(1)}
	r := testRegistry(fake)

	h, err := r.Open(tinyConfig(fake.path))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	if err := h.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}
	if err := h.NextFrame(make([]byte, 96)); !errors.Is(err, ErrClosed) {
		t.Fatalf("error = %v, want ErrClosed", err)
	}
	if err := h.Close(); !errors.Is(err, ErrClosed) {
		t.Fatalf("second close error = %v, want ErrClosed", err)
	}
}

func TestCloseDeviceStopsRetries(t *testing.T) {
	fake := newFakeDevice()
	fake.frames = [][]byte{tinyFrame(1)}
	r := testRegistry(fake)

	h, err := r.Open(tinyConfig(fake.path))
	if err != nil {
		t.Fatalf("open: %v", err)
	}
	defer h.Close()

	r.CloseDevice(fake.path)
	if !h.dev.stop.Load() {
		t.Error("stop flag not raised for removed device")
	}
	// Unknown paths are a no-op.
	r.CloseDevice("/dev/video77")
}
