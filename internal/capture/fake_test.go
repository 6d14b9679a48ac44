package capture

import (
	"fmt"
	"log/slog"
	"sync"
	"testing"

	"github.com/rneureuther1/motion/pkg/linuxav/v4l2"
)

// fakeDevice scripts driver behavior for tests and records the ioctl-level
// call order so teardown sequencing can be asserted.
type fakeDevice struct {
	mu  sync.Mutex
	ops []string

	path    string
	caps    v4l2.Capability
	formats []v4l2.FormatInfo

	// rejectFormats lists pixel formats TRY_FMT refuses.
	rejectFormats map[uint32]bool
	// commit geometry overrides; zero means echo the request.
	forceWidth   uint32
	forceHeight  uint32
	bytesPerLine uint32

	granted uint32

	// frames are served round-robin into the "mapped" buffers.
	frames  [][]byte
	mapped  map[uint32][]byte
	nextBuf uint32
	flagged map[int]uint32 // frame ordinal -> buffer flags

	controls   []v4l2.ControlInfo
	menus      map[uint32][]v4l2.MenuItem
	values     map[uint32]int32
	failSets   map[uint32]int // control id -> remaining failures
	inputs     []v4l2.InputInfo
	current    uint32
	standards  []v4l2.StandardInfo
	currentStd uint64

	captures int
	closed   bool
}

func newFakeDevice() *fakeDevice {
	return &fakeDevice{
		path: "/dev/video9",
		caps: v4l2.Capability{
			Driver:       "fake",
			Card:         "Fake Capture",
			BusInfo:      "platform:test",
			DeviceCaps:   v4l2.CapVideoCapture | v4l2.CapStreaming,
			Capabilities: v4l2.CapVideoCapture | v4l2.CapStreaming | v4l2.CapDeviceCaps,
		},
		granted:       4,
		mapped:        map[uint32][]byte{},
		rejectFormats: map[uint32]bool{},
		menus:         map[uint32][]v4l2.MenuItem{},
		values:        map[uint32]int32{},
		failSets:      map[uint32]int{},
		flagged:       map[int]uint32{},
		inputs: []v4l2.InputInfo{
			{Index: 0, Name: "Camera 0", Type: v4l2.InputTypeCamera},
		},
	}
}

func (f *fakeDevice) record(op string) {
	f.mu.Lock()
	f.ops = append(f.ops, op)
	f.mu.Unlock()
}

func (f *fakeDevice) Path() string { return f.path }

func (f *fakeDevice) Close() error {
	f.record("close")
	f.closed = true
	return nil
}

func (f *fakeDevice) QueryCapability() (v4l2.Capability, error) {
	return f.caps, nil
}

func (f *fakeDevice) ListFormats() ([]v4l2.FormatInfo, error) {
	return f.formats, nil
}

func (f *fakeDevice) geometry(width, height uint32) (uint32, uint32) {
	if f.forceWidth != 0 {
		width = f.forceWidth
	}
	if f.forceHeight != 0 {
		height = f.forceHeight
	}
	return width, height
}

func (f *fakeDevice) TryFormat(width, height, pixelformat uint32) (v4l2.PixFormat, error) {
	if f.rejectFormats[pixelformat] {
		return v4l2.PixFormat{}, fmt.Errorf("format refused")
	}
	w, h := f.geometry(width, height)
	return v4l2.PixFormat{Width: w, Height: h, PixelFormat: pixelformat, BytesPerLine: f.bytesPerLine}, nil
}

func (f *fakeDevice) SetFormat(width, height, pixelformat uint32) (v4l2.PixFormat, error) {
	got, err := f.TryFormat(width, height, pixelformat)
	if err == nil {
		f.record("s_fmt")
	}
	return got, err
}

func (f *fakeDevice) SetFramePeriod(interval v4l2.Fract) (v4l2.Fract, error) {
	return interval, nil
}

func (f *fakeDevice) RequestBuffers(count uint32) (uint32, error) {
	f.record("reqbufs")
	if f.granted < count {
		return f.granted, nil
	}
	return count, nil
}

func (f *fakeDevice) ReleaseBuffers() error {
	f.record("reqbufs0")
	return nil
}

func (f *fakeDevice) MapBuffer(index uint32) ([]byte, error) {
	f.record(fmt.Sprintf("mmap%d", index))
	size := 0
	for _, frame := range f.frames {
		if len(frame) > size {
			size = len(frame)
		}
	}
	if size == 0 {
		size = 64
	}
	data := make([]byte, size)
	f.mapped[index] = data
	return data, nil
}

func (f *fakeDevice) UnmapBuffer(_ []byte) error {
	f.record("munmap")
	return nil
}

func (f *fakeDevice) QueueBuffer(index uint32) error {
	f.record(fmt.Sprintf("qbuf%d", index))
	return nil
}

func (f *fakeDevice) DequeueBuffer() (v4l2.Frame, error) {
	f.record("dqbuf")
	ordinal := f.captures
	f.captures++
	index := f.nextBuf
	f.nextBuf = (f.nextBuf + 1) % f.granted

	used := uint32(64)
	if len(f.frames) > 0 {
		frame := f.frames[ordinal%len(f.frames)]
		copy(f.mapped[index], frame)
		used = uint32(len(frame))
	}
	return v4l2.Frame{
		Index:     index,
		BytesUsed: used,
		Flags:     f.flagged[ordinal],
		Sequence:  uint32(ordinal),
	}, nil
}

func (f *fakeDevice) StreamOn() error {
	f.record("streamon")
	return nil
}

func (f *fakeDevice) StreamOff() error {
	f.record("streamoff")
	return nil
}

func (f *fakeDevice) NextControl(prevID uint32) (v4l2.ControlInfo, bool, error) {
	next := v4l2.ControlInfo{}
	found := false
	for _, info := range f.controls {
		if info.ID > prevID && (!found || info.ID < next.ID) {
			next = info
			found = true
		}
	}
	return next, found, nil
}

func (f *fakeDevice) QueryMenu(id, index uint32) (v4l2.MenuItem, bool, error) {
	for _, item := range f.menus[id] {
		if item.Index == index {
			return item, true, nil
		}
	}
	return v4l2.MenuItem{}, false, nil
}

func (f *fakeDevice) GetControl(id uint32) (int32, error) {
	return f.values[id], nil
}

func (f *fakeDevice) SetControl(id uint32, value int32) error {
	if f.failSets[id] > 0 {
		f.failSets[id]--
		return fmt.Errorf("control busy")
	}
	f.record(fmt.Sprintf("s_ctrl:%d=%d", id, value))
	f.values[id] = value
	return nil
}

func (f *fakeDevice) EnumInput(index uint32) (v4l2.InputInfo, error) {
	if int(index) >= len(f.inputs) {
		return v4l2.InputInfo{}, fmt.Errorf("no input %d", index)
	}
	return f.inputs[index], nil
}

func (f *fakeDevice) GetInput() (uint32, error) {
	return f.current, nil
}

func (f *fakeDevice) SetInput(index uint32) error {
	f.record(fmt.Sprintf("s_input%d", index))
	f.current = index
	return nil
}

func (f *fakeDevice) GetStandard() (uint64, error) {
	return f.currentStd, nil
}

func (f *fakeDevice) SetStandard(std uint64) error {
	f.record("s_std")
	f.currentStd = std
	return nil
}

func (f *fakeDevice) ListStandards() ([]v4l2.StandardInfo, error) {
	return f.standards, nil
}

func (f *fakeDevice) GetTuner(index uint32) (v4l2.TunerInfo, error) {
	return v4l2.TunerInfo{Index: index, Name: "Tuner", Type: v4l2.TunerAnalogTV}, nil
}

func (f *fakeDevice) SetFrequency(_, _ uint32) error {
	f.record("s_frequency")
	return nil
}

func (f *fakeDevice) opCount(op string) int {
	f.mu.Lock()
	defer f.mu.Unlock()
	n := 0
	for _, o := range f.ops {
		if o == op {
			n++
		}
	}
	return n
}

func testLogger() *slog.Logger {
	return slog.Default()
}

// testRegistry wires a registry to one scripted fake device.
func testRegistry(fake *fakeDevice) *Registry {
	r := NewRegistry(testLogger(), nil, nil)
	r.openDevice = func(_ string) (videoDevice, error) {
		return fake, nil
	}
	return r
}

func testDevice(_ *testing.T, fake *fakeDevice) *device {
	return &device{
		path:  fake.path,
		vd:    fake,
		log:   testLogger(),
		input: -1,
	}
}
