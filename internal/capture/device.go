package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"syscall"

	"github.com/rneureuther1/motion/pkg/linuxav/v4l2"
)

// videoDevice is the slice of *v4l2.Device this package drives. Tests
// substitute a fake.
type videoDevice interface {
	Path() string
	Close() error
	QueryCapability() (v4l2.Capability, error)
	ListFormats() ([]v4l2.FormatInfo, error)
	TryFormat(width, height, pixelformat uint32) (v4l2.PixFormat, error)
	SetFormat(width, height, pixelformat uint32) (v4l2.PixFormat, error)
	SetFramePeriod(interval v4l2.Fract) (v4l2.Fract, error)
	RequestBuffers(count uint32) (uint32, error)
	ReleaseBuffers() error
	MapBuffer(index uint32) ([]byte, error)
	UnmapBuffer(data []byte) error
	QueueBuffer(index uint32) error
	DequeueBuffer() (v4l2.Frame, error)
	StreamOn() error
	StreamOff() error
	NextControl(prevID uint32) (v4l2.ControlInfo, bool, error)
	QueryMenu(id, index uint32) (v4l2.MenuItem, bool, error)
	GetControl(id uint32) (int32, error)
	SetControl(id uint32, value int32) error
	EnumInput(index uint32) (v4l2.InputInfo, error)
	GetInput() (uint32, error)
	SetInput(index uint32) error
	GetStandard() (uint64, error)
	SetStandard(std uint64) error
	ListStandards() ([]v4l2.StandardInfo, error)
	GetTuner(index uint32) (v4l2.TunerInfo, error)
	SetFrequency(tuner, frequency uint32) error
}

// device is one open video node, shared by all handles on the same path.
type device struct {
	path string
	vd   videoDevice
	log  *slog.Logger

	// stop aborts EINTR retry loops during shutdown.
	stop atomic.Bool

	// ready is closed when initialization finishes; initErr carries the
	// outcome for handles that raced the initializer.
	ready   chan struct{}
	initErr error

	// mu is the ownership lock. The owning handle holds it across its
	// whole round-robin turn, which may span many NextFrame calls.
	// framesLeft counts down the owner's remaining turn.
	mu         sync.Mutex
	owner      atomic.Int64
	framesLeft int

	// usage is guarded by the registry lock.
	usage int

	// Negotiated state.
	width       int
	height      int
	pixelformat uint32
	input       int
	norm        int
	frequency   int

	pool     *bufferPool
	controls []*ControlDescriptor
}

// retry re-issues fn while it fails with EINTR, bailing out when the device
// is being torn down.
func (d *device) retry(fn func() error) error {
	for {
		err := fn()
		if err == nil || !errors.Is(err, syscall.EINTR) {
			return err
		}
		if d.stop.Load() {
			return ErrStopped
		}
	}
}

// configure runs the full open sequence: capability check, selection,
// format negotiation, frame rate, controls, and buffer pool start.
func (d *device) configure(cfg Config) error {
	caps, err := d.vd.QueryCapability()
	if err != nil {
		return fmt.Errorf("querying capabilities: %w", err)
	}
	d.log.Info("device opened",
		"driver", caps.Driver,
		"card", caps.Card,
		"bus", caps.BusInfo,
	)
	if caps.DeviceCaps&v4l2.CapVideoCapture == 0 {
		return fmt.Errorf("%s: %w: not a video capture device", d.path, ErrNegotiate)
	}
	if caps.DeviceCaps&v4l2.CapStreaming == 0 {
		return fmt.Errorf("%s: %w: no streaming I/O support", d.path, ErrNegotiate)
	}

	if err := d.selectInput(cfg); err != nil {
		return err
	}
	if err := d.selectStandard(cfg); err != nil {
		return err
	}
	if err := d.selectFrequency(cfg); err != nil {
		return err
	}

	if err := d.negotiateFormat(cfg); err != nil {
		return err
	}
	d.setFrameRate(cfg.FrameRate)

	d.controls, err = enumerateControls(d.vd, d.log)
	if err != nil {
		d.log.Warn("control enumeration failed", "error", err)
	}

	d.pool = newBufferPool(d)
	if err := d.pool.start(); err != nil {
		return err
	}
	return nil
}

// setFrameRate programs the capture interval. Failure is advisory: many
// drivers fix the rate to the format.
func (d *device) setFrameRate(fps int) {
	if fps <= 0 {
		return
	}
	got, err := d.vd.SetFramePeriod(v4l2.Fract{Numerator: 1, Denominator: uint32(fps)})
	if err != nil {
		d.log.Warn("frame rate not accepted", "fps", fps, "error", err)
		return
	}
	if got.FPS() != float64(fps) {
		d.log.Info("driver adjusted frame rate", "requested", fps, "actual", got.FPS())
	}
}

// teardown stops streaming, releases the mappings, and closes the node.
// Callers hold the ownership lock.
func (d *device) teardown() {
	d.stop.Store(true)
	if d.pool != nil {
		d.pool.shutdown()
	}
	if err := d.vd.Close(); err != nil {
		d.log.Warn("closing device", "error", err)
	}
	d.controls = nil
}
