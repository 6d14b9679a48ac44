package capture

import (
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	"github.com/rneureuther1/motion/internal/events"
	"github.com/rneureuther1/motion/internal/metrics"
	"github.com/rneureuther1/motion/pkg/linuxav/v4l2"
)

// Registry shares open devices between consumers, keyed by device path.
// Each physical device is opened once and reference counted; the last
// Close tears it down.
type Registry struct {
	log     *slog.Logger
	bus     *events.Bus
	metrics *metrics.Capture

	mu      sync.Mutex
	devices map[string]*device

	nextID atomic.Int64

	// openDevice is swapped by tests.
	openDevice func(path string) (videoDevice, error)
}

// NewRegistry creates an empty device registry. The bus and metrics may be
// nil, e.g. in the one-shot CLI tools.
func NewRegistry(log *slog.Logger, bus *events.Bus, met *metrics.Capture) *Registry {
	return &Registry{
		log:     log,
		bus:     bus,
		metrics: met,
		devices: make(map[string]*device),
		openDevice: func(path string) (videoDevice, error) {
			return v4l2.Open(path)
		},
	}
}

// Handle is one consumer's session on a (possibly shared) device.
type Handle struct {
	id  int64
	reg *Registry
	dev *device
	cfg Config

	// prev references the consumer's last delivered frame, feeding the
	// autobrightness measurement.
	prev []byte

	autobrightMissing bool
	closed            bool
}

// Open attaches a consumer to the device named in cfg, initializing the
// device if this is its first consumer. The registry lock is held only for
// the map lookup and insert; hardware negotiation runs outside it, and
// racing openers of the same path wait on the initializer's outcome.
func (r *Registry) Open(cfg Config) (*Handle, error) {
	cfg.normalize()
	if cfg.Device == "" {
		return nil, fmt.Errorf("capture: no device path configured")
	}

	for {
		r.mu.Lock()
		dev, ok := r.devices[cfg.Device]
		if !ok {
			dev = &device{
				path:  cfg.Device,
				log:   r.log.With("device", cfg.Device),
				ready: make(chan struct{}),
				input: -1,
			}
			r.devices[cfg.Device] = dev
			r.mu.Unlock()
			return r.initDevice(dev, cfg)
		}
		r.mu.Unlock()

		<-dev.ready
		if dev.initErr != nil {
			// The initializer failed and removed the entry; if our lookup
			// raced its removal, retry with a fresh device.
			return nil, dev.initErr
		}

		r.mu.Lock()
		if r.devices[cfg.Device] != dev {
			// Torn down between our lookup and now; start over.
			r.mu.Unlock()
			continue
		}
		dev.usage++
		r.mu.Unlock()

		r.log.Info("device shared", "device", cfg.Device, "consumers", dev.usage)
		return r.newHandle(dev, cfg), nil
	}
}

// initDevice runs first-consumer initialization for a freshly inserted
// registry entry.
func (r *Registry) initDevice(dev *device, cfg Config) (*Handle, error) {
	vd, err := r.openDevice(cfg.Device)
	if err == nil {
		dev.vd = vd
		err = dev.configure(cfg)
	}
	if err != nil {
		dev.initErr = err
		r.mu.Lock()
		delete(r.devices, cfg.Device)
		r.mu.Unlock()
		close(dev.ready)
		if dev.vd != nil {
			dev.teardown()
		}
		return nil, err
	}

	r.mu.Lock()
	dev.usage = 1
	r.mu.Unlock()
	close(dev.ready)

	if r.metrics != nil {
		r.metrics.OpenDevices.Inc()
	}
	if r.bus != nil {
		r.bus.Publish(events.DeviceOpenedEvent{
			DevicePath: dev.path,
			Palette:    PaletteIndex(dev.pixelformat),
			Fourcc:     v4l2.FourCC(dev.pixelformat),
			Width:      dev.width,
			Height:     dev.height,
			Timestamp:  time.Now().Format(time.RFC3339),
		})
	}
	return r.newHandle(dev, cfg), nil
}

func (r *Registry) newHandle(dev *device, cfg Config) *Handle {
	return &Handle{
		id:  r.nextID.Add(1),
		reg: r,
		dev: dev,
		cfg: cfg,
	}
}

// Width returns the negotiated frame width for this handle's device.
func (h *Handle) Width() int { return h.dev.width }

// Height returns the negotiated frame height.
func (h *Handle) Height() int { return h.dev.height }

// Palette returns the negotiated palette id.
func (h *Handle) Palette() int { return PaletteIndex(h.dev.pixelformat) }

// NextFrame captures one frame into dst as planar YUV 4:2:0. dst must hold
// FrameSize() bytes. On shared devices the call first takes the device
// ownership lock, switches the source to this consumer's configuration,
// and keeps ownership for the configured number of frames.
//
// An ErrCorruptFrame return leaves the stream usable; the caller retries.
// Any other error means the handle's stream is over.
func (h *Handle) NextFrame(dst []byte) error {
	if h.closed {
		return ErrClosed
	}
	d := h.dev

	if d.owner.Load() != h.id {
		d.mu.Lock()
		d.owner.Store(h.id)
		d.framesLeft = h.cfg.RoundRobinFrames
		if err := d.reselect(h); err != nil {
			h.release()
			h.fail(err)
			return err
		}
	} else if h.cfg.AutoBrightness != AutobrightOff {
		d.adjustBrightness(h, h.prev)
		if rolledBack := d.applyControls(nil); rolledBack > 0 {
			h.notifyRollback(rolledBack)
		}
	}

	src, _, err := d.pool.capture()
	if err == nil {
		err = d.convertFrame(dst, src)
	}
	if err != nil {
		if errors.Is(err, ErrCorruptFrame) {
			if h.reg.metrics != nil {
				h.reg.metrics.CorruptFrames.WithLabelValues(d.path).Inc()
			}
			d.log.Debug("corrupt frame discarded", "error", err)
			return err
		}
		h.release()
		h.fail(err)
		return err
	}

	h.prev = dst
	if h.reg.metrics != nil {
		h.reg.metrics.FramesTotal.WithLabelValues(d.path).Inc()
	}

	d.framesLeft--
	if d.framesLeft <= 0 {
		h.release()
	}
	return nil
}

// release gives up device ownership if this handle holds it.
func (h *Handle) release() {
	d := h.dev
	if d.owner.Load() == h.id {
		d.owner.Store(0)
		d.mu.Unlock()
	}
}

func (h *Handle) fail(err error) {
	d := h.dev
	d.log.Error("capture failed", "error", err)
	if h.reg.metrics != nil {
		h.reg.metrics.CaptureErrors.WithLabelValues(d.path).Inc()
	}
	if h.reg.bus != nil {
		h.reg.bus.Publish(events.CaptureErrorEvent{
			DevicePath: d.path,
			Error:      err.Error(),
			Timestamp:  time.Now().Format(time.RFC3339),
		})
	}
}

func (h *Handle) notifyRollback(count int) {
	if h.reg.metrics != nil {
		h.reg.metrics.ControlRollbacks.WithLabelValues(h.dev.path).Add(float64(count))
	}
	if h.reg.bus != nil {
		h.reg.bus.Publish(events.ControlRollbackEvent{
			DevicePath: h.dev.path,
			Count:      count,
			Timestamp:  time.Now().Format(time.RFC3339),
		})
	}
}

// Close detaches the consumer. The device keeps streaming while other
// consumers remain; the last Close stops streaming, unmaps the buffers,
// and closes the node.
func (h *Handle) Close() error {
	if h.closed {
		return ErrClosed
	}
	h.closed = true
	d := h.dev
	r := h.reg

	h.release()

	r.mu.Lock()
	d.usage--
	remaining := d.usage
	if remaining <= 0 {
		delete(r.devices, d.path)
	}
	r.mu.Unlock()

	if remaining > 0 {
		r.log.Info("consumer detached", "device", d.path, "consumers", remaining)
		return nil
	}

	// Last consumer: stop any still-blocked ioctl retries, wait out an
	// in-flight owner, then tear down.
	d.stop.Store(true)
	d.mu.Lock()
	d.teardown()
	d.mu.Unlock()

	if r.metrics != nil {
		r.metrics.OpenDevices.Dec()
	}
	if r.bus != nil {
		r.bus.Publish(events.DeviceClosedEvent{
			DevicePath: d.path,
			Timestamp:  time.Now().Format(time.RFC3339),
		})
	}
	r.log.Info("device closed", "device", d.path)
	return nil
}

// CloseDevice force-closes every handle's device at path, used when the
// hotplug monitor reports the node gone. Consumers see ErrStopped from
// their next capture.
func (r *Registry) CloseDevice(path string) {
	r.mu.Lock()
	dev, ok := r.devices[path]
	r.mu.Unlock()
	if !ok {
		return
	}
	dev.stop.Store(true)
	r.log.Warn("device node removed while open", "device", path)
}

// Devices lists the paths currently open in the registry.
func (r *Registry) Devices() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	paths := make([]string, 0, len(r.devices))
	for path := range r.devices {
		paths = append(paths, path)
	}
	return paths
}
