//go:build linux

package v4l2

import (
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"syscall"
	"unsafe"
)

// Device is an open V4L2 device node.
type Device struct {
	fd   int
	path string
}

// Open opens a device node for streaming capture. The descriptor is
// blocking so that DequeueBuffer waits for frame arrival.
func Open(path string) (*Device, error) {
	fd, err := openCapture(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{fd: fd, path: path}, nil
}

// OpenQuery opens a device node non-blocking for enumeration-only access.
func OpenQuery(path string) (*Device, error) {
	fd, err := openQuery(path)
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", path, err)
	}
	return &Device{fd: fd, path: path}, nil
}

func openCapture(path string) (int, error) {
	return syscall.Open(path, syscall.O_RDWR|syscall.O_CLOEXEC, 0)
}

// openQuery adds O_NONBLOCK so enumeration never hangs on a busy node.
func openQuery(path string) (int, error) {
	return syscall.Open(path, syscall.O_RDWR|syscall.O_NONBLOCK|syscall.O_CLOEXEC, 0)
}

// Path returns the device node path the device was opened with.
func (d *Device) Path() string {
	return d.path
}

// Close closes the device descriptor.
func (d *Device) Close() error {
	if d.fd < 0 {
		return nil
	}
	err := syscall.Close(d.fd)
	d.fd = -1
	return err
}

// QueryCapability issues VIDIOC_QUERYCAP.
func (d *Device) QueryCapability() (Capability, error) {
	raw := v4l2_capability{}
	if err := ioctl(d.fd, VIDIOC_QUERYCAP, unsafe.Pointer(&raw)); err != nil {
		return Capability{}, fmt.Errorf("querycap %s: %w", d.path, err)
	}
	caps := raw.capabilities
	devCaps := caps
	if caps&CapDeviceCaps != 0 {
		devCaps = raw.device_caps
	}
	return Capability{
		Driver:       cstr(raw.driver[:]),
		Card:         cstr(raw.card[:]),
		BusInfo:      cstr(raw.bus_info[:]),
		Version:      raw.version,
		Capabilities: caps,
		DeviceCaps:   devCaps,
	}, nil
}

// FindDevices discovers V4L2 video capture devices via sysfs. Devices that
// cannot be opened or lack capture capability are skipped.
func FindDevices() ([]DeviceInfo, error) {
	entries, err := filepath.Glob("/sys/class/video4linux/video*")
	if err != nil {
		return nil, fmt.Errorf("scanning video4linux class: %w", err)
	}
	sort.Strings(entries)

	var devices []DeviceInfo
	for _, entry := range entries {
		devPath := "/dev/" + filepath.Base(entry)
		info, err := probeDevice(devPath, entry)
		if err != nil {
			continue
		}
		devices = append(devices, info)
	}
	return devices, nil
}

func probeDevice(devPath, sysfsPath string) (DeviceInfo, error) {
	dev, err := OpenQuery(devPath)
	if err != nil {
		return DeviceInfo{}, err
	}
	defer dev.Close()

	caps, err := dev.QueryCapability()
	if err != nil {
		return DeviceInfo{}, err
	}
	if caps.DeviceCaps&CapVideoCapture == 0 {
		return DeviceInfo{}, fmt.Errorf("%s: not a capture device", devPath)
	}

	name := caps.Card
	if data, err := os.ReadFile(filepath.Join(sysfsPath, "name")); err == nil {
		name = strings.TrimSpace(string(data))
	}

	formats, err := dev.ListFormats()
	if err != nil {
		return DeviceInfo{}, err
	}

	return DeviceInfo{
		DevicePath: devPath,
		DeviceName: name,
		DriverName: caps.Driver,
		BusInfo:    caps.BusInfo,
		Formats:    formats,
	}, nil
}
