package events

// Event type constants for kelindar/event.
const (
	TypeDeviceOpened uint32 = iota + 1
	TypeDeviceClosed
	TypeDeviceRemoved
	TypeControlRollback
	TypeCaptureError
)

// Event interface required by kelindar/event.
type Event interface {
	Type() uint32
}

// DeviceOpenedEvent is published when the registry brings a device to
// streaming for its first consumer.
type DeviceOpenedEvent struct {
	DevicePath string `json:"device_path"`
	Palette    int    `json:"palette"`
	Fourcc     string `json:"fourcc"`
	Width      int    `json:"width"`
	Height     int    `json:"height"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for DeviceOpenedEvent.
func (e DeviceOpenedEvent) Type() uint32 { return TypeDeviceOpened }

// DeviceClosedEvent is published when the last consumer of a device
// closes and the device is torn down.
type DeviceClosedEvent struct {
	DevicePath string `json:"device_path"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for DeviceClosedEvent.
func (e DeviceClosedEvent) Type() uint32 { return TypeDeviceClosed }

// DeviceRemovedEvent is published when the hotplug monitor sees a video
// node disappear from the system.
type DeviceRemovedEvent struct {
	DevicePath string `json:"device_path"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for DeviceRemovedEvent.
func (e DeviceRemovedEvent) Type() uint32 { return TypeDeviceRemoved }

// ControlRollbackEvent is published when a device rejects requested
// control values and they are rolled back to the device's own.
type ControlRollbackEvent struct {
	DevicePath string `json:"device_path"`
	Count      int    `json:"count"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for ControlRollbackEvent.
func (e ControlRollbackEvent) Type() uint32 { return TypeControlRollback }

// CaptureErrorEvent is published when frame acquisition fails in a way
// that ends the stream for a consumer.
type CaptureErrorEvent struct {
	DevicePath string `json:"device_path"`
	Error      string `json:"error"`
	Timestamp  string `json:"timestamp"`
}

// Type returns the event type identifier for CaptureErrorEvent.
func (e CaptureErrorEvent) Type() uint32 { return TypeCaptureError }
