//go:build linux

package v4l2

import "time"

// Capability flag bits reported by VIDIOC_QUERYCAP.
const (
	CapVideoCapture = 0x00000001
	CapVideoOutput  = 0x00000002
	CapVideoOverlay = 0x00000004
	CapVBICapture   = 0x00000010
	CapVBIOutput    = 0x00000020
	CapRDSCapture   = 0x00000100
	CapTuner        = 0x00010000
	CapAudio        = 0x00020000
	CapReadWrite    = 0x01000000
	CapAsyncIO      = 0x02000000
	CapStreaming    = 0x04000000
	CapDeviceCaps   = 0x80000000
)

// Buffer types, memory models, and field orders used by this package.
const (
	BufTypeVideoCapture = 1
	MemoryMmap          = 1
	FieldAny            = 0
)

// Pixel format fourcc codes (little-endian byte packing, as in videodev2.h).
const (
	PixFmtSN9C10X = 'S' | '9'<<8 | '1'<<16 | '0'<<24
	PixFmtSBGGR16 = 'B' | 'Y'<<8 | 'R'<<16 | '2'<<24
	PixFmtSBGGR8  = 'B' | 'A'<<8 | '8'<<16 | '1'<<24
	PixFmtSPCA561 = 'S' | '5'<<8 | '6'<<16 | '1'<<24
	PixFmtSGBRG8  = 'G' | 'B'<<8 | 'R'<<16 | 'G'<<24
	PixFmtSGRBG8  = 'G' | 'R'<<8 | 'B'<<16 | 'G'<<24
	PixFmtPAC207  = 'P' | '2'<<8 | '0'<<16 | '7'<<24
	PixFmtPJPG    = 'P' | 'J'<<8 | 'P'<<16 | 'G'<<24
	PixFmtMJPEG   = 'M' | 'J'<<8 | 'P'<<16 | 'G'<<24
	PixFmtJPEG    = 'J' | 'P'<<8 | 'E'<<16 | 'G'<<24
	PixFmtRGB24   = 'R' | 'G'<<8 | 'B'<<16 | '3'<<24
	PixFmtSPCA501 = 'S' | '5'<<8 | '0'<<16 | '1'<<24
	PixFmtSPCA505 = 'S' | '5'<<8 | '0'<<16 | '5'<<24
	PixFmtSPCA508 = 'S' | '5'<<8 | '0'<<16 | '8'<<24
	PixFmtUYVY    = 'U' | 'Y'<<8 | 'V'<<16 | 'Y'<<24
	PixFmtYUYV    = 'Y' | 'U'<<8 | 'Y'<<16 | 'V'<<24
	PixFmtYUV422P = '4' | '2'<<8 | '2'<<16 | 'P'<<24
	PixFmtYUV420  = 'Y' | 'U'<<8 | '1'<<16 | '2'<<24
	PixFmtY10     = 'Y' | '1'<<8 | '0'<<16 | ' '<<24
	PixFmtY12     = 'Y' | '1'<<8 | '2'<<16 | ' '<<24
	PixFmtGREY    = 'G' | 'R'<<8 | 'E'<<16 | 'Y'<<24
	PixFmtH264    = 'H' | '2'<<8 | '6'<<16 | '4'<<24
)

// Control types returned by VIDIOC_QUERYCTRL.
const (
	CtrlTypeInteger   = 1
	CtrlTypeBoolean   = 2
	CtrlTypeMenu      = 3
	CtrlTypeButton    = 4
	CtrlTypeInteger64 = 5
	CtrlTypeCtrlClass = 6
	CtrlTypeString    = 7
)

// Control flags and well-known control IDs.
const (
	CtrlFlagDisabled = 0x00000001
	CtrlFlagNextCtrl = 0x80000000

	CidBrightness       = 0x00980900
	CidExposure         = 0x00980911
	CidExposureAbsolute = 0x009a0902
)

// Input types from VIDIOC_ENUMINPUT.
const (
	InputTypeTuner  = 1
	InputTypeCamera = 2
)

// Analog video standard masks.
const (
	StdPAL   = 0x000000ff
	StdNTSC  = 0x0000b000
	StdSECAM = 0x00ff0000
)

// TunerAnalogTV is the tuner type for analog TV tuners.
const TunerAnalogTV = 1

// Streaming parameter capability flags.
const CapTimePerFrame = 0x1000

// Capability describes a device as reported by VIDIOC_QUERYCAP.
type Capability struct {
	Driver       string
	Card         string
	BusInfo      string
	Version      uint32
	Capabilities uint32
	DeviceCaps   uint32
}

// DeviceInfo describes a discovered video device.
type DeviceInfo struct {
	DevicePath string
	DeviceName string
	DriverName string
	BusInfo    string
	Formats    []FormatInfo
}

// FormatInfo describes one pixel format a device offers.
type FormatInfo struct {
	PixelFormat uint32
	Description string
	Compressed  bool
	FrameSizes  []FrameSize
}

// FrameSize is a discrete frame size with its supported frame rates.
type FrameSize struct {
	Width      uint32
	Height     uint32
	FrameRates []Fract
}

// Fract is a V4L2 fraction, used for frame intervals.
type Fract struct {
	Numerator   uint32
	Denominator uint32
}

// FPS returns the frame rate for a frame interval fraction.
func (f Fract) FPS() float64 {
	if f.Numerator == 0 {
		return 0
	}
	return float64(f.Denominator) / float64(f.Numerator)
}

// PixFormat is the negotiated capture format of a device.
type PixFormat struct {
	Width        uint32
	Height       uint32
	PixelFormat  uint32
	Field        uint32
	BytesPerLine uint32
	SizeImage    uint32
}

// ControlInfo describes one device control from VIDIOC_QUERYCTRL.
type ControlInfo struct {
	ID      uint32
	Type    uint32
	Name    string
	Minimum int32
	Maximum int32
	Step    int32
	Default int32
	Flags   uint32
}

// MenuItem is one entry of a menu control.
type MenuItem struct {
	Index uint32
	Name  string
}

// InputInfo describes a video input from VIDIOC_ENUMINPUT.
type InputInfo struct {
	Index        uint32
	Name         string
	Type         uint32
	TunerIndex   uint32
	Standards    uint64
	Status       uint32
	Capabilities uint32
}

// StandardInfo describes one analog video standard from VIDIOC_ENUMSTD.
type StandardInfo struct {
	Index uint32
	ID    uint64
	Name  string
}

// TunerInfo describes a tuner from VIDIOC_G_TUNER.
type TunerInfo struct {
	Index     uint32
	Name      string
	Type      uint32
	RangeLow  uint32
	RangeHigh uint32
	Signal    int32
}

// BufFlagError marks a dequeued buffer whose payload is corrupt.
const BufFlagError = 0x0040

// Frame identifies a dequeued buffer and its payload metadata.
type Frame struct {
	Index     uint32
	BytesUsed uint32
	Flags     uint32
	Sequence  uint32
	Timestamp time.Time
}

// FourCC renders a pixel format code as its four-character string.
func FourCC(pixelformat uint32) string {
	return string([]byte{
		byte(pixelformat),
		byte(pixelformat >> 8),
		byte(pixelformat >> 16),
		byte(pixelformat >> 24),
	})
}
