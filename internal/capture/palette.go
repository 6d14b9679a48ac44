package capture

import (
	"github.com/rneureuther1/motion/pkg/linuxav/v4l2"
)

// PaletteEntry binds a stable palette id to a V4L2 pixel format. The ids
// are part of the user-facing configuration surface and never change;
// their order also ranks formats for negotiation fallback, preferred
// formats last.
type PaletteEntry struct {
	ID          int
	PixelFormat uint32
}

// DefaultPalette is the palette id tried first when the configured one is
// unusable: planar YUV 4:2:0, which needs no conversion.
const DefaultPalette = 17

// PaletteH264 is the compressed codec palette. It exists in the catalog so
// its id stays reserved, but the conversion layer cannot decode it and the
// negotiator never selects it.
const PaletteH264 = 21

var paletteCatalog = []PaletteEntry{
	{0, v4l2.PixFmtSN9C10X},
	{1, v4l2.PixFmtSBGGR16},
	{2, v4l2.PixFmtSBGGR8},
	{3, v4l2.PixFmtSPCA561},
	{4, v4l2.PixFmtSGBRG8},
	{5, v4l2.PixFmtSGRBG8},
	{6, v4l2.PixFmtPAC207},
	{7, v4l2.PixFmtPJPG},
	{8, v4l2.PixFmtMJPEG},
	{9, v4l2.PixFmtJPEG},
	{10, v4l2.PixFmtRGB24},
	{11, v4l2.PixFmtSPCA501},
	{12, v4l2.PixFmtSPCA505},
	{13, v4l2.PixFmtSPCA508},
	{14, v4l2.PixFmtUYVY},
	{15, v4l2.PixFmtYUYV},
	{16, v4l2.PixFmtYUV422P},
	{17, v4l2.PixFmtYUV420},
	{18, v4l2.PixFmtY10},
	{19, v4l2.PixFmtY12},
	{20, v4l2.PixFmtGREY},
	{21, v4l2.PixFmtH264},
}

// PaletteValid reports whether id names a catalog entry.
func PaletteValid(id int) bool {
	return id >= 0 && id < len(paletteCatalog)
}

// PaletteFourcc returns the four-character code of a palette id, or the
// sentinel "NULL" for ids outside the catalog.
func PaletteFourcc(id int) string {
	if !PaletteValid(id) {
		return "NULL"
	}
	return v4l2.FourCC(paletteCatalog[id].PixelFormat)
}

func palettePixelFormat(id int) uint32 {
	return paletteCatalog[id].PixelFormat
}

// PaletteIndex maps a pixel format back to its palette id, -1 if the
// format is not in the catalog.
func PaletteIndex(pixelformat uint32) int {
	for _, entry := range paletteCatalog {
		if entry.PixelFormat == pixelformat {
			return entry.ID
		}
	}
	return -1
}

// queryDevice is the slice of the device surface the catalog probes need.
type queryDevice interface {
	ListFormats() ([]v4l2.FormatInfo, error)
	Close() error
}

// openQueryDevice is swapped by tests.
var openQueryDevice = func(path string) (queryDevice, error) {
	return v4l2.OpenQuery(path)
}

// PaletteSupported reports whether the device at path offers the pixel
// format of palette id. The device is opened for query only.
func PaletteSupported(path string, id int) bool {
	if !PaletteValid(id) {
		return false
	}
	dev, err := openQueryDevice(path)
	if err != nil {
		return false
	}
	defer dev.Close()

	formats, err := dev.ListFormats()
	if err != nil {
		return false
	}
	want := palettePixelFormat(id)
	for _, format := range formats {
		if format.PixelFormat == want {
			return true
		}
	}
	return false
}

// ModeSupported reports whether the device at path offers palette id at
// exactly width x height with a discrete fps frame interval.
func ModeSupported(path string, id, width, height, fps int) bool {
	if !PaletteValid(id) {
		return false
	}
	dev, err := openQueryDevice(path)
	if err != nil {
		return false
	}
	defer dev.Close()

	formats, err := dev.ListFormats()
	if err != nil {
		return false
	}
	want := palettePixelFormat(id)
	for _, format := range formats {
		if format.PixelFormat != want {
			continue
		}
		for _, size := range format.FrameSizes {
			if int(size.Width) != width || int(size.Height) != height {
				continue
			}
			for _, rate := range size.FrameRates {
				if rate.Numerator == 1 && int(rate.Denominator) == fps {
					return true
				}
			}
		}
	}
	return false
}
