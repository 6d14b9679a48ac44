package capture

import (
	"fmt"

	"github.com/rneureuther1/motion/pkg/linuxav/v4l2"
)

// roundAlign rounds a dimension up to the next multiple of 8. Several
// drivers quietly fail or produce skewed images on unaligned sizes.
func roundAlign(v int) int {
	if v%8 != 0 {
		v = v - v%8 + 8
	}
	return v
}

// strideWidth widens a frame width to cover the driver's row stride, so
// that row starts line up when the payload is interpreted at the adjusted
// width. The bpl % width samples left over per row are spread across
// bpl / width bytes-per-sample units.
//
// TODO: the adjustment assumes the leftover is an exact multiple of the
// sample size; a driver padding rows to e.g. 64-byte boundaries on a
// 3-byte format would still skew. Needs a device that actually pads to
// verify against.
func strideWidth(width, bytesPerLine int) (int, error) {
	if bytesPerLine <= 0 || bytesPerLine%width == 0 {
		return width, nil
	}
	if width > bytesPerLine {
		return 0, fmt.Errorf("%w: width %d exceeds stride %d", ErrNegotiate, width, bytesPerLine)
	}
	return width + (bytesPerLine%width)/(bytesPerLine/width), nil
}

// negotiateFormat picks and commits the capture format. The configured
// palette is tried first; if the device refuses it, the device's own
// format list is matched against the catalog and the highest-ranked
// supported palette wins. Formats the conversion layer cannot decode,
// the codec palette included, are never selected.
func (d *device) negotiateFormat(cfg Config) error {
	width := roundAlign(cfg.Width)
	height := roundAlign(cfg.Height)
	if width != cfg.Width || height != cfg.Height {
		d.log.Info("frame size aligned", "requested_width", cfg.Width, "requested_height", cfg.Height,
			"width", width, "height", height)
	}

	palette := cfg.Palette
	if !decodable(palettePixelFormat(palette)) {
		d.log.Warn("no decoder for palette, using default",
			"palette", palette, "fourcc", PaletteFourcc(palette),
			"default", DefaultPalette)
		palette = DefaultPalette
	}

	err := d.commitFormat(width, height, palettePixelFormat(palette))
	if err == nil {
		return nil
	}
	d.log.Info("preferred palette rejected",
		"palette", palette, "fourcc", PaletteFourcc(palette), "error", err)

	formats, err := d.vd.ListFormats()
	if err != nil {
		return fmt.Errorf("%w: enumerating formats: %v", ErrNegotiate, err)
	}
	best := -1
	for _, format := range formats {
		idx := PaletteIndex(format.PixelFormat)
		if idx < 0 || !decodable(format.PixelFormat) {
			continue
		}
		if idx > best {
			best = idx
		}
	}
	if best < 0 {
		return fmt.Errorf("%s: %w: no format in common with device", d.path, ErrNegotiate)
	}

	d.log.Info("falling back to device-supported palette",
		"palette", best, "fourcc", PaletteFourcc(best))
	if err := d.commitFormat(width, height, palettePixelFormat(best)); err != nil {
		return err
	}
	return nil
}

// commitFormat runs the try/commit pair for one pixel format and stores
// the negotiated geometry on success.
func (d *device) commitFormat(width, height int, pixelformat uint32) error {
	tried, err := d.vd.TryFormat(uint32(width), uint32(height), pixelformat)
	if err != nil {
		return fmt.Errorf("%w: try %s: %v", ErrNegotiate, v4l2.FourCC(pixelformat), err)
	}
	if tried.PixelFormat != pixelformat {
		return fmt.Errorf("%w: driver substituted %s for %s", ErrNegotiate,
			v4l2.FourCC(tried.PixelFormat), v4l2.FourCC(pixelformat))
	}

	got, err := d.vd.SetFormat(uint32(width), uint32(height), pixelformat)
	if err != nil {
		return fmt.Errorf("%w: set %s: %v", ErrNegotiate, v4l2.FourCC(pixelformat), err)
	}
	if got.PixelFormat != pixelformat {
		return fmt.Errorf("%w: commit echoed %s, wanted %s", ErrNegotiate,
			v4l2.FourCC(got.PixelFormat), v4l2.FourCC(pixelformat))
	}

	gotWidth, gotHeight := int(got.Width), int(got.Height)
	if gotWidth != width || gotHeight != height {
		d.log.Info("driver adjusted frame size",
			"requested_width", width, "requested_height", height,
			"width", gotWidth, "height", gotHeight)
	}

	adjusted, err := strideWidth(gotWidth, int(got.BytesPerLine))
	if err != nil {
		return err
	}
	if adjusted != gotWidth {
		d.log.Info("width adjusted to driver stride",
			"width", gotWidth, "stride", got.BytesPerLine, "adjusted", adjusted)
		gotWidth = adjusted
	}
	if gotWidth%8 != 0 || gotHeight%8 != 0 {
		return fmt.Errorf("%w: adjusted size %dx%d is not a multiple of 8",
			ErrNegotiate, gotWidth, gotHeight)
	}

	d.width = gotWidth
	d.height = gotHeight
	d.pixelformat = pixelformat
	d.log.Info("format negotiated",
		"fourcc", v4l2.FourCC(pixelformat),
		"palette", PaletteIndex(pixelformat),
		"width", gotWidth, "height", gotHeight)
	return nil
}
