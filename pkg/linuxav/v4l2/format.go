//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

const fmtFlagCompressed = 0x0001

// ListFormats enumerates the capture pixel formats a device offers, with
// their discrete frame sizes and frame rates.
func (d *Device) ListFormats() ([]FormatInfo, error) {
	var formats []FormatInfo
	for index := uint32(0); ; index++ {
		desc := v4l2_fmtdesc{index: index, typ: BufTypeVideoCapture}
		if err := ioctl(d.fd, VIDIOC_ENUM_FMT, unsafe.Pointer(&desc)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			return nil, fmt.Errorf("enum_fmt %s index %d: %w", d.path, index, err)
		}
		sizes, err := d.ListFrameSizes(desc.pixelformat)
		if err != nil {
			return nil, err
		}
		formats = append(formats, FormatInfo{
			PixelFormat: desc.pixelformat,
			Description: cstr(desc.description[:]),
			Compressed:  desc.flags&fmtFlagCompressed != 0,
			FrameSizes:  sizes,
		})
	}
	return formats, nil
}

// ListFrameSizes enumerates the discrete frame sizes for a pixel format.
// Stepwise and continuous ranges are reported by their maximum size.
func (d *Device) ListFrameSizes(pixelformat uint32) ([]FrameSize, error) {
	var sizes []FrameSize
	for index := uint32(0); ; index++ {
		fsize := v4l2_frmsizeenum{index: index, pixel_format: pixelformat}
		if err := ioctl(d.fd, VIDIOC_ENUM_FRAMESIZES, unsafe.Pointer(&fsize)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			return nil, fmt.Errorf("enum_framesizes %s: %w", d.path, err)
		}
		if fsize.typ != frmsizeTypeDiscrete {
			// Stepwise overlays the discrete union member with min/max/step;
			// max_width and max_height land in the second and fifth words.
			stepwise := (*v4l2_frmsize_stepwise)(unsafe.Pointer(&fsize.discrete))
			sizes = append(sizes, FrameSize{Width: stepwise.max_width, Height: stepwise.max_height})
			break
		}
		width, height := fsize.discrete.width, fsize.discrete.height
		rates, err := d.ListFrameRates(pixelformat, width, height)
		if err != nil {
			return nil, err
		}
		sizes = append(sizes, FrameSize{Width: width, Height: height, FrameRates: rates})
	}
	return sizes, nil
}

const frmsizeTypeDiscrete = 1

type v4l2_frmsize_stepwise struct {
	min_width   uint32
	max_width   uint32
	step_width  uint32
	min_height  uint32
	max_height  uint32
	step_height uint32
}

// ListFrameRates enumerates the discrete frame intervals for a pixel format
// at one frame size, as fractions (seconds per frame).
func (d *Device) ListFrameRates(pixelformat, width, height uint32) ([]Fract, error) {
	var rates []Fract
	for index := uint32(0); ; index++ {
		fival := v4l2_frmivalenum{
			index:        index,
			pixel_format: pixelformat,
			width:        width,
			height:       height,
		}
		if err := ioctl(d.fd, VIDIOC_ENUM_FRAMEINTERVALS, unsafe.Pointer(&fival)); err != nil {
			if errors.Is(err, syscall.EINVAL) {
				break
			}
			return nil, fmt.Errorf("enum_frameintervals %s: %w", d.path, err)
		}
		if fival.typ != frmsizeTypeDiscrete {
			break
		}
		rates = append(rates, Fract{
			Numerator:   fival.discrete.numerator,
			Denominator: fival.discrete.denominator,
		})
	}
	return rates, nil
}

// TryFormat issues VIDIOC_TRY_FMT and returns what the driver would
// configure, without changing device state.
func (d *Device) TryFormat(width, height, pixelformat uint32) (PixFormat, error) {
	f := newFormat(width, height, pixelformat)
	if err := ioctl(d.fd, VIDIOC_TRY_FMT, unsafe.Pointer(&f)); err != nil {
		return PixFormat{}, err
	}
	return pixFormatOf(&f), nil
}

// SetFormat issues VIDIOC_S_FMT and returns the format the driver actually
// configured, which may differ from the request.
func (d *Device) SetFormat(width, height, pixelformat uint32) (PixFormat, error) {
	f := newFormat(width, height, pixelformat)
	if err := ioctl(d.fd, VIDIOC_S_FMT, unsafe.Pointer(&f)); err != nil {
		return PixFormat{}, err
	}
	return pixFormatOf(&f), nil
}

// GetFormat issues VIDIOC_G_FMT.
func (d *Device) GetFormat() (PixFormat, error) {
	f := v4l2_format{typ: BufTypeVideoCapture}
	if err := ioctl(d.fd, VIDIOC_G_FMT, unsafe.Pointer(&f)); err != nil {
		return PixFormat{}, err
	}
	return pixFormatOf(&f), nil
}

func newFormat(width, height, pixelformat uint32) v4l2_format {
	f := v4l2_format{typ: BufTypeVideoCapture}
	f.pix.width = width
	f.pix.height = height
	f.pix.pixelformat = pixelformat
	f.pix.field = FieldAny
	return f
}

func pixFormatOf(f *v4l2_format) PixFormat {
	return PixFormat{
		Width:        f.pix.width,
		Height:       f.pix.height,
		PixelFormat:  f.pix.pixelformat,
		Field:        f.pix.field,
		BytesPerLine: f.pix.bytesperline,
		SizeImage:    f.pix.sizeimage,
	}
}

// SetFramePeriod programs the capture frame interval via VIDIOC_S_PARM and
// returns the interval the driver accepted. Drivers without the timeperframe
// capability accept the call and ignore the value.
func (d *Device) SetFramePeriod(interval Fract) (Fract, error) {
	parm := v4l2_streamparm{typ: BufTypeVideoCapture}
	parm.capture.timeperframe.numerator = interval.Numerator
	parm.capture.timeperframe.denominator = interval.Denominator
	if err := ioctl(d.fd, VIDIOC_S_PARM, unsafe.Pointer(&parm)); err != nil {
		return Fract{}, err
	}
	return Fract{
		Numerator:   parm.capture.timeperframe.numerator,
		Denominator: parm.capture.timeperframe.denominator,
	}, nil
}
