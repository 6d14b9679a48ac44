//go:build linux

package v4l2

import (
	"errors"
	"fmt"
	"syscall"
	"unsafe"
)

// EnumInput returns the input descriptor at index.
func (d *Device) EnumInput(index uint32) (InputInfo, error) {
	input := v4l2_input{index: index}
	if err := ioctl(d.fd, VIDIOC_ENUMINPUT, unsafe.Pointer(&input)); err != nil {
		return InputInfo{}, err
	}
	return InputInfo{
		Index:        input.index,
		Name:         cstr(input.name[:]),
		Type:         input.typ,
		TunerIndex:   input.tuner,
		Standards:    input.std,
		Status:       input.status,
		Capabilities: input.capabilities,
	}, nil
}

// GetInput returns the currently selected input index.
func (d *Device) GetInput() (uint32, error) {
	var index uint32
	if err := ioctl(d.fd, VIDIOC_G_INPUT, unsafe.Pointer(&index)); err != nil {
		return 0, err
	}
	return index, nil
}

// SetInput selects the input at index.
func (d *Device) SetInput(index uint32) error {
	return ioctl(d.fd, VIDIOC_S_INPUT, unsafe.Pointer(&index))
}

// GetStandard returns the currently active analog video standard mask.
func (d *Device) GetStandard() (uint64, error) {
	var std uint64
	if err := ioctl(d.fd, VIDIOC_G_STD, unsafe.Pointer(&std)); err != nil {
		return 0, err
	}
	return std, nil
}

// SetStandard activates an analog video standard by mask.
func (d *Device) SetStandard(std uint64) error {
	return ioctl(d.fd, VIDIOC_S_STD, unsafe.Pointer(&std))
}

// ListStandards enumerates the analog video standards the device supports.
// Digital-only devices report none.
func (d *Device) ListStandards() ([]StandardInfo, error) {
	var standards []StandardInfo
	for index := uint32(0); ; index++ {
		std := v4l2_standard{index: index}
		if err := ioctl(d.fd, VIDIOC_ENUMSTD, unsafe.Pointer(&std)); err != nil {
			if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
				break
			}
			return nil, fmt.Errorf("enumstd %s: %w", d.path, err)
		}
		standards = append(standards, StandardInfo{
			Index: std.index,
			ID:    std.id,
			Name:  cstr(std.name[:]),
		})
	}
	return standards, nil
}

// GetTuner returns the tuner descriptor at index.
func (d *Device) GetTuner(index uint32) (TunerInfo, error) {
	tuner := v4l2_tuner{index: index}
	if err := ioctl(d.fd, VIDIOC_G_TUNER, unsafe.Pointer(&tuner)); err != nil {
		return TunerInfo{}, err
	}
	return TunerInfo{
		Index:     tuner.index,
		Name:      cstr(tuner.name[:]),
		Type:      tuner.typ,
		RangeLow:  tuner.rangelow,
		RangeHigh: tuner.rangehigh,
		Signal:    tuner.signal,
	}, nil
}

// SetFrequency tunes the given tuner. The frequency is in units of 62.5 kHz
// (or 62.5 Hz for devices with the low-frequency capability).
func (d *Device) SetFrequency(tuner, frequency uint32) error {
	freq := v4l2_frequency{
		tuner:     tuner,
		typ:       TunerAnalogTV,
		frequency: frequency,
	}
	return ioctl(d.fd, VIDIOC_S_FREQUENCY, unsafe.Pointer(&freq))
}
