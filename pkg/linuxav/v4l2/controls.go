//go:build linux

package v4l2

import (
	"errors"
	"syscall"
	"unsafe"
)

// NextControl walks the device control list with the NEXT_CTRL flag.
// Pass 0 to get the first control, then the previous ID for each subsequent
// call. Returns ok=false once the walk is exhausted.
func (d *Device) NextControl(prevID uint32) (ControlInfo, bool, error) {
	query := v4l2_queryctrl{id: prevID | CtrlFlagNextCtrl}
	if err := ioctl(d.fd, VIDIOC_QUERYCTRL, unsafe.Pointer(&query)); err != nil {
		if errors.Is(err, syscall.EINVAL) {
			return ControlInfo{}, false, nil
		}
		return ControlInfo{}, false, err
	}
	return ControlInfo{
		ID:      query.id,
		Type:    query.typ,
		Name:    cstr(query.name[:]),
		Minimum: query.minimum,
		Maximum: query.maximum,
		Step:    query.step,
		Default: query.default_value,
		Flags:   query.flags,
	}, true, nil
}

// QueryMenu returns the menu item at index for a menu control. Holes in the
// menu range report ok=false without error.
func (d *Device) QueryMenu(id, index uint32) (MenuItem, bool, error) {
	menu := v4l2_querymenu{id: id, index: index}
	if err := ioctl(d.fd, VIDIOC_QUERYMENU, unsafe.Pointer(&menu)); err != nil {
		if errors.Is(err, syscall.EINVAL) {
			return MenuItem{}, false, nil
		}
		return MenuItem{}, false, err
	}
	return MenuItem{Index: index, Name: cstr(menu.name[:])}, true, nil
}

// GetControl reads the current value of a control.
func (d *Device) GetControl(id uint32) (int32, error) {
	ctrl := v4l2_control{id: id}
	if err := ioctl(d.fd, VIDIOC_G_CTRL, unsafe.Pointer(&ctrl)); err != nil {
		return 0, err
	}
	return ctrl.value, nil
}

// SetControl writes a control value.
func (d *Device) SetControl(id uint32, value int32) error {
	ctrl := v4l2_control{id: id, value: value}
	return ioctl(d.fd, VIDIOC_S_CTRL, unsafe.Pointer(&ctrl))
}
