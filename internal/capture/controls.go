package capture

import (
	"fmt"
	"log/slog"
	"strconv"
	"strings"

	"github.com/rneureuther1/motion/pkg/linuxav/v4l2"
)

// DescriptorKind distinguishes real controls from the menu options listed
// beneath them.
type DescriptorKind int

const (
	KindControl DescriptorKind = iota
	KindMenuOption
)

type applyState int

const (
	applyIdle applyState = iota
	applyRequested
	applyFailed
	applyApplied
	applyRolledBack
)

// ControlDescriptor is one entry of a device's control catalog. Menu
// options appear as follow-up entries with KindMenuOption and no range;
// their Minimum holds the option index.
type ControlDescriptor struct {
	Kind    DescriptorKind
	ID      uint32
	Type    uint32
	Name    string
	Minimum int32
	Maximum int32
	Default int32

	// Current is the device-side value, refreshed on enumeration and
	// after every apply pass.
	Current int32

	// Requested is the staged value for the next apply pass.
	Requested int32

	state applyState
	// srcKey remembers which user override staged the request so a
	// rollback can rewrite it.
	srcKey string
}

// enumerateControls walks the device control list with the NEXT_CTRL
// protocol and reads each control's current value. Menu controls get one
// option descriptor per valid index.
func enumerateControls(vd videoDevice, log *slog.Logger) ([]*ControlDescriptor, error) {
	var out []*ControlDescriptor
	prevID := uint32(0)
	for {
		info, ok, err := vd.NextControl(prevID)
		if err != nil {
			return out, fmt.Errorf("querying control after %#x: %w", prevID, err)
		}
		if !ok {
			break
		}
		prevID = info.ID

		if info.Flags&v4l2.CtrlFlagDisabled != 0 || info.Type == v4l2.CtrlTypeCtrlClass {
			continue
		}
		switch info.Type {
		case v4l2.CtrlTypeInteger, v4l2.CtrlTypeBoolean, v4l2.CtrlTypeMenu, v4l2.CtrlTypeButton:
		default:
			// 64-bit and string controls are not settable through the
			// 32-bit control interface.
			continue
		}

		desc := &ControlDescriptor{
			Kind:    KindControl,
			ID:      info.ID,
			Type:    info.Type,
			Name:    info.Name,
			Minimum: info.Minimum,
			Maximum: info.Maximum,
			Default: info.Default,
		}
		if value, err := vd.GetControl(info.ID); err == nil {
			desc.Current = value
		} else {
			desc.Current = info.Default
			log.Debug("reading control failed", "control", info.Name, "error", err)
		}
		out = append(out, desc)

		if info.Type == v4l2.CtrlTypeMenu {
			for index := info.Minimum; index <= info.Maximum; index++ {
				item, ok, err := vd.QueryMenu(info.ID, uint32(index))
				if err != nil || !ok {
					continue
				}
				out = append(out, &ControlDescriptor{
					Kind:    KindMenuOption,
					ID:      info.ID,
					Name:    item.Name,
					Minimum: index,
				})
			}
		}
	}
	return out, nil
}

// findControl resolves a user key to a control descriptor. Keys match the
// control name case-insensitively or its decimal ID.
func findControl(ctrls []*ControlDescriptor, key string) *ControlDescriptor {
	for _, ctrl := range ctrls {
		if ctrl.Kind != KindControl {
			continue
		}
		if strings.EqualFold(ctrl.Name, key) {
			return ctrl
		}
		if id, err := strconv.ParseUint(key, 10, 32); err == nil && uint32(id) == ctrl.ID {
			return ctrl
		}
	}
	return nil
}

// stageControl clamps value to the control's constraints and stages it.
// Returns false when the control is unknown or already at the value.
func stageControl(ctrls []*ControlDescriptor, key, rawValue string, log *slog.Logger) bool {
	ctrl := findControl(ctrls, key)
	if ctrl == nil {
		log.Warn("unknown device control", "control", key)
		return false
	}
	parsed, err := strconv.ParseInt(rawValue, 10, 32)
	if err != nil {
		log.Warn("control value is not numeric", "control", key, "value", rawValue)
		return false
	}
	value := int32(parsed)

	switch ctrl.Type {
	case v4l2.CtrlTypeBoolean:
		if value != 0 && value != 1 {
			log.Warn("boolean control clamped", "control", ctrl.Name, "value", value)
			if value != 0 {
				value = 1
			}
		}
	case v4l2.CtrlTypeButton:
		// Buttons take any value; writing triggers the action.
	default:
		if value < ctrl.Minimum {
			log.Warn("control value clamped to minimum",
				"control", ctrl.Name, "value", value, "minimum", ctrl.Minimum)
			value = ctrl.Minimum
		} else if value > ctrl.Maximum {
			log.Warn("control value clamped to maximum",
				"control", ctrl.Name, "value", value, "maximum", ctrl.Maximum)
			value = ctrl.Maximum
		}
	}

	if value == ctrl.Current && ctrl.Type != v4l2.CtrlTypeButton {
		return false
	}
	ctrl.Requested = value
	ctrl.state = applyRequested
	ctrl.srcKey = key
	return true
}

// applyControls pushes every staged value to the device in two phases:
// one pass over all staged controls, then one retry pass over the
// failures. A control failing both passes is written back to its current
// device value and the override that staged it is rewritten, so the bad
// request is not replayed forever.
//
// Returns the number of rolled-back controls. Control errors never
// propagate; a camera rejecting a parameter must not kill capture.
func (d *device) applyControls(overrides map[string]string) int {
	for key, value := range overrides {
		stageControl(d.controls, key, value, d.log)
	}
	staged := 0
	for _, ctrl := range d.controls {
		if ctrl.state == applyRequested {
			staged++
		}
	}
	if staged == 0 {
		return 0
	}

	failures := d.applyPass(func(c *ControlDescriptor) bool { return c.state == applyRequested })
	if failures > 0 {
		d.applyPass(func(c *ControlDescriptor) bool { return c.state == applyFailed })
	}

	rolledBack := 0
	for _, ctrl := range d.controls {
		if ctrl.state != applyFailed {
			continue
		}
		d.log.Warn("control rejected by device, rolled back",
			"control", ctrl.Name, "requested", ctrl.Requested, "kept", ctrl.Current)
		if err := d.vd.SetControl(ctrl.ID, ctrl.Current); err != nil {
			d.log.Warn("control rollback write failed", "control", ctrl.Name, "error", err)
		}
		if ctrl.srcKey != "" {
			overrides[ctrl.srcKey] = strconv.FormatInt(int64(ctrl.Current), 10)
		}
		ctrl.state = applyRolledBack
		rolledBack++
	}
	return rolledBack
}

// applyPass writes every staged control selected by match and returns how
// many writes failed.
func (d *device) applyPass(match func(*ControlDescriptor) bool) int {
	failures := 0
	for _, ctrl := range d.controls {
		if ctrl.Kind != KindControl || !match(ctrl) {
			continue
		}
		if err := d.vd.SetControl(ctrl.ID, ctrl.Requested); err != nil {
			ctrl.state = applyFailed
			failures++
			continue
		}
		ctrl.Current = ctrl.Requested
		ctrl.state = applyApplied
	}
	return failures
}
