package capture

import (
	"github.com/rneureuther1/motion/pkg/linuxav/v4l2"
)

const (
	// autobrightHysteresis is the dead band around the target, in control
	// units, inside which no adjustment happens.
	autobrightHysteresis = 20

	// autobrightDamper divides the measured error into a step size, so
	// the loop converges over several frames instead of oscillating.
	autobrightDamper = 20

	// autobrightSampleStride measures every n-th luma byte; sampling the
	// whole plane buys nothing at this precision.
	autobrightSampleStride = 10
)

func autobrightControlID(method int) uint32 {
	switch method {
	case AutobrightBrightness:
		return v4l2.CidBrightness
	case AutobrightExposure:
		return v4l2.CidExposure
	case AutobrightExposureAbs:
		return v4l2.CidExposureAbsolute
	default:
		return 0
	}
}

// adjustBrightness measures the average luminance of the previous frame
// and stages a step on the configured control when it drifts outside the
// hysteresis band. The staged value rides the next applyControls pass.
// Returns whether a step was staged.
func (d *device) adjustBrightness(h *Handle, frame []byte) bool {
	id := autobrightControlID(h.cfg.AutoBrightness)
	if id == 0 || len(frame) == 0 {
		return false
	}
	ctrl := findControlByID(d.controls, id)
	if ctrl == nil {
		if !h.autobrightMissing {
			d.log.Warn("autobrightness control not offered by device",
				"method", h.cfg.AutoBrightness)
			h.autobrightMissing = true
		}
		return false
	}

	span := int(ctrl.Maximum) - int(ctrl.Minimum)
	if span <= 0 {
		return false
	}
	target := h.cfg.BrightnessTarget
	if target < 0 {
		target = span / 2
	}

	luma := frame
	if plane := d.width * d.height; plane > 0 && plane < len(frame) {
		luma = frame[:plane]
	}
	sum, count := 0, 0
	for i := 0; i < len(luma); i += autobrightSampleStride {
		sum += int(luma[i])
		count++
	}
	if count == 0 {
		return false
	}
	// Scale the 0..255 average into the control's units.
	avg := (sum / count) * span / 255

	windowHigh := target + autobrightHysteresis
	if windowHigh > int(ctrl.Maximum) {
		windowHigh = int(ctrl.Maximum)
	}
	windowLow := target - autobrightHysteresis
	if windowLow < int(ctrl.Minimum) {
		windowLow = int(ctrl.Minimum)
	}

	value := int(ctrl.Current)
	switch {
	case avg > windowHigh:
		step := (avg-target)/autobrightDamper + 1
		value -= step
		if value < int(ctrl.Minimum) {
			value = int(ctrl.Minimum)
		}
	case avg < windowLow:
		step := (target-avg)/autobrightDamper + 1
		value += step
		if value > int(ctrl.Maximum) {
			value = int(ctrl.Maximum)
		}
	default:
		return false
	}
	if int32(value) == ctrl.Current {
		return false
	}

	d.log.Debug("autobrightness step",
		"control", ctrl.Name, "avg", avg, "target", target,
		"from", ctrl.Current, "to", value)
	ctrl.Requested = int32(value)
	ctrl.state = applyRequested
	ctrl.srcKey = ""
	return true
}

func findControlByID(ctrls []*ControlDescriptor, id uint32) *ControlDescriptor {
	for _, ctrl := range ctrls {
		if ctrl.Kind == KindControl && ctrl.ID == id {
			return ctrl
		}
	}
	return nil
}
