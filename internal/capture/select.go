package capture

import (
	"errors"
	"fmt"
	"syscall"

	"github.com/rneureuther1/motion/pkg/linuxav/v4l2"
)

// selectInput switches the device to the configured video input. Input -1
// keeps whatever the device is on; the current index is recorded so later
// reselection can tell whether a switch is needed.
func (d *device) selectInput(cfg Config) error {
	if cfg.Input < 0 {
		if current, err := d.vd.GetInput(); err == nil {
			d.input = int(current)
		}
		return nil
	}

	info, err := d.vd.EnumInput(uint32(cfg.Input))
	if err != nil {
		return fmt.Errorf("%w: input %d does not exist: %v", ErrNegotiate, cfg.Input, err)
	}
	d.log.Info("selecting input",
		"input", cfg.Input, "name", info.Name,
		"tuner", info.Type == v4l2.InputTypeTuner)

	if err := d.retry(func() error { return d.vd.SetInput(uint32(cfg.Input)) }); err != nil {
		return fmt.Errorf("%w: selecting input %d: %v", ErrNegotiate, cfg.Input, err)
	}
	d.input = cfg.Input
	return nil
}

// selectStandard activates the analog norm. Devices without analog inputs
// (every USB webcam) report no standards and are left alone.
func (d *device) selectStandard(cfg Config) error {
	standards, err := d.vd.ListStandards()
	if err != nil {
		return fmt.Errorf("enumerating video standards: %w", err)
	}
	if len(standards) == 0 {
		d.norm = cfg.Norm
		return nil
	}

	var std uint64
	switch cfg.Norm {
	case NormNTSC:
		std = v4l2.StdNTSC
	case NormSECAM:
		std = v4l2.StdSECAM
	default:
		std = v4l2.StdPAL
	}

	if current, err := d.vd.GetStandard(); err == nil && current&std != 0 {
		d.norm = cfg.Norm
		return nil
	}
	if err := d.retry(func() error { return d.vd.SetStandard(std) }); err != nil {
		// Some drivers expose ENUMSTD but reject S_STD; not fatal.
		if errors.Is(err, syscall.EINVAL) || errors.Is(err, syscall.ENOTTY) {
			d.log.Warn("video standard not accepted", "norm", cfg.Norm, "error", err)
			d.norm = cfg.Norm
			return nil
		}
		return fmt.Errorf("setting video standard: %w", err)
	}
	d.log.Info("video standard set", "norm", cfg.Norm)
	d.norm = cfg.Norm
	return nil
}

// selectFrequency tunes the current input's tuner. The configured value is
// in kHz; V4L2 wants units of 62.5 kHz, hence 16 steps per MHz.
func (d *device) selectFrequency(cfg Config) error {
	if cfg.FrequencyKHz <= 0 {
		d.frequency = cfg.FrequencyKHz
		return nil
	}
	input, err := d.vd.EnumInput(uint32(max(d.input, 0)))
	if err != nil || input.Type != v4l2.InputTypeTuner {
		d.log.Warn("frequency configured but input has no tuner",
			"input", d.input, "frequency_khz", cfg.FrequencyKHz)
		d.frequency = cfg.FrequencyKHz
		return nil
	}
	tuner, err := d.vd.GetTuner(input.TunerIndex)
	if err != nil {
		return fmt.Errorf("querying tuner %d: %w", input.TunerIndex, err)
	}

	units := uint32(cfg.FrequencyKHz/1000) * 16
	if err := d.retry(func() error { return d.vd.SetFrequency(input.TunerIndex, units) }); err != nil {
		return fmt.Errorf("tuning %s to %d kHz: %w", tuner.Name, cfg.FrequencyKHz, err)
	}
	d.log.Info("tuner frequency set",
		"tuner", tuner.Name, "frequency_khz", cfg.FrequencyKHz)
	d.frequency = cfg.FrequencyKHz
	return nil
}

// reselect runs when a handle takes ownership of a shared device. When the
// handle wants a different input, norm, or frequency than the device is
// currently on, the source is switched and the stale frames exposed under
// the previous source are drained; otherwise only controls and
// autobrightness are refreshed.
func (d *device) reselect(h *Handle) error {
	cfg := h.cfg
	switched := (cfg.Input >= 0 && cfg.Input != d.input) ||
		cfg.Norm != d.norm ||
		cfg.FrequencyKHz != d.frequency

	if switched {
		if err := d.selectInput(cfg); err != nil {
			return err
		}
		if err := d.selectStandard(cfg); err != nil {
			return err
		}
		if err := d.selectFrequency(cfg); err != nil {
			return err
		}
		d.setFrameRate(cfg.FrameRate)
	}

	d.adjustBrightness(h, h.prev)
	rolledBack := d.applyControls(cfg.Controls)
	if rolledBack > 0 {
		h.notifyRollback(rolledBack)
	}

	if switched {
		d.pool.drain(len(d.pool.buffers))
		d.pool.drain(cfg.RoundRobinSkip - 1)
	}
	return nil
}
