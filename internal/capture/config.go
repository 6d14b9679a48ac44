package capture

// Video norm selectors.
const (
	NormPAL = iota
	NormNTSC
	NormSECAM
)

// Autobrightness methods. Each drives a different device control from the
// measured frame luminance.
const (
	AutobrightOff = iota
	AutobrightBrightness
	AutobrightExposure
	AutobrightExposureAbs
)

// Config describes one consumer's requested device setup.
type Config struct {
	// Device is the video node path, e.g. /dev/video0.
	Device string

	// Requested frame size. Both are rounded up to a multiple of 8
	// during negotiation.
	Width  int
	Height int

	// FrameRate in frames per second. Advisory; drivers without frame
	// interval support ignore it.
	FrameRate int

	// Input selects the video input on multi-input cards, -1 keeps the
	// device's current input.
	Input int

	// Norm is the analog video standard (NormPAL, NormNTSC, NormSECAM).
	// Ignored by digital-only devices.
	Norm int

	// FrequencyKHz tunes the input's tuner when greater than zero.
	FrequencyKHz int

	// Palette is the preferred palette id from the pixel format catalog.
	Palette int

	// Controls maps control names (or decimal control IDs) to requested
	// values, applied after negotiation and re-applied on reselection.
	// Values a control rejects are rewritten to the device's value.
	Controls map[string]string

	// AutoBrightness selects the software brightness feedback method.
	AutoBrightness int

	// BrightnessTarget is the desired average luminance in control units.
	// Negative means the midpoint of the control range.
	BrightnessTarget int

	// RoundRobinFrames is how many frames a consumer captures per
	// ownership turn on a shared device.
	RoundRobinFrames int

	// RoundRobinSkip is how many frames to discard after the device is
	// switched to this consumer's input, letting the signal settle.
	RoundRobinSkip int
}

// DefaultConfig returns the baseline consumer configuration.
func DefaultConfig(device string) Config {
	return Config{
		Device:           device,
		Width:            640,
		Height:           480,
		FrameRate:        15,
		Input:            -1,
		Norm:             NormPAL,
		Palette:          DefaultPalette,
		BrightnessTarget: -1,
		RoundRobinFrames: 1,
		RoundRobinSkip:   1,
	}
}

func (c *Config) normalize() {
	if c.RoundRobinFrames < 1 {
		c.RoundRobinFrames = 1
	}
	if c.RoundRobinSkip < 1 {
		c.RoundRobinSkip = 1
	}
	if !PaletteValid(c.Palette) {
		c.Palette = DefaultPalette
	}
}
