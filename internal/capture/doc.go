// Package capture is the hardware-facing video acquisition layer.
//
// It owns every interaction with V4L2 capture devices: format negotiation,
// memory-mapped buffer streaming, device controls with software
// autobrightness, and input/standard/tuner selection. Frames are delivered
// to consumers as planar YUV 4:2:0 regardless of what the camera produces.
//
// A single Registry shares each physical device between any number of
// consumers. Consumers obtain a Handle with Registry.Open and pull frames
// with Handle.NextFrame; devices on multi-input capture cards are
// time-sliced between consumers round-robin, with a configurable number of
// frames per turn.
package capture
