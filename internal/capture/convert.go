package capture

import (
	"fmt"

	"github.com/rneureuther1/motion/internal/pixconv"
	"github.com/rneureuther1/motion/pkg/linuxav/v4l2"
)

// FrameSize returns the byte size of the planar YUV 4:2:0 frames a handle
// delivers.
func (h *Handle) FrameSize() int {
	return pixconv.FrameSize(h.dev.width, h.dev.height)
}

// convertFrame normalizes one raw payload into dst as planar 4:2:0.
func (d *device) convertFrame(dst, src []byte) error {
	w, h := d.width, d.height
	switch d.pixelformat {
	case v4l2.PixFmtYUV420:
		if len(src) < pixconv.FrameSize(w, h) {
			return fmt.Errorf("%w: %d of %d bytes", ErrCorruptFrame, len(src), pixconv.FrameSize(w, h))
		}
		copy(dst, src[:pixconv.FrameSize(w, h)])
		return nil
	case v4l2.PixFmtYUYV:
		return d.wrapConvert(pixconv.YUYVToYUV420P(dst, src, w, h))
	case v4l2.PixFmtUYVY:
		return d.wrapConvert(pixconv.UYVYToYUV420P(dst, src, w, h))
	case v4l2.PixFmtYUV422P:
		return d.wrapConvert(pixconv.YUV422PToYUV420P(dst, src, w, h))
	case v4l2.PixFmtRGB24:
		return d.wrapConvert(pixconv.RGB24ToYUV420P(dst, src, w, h))
	case v4l2.PixFmtGREY:
		return d.wrapConvert(pixconv.GreyToYUV420P(dst, src, w, h))
	case v4l2.PixFmtY10:
		return d.wrapConvert(pixconv.Y10ToYUV420P(dst, src, w, h))
	case v4l2.PixFmtY12:
		return d.wrapConvert(pixconv.Y12ToYUV420P(dst, src, w, h))
	case v4l2.PixFmtSBGGR8:
		return d.wrapConvert(pixconv.BayerToYUV420P(dst, src, w, h, pixconv.BayerBGGR))
	case v4l2.PixFmtSGBRG8:
		return d.wrapConvert(pixconv.BayerToYUV420P(dst, src, w, h, pixconv.BayerGBRG))
	case v4l2.PixFmtSGRBG8:
		return d.wrapConvert(pixconv.BayerToYUV420P(dst, src, w, h, pixconv.BayerGRBG))
	case v4l2.PixFmtMJPEG, v4l2.PixFmtJPEG, v4l2.PixFmtPJPG:
		return d.wrapConvert(pixconv.JPEGToYUV420P(dst, src, w, h))
	default:
		return fmt.Errorf("%w: %s", ErrNotSupported, v4l2.FourCC(d.pixelformat))
	}
}

// decodable reports whether convertFrame can normalize payloads of the
// pixel format. Negotiation never commits to a format outside this set, so
// an opened device always delivers frames.
func decodable(pixelformat uint32) bool {
	switch pixelformat {
	case v4l2.PixFmtYUV420, v4l2.PixFmtYUYV, v4l2.PixFmtUYVY,
		v4l2.PixFmtYUV422P, v4l2.PixFmtRGB24, v4l2.PixFmtGREY,
		v4l2.PixFmtY10, v4l2.PixFmtY12,
		v4l2.PixFmtSBGGR8, v4l2.PixFmtSGBRG8, v4l2.PixFmtSGRBG8,
		v4l2.PixFmtMJPEG, v4l2.PixFmtJPEG, v4l2.PixFmtPJPG:
		return true
	}
	return false
}

// wrapConvert folds converter failures into the capture error taxonomy:
// a conversion that fails on one payload is a corrupt frame, not a dead
// stream.
func (d *device) wrapConvert(err error) error {
	if err == nil {
		return nil
	}
	return fmt.Errorf("%w: %v", ErrCorruptFrame, err)
}
