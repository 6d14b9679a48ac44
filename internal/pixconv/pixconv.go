// Package pixconv converts packed camera pixel formats to planar YUV 4:2:0,
// the normalized frame layout the capture pipeline hands to consumers.
//
// All converters write into a caller-provided destination of FrameSize(w, h)
// bytes: a full-resolution luma plane followed by quarter-resolution Cb and
// Cr planes. Chroma is subsampled by point sampling the top-left pixel of
// each 2x2 block. Width and height must be even.
package pixconv

import (
	"errors"
	"fmt"
	"image/color"
)

// ErrUnsupported reports a source format this package cannot decode.
var ErrUnsupported = errors.New("pixconv: unsupported pixel format")

// FrameSize returns the byte size of a planar YUV 4:2:0 frame.
func FrameSize(width, height int) int {
	return width * height * 3 / 2
}

func checkSizes(dst, src []byte, width, height, srcBytes int) error {
	if len(src) < srcBytes {
		return fmt.Errorf("pixconv: source %d bytes, need %d for %dx%d", len(src), srcBytes, width, height)
	}
	if len(dst) < FrameSize(width, height) {
		return fmt.Errorf("pixconv: destination %d bytes, need %d for %dx%d", len(dst), FrameSize(width, height), width, height)
	}
	return nil
}

// YUYVToYUV420P converts packed YUYV 4:2:2 (two pixels per four bytes,
// Y0 U Y1 V) to planar 4:2:0. Chroma rows are dropped on odd lines.
func YUYVToYUV420P(dst, src []byte, width, height int) error {
	return packed422ToYUV420P(dst, src, width, height, 0, 1, 3)
}

// UYVYToYUV420P converts packed UYVY 4:2:2 (U Y0 V Y1) to planar 4:2:0.
func UYVYToYUV420P(dst, src []byte, width, height int) error {
	return packed422ToYUV420P(dst, src, width, height, 1, 0, 2)
}

func packed422ToYUV420P(dst, src []byte, width, height, yOff, uOff, vOff int) error {
	if err := checkSizes(dst, src, width, height, width*height*2); err != nil {
		return err
	}
	luma := dst[:width*height]
	cb := dst[width*height : width*height+width*height/4]
	cr := dst[width*height+width*height/4:]

	ci := 0
	for row := 0; row < height; row++ {
		line := src[row*width*2:]
		for col := 0; col < width; col += 2 {
			base := col * 2
			luma[row*width+col] = line[base+yOff]
			luma[row*width+col+1] = line[base+yOff+2]
			if row%2 == 0 {
				cb[ci] = line[base+uOff]
				cr[ci] = line[base+vOff]
				ci++
			}
		}
	}
	return nil
}

// YUV422PToYUV420P converts planar 4:2:2 to planar 4:2:0 by dropping the
// chroma samples of odd rows.
func YUV422PToYUV420P(dst, src []byte, width, height int) error {
	if err := checkSizes(dst, src, width, height, width*height*2); err != nil {
		return err
	}
	n := width * height
	copy(dst[:n], src[:n])

	srcCb := src[n : n+n/2]
	srcCr := src[n+n/2:]
	dstCb := dst[n : n+n/4]
	dstCr := dst[n+n/4:]
	half := width / 2
	for row := 0; row < height/2; row++ {
		copy(dstCb[row*half:(row+1)*half], srcCb[row*2*half:])
		copy(dstCr[row*half:(row+1)*half], srcCr[row*2*half:])
	}
	return nil
}

// RGB24ToYUV420P converts packed RGB (3 bytes per pixel, R first) to planar
// 4:2:0 using the BT.601 coefficients of the standard library.
func RGB24ToYUV420P(dst, src []byte, width, height int) error {
	if err := checkSizes(dst, src, width, height, width*height*3); err != nil {
		return err
	}
	luma := dst[:width*height]
	cb := dst[width*height : width*height+width*height/4]
	cr := dst[width*height+width*height/4:]

	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			base := (row*width + col) * 3
			y, u, v := color.RGBToYCbCr(src[base], src[base+1], src[base+2])
			luma[row*width+col] = y
			if row%2 == 0 && col%2 == 0 {
				ci := (row/2)*(width/2) + col/2
				cb[ci] = u
				cr[ci] = v
			}
		}
	}
	return nil
}

// GreyToYUV420P expands an 8-bit luma-only frame with neutral chroma.
func GreyToYUV420P(dst, src []byte, width, height int) error {
	if err := checkSizes(dst, src, width, height, width*height); err != nil {
		return err
	}
	n := width * height
	copy(dst[:n], src[:n])
	for i := n; i < n+n/2; i++ {
		dst[i] = 128
	}
	return nil
}

// Y10ToYUV420P converts 10-bit greyscale (two bytes per pixel, little
// endian) to 8-bit planar 4:2:0 with neutral chroma.
func Y10ToYUV420P(dst, src []byte, width, height int) error {
	return wideGreyToYUV420P(dst, src, width, height, 2)
}

// Y12ToYUV420P converts 12-bit greyscale to 8-bit planar 4:2:0.
func Y12ToYUV420P(dst, src []byte, width, height int) error {
	return wideGreyToYUV420P(dst, src, width, height, 4)
}

func wideGreyToYUV420P(dst, src []byte, width, height, shift int) error {
	if err := checkSizes(dst, src, width, height, width*height*2); err != nil {
		return err
	}
	n := width * height
	for i := 0; i < n; i++ {
		v := uint16(src[i*2]) | uint16(src[i*2+1])<<8
		dst[i] = byte(v >> uint(shift))
	}
	for i := n; i < n+n/2; i++ {
		dst[i] = 128
	}
	return nil
}
