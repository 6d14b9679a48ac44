package pixconv

import (
	"bytes"
	"fmt"
	"image"
	"image/color"
	"image/jpeg"
)

// JPEGToYUV420P decodes a JPEG or motion-JPEG frame and repacks it as
// planar 4:2:0. The decoded image must match the negotiated dimensions;
// cameras occasionally emit a truncated or mis-sized frame and the caller
// treats that as a corrupt-frame error.
func JPEGToYUV420P(dst, src []byte, width, height int) error {
	img, err := jpeg.Decode(bytes.NewReader(src))
	if err != nil {
		return fmt.Errorf("pixconv: jpeg decode: %w", err)
	}
	bounds := img.Bounds()
	if bounds.Dx() != width || bounds.Dy() != height {
		return fmt.Errorf("pixconv: jpeg frame is %dx%d, negotiated %dx%d", bounds.Dx(), bounds.Dy(), width, height)
	}
	if err := checkSizes(dst, nil, width, height, 0); err != nil {
		return err
	}

	if ycbcr, ok := img.(*image.YCbCr); ok {
		repackYCbCr(dst, ycbcr, width, height)
		return nil
	}

	luma := dst[:width*height]
	cb := dst[width*height : width*height+width*height/4]
	cr := dst[width*height+width*height/4:]
	for row := 0; row < height; row++ {
		for col := 0; col < width; col++ {
			r, g, b, _ := img.At(bounds.Min.X+col, bounds.Min.Y+row).RGBA()
			y, u, v := color.RGBToYCbCr(byte(r>>8), byte(g>>8), byte(b>>8))
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

func repackYCbCr(dst []byte, img *image.YCbCr, width, height int) {
	luma := dst[:width*height]
	cb := dst[width*height : width*height+width*height/4]
	cr := dst[width*height+width*height/4:]

	for row := 0; row < height; row++ {
		copy(luma[row*width:(row+1)*width], img.Y[row*img.YStride:])
	}
	// Source subsampling may be 4:4:4, 4:2:2, or 4:2:0; point sampling the
	// chroma plane at each 2x2 block origin covers all three.
	for row := 0; row < height/2; row++ {
		for col := 0; col < width/2; col++ {
			off := img.COffset(img.Rect.Min.X+col*2, img.Rect.Min.Y+row*2)
			cb[row*(width/2)+col] = img.Cb[off]
			cr[row*(width/2)+col] = img.Cr[off]
		}
	}
}
