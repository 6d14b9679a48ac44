package pixconv

import "fmt"

// BayerPattern names the color order of the top-left 2x2 cell of a raw
// bayer mosaic.
type BayerPattern int

const (
	BayerBGGR BayerPattern = iota
	BayerGBRG
	BayerGRBG
	BayerRGGB
)

// BayerToYUV420P demosaics an 8-bit bayer frame and converts it to planar
// 4:2:0. Each 2x2 cell is collapsed to one RGB sample (the two greens are
// averaged) that colors all four pixels, which trades edge resolution for a
// small constant cost per pixel.
func BayerToYUV420P(dst, src []byte, width, height int, pattern BayerPattern) error {
	if err := checkSizes(dst, src, width, height, width*height); err != nil {
		return err
	}

	// Positions of R, G, G, B within the 2x2 cell as (row, col) offsets.
	var rPos, g0Pos, g1Pos, bPos [2]int
	switch pattern {
	case BayerBGGR:
		bPos, g0Pos, g1Pos, rPos = [2]int{0, 0}, [2]int{0, 1}, [2]int{1, 0}, [2]int{1, 1}
	case BayerGBRG:
		g0Pos, bPos, rPos, g1Pos = [2]int{0, 0}, [2]int{0, 1}, [2]int{1, 0}, [2]int{1, 1}
	case BayerGRBG:
		g0Pos, rPos, bPos, g1Pos = [2]int{0, 0}, [2]int{0, 1}, [2]int{1, 0}, [2]int{1, 1}
	case BayerRGGB:
		rPos, g0Pos, g1Pos, bPos = [2]int{0, 0}, [2]int{0, 1}, [2]int{1, 0}, [2]int{1, 1}
	default:
		return fmt.Errorf("pixconv: unknown bayer pattern %d", pattern)
	}

	rgb := make([]byte, width*height*3)
	at := func(pos [2]int, row, col int) byte {
		return src[(row+pos[0])*width+col+pos[1]]
	}
	for row := 0; row < height; row += 2 {
		for col := 0; col < width; col += 2 {
			r := at(rPos, row, col)
			g := byte((int(at(g0Pos, row, col)) + int(at(g1Pos, row, col))) / 2)
			b := at(bPos, row, col)
			for dy := 0; dy < 2; dy++ {
				for dx := 0; dx < 2; dx++ {
					base := ((row+dy)*width + col + dx) * 3
					rgb[base] = r
					rgb[base+1] = g
					rgb[base+2] = b
				}
			}
		}
	}
	return RGB24ToYUV420P(dst, rgb, width, height)
}
