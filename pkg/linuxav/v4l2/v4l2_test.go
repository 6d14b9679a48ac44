//go:build linux

package v4l2

import (
	"math"
	"os"
	"path/filepath"
	"testing"
)

func TestFourCC(t *testing.T) {
	tests := []struct {
		name        string
		pixelformat uint32
		want        string
	}{
		{"yuyv", PixFmtYUYV, "YUYV"},
		{"yuv420", PixFmtYUV420, "YU12"},
		{"yuv422p", PixFmtYUV422P, "422P"},
		{"mjpeg", PixFmtMJPEG, "MJPG"},
		{"h264", PixFmtH264, "H264"},
		{"grey", PixFmtGREY, "GREY"},
		{"y10 trailing space", PixFmtY10, "Y10 "},
		{"bayer bggr8", PixFmtSBGGR8, "BA81"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := FourCC(tt.pixelformat); got != tt.want {
				t.Errorf("FourCC(%#x) = %q, want %q", tt.pixelformat, got, tt.want)
			}
		})
	}
}

func TestFractFPS(t *testing.T) {
	tests := []struct {
		name  string
		fract Fract
		want  float64
	}{
		{"30fps", Fract{1, 30}, 30},
		{"15fps", Fract{1, 15}, 15},
		{"ntsc", Fract{1001, 30000}, 29.97},
		{"zero numerator", Fract{0, 30}, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := tt.fract.FPS()
			if math.Abs(got-tt.want) > 0.005 {
				t.Errorf("FPS(%d/%d) = %f, want %f", tt.fract.Numerator, tt.fract.Denominator, got, tt.want)
			}
		})
	}
}

func TestCstr(t *testing.T) {
	tests := []struct {
		name string
		in   []byte
		want string
	}{
		{"terminated", []byte{'u', 'v', 'c', 0, 'x', 'x'}, "uvc"},
		{"unterminated", []byte{'a', 'b'}, "ab"},
		{"empty", []byte{0}, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := cstr(tt.in); got != tt.want {
				t.Errorf("cstr(%v) = %q, want %q", tt.in, got, tt.want)
			}
		})
	}
}

func TestOpenMissingNode(t *testing.T) {
	if _, err := Open("/dev/video-does-not-exist"); err == nil {
		t.Error("Open on a missing node should fail")
	}
	if _, err := OpenQuery("/dev/video-does-not-exist"); err == nil {
		t.Error("OpenQuery on a missing node should fail")
	}
}

func TestOpenReturnsUsableDescriptor(t *testing.T) {
	// A regular file stands in for the node; only the open/close plumbing
	// is under test here, ioctls need hardware.
	path := filepath.Join(t.TempDir(), "video0")
	if err := os.WriteFile(path, nil, 0o600); err != nil {
		t.Fatalf("creating stand-in node: %v", err)
	}

	for name, open := range map[string]func(string) (*Device, error){
		"capture": Open,
		"query":   OpenQuery,
	} {
		t.Run(name, func(t *testing.T) {
			d, err := open(path)
			if err != nil {
				t.Fatalf("open: %v", err)
			}
			if d.Path() != path {
				t.Errorf("Path() = %q, want %q", d.Path(), path)
			}
			if d.fd < 0 {
				t.Error("descriptor not open")
			}
			if err := d.Close(); err != nil {
				t.Errorf("close: %v", err)
			}
		})
	}
}

func TestCloseIdempotent(t *testing.T) {
	d := &Device{fd: -1, path: "/dev/video99"}
	if err := d.Close(); err != nil {
		t.Errorf("Close on closed device returned %v", err)
	}
	if err := d.Close(); err != nil {
		t.Errorf("second Close returned %v", err)
	}
}
