//go:build linux && (amd64 || arm64)

package v4l2

import "unsafe"

// Compile-time struct size assertions for 64-bit architectures.
// These cause build failures if struct sizes don't match kernel expectations.
var (
	_ [104]byte = [unsafe.Sizeof(v4l2_capability{})]byte{}
	_ [64]byte  = [unsafe.Sizeof(v4l2_fmtdesc{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2_frmsize_discrete{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(v4l2_frmsizeenum{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2_fract{})]byte{}
	_ [52]byte  = [unsafe.Sizeof(v4l2_frmivalenum{})]byte{}
	_ [48]byte  = [unsafe.Sizeof(v4l2_pix_format{})]byte{}
	_ [208]byte = [unsafe.Sizeof(v4l2_format{})]byte{}
	_ [20]byte  = [unsafe.Sizeof(v4l2_requestbuffers{})]byte{}
	_ [16]byte  = [unsafe.Sizeof(v4l2_timecode{})]byte{}
	_ [88]byte  = [unsafe.Sizeof(v4l2_buffer{})]byte{}
	_ [68]byte  = [unsafe.Sizeof(v4l2_queryctrl{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(v4l2_querymenu{})]byte{}
	_ [8]byte   = [unsafe.Sizeof(v4l2_control{})]byte{}
	_ [80]byte  = [unsafe.Sizeof(v4l2_input{})]byte{}
	_ [72]byte  = [unsafe.Sizeof(v4l2_standard{})]byte{}
	_ [84]byte  = [unsafe.Sizeof(v4l2_tuner{})]byte{}
	_ [44]byte  = [unsafe.Sizeof(v4l2_frequency{})]byte{}
	_ [40]byte  = [unsafe.Sizeof(v4l2_captureparm{})]byte{}
	_ [204]byte = [unsafe.Sizeof(v4l2_streamparm{})]byte{}
)

// IOCTL request codes for 64-bit architectures. The codes that differ from
// 32-bit ARM embed the sizes of v4l2_format (208 here, 204 there) and
// v4l2_buffer (88 here, 68 there).
const (
	VIDIOC_QUERYCAP            = 0x80685600
	VIDIOC_ENUM_FMT            = 0xc0405602
	VIDIOC_G_FMT               = 0xc0d05604
	VIDIOC_S_FMT               = 0xc0d05605
	VIDIOC_REQBUFS             = 0xc0145608
	VIDIOC_QUERYBUF            = 0xc0585609
	VIDIOC_QBUF                = 0xc058560f
	VIDIOC_DQBUF               = 0xc0585611
	VIDIOC_STREAMON            = 0x40045612
	VIDIOC_STREAMOFF           = 0x40045613
	VIDIOC_G_PARM              = 0xc0cc5615
	VIDIOC_S_PARM              = 0xc0cc5616
	VIDIOC_G_STD               = 0x80085617
	VIDIOC_S_STD               = 0x40085618
	VIDIOC_ENUMSTD             = 0xc0485619
	VIDIOC_ENUMINPUT           = 0xc050561a
	VIDIOC_G_CTRL              = 0xc008561b
	VIDIOC_S_CTRL              = 0xc008561c
	VIDIOC_G_TUNER             = 0xc054561d
	VIDIOC_QUERYCTRL           = 0xc0445624
	VIDIOC_QUERYMENU           = 0xc02c5625
	VIDIOC_G_INPUT             = 0x80045626
	VIDIOC_S_INPUT             = 0xc0045627
	VIDIOC_G_FREQUENCY         = 0xc02c5638
	VIDIOC_S_FREQUENCY         = 0x402c5639
	VIDIOC_TRY_FMT             = 0xc0d05640
	VIDIOC_ENUM_FRAMESIZES     = 0xc02c564a
	VIDIOC_ENUM_FRAMEINTERVALS = 0xc034564b
)

// v4l2_capability - size 104 bytes
type v4l2_capability struct {
	driver       [16]byte
	card         [32]byte
	bus_info     [32]byte
	version      uint32
	capabilities uint32
	device_caps  uint32
	reserved     [3]uint32
}

// v4l2_fmtdesc - size 64 bytes
type v4l2_fmtdesc struct {
	index       uint32
	typ         uint32
	flags       uint32
	description [32]byte
	pixelformat uint32
	mbus_code   uint32
	reserved    [3]uint32
}

// v4l2_frmsize_discrete - size 8 bytes
type v4l2_frmsize_discrete struct {
	width  uint32
	height uint32
}

// v4l2_frmsizeenum - size 44 bytes
type v4l2_frmsizeenum struct {
	index        uint32
	pixel_format uint32
	typ          uint32
	discrete     v4l2_frmsize_discrete
	_            [16]byte
	reserved     [2]uint32
}

// v4l2_fract - size 8 bytes
type v4l2_fract struct {
	numerator   uint32
	denominator uint32
}

// v4l2_frmivalenum - size 52 bytes
type v4l2_frmivalenum struct {
	index        uint32
	pixel_format uint32
	width        uint32
	height       uint32
	typ          uint32
	discrete     v4l2_fract
	_            [16]byte
	reserved     [2]uint32
}

// v4l2_pix_format - size 48 bytes
type v4l2_pix_format struct {
	width        uint32
	height       uint32
	pixelformat  uint32
	field        uint32
	bytesperline uint32
	sizeimage    uint32
	colorspace   uint32
	priv         uint32
	flags        uint32
	ycbcr_enc    uint32
	quantization uint32
	xfer_func    uint32
}

// v4l2_format - size 208 bytes. The fmt union is 200 bytes and starts at
// offset 8 on 64-bit (it contains pointer members); only the pix member is
// modeled, the rest is padding.
type v4l2_format struct {
	typ uint32
	_   uint32
	pix v4l2_pix_format
	_   [152]byte
}

// v4l2_requestbuffers - size 20 bytes
type v4l2_requestbuffers struct {
	count        uint32
	typ          uint32
	memory       uint32
	capabilities uint32
	flags        uint8
	reserved     [3]uint8
}

// v4l2_timecode - size 16 bytes
type v4l2_timecode struct {
	typ      uint32
	flags    uint32
	frames   uint8
	seconds  uint8
	minutes  uint8
	hours    uint8
	userbits [4]uint8
}

// v4l2_buffer - size 88 bytes on 64-bit (struct timeval is 16 bytes).
// The m union holds the mmap offset for MEMORY_MMAP buffers.
type v4l2_buffer struct {
	index     uint32
	typ       uint32
	bytesused uint32
	flags     uint32
	field     uint32
	_         uint32
	timestamp timeval
	timecode  v4l2_timecode
	sequence  uint32
	memory    uint32
	m         uint64
	length    uint32
	reserved2 uint32

	request_fd uint32
}

// v4l2_queryctrl - size 68 bytes
type v4l2_queryctrl struct {
	id            uint32
	typ           uint32
	name          [32]byte
	minimum       int32
	maximum       int32
	step          int32
	default_value int32
	flags         uint32
	reserved      [2]uint32
}

// v4l2_querymenu - size 44 bytes (packed in the kernel; no padding needed
// here because all fields are 4-byte aligned)
type v4l2_querymenu struct {
	id       uint32
	index    uint32
	name     [32]byte
	reserved uint32
}

// v4l2_control - size 8 bytes
type v4l2_control struct {
	id    uint32
	value int32
}

// v4l2_input - size 80 bytes
type v4l2_input struct {
	index        uint32
	name         [32]byte
	typ          uint32
	audioset     uint32
	tuner        uint32
	std          uint64
	status       uint32
	capabilities uint32
	reserved     [3]uint32
	_            [4]byte
}

// v4l2_standard - size 72 bytes
type v4l2_standard struct {
	index       uint32
	_           uint32
	id          uint64
	name        [24]byte
	frameperiod v4l2_fract
	framelines  uint32
	reserved    [4]uint32
	_           [4]byte
}

// v4l2_tuner - size 84 bytes
type v4l2_tuner struct {
	index      uint32
	name       [32]byte
	typ        uint32
	capability uint32
	rangelow   uint32
	rangehigh  uint32
	rxsubchans uint32
	audmode    uint32
	signal     int32
	afc        int32
	reserved   [4]uint32
}

// v4l2_frequency - size 44 bytes
type v4l2_frequency struct {
	tuner     uint32
	typ       uint32
	frequency uint32
	reserved  [8]uint32
}

// v4l2_captureparm - size 40 bytes
type v4l2_captureparm struct {
	capability   uint32
	capturemode  uint32
	timeperframe v4l2_fract
	extendedmode uint32
	readbuffers  uint32
	reserved     [4]uint32
}

// v4l2_streamparm - size 204 bytes (4-byte type plus a 200-byte union)
type v4l2_streamparm struct {
	typ     uint32
	capture v4l2_captureparm
	_       [160]byte
}
