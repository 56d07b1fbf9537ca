package mandel

import (
	"fmt"
	"image"
)

// PixelBuffer holds one frame of packed 0xRRGGBB pixels, row-major,
// with row 0 at the top.
type PixelBuffer struct {
	Pix           []uint32
	Width, Height int
}

func NewPixelBuffer(width, height int) *PixelBuffer {
	if width <= 0 || height <= 0 {
		panic(fmt.Sprintf("invalid pixel buffer size %dx%d", width, height))
	}
	return &PixelBuffer{
		Pix:    make([]uint32, width*height),
		Width:  width,
		Height: height,
	}
}

func (b *PixelBuffer) At(x, y int) uint32 {
	return b.Pix[x+y*b.Width]
}

func (b *PixelBuffer) Set(x, y int, p uint32) {
	b.Pix[x+y*b.Width] = p
}

// WriteRGBA expands the buffer into dst as 8 bit RGBA quadruples with
// opaque alpha. dst must hold at least 4*Width*Height bytes.
func (b *PixelBuffer) WriteRGBA(dst []byte) {
	_ = dst[4*len(b.Pix)-1]
	for i, p := range b.Pix {
		o := 4 * i
		dst[o] = uint8(p >> 16)
		dst[o+1] = uint8(p >> 8)
		dst[o+2] = uint8(p)
		dst[o+3] = 0xff
	}
}

// Image returns a copy of the buffer as an RGBA image.
func (b *PixelBuffer) Image() *image.RGBA {
	img := image.NewRGBA(image.Rect(0, 0, b.Width, b.Height))
	for y := range b.Height {
		for x := range b.Width {
			img.SetRGBA(x, y, Unpack(b.At(x, y)).RGBA())
		}
	}
	return img
}
