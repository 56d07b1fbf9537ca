package mandel

import "image/color"

// RGB is a pixel colour without alpha.
type RGB struct {
	R, G, B uint8
}

// Packed returns c as 0xRRGGBB.
func (c RGB) Packed() uint32 {
	return uint32(c.R)<<16 | uint32(c.G)<<8 | uint32(c.B)
}

// RGBA returns c as an opaque colour.
func (c RGB) RGBA() color.RGBA {
	return color.RGBA{R: c.R, G: c.G, B: c.B, A: 255}
}

// Unpack is the inverse of RGB.Packed. Bits above 23 are ignored.
func Unpack(p uint32) RGB {
	return RGB{R: uint8(p >> 16), G: uint8(p >> 8), B: uint8(p)}
}

// MapToColor turns an escape count into a linear green to red gradient.
// Points that never escaped (i == max) are black.
// Channels are truncated, not rounded.
func MapToColor(i, max int) RGB {
	if i == max {
		return RGB{}
	}
	t := float64(i) / float64(max)
	r := uint8(t * 255)
	g := uint8((1 - t) * 255)
	return RGB{R: r, G: g, B: 255 - r}
}
