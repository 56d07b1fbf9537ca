package mandel

import "math"

// Viewport is the square window of the complex plane being explored.
// Scope is the half extent of both axes and must stay positive.
type Viewport struct {
	Center Complex
	Scope  float64
}

// Bounds returns the explicit region covered by v.
func (v Viewport) Bounds() Region {
	return Region{
		Xmin: v.Center.Re - v.Scope,
		Xmax: v.Center.Re + v.Scope,
		Ymin: v.Center.Im - v.Scope,
		Ymax: v.Center.Im + v.Scope,
	}
}

// ViewportFromRegion returns the smallest square viewport covering r.
func ViewportFromRegion(r Region) Viewport {
	return Viewport{
		Center: Complex{
			Re: (r.Xmin + r.Xmax) / 2,
			Im: (r.Ymin + r.Ymax) / 2,
		},
		Scope: math.Max(r.Xmax-r.Xmin, r.Ymax-r.Ymin) / 2,
	}
}

// PixelToComplex maps pixel (x, y) of a width x height grid into r.
// Row 0 is the top of the image, so the imaginary axis is flipped.
// Coordinates are not checked against the grid size.
func PixelToComplex(x, y, width, height int, r Region) Complex {
	re := r.Xmin + (float64(x)/float64(width))*(r.Xmax-r.Xmin)
	im := r.Ymax - (float64(y)/float64(height))*(r.Ymax-r.Ymin)
	return Complex{Re: re, Im: im}
}

// ComplexToPixel is the inverse of PixelToComplex. The result is not rounded.
func ComplexToPixel(c Complex, width, height int, r Region) (x, y float64) {
	x = (c.Re - r.Xmin) / (r.Xmax - r.Xmin) * float64(width)
	y = (r.Ymax - c.Im) / (r.Ymax - r.Ymin) * float64(height)
	return x, y
}
