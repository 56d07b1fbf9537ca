package mandel

import (
	"math"
	"testing"
)

func TestPixelToComplexCenter(t *testing.T) {
	v := Viewport{Center: Complex{0, 0}, Scope: 2.0}
	got := PixelToComplex(300, 300, 600, 600, v.Bounds())
	if got != (Complex{0, 0}) {
		t.Errorf("center pixel maps to %v, want 0", got)
	}
}

func TestPixelToComplexCorners(t *testing.T) {
	r := Viewport{Center: Complex{-0.5, 0}, Scope: 1}.Bounds()

	if got := PixelToComplex(0, 0, 600, 600, r); got != (Complex{-1.5, 1}) {
		t.Errorf("top left = %v, want (-1.5, 1)", got)
	}
	// imaginary axis grows upwards while rows grow downwards
	top := PixelToComplex(10, 0, 600, 600, r)
	bottom := PixelToComplex(10, 599, 600, 600, r)
	if !(top.Im > bottom.Im) {
		t.Errorf("row 0 im %g should be above row 599 im %g", top.Im, bottom.Im)
	}
}

func TestPixelRoundTrip(t *testing.T) {
	views := []Viewport{
		{Center: Complex{-0.5, 0}, Scope: 1},
		{Center: Complex{0.25, -0.1}, Scope: 1e-6},
		ViewportFromRegion(SeahorseValley),
		ViewportFromRegion(MinibrotInMiniSpiral),
	}
	const w, h = 600, 400
	for _, v := range views {
		r := v.Bounds()
		for y := 0; y < h; y += 7 {
			for x := 0; x < w; x += 11 {
				c := PixelToComplex(x, y, w, h, r)
				gx, gy := ComplexToPixel(c, w, h, r)
				if math.Abs(gx-float64(x)) > 1e-6 || math.Abs(gy-float64(y)) > 1e-6 {
					t.Fatalf("view %v: pixel (%d, %d) -> %v -> (%g, %g)", v, x, y, c, gx, gy)
				}
			}
		}
	}
}

func TestViewportFromRegion(t *testing.T) {
	v := ViewportFromRegion(Region{Xmin: -1, Xmax: 1, Ymin: 0, Ymax: 0.5})
	if v.Center != (Complex{0, 0.25}) || v.Scope != 1 {
		t.Errorf("got %+v", v)
	}

	b := ViewportFromRegion(FullSet).Bounds()
	if b != FullSet {
		t.Errorf("full set bounds = %v, want %v", b, FullSet)
	}
}

func TestLandmarkNames(t *testing.T) {
	names := LandmarkNames()
	if len(names) != len(Landmarks) {
		t.Fatalf("got %d names for %d landmarks", len(names), len(Landmarks))
	}
	for i := 1; i < len(names); i++ {
		if names[i-1] >= names[i] {
			t.Errorf("names not sorted: %v", names)
		}
	}
}
