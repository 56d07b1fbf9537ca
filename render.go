package mandel

// Render recomputes every pixel of buf for viewport v with the given
// iteration cap. Nothing from a previous frame is reused.
func Render(buf *PixelBuffer, v Viewport, maxIter int, escape EscapeFunc) {
	if escape == nil {
		escape = EscapeCount
	}
	bounds := v.Bounds()
	for y := range buf.Height {
		for x := range buf.Width {
			c := PixelToComplex(x, y, buf.Width, buf.Height, bounds)
			i := escape(c, maxIter)
			buf.Pix[x+y*buf.Width] = MapToColor(i, maxIter).Packed()
		}
	}
}
