package mandel

// EscapeFunc iterates z <- z*z + c starting at z = c and returns the
// 0-based iteration at which z was first seen outside the radius 2 disc,
// or n when it never left within n iterations.
type EscapeFunc func(c Complex, n int) int

// Evaluators names the available EscapeFunc implementations.
var Evaluators = map[string]EscapeFunc{
	"squared": EscapeCount,
	"modulus": EscapeCountModulus,
}

// EscapeCount tracks the real and imaginary parts separately and compares
// the squared modulus against 4, so no square root is taken.
func EscapeCount(c Complex, n int) int {
	re, im := c.Re, c.Im
	for i := range n {
		re2, im2 := float64(re*re), float64(im*im)
		if re2+im2 > 4.0 {
			return i
		}
		im = float64(2*re*im) + c.Im
		re = re2 - im2 + c.Re
	}
	return n
}

// EscapeCountModulus is the Complex based formulation of EscapeCount.
// The counts agree except where re*re+im*im lands within an ulp above 4:
// the square root can round that back to exactly 2, and the point then
// escapes one iteration later than EscapeCount reports, e.g. c = 2+2^-25i.
func EscapeCountModulus(c Complex, n int) int {
	i, _ := iterate(c, n)
	return i
}

// Diverges reports whether c escapes, including a final modulus check
// after the last iteration.
func Diverges(c Complex, n int) bool {
	i, z := iterate(c, n)
	if i < n {
		return true
	}
	return Modulus(z) > 2.0
}

func iterate(c Complex, n int) (int, Complex) {
	z := c
	for i := range n {
		if Modulus(z) > 2.0 {
			return i, z
		}
		z = Add(Mul(z, z), c)
	}
	return n, z
}
