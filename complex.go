package mandel

import "math"

// Complex is a point of the complex plane.
type Complex struct {
	Re, Im float64
}

func Add(a, b Complex) Complex {
	return Complex{
		Re: a.Re + b.Re,
		Im: a.Im + b.Im,
	}
}

func Mul(a, b Complex) Complex {
	// explicit conversions keep the products from being fused, so Mul
	// rounds exactly like the unrolled loop in EscapeCount
	return Complex{
		Re: float64(a.Re*b.Re) - float64(a.Im*b.Im),
		Im: float64(a.Re*b.Im) + float64(a.Im*b.Re),
	}
}

// Modulus is the euclidean magnitude of z.
func Modulus(z Complex) float64 {
	return math.Sqrt(SquaredModulus(z))
}

// SquaredModulus avoids the square root of Modulus.
func SquaredModulus(z Complex) float64 {
	return float64(z.Re*z.Re) + float64(z.Im*z.Im)
}
