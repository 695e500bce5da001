package mandel

import "image"

// PixelToPoint returns the point of the complex plane corresponding to pixel
// (X is the column, Y the row) of an image of size bounds that covers the
// rectangle between upperLeft and lowerRight.
//
// Pixel (0,0) maps exactly to upperLeft. The plane extent is divided by the
// image size, so the last pixel lands one step short of lowerRight.
// Degenerate viewports yield NaN or Inf.
func PixelToPoint(bounds Bounds, pixel image.Point, upperLeft, lowerRight complex128) complex128 {
	width := real(lowerRight) - real(upperLeft)
	height := imag(upperLeft) - imag(lowerRight)

	return complex(
		real(upperLeft)+float64(pixel.X)*width/float64(bounds.Width),
		imag(upperLeft)-float64(pixel.Y)*height/float64(bounds.Height),
	)
}

// EscapeTime iterates z = z*z + c from z = 0 at most limit times.
//
// If z leaves the circle of radius 2 around the origin, it returns the number
// of iterations completed before that and escaped == true. If the limit is
// reached first, c is presumed to be a member of the set and escaped is false.
func EscapeTime(c complex128, limit int) (count int, escaped bool) {
	var z complex128
	for i := 0; i < limit; i++ {
		if real(z)*real(z)+imag(z)*imag(z) > 4 {
			return i, true
		}
		z = z*z + c
	}
	return 0, false
}

// Intensity is the grayscale value of c: 0 (black) for presumed members,
// otherwise Limit minus the escape time, so faster escapes are brighter.
func Intensity(c complex128) uint8 {
	count, escaped := EscapeTime(c, Limit)
	if !escaped {
		return 0
	}
	return uint8(Limit - count)
}
