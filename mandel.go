package mandel

import "fmt"

// Limit is the escape-time iteration limit. It is chosen so that the
// inverted iteration count fits in a single byte.
const Limit = 255

// Bounds of an image in pixels
type Bounds struct {
	Width, Height int
}

// Pixels returns the length of an intensity buffer covering b.
func (b Bounds) Pixels() int {
	return b.Width * b.Height
}

func (b Bounds) String() string {
	return fmt.Sprintf("%dx%d", b.Width, b.Height)
}

// Viewport is the rectangle of the complex plane rendered into an image.
// The imaginary axis grows upwards, so UpperLeft has the larger imaginary part.
type Viewport struct {
	UpperLeft, LowerRight complex128
}

func (v Viewport) String() string {
	return fmt.Sprintf("%g,%g %g,%g", real(v.UpperLeft), imag(v.UpperLeft), real(v.LowerRight), imag(v.LowerRight))
}

// Region returns the plane extents of v.
func (v Viewport) Region() Region {
	return Region{
		Xmin: real(v.UpperLeft),
		Xmax: real(v.LowerRight),
		Ymin: imag(v.LowerRight),
		Ymax: imag(v.UpperLeft),
	}
}

// Region is a Viewport given by its plane extents. This is the form sent to renderers.
type Region struct {
	Xmin, Xmax float64
	Ymin, Ymax float64
}

func (r Region) Viewport() Viewport {
	return region(r.Xmin, r.Xmax, r.Ymin, r.Ymax)
}

// region builds a Viewport from the plane extents
func region(xmin, xmax, ymin, ymax float64) Viewport {
	return Viewport{
		UpperLeft:  complex(xmin, ymax),
		LowerRight: complex(xmax, ymin),
	}
}

// Classic regions / landmarks in the Mandelbrot set
var (
	// Whole set
	FullSet = region(-2.5, 1.0, -1.25, 1.25)

	// Seahorse Valley – dense filaments and repeating “seahorse” curls
	SeahorseValley = region(-0.8, -0.7, 0.05, 0.15)

	// Elephant Valley – large bulb with trunk-like tendrils
	ElephantValley = region(-1.85, -1.75, -0.10, -0.02)

	// Spiral Minibrot – small Mandelbrot copy with tight spiral arms
	SpiralMinibrot = region(-0.7435, -0.7420, 0.1310, 0.1325)

	// Triple Spiral – threefold symmetric spiral structure
	TripleSpiral = region(-0.7480, -0.7450, 0.0950, 0.0980)

	// Valley of the Dragon – deep, highly detailed spiral filaments
	ValleyOfTheDragon = region(-0.7400, -0.7350, 0.1800, 0.1850)

	// Minibrot in a Mini-Spiral – self-similar Mandelbrot copy inside a spiral arm
	MinibrotInMiniSpiral = region(-1.7390, -1.7375, -0.0235, -0.0220)
)

// Regions maps command line names to the predefined viewports.
var Regions = map[string]Viewport{
	"full":                    FullSet,
	"seahorse-valley":         SeahorseValley,
	"elephant-valley":         ElephantValley,
	"spiral-minibrot":         SpiralMinibrot,
	"triple-spiral":           TripleSpiral,
	"valley-of-the-dragon":    ValleyOfTheDragon,
	"minibrot-in-mini-spiral": MinibrotInMiniSpiral,
}

// RegionByName looks up one of Regions.
func RegionByName(name string) (Viewport, error) {
	v, ok := Regions[name]
	if !ok {
		return Viewport{}, fmt.Errorf("unknown region %q", name)
	}
	return v, nil
}
