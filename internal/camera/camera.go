// Package camera maps scene coordinates onto a fixed-size viewport.
package camera

import (
	"math"

	"github.com/me/imagebuilder/internal/scene"
)

// DefaultPadding is the margin, in pixels, kept around a fitted scene.
const DefaultPadding = 8.0

// MaxScale caps zoom so small scenes are not blown up.
const MaxScale = 1.0

// Camera looks at the scene point (X, Y), which lands in the middle of a
// Width x Height viewport, magnified by Scale.
type Camera struct {
	Width, Height float64
	X, Y          float64
	Scale         float64
	Padding       float64
}

// New returns a camera for a viewport centered on the origin at scale 1.
func New(width, height int) *Camera {
	return &Camera{
		Width:   float64(width),
		Height:  float64(height),
		Scale:   1,
		Padding: DefaultPadding,
	}
}

// Project converts a scene point to viewport pixels.
func (c *Camera) Project(x, y float64) (float64, float64) {
	return (x-c.X)*c.Scale + c.Width/2, (y-c.Y)*c.Scale + c.Height/2
}

// ProjectRect converts a scene rectangle to viewport pixels.
func (c *Camera) ProjectRect(r scene.Rect) scene.Rect {
	x, y := c.Project(r.X, r.Y)
	return scene.Rect{X: x, Y: y, W: r.W * c.Scale, H: r.H * c.Scale}
}

// ShowInCamera centers bounds in the viewport, shrinking it to fit inside
// the padding when it is too large.
func ShowInCamera(bounds scene.Rect, c *Camera) {
	c.X, c.Y = bounds.Center()

	availW := math.Max(1, c.Width-2*c.Padding)
	availH := math.Max(1, c.Height-2*c.Padding)
	scale := MaxScale
	if bounds.W > 0 {
		scale = math.Min(scale, availW/bounds.W)
	}
	if bounds.H > 0 {
		scale = math.Min(scale, availH/bounds.H)
	}
	c.Scale = scale
}
