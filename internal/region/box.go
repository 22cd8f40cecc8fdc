// Package region proposes and measures candidate regions in an image.
package region

import (
	"image"
	"math"
)

// Box is an axis-aligned bounding box in pixel coordinates.
// XMax >= XMin and YMax >= YMin.
type Box struct {
	XMin float64 `json:"x_min"`
	YMin float64 `json:"y_min"`
	XMax float64 `json:"x_max"`
	YMax float64 `json:"y_max"`
}

// Width returns the horizontal extent of the box.
func (b Box) Width() float64 {
	return b.XMax - b.XMin
}

// Height returns the vertical extent of the box.
func (b Box) Height() float64 {
	return b.YMax - b.YMin
}

// Area returns the box area.
func (b Box) Area() float64 {
	return b.Width() * b.Height()
}

// Array returns the box as [x_min, y_min, x_max, y_max].
func (b Box) Array() [4]float64 {
	return [4]float64{b.XMin, b.YMin, b.XMax, b.YMax}
}

// Rect converts the box to integer pixel bounds by truncating each
// coordinate, clipped to bounds. The result may be empty.
func (b Box) Rect(bounds image.Rectangle) image.Rectangle {
	r := image.Rect(int(b.XMin), int(b.YMin), int(b.XMax), int(b.YMax))
	return r.Intersect(bounds)
}

// IoU returns the intersection over union of two boxes, or 0 when the union
// has no area.
func IoU(a, b Box) float64 {
	interW := math.Max(0, math.Min(a.XMax, b.XMax)-math.Max(a.XMin, b.XMin))
	interH := math.Max(0, math.Min(a.YMax, b.YMax)-math.Max(a.YMin, b.YMin))
	inter := interW * interH

	union := a.Area() + b.Area() - inter
	if union <= 0 {
		return 0
	}
	return inter / union
}
