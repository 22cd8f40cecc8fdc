// Package render draws detections onto images and encodes them for callers.
package render

import (
	"fmt"
	"image"
	"image/color"
	"math"

	colorful "github.com/lucasb-eyer/go-colorful"
	"gocv.io/x/gocv"

	"github.com/ayusman/helmetscan/internal/region"
)

// Style selects how an annotation is drawn.
type Style int

const (
	// StyleCluster is used for detections confirmed from keypoint clusters.
	StyleCluster Style = iota
	// StyleWindow is used for detections confirmed by the sliding window pass.
	StyleWindow
)

// Drawing constants.
const (
	lineThickness = 2
	fontScale     = 0.6
	labelOffset   = 10
)

// labelHues maps the known label IDs to a hue in degrees. Other labels are
// spread around the wheel by the golden angle.
var labelHues = map[int]float64{
	0: 25,  // head
	1: 210, // helmet
}

const goldenAngle = 137.508

// Saturation and value per style. Window detections are drawn paler.
var styleShades = map[Style][2]float64{
	StyleCluster: {0.95, 1.0},
	StyleWindow:  {0.45, 0.85},
}

// Annotation is a labeled box to draw.
type Annotation struct {
	Box     region.Box
	Text    string
	LabelID int
	Style   Style
}

// Label formats a detection label as "<name> <confidence>".
func Label(name string, confidence float64) string {
	return fmt.Sprintf("%s %.2f", name, confidence)
}

// Color returns the drawing color for a label drawn in this style. The hue
// follows the label and the shade follows the style.
func (s Style) Color(labelID int) color.RGBA {
	shade, ok := styleShades[s]
	if !ok {
		shade = styleShades[StyleCluster]
	}

	c := colorful.Hsv(labelHue(labelID), shade[0], shade[1]).Clamped()
	r, g, b := c.RGB255()
	return color.RGBA{R: r, G: g, B: b, A: 255}
}

func labelHue(labelID int) float64 {
	if h, ok := labelHues[labelID]; ok {
		return h
	}
	return math.Mod(math.Abs(float64(labelID))*goldenAngle, 360)
}

// Annotate draws every annotation on a 3-channel copy of gray and returns the
// image encoded as JPEG. gray is not modified.
func Annotate(gray gocv.Mat, annotations []Annotation) ([]byte, error) {
	canvas := gocv.NewMat()
	defer canvas.Close()

	if gray.Channels() == 1 {
		gocv.CvtColor(gray, &canvas, gocv.ColorGrayToBGR)
	} else {
		gray.CopyTo(&canvas)
	}

	bounds := image.Rect(0, 0, canvas.Cols(), canvas.Rows())
	for _, a := range annotations {
		rect := a.Box.Rect(bounds)
		c := a.Style.Color(a.LabelID)

		if err := gocv.Rectangle(&canvas, rect, c, lineThickness); err != nil {
			return nil, fmt.Errorf("draw rectangle: %w", err)
		}

		// Keep the text inside the image when the box touches the top edge.
		y := rect.Min.Y - labelOffset
		if y < labelOffset {
			y = rect.Min.Y + 2*labelOffset
		}
		pt := image.Pt(rect.Min.X, y)
		if err := gocv.PutText(&canvas, a.Text, pt, gocv.FontHersheySimplex, fontScale, c, lineThickness); err != nil {
			return nil, fmt.Errorf("draw text: %w", err)
		}
	}

	buf, err := gocv.IMEncode(gocv.JPEGFileExt, canvas)
	if err != nil {
		return nil, fmt.Errorf("encode image: %w", err)
	}
	defer buf.Close()

	out := make([]byte, buf.Len())
	copy(out, buf.GetBytes())
	return out, nil
}
