// Package testdata builds synthetic images for tests that need real keypoints.
package testdata

import (
	"fmt"
	"image"

	"gocv.io/x/gocv"
)

// PatchSize is the side length of a textured patch drawn by Patches.
const PatchSize = 64

// squareSize is the side length of one checkerboard square inside a patch.
const squareSize = 8

// Patches returns a BGR image of the given size with a flat gray background
// and a checkerboard patch centered on each point. Checkerboard corners give
// both detectors dense, well-localized keypoints while the flat background
// yields none. The caller owns the returned Mat.
func Patches(width, height int, centers []image.Point) gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(128, 128, 128, 0))

	for _, c := range centers {
		x0 := c.X - PatchSize/2
		y0 := c.Y - PatchSize/2
		for y := 0; y < PatchSize; y++ {
			for x := 0; x < PatchSize; x++ {
				px, py := x0+x, y0+y
				if px < 0 || py < 0 || px >= width || py >= height {
					continue
				}
				var v uint8
				if ((x/squareSize)+(y/squareSize))%2 == 0 {
					v = 255
				}
				for ch := 0; ch < 3; ch++ {
					mat.SetUCharAt(py, px*3+ch, v)
				}
			}
		}
	}

	return mat
}

// Blank returns a BGR image filled with a single gray level.
func Blank(width, height int) gocv.Mat {
	mat := gocv.NewMatWithSize(height, width, gocv.MatTypeCV8UC3)
	mat.SetTo(gocv.NewScalar(128, 128, 128, 0))
	return mat
}

// EncodeJPEG encodes a Mat as JPEG bytes.
func EncodeJPEG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.JPEGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("encode fixture: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}

// EncodePNG encodes a Mat as PNG bytes. PNG keeps the checkerboard edges
// exact, which keeps keypoint counts stable across runs.
func EncodePNG(mat gocv.Mat) ([]byte, error) {
	buf, err := gocv.IMEncode(gocv.PNGFileExt, mat)
	if err != nil {
		return nil, fmt.Errorf("encode fixture: %w", err)
	}
	defer buf.Close()

	data := make([]byte, buf.Len())
	copy(data, buf.GetBytes())
	return data, nil
}
