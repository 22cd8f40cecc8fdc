package vision

import (
	"image"

	"gocv.io/x/gocv"
)

// DefaultBlurKernel is the side length of the Gaussian blur kernel applied
// before equalization.
const DefaultBlurKernel = 11

// Preprocess converts a decoded BGR image into a blurred, histogram-equalized
// grayscale image of the same size. The caller owns the returned Mat.
//
// Steps:
// 1. BGR -> RGB
// 2. RGB -> grayscale
// 3. Gaussian blur (kernel x kernel, sigma derived from kernel size)
// 4. Histogram equalization
func Preprocess(src gocv.Mat, kernel int) gocv.Mat {
	if kernel <= 0 || kernel%2 == 0 {
		kernel = DefaultBlurKernel
	}

	gray := gocv.NewMat()
	defer gray.Close()

	if src.Channels() > 1 {
		rgb := gocv.NewMat()
		defer rgb.Close()
		gocv.CvtColor(src, &rgb, gocv.ColorBGRToRGB)
		gocv.CvtColor(rgb, &gray, gocv.ColorRGBToGray)
	} else {
		src.CopyTo(&gray)
	}

	blurred := gocv.NewMat()
	defer blurred.Close()
	gocv.GaussianBlur(gray, &blurred, image.Point{X: kernel, Y: kernel}, 0, 0, gocv.BorderDefault)

	equalized := gocv.NewMat()
	gocv.EqualizeHist(blurred, &equalized)

	return equalized
}
