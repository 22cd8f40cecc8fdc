package region

// DefaultWindowSize is the sliding window side used when there are no
// candidate boxes to average.
const DefaultWindowSize = 50

// AverageSize returns the mean width and height of boxes, truncated to whole
// pixels. With no boxes, or when the mean rounds down to zero in either axis,
// both sides fall back to fallback.
func AverageSize(boxes []Box, fallback int) (width, height int) {
	if fallback <= 0 {
		fallback = DefaultWindowSize
	}
	if len(boxes) == 0 {
		return fallback, fallback
	}

	var sumW, sumH float64
	for _, b := range boxes {
		sumW += b.Width()
		sumH += b.Height()
	}
	width = int(sumW / float64(len(boxes)))
	height = int(sumH / float64(len(boxes)))

	if width <= 0 || height <= 0 {
		return fallback, fallback
	}
	return width, height
}

// Windows tiles an imageW x imageH image with winW x winH windows, stepping
// half a window in each axis. Windows are ordered left to right, top to
// bottom, and only windows that fit entirely inside the image are returned.
func Windows(imageW, imageH, winW, winH int) []Box {
	if winW <= 0 || winH <= 0 {
		return nil
	}

	stepX := max(winW/2, 1)
	stepY := max(winH/2, 1)

	var windows []Box
	for y := 0; y+winH <= imageH; y += stepY {
		for x := 0; x+winW <= imageW; x += stepX {
			windows = append(windows, Box{
				XMin: float64(x),
				YMin: float64(y),
				XMax: float64(x + winW),
				YMax: float64(y + winH),
			})
		}
	}

	return windows
}
