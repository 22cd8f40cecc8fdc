package render

import (
	"bytes"
	"fmt"

	"github.com/disintegration/imaging"
)

// DefaultThumbnailSide is the longest side of stored thumbnails.
const DefaultThumbnailSide = 320

// Thumbnail decodes an encoded image and returns a JPEG that fits within a
// side x side square, preserving aspect ratio. Images already smaller are
// re-encoded at their original size.
func Thumbnail(data []byte, side int) ([]byte, error) {
	if side <= 0 {
		side = DefaultThumbnailSide
	}

	img, err := imaging.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}

	thumb := imaging.Fit(img, side, side, imaging.Lanczos)

	var buf bytes.Buffer
	if err := imaging.Encode(&buf, thumb, imaging.JPEG, imaging.JPEGQuality(85)); err != nil {
		return nil, fmt.Errorf("encode thumbnail: %w", err)
	}
	return buf.Bytes(), nil
}
