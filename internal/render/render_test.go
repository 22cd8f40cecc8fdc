package render

import (
	"bytes"
	"image"
	"image/color"
	"image/jpeg"
	"testing"

	colorful "github.com/lucasb-eyer/go-colorful"
	"github.com/stretchr/testify/require"
	"gocv.io/x/gocv"

	"github.com/ayusman/helmetscan/internal/region"
)

func TestLabel(t *testing.T) {
	require.Equal(t, "helmet 0.87", Label("helmet", 0.8749))
	require.Equal(t, "head 1.00", Label("head", 1))
}

func TestStyleColors(t *testing.T) {
	const head, helmet = 0, 1

	colors := []color.RGBA{
		StyleCluster.Color(head),
		StyleCluster.Color(helmet),
		StyleWindow.Color(head),
		StyleWindow.Color(helmet),
	}

	for i := range colors {
		require.Equal(t, uint8(255), colors[i].A)
		for j := i + 1; j < len(colors); j++ {
			a, _ := colorful.MakeColor(colors[i])
			b, _ := colorful.MakeColor(colors[j])
			require.Greater(t, a.DistanceLab(b), 0.1, "colors %d and %d are too close: %v %v", i, j, colors[i], colors[j])
		}
	}

	// Unknown styles draw like clusters; unknown labels still get a color.
	require.Equal(t, StyleCluster.Color(helmet), Style(42).Color(helmet))
	require.NotEqual(t, StyleCluster.Color(7), StyleCluster.Color(8))
}

func TestAnnotate(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	gray := gocv.NewMatWithSize(120, 160, gocv.MatTypeCV8UC1)
	defer gray.Close()

	out, err := Annotate(gray, []Annotation{
		{Box: region.Box{XMin: 10, YMin: 5, XMax: 60, YMax: 50}, Text: Label("helmet", 0.9), LabelID: 1, Style: StyleCluster},
		{Box: region.Box{XMin: 80, YMin: 40, XMax: 150, YMax: 110}, Text: Label("head", 0.75), Style: StyleWindow},
		{Box: region.Box{XMin: -20, YMin: -20, XMax: 500, YMax: 500}, Text: "clipped", Style: StyleWindow},
	})
	require.NoError(t, err)

	img, err := jpeg.Decode(bytes.NewReader(out))
	require.NoError(t, err)
	require.Equal(t, 160, img.Bounds().Dx())
	require.Equal(t, 120, img.Bounds().Dy())

	// The input stays untouched.
	require.Equal(t, 0, gocv.CountNonZero(gray))
}

func TestAnnotate_NoAnnotations(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping test that requires GoCV Mat creation")
	}

	gray := gocv.NewMatWithSize(32, 32, gocv.MatTypeCV8UC1)
	defer gray.Close()

	out, err := Annotate(gray, nil)
	require.NoError(t, err)
	require.NotEmpty(t, out)
}

func encodeTestJPEG(t *testing.T, w, h int) []byte {
	t.Helper()

	img := image.NewRGBA(image.Rect(0, 0, w, h))
	for y := 0; y < h; y++ {
		for x := 0; x < w; x++ {
			img.Set(x, y, color.RGBA{R: uint8(x), G: uint8(y), B: 128, A: 255})
		}
	}

	var buf bytes.Buffer
	require.NoError(t, jpeg.Encode(&buf, img, nil))
	return buf.Bytes()
}

func TestThumbnail(t *testing.T) {
	tests := []struct {
		name         string
		w, h, side   int
		wantW, wantH int
	}{
		{name: "landscape", w: 640, h: 320, side: 320, wantW: 320, wantH: 160},
		{name: "portrait", w: 200, h: 400, side: 100, wantW: 50, wantH: 100},
		{name: "already small", w: 80, h: 60, side: 320, wantW: 80, wantH: 60},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			out, err := Thumbnail(encodeTestJPEG(t, tt.w, tt.h), tt.side)
			require.NoError(t, err)

			img, err := jpeg.Decode(bytes.NewReader(out))
			require.NoError(t, err)
			require.Equal(t, tt.wantW, img.Bounds().Dx())
			require.Equal(t, tt.wantH, img.Bounds().Dy())
		})
	}
}

func TestThumbnail_InvalidData(t *testing.T) {
	_, err := Thumbnail([]byte("not an image"), 100)
	require.Error(t, err)
}
