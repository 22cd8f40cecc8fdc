package vision

import (
	"errors"

	"gocv.io/x/gocv"
)

// ErrNoFeatures is returned when one of the detectors finds no descriptors.
var ErrNoFeatures = errors.New("no features")

// Features is the fused output of both detectors for one image.
type Features struct {
	Keypoints   []Keypoint
	Descriptors Descriptors
}

// Extractor finds keypoints and descriptors in a grayscale image.
type Extractor interface {
	Extract(img gocv.Mat) (*Features, error)
}

// FeatureExtractor runs ORB and AKAZE over the same image and fuses their
// results. Detector instances are created per call, so a FeatureExtractor is
// safe for concurrent use. Use NewSession to reuse detectors across many
// crops.
type FeatureExtractor struct {
	// DedupRadius is the distance under which an AKAZE keypoint duplicates an
	// ORB keypoint.
	DedupRadius float64
}

// NewFeatureExtractor creates a FeatureExtractor with the given dedup radius.
// Non-positive radii fall back to DefaultDedupRadius.
func NewFeatureExtractor(dedupRadius float64) *FeatureExtractor {
	if dedupRadius <= 0 {
		dedupRadius = DefaultDedupRadius
	}
	return &FeatureExtractor{DedupRadius: dedupRadius}
}

// Extract detects keypoints with both detectors, merges the keypoint lists and
// concatenates the descriptor matrices. Returns ErrNoFeatures if either
// detector produced no descriptors.
func (e *FeatureExtractor) Extract(img gocv.Mat) (*Features, error) {
	s := e.NewSession()
	defer s.Close()
	return s.Extract(img)
}

// NewSession creates a Session holding one ORB and one AKAZE detector.
func (e *FeatureExtractor) NewSession() *Session {
	return &Session{
		orb:         gocv.NewORB(),
		akaze:       gocv.NewAKAZE(),
		dedupRadius: e.DedupRadius,
	}
}

// Session extracts features with detectors that live until Close. It is not
// safe for concurrent use.
type Session struct {
	orb         gocv.ORB
	akaze       gocv.AKAZE
	dedupRadius float64
}

// Extract behaves like FeatureExtractor.Extract.
func (s *Session) Extract(img gocv.Mat) (*Features, error) {
	if img.Empty() {
		return nil, ErrNoFeatures
	}

	mask := gocv.NewMat()
	defer mask.Close()

	orbKPs, orbDesc := s.orb.DetectAndCompute(img, mask)
	defer orbDesc.Close()

	akazeKPs, akazeDesc := s.akaze.DetectAndCompute(img, mask)
	defer akazeDesc.Close()

	if orbDesc.Empty() || akazeDesc.Empty() {
		return nil, ErrNoFeatures
	}

	return &Features{
		Keypoints:   FuseKeypoints(fromGoCV(orbKPs), fromGoCV(akazeKPs), s.dedupRadius),
		Descriptors: FuseDescriptors(matToDescriptors(orbDesc), matToDescriptors(akazeDesc)),
	}, nil
}

// Close releases both detectors.
func (s *Session) Close() error {
	orbErr := s.orb.Close()
	if err := s.akaze.Close(); err != nil {
		return err
	}
	return orbErr
}

// fromGoCV converts gocv keypoints to Keypoint values.
func fromGoCV(kps []gocv.KeyPoint) []Keypoint {
	out := make([]Keypoint, len(kps))
	for i, kp := range kps {
		out[i] = Keypoint{
			X:        kp.X,
			Y:        kp.Y,
			Size:     kp.Size,
			Angle:    kp.Angle,
			Response: kp.Response,
		}
	}
	return out
}

// matToDescriptors copies an 8-bit descriptor Mat into a Descriptors matrix.
func matToDescriptors(m gocv.Mat) Descriptors {
	rows, cols := m.Rows(), m.Cols()
	d := Descriptors{
		Rows: make([][]float64, rows),
		Cols: cols,
	}
	for r := 0; r < rows; r++ {
		row := make([]float64, cols)
		for c := 0; c < cols; c++ {
			row[c] = float64(m.GetUCharAt(r, c))
		}
		d.Rows[r] = row
	}
	return d
}
