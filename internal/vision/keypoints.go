// Package vision provides image normalization, keypoint extraction and
// descriptor encoding for helmet classification.
package vision

import "math"

// DefaultDedupRadius is the distance in pixels under which a keypoint from the
// secondary detector is considered a duplicate of a primary one.
const DefaultDedupRadius = 5.0

// Keypoint is a salient image location reported by a feature detector.
// Only X and Y are used by region proposal.
type Keypoint struct {
	X        float64 `json:"x"`
	Y        float64 `json:"y"`
	Size     float64 `json:"size"`
	Angle    float64 `json:"angle"`
	Response float64 `json:"response"`
}

// distance returns the Euclidean distance between two keypoints.
func distance(a, b Keypoint) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}

// FuseKeypoints merges two keypoint lists. All keypoints in primary are kept
// in order; a keypoint from secondary is appended only if no primary keypoint
// lies within radius of it.
func FuseKeypoints(primary, secondary []Keypoint, radius float64) []Keypoint {
	fused := make([]Keypoint, 0, len(primary)+len(secondary))
	fused = append(fused, primary...)

	for _, kp := range secondary {
		duplicate := false
		for _, p := range primary {
			if distance(kp, p) <= radius {
				duplicate = true
				break
			}
		}
		if !duplicate {
			fused = append(fused, kp)
		}
	}

	return fused
}

// Point is a 2D coordinate.
type Point struct {
	X float64
	Y float64
}

// Points returns the locations of the given keypoints.
func Points(kps []Keypoint) []Point {
	points := make([]Point, len(kps))
	for i, kp := range kps {
		points[i] = Point{X: kp.X, Y: kp.Y}
	}
	return points
}
