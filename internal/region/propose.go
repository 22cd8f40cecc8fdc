package region

import (
	"math"

	"github.com/ayusman/helmetscan/internal/vision"
)

// Proposer turns keypoint locations into candidate boxes.
type Proposer struct {
	Eps        float64
	MinSamples int
}

// NewProposer creates a Proposer. Non-positive parameters fall back to
// DefaultEps and DefaultMinSamples.
func NewProposer(eps float64, minSamples int) *Proposer {
	if eps <= 0 {
		eps = DefaultEps
	}
	if minSamples <= 0 {
		minSamples = DefaultMinSamples
	}
	return &Proposer{Eps: eps, MinSamples: minSamples}
}

// Propose clusters the points and returns the bounding box of every cluster
// in ascending label order. Noise points contribute to no box. Returns an
// empty slice when no cluster forms.
func (p *Proposer) Propose(points []vision.Point) []Box {
	labels := DBSCAN(points, p.Eps, p.MinSamples)

	clusters := 0
	for _, l := range labels {
		if l+1 > clusters {
			clusters = l + 1
		}
	}

	boxes := make([]Box, clusters)
	seen := make([]bool, clusters)
	for i, l := range labels {
		if l == Noise {
			continue
		}
		pt := points[i]
		if !seen[l] {
			boxes[l] = Box{XMin: pt.X, YMin: pt.Y, XMax: pt.X, YMax: pt.Y}
			seen[l] = true
			continue
		}
		b := &boxes[l]
		b.XMin = math.Min(b.XMin, pt.X)
		b.YMin = math.Min(b.YMin, pt.Y)
		b.XMax = math.Max(b.XMax, pt.X)
		b.YMax = math.Max(b.YMax, pt.Y)
	}

	return boxes
}
