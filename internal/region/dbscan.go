package region

import (
	"math"

	"github.com/ayusman/helmetscan/internal/vision"
)

// Noise is the label given to points that belong to no cluster.
const Noise = -1

// Default clustering parameters.
const (
	DefaultEps        = 50.0
	DefaultMinSamples = 3
)

// DBSCAN labels points by density. A point is a core point if at least
// minSamples points (itself included) lie within eps of it. Clusters are
// grown from core points in index order, so labels are deterministic:
// label 0 belongs to the cluster of the lowest-index core point, and a
// border point reachable from several clusters joins the first one to reach
// it. Points not reachable from any core point are labeled Noise.
func DBSCAN(points []vision.Point, eps float64, minSamples int) []int {
	n := len(points)
	labels := make([]int, n)
	for i := range labels {
		labels[i] = Noise
	}
	if n == 0 {
		return labels
	}

	neighbors := make([][]int, n)
	for i := 0; i < n; i++ {
		for j := 0; j < n; j++ {
			if dist(points[i], points[j]) <= eps {
				neighbors[i] = append(neighbors[i], j)
			}
		}
	}

	core := make([]bool, n)
	for i := range neighbors {
		core[i] = len(neighbors[i]) >= minSamples
	}

	label := 0
	for i := 0; i < n; i++ {
		if labels[i] != Noise || !core[i] {
			continue
		}

		labels[i] = label
		stack := []int{i}
		for len(stack) > 0 {
			p := stack[len(stack)-1]
			stack = stack[:len(stack)-1]
			if !core[p] {
				continue
			}
			for _, q := range neighbors[p] {
				if labels[q] == Noise {
					labels[q] = label
					stack = append(stack, q)
				}
			}
		}
		label++
	}

	return labels
}

func dist(a, b vision.Point) float64 {
	dx := a.X - b.X
	dy := a.Y - b.Y
	return math.Sqrt(dx*dx + dy*dy)
}
