package pipeline

import (
	"github.com/ayusman/helmetscan/internal/region"
	"github.com/ayusman/helmetscan/internal/render"
)

// Reconcile returns cluster detections followed by window detections.
// Overlapping boxes from the two passes are all kept; use Overlaps to inspect
// them.
func Reconcile(cluster, window []Detection) []Detection {
	merged := make([]Detection, 0, len(cluster)+len(window))
	merged = append(merged, cluster...)
	merged = append(merged, window...)
	return merged
}

// Overlap pairs a cluster detection with a window detection covering the
// same area.
type Overlap struct {
	Cluster int     `json:"cluster"`
	Window  int     `json:"window"`
	IoU     float64 `json:"iou"`
}

// Overlaps reports every cluster/window pair in detections with a positive
// IoU. Indices refer to positions in detections.
func Overlaps(detections []Detection) []Overlap {
	var overlaps []Overlap
	for i, a := range detections {
		if a.Pass != PassCluster {
			continue
		}
		for j, b := range detections {
			if b.Pass != PassWindow {
				continue
			}
			if iou := region.IoU(a.Box, b.Box); iou > 0 {
				overlaps = append(overlaps, Overlap{Cluster: i, Window: j, IoU: iou})
			}
		}
	}
	return overlaps
}

// Annotations converts detections into render annotations styled by pass and
// colored by label.
func Annotations(detections []Detection) []render.Annotation {
	annotations := make([]render.Annotation, len(detections))
	for i, d := range detections {
		style := render.StyleCluster
		if d.Pass == PassWindow {
			style = render.StyleWindow
		}
		annotations[i] = render.Annotation{
			Box:     d.Box,
			Text:    render.Label(d.Label, d.Confidence),
			LabelID: d.LabelID,
			Style:   style,
		}
	}
	return annotations
}
