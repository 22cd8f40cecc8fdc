package pipeline

import (
	"context"
	"image"

	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/helmetscan/internal/classifier"
	"github.com/ayusman/helmetscan/internal/region"
	"github.com/ayusman/helmetscan/internal/vision"
)

// Pass identifies which stage confirmed a detection.
type Pass string

const (
	// PassCluster marks detections confirmed from keypoint clusters.
	PassCluster Pass = "cluster"
	// PassWindow marks detections confirmed by the sliding window grid.
	PassWindow Pass = "window"
)

// Detection is a labeled box that passed its confidence gate.
type Detection struct {
	Box        region.Box `json:"box"`
	LabelID    int        `json:"label_id"`
	Label      string     `json:"label"`
	Confidence float64    `json:"confidence"`
	Pass       Pass       `json:"pass"`
}

// sessionOpener is implemented by extractors that can keep their detectors
// alive across many crops.
type sessionOpener interface {
	NewSession() *vision.Session
}

// regionExtractor returns the extractor used for crops in one run and a
// function releasing it.
func (p *Pipeline) regionExtractor() (vision.Extractor, func()) {
	if o, ok := p.extractor.(sessionOpener); ok {
		s := o.NewSession()
		return s, func() { s.Close() }
	}
	return p.extractor, func() {}
}

// classifyRegion crops gray to box and scores the crop. ok is false when the
// crop is empty, has no features or cannot be scored.
func (p *Pipeline) classifyRegion(extractor vision.Extractor, gray gocv.Mat, box region.Box) (pred classifier.Prediction, ok bool) {
	rect := box.Rect(image.Rect(0, 0, gray.Cols(), gray.Rows()))
	if rect.Empty() {
		return pred, false
	}

	crop := gray.Region(rect)
	defer crop.Close()

	features, err := extractor.Extract(crop)
	if err != nil {
		log.WithField("box", rect.String()).Debugf("Skipping region: %v", err)
		return pred, false
	}

	pred, err = classifier.Score(p.classifier, vision.Encode(features.Descriptors, p.config.MaxDescriptors))
	if err != nil {
		log.WithField("box", rect.String()).Debugf("Skipping region: %v", err)
		return pred, false
	}

	return pred, true
}

// clusterPass scores every candidate box and keeps those above the cluster
// threshold.
func (p *Pipeline) clusterPass(ctx context.Context, extractor vision.Extractor, gray gocv.Mat, candidates []region.Box) ([]Detection, error) {
	var detections []Detection
	for _, box := range candidates {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pred, ok := p.classifyRegion(extractor, gray, box)
		if !ok || pred.Confidence <= p.config.ClusterThreshold {
			continue
		}
		detections = append(detections, newDetection(box, pred, PassCluster))
	}
	return detections, nil
}

// windowPass slides a window sized like the average candidate over the whole
// image and keeps windows above the window threshold.
//
// The stride is half the window, so small candidates produce a dense grid:
// a 4x4 average on a 1000x1000 image is about 250k crops. Each crop runs both
// detectors; ctx cancellation is the only bound on the pass.
func (p *Pipeline) windowPass(ctx context.Context, extractor vision.Extractor, gray gocv.Mat, candidates []region.Box) ([]Detection, error) {
	w, h := region.AverageSize(candidates, p.config.DefaultWindow)

	var detections []Detection
	for _, win := range region.Windows(gray.Cols(), gray.Rows(), w, h) {
		if err := ctx.Err(); err != nil {
			return nil, err
		}

		pred, ok := p.classifyRegion(extractor, gray, win)
		if !ok || pred.Confidence <= p.config.WindowThreshold {
			continue
		}
		detections = append(detections, newDetection(win, pred, PassWindow))
	}
	return detections, nil
}

func newDetection(box region.Box, pred classifier.Prediction, pass Pass) Detection {
	return Detection{
		Box:        box,
		LabelID:    pred.LabelID,
		Label:      pred.Label,
		Confidence: pred.Confidence,
		Pass:       pass,
	}
}
