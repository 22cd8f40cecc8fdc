// Package pipeline runs helmet detection over a single uploaded image.
package pipeline

import (
	"context"
	"errors"
	"time"

	pkgerrors "github.com/pkg/errors"
	log "github.com/sirupsen/logrus"
	"gocv.io/x/gocv"

	"github.com/ayusman/helmetscan/internal/classifier"
	"github.com/ayusman/helmetscan/internal/region"
	"github.com/ayusman/helmetscan/internal/render"
	"github.com/ayusman/helmetscan/internal/vision"
)

var (
	// ErrDecode is returned when the input bytes are not a decodable image.
	ErrDecode = errors.New("failed to decode image")

	// ErrNoFeatures is returned when the whole image yields no descriptors.
	ErrNoFeatures = errors.New("could not extract features from image")
)

// Default confidence gates.
const (
	DefaultClusterThreshold = 0.6
	DefaultWindowThreshold  = 0.7
)

// Config holds the tunable parameters of the pipeline.
type Config struct {
	// MaxDescriptors is the number of descriptor rows encoded per region.
	MaxDescriptors int

	// ClusterEps is the DBSCAN neighborhood radius in pixels.
	ClusterEps float64

	// ClusterMinSamples is the DBSCAN core point density, the point included.
	ClusterMinSamples int

	// ClusterThreshold is the confidence a cluster region must exceed.
	ClusterThreshold float64

	// WindowThreshold is the confidence a sliding window must exceed.
	WindowThreshold float64

	// DedupRadius is the keypoint fusion distance in pixels.
	DedupRadius float64

	// BlurKernel is the Gaussian kernel side used by preprocessing (odd).
	BlurKernel int

	// DefaultWindow is the sliding window side used without candidates.
	DefaultWindow int
}

// DefaultConfig returns a Config with the reference parameters.
func DefaultConfig() Config {
	return Config{
		MaxDescriptors:    vision.DefaultMaxDescriptors,
		ClusterEps:        region.DefaultEps,
		ClusterMinSamples: region.DefaultMinSamples,
		ClusterThreshold:  DefaultClusterThreshold,
		WindowThreshold:   DefaultWindowThreshold,
		DedupRadius:       vision.DefaultDedupRadius,
		BlurKernel:        vision.DefaultBlurKernel,
		DefaultWindow:     region.DefaultWindowSize,
	}
}

// withDefaults fills zero size fields from DefaultConfig. Thresholds are kept
// as given since zero is a valid gate.
func (c Config) withDefaults() Config {
	d := DefaultConfig()
	if c.MaxDescriptors <= 0 {
		c.MaxDescriptors = d.MaxDescriptors
	}
	if c.ClusterEps <= 0 {
		c.ClusterEps = d.ClusterEps
	}
	if c.ClusterMinSamples <= 0 {
		c.ClusterMinSamples = d.ClusterMinSamples
	}
	if c.DedupRadius <= 0 {
		c.DedupRadius = d.DedupRadius
	}
	if c.BlurKernel <= 0 {
		c.BlurKernel = d.BlurKernel
	}
	if c.DefaultWindow <= 0 {
		c.DefaultWindow = d.DefaultWindow
	}
	return c
}

// Result is the outcome of one detection run.
type Result struct {
	PrimaryLabelID    int          `json:"primary_label_id"`
	PrimaryLabel      string       `json:"primary_label"`
	PrimaryConfidence float64      `json:"primary_confidence"`
	AnnotatedImage    []byte       `json:"-"`
	CandidateBoxes    []region.Box `json:"candidate_boxes"`
	Detections        []Detection  `json:"detections"`
	Width             int          `json:"width"`
	Height            int          `json:"height"`
}

// Pipeline classifies helmet and head regions in images. A Pipeline holds no
// per-request state and is safe for concurrent use if its classifier is.
type Pipeline struct {
	config     Config
	classifier classifier.Classifier
	extractor  vision.Extractor
	proposer   *region.Proposer
}

// New creates a Pipeline using the ORB+AKAZE feature extractor.
func New(config Config, c classifier.Classifier) *Pipeline {
	config = config.withDefaults()
	return &Pipeline{
		config:     config,
		classifier: c,
		extractor:  vision.NewFeatureExtractor(config.DedupRadius),
		proposer:   region.NewProposer(config.ClusterEps, config.ClusterMinSamples),
	}
}

// SetExtractor replaces the feature extractor.
func (p *Pipeline) SetExtractor(e vision.Extractor) {
	p.extractor = e
}

// Config returns the effective configuration.
func (p *Pipeline) Config() Config {
	return p.config
}

// Run decodes raw, classifies the whole image, proposes candidate regions,
// confirms them in two passes and renders the result.
//
// Pipeline logic:
// 1. Decode and preprocess (grayscale, blur, equalize)
// 2. Extract fused features from the whole image; none is ErrNoFeatures
// 3. Classify the whole image for the primary label
// 4. Cluster keypoints into candidate boxes
// 5. Cluster pass: classify each candidate crop
// 6. Window pass: classify a sliding window grid sized from the candidates
// 7. Merge both passes and draw them
func (p *Pipeline) Run(ctx context.Context, raw []byte) (*Result, error) {
	start := time.Now()

	mat, err := decode(raw)
	if err != nil {
		return nil, err
	}
	defer mat.Close()

	gray := vision.Preprocess(mat, p.config.BlurKernel)
	defer gray.Close()

	features, err := p.extractor.Extract(gray)
	if err != nil {
		if errors.Is(err, vision.ErrNoFeatures) {
			return nil, ErrNoFeatures
		}
		return nil, pkgerrors.Wrap(err, "extract features")
	}

	primary, err := classifier.Score(p.classifier, vision.Encode(features.Descriptors, p.config.MaxDescriptors))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "classify image")
	}

	candidates := p.proposer.Propose(vision.Points(features.Keypoints))

	regions, release := p.regionExtractor()
	defer release()

	clusterDetections, err := p.clusterPass(ctx, regions, gray, candidates)
	if err != nil {
		return nil, err
	}

	windowDetections, err := p.windowPass(ctx, regions, gray, candidates)
	if err != nil {
		return nil, err
	}

	detections := Reconcile(clusterDetections, windowDetections)

	annotated, err := render.Annotate(gray, Annotations(detections))
	if err != nil {
		return nil, pkgerrors.Wrap(err, "render detections")
	}

	log.WithFields(log.Fields{
		"label":      primary.Label,
		"confidence": primary.Confidence,
		"keypoints":  len(features.Keypoints),
		"candidates": len(candidates),
		"cluster":    len(clusterDetections),
		"window":     len(windowDetections),
		"duration":   time.Since(start).String(),
	}).Info("Detection complete")

	return &Result{
		PrimaryLabelID:    primary.LabelID,
		PrimaryLabel:      primary.Label,
		PrimaryConfidence: primary.Confidence,
		AnnotatedImage:    annotated,
		CandidateBoxes:    candidates,
		Detections:        detections,
		Width:             gray.Cols(),
		Height:            gray.Rows(),
	}, nil
}

// decode turns image bytes into a BGR Mat.
func decode(raw []byte) (gocv.Mat, error) {
	if len(raw) == 0 {
		return gocv.NewMat(), ErrDecode
	}

	mat, err := gocv.IMDecode(raw, gocv.IMReadColor)
	if err == nil && !mat.Empty() {
		return mat, nil
	}
	mat.Close()
	return gocv.NewMat(), ErrDecode
}
