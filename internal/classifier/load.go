package classifier

import (
	"encoding/json"
	"io"
	"os"
	"strconv"

	"github.com/pkg/errors"
)

// Model types understood by Load.
const (
	TypeForest = "forest"
	TypeLinear = "linear"
)

// artifact is the on-disk JSON representation of a trained model.
type artifact struct {
	Type        string            `json:"type"`
	Labels      map[string]string `json:"labels"`
	NumFeatures int               `json:"n_features"`
	Classes     []int             `json:"classes"`

	// forest
	Trees []Tree `json:"trees,omitempty"`

	// linear
	Weights [][]float64 `json:"weights,omitempty"`
	Bias    []float64   `json:"bias,omitempty"`
}

// Load reads a model artifact from path.
func Load(path string) (Classifier, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "open classifier")
	}
	defer f.Close()

	c, err := Parse(f)
	if err != nil {
		return nil, errors.Wrapf(err, "load classifier %s", path)
	}
	return c, nil
}

// Parse decodes a model artifact.
func Parse(r io.Reader) (Classifier, error) {
	var a artifact
	if err := json.NewDecoder(r).Decode(&a); err != nil {
		return nil, errors.Wrap(err, "decode artifact")
	}

	labels, err := parseLabels(a.Labels)
	if err != nil {
		return nil, err
	}

	classes := a.Classes
	if len(classes) == 0 {
		classes = sortedIDs(labels)
	}

	switch a.Type {
	case TypeForest:
		return NewForest(a.NumFeatures, classes, a.Trees, labels)
	case TypeLinear:
		return NewLinear(a.NumFeatures, classes, a.Weights, a.Bias, labels)
	default:
		return nil, errors.Errorf("unknown model type %q", a.Type)
	}
}

// parseLabels converts JSON object keys to label IDs. An empty map yields
// DefaultLabels.
func parseLabels(raw map[string]string) (map[int]string, error) {
	if len(raw) == 0 {
		return DefaultLabels(), nil
	}

	labels := make(map[int]string, len(raw))
	for k, v := range raw {
		id, err := strconv.Atoi(k)
		if err != nil {
			return nil, errors.Wrapf(err, "label id %q", k)
		}
		labels[id] = v
	}
	return labels, nil
}
