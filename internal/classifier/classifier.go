// Package classifier provides the helmet/head classifier consumed by the
// detection pipeline.
package classifier

import (
	"fmt"
	"sort"

	"github.com/pkg/errors"
)

// Label IDs used by the bundled models.
const (
	LabelHead   = 0
	LabelHelmet = 1
)

// ErrFeatureMismatch is returned when a vector does not have the length the
// model was trained on.
var ErrFeatureMismatch = errors.New("feature count mismatch")

// Classifier scores encoded descriptor vectors.
//
// Implementations are loaded once and shared by every request, so Predict
// and PredictProba must not mutate the model. Wrap an implementation that is
// not safe for concurrent use with Serialized.
type Classifier interface {
	// Predict returns the most likely label ID for vec.
	Predict(vec []float64) (int, error)

	// PredictProba returns the probability of every label ID for vec.
	PredictProba(vec []float64) (map[int]float64, error)

	// Labels maps label IDs to display names.
	Labels() map[int]string
}

// DefaultLabels returns the label names used when an artifact does not
// define its own.
func DefaultLabels() map[int]string {
	return map[int]string{
		LabelHead:   "head",
		LabelHelmet: "helmet",
	}
}

// Prediction is a scored label.
type Prediction struct {
	LabelID    int
	Label      string
	Confidence float64
}

// Score runs Predict and PredictProba and returns the predicted label with
// its probability.
func Score(c Classifier, vec []float64) (Prediction, error) {
	id, err := c.Predict(vec)
	if err != nil {
		return Prediction{}, errors.Wrap(err, "predict")
	}

	proba, err := c.PredictProba(vec)
	if err != nil {
		return Prediction{}, errors.Wrap(err, "predict proba")
	}

	return Prediction{
		LabelID:    id,
		Label:      LabelName(c, id),
		Confidence: proba[id],
	}, nil
}

// LabelName returns the display name for id, or "label_<id>" if the
// classifier does not name it.
func LabelName(c Classifier, id int) string {
	if name, ok := c.Labels()[id]; ok {
		return name
	}
	return fmt.Sprintf("label_%d", id)
}

// sortedIDs returns the keys of labels in ascending order.
func sortedIDs(labels map[int]string) []int {
	ids := make([]int, 0, len(labels))
	for id := range labels {
		ids = append(ids, id)
	}
	sort.Ints(ids)
	return ids
}

func checkLength(vec []float64, want int) error {
	if len(vec) != want {
		return errors.Wrapf(ErrFeatureMismatch, "got %d features, model expects %d", len(vec), want)
	}
	return nil
}
