package classifier

import (
	"math"

	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// Linear is a multinomial logistic regression model. With a single weight row
// and two classes it behaves as a binary logistic regression where the row
// scores the second class.
type Linear struct {
	NumFeatures int
	Classes     []int
	Weights     [][]float64
	Bias        []float64
	labels      map[int]string
}

// NewLinear creates a Linear model and validates its shape.
func NewLinear(numFeatures int, classes []int, weights [][]float64, bias []float64, labels map[int]string) (*Linear, error) {
	if numFeatures <= 0 {
		return nil, errors.New("linear: n_features must be positive")
	}
	if len(classes) < 2 {
		return nil, errors.New("linear: need at least two classes")
	}

	binary := len(weights) == 1 && len(classes) == 2
	if !binary && len(weights) != len(classes) {
		return nil, errors.Errorf("linear: %d weight rows for %d classes", len(weights), len(classes))
	}
	if len(bias) != len(weights) {
		return nil, errors.Errorf("linear: %d bias values for %d weight rows", len(bias), len(weights))
	}
	for i, w := range weights {
		if len(w) != numFeatures {
			return nil, errors.Errorf("linear: weight row %d has %d values, want %d", i, len(w), numFeatures)
		}
	}

	if labels == nil {
		labels = DefaultLabels()
	}

	return &Linear{
		NumFeatures: numFeatures,
		Classes:     classes,
		Weights:     weights,
		Bias:        bias,
		labels:      labels,
	}, nil
}

// distribution returns class probabilities indexed like m.Classes.
func (m *Linear) distribution(vec []float64) ([]float64, error) {
	if err := checkLength(vec, m.NumFeatures); err != nil {
		return nil, err
	}

	if len(m.Weights) == 1 {
		p := sigmoid(floats.Dot(m.Weights[0], vec) + m.Bias[0])
		return []float64{1 - p, p}, nil
	}

	logits := make([]float64, len(m.Weights))
	for i, w := range m.Weights {
		logits[i] = floats.Dot(w, vec) + m.Bias[i]
	}
	return softmax(logits), nil
}

// Predict returns the class with the highest probability.
func (m *Linear) Predict(vec []float64) (int, error) {
	dist, err := m.distribution(vec)
	if err != nil {
		return 0, err
	}
	return m.Classes[floats.MaxIdx(dist)], nil
}

// PredictProba returns the probability of every class.
func (m *Linear) PredictProba(vec []float64) (map[int]float64, error) {
	dist, err := m.distribution(vec)
	if err != nil {
		return nil, err
	}

	proba := make(map[int]float64, len(m.Classes))
	for i, c := range m.Classes {
		proba[c] = dist[i]
	}
	return proba, nil
}

// Labels returns the label names of the model.
func (m *Linear) Labels() map[int]string {
	return m.labels
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}

// softmax normalizes logits into probabilities. The maximum is subtracted
// first so large logits do not overflow.
func softmax(logits []float64) []float64 {
	out := make([]float64, len(logits))
	copy(out, logits)
	floats.AddConst(-floats.Max(logits), out)
	for i, v := range out {
		out[i] = math.Exp(v)
	}
	floats.Scale(1/floats.Sum(out), out)
	return out
}
