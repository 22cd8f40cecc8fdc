package classifier

import "sync"

// MockClassifier is a test implementation of the Classifier interface.
// It allows tests to control predictions and count calls.
type MockClassifier struct {
	mu     sync.Mutex
	label  int
	proba  map[int]float64
	fn     func(vec []float64) (int, map[int]float64)
	err    error
	calls  int
	labels map[int]string
}

// NewMockClassifier creates a MockClassifier that predicts LabelHelmet with
// probability 1.
func NewMockClassifier() *MockClassifier {
	return &MockClassifier{
		label:  LabelHelmet,
		proba:  map[int]float64{LabelHead: 0, LabelHelmet: 1},
		labels: DefaultLabels(),
	}
}

// SetPrediction sets the label and probabilities returned for every vector.
func (m *MockClassifier) SetPrediction(label int, proba map[int]float64) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.label = label
	m.proba = proba
	m.fn = nil
}

// SetFunc makes the mock compute its answer from the vector.
func (m *MockClassifier) SetFunc(fn func(vec []float64) (int, map[int]float64)) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.fn = fn
}

// SetError sets the error returned by Predict and PredictProba.
func (m *MockClassifier) SetError(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.err = err
}

// Calls returns how many times Predict has been called.
func (m *MockClassifier) Calls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}

// Predict returns the pre-configured label or error.
func (m *MockClassifier) Predict(vec []float64) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return 0, m.err
	}
	if m.fn != nil {
		label, _ := m.fn(vec)
		return label, nil
	}
	return m.label, nil
}

// PredictProba returns the pre-configured probabilities or error.
func (m *MockClassifier) PredictProba(vec []float64) (map[int]float64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return nil, m.err
	}
	if m.fn != nil {
		_, proba := m.fn(vec)
		return proba, nil
	}
	return m.proba, nil
}

// Labels returns the default label names.
func (m *MockClassifier) Labels() map[int]string {
	return m.labels
}
