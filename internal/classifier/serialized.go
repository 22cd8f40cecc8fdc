package classifier

import "sync"

// Serialized wraps a Classifier whose inference is not reentrant so that
// concurrent requests take turns.
type Serialized struct {
	inner Classifier
	mu    sync.Mutex
}

// NewSerialized wraps c.
func NewSerialized(c Classifier) *Serialized {
	return &Serialized{inner: c}
}

// Predict calls the wrapped Predict under the lock.
func (s *Serialized) Predict(vec []float64) (int, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.Predict(vec)
}

// PredictProba calls the wrapped PredictProba under the lock.
func (s *Serialized) PredictProba(vec []float64) (map[int]float64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.inner.PredictProba(vec)
}

// Labels returns the wrapped classifier's labels.
func (s *Serialized) Labels() map[int]string {
	return s.inner.Labels()
}
