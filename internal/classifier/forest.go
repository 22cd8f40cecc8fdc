package classifier

import (
	"github.com/pkg/errors"
	"gonum.org/v1/gonum/floats"
)

// leaf marks a node without children.
const leaf = -1

// Node is one node of a decision tree stored as a flat array. Internal nodes
// send a sample left when vec[Feature] <= Threshold. Leaves (Left == -1)
// carry per-class sample counts or weights in Value.
type Node struct {
	Feature   int       `json:"feature"`
	Threshold float64   `json:"threshold"`
	Left      int       `json:"left"`
	Right     int       `json:"right"`
	Value     []float64 `json:"value,omitempty"`
}

// Tree is a decision tree rooted at Nodes[0].
type Tree struct {
	Nodes []Node `json:"nodes"`
}

// Forest is a random forest classifier. The predicted distribution is the
// mean of the normalized leaf distributions of all trees.
type Forest struct {
	NumFeatures int
	Classes     []int
	Trees       []Tree
	labels      map[int]string
}

// NewForest creates a Forest and validates its trees.
func NewForest(numFeatures int, classes []int, trees []Tree, labels map[int]string) (*Forest, error) {
	if numFeatures <= 0 {
		return nil, errors.New("forest: n_features must be positive")
	}
	if len(classes) == 0 {
		return nil, errors.New("forest: no classes")
	}
	if len(trees) == 0 {
		return nil, errors.New("forest: no trees")
	}

	for t, tree := range trees {
		if len(tree.Nodes) == 0 {
			return nil, errors.Errorf("forest: tree %d is empty", t)
		}
		for i, n := range tree.Nodes {
			if n.Left == leaf {
				if len(n.Value) != len(classes) {
					return nil, errors.Errorf("forest: tree %d node %d has %d values, want %d", t, i, len(n.Value), len(classes))
				}
				continue
			}
			if n.Feature < 0 || n.Feature >= numFeatures {
				return nil, errors.Errorf("forest: tree %d node %d uses feature %d", t, i, n.Feature)
			}
			// Children always follow their parent in the flat layout, which
			// also rules out cycles.
			if n.Left <= i || n.Left >= len(tree.Nodes) || n.Right <= i || n.Right >= len(tree.Nodes) {
				return nil, errors.Errorf("forest: tree %d node %d has invalid children", t, i)
			}
		}
	}

	if labels == nil {
		labels = DefaultLabels()
	}

	return &Forest{
		NumFeatures: numFeatures,
		Classes:     classes,
		Trees:       trees,
		labels:      labels,
	}, nil
}

// distribution returns the averaged class distribution for vec, indexed like
// f.Classes.
func (f *Forest) distribution(vec []float64) ([]float64, error) {
	if err := checkLength(vec, f.NumFeatures); err != nil {
		return nil, err
	}

	dist := make([]float64, len(f.Classes))
	for _, tree := range f.Trees {
		value := tree.leafValue(vec)
		total := floats.Sum(value)
		if total <= 0 {
			continue
		}
		normalized := make([]float64, len(value))
		floats.ScaleTo(normalized, 1/total, value)
		floats.Add(dist, normalized)
	}
	floats.Scale(1/float64(len(f.Trees)), dist)

	return dist, nil
}

// leafValue walks the tree and returns the value of the reached leaf.
func (t Tree) leafValue(vec []float64) []float64 {
	i := 0
	for {
		n := t.Nodes[i]
		if n.Left == leaf {
			return n.Value
		}
		if vec[n.Feature] <= n.Threshold {
			i = n.Left
		} else {
			i = n.Right
		}
	}
}

// Predict returns the class with the highest averaged probability. Ties go
// to the class listed first.
func (f *Forest) Predict(vec []float64) (int, error) {
	dist, err := f.distribution(vec)
	if err != nil {
		return 0, err
	}
	return f.Classes[floats.MaxIdx(dist)], nil
}

// PredictProba returns the averaged probability of every class.
func (f *Forest) PredictProba(vec []float64) (map[int]float64, error) {
	dist, err := f.distribution(vec)
	if err != nil {
		return nil, err
	}

	proba := make(map[int]float64, len(f.Classes))
	for i, c := range f.Classes {
		proba[c] = dist[i]
	}
	return proba, nil
}

// Labels returns the label names of the forest.
func (f *Forest) Labels() map[int]string {
	return f.labels
}
