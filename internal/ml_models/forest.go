package ml_models

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// TabularClassifier emits a binary label from a scaled feature vector.
// Label 1 means disease-positive.
type TabularClassifier interface {
	Predict(scaled []float64) (int, error)
}

// ForestClassifier evaluates the random forest exported from the training
// pipeline (forest.json: flattened sklearn tree arrays, leaf nodes marked
// with feature index -2).
type ForestClassifier struct {
	nFeatures int
	trees     []forestTree
}

type forestTree struct {
	ChildrenLeft  []int       `json:"children_left"`
	ChildrenRight []int       `json:"children_right"`
	Feature       []int       `json:"feature"`
	Threshold     []float64   `json:"threshold"`
	Value         [][]float64 `json:"value"`
}

type forestFile struct {
	NFeatures int          `json:"n_features"`
	NClasses  int          `json:"n_classes"`
	Trees     []forestTree `json:"trees"`
}

// LoadForestClassifier reads the tabular model artifact from dir.
func LoadForestClassifier(dir string, logger *zap.Logger) (*ForestClassifier, error) {
	path := filepath.Join(dir, "forest.json")
	logger.Info("Loading tabular model", zap.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read tabular model artifact: %v", ErrModelLoading, err)
	}

	var ff forestFile
	if err := json.Unmarshal(data, &ff); err != nil {
		return nil, fmt.Errorf("%w: could not parse tabular model artifact: %v", ErrModelLoading, err)
	}

	if ff.NClasses != 2 {
		return nil, fmt.Errorf("%w: tabular model must be binary, got %d classes", ErrModelLoading, ff.NClasses)
	}
	if len(ff.Trees) == 0 {
		return nil, fmt.Errorf("%w: tabular model artifact contains no trees", ErrModelLoading)
	}
	for i, t := range ff.Trees {
		n := len(t.Feature)
		if len(t.ChildrenLeft) != n || len(t.ChildrenRight) != n || len(t.Threshold) != n || len(t.Value) != n {
			return nil, fmt.Errorf("%w: tree %d has inconsistent node arrays", ErrModelLoading, i)
		}
	}

	logger.Info("Tabular model loaded successfully", zap.Int("trees", len(ff.Trees)))
	return &ForestClassifier{nFeatures: ff.NFeatures, trees: ff.Trees}, nil
}

// Predict walks every tree and returns the majority class over the averaged
// leaf distributions. NaN features fail every split comparison and fall to
// the right child, matching the exported model's handling.
func (f *ForestClassifier) Predict(scaled []float64) (int, error) {
	if len(scaled) != f.nFeatures {
		return 0, fmt.Errorf("%w: tabular model expects %d features, got %d", ErrPrediction, f.nFeatures, len(scaled))
	}

	var probs [2]float64
	for i := range f.trees {
		leaf, err := f.trees[i].walk(scaled)
		if err != nil {
			return 0, fmt.Errorf("%w: tree %d: %v", ErrPrediction, i, err)
		}
		total := leaf[0] + leaf[1]
		if total <= 0 {
			return 0, fmt.Errorf("%w: tree %d has an empty leaf distribution", ErrPrediction, i)
		}
		probs[0] += leaf[0] / total
		probs[1] += leaf[1] / total
	}

	if probs[1] > probs[0] {
		return 1, nil
	}
	return 0, nil
}

func (t *forestTree) walk(vec []float64) ([]float64, error) {
	node := 0
	for steps := 0; steps <= len(t.Feature); steps++ {
		feat := t.Feature[node]
		if feat < 0 {
			leaf := t.Value[node]
			if len(leaf) != 2 {
				return nil, fmt.Errorf("leaf node %d has %d classes", node, len(leaf))
			}
			return leaf, nil
		}
		if feat >= len(vec) {
			return nil, fmt.Errorf("node %d references feature %d beyond input width", node, feat)
		}
		if vec[feat] <= t.Threshold[node] {
			node = t.ChildrenLeft[node]
		} else {
			node = t.ChildrenRight[node]
		}
		if node < 0 || node >= len(t.Feature) {
			return nil, fmt.Errorf("child index %d out of range", node)
		}
	}
	return nil, fmt.Errorf("tree walk did not terminate")
}
