package ml_models

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"

	"go.uber.org/zap"
)

// Preprocessor converts a raw feature vector into the scaled form the
// tabular classifier expects.
type Preprocessor interface {
	Preprocess(vec []float64) ([]float64, error)
}

// StandardScaler applies the pre-fitted standardization transform exported
// from the training pipeline (scaler.json: mean and scale per feature).
type StandardScaler struct {
	mean  []float64
	scale []float64
}

type scalerFile struct {
	Mean  []float64 `json:"mean"`
	Scale []float64 `json:"scale"`
}

// LoadStandardScaler reads the fitted scaler artifact from dir.
func LoadStandardScaler(dir string, logger *zap.Logger) (*StandardScaler, error) {
	path := filepath.Join(dir, "scaler.json")
	logger.Info("Loading scaler", zap.String("path", path))

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("%w: could not read scaler artifact: %v", ErrModelLoading, err)
	}

	var sf scalerFile
	if err := json.Unmarshal(data, &sf); err != nil {
		return nil, fmt.Errorf("%w: could not parse scaler artifact: %v", ErrModelLoading, err)
	}

	if len(sf.Mean) == 0 || len(sf.Mean) != len(sf.Scale) {
		return nil, fmt.Errorf("%w: scaler artifact has mismatched mean/scale lengths (%d vs %d)",
			ErrModelLoading, len(sf.Mean), len(sf.Scale))
	}
	for i, s := range sf.Scale {
		if s == 0 {
			return nil, fmt.Errorf("%w: scaler artifact has zero scale at feature %d", ErrModelLoading, i)
		}
	}

	logger.Info("Scaler loaded successfully", zap.Int("features", len(sf.Mean)))
	return &StandardScaler{mean: sf.Mean, scale: sf.Scale}, nil
}

// Preprocess scales a single-sample feature vector. Missing features arrive
// as NaN and pass through positionally; a vector with every feature missing
// is rejected.
func (s *StandardScaler) Preprocess(vec []float64) ([]float64, error) {
	if len(vec) != len(s.mean) {
		return nil, fmt.Errorf("%w: expected %d features, got %d", ErrPreprocessing, len(s.mean), len(vec))
	}

	allMissing := true
	scaled := make([]float64, len(vec))
	for i, v := range vec {
		if math.IsNaN(v) {
			scaled[i] = v
			continue
		}
		allMissing = false
		scaled[i] = (v - s.mean[i]) / s.scale[i]
	}

	if allMissing {
		return nil, fmt.Errorf("%w: every clinical feature is absent", ErrPreprocessing)
	}
	return scaled, nil
}
