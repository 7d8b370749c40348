package ml_models

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"
)

// ReportGenerator produces the narrative veterinary report from model
// outputs and context. Implemented by the Gemini client.
type ReportGenerator interface {
	Generate(ctx context.Context, imageData []byte, result, language string, temperature *float64, city *string) (string, error)
}

// Models is the full set of loaded inference resources. All four are ready
// or the set does not exist.
type Models struct {
	Preprocessor Preprocessor
	Tabular      TabularClassifier
	Image        ImageClassifier
	Report       ReportGenerator
}

// ReportClientFactory builds the report-generation client during model
// acquisition.
type ReportClientFactory func(ctx context.Context) (ReportGenerator, error)

// Registry owns the lazily loaded model set. The first caller to Acquire
// loads everything; later callers observe the cached set. A failed load
// caches nothing.
type Registry struct {
	mu     sync.Mutex
	dir    string
	logger *zap.Logger

	newReport  ReportClientFactory
	loadScaler func(dir string, logger *zap.Logger) (Preprocessor, error)
	loadForest func(dir string, logger *zap.Logger) (TabularClassifier, error)
	loadCNN    func(dir string, logger *zap.Logger) (ImageClassifier, error)

	models *Models
}

// NewRegistry creates a registry loading artifacts from dir. newReport is
// invoked last in the load order.
func NewRegistry(dir string, newReport ReportClientFactory, logger *zap.Logger) *Registry {
	return &Registry{
		dir:       dir,
		logger:    logger,
		newReport: newReport,
		loadScaler: func(dir string, logger *zap.Logger) (Preprocessor, error) {
			scaler, err := LoadStandardScaler(dir, logger)
			if err != nil {
				return nil, err
			}
			return scaler, nil
		},
		loadForest: func(dir string, logger *zap.Logger) (TabularClassifier, error) {
			forest, err := LoadForestClassifier(dir, logger)
			if err != nil {
				return nil, err
			}
			return forest, nil
		},
		loadCNN: func(dir string, logger *zap.Logger) (ImageClassifier, error) {
			cnn, err := LoadCNNClassifier(dir, logger)
			if err != nil {
				return nil, err
			}
			return cnn, nil
		},
	}
}

// Acquire returns the loaded model set, loading it on first use. Load order:
// preprocessor, tabular classifier, image classifier, report client.
func (r *Registry) Acquire(ctx context.Context) (*Models, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.models != nil {
		return r.models, nil
	}

	r.logger.Info("Loading models", zap.String("dir", r.dir))

	preprocessor, err := r.loadScaler(r.dir, r.logger)
	if err != nil {
		return nil, err
	}

	tabular, err := r.loadForest(r.dir, r.logger)
	if err != nil {
		return nil, err
	}

	image, err := r.loadCNN(r.dir, r.logger)
	if err != nil {
		return nil, err
	}

	report, err := r.newReport(ctx)
	if err != nil {
		r.closeClassifier(image)
		return nil, fmt.Errorf("%w: could not initialize report client: %v", ErrModelLoading, err)
	}

	r.models = &Models{
		Preprocessor: preprocessor,
		Tabular:      tabular,
		Image:        image,
		Report:       report,
	}
	r.logger.Info("All models loaded successfully")
	return r.models, nil
}

// Reset discards all cached instances. The next Acquire reloads everything.
func (r *Registry) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.models != nil {
		r.closeClassifier(r.models.Image)
		r.models = nil
		r.logger.Info("Model registry reset")
	}
}

func (r *Registry) closeClassifier(image ImageClassifier) {
	if closer, ok := image.(interface{ Close() }); ok {
		closer.Close()
	}
}
