package ml_models

import (
	"context"
	"fmt"
	"sync"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type stubPreprocessor struct{}

func (stubPreprocessor) Preprocess(vec []float64) ([]float64, error) { return vec, nil }

type stubTabular struct{}

func (stubTabular) Predict([]float64) (int, error) { return 0, nil }

type stubImage struct{}

func (stubImage) Predict([]byte) (int, error) { return 1, nil }

type stubReport struct{}

func (stubReport) Generate(context.Context, []byte, string, string, *float64, *string) (string, error) {
	return "report", nil
}

func newStubRegistry(loads *int64, failImage bool) *Registry {
	r := NewRegistry("unused", func(ctx context.Context) (ReportGenerator, error) {
		return stubReport{}, nil
	}, zap.NewNop())
	r.loadScaler = func(string, *zap.Logger) (Preprocessor, error) {
		atomic.AddInt64(loads, 1)
		return stubPreprocessor{}, nil
	}
	r.loadForest = func(string, *zap.Logger) (TabularClassifier, error) {
		return stubTabular{}, nil
	}
	r.loadCNN = func(string, *zap.Logger) (ImageClassifier, error) {
		if failImage {
			return nil, fmt.Errorf("%w: broken artifact", ErrModelLoading)
		}
		return stubImage{}, nil
	}
	return r
}

func TestRegistryAcquireCachesModels(t *testing.T) {
	var loads int64
	r := newStubRegistry(&loads, false)

	first, err := r.Acquire(context.Background())
	require.NoError(t, err)
	second, err := r.Acquire(context.Background())
	require.NoError(t, err)

	assert.Same(t, first, second)
	assert.EqualValues(t, 1, atomic.LoadInt64(&loads))
}

func TestRegistryAcquireAllOrNothing(t *testing.T) {
	var loads int64
	r := newStubRegistry(&loads, true)

	_, err := r.Acquire(context.Background())
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrModelLoading)

	// The earlier loads must not be cached; a second attempt loads again.
	_, err = r.Acquire(context.Background())
	require.Error(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&loads))
}

func TestRegistryResetForcesReload(t *testing.T) {
	var loads int64
	r := newStubRegistry(&loads, false)

	_, err := r.Acquire(context.Background())
	require.NoError(t, err)

	r.Reset()

	_, err = r.Acquire(context.Background())
	require.NoError(t, err)
	assert.EqualValues(t, 2, atomic.LoadInt64(&loads))
}

func TestRegistryConcurrentAcquire(t *testing.T) {
	var loads int64
	r := newStubRegistry(&loads, false)

	const callers = 16
	results := make([]*Models, callers)

	var wg sync.WaitGroup
	for i := 0; i < callers; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			m, err := r.Acquire(context.Background())
			assert.NoError(t, err)
			results[i] = m
		}(i)
	}
	wg.Wait()

	assert.EqualValues(t, 1, atomic.LoadInt64(&loads))
	for i := 1; i < callers; i++ {
		assert.Same(t, results[0], results[i])
	}
}
