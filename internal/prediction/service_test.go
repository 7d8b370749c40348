package prediction

import (
	"context"
	"errors"
	"fmt"
	"math"
	"testing"

	"backend/internal/ml_models"
	"backend/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func f64(v float64) *float64 { return &v }

type fakeRegistry struct {
	set *ml_models.Models
	err error
}

func (f *fakeRegistry) Acquire(ctx context.Context) (*ml_models.Models, error) {
	return f.set, f.err
}

type fakePreprocessor struct {
	gotVec []float64
	err    error
}

func (f *fakePreprocessor) Preprocess(vec []float64) ([]float64, error) {
	f.gotVec = vec
	if f.err != nil {
		return nil, f.err
	}
	return vec, nil
}

type fakeTabular struct {
	label int
	err   error
}

func (f *fakeTabular) Predict([]float64) (int, error) { return f.label, f.err }

type fakeImage struct {
	label int
	err   error
}

func (f *fakeImage) Predict([]byte) (int, error) { return f.label, f.err }

type fakeReport struct {
	text      string
	err       error
	gotResult string
	gotImage  []byte
}

func (f *fakeReport) Generate(ctx context.Context, imageData []byte, result, language string, temperature *float64, city *string) (string, error) {
	f.gotResult = result
	f.gotImage = imageData
	return f.text, f.err
}

type fakeStore struct {
	saved      []*models.Prediction
	increments map[string]int64
	saveErr    error
	incErr     error
}

func newFakeStore() *fakeStore {
	return &fakeStore{increments: map[string]int64{}}
}

func (f *fakeStore) SavePrediction(p *models.Prediction) error {
	if f.saveErr != nil {
		return f.saveErr
	}
	p.ID = int64(len(f.saved) + 1)
	f.saved = append(f.saved, p)
	return nil
}

func (f *fakeStore) GetUserPredictions(userID int64) ([]*models.Prediction, error) {
	return f.saved, nil
}

func (f *fakeStore) IncrementDiseaseCount(city string) error {
	if f.incErr != nil {
		return f.incErr
	}
	f.increments[city]++
	return nil
}

func (f *fakeStore) GetCityDiseaseCount(city string) (int64, error) {
	return f.increments[city], nil
}

type fakeWeather struct {
	temp   *float64
	city   *string
	called int
}

func (f *fakeWeather) TemperatureByCoords(ctx context.Context, lat, lon float64) *float64 {
	f.called++
	return f.temp
}

func (f *fakeWeather) CityByCoords(ctx context.Context, lat, lon float64) *string {
	f.called++
	return f.city
}

type pipeline struct {
	svc     *Service
	store   *fakeStore
	weather *fakeWeather
	pre     *fakePreprocessor
	tabular *fakeTabular
	image   *fakeImage
	report  *fakeReport
}

func newPipeline(tabularLabel, imageLabel int) *pipeline {
	p := &pipeline{
		store:   newFakeStore(),
		weather: &fakeWeather{temp: f64(27.0), city: strPtr("Bengaluru")},
		pre:     &fakePreprocessor{},
		tabular: &fakeTabular{label: tabularLabel},
		image:   &fakeImage{label: imageLabel},
		report:  &fakeReport{text: "generated report"},
	}
	registry := &fakeRegistry{set: &ml_models.Models{
		Preprocessor: p.pre,
		Tabular:      p.tabular,
		Image:        p.image,
		Report:       p.report,
	}}
	p.svc = NewService(registry, p.weather, p.store, zap.NewNop())
	return p
}

func strPtr(s string) *string { return &s }

func fullClinical() models.ClinicalFeatures {
	return models.ClinicalFeatures{
		Latitude:           f64(12.9),
		Longitude:          f64(77.6),
		CloudCover:         f64(40),
		Evapotranspiration: f64(3.2),
		Precipitation:      f64(0),
		MinTemp:            f64(18),
		MeanTemp:           f64(24),
		MaxTemp:            f64(30),
		VapourPressure:     f64(1.8),
		WetDayFreq:         f64(2),
	}
}

func TestMakePredictionPolarity(t *testing.T) {
	// Image label 0 is positive, tabular label 1 is positive. The two
	// conventions are independent and must both be honored.
	tests := []struct {
		name             string
		tabularLabel     int
		imageLabel       int
		wantClinicalBool bool
		wantImageBool    bool
		wantIncrements   int64
	}{
		{"image positive only", 0, 0, false, true, 1},
		{"tabular positive only", 1, 1, true, false, 1},
		{"both positive", 1, 0, true, true, 1},
		{"both negative", 0, 1, false, false, 0},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			p := newPipeline(tt.tabularLabel, tt.imageLabel)

			got, err := p.svc.MakePrediction(context.Background(), 7, []byte("img"), fullClinical(), f64(12.9), f64(77.6), "English")
			require.NoError(t, err)

			assert.Equal(t, tt.wantClinicalBool, got.ClinicalModelResult)
			assert.Equal(t, tt.wantImageBool, got.ImageModelResult)
			assert.Equal(t, "generated report", got.Report)
			require.Len(t, p.store.saved, 1)
			assert.Equal(t, tt.wantIncrements, p.store.increments["Bengaluru"])
		})
	}
}

func TestMakePredictionSpecScenario(t *testing.T) {
	// Disease-positive image, negative tabular result: exactly one stats
	// increment for the resolved city.
	p := newPipeline(0, 0)

	got, err := p.svc.MakePrediction(context.Background(), 1, []byte("img"), fullClinical(), f64(12.9), f64(77.6), "English")
	require.NoError(t, err)

	assert.True(t, got.ImageModelResult)
	assert.False(t, got.ClinicalModelResult)
	assert.Equal(t, int64(1), p.store.increments["Bengaluru"])
	assert.Len(t, p.store.increments, 1)
}

func TestMakePredictionCoordinatePrecedence(t *testing.T) {
	p := newPipeline(0, 1)

	clinical := fullClinical()
	clinical.Longitude = f64(99.9)
	clinical.Latitude = f64(-10.0)

	_, err := p.svc.MakePrediction(context.Background(), 1, []byte("img"), clinical, f64(12.9), f64(77.6), "English")
	require.NoError(t, err)

	// The model vector uses the clinical coordinates, not the request ones.
	require.Len(t, p.pre.gotVec, models.NumFeatures)
	assert.Equal(t, 99.9, p.pre.gotVec[0])
	assert.Equal(t, -10.0, p.pre.gotVec[1])
}

func TestMakePredictionFillsMissingCoordsFromRequest(t *testing.T) {
	p := newPipeline(0, 1)

	clinical := fullClinical()
	clinical.Longitude = nil
	clinical.Latitude = nil

	_, err := p.svc.MakePrediction(context.Background(), 1, []byte("img"), clinical, f64(12.9), f64(77.6), "English")
	require.NoError(t, err)

	assert.Equal(t, 77.6, p.pre.gotVec[0])
	assert.Equal(t, 12.9, p.pre.gotVec[1])
}

func TestMakePredictionNoCoordsSkipsWeather(t *testing.T) {
	p := newPipeline(0, 1)

	clinical := fullClinical()
	got, err := p.svc.MakePrediction(context.Background(), 1, []byte("img"), clinical, nil, nil, "English")
	require.NoError(t, err)

	assert.Zero(t, p.weather.called)
	assert.Nil(t, got.City)
	assert.Nil(t, got.Temperature)
}

func TestMakePredictionPositiveWithoutCitySkipsStats(t *testing.T) {
	p := newPipeline(1, 0)
	p.weather.city = nil

	_, err := p.svc.MakePrediction(context.Background(), 1, []byte("img"), fullClinical(), f64(12.9), f64(77.6), "English")
	require.NoError(t, err)

	assert.Empty(t, p.store.increments)
}

func TestMakePredictionMissingFeaturesStillPredicts(t *testing.T) {
	p := newPipeline(0, 1)

	clinical := models.ClinicalFeatures{MeanTemp: f64(24)}
	_, err := p.svc.MakePrediction(context.Background(), 1, []byte("img"), clinical, nil, nil, "English")
	require.NoError(t, err)

	require.Len(t, p.pre.gotVec, models.NumFeatures)
	assert.True(t, math.IsNaN(p.pre.gotVec[0]))
	assert.Equal(t, 24.0, p.pre.gotVec[6])
}

func TestMakePredictionFailurePropagation(t *testing.T) {
	t.Run("model acquisition failure persists nothing", func(t *testing.T) {
		p := newPipeline(0, 0)
		registry := &fakeRegistry{err: fmt.Errorf("%w: artifact missing", ml_models.ErrModelLoading)}
		svc := NewService(registry, p.weather, p.store, zap.NewNop())

		_, err := svc.MakePrediction(context.Background(), 1, []byte("img"), fullClinical(), nil, nil, "English")
		assert.ErrorIs(t, err, ml_models.ErrModelLoading)
		assert.Empty(t, p.store.saved)
		assert.Empty(t, p.store.increments)
	})

	t.Run("preprocessing failure keeps its error kind", func(t *testing.T) {
		p := newPipeline(0, 0)
		p.pre.err = fmt.Errorf("%w: bad vector", ml_models.ErrPreprocessing)

		_, err := p.svc.MakePrediction(context.Background(), 1, []byte("img"), fullClinical(), nil, nil, "English")
		assert.ErrorIs(t, err, ml_models.ErrPreprocessing)
		assert.Empty(t, p.store.saved)
	})

	t.Run("inference failure persists nothing", func(t *testing.T) {
		p := newPipeline(0, 0)
		p.image.err = fmt.Errorf("%w: corrupt model state", ml_models.ErrPrediction)

		_, err := p.svc.MakePrediction(context.Background(), 1, []byte("img"), fullClinical(), nil, nil, "English")
		assert.ErrorIs(t, err, ml_models.ErrPrediction)
		assert.Empty(t, p.store.saved)
	})

	t.Run("report failure discards model results", func(t *testing.T) {
		p := newPipeline(1, 0)
		p.report.err = errors.New("empty response")

		_, err := p.svc.MakePrediction(context.Background(), 1, []byte("img"), fullClinical(), f64(12.9), f64(77.6), "English")
		assert.ErrorIs(t, err, ml_models.ErrPrediction)
		assert.Empty(t, p.store.saved)
		assert.Empty(t, p.store.increments)
	})

	t.Run("save failure never updates stats", func(t *testing.T) {
		p := newPipeline(1, 0)
		p.store.saveErr = errors.New("connection reset")

		_, err := p.svc.MakePrediction(context.Background(), 1, []byte("img"), fullClinical(), f64(12.9), f64(77.6), "English")
		assert.ErrorIs(t, err, ml_models.ErrPrediction)
		assert.Empty(t, p.store.increments)
	})
}

func TestMakePredictionResultBlock(t *testing.T) {
	p := newPipeline(1, 0)

	_, err := p.svc.MakePrediction(context.Background(), 1, []byte("img"), fullClinical(), f64(12.9), f64(77.6), "English")
	require.NoError(t, err)

	assert.Contains(t, p.report.gotResult, "**ML Model Prediction:** Lumpy")
	assert.Contains(t, p.report.gotResult, "**CNN Model Prediction:** Lumpy")
	assert.Contains(t, p.report.gotResult, "- Mean Temperature: 24")
	assert.Equal(t, []byte("img"), p.report.gotImage)
}
