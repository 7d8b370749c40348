package prediction

import (
	"context"
	"errors"
	"fmt"

	"backend/internal/ml_models"
	"backend/internal/models"

	"go.uber.org/zap"
)

// ModelProvider supplies the loaded model set.
type ModelProvider interface {
	Acquire(ctx context.Context) (*ml_models.Models, error)
}

// GeoContext resolves optional location context. Absence is expected, so
// lookups return nil instead of failing.
type GeoContext interface {
	TemperatureByCoords(ctx context.Context, lat, lon float64) *float64
	CityByCoords(ctx context.Context, lat, lon float64) *string
}

// Store is the persistence surface of the pipeline.
type Store interface {
	SavePrediction(p *models.Prediction) error
	GetUserPredictions(userID int64) ([]*models.Prediction, error)
	IncrementDiseaseCount(city string) error
	GetCityDiseaseCount(city string) (int64, error)
}

// Service orchestrates the diagnostic pipeline: preprocessing, dual-model
// inference, contextual enrichment, report generation and persistence.
type Service struct {
	registry ModelProvider
	weather  GeoContext
	store    Store
	logger   *zap.Logger
}

func NewService(registry ModelProvider, weather GeoContext, store Store, logger *zap.Logger) *Service {
	return &Service{
		registry: registry,
		weather:  weather,
		store:    store,
		logger:   logger,
	}
}

// MakePrediction runs one diagnostic pass. Single attempt, strict step
// order, nothing persisted unless inference and report generation both
// succeeded. The image is processed in memory only and never stored.
func (s *Service) MakePrediction(
	ctx context.Context,
	userID int64,
	imageData []byte,
	clinical models.ClinicalFeatures,
	latitude, longitude *float64,
	language string,
) (*models.Prediction, error) {
	set, err := s.registry.Acquire(ctx)
	if err != nil {
		return nil, err
	}

	var city *string
	var temperature *float64
	if latitude != nil && longitude != nil {
		city = s.weather.CityByCoords(ctx, *latitude, *longitude)
		temperature = s.weather.TemperatureByCoords(ctx, *latitude, *longitude)
	}

	// Coordinates inside the clinical data win over the separately passed
	// ones; the passed ones only fill gaps. A disagreement is logged, not
	// rejected.
	effective := clinical
	if effective.Longitude == nil {
		effective.Longitude = longitude
	} else if longitude != nil && *effective.Longitude != *longitude {
		s.logger.Warn("Clinical longitude differs from request longitude, using clinical value",
			zap.Float64("clinical", *effective.Longitude), zap.Float64("request", *longitude))
	}
	if effective.Latitude == nil {
		effective.Latitude = latitude
	} else if latitude != nil && *effective.Latitude != *latitude {
		s.logger.Warn("Clinical latitude differs from request latitude, using clinical value",
			zap.Float64("clinical", *effective.Latitude), zap.Float64("request", *latitude))
	}

	scaled, err := set.Preprocessor.Preprocess(effective.Vector())
	if err != nil {
		return nil, err
	}

	tabularLabel, err := set.Tabular.Predict(scaled)
	if err != nil {
		return nil, wrapPredictionErr(err)
	}

	imageLabel, err := set.Image.Predict(imageData)
	if err != nil {
		return nil, wrapPredictionErr(err)
	}

	s.logger.Info("Model predictions",
		zap.Int("tabular_label", tabularLabel),
		zap.Int("image_label", imageLabel),
		zap.Bool("clinical_positive", tabularLabel == 1),
		zap.Bool("image_positive", imageLabel == 0))

	result := formatResultBlock(effective, tabularLabel, imageLabel)

	report, err := set.Report.Generate(ctx, imageData, result, language, temperature, city)
	if err != nil {
		return nil, fmt.Errorf("%w: report generation: %v", ml_models.ErrPrediction, err)
	}

	prediction := &models.Prediction{
		UserID:              userID,
		Latitude:            latitude,
		Longitude:           longitude,
		City:                city,
		Temperature:         temperature,
		ClinicalFeatures:    clinical,
		ImageModelResult:    imageLabel == 0,
		ClinicalModelResult: tabularLabel == 1,
		Language:            language,
		Report:              report,
	}

	if err := s.store.SavePrediction(prediction); err != nil {
		return nil, fmt.Errorf("%w: failed to persist prediction: %v", ml_models.ErrPrediction, err)
	}

	if (imageLabel == 0 || tabularLabel == 1) && city != nil {
		if err := s.store.IncrementDiseaseCount(*city); err != nil {
			return nil, fmt.Errorf("%w: failed to update disease stats: %v", ml_models.ErrPrediction, err)
		}
	}

	return prediction, nil
}

// GetUserPredictions returns the user's history, newest first.
func (s *Service) GetUserPredictions(userID int64) ([]*models.Prediction, error) {
	return s.store.GetUserPredictions(userID)
}

// GetCityDiseaseCount returns the disease-positive count for a city.
func (s *Service) GetCityDiseaseCount(city string) (int64, error) {
	return s.store.GetCityDiseaseCount(city)
}

func wrapPredictionErr(err error) error {
	if errors.Is(err, ml_models.ErrPrediction) {
		return err
	}
	return fmt.Errorf("%w: %v", ml_models.ErrPrediction, err)
}

// formatResultBlock renders the model outcomes and input data section that
// gets embedded in the report prompt.
func formatResultBlock(clinical models.ClinicalFeatures, tabularLabel, imageLabel int) string {
	return fmt.Sprintf(`
Lumpy Skin Disease Diagnostic Report:

**ML Model Prediction:** %s
**CNN Model Prediction:** %s

**Input Data:**
- Longitude: %s
- Latitude: %s
- Monthly Cloud Cover: %s
- Potential EvapoTranspiration: %s
- Precipitation: %s
- Minimum Temperature: %s
- Mean Temperature: %s
- Maximum Temperature: %s
- Vapour Pressure: %s
- Wet Day Frequency: %s
`,
		lumpyLabel(tabularLabel == 1),
		lumpyLabel(imageLabel == 0),
		floatOrNA(clinical.Longitude),
		floatOrNA(clinical.Latitude),
		floatOrNA(clinical.CloudCover),
		floatOrNA(clinical.Evapotranspiration),
		floatOrNA(clinical.Precipitation),
		floatOrNA(clinical.MinTemp),
		floatOrNA(clinical.MeanTemp),
		floatOrNA(clinical.MaxTemp),
		floatOrNA(clinical.VapourPressure),
		floatOrNA(clinical.WetDayFreq),
	)
}

func lumpyLabel(positive bool) string {
	if positive {
		return "Lumpy"
	}
	return "Not Lumpy"
}

func floatOrNA(v *float64) string {
	if v == nil {
		return "not provided"
	}
	return fmt.Sprintf("%g", *v)
}
