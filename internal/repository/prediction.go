package repository

import (
	"database/sql"
	"errors"

	"backend/internal/models"

	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type PredictionRepository interface {
	SavePrediction(p *models.Prediction) error
	GetUserPredictions(userID int64) ([]*models.Prediction, error)
	IncrementDiseaseCount(city string) error
	GetCityDiseaseCount(city string) (int64, error)
}

type predictionRepository struct {
	db     *sqlx.DB
	logger *zap.Logger
}

func NewPredictionRepository(db *sqlx.DB, logger *zap.Logger) PredictionRepository {
	return &predictionRepository{db: db, logger: logger}
}

// SavePrediction inserts the full prediction row in one statement, so a
// failure persists nothing.
func (r *predictionRepository) SavePrediction(p *models.Prediction) error {
	query := `INSERT INTO predictions
		(user_id, latitude, longitude, city, temperature, clinical_features, image_model_result, clinical_model_result, language, report)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10)
		RETURNING id, created_at`
	return r.db.QueryRowx(query,
		p.UserID, p.Latitude, p.Longitude, p.City, p.Temperature,
		p.ClinicalFeatures, p.ImageModelResult, p.ClinicalModelResult,
		p.Language, p.Report,
	).Scan(&p.ID, &p.CreatedAt)
}

func (r *predictionRepository) GetUserPredictions(userID int64) ([]*models.Prediction, error) {
	var predictions []*models.Prediction
	query := `SELECT id, user_id, created_at, latitude, longitude, city, temperature,
			clinical_features, image_model_result, clinical_model_result, language, report
		FROM predictions WHERE user_id = $1 ORDER BY created_at DESC`
	err := r.db.Select(&predictions, query, userID)
	if err != nil {
		return nil, err
	}
	return predictions, nil
}

// IncrementDiseaseCount bumps the per-city counter, creating the row with
// count 1 on the first qualifying prediction. The upsert is a single
// statement, so concurrent increments never lose updates.
func (r *predictionRepository) IncrementDiseaseCount(city string) error {
	query := `INSERT INTO disease_stats (city, disease_count) VALUES ($1, 1)
		ON CONFLICT (city) DO UPDATE SET disease_count = disease_stats.disease_count + 1`
	_, err := r.db.Exec(query, city)
	return err
}

func (r *predictionRepository) GetCityDiseaseCount(city string) (int64, error) {
	var count int64
	query := `SELECT disease_count FROM disease_stats WHERE city = $1`
	err := r.db.Get(&count, query, city)
	if errors.Is(err, sql.ErrNoRows) {
		return 0, nil
	}
	if err != nil {
		return 0, err
	}
	return count, nil
}
