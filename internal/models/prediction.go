package models

import "time"

// Prediction is one diagnostic event. Image bytes are processed in memory
// only and never persisted.
type Prediction struct {
	ID        int64     `db:"id" json:"id"`
	UserID    int64     `db:"user_id" json:"user_id"`
	CreatedAt time.Time `db:"created_at" json:"created_at"`

	Latitude    *float64 `db:"latitude" json:"latitude"`
	Longitude   *float64 `db:"longitude" json:"longitude"`
	City        *string  `db:"city" json:"city"`
	Temperature *float64 `db:"temperature" json:"temperature"`

	ClinicalFeatures ClinicalFeatures `db:"clinical_features" json:"clinical_features"`

	ImageModelResult    bool `db:"image_model_result" json:"image_model_result"`
	ClinicalModelResult bool `db:"clinical_model_result" json:"clinical_model_result"`

	Language string `db:"language" json:"language"`
	Report   string `db:"report" json:"report"`
}

// DiseaseStats is the per-city rollup of disease-positive predictions.
type DiseaseStats struct {
	ID           int64  `db:"id" json:"id"`
	City         string `db:"city" json:"city"`
	DiseaseCount int64  `db:"disease_count" json:"disease_count"`
}
