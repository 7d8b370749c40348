package models

import (
	"database/sql/driver"
	"encoding/json"
	"fmt"
	"math"
)

// NumFeatures is the input width of the tabular classifier.
const NumFeatures = 10

// ClinicalFeatures is the structured clinical/environmental input for the
// tabular model. All fields are optional; absent values propagate into the
// feature vector as NaN. The field order below is the order the model was
// trained on and must not change.
type ClinicalFeatures struct {
	Longitude          *float64 `json:"longitude,omitempty"`
	Latitude           *float64 `json:"latitude,omitempty"`
	CloudCover         *float64 `json:"cloud_cover,omitempty"`
	Evapotranspiration *float64 `json:"evapotranspiration,omitempty"`
	Precipitation      *float64 `json:"precipitation,omitempty"`
	MinTemp            *float64 `json:"min_temp,omitempty"`
	MeanTemp           *float64 `json:"mean_temp,omitempty"`
	MaxTemp            *float64 `json:"max_temp,omitempty"`
	VapourPressure     *float64 `json:"vapour_pressure,omitempty"`
	WetDayFreq         *float64 `json:"wet_day_freq,omitempty"`
}

// Vector returns the fixed-order feature vector. Missing values are NaN.
func (c ClinicalFeatures) Vector() []float64 {
	fields := []*float64{
		c.Longitude, c.Latitude, c.CloudCover, c.Evapotranspiration,
		c.Precipitation, c.MinTemp, c.MeanTemp, c.MaxTemp,
		c.VapourPressure, c.WetDayFreq,
	}
	vec := make([]float64, NumFeatures)
	for i, f := range fields {
		if f == nil {
			vec[i] = math.NaN()
		} else {
			vec[i] = *f
		}
	}
	return vec
}

// Empty reports whether every feature is absent.
func (c ClinicalFeatures) Empty() bool {
	for _, v := range c.Vector() {
		if !math.IsNaN(v) {
			return false
		}
	}
	return true
}

// Value serializes the features to JSON for the JSONB column.
func (c ClinicalFeatures) Value() (driver.Value, error) {
	return json.Marshal(c)
}

// Scan deserializes the JSONB column.
func (c *ClinicalFeatures) Scan(src interface{}) error {
	switch v := src.(type) {
	case []byte:
		return json.Unmarshal(v, c)
	case string:
		return json.Unmarshal([]byte(v), c)
	case nil:
		*c = ClinicalFeatures{}
		return nil
	default:
		return fmt.Errorf("unsupported type %T for clinical features", src)
	}
}
