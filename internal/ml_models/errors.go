package ml_models

import "errors"

var (
	// ErrModelLoading signals that a model artifact is missing or could not
	// be deserialized. Acquisition is all-or-nothing, so a single loading
	// failure leaves the registry empty.
	ErrModelLoading = errors.New("model loading failed")

	// ErrPreprocessing signals malformed clinical input.
	ErrPreprocessing = errors.New("preprocessing failed")

	// ErrPrediction signals an inference or report-generation failure.
	ErrPrediction = errors.New("prediction failed")
)
