package handler

import (
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strconv"

	"backend/internal/ml_models"
	"backend/internal/models"
	"backend/internal/prediction"
	"backend/internal/service"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type PredictionHandler interface {
	Predict(c *gin.Context)
	UserPredictions(c *gin.Context)
}

type predictionHandler struct {
	predictionService *prediction.Service
	authService       service.AuthService
	logger            *zap.Logger
}

func NewPredictionHandler(predictionService *prediction.Service, authService service.AuthService, logger *zap.Logger) PredictionHandler {
	return &predictionHandler{
		predictionService: predictionService,
		authService:       authService,
		logger:            logger,
	}
}

// Predict handles POST /api/predict. Multipart form: image file,
// clinical_data JSON, optional language, latitude, longitude.
func (h *predictionHandler) Predict(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	fileHeader, err := c.FormFile("image")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "image file is required"})
		return
	}
	file, err := fileHeader.Open()
	if err != nil {
		h.logger.Error("Failed to open uploaded image", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image file"})
		return
	}
	defer file.Close()
	imageData, err := io.ReadAll(file)
	if err != nil {
		h.logger.Error("Failed to read uploaded image", zap.Error(err))
		c.JSON(http.StatusBadRequest, gin.H{"error": "could not read image file"})
		return
	}

	var clinical models.ClinicalFeatures
	if err := json.Unmarshal([]byte(c.PostForm("clinical_data")), &clinical); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "clinical_data must be valid JSON"})
		return
	}

	language := c.DefaultPostForm("language", "English")

	latitude, err := optionalFloatForm(c, "latitude")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "latitude must be a number"})
		return
	}
	longitude, err := optionalFloatForm(c, "longitude")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "longitude must be a number"})
		return
	}

	p, err := h.predictionService.MakePrediction(c.Request.Context(), user.ID, imageData, clinical, latitude, longitude, language)
	if err != nil {
		h.handlePredictionError(c, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"id":              p.ID,
		"image_result":    p.ImageModelResult,
		"clinical_result": p.ClinicalModelResult,
		"city":            p.City,
		"temperature":     p.Temperature,
		"language":        p.Language,
		"report":          p.Report,
	})
}

// UserPredictions handles GET /api/user/predictions.
func (h *predictionHandler) UserPredictions(c *gin.Context) {
	user, ok := h.currentUser(c)
	if !ok {
		return
	}

	predictions, err := h.predictionService.GetUserPredictions(user.ID)
	if err != nil {
		h.logger.Error("Failed to get user predictions", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve predictions"})
		return
	}

	c.JSON(http.StatusOK, predictions)
}

func (h *predictionHandler) currentUser(c *gin.Context) (*models.User, bool) {
	username := c.MustGet("username").(string)
	user, err := h.authService.GetActiveUser(username)
	if err != nil {
		if errors.Is(err, service.ErrUserInactive) {
			c.JSON(http.StatusForbidden, gin.H{"error": "User account is inactive"})
			return nil, false
		}
		c.JSON(http.StatusUnauthorized, gin.H{"error": "Invalid authentication credentials"})
		return nil, false
	}
	return user, true
}

func (h *predictionHandler) handlePredictionError(c *gin.Context, err error) {
	switch {
	case errors.Is(err, ml_models.ErrPreprocessing):
		c.JSON(http.StatusUnprocessableEntity, gin.H{"error": err.Error()})
	case errors.Is(err, ml_models.ErrModelLoading):
		h.logger.Error("Model loading failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Models are unavailable"})
	default:
		h.logger.Error("Prediction failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed"})
	}
}

func optionalFloatForm(c *gin.Context, field string) (*float64, error) {
	raw := c.PostForm(field)
	if raw == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(raw, 64)
	if err != nil {
		return nil, err
	}
	return &v, nil
}
