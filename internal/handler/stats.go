package handler

import (
	"net/http"

	"backend/internal/prediction"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type StatsHandler interface {
	CityDiseaseStats(c *gin.Context)
}

type statsHandler struct {
	predictionService *prediction.Service
	logger            *zap.Logger
}

func NewStatsHandler(predictionService *prediction.Service, logger *zap.Logger) StatsHandler {
	return &statsHandler{predictionService: predictionService, logger: logger}
}

// CityDiseaseStats handles GET /api/city/disease-stats?city=<name>.
func (h *statsHandler) CityDiseaseStats(c *gin.Context) {
	city := c.Query("city")
	if city == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "city query parameter is required"})
		return
	}

	count, err := h.predictionService.GetCityDiseaseCount(city)
	if err != nil {
		h.logger.Error("Failed to get disease stats", zap.String("city", city), zap.Error(err))
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve disease stats"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"city":          city,
		"disease_count": count,
	})
}
