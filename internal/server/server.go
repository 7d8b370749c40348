package server

import (
	"net/http"

	"backend/internal/config"
	"backend/internal/handler"
	"backend/internal/middleware"
	"backend/internal/prediction"
	"backend/internal/repository"
	"backend/internal/service"

	"github.com/gin-gonic/gin"
	"github.com/jmoiron/sqlx"
	"go.uber.org/zap"
)

type Server struct {
	router            *gin.Engine
	db                *sqlx.DB
	cfg               *config.Config
	predictionService *prediction.Service
	logger            *zap.Logger
}

func NewServer(db *sqlx.DB, cfg *config.Config, predictionService *prediction.Service, logger *zap.Logger) *Server {
	router := gin.Default()

	s := &Server{
		router:            router,
		db:                db,
		cfg:               cfg,
		predictionService: predictionService,
		logger:            logger,
	}

	s.setupRoutes()

	return s
}

func (s *Server) setupRoutes() {
	authRepo := repository.NewAuthRepository(s.db, s.logger)
	authService := service.NewAuthService(authRepo, []byte(s.cfg.Auth.JWTSecret), s.cfg.TokenTTL(), s.logger)
	authHandler := handler.NewAuthHandler(authService, s.logger)
	predictionHandler := handler.NewPredictionHandler(s.predictionService, authService, s.logger)
	statsHandler := handler.NewStatsHandler(s.predictionService, s.logger)

	// Ping route for health check
	s.router.GET("/ping", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"message": "pong",
		})
	})

	// Authentication routes
	authGroup := s.router.Group("/api/auth")
	authGroup.POST("/register", authHandler.Register)
	authGroup.POST("/login", authHandler.Login)

	// City stats are public, like the original dashboard endpoint.
	s.router.GET("/api/city/disease-stats", statsHandler.CityDiseaseStats)

	// Authenticated routes
	authRequired := s.router.Group("/api")
	authRequired.Use(middleware.AuthMiddleware([]byte(s.cfg.Auth.JWTSecret), s.logger))
	{
		authRequired.POST("/predict", predictionHandler.Predict)
		authRequired.GET("/user/predictions", predictionHandler.UserPredictions)
	}
}

func (s *Server) Run(addr string) {
	s.logger.Info("Server starting", zap.String("addr", addr))
	if err := s.router.Run(addr); err != nil {
		s.logger.Fatal("Server failed to start", zap.Error(err))
	}
}
