package server

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/reviewflow/reviews-api/internal/analytics"
	"github.com/reviewflow/reviews-api/internal/cache"
	"github.com/reviewflow/reviews-api/internal/config"
	"github.com/reviewflow/reviews-api/internal/handler"
	"github.com/reviewflow/reviews-api/internal/logger"
	"github.com/reviewflow/reviews-api/internal/middleware"
	"github.com/reviewflow/reviews-api/internal/places"
	"github.com/reviewflow/reviews-api/internal/ratelimit"
	"github.com/reviewflow/reviews-api/internal/repository"
	"github.com/reviewflow/reviews-api/internal/service"
	"github.com/reviewflow/reviews-api/internal/storage"
	"github.com/reviewflow/reviews-api/internal/tier"
	"go.uber.org/zap"
)

type Server struct {
	router     *gin.Engine
	config     *config.Config
	redis      *storage.RedisClient
	postgres   *storage.Postgres
	recorder   *analytics.Recorder
	httpServer *http.Server

	reviewsHandler *handler.ReviewsHandler
	keyHandler     *handler.WidgetKeyHandler
	authHandler    *handler.AuthHandler
	statsHandler   *handler.StatsHandler
	systemHandler  *handler.SystemHandler
	authService    *service.AuthService
}

// New wires the service together. postgres may be nil: the reviews endpoint
// then runs on key-prefix tier resolution alone and the admin API is not
// registered.
func New(cfg *config.Config, redis *storage.RedisClient, postgres *storage.Postgres) *Server {
	if cfg.Server.Environment == "production" {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	var keyRepo *repository.WidgetKeyRepository
	var usageRepo *repository.UsageStatsRepository
	var keyLookup tier.KeyLookup
	var usageSink analytics.UsageSink

	if postgres != nil {
		keyRepo = repository.NewWidgetKeyRepository(postgres)
		usageRepo = repository.NewUsageStatsRepository(postgres)
		keyLookup = keyRepo
		usageSink = usageRepo
	}

	recorder := analytics.NewRecorder(usageSink, redis, 256)
	resolver := tier.NewResolver(redis, keyLookup, recorder, cfg.Tiers)
	limiter := ratelimit.NewFixedWindow(redis)
	reviewCache := cache.NewReviewCache(redis)
	placesClient := places.NewClient(cfg.Places)

	s := &Server{
		router:         router,
		config:         cfg,
		redis:          redis,
		postgres:       postgres,
		recorder:       recorder,
		reviewsHandler: handler.NewReviewsHandler(resolver, limiter, reviewCache, placesClient, recorder),
		systemHandler:  handler.NewSystemHandler(placesClient),
	}

	if postgres != nil {
		authRepo := repository.NewUserRepository(postgres)
		s.authService = service.NewAuthService(authRepo, cfg.Auth.JWTSecret, cfg.Auth.ExpiryHours)
		keyService := service.NewWidgetKeyService(keyRepo, redis, cfg)
		s.keyHandler = handler.NewWidgetKeyHandler(keyService)
		s.authHandler = handler.NewAuthHandler(s.authService)
		s.statsHandler = handler.NewStatsHandler(usageRepo)
	}

	s.setupMiddleware()
	s.setupRoutes()

	return s
}

func (s *Server) setupMiddleware() {
	s.router.Use(middleware.Recovery())
	s.router.Use(middleware.RequestID())
	s.router.Use(middleware.Logger())
	s.router.Use(middleware.CORS())
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.healthCheck)

	api := s.router.Group("/api")
	{
		api.GET("/reviews/:placeId", s.reviewsHandler.Get)
		api.POST("/reviews/:placeId", s.reviewsHandler.Seed)

		// A trailing slash means the place id is missing; the handler owns
		// the 400 so the error envelope stays consistent.
		api.GET("/reviews/", s.reviewsHandler.Get)
		api.POST("/reviews/", s.reviewsHandler.Seed)
	}

	if s.postgres == nil {
		logger.Warn("database not configured, admin API disabled")
		return
	}

	auth := s.router.Group("/auth")
	{
		auth.POST("/register", s.authHandler.Register)
		auth.POST("/login", s.authHandler.Login)
	}

	admin := s.router.Group("/admin")
	admin.Use(middleware.RequireAuth(s.authService))
	{
		admin.POST("/keys", s.keyHandler.Create)
		admin.GET("/keys", s.keyHandler.List)
		admin.GET("/keys/:id", s.keyHandler.Get)
		admin.PATCH("/keys/:id", s.keyHandler.Update)
		admin.DELETE("/keys/:id", s.keyHandler.Delete)
		admin.GET("/keys/:id/stats", s.statsHandler.KeyUsage)
		admin.GET("/system/breaker", s.systemHandler.BreakerStatus)
		admin.POST("/system/breaker/reset", s.systemHandler.ResetBreaker)
	}
}

func (s *Server) healthCheck(c *gin.Context) {
	redisHealthy := true
	if err := s.redis.Ping(c.Request.Context()); err != nil {
		redisHealthy = false
		logger.Warn("redis health check failed", zap.Error(err))
	}

	dbHealthy := true
	if s.postgres != nil {
		if err := s.postgres.Ping(c.Request.Context()); err != nil {
			dbHealthy = false
			logger.Warn("database health check failed", zap.Error(err))
		}
	}

	status := "healthy"
	statusCode := http.StatusOK

	if !redisHealthy || !dbHealthy {
		status = "degraded"
		statusCode = http.StatusServiceUnavailable
	}

	c.JSON(statusCode, gin.H{
		"status":    status,
		"service":   "reviews-api",
		"version":   "1.0.0",
		"timestamp": time.Now().Unix(),
		"checks": gin.H{
			"redis":    redisHealthy,
			"database": dbHealthy,
		},
	})
}

func (s *Server) Run(addr string) error {
	s.httpServer = &http.Server{
		Addr:         addr,
		Handler:      s.router,
		ReadTimeout:  15 * time.Second,
		WriteTimeout: 15 * time.Second,
		IdleTimeout:  15 * time.Second,
	}

	logger.Info("starting reviews API",
		zap.String("addr", addr),
		zap.String("environment", s.config.Server.Environment),
	)

	return s.httpServer.ListenAndServe()
}

func (s *Server) Shutdown(ctx context.Context) error {
	// Flush queued analytics before the process goes away.
	s.recorder.Stop()

	if s.httpServer != nil {
		return s.httpServer.Shutdown(ctx)
	}

	return nil
}

func (s *Server) GetRouter() *gin.Engine {
	return s.router
}
