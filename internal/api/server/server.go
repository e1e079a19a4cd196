// filename: internal/api/server/server.go
package server

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/sigscope/sigscope/internal/analyzer"
	"github.com/sigscope/sigscope/internal/api/routes"
	"github.com/sigscope/sigscope/internal/common/logging"
	"github.com/sigscope/sigscope/internal/common/pg"
)

// Server представляет HTTP сервер SigScope API // v1.0
type Server struct {
	config *Config
	logger *logging.Logger
	router *gin.Engine
	server *http.Server
	health *routes.HealthHandler
}

// Config конфигурация сервера // v1.0
type Config struct {
	Host         string        `yaml:"host"`
	Port         int           `yaml:"port"`
	ReadTimeout  time.Duration `yaml:"read_timeout"`
	WriteTimeout time.Duration `yaml:"write_timeout"`
	IdleTimeout  time.Duration `yaml:"idle_timeout"`
	LogLevel     string        `yaml:"log_level"`
}

// NewServer создает новый HTTP сервер. Хранилище шаблонов опционально // v1.0
func NewServer(config *Config, logger *logging.Logger, a *analyzer.Analyzer, templateStore *pg.TemplateStore) *Server {
	// Устанавливаем уровень логирования Gin
	if config.LogLevel == "debug" {
		gin.SetMode(gin.DebugMode)
	} else {
		gin.SetMode(gin.ReleaseMode)
	}

	router := gin.New()

	// Добавляем middleware
	router.Use(gin.Recovery())
	router.Use(loggingMiddleware(logger))
	router.Use(corsMiddleware())

	server := &Server{
		config: config,
		logger: logger,
		router: router,
		health: routes.NewHealthHandler(logger),
	}

	// Настраиваем роуты
	server.setupRoutes(a, templateStore)

	// Создаем HTTP сервер
	server.server = &http.Server{
		Addr:         fmt.Sprintf("%s:%d", config.Host, config.Port),
		Handler:      router,
		ReadTimeout:  config.ReadTimeout,
		WriteTimeout: config.WriteTimeout,
		IdleTimeout:  config.IdleTimeout,
	}

	return server
}

// setupRoutes настраивает роуты API // v1.0
func (s *Server) setupRoutes(a *analyzer.Analyzer, templateStore *pg.TemplateStore) {
	// Создаем обработчики
	analyzeHandler := routes.NewAnalyzeHandler(s.logger, a)
	templatesHandler := routes.NewTemplatesHandler(s.logger, a.Decoder(), templateStore)

	// API v1
	v1 := s.router.Group("/api/v1")
	{
		// Health endpoints
		v1.GET("/health", s.health.HealthCheck)
		v1.GET("/health/ready", s.health.ReadinessCheck)
		v1.GET("/health/live", s.health.LivenessCheck)
		v1.GET("/health/status", s.health.Status)

		// Analysis endpoints
		v1.POST("/analyze", analyzeHandler.AnalyzeMessage)
		v1.POST("/decode", analyzeHandler.DecodeMessage)
		v1.GET("/stats", analyzeHandler.GetStats)
		v1.GET("/metrics", analyzeHandler.GetMetrics)
		v1.GET("/anomalies/batch", analyzeHandler.GetBatchAnomalies)
		v1.GET("/rules", analyzeHandler.GetRules)
		v1.DELETE("/history", analyzeHandler.ClearHistory)

		// Template endpoints
		templates := v1.Group("/templates")
		{
			templates.GET("", templatesHandler.GetTemplates)
			templates.POST("", templatesHandler.CreateTemplate)
		}

		// IE definition endpoints
		ies := v1.Group("/ies")
		{
			ies.GET("", templatesHandler.GetIEDefinitions)
			ies.POST("", templatesHandler.CreateIEDefinition)
		}
	}

	// Root endpoint
	s.router.GET("/", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"service":   "SigScope API",
			"version":   "1.0.0",
			"status":    "running",
			"timestamp": time.Now().Format(time.RFC3339),
			"endpoints": gin.H{
				"health":    "/api/v1/health",
				"analyze":   "/api/v1/analyze",
				"decode":    "/api/v1/decode",
				"templates": "/api/v1/templates",
				"stats":     "/api/v1/stats",
			},
		})
	})

	// 404 handler
	s.router.NoRoute(func(c *gin.Context) {
		c.JSON(http.StatusNotFound, gin.H{
			"error":     "Endpoint not found",
			"message":   fmt.Sprintf("Method %s %s not found", c.Request.Method, c.Request.URL.Path),
			"timestamp": time.Now().Format(time.RFC3339),
		})
	})
}

// RegisterComponent регистрирует зависимость для проверок готовности // v1.0
func (s *Server) RegisterComponent(name string, checker routes.ConnChecker) {
	s.health.RegisterComponent(name, checker)
}

// RegisterStats регистрирует поставщика статистики для /health/status // v1.0
func (s *Server) RegisterStats(name string, provider routes.StatsProvider) {
	s.health.RegisterStats(name, provider)
}

// Start запускает HTTP сервер // v1.0
func (s *Server) Start() error {
	s.logger.WithFields(map[string]interface{}{
		"host": s.config.Host,
		"port": s.config.Port,
	}).Info("Starting SigScope API server")

	if err := s.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		return fmt.Errorf("failed to start server: %w", err)
	}

	return nil
}

// Stop останавливает HTTP сервер // v1.0
func (s *Server) Stop(ctx context.Context) error {
	s.logger.Info("Stopping SigScope API server")

	if err := s.server.Shutdown(ctx); err != nil {
		return fmt.Errorf("failed to shutdown server: %w", err)
	}

	return nil
}

// GetRouter возвращает роутер для тестирования // v1.0
func (s *Server) GetRouter() *gin.Engine {
	return s.router
}

// loggingMiddleware добавляет логирование запросов // v1.0
func loggingMiddleware(logger *logging.Logger) gin.HandlerFunc {
	return gin.LoggerWithFormatter(func(param gin.LogFormatterParams) string {
		logger.WithFields(map[string]interface{}{
			"method":    param.Method,
			"path":      param.Path,
			"status":    param.StatusCode,
			"latency":   param.Latency.String(),
			"client_ip": param.ClientIP,
		}).Info("HTTP request")

		return ""
	})
}

// corsMiddleware добавляет CORS заголовки // v1.0
func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Origin, Content-Type, Content-Length, Accept-Encoding, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}
