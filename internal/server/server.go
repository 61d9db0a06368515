package server

import (
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"regwatch/internal/analysis"
	"regwatch/internal/config"
	"regwatch/internal/ports"
	"regwatch/internal/usecase"
)

// Server exposes the HTTP surface: cron-triggered ingestion, manual
// re-analysis, regulation reads, exports and health.
type Server struct {
	router   *gin.Engine
	pipeline *usecase.Pipeline
	repo     ports.RegulationRepository
	health   ports.StoreHealth
	analyzer *analysis.Analyzer
	company  config.CompanyConfig
	secret   string
	logger   *slog.Logger
}

// Deps carries everything the HTTP layer needs.
type Deps struct {
	Pipeline *usecase.Pipeline
	Repo     ports.RegulationRepository
	Health   ports.StoreHealth
	Analyzer *analysis.Analyzer
	Company  config.CompanyConfig
	Secret   string
	Logger   *slog.Logger
}

// New builds the router with all routes registered.
func New(deps Deps) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	s := &Server{
		router:   router,
		pipeline: deps.Pipeline,
		repo:     deps.Repo,
		health:   deps.Health,
		analyzer: deps.Analyzer,
		company:  deps.Company,
		secret:   deps.Secret,
		logger:   deps.Logger,
	}

	router.Use(s.requestLogger())
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	api := s.router.Group("/api")
	{
		api.POST("/monitor", s.handleMonitor)
		api.POST("/analyze", s.handleAnalyze)
		api.GET("/regulations", s.handleListRegulations)
		api.GET("/regulations/:id", s.handleGetRegulation)
		api.GET("/export/:format", s.handleExport)
		api.GET("/health", s.handleHealth)
	}
}

// requestLogger tags each request with an id and logs the outcome.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		requestID := uuid.NewString()
		c.Set("request_id", requestID)
		c.Header("X-Request-ID", requestID)

		c.Next()

		if s.logger != nil {
			s.logger.Info("request",
				"id", requestID,
				"method", c.Request.Method,
				"path", c.Request.URL.Path,
				"status", c.Writer.Status())
		}
	}
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// Run blocks serving HTTP on addr.
func (s *Server) Run(addr string) error {
	return s.router.Run(addr)
}
