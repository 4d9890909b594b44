// Package api exposes the cached recipe catalogue over HTTP. Every
// read goes through the fallback orchestrator; the server itself never
// talks to the upstream API directly.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"

	"github.com/plateful/recipecache/pkg/orchestrator"
	"github.com/plateful/recipecache/pkg/quota"
	"github.com/plateful/recipecache/pkg/recipe"
)

// Service answers recipe requests with provenance. Satisfied by
// *orchestrator.Orchestrator.
type Service interface {
	Search(ctx context.Context, query string, filters recipe.SearchFilters) (*orchestrator.SearchResult, error)
	GetByID(ctx context.Context, id int64) (*orchestrator.RecipeResult, error)
	FindByIngredients(ctx context.Context, ingredients []string) (*orchestrator.IngredientsResult, error)
	Popular(ctx context.Context, filters recipe.PopularFilters) (*orchestrator.PopularResult, error)
}

// QuotaReader exposes the current day's upstream usage.
type QuotaReader interface {
	TodayUsage(ctx context.Context) (*quota.Usage, error)
}

// Server wires the HTTP routes to the orchestrator.
type Server struct {
	service Service
	quota   QuotaReader
	ping    func(ctx context.Context) error
	logger  zerolog.Logger
}

// NewServer creates a Server. ping reports store reachability for the
// health endpoint and may be nil.
func NewServer(service Service, quotaReader QuotaReader, ping func(ctx context.Context) error, logger zerolog.Logger) *Server {
	if service == nil {
		panic("api service cannot be nil")
	}
	return &Server{
		service: service,
		quota:   quotaReader,
		ping:    ping,
		logger:  logger,
	}
}

// Router builds the gin engine with all routes registered.
func (s *Server) Router() *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery(), s.requestLogger())

	router.GET("/healthz", s.handleHealth)
	router.GET("/metrics", gin.WrapH(promhttp.Handler()))

	v1 := router.Group("/api/v1")
	{
		v1.GET("/recipes/search", s.handleSearch)
		v1.GET("/recipes/popular", s.handlePopular)
		v1.GET("/recipes/by-ingredients", s.handleByIngredients)
		v1.GET("/recipes/:id", s.handleGetByID)
		v1.GET("/quota", s.handleQuota)
	}

	return router
}

// requestLogger emits one structured log line per request.
func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		event := s.logger.Info()
		if c.Writer.Status() >= http.StatusInternalServerError {
			event = s.logger.Error()
		}
		event.
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("duration", time.Since(start)).
			Str("remote_addr", c.ClientIP()).
			Msg("HTTP request")
	}
}
