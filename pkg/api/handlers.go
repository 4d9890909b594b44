package api

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/plateful/recipecache/pkg/recipe"
)

// errorBody is the JSON shape of every error response.
type errorBody struct {
	Error string `json:"error"`
}

// searchResponse wraps a search page with its provenance.
type searchResponse struct {
	Results      []recipe.Recipe `json:"results"`
	TotalResults int             `json:"totalResults"`
	FromCache    bool            `json:"fromCache"`
	Source       string          `json:"source"`
}

// recipeResponse wraps a single recipe with its provenance.
type recipeResponse struct {
	Recipe    *recipe.Recipe `json:"recipe"`
	FromCache bool           `json:"fromCache"`
	Source    string         `json:"source"`
}

// matchesResponse wraps ingredient matches with their provenance.
type matchesResponse struct {
	Matches   []recipe.IngredientMatch `json:"matches"`
	FromCache bool                     `json:"fromCache"`
	Source    string                   `json:"source"`
}

// popularResponse wraps a popular list with its provenance.
type popularResponse struct {
	Recipes   []recipe.Recipe `json:"recipes"`
	FromCache bool            `json:"fromCache"`
	Source    string          `json:"source"`
}

func (s *Server) handleSearch(c *gin.Context) {
	query := strings.TrimSpace(c.Query("q"))
	if query == "" {
		c.JSON(http.StatusBadRequest, errorBody{Error: "query parameter 'q' is required"})
		return
	}

	filters, err := searchFiltersFromQuery(c)
	if err != nil {
		c.JSON(http.StatusBadRequest, errorBody{Error: err.Error()})
		return
	}

	result, err := s.service.Search(c.Request.Context(), query, filters)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	results := result.Page.Recipes
	if results == nil {
		results = []recipe.Recipe{}
	}
	c.JSON(http.StatusOK, searchResponse{
		Results:      results,
		TotalResults: result.Page.TotalResults,
		FromCache:    result.FromCache,
		Source:       string(result.Source),
	})
}

func (s *Server) handleGetByID(c *gin.Context) {
	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil || id <= 0 {
		c.JSON(http.StatusBadRequest, errorBody{Error: "recipe id must be a positive integer"})
		return
	}

	result, err := s.service.GetByID(c.Request.Context(), id)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}
	if result.Recipe == nil {
		c.JSON(http.StatusNotFound, errorBody{Error: "recipe not found"})
		return
	}

	c.JSON(http.StatusOK, recipeResponse{
		Recipe:    result.Recipe,
		FromCache: result.FromCache,
		Source:    string(result.Source),
	})
}

func (s *Server) handleByIngredients(c *gin.Context) {
	ingredients := splitList(c.Query("ingredients"))
	if len(ingredients) == 0 {
		c.JSON(http.StatusBadRequest, errorBody{Error: "query parameter 'ingredients' is required"})
		return
	}

	result, err := s.service.FindByIngredients(c.Request.Context(), ingredients)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	matches := result.Matches.Matches
	if matches == nil {
		matches = []recipe.IngredientMatch{}
	}
	c.JSON(http.StatusOK, matchesResponse{
		Matches:   matches,
		FromCache: result.FromCache,
		Source:    string(result.Source),
	})
}

func (s *Server) handlePopular(c *gin.Context) {
	filters := recipe.PopularFilters{Tags: splitList(c.Query("tags"))}
	if raw := c.Query("number"); raw != "" {
		number, err := strconv.Atoi(raw)
		if err != nil || number <= 0 {
			c.JSON(http.StatusBadRequest, errorBody{Error: "number must be a positive integer"})
			return
		}
		filters.Number = number
	}

	result, err := s.service.Popular(c.Request.Context(), filters)
	if err != nil {
		s.writeServiceError(c, err)
		return
	}

	recipes := result.List.Recipes
	if recipes == nil {
		recipes = []recipe.Recipe{}
	}
	c.JSON(http.StatusOK, popularResponse{
		Recipes:   recipes,
		FromCache: result.FromCache,
		Source:    string(result.Source),
	})
}

func (s *Server) handleQuota(c *gin.Context) {
	if s.quota == nil {
		c.JSON(http.StatusNotFound, errorBody{Error: "quota reporting not configured"})
		return
	}
	usage, err := s.quota.TodayUsage(c.Request.Context())
	if err != nil {
		c.JSON(http.StatusServiceUnavailable, errorBody{Error: "quota ledger unavailable"})
		return
	}
	c.JSON(http.StatusOK, usage)
}

func (s *Server) handleHealth(c *gin.Context) {
	status := gin.H{"status": "ok"}
	code := http.StatusOK

	if s.ping != nil {
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		if err := s.ping(ctx); err != nil {
			// Degraded, not down: the fallback chain still answers
			// from upstream and static data without the store.
			status = gin.H{"status": "degraded", "store": err.Error()}
		}
	}

	c.JSON(code, status)
}

// writeServiceError maps orchestrator errors onto HTTP statuses. The
// orchestrator only fails on context cancellation.
func (s *Server) writeServiceError(c *gin.Context, err error) {
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		c.JSON(http.StatusGatewayTimeout, errorBody{Error: "request cancelled"})
		return
	}
	s.logger.Error().Err(err).Str("path", c.Request.URL.Path).Msg("Unexpected service error")
	c.JSON(http.StatusInternalServerError, errorBody{Error: "internal error"})
}

// searchFiltersFromQuery parses the optional search refinements.
func searchFiltersFromQuery(c *gin.Context) (recipe.SearchFilters, error) {
	filters := recipe.SearchFilters{
		Cuisine:      strings.TrimSpace(c.Query("cuisine")),
		Diet:         strings.TrimSpace(c.Query("diet")),
		Intolerances: strings.TrimSpace(c.Query("intolerances")),
	}
	for name, target := range map[string]*int{
		"maxReadyTime": &filters.MaxReadyTime,
		"number":       &filters.Number,
		"offset":       &filters.Offset,
	} {
		raw := c.Query(name)
		if raw == "" {
			continue
		}
		value, err := strconv.Atoi(raw)
		if err != nil || value < 0 {
			return filters, errors.New(name + " must be a non-negative integer")
		}
		*target = value
	}
	return filters, nil
}

// splitList parses a comma-separated query value into trimmed,
// non-empty items.
func splitList(raw string) []string {
	var items []string
	for _, part := range strings.Split(raw, ",") {
		if trimmed := strings.TrimSpace(part); trimmed != "" {
			items = append(items, trimmed)
		}
	}
	return items
}
