package api

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/rs/zerolog"

	"github.com/plateful/recipecache/pkg/orchestrator"
	"github.com/plateful/recipecache/pkg/quota"
	"github.com/plateful/recipecache/pkg/recipe"
)

// stubService returns canned orchestrator results and records inputs.
type stubService struct {
	searchResult *orchestrator.SearchResult
	recipeResult *orchestrator.RecipeResult
	matchResult  *orchestrator.IngredientsResult
	popResult    *orchestrator.PopularResult
	err          error

	lastQuery       string
	lastFilters     recipe.SearchFilters
	lastID          int64
	lastIngredients []string
	lastPopular     recipe.PopularFilters
}

func (s *stubService) Search(_ context.Context, query string, filters recipe.SearchFilters) (*orchestrator.SearchResult, error) {
	s.lastQuery = query
	s.lastFilters = filters
	return s.searchResult, s.err
}

func (s *stubService) GetByID(_ context.Context, id int64) (*orchestrator.RecipeResult, error) {
	s.lastID = id
	return s.recipeResult, s.err
}

func (s *stubService) FindByIngredients(_ context.Context, ingredients []string) (*orchestrator.IngredientsResult, error) {
	s.lastIngredients = ingredients
	return s.matchResult, s.err
}

func (s *stubService) Popular(_ context.Context, filters recipe.PopularFilters) (*orchestrator.PopularResult, error) {
	s.lastPopular = filters
	return s.popResult, s.err
}

type stubQuota struct {
	usage *quota.Usage
	err   error
}

func (s *stubQuota) TodayUsage(_ context.Context) (*quota.Usage, error) {
	return s.usage, s.err
}

func serveRequest(t *testing.T, server *Server, path string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(http.MethodGet, path, nil)
	recorder := httptest.NewRecorder()
	server.Router().ServeHTTP(recorder, req)
	return recorder
}

func decodeJSON(t *testing.T, recorder *httptest.ResponseRecorder, out any) {
	t.Helper()
	if err := json.Unmarshal(recorder.Body.Bytes(), out); err != nil {
		t.Fatalf("Failed to decode response %q: %v", recorder.Body.String(), err)
	}
}

func TestSearchEndpoint(t *testing.T) {
	service := &stubService{
		searchResult: &orchestrator.SearchResult{
			Page: &recipe.SearchPage{
				Recipes:      []recipe.Recipe{{ID: 1, Title: "Pasta"}},
				TotalResults: 1,
			},
			FromCache: true,
			Source:    orchestrator.SourceFreshCache,
		},
	}
	server := NewServer(service, nil, nil, zerolog.Nop())

	recorder := serveRequest(t, server, "/api/v1/recipes/search?q=Pasta&cuisine=italian&number=5")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var body searchResponse
	decodeJSON(t, recorder, &body)
	if !body.FromCache || body.Source != "fresh_cache" {
		t.Errorf("Missing provenance: %+v", body)
	}
	if body.TotalResults != 1 || len(body.Results) != 1 {
		t.Errorf("Unexpected results: %+v", body)
	}
	if service.lastQuery != "Pasta" {
		t.Errorf("Expected query to pass through, got %q", service.lastQuery)
	}
	if service.lastFilters.Cuisine != "italian" || service.lastFilters.Number != 5 {
		t.Errorf("Filters not parsed: %+v", service.lastFilters)
	}
}

func TestSearchRequiresQuery(t *testing.T) {
	server := NewServer(&stubService{}, nil, nil, zerolog.Nop())

	recorder := serveRequest(t, server, "/api/v1/recipes/search")
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for missing query, got %d", recorder.Code)
	}
}

func TestSearchRejectsBadNumber(t *testing.T) {
	server := NewServer(&stubService{}, nil, nil, zerolog.Nop())

	recorder := serveRequest(t, server, "/api/v1/recipes/search?q=pasta&number=lots")
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for bad number, got %d", recorder.Code)
	}
}

func TestGetByIDEndpoint(t *testing.T) {
	service := &stubService{
		recipeResult: &orchestrator.RecipeResult{
			Recipe:    &recipe.Recipe{ID: 42, Title: "Chili"},
			FromCache: false,
			Source:    orchestrator.SourceUpstream,
		},
	}
	server := NewServer(service, nil, nil, zerolog.Nop())

	recorder := serveRequest(t, server, "/api/v1/recipes/42")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	var body recipeResponse
	decodeJSON(t, recorder, &body)
	if body.Recipe == nil || body.Recipe.ID != 42 {
		t.Errorf("Unexpected recipe: %+v", body.Recipe)
	}
	if body.FromCache || body.Source != "upstream" {
		t.Errorf("Unexpected provenance: %+v", body)
	}
	if service.lastID != 42 {
		t.Errorf("Expected id 42, got %d", service.lastID)
	}
}

func TestGetByIDNotFound(t *testing.T) {
	service := &stubService{
		recipeResult: &orchestrator.RecipeResult{Source: orchestrator.SourceStatic, FromCache: true},
	}
	server := NewServer(service, nil, nil, zerolog.Nop())

	recorder := serveRequest(t, server, "/api/v1/recipes/999999")
	if recorder.Code != http.StatusNotFound {
		t.Errorf("Expected 404 for unknown recipe, got %d", recorder.Code)
	}
}

func TestGetByIDRejectsBadID(t *testing.T) {
	server := NewServer(&stubService{}, nil, nil, zerolog.Nop())

	for _, id := range []string{"abc", "-4", "0"} {
		recorder := serveRequest(t, server, "/api/v1/recipes/"+id)
		if recorder.Code != http.StatusBadRequest {
			t.Errorf("Expected 400 for id %q, got %d", id, recorder.Code)
		}
	}
}

func TestByIngredientsEndpoint(t *testing.T) {
	service := &stubService{
		matchResult: &orchestrator.IngredientsResult{
			Matches: &recipe.MatchList{Matches: []recipe.IngredientMatch{
				{Recipe: recipe.Recipe{ID: 3, Title: "Fried Rice"}, UsedIngredients: []string{"rice"}},
			}},
			FromCache: true,
			Source:    orchestrator.SourceStaleCache,
		},
	}
	server := NewServer(service, nil, nil, zerolog.Nop())

	recorder := serveRequest(t, server, "/api/v1/recipes/by-ingredients?ingredients=rice,%20egg%20,")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}

	if len(service.lastIngredients) != 2 || service.lastIngredients[0] != "rice" || service.lastIngredients[1] != "egg" {
		t.Errorf("Ingredients not parsed: %v", service.lastIngredients)
	}

	var body matchesResponse
	decodeJSON(t, recorder, &body)
	if body.Source != "stale_cache" || len(body.Matches) != 1 {
		t.Errorf("Unexpected response: %+v", body)
	}
}

func TestByIngredientsRequiresList(t *testing.T) {
	server := NewServer(&stubService{}, nil, nil, zerolog.Nop())

	recorder := serveRequest(t, server, "/api/v1/recipes/by-ingredients?ingredients=%20,%20")
	if recorder.Code != http.StatusBadRequest {
		t.Errorf("Expected 400 for empty ingredient list, got %d", recorder.Code)
	}
}

func TestPopularEndpoint(t *testing.T) {
	service := &stubService{
		popResult: &orchestrator.PopularResult{
			List:      &recipe.PopularList{Recipes: []recipe.Recipe{{ID: 5, Title: "Curry"}}},
			FromCache: true,
			Source:    orchestrator.SourceStatic,
		},
	}
	server := NewServer(service, nil, nil, zerolog.Nop())

	recorder := serveRequest(t, server, "/api/v1/recipes/popular?tags=vegan,quick&number=3")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d: %s", recorder.Code, recorder.Body.String())
	}
	if len(service.lastPopular.Tags) != 2 || service.lastPopular.Number != 3 {
		t.Errorf("Filters not parsed: %+v", service.lastPopular)
	}

	var body popularResponse
	decodeJSON(t, recorder, &body)
	if body.Source != "static" || len(body.Recipes) != 1 {
		t.Errorf("Unexpected response: %+v", body)
	}
}

func TestQuotaEndpoint(t *testing.T) {
	reader := &stubQuota{usage: &quota.Usage{Day: "2026-08-30", RequestCount: 12, Limit: 150}}
	server := NewServer(&stubService{}, reader, nil, zerolog.Nop())

	recorder := serveRequest(t, server, "/api/v1/quota")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}

	var usage quota.Usage
	decodeJSON(t, recorder, &usage)
	if usage.RequestCount != 12 || usage.Day != "2026-08-30" {
		t.Errorf("Unexpected usage: %+v", usage)
	}
}

func TestQuotaEndpointUnavailable(t *testing.T) {
	reader := &stubQuota{err: errors.New("ledger down")}
	server := NewServer(&stubService{}, reader, nil, zerolog.Nop())

	recorder := serveRequest(t, server, "/api/v1/quota")
	if recorder.Code != http.StatusServiceUnavailable {
		t.Errorf("Expected 503, got %d", recorder.Code)
	}
}

func TestHealthDegradedWhenStoreDown(t *testing.T) {
	ping := func(context.Context) error { return errors.New("connection refused") }
	server := NewServer(&stubService{}, nil, ping, zerolog.Nop())

	recorder := serveRequest(t, server, "/healthz")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Health must stay 200 when degraded, got %d", recorder.Code)
	}

	var body map[string]string
	decodeJSON(t, recorder, &body)
	if body["status"] != "degraded" {
		t.Errorf("Expected degraded status, got %+v", body)
	}
}

func TestHealthOK(t *testing.T) {
	ping := func(context.Context) error { return nil }
	server := NewServer(&stubService{}, nil, ping, zerolog.Nop())

	recorder := serveRequest(t, server, "/healthz")
	if recorder.Code != http.StatusOK {
		t.Fatalf("Expected 200, got %d", recorder.Code)
	}

	var body map[string]string
	decodeJSON(t, recorder, &body)
	if body["status"] != "ok" {
		t.Errorf("Expected ok status, got %+v", body)
	}
}

func TestCancelledRequestMapsToGatewayTimeout(t *testing.T) {
	service := &stubService{err: context.Canceled}
	server := NewServer(service, nil, nil, zerolog.Nop())

	recorder := serveRequest(t, server, "/api/v1/recipes/search?q=pasta")
	if recorder.Code != http.StatusGatewayTimeout {
		t.Errorf("Expected 504 for cancelled request, got %d", recorder.Code)
	}
}
