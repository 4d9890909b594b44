package upstream

import (
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/plateful/recipecache/pkg/recipe"
)

// Endpoint names for quota ledger accounting. One adapter call is one
// unit of quota usage regardless of internal HTTP round trips.
const (
	EndpointSearch      = "search"
	EndpointRecipe      = "recipe"
	EndpointIngredients = "ingredients"
	EndpointRandom      = "random"
)

// Search performs a free-text recipe search.
func (c *Client) Search(ctx context.Context, query string, filters recipe.SearchFilters) (*recipe.SearchPage, error) {
	params := url.Values{}
	if query != "" {
		params.Set("query", query)
	}
	for name, value := range filters.Params() {
		params.Set(name, value)
	}
	// Inline recipe details so cached pages are useful without a second
	// enrichment call per result.
	params.Set("addRecipeInformation", "true")

	var raw providerSearchResponse
	if err := c.getJSON(ctx, EndpointSearch, "/recipes/complexSearch", params, &raw); err != nil {
		return nil, err
	}

	page := &recipe.SearchPage{
		Recipes:      make([]recipe.Recipe, 0, len(raw.Results)),
		TotalResults: raw.TotalResults,
	}
	for _, pr := range raw.Results {
		page.Recipes = append(page.Recipes, normalizeRecipe(pr))
	}
	return page, nil
}

// GetByID fetches full information for a single recipe.
func (c *Client) GetByID(ctx context.Context, id int64) (*recipe.Recipe, error) {
	params := url.Values{}
	params.Set("includeNutrition", "false")

	var raw providerRecipe
	path := fmt.Sprintf("/recipes/%d/information", id)
	if err := c.getJSON(ctx, EndpointRecipe, path, params, &raw); err != nil {
		return nil, err
	}

	normalized := normalizeRecipe(raw)
	return &normalized, nil
}

// FindByIngredients searches for recipes using the given ingredients,
// ranked to maximize used ingredients.
func (c *Client) FindByIngredients(ctx context.Context, ingredients []string) (*recipe.MatchList, error) {
	params := url.Values{}
	params.Set("ingredients", strings.Join(ingredients, ","))
	params.Set("ranking", "2")
	params.Set("ignorePantry", "true")
	params.Set("number", "10")

	var raw []providerIngredientMatch
	if err := c.getJSON(ctx, EndpointIngredients, "/recipes/findByIngredients", params, &raw); err != nil {
		return nil, err
	}

	list := &recipe.MatchList{Matches: make([]recipe.IngredientMatch, 0, len(raw))}
	for _, pm := range raw {
		list.Matches = append(list.Matches, normalizeMatch(pm))
	}
	return list, nil
}

// Popular fetches a popular/random recipe list, optionally narrowed by tags.
func (c *Client) Popular(ctx context.Context, filters recipe.PopularFilters) (*recipe.PopularList, error) {
	params := url.Values{}
	number := filters.Number
	if number <= 0 {
		number = 10
	}
	params.Set("number", fmt.Sprintf("%d", number))
	if len(filters.Tags) > 0 {
		params.Set("tags", strings.Join(filters.Tags, ","))
	}

	var raw providerRandomResponse
	if err := c.getJSON(ctx, EndpointRandom, "/recipes/random", params, &raw); err != nil {
		return nil, err
	}

	list := &recipe.PopularList{Recipes: make([]recipe.Recipe, 0, len(raw.Recipes))}
	for _, pr := range raw.Recipes {
		list.Recipes = append(list.Recipes, normalizeRecipe(pr))
	}
	return list, nil
}
