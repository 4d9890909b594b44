// Package static provides the bundled read-only recipe dataset used as
// the last resort of the fallback chain. It is loaded once at process
// start, never mutated, and its lookups never fail; they return zero or
// more results.
package static

import (
	_ "embed"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/plateful/recipecache/pkg/recipe"
)

//go:embed recipes.json
var recipesJSON []byte

// Dataset is the in-memory fallback recipe collection.
type Dataset struct {
	recipes []recipe.Recipe
	byID    map[int64]int
}

// Load parses the bundled dataset. It is intended to run once at startup;
// a parse failure means a broken build, not a runtime condition.
func Load() (*Dataset, error) {
	var recipes []recipe.Recipe
	if err := json.Unmarshal(recipesJSON, &recipes); err != nil {
		return nil, fmt.Errorf("parse bundled recipes: %w", err)
	}

	ds := &Dataset{
		recipes: recipes,
		byID:    make(map[int64]int, len(recipes)),
	}
	for i, r := range recipes {
		ds.byID[r.ID] = i
	}
	return ds, nil
}

// Len returns the number of bundled recipes.
func (d *Dataset) Len() int {
	return len(d.recipes)
}

// Search does a best-effort substring match on title and summary.
// An empty query matches everything.
func (d *Dataset) Search(query string) *recipe.SearchPage {
	query = strings.ToLower(strings.TrimSpace(query))

	page := &recipe.SearchPage{Recipes: []recipe.Recipe{}}
	for _, r := range d.recipes {
		if query == "" ||
			strings.Contains(strings.ToLower(r.Title), query) ||
			strings.Contains(strings.ToLower(r.Summary), query) {
			page.Recipes = append(page.Recipes, r)
		}
	}
	page.TotalResults = len(page.Recipes)
	return page
}

// ByID returns the bundled recipe with the given id, or nil.
func (d *Dataset) ByID(id int64) *recipe.Recipe {
	i, ok := d.byID[id]
	if !ok {
		return nil
	}
	r := d.recipes[i]
	return &r
}

// ByIngredients matches recipes whose ingredient names contain any of
// the requested ingredients as a substring.
func (d *Dataset) ByIngredients(ingredients []string) *recipe.MatchList {
	wanted := make([]string, 0, len(ingredients))
	for _, ing := range ingredients {
		ing = strings.ToLower(strings.TrimSpace(ing))
		if ing != "" {
			wanted = append(wanted, ing)
		}
	}

	list := &recipe.MatchList{Matches: []recipe.IngredientMatch{}}
	if len(wanted) == 0 {
		return list
	}

	for _, r := range d.recipes {
		var used, missed []string
		for _, want := range wanted {
			found := false
			for _, have := range r.Ingredients {
				if strings.Contains(strings.ToLower(have.Name), want) {
					found = true
					break
				}
			}
			if found {
				used = append(used, want)
			} else {
				missed = append(missed, want)
			}
		}
		if len(used) > 0 {
			list.Matches = append(list.Matches, recipe.IngredientMatch{
				Recipe:            r,
				UsedIngredients:   used,
				MissedIngredients: missed,
			})
		}
	}
	return list
}

// Popular returns up to count bundled recipes, optionally filtered by
// diet tags.
func (d *Dataset) Popular(tags []string, count int) *recipe.PopularList {
	if count <= 0 || count > len(d.recipes) {
		count = len(d.recipes)
	}

	list := &recipe.PopularList{Recipes: []recipe.Recipe{}}
	for _, r := range d.recipes {
		if len(list.Recipes) >= count {
			break
		}
		if matchesTags(r, tags) {
			list.Recipes = append(list.Recipes, r)
		}
	}
	return list
}

func matchesTags(r recipe.Recipe, tags []string) bool {
	if len(tags) == 0 {
		return true
	}
	for _, tag := range tags {
		tag = strings.ToLower(strings.TrimSpace(tag))
		for _, diet := range r.Diets {
			if strings.Contains(strings.ToLower(diet), tag) {
				return true
			}
		}
	}
	return false
}
