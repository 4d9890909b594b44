package upstream

import (
	"html"
	"regexp"
	"strings"

	"github.com/plateful/recipecache/pkg/recipe"
)

// Provider wire shapes. Only the fields the cache payloads need are
// decoded; everything else is dropped at the boundary.

type providerSearchResponse struct {
	Results      []providerRecipe `json:"results"`
	TotalResults int              `json:"totalResults"`
}

type providerRandomResponse struct {
	Recipes []providerRecipe `json:"recipes"`
}

type providerRecipe struct {
	ID                   int64                 `json:"id"`
	Title                string                `json:"title"`
	Image                string                `json:"image"`
	Summary              string                `json:"summary"`
	ReadyInMinutes       int                   `json:"readyInMinutes"`
	Servings             int                   `json:"servings"`
	SourceURL            string                `json:"sourceUrl"`
	Diets                []string              `json:"diets"`
	ExtendedIngredients  []providerIngredient  `json:"extendedIngredients"`
	AnalyzedInstructions []providerInstruction `json:"analyzedInstructions"`
}

type providerIngredient struct {
	ID       int64   `json:"id"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount"`
	Unit     string  `json:"unit"`
	Original string  `json:"original"`
}

type providerInstruction struct {
	Name  string         `json:"name"`
	Steps []providerStep `json:"steps"`
}

type providerStep struct {
	Number int    `json:"number"`
	Step   string `json:"step"`
}

type providerIngredientMatch struct {
	ID                int64                `json:"id"`
	Title             string               `json:"title"`
	Image             string               `json:"image"`
	UsedIngredients   []providerIngredient `json:"usedIngredients"`
	MissedIngredients []providerIngredient `json:"missedIngredients"`
}

var (
	htmlTagPattern    = regexp.MustCompile(`<[^>]*>`)
	whitespacePattern = regexp.MustCompile(`\s+`)
)

// stripHTML removes markup from provider free-text fields. Summaries
// arrive as HTML fragments with entity escapes.
func stripHTML(s string) string {
	plain := htmlTagPattern.ReplaceAllString(s, "")
	plain = html.UnescapeString(plain)
	return strings.TrimSpace(whitespacePattern.ReplaceAllString(plain, " "))
}

// normalizeRecipe maps a provider recipe into the canonical flattened
// shape used by cache payloads.
func normalizeRecipe(p providerRecipe) recipe.Recipe {
	r := recipe.Recipe{
		ID:             p.ID,
		Title:          p.Title,
		Image:          p.Image,
		Summary:        stripHTML(p.Summary),
		ReadyInMinutes: p.ReadyInMinutes,
		Servings:       p.Servings,
		SourceURL:      p.SourceURL,
		Diets:          p.Diets,
	}

	for _, pi := range p.ExtendedIngredients {
		r.Ingredients = append(r.Ingredients, recipe.Ingredient{
			ID:       pi.ID,
			Name:     pi.Name,
			Amount:   pi.Amount,
			Unit:     pi.Unit,
			Original: pi.Original,
		})
	}

	// Instruction blocks are flattened into one continuous step list.
	number := 0
	for _, block := range p.AnalyzedInstructions {
		for _, step := range block.Steps {
			number++
			r.Instructions = append(r.Instructions, recipe.Step{
				Number: number,
				Text:   strings.TrimSpace(step.Step),
			})
		}
	}

	return r
}

// normalizeMatch maps a provider ingredient-search result into the
// canonical match shape, keeping only ingredient names.
func normalizeMatch(p providerIngredientMatch) recipe.IngredientMatch {
	match := recipe.IngredientMatch{
		Recipe: recipe.Recipe{
			ID:    p.ID,
			Title: p.Title,
			Image: p.Image,
		},
	}
	for _, pi := range p.UsedIngredients {
		match.UsedIngredients = append(match.UsedIngredients, pi.Name)
	}
	for _, pi := range p.MissedIngredients {
		match.MissedIngredients = append(match.MissedIngredients, pi.Name)
	}
	return match
}
