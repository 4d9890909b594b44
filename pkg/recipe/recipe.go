// Package recipe defines the canonical payload shapes stored in the cache.
// Each entity kind (search page, single recipe, ingredient match list,
// popular list) has its own explicit schema instead of an untyped blob.
package recipe

// Recipe is the canonical flattened recipe shape. Upstream responses are
// normalized into this form before caching: HTML is stripped from the
// summary and nested ingredient/instruction structures are flattened.
type Recipe struct {
	ID             int64        `json:"id"`
	Title          string       `json:"title"`
	Image          string       `json:"image,omitempty"`
	Summary        string       `json:"summary,omitempty"`
	ReadyInMinutes int          `json:"ready_in_minutes,omitempty"`
	Servings       int          `json:"servings,omitempty"`
	SourceURL      string       `json:"source_url,omitempty"`
	Diets          []string     `json:"diets,omitempty"`
	Ingredients    []Ingredient `json:"ingredients,omitempty"`
	Instructions   []Step       `json:"instructions,omitempty"`
}

// Ingredient is a single flattened recipe ingredient.
type Ingredient struct {
	ID       int64   `json:"id,omitempty"`
	Name     string  `json:"name"`
	Amount   float64 `json:"amount,omitempty"`
	Unit     string  `json:"unit,omitempty"`
	Original string  `json:"original,omitempty"`
}

// Step is a single instruction step.
type Step struct {
	Number int    `json:"number"`
	Text   string `json:"text"`
}

// SearchPage is the payload kind for free-text search results.
type SearchPage struct {
	Recipes      []Recipe `json:"recipes"`
	TotalResults int      `json:"total_results"`
}

// IngredientMatch is one result of an ingredient-based search: a recipe
// plus which of the requested ingredients it uses or lacks.
type IngredientMatch struct {
	Recipe            Recipe   `json:"recipe"`
	UsedIngredients   []string `json:"used_ingredients,omitempty"`
	MissedIngredients []string `json:"missed_ingredients,omitempty"`
}

// MatchList is the payload kind for ingredient search results.
type MatchList struct {
	Matches []IngredientMatch `json:"matches"`
}

// PopularList is the payload kind for popular/random recipe lists.
type PopularList struct {
	Recipes []Recipe `json:"recipes"`
}
