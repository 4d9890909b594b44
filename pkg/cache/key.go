package cache

import (
	"fmt"
	"sort"
	"strings"

	"github.com/plateful/recipecache/pkg/recipe"
)

// Operation identifies one logical upstream operation. It doubles as the
// cache key prefix and as the entity kind discriminator for TTL lookup.
type Operation string

const (
	// OpSearch is free-text recipe search.
	OpSearch Operation = "search"

	// OpRecipe is single-recipe lookup by id.
	OpRecipe Operation = "recipe"

	// OpIngredients is search by ingredient list.
	OpIngredients Operation = "ingredients"

	// OpRandom is the popular/random recipe list.
	OpRandom Operation = "random"
)

// Key identifies a cached response. Two requests that differ only in
// parameter order or term-list order produce the same key.
type Key struct {
	// Op is the logical operation, used as the key prefix to prevent
	// cross-kind collisions.
	Op Operation

	// Params are the request parameters (sorted lexicographically by
	// name before serialization).
	Params map[string]string

	// Terms is a list-valued input such as an ingredient list or tag
	// set (sorted before joining).
	Terms []string
}

// String generates a deterministic cache key string.
// Format: op:param1=val1:param2=val2:terms=a+b+c
//
// Example:
//
//	search:diet=vegan:q=pasta
//	ingredients:terms=chicken+rice
func (k Key) String() string {
	parts := []string{string(k.Op)}

	if len(k.Params) > 0 {
		names := make([]string, 0, len(k.Params))
		for name := range k.Params {
			names = append(names, name)
		}
		sort.Strings(names)

		for _, name := range names {
			parts = append(parts, fmt.Sprintf("%s=%s", name, k.Params[name]))
		}
	}

	if len(k.Terms) > 0 {
		terms := make([]string, len(k.Terms))
		for i, term := range k.Terms {
			terms[i] = strings.ToLower(strings.TrimSpace(term))
		}
		sort.Strings(terms)
		parts = append(parts, "terms="+strings.Join(terms, "+"))
	}

	return strings.Join(parts, ":")
}

// SearchKey derives the cache key for a free-text search request.
func SearchKey(query string, filters recipe.SearchFilters) Key {
	params := filters.Params()
	if query != "" {
		params["q"] = strings.ToLower(strings.TrimSpace(query))
	}
	return Key{Op: OpSearch, Params: params}
}

// RecipeKey derives the cache key for a single-recipe lookup.
func RecipeKey(id int64) Key {
	return Key{Op: OpRecipe, Params: map[string]string{"id": fmt.Sprintf("%d", id)}}
}

// IngredientsKey derives the cache key for an ingredient search.
func IngredientsKey(ingredients []string) Key {
	return Key{Op: OpIngredients, Terms: ingredients}
}

// PopularKey derives the cache key for a popular/random recipe request.
func PopularKey(filters recipe.PopularFilters) Key {
	return Key{Op: OpRandom, Params: filters.Params(), Terms: filters.Tags}
}
