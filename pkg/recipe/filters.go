package recipe

import "strconv"

// SearchFilters narrows a free-text search. Zero values mean "not set"
// and are omitted from both the upstream request and the cache key.
type SearchFilters struct {
	Cuisine      string
	Diet         string
	Intolerances string
	MaxReadyTime int
	Number       int
	Offset       int
}

// Params returns the filter fields as a string map suitable for cache key
// derivation and upstream query building. Only set fields appear.
func (f SearchFilters) Params() map[string]string {
	params := make(map[string]string)
	if f.Cuisine != "" {
		params["cuisine"] = f.Cuisine
	}
	if f.Diet != "" {
		params["diet"] = f.Diet
	}
	if f.Intolerances != "" {
		params["intolerances"] = f.Intolerances
	}
	if f.MaxReadyTime > 0 {
		params["maxReadyTime"] = strconv.Itoa(f.MaxReadyTime)
	}
	if f.Number > 0 {
		params["number"] = strconv.Itoa(f.Number)
	}
	if f.Offset > 0 {
		params["offset"] = strconv.Itoa(f.Offset)
	}
	return params
}

// PopularFilters narrows a popular/random recipe request.
type PopularFilters struct {
	Tags   []string
	Number int
}

// Params returns the non-list filter fields as a string map.
// Tags are list-valued and handled separately by the key codec.
func (f PopularFilters) Params() map[string]string {
	params := make(map[string]string)
	if f.Number > 0 {
		params["number"] = strconv.Itoa(f.Number)
	}
	return params
}
