// Package fdc implements a client for the USDA FoodData Central search API.
// It wraps every request with client-side rate pacing and a retry/backoff
// policy tuned for the API's per-hour quota.
package fdc

// Dataset partitions, processed in this declared order. Page numbers inside a
// partition only make sense relative to a fixed partition order, so callers
// must not reorder this slice.
var DefaultPartitions = []string{"Foundation", "SR Legacy", "Branded"}

// SearchRequest is the POST body for the /v1/foods/search endpoint.
type SearchRequest struct {
	Query      string   `json:"query"`
	DataType   []string `json:"dataType"`
	PageSize   int      `json:"pageSize"`
	PageNumber int      `json:"pageNumber"`
}

// FoodNutrient is one nutrient measurement attached to a food, normalized by
// the source to a per-100g (or per-100ml) basis.
type FoodNutrient struct {
	NutrientID   int     `json:"nutrientId"`
	NutrientName string  `json:"nutrientName"`
	UnitName     string  `json:"unitName"`
	Value        float64 `json:"value"`
}

// Food is one raw record as returned by the search endpoint. Optional fields
// decode to their zero value; downstream mapping applies defaults.
type Food struct {
	FDCID               int64          `json:"fdcId"`
	Description         string         `json:"description"`
	DataType            string         `json:"dataType"`
	ServingSize         float64        `json:"servingSize"`
	ServingSizeUnit     string         `json:"servingSizeUnit"`
	BrandedFoodCategory string         `json:"brandedFoodCategory"`
	FoodCategory        string         `json:"foodCategory"`
	FoodNutrients       []FoodNutrient `json:"foodNutrients"`
}

// CategoryLabel returns the best available free-text category for the food.
// Branded records carry brandedFoodCategory, the other partitions foodCategory.
func (f Food) CategoryLabel() string {
	if f.BrandedFoodCategory != "" {
		return f.BrandedFoodCategory
	}
	return f.FoodCategory
}

// SearchResponse is the paginated response from the search endpoint.
type SearchResponse struct {
	TotalHits   int    `json:"totalHits"`
	TotalPages  int    `json:"totalPages"`
	CurrentPage int    `json:"currentPage"`
	Foods       []Food `json:"foods"`
}
