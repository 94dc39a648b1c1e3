// Package mapper converts raw FoodData Central records into compact stored
// food records. It is shared by the online sync and the offline bulk ETL so
// both paths produce byte-identical output for the same input.
package mapper

import (
	"math"
	"strconv"
	"strings"
	"unicode"

	"github.com/traintrack/fdcsync/pkg/fdc"
	"github.com/traintrack/fdcsync/pkg/store"
)

// Nutrient ids tracked by the application. Values arrive normalized to a
// per-100g (or per-100ml) basis.
const (
	NutrientEnergy  = 1008 // Energy, kcal
	NutrientProtein = 1003 // Protein, g
	NutrientFat     = 1004 // Total lipid (fat), g
	NutrientCarbs   = 1005 // Carbohydrate, by difference, g
)

// NutrientIDs lists the tracked ids in accumulator slot order
// (energy, protein, fat, carbs).
var NutrientIDs = [4]int{NutrientEnergy, NutrientProtein, NutrientFat, NutrientCarbs}

// Category codes stored per record.
const (
	CategoryProtein    = "protein"
	CategoryDairy      = "dairy"
	CategoryGrain      = "grain"
	CategoryFruit      = "fruit"
	CategoryVegetable  = "vegetable"
	CategorySnack      = "snack"
	CategoryBeverage   = "beverage"
	CategoryLegume     = "legume"
	CategoryRestaurant = "restaurant"
	CategoryDefault    = "usda"
)

const (
	maxNameRunes = 80
	ellipsis     = "…"
)

// categoryKeywords maps free-text source categories to category codes by
// case-insensitive substring match, evaluated in declared order.
var categoryKeywords = []struct {
	category string
	keywords []string
}{
	{CategoryDairy, []string{"dairy", "cheese", "milk", "yogurt", "egg", "cream"}},
	{CategoryLegume, []string{"bean", "legume", "lentil", "nut", "seed", "tofu", "soy", "pea"}},
	{CategoryProtein, []string{"meat", "poultry", "chicken", "beef", "pork", "turkey", "fish", "seafood", "sausage", "deli", "jerky"}},
	{CategoryGrain, []string{"bread", "cereal", "pasta", "grain", "rice", "bakery", "tortilla", "flour"}},
	{CategoryFruit, []string{"fruit"}},
	{CategoryVegetable, []string{"vegetable", "salad", "greens"}},
	{CategorySnack, []string{"snack", "candy", "chocolate", "chip", "cookie", "dessert", "ice cream", "cake", "pastry"}},
	{CategoryBeverage, []string{"beverage", "drink", "juice", "soda", "coffee", "tea", "water"}},
	{CategoryRestaurant, []string{"restaurant", "fast food", "pizza"}},
}

// codeByCategory maps category codes to the single-character codes used in
// the pre-built artifact. Keeping one byte per record instead of the full
// category string keeps the artifact small.
var codeByCategory = map[string]string{
	CategoryProtein:    "p",
	CategoryDairy:      "d",
	CategoryGrain:      "g",
	CategoryFruit:      "f",
	CategoryVegetable:  "v",
	CategorySnack:      "s",
	CategoryBeverage:   "b",
	CategoryLegume:     "l",
	CategoryRestaurant: "r",
	CategoryDefault:    "u",
}

// Map transforms one raw record into a stored record. It returns ok=false
// when the record should be skipped: a computed calorie value of zero or
// below is unusable for tracking and a reasonable signal of missing source
// data. Map is pure; malformed input is absorbed by defaults, never an error.
func Map(f fdc.Food) (store.FoodRecord, bool) {
	var energy, protein, fat, carbs float64
	for _, n := range f.FoodNutrients {
		switch n.NutrientID {
		case NutrientEnergy:
			energy = n.Value
		case NutrientProtein:
			protein = n.Value
		case NutrientFat:
			fat = n.Value
		case NutrientCarbs:
			carbs = n.Value
		}
	}

	grams := 100
	if f.ServingSize > 0 {
		grams = int(math.Round(f.ServingSize))
	}
	unit := "g"
	if isMilliliterUnit(f.ServingSizeUnit) {
		unit = "ml"
	}

	scale := float64(grams) / 100.0
	calories := int(math.Round(energy * scale))
	if calories <= 0 {
		return store.FoodRecord{}, false
	}

	name := truncateName(TitleCase(f.Description))

	return store.FoodRecord{
		FDCID:        f.FDCID,
		Name:         name,
		SearchKey:    strings.ToLower(name),
		Calories:     calories,
		Protein:      round1(protein * scale),
		Carbs:        round1(carbs * scale),
		Fat:          round1(fat * scale),
		ServingLabel: strconv.Itoa(grams) + unit,
		ServingGrams: grams,
		Category:     Classify(f.CategoryLabel()),
	}, true
}

// TitleCase lowercases the description, splits it on whitespace and commas,
// capitalizes each token and rejoins with single spaces. A duplicated leading
// brand token ("KRAFT KRAFT SHREDDED CHEDDAR") is collapsed to one.
func TitleCase(s string) string {
	fields := strings.FieldsFunc(strings.ToLower(s), func(r rune) bool {
		return unicode.IsSpace(r) || r == ','
	})
	if len(fields) >= 2 && fields[0] == fields[1] {
		fields = fields[1:]
	}
	for i, f := range fields {
		r := []rune(f)
		r[0] = unicode.ToUpper(r[0])
		fields[i] = string(r)
	}
	return strings.Join(fields, " ")
}

// Classify maps a free-text category label to one of the fixed category
// codes. Unknown or empty labels fall back to the generic source category.
func Classify(label string) string {
	if label == "" {
		return CategoryDefault
	}
	l := strings.ToLower(label)
	for _, entry := range categoryKeywords {
		for _, kw := range entry.keywords {
			if strings.Contains(l, kw) {
				return entry.category
			}
		}
	}
	return CategoryDefault
}

// CodeFor returns the single-character artifact code for a category.
func CodeFor(category string) string {
	if c, ok := codeByCategory[category]; ok {
		return c
	}
	return codeByCategory[CategoryDefault]
}

// CategoryMap returns the artifact's code-to-name mapping.
func CategoryMap() map[string]string {
	m := make(map[string]string, len(codeByCategory))
	for category, code := range codeByCategory {
		m[code] = category
	}
	return m
}

func truncateName(name string) string {
	r := []rune(name)
	if len(r) <= maxNameRunes {
		return name
	}
	return string(r[:maxNameRunes]) + ellipsis
}

func isMilliliterUnit(unit string) bool {
	u := strings.ToLower(strings.TrimSpace(unit))
	return strings.HasPrefix(u, "ml") || u == "mlt" || strings.Contains(u, "milli")
}

func round1(v float64) float64 {
	return math.Round(v*10) / 10
}
