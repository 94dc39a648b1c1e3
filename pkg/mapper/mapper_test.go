package mapper

import (
	"strings"
	"testing"

	"github.com/traintrack/fdcsync/pkg/fdc"
)

func food(desc string, serving float64, unit string, energy, protein, fat, carbs float64) fdc.Food {
	return fdc.Food{
		FDCID:           100,
		Description:     desc,
		ServingSize:     serving,
		ServingSizeUnit: unit,
		FoodNutrients: []fdc.FoodNutrient{
			{NutrientID: NutrientEnergy, Value: energy},
			{NutrientID: NutrientProtein, Value: protein},
			{NutrientID: NutrientFat, Value: fat},
			{NutrientID: NutrientCarbs, Value: carbs},
		},
	}
}

func TestMap_ScalesNutrientsToServing(t *testing.T) {
	// 250 kcal per 100g at a 150g serving.
	rec, ok := Map(food("Cheddar cheese", 150, "g", 250, 10, 20, 2))
	if !ok {
		t.Fatal("expected record, got skip")
	}

	if rec.Calories != 375 {
		t.Errorf("expected 375 calories, got %d", rec.Calories)
	}
	if rec.Protein != 15.0 {
		t.Errorf("expected 15.0 protein, got %v", rec.Protein)
	}
	if rec.Fat != 30.0 {
		t.Errorf("expected 30.0 fat, got %v", rec.Fat)
	}
	if rec.Carbs != 3.0 {
		t.Errorf("expected 3.0 carbs, got %v", rec.Carbs)
	}
	if rec.ServingLabel != "150g" {
		t.Errorf("expected serving label 150g, got %s", rec.ServingLabel)
	}
	if rec.ServingGrams != 150 {
		t.Errorf("expected 150 serving grams, got %d", rec.ServingGrams)
	}
}

func TestMap_DefaultsToHundredGrams(t *testing.T) {
	rec, ok := Map(food("Apples, raw", 0, "", 52, 0.3, 0.2, 14))
	if !ok {
		t.Fatal("expected record, got skip")
	}
	if rec.Calories != 52 {
		t.Errorf("expected 52 calories, got %d", rec.Calories)
	}
	if rec.ServingLabel != "100g" {
		t.Errorf("expected serving label 100g, got %s", rec.ServingLabel)
	}
}

func TestMap_MilliliterServing(t *testing.T) {
	rec, ok := Map(food("Orange juice", 240, "MLT", 45, 0.7, 0.2, 10.4))
	if !ok {
		t.Fatal("expected record, got skip")
	}
	if rec.ServingLabel != "240ml" {
		t.Errorf("expected serving label 240ml, got %s", rec.ServingLabel)
	}
}

func TestMap_SkipsZeroCalorieRecords(t *testing.T) {
	if _, ok := Map(food("Water", 0, "", 0, 0, 0, 0)); ok {
		t.Error("expected zero-calorie record to be skipped")
	}
	if _, ok := Map(food("Mystery", 100, "g", -5, 0, 0, 0)); ok {
		t.Error("expected negative-calorie record to be skipped")
	}
}

func TestMap_SearchKeyIsLowercasedName(t *testing.T) {
	rec, ok := Map(food("CHEDDAR CHEESE", 0, "", 400, 25, 33, 1))
	if !ok {
		t.Fatal("expected record, got skip")
	}
	if rec.Name != "Cheddar Cheese" {
		t.Errorf("expected name Cheddar Cheese, got %s", rec.Name)
	}
	if rec.SearchKey != "cheddar cheese" {
		t.Errorf("expected search key cheddar cheese, got %s", rec.SearchKey)
	}
}

func TestMap_IsIdempotent(t *testing.T) {
	in := food("KRAFT SHREDDED CHEDDAR", 28, "g", 400, 25, 33, 1)
	first, ok := Map(in)
	if !ok {
		t.Fatal("expected record, got skip")
	}
	second, ok := Map(in)
	if !ok {
		t.Fatal("expected record on second map, got skip")
	}
	if first != second {
		t.Errorf("mapping not deterministic: %+v vs %+v", first, second)
	}
}

func TestTitleCase(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"CHEDDAR CHEESE", "Cheddar Cheese"},
		{"Apples, raw, with skin", "Apples Raw With Skin"},
		{"KRAFT KRAFT SHREDDED CHEDDAR CHEESE", "Kraft Shredded Cheddar Cheese"},
		{"milk,  whole", "Milk Whole"},
		{"egg", "Egg"},
		{"", ""},
	}

	for _, tt := range tests {
		if got := TitleCase(tt.in); got != tt.want {
			t.Errorf("TitleCase(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestMap_TruncatesLongNames(t *testing.T) {
	long := strings.Repeat("Verylongword ", 20)
	rec, ok := Map(food(long, 0, "", 100, 1, 1, 1))
	if !ok {
		t.Fatal("expected record, got skip")
	}
	r := []rune(rec.Name)
	if len(r) != maxNameRunes+1 {
		t.Errorf("expected %d runes, got %d", maxNameRunes+1, len(r))
	}
	if !strings.HasSuffix(rec.Name, ellipsis) {
		t.Errorf("expected truncated name to end with ellipsis, got %q", rec.Name)
	}
}

func TestClassify(t *testing.T) {
	tests := []struct {
		label string
		want  string
	}{
		{"Dairy and Egg Products", CategoryDairy},
		{"Cheese", CategoryDairy},
		{"Poultry Products", CategoryProtein},
		{"Breads & Buns", CategoryGrain},
		{"Fruits and Fruit Juices", CategoryFruit},
		{"Frozen Vegetables", CategoryVegetable},
		{"Chocolate", CategorySnack},
		{"Soda", CategoryBeverage},
		{"Canned Beans", CategoryLegume},
		{"Fast Foods", CategoryRestaurant},
		{"Spices and Herbs", CategoryDefault},
		{"", CategoryDefault},
	}

	for _, tt := range tests {
		if got := Classify(tt.label); got != tt.want {
			t.Errorf("Classify(%q) = %q, want %q", tt.label, got, tt.want)
		}
	}
}

func TestClassify_DairyBeatsProtein(t *testing.T) {
	// "Dairy and Egg Products" should never land in protein even though eggs
	// are protein-adjacent; dairy keywords are checked first.
	if got := Classify("Dairy and Egg Products"); got != CategoryDairy {
		t.Errorf("expected dairy, got %s", got)
	}
}

func TestCodeFor(t *testing.T) {
	if got := CodeFor(CategoryDairy); got != "d" {
		t.Errorf("expected d, got %s", got)
	}
	if got := CodeFor("nonsense"); got != "u" {
		t.Errorf("expected fallback u, got %s", got)
	}
}

func TestCategoryMap_CoversAllCategories(t *testing.T) {
	m := CategoryMap()
	if len(m) != 10 {
		t.Errorf("expected 10 category codes, got %d", len(m))
	}
	if m["d"] != CategoryDairy {
		t.Errorf("expected d -> dairy, got %s", m["d"])
	}
	if m["u"] != CategoryDefault {
		t.Errorf("expected u -> usda, got %s", m["u"])
	}
}

func TestMap_BrandedCategoryPreferred(t *testing.T) {
	f := food("Shredded cheese", 28, "g", 400, 25, 33, 1)
	f.FoodCategory = "Fruits"
	f.BrandedFoodCategory = "Cheese"
	rec, ok := Map(f)
	if !ok {
		t.Fatal("expected record, got skip")
	}
	if rec.Category != CategoryDairy {
		t.Errorf("expected branded category to win, got %s", rec.Category)
	}
}
