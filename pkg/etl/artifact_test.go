package etl

import (
	"bytes"
	"encoding/json"
	"testing"

	"github.com/traintrack/fdcsync/pkg/mapper"
	"github.com/traintrack/fdcsync/pkg/store"
)

type artifact struct {
	V           int               `json:"v"`
	CategoryMap map[string]string `json:"categoryMap"`
	Foods       [][]any           `json:"foods"`
}

func TestArtifactWriter(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewArtifactWriter(&buf, 2, mapper.CategoryMap())
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}

	records := []store.FoodRecord{
		{FDCID: 100, Name: "Apple", Calories: 52, Protein: 0.3, Carbs: 13.8, Fat: 0.2,
			ServingLabel: "100g", ServingGrams: 100, Category: mapper.CategoryFruit},
		{FDCID: 200, Name: "Cheddar Cheese", Calories: 403, Protein: 22.9, Carbs: 1.3, Fat: 33.1,
			ServingLabel: "28g", ServingGrams: 28, Category: mapper.CategoryDairy},
	}
	for _, r := range records {
		if err := w.Append(r); err != nil {
			t.Fatalf("append failed: %v", err)
		}
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}
	if w.Count() != 2 {
		t.Errorf("expected count 2, got %d", w.Count())
	}

	var got artifact
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("artifact is not valid JSON: %v\n%s", err, buf.String())
	}

	if got.V != 2 {
		t.Errorf("expected version 2, got %d", got.V)
	}
	if got.CategoryMap["f"] != mapper.CategoryFruit {
		t.Errorf("category map missing fruit code: %v", got.CategoryMap)
	}
	if len(got.Foods) != 2 {
		t.Fatalf("expected 2 food tuples, got %d", len(got.Foods))
	}

	// Tuples are positional: [fdcId, name, calories, protein, carbs, fat,
	// servingLabel, servingGrams, categoryCode].
	first := got.Foods[0]
	if len(first) != 9 {
		t.Fatalf("expected 9 tuple fields, got %d", len(first))
	}
	if first[0].(float64) != 100 || first[1].(string) != "Apple" {
		t.Errorf("unexpected identity fields: %v", first)
	}
	if first[2].(float64) != 52 || first[3].(float64) != 0.3 {
		t.Errorf("unexpected nutrient fields: %v", first)
	}
	if first[6].(string) != "100g" || first[7].(float64) != 100 {
		t.Errorf("unexpected serving fields: %v", first)
	}
	if first[8].(string) != "f" {
		t.Errorf("expected category code f, got %v", first[8])
	}
	if got.Foods[1][8].(string) != "d" {
		t.Errorf("expected category code d, got %v", got.Foods[1][8])
	}
}

func TestArtifactWriter_EmptyFoods(t *testing.T) {
	var buf bytes.Buffer
	w, err := NewArtifactWriter(&buf, 1, mapper.CategoryMap())
	if err != nil {
		t.Fatalf("failed to create writer: %v", err)
	}
	if err := w.Close(); err != nil {
		t.Fatalf("close failed: %v", err)
	}

	var got artifact
	if err := json.Unmarshal(buf.Bytes(), &got); err != nil {
		t.Fatalf("empty artifact is not valid JSON: %v\n%s", err, buf.String())
	}
	if len(got.Foods) != 0 {
		t.Errorf("expected no foods, got %v", got.Foods)
	}
}
