package etl

import (
	"context"
	"encoding/csv"
	"io"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"

	"github.com/traintrack/fdcsync/pkg/errors"
	"github.com/traintrack/fdcsync/pkg/fdc"
	"github.com/traintrack/fdcsync/pkg/mapper"
)

// nutrientAccumulator holds the four tracked values for one food in slot
// order energy, protein, fat, carbs. A fixed array instead of a record type
// keeps per-entry overhead small across millions of distinct foods.
type nutrientAccumulator [4]float64

// brandedInfo carries the serving size and category from branded_food.csv.
type brandedInfo struct {
	servingSize float64
	servingUnit string
	category    string
}

// processPartition joins the partition's CSV files and streams mapped
// records into the artifact. The nutrient file is pre-filtered and then held
// as a compact id-to-accumulator map; category and serving lookups are small
// enough to load fully; food.csv is streamed row by row and never held whole.
func (p *Pipeline) processPartition(ctx context.Context, ar Archive, dir, work string, writer *ArtifactWriter) error {
	nutPath, err := findFile(dir, "food_nutrient.csv")
	if err != nil {
		return err
	}
	filteredPath := filepath.Join(work, "food_nutrient_filtered.csv")
	if _, _, err := FilterNutrientFile(nutPath, filteredPath); err != nil {
		return err
	}

	nutrients, err := loadNutrients(filteredPath)
	if err != nil {
		return err
	}
	if err := os.Remove(filteredPath); err != nil {
		return errors.Wrap(err, "failed to remove filtered file")
	}

	categories, err := loadCategories(dir)
	if err != nil {
		return err
	}

	var branded map[int64]brandedInfo
	if ar.HasBranded {
		branded, err = loadBranded(dir)
		if err != nil {
			return err
		}
	}

	foodPath, err := findFile(dir, "food.csv")
	if err != nil {
		return err
	}
	f, err := os.Open(foodPath)
	if err != nil {
		return errors.Wrap(err, "failed to open food file")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return errors.Wrap(err, "failed to read food header")
	}
	cols := indexColumns(header)

	var written, skipped int
	for {
		if err := ctx.Err(); err != nil {
			return err
		}
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return errors.Wrap(err, "failed to read food row")
		}

		id, err := strconv.ParseInt(field(row, cols, "fdc_id"), 10, 64)
		if err != nil {
			skipped++
			continue
		}
		acc, ok := nutrients[id]
		if !ok {
			// No nutrient data matched this food.
			skipped++
			continue
		}

		food := fdc.Food{
			FDCID:       id,
			Description: field(row, cols, "description"),
			DataType:    ar.Partition,
			FoodNutrients: []fdc.FoodNutrient{
				{NutrientID: mapper.NutrientEnergy, Value: acc[0]},
				{NutrientID: mapper.NutrientProtein, Value: acc[1]},
				{NutrientID: mapper.NutrientFat, Value: acc[2]},
				{NutrientID: mapper.NutrientCarbs, Value: acc[3]},
			},
		}
		if name, ok := categories[field(row, cols, "food_category_id")]; ok {
			food.FoodCategory = name
		}
		if info, ok := branded[id]; ok {
			food.ServingSize = info.servingSize
			food.ServingSizeUnit = info.servingUnit
			food.BrandedFoodCategory = info.category
		}

		rec, ok := mapper.Map(food)
		if !ok {
			skipped++
			continue
		}
		if err := writer.Append(rec); err != nil {
			return err
		}
		written++
	}

	slog.Info("etl_partition_complete", "partition", ar.Partition, "written", written, "skipped", skipped)
	return nil
}

// loadNutrients parses the pre-filtered nutrient file into per-food
// accumulators.
func loadNutrients(path string) (map[int64]*nutrientAccumulator, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open filtered nutrients")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read nutrient header")
	}
	cols := indexColumns(header)

	slots := map[int]int{
		mapper.NutrientEnergy:  0,
		mapper.NutrientProtein: 1,
		mapper.NutrientFat:     2,
		mapper.NutrientCarbs:   3,
	}

	out := make(map[int64]*nutrientAccumulator)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read nutrient row")
		}

		fdcID, err := strconv.ParseInt(field(row, cols, "fdc_id"), 10, 64)
		if err != nil {
			continue
		}
		nutID, err := strconv.Atoi(field(row, cols, "nutrient_id"))
		if err != nil {
			continue
		}
		slot, ok := slots[nutID]
		if !ok {
			continue
		}
		amount, err := strconv.ParseFloat(field(row, cols, "amount"), 64)
		if err != nil {
			continue
		}

		acc, ok := out[fdcID]
		if !ok {
			acc = &nutrientAccumulator{}
			out[fdcID] = acc
		}
		acc[slot] = amount
	}

	slog.Info("etl_nutrients_loaded", "foods", len(out))
	return out, nil
}

// loadCategories reads food_category.csv into an id-to-description lookup.
// Not every archive carries the file; a missing one yields an empty lookup.
func loadCategories(dir string) (map[string]string, error) {
	path, err := findFile(dir, "food_category.csv")
	if err != nil {
		return map[string]string{}, nil
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open category file")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read category header")
	}
	cols := indexColumns(header)

	out := make(map[string]string)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read category row")
		}
		out[field(row, cols, "id")] = field(row, cols, "description")
	}
	return out, nil
}

// loadBranded reads branded_food.csv into a serving-size/category lookup.
func loadBranded(dir string) (map[int64]brandedInfo, error) {
	path, err := findFile(dir, "branded_food.csv")
	if err != nil {
		return nil, err
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, errors.Wrap(err, "failed to open branded file")
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = -1
	header, err := r.Read()
	if err != nil {
		return nil, errors.Wrap(err, "failed to read branded header")
	}
	cols := indexColumns(header)

	out := make(map[int64]brandedInfo)
	for {
		row, err := r.Read()
		if err == io.EOF {
			break
		}
		if err != nil {
			return nil, errors.Wrap(err, "failed to read branded row")
		}

		id, err := strconv.ParseInt(field(row, cols, "fdc_id"), 10, 64)
		if err != nil {
			continue
		}
		size, _ := strconv.ParseFloat(field(row, cols, "serving_size"), 64)
		out[id] = brandedInfo{
			servingSize: size,
			servingUnit: field(row, cols, "serving_size_unit"),
			category:    field(row, cols, "branded_food_category"),
		}
	}

	slog.Info("etl_branded_loaded", "foods", len(out))
	return out, nil
}

// findFile locates name anywhere under dir; some archive revisions nest
// their CSVs in a subdirectory.
func findFile(dir, name string) (string, error) {
	var found string
	err := filepath.WalkDir(dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if !d.IsDir() && d.Name() == name {
			found = path
			return fs.SkipAll
		}
		return nil
	})
	if err != nil {
		return "", errors.Wrapf(err, "failed to scan %s", dir)
	}
	if found == "" {
		return "", errors.Wrapf(os.ErrNotExist, "%s not found under %s", name, dir)
	}
	return found, nil
}

func indexColumns(header []string) map[string]int {
	cols := make(map[string]int, len(header))
	for i, h := range header {
		cols[h] = i
	}
	return cols
}

func field(row []string, cols map[string]int, name string) string {
	i, ok := cols[name]
	if !ok || i >= len(row) {
		return ""
	}
	return row[i]
}
