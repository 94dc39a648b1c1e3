package etl

import (
	"bufio"
	"encoding/csv"
	"log/slog"
	"os"
	"strconv"
	"strings"

	"github.com/traintrack/fdcsync/pkg/errors"
	"github.com/traintrack/fdcsync/pkg/mapper"
)

// FilterNutrientFile streams src line by line and writes to dst only the
// header plus rows whose nutrient id is one of the four tracked ids. The
// nutrient file stores every tracked nutrient for every food — tens of
// millions of rows — and this cut removes roughly 97% of them before any
// real CSV parsing happens. A cheap substring prescreen skips most lines
// without parsing; survivors are confirmed field-by-field.
func FilterNutrientFile(src, dst string) (kept, total int64, err error) {
	in, err := os.Open(src)
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to open nutrient file")
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return 0, 0, errors.Wrap(err, "failed to create filtered file")
	}
	defer out.Close()

	w := bufio.NewWriterSize(out, 1<<20)
	scanner := bufio.NewScanner(in)
	scanner.Buffer(make([]byte, 0, 64*1024), 1<<20)

	needles := make([]string, 0, 2*len(mapper.NutrientIDs))
	wanted := make(map[string]bool, len(mapper.NutrientIDs))
	for _, id := range mapper.NutrientIDs {
		s := strconv.Itoa(id)
		needles = append(needles, `"`+s+`"`, ","+s+",")
		wanted[s] = true
	}

	if !scanner.Scan() {
		return 0, 0, errors.Wrap(scanner.Err(), "nutrient file empty")
	}
	header := scanner.Text()
	idCol, err := columnIndex(header, "nutrient_id")
	if err != nil {
		return 0, 0, err
	}
	if _, err := w.WriteString(header + "\n"); err != nil {
		return 0, 0, errors.Wrap(err, "failed to write header")
	}

	for scanner.Scan() {
		line := scanner.Text()
		total++

		if !containsAny(line, needles) {
			continue
		}
		// Confirm the hit: the quoted id may have matched another column.
		fields, err := csv.NewReader(strings.NewReader(line)).Read()
		if err != nil || idCol >= len(fields) || !wanted[fields[idCol]] {
			continue
		}

		if _, err := w.WriteString(line + "\n"); err != nil {
			return kept, total, errors.Wrap(err, "failed to write filtered row")
		}
		kept++
	}
	if err := scanner.Err(); err != nil {
		return kept, total, errors.Wrap(err, "failed to read nutrient file")
	}
	if err := w.Flush(); err != nil {
		return kept, total, errors.Wrap(err, "failed to flush filtered file")
	}

	slog.Info("etl_nutrients_filtered", "kept", kept, "total", total)
	return kept, total, nil
}

func containsAny(line string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(line, n) {
			return true
		}
	}
	return false
}

// columnIndex parses a CSV header line and returns the index of name.
func columnIndex(header, name string) (int, error) {
	fields, err := csv.NewReader(strings.NewReader(header)).Read()
	if err != nil {
		return 0, errors.Wrap(err, "failed to parse header")
	}
	for i, f := range fields {
		if f == name {
			return i, nil
		}
	}
	return 0, errors.Wrapf(os.ErrInvalid, "column %q not found in header", name)
}
